package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dpetrovs/stockkeeper/internal/client/models"
	"github.com/dpetrovs/stockkeeper/internal/client/queue"
	"github.com/dpetrovs/stockkeeper/internal/client/remote"
	"github.com/dpetrovs/stockkeeper/internal/logging"
	"github.com/shopspring/decimal"
)

// ConflictService presents conflicted actions to the operator and applies
// their decisions.
type ConflictService struct {
	queue  *queue.Queue
	remote remote.Client
	sync   *SyncService
	log    logging.Logger
}

// NewConflictService returns a conflict resolver.
func NewConflictService(q *queue.Queue, r remote.Client, sync *SyncService, log logging.Logger) *ConflictService {
	return &ConflictService{queue: q, remote: r, sync: sync, log: log}
}

// List returns the actions awaiting operator resolution, in enqueue order.
// The available options for each follow from its conflict reason via
// models.ConflictReason.ResolutionOptions.
func (s *ConflictService) List(ctx context.Context) ([]*models.QueuedAction, error) {
	return s.queue.Conflicts(ctx)
}

// Resolve applies an operator decision to a conflicted action.
//
// RETRY returns the action unchanged to the pending set, to be replayed on
// the next drain. DISMISS drops the action locally after a best-effort
// notification to the authority. OVERRIDE_PRICE and SYNC_APPROVAL amend the
// payload from the conflict details and resubmit immediately; the returned
// DrainResult carries that submission's verdict and is nil for the other
// options.
func (s *ConflictService) Resolve(ctx context.Context, id string, option models.ResolutionOption) (*DrainResult, error) {
	a, err := s.queue.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != models.StatusConflict {
		return nil, fmt.Errorf("action %s is not in conflict", id)
	}

	reason := a.ConflictReason
	if reason == "" {
		reason = models.ConflictGeneric
	}
	if !reason.Allows(option) {
		return nil, fmt.Errorf("resolution %s is not available for %s", option, reason)
	}

	switch option {
	case models.ResolutionRetry:
		return nil, s.queue.ResetToPending(ctx, id)

	case models.ResolutionDismiss:
		if err := s.remote.ResolveConflict(ctx, id, option); err != nil {
			s.log.Warn(ctx, "could not report dismissal", "action_id", id, "error", err.Error())
		}
		return nil, s.queue.Remove(ctx, id)

	case models.ResolutionOverridePrice:
		if err := s.overridePrice(ctx, a); err != nil {
			return nil, err
		}

	case models.ResolutionSyncApproval:
		if err := s.attachApproval(ctx, a); err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("unknown resolution %q", option)
	}

	if err := s.queue.ResetToPending(ctx, id); err != nil {
		return nil, err
	}
	s.log.Info(ctx, "conflict resolved, resubmitting", "action_id", id, "resolution", string(option))
	return s.sync.SubmitSingle(ctx, id)
}

// overridePrice rewrites the sale's lines for the disputed product to the
// authority's current price and recomputes the total.
func (s *ConflictService) overridePrice(ctx context.Context, a *models.QueuedAction) error {
	if a.ConflictPayload == nil {
		return fmt.Errorf("action %s carries no conflict details", a.ID)
	}
	details, err := a.ConflictPayload.Unwrap()
	if err != nil {
		return err
	}
	variance, ok := details.(models.PriceVarianceConflict)
	if !ok {
		return fmt.Errorf("action %s conflict is not a price variance", a.ID)
	}

	body, err := a.Payload.Unwrap()
	if err != nil {
		return err
	}
	sale, ok := body.(models.Sale)
	if !ok {
		return fmt.Errorf("price override applies to sales only")
	}

	total := decimal.Zero
	for i := range sale.Lines {
		if sale.Lines[i].ProductID == variance.ProductID {
			sale.Lines[i].UnitPrice = variance.CurrentPrice
		}
		total = total.Add(sale.Lines[i].UnitPrice.Mul(sale.Lines[i].Quantity))
	}
	sale.Total = total

	// The idempotency key stays: the conflicted attempt never committed.
	payload, err := models.Wrap(a.Payload.DeviceID, a.Payload.IdempotencyKey, sale)
	if err != nil {
		return err
	}
	a.Payload = payload
	return s.queue.Update(ctx, a)
}

// attachApproval stamps the approval id from the conflict details onto the
// action payload, so the authority can match the granted approval.
func (s *ConflictService) attachApproval(ctx context.Context, a *models.QueuedAction) error {
	if a.ConflictPayload == nil {
		return fmt.Errorf("action %s carries no conflict details", a.ID)
	}
	details, err := a.ConflictPayload.Unwrap()
	if err != nil {
		return err
	}
	approval, ok := details.(models.ApprovalConflict)
	if !ok || approval.ApprovalID == "" {
		return fmt.Errorf("action %s conflict carries no approval id", a.ID)
	}

	var body map[string]any
	if err := json.Unmarshal(a.Payload.Details, &body); err != nil {
		return err
	}
	body["approvalId"] = approval.ApprovalID
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}

	a.Payload.Details = raw
	return s.queue.Update(ctx, a)
}
