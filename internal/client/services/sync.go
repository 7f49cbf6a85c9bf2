package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dpetrovs/stockkeeper/internal/client/models"
	"github.com/dpetrovs/stockkeeper/internal/client/queue"
	"github.com/dpetrovs/stockkeeper/internal/client/remote"
	"github.com/dpetrovs/stockkeeper/internal/client/store"
	"github.com/dpetrovs/stockkeeper/internal/common"
	"github.com/dpetrovs/stockkeeper/internal/logging"
	"golang.org/x/sync/singleflight"
)

// DrainResult summarizes one drain cycle.
type DrainResult struct {
	// Submitted counts actions the authority committed (including duplicates
	// it had already applied); these were removed from the queue.
	Submitted int

	// Conflicts counts actions marked for operator resolution.
	Conflicts int

	// Rejected counts actions the authority rejected as invalid.
	Rejected int

	// Retryable is set when the drain stopped on a transient failure and
	// left the remaining items pending.
	Retryable bool

	// Revoked is set when the authority reported the device revoked; the
	// local store was wiped and the drain halted.
	Revoked bool
}

// Processed reports whether the drain consumed or reclassified any item.
func (r *DrainResult) Processed() bool {
	return r.Submitted+r.Conflicts+r.Rejected > 0
}

// SyncService drains the action queue to the remote authority.
//
// A drain walks the pending set strictly in enqueue order and submits one
// action at a time; the authority sees mutations in the order the operator
// performed them. Concurrent Sync calls coalesce into a single drain.
type SyncService struct {
	store         *store.Store
	queue         *queue.Queue
	remote        remote.Client
	log           logging.Logger
	submitTimeout time.Duration

	group singleflight.Group
}

// NewSyncService returns a sync engine. submitTimeout bounds each individual
// submission; the drain as a whole is bounded by the caller's context.
func NewSyncService(s *store.Store, q *queue.Queue, r remote.Client, log logging.Logger, submitTimeout time.Duration) *SyncService {
	return &SyncService{
		store:         s,
		queue:         q,
		remote:        r,
		log:           log,
		submitTimeout: submitTimeout,
	}
}

// Sync drains the pending queue. Calls arriving while a drain is in flight
// share its result instead of starting a second drain.
func (s *SyncService) Sync(ctx context.Context) (*DrainResult, error) {
	v, err, _ := s.group.Do("drain", func() (any, error) {
		return s.drain(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*DrainResult), nil
}

func (s *SyncService) drain(ctx context.Context) (*DrainResult, error) {
	res := &DrainResult{}

	// Reclaim items a previous run left mid-submission, e.g. after a crash.
	if err := s.queue.ResetSyncing(ctx); err != nil {
		return nil, err
	}

	pending, err := s.queue.Pending(ctx)
	if err != nil {
		return nil, err
	}

	for _, a := range pending {
		// Cancellation is honored between items, never mid-submission.
		if ctx.Err() != nil {
			res.Retryable = true
			break
		}
		halt, err := s.submitOne(ctx, a, res)
		if err != nil {
			return nil, err
		}
		if halt {
			break
		}
	}

	// The sync timestamp records the attempt, even a partial one; the
	// blocked flag reflects only whether a retryable failure remains.
	// Bookkeeping must land even when the caller canceled mid-drain.
	bkCtx := context.WithoutCancel(ctx)
	now := time.Now().UTC()
	flags, err := s.store.GetSyncFlags(bkCtx)
	if err != nil {
		return nil, err
	}
	flags.LastSyncAt = &now
	flags.SyncBlocked = res.Retryable
	if err := s.store.SetSyncFlags(bkCtx, flags); err != nil {
		return nil, err
	}

	s.log.Info(ctx, "sync cycle finished",
		"submitted", res.Submitted,
		"conflicts", res.Conflicts,
		"rejected", res.Rejected,
		"retryable", res.Retryable,
	)
	return res, nil
}

// submitOne sends a single action and applies the outcome to the queue.
// It returns halt=true when the drain must stop: on a retryable failure the
// item goes back to pending so order is preserved for the next attempt; on
// revocation the store is wiped and nothing further may be sent.
func (s *SyncService) submitOne(ctx context.Context, a *models.QueuedAction, res *DrainResult) (bool, error) {
	// Only the remote call follows the caller's context. Once the authority
	// has classified the action, applying the verdict locally must finish
	// even if the caller cancels, or a committed action would be replayed.
	storeCtx := context.WithoutCancel(ctx)

	if err := s.queue.SetStatus(storeCtx, a.ID, models.StatusSyncing); err != nil {
		return true, err
	}

	subCtx, cancel := context.WithTimeout(ctx, s.submitTimeout)
	result, err := s.remote.Submit(subCtx, a.Payload)
	cancel()

	switch {
	case errors.Is(err, common.ErrDeviceRevoked):
		res.Revoked = true
		s.log.Warn(ctx, "authority reports device revoked, destroying local data")
		if err := s.store.RotateKey(storeCtx); err != nil {
			return true, err
		}
		if err := s.store.DeleteDeviceID(storeCtx); err != nil {
			return true, err
		}
		return true, nil

	case err != nil:
		res.Retryable = true
		if err2 := s.queue.SetStatus(storeCtx, a.ID, models.StatusPending); err2 != nil {
			return true, err2
		}
		s.log.Warn(ctx, "submission failed, will retry", "action_id", a.ID, "error", err.Error())
		return true, nil
	}

	switch result.Outcome {
	case remote.OutcomeApplied, remote.OutcomeAlreadyApplied:
		if err := s.recordReceipt(storeCtx, a, result); err != nil {
			return true, err
		}
		if err := s.queue.Remove(storeCtx, a.ID); err != nil {
			return true, err
		}
		res.Submitted++

	case remote.OutcomeConflict:
		reason := models.ConflictGeneric
		if result.Conflict != nil {
			reason = result.Conflict.Reason
		}
		if err := s.queue.MarkConflict(storeCtx, a.ID, reason, result.Conflict); err != nil {
			return true, err
		}
		res.Conflicts++

	case remote.OutcomeRejected:
		if err := s.queue.MarkFailed(storeCtx, a.ID, result.Message); err != nil {
			return true, err
		}
		res.Rejected++

	default:
		return true, fmt.Errorf("unknown submit outcome %q", result.Outcome)
	}
	return false, nil
}

// recordReceipt appends a reconciliation entry when a sale synced under a
// final receipt number different from its provisional one.
func (s *SyncService) recordReceipt(ctx context.Context, a *models.QueuedAction, result *remote.SubmitResult) error {
	if a.Type != models.ActionTypeSale || result.ReceiptNumber == "" {
		return nil
	}

	body, err := a.Payload.Unwrap()
	if err != nil {
		return err
	}
	sale, ok := body.(models.Sale)
	if !ok || sale.LocalReceiptNumber == "" || sale.LocalReceiptNumber == result.ReceiptNumber {
		return nil
	}

	return s.store.AppendReceipt(ctx, &models.ReceiptReconciliationEntry{
		LocalReceiptNumber: sale.LocalReceiptNumber,
		ReceiptNumber:      result.ReceiptNumber,
		SyncedAt:           time.Now().UTC(),
	})
}

// SubmitSingle submits one specific action immediately, outside the FIFO
// drain. It is used after a conflict resolution amends an action, so the
// operator sees the verdict without waiting for the next full sync.
func (s *SyncService) SubmitSingle(ctx context.Context, id string) (*DrainResult, error) {
	a, err := s.queue.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	res := &DrainResult{}
	if _, err := s.submitOne(ctx, a, res); err != nil {
		return nil, err
	}
	return res, nil
}
