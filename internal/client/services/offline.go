package services

import (
	"context"
	"strings"
	"time"

	"github.com/dpetrovs/stockkeeper/internal/client/models"
	"github.com/dpetrovs/stockkeeper/internal/client/queue"
	"github.com/dpetrovs/stockkeeper/internal/client/remote"
	"github.com/dpetrovs/stockkeeper/internal/client/store"
	"github.com/dpetrovs/stockkeeper/internal/common"
	"github.com/dpetrovs/stockkeeper/internal/logging"
	"github.com/google/uuid"
)

// OfflineService is the facade the UI talks to. It owns the sub-services and
// exposes the capture, sync, conflict and lifecycle operations as one
// surface.
type OfflineService struct {
	store     *store.Store
	queue     *queue.Queue
	Device    *DeviceService
	Sync      *SyncService
	Conflicts *ConflictService
	log       logging.Logger
}

// NewOfflineService wires the offline engine together.
func NewOfflineService(s *store.Store, q *queue.Queue, r remote.Client, log logging.Logger, submitTimeout time.Duration) *OfflineService {
	device := NewDeviceService(s, r, log)
	sync := NewSyncService(s, q, r, log, submitTimeout)
	conflicts := NewConflictService(q, r, sync, log)
	return &OfflineService{
		store:     s,
		queue:     q,
		Device:    device,
		Sync:      sync,
		Conflicts: conflicts,
		log:       log,
	}
}

// newAction builds a queued action around the typed body. The action id
// doubles as the idempotency key sent to the authority.
func (s *OfflineService) newAction(ctx context.Context, v models.TypedPayload) (*models.QueuedAction, error) {
	deviceID, err := s.Device.GetOrCreateDeviceID(ctx)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	payload, err := models.Wrap(deviceID, id, v)
	if err != nil {
		return nil, err
	}
	return &models.QueuedAction{
		ID:            id,
		Type:          v.GetType(),
		Payload:       payload,
		ProvisionalAt: time.Now().UTC(),
		LocalAuditID:  uuid.NewString(),
	}, nil
}

// EnqueueStockAdjustment queues a stock adjustment for later sync.
func (s *OfflineService) EnqueueStockAdjustment(ctx context.Context, adj models.StockAdjustment) (*models.QueuedAction, error) {
	a, err := s.newAction(ctx, adj)
	if err != nil {
		return nil, err
	}
	if err := s.queue.Enqueue(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// EnqueueStockCount queues a stock count for later sync.
func (s *OfflineService) EnqueueStockCount(ctx context.Context, count models.StockCount) (*models.QueuedAction, error) {
	a, err := s.newAction(ctx, count)
	if err != nil {
		return nil, err
	}
	if err := s.queue.Enqueue(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// EnqueueSale queues an offline sale. A provisional receipt number is
// assigned when the sale does not carry one; the authority issues the final
// number on sync and the mapping lands in the reconciliation history.
func (s *OfflineService) EnqueueSale(ctx context.Context, sale models.Sale) (*models.QueuedAction, error) {
	if sale.LocalReceiptNumber == "" {
		suffix, err := common.MakeRandHexString(4)
		if err != nil {
			return nil, err
		}
		sale.LocalReceiptNumber = "OFF-" + strings.ToUpper(suffix)
	}

	a, err := s.newAction(ctx, sale)
	if err != nil {
		return nil, err
	}
	if err := s.queue.Enqueue(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Actions returns every queued action in FIFO order.
func (s *OfflineService) Actions(ctx context.Context) ([]*models.QueuedAction, error) {
	return s.queue.List(ctx)
}

// PendingActions returns the ready-to-submit set in FIFO order.
func (s *OfflineService) PendingActions(ctx context.Context) ([]*models.QueuedAction, error) {
	return s.queue.Pending(ctx)
}

// PendingCount returns the number of ready-to-submit actions.
func (s *OfflineService) PendingCount(ctx context.Context) (int, error) {
	pending, err := s.queue.Pending(ctx)
	if err != nil {
		return 0, err
	}
	return len(pending), nil
}

// QueueStats returns the queue usage readout.
func (s *OfflineService) QueueStats(ctx context.Context) (*models.QueueStats, error) {
	return s.queue.Stats(ctx)
}

// SyncQueue drains the pending queue to the authority.
func (s *OfflineService) SyncQueue(ctx context.Context) (*DrainResult, error) {
	return s.Sync.Sync(ctx)
}

// SyncFlags returns the sync bookkeeping state for display.
func (s *OfflineService) SyncFlags(ctx context.Context) (*models.SyncFlags, error) {
	return s.store.GetSyncFlags(ctx)
}

// Receipts returns the provisional-to-final receipt reconciliation history.
func (s *OfflineService) Receipts(ctx context.Context) ([]*models.ReceiptReconciliationEntry, error) {
	return s.store.ListReceipts(ctx)
}

// PinRequired reports whether the store demands a PIN this session.
func (s *OfflineService) PinRequired() bool { return s.store.PinRequired() }

// VerifyPin unlocks the store for this session.
func (s *OfflineService) VerifyPin(ctx context.Context, pin []byte) error {
	return s.store.VerifyPin(ctx, pin)
}

// SetPin enables or changes the unlock PIN.
func (s *OfflineService) SetPin(ctx context.Context, pin []byte) error {
	return s.store.SetPin(ctx, pin)
}

// ClearPin removes the PIN requirement.
func (s *OfflineService) ClearPin(ctx context.Context) error {
	return s.store.ClearPin(ctx)
}

// Flag returns a named offline flag, or common.ErrNotFound.
func (s *OfflineService) Flag(ctx context.Context, name string) (string, error) {
	return s.store.GetFlag(ctx, name)
}

// SetFlag sets a named offline flag.
func (s *OfflineService) SetFlag(ctx context.Context, name, value string) error {
	return s.store.SetFlag(ctx, name, value)
}

// CacheSnapshot stores a reference dataset for offline lookups.
func (s *OfflineService) CacheSnapshot(ctx context.Context, name string, v any) error {
	return s.store.PutSnapshot(ctx, name, v)
}

// Snapshot loads a cached reference dataset into v.
func (s *OfflineService) Snapshot(ctx context.Context, name string, v any) error {
	return s.store.GetSnapshot(ctx, name, v)
}

// ClearData wipes queued actions, cached snapshots and receipt history
// without touching key material or the device identity.
func (s *OfflineService) ClearData(ctx context.Context) error {
	return s.store.ClearData(ctx)
}

// RotateKey destroys all encrypted data and generates fresh key material.
// The device identity is kept; pair with Device.Revoke for a full wipe.
func (s *OfflineService) RotateKey(ctx context.Context) error {
	return s.store.RotateKey(ctx)
}
