// Package queue implements the bounded, ordered action queue on top of the
// local encrypted store. It enforces the capacity and idempotency contracts;
// durability and encryption live below it, replay policy above it.
package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/dpetrovs/stockkeeper/internal/client/models"
	"github.com/dpetrovs/stockkeeper/internal/client/store"
	"github.com/dpetrovs/stockkeeper/internal/common"
)

// Queue is a bounded FIFO of pending mutations.
type Queue struct {
	store    *store.Store
	maxItems int
	maxBytes int64
}

// New returns a queue with the given capacity limits.
func New(s *store.Store, maxItems int, maxBytes int64) *Queue {
	return &Queue{store: s, maxItems: maxItems, maxBytes: maxBytes}
}

// Enqueue admits a new action.
//
// It fails with common.ErrQueueFull when accepting the item would exceed the
// configured maximum item count or cumulative serialized size. That is a
// backpressure signal to the caller, never a silent drop. It fails with
// common.ErrDuplicateAction when the id is already queued, which makes a
// retried UI submission with the same generated id safe.
func (q *Queue) Enqueue(ctx context.Context, a *models.QueuedAction) error {
	if a.ID == "" {
		return fmt.Errorf("action id is required")
	}
	if a.Status == "" {
		a.Status = models.StatusPending
	}
	return q.store.EnqueueAction(ctx, a, q.maxItems, q.maxBytes)
}

// List returns all queued actions in FIFO order.
func (q *Queue) List(ctx context.Context) ([]*models.QueuedAction, error) {
	return q.store.ListActions(ctx)
}

// Pending returns the ready-to-submit set in FIFO order. Conflicted and
// failed items are excluded until resolved.
func (q *Queue) Pending(ctx context.Context) ([]*models.QueuedAction, error) {
	return q.store.ListActions(ctx, models.StatusPending)
}

// Conflicts returns the items awaiting operator resolution.
func (q *Queue) Conflicts(ctx context.Context) ([]*models.QueuedAction, error) {
	return q.store.ListActions(ctx, models.StatusConflict)
}

// Get returns a single queued action by id.
func (q *Queue) Get(ctx context.Context, id string) (*models.QueuedAction, error) {
	return q.store.GetAction(ctx, id)
}

// Remove deletes an action from the queue. Removing a missing id is a
// no-op, to tolerate racing UI refresh and background sync.
func (q *Queue) Remove(ctx context.Context, id string) error {
	return q.store.RemoveAction(ctx, id)
}

// Update persists modified fields of an action, payload included. Updating
// a missing id is a no-op.
func (q *Queue) Update(ctx context.Context, a *models.QueuedAction) error {
	return q.store.UpdateAction(ctx, a)
}

// SetStatus updates the replay status of an action.
func (q *Queue) SetStatus(ctx context.Context, id string, status models.ActionStatus) error {
	return q.store.SetActionStatus(ctx, id, status)
}

// MarkConflict flags an action as conflicted with the authority's reason and
// payload. Marking a missing id is a no-op.
func (q *Queue) MarkConflict(ctx context.Context, id string, reason models.ConflictReason, payload *models.ConflictPayload) error {
	a, err := q.store.GetAction(ctx, id)
	if errors.Is(err, common.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	a.Status = models.StatusConflict
	a.ConflictReason = reason
	a.ConflictPayload = payload
	a.ErrorMessage = ""
	return q.store.UpdateAction(ctx, a)
}

// MarkFailed records a non-retryable rejection. Marking a missing id is a
// no-op.
func (q *Queue) MarkFailed(ctx context.Context, id string, message string) error {
	a, err := q.store.GetAction(ctx, id)
	if errors.Is(err, common.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	a.Status = models.StatusFailed
	a.ErrorMessage = message
	return q.store.UpdateAction(ctx, a)
}

// ResetToPending returns an action to the ready-to-submit set, clearing any
// conflict or failure details.
func (q *Queue) ResetToPending(ctx context.Context, id string) error {
	a, err := q.store.GetAction(ctx, id)
	if errors.Is(err, common.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	a.Status = models.StatusPending
	a.ConflictReason = ""
	a.ConflictPayload = nil
	a.ErrorMessage = ""
	return q.store.UpdateAction(ctx, a)
}

// ResetSyncing returns any action stuck in the syncing state to the pending
// set. An in-flight marker survives a crash between marking and verdict; a
// drain reclaims such items so they are replayed rather than stranded.
func (q *Queue) ResetSyncing(ctx context.Context) error {
	stuck, err := q.store.ListActions(ctx, models.StatusSyncing)
	if err != nil {
		return err
	}
	for _, a := range stuck {
		if err := q.store.SetActionStatus(ctx, a.ID, models.StatusPending); err != nil {
			return err
		}
	}
	return nil
}

// Stats returns the queue usage readout for the UI.
func (q *Queue) Stats(ctx context.Context) (*models.QueueStats, error) {
	count, bytes, err := q.store.QueueStats(ctx)
	if err != nil {
		return nil, err
	}
	return &models.QueueStats{
		Count:    count,
		Bytes:    bytes,
		MaxItems: q.maxItems,
		MaxBytes: q.maxBytes,
	}, nil
}
