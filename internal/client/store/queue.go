package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dpetrovs/stockkeeper/internal/client/models"
	"github.com/dpetrovs/stockkeeper/internal/client/repositories/actions"
	"github.com/dpetrovs/stockkeeper/internal/common"
	"github.com/dpetrovs/stockkeeper/internal/cryptox"
	"github.com/dpetrovs/stockkeeper/internal/dbx"
)

// EnqueueAction admits a new queued action, enforcing the duplicate-id and
// capacity invariants inside one transaction: the action is either fully
// admitted or fully rejected, and the queue state is unchanged on rejection.
// On success the database-assigned sequence number is written back to a.Seq.
func (s *Store) EnqueueAction(ctx context.Context, a *models.QueuedAction, maxItems int, maxBytes int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, err := s.sessionKey()
	if err != nil {
		return err
	}

	plaintext, err := json.Marshal(a)
	if err != nil {
		return err
	}
	ciphertext, nonce, err := cryptox.Seal(a, key)
	if err != nil {
		return err
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := actions.NewSQLiteRepository(tx)

		exists, err := repo.Exists(ctx, a.ID)
		if err != nil {
			return err
		}
		if exists {
			return common.ErrDuplicateAction
		}

		count, bytes, err := repo.Stats(ctx)
		if err != nil {
			return err
		}
		if count+1 > maxItems || bytes+int64(len(plaintext)) > maxBytes {
			return common.ErrQueueFull
		}

		row := &actions.Row{
			ID:         a.ID,
			Status:     a.Status,
			Bytes:      int64(len(plaintext)),
			Ciphertext: ciphertext,
			Nonce:      nonce,
			CreatedAt:  a.ProvisionalAt,
		}
		if err := repo.Insert(ctx, row); err != nil {
			return err
		}
		a.Seq = row.Seq
		return nil
	})
}

// GetAction returns a single queued action by id.
func (s *Store) GetAction(ctx context.Context, id string) (*models.QueuedAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, err := s.sessionKey()
	if err != nil {
		return nil, err
	}

	row, err := actions.NewSQLiteRepository(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return decodeAction(row, key)
}

// ListActions returns queued actions in replay (seq) order, optionally
// filtered by status.
func (s *Store) ListActions(ctx context.Context, statuses ...models.ActionStatus) ([]*models.QueuedAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, err := s.sessionKey()
	if err != nil {
		return nil, err
	}

	rows, err := actions.NewSQLiteRepository(s.db).List(ctx, statuses...)
	if err != nil {
		return nil, err
	}

	result := make([]*models.QueuedAction, 0, len(rows))
	for _, row := range rows {
		a, err := decodeAction(row, key)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, nil
}

// RemoveAction deletes a queued action. Removing a missing id is a no-op,
// to tolerate racing UI refresh and background sync.
func (s *Store) RemoveAction(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.sessionKey(); err != nil {
		return err
	}

	return actions.NewSQLiteRepository(s.db).Delete(ctx, id)
}

// SetActionStatus updates the status column of a queued action. Missing ids
// are a no-op.
func (s *Store) SetActionStatus(ctx context.Context, id string, status models.ActionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.sessionKey(); err != nil {
		return err
	}

	return actions.NewSQLiteRepository(s.db).UpdateStatus(ctx, id, status)
}

// UpdateAction rewrites a queued action's sealed record and status. Used to
// attach conflict details, error messages or an amended payload. Updating a
// missing id is a no-op.
func (s *Store) UpdateAction(ctx context.Context, a *models.QueuedAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, err := s.sessionKey()
	if err != nil {
		return err
	}

	plaintext, err := json.Marshal(a)
	if err != nil {
		return err
	}
	ciphertext, nonce, err := cryptox.Seal(a, key)
	if err != nil {
		return err
	}

	repo := actions.NewSQLiteRepository(s.db)
	if _, err := repo.GetByID(ctx, a.ID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil
		}
		return err
	}

	return repo.Update(ctx, &actions.Row{
		ID:         a.ID,
		Status:     a.Status,
		Bytes:      int64(len(plaintext)),
		Ciphertext: ciphertext,
		Nonce:      nonce,
	})
}

// QueueStats returns the current item count and cumulative serialized size.
func (s *Store) QueueStats(ctx context.Context) (int, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.sessionKey(); err != nil {
		return 0, 0, err
	}

	return actions.NewSQLiteRepository(s.db).Stats(ctx)
}

func decodeAction(row *actions.Row, key []byte) (*models.QueuedAction, error) {
	var a models.QueuedAction
	if err := cryptox.Open(row.Ciphertext, row.Nonce, key, &a); err != nil {
		return nil, err
	}
	a.Seq = row.Seq
	a.Status = row.Status
	return &a, nil
}
