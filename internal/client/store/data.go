package store

import (
	"context"
	"errors"

	"github.com/dpetrovs/stockkeeper/internal/client/models"
	"github.com/dpetrovs/stockkeeper/internal/client/repositories/blobs"
	"github.com/dpetrovs/stockkeeper/internal/client/repositories/receipts"
	"github.com/dpetrovs/stockkeeper/internal/common"
	"github.com/dpetrovs/stockkeeper/internal/cryptox"
)

// getBlob opens the named encrypted blob into v. Callers must hold s.mu.
func (s *Store) getBlob(ctx context.Context, name string, v any) error {
	key, err := s.sessionKey()
	if err != nil {
		return err
	}

	b, err := blobs.NewSQLiteRepository(s.db).Get(ctx, name)
	if err != nil {
		return err
	}
	return cryptox.Open(b.Ciphertext, b.Nonce, key, v)
}

// putBlob seals v and stores it under name. Callers must hold s.mu.
func (s *Store) putBlob(ctx context.Context, name string, v any) error {
	key, err := s.sessionKey()
	if err != nil {
		return err
	}

	ciphertext, nonce, err := cryptox.Seal(v, key)
	if err != nil {
		return err
	}
	return blobs.NewSQLiteRepository(s.db).Put(ctx, &blobs.Blob{
		Name:       name,
		Ciphertext: ciphertext,
		Nonce:      nonce,
	})
}

// GetFlag returns the value of a named flag, or common.ErrNotFound.
func (s *Store) GetFlag(ctx context.Context, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	flags, err := s.loadFlags(ctx)
	if err != nil {
		return "", err
	}
	v, ok := flags[name]
	if !ok {
		return "", common.ErrNotFound
	}
	return v, nil
}

// SetFlag sets a named flag.
func (s *Store) SetFlag(ctx context.Context, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	flags, err := s.loadFlags(ctx)
	if err != nil {
		return err
	}
	flags[name] = value
	return s.putBlob(ctx, blobFlags, flags)
}

func (s *Store) loadFlags(ctx context.Context) (map[string]string, error) {
	flags := map[string]string{}
	err := s.getBlob(ctx, blobFlags, &flags)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}
	return flags, nil
}

// GetSnapshot reads a cached reference snapshot into v.
// Returns common.ErrNotFound when the snapshot has never been cached.
func (s *Store) GetSnapshot(ctx context.Context, name string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.getBlob(ctx, SnapshotBlobName(name), v)
}

// PutSnapshot caches a reference snapshot (populated while online for
// offline-mode lookups).
func (s *Store) PutSnapshot(ctx context.Context, name string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.putBlob(ctx, SnapshotBlobName(name), v)
}

// GetSyncFlags returns the persisted sync bookkeeping state; a store that
// has never synced returns zero flags.
func (s *Store) GetSyncFlags(ctx context.Context) (*models.SyncFlags, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var f models.SyncFlags
	err := s.getBlob(ctx, blobSyncFlags, &f)
	if errors.Is(err, common.ErrNotFound) {
		return &models.SyncFlags{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// SetSyncFlags persists the sync bookkeeping state.
func (s *Store) SetSyncFlags(ctx context.Context, f *models.SyncFlags) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.putBlob(ctx, blobSyncFlags, f)
}

// GetDeviceRecord returns the locally mirrored device record.
func (s *Store) GetDeviceRecord(ctx context.Context) (*models.DeviceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var d models.DeviceRecord
	if err := s.getBlob(ctx, blobDevice, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// SetDeviceRecord mirrors the authority's device record locally.
func (s *Store) SetDeviceRecord(ctx context.Context, d *models.DeviceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.putBlob(ctx, blobDevice, d)
}

// AppendReceipt records a provisional-to-final receipt number
// reconciliation. Entries are immutable once written.
func (s *Store) AppendReceipt(ctx context.Context, e *models.ReceiptReconciliationEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, err := s.sessionKey()
	if err != nil {
		return err
	}

	ciphertext, nonce, err := cryptox.Seal(e, key)
	if err != nil {
		return err
	}
	return receipts.NewSQLiteRepository(s.db).Append(ctx, &receipts.Row{
		Ciphertext: ciphertext,
		Nonce:      nonce,
	})
}

// ListReceipts returns the reconciliation history in append order.
func (s *Store) ListReceipts(ctx context.Context) ([]*models.ReceiptReconciliationEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, err := s.sessionKey()
	if err != nil {
		return nil, err
	}

	rows, err := receipts.NewSQLiteRepository(s.db).List(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*models.ReceiptReconciliationEntry, 0, len(rows))
	for _, row := range rows {
		var e models.ReceiptReconciliationEntry
		if err := cryptox.Open(row.Ciphertext, row.Nonce, key, &e); err != nil {
			return nil, err
		}
		result = append(result, &e)
	}
	return result, nil
}
