package actions

import (
	"context"
	"time"

	"github.com/dpetrovs/stockkeeper/internal/client/models"
)

// Row is one persisted queued action. Seq and Status are plaintext columns
// so FIFO ordering and drain selection work without decrypting; everything
// else about the action lives in the encrypted blob.
type Row struct {
	Seq        int64
	ID         string
	Status     models.ActionStatus
	Bytes      int64
	Ciphertext []byte
	Nonce      []byte
	CreatedAt  time.Time
}

// Repository describes persistence for encrypted queued-action rows.
// Implementations are backed by the local SQLite database.
type Repository interface {
	// Insert appends a new row; the seq column is assigned by the database
	// and is the authoritative replay order.
	Insert(ctx context.Context, row *Row) error

	// GetByID returns a row by action id, or common.ErrNotFound.
	GetByID(ctx context.Context, id string) (*Row, error)

	// List returns rows in seq order. With no statuses given it returns
	// every row; otherwise only rows in one of the given statuses.
	List(ctx context.Context, statuses ...models.ActionStatus) ([]*Row, error)

	// Exists reports whether a row with the given action id is present.
	Exists(ctx context.Context, id string) (bool, error)

	// Delete removes a row by id. Deleting a missing id is a no-op.
	Delete(ctx context.Context, id string) error

	// UpdateStatus sets the status column only. Missing ids are a no-op.
	UpdateStatus(ctx context.Context, id string, status models.ActionStatus) error

	// Update rewrites status and the encrypted blob of an existing row.
	Update(ctx context.Context, row *Row) error

	// Stats returns the row count and cumulative serialized byte size.
	Stats(ctx context.Context) (count int, bytes int64, err error)

	// Clear removes every row.
	Clear(ctx context.Context) error
}
