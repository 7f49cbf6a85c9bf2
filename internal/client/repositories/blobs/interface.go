package blobs

import "context"

// Blob is one encrypted record keyed by logical name
// (e.g. "flags", "device", "snapshot:<name>").
type Blob struct {
	Name       string
	Ciphertext []byte
	Nonce      []byte
}

// Repository stores encrypted blobs keyed by logical name.
type Repository interface {
	// Get returns the blob for name, or common.ErrNotFound.
	Get(ctx context.Context, name string) (*Blob, error)

	// Put inserts or replaces a blob.
	Put(ctx context.Context, b *Blob) error

	// Delete removes a blob by name; missing names are a no-op.
	Delete(ctx context.Context, name string) error

	// List returns every blob. Used when re-encrypting the store under a
	// changed key.
	List(ctx context.Context) ([]*Blob, error)

	// Clear removes every blob.
	Clear(ctx context.Context) error
}
