package keyring

import "context"

// Repository stores local key material and installation identity: the
// device-bound secret, derivation salt, PIN flag, key verifier and device id.
// Values here are the bootstrap for the encryption key and are the only
// rows persisted in plaintext; no business data ever lands in this table.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
