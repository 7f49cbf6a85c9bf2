package receipts

import "context"

// Row is one encrypted receipt-reconciliation record. Rows are append-only
// and immutable once written.
type Row struct {
	Seq        int64
	Ciphertext []byte
	Nonce      []byte
}

// Repository stores the encrypted receipt reconciliation history.
type Repository interface {
	Append(ctx context.Context, row *Row) error
	List(ctx context.Context) ([]*Row, error)
	Clear(ctx context.Context) error
}
