package receipts

import (
	"context"
	"fmt"

	"github.com/dpetrovs/stockkeeper/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Append(ctx context.Context, row *Row) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO receipts (ciphertext, nonce) VALUES (?, ?)`, row.Ciphertext, row.Nonce)
	if err != nil {
		return fmt.Errorf("failed to append receipt: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get receipt seq: %w", err)
	}
	row.Seq = seq
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*Row, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT seq, ciphertext, nonce FROM receipts ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to list receipts: %w", err)
	}
	defer rows.Close()

	var result []*Row
	for rows.Next() {
		row := &Row{}
		if err := rows.Scan(&row.Seq, &row.Ciphertext, &row.Nonce); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM receipts`)
	if err != nil {
		return fmt.Errorf("failed to clear receipts: %w", err)
	}
	return nil
}
