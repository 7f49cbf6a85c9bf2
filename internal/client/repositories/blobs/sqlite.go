package blobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dpetrovs/stockkeeper/internal/common"
	"github.com/dpetrovs/stockkeeper/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, name string) (*Blob, error) {
	b := &Blob{Name: name}
	err := r.db.QueryRowContext(ctx,
		`SELECT ciphertext, nonce FROM blobs WHERE name = ?`, name).Scan(&b.Ciphertext, &b.Nonce)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get blob[%s]: %w", name, err)
	}
	return b, nil
}

func (r *SQLiteRepository) Put(ctx context.Context, b *Blob) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO blobs (name, ciphertext, nonce, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET ciphertext = excluded.ciphertext,
			nonce = excluded.nonce, updated_at = excluded.updated_at
	`, b.Name, b.Ciphertext, b.Nonce, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to put blob[%s]: %w", b.Name, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, name string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM blobs WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete blob[%s]: %w", name, err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*Blob, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name, ciphertext, nonce FROM blobs`)
	if err != nil {
		return nil, fmt.Errorf("failed to list blobs: %w", err)
	}
	defer rows.Close()

	var result []*Blob
	for rows.Next() {
		b := &Blob{}
		if err := rows.Scan(&b.Name, &b.Ciphertext, &b.Nonce); err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM blobs`)
	if err != nil {
		return fmt.Errorf("failed to clear blobs: %w", err)
	}
	return nil
}
