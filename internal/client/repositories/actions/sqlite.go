package actions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dpetrovs/stockkeeper/internal/client/models"
	"github.com/dpetrovs/stockkeeper/internal/common"
	"github.com/dpetrovs/stockkeeper/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Insert(ctx context.Context, row *Row) error {
	query := `INSERT INTO actions (id, status, bytes, ciphertext, nonce, created_at)
			values (?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query,
		row.ID, row.Status, row.Bytes, row.Ciphertext, row.Nonce, row.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to insert action: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get inserted seq: %w", err)
	}
	row.Seq = seq
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Row, error) {
	query := `SELECT seq, id, status, bytes, ciphertext, nonce, created_at FROM actions WHERE id = ?`
	row, err := scanRow(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get action: %w", err)
	}
	return row, nil
}

func (r *SQLiteRepository) List(ctx context.Context, statuses ...models.ActionStatus) ([]*Row, error) {
	query := `SELECT seq, id, status, bytes, ciphertext, nonce, created_at FROM actions`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (?` + strings.Repeat(",?", len(statuses)-1) + `)`
		for _, s := range statuses {
			args = append(args, s)
		}
	}
	query += ` ORDER BY seq`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select actions: %w", err)
	}
	defer rows.Close()

	var result []*Row
	for rows.Next() {
		item, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Exists(ctx context.Context, id string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM actions WHERE id = ?`, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check action: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM actions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete action: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateStatus(ctx context.Context, id string, status models.ActionStatus) error {
	_, err := r.db.ExecContext(ctx, `UPDATE actions SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update action status: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, row *Row) error {
	query := `UPDATE actions SET status = ?, bytes = ?, ciphertext = ?, nonce = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, row.Status, row.Bytes, row.Ciphertext, row.Nonce, row.ID)
	if err != nil {
		return fmt.Errorf("failed to update action: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Stats(ctx context.Context) (int, int64, error) {
	var count int
	var bytes sql.NullInt64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*), SUM(bytes) FROM actions`).Scan(&count, &bytes)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get queue stats: %w", err)
	}
	return count, bytes.Int64, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM actions`)
	if err != nil {
		return fmt.Errorf("failed to clear actions: %w", err)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRow(s scannable) (*Row, error) {
	var row Row
	var createdAt string
	if err := s.Scan(&row.Seq, &row.ID, &row.Status, &row.Bytes, &row.Ciphertext, &row.Nonce, &createdAt); err != nil {
		return nil, err
	}
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	row.CreatedAt = ts
	return &row, nil
}
