package keyring

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dpetrovs/stockkeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE keyring (key TEXT PRIMARY KEY, value BLOB NOT NULL);`)
	require.NoError(t, err)
	return db
}

func TestSetGet(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "salt", []byte("s1")))
	got, err := r.Get(ctx, "salt")
	require.NoError(t, err)
	assert.Equal(t, []byte("s1"), got)

	// upsert
	require.NoError(t, r.Set(ctx, "salt", []byte("s2")))
	got, err = r.Get(ctx, "salt")
	require.NoError(t, err)
	assert.Equal(t, []byte("s2"), got)
}

func TestGet_Missing(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)

	_, err := r.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDeleteAndClear(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "a", []byte("1")))
	require.NoError(t, r.Set(ctx, "b", []byte("2")))

	require.NoError(t, r.Delete(ctx, "a"))
	_, err := r.Get(ctx, "a")
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, r.Clear(ctx))
	_, err = r.Get(ctx, "b")
	assert.ErrorIs(t, err, common.ErrNotFound)
}
