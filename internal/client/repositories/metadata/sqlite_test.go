package metadata

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/havengate/internal/client/storage"
	"github.com/dmitrijs2005/havengate/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := storage.Open(context.Background(), filepath.Join(t.TempDir(), "meta.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSetAndGet_InsertThenGet(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, common.MetaInstallID, "abc"))

	v, ok, err := r.Get(ctx, common.MetaInstallID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "abc", v)
}

func TestGet_NotExists(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	v, ok, err := r.Get(context.Background(), "absent")
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, v)
}

func TestSet_UpsertOverwritesValue(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "k", "old"))
	require.NoError(t, r.Set(ctx, "k", "new"))

	v, _, err := r.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "new", v)
}

func TestSet_EmptyValueIsStored(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "k", ""))

	v, ok, err := r.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, v)
}

func TestList_ReturnsAllPairs(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "a", "1"))
	require.NoError(t, r.Set(ctx, "b", "2"))

	m, err := r.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, m)
}

func TestDelete_RemovesKey_AndIsIdempotent(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "x", "1"))
	require.NoError(t, r.Delete(ctx, "x"))

	_, ok, err := r.Get(ctx, "x")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, r.Delete(ctx, "x"))
}

func TestClosedDB_ErrorsWrapped(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()
	require.NoError(t, db.Close())

	_, _, err := r.Get(ctx, "k")
	require.ErrorContains(t, err, "failed to get meta[k]")

	err = r.Set(ctx, "k", "v")
	require.ErrorContains(t, err, "failed to set meta[k]")

	err = r.Delete(ctx, "k")
	require.ErrorContains(t, err, "failed to delete meta[k]")

	_, err = r.List(ctx)
	require.ErrorContains(t, err, "failed to list meta")
}
