package metadata

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:metadata_tests?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE IF NOT EXISTS metadata (
  key   TEXT PRIMARY KEY,
  value BLOB NOT NULL
);
DELETE FROM metadata;`)
	require.NoError(t, err)
	return db
}

func TestSetGet(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "access_token", []byte("at1")))

	got, err := repo.Get(ctx, "access_token")
	require.NoError(t, err)
	require.Equal(t, []byte("at1"), got)
}

func TestSet_Upserts(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "access_token", []byte("old")))
	require.NoError(t, repo.Set(ctx, "access_token", []byte("new")))

	got, err := repo.Get(ctx, "access_token")
	require.NoError(t, err)
	require.Equal(t, []byte("new"), got)
}

func TestGet_MissingKeyIsNil(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))

	got, err := repo.Get(context.Background(), "nope")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestDeleteAndClear(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "a", []byte("1")))
	require.NoError(t, repo.Set(ctx, "b", []byte("2")))

	require.NoError(t, repo.Delete(ctx, "a"))
	got, err := repo.Get(ctx, "a")
	require.NoError(t, err)
	require.Nil(t, got)

	require.NoError(t, repo.Clear(ctx))
	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestList(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "a", []byte("1")))
	require.NoError(t, repo.Set(ctx, "b", []byte("2")))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string][]byte{"a": []byte("1"), "b": []byte("2")}, all)
}
