package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tally-dev/tally/internal/config"
)

func TestSQLiteStore_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tally.db")
	s, err := OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	empty, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, s.Save(ctx, sample()))
	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a1", got[0].ID, "order preserved")
	assert.Equal(t, "b2", got[1].ID)
	assert.Equal(t, "12.50", got[0].Amount.StringFixed(2))

	// Full replacement: reversed order, one record dropped.
	list := sample()
	require.NoError(t, s.Save(ctx, list[1:]))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b2", got[0].ID)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tally.db")
	ctx := context.Background()

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, sample()))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err, "migrations are idempotent")
	t.Cleanup(func() { s.Close() })

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestOpen_SelectsBackend(t *testing.T) {
	root := t.TempDir()

	cfg := config.Default()
	b, err := Open(cfg, root)
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, b)
	assert.Equal(t, filepath.Join(root, "expenses.json"), b.Path())

	cfg.Storage.Backend = config.BackendSQLite
	b, err = Open(cfg, root)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	assert.IsType(t, &SQLiteStore{}, b)
	assert.Equal(t, filepath.Join(root, "tally.db"), b.Path())

	cfg.Storage.Backend = "postgres"
	_, err = Open(cfg, root)
	assert.Error(t, err)
}
