package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "ganhos.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestKVRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, ok, err := repo.Get(ctx, "monthStartDay")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Set(ctx, "monthStartDay", "10"))
	v, ok, err := repo.Get(ctx, "monthStartDay")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "10", v)

	require.NoError(t, repo.Set(ctx, "monthStartDay", "15"))
	v, _, err = repo.Get(ctx, "monthStartDay")
	require.NoError(t, err)
	assert.Equal(t, "15", v)

	require.NoError(t, repo.Delete(ctx, "monthStartDay"))
	_, ok, err = repo.Get(ctx, "monthStartDay")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReopenKeepsValues(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ganhos.db")

	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.Set(ctx, "discountPercentage", "0.2"))
	require.NoError(t, repo.Close())

	repo, err = NewSQLiteRepository(path)
	require.NoError(t, err)
	defer repo.Close()
	v, ok, err := repo.Get(ctx, "discountPercentage")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "0.2", v)
}

func TestOutbox(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	id1, err := repo.EnqueueEvent(ctx, []byte(`{"id":"1"}`))
	require.NoError(t, err)
	_, err = repo.EnqueueEvent(ctx, []byte(`{"id":"2"}`))
	require.NoError(t, err)

	pending, err := repo.PendingEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, id1, pending[0].ID)

	require.NoError(t, repo.MarkFailed(ctx, id1))
	require.NoError(t, repo.MarkDelivered(ctx, pending[1].ID))

	pending, err = repo.PendingEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, int64(1), pending[0].Attempts)
}

func TestMigrateLocalStateIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ganhos.db")

	v, err := migrateLocalState(path)
	require.NoError(t, err)
	assert.Equal(t, uint(2), v)

	v, err = migrateLocalState(path)
	require.NoError(t, err)
	assert.Equal(t, uint(2), v)
}
