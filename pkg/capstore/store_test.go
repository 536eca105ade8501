package capstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "cache", "caps.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func TestStore_Migrate(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	version, err := store.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	require.NoError(t, store.Migrate(ctx), "migrating twice is a no-op")
}

func TestStore_GetPut(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	_, ok, err := store.Get(ctx, "test:///default", KindCapabilities, "")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Put(ctx, "test:///default", KindCapabilities, "", "<capabilities/>"))
	require.NoError(t, store.Put(ctx, "test:///default", KindDomainCapabilities, "a/b", "<domainCapabilities/>"))

	xml, ok, err := store.Get(ctx, "test:///default", KindCapabilities, "")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "<capabilities/>", xml)

	_, ok, err = store.Get(ctx, "test:///other", KindCapabilities, "")
	require.NoError(t, err)
	assert.False(t, ok, "entries are per URI")

	_, ok, err = store.Get(ctx, "test:///default", KindDomainCapabilities, "a/c")
	require.NoError(t, err)
	assert.False(t, ok, "entries are per query")
}

func TestStore_PutReplaces(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	require.NoError(t, store.Put(ctx, "test:///default", KindCapabilities, "", "<old/>"))
	require.NoError(t, store.Put(ctx, "test:///default", KindCapabilities, "", "<new/>"))

	entries, err := store.Entries(ctx, "test:///default")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "<new/>", entries[0].XML)
	assert.NotEmpty(t, entries[0].ID)
	assert.False(t, entries[0].FetchedAt.IsZero())
}

func TestStore_Purge(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	require.NoError(t, store.Put(ctx, "test:///default", KindCapabilities, "", "<a/>"))
	require.NoError(t, store.Put(ctx, "test:///default", KindDomainCapabilities, "q", "<b/>"))
	require.NoError(t, store.Put(ctx, "file:///host", KindCapabilities, "", "<c/>"))

	n, err := store.Purge(ctx, "test:///default")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	entries, err := store.Entries(ctx, "file:///host")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStore_Persists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "caps.db")

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Put(ctx, "test:///default", KindCapabilities, "", "<capabilities/>"))
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Migrate(ctx))

	xml, ok, err := store.Get(ctx, "test:///default", KindCapabilities, "")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "<capabilities/>", xml)
}

func TestStore_Closed(t *testing.T) {
	store := setupTestStore(t)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	_, _, err := store.Get(context.Background(), "u", KindCapabilities, "")
	assert.ErrorIs(t, err, errNotOpen)
	assert.ErrorIs(t, store.Put(context.Background(), "u", KindCapabilities, "", "x"), errNotOpen)
}
