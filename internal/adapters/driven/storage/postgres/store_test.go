package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// testStore connects to SERCHA_RAG_TEST_POSTGRES_DSN, skipping when unset.
func testStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("SERCHA_RAG_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("SERCHA_RAG_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	store, err := NewStore(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.DocumentCatalog().Clear(ctx)
		_, _ = store.pool.Exec(ctx, `DELETE FROM rag_kv WHERE key LIKE 'test:%'`)
		store.Close()
	})
	return store
}

func TestNewStore_InvalidDSN(t *testing.T) {
	_, err := NewStore(context.Background(), "postgres://%zz")
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestKVStore(t *testing.T) {
	kv := testStore(t).KVStore()
	ctx := context.Background()

	_, ok, err := kv.Get(ctx, "test:missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set(ctx, "test:snapshot", "one"))
	require.NoError(t, kv.Set(ctx, "test:snapshot", "two"))
	value, ok, err := kv.Get(ctx, "test:snapshot")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "two", value)

	require.NoError(t, kv.Remove(ctx, "test:snapshot"))
	_, ok, err = kv.Get(ctx, "test:snapshot")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDocumentCatalog(t *testing.T) {
	catalog := testStore(t).DocumentCatalog()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	require.NoError(t, catalog.Save(ctx, domain.CatalogEntry{Source: "b.md", ContentHash: "h1", ChunkCount: 2, IngestedAt: now}))
	require.NoError(t, catalog.Save(ctx, domain.CatalogEntry{Source: "a.md", ContentHash: "h2", ChunkCount: 1, IngestedAt: now}))

	got, err := catalog.Get(ctx, "b.md")
	require.NoError(t, err)
	assert.Equal(t, "h1", got.ContentHash)
	assert.True(t, now.Equal(got.IngestedAt))

	entries, err := catalog.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a.md", entries[0].Source)

	require.NoError(t, catalog.Delete(ctx, "a.md"))
	_, err = catalog.Get(ctx, "a.md")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
