package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func newTestKnowledgeBase(embedder *bagEmbedder, store *memory.KVStore) *KnowledgeBase {
	cfg := testConfig()
	return NewKnowledgeBase(NewVectorIndex(embedder, store, cfg), cfg)
}

func TestKnowledgeBase_NotReady(t *testing.T) {
	ctx := context.Background()
	kb := newTestKnowledgeBase(&bagEmbedder{}, nil)

	assert.False(t, kb.Ready())
	_, err := kb.EmbedQuery(ctx, "anything")
	assert.ErrorIs(t, err, domain.ErrNotInitialized)
	_, err = kb.Search(ctx, []float32{1}, 5, 0)
	assert.ErrorIs(t, err, domain.ErrNotInitialized)
	_, err = kb.Rank(ctx, []float32{1}, 5)
	assert.ErrorIs(t, err, domain.ErrNotInitialized)
}

func TestKnowledgeBase_Ingest(t *testing.T) {
	ctx := context.Background()
	kb := newTestKnowledgeBase(&bagEmbedder{}, nil)

	err := kb.Ingest(ctx, nil)
	assert.ErrorIs(t, err, domain.ErrEmptyInput)
	assert.False(t, kb.Ready())

	require.NoError(t, kb.Ingest(ctx, testChunks("red apples", "green pears")))
	assert.True(t, kb.Ready())
	assert.Equal(t, 2, kb.Size())

	q, err := kb.EmbedQuery(ctx, "apples")
	require.NoError(t, err)
	results, err := kb.Search(ctx, q, 1, 0.1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "red apples", results[0].Chunk.Text)
}

func TestKnowledgeBase_Ingest_FailureKeepsState(t *testing.T) {
	ctx := context.Background()
	embedder := &bagEmbedder{}
	kb := newTestKnowledgeBase(embedder, nil)
	require.NoError(t, kb.Ingest(ctx, testChunks("kept")))

	embedder.embedErr = assert.AnError
	err := kb.Ingest(ctx, testChunks("replacement"))
	assert.ErrorIs(t, err, domain.ErrExternalService)
	assert.Equal(t, "kept", kb.Index().Chunks()[0].Text)
	assert.True(t, kb.Ready())
}

func TestKnowledgeBase_AddIncremental_KeepsVectors(t *testing.T) {
	ctx := context.Background()
	embedder := &bagEmbedder{}
	kb := newTestKnowledgeBase(embedder, nil)
	require.NoError(t, kb.Ingest(ctx, testChunks("one", "two")))
	before := kb.Index().Vectors()

	require.NoError(t, kb.AddIncremental(ctx, nil))
	require.NoError(t, kb.AddIncremental(ctx, testChunks("three")))

	after := kb.Index().Vectors()
	require.Len(t, after, 3)
	assert.Equal(t, before, after[:2])
	assert.Equal(t, []string{"one", "two", "three"}, embedder.embeddedTexts())
}

func TestKnowledgeBase_PersistRestore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKVStore()

	kb := newTestKnowledgeBase(&bagEmbedder{}, store)
	require.NoError(t, kb.Ingest(ctx, testChunks("alpha", "beta")))
	require.NoError(t, kb.Persist(ctx))

	restoredEmbedder := &bagEmbedder{}
	restored := newTestKnowledgeBase(restoredEmbedder, store)
	found, err := restored.Restore(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, restored.Ready())
	assert.Equal(t, kb.Index().Vectors(), restored.Index().Vectors())
	assert.Empty(t, restoredEmbedder.batches, "restore must not re-embed")

	stats := restored.Stats()
	assert.Equal(t, 2, stats.TotalChunks)
	assert.Equal(t, 2, stats.TotalEmbeddings)
	assert.Equal(t, bagDims, stats.Dimension)
	assert.Equal(t, []string{"test.txt"}, stats.Sources)
	assert.Equal(t, "bag-of-words", stats.EmbeddingModel)
}

func TestKnowledgeBase_Restore_EmptySnapshot(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKVStore()

	kb := newTestKnowledgeBase(&bagEmbedder{}, store)
	require.NoError(t, kb.Persist(ctx))

	found, err := newTestKnowledgeBase(&bagEmbedder{}, store).Restore(ctx)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestKnowledgeBase_Clear(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKVStore()
	kb := newTestKnowledgeBase(&bagEmbedder{}, store)
	require.NoError(t, kb.Ingest(ctx, testChunks("alpha")))
	require.NoError(t, kb.Persist(ctx))

	require.NoError(t, kb.Clear(ctx))
	assert.False(t, kb.Ready())
	assert.Equal(t, 0, kb.Size())

	_, ok, err := store.Get(ctx, domain.DefaultStorageKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKnowledgeBase_ReplaceSources_FailureKeepsChunks(t *testing.T) {
	ctx := context.Background()
	embedder := &bagEmbedder{}
	kb := newTestKnowledgeBase(embedder, nil)
	require.NoError(t, kb.Ingest(ctx, testChunks("old text")))

	embedder.embedErr = assert.AnError
	err := kb.ReplaceSources(ctx, []string{"test.txt"}, testChunks("new text"))
	assert.ErrorIs(t, err, domain.ErrExternalService)
	require.Equal(t, 1, kb.Size())
	assert.Equal(t, "old text", kb.Index().Chunks()[0].Text)

	embedder.embedErr = nil
	require.NoError(t, kb.ReplaceSources(ctx, []string{"test.txt"}, testChunks("new text")))
	require.Equal(t, 1, kb.Size())
	assert.Equal(t, "new text", kb.Index().Chunks()[0].Text)
}
