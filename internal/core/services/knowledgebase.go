package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// KnowledgeBase wraps a VectorIndex with ingestion and persistence.
// It is ready once a full ingest or a snapshot load has succeeded, and
// every snapshot read or write goes through it.
type KnowledgeBase struct {
	index      *VectorIndex
	storageKey string

	// writeMu serialises ingestion so concurrent adds cannot interleave.
	writeMu sync.Mutex

	mu    sync.RWMutex
	ready bool
}

// NewKnowledgeBase creates a knowledge base over index.
func NewKnowledgeBase(index *VectorIndex, cfg domain.RAGConfig) *KnowledgeBase {
	key := cfg.StorageKey
	if key == "" {
		key = domain.DefaultStorageKey
	}
	return &KnowledgeBase{
		index:      index,
		storageKey: key,
	}
}

// Index returns the underlying vector index.
func (kb *KnowledgeBase) Index() *VectorIndex {
	return kb.index
}

// Ready reports whether queries can be served.
func (kb *KnowledgeBase) Ready() bool {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.ready
}

func (kb *KnowledgeBase) setReady(ready bool) {
	kb.mu.Lock()
	kb.ready = ready
	kb.mu.Unlock()
}

// Size returns the number of stored chunks.
func (kb *KnowledgeBase) Size() int {
	return kb.index.Len()
}

// Ingest embeds every chunk and replaces the knowledge base contents.
// An empty chunk list is rejected with domain.ErrEmptyInput. On failure
// the previous contents are kept.
func (kb *KnowledgeBase) Ingest(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return fmt.Errorf("%w: no chunks to ingest", domain.ErrEmptyInput)
	}

	kb.writeMu.Lock()
	defer kb.writeMu.Unlock()

	done := logger.Stage("Knowledge Base Ingest")
	defer done()
	logger.Debug("Embedding %d chunks", len(chunks))

	vectors, err := kb.index.EmbedBatch(ctx, chunkTexts(chunks))
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	if err := kb.index.Replace(chunks, vectors); err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	kb.setReady(true)
	logger.Info("Knowledge base holds %d chunks", len(chunks))
	return nil
}

// AddIncremental embeds only newChunks and appends them.
// Vectors already stored are never recomputed. Adding nothing is a no-op.
func (kb *KnowledgeBase) AddIncremental(ctx context.Context, newChunks []domain.Chunk) error {
	return kb.ReplaceSources(ctx, nil, newChunks)
}

// ReplaceSources embeds newChunks, then swaps out every stored chunk of
// sources for them in a single index update. When embedding fails the
// stored chunks of sources are left in place.
func (kb *KnowledgeBase) ReplaceSources(ctx context.Context, sources []string, newChunks []domain.Chunk) error {
	if len(newChunks) == 0 {
		return nil
	}

	kb.writeMu.Lock()
	defer kb.writeMu.Unlock()

	done := logger.Stage("Knowledge Base Add")
	defer done()
	logger.Debug("Embedding %d new chunks (existing: %d)", len(newChunks), kb.index.Len())

	vectors, err := kb.index.EmbedBatch(ctx, chunkTexts(newChunks))
	if err != nil {
		return fmt.Errorf("add chunks: %w", err)
	}
	removed, err := kb.index.ReplaceSources(sources, newChunks, vectors)
	if err != nil {
		return fmt.Errorf("add chunks: %w", err)
	}
	if removed > 0 {
		logger.Debug("Replaced %d stale chunks of %d sources", removed, len(sources))
	}

	kb.setReady(true)
	return nil
}

// RemoveSource drops the chunks of one source. The knowledge base stays
// ready even when it becomes empty.
func (kb *KnowledgeBase) RemoveSource(source string) int {
	kb.writeMu.Lock()
	defer kb.writeMu.Unlock()

	removed := kb.index.RemoveSource(source)
	if removed > 0 {
		logger.Debug("Removed %d chunks of %s", removed, source)
	}
	return removed
}

// EmbedQuery embeds a query with the ingestion model.
func (kb *KnowledgeBase) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	if !kb.Ready() {
		return nil, domain.ErrNotInitialized
	}
	return kb.index.EmbedQuery(ctx, query)
}

// Search returns the thresholded nearest neighbours of query.
func (kb *KnowledgeBase) Search(ctx context.Context, query []float32, topK int, threshold float64) ([]domain.RetrievalResult, error) {
	if !kb.Ready() {
		return nil, domain.ErrNotInitialized
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return kb.index.Search(query, topK, threshold)
}

// Rank returns the limit nearest neighbours of query without a threshold.
func (kb *KnowledgeBase) Rank(ctx context.Context, query []float32, limit int) ([]domain.RetrievalResult, error) {
	if !kb.Ready() {
		return nil, domain.ErrNotInitialized
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return kb.index.Rank(query, limit)
}

// Persist writes the current contents under the storage key.
func (kb *KnowledgeBase) Persist(ctx context.Context) error {
	kb.writeMu.Lock()
	defer kb.writeMu.Unlock()
	return kb.index.SaveSnapshot(ctx, kb.storageKey)
}

// Restore loads the persisted snapshot. It reports false when there is
// no usable snapshot; an empty snapshot does not make the base ready.
func (kb *KnowledgeBase) Restore(ctx context.Context) (bool, error) {
	kb.writeMu.Lock()
	defer kb.writeMu.Unlock()

	found, err := kb.index.LoadSnapshot(ctx, kb.storageKey)
	if err != nil || !found {
		return false, err
	}
	if kb.index.Len() == 0 {
		logger.Debug("Snapshot %q is empty", kb.storageKey)
		return false, nil
	}

	kb.setReady(true)
	return true, nil
}

// Clear empties memory and removes the persisted snapshot.
func (kb *KnowledgeBase) Clear(ctx context.Context) error {
	kb.writeMu.Lock()
	defer kb.writeMu.Unlock()

	kb.index.Clear()
	kb.setReady(false)
	return kb.index.RemoveSnapshot(ctx, kb.storageKey)
}

// Stats summarises the knowledge base.
func (kb *KnowledgeBase) Stats() domain.KnowledgeBaseStats {
	idx := kb.index.Stats()
	return domain.KnowledgeBaseStats{
		Ready:           kb.Ready(),
		EmbeddingModel:  kb.index.ModelName(),
		TotalChunks:     idx.Entries,
		TotalEmbeddings: idx.Entries,
		Dimension:       idx.Dimension,
		Sources:         distinctSources(kb.index.Chunks()),
		SnapshotAt:      idx.SnapshotAt,
	}
}

func chunkTexts(chunks []domain.Chunk) []string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return texts
}

// distinctSources returns chunk sources in first-seen order.
func distinctSources(chunks []domain.Chunk) []string {
	seen := make(map[string]bool)
	sources := []string{}
	for _, c := range chunks {
		if !seen[c.Source] {
			seen[c.Source] = true
			sources = append(sources, c.Source)
		}
	}
	return sources
}
