package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// VectorIndexStats summarises the contents of a VectorIndex.
type VectorIndexStats struct {
	// Entries is the number of stored chunk/vector pairs.
	Entries int

	// Dimension is the vector length, zero when empty.
	Dimension int

	// Loaded is true once the embedding service has been attached.
	Loaded bool

	// SnapshotAt is when the last loaded or saved snapshot was created.
	SnapshotAt time.Time
}

// VectorIndex holds index-aligned chunks and embedding vectors and answers
// brute-force nearest-neighbour queries over them.
//
// Writers swap or extend the slices under the write lock and never modify
// an element once stored, so readers may score a copy of the slice headers
// taken under the read lock without holding it.
type VectorIndex struct {
	embedder   driven.EmbeddingService
	store      driven.KVStore
	batchSize  int
	batchDelay time.Duration

	mu         sync.RWMutex
	chunks     []domain.Chunk
	vectors    [][]float32
	loaded     bool
	snapshotAt time.Time
}

// NewVectorIndex creates an empty index.
// The store may be nil, in which case snapshots are unavailable.
func NewVectorIndex(embedder driven.EmbeddingService, store driven.KVStore, cfg domain.RAGConfig) *VectorIndex {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = domain.DefaultEmbedBatchSize
	}
	return &VectorIndex{
		embedder:   embedder,
		store:      store,
		batchSize:  batchSize,
		batchDelay: cfg.BatchDelay,
	}
}

// Initialize attaches the embedding service, checking it is reachable.
// Calling it again once loaded is a no-op.
func (v *VectorIndex) Initialize(ctx context.Context) error {
	v.mu.RLock()
	loaded := v.loaded
	v.mu.RUnlock()
	if loaded {
		return nil
	}

	if v.embedder == nil {
		return domain.ErrEmbeddingUnavailable
	}
	if err := v.embedder.Ping(ctx); err != nil {
		return fmt.Errorf("%w: embedding service %s: %w", domain.ErrExternalService, v.embedder.ModelName(), err)
	}
	logger.Debug("Embedding model ready: %s", v.embedder.ModelName())

	v.mu.Lock()
	v.loaded = true
	v.mu.Unlock()
	return nil
}

// ModelName returns the embedding model name, or "" when none is attached.
func (v *VectorIndex) ModelName() string {
	if v.embedder == nil {
		return ""
	}
	return v.embedder.ModelName()
}

// EmbedBatch embeds texts in fixed-size batches.
// The output is index-aligned with texts. An optional delay separates
// consecutive batches.
func (v *VectorIndex) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if v.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	out := make([][]float32, 0, len(texts))
	total := (len(texts) + v.batchSize - 1) / v.batchSize

	for start, n := 0, 1; start < len(texts); start, n = start+v.batchSize, n+1 {
		if start > 0 && v.batchDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(v.batchDelay):
			}
		}

		end := min(start+v.batchSize, len(texts))
		batch := texts[start:end]

		vectors, err := v.embedder.EmbedBatch(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("%w: embed batch %d/%d: %w", domain.ErrExternalService, n, total, err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("%w: embed batch %d/%d: got %d vectors for %d texts",
				domain.ErrExternalService, n, total, len(vectors), len(batch))
		}
		out = append(out, vectors...)
		logger.Progress("Embedding batches", n, total)
	}

	return out, nil
}

// EmbedQuery embeds a single query text with the ingestion model.
func (v *VectorIndex) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if v.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	vec, err := v.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %w", domain.ErrExternalService, err)
	}
	return vec, nil
}

// view returns the current slice headers.
func (v *VectorIndex) view() ([]domain.Chunk, [][]float32) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.chunks, v.vectors
}

// score computes the similarity of query against every entry.
func (v *VectorIndex) score(query []float32) ([]domain.RetrievalResult, error) {
	chunks, vectors := v.view()
	results := make([]domain.RetrievalResult, len(chunks))
	for i := range chunks {
		sim, err := CosineSimilarity(query, vectors[i])
		if err != nil {
			return nil, err
		}
		results[i] = domain.RetrievalResult{Chunk: chunks[i], Similarity: sim}
	}
	return results, nil
}

// Search returns up to topK entries with similarity >= threshold,
// best first. Equal scores keep insertion order.
func (v *VectorIndex) Search(query []float32, topK int, threshold float64) ([]domain.RetrievalResult, error) {
	scored, err := v.score(query)
	if err != nil {
		return nil, err
	}

	results := scored[:0]
	for _, r := range scored {
		if r.Similarity >= threshold {
			results = append(results, r)
		}
	}
	return rankAndTruncate(results, topK), nil
}

// Rank returns the limit most similar entries regardless of score.
func (v *VectorIndex) Rank(query []float32, limit int) ([]domain.RetrievalResult, error) {
	scored, err := v.score(query)
	if err != nil {
		return nil, err
	}
	return rankAndTruncate(scored, limit), nil
}

func rankAndTruncate(results []domain.RetrievalResult, limit int) []domain.RetrievalResult {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if limit >= 0 && len(results) > limit {
		results = results[:limit]
	}
	if len(results) == 0 {
		return []domain.RetrievalResult{}
	}
	return results
}

// Replace swaps the index contents for chunks and vectors.
func (v *VectorIndex) Replace(chunks []domain.Chunk, vectors [][]float32) error {
	if err := checkAligned(chunks, vectors, 0); err != nil {
		return err
	}

	newChunks := append([]domain.Chunk(nil), chunks...)
	newVectors := append([][]float32(nil), vectors...)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.chunks = newChunks
	v.vectors = newVectors
	return nil
}

// Append adds a whole batch of entries at once. Readers observe either
// none or all of the batch.
func (v *VectorIndex) Append(chunks []domain.Chunk, vectors [][]float32) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	dim := 0
	if len(v.vectors) > 0 {
		dim = len(v.vectors[0])
	}
	if err := checkAligned(chunks, vectors, dim); err != nil {
		return err
	}

	// Fresh backing arrays: readers holding the old headers are unaffected.
	newChunks := make([]domain.Chunk, 0, len(v.chunks)+len(chunks))
	newChunks = append(append(newChunks, v.chunks...), chunks...)
	newVectors := make([][]float32, 0, len(v.vectors)+len(vectors))
	newVectors = append(append(newVectors, v.vectors...), vectors...)

	v.chunks = newChunks
	v.vectors = newVectors
	return nil
}

// RemoveSource drops every entry whose chunk came from source and returns
// how many were removed. Remaining vectors are kept as stored.
func (v *VectorIndex) RemoveSource(source string) int {
	v.mu.Lock()
	defer v.mu.Unlock()

	newChunks := make([]domain.Chunk, 0, len(v.chunks))
	newVectors := make([][]float32, 0, len(v.vectors))
	for i, c := range v.chunks {
		if c.Source == source {
			continue
		}
		newChunks = append(newChunks, c)
		newVectors = append(newVectors, v.vectors[i])
	}

	removed := len(v.chunks) - len(newChunks)
	if removed > 0 {
		v.chunks = newChunks
		v.vectors = newVectors
	}
	return removed
}

// ReplaceSources drops every entry of sources and appends chunks and
// vectors in one step. Readers observe either the old or the new state.
// On error nothing changes.
func (v *VectorIndex) ReplaceSources(sources []string, chunks []domain.Chunk, vectors [][]float32) (int, error) {
	drop := make(map[string]bool, len(sources))
	for _, s := range sources {
		drop[s] = true
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	kept := make([]domain.Chunk, 0, len(v.chunks)+len(chunks))
	keptVectors := make([][]float32, 0, len(v.vectors)+len(vectors))
	for i, c := range v.chunks {
		if drop[c.Source] {
			continue
		}
		kept = append(kept, c)
		keptVectors = append(keptVectors, v.vectors[i])
	}

	dim := 0
	if len(keptVectors) > 0 {
		dim = len(keptVectors[0])
	}
	if err := checkAligned(chunks, vectors, dim); err != nil {
		return 0, err
	}

	removed := len(v.chunks) - len(kept)
	v.chunks = append(kept, chunks...)
	v.vectors = append(keptVectors, vectors...)
	return removed, nil
}

// checkAligned verifies that chunks and vectors pair up and that every vector
// has the same length (dim, when non-zero).
func checkAligned(chunks []domain.Chunk, vectors [][]float32, dim int) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%w: %d chunks for %d vectors", domain.ErrInvalidInput, len(chunks), len(vectors))
	}
	for i, vec := range vectors {
		if dim == 0 {
			dim = len(vec)
		}
		if len(vec) == 0 || len(vec) != dim {
			return fmt.Errorf("%w: vector %d has length %d, expected %d",
				domain.ErrDimensionMismatch, i, len(vec), dim)
		}
	}
	return nil
}

// Clear empties the index. Clearing an empty index is a no-op.
func (v *VectorIndex) Clear() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.chunks = nil
	v.vectors = nil
	v.snapshotAt = time.Time{}
}

// Len returns the number of entries.
func (v *VectorIndex) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.chunks)
}

// Chunks returns a copy of the stored chunks.
func (v *VectorIndex) Chunks() []domain.Chunk {
	chunks, _ := v.view()
	return append([]domain.Chunk(nil), chunks...)
}

// Vectors returns a copy of the stored vectors.
func (v *VectorIndex) Vectors() [][]float32 {
	_, vectors := v.view()
	out := make([][]float32, len(vectors))
	for i, vec := range vectors {
		out[i] = append([]float32(nil), vec...)
	}
	return out
}

// Stats returns the current index statistics.
func (v *VectorIndex) Stats() VectorIndexStats {
	v.mu.RLock()
	defer v.mu.RUnlock()
	stats := VectorIndexStats{
		Entries:    len(v.chunks),
		Loaded:     v.loaded,
		SnapshotAt: v.snapshotAt,
	}
	if len(v.vectors) > 0 {
		stats.Dimension = len(v.vectors[0])
	}
	return stats
}

// SaveSnapshot writes the index contents to the store under key.
func (v *VectorIndex) SaveSnapshot(ctx context.Context, key string) error {
	if v.store == nil {
		return nil
	}

	chunks, vectors := v.view()
	snap := domain.NewSnapshot(chunks, vectors, time.Now())
	if snap.Chunks == nil {
		snap.Chunks = []domain.Chunk{}
		snap.Embeddings = [][]float32{}
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := v.store.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("save snapshot %q: %w", key, err)
	}

	v.mu.Lock()
	v.snapshotAt = snap.CreatedAt()
	v.mu.Unlock()

	logger.Debug("Saved snapshot %q: %d entries, %d bytes", key, len(chunks), len(data))
	return nil
}

// LoadSnapshot replaces the index contents with the snapshot stored under key.
// A missing key reports false. A snapshot that cannot be decoded or fails its
// consistency checks is removed from the store and also reports false.
func (v *VectorIndex) LoadSnapshot(ctx context.Context, key string) (bool, error) {
	if v.store == nil {
		return false, nil
	}

	data, ok, err := v.store.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("load snapshot %q: %w", key, err)
	}
	if !ok {
		logger.Debug("No snapshot under %q", key)
		return false, nil
	}

	snap, err := decodeSnapshot(data)
	if err != nil {
		logger.Warn("Discarding snapshot %q: %v", key, err)
		if rmErr := v.store.Remove(ctx, key); rmErr != nil {
			logger.Warn("Remove corrupt snapshot %q: %v", key, rmErr)
		}
		return false, nil
	}

	v.mu.Lock()
	v.chunks = snap.Chunks
	v.vectors = snap.Embeddings
	v.snapshotAt = snap.CreatedAt()
	v.mu.Unlock()

	logger.Debug("Loaded snapshot %q: %d entries from %s", key, len(snap.Chunks), snap.CreatedAt().Format(time.RFC3339))
	return true, nil
}

// RemoveSnapshot deletes the snapshot stored under key.
func (v *VectorIndex) RemoveSnapshot(ctx context.Context, key string) error {
	if v.store == nil {
		return nil
	}
	if err := v.store.Remove(ctx, key); err != nil {
		return fmt.Errorf("remove snapshot %q: %w", key, err)
	}
	return nil
}

func decodeSnapshot(data string) (*domain.Snapshot, error) {
	var snap domain.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, errors.Join(domain.ErrCacheCorrupt, err)
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return &snap, nil
}
