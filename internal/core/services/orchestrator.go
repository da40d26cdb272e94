package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure RAGOrchestrator implements the interface.
var _ driving.RAGService = (*RAGOrchestrator)(nil)

// RAGOrchestrator wires document loading, the knowledge base and the
// retrieval pipeline behind driving.RAGService.
type RAGOrchestrator struct {
	kb        *KnowledgeBase
	loader    *DocumentLoader
	catalog   driven.DocumentCatalog
	retrieval *RetrievalPipeline
	embedder  driven.EmbeddingService
	llm       driven.LLMService
	cfg       domain.RAGConfig

	// mu serialises lifecycle operations (Initialize, Add, Remove, Reset).
	mu          sync.Mutex
	initialized bool
}

// NewRAGOrchestrator creates an orchestrator.
// The catalogue and store may be nil; without a catalogue every document is
// re-ingested and without a store nothing is persisted. The llm may be nil,
// in which case Ask fails with domain.ErrLLMUnavailable but Search works.
func NewRAGOrchestrator(
	embedder driven.EmbeddingService,
	llm driven.LLMService,
	store driven.KVStore,
	catalog driven.DocumentCatalog,
	loader *DocumentLoader,
	prompts *PromptBuilder,
	cfg domain.RAGConfig,
) *RAGOrchestrator {
	index := NewVectorIndex(embedder, store, cfg)
	kb := NewKnowledgeBase(index, cfg)
	return &RAGOrchestrator{
		kb:        kb,
		loader:    loader,
		catalog:   catalog,
		retrieval: NewRetrievalPipeline(kb, llm, prompts, cfg),
		embedder:  embedder,
		llm:       llm,
		cfg:       cfg,
	}
}

// KnowledgeBase returns the underlying knowledge base.
func (o *RAGOrchestrator) KnowledgeBase() *KnowledgeBase {
	return o.kb
}

// Initialize restores the snapshot or ingests sources.
func (o *RAGOrchestrator) Initialize(ctx context.Context, sources []domain.DocumentSource) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.initialized {
		logger.Debug("Already initialized, skipping")
		return nil
	}

	logger.Section("Initialize")
	if err := o.kb.Index().Initialize(ctx); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	if o.cfg.EnableCache {
		found, err := o.kb.Restore(ctx)
		if err != nil {
			return fmt.Errorf("initialize: restore: %w", err)
		}
		if found {
			logger.Info("Restored %d chunks from snapshot", o.kb.Size())
			o.initialized = true
			return nil
		}
		logger.Info("No usable snapshot, ingesting %d sources", len(sources))
	}

	sorted := append([]domain.DocumentSource(nil), sources...)
	domain.SortSources(sorted)

	docs, errs := o.loadAll(ctx, sorted)
	var chunks []domain.Chunk
	for _, d := range docs {
		chunks = append(chunks, d.Chunks...)
	}
	if len(chunks) == 0 {
		err := fmt.Errorf("%w: no chunks produced from %d sources", domain.ErrEmptyInput, len(sources))
		return fmt.Errorf("initialize: %w", errors.Join(append([]error{err}, errs...)...))
	}

	if err := o.kb.Ingest(ctx, chunks); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	o.persist(ctx)
	if o.catalog != nil {
		if err := o.catalog.Clear(ctx); err != nil {
			logger.Warn("Failed to clear catalogue: %v", err)
		}
	}
	o.record(ctx, docs)

	o.initialized = true
	logger.Info("Initialized with %d chunks from %d documents", len(chunks), len(docs))
	return nil
}

// AddDocuments ingests sources incrementally. Sources whose content hash
// matches the catalogue are skipped; changed sources replace their old chunks.
func (o *RAGOrchestrator) AddDocuments(ctx context.Context, sources []domain.DocumentSource) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.kb.Index().Initialize(ctx); err != nil {
		return 0, fmt.Errorf("add documents: %w", err)
	}
	o.restoreIdle(ctx)

	sorted := append([]domain.DocumentSource(nil), sources...)
	domain.SortSources(sorted)

	var (
		docs     []*LoadedDocument
		errs     []error
		replaced []string
	)
	for _, src := range sorted {
		raw, hash, err := o.loader.Read(ctx, src)
		if err != nil {
			logger.Warn("Skipping %s: %v", src.Path, err)
			errs = append(errs, err)
			continue
		}

		name := SourceName(src)
		prev := o.lookup(ctx, name)
		if prev != nil && prev.ContentHash == hash {
			logger.Info("Unchanged, skipping: %s", name)
			continue
		}

		doc, err := o.loader.Process(ctx, src, raw, hash)
		if err != nil {
			logger.Warn("Skipping %s: %v", src.Path, err)
			errs = append(errs, err)
			continue
		}
		if prev != nil {
			replaced = append(replaced, name)
		}
		docs = append(docs, doc)
	}

	var chunks []domain.Chunk
	for _, d := range docs {
		chunks = append(chunks, d.Chunks...)
	}
	if len(chunks) == 0 {
		if len(errs) > 0 {
			return 0, fmt.Errorf("add documents: %w", errors.Join(errs...))
		}
		return 0, nil
	}

	if err := o.kb.ReplaceSources(ctx, replaced, chunks); err != nil {
		return 0, fmt.Errorf("add documents: %w", err)
	}
	o.persist(ctx)
	o.record(ctx, docs)
	o.initialized = true

	logger.Info("Added %d chunks from %d documents", len(chunks), len(docs))
	return len(chunks), nil
}

// RemoveDocument drops one source from the knowledge base and catalogue.
func (o *RAGOrchestrator) RemoveDocument(ctx context.Context, source string) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.restoreIdle(ctx)
	removed := o.kb.RemoveSource(source)
	if o.catalog != nil {
		if err := o.catalog.Delete(ctx, source); err != nil {
			return removed, fmt.Errorf("remove document: %w", err)
		}
	}
	if removed > 0 {
		o.persist(ctx)
	}
	return removed, nil
}

// Ask validates the query and answers it.
func (o *RAGOrchestrator) Ask(ctx context.Context, query string) (*domain.Answer, error) {
	q, err := domain.ValidateQuery(query)
	if err != nil {
		return nil, err
	}
	if o.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}
	if !o.kb.Ready() {
		return nil, domain.ErrNotInitialized
	}
	return o.retrieval.Answer(ctx, q)
}

// Search returns ranked chunks without generating an answer.
func (o *RAGOrchestrator) Search(ctx context.Context, query string, topK int) ([]domain.RetrievalResult, error) {
	q, err := domain.ValidateQuery(query)
	if err != nil {
		return nil, err
	}
	r, err := o.retrieval.Retrieve(ctx, q, topK)
	if err != nil {
		return nil, err
	}
	return r.Results, nil
}

// Reset clears the knowledge base, the catalogue and the snapshot.
func (o *RAGOrchestrator) Reset(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	var errs []error
	if err := o.kb.Clear(ctx); err != nil {
		errs = append(errs, err)
	}
	if o.catalog != nil {
		if err := o.catalog.Clear(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	o.initialized = false

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	logger.Info("Knowledge base reset")
	return nil
}

// Info reports knowledge base statistics and catalogued documents.
func (o *RAGOrchestrator) Info(ctx context.Context) (*domain.SystemInfo, error) {
	o.mu.Lock()
	initialized := o.initialized
	o.mu.Unlock()

	info := &domain.SystemInfo{
		Initialized:   initialized,
		KnowledgeBase: o.kb.Stats(),
		Documents:     []domain.CatalogEntry{},
		Config:        o.cfg,
	}
	if o.catalog != nil {
		docs, err := o.catalog.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("info: %w", err)
		}
		info.Documents = docs
	}
	return info, nil
}

// Close releases the embedding and generation clients.
func (o *RAGOrchestrator) Close() error {
	var errs []error
	if o.embedder != nil {
		errs = append(errs, o.embedder.Close())
	}
	if o.llm != nil {
		errs = append(errs, o.llm.Close())
	}
	return errors.Join(errs...)
}

// restoreIdle loads the persisted snapshot into an empty, uninitialised
// knowledge base so incremental changes extend it rather than replace it.
// Callers hold o.mu.
func (o *RAGOrchestrator) restoreIdle(ctx context.Context) {
	if o.initialized || !o.cfg.EnableCache || o.kb.Size() > 0 {
		return
	}
	found, err := o.kb.Restore(ctx)
	if err != nil {
		logger.Warn("Ignoring unreadable snapshot: %v", err)
		return
	}
	if found {
		logger.Debug("Restored %d chunks before incremental change", o.kb.Size())
		o.initialized = true
	}
}

// loadAll loads every source, skipping the ones that fail.
func (o *RAGOrchestrator) loadAll(ctx context.Context, sources []domain.DocumentSource) ([]*LoadedDocument, []error) {
	var (
		docs []*LoadedDocument
		errs []error
	)
	for i, src := range sources {
		if err := ctx.Err(); err != nil {
			return docs, append(errs, err)
		}
		doc, err := o.loader.Load(ctx, src)
		if err != nil {
			logger.Warn("Skipping %s: %v", src.Path, err)
			errs = append(errs, err)
			continue
		}
		docs = append(docs, doc)
		logger.Progress("Documents", i+1, len(sources))
	}
	return docs, errs
}

func (o *RAGOrchestrator) lookup(ctx context.Context, source string) *domain.CatalogEntry {
	if o.catalog == nil {
		return nil
	}
	entry, err := o.catalog.Get(ctx, source)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("Catalogue lookup for %s failed: %v", source, err)
		}
		return nil
	}
	return entry
}

// persist saves the snapshot when caching is enabled. Failures are logged:
// the in-memory knowledge base stays usable.
func (o *RAGOrchestrator) persist(ctx context.Context) {
	if !o.cfg.EnableCache {
		return
	}
	if err := o.kb.Persist(ctx); err != nil {
		logger.Warn("Failed to persist snapshot: %v", err)
	}
}

func (o *RAGOrchestrator) record(ctx context.Context, docs []*LoadedDocument) {
	if o.catalog == nil {
		return
	}
	for _, d := range docs {
		if err := o.catalog.Save(ctx, d.CatalogEntry()); err != nil {
			logger.Warn("Failed to catalogue %s: %v", d.Document.Source, err)
		}
	}
}
