package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// LoadedDocument is a document read, extracted, cleaned and chunked.
type LoadedDocument struct {
	Document    domain.Document
	Chunks      []domain.Chunk
	ContentHash string
}

// CatalogEntry returns the catalogue record for the document.
func (d *LoadedDocument) CatalogEntry() domain.CatalogEntry {
	return domain.CatalogEntry{
		Source:      d.Document.Source,
		URI:         d.Document.URI,
		Title:       d.Document.Title,
		ContentHash: d.ContentHash,
		ChunkCount:  len(d.Chunks),
		Pages:       d.Document.Pages,
		IngestedAt:  time.Now(),
	}
}

// DocumentLoader turns document sources into chunks:
// read, hash, normalise, then run the post-processor pipeline.
type DocumentLoader struct {
	reader   driven.DocumentReader
	registry driven.NormaliserRegistry
	pipeline driven.PostProcessorPipeline
}

// NewDocumentLoader creates a loader.
func NewDocumentLoader(
	reader driven.DocumentReader,
	registry driven.NormaliserRegistry,
	pipeline driven.PostProcessorPipeline,
) *DocumentLoader {
	return &DocumentLoader{
		reader:   reader,
		registry: registry,
		pipeline: pipeline,
	}
}

// Read fetches a source and returns its raw bytes and content hash.
func (l *DocumentLoader) Read(ctx context.Context, src domain.DocumentSource) (*domain.RawDocument, string, error) {
	raw, err := l.reader.Read(ctx, src)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", src.Path, err)
	}
	sum := sha256.Sum256(raw.Content)
	return raw, hex.EncodeToString(sum[:]), nil
}

// Process extracts and chunks an already read document.
func (l *DocumentLoader) Process(
	ctx context.Context,
	src domain.DocumentSource,
	raw *domain.RawDocument,
	hash string,
) (*LoadedDocument, error) {
	result, err := l.registry.Normalise(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("normalise %s: %w", src.Path, err)
	}

	doc := result.Document
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	doc.Source = SourceName(src)
	if doc.URI == "" {
		doc.URI = raw.URI
	}
	if doc.Title == "" {
		doc.Title = src.DisplayName()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	chunks, err := l.pipeline.Process(ctx, &doc)
	if err != nil {
		return nil, fmt.Errorf("post-process %s: %w", src.Path, err)
	}
	logger.Debug("Loaded %s: %d bytes, %d chunks", doc.Source, len(raw.Content), len(chunks))

	return &LoadedDocument{
		Document:    doc,
		Chunks:      chunks,
		ContentHash: hash,
	}, nil
}

// Load reads and processes one source.
func (l *DocumentLoader) Load(ctx context.Context, src domain.DocumentSource) (*LoadedDocument, error) {
	raw, hash, err := l.Read(ctx, src)
	if err != nil {
		return nil, err
	}
	return l.Process(ctx, src, raw, hash)
}

// SourceName is the key chunks and the catalogue entry of src carry.
func SourceName(src domain.DocumentSource) string {
	return src.Identifier()
}
