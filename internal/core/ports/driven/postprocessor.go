package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// PostProcessor processes document content to produce chunks.
// PostProcessors are chained in a pipeline (cleaning, then chunking).
type PostProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process takes a document and returns chunks.
	// Processors that rewrite content (e.g., cleaner) may modify doc.Content
	// and pass chunks through unchanged.
	// Processors that create chunks (e.g., chunker) ignore the incoming chunks.
	Process(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline chains multiple PostProcessors.
type PostProcessorPipeline interface {
	// Process runs the document through all processors in order.
	// The caller's document is not modified.
	Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error)
}
