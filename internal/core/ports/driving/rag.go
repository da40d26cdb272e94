package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// RAGService answers questions grounded in a document corpus.
type RAGService interface {
	// Initialize prepares the knowledge base. It restores the persisted
	// snapshot when caching is enabled and otherwise ingests sources.
	// Calling it again before Reset is a no-op.
	Initialize(ctx context.Context, sources []domain.DocumentSource) error

	// AddDocuments ingests additional sources without re-embedding
	// existing chunks. Returns the number of chunks added.
	AddDocuments(ctx context.Context, sources []domain.DocumentSource) (int, error)

	// RemoveDocument drops the chunks and catalogue entry of one source
	// and returns the number of chunks removed.
	RemoveDocument(ctx context.Context, source string) (int, error)

	// Ask answers a query using retrieved context.
	// Generation failures never surface as errors; they are reported
	// through the answer's Mode and Error fields.
	Ask(ctx context.Context, query string) (*domain.Answer, error)

	// Search returns the ranked chunks for a query without generating an answer.
	Search(ctx context.Context, query string, topK int) ([]domain.RetrievalResult, error)

	// Reset clears the in-memory index, the document catalogue and the
	// persisted snapshot.
	Reset(ctx context.Context) error

	// Info returns the current system status.
	Info(ctx context.Context) (*domain.SystemInfo, error)

	// Close releases resources.
	Close() error
}
