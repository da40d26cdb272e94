package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// DocumentReader fetches the raw bytes of a document source.
type DocumentReader interface {
	// Read returns the raw document for source.
	// Returns domain.ErrUnsupportedType for unknown formats and
	// domain.ErrInvalidInput for documents over domain.MaxDocumentSize.
	Read(ctx context.Context, source domain.DocumentSource) (*domain.RawDocument, error)
}

// ManifestLoader reads the list of corpus documents.
type ManifestLoader interface {
	// Load returns the sources described at path, ordered by priority.
	Load(path string) ([]domain.DocumentSource, error)
}

// DocumentWatcher reports changes to documents under a directory.
type DocumentWatcher interface {
	// Watch starts watching root recursively. The channel is closed when
	// ctx is cancelled or Close is called.
	Watch(ctx context.Context, root string) (<-chan domain.DocumentChange, error)

	// Close stops watching and releases resources.
	Close() error
}
