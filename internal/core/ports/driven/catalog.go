package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// DocumentCatalog records which documents have been ingested.
// Entries are keyed by source.
type DocumentCatalog interface {
	// Save inserts or replaces the entry for entry.Source.
	Save(ctx context.Context, entry domain.CatalogEntry) error

	// Get returns the entry for source, or domain.ErrNotFound.
	Get(ctx context.Context, source string) (*domain.CatalogEntry, error)

	// List returns all entries ordered by ingestion time.
	List(ctx context.Context) ([]domain.CatalogEntry, error)

	// Delete removes the entry for source. Deleting a missing entry is not an error.
	Delete(ctx context.Context, source string) error

	// Clear removes every entry.
	Clear(ctx context.Context) error
}
