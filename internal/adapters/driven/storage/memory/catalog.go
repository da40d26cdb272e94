package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure DocumentCatalog implements the interface.
var _ driven.DocumentCatalog = (*DocumentCatalog)(nil)

// DocumentCatalog is an in-memory implementation of driven.DocumentCatalog.
type DocumentCatalog struct {
	mu      sync.RWMutex
	entries map[string]domain.CatalogEntry
}

// NewDocumentCatalog creates a new in-memory document catalogue.
func NewDocumentCatalog() *DocumentCatalog {
	return &DocumentCatalog{
		entries: make(map[string]domain.CatalogEntry),
	}
}

// Save inserts or replaces the entry for entry.Source.
func (c *DocumentCatalog) Save(_ context.Context, entry domain.CatalogEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[entry.Source] = entry
	return nil
}

// Get retrieves the entry for source.
func (c *DocumentCatalog) Get(_ context.Context, source string) (*domain.CatalogEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[source]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &entry, nil
}

// List returns all entries ordered by ingestion time, then source.
func (c *DocumentCatalog) List(_ context.Context) ([]domain.CatalogEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]domain.CatalogEntry, 0, len(c.entries))
	for _, e := range c.entries {
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].IngestedAt.Equal(result[j].IngestedAt) {
			return result[i].IngestedAt.Before(result[j].IngestedAt)
		}
		return result[i].Source < result[j].Source
	})
	return result, nil
}

// Delete removes the entry for source.
func (c *DocumentCatalog) Delete(_ context.Context, source string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, source)
	return nil
}

// Clear removes every entry.
func (c *DocumentCatalog) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]domain.CatalogEntry)
	return nil
}
