// Package postgres provides a PostgreSQL-backed implementation of the storage
// ports, for deployments where several processes share one knowledge base.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

const schema = `
CREATE TABLE IF NOT EXISTS rag_kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS rag_documents (
	source       TEXT PRIMARY KEY,
	uri          TEXT NOT NULL DEFAULT '',
	title        TEXT NOT NULL DEFAULT '',
	content_hash TEXT NOT NULL DEFAULT '',
	chunk_count  INTEGER NOT NULL DEFAULT 0,
	pages        INTEGER NOT NULL DEFAULT 0,
	ingested_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rag_documents_ingested_at ON rag_documents (ingested_at);
`

// Store is a connection pool serving KVStore and DocumentCatalog.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to dsn, verifies the connection and creates the tables
// if they do not exist.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: parse postgres config: %v", domain.ErrConfiguration, err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping postgres: %v", domain.ErrExternalService, err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create postgres schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// KVStore returns a KVStore backed by the rag_kv table.
func (s *Store) KVStore() driven.KVStore {
	return &kvStore{pool: s.pool}
}

// DocumentCatalog returns a DocumentCatalog backed by the rag_documents table.
func (s *Store) DocumentCatalog() driven.DocumentCatalog {
	return &documentCatalog{pool: s.pool}
}

type kvStore struct {
	pool *pgxpool.Pool
}

var _ driven.KVStore = (*kvStore)(nil)

func (k *kvStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := k.pool.QueryRow(ctx, `SELECT value FROM rag_kv WHERE key=$1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

func (k *kvStore) Set(ctx context.Context, key, value string) error {
	_, err := k.pool.Exec(ctx, `
INSERT INTO rag_kv (key, value, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (key)
DO UPDATE SET value = EXCLUDED.value, updated_at = now()`, key, value)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (k *kvStore) Remove(ctx context.Context, key string) error {
	if _, err := k.pool.Exec(ctx, `DELETE FROM rag_kv WHERE key=$1`, key); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// Close is a no-op; the pool is released by Store.Close.
func (k *kvStore) Close() error {
	return nil
}

type documentCatalog struct {
	pool *pgxpool.Pool
}

var _ driven.DocumentCatalog = (*documentCatalog)(nil)

func (c *documentCatalog) Save(ctx context.Context, e domain.CatalogEntry) error {
	_, err := c.pool.Exec(ctx, `
INSERT INTO rag_documents (source, uri, title, content_hash, chunk_count, pages, ingested_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (source)
DO UPDATE SET
  uri = EXCLUDED.uri,
  title = EXCLUDED.title,
  content_hash = EXCLUDED.content_hash,
  chunk_count = EXCLUDED.chunk_count,
  pages = EXCLUDED.pages,
  ingested_at = EXCLUDED.ingested_at`,
		e.Source, e.URI, e.Title, e.ContentHash, e.ChunkCount, e.Pages, e.IngestedAt,
	)
	if err != nil {
		return fmt.Errorf("save document %s: %w", e.Source, err)
	}
	return nil
}

func (c *documentCatalog) Get(ctx context.Context, source string) (*domain.CatalogEntry, error) {
	var e domain.CatalogEntry
	err := c.pool.QueryRow(ctx, `
SELECT source, uri, title, content_hash, chunk_count, pages, ingested_at
FROM rag_documents WHERE source=$1`, source).
		Scan(&e.Source, &e.URI, &e.Title, &e.ContentHash, &e.ChunkCount, &e.Pages, &e.IngestedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", source, err)
	}
	return &e, nil
}

func (c *documentCatalog) List(ctx context.Context) ([]domain.CatalogEntry, error) {
	rows, err := c.pool.Query(ctx, `
SELECT source, uri, title, content_hash, chunk_count, pages, ingested_at
FROM rag_documents
ORDER BY ingested_at ASC, source ASC`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	out := make([]domain.CatalogEntry, 0, 16)
	for rows.Next() {
		var e domain.CatalogEntry
		if err := rows.Scan(&e.Source, &e.URI, &e.Title, &e.ContentHash, &e.ChunkCount, &e.Pages, &e.IngestedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

func (c *documentCatalog) Delete(ctx context.Context, source string) error {
	if _, err := c.pool.Exec(ctx, `DELETE FROM rag_documents WHERE source=$1`, source); err != nil {
		return fmt.Errorf("delete document %s: %w", source, err)
	}
	return nil
}

func (c *documentCatalog) Clear(ctx context.Context) error {
	if _, err := c.pool.Exec(ctx, `DELETE FROM rag_documents`); err != nil {
		return fmt.Errorf("clear documents: %w", err)
	}
	return nil
}
