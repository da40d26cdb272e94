package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// DBFile is the database file name inside the data directory.
const DBFile = "rag.db"

// Store is a SQLite database that backs both the snapshot key-value store
// and the document catalogue through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the database in dataDir and applies pending migrations.
// If dataDir is empty, defaults to ~/.sercha-rag/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".sercha-rag", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DBFile)

	// WAL lets readers proceed while the snapshot is being rewritten.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// KVStore returns a KVStore backed by this database. Closing it is a no-op;
// the database is released by Store.Close.
func (s *Store) KVStore() driven.KVStore {
	return &kvStore{store: s}
}

// DocumentCatalog returns a DocumentCatalog backed by this database.
func (s *Store) DocumentCatalog() driven.DocumentCatalog {
	return &documentCatalog{store: s}
}

// migrate applies every NNN_name.up.sql newer than the recorded schema version.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.apply(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// apply runs one migration and records its version atomically.
func (s *Store) apply(version int, script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(script); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// ==================== KV Store ====================

type kvStore struct {
	store *Store
}

var _ driven.KVStore = (*kvStore)(nil)

// Get returns the value stored under key.
func (k *kvStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := k.store.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("getting %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value.
func (k *kvStore) Set(ctx context.Context, key, value string) error {
	_, err := k.store.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}
	return nil
}

// Remove deletes key.
func (k *kvStore) Remove(ctx context.Context, key string) error {
	if _, err := k.store.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("removing %s: %w", key, err)
	}
	return nil
}

// Close is a no-op; see Store.Close.
func (k *kvStore) Close() error {
	return nil
}

// ==================== Document Catalog ====================

type documentCatalog struct {
	store *Store
}

var _ driven.DocumentCatalog = (*documentCatalog)(nil)

// Save inserts or replaces the entry for entry.Source.
func (c *documentCatalog) Save(ctx context.Context, entry domain.CatalogEntry) error {
	_, err := c.store.db.ExecContext(ctx, `
		INSERT INTO documents (source, uri, title, content_hash, chunk_count, pages, ingested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source) DO UPDATE SET
			uri = excluded.uri,
			title = excluded.title,
			content_hash = excluded.content_hash,
			chunk_count = excluded.chunk_count,
			pages = excluded.pages,
			ingested_at = excluded.ingested_at
	`, entry.Source, entry.URI, entry.Title, entry.ContentHash, entry.ChunkCount, entry.Pages, entry.IngestedAt.UTC())
	if err != nil {
		return fmt.Errorf("saving document %s: %w", entry.Source, err)
	}
	return nil
}

// Get returns the entry for source, or domain.ErrNotFound.
func (c *documentCatalog) Get(ctx context.Context, source string) (*domain.CatalogEntry, error) {
	row := c.store.db.QueryRowContext(ctx, `
		SELECT source, uri, title, content_hash, chunk_count, pages, ingested_at
		FROM documents WHERE source = ?
	`, source)

	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting document %s: %w", source, err)
	}
	return entry, nil
}

// List returns all entries ordered by ingestion time, then source.
func (c *documentCatalog) List(ctx context.Context) ([]domain.CatalogEntry, error) {
	rows, err := c.store.db.QueryContext(ctx, `
		SELECT source, uri, title, content_hash, chunk_count, pages, ingested_at
		FROM documents ORDER BY ingested_at, source
	`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var entries []domain.CatalogEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return entries, nil
}

// Delete removes the entry for source.
func (c *documentCatalog) Delete(ctx context.Context, source string) error {
	if _, err := c.store.db.ExecContext(ctx, "DELETE FROM documents WHERE source = ?", source); err != nil {
		return fmt.Errorf("deleting document %s: %w", source, err)
	}
	return nil
}

// Clear removes every entry.
func (c *documentCatalog) Clear(ctx context.Context) error {
	if _, err := c.store.db.ExecContext(ctx, "DELETE FROM documents"); err != nil {
		return fmt.Errorf("clearing documents: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*domain.CatalogEntry, error) {
	var entry domain.CatalogEntry
	if err := row.Scan(&entry.Source, &entry.URI, &entry.Title, &entry.ContentHash,
		&entry.ChunkCount, &entry.Pages, &entry.IngestedAt); err != nil {
		return nil, err
	}
	return &entry, nil
}
