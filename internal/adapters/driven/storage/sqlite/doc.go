// Package sqlite provides a SQLite-backed implementation of the storage ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO. One database connection serves two interfaces:
//
//   - KVStore: the knowledge-base snapshot, stored as a single JSON value
//   - DocumentCatalog: one row per ingested document
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.sercha-rag/data/rag.db
package sqlite
