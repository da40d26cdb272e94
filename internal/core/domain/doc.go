// Package domain defines the core business entities for sercha-rag.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An extracted source document with metadata
//   - Chunk: A bounded span of document text, the unit of retrieval
//   - RetrievalResult: One ranked match for a query
//   - Snapshot: The persisted form of a knowledge base
//   - Answer: The outcome of a retrieval-augmented query
//   - RAGConfig: Every recognised tuning option with its default
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
