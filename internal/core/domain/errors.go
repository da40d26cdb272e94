package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown document type or provider.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrEmptyInput indicates an operation received nothing to work on,
	// e.g. ingesting an empty chunk list.
	ErrEmptyInput = errors.New("empty input")

	// Configuration Errors.

	// ErrConfiguration indicates invalid configuration: unknown keys,
	// out-of-range values or inconsistent chunking parameters.
	ErrConfiguration = errors.New("configuration error")

	// ErrDimensionMismatch indicates two vectors of different length were compared.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// Runtime Errors.

	// ErrExternalService indicates an extractor, embedding or generation call failed.
	ErrExternalService = errors.New("external service error")

	// ErrNotInitialized indicates a query was issued before the knowledge base
	// completed a successful ingest or cache load.
	ErrNotInitialized = errors.New("knowledge base not initialized")

	// ErrCacheCorrupt indicates a persisted snapshot could not be decoded or
	// failed its consistency checks. It is handled by discarding the snapshot.
	ErrCacheCorrupt = errors.New("corrupt cache snapshot")

	// Provider Errors.

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Nothing can be ingested or retrieved without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrRateLimited indicates the provider rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)
