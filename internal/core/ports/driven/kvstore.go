package driven

import "context"

// KVStore is a durable string key-value store.
// The knowledge base persists its snapshot as a single JSON value.
type KVStore interface {
	// Get returns the value stored under key.
	// The boolean is false when the key does not exist.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error

	// Close releases resources.
	Close() error
}
