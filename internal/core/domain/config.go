package domain

import (
	"fmt"
	"sort"
	"time"
)

// Default RAG configuration values.
const (
	DefaultChunkSize           = 2000
	DefaultChunkOverlap        = 400
	DefaultMaxContextLength    = 8000
	DefaultEmbedBatchSize      = 15
	DefaultEmbedBatchDelay     = 100 * time.Millisecond
	DefaultTopK                = 8
	DefaultSimilarityThreshold = 0.01
	DefaultMaxResults          = 10
	DefaultStorageKey          = "rag_embeddings"
	DefaultTemperature         = 0.7
	DefaultMaxTokens           = 1000
	DefaultGenerationTimeout   = 60 * time.Second
)

// Configuration keys accepted by RAGConfig.Set.
// They match the TOML keys under the [rag] table.
const (
	ConfigKeyChunkSize           = "chunk_size"
	ConfigKeyOverlap             = "overlap"
	ConfigKeyMaxContextLength    = "max_context_length"
	ConfigKeyBatchSize           = "batch_size"
	ConfigKeyBatchDelay          = "batch_delay"
	ConfigKeyTopK                = "top_k"
	ConfigKeySimilarityThreshold = "similarity_threshold"
	ConfigKeyMaxResults          = "max_results"
	ConfigKeyStorageKey          = "storage_key"
	ConfigKeyEnableCache         = "enable_cache"
	ConfigKeyEnableFallback      = "enable_fallback"
	ConfigKeyTemperature         = "temperature"
	ConfigKeyMaxTokens           = "max_tokens"
	ConfigKeyGenerationTimeout   = "generation_timeout"
)

// RAGConfig enumerates every recognised retrieval option.
// Construct it with DefaultRAGConfig, apply overrides with Set and
// call Validate before use.
type RAGConfig struct {
	// ChunkSize is the maximum number of characters per chunk.
	ChunkSize int

	// Overlap is the number of characters shared by consecutive chunks.
	Overlap int

	// MaxContextLength caps the assembled context passed to the generator.
	MaxContextLength int

	// BatchSize is the number of texts sent to the embedding service per call.
	BatchSize int

	// BatchDelay is an optional pause between embedding batches.
	BatchDelay time.Duration

	// TopK is the maximum number of thresholded results per query.
	TopK int

	// SimilarityThreshold is the minimum cosine similarity for a match.
	SimilarityThreshold float64

	// MaxResults caps the unthresholded fallback results.
	MaxResults int

	// StorageKey is the key the knowledge base snapshot is persisted under.
	StorageKey string

	// EnableCache loads and saves the snapshot around initialisation.
	EnableCache bool

	// EnableFallback surfaces unthresholded results when nothing passes the threshold.
	EnableFallback bool

	// Temperature is passed to the generation service.
	Temperature float64

	// MaxTokens is the maximum response length requested from the generator.
	MaxTokens int

	// GenerationTimeout bounds each generation call.
	GenerationTimeout time.Duration
}

// DefaultRAGConfig returns the configuration with every option at its default.
func DefaultRAGConfig() RAGConfig {
	return RAGConfig{
		ChunkSize:           DefaultChunkSize,
		Overlap:             DefaultChunkOverlap,
		MaxContextLength:    DefaultMaxContextLength,
		BatchSize:           DefaultEmbedBatchSize,
		BatchDelay:          DefaultEmbedBatchDelay,
		TopK:                DefaultTopK,
		SimilarityThreshold: DefaultSimilarityThreshold,
		MaxResults:          DefaultMaxResults,
		StorageKey:          DefaultStorageKey,
		EnableCache:         true,
		EnableFallback:      true,
		Temperature:         DefaultTemperature,
		MaxTokens:           DefaultMaxTokens,
		GenerationTimeout:   DefaultGenerationTimeout,
	}
}

// ConfigKeys returns every key accepted by Set, sorted.
func ConfigKeys() []string {
	keys := []string{
		ConfigKeyChunkSize,
		ConfigKeyOverlap,
		ConfigKeyMaxContextLength,
		ConfigKeyBatchSize,
		ConfigKeyBatchDelay,
		ConfigKeyTopK,
		ConfigKeySimilarityThreshold,
		ConfigKeyMaxResults,
		ConfigKeyStorageKey,
		ConfigKeyEnableCache,
		ConfigKeyEnableFallback,
		ConfigKeyTemperature,
		ConfigKeyMaxTokens,
		ConfigKeyGenerationTimeout,
	}
	sort.Strings(keys)
	return keys
}

// Set applies a single option by key. Values may arrive as the loosely
// typed results of TOML or JSON decoding. Unknown keys and values of the
// wrong type are rejected with ErrConfiguration.
func (c *RAGConfig) Set(key string, value any) error {
	var err error
	switch key {
	case ConfigKeyChunkSize:
		c.ChunkSize, err = asInt(key, value)
	case ConfigKeyOverlap:
		c.Overlap, err = asInt(key, value)
	case ConfigKeyMaxContextLength:
		c.MaxContextLength, err = asInt(key, value)
	case ConfigKeyBatchSize:
		c.BatchSize, err = asInt(key, value)
	case ConfigKeyBatchDelay:
		c.BatchDelay, err = asDuration(key, value)
	case ConfigKeyTopK:
		c.TopK, err = asInt(key, value)
	case ConfigKeySimilarityThreshold:
		c.SimilarityThreshold, err = asFloat(key, value)
	case ConfigKeyMaxResults:
		c.MaxResults, err = asInt(key, value)
	case ConfigKeyStorageKey:
		c.StorageKey, err = asString(key, value)
	case ConfigKeyEnableCache:
		c.EnableCache, err = asBool(key, value)
	case ConfigKeyEnableFallback:
		c.EnableFallback, err = asBool(key, value)
	case ConfigKeyTemperature:
		c.Temperature, err = asFloat(key, value)
	case ConfigKeyMaxTokens:
		c.MaxTokens, err = asInt(key, value)
	case ConfigKeyGenerationTimeout:
		c.GenerationTimeout, err = asDuration(key, value)
	default:
		return fmt.Errorf("%w: unknown option %q", ErrConfiguration, key)
	}
	return err
}

// Apply sets every option in values, stopping at the first error.
// Keys are applied in sorted order so errors are reported deterministically.
func (c *RAGConfig) Apply(values map[string]any) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := c.Set(k, values[k]); err != nil {
			return err
		}
	}
	return nil
}

// Validate rejects out-of-range values.
func (c RAGConfig) Validate() error {
	switch {
	case c.ChunkSize <= 0:
		return fmt.Errorf("%w: chunk_size must be positive, got %d", ErrConfiguration, c.ChunkSize)
	case c.Overlap < 0:
		return fmt.Errorf("%w: overlap must not be negative, got %d", ErrConfiguration, c.Overlap)
	case c.Overlap >= c.ChunkSize:
		return fmt.Errorf("%w: overlap (%d) must be smaller than chunk_size (%d)",
			ErrConfiguration, c.Overlap, c.ChunkSize)
	case c.MaxContextLength <= 0:
		return fmt.Errorf("%w: max_context_length must be positive, got %d", ErrConfiguration, c.MaxContextLength)
	case c.BatchSize <= 0:
		return fmt.Errorf("%w: batch_size must be positive, got %d", ErrConfiguration, c.BatchSize)
	case c.BatchDelay < 0:
		return fmt.Errorf("%w: batch_delay must not be negative, got %s", ErrConfiguration, c.BatchDelay)
	case c.TopK <= 0:
		return fmt.Errorf("%w: top_k must be positive, got %d", ErrConfiguration, c.TopK)
	case c.SimilarityThreshold < -1 || c.SimilarityThreshold > 1:
		return fmt.Errorf("%w: similarity_threshold must be within [-1, 1], got %g",
			ErrConfiguration, c.SimilarityThreshold)
	case c.MaxResults <= 0:
		return fmt.Errorf("%w: max_results must be positive, got %d", ErrConfiguration, c.MaxResults)
	case c.StorageKey == "":
		return fmt.Errorf("%w: storage_key must not be empty", ErrConfiguration)
	case c.Temperature < 0 || c.Temperature > 2:
		return fmt.Errorf("%w: temperature must be within [0, 2], got %g", ErrConfiguration, c.Temperature)
	case c.MaxTokens <= 0:
		return fmt.Errorf("%w: max_tokens must be positive, got %d", ErrConfiguration, c.MaxTokens)
	case c.GenerationTimeout <= 0:
		return fmt.Errorf("%w: generation_timeout must be positive, got %s", ErrConfiguration, c.GenerationTimeout)
	}
	return nil
}

// Values returns the configuration as key/value pairs suitable for persisting.
// Durations are rendered as strings.
func (c RAGConfig) Values() map[string]any {
	return map[string]any{
		ConfigKeyChunkSize:           c.ChunkSize,
		ConfigKeyOverlap:             c.Overlap,
		ConfigKeyMaxContextLength:    c.MaxContextLength,
		ConfigKeyBatchSize:           c.BatchSize,
		ConfigKeyBatchDelay:          c.BatchDelay.String(),
		ConfigKeyTopK:                c.TopK,
		ConfigKeySimilarityThreshold: c.SimilarityThreshold,
		ConfigKeyMaxResults:          c.MaxResults,
		ConfigKeyStorageKey:          c.StorageKey,
		ConfigKeyEnableCache:         c.EnableCache,
		ConfigKeyEnableFallback:      c.EnableFallback,
		ConfigKeyTemperature:         c.Temperature,
		ConfigKeyMaxTokens:           c.MaxTokens,
		ConfigKeyGenerationTimeout:   c.GenerationTimeout.String(),
	}
}

func asInt(key string, value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case int32:
		return int(v), nil
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("%w: %s must be an integer, got %v", ErrConfiguration, key, v)
		}
		return int(v), nil
	default:
		return 0, fmt.Errorf("%w: %s must be an integer, got %T", ErrConfiguration, key, value)
	}
}

func asFloat(key string, value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("%w: %s must be a number, got %T", ErrConfiguration, key, value)
	}
}

func asBool(key string, value any) (bool, error) {
	b, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s must be a boolean, got %T", ErrConfiguration, key, value)
	}
	return b, nil
}

func asString(key string, value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string, got %T", ErrConfiguration, key, value)
	}
	return s, nil
}

// asDuration accepts Go duration strings ("250ms") or integer milliseconds.
func asDuration(key string, value any) (time.Duration, error) {
	switch v := value.(type) {
	case time.Duration:
		return v, nil
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %w", ErrConfiguration, key, err)
		}
		return d, nil
	case int:
		return time.Duration(v) * time.Millisecond, nil
	case int64:
		return time.Duration(v) * time.Millisecond, nil
	default:
		return 0, fmt.Errorf("%w: %s must be a duration, got %T", ErrConfiguration, key, value)
	}
}
