package postprocessors

import (
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/postprocessors/chunker"
	"github.com/custodia-labs/sercha-rag/internal/postprocessors/cleaner"
)

// RegisterDefaults registers all built-in processors with the registry.
// Call this during application initialisation to enable standard processors.
func RegisterDefaults(r *Registry) {
	r.Register("cleaner", buildCleaner)
	r.Register("chunker", buildChunker)
}

// DefaultPipeline returns the cleaning and chunking pipeline for cfg.
func DefaultPipeline(cfg domain.RAGConfig) (*Pipeline, error) {
	r := NewRegistry()
	RegisterDefaults(r)
	return BuildPipeline(r, domain.PipelineConfigFor(cfg))
}

func buildCleaner(_ map[string]any) (driven.PostProcessor, error) {
	return cleaner.New(), nil
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - chunk_size (int): Maximum bytes per chunk (default: 2000)
//   - overlap (int): Overlapping bytes between chunks (default: 400)
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if size, ok := getIntFromConfig(cfg, "chunk_size"); ok {
		opts = append(opts, chunker.WithChunkSize(size))
	}
	if overlap, ok := getIntFromConfig(cfg, "overlap"); ok {
		opts = append(opts, chunker.WithOverlap(overlap))
	}

	p, err := chunker.New(opts...)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
// Missing keys and values of another type report false so the default applies.
func getIntFromConfig(cfg map[string]any, key string) (int, bool) {
	val, ok := cfg[key]
	if !ok {
		return 0, false
	}

	switch v := val.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
