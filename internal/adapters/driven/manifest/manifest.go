// Package manifest reads the corpus document list from a YAML file.
//
// A manifest is either a top-level list of sources or a mapping with a
// "documents" key:
//
//	documents:
//	  - path: policies/refunds.pdf
//	    name: Refund policy
//	    priority: 1
//	  - path: https://example.com/faq.html
//
// Relative local paths are resolved against the manifest's directory.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// DefaultFile is the manifest name looked up in the working directory.
const DefaultFile = "documents.yaml"

// Ensure Loader implements the interface.
var _ driven.ManifestLoader = (*Loader)(nil)

type file struct {
	Documents []domain.DocumentSource `yaml:"documents"`
}

// Loader loads YAML manifests.
type Loader struct{}

// NewLoader creates a manifest loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads and validates the manifest at path. Sources are returned in
// priority order. A missing file is domain.ErrNotFound.
func (l *Loader) Load(path string) ([]domain.DocumentSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: manifest %s", domain.ErrNotFound, path)
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	sources, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	// Relative entries resolve against the manifest directory. Absolute
	// paths keep catalogue keys the same whatever the working directory.
	base, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("resolve manifest directory: %w", err)
	}
	for i := range sources {
		if !sources[i].IsRemote() && !filepath.IsAbs(sources[i].Path) {
			sources[i].Path = filepath.Join(base, sources[i].Path)
		}
	}
	return sources, nil
}

// Parse decodes manifest bytes, validates every entry and sorts by priority.
func Parse(data []byte) ([]domain.DocumentSource, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("%w: parse manifest: %v", domain.ErrConfiguration, err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	var sources []domain.DocumentSource
	root := node.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&sources); err != nil {
			return nil, fmt.Errorf("%w: decode manifest: %v", domain.ErrConfiguration, err)
		}
	case yaml.MappingNode:
		var f file
		if err := root.Decode(&f); err != nil {
			return nil, fmt.Errorf("%w: decode manifest: %v", domain.ErrConfiguration, err)
		}
		sources = f.Documents
	default:
		return nil, fmt.Errorf("%w: manifest must be a list or a mapping with documents", domain.ErrConfiguration)
	}

	if err := Validate(sources); err != nil {
		return nil, err
	}
	domain.SortSources(sources)
	return sources, nil
}

// Validate checks that every source has a path and a supported type, and
// that no path appears twice.
func Validate(sources []domain.DocumentSource) error {
	seen := make(map[string]int, len(sources))
	for i, src := range sources {
		if src.Path == "" {
			return fmt.Errorf("%w: document %d has no path", domain.ErrConfiguration, i+1)
		}
		if !src.ResolvedType().IsValid() {
			return fmt.Errorf("%w: document %d (%s): unsupported type %q",
				domain.ErrConfiguration, i+1, src.Path, src.ResolvedType())
		}
		if j, dup := seen[src.Path]; dup {
			return fmt.Errorf("%w: documents %d and %d share path %s", domain.ErrConfiguration, j+1, i+1, src.Path)
		}
		seen[src.Path] = i
	}
	return nil
}

// Save writes sources to path as a manifest with a documents key.
func Save(path string, sources []domain.DocumentSource) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create manifest directory: %w", err)
	}
	data, err := yaml.Marshal(file{Documents: sources})
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
