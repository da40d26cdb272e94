package domain

import (
	"net/url"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// MaxDocumentSize is the largest document accepted for ingestion, in bytes.
const MaxDocumentSize = 10 * 1024 * 1024

// DocumentType identifies a supported document format.
type DocumentType string

// Supported document types.
const (
	DocumentTypePDF      DocumentType = "pdf"
	DocumentTypeDOCX     DocumentType = "docx"
	DocumentTypeText     DocumentType = "txt"
	DocumentTypeMarkdown DocumentType = "md"
	DocumentTypeHTML     DocumentType = "html"
)

// IsValid returns true if the document type is supported.
func (t DocumentType) IsValid() bool {
	switch t {
	case DocumentTypePDF, DocumentTypeDOCX, DocumentTypeText, DocumentTypeMarkdown, DocumentTypeHTML:
		return true
	default:
		return false
	}
}

// MIMEType returns the content type used to select an extractor.
func (t DocumentType) MIMEType() string {
	switch t {
	case DocumentTypePDF:
		return "application/pdf"
	case DocumentTypeDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case DocumentTypeMarkdown:
		return "text/markdown"
	case DocumentTypeHTML:
		return "text/html"
	case DocumentTypeText:
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}

// DocumentTypeFromPath infers the document type from a file name or URL path.
// Returns an empty type if the extension is not recognised.
func DocumentTypeFromPath(p string) DocumentType {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".pdf":
		return DocumentTypePDF
	case ".docx":
		return DocumentTypeDOCX
	case ".txt", ".text":
		return DocumentTypeText
	case ".md", ".markdown":
		return DocumentTypeMarkdown
	case ".html", ".htm":
		return DocumentTypeHTML
	default:
		return ""
	}
}

// DocumentSource describes one document of the corpus.
type DocumentSource struct {
	// Path is a local file path or an http(s) URL.
	Path string `yaml:"path" json:"path"`

	// Name is a display name; defaults to the file name.
	Name string `yaml:"name,omitempty" json:"name,omitempty"`

	// Type is the document format; inferred from Path when empty.
	Type DocumentType `yaml:"type,omitempty" json:"type,omitempty"`

	// Priority orders ingestion, lowest first.
	Priority int `yaml:"priority,omitempty" json:"priority,omitempty"`

	// Description is free text shown in listings.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// ResolvedType returns Type, falling back to the type inferred from Path.
func (s DocumentSource) ResolvedType() DocumentType {
	if s.Type != "" {
		return s.Type
	}
	return DocumentTypeFromPath(s.Path)
}

// IsRemote reports whether the source is fetched over HTTP.
func (s DocumentSource) IsRemote() bool {
	return strings.HasPrefix(s.Path, "http://") || strings.HasPrefix(s.Path, "https://")
}

// Identifier is the key chunks and catalogue entries of the source are
// stored under: the full URL of a remote source, or the cleaned path of a
// local one. Callers pass absolute local paths so that two files sharing a
// base name in different directories stay distinct.
func (s DocumentSource) Identifier() string {
	if s.IsRemote() {
		return s.Path
	}
	return filepath.Clean(s.Path)
}

// DisplayName is the short label shown for the source: Name when set,
// otherwise the file name of its path or URL.
func (s DocumentSource) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	if s.IsRemote() {
		if u, err := url.Parse(s.Path); err == nil {
			if base := path.Base(u.Path); base != "/" && base != "." {
				return base
			}
			return u.Host
		}
	}
	return filepath.Base(s.Path)
}

// SortSources orders sources by priority, keeping input order for ties.
func SortSources(sources []DocumentSource) {
	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].Priority < sources[j].Priority
	})
}
