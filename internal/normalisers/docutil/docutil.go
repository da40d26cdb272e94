// Package docutil holds the document construction shared by normalisers.
package docutil

import (
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// NewDocument builds a normalised document from raw. The title is the
// manifest title when one was given, then extracted, then one derived
// from the URI.
func NewDocument(raw *domain.RawDocument, extracted, content, format string) domain.Document {
	metadata := make(map[string]any, len(raw.Metadata)+2)
	for k, v := range raw.Metadata {
		metadata[k] = v
	}
	metadata["mime_type"] = raw.MIMEType
	metadata["format"] = format

	return domain.Document{
		ID:        uuid.New().String(),
		URI:       raw.URI,
		Title:     Title(raw, extracted),
		Content:   content,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}
}

// Title picks the display title for raw.
func Title(raw *domain.RawDocument, extracted string) string {
	if t, ok := raw.Metadata["title"].(string); ok && t != "" {
		return t
	}
	if extracted = strings.TrimSpace(extracted); extracted != "" {
		return extracted
	}
	return TitleFromURI(raw.URI)
}

// TitleFromURI turns "/docs/refund_policy-v2.pdf" into "refund policy v2".
// Query strings and fragments are ignored.
func TitleFromURI(uri string) string {
	if i := strings.IndexAny(uri, "?#"); i >= 0 {
		uri = uri[:i]
	}
	name := path.Base(strings.ReplaceAll(uri, "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	name = strings.TrimSuffix(name, path.Ext(name))
	return strings.NewReplacer("_", " ", "-", " ").Replace(name)
}
