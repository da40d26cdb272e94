// Package cleaner normalises extracted text before chunking.
package cleaner

import (
	"context"
	"regexp"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

var (
	runsOfSpace = regexp.MustCompile(`\s+`)
	disallowed  = regexp.MustCompile(`[^\p{L}\p{N}_\s.,!?;:\-()\[\]]`)
	pageMarker  = regexp.MustCompile(`(?i)\bpage \d+\b`)
)

// Clean collapses whitespace, drops characters other than letters, digits
// and basic punctuation, and strips "Page N" markers left by PDF extraction.
func Clean(text string) string {
	text = runsOfSpace.ReplaceAllString(text, " ")
	text = disallowed.ReplaceAllString(text, "")
	text = pageMarker.ReplaceAllString(text, "")
	text = runsOfSpace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Processor rewrites document content with Clean.
// It implements the PostProcessor interface and must run before the chunker
// so chunk offsets refer to the cleaned text.
type Processor struct{}

// New creates a new cleaner processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "cleaner"
}

// Process cleans doc.Content in place and passes chunks through.
func (p *Processor) Process(_ context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	doc.Content = Clean(doc.Content)
	return chunks, nil
}
