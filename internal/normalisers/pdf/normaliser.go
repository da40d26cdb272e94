// Package pdf extracts text from PDF documents using github.com/ledongthuc/pdf.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
	"github.com/custodia-labs/sercha-rag/internal/normalisers/docutil"
)

// maxTitleLength bounds the first line accepted as a title.
const maxTitleLength = 200

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles PDF documents. Pages are separated by a blank line.
type Normaliser struct{}

// New creates a new PDF normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"application/pdf"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise extracts the text of every page. A page that fails to decode
// is skipped; a file with no extractable text at all is an error.
func (n *Normaliser) Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	pages, text, err := extract(ctx, raw.Content)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, fmt.Errorf("%w: no extractable text in %s", domain.ErrInvalidInput, raw.URI)
	}

	doc := docutil.NewDocument(raw, extractTitle(text), text, "pdf")
	doc.Pages = pages
	return &driven.NormaliseResult{Document: doc}, nil
}

// extract returns the page count and page texts joined by blank lines.
// The pdf package panics on some malformed input.
func extract(ctx context.Context, content []byte) (pages int, text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: malformed pdf: %v", domain.ErrInvalidInput, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return 0, "", fmt.Errorf("%w: open pdf: %v", domain.ErrInvalidInput, err)
	}

	pages = reader.NumPage()
	parts := make([]string, 0, pages)
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return 0, "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		s, err := page.GetPlainText(nil)
		if err != nil {
			logger.Debug("Skipping pdf page %d: %v", i, err)
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return pages, strings.Join(parts, "\n\n"), nil
}

// extractTitle returns the first non-empty line if it is short enough
// to be a heading.
func extractTitle(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.Trim(line, "\x00"))
		if line == "" {
			continue
		}
		if len(line) > maxTitleLength {
			continue
		}
		return line
	}
	return ""
}
