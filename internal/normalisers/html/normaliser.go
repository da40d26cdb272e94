package html

import (
	"bytes"
	"context"
	"strings"

	"golang.org/x/net/html"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/normalisers/docutil"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles HTML documents.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise extracts the visible text of an HTML page, one block per line.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	title, text := extractText(raw.Content)
	return &driven.NormaliseResult{
		Document: docutil.NewDocument(raw, title, text, "html"),
	}, nil
}

// Elements whose contents are never visible text.
var skipped = map[string]bool{
	"head": true, "script": true, "style": true, "noscript": true,
	"svg": true, "template": true, "iframe": true, "object": true,
}

// Elements that start a new line.
var blocks = map[string]bool{
	"p": true, "div": true, "br": true, "hr": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "pre": true, "table": true, "section": true, "article": true,
	"header": true, "footer": true, "ul": true, "ol": true, "dl": true, "dt": true,
	"dd": true, "figure": true, "figcaption": true, "main": true, "aside": true,
	"body": true, "form": true, "fieldset": true, "address": true,
}

// Table cells are separated by a space.
var cells = map[string]bool{"td": true, "th": true}

// extractText returns the <title> text and the body text of page.
func extractText(page []byte) (title, text string) {
	z := html.NewTokenizer(bytes.NewReader(page))

	var (
		body     strings.Builder
		heading  strings.Builder
		depth    int
		inTitle  bool
		tagName  string
		tokenErr bool
	)

	for !tokenErr {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			tokenErr = true

		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tagName = string(name)
			if tagName == "title" {
				inTitle = tt == html.StartTagToken
				continue
			}
			if skipped[tagName] && tt == html.StartTagToken {
				depth++
			}
			switch {
			case blocks[tagName]:
				body.WriteByte('\n')
			case cells[tagName]:
				body.WriteByte(' ')
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			tagName = string(name)
			if tagName == "title" {
				inTitle = false
				continue
			}
			if skipped[tagName] && depth > 0 {
				depth--
			}
			if blocks[tagName] {
				body.WriteByte('\n')
			}

		case html.TextToken:
			switch {
			case inTitle:
				heading.Write(z.Text())
			case depth == 0:
				body.Write(z.Text())
			}
		}
	}

	return strings.Join(strings.Fields(heading.String()), " "), collapseLines(body.String())
}

// collapseLines squeezes runs of spaces and drops empty lines.
func collapseLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
