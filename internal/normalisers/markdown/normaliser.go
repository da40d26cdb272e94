package markdown

import (
	"context"
	"regexp"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/normalisers/docutil"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles Markdown documents.
type Normaliser struct{}

// New creates a new Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise converts markdown to plain text. Code fences keep their
// contents; only the fence lines are removed.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	source := strings.ReplaceAll(string(raw.Content), "\r\n", "\n")
	source = frontMatter.ReplaceAllString(source, "")

	doc := docutil.NewDocument(raw, firstHeading(source), stripMarkdown(source), "markdown")
	return &driven.NormaliseResult{Document: doc}, nil
}

var (
	frontMatter   = regexp.MustCompile(`(?s)\A---\n.*?\n---\n`)
	fenceLine     = regexp.MustCompile("(?m)^[ \t]*(```|~~~).*$")
	inlineCode    = regexp.MustCompile("`([^`\n]+)`")
	images        = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	links         = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	refLinks      = regexp.MustCompile(`(?m)^[ \t]*\[[^\]]+\]:[ \t]+\S+.*$`)
	headings      = regexp.MustCompile(`(?m)^#{1,6}[ \t]+`)
	setextRule    = regexp.MustCompile(`(?m)^(=+|-+)[ \t]*$`)
	strong        = regexp.MustCompile(`\*\*([^*\n]+)\*\*|\b__([^_\n]+)__\b`)
	emphasis      = regexp.MustCompile(`\*([^*\n]+)\*|\b_([^_\n]+)_\b`)
	blockquote    = regexp.MustCompile(`(?m)^[ \t]*>[ \t]?`)
	horizontal    = regexp.MustCompile(`(?m)^[ \t]*([-*_][ \t]*){3,}$`)
	listMarkers   = regexp.MustCompile(`(?m)^[ \t]*([-*+]|\d+[.)])[ \t]+`)
	tableRule     = regexp.MustCompile(`(?m)^\|?[ \t]*:?-{3,}.*$`)
	htmlTags      = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)
	multiNewlines = regexp.MustCompile(`\n{3,}`)
)

// firstHeading returns the text of the first ATX level-one heading.
func firstHeading(source string) string {
	for _, line := range strings.Split(source, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimLeft(line, "#"))
		}
	}
	return ""
}

// stripMarkdown removes markdown syntax, keeping the readable text.
func stripMarkdown(s string) string {
	s = fenceLine.ReplaceAllString(s, "")
	s = inlineCode.ReplaceAllString(s, "$1")
	s = images.ReplaceAllString(s, "$1")
	s = links.ReplaceAllString(s, "$1")
	s = refLinks.ReplaceAllString(s, "")
	s = horizontal.ReplaceAllString(s, "")
	s = setextRule.ReplaceAllString(s, "")
	s = headings.ReplaceAllString(s, "")
	s = blockquote.ReplaceAllString(s, "")
	s = listMarkers.ReplaceAllString(s, "")
	s = tableRule.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "|", " ")
	s = strong.ReplaceAllString(s, "$1$2")
	s = emphasis.ReplaceAllString(s, "$1$2")
	s = htmlTags.ReplaceAllString(s, "")
	s = multiNewlines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
