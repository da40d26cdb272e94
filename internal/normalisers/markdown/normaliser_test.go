package markdown

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Normaliser = (*Normaliser)(nil)
}

func TestSupportedMIMETypes(t *testing.T) {
	assert.Equal(t, []string{"text/markdown", "text/x-markdown"}, New().SupportedMIMETypes())
}

func TestPriority(t *testing.T) {
	assert.Equal(t, 50, New().Priority())
}

func TestNormalise_Success(t *testing.T) {
	raw := &domain.RawDocument{
		URI:      "/docs/returns.md",
		MIMEType: "text/markdown",
		Content:  []byte("# Returns\n\nItems can be returned within **30 days**."),
		Metadata: map[string]any{"description": "policy"},
	}

	result, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)

	doc := result.Document
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, "Returns", doc.Title)
	assert.Equal(t, "Returns\n\nItems can be returned within 30 days.", doc.Content)
	assert.Equal(t, "text/markdown", doc.Metadata["mime_type"])
	assert.Equal(t, "markdown", doc.Metadata["format"])
	assert.Equal(t, "policy", doc.Metadata["description"])
}

func TestNormalise_NilDocument(t *testing.T) {
	result, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, result)
}

func TestNormalise_EmptyContent(t *testing.T) {
	raw := &domain.RawDocument{URI: "/path/to/empty.md", MIMEType: "text/markdown"}

	result, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)
	assert.Empty(t, result.Document.Content)
	assert.Equal(t, "empty", result.Document.Title)
}

func TestNormalise_TitleExtraction(t *testing.T) {
	tests := []struct {
		name          string
		content       string
		uri           string
		expectedTitle string
	}{
		{
			name:          "H1 heading",
			content:       "# My Document\n\nContent here.",
			uri:           "/doc.md",
			expectedTitle: "My Document",
		},
		{
			name:          "H1 with extra spaces",
			content:       "#   Spaced Title   \n\nContent",
			uri:           "/doc.md",
			expectedTitle: "Spaced Title",
		},
		{
			name:          "no heading falls back to filename",
			content:       "Just some content without heading.",
			uri:           "/my_document.md",
			expectedTitle: "my document",
		},
		{
			name:          "H2 only falls back to filename",
			content:       "## Second Level\n\nNo H1.",
			uri:           "/readme.md",
			expectedTitle: "readme",
		},
		{
			name:          "front matter skipped",
			content:       "---\ntitle: ignored\n---\n# After Front Matter\nbody",
			uri:           "/doc.md",
			expectedTitle: "After Front Matter",
		},
		{
			name:          "windows line endings",
			content:       "# Windows Title\r\n\r\nbody",
			uri:           "/doc.md",
			expectedTitle: "Windows Title",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			raw := &domain.RawDocument{URI: tc.uri, MIMEType: "text/markdown", Content: []byte(tc.content)}
			result, err := New().Normalise(context.Background(), raw)
			require.NoError(t, err)
			assert.Equal(t, tc.expectedTitle, result.Document.Title)
		})
	}
}

func TestStripMarkdown(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "headings", input: "# Title\n## Subtitle\n### Third", expected: "Title\nSubtitle\nThird"},
		{name: "bold", input: "This is **bold** text", expected: "This is bold text"},
		{name: "underscore bold", input: "This is __bold__ text", expected: "This is bold text"},
		{name: "italic", input: "This is *italic* and _also_ italic", expected: "This is italic and also italic"},
		{name: "snake case kept", input: "set max_chunk_size here", expected: "set max_chunk_size here"},
		{name: "links", input: "Click [here](https://example.com)", expected: "Click here"},
		{name: "images keep alt text", input: "See ![diagram](image.png) here", expected: "See diagram here"},
		{name: "code fences keep code", input: "Before\n```go\ncode here\n```\nAfter", expected: "Before\n\ncode here\n\nAfter"},
		{name: "inline code kept", input: "Use `make build` here", expected: "Use make build here"},
		{name: "blockquote", input: "> This is a quote", expected: "This is a quote"},
		{name: "list markers", input: "- Item 1\n* Item 2\n+ Item 3", expected: "Item 1\nItem 2\nItem 3"},
		{name: "numbered list", input: "1. First\n2) Second", expected: "First\nSecond"},
		{name: "horizontal rule", input: "Above\n\n---\n\nBelow", expected: "Above\n\nBelow"},
		{name: "setext heading", input: "Title\n=====\nBody", expected: "Title\n\nBody"},
		{name: "reference link definition", input: "Text\n[1]: https://example.com", expected: "Text"},
		{name: "inline html", input: "Press <kbd>Enter</kbd> now", expected: "Press Enter now"},
		{name: "blank lines collapsed", input: "A\n\n\n\n\nB", expected: "A\n\nB"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, stripMarkdown(tc.input))
		})
	}
}

func TestNormalise_Table(t *testing.T) {
	content := "| Plan | Price |\n|------|-------|\n| Basic | $5 |"
	raw := &domain.RawDocument{URI: "/pricing.md", MIMEType: "text/markdown", Content: []byte(content)}

	result, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)

	assert.NotContains(t, result.Document.Content, "|")
	assert.NotContains(t, result.Document.Content, "---")
	assert.Contains(t, result.Document.Content, "Basic")
	assert.Contains(t, result.Document.Content, "$5")
}

func BenchmarkStripMarkdown(b *testing.B) {
	content := "# Heading\n\nParagraph with **bold** and *italic*.\n\n- List item 1\n- List item 2\n\n" +
		"[Link](https://example.com)\n\n```\ncode block\n```"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = stripMarkdown(content)
	}
}
