package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/postprocessors"
)

func TestDocumentLoader_Load(t *testing.T) {
	cfg := testConfig()
	cfg.ChunkSize = 40
	cfg.Overlap = 5
	pipeline, err := postprocessors.DefaultPipeline(cfg)
	require.NoError(t, err)

	reader := newMapReader(map[string]string{"docs/admissions.txt": "Admission   requires a diploma.  Page 3 Deadline is June 1."})
	loader := NewDocumentLoader(reader, textRegistry{}, pipeline)

	doc, err := loader.Load(context.Background(), domain.DocumentSource{Path: "docs/admissions.txt"})
	require.NoError(t, err)

	assert.Equal(t, "docs/admissions.txt", doc.Document.Source)
	assert.Equal(t, "admissions.txt", doc.Document.Title)
	assert.Equal(t, "docs/admissions.txt", doc.Document.URI)
	assert.NotEmpty(t, doc.Document.ID)
	assert.Len(t, doc.ContentHash, 64)

	require.NotEmpty(t, doc.Chunks)
	for i, c := range doc.Chunks {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, "docs/admissions.txt", c.Source)
		assert.Equal(t, doc.Document.ID, c.DocumentID)
		assert.NotContains(t, c.Text, "Page 3")
	}

	entry := doc.CatalogEntry()
	assert.Equal(t, "docs/admissions.txt", entry.Source)
	assert.Equal(t, len(doc.Chunks), entry.ChunkCount)
	assert.Equal(t, doc.ContentHash, entry.ContentHash)
}

func TestDocumentLoader_Load_ReadError(t *testing.T) {
	pipeline, err := postprocessors.DefaultPipeline(testConfig())
	require.NoError(t, err)
	loader := NewDocumentLoader(newMapReader(map[string]string{}), textRegistry{}, pipeline)

	_, err = loader.Load(context.Background(), domain.DocumentSource{Path: "nope.txt"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentLoader_SameContentSameHash(t *testing.T) {
	pipeline, err := postprocessors.DefaultPipeline(testConfig())
	require.NoError(t, err)
	reader := newMapReader(map[string]string{"a.txt": "same", "b.txt": "same", "c.txt": "other"})
	loader := NewDocumentLoader(reader, textRegistry{}, pipeline)
	ctx := context.Background()

	_, hashA, err := loader.Read(ctx, domain.DocumentSource{Path: "a.txt"})
	require.NoError(t, err)
	_, hashB, err := loader.Read(ctx, domain.DocumentSource{Path: "b.txt"})
	require.NoError(t, err)
	_, hashC, err := loader.Read(ctx, domain.DocumentSource{Path: "c.txt"})
	require.NoError(t, err)

	assert.Equal(t, hashA, hashB)
	assert.NotEqual(t, hashA, hashC)
}

func TestSourceName(t *testing.T) {
	tests := []struct {
		name string
		src  domain.DocumentSource
		want string
	}{
		{name: "display name is not the key", src: domain.DocumentSource{Path: "/srv/x.pdf", Name: "Handbook"}, want: "/srv/x.pdf"},
		{name: "local path", src: domain.DocumentSource{Path: "/srv/docs/guide.pdf"}, want: "/srv/docs/guide.pdf"},
		{name: "url", src: domain.DocumentSource{Path: "https://example.com/files/faq.md?v=2"}, want: "https://example.com/files/faq.md?v=2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SourceName(tt.src))
		})
	}
}
