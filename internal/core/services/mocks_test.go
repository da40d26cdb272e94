package services

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// --- Mock implementations ---

const bagDims = 64

// bagEmbedder hashes lower-cased word tokens into a fixed number of buckets.
// Texts sharing words get positive cosine similarity.
type bagEmbedder struct {
	mu        sync.Mutex
	batches   [][]string
	queries   []string
	embedErr  error
	pingErr   error
	shortBy   int
	closeCall int
}

func (e *bagEmbedder) vector(text string) []float32 {
	vec := make([]float32, bagDims)
	for _, tok := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		vec[h.Sum32()%bagDims]++
	}
	return vec
}

func (e *bagEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.embedErr != nil {
		return nil, e.embedErr
	}
	e.queries = append(e.queries, text)
	return e.vector(text), nil
}

func (e *bagEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.embedErr != nil {
		return nil, e.embedErr
	}
	e.batches = append(e.batches, append([]string(nil), texts...))
	out := make([][]float32, 0, len(texts))
	for _, t := range texts[:len(texts)-e.shortBy] {
		out = append(out, e.vector(t))
	}
	return out, nil
}

func (e *bagEmbedder) embeddedTexts() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var all []string
	for _, b := range e.batches {
		all = append(all, b...)
	}
	return all
}

func (e *bagEmbedder) Dimensions() int { return bagDims }
func (e *bagEmbedder) ModelName() string { return "bag-of-words" }
func (e *bagEmbedder) Ping(_ context.Context) error { return e.pingErr }
func (e *bagEmbedder) Close() error {
	e.closeCall++
	return nil
}

var _ driven.EmbeddingService = (*bagEmbedder)(nil)

// mockLLM records prompts and answers through a function.
type mockLLM struct {
	mu      sync.Mutex
	prompts []string
	respond func(ctx context.Context, prompt string) (string, error)
	opts    driven.GenerateOptions
}

func (m *mockLLM) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.opts = opts
	m.mu.Unlock()
	if m.respond == nil {
		return "generated answer", nil
	}
	return m.respond(ctx, prompt)
}

func (m *mockLLM) calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

func (m *mockLLM) ModelName() string { return "mock-llm" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error { return nil }

var _ driven.LLMService = (*mockLLM)(nil)

// failGrounded fails any prompt that carries retrieved context.
func failGrounded(_ context.Context, prompt string) (string, error) {
	if strings.Contains(prompt, contextHeader) {
		return "", errors.New("model overloaded")
	}
	return "general answer", nil
}

// mapReader serves documents from memory keyed by path.
type mapReader struct {
	mu    sync.Mutex
	files map[string]string
}

func newMapReader(files map[string]string) *mapReader {
	return &mapReader{files: files}
}

func (r *mapReader) set(path, content string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files[path] = content
}

func (r *mapReader) Read(_ context.Context, src domain.DocumentSource) (*domain.RawDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	content, ok := r.files[src.Path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &domain.RawDocument{
		URI:      src.Path,
		MIMEType: "text/plain",
		Content:  []byte(content),
	}, nil
}

// textRegistry normalises every document as plain text.
type textRegistry struct{}

func (textRegistry) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	return &driven.NormaliseResult{Document: domain.Document{URI: raw.URI, Content: string(raw.Content)}}, nil
}
func (textRegistry) Register(_ driven.Normaliser) {}
func (textRegistry) SupportedMIMETypes() []string { return []string{"text/plain"} }
