package services

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure PromptBuilder can receive a prompt store.
var _ driven.PromptStoreAware = (*PromptBuilder)(nil)

const (
	contextHeader     = "Relevant information from the knowledge base:"
	previewLength     = 200
	contextSeparator  = "\n\n"
	userMessagePrefix = "User: "
)

// PromptBuilder assembles generation prompts: persona instructions first,
// then labelled context blocks and the grounding reminder, then the query.
type PromptBuilder struct {
	store driven.PromptStore
}

// NewPromptBuilder creates a builder using the built-in prompts.
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// SetPromptStore sets the store customised prompts are loaded from.
func (b *PromptBuilder) SetPromptStore(store driven.PromptStore) {
	b.store = store
}

func (b *PromptBuilder) load(name string) string {
	if b.store != nil {
		text, err := b.store.Load(name)
		if err == nil && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text)
		}
		if err != nil {
			logger.Warn("Prompt %q unavailable, using default: %v", name, err)
		}
	}
	return domain.DefaultPrompt(name)
}

// Grounded builds a prompt with one labelled block per result.
// With no results it is the same as Ungrounded.
func (b *PromptBuilder) Grounded(query string, results []domain.RetrievalResult) string {
	if len(results) == 0 {
		return b.Ungrounded(query)
	}

	var sb strings.Builder
	sb.WriteString(b.load(domain.PromptNameSystem))
	sb.WriteString("\n\n")
	sb.WriteString(contextHeader)
	sb.WriteString("\n")
	for i, r := range results {
		fmt.Fprintf(&sb, "\n[Context %d] (from %s):\n%s\n", i+1, r.Chunk.Source, r.Chunk.Text)
	}
	sb.WriteString("\n")
	sb.WriteString(b.load(domain.PromptNameGrounding))
	sb.WriteString("\n\n")
	sb.WriteString(userMessagePrefix)
	sb.WriteString(query)
	return sb.String()
}

// Ungrounded builds a prompt from the instructions and the query only.
func (b *PromptBuilder) Ungrounded(query string) string {
	return b.load(domain.PromptNameSystem) + "\n\n" + userMessagePrefix + query
}

// ContextAssembly is the context placed in a prompt.
type ContextAssembly struct {
	// Text is the chunk texts joined by blank lines.
	Text string

	// Results are the chunks that contributed to Text. The last one may
	// have been shortened to fit.
	Results []domain.RetrievalResult

	// Sources are the distinct result sources in rank order.
	Sources []string
}

// AssembleContext joins result texts in rank order, separated by blank
// lines, stopping at maxLength characters.
func AssembleContext(results []domain.RetrievalResult, maxLength int) ContextAssembly {
	var sb strings.Builder
	used := make([]domain.RetrievalResult, 0, len(results))
	length := 0

	for i, r := range results {
		sep := ""
		if i > 0 {
			sep = contextSeparator
		}
		remaining := maxLength - length - utf8.RuneCountInString(sep)
		if remaining <= 0 {
			break
		}

		text := r.Chunk.Text
		truncated := false
		if utf8.RuneCountInString(text) > remaining {
			text = truncateRunes(text, remaining)
			truncated = true
		}
		if text == "" {
			break
		}

		sb.WriteString(sep)
		sb.WriteString(text)
		length += utf8.RuneCountInString(sep) + utf8.RuneCountInString(text)
		r.Chunk.Text = text
		used = append(used, r)

		if truncated {
			break
		}
	}

	chunks := make([]domain.Chunk, len(used))
	for i, r := range used {
		chunks[i] = r.Chunk
	}

	return ContextAssembly{
		Text:    sb.String(),
		Results: used,
		Sources: distinctSources(chunks),
	}
}

// Preview returns the first 200 characters of the context followed by "...",
// or "" when there is no context.
func (c ContextAssembly) Preview() string {
	if c.Text == "" {
		return ""
	}
	return truncateRunes(c.Text, previewLength) + "..."
}

// truncateRunes returns the first n characters of s.
func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
