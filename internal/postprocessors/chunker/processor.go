// Package chunker provides a boundary-aware overlapping text chunking processor.
package chunker

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// DefaultChunkSize is the default maximum number of bytes per chunk.
const DefaultChunkSize = domain.DefaultChunkSize

// DefaultChunkOverlap is the default number of bytes shared by consecutive chunks.
const DefaultChunkOverlap = domain.DefaultChunkOverlap

const whitespace = " \t\n\r\f\v"

// Span is one chunk of text with its offsets in the source.
type Span struct {
	// Text is the trimmed chunk content.
	Text string

	// Start is the byte offset of Text in the source.
	Start int

	// End is the byte offset one past the end of Text in the source.
	End int
}

// Processor splits document content into overlapping chunks, preferring to
// cut after a sentence end or at whitespace in the second half of a window.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the maximum chunk size in bytes.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		p.chunkSize = size
	}
}

// WithOverlap sets the overlap between chunks in bytes.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		p.overlap = overlap
	}
}

// New creates a new chunker processor with the given options.
// Returns domain.ErrConfiguration unless 0 <= overlap < chunkSize.
func New(opts ...Option) (*Processor, error) {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrConfiguration, p.chunkSize)
	}
	if p.overlap < 0 || p.overlap >= p.chunkSize {
		return nil, fmt.Errorf("%w: overlap must be in [0, %d), got %d",
			domain.ErrConfiguration, p.chunkSize, p.overlap)
	}

	return p, nil
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the configured maximum chunk size.
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Split cuts text into trimmed, non-empty spans.
//
// Each window starts at the cursor and is chunkSize bytes long. Unless the
// window reaches the end of the text, it is shortened to just after the last
// '.' at or before its end, or failing that to the last whitespace, provided
// the cut lies past the window's midpoint. The cursor then moves back by the
// overlap, and always moves forward. The window that reaches the end of the
// text is the last one.
func (p *Processor) Split(text string) []Span {
	n := len(text)
	var spans []Span

	start := 0
	for start < n {
		end := p.windowEnd(text, start)

		raw := text[start:end]
		trimmed := strings.Trim(raw, whitespace)
		if trimmed != "" {
			offset := start + len(raw) - len(strings.TrimLeft(raw, whitespace))
			spans = append(spans, Span{
				Text:  trimmed,
				Start: offset,
				End:   offset + len(trimmed),
			})
		}

		if end >= n {
			break
		}

		next := end - p.overlap
		if next <= start {
			next = end
		}
		start = runeStartAfter(text, next)
	}

	return spans
}

// windowEnd returns the exclusive end of the window starting at start.
func (p *Processor) windowEnd(text string, start int) int {
	n := len(text)
	end := start + p.chunkSize
	if end >= n {
		return n
	}

	// Searches include the byte at end, so a sentence may close exactly there.
	limit := text[:end+1]
	if dot := strings.LastIndexByte(limit, '.'); dot >= 0 && p.pastMidpoint(start, dot) {
		return dot + 1
	}
	if ws := strings.LastIndexAny(limit, whitespace); ws >= 0 && p.pastMidpoint(start, ws) {
		return ws
	}

	// Hard cut; never split a multi-byte character.
	for end > start && !utf8.RuneStart(text[end]) {
		end--
	}
	if end == start {
		_, size := utf8.DecodeRuneInString(text[start:])
		end = start + size
	}
	return end
}

// pastMidpoint reports whether pos > start + chunkSize/2.
func (p *Processor) pastMidpoint(start, pos int) bool {
	return 2*(pos-start) > p.chunkSize
}

func runeStartAfter(text string, i int) int {
	for i < len(text) && !utf8.RuneStart(text[i]) {
		i++
	}
	return i
}

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
func (p *Processor) Process(ctx context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	if doc.Content == "" {
		// Empty content produces no chunks
		return nil, nil
	}

	spans := p.Split(doc.Content)
	chunks := make([]domain.Chunk, 0, len(spans))

	for i, span := range spans {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chunks = append(chunks, domain.Chunk{
			ID:         uuid.New().String(),
			DocumentID: doc.ID,
			Text:       span.Text,
			Index:      i,
			StartPos:   span.Start,
			EndPos:     span.End,
			Source:     doc.Source,
			Title:      doc.Title,
			Pages:      doc.Pages,
			ImageType:  doc.ImageType,
		})
	}

	return chunks, nil
}
