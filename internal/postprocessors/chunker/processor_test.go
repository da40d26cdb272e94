package chunker

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func mustNew(t *testing.T, opts ...Option) *Processor {
	t.Helper()
	p, err := New(opts...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return p
}

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p := mustNew(t)
		if p.ChunkSize() != 2000 {
			t.Errorf("expected chunkSize 2000, got %d", p.ChunkSize())
		}
		if p.Overlap() != 400 {
			t.Errorf("expected overlap 400, got %d", p.Overlap())
		}
	})

	t.Run("custom values", func(t *testing.T) {
		p := mustNew(t, WithChunkSize(500), WithOverlap(0))
		if p.ChunkSize() != 500 || p.Overlap() != 0 {
			t.Errorf("expected 500/0, got %d/%d", p.ChunkSize(), p.Overlap())
		}
	})

	rejected := []struct {
		name string
		opts []Option
	}{
		{name: "overlap equals chunk size", opts: []Option{WithChunkSize(100), WithOverlap(100)}},
		{name: "overlap exceeds chunk size", opts: []Option{WithChunkSize(100), WithOverlap(150)}},
		{name: "negative overlap", opts: []Option{WithOverlap(-1)}},
		{name: "zero chunk size", opts: []Option{WithChunkSize(0)}},
	}
	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.opts...)
			if !errors.Is(err, domain.ErrConfiguration) {
				t.Fatalf("expected ErrConfiguration, got %v", err)
			}
			if p != nil {
				t.Error("expected nil processor")
			}
		})
	}
}

func TestProcessor_Name(t *testing.T) {
	p := mustNew(t)
	if p.Name() != "chunker" {
		t.Errorf("expected name 'chunker', got '%s'", p.Name())
	}
}

func TestSplit_ShortText(t *testing.T) {
	p := mustNew(t, WithChunkSize(100), WithOverlap(20))

	spans := p.Split("  Just one sentence.  ")
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Text != "Just one sentence." {
		t.Errorf("unexpected text %q", spans[0].Text)
	}
	if spans[0].Start != 2 || spans[0].End != 20 {
		t.Errorf("expected offsets 2..20, got %d..%d", spans[0].Start, spans[0].End)
	}
}

func TestSplit_WhitespaceOnly(t *testing.T) {
	p := mustNew(t, WithChunkSize(10), WithOverlap(2))
	if spans := p.Split(" \n\t   \n "); len(spans) != 0 {
		t.Errorf("expected no spans, got %d", len(spans))
	}
	if spans := p.Split(""); len(spans) != 0 {
		t.Errorf("expected no spans for empty text, got %d", len(spans))
	}
}

func TestSplit_SentenceBoundary(t *testing.T) {
	p := mustNew(t, WithChunkSize(16), WithOverlap(0))

	spans := p.Split("Hello world. Foo bar baz qux")
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d: %+v", len(spans), spans)
	}
	if spans[0].Text != "Hello world." || spans[0].Start != 0 || spans[0].End != 12 {
		t.Errorf("unexpected first span %+v", spans[0])
	}
	if spans[1].Text != "Foo bar baz qux" || spans[1].Start != 13 || spans[1].End != 28 {
		t.Errorf("unexpected second span %+v", spans[1])
	}
}

func TestSplit_WhitespaceBoundaryWithOverlap(t *testing.T) {
	p := mustNew(t, WithChunkSize(10), WithOverlap(2))

	// The '.' at 4 is not past the midpoint, so the cut falls on the space at 10.
	spans := p.Split("aaaa. bbbb cccc")
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d: %+v", len(spans), spans)
	}
	if spans[0].Text != "aaaa. bbbb" {
		t.Errorf("unexpected first span %q", spans[0].Text)
	}
	if spans[1].Text != "bb cccc" || spans[1].Start != 8 {
		t.Errorf("unexpected second span %+v", spans[1])
	}
}

func TestSplit_HardCut(t *testing.T) {
	p := mustNew(t, WithChunkSize(10), WithOverlap(3))

	text := strings.Repeat("x", 25)
	spans := p.Split(text)

	want := []Span{
		{Start: 0, End: 10},
		{Start: 7, End: 17},
		{Start: 14, End: 24},
		{Start: 21, End: 25},
	}
	if len(spans) != len(want) {
		t.Fatalf("expected %d spans, got %d: %+v", len(want), len(spans), spans)
	}
	for i, w := range want {
		if spans[i].Start != w.Start || spans[i].End != w.End {
			t.Errorf("span %d: expected %d..%d, got %d..%d", i, w.Start, w.End, spans[i].Start, spans[i].End)
		}
	}
}

func TestSplit_NeverSplitsRunes(t *testing.T) {
	p := mustNew(t, WithChunkSize(5), WithOverlap(1))

	text := strings.Repeat("é", 12)
	for _, s := range p.Split(text) {
		if !strings.HasPrefix(text[s.Start:], s.Text) {
			t.Errorf("span text does not match source at %d", s.Start)
		}
		for _, r := range s.Text {
			if r != 'é' {
				t.Fatalf("span contains broken rune: %q", s.Text)
			}
		}
	}
}

func TestSplit_Invariants(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40) +
		"Tail without a full stop and with several words"

	configs := []struct{ size, overlap int }{
		{40, 5}, {100, 20}, {64, 63}, {7, 0}, {2000, 400},
	}

	for _, c := range configs {
		p := mustNew(t, WithChunkSize(c.size), WithOverlap(c.overlap))
		spans := p.Split(text)
		if len(spans) == 0 {
			t.Fatalf("size=%d: expected spans", c.size)
		}

		prevStart := -1
		for i, s := range spans {
			if s.Text == "" || s.Text != strings.TrimSpace(s.Text) {
				t.Errorf("size=%d span %d: not trimmed/non-empty: %q", c.size, i, s.Text)
			}
			if s.Start >= s.End {
				t.Errorf("size=%d span %d: start %d >= end %d", c.size, i, s.Start, s.End)
			}
			if text[s.Start:s.End] != s.Text {
				t.Errorf("size=%d span %d: offsets do not match text", c.size, i)
			}
			if s.Start < prevStart {
				t.Errorf("size=%d span %d: start moved backwards", c.size, i)
			}
			if len(s.Text) > c.size+1 {
				t.Errorf("size=%d span %d: length %d exceeds window", c.size, i, len(s.Text))
			}
			prevStart = s.Start
		}

		last := spans[len(spans)-1]
		if !strings.HasSuffix(text, last.Text) {
			t.Errorf("size=%d: last span does not reach the end of text", c.size)
		}
	}
}

func TestSplit_ShortSentences(t *testing.T) {
	text := "A. B. C."
	spans := mustNew(t, WithChunkSize(4), WithOverlap(1)).Split(text)

	if len(spans) == 0 {
		t.Fatal("expected at least one span")
	}
	if spans[0].Start != 0 {
		t.Errorf("first span starts at %d", spans[0].Start)
	}
	if last := spans[len(spans)-1]; last.End != len(text) {
		t.Errorf("last span ends at %d, want %d", last.End, len(text))
	}
	for i := 1; i < len(spans); i++ {
		if spans[i].Start > spans[i-1].End+1 {
			t.Errorf("gap between span %d and %d", i-1, i)
		}
	}
}

func TestProcessor_Process(t *testing.T) {
	p := mustNew(t, WithChunkSize(40), WithOverlap(5))
	doc := &domain.Document{
		ID:      "doc-1",
		Source:  "guide.txt",
		Title:   "Guide",
		Pages:   3,
		Content: "Refunds are processed within five days. Shipping is free over fifty dollars. Support is open on weekdays.",
	}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 3 {
		t.Fatalf("expected at least 3 chunks, got %d", len(chunks))
	}

	ids := make(map[string]bool)
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d has index %d", i, c.Index)
		}
		if !c.Valid() {
			t.Errorf("chunk %d is invalid: %+v", i, c)
		}
		if c.DocumentID != "doc-1" || c.Source != "guide.txt" || c.Title != "Guide" || c.Pages != 3 {
			t.Errorf("chunk %d missing document fields: %+v", i, c)
		}
		if ids[c.ID] {
			t.Errorf("duplicate chunk ID %s", c.ID)
		}
		ids[c.ID] = true
	}
	if chunks[0].Text != "Refunds are processed within five days." {
		t.Errorf("unexpected first chunk %q", chunks[0].Text)
	}
}

func TestProcessor_Process_EmptyContent(t *testing.T) {
	p := mustNew(t)
	chunks, err := p.Process(context.Background(), &domain.Document{ID: "empty"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected 0 chunks for empty content, got %d", len(chunks))
	}
}

func TestProcessor_Process_Cancelled(t *testing.T) {
	p := mustNew(t, WithChunkSize(10), WithOverlap(0))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Process(ctx, &domain.Document{Content: "some text to split up"}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
