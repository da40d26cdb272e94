package domain

import (
	"fmt"
	"time"
)

// Snapshot is the durable form of a knowledge base.
// The JSON layout is {embeddings, chunks, timestamp}.
type Snapshot struct {
	// Embeddings holds one vector per chunk, index-aligned with Chunks.
	Embeddings [][]float32 `json:"embeddings"`

	// Chunks holds the stored chunks.
	Chunks []Chunk `json:"chunks"`

	// Timestamp is the creation time in unix milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// NewSnapshot builds a snapshot stamped with the given time.
func NewSnapshot(chunks []Chunk, embeddings [][]float32, at time.Time) Snapshot {
	return Snapshot{
		Embeddings: embeddings,
		Chunks:     chunks,
		Timestamp:  at.UnixMilli(),
	}
}

// CreatedAt returns the snapshot timestamp as a time.
func (s Snapshot) CreatedAt() time.Time {
	return time.UnixMilli(s.Timestamp)
}

// Validate checks the snapshot's consistency.
// Any failure wraps ErrCacheCorrupt.
func (s Snapshot) Validate() error {
	if len(s.Embeddings) != len(s.Chunks) {
		return fmt.Errorf("%w: %d embeddings for %d chunks",
			ErrCacheCorrupt, len(s.Embeddings), len(s.Chunks))
	}
	dim := -1
	for i, v := range s.Embeddings {
		if len(v) == 0 {
			return fmt.Errorf("%w: embedding %d is empty", ErrCacheCorrupt, i)
		}
		if dim == -1 {
			dim = len(v)
		} else if len(v) != dim {
			return fmt.Errorf("%w: embedding %d has dimension %d, expected %d",
				ErrCacheCorrupt, i, len(v), dim)
		}
	}
	for i, c := range s.Chunks {
		if c.Text == "" {
			return fmt.Errorf("%w: chunk %d has no text", ErrCacheCorrupt, i)
		}
	}
	return nil
}
