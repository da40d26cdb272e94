package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSnapshot(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	chunks := []Chunk{{Text: "alpha", Source: "a.txt", EndPos: 5}}
	s := NewSnapshot(chunks, [][]float32{{1, 0}}, at)

	assert.Equal(t, int64(1700000000123), s.Timestamp)
	assert.True(t, s.CreatedAt().Equal(at))
	require.NoError(t, s.Validate())
}

func TestSnapshot_JSONLayout(t *testing.T) {
	s := NewSnapshot(
		[]Chunk{{Text: "alpha", Index: 0, StartPos: 0, EndPos: 5, Source: "a.txt"}},
		[][]float32{{0.5, 0.25}},
		time.UnixMilli(42),
	)

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "embeddings")
	assert.Contains(t, raw, "chunks")
	assert.JSONEq(t, "42", string(raw["timestamp"]))

	var chunks []map[string]any
	require.NoError(t, json.Unmarshal(raw["chunks"], &chunks))
	require.Len(t, chunks, 1)
	for _, k := range []string{"text", "index", "startPos", "endPos", "source"} {
		assert.Contains(t, chunks[0], k)
	}
}

func TestSnapshot_Validate(t *testing.T) {
	chunk := Chunk{Text: "x", EndPos: 1}
	tests := []struct {
		name string
		snap Snapshot
	}{
		{
			name: "length mismatch",
			snap: Snapshot{Chunks: []Chunk{chunk, chunk}, Embeddings: [][]float32{{1}}},
		},
		{
			name: "empty vector",
			snap: Snapshot{Chunks: []Chunk{chunk}, Embeddings: [][]float32{{}}},
		},
		{
			name: "inconsistent dimension",
			snap: Snapshot{Chunks: []Chunk{chunk, chunk}, Embeddings: [][]float32{{1, 2}, {1}}},
		},
		{
			name: "empty chunk text",
			snap: Snapshot{Chunks: []Chunk{{}}, Embeddings: [][]float32{{1}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.snap.Validate(), ErrCacheCorrupt)
		})
	}

	assert.NoError(t, Snapshot{}.Validate())
}
