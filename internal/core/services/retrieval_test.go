package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func newTestPipeline(t *testing.T, cfg domain.RAGConfig, llm *mockLLM) *RetrievalPipeline {
	t.Helper()
	kb := NewKnowledgeBase(NewVectorIndex(&bagEmbedder{}, nil, cfg), cfg)
	require.NoError(t, kb.Ingest(context.Background(), testChunks("red apples", "green pears")))
	if llm == nil {
		return NewRetrievalPipeline(kb, nil, nil, cfg)
	}
	return NewRetrievalPipeline(kb, llm, nil, cfg)
}

func TestRetrievalPipeline_RetrieveNotReady(t *testing.T) {
	cfg := testConfig()
	kb := NewKnowledgeBase(NewVectorIndex(&bagEmbedder{}, nil, cfg), cfg)

	_, err := NewRetrievalPipeline(kb, nil, nil, cfg).Retrieve(context.Background(), "apples", 0)
	assert.ErrorIs(t, err, domain.ErrNotInitialized)
}

func TestRetrievalPipeline_RetrieveThreshold(t *testing.T) {
	cfg := testConfig()
	cfg.SimilarityThreshold = 0.1

	retrieval, err := newTestPipeline(t, cfg, nil).Retrieve(context.Background(), "apples", 0)
	require.NoError(t, err)
	assert.False(t, retrieval.FallbackUsed)
	require.NotEmpty(t, retrieval.Results)
	assert.Equal(t, "red apples", retrieval.Results[0].Chunk.Text)
	for _, r := range retrieval.Results {
		assert.False(t, r.Fallback)
		assert.GreaterOrEqual(t, r.Similarity, 0.1)
	}
}

func TestRetrievalPipeline_RetrieveFallback(t *testing.T) {
	cfg := testConfig()
	cfg.SimilarityThreshold = 1.1
	cfg.MaxResults = 1

	retrieval, err := newTestPipeline(t, cfg, nil).Retrieve(context.Background(), "apples", 0)
	require.NoError(t, err)
	assert.True(t, retrieval.FallbackUsed)
	require.Len(t, retrieval.Results, 1)
	assert.True(t, retrieval.Results[0].Fallback)
	assert.Equal(t, "red apples", retrieval.Results[0].Chunk.Text)

	cfg.EnableFallback = false
	retrieval, err = newTestPipeline(t, cfg, nil).Retrieve(context.Background(), "apples", 0)
	require.NoError(t, err)
	assert.False(t, retrieval.FallbackUsed)
	assert.Empty(t, retrieval.Results)
}

func TestRetrievalPipeline_AnswerWithoutLLM(t *testing.T) {
	_, err := newTestPipeline(t, testConfig(), nil).Answer(context.Background(), "apples")
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestRetrievalPipeline_AnswerFallbackIsLowConfidence(t *testing.T) {
	cfg := testConfig()
	cfg.SimilarityThreshold = 1.1
	llm := &mockLLM{}

	answer, err := newTestPipeline(t, cfg, llm).Answer(context.Background(), "apples")
	require.NoError(t, err)
	assert.Equal(t, domain.RetrievalModeGrounded, answer.Mode)
	assert.True(t, answer.LowConfidence)
	assert.Equal(t, domain.ConfidenceFor(2), answer.Confidence)
	assert.Equal(t, []string{"test.txt"}, answer.Sources)
	assert.Equal(t, cfg.MaxTokens, llm.opts.MaxTokens)
}

func TestRetrievalPipeline_GenerationTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.GenerationTimeout = 20 * time.Millisecond
	llm := &mockLLM{respond: func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}

	answer, err := newTestPipeline(t, cfg, llm).Answer(context.Background(), "apples")
	require.NoError(t, err)
	assert.Equal(t, domain.RetrievalModeError, answer.Mode)
	assert.Equal(t, domain.ApologyMessage, answer.Text)
	assert.False(t, answer.Confidence.Defined)
	assert.Contains(t, answer.Error, "deadline")
	assert.Len(t, llm.calls(), 2)
}
