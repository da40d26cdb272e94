package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Retrieval is the outcome of the retrieval stages of a query.
type Retrieval struct {
	// Results are the ranked matches, thresholded or fallback.
	Results []domain.RetrievalResult

	// FallbackUsed is true when nothing passed the threshold and the
	// unthresholded ranking was used instead.
	FallbackUsed bool

	// Empty is true when the knowledge base held no entries at all.
	Empty bool
}

// RetrievalPipeline answers a query in four stages: embed the query,
// search with the threshold, fall back to an unthresholded ranking when
// nothing matched, and assemble the context for generation.
type RetrievalPipeline struct {
	kb      *KnowledgeBase
	llm     driven.LLMService
	prompts *PromptBuilder
	cfg     domain.RAGConfig
}

// NewRetrievalPipeline creates a pipeline. llm may be nil, in which case
// only Retrieve is usable.
func NewRetrievalPipeline(kb *KnowledgeBase, llm driven.LLMService, prompts *PromptBuilder, cfg domain.RAGConfig) *RetrievalPipeline {
	if prompts == nil {
		prompts = NewPromptBuilder()
	}
	return &RetrievalPipeline{
		kb:      kb,
		llm:     llm,
		prompts: prompts,
		cfg:     cfg,
	}
}

// Retrieve runs the embed, search and fallback stages.
func (p *RetrievalPipeline) Retrieve(ctx context.Context, query string, topK int) (*Retrieval, error) {
	if !p.kb.Ready() {
		return nil, domain.ErrNotInitialized
	}
	if p.kb.Size() == 0 {
		return &Retrieval{Results: []domain.RetrievalResult{}, Empty: true}, nil
	}
	if topK <= 0 {
		topK = p.cfg.TopK
	}

	queryVec, err := p.kb.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	results, err := p.kb.Search(ctx, queryVec, topK, p.cfg.SimilarityThreshold)
	if err != nil {
		return nil, err
	}
	logger.Debug("Search: %d results (topK=%d, threshold=%g)", len(results), topK, p.cfg.SimilarityThreshold)
	if len(results) > 0 || !p.cfg.EnableFallback {
		return &Retrieval{Results: results}, nil
	}

	ranked, err := p.kb.Rank(ctx, queryVec, p.cfg.MaxResults)
	if err != nil {
		return nil, err
	}
	for i := range ranked {
		ranked[i].Fallback = true
	}
	logger.Info("No results above threshold %g, using top %d by score", p.cfg.SimilarityThreshold, len(ranked))
	return &Retrieval{Results: ranked, FallbackUsed: len(ranked) > 0}, nil
}

// Answer retrieves context for query and generates a response.
//
// Generation problems never surface as errors. A failed grounded attempt is
// retried without context (RetrievalModeUngrounded); if that fails too the
// answer is domain.ApologyMessage with RetrievalModeError. Retrieval failures
// other than domain.ErrNotInitialized are treated like an empty retrieval.
func (p *RetrievalPipeline) Answer(ctx context.Context, query string) (*domain.Answer, error) {
	if p.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}

	done := logger.Stage("Retrieval")
	retrieval, err := p.Retrieve(ctx, query, p.cfg.TopK)
	done()

	answer := &domain.Answer{
		Sources:    []string{},
		Results:    []domain.RetrievalResult{},
		Confidence: domain.UndefinedConfidence(),
	}

	var assembly ContextAssembly
	switch {
	case errors.Is(err, domain.ErrNotInitialized):
		return nil, err
	case err != nil:
		logger.Warn("Retrieval failed, answering without context: %v", err)
		answer.Error = err.Error()
	default:
		assembly = AssembleContext(retrieval.Results, p.cfg.MaxContextLength)
	}

	if n := len(assembly.Results); n > 0 {
		answer.Results = assembly.Results
		answer.Sources = assembly.Sources
		answer.ContextPreview = assembly.Preview()
		answer.Confidence = domain.ConfidenceFor(n)
		answer.LowConfidence = retrieval.FallbackUsed
	}

	generationDone := logger.Stage("Generation")
	defer generationDone()

	if len(assembly.Results) > 0 {
		text, genErr := p.generate(ctx, p.prompts.Grounded(query, assembly.Results))
		if genErr == nil {
			answer.Text = text
			answer.Mode = domain.RetrievalModeGrounded
			return answer, nil
		}
		logger.Warn("Grounded generation failed, retrying without context: %v", genErr)
		answer.Error = genErr.Error()
	}

	// Nothing below draws on the retrieved chunks.
	withoutContext(answer)

	text, genErr := p.generate(ctx, p.prompts.Ungrounded(query))
	if genErr != nil {
		logger.Warn("Ungrounded generation failed: %v", genErr)
		answer.Text = domain.ApologyMessage
		answer.Mode = domain.RetrievalModeError
		answer.Error = genErr.Error()
		return answer, nil
	}

	answer.Text = text
	answer.Mode = domain.RetrievalModeUngrounded
	return answer, nil
}

// withoutContext drops the retrieval details from an answer that was not
// generated from them.
func withoutContext(a *domain.Answer) {
	a.Sources = []string{}
	a.Results = []domain.RetrievalResult{}
	a.ContextPreview = ""
	a.Confidence = domain.UndefinedConfidence()
	a.LowConfidence = false
}

// generate calls the LLM under the configured deadline.
func (p *RetrievalPipeline) generate(ctx context.Context, prompt string) (string, error) {
	if p.cfg.GenerationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.GenerationTimeout)
		defer cancel()
	}

	logger.Debug("Prompt: %d bytes, model %s", len(prompt), p.llm.ModelName())
	text, err := p.llm.Generate(ctx, prompt, driven.GenerateOptions{
		MaxTokens:   p.cfg.MaxTokens,
		Temperature: p.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: generate: %w", domain.ErrExternalService, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: generate: empty response", domain.ErrExternalService)
	}
	return text, nil
}
