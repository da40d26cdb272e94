package ai

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// LimitEmbedding wraps svc so that requests are spaced to at most rps per
// second. A non-positive rps returns svc unchanged.
func LimitEmbedding(svc driven.EmbeddingService, rps float64) driven.EmbeddingService {
	if rps <= 0 {
		return svc
	}
	return &limitedEmbedding{EmbeddingService: svc, limiter: newLimiter(rps)}
}

// LimitLLM wraps svc so that generations are spaced to at most rps per
// second. A non-positive rps returns svc unchanged.
func LimitLLM(svc driven.LLMService, rps float64) driven.LLMService {
	if rps <= 0 {
		return svc
	}
	return &limitedLLM{LLMService: svc, limiter: newLimiter(rps)}
}

func newLimiter(rps float64) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(rps), 1)
}

func wait(ctx context.Context, limiter *rate.Limiter) error {
	if err := limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// Wait fails up front when the deadline is shorter than the delay.
		return fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
	}
	return nil
}

type limitedEmbedding struct {
	driven.EmbeddingService
	limiter *rate.Limiter
}

func (l *limitedEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := wait(ctx, l.limiter); err != nil {
		return nil, err
	}
	return l.EmbeddingService.Embed(ctx, text)
}

func (l *limitedEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := wait(ctx, l.limiter); err != nil {
		return nil, err
	}
	return l.EmbeddingService.EmbedBatch(ctx, texts)
}

type limitedLLM struct {
	driven.LLMService
	limiter *rate.Limiter
}

func (l *limitedLLM) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	if err := wait(ctx, l.limiter); err != nil {
		return "", err
	}
	return l.LLMService.Generate(ctx, prompt, opts)
}
