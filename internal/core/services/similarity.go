package services

import (
	"fmt"
	"math"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// CosineSimilarity returns the cosine of the angle between a and b.
// Vectors of different length are a domain.ErrDimensionMismatch.
// The result is 0 when either vector has zero magnitude.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", domain.ErrDimensionMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
