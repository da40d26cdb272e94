package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Query length limits, in characters, applied after trimming.
const (
	MinQueryLength = 3
	MaxQueryLength = 500
)

// ValidateQuery trims the query and checks its length.
// Returns the trimmed query or an ErrInvalidInput error.
func ValidateQuery(query string) (string, error) {
	q := strings.TrimSpace(query)
	n := utf8.RuneCountInString(q)
	if n < MinQueryLength {
		return "", fmt.Errorf("%w: query must be at least %d characters", ErrInvalidInput, MinQueryLength)
	}
	if n > MaxQueryLength {
		return "", fmt.Errorf("%w: query must be at most %d characters", ErrInvalidInput, MaxQueryLength)
	}
	return q, nil
}

// RetrievalResult is one ranked match for a query.
type RetrievalResult struct {
	// Chunk is a copy of the matched chunk.
	Chunk Chunk `json:"chunk"`

	// Similarity is the cosine similarity between query and chunk, in [-1, 1].
	Similarity float64 `json:"similarity"`

	// Fallback is true when the result did not pass the similarity threshold
	// and was only surfaced by the fallback path.
	Fallback bool `json:"fallback,omitempty"`
}

// RetrievalMode records how an answer was produced.
type RetrievalMode string

// Available retrieval modes.
const (
	// RetrievalModeGrounded means the answer was generated with retrieved context.
	RetrievalModeGrounded RetrievalMode = "grounded"

	// RetrievalModeUngrounded means the answer was generated without context,
	// either because nothing was retrieved or the grounded attempt failed.
	RetrievalModeUngrounded RetrievalMode = "ungrounded"

	// RetrievalModeError means no answer could be generated and the
	// fixed apology text was returned.
	RetrievalModeError RetrievalMode = "error"
)

// IsValid returns true if the mode is recognised.
func (m RetrievalMode) IsValid() bool {
	switch m {
	case RetrievalModeGrounded, RetrievalModeUngrounded, RetrievalModeError:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (m RetrievalMode) String() string {
	return string(m)
}

// Confidence is a heuristic answer confidence. It is undefined ("N/A")
// when the knowledge base held nothing to retrieve.
type Confidence struct {
	Value   float64 `json:"value"`
	Defined bool    `json:"defined"`
}

// Confidence scoring parameters.
const (
	confidenceBase = 0.6
	confidenceStep = 0.1
	confidenceCap  = 0.9
)

// ConfidenceFor returns min(0.9, 0.6 + 0.1*n) for n > 0 retrieved chunks.
// n == 0 yields the base value; callers use UndefinedConfidence when the
// knowledge base is empty.
func ConfidenceFor(n int) Confidence {
	if n < 0 {
		n = 0
	}
	v := confidenceBase + confidenceStep*float64(n)
	if v > confidenceCap {
		v = confidenceCap
	}
	return Confidence{Value: v, Defined: true}
}

// UndefinedConfidence is reported when there was nothing to retrieve from.
func UndefinedConfidence() Confidence {
	return Confidence{}
}

// String renders the confidence as a percentage or "N/A".
func (c Confidence) String() string {
	if !c.Defined {
		return "N/A"
	}
	return fmt.Sprintf("%.0f%%", c.Value*100)
}

// Answer is the outcome of a retrieval-augmented query.
type Answer struct {
	// Text is the response shown to the user. Never empty.
	Text string `json:"text"`

	// Mode records whether context was used.
	Mode RetrievalMode `json:"mode"`

	// Confidence is the heuristic confidence score.
	Confidence Confidence `json:"confidence"`

	// LowConfidence is true when every chunk used came from the fallback path.
	LowConfidence bool `json:"lowConfidence,omitempty"`

	// Sources are the distinct source identifiers of the chunks used, in rank order.
	Sources []string `json:"sources"`

	// Results are the ranked chunks that were placed in the prompt.
	Results []RetrievalResult `json:"results"`

	// ContextPreview is the beginning of the assembled context.
	ContextPreview string `json:"contextPreview,omitempty"`

	// Error carries the failure message when Mode is RetrievalModeError,
	// or the grounded failure that caused an ungrounded retry.
	Error string `json:"error,omitempty"`
}

// HasContext reports whether retrieved context was used.
func (a *Answer) HasContext() bool {
	return a.Mode == RetrievalModeGrounded && len(a.Results) > 0
}

// KnowledgeBaseStats summarises the state of a knowledge base.
type KnowledgeBaseStats struct {
	// Ready is true after a successful ingest or cache load.
	Ready bool `json:"ready"`

	// EmbeddingModel names the model the vectors came from.
	EmbeddingModel string `json:"embeddingModel,omitempty"`

	// TotalChunks is the number of stored chunks.
	TotalChunks int `json:"totalChunks"`

	// TotalEmbeddings is the number of stored vectors. Always equal to TotalChunks.
	TotalEmbeddings int `json:"totalEmbeddings"`

	// Dimension is the vector length, zero when empty.
	Dimension int `json:"dimension"`

	// Sources lists the distinct chunk sources in first-seen order.
	Sources []string `json:"sources"`

	// SnapshotAt is when the loaded or last saved snapshot was created.
	SnapshotAt time.Time `json:"snapshotAt,omitempty"`
}

// SystemInfo is the orchestrator-level status report.
type SystemInfo struct {
	// Initialized is true once Initialize has completed.
	Initialized bool `json:"initialized"`

	// KnowledgeBase holds the knowledge base statistics.
	KnowledgeBase KnowledgeBaseStats `json:"knowledgeBase"`

	// Documents lists catalogued documents.
	Documents []CatalogEntry `json:"documents"`

	// Config is the active retrieval configuration.
	Config RAGConfig `json:"-"`
}
