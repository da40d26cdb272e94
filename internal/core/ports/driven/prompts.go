package driven

import "github.com/custodia-labs/sercha-rag/internal/core/domain"

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a sensible default
	// or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names used throughout the application.
const (
	// PromptRAGSystem holds the assistant persona instructions placed at the
	// start of every prompt. It has no format placeholders.
	PromptRAGSystem = domain.PromptNameSystem

	// PromptRAGGrounding is the reminder placed after the retrieved context.
	// It has no format placeholders.
	PromptRAGGrounding = domain.PromptNameGrounding
)

// PromptStoreAware is an optional interface for services that can use custom prompts.
type PromptStoreAware interface {
	// SetPromptStore sets the prompt store for loading customisable prompts.
	// If not set, the service uses embedded default prompts.
	SetPromptStore(store PromptStore)
}
