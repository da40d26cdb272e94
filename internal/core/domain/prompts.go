package domain

// Prompt names understood by the prompt store.
const (
	// PromptNameSystem holds the assistant persona instructions.
	PromptNameSystem = "rag_system"

	// PromptNameGrounding holds the reminder placed after retrieved context.
	PromptNameGrounding = "rag_grounding"
)

// ApologyMessage is returned when no answer could be generated at all.
const ApologyMessage = "Sorry, something went wrong while answering your question. Please try again later."

var defaultPrompts = map[string]string{
	PromptNameSystem: `You are a helpful assistant that answers questions using the documents in this knowledge base.

IMPORTANT INSTRUCTIONS:
1. Answer accurately, clearly and professionally.
2. Prefer the information in the provided context over general knowledge.
3. If the context does not contain the answer, say so and suggest where the user could find more information.
4. Politely decline questions unrelated to the documents.
5. Reply in plain text without markdown formatting.`,

	PromptNameGrounding: `Use this information as the primary reference for your answer. If it is not sufficient, say which parts of the question it does not cover.`,
}

// DefaultPrompt returns the built-in text for a prompt name, or "" if unknown.
func DefaultPrompt(name string) string {
	return defaultPrompts[name]
}

// PromptNames returns the names of all built-in prompts.
func PromptNames() []string {
	return []string{PromptNameSystem, PromptNameGrounding}
}
