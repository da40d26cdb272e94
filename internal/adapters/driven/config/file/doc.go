// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data under ~/.sercha-rag.
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage
//   - PromptStore: user-editable answer prompts
package file
