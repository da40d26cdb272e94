// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - EmbeddingService: Generates vector embeddings for chunks and queries
//   - KVStore: Durable key-value storage for knowledge base snapshots
//   - DocumentReader: Fetches raw document bytes from files or URLs
//   - Normaliser: Extracts text from raw documents
//   - NormaliserRegistry: Selects appropriate normaliser
//   - PostProcessorPipeline: Cleans and chunks extracted text
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - LLMService: Answer generation. Without it, only retrieval is available.
//   - DocumentCatalog: Record of ingested documents. Without it, unchanged
//     documents are re-embedded on every add.
//   - PromptStore: Customisable prompts. Without it, embedded defaults are used.
//   - DocumentWatcher: Directory change notifications for incremental ingest.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
