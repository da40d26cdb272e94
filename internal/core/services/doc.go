// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The RAG pipeline lives here: document loading, the knowledge base and
// its vector index, retrieval, prompt assembly and the orchestrator that
// ties them to the embedding and generation providers.
package services
