package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/reader"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/core/services"
	"github.com/custodia-labs/sercha-rag/internal/logger"
	"github.com/custodia-labs/sercha-rag/internal/normalisers"
	"github.com/custodia-labs/sercha-rag/internal/postprocessors"
)

// Environment variables read at start-up, also loadable from .env.
const (
	envPostgresDSN = "SERCHA_RAG_POSTGRES_DSN"
	envManifest    = "SERCHA_RAG_MANIFEST"
	envDataDir     = "SERCHA_RAG_DATA_DIR"
)

// application owns everything built for the RAG service and closes it on exit.
type application struct {
	settings driving.SettingsService
	closers  []func() error
}

// Build wires the RAG orchestrator from the current settings.
func (a *application) Build(ctx context.Context) (driving.RAGService, error) {
	settings, err := a.settings.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	applyEnvOverrides(settings, os.Getenv)
	if err := settings.RAG.Validate(); err != nil {
		return nil, err
	}

	aiServices, err := ai.Initialise(settings)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, aiServices.Close)
	for _, w := range aiServices.Warnings {
		logger.Warn("%s", w)
	}

	store, catalog, closeStore, err := openStorage(ctx, settings.Storage)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeStore)

	prompts := services.NewPromptBuilder()
	if promptStore, err := file.NewPromptStore(""); err != nil {
		logger.Warn("Using built-in prompts: %v", err)
	} else {
		prompts.SetPromptStore(promptStore)
	}

	pipeline, err := postprocessors.DefaultPipeline(settings.RAG)
	if err != nil {
		return nil, fmt.Errorf("building pipeline: %w", err)
	}
	loader := services.NewDocumentLoader(reader.New(), normalisers.DefaultRegistry(), pipeline)

	return services.NewRAGOrchestrator(
		aiServices.EmbeddingService,
		aiServices.LLMService,
		store,
		catalog,
		loader,
		prompts,
		settings.RAG,
	), nil
}

// Close releases services in reverse order of creation.
func (a *application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// applyEnvOverrides fills API keys and storage settings from the environment.
// Keys saved in the config file win over the environment.
func applyEnvOverrides(settings *domain.AppSettings, getenv func(string) string) {
	if settings.Embedding.APIKey == "" {
		if env := settings.Embedding.Provider.EnvAPIKey(); env != "" {
			settings.Embedding.APIKey = getenv(env)
		}
	}
	if settings.LLM.APIKey == "" {
		if env := settings.LLM.Provider.EnvAPIKey(); env != "" {
			settings.LLM.APIKey = getenv(env)
		}
	}
	if dsn := getenv(envPostgresDSN); dsn != "" {
		settings.Storage.PostgresDSN = dsn
	}
	if dir := getenv(envDataDir); dir != "" {
		settings.Storage.DataDir = dir
	}
}

// openStorage opens the configured snapshot store and document catalogue.
func openStorage(ctx context.Context, cfg domain.StorageSettings) (driven.KVStore, driven.DocumentCatalog, func() error, error) {
	switch cfg.Backend {
	case domain.StorageBackendMemory:
		logger.Debug("Using in-memory storage; nothing is persisted")
		return memory.NewKVStore(), memory.NewDocumentCatalog(), func() error { return nil }, nil

	case domain.StorageBackendPostgres:
		if cfg.PostgresDSN == "" {
			return nil, nil, nil, fmt.Errorf("%w: postgres backend requires %s or a configured DSN",
				domain.ErrConfiguration, envPostgresDSN)
		}
		store, err := postgres.NewStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, nil, err
		}
		return store.KVStore(), store.DocumentCatalog(), func() error { store.Close(); return nil }, nil

	case domain.StorageBackendSQLite, "":
		store, err := sqlite.NewStore(cfg.DataDir)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		logger.Debug("Using sqlite store at %s", store.Path())
		return store.KVStore(), store.DocumentCatalog(), store.Close, nil

	default:
		return nil, nil, nil, fmt.Errorf("%w: unknown storage backend %q", domain.ErrConfiguration, cfg.Backend)
	}
}
