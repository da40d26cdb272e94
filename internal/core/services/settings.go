package services

import (
	"errors"
	"fmt"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage. Retrieval options live under ragPrefix.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider = "embedding.provider"
	keyEmbedModel    = "embedding.model"
	keyEmbedBaseURL  = "embedding.base_url"
	keyEmbedAPIKey   = "embedding.api_key"
	keyEmbedRPS      = "embedding.requests_per_second"
	keyLLMProvider   = "llm.provider"
	keyLLMModel      = "llm.model"
	keyLLMBaseURL    = "llm.base_url"
	keyLLMAPIKey     = "llm.api_key"
	keyLLMRPS        = "llm.requests_per_second"
	keyStorage       = "storage.backend"
	keyStorageDir    = "storage.data_dir"
	keyPostgresDSN   = "storage.postgres_dsn"
	keyManifest      = "corpus.manifest"

	ragPrefix = "rag."

	defaultOllamaURL = "http://localhost:11434"
)

type configValue struct {
	key   string
	value any
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings.
// Invalid stored values fall back to their defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider:          s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:             s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:           s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:            s.configStore.GetString(keyEmbedAPIKey),
			RequestsPerSecond: s.configStore.GetFloat(keyEmbedRPS),
		},
		LLM: domain.LLMSettings{
			Provider:          s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:             s.getString(keyLLMModel, defaults.LLM.Model),
			BaseURL:           s.configStore.GetString(keyLLMBaseURL),
			APIKey:            s.configStore.GetString(keyLLMAPIKey),
			RequestsPerSecond: s.configStore.GetFloat(keyLLMRPS),
		},
		Storage: domain.StorageSettings{
			Backend:     s.getBackend(defaults.Storage.Backend),
			DataDir:     s.configStore.GetString(keyStorageDir),
			PostgresDSN: s.configStore.GetString(keyPostgresDSN),
		},
		RAG:          s.getRAGConfig(),
		ManifestPath: s.configStore.GetString(keyManifest),
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if err := settings.RAG.Validate(); err != nil {
		return err
	}

	values := []configValue{
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedRPS, settings.Embedding.RequestsPerSecond},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyLLMRPS, settings.LLM.RequestsPerSecond},
		{keyStorage, settings.Storage.Backend.String()},
		{keyStorageDir, settings.Storage.DataDir},
		{keyManifest, settings.ManifestPath},
	}
	// API keys and the DSN are written only when set.
	if settings.Embedding.APIKey != "" {
		values = append(values, configValue{keyEmbedAPIKey, settings.Embedding.APIKey})
	}
	if settings.LLM.APIKey != "" {
		values = append(values, configValue{keyLLMAPIKey, settings.LLM.APIKey})
	}
	if settings.Storage.PostgresDSN != "" {
		values = append(values, configValue{keyPostgresDSN, settings.Storage.PostgresDSN})
	}

	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	for key, value := range settings.RAG.Values() {
		if err := s.configStore.Set(ragPrefix+key, value); err != nil {
			return fmt.Errorf("save %s%s: %w", ragPrefix, key, err)
		}
	}

	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}
	if !provider.SupportsEmbeddings() {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	settings.Embedding.Model = modelOrDefault(model, domain.DefaultEmbeddingModels()[provider])
	settings.Embedding.BaseURL = baseURLFor(provider, settings.Embedding.BaseURL)
	settings.Embedding.APIKey = apiKey

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider
	settings.LLM.Model = modelOrDefault(model, domain.DefaultLLMModels()[provider])
	settings.LLM.BaseURL = baseURLFor(provider, settings.LLM.BaseURL)
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// SetStorage selects the snapshot storage backend.
func (s *SettingsService) SetStorage(backend domain.StorageBackend, dsn string) error {
	if !backend.IsValid() {
		return fmt.Errorf("invalid storage backend: %s", backend)
	}
	if backend == domain.StorageBackendPostgres && dsn == "" {
		return errors.New("postgres backend requires a connection string")
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	settings.Storage.Backend = backend
	if dsn != "" {
		settings.Storage.PostgresDSN = dsn
	}
	return s.Save(settings)
}

// SetRAGOption updates one retrieval option. The resulting configuration
// must still validate; on failure nothing is written.
func (s *SettingsService) SetRAGOption(key string, value any) error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	if err := settings.RAG.Set(key, value); err != nil {
		return err
	}
	if err := settings.RAG.Validate(); err != nil {
		return err
	}
	return s.configStore.Set(ragPrefix+key, settings.RAG.Values()[key])
}

// Validate checks that the settings can run the system: an embedding
// provider is always required and the retrieval options must be consistent.
// The LLM is only needed to answer questions, so it is not checked here.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: embedding provider is not configured", domain.ErrEmbeddingUnavailable)
	}
	if settings.Storage.Backend == domain.StorageBackendPostgres && settings.Storage.PostgresDSN == "" {
		return fmt.Errorf("%w: postgres backend requires a connection string", domain.ErrConfiguration)
	}
	return settings.RAG.Validate()
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

func modelOrDefault(model, fallback string) string {
	if model != "" {
		return model
	}
	return fallback
}

// baseURLFor keeps a custom endpoint for local providers and clears it
// for cloud ones.
func baseURLFor(provider domain.AIProvider, current string) string {
	if !provider.IsLocal() {
		return ""
	}
	if current == "" {
		return defaultOllamaURL
	}
	return current
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getBackend(defaultVal domain.StorageBackend) domain.StorageBackend {
	backend := domain.StorageBackend(s.configStore.GetString(keyStorage))
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}

// getRAGConfig applies stored rag.* values over the defaults. A value that
// does not parse is skipped; if the result is inconsistent the defaults are used.
func (s *SettingsService) getRAGConfig() domain.RAGConfig {
	cfg := domain.DefaultRAGConfig()
	for _, key := range domain.ConfigKeys() {
		val, ok := s.configStore.Get(ragPrefix + key)
		if !ok {
			continue
		}
		if err := cfg.Set(key, val); err != nil {
			logger.Warn("Ignoring %s%s: %v", ragPrefix, key, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		logger.Warn("Stored retrieval options are invalid, using defaults: %v", err)
		return domain.DefaultRAGConfig()
	}
	return cfg
}
