package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

type mockAIValidator struct {
	embeddingErr error
	llmErr       error
	embedding    *domain.EmbeddingSettings
	llm          *domain.LLMSettings
}

func (m *mockAIValidator) ValidateEmbedding(cfg *domain.EmbeddingSettings) error {
	m.embedding = cfg
	return m.embeddingErr
}

func (m *mockAIValidator) ValidateLLM(cfg *domain.LLMSettings) error {
	m.llm = cfg
	return m.llmErr
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	settings, err := service.Get()
	require.NoError(t, err)

	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Embedding.Provider, settings.Embedding.Provider)
	assert.Equal(t, defaults.LLM.Provider, settings.LLM.Provider)
	assert.Equal(t, domain.StorageBackendSQLite, settings.Storage.Backend)
	assert.Equal(t, domain.DefaultRAGConfig(), settings.RAG)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("embedding.provider", "openai")
	_ = store.Set("embedding.model", "text-embedding-3-large")
	_ = store.Set("llm.requests_per_second", int64(3))
	_ = store.Set("storage.backend", "postgres")
	_ = store.Set("storage.postgres_dsn", "postgres://localhost/rag")
	_ = store.Set("rag.chunk_size", int64(500))
	_ = store.Set("rag.overlap", int64(50))
	_ = store.Set("rag.batch_delay", "250ms")
	_ = store.Set("corpus.manifest", "/srv/corpus.yaml")

	settings, err := NewSettingsService(store, nil).Get()
	require.NoError(t, err)

	assert.Equal(t, domain.AIProviderOpenAI, settings.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-large", settings.Embedding.Model)
	assert.InDelta(t, 3.0, settings.LLM.RequestsPerSecond, 1e-9)
	assert.Equal(t, domain.StorageBackendPostgres, settings.Storage.Backend)
	assert.Equal(t, "postgres://localhost/rag", settings.Storage.PostgresDSN)
	assert.Equal(t, 500, settings.RAG.ChunkSize)
	assert.Equal(t, 50, settings.RAG.Overlap)
	assert.Equal(t, 250*time.Millisecond, settings.RAG.BatchDelay)
	assert.Equal(t, "/srv/corpus.yaml", settings.ManifestPath)
}

func TestSettingsService_Get_InvalidValuesReturnDefaults(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("embedding.provider", "invalid_provider")
	_ = store.Set("storage.backend", "floppy")
	_ = store.Set("rag.top_k", "many")

	settings, err := NewSettingsService(store, nil).Get()
	require.NoError(t, err)

	assert.Equal(t, domain.AIProvider(""), settings.Embedding.Provider)
	assert.Equal(t, domain.StorageBackendSQLite, settings.Storage.Backend)
	assert.Equal(t, domain.DefaultTopK, settings.RAG.TopK)
}

func TestSettingsService_Get_InconsistentRAGUsesDefaults(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("rag.chunk_size", 100)
	_ = store.Set("rag.overlap", 200)

	settings, err := NewSettingsService(store, nil).Get()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultRAGConfig(), settings.RAG)
}

func TestSettingsService_SaveRoundTrip(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	settings := domain.DefaultAppSettings()
	settings.Embedding = domain.EmbeddingSettings{Provider: domain.AIProviderOllama, Model: "nomic-embed-text", BaseURL: "http://gpu:11434"}
	settings.LLM = domain.LLMSettings{Provider: domain.AIProviderAnthropic, Model: "claude", APIKey: "sk-test", RequestsPerSecond: 2}
	settings.RAG.TopK = 4
	settings.RAG.GenerationTimeout = 30 * time.Second
	require.NoError(t, service.Save(&settings))

	got, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, settings.Embedding, got.Embedding)
	assert.Equal(t, settings.LLM, got.LLM)
	assert.Equal(t, settings.RAG, got.RAG)
}

func TestSettingsService_Save_RejectsInvalidRAG(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	settings := domain.DefaultAppSettings()
	settings.RAG.Overlap = settings.RAG.ChunkSize
	err := service.Save(&settings)
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	_, exists := store.Get("rag.overlap")
	assert.False(t, exists)
}

func TestSettingsService_SetEmbeddingProvider(t *testing.T) {
	tests := []struct {
		name      string
		provider  domain.AIProvider
		model     string
		apiKey    string
		wantErr   bool
		wantModel string
		wantURL   string
	}{
		{name: "ollama default model", provider: domain.AIProviderOllama, wantModel: "nomic-embed-text", wantURL: "http://localhost:11434"},
		{name: "openai custom model", provider: domain.AIProviderOpenAI, model: "text-embedding-3-large", apiKey: "sk", wantModel: "text-embedding-3-large"},
		{name: "gemini default model", provider: domain.AIProviderGemini, apiKey: "g", wantModel: "text-embedding-004"},
		{name: "openai without key", provider: domain.AIProviderOpenAI, wantErr: true},
		{name: "anthropic has no embeddings", provider: domain.AIProviderAnthropic, apiKey: "sk", wantErr: true},
		{name: "unknown provider", provider: "acme", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewSettingsService(memory.NewConfigStore(), nil)
			err := service.SetEmbeddingProvider(tt.provider, tt.model, tt.apiKey)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			settings, err := service.Get()
			require.NoError(t, err)
			assert.Equal(t, tt.provider, settings.Embedding.Provider)
			assert.Equal(t, tt.wantModel, settings.Embedding.Model)
			assert.Equal(t, tt.wantURL, settings.Embedding.BaseURL)
			assert.Equal(t, tt.apiKey, settings.Embedding.APIKey)
		})
	}
}

func TestSettingsService_SetLLMProvider(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	require.NoError(t, service.SetLLMProvider(domain.AIProviderAnthropic, "", "sk-ant"))
	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderAnthropic, settings.LLM.Provider)
	assert.Equal(t, "claude-3-5-sonnet-latest", settings.LLM.Model)
	assert.Empty(t, settings.LLM.BaseURL)

	assert.Error(t, service.SetLLMProvider(domain.AIProviderGemini, "", ""))
	assert.Error(t, service.SetLLMProvider("acme", "", ""))
}

func TestSettingsService_SetStorage(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	assert.Error(t, service.SetStorage(domain.StorageBackendPostgres, ""))
	assert.Error(t, service.SetStorage("floppy", ""))

	require.NoError(t, service.SetStorage(domain.StorageBackendPostgres, "postgres://db/rag"))
	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.StorageBackendPostgres, settings.Storage.Backend)
	assert.Equal(t, "postgres://db/rag", settings.Storage.PostgresDSN)

	require.NoError(t, service.SetStorage(domain.StorageBackendMemory, ""))
	settings, err = service.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.StorageBackendMemory, settings.Storage.Backend)
}

func TestSettingsService_SetRAGOption(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	require.NoError(t, service.SetRAGOption(domain.ConfigKeyTopK, 3))
	require.NoError(t, service.SetRAGOption(domain.ConfigKeyBatchDelay, "1s"))

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, 3, settings.RAG.TopK)
	assert.Equal(t, time.Second, settings.RAG.BatchDelay)

	err = service.SetRAGOption("nonsense", 1)
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	err = service.SetRAGOption(domain.ConfigKeyOverlap, domain.DefaultChunkSize)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	_, exists := store.Get("rag.overlap")
	assert.False(t, exists)
}

func TestSettingsService_Validate(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)
	assert.ErrorIs(t, service.Validate(), domain.ErrEmbeddingUnavailable)

	require.NoError(t, service.SetEmbeddingProvider(domain.AIProviderOllama, "", ""))
	assert.NoError(t, service.Validate())
}

func TestSettingsService_ValidateProviders(t *testing.T) {
	validator := &mockAIValidator{llmErr: errors.New("unreachable")}
	service := NewSettingsService(memory.NewConfigStore(), validator)
	require.NoError(t, service.SetEmbeddingProvider(domain.AIProviderOllama, "", ""))

	require.NoError(t, service.ValidateEmbeddingConfig())
	require.NotNil(t, validator.embedding)
	assert.Equal(t, domain.AIProviderOllama, validator.embedding.Provider)

	assert.Error(t, service.ValidateLLMConfig())

	noValidator := NewSettingsService(memory.NewConfigStore(), nil)
	assert.NoError(t, noValidator.ValidateEmbeddingConfig())
	assert.NoError(t, noValidator.ValidateLLMConfig())
}
