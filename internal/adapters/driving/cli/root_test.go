package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// mockRAGService records calls and returns canned results.
type mockRAGService struct {
	mu sync.Mutex

	initErr   error
	addErr    error
	askErr    error
	searchErr error
	answer    *domain.Answer
	results   []domain.RetrievalResult
	info      *domain.SystemInfo
	added     int
	removed   int

	initSources []domain.DocumentSource
	addedBatch  [][]domain.DocumentSource
	removedIDs  []string
	queries     []string
	lastTopK    int
	resets      int
}

func (m *mockRAGService) Initialize(_ context.Context, sources []domain.DocumentSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initSources = sources
	return m.initErr
}

func (m *mockRAGService) AddDocuments(_ context.Context, sources []domain.DocumentSource) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addedBatch = append(m.addedBatch, sources)
	return m.added, m.addErr
}

func (m *mockRAGService) RemoveDocument(_ context.Context, source string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removedIDs = append(m.removedIDs, source)
	return m.removed, nil
}

func (m *mockRAGService) Ask(_ context.Context, query string) (*domain.Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, query)
	if m.askErr != nil {
		return nil, m.askErr
	}
	return m.answer, nil
}

func (m *mockRAGService) Search(_ context.Context, query string, topK int) ([]domain.RetrievalResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, query)
	m.lastTopK = topK
	return m.results, m.searchErr
}

func (m *mockRAGService) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets++
	return nil
}

func (m *mockRAGService) Info(_ context.Context) (*domain.SystemInfo, error) {
	if m.info == nil {
		return &domain.SystemInfo{Config: domain.DefaultRAGConfig()}, nil
	}
	return m.info, nil
}

func (m *mockRAGService) Close() error { return nil }

// mockSettingsService keeps settings in memory.
type mockSettingsService struct {
	settings    domain.AppSettings
	validateErr error
	pingErr     error
	ragSets     map[string]any
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{settings: domain.DefaultAppSettings(), ragSets: map[string]any{}}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(settings *domain.AppSettings) error {
	m.settings = *settings
	return nil
}

func (m *mockSettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	m.settings.Embedding = domain.EmbeddingSettings{Provider: provider, Model: model, APIKey: apiKey}
	return nil
}

func (m *mockSettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	m.settings.LLM = domain.LLMSettings{Provider: provider, Model: model, APIKey: apiKey}
	return nil
}

func (m *mockSettingsService) SetStorage(backend domain.StorageBackend, dsn string) error {
	if !backend.IsValid() {
		return domain.ErrConfiguration
	}
	m.settings.Storage.Backend = backend
	m.settings.Storage.PostgresDSN = dsn
	return nil
}

func (m *mockSettingsService) SetRAGOption(key string, value any) error {
	if err := m.settings.RAG.Set(key, value); err != nil {
		return err
	}
	m.ragSets[key] = value
	return nil
}

func (m *mockSettingsService) Validate() error                 { return m.validateErr }
func (m *mockSettingsService) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }
func (m *mockSettingsService) ValidateEmbeddingConfig() error  { return m.pingErr }
func (m *mockSettingsService) ValidateLLMConfig() error        { return m.pingErr }

// mockManifestLoader returns fixed sources.
type mockManifestLoader struct {
	sources []domain.DocumentSource
	err     error
}

func (m *mockManifestLoader) Load(_ string) ([]domain.DocumentSource, error) {
	return m.sources, m.err
}

// mockWatcher replays changes and then closes the channel.
type mockWatcher struct {
	changes []domain.DocumentChange
	root    string
	closed  bool
}

func (m *mockWatcher) Watch(_ context.Context, root string) (<-chan domain.DocumentChange, error) {
	m.root = root
	ch := make(chan domain.DocumentChange, len(m.changes))
	for _, c := range m.changes {
		ch <- c
	}
	close(ch)
	return ch, nil
}

func (m *mockWatcher) Close() error {
	m.closed = true
	return nil
}

type testServices struct {
	rag      *mockRAGService
	settings *mockSettingsService
	manifest *mockManifestLoader
	watcher  *mockWatcher
}

var testMocks testServices

// setupTestServices installs fresh mocks and returns a cleanup that
// restores the package state.
func setupTestServices() func() {
	testMocks = testServices{
		rag: &mockRAGService{
			answer: &domain.Answer{
				Text:       "Returns are accepted within 30 days.",
				Mode:       domain.RetrievalModeGrounded,
				Confidence: domain.ConfidenceFor(2),
				Sources:    []string{"refunds.pdf"},
			},
			results: []domain.RetrievalResult{
				{Chunk: domain.Chunk{Source: "refunds.pdf", Text: "Returns are accepted\nwithin 30 days."}, Similarity: 0.82},
			},
		},
		settings: newMockSettingsService(),
		manifest: &mockManifestLoader{},
		watcher:  &mockWatcher{},
	}

	SetServices(Services{
		RAG:      testMocks.rag,
		Settings: testMocks.settings,
		Manifest: testMocks.manifest,
		Watcher:  testMocks.watcher,
	})
	manifestPath = "documents.yaml"

	return func() {
		ragService = nil
		ragFactory = nil
		settingsService = nil
		manifestLoader = nil
		documentWatcher = nil
		manifestPath = ""
		stdin = os.Stdin
		resetFlags()
	}
}

// resetFlags restores flag variables shared across executions of rootCmd.
func resetFlags() {
	searchLimit = 5
	searchJSON = false
	askJSON = false
	infoJSON = false
	resetForce = false
	addName, addType, addDescription = "", "", ""
	addPriority = 0
	addSave = false
	verbose = false
}

// execute runs rootCmd with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "sercha-rag", rootCmd.Use)
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("verbose"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("manifest"))
}

func TestRootCmd_HasCommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"init", "add", "remove", "ask", "search", "info", "reset", "watch", "settings", "mcp", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestCommands_RequireRAGService(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	ragService = nil

	for _, args := range [][]string{
		{"init"},
		{"ask", "What is the refund window?"},
		{"search", "refunds"},
		{"info"},
		{"remove", "refunds.pdf"},
	} {
		_, err := execute(t, args...)
		require.Error(t, err, "args %v", args)
		assert.Contains(t, err.Error(), "rag service not configured")
	}
}

func TestRequireRAG_Factory(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	ragService = nil

	calls := 0
	ragFactory = func(context.Context) (driving.RAGService, error) {
		calls++
		return testMocks.rag, nil
	}
	_, err := execute(t, "search", "refund window")
	require.NoError(t, err)
	_, err = execute(t, "search", "refund window")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	ragService = nil
	ragFactory = func(context.Context) (driving.RAGService, error) {
		return nil, domain.ErrEmbeddingUnavailable
	}
	_, err = execute(t, "ask", "What is the refund window?")
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestSetVersion(t *testing.T) {
	original := version
	defer func() { version = original }()

	SetVersion("")
	assert.Equal(t, original, version)
	SetVersion("1.2.3")
	assert.Equal(t, "1.2.3", version)
}

func TestSourcesFromArgs(t *testing.T) {
	dir := t.TempDir()
	write := func(rel string) string {
		p := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("content"), 0o644))
		return p
	}
	guide := write("guide.md")
	write("nested/faq.html")
	write("nested/image.png")
	write(".hidden/secret.txt")

	t.Run("single file with name", func(t *testing.T) {
		sources, err := sourcesFromArgs([]string{guide}, "Guide", "", 2)
		require.NoError(t, err)
		require.Len(t, sources, 1)
		assert.Equal(t, guide, sources[0].Path)
		assert.Equal(t, "Guide", sources[0].Name)
		assert.Equal(t, 2, sources[0].Priority)
	})

	t.Run("directory is walked", func(t *testing.T) {
		sources, err := sourcesFromArgs([]string{dir}, "ignored", "", 0)
		require.NoError(t, err)

		var paths []string
		for _, s := range sources {
			paths = append(paths, strings.TrimPrefix(s.Path, dir))
			assert.Empty(t, s.Name)
		}
		assert.ElementsMatch(t, []string{"/guide.md", "/nested/faq.html"}, paths)
	})

	t.Run("url passes through", func(t *testing.T) {
		sources, err := sourcesFromArgs([]string{"https://example.com/faq.html"}, "", "", 0)
		require.NoError(t, err)
		require.Len(t, sources, 1)
		assert.Equal(t, "https://example.com/faq.html", sources[0].Path)
	})

	t.Run("type override", func(t *testing.T) {
		p := write("notes.log")
		sources, err := sourcesFromArgs([]string{p}, "", domain.DocumentTypeText, 0)
		require.NoError(t, err)
		assert.Equal(t, domain.DocumentTypeText, sources[0].ResolvedType())
	})

	t.Run("unsupported file", func(t *testing.T) {
		_, err := sourcesFromArgs([]string{filepath.Join(dir, "nested/image.png")}, "", "", 0)
		assert.ErrorIs(t, err, domain.ErrUnsupportedType)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := sourcesFromArgs([]string{filepath.Join(dir, "nope.md")}, "", "", 0)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestManifestSources(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	t.Run("missing manifest yields nothing", func(t *testing.T) {
		testMocks.manifest.err = domain.ErrNotFound
		defer func() { testMocks.manifest.err = nil }()

		sources, err := manifestSources()
		require.NoError(t, err)
		assert.Nil(t, sources)
	})

	t.Run("invalid manifest", func(t *testing.T) {
		testMocks.manifest.err = domain.ErrConfiguration
		defer func() { testMocks.manifest.err = nil }()

		_, err := manifestSources()
		assert.ErrorIs(t, err, domain.ErrConfiguration)
	})

	t.Run("no manifest configured", func(t *testing.T) {
		manifestPath = ""
		sources, err := manifestSources()
		require.NoError(t, err)
		assert.Nil(t, sources)
	})
}
