package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

func TestLLMService_Generate(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(generateResponse{Response: "June 1.", Done: true})
	}))
	defer srv.Close()

	svc := NewLLMService(LLMConfig{BaseURL: srv.URL})
	out, err := svc.Generate(context.Background(), "When?", driven.GenerateOptions{MaxTokens: 50, Temperature: 0.2})
	require.NoError(t, err)

	assert.Equal(t, "June 1.", out)
	assert.Equal(t, DefaultLLMModel, got.Model)
	assert.False(t, got.Stream)
	require.NotNil(t, got.Options)
	assert.Equal(t, 50, got.Options.NumPredict)
	assert.InDelta(t, 0.2, got.Options.Temperature, 1e-9)
}

func TestLLMService_Generate_NoOptions(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&raw)
		_, _ = w.Write([]byte(`{"response":"ok","done":true}`))
	}))
	defer srv.Close()

	_, err := NewLLMService(LLMConfig{BaseURL: srv.URL}).Generate(context.Background(), "p", driven.GenerateOptions{})
	require.NoError(t, err)
	assert.NotContains(t, raw, "options")
}

func TestLLMService_Generate_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewLLMService(LLMConfig{BaseURL: srv.URL}).Generate(context.Background(), "p", driven.GenerateOptions{})
	assert.ErrorIs(t, err, domain.ErrExternalService)

	bodyErr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"error":"model not loaded"}`))
	}))
	defer bodyErr.Close()

	_, err = NewLLMService(LLMConfig{BaseURL: bodyErr.URL}).Generate(context.Background(), "p", driven.GenerateOptions{})
	assert.ErrorIs(t, err, domain.ErrExternalService)
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestLLMService_Ping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	svc := NewLLMService(LLMConfig{BaseURL: srv.URL, Model: "mistral"})

	assert.Equal(t, "mistral", svc.ModelName())
	assert.NoError(t, svc.Ping(context.Background()))

	srv.Close()
	assert.Error(t, svc.Ping(context.Background()))
	assert.NoError(t, svc.Close())
}
