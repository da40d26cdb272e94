package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *EmbeddingService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := NewEmbeddingService(Config{APIKey: "sk-test", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)
	return svc
}

func TestNewEmbeddingService_Defaults(t *testing.T) {
	_, err := NewEmbeddingService(Config{})
	assert.Error(t, err)

	svc, err := NewEmbeddingService(Config{APIKey: "sk"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, svc.ModelName())
	assert.Equal(t, 1536, svc.Dimensions())

	gemini, err := NewEmbeddingService(Config{APIKey: "g", BaseURL: GeminiBaseURL, Model: "text-embedding-004", Name: "gemini"})
	require.NoError(t, err)
	assert.Equal(t, 768, gemini.Dimensions())

	custom, err := NewEmbeddingService(Config{APIKey: "sk", Model: "custom", Dimensions: 42})
	require.NoError(t, err)
	assert.Equal(t, 42, custom.Dimensions())
}

func TestEmbeddingService_EmbedBatch_OrdersByIndex(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	svc := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","model":"text-embedding-3-small","data":[
			{"object":"embedding","index":1,"embedding":[0.3,0.4]},
			{"object":"embedding","index":0,"embedding":[0.1,0.2]}]}`))
	})

	vecs, err := svc.EmbedBatch(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.InDeltaSlice(t, []float32{0.1, 0.2}, vecs[0], 1e-6)
	assert.InDeltaSlice(t, []float32{0.3, 0.4}, vecs[1], 1e-6)

	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "text-embedding-3-small", gotBody["model"])
	assert.EqualValues(t, 1536, gotBody["dimensions"])
}

func TestEmbeddingService_EmbedBatch_Empty(t *testing.T) {
	svc := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Error("no request expected")
	})
	vecs, err := svc.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
}

func TestEmbeddingService_EmbedBatch_CountMismatch(t *testing.T) {
	svc := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[1]}]}`))
	})
	_, err := svc.EmbedBatch(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, domain.ErrExternalService)
}

func TestEmbeddingService_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, want: domain.ErrRateLimited},
		{name: "unauthorised", status: http.StatusUnauthorized, want: domain.ErrExternalService},
		{name: "server error", status: http.StatusInternalServerError, want: domain.ErrExternalService},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"error"}}`))
			})
			_, err := svc.Embed(context.Background(), "hello")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEmbeddingService_Ping(t *testing.T) {
	svc := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[]}`))
	})
	assert.NoError(t, svc.Ping(context.Background()))
	assert.NoError(t, svc.Close())
}
