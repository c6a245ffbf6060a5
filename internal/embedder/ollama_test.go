package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newOllamaTestServer(t *testing.T, dims int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		vec := make([]float64, dims)
		for i := range vec {
			vec[i] = 1.0
		}
		_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: [][]float64{vec}})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOllamaEmbedNormalizes(t *testing.T) {
	srv := newOllamaTestServer(t, 4)
	o := NewOllama(OllamaConfig{Host: srv.URL})

	emb, err := o.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	require.Len(t, emb, 4)

	var sumSquares float64
	for _, v := range emb {
		sumSquares += float64(v) * float64(v)
	}
	require.InDelta(t, 1.0, sumSquares, 1e-4)
}

func TestOllamaDimensionsProbesLazily(t *testing.T) {
	srv := newOllamaTestServer(t, 8)
	o := NewOllama(OllamaConfig{Host: srv.URL})

	dims, err := o.Dimensions(context.Background())
	require.NoError(t, err)
	require.Equal(t, 8, dims)
}

func TestOllamaEmbedServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	o := NewOllama(OllamaConfig{Host: srv.URL, MaxRetries: 1})

	_, err := o.Embed(context.Background(), "hello")
	require.Error(t, err)
}

func TestOllamaEmbedEmptyTextReturnsZeroVector(t *testing.T) {
	srv := newOllamaTestServer(t, 4)
	o := NewOllama(OllamaConfig{Host: srv.URL})

	emb, err := o.Embed(context.Background(), "   ")
	require.NoError(t, err)
	require.Len(t, emb, 4)
	for _, v := range emb {
		require.Zero(t, v)
	}
}

func TestOllamaHostFromEnv(t *testing.T) {
	t.Setenv(EnvEmbedHost, "http://example.invalid:11434")
	cfg := OllamaConfig{}.withDefaults()
	require.Equal(t, "http://example.invalid:11434", cfg.Host)
}
