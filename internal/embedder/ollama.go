package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/vecturakit/vectura/internal/vectormath"
	"github.com/vecturakit/vectura/internal/verrors"
)

const (
	// DefaultOllamaHost is used when the host is not configured and
	// VECTURA_EMBED_HOST is unset.
	DefaultOllamaHost = "http://localhost:11434"
	// DefaultOllamaModel is the model requested when none is configured.
	DefaultOllamaModel = "nomic-embed-text"
	// DefaultOllamaTimeout bounds a single embed request.
	DefaultOllamaTimeout = 30 * time.Second
	// DefaultOllamaMaxRetries bounds retry attempts on transient failure.
	DefaultOllamaMaxRetries = 3

	// EnvEmbedHost overrides the configured Ollama host, grounded on the
	// teacher's environment-driven embedder selection
	// (internal/embed/factory.go).
	EnvEmbedHost = "VECTURA_EMBED_HOST"
)

// OllamaConfig configures an Ollama embedder.
type OllamaConfig struct {
	Host       string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

func (c OllamaConfig) withDefaults() OllamaConfig {
	if c.Host == "" {
		c.Host = os.Getenv(EnvEmbedHost)
	}
	if c.Host == "" {
		c.Host = DefaultOllamaHost
	}
	if c.Model == "" {
		c.Model = DefaultOllamaModel
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultOllamaTimeout
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultOllamaMaxRetries
	}
	return c
}

type ollamaEmbedRequest struct {
	Model string `json:"model"`
	Input any    `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

// Ollama embeds text via a running Ollama server's /api/embed endpoint.
// Grounded on the teacher's OllamaEmbedder, trimmed of its thermal/GPU
// timeout-progression logic, which has no analogue outside that project's
// Apple Silicon indexing workload.
type Ollama struct {
	client *http.Client
	config OllamaConfig

	mu   sync.RWMutex
	dims int
}

// NewOllama creates an Ollama embedder. Dimensions are detected lazily
// by a probe request on the first Dimensions call.
func NewOllama(cfg OllamaConfig) *Ollama {
	cfg = cfg.withDefaults()
	return &Ollama{
		client: &http.Client{},
		config: cfg,
	}
}

// Dimensions returns the embedding dimension, probing the server with a
// throwaway embed request the first time it is needed.
func (o *Ollama) Dimensions(ctx context.Context) (int, error) {
	o.mu.RLock()
	dims := o.dims
	o.mu.RUnlock()
	if dims > 0 {
		return dims, nil
	}

	emb, err := o.embedRaw(ctx, "dimension probe")
	if err != nil {
		return 0, err
	}

	o.mu.Lock()
	o.dims = len(emb)
	o.mu.Unlock()

	return len(emb), nil
}

// Embed generates the embedding for a single text.
func (o *Ollama) Embed(ctx context.Context, text string) ([]float32, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		dims, err := o.Dimensions(ctx)
		if err != nil {
			return nil, err
		}
		return make([]float32, dims), nil
	}

	raw, err := o.embedRaw(ctx, text)
	if err != nil {
		return nil, err
	}

	normalized, err := vectormath.Normalize(raw)
	if err != nil {
		return raw, nil
	}
	return normalized, nil
}

// EmbedBatch generates embeddings for multiple texts, one request per
// text. Ollama's batch endpoint accepts an array input, but requests are
// issued sequentially to keep retry/timeout behavior uniform with Embed.
func (o *Ollama) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := o.Embed(ctx, text)
		if err != nil {
			return nil, verrors.LoadFailed(fmt.Sprintf("embed text %d via ollama", i), err)
		}
		out[i] = emb
	}
	return out, nil
}

// embedRaw performs the HTTP call with retry and exponential backoff,
// grounded on the teacher's doEmbedWithRetry.
func (o *Ollama) embedRaw(ctx context.Context, text string) ([]float32, error) {
	var lastErr error

	for attempt := 0; attempt < o.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100<<attempt) * time.Millisecond
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		timeoutCtx, cancel := context.WithTimeout(ctx, o.config.Timeout)
		emb, err := o.doEmbed(timeoutCtx, text)
		cancel()
		if err == nil {
			return emb, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, verrors.LoadFailed(fmt.Sprintf("ollama embed failed after %d attempts", o.config.MaxRetries), lastErr)
}

func (o *Ollama) doEmbed(ctx context.Context, text string) ([]float32, error) {
	reqBody := ollamaEmbedRequest{Model: o.config.Model, Input: text}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.config.Host+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connect to ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama embed status %d: %s", resp.StatusCode, string(respBody))
	}

	var result ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode ollama response: %w", err)
	}
	if len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("ollama returned no embeddings")
	}

	raw := result.Embeddings[0]
	out := make([]float32, len(raw))
	for i, v := range raw {
		out[i] = float32(v)
	}
	return out, nil
}

var _ Embedder = (*Ollama)(nil)
