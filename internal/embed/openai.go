package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	amanerrors "github.com/Aman-CERP/amandocs/internal/errors"
)

const (
	// DefaultAPIEndpoint is the OpenAI API base URL.
	DefaultAPIEndpoint = "https://api.openai.com/v1"

	// DefaultAPIModel is the default remote embedding model.
	DefaultAPIModel = "text-embedding-3-small"

	apiPoolSize = 4
)

// APIConfig configures the remote embedder.
type APIConfig struct {
	// Endpoint is the API base URL; "/embeddings" is appended.
	Endpoint string

	// Model is the embedding model name.
	Model string

	// APIKey is sent as a bearer token when set.
	APIKey string

	// Dimensions requests a reduced width from models that support it.
	// 0 uses DefaultAPIDimensions.
	Dimensions int

	// BatchSize caps texts per request.
	BatchSize int

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// RequestsPerSecond throttles requests; burst is one.
	RequestsPerSecond float64

	// Retry controls backoff on transient failures.
	Retry amanerrors.RetryConfig
}

// DefaultAPIConfig returns the configuration for text-embedding-3-small.
func DefaultAPIConfig() APIConfig {
	return APIConfig{
		Endpoint:          DefaultAPIEndpoint,
		Model:             DefaultAPIModel,
		Dimensions:        DefaultAPIDimensions,
		BatchSize:         DefaultBatchSize,
		Timeout:           DefaultTimeout,
		RequestsPerSecond: DefaultRequestsPerSecond,
		Retry:             amanerrors.NetworkRetryConfig(),
	}
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// APIEmbedder calls an OpenAI-compatible /embeddings endpoint. Requests are
// rate limited, retried on transient failures, and short-circuited while
// the backend keeps failing.
type APIEmbedder struct {
	client    *http.Client
	transport *http.Transport
	config    APIConfig
	limiter   *rate.Limiter
	breaker   *amanerrors.CircuitBreaker

	mu     sync.RWMutex
	closed bool
}

var _ Embedder = (*APIEmbedder)(nil)

// NewAPIEmbedder creates a remote embedder. No request is made until the
// first Embed call.
func NewAPIEmbedder(cfg APIConfig) (*APIEmbedder, error) {
	def := DefaultAPIConfig()
	if cfg.Endpoint == "" {
		cfg.Endpoint = def.Endpoint
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = def.Dimensions
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.BatchSize > MaxBatchSize {
		cfg.BatchSize = MaxBatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = def.RequestsPerSecond
	}
	if cfg.Retry.Multiplier == 0 {
		cfg.Retry = def.Retry
	}
	if !strings.HasPrefix(cfg.Endpoint, "http://") && !strings.HasPrefix(cfg.Endpoint, "https://") {
		return nil, amanerrors.ConfigError("embedding endpoint must be an http(s) URL: "+cfg.Endpoint, nil)
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")

	// Per-request deadlines come from the context, not the client.
	transport := &http.Transport{
		MaxIdleConns:        apiPoolSize,
		MaxIdleConnsPerHost: apiPoolSize,
		IdleConnTimeout:     10 * time.Second,
	}

	return &APIEmbedder{
		client:    &http.Client{Transport: transport},
		transport: transport,
		config:    cfg,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		breaker: amanerrors.NewCircuitBreaker("embeddings",
			amanerrors.WithMaxFailures(5),
			amanerrors.WithResetTimeout(30*time.Second),
			amanerrors.WithFailureFilter(amanerrors.IsRetryable)),
	}, nil
}

// Embed generates embedding for a single text.
func (e *APIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in request-sized batches. Blank texts get a zero
// vector without a request.
func (e *APIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, fmt.Errorf("embedder is closed")
	}

	results := make([][]float32, len(texts))
	var idx []int
	var pending []string
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			results[i] = make([]float32, e.config.Dimensions)
			continue
		}
		idx = append(idx, i)
		pending = append(pending, text)
	}

	for start := 0; start < len(pending); start += e.config.BatchSize {
		end := min(start+e.config.BatchSize, len(pending))

		vecs, err := amanerrors.RetryWithResult(ctx, e.config.Retry, func() ([][]float32, error) {
			if err := e.limiter.Wait(ctx); err != nil {
				return nil, err
			}
			return amanerrors.CircuitDo(e.breaker, func() ([][]float32, error) {
				return e.request(ctx, pending[start:end])
			})
		})
		if err != nil {
			return nil, err
		}
		for j, v := range vecs {
			results[idx[start+j]] = v
		}
	}
	return results, nil
}

// request performs one POST and classifies failures: throttling, server
// errors and transport errors are retryable, everything else is not.
func (e *APIEmbedder) request(ctx context.Context, inputs []string) ([][]float32, error) {
	body, err := json.Marshal(embeddingRequest{
		Model:      e.config.Model,
		Input:      inputs,
		Dimensions: e.requestedDimensions(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, e.config.Endpoint+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.config.APIKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, amanerrors.NetworkError("embedding request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, statusError(resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, amanerrors.New(amanerrors.ErrCodeEmbeddingFailed, "failed to decode embedding response", err)
	}
	if out.Error != nil {
		return nil, amanerrors.New(amanerrors.ErrCodeEmbeddingFailed, out.Error.Message, nil)
	}
	if len(out.Data) != len(inputs) {
		return nil, amanerrors.New(amanerrors.ErrCodeEmbeddingFailed,
			fmt.Sprintf("expected %d embeddings, got %d", len(inputs), len(out.Data)), nil)
	}

	sort.Slice(out.Data, func(i, j int) bool { return out.Data[i].Index < out.Data[j].Index })
	vecs := make([][]float32, len(out.Data))
	for i, d := range out.Data {
		if len(d.Embedding) != e.config.Dimensions {
			return nil, amanerrors.New(amanerrors.ErrCodeDimensionMismatch,
				fmt.Sprintf("model returned %d dimensions, configured %d", len(d.Embedding), e.config.Dimensions), nil)
		}
		vecs[i] = d.Embedding
	}

	slog.Debug("embedding_batch_complete",
		slog.String("model", e.config.Model),
		slog.Int("texts", len(inputs)))
	return vecs, nil
}

// requestedDimensions omits the field for the model's native width so
// older models that reject it still work.
func (e *APIEmbedder) requestedDimensions() int {
	if e.config.Dimensions == DefaultAPIDimensions {
		return 0
	}
	return e.config.Dimensions
}

func statusError(code int, body string) error {
	msg := fmt.Sprintf("embedding API returned %d", code)
	if body != "" {
		msg += ": " + body
	}
	switch {
	case code == http.StatusTooManyRequests || code >= 500:
		return amanerrors.New(amanerrors.ErrCodeEmbeddingAPI, msg, nil)
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return amanerrors.New(amanerrors.ErrCodeEmbeddingFailed, msg, nil).
			WithSuggestion("check the API key environment variable named by embeddings.api_key_env")
	default:
		return amanerrors.New(amanerrors.ErrCodeEmbeddingFailed, msg, nil)
	}
}

// Dimensions returns the embedding dimension.
func (e *APIEmbedder) Dimensions() int {
	return e.config.Dimensions
}

// ModelName returns the model identifier.
func (e *APIEmbedder) ModelName() string {
	return e.config.Model
}

// Available reports false once closed or while the circuit is open.
func (e *APIEmbedder) Available(_ context.Context) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return !e.closed && e.breaker.Allow()
}

// Close releases idle connections.
func (e *APIEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		e.transport.CloseIdleConnections()
	}
	return nil
}
