package embed

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// ProviderType represents an embedding provider
type ProviderType string

const (
	// ProviderOpenAI calls an OpenAI-compatible embeddings API.
	ProviderOpenAI ProviderType = "openai"

	// ProviderStatic uses hash-based embeddings, fully offline.
	ProviderStatic ProviderType = "static"

	// ProviderNone disables vector search.
	ProviderNone ProviderType = "none"
)

// DefaultAPIKeyEnv names the variable holding the API key.
const DefaultAPIKeyEnv = "OPENAI_API_KEY"

// Config selects and configures an embedder.
type Config struct {
	Provider          ProviderType
	Model             string
	Endpoint          string
	APIKeyEnv         string
	Dimensions        int
	CacheSize         int
	RequestsPerSecond float64
}

// NewEmbedder builds the configured embedder wrapped in an LRU cache. It
// returns (nil, nil) for ProviderNone. AMANDOCS_EMBEDDER overrides the
// configured provider.
//
// Choosing openai without an API key falls back to the static embedder with
// a warning, the same way the original indexer degraded when no client was
// available.
func NewEmbedder(cfg Config) (Embedder, error) {
	if env := os.Getenv("AMANDOCS_EMBEDDER"); env != "" {
		cfg.Provider = ProviderType(strings.ToLower(env))
	}

	var embedder Embedder
	switch cfg.Provider {
	case ProviderNone:
		return nil, nil

	case ProviderStatic, "":
		embedder = NewStaticEmbedder(cfg.Dimensions)

	case ProviderOpenAI:
		keyEnv := cfg.APIKeyEnv
		if keyEnv == "" {
			keyEnv = DefaultAPIKeyEnv
		}
		key := os.Getenv(keyEnv)
		if key == "" && isHostedOpenAI(cfg.Endpoint) {
			slog.Warn("embedding_api_key_missing",
				slog.String("env", keyEnv),
				slog.String("fallback", string(ProviderStatic)))
			embedder = NewStaticEmbedder(cfg.Dimensions)
			break
		}

		api, err := NewAPIEmbedder(APIConfig{
			Endpoint:          cfg.Endpoint,
			Model:             cfg.Model,
			APIKey:            key,
			Dimensions:        cfg.Dimensions,
			RequestsPerSecond: cfg.RequestsPerSecond,
		})
		if err != nil {
			return nil, err
		}
		embedder = api

	default:
		return nil, fmt.Errorf("unknown embedding provider %q (want openai, static or none)", cfg.Provider)
	}

	return NewCachedEmbedder(embedder, cfg.CacheSize), nil
}

// isHostedOpenAI reports whether endpoint is the public API, which always
// needs a key. Self-hosted compatible servers often do not.
func isHostedOpenAI(endpoint string) bool {
	return endpoint == "" || strings.Contains(endpoint, "api.openai.com")
}
