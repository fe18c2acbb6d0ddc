// Package embed turns document heads and queries into vectors for the
// vector store. Three backends exist: a remote OpenAI-compatible API, a
// local hash-based fallback, and none at all.
package embed

import (
	"context"
	"math"
	"time"
)

const (
	// DefaultBatchSize is the number of texts sent per API request.
	DefaultBatchSize = 32

	// MaxBatchSize caps batch requests.
	MaxBatchSize = 256

	// DefaultTimeout bounds a single API request.
	DefaultTimeout = 30 * time.Second

	// DefaultRequestsPerSecond throttles the remote API.
	DefaultRequestsPerSecond = 5.0

	// StaticDimensions is the default width of hash-based vectors.
	StaticDimensions = 256

	// DefaultAPIDimensions is text-embedding-3-small's native width.
	DefaultAPIDimensions = 1536
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates embedding for a single text
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension
	Dimensions() int

	// ModelName returns the model identifier
	ModelName() string

	// Available checks if the embedder is ready
	Available(ctx context.Context) bool

	// Close releases resources
	Close() error
}

// normalizeVector returns v scaled to unit length.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
