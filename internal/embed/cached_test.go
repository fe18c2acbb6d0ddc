package embed

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEmbedder is a test double that counts calls
type countingEmbedder struct {
	embedCalls atomic.Int64
	batchCalls atomic.Int64
	batchSizes []int
	mu         sync.Mutex
	model      string
	closed     bool
}

func (m *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.embedCalls.Add(1)
	return []float32{float32(len(text)), 1}, nil
}

func (m *countingEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.batchCalls.Add(1)
	m.mu.Lock()
	m.batchSizes = append(m.batchSizes, len(texts))
	m.mu.Unlock()
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

func (m *countingEmbedder) Dimensions() int                { return 2 }
func (m *countingEmbedder) ModelName() string              { return m.model }
func (m *countingEmbedder) Available(context.Context) bool { return !m.closed }
func (m *countingEmbedder) Close() error                   { m.closed = true; return nil }

func TestCachedEmbedder_CacheHit_SkipsInner(t *testing.T) {
	// Given: a cached embedder
	inner := &countingEmbedder{model: "m"}
	c := NewCachedEmbedder(inner, 10)

	// When: the same text is embedded twice
	v1, err := c.Embed(context.Background(), "manual")
	require.NoError(t, err)
	v2, err := c.Embed(context.Background(), "manual")
	require.NoError(t, err)

	// Then: the backend is called once
	assert.Equal(t, v1, v2)
	assert.Equal(t, int64(1), inner.embedCalls.Load())
	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestCachedEmbedder_KeyIncludesModel(t *testing.T) {
	inner := &countingEmbedder{model: "a"}
	c := NewCachedEmbedder(inner, 10)
	_, _ = c.Embed(context.Background(), "x")

	inner.model = "b"
	_, _ = c.Embed(context.Background(), "x")

	assert.Equal(t, int64(2), inner.embedCalls.Load())
}

func TestCachedEmbedder_EmbedBatch_SendsOnlyMisses(t *testing.T) {
	// Given: one text already cached
	inner := &countingEmbedder{model: "m"}
	c := NewCachedEmbedder(inner, 10)
	_, _ = c.Embed(context.Background(), "cached")

	// When: a batch mixes cached and new texts
	out, err := c.EmbedBatch(context.Background(), []string{"new1", "cached", "new22"})
	require.NoError(t, err)

	// Then: only the two misses go to the backend, order is preserved
	assert.Equal(t, []int{2}, inner.batchSizes)
	assert.Equal(t, float32(4), out[0][0])
	assert.Equal(t, float32(6), out[1][0])
	assert.Equal(t, float32(5), out[2][0])

	// And a repeat batch is served from cache
	_, err = c.EmbedBatch(context.Background(), []string{"new1", "new22"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), inner.batchCalls.Load())
}

func TestCachedEmbedder_Eviction(t *testing.T) {
	inner := &countingEmbedder{model: "m"}
	c := NewCachedEmbedder(inner, 2)
	ctx := context.Background()

	_, _ = c.Embed(ctx, "a")
	_, _ = c.Embed(ctx, "b")
	_, _ = c.Embed(ctx, "c") // evicts a
	_, _ = c.Embed(ctx, "a")

	assert.Equal(t, int64(4), inner.embedCalls.Load())
}

func TestCachedEmbedder_Passthrough(t *testing.T) {
	inner := &countingEmbedder{model: "m"}
	c := NewCachedEmbedder(inner, 0)

	assert.Equal(t, 2, c.Dimensions())
	assert.Equal(t, "m", c.ModelName())
	assert.Same(t, inner, c.Inner().(*countingEmbedder))
	require.NoError(t, c.Close())
	assert.False(t, c.Available(context.Background()))
}

func TestCachedEmbedder_ConcurrentAccess(t *testing.T) {
	c := NewCachedEmbedder(&countingEmbedder{model: "m"}, 8)
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := c.Embed(context.Background(), string(rune('a'+i%8)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
}
