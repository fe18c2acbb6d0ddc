package embed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmbedder_Providers(t *testing.T) {
	t.Setenv("AMANDOCS_EMBEDDER", "")

	t.Run("none", func(t *testing.T) {
		e, err := NewEmbedder(Config{Provider: ProviderNone})
		require.NoError(t, err)
		assert.Nil(t, e)
	})

	t.Run("static is cached", func(t *testing.T) {
		e, err := NewEmbedder(Config{Provider: ProviderStatic, Dimensions: 64})
		require.NoError(t, err)
		cached, ok := e.(*CachedEmbedder)
		require.True(t, ok)
		assert.IsType(t, &StaticEmbedder{}, cached.Inner())
		assert.Equal(t, 64, e.Dimensions())
	})

	t.Run("openai with key", func(t *testing.T) {
		t.Setenv("TEST_EMBED_KEY", "sk-x")
		e, err := NewEmbedder(Config{Provider: ProviderOpenAI, APIKeyEnv: "TEST_EMBED_KEY"})
		require.NoError(t, err)
		assert.IsType(t, &APIEmbedder{}, e.(*CachedEmbedder).Inner())
	})

	t.Run("openai without key falls back to static", func(t *testing.T) {
		t.Setenv("TEST_EMBED_KEY", "")
		e, err := NewEmbedder(Config{Provider: ProviderOpenAI, APIKeyEnv: "TEST_EMBED_KEY", Dimensions: 1536})
		require.NoError(t, err)
		assert.IsType(t, &StaticEmbedder{}, e.(*CachedEmbedder).Inner())
		assert.Equal(t, 1536, e.Dimensions())
	})

	t.Run("self-hosted endpoint needs no key", func(t *testing.T) {
		t.Setenv("TEST_EMBED_KEY", "")
		e, err := NewEmbedder(Config{Provider: ProviderOpenAI, APIKeyEnv: "TEST_EMBED_KEY", Endpoint: "http://localhost:8080/v1"})
		require.NoError(t, err)
		assert.IsType(t, &APIEmbedder{}, e.(*CachedEmbedder).Inner())
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := NewEmbedder(Config{Provider: "word2vec"})
		assert.Error(t, err)
	})
}

func TestNewEmbedder_EnvOverride(t *testing.T) {
	t.Setenv("AMANDOCS_EMBEDDER", "NONE")

	e, err := NewEmbedder(Config{Provider: ProviderStatic})

	require.NoError(t, err)
	assert.Nil(t, e)
}
