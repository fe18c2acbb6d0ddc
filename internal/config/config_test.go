package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	amanerrors "github.com/Aman-CERP/amandocs/internal/errors"
)

// isolate points the user config at an empty temp dir and clears overrides.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, k := range []string{
		"AMANDOCS_DATA_DIR", "AMANDOCS_LOG_DIR", "AMANDOCS_SOURCE", "AMANDOCS_SOURCE_ROOT",
		"AMANDOCS_S3_ENDPOINT", "AMANDOCS_S3_BUCKET", "AMANDOCS_S3_USE_SSL",
		"AMANDOCS_LOCK_MAX_AGE", "AMANDOCS_QUERY_TIMEOUT", "AMANDOCS_USE_VECTOR",
		"AMANDOCS_EMBEDDINGS_PROVIDER", "AMANDOCS_EMBEDDER", "AMANDOCS_EMBEDDINGS_MODEL",
		"AMANDOCS_EMBEDDINGS_ENDPOINT", "AMANDOCS_LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// =============================================================================
// AC01: Default Configuration Tests
// =============================================================================

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	// Given: no configuration file exists
	cfg := NewConfig()

	// Then: all defaults should be applied
	require.NotNil(t, cfg)
	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, SourceLocal, cfg.Source.Kind)
	assert.True(t, cfg.Source.S3.UseSSL)
	assert.Equal(t, 10*time.Minute, cfg.Index.LockMaxAge)
	assert.Equal(t, 1500, cfg.Index.EmbedPrefixChars)
	assert.Equal(t, 1800*time.Millisecond, cfg.Search.QueryTimeout)
	assert.Equal(t, 50, cfg.Search.DefaultLimit)
	assert.Equal(t, 10, cfg.Search.VectorK)
	assert.False(t, cfg.Search.UseVector)
	assert.Equal(t, "static", cfg.Embeddings.Provider)
	assert.Equal(t, "info", cfg.Logging.Level)

	// And: the defaults validate
	assert.NoError(t, cfg.Validate())
}

func TestConfig_DerivedPaths(t *testing.T) {
	cfg := NewConfig()
	cfg.Paths.DataDir = "/var/amandocs"

	assert.Equal(t, "/var/amandocs/index.db", cfg.IndexPath())
	assert.Equal(t, "/var/amandocs/vectors", cfg.VectorDir())
	assert.Equal(t, "/var/amandocs/locks", cfg.LockDir())
}

func TestConfig_ExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	cfg := NewConfig()
	cfg.Paths.DataDir = "~/idx"

	assert.Equal(t, filepath.Join(home, "idx"), cfg.DataDir())
}

// =============================================================================
// AC02: Layered Loading
// =============================================================================

func TestLoad_NoFiles_UsesDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, NewConfig().Search, cfg.Search)
}

func TestLoad_ProjectOverridesUser(t *testing.T) {
	isolate(t)
	writeFile(t, GetUserConfigPath(), `
source:
  kind: local
  root: /srv/user
search:
  default_limit: 20
  query_timeout: 3s
`)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".amandocs.yaml"), `
source:
  root: /srv/project
index:
  lock_max_age: 30m
  ignore: ["~$*"]
`)

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, "/srv/project", cfg.Source.Root)
	assert.Equal(t, 20, cfg.Search.DefaultLimit)
	assert.Equal(t, 3*time.Second, cfg.Search.QueryTimeout)
	assert.Equal(t, 30*time.Minute, cfg.Index.LockMaxAge)
	assert.Equal(t, []string{"~$*"}, cfg.Index.Ignore)
}

func TestLoad_YmlFallback(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".amandocs.yml"), "search:\n  vector_k: 7\n")

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Search.VectorK)
}

func TestLoad_EnvOverridesFiles(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".amandocs.yaml"), "logging:\n  level: warn\n")
	t.Setenv("AMANDOCS_LOG_LEVEL", "debug")
	t.Setenv("AMANDOCS_EMBEDDER", "none")
	t.Setenv("AMANDOCS_QUERY_TIMEOUT", "500ms")
	t.Setenv("AMANDOCS_USE_VECTOR", "true")

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "none", cfg.Embeddings.Provider)
	assert.Equal(t, 500*time.Millisecond, cfg.Search.QueryTimeout)
	assert.True(t, cfg.Search.UseVector)
}

func TestLoad_IgnoresUnparseableEnv(t *testing.T) {
	isolate(t)
	t.Setenv("AMANDOCS_LOCK_MAX_AGE", "soon")

	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, cfg.Index.LockMaxAge)
}

func TestLoad_MalformedYAML(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".amandocs.yaml"), "search: [unclosed")

	_, err := Load(dir)

	assert.Equal(t, amanerrors.ErrCodeConfigInvalid, amanerrors.GetCode(err))
}

// =============================================================================
// AC03: Validation
// =============================================================================

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown source", func(c *Config) { c.Source.Kind = "ftp" }},
		{"s3 without bucket", func(c *Config) {
			c.Source.Kind = SourceS3
			c.Source.S3.Endpoint = "localhost:9000"
		}},
		{"zero lock age", func(c *Config) { c.Index.LockMaxAge = 0 }},
		{"zero query timeout", func(c *Config) { c.Search.QueryTimeout = 0 }},
		{"default above max", func(c *Config) { c.Search.DefaultLimit = 900 }},
		{"unknown provider", func(c *Config) { c.Embeddings.Provider = "ollama" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)

			err := cfg.Validate()

			require.Error(t, err)
			assert.Equal(t, amanerrors.ErrCodeConfigInvalid, amanerrors.GetCode(err))
		})
	}
}

func TestValidate_AcceptsS3(t *testing.T) {
	cfg := NewConfig()
	cfg.Source.Kind = SourceS3
	cfg.Source.S3.Endpoint = "localhost:9000"
	cfg.Source.S3.Bucket = "docs"

	assert.NoError(t, cfg.Validate())
}

// =============================================================================
// AC04: Writing
// =============================================================================

func TestWriteYAML_RoundTripsThroughLoad(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	cfg := NewConfig()
	cfg.Source.Root = "/srv/files"
	cfg.Search.QueryTimeout = 2500 * time.Millisecond

	require.NoError(t, cfg.WriteYAML(filepath.Join(dir, ".amandocs.yaml")))
	loaded, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, "/srv/files", loaded.Source.Root)
	assert.Equal(t, 2500*time.Millisecond, loaded.Search.QueryTimeout)
}
