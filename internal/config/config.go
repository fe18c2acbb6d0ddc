// Package config provides configuration loading for amandocs.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	amanerrors "github.com/Aman-CERP/amandocs/internal/errors"
)

// Source kinds.
const (
	SourceLocal = "local"
	SourceS3    = "s3"
)

// Config represents the amandocs configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Paths      PathsConfig      `yaml:"paths" json:"paths"`
	Source     SourceConfig     `yaml:"source" json:"source"`
	Index      IndexConfig      `yaml:"index" json:"index"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
}

// PathsConfig holds local storage locations. A leading "~" is expanded.
type PathsConfig struct {
	DataDir string `yaml:"data_dir" json:"data_dir"`
	LogDir  string `yaml:"log_dir" json:"log_dir"`
}

// SourceConfig selects the remote file store.
type SourceConfig struct {
	Kind string   `yaml:"kind" json:"kind"`
	Root string   `yaml:"root" json:"root"`
	S3   S3Config `yaml:"s3" json:"s3"`
}

// S3Config addresses an S3-compatible bucket. Credentials are read from the
// named environment variables, never from the file.
type S3Config struct {
	Endpoint     string `yaml:"endpoint" json:"endpoint"`
	Bucket       string `yaml:"bucket" json:"bucket"`
	Prefix       string `yaml:"prefix" json:"prefix"`
	Region       string `yaml:"region" json:"region"`
	UseSSL       bool   `yaml:"use_ssl" json:"use_ssl"`
	AccessKeyEnv string `yaml:"access_key_env" json:"access_key_env"`
	SecretKeyEnv string `yaml:"secret_key_env" json:"secret_key_env"`
}

// IndexConfig controls index builds.
type IndexConfig struct {
	// LockMaxAge is how old a scope lock may get before it is considered stale.
	LockMaxAge time.Duration `yaml:"lock_max_age" json:"lock_max_age"`

	// EmbedPrefixChars bounds the text embedded per file, in characters.
	EmbedPrefixChars int `yaml:"embed_prefix_chars" json:"embed_prefix_chars"`

	// Include/Exclude are path prefixes, Ignore are name globs.
	Include []string `yaml:"include" json:"include"`
	Exclude []string `yaml:"exclude" json:"exclude"`
	Ignore  []string `yaml:"ignore" json:"ignore"`
}

// SearchConfig controls queries.
type SearchConfig struct {
	QueryTimeout time.Duration `yaml:"query_timeout" json:"query_timeout"`
	DefaultLimit int           `yaml:"default_limit" json:"default_limit"`
	MaxLimit     int           `yaml:"max_limit" json:"max_limit"`
	VectorK      int           `yaml:"vector_k" json:"vector_k"`
	UseVector    bool          `yaml:"use_vector" json:"use_vector"`
	Verify       bool          `yaml:"verify" json:"verify"`
}

// EmbeddingsConfig selects the embedding backend.
type EmbeddingsConfig struct {
	Provider          string  `yaml:"provider" json:"provider"`
	Model             string  `yaml:"model" json:"model"`
	Endpoint          string  `yaml:"endpoint" json:"endpoint"`
	APIKeyEnv         string  `yaml:"api_key_env" json:"api_key_env"`
	Dimensions        int     `yaml:"dimensions" json:"dimensions"`
	CacheSize         int     `yaml:"cache_size" json:"cache_size"`
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`
}

// LoggingConfig controls the rotating file log.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			DataDir: filepath.Join(homeDir(), ".amandocs", "data"),
			LogDir:  filepath.Join(homeDir(), ".amandocs", "logs"),
		},
		Source: SourceConfig{
			Kind: SourceLocal,
			S3: S3Config{
				UseSSL:       true,
				AccessKeyEnv: "AMANDOCS_S3_ACCESS_KEY",
				SecretKeyEnv: "AMANDOCS_S3_SECRET_KEY",
			},
		},
		Index: IndexConfig{
			LockMaxAge:       10 * time.Minute,
			EmbedPrefixChars: 1500,
		},
		Search: SearchConfig{
			// Interactive budget for each text strategy
			QueryTimeout: 1800 * time.Millisecond,
			DefaultLimit: 50,
			MaxLimit:     500,
			VectorK:      10,
		},
		Embeddings: EmbeddingsConfig{
			Provider:          "static",
			Model:             "text-embedding-3-small",
			Dimensions:        256,
			CacheSize:         1000,
			RequestsPerSecond: 5,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.TempDir()
	}
	return home
}

// expandHome replaces a leading "~" with the user's home directory.
func expandHome(p string) string {
	if p == "~" {
		return homeDir()
	}
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(homeDir(), p[2:])
	}
	return p
}

// DataDir returns the expanded data directory.
func (c *Config) DataDir() string { return expandHome(c.Paths.DataDir) }

// LogDir returns the expanded log directory.
func (c *Config) LogDir() string { return expandHome(c.Paths.LogDir) }

// IndexPath is the SQLite index file.
func (c *Config) IndexPath() string { return filepath.Join(c.DataDir(), "index.db") }

// VectorDir holds the HNSW graph and its metadata.
func (c *Config) VectorDir() string { return filepath.Join(c.DataDir(), "vectors") }

// LockDir holds the scope lock markers.
func (c *Config) LockDir() string { return filepath.Join(c.DataDir(), "locks") }

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/amandocs/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/amandocs/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "amandocs", "config.yaml")
	}
	return filepath.Join(homeDir(), ".config", "amandocs", "config.yaml")
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// loadUserConfig loads the user/global configuration file if it exists.
// Returns nil config and nil error if the file doesn't exist.
func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()
	if !fileExists(configPath) {
		return nil, nil
	}

	var parsed Config
	if err := readYAML(configPath, &parsed); err != nil {
		return nil, err
	}
	return &parsed, nil
}

// Load loads configuration for the working directory dir.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/amandocs/config.yaml)
//  3. Project config (.amandocs.yaml in dir)
//  4. Environment variables (AMANDOCS_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	userCfg, err := loadUserConfig()
	if err != nil {
		return nil, err
	}
	if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile merges .amandocs.yaml or .amandocs.yml from dir, if present.
func (c *Config) loadFromFile(dir string) error {
	for _, name := range []string{".amandocs.yaml", ".amandocs.yml"} {
		p := filepath.Join(dir, name)
		if !fileExists(p) {
			continue
		}
		var parsed Config
		if err := readYAML(p, &parsed); err != nil {
			return err
		}
		c.mergeWith(&parsed)
		return nil
	}
	return nil
}

func readYAML(path string, out *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return amanerrors.ConfigError(fmt.Sprintf("cannot read %s", path), err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return amanerrors.ConfigError(fmt.Sprintf("cannot parse %s", path), err)
	}
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	// Paths
	if other.Paths.DataDir != "" {
		c.Paths.DataDir = other.Paths.DataDir
	}
	if other.Paths.LogDir != "" {
		c.Paths.LogDir = other.Paths.LogDir
	}

	// Source
	if other.Source.Kind != "" {
		c.Source.Kind = other.Source.Kind
	}
	if other.Source.Root != "" {
		c.Source.Root = other.Source.Root
	}
	s3 := other.Source.S3
	if s3.Endpoint != "" {
		c.Source.S3.Endpoint = s3.Endpoint
		// use_ssl is only meaningful next to an endpoint
		c.Source.S3.UseSSL = s3.UseSSL
	}
	if s3.Bucket != "" {
		c.Source.S3.Bucket = s3.Bucket
	}
	if s3.Prefix != "" {
		c.Source.S3.Prefix = s3.Prefix
	}
	if s3.Region != "" {
		c.Source.S3.Region = s3.Region
	}
	if s3.AccessKeyEnv != "" {
		c.Source.S3.AccessKeyEnv = s3.AccessKeyEnv
	}
	if s3.SecretKeyEnv != "" {
		c.Source.S3.SecretKeyEnv = s3.SecretKeyEnv
	}

	// Index
	if other.Index.LockMaxAge != 0 {
		c.Index.LockMaxAge = other.Index.LockMaxAge
	}
	if other.Index.EmbedPrefixChars != 0 {
		c.Index.EmbedPrefixChars = other.Index.EmbedPrefixChars
	}
	if len(other.Index.Include) > 0 {
		c.Index.Include = other.Index.Include
	}
	if len(other.Index.Exclude) > 0 {
		c.Index.Exclude = append(c.Index.Exclude, other.Index.Exclude...)
	}
	if len(other.Index.Ignore) > 0 {
		c.Index.Ignore = append(c.Index.Ignore, other.Index.Ignore...)
	}

	// Search
	if other.Search.QueryTimeout != 0 {
		c.Search.QueryTimeout = other.Search.QueryTimeout
	}
	if other.Search.DefaultLimit != 0 {
		c.Search.DefaultLimit = other.Search.DefaultLimit
	}
	if other.Search.MaxLimit != 0 {
		c.Search.MaxLimit = other.Search.MaxLimit
	}
	if other.Search.VectorK != 0 {
		c.Search.VectorK = other.Search.VectorK
	}
	// Booleans default to false, so only true can be merged from a file
	if other.Search.UseVector {
		c.Search.UseVector = true
	}
	if other.Search.Verify {
		c.Search.Verify = true
	}

	// Embeddings
	e := other.Embeddings
	if e.Provider != "" {
		c.Embeddings.Provider = e.Provider
	}
	if e.Model != "" {
		c.Embeddings.Model = e.Model
	}
	if e.Endpoint != "" {
		c.Embeddings.Endpoint = e.Endpoint
	}
	if e.APIKeyEnv != "" {
		c.Embeddings.APIKeyEnv = e.APIKeyEnv
	}
	if e.Dimensions != 0 {
		c.Embeddings.Dimensions = e.Dimensions
	}
	if e.CacheSize != 0 {
		c.Embeddings.CacheSize = e.CacheSize
	}
	if e.RequestsPerSecond != 0 {
		c.Embeddings.RequestsPerSecond = e.RequestsPerSecond
	}

	// Logging
	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.MaxSizeMB != 0 {
		c.Logging.MaxSizeMB = other.Logging.MaxSizeMB
	}
	if other.Logging.MaxFiles != 0 {
		c.Logging.MaxFiles = other.Logging.MaxFiles
	}
}

// applyEnvOverrides applies AMANDOCS_* environment variable overrides.
// Unparseable values are ignored.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("AMANDOCS_DATA_DIR"); v != "" {
		c.Paths.DataDir = v
	}
	if v := os.Getenv("AMANDOCS_LOG_DIR"); v != "" {
		c.Paths.LogDir = v
	}
	if v := os.Getenv("AMANDOCS_SOURCE"); v != "" {
		c.Source.Kind = v
	}
	if v := os.Getenv("AMANDOCS_SOURCE_ROOT"); v != "" {
		c.Source.Root = v
	}
	if v := os.Getenv("AMANDOCS_S3_ENDPOINT"); v != "" {
		c.Source.S3.Endpoint = v
	}
	if v := os.Getenv("AMANDOCS_S3_BUCKET"); v != "" {
		c.Source.S3.Bucket = v
	}
	if v := os.Getenv("AMANDOCS_S3_USE_SSL"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Source.S3.UseSSL = b
		}
	}
	if v := os.Getenv("AMANDOCS_LOCK_MAX_AGE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.Index.LockMaxAge = d
		}
	}
	if v := os.Getenv("AMANDOCS_QUERY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.Search.QueryTimeout = d
		}
	}
	if v := os.Getenv("AMANDOCS_USE_VECTOR"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Search.UseVector = b
		}
	}
	if v := os.Getenv("AMANDOCS_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	// AMANDOCS_EMBEDDER is an alias for AMANDOCS_EMBEDDINGS_PROVIDER
	if v := os.Getenv("AMANDOCS_EMBEDDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("AMANDOCS_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("AMANDOCS_EMBEDDINGS_ENDPOINT"); v != "" {
		c.Embeddings.Endpoint = v
	}
	if v := os.Getenv("AMANDOCS_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate validates the configuration and returns a ConfigError if invalid.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return amanerrors.ConfigError(fmt.Sprintf(format, args...), nil)
	}

	if c.Paths.DataDir == "" {
		return invalid("paths.data_dir must not be empty")
	}

	switch strings.ToLower(c.Source.Kind) {
	case SourceLocal:
	case SourceS3:
		if c.Source.S3.Endpoint == "" || c.Source.S3.Bucket == "" {
			return invalid("source.s3 needs endpoint and bucket")
		}
	default:
		return invalid("source.kind must be 'local' or 's3', got %q", c.Source.Kind)
	}

	if c.Index.LockMaxAge <= 0 {
		return invalid("index.lock_max_age must be positive, got %s", c.Index.LockMaxAge)
	}
	if c.Index.EmbedPrefixChars < 0 {
		return invalid("index.embed_prefix_chars must be non-negative, got %d", c.Index.EmbedPrefixChars)
	}

	if c.Search.QueryTimeout <= 0 {
		return invalid("search.query_timeout must be positive, got %s", c.Search.QueryTimeout)
	}
	if c.Search.DefaultLimit < 0 || c.Search.MaxLimit < 0 || c.Search.VectorK < 0 {
		return invalid("search limits must be non-negative")
	}
	if c.Search.MaxLimit > 0 && c.Search.DefaultLimit > c.Search.MaxLimit {
		return invalid("search.default_limit (%d) exceeds search.max_limit (%d)",
			c.Search.DefaultLimit, c.Search.MaxLimit)
	}

	validProviders := map[string]bool{"openai": true, "static": true, "none": true}
	if !validProviders[strings.ToLower(c.Embeddings.Provider)] {
		return invalid("embeddings.provider must be 'openai', 'static' or 'none', got %q", c.Embeddings.Provider)
	}
	if c.Embeddings.Dimensions < 0 || c.Embeddings.CacheSize < 0 || c.Embeddings.RequestsPerSecond < 0 {
		return invalid("embeddings values must be non-negative")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return invalid("logging.level must be 'debug', 'info', 'warn', or 'error', got %q", c.Logging.Level)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file, creating its directory.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
