// Package service assembles the index store, vector store, scope locks,
// remote source and embedder into one object per process.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/Aman-CERP/amandocs/internal/config"
	"github.com/Aman-CERP/amandocs/internal/embed"
	amanerrors "github.com/Aman-CERP/amandocs/internal/errors"
	"github.com/Aman-CERP/amandocs/internal/index"
	"github.com/Aman-CERP/amandocs/internal/lock"
	"github.com/Aman-CERP/amandocs/internal/search"
	"github.com/Aman-CERP/amandocs/internal/source"
	"github.com/Aman-CERP/amandocs/internal/store"
)

// IndexService owns the durable index state and hands it to the builder,
// the query engine and the storage accountant.
type IndexService struct {
	cfg       *config.Config
	src       source.Source
	extractor source.Extractor
	embedder  embed.Embedder // nil when vectors are disabled

	text    *textHandle
	vectors *store.HNSWVectorStore
	locks   *lock.Guard
	gate    sync.RWMutex

	builder    *index.Builder
	engine     *search.Engine
	accountant *Accountant
}

// Option customizes New.
type Option func(*options)

type options struct {
	src         source.Source
	extractor   source.Extractor
	embedder    embed.Embedder
	embedderSet bool
	inMemory    bool
}

// WithSource replaces the source built from config.
func WithSource(src source.Source) Option {
	return func(o *options) { o.src = src }
}

// WithExtractor replaces the default text extractor.
func WithExtractor(x source.Extractor) Option {
	return func(o *options) { o.extractor = x }
}

// WithEmbedder replaces the embedder built from config. nil disables
// vectors.
func WithEmbedder(e embed.Embedder) Option {
	return func(o *options) {
		o.embedder = e
		o.embedderSet = true
	}
}

// WithInMemoryIndex keeps the text index in memory. Vectors and locks
// still use the data directory.
func WithInMemoryIndex() Option {
	return func(o *options) { o.inMemory = true }
}

// New opens (or creates) the index under cfg's data directory.
func New(cfg *config.Config, opts ...Option) (*IndexService, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0o755); err != nil {
		return nil, amanerrors.StorageError("failed to create data directory", err).
			WithDetail("path", cfg.DataDir())
	}

	s := &IndexService{cfg: cfg, src: o.src, extractor: o.extractor, embedder: o.embedder}

	if s.src == nil {
		src, err := NewSource(cfg)
		if err != nil {
			return nil, err
		}
		s.src = src
	}
	if s.extractor == nil {
		s.extractor = source.NewTextExtractor()
	}
	if !o.embedderSet {
		e, err := embed.NewEmbedder(embed.Config{
			Provider:          embed.ProviderType(strings.ToLower(cfg.Embeddings.Provider)),
			Model:             cfg.Embeddings.Model,
			Endpoint:          cfg.Embeddings.Endpoint,
			APIKeyEnv:         cfg.Embeddings.APIKeyEnv,
			Dimensions:        cfg.Embeddings.Dimensions,
			CacheSize:         cfg.Embeddings.CacheSize,
			RequestsPerSecond: cfg.Embeddings.RequestsPerSecond,
		})
		if err != nil {
			return nil, amanerrors.ConfigError("failed to create embedder", err)
		}
		s.embedder = e
	}

	indexPath := cfg.IndexPath()
	if o.inMemory {
		indexPath = ""
	}
	storeCfg := store.DefaultIndexConfig()
	storeCfg.QueryTimeout = cfg.Search.QueryTimeout
	s.text = newTextHandle(indexPath, storeCfg)

	// Opening now surfaces corruption before any command runs.
	if err := s.text.open(); err != nil {
		return nil, err
	}

	var vecEmbedder store.Embedder
	if s.embedder != nil {
		vecEmbedder = s.embedder
	}
	s.vectors = store.NewHNSWVectorStore(store.DefaultVectorStoreConfig(cfg.VectorDir()), vecEmbedder)
	if s.text.recovered() {
		// Vector ids point into the discarded database.
		slog.Warn("vector_store_discarded", slog.String("reason", "text index recreated after corruption"))
		if err := s.vectors.Clear(); err != nil {
			return nil, amanerrors.StorageError("failed to clear vector store", err)
		}
	} else if err := s.vectors.Load(); err != nil {
		slog.Warn("vector_store_load_failed", slog.String("error", err.Error()))
	}

	s.locks = lock.NewGuard(cfg.LockDir(), lock.WithMaxAge(cfg.Index.LockMaxAge))

	deps := index.BuilderDependencies{
		Index:            s.text,
		Locks:            s.locks,
		Lister:           s.src,
		Fetcher:          s.src,
		Extractor:        s.extractor,
		EmbedPrefixRunes: cfg.Index.EmbedPrefixChars,
	}
	if s.embedder != nil {
		deps.Vectors = s.vectors
	}
	builder, err := index.NewBuilder(deps)
	if err != nil {
		return nil, amanerrors.InternalError("failed to create builder", err)
	}
	s.builder = builder

	var vecSearch search.VectorSearcher
	if s.embedder != nil {
		vecSearch = s.vectors
	}
	engCfg := search.DefaultEngineConfig()
	engCfg.DefaultLimit = cfg.Search.DefaultLimit
	engCfg.MaxLimit = cfg.Search.MaxLimit
	engCfg.VectorK = cfg.Search.VectorK
	engine, err := search.NewEngine(s.text, vecSearch, engCfg)
	if err != nil {
		return nil, amanerrors.InternalError("failed to create engine", err)
	}
	s.engine = engine

	s.accountant = &Accountant{text: s.text, vectors: s.vectors, locks: s.locks, gate: &s.gate}

	slog.Debug("index_service_opened",
		slog.String("source", s.src.Name()),
		slog.String("data_dir", cfg.DataDir()),
		slog.String("embedder", s.EmbedderName()))
	return s, nil
}

// NewSource builds the remote store named by cfg.Source.
func NewSource(cfg *config.Config) (source.Source, error) {
	switch strings.ToLower(cfg.Source.Kind) {
	case config.SourceS3:
		s3 := cfg.Source.S3
		return source.NewS3Source(source.S3Config{
			Endpoint:  s3.Endpoint,
			Bucket:    s3.Bucket,
			Prefix:    s3.Prefix,
			AccessKey: os.Getenv(s3.AccessKeyEnv),
			SecretKey: os.Getenv(s3.SecretKeyEnv),
			Region:    s3.Region,
			UseSSL:    s3.UseSSL,
		})
	default:
		if cfg.Source.Root == "" {
			return nil, amanerrors.ConfigError("source.root is not set", nil).
				WithSuggestion("set source.root in .amandocs.yaml or AMANDOCS_SOURCE_ROOT")
		}
		return source.NewLocalFS(cfg.Source.Root)
	}
}

// Config returns the configuration the service was opened with.
func (s *IndexService) Config() *config.Config { return s.cfg }

// Source returns the remote store.
func (s *IndexService) Source() source.Source { return s.src }

// Builder returns the index builder.
func (s *IndexService) Builder() *index.Builder { return s.builder }

// Engine returns the query engine.
func (s *IndexService) Engine() *search.Engine { return s.engine }

// Accountant returns the storage accountant.
func (s *IndexService) Accountant() *Accountant { return s.accountant }

// Embedder returns the embedder, or nil when vectors are disabled.
func (s *IndexService) Embedder() embed.Embedder { return s.embedder }

// VectorsEnabled reports whether an embedder is configured.
func (s *IndexService) VectorsEnabled() bool { return s.embedder != nil }

// EmbedderName describes the embedder for status output.
func (s *IndexService) EmbedderName() string {
	if s.embedder == nil {
		return "none"
	}
	return fmt.Sprintf("%s (%d dims)", s.embedder.ModelName(), s.embedder.Dimensions())
}

// Build runs the builder for opts.Scope. Include, Exclude and Ignore fall
// back to the configured lists when empty. A storage reset waits for it.
func (s *IndexService) Build(ctx context.Context, opts index.BuildOptions) (*index.Summary, error) {
	s.gate.RLock()
	defer s.gate.RUnlock()

	opts.Scope = store.NormalizeScope(opts.Scope)
	if len(opts.Include) == 0 {
		opts.Include = s.cfg.Index.Include
	}
	if len(opts.Exclude) == 0 {
		opts.Exclude = s.cfg.Index.Exclude
	}
	if len(opts.Ignore) == 0 {
		opts.Ignore = s.cfg.Index.Ignore
	}
	return s.builder.Build(ctx, opts)
}

// Search runs one query.
func (s *IndexService) Search(ctx context.Context, q search.Query) (*search.Result, error) {
	q.Scope = store.NormalizeScope(q.Scope)
	return s.engine.Search(ctx, q)
}

// NewSession starts a refining search session.
func (s *IndexService) NewSession() *search.Session {
	return s.engine.NewSession()
}

// ScopeStatus describes the index for one scope.
type ScopeStatus struct {
	Source       string      `json:"source"`
	Scope        string      `json:"scope"`
	IndexedFiles int         `json:"indexed_files"`
	VectorNodes  int         `json:"vector_nodes"`
	Embedder     string      `json:"embedder"`
	Lock         lock.Status `json:"lock"`
	Storage      Sizes       `json:"storage"`
}

// Status reports indexed file count, lock state and storage for scope.
func (s *IndexService) Status(ctx context.Context, scope string) (*ScopeStatus, error) {
	scope = store.NormalizeScope(scope)
	n, err := s.text.CountUnder(ctx, scope)
	if err != nil {
		return nil, err
	}
	return &ScopeStatus{
		Source:       s.src.Name(),
		Scope:        scope,
		IndexedFiles: n,
		VectorNodes:  s.vectors.Len(),
		Embedder:     s.EmbedderName(),
		Lock:         s.locks.Status(scope),
		Storage:      s.accountant.Sizes(),
	}, nil
}

// Unlock force-releases the build lock of scope.
func (s *IndexService) Unlock(scope string) bool {
	return s.locks.ForceRelease(store.NormalizeScope(scope))
}

// Close saves nothing; builds save vectors themselves. It releases the
// database handle and the embedder.
func (s *IndexService) Close() error {
	err := s.text.close()
	if s.embedder != nil {
		if cerr := s.embedder.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
