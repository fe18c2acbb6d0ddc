// Package store holds the durable index state: the SQLite FTS5 text index
// (exact and bigram postings) and the HNSW vector store.
package store

import (
	"fmt"
	"time"
)

// FileRecord is the indexed metadata for one remote file.
// Path is the only external key; ID is stable once assigned.
type FileRecord struct {
	ID       int64
	Path     string
	Modified string // ISO-8601 as reported by the remote store
	Size     int64
	Ext      string // lowercase, with leading dot
}

// FileMeta is the metadata the builder knows before a file is indexed.
type FileMeta struct {
	Path     string
	Modified string
	Size     int64
	Ext      string
}

// Hit is a single search match.
type Hit struct {
	ID   int64
	Path string
}

// IndexConfig configures the SQLite index.
type IndexConfig struct {
	// QueryTimeout is the soft wall-clock budget for one search call.
	// When it elapses the search returns whatever it has gathered so far.
	QueryTimeout time.Duration

	// BusyTimeout is how long a writer waits on a locked database.
	BusyTimeout time.Duration
}

// DefaultIndexConfig returns the defaults used by the CLI.
func DefaultIndexConfig() IndexConfig {
	return IndexConfig{
		QueryTimeout: 1800 * time.Millisecond,
		BusyTimeout:  5 * time.Second,
	}
}

// VectorStoreConfig configures the HNSW vector store.
type VectorStoreConfig struct {
	// Dir holds index.hnsw and ids.zst. Empty keeps the store in memory only.
	Dir string

	// M is HNSW max connections per layer (default: 16)
	M int

	// EfSearch is HNSW query-time search width (default: 20)
	EfSearch int

	// CompactRatio triggers a graph rebuild on Save once tombstoned nodes
	// exceed this fraction of the graph (default: 0.25).
	CompactRatio float64
}

// DefaultVectorStoreConfig returns sensible defaults for the vector store.
func DefaultVectorStoreConfig(dir string) VectorStoreConfig {
	return VectorStoreConfig{
		Dir:          dir,
		M:            16,
		EfSearch:     20,
		CompactRatio: 0.25,
	}
}

// ErrDimensionMismatch indicates vector dimension mismatch.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d (run 'amandocs reset' after changing embedders)", e.Expected, e.Got)
}
