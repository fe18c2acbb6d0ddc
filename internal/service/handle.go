package service

import (
	"context"
	"sync"

	amanerrors "github.com/Aman-CERP/amandocs/internal/errors"
	"github.com/Aman-CERP/amandocs/internal/store"
)

// textHandle is the reopenable SQLite index shared by the builder and the
// engine. A storage reset closes and deletes the database; the next call
// opens a fresh one, so the builder, engine and open sessions survive it.
type textHandle struct {
	path   string
	config store.IndexConfig

	mu  sync.RWMutex
	idx *store.SQLiteIndex
}

func newTextHandle(path string, cfg store.IndexConfig) *textHandle {
	return &textHandle{path: path, config: cfg}
}

// with runs fn against the open index, opening it first if needed. The
// read lock is held for the whole call so a reset waits for it.
func with[T any](h *textHandle, fn func(idx *store.SQLiteIndex) (T, error)) (T, error) {
	for {
		h.mu.RLock()
		if h.idx != nil {
			defer h.mu.RUnlock()
			return fn(h.idx)
		}
		h.mu.RUnlock()

		if err := h.open(); err != nil {
			var zero T
			return zero, err
		}
	}
}

func (h *textHandle) open() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.idx != nil {
		return nil
	}
	idx, err := store.NewSQLiteIndex(h.path, h.config)
	if err != nil {
		return err
	}
	h.idx = idx
	return nil
}

// artifactPaths returns the database file and its journals. All three are
// empty for an in-memory index.
func (h *textHandle) artifactPaths() (primary, wal, shm string) {
	return store.IndexArtifacts(h.path)
}

// recovered reports whether the open index replaced a corrupted database.
func (h *textHandle) recovered() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.idx != nil && h.idx.Recovered()
}

// wipe destroys the index files. The next call reopens an empty schema.
func (h *textHandle) wipe() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.idx == nil {
		if err := store.RemoveIndexFiles(h.path); err != nil {
			return amanerrors.StorageError("failed to remove index files", err)
		}
		return nil
	}
	err := h.idx.Destroy()
	h.idx = nil
	return err
}

func (h *textHandle) close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.idx == nil {
		return nil
	}
	err := h.idx.Close()
	h.idx = nil
	return err
}

// The methods below satisfy index.TextIndex and search.TextSearcher.

func (h *textHandle) IsUpToDate(ctx context.Context, filePath, modified string, size int64, ext string) (bool, error) {
	return with(h, func(idx *store.SQLiteIndex) (bool, error) {
		return idx.IsUpToDate(ctx, filePath, modified, size, ext)
	})
}

func (h *textHandle) IndexFile(ctx context.Context, meta store.FileMeta, text string) (int64, error) {
	return with(h, func(idx *store.SQLiteIndex) (int64, error) {
		return idx.IndexFile(ctx, meta, text)
	})
}

func (h *textHandle) SearchExact(ctx context.Context, q string, limit int, scope string) ([]store.Hit, error) {
	return with(h, func(idx *store.SQLiteIndex) ([]store.Hit, error) {
		return idx.SearchExact(ctx, q, limit, scope)
	})
}

func (h *textHandle) SearchNGram(ctx context.Context, q string, limit int, scope string) ([]store.Hit, error) {
	return with(h, func(idx *store.SQLiteIndex) ([]store.Hit, error) {
		return idx.SearchNGram(ctx, q, limit, scope)
	})
}

func (h *textHandle) SearchNGramVerified(ctx context.Context, q string, limit int, scope string) ([]store.Hit, error) {
	return with(h, func(idx *store.SQLiteIndex) ([]store.Hit, error) {
		return idx.SearchNGramVerified(ctx, q, limit, scope)
	})
}

func (h *textHandle) CountUnder(ctx context.Context, scope string) (int, error) {
	return with(h, func(idx *store.SQLiteIndex) (int, error) {
		return idx.CountUnder(ctx, scope)
	})
}

func (h *textHandle) ResolveByIDs(ctx context.Context, ids []int64) ([]store.FileRecord, error) {
	return with(h, func(idx *store.SQLiteIndex) ([]store.FileRecord, error) {
		return idx.ResolveByIDs(ctx, ids)
	})
}
