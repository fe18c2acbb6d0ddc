package service

import (
	"context"
	"log/slog"
	"sync"

	amanerrors "github.com/Aman-CERP/amandocs/internal/errors"
	"github.com/Aman-CERP/amandocs/internal/lock"
	"github.com/Aman-CERP/amandocs/internal/store"
)

// Sizes is the on-disk footprint of the index in bytes.
type Sizes struct {
	Primary int64 `json:"primary"`
	WAL     int64 `json:"wal"`
	SHM     int64 `json:"shm"`
	Vector  int64 `json:"vector"`
	Total   int64 `json:"total"`
}

// Accountant reports and reclaims the disk space used by the index.
type Accountant struct {
	text    *textHandle
	vectors *store.HNSWVectorStore
	locks   *lock.Guard
	gate    *sync.RWMutex // read-held by running builds
}

// Sizes measures every artifact. Missing files count as zero.
func (a *Accountant) Sizes() Sizes {
	primary, wal, shm := a.text.artifactPaths()
	s := Sizes{
		Primary: store.FileSize(primary),
		WAL:     store.FileSize(wal),
		SHM:     store.FileSize(shm),
	}
	for _, p := range a.vectors.ArtifactPaths() {
		s.Vector += store.FileSize(p)
	}
	s.Total = s.Primary + s.WAL + s.SHM + s.Vector
	return s
}

// Reset deletes the text index with its journals, the vector store and
// every lock marker, and returns the bytes reclaimed. The schema is
// recreated on the next index access, so Sizes().Total is 0 right after.
//
// Reset refuses to run while a build in this process is active.
func (a *Accountant) Reset(ctx context.Context) (int64, error) {
	if !a.gate.TryLock() {
		return 0, amanerrors.New(amanerrors.ErrCodeBuildRunning, "an index build is running", nil).
			WithSuggestion("wait for the build to finish, then reset again")
	}
	defer a.gate.Unlock()

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	before := a.Sizes().Total

	if err := a.text.wipe(); err != nil {
		return 0, err
	}
	if err := a.vectors.Clear(); err != nil {
		return 0, amanerrors.StorageError("failed to clear vector store", err)
	}
	if err := a.locks.Clear(); err != nil {
		return 0, err
	}

	freed := max(before-a.Sizes().Total, 0)
	slog.Info("storage_reset", slog.Int64("bytes_freed", freed))
	return freed, nil
}
