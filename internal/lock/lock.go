// Package lock provides a durable, per-scope build lock.
//
// A lock is a marker file under <data>/locks named after a hash of the
// scope. Markers survive a crash, so a marker older than MaxAge is treated
// as abandoned and may be reclaimed by the next caller. The check-and-reclaim
// step runs under a gofrs/flock guard so two processes cannot both decide a
// marker is stale and both take it.
package lock

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	amanerrors "github.com/Aman-CERP/amandocs/internal/errors"
)

const (
	// DefaultMaxAge is how long a marker is honoured before it counts as stale.
	DefaultMaxAge = 600 * time.Second

	guardFile   = ".guard"
	markerExt   = ".lock"
	guardRetry  = 10 * time.Millisecond
	guardBudget = 5 * time.Second
)

// Guard hands out scope locks backed by marker files in dir.
type Guard struct {
	dir    string
	maxAge time.Duration
	owner  string
	now    func() time.Time
}

// Option configures a Guard.
type Option func(*Guard)

// WithMaxAge sets the staleness threshold.
func WithMaxAge(d time.Duration) Option {
	return func(g *Guard) {
		if d > 0 {
			g.maxAge = d
		}
	}
}

// WithOwner sets the owner recorded in new markers.
func WithOwner(owner string) Option {
	return func(g *Guard) { g.owner = owner }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) { g.now = now }
}

// NewGuard creates a guard storing markers in dir.
func NewGuard(dir string, opts ...Option) *Guard {
	host, _ := os.Hostname()
	g := &Guard{
		dir:    dir,
		maxAge: DefaultMaxAge,
		owner:  fmt.Sprintf("%s:%d", host, os.Getpid()),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Dir returns the marker directory.
func (g *Guard) Dir() string { return g.dir }

// MaxAge returns the staleness threshold.
func (g *Guard) MaxAge() time.Duration { return g.maxAge }

// Token is proof of a held lock. Pass it back to Release.
type Token struct {
	Scope string
	ID    string
	path  string
}

// Status describes the marker of one scope.
type Status struct {
	Locked     bool    `json:"locked"`
	AgeSeconds float64 `json:"age_seconds"`
	Stale      bool    `json:"stale"`
	Owner      string  `json:"owner,omitempty"`
}

type marker struct {
	Scope     string    `json:"scope"`
	Owner     string    `json:"owner"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
}

// markerName maps a scope to a fixed-length file name.
func markerName(scope string) string {
	sum := sha256.Sum256([]byte(scope))
	return hex.EncodeToString(sum[:16]) + markerExt
}

func (g *Guard) markerPath(scope string) string {
	return filepath.Join(g.dir, markerName(scope))
}

// Acquire takes the lock for scope. It returns (nil, nil) when another
// holder has a fresh marker. A stale marker is removed and replaced.
func (g *Guard) Acquire(ctx context.Context, scope string) (*Token, error) {
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return nil, amanerrors.LockError("failed to create lock directory", err)
	}

	fl := flock.New(filepath.Join(g.dir, guardFile))
	gctx, cancel := context.WithTimeout(ctx, guardBudget)
	defer cancel()
	ok, err := fl.TryLockContext(gctx, guardRetry)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, amanerrors.LockError("failed to take lock guard", err)
	}
	if !ok {
		return nil, amanerrors.LockError("lock guard busy", nil)
	}
	defer func() { _ = fl.Unlock() }()

	p := g.markerPath(scope)
	if st, ok := g.readStatus(p); ok {
		if !st.Stale {
			return nil, nil
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return nil, amanerrors.LockError("failed to remove stale lock", err)
		}
		slog.Warn("lock_reclaimed_stale",
			slog.String("scope", scope),
			slog.String("previous_owner", st.Owner),
			slog.Float64("age_seconds", st.AgeSeconds))
	}

	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if os.IsExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, amanerrors.LockError("failed to create lock marker", err)
	}
	id := uuid.NewString()
	err = json.NewEncoder(f).Encode(marker{Scope: scope, Owner: g.owner, Token: id, CreatedAt: g.now().UTC()})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(p)
		return nil, amanerrors.LockError("failed to write lock marker", err)
	}

	slog.Debug("lock_acquired", slog.String("scope", scope))
	return &Token{Scope: scope, ID: id, path: p}, nil
}

// Release drops a held lock. Releasing twice, or releasing a lock that was
// force-released meanwhile, is not an error. A marker that now carries a
// different token belongs to whoever reclaimed it and is left alone.
func (g *Guard) Release(t *Token) error {
	if t == nil || t.path == "" {
		return nil
	}
	p := t.path
	t.path = ""

	data, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return amanerrors.LockError("failed to read lock marker", err)
	}
	var m marker
	if json.Unmarshal(data, &m) == nil && m.Token != "" && m.Token != t.ID {
		slog.Warn("lock_release_skipped_reclaimed",
			slog.String("scope", t.Scope),
			slog.String("owner", m.Owner))
		return nil
	}

	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return amanerrors.LockError("failed to release lock", err)
	}
	slog.Debug("lock_released", slog.String("scope", t.Scope))
	return nil
}

// Status reports the marker state for scope.
func (g *Guard) Status(scope string) Status {
	st, _ := g.readStatus(g.markerPath(scope))
	return st
}

// ForceRelease removes the marker for scope whatever its age. It reports
// whether a marker was removed.
func (g *Guard) ForceRelease(scope string) bool {
	err := os.Remove(g.markerPath(scope))
	if err == nil {
		slog.Info("lock_force_released", slog.String("scope", scope))
	}
	return err == nil
}

// Clear removes every marker.
func (g *Guard) Clear() error {
	entries, err := os.ReadDir(g.dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return amanerrors.LockError("failed to list locks", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), markerExt) {
			continue
		}
		if err := os.Remove(filepath.Join(g.dir, e.Name())); err != nil && !os.IsNotExist(err) {
			return amanerrors.LockError("failed to remove lock", err)
		}
	}
	return nil
}

// readStatus loads a marker. Age comes from created_at, or from the file
// mtime when the body is unreadable (e.g. a crash mid-write).
func (g *Guard) readStatus(p string) (Status, bool) {
	info, err := os.Stat(p)
	if err != nil {
		return Status{}, false
	}

	created := info.ModTime()
	var m marker
	if data, err := os.ReadFile(p); err == nil && json.Unmarshal(data, &m) == nil && !m.CreatedAt.IsZero() {
		created = m.CreatedAt
	}

	age := g.now().Sub(created)
	if age < 0 {
		age = 0
	}
	return Status{
		Locked:     true,
		AgeSeconds: age.Seconds(),
		Stale:      age > g.maxAge,
		Owner:      m.Owner,
	}, true
}
