// Package index builds and refreshes the search index for a scope of the
// remote file store.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	amanerrors "github.com/Aman-CERP/amandocs/internal/errors"
	"github.com/Aman-CERP/amandocs/internal/lock"
	"github.com/Aman-CERP/amandocs/internal/source"
	"github.com/Aman-CERP/amandocs/internal/store"
)

// DefaultEmbedPrefixRunes is how much of a document is embedded.
const DefaultEmbedPrefixRunes = 1500

// Status is the overall result of a build.
type Status string

const (
	// StatusCompleted means every candidate was visited.
	StatusCompleted Status = "completed"
	// StatusLocked means another build holds the scope. Nothing was done.
	StatusLocked Status = "locked"
	// StatusCancelled means the context ended the walk early.
	StatusCancelled Status = "cancelled"
)

// Outcome is what happened to one candidate file.
type Outcome int

const (
	// OutcomeIndexed means the file was (re)written to the index.
	OutcomeIndexed Outcome = iota
	// OutcomeIndexedEmpty means extraction failed and only the filename
	// was indexed. The file is retried on the next build.
	OutcomeIndexedEmpty
	// OutcomeSkippedUpToDate means the stored metadata matched.
	OutcomeSkippedUpToDate
	// OutcomeSkippedFetch means the download failed.
	OutcomeSkippedFetch
)

// String returns the outcome name used in logs.
func (o Outcome) String() string {
	switch o {
	case OutcomeIndexed:
		return "indexed"
	case OutcomeIndexedEmpty:
		return "indexed_empty"
	case OutcomeSkippedUpToDate:
		return "skipped_up_to_date"
	case OutcomeSkippedFetch:
		return "skipped_fetch"
	default:
		return "unknown"
	}
}

// ProgressFunc is called after every candidate file.
type ProgressFunc func(completed, total int, currentPath string)

// WarnFunc receives per-file problems that did not stop the build.
type WarnFunc func(filePath string, err error)

// BuildOptions selects what to build.
type BuildOptions struct {
	// Scope is the folder to walk and the unit of locking.
	Scope string

	// Include restricts the walk to these subtrees when non-empty.
	Include []string

	// Exclude skips these subtrees.
	Exclude []string

	// Ignore holds file name globs (path.Match syntax) to leave out,
	// such as "~$*" for Office lock files.
	Ignore []string

	Progress ProgressFunc
	Warn     WarnFunc
}

// Summary is returned by every build, including locked and cancelled ones.
type Summary struct {
	Scope    string        `json:"scope"`
	Status   Status        `json:"status"`
	Indexed  int           `json:"indexed"`
	Skipped  int           `json:"skipped"`
	Failed   int           `json:"failed"` // extraction failures; also counted in Indexed
	Total    int           `json:"total"`
	Duration time.Duration `json:"duration"`
}

// TextIndex is the part of the SQLite index the builder writes to.
type TextIndex interface {
	IsUpToDate(ctx context.Context, filePath, modified string, size int64, ext string) (bool, error)
	IndexFile(ctx context.Context, meta store.FileMeta, text string) (int64, error)
}

// VectorIndex receives representative text for each indexed file.
type VectorIndex interface {
	Add(ctx context.Context, fileID int64, text string) error
	Save() error
}

// ScopeLocker serializes builds per scope.
type ScopeLocker interface {
	Acquire(ctx context.Context, scope string) (*lock.Token, error)
	Release(t *lock.Token) error
}

// BuilderDependencies contains the injected dependencies for Builder.
type BuilderDependencies struct {
	Index     TextIndex
	Vectors   VectorIndex // optional
	Locks     ScopeLocker
	Lister    source.Lister
	Fetcher   source.Fetcher
	Extractor source.Extractor

	// EmbedPrefixRunes bounds the text sent to the vector index
	// (default: DefaultEmbedPrefixRunes).
	EmbedPrefixRunes int
}

// Builder walks a scope and brings the index up to date with it.
type Builder struct {
	index       TextIndex
	vectors     VectorIndex
	locks       ScopeLocker
	lister      source.Lister
	fetcher     source.Fetcher
	extractor   source.Extractor
	embedPrefix int
}

// NewBuilder creates a Builder with injected dependencies.
func NewBuilder(deps BuilderDependencies) (*Builder, error) {
	switch {
	case deps.Index == nil:
		return nil, fmt.Errorf("text index is required")
	case deps.Locks == nil:
		return nil, fmt.Errorf("scope locker is required")
	case deps.Lister == nil:
		return nil, fmt.Errorf("lister is required")
	case deps.Fetcher == nil:
		return nil, fmt.Errorf("fetcher is required")
	case deps.Extractor == nil:
		return nil, fmt.Errorf("extractor is required")
	}
	if deps.EmbedPrefixRunes <= 0 {
		deps.EmbedPrefixRunes = DefaultEmbedPrefixRunes
	}
	return &Builder{
		index:       deps.Index,
		vectors:     deps.Vectors,
		locks:       deps.Locks,
		lister:      deps.Lister,
		fetcher:     deps.Fetcher,
		extractor:   deps.Extractor,
		embedPrefix: deps.EmbedPrefixRunes,
	}, nil
}

// Build indexes every new or changed file under opts.Scope.
//
// Lock contention is reported as StatusLocked with a nil error. Fetch and
// extraction failures are counted, not returned. A storage failure or a
// root listing failure aborts the build with an error; cancellation
// returns StatusCancelled together with the context error. The returned
// summary is never nil.
func (b *Builder) Build(ctx context.Context, opts BuildOptions) (sum *Summary, err error) {
	start := time.Now()
	runID := uuid.NewString()
	sum = &Summary{Scope: opts.Scope, Status: StatusCompleted}
	log := slog.With(slog.String("scope", opts.Scope), slog.String("run_id", runID))

	tok, err := b.locks.Acquire(ctx, opts.Scope)
	if err != nil {
		return sum, err
	}
	if tok == nil {
		log.Info("index_build_locked")
		sum.Status = StatusLocked
		sum.Duration = time.Since(start)
		return sum, nil
	}

	defer func() {
		if b.vectors != nil {
			if serr := b.vectors.Save(); serr != nil {
				log.Error("vector_store_save_failed", amanerrors.LogAttrs(serr)...)
				if err == nil {
					err = amanerrors.StorageError("failed to save vector store", serr)
				}
			}
		}
		if rerr := b.locks.Release(tok); rerr != nil {
			log.Warn("lock_release_failed", amanerrors.LogAttrs(rerr)...)
		}
		sum.Duration = time.Since(start)
	}()

	log.Info("index_build_started")

	candidates, err := b.collect(ctx, opts)
	if err != nil {
		if ctx.Err() != nil {
			sum.Status = StatusCancelled
			return sum, ctx.Err()
		}
		return sum, err
	}
	sum.Total = len(candidates)

	for i, fe := range candidates {
		if ctx.Err() != nil {
			sum.Status = StatusCancelled
			log.Info("index_build_cancelled", slog.Int("completed", i), slog.Int("total", sum.Total))
			return sum, ctx.Err()
		}

		outcome, ferr := b.processFile(ctx, fe, opts.Warn)
		if ferr != nil {
			if ctx.Err() != nil {
				sum.Status = StatusCancelled
				return sum, ctx.Err()
			}
			log.Error("index_build_aborted", append(amanerrors.LogAttrs(ferr), slog.String("path", fe.Path))...)
			return sum, ferr
		}

		switch outcome {
		case OutcomeIndexed:
			sum.Indexed++
		case OutcomeIndexedEmpty:
			sum.Indexed++
			sum.Failed++
		case OutcomeSkippedUpToDate, OutcomeSkippedFetch:
			sum.Skipped++
		}
		log.Debug("index_file", slog.String("path", fe.Path), slog.String("outcome", outcome.String()))

		if opts.Progress != nil {
			opts.Progress(i+1, sum.Total, fe.Path)
		}
	}

	log.Info("index_build_complete",
		slog.Int("indexed", sum.Indexed),
		slog.Int("skipped", sum.Skipped),
		slog.Int("failed", sum.Failed),
		slog.Int("total", sum.Total),
		slog.Duration("duration", time.Since(start)))
	return sum, nil
}

// processFile indexes one candidate. Only storage failures are returned.
func (b *Builder) processFile(ctx context.Context, fe source.FileEntry, warn WarnFunc) (Outcome, error) {
	ext := fe.Ext()
	upToDate, err := b.index.IsUpToDate(ctx, fe.Path, fe.Modified, fe.Size, ext)
	if err != nil {
		return 0, err
	}
	if upToDate {
		return OutcomeSkippedUpToDate, nil
	}

	fetched := b.fetcher.Fetch(ctx, fe.Path)
	if !fetched.OK() {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		slog.Warn("index_fetch_skipped", append(amanerrors.LogAttrs(fetched.Err), slog.String("path", fe.Path))...)
		if warn != nil {
			warn(fe.Path, fetched.Err)
		}
		return OutcomeSkippedFetch, nil
	}

	outcome := OutcomeIndexed
	extracted := b.extractor.ExtractText(fetched.Data, fe.Name)
	if !extracted.OK() {
		slog.Warn("index_extract_failed", append(amanerrors.LogAttrs(extracted.Err), slog.String("path", fe.Path))...)
		if warn != nil {
			warn(fe.Path, extracted.Err)
		}
		outcome = OutcomeIndexedEmpty
	}

	meta := store.FileMeta{Path: fe.Path, Modified: fe.Modified, Size: fe.Size, Ext: ext}
	id, err := b.index.IndexFile(ctx, meta, extracted.Text)
	if err != nil {
		return 0, err
	}

	if b.vectors != nil {
		if head := headRunes(extracted.Text, b.embedPrefix); strings.TrimSpace(head) != "" {
			if err := b.vectors.Add(ctx, id, head); err != nil {
				slog.Warn("vector_add_failed", append(amanerrors.LogAttrs(err), slog.String("path", fe.Path))...)
			}
		}
	}
	return outcome, nil
}

// collect walks the scope depth first and returns the candidate files in
// walk order.
func (b *Builder) collect(ctx context.Context, opts BuildOptions) ([]source.FileEntry, error) {
	f := newFilter(opts)
	var out []source.FileEntry

	var walk func(folder string, root bool) error
	walk = func(folder string, root bool) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		files, err := b.lister.ListFiles(ctx, folder)
		if err == nil {
			var subs []source.Folder
			subs, err = b.lister.ListSubfolders(ctx, folder)
			if err == nil {
				for _, fe := range files {
					if f.keepFile(fe) {
						out = append(out, fe)
					}
				}
				for _, sub := range subs {
					if !f.enterFolder(sub.FullPath) {
						continue
					}
					if err := walk(sub.FullPath, false); err != nil {
						return err
					}
				}
				return nil
			}
		}

		if root || ctx.Err() != nil || amanerrors.IsFatal(err) {
			return err
		}
		slog.Warn("index_list_skipped", append(amanerrors.LogAttrs(err), slog.String("folder", folder))...)
		if opts.Warn != nil {
			opts.Warn(folder, err)
		}
		return nil
	}

	if err := walk(opts.Scope, true); err != nil {
		var ae *amanerrors.AmanError
		if errors.As(err, &ae) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, amanerrors.ListError(opts.Scope, err)
	}
	return out, nil
}

// filter applies include/exclude prefixes and ignore globs.
type filter struct {
	include []string
	exclude []string
	ignore  []string
}

func newFilter(opts BuildOptions) filter {
	return filter{include: opts.Include, exclude: opts.Exclude, ignore: opts.Ignore}
}

func (f filter) keepFile(fe source.FileEntry) bool {
	for _, pat := range f.ignore {
		if ok, _ := path.Match(pat, fe.Name); ok {
			return false
		}
	}
	return f.keepPath(fe.Path)
}

func (f filter) keepPath(p string) bool {
	for _, ex := range f.exclude {
		if store.InScope(p, ex) {
			return false
		}
	}
	if len(f.include) == 0 {
		return true
	}
	for _, in := range f.include {
		if store.InScope(p, in) {
			return true
		}
	}
	return false
}

// enterFolder reports whether the walk should descend into folder: it is
// not excluded, and it is inside an include or on the way to one.
func (f filter) enterFolder(folder string) bool {
	for _, ex := range f.exclude {
		if store.InScope(folder, ex) {
			return false
		}
	}
	if len(f.include) == 0 {
		return true
	}
	for _, in := range f.include {
		if store.InScope(folder, in) || store.InScope(in, folder) {
			return true
		}
	}
	return false
}

// headRunes returns at most n runes of s.
func headRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
