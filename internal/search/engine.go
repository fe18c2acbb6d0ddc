package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"golang.org/x/sync/errgroup"

	amanerrors "github.com/Aman-CERP/amandocs/internal/errors"
	"github.com/Aman-CERP/amandocs/internal/store"
)

// ErrNilDependency is returned when a required dependency is nil.
var ErrNilDependency = errors.New("nil dependency")

// Engine runs the retrieval strategies for a query and merges them.
// It is read-only and safe for concurrent use, including while a build
// writes to the same index.
type Engine struct {
	text    TextSearcher
	vectors VectorSearcher
	config  EngineConfig
}

// NewEngine creates a query engine. vectors may be nil, in which case
// Query.UseVector contributes nothing.
func NewEngine(text TextSearcher, vectors VectorSearcher, config EngineConfig) (*Engine, error) {
	if text == nil {
		return nil, fmt.Errorf("%w: text index is required", ErrNilDependency)
	}
	return &Engine{text: text, vectors: vectors, config: config.withDefaults()}, nil
}

// hitList is one strategy's output, tagged with its source.
type hitList struct {
	source Source
	hits   []store.Hit
}

// Search runs the strategies selected by q concurrently and merges their
// output in the fixed order exact (or verified), n-gram, vector. A file
// appears once, at its first position. Store failures are returned;
// a vector failure only empties the vector list.
func (e *Engine) Search(ctx context.Context, q Query) (*Result, error) {
	start := time.Now()
	q = e.applyDefaults(q)
	if strings.TrimSpace(q.Text) == "" {
		return nil, amanerrors.New(amanerrors.ErrCodeQueryEmpty, "query is empty", nil)
	}
	if n := utf8.RuneCountInString(q.Text); n > e.config.MaxQueryRunes {
		return nil, amanerrors.New(amanerrors.ErrCodeQueryTooLong,
			fmt.Sprintf("query has %d characters, the limit is %d", n, e.config.MaxQueryRunes), nil)
	}

	lists, err := e.parallelSearch(ctx, q)
	if err != nil {
		return nil, err
	}

	res := &Result{Hits: mergeHits(q.Within, q.Scope, q.Limit, lists...)}

	if len(res.Hits) == 0 {
		n, err := e.text.CountUnder(ctx, q.Scope)
		if err != nil {
			return nil, err
		}
		res.NeverIndexed = n == 0
	}

	slog.Debug("search_complete",
		slog.String("scope", q.Scope),
		slog.Bool("verify", q.Verify),
		slog.Bool("vector", q.UseVector),
		slog.Bool("refined", q.Within != nil),
		slog.Int("results", len(res.Hits)),
		slog.Duration("latency", time.Since(start)))
	return res, nil
}

// parallelSearch runs the selected strategies. The returned lists are
// always in merge order regardless of which finished first.
func (e *Engine) parallelSearch(ctx context.Context, q Query) ([]hitList, error) {
	g, gctx := errgroup.WithContext(ctx)

	limit := q.Limit
	if q.Within != nil {
		limit = store.NoLimit
	}

	var primary, recall, vector hitList

	g.Go(func() error {
		var err error
		if q.Verify {
			primary.source = SourceVerified
			primary.hits, err = e.text.SearchNGramVerified(gctx, q.Text, limit, q.Scope)
		} else {
			primary.source = SourceExact
			primary.hits, err = e.text.SearchExact(gctx, q.Text, limit, q.Scope)
		}
		return err
	})

	if !q.Verify {
		g.Go(func() error {
			var err error
			recall.source = SourceNGram
			recall.hits, err = e.text.SearchNGram(gctx, q.Text, limit, q.Scope)
			return err
		})
	}

	if q.UseVector && e.vectors != nil {
		g.Go(func() error {
			vector.source = SourceVector
			vector.hits = e.vectorHits(gctx, q.Text)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return []hitList{primary, recall, vector}, nil
}

// vectorHits embeds the query and resolves neighbour ids to paths.
func (e *Engine) vectorHits(ctx context.Context, text string) []store.Hit {
	vctx, cancel := context.WithTimeout(ctx, e.config.VectorTimeout)
	defer cancel()

	ids := e.vectors.Search(vctx, text, e.config.VectorK)
	if len(ids) == 0 {
		return nil
	}
	recs, err := e.text.ResolveByIDs(ctx, ids)
	if err != nil {
		slog.Warn("search_vector_resolve_failed", amanerrors.LogAttrs(err)...)
		return nil
	}
	hits := make([]store.Hit, 0, len(recs))
	for _, r := range recs {
		hits = append(hits, store.Hit{ID: r.ID, Path: r.Path})
	}
	return hits
}

// mergeHits concatenates lists in order, keeps hits under scope and in
// within (when set), drops repeated ids and stops at limit.
func mergeHits(within *roaring64.Bitmap, scope string, limit int, lists ...hitList) []Hit {
	seen := make(map[int64]struct{})
	out := []Hit{}
	for _, l := range lists {
		for _, h := range l.hits {
			if within != nil && !within.Contains(uint64(h.ID)) {
				continue
			}
			if !store.InScope(h.Path, scope) {
				continue
			}
			if _, dup := seen[h.ID]; dup {
				continue
			}
			seen[h.ID] = struct{}{}
			out = append(out, Hit{ID: h.ID, Path: h.Path, Source: l.source})
			if limit > 0 && len(out) >= limit {
				return out
			}
		}
	}
	return out
}
