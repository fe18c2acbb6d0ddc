// Package search answers queries against the text and vector indexes.
// Results from exact, n-gram and vector retrieval are merged in that fixed
// order and deduplicated by file, so exact matches always lead.
package search

import (
	"context"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/Aman-CERP/amandocs/internal/store"
)

// Source names the retrieval strategy that produced a hit.
type Source string

const (
	SourceExact    Source = "exact"
	SourceVerified Source = "verified"
	SourceNGram    Source = "ngram"
	SourceVector   Source = "vector"
)

// TextSearcher is the read side of the SQLite index.
type TextSearcher interface {
	SearchExact(ctx context.Context, query string, limit int, scope string) ([]store.Hit, error)
	SearchNGram(ctx context.Context, query string, limit int, scope string) ([]store.Hit, error)
	SearchNGramVerified(ctx context.Context, query string, limit int, scope string) ([]store.Hit, error)
	CountUnder(ctx context.Context, scope string) (int, error)
	ResolveByIDs(ctx context.Context, ids []int64) ([]store.FileRecord, error)
}

// VectorSearcher returns file ids nearest to a query. It never fails.
type VectorSearcher interface {
	Search(ctx context.Context, query string, k int) []int64
}

// Query is one search request.
type Query struct {
	// Text is the user query.
	Text string

	// Scope restricts results to a folder subtree. Empty means everything.
	Scope string

	// Limit caps the merged result (default: EngineConfig.DefaultLimit).
	Limit int

	// Verify replaces the exact and n-gram lists with the verified n-gram
	// list, which only keeps files containing Text verbatim.
	Verify bool

	// UseVector adds nearest-neighbour hits after the text hits.
	UseVector bool

	// Within, when set, keeps only hits whose file id is in the bitmap.
	// The text strategies then run without a limit so that members ranked
	// low for this query are still found; Limit applies after filtering.
	Within *roaring64.Bitmap
}

// Hit is one merged result.
type Hit struct {
	ID     int64  `json:"id"`
	Path   string `json:"path"`
	Source Source `json:"source"`
}

// Result is the merged answer to a Query.
type Result struct {
	Hits []Hit `json:"hits"`

	// NeverIndexed is set when nothing under the scope has been indexed,
	// which usually means a build should be run first.
	NeverIndexed bool `json:"never_indexed,omitempty"`

	// Refined is set when the hits were narrowed by a session's prior set.
	Refined bool `json:"refined,omitempty"`
}

// Paths returns the hit paths in order.
func (r *Result) Paths() []string {
	out := make([]string, 0, len(r.Hits))
	for _, h := range r.Hits {
		out = append(out, h.Path)
	}
	return out
}
