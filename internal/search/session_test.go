package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amandocs/internal/store"
)

func TestSession_RefinesWithPriorResult(t *testing.T) {
	// Given: a first query matching a, b, c
	results := map[string][]store.Hit{
		"contract": hits(1, "/a", 2, "/b", 3, "/c"),
		"2024":     hits(4, "/d", 3, "/c", 1, "/a"),
		"none":     nil,
	}
	text := &MockText{ExactFn: func(_ context.Context, q string, _ int, _ string) ([]store.Hit, error) {
		return results[q], nil
	}}
	e, err := NewEngine(text, nil, EngineConfig{})
	require.NoError(t, err)
	s := e.NewSession()
	ctx := context.Background()

	first, err := s.Search(ctx, Query{Text: "contract"})
	require.NoError(t, err)
	assert.False(t, first.Refined)
	assert.Equal(t, 3, s.Len())

	// When: a second query runs in the same session
	second, err := s.Search(ctx, Query{Text: "2024"})
	require.NoError(t, err)

	// Then: only files from the first result remain, in the new order
	assert.True(t, second.Refined)
	assert.Equal(t, []string{"/c", "/a"}, second.Paths())
	assert.Equal(t, 2, s.Len())

	// And an empty refinement keeps the active set
	third, err := s.Search(ctx, Query{Text: "none"})
	require.NoError(t, err)
	assert.Empty(t, third.Hits)
	assert.Equal(t, 2, s.Len())

	// When: reset
	s.Reset()
	assert.False(t, s.Active())

	// Then: the next query searches the whole scope again
	again, err := s.Search(ctx, Query{Text: "2024"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/d", "/c", "/a"}, again.Paths())
}

func TestSession_ErrorLeavesSetUntouched(t *testing.T) {
	text := &MockText{ExactFn: returning(hits(1, "/a"))}
	e, err := NewEngine(text, nil, EngineConfig{})
	require.NoError(t, err)
	s := e.NewSession()

	_, err = s.Search(context.Background(), Query{Text: "q"})
	require.NoError(t, err)
	_, err = s.Search(context.Background(), Query{Text: ""})
	require.Error(t, err)

	assert.Equal(t, 1, s.Len())
}

// TS-REFINE-01: a prior match ranked below the limit is still found
func TestSession_RefineFindsLowRankedMatch(t *testing.T) {
	// Given: four short files and one long file all containing "common"
	idx := newStoreIndex(t)
	for _, p := range []string{"/docs/a.txt", "/docs/b.txt", "/docs/c.txt", "/docs/d.txt"} {
		index(t, idx, p, "common common")
	}
	index(t, idx, "/docs/x.txt",
		"alpha common and a long tail of other words that pushes this file down the ranking")
	e, err := NewEngine(idx, nil, EngineConfig{})
	require.NoError(t, err)
	s := e.NewSession()
	ctx := context.Background()

	first, err := s.Search(ctx, Query{Text: "alpha", Scope: "/docs", Limit: 2})
	require.NoError(t, err)
	require.Equal(t, []string{"/docs/x.txt"}, first.Paths())

	// When: refining with a query whose top hits are all outside the set
	second, err := s.Search(ctx, Query{Text: "common", Scope: "/docs", Limit: 2})
	require.NoError(t, err)

	// Then: the prior match comes back
	assert.True(t, second.Refined)
	assert.Equal(t, []string{"/docs/x.txt"}, second.Paths())
}

func TestSession_ResetDuringSearchWins(t *testing.T) {
	var s *Session
	text := &MockText{ExactFn: func(context.Context, string, int, string) ([]store.Hit, error) {
		s.Reset()
		return hits(1, "/a"), nil
	}}
	e, err := NewEngine(text, nil, EngineConfig{})
	require.NoError(t, err)
	s = e.NewSession()

	_, err = s.Search(context.Background(), Query{Text: "q"})
	require.NoError(t, err)

	assert.True(t, s.Active())
	_, err = s.Search(context.Background(), Query{Text: "q"})
	require.NoError(t, err)
	assert.False(t, s.Active())
}
