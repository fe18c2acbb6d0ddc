package search

import (
	"context"
	"sync"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// Session narrows successive queries. Once a query has produced results,
// later queries only return files that were in the previous result, until
// Reset is called.
type Session struct {
	mu     sync.Mutex
	engine *Engine
	active *roaring64.Bitmap
}

// NewSession starts a session with no active result set.
func (e *Engine) NewSession() *Session {
	return &Session{engine: e}
}

// Search runs q and, when a result set is active, restricts the output to
// it before the limit is applied. The order of the new output is kept. The
// refined result becomes the new active set; an empty result leaves the set
// unchanged.
func (s *Session) Search(ctx context.Context, q Query) (*Result, error) {
	s.mu.Lock()
	prior := s.active
	s.mu.Unlock()

	q.Within = prior
	res, err := s.engine.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	res.Refined = prior != nil
	if len(res.Hits) == 0 {
		return res, nil
	}

	next := roaring64.New()
	for _, h := range res.Hits {
		next.Add(uint64(h.ID))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// A Reset while the query ran wins.
	if s.active == prior {
		s.active = next
	}
	return res, nil
}

// Active reports whether a prior result set is narrowing queries.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active != nil
}

// Len returns the size of the active result set.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return 0
	}
	return int(s.active.GetCardinality())
}

// Reset drops the active result set.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = nil
}
