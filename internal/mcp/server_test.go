package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amandocs/internal/config"
	amerrors "github.com/Aman-CERP/amandocs/internal/errors"
	"github.com/Aman-CERP/amandocs/internal/index"
	"github.com/Aman-CERP/amandocs/internal/lock"
	"github.com/Aman-CERP/amandocs/internal/search"
	"github.com/Aman-CERP/amandocs/internal/service"
	"github.com/Aman-CERP/amandocs/internal/store"
)

// stubText answers exact searches from a fixed table.
type stubText struct {
	results map[string][]store.Hit
	count   int
}

func (s *stubText) SearchExact(_ context.Context, q string, _ int, _ string) ([]store.Hit, error) {
	if q == "fail" {
		return nil, amerrors.StorageError("disk", errors.New("io"))
	}
	return s.results[q], nil
}

func (s *stubText) SearchNGram(context.Context, string, int, string) ([]store.Hit, error) {
	return nil, nil
}

func (s *stubText) SearchNGramVerified(_ context.Context, q string, _ int, _ string) ([]store.Hit, error) {
	return s.results[q], nil
}

func (s *stubText) CountUnder(context.Context, string) (int, error) { return s.count, nil }

func (s *stubText) ResolveByIDs(context.Context, []int64) ([]store.FileRecord, error) {
	return nil, nil
}

// MockIndex implements Index for testing.
type MockIndex struct {
	engine   *search.Engine
	BuildFn  func(ctx context.Context, opts index.BuildOptions) (*index.Summary, error)
	StatusFn func(ctx context.Context, scope string) (*service.ScopeStatus, error)
}

func (m *MockIndex) NewSession() *search.Session { return m.engine.NewSession() }

func (m *MockIndex) Build(ctx context.Context, opts index.BuildOptions) (*index.Summary, error) {
	if m.BuildFn != nil {
		return m.BuildFn(ctx, opts)
	}
	return &index.Summary{Scope: opts.Scope, Status: index.StatusCompleted}, nil
}

func (m *MockIndex) Status(ctx context.Context, scope string) (*service.ScopeStatus, error) {
	if m.StatusFn != nil {
		return m.StatusFn(ctx, scope)
	}
	return &service.ScopeStatus{Scope: scope}, nil
}

// MockStorage implements Storage for testing.
type MockStorage struct {
	SizesFn func() service.Sizes
	ResetFn func(ctx context.Context) (int64, error)
}

func (m *MockStorage) Sizes() service.Sizes {
	if m.SizesFn != nil {
		return m.SizesFn()
	}
	return service.Sizes{}
}

func (m *MockStorage) Reset(ctx context.Context) (int64, error) {
	if m.ResetFn != nil {
		return m.ResetFn(ctx)
	}
	return 0, nil
}

func newMockIndex(t *testing.T, text *stubText) *MockIndex {
	t.Helper()
	e, err := search.NewEngine(text, nil, search.EngineConfig{})
	require.NoError(t, err)
	return &MockIndex{engine: e}
}

func newTestServer(t *testing.T, idx *MockIndex, st *MockStorage) *Server {
	t.Helper()
	if st == nil {
		st = &MockStorage{}
	}
	s, err := NewServer(idx, st, config.NewConfig())
	require.NoError(t, err)
	return s
}

var table = map[string][]store.Hit{
	"contract": {{ID: 1, Path: "/docs/a.pdf"}, {ID: 2, Path: "/docs/b.pdf"}, {ID: 3, Path: "/docs/c.pdf"}},
	"2024":     {{ID: 3, Path: "/docs/c.pdf"}, {ID: 4, Path: "/docs/d.pdf"}, {ID: 1, Path: "/docs/a.pdf"}},
}

func TestNewServer_RequiresDependencies(t *testing.T) {
	_, err := NewServer(nil, &MockStorage{}, nil)
	assert.Error(t, err)

	_, err = NewServer(newMockIndex(t, &stubText{}), nil, nil)
	assert.Error(t, err)

	s, err := NewServer(newMockIndex(t, &stubText{}), &MockStorage{}, nil)
	require.NoError(t, err)
	assert.NotNil(t, s.MCPServer())
	name, _ := s.Info()
	assert.Equal(t, "amandocs", name)
}

func TestServer_ListTools(t *testing.T) {
	s := newTestServer(t, newMockIndex(t, &stubText{}), nil)

	var names []string
	for _, tool := range s.ListTools() {
		names = append(names, tool.Name)
		assert.NotEmpty(t, tool.Description)
	}

	assert.Equal(t, []string{"search", "index", "index_status", "storage"}, names)
}

// TS-MCP-01: refine narrows the previous result and a plain search restarts
func TestServer_Search_Refine(t *testing.T) {
	// Given: a server over a fixed result table
	s := newTestServer(t, newMockIndex(t, &stubText{results: table, count: 4}), nil)
	ctx := context.Background()

	// When: searching, then refining with a second query
	first, err := s.CallTool(ctx, "search", map[string]any{"query": "contract"})
	require.NoError(t, err)
	refined, err := s.CallTool(ctx, "search", map[string]any{"query": "2024", "refine": true})
	require.NoError(t, err)

	// Then: the refined result only keeps files from the first
	assert.Len(t, first.(*SearchOutput).Results, 3)
	out := refined.(*SearchOutput)
	assert.True(t, out.Refined)
	assert.Equal(t, []SearchHit{{Path: "/docs/c.pdf", Source: "exact"}, {Path: "/docs/a.pdf", Source: "exact"}}, out.Results)
	assert.Equal(t, 2, out.SessionSize)

	// When: running a plain search again
	plain, err := s.CallTool(ctx, "search", map[string]any{"query": "2024"})
	require.NoError(t, err)

	// Then: the whole index is searched
	assert.False(t, plain.(*SearchOutput).Refined)
	assert.Len(t, plain.(*SearchOutput).Results, 3)
}

func TestServer_Search_ResetSession(t *testing.T) {
	s := newTestServer(t, newMockIndex(t, &stubText{results: table, count: 4}), nil)
	ctx := context.Background()

	_, err := s.CallTool(ctx, "search", map[string]any{"query": "contract"})
	require.NoError(t, err)
	out, err := s.CallTool(ctx, "search", map[string]any{"query": "2024", "refine": true, "reset_session": true})
	require.NoError(t, err)

	assert.False(t, out.(*SearchOutput).Refined)
	assert.Len(t, out.(*SearchOutput).Results, 3)
}

func TestServer_Search_InvalidParams(t *testing.T) {
	s := newTestServer(t, newMockIndex(t, &stubText{}), nil)
	ctx := context.Background()

	tests := []struct {
		name string
		args map[string]any
	}{
		{"missing query", map[string]any{}},
		{"whitespace query", map[string]any{"query": "   "}},
		{"negative limit", map[string]any{"query": "x", "limit": -1}},
		{"wrong type", map[string]any{"query": 42}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CallTool(ctx, "search", tt.args)

			var mcpErr *MCPError
			require.ErrorAs(t, err, &mcpErr)
			assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
		})
	}
}

func TestServer_Search_StorageError(t *testing.T) {
	s := newTestServer(t, newMockIndex(t, &stubText{}), nil)

	_, err := s.CallTool(context.Background(), "search", map[string]any{"query": "fail"})

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeInternalError, mcpErr.Code)
}

func TestServer_Search_NeverIndexed(t *testing.T) {
	s := newTestServer(t, newMockIndex(t, &stubText{count: 0}), nil)

	out, err := s.CallTool(context.Background(), "search", map[string]any{"query": "x", "scope": "/new"})
	require.NoError(t, err)

	res := out.(*SearchOutput)
	assert.True(t, res.NeverIndexed)
	assert.Contains(t, FormatSearchResults(res), "run the index tool")
}

func TestServer_Index(t *testing.T) {
	// Given: a builder that warns once
	idx := newMockIndex(t, &stubText{})
	var got index.BuildOptions
	idx.BuildFn = func(_ context.Context, opts index.BuildOptions) (*index.Summary, error) {
		got = opts
		opts.Warn("/docs/bad", errors.New("unreadable"))
		return &index.Summary{
			Scope: "/docs/", Status: index.StatusCompleted,
			Indexed: 3, Skipped: 1, Total: 4, Duration: 1500 * time.Millisecond,
		}, nil
	}
	s := newTestServer(t, idx, nil)

	// When: calling the index tool
	out, err := s.CallTool(context.Background(), "index", map[string]any{
		"scope": "/docs", "exclude": []any{"/docs/tmp"},
	})
	require.NoError(t, err)

	// Then: options are passed through and the summary is reported
	assert.Equal(t, "/docs", got.Scope)
	assert.Equal(t, []string{"/docs/tmp"}, got.Exclude)
	res := out.(*IndexOutput)
	assert.Equal(t, "completed", res.Status)
	assert.Equal(t, 3, res.Indexed)
	assert.Equal(t, 1, res.Warnings)
	assert.Equal(t, int64(1500), res.DurationMS)
	assert.Contains(t, FormatIndexSummary(res), "1.5s")
}

func TestServer_Index_Locked(t *testing.T) {
	idx := newMockIndex(t, &stubText{})
	idx.BuildFn = func(_ context.Context, opts index.BuildOptions) (*index.Summary, error) {
		return &index.Summary{Scope: opts.Scope, Status: index.StatusLocked}, nil
	}
	s := newTestServer(t, idx, nil)

	out, err := s.CallTool(context.Background(), "index", map[string]any{"scope": "/docs"})
	require.NoError(t, err)

	assert.Equal(t, "locked", out.(*IndexOutput).Status)
	assert.Contains(t, FormatIndexSummary(out.(*IndexOutput)), "Another build")
}

func TestServer_IndexStatus(t *testing.T) {
	idx := newMockIndex(t, &stubText{results: table, count: 4})
	idx.StatusFn = func(_ context.Context, scope string) (*service.ScopeStatus, error) {
		return &service.ScopeStatus{
			Source:       "local:/srv/docs",
			Scope:        "/docs/",
			IndexedFiles: 1234,
			Embedder:     "static (256 dims)",
			Lock:         lock.Status{Locked: true, AgeSeconds: 30, Owner: "host:42"},
			Storage:      service.Sizes{Total: 2048},
		}, nil
	}
	s := newTestServer(t, idx, nil)
	ctx := context.Background()
	_, err := s.CallTool(ctx, "search", map[string]any{"query": "contract"})
	require.NoError(t, err)

	out, err := s.CallTool(ctx, "index_status", map[string]any{"scope": "/docs"})
	require.NoError(t, err)

	res := out.(*IndexStatusOutput)
	assert.Equal(t, 1234, res.IndexedFiles)
	assert.True(t, res.Lock.Locked)
	assert.True(t, res.SessionActive)
	assert.Equal(t, 3, res.SessionSize)
	text := FormatIndexStatus(res)
	assert.Contains(t, text, "1,234")
	assert.Contains(t, text, "by host:42")
	assert.Contains(t, text, "2.0 KiB")
}

func TestServer_Storage(t *testing.T) {
	// Given: storage that frees everything on reset
	total := int64(4096)
	st := &MockStorage{
		SizesFn: func() service.Sizes { return service.Sizes{Primary: total, Total: total} },
		ResetFn: func(context.Context) (int64, error) {
			freed := total
			total = 0
			return freed, nil
		},
	}
	s := newTestServer(t, newMockIndex(t, &stubText{results: table, count: 4}), st)
	ctx := context.Background()
	_, err := s.CallTool(ctx, "search", map[string]any{"query": "contract"})
	require.NoError(t, err)

	// When: reading sizes
	out, err := s.CallTool(ctx, "storage", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(4096), out.(*StorageOutput).Sizes.Total)
	assert.False(t, out.(*StorageOutput).Reset)

	// When: resetting
	out, err = s.CallTool(ctx, "storage", map[string]any{"reset": true})
	require.NoError(t, err)

	// Then: freed bytes are reported and the refine session is dropped
	res := out.(*StorageOutput)
	assert.True(t, res.Reset)
	assert.Equal(t, int64(4096), res.FreedBytes)
	assert.Equal(t, int64(0), res.Sizes.Total)
	assert.False(t, s.session.Active())
	assert.Contains(t, FormatStorage(res), "Freed 4.0 KiB")
}

func TestServer_Storage_ResetRefused(t *testing.T) {
	st := &MockStorage{ResetFn: func(context.Context) (int64, error) {
		return 0, amerrors.New(amerrors.ErrCodeBuildRunning, "an index build is running", nil)
	}}
	s := newTestServer(t, newMockIndex(t, &stubText{}), st)

	_, err := s.CallTool(context.Background(), "storage", map[string]any{"reset": true})

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeBusy, mcpErr.Code)
}

func TestServer_CallTool_Unknown(t *testing.T) {
	s := newTestServer(t, newMockIndex(t, &stubText{}), nil)

	_, err := s.CallTool(context.Background(), "search_code", nil)

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeMethodNotFound, mcpErr.Code)
}

func TestServer_Serve_UnknownTransport(t *testing.T) {
	s := newTestServer(t, newMockIndex(t, &stubText{}), nil)

	err := s.Serve(context.Background(), "sse")

	assert.ErrorContains(t, err, "unknown transport")
}
