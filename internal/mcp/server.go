package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/amandocs/internal/config"
	"github.com/Aman-CERP/amandocs/internal/index"
	"github.com/Aman-CERP/amandocs/internal/search"
	"github.com/Aman-CERP/amandocs/internal/service"
	"github.com/Aman-CERP/amandocs/pkg/version"
)

// Index is the part of the index service the tools call.
type Index interface {
	NewSession() *search.Session
	Build(ctx context.Context, opts index.BuildOptions) (*index.Summary, error)
	Status(ctx context.Context, scope string) (*service.ScopeStatus, error)
}

// Storage reports and resets on-disk usage.
type Storage interface {
	Sizes() service.Sizes
	Reset(ctx context.Context) (int64, error)
}

// Server is the MCP server for amandocs.
// It lets AI clients search, build and inspect the document index.
type Server struct {
	mcp     *mcp.Server
	index   Index
	storage Storage
	config  *config.Config
	logger  *slog.Logger

	// session narrows refined searches; one per server, created lazily.
	session *search.Session

	mu sync.Mutex
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

var tools = []ToolInfo{
	{
		Name: ToolSearch,
		Description: "Find documents in the indexed file store by text. Exact matches come first, then " +
			"character n-gram matches, then optional semantic matches. Set refine to narrow the previous " +
			"result with a new query.",
	},
	{
		Name: ToolIndex,
		Description: "Index new and changed files under a folder. Unchanged files are skipped. " +
			"Returns status locked when another build is already indexing the same folder.",
	},
	{
		Name:        ToolIndexStatus,
		Description: "Report how many files are indexed under a folder, whether a build holds its lock, and disk usage.",
	},
	{
		Name:        ToolStorage,
		Description: "Report the disk usage of the index. With reset, delete the index and vectors entirely.",
	},
}

// NewServer creates a new MCP server.
func NewServer(idx Index, storage Storage, cfg *config.Config) (*Server, error) {
	if idx == nil {
		return nil, errors.New("index is required")
	}
	if storage == nil {
		return nil, errors.New("storage is required")
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}

	s := &Server{
		index:   idx,
		storage: storage,
		config:  cfg,
		logger:  slog.Default(),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "amandocs",
			Version: version.Version,
		},
		nil,
	)
	s.registerTools()
	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return "amandocs", version.Version
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	out := make([]ToolInfo, len(tools))
	copy(out, tools)
	return out
}

// CallTool invokes a tool by name with JSON-style arguments.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case ToolSearch:
		var in SearchInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.handleSearch(ctx, in)
	case ToolIndex:
		var in IndexInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.handleIndex(ctx, in)
	case ToolIndexStatus:
		var in IndexStatusInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.handleIndexStatus(ctx, in)
	case ToolStorage:
		var in StorageInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.handleStorage(ctx, in)
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

func decodeArgs(args map[string]any, out any) error {
	if len(args) == 0 {
		return nil
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return NewInvalidParamsError(err.Error())
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return NewInvalidParamsError(err.Error())
	}
	return nil
}

// currentSession returns the refine session, creating it on first use.
func (s *Server) currentSession() *search.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		s.session = s.index.NewSession()
	}
	return s.session
}

// handleSearch runs the search tool.
func (s *Server) handleSearch(ctx context.Context, in SearchInput) (*SearchOutput, error) {
	start := time.Now()
	requestID := generateRequestID()

	if strings.TrimSpace(in.Query) == "" {
		return nil, NewInvalidParamsError("query cannot be empty or whitespace only")
	}
	if in.Limit < 0 {
		return nil, NewInvalidParamsError("limit must not be negative")
	}

	q := search.Query{
		Text:      in.Query,
		Scope:     in.Scope,
		Limit:     in.Limit,
		Verify:    in.Verify || s.config.Search.Verify,
		UseVector: in.Vector || s.config.Search.UseVector,
	}

	s.logger.Info("search started",
		slog.String("request_id", requestID),
		slog.String("query", in.Query),
		slog.String("scope", in.Scope),
		slog.Bool("refine", in.Refine))

	// A search without refine starts a new chain.
	sess := s.currentSession()
	if in.ResetSession || !in.Refine {
		sess.Reset()
	}
	res, err := sess.Search(ctx, q)
	duration := time.Since(start)
	if err != nil {
		s.logger.Error("search failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	out := &SearchOutput{
		Query:        in.Query,
		Scope:        in.Scope,
		Results:      make([]SearchHit, 0, len(res.Hits)),
		NeverIndexed: res.NeverIndexed,
		Refined:      res.Refined,
		SessionSize:  sess.Len(),
	}
	for _, h := range res.Hits {
		out.Results = append(out.Results, SearchHit{Path: h.Path, Source: string(h.Source)})
	}

	s.logger.Info("search completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", duration),
		slog.Int("result_count", len(out.Results)))
	return out, nil
}

// handleIndex runs the index tool.
func (s *Server) handleIndex(ctx context.Context, in IndexInput) (*IndexOutput, error) {
	requestID := generateRequestID()
	s.logger.Info("index started",
		slog.String("request_id", requestID),
		slog.String("scope", in.Scope))

	var warnings int
	sum, err := s.index.Build(ctx, index.BuildOptions{
		Scope:   in.Scope,
		Include: in.Include,
		Exclude: in.Exclude,
		Warn:    func(string, error) { warnings++ },
	})
	if err != nil {
		s.logger.Error("index failed",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	s.logger.Info("index completed",
		slog.String("request_id", requestID),
		slog.String("status", string(sum.Status)),
		slog.Int("indexed", sum.Indexed))
	return &IndexOutput{
		Scope:      sum.Scope,
		Status:     string(sum.Status),
		Indexed:    sum.Indexed,
		Skipped:    sum.Skipped,
		Failed:     sum.Failed,
		Total:      sum.Total,
		Warnings:   warnings,
		DurationMS: sum.Duration.Milliseconds(),
	}, nil
}

// handleIndexStatus runs the index_status tool.
func (s *Server) handleIndexStatus(ctx context.Context, in IndexStatusInput) (*IndexStatusOutput, error) {
	st, err := s.index.Status(ctx, in.Scope)
	if err != nil {
		return nil, MapError(err)
	}

	s.mu.Lock()
	sess := s.session
	s.mu.Unlock()

	out := &IndexStatusOutput{
		Source:       st.Source,
		Scope:        st.Scope,
		IndexedFiles: st.IndexedFiles,
		VectorNodes:  st.VectorNodes,
		Embedder:     st.Embedder,
		Lock: LockOutput{
			Locked:     st.Lock.Locked,
			AgeSeconds: st.Lock.AgeSeconds,
			Stale:      st.Lock.Stale,
			Owner:      st.Lock.Owner,
		},
		Storage: st.Storage,
	}
	if sess != nil && sess.Active() {
		out.SessionActive = true
		out.SessionSize = sess.Len()
	}
	return out, nil
}

// handleStorage runs the storage tool.
func (s *Server) handleStorage(ctx context.Context, in StorageInput) (*StorageOutput, error) {
	if !in.Reset {
		return &StorageOutput{Sizes: s.storage.Sizes()}, nil
	}

	freed, err := s.storage.Reset(ctx)
	if err != nil {
		return nil, MapError(err)
	}
	s.mu.Lock()
	if s.session != nil {
		s.session.Reset()
	}
	s.mu.Unlock()

	s.logger.Warn("storage reset via mcp", slog.Int64("freed_bytes", freed))
	return &StorageOutput{Sizes: s.storage.Sizes(), Reset: true, FreedBytes: freed}, nil
}

// registerTools registers all tools with the MCP server.
func (s *Server) registerTools() {
	s.logger.Debug("Registering MCP tools")

	mcp.AddTool(s.mcp, &mcp.Tool{Name: ToolSearch, Description: tools[0].Description}, s.mcpSearchHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: ToolIndex, Description: tools[1].Description}, s.mcpIndexHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: ToolIndexStatus, Description: tools[2].Description}, s.mcpIndexStatusHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: ToolStorage, Description: tools[3].Description}, s.mcpStorageHandler)

	s.logger.Info("MCP tools registered", slog.Int("count", len(tools)))
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

func (s *Server) mcpSearchHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult,
	*SearchOutput,
	error,
) {
	out, err := s.handleSearch(ctx, input)
	if err != nil {
		return nil, nil, err
	}
	return textResult(FormatSearchResults(out)), out, nil
}

func (s *Server) mcpIndexHandler(ctx context.Context, _ *mcp.CallToolRequest, input IndexInput) (
	*mcp.CallToolResult,
	*IndexOutput,
	error,
) {
	out, err := s.handleIndex(ctx, input)
	if err != nil {
		return nil, nil, err
	}
	return textResult(FormatIndexSummary(out)), out, nil
}

func (s *Server) mcpIndexStatusHandler(ctx context.Context, _ *mcp.CallToolRequest, input IndexStatusInput) (
	*mcp.CallToolResult,
	*IndexStatusOutput,
	error,
) {
	out, err := s.handleIndexStatus(ctx, input)
	if err != nil {
		return nil, nil, err
	}
	return textResult(FormatIndexStatus(out)), out, nil
}

func (s *Server) mcpStorageHandler(ctx context.Context, _ *mcp.CallToolRequest, input StorageInput) (
	*mcp.CallToolResult,
	*StorageOutput,
	error,
) {
	out, err := s.handleStorage(ctx, input)
	if err != nil {
		return nil, nil, err
	}
	return textResult(FormatStorage(out)), out, nil
}

// Serve starts the server with the specified transport.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("Starting MCP server", slog.String("transport", transport))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("MCP server stopped with error", slog.String("error", err.Error()))
		} else {
			s.logger.Info("MCP server stopped gracefully")
		}
		return err
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
