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
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/ancheck/internal/app"
	"github.com/Aman-CERP/ancheck/internal/search"
	"github.com/Aman-CERP/ancheck/internal/telemetry"
	"github.com/Aman-CERP/ancheck/pkg/version"
)

// Host is the set of boundary operations the server exposes.
// *app.App satisfies it.
type Host interface {
	SearchN(ctx context.Context, query string, limit int) ([]*search.SearchResult, error)
	EvalMath(query string) (string, bool)
	LaunchFile(ctx context.Context, path string) error
	OpenContainingFolder(path string) error
	RebuildIndex(ctx context.Context) (int, error)
	Status(ctx context.Context) (*app.Status, error)
	Metrics() *telemetry.QueryMetrics
}

var _ Host = (*app.App)(nil)

// Server is the MCP server for ancheck. It lets AI clients find and open
// local files through the same index the launcher uses.
type Server struct {
	mcp    *mcp.Server
	host   Host
	logger *slog.Logger
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

var tools = []ToolInfo{
	{
		Name:        "search",
		Description: "Find local files, folders and apps by name. Ranks exact, prefix and substring matches first, then fuzzy matches, boosted by how often and how recently an entry was opened. Arithmetic queries also return the computed value.",
	},
	{
		Name:        "eval_math",
		Description: "Evaluate an arithmetic expression with + - * / % ^ and parentheses. Returns ok=false for anything that is not arithmetic.",
	},
	{
		Name:        "launch_file",
		Description: "Open a file, folder or application with the operating system's default handler and count it as used for ranking.",
	},
	{
		Name:        "open_containing_folder",
		Description: "Show a file in the system file manager.",
	},
	{
		Name:        "rebuild_index",
		Description: "Run a full index pass over the configured roots. Fails immediately if a pass is already running.",
	},
	{
		Name:        "index_status",
		Description: "Report the number of indexed entries, whether a pass is running and when the last full and incremental passes finished.",
	},
}

// NewServer creates an MCP server over host.
func NewServer(host Host) (*Server, error) {
	if host == nil {
		return nil, errors.New("host is required")
	}

	s := &Server{
		host:   host,
		logger: slog.Default(),
	}
	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    version.Name,
			Version: version.Version,
		},
		nil,
	)

	s.registerTools()
	s.registerResources()
	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return version.Name, version.Version
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	out := make([]ToolInfo, len(tools))
	copy(out, tools)
	return out
}

func toolDescription(name string) string {
	for _, t := range tools {
		if t.Name == name {
			return t.Description
		}
	}
	return ""
}

// CallTool invokes a tool by name with JSON-style arguments, bypassing
// the transport. It returns the tool's structured output.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case "search":
		var in SearchInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		out, _, err := s.search(ctx, in)
		return out, err
	case "eval_math":
		var in EvalMathInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.evalMath(in)
	case "launch_file":
		var in PathInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.launchFile(ctx, in)
	case "open_containing_folder":
		var in PathInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.openContainingFolder(ctx, in)
	case "rebuild_index":
		return s.rebuildIndex(ctx)
	case "index_status":
		return s.indexStatus(ctx)
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

func decodeArgs(args map[string]any, v any) error {
	if len(args) == 0 {
		return nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return NewInvalidParamsError(err.Error())
	}
	if err := json.Unmarshal(data, v); err != nil {
		return NewInvalidParamsError(err.Error())
	}
	return nil
}

// search runs a query and returns the structured output plus markdown.
func (s *Server) search(ctx context.Context, in SearchInput) (*SearchOutput, string, error) {
	if strings.TrimSpace(in.Query) == "" {
		return &SearchOutput{Query: in.Query, Results: []SearchResultOutput{}}, FormatSearchResults(in.Query, "", nil), nil
	}
	limit := clampLimit(in.Limit, defaultLimit, maxLimit)

	start := time.Now()
	requestID := generateRequestID()
	s.logger.Info("search_started",
		slog.String("request_id", requestID),
		slog.String("query", in.Query),
		slog.Int("limit", limit))

	results, err := s.host.SearchN(ctx, in.Query, limit)
	if err != nil {
		s.logger.Error("search_failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()))
		return nil, "", MapError(err)
	}
	math, _ := s.host.EvalMath(in.Query)

	out := &SearchOutput{
		Query:   in.Query,
		Math:    math,
		Results: make([]SearchResultOutput, 0, len(results)),
	}
	for _, r := range filterValidResults(results) {
		out.Results = append(out.Results, ToSearchResultOutput(r))
	}

	s.logger.Info("search_completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", time.Since(start)),
		slog.Int("result_count", len(out.Results)))

	return out, FormatSearchResults(in.Query, math, results), nil
}

func (s *Server) evalMath(in EvalMathInput) (*EvalMathOutput, error) {
	if strings.TrimSpace(in.Expression) == "" {
		return nil, NewInvalidParamsError("expression is required")
	}
	result, ok := s.host.EvalMath(in.Expression)
	return &EvalMathOutput{Expression: in.Expression, Result: result, OK: ok}, nil
}

func (s *Server) launchFile(ctx context.Context, in PathInput) (*PathOutput, error) {
	if strings.TrimSpace(in.Filepath) == "" {
		return nil, NewInvalidParamsError("filepath is required")
	}
	if err := s.host.LaunchFile(ctx, in.Filepath); err != nil {
		return nil, MapError(err)
	}
	s.logger.Info("mcp_file_launched", slog.String("path", in.Filepath))
	return &PathOutput{Filepath: in.Filepath, Action: "launched"}, nil
}

func (s *Server) openContainingFolder(_ context.Context, in PathInput) (*PathOutput, error) {
	if strings.TrimSpace(in.Filepath) == "" {
		return nil, NewInvalidParamsError("filepath is required")
	}
	if err := s.host.OpenContainingFolder(in.Filepath); err != nil {
		return nil, MapError(err)
	}
	return &PathOutput{Filepath: in.Filepath, Action: "revealed"}, nil
}

func (s *Server) rebuildIndex(ctx context.Context) (*RebuildIndexOutput, error) {
	start := time.Now()
	n, err := s.host.RebuildIndex(ctx)
	if err != nil {
		return nil, MapError(err)
	}
	return &RebuildIndexOutput{
		Indexed:  n,
		Duration: time.Since(start).Round(100 * time.Millisecond).String(),
	}, nil
}

func (s *Server) indexStatus(ctx context.Context) (*IndexStatusOutput, error) {
	st, err := s.host.Status(ctx)
	if err != nil {
		return nil, MapError(err)
	}

	out := &IndexStatusOutput{
		Count:                st.Count,
		Indexing:             st.Indexing,
		LastFullIndex:        formatTime(st.LastFullIndex),
		LastIncrementalIndex: formatTime(st.LastIncrementalIndex),
		DBPath:               st.DBPath,
	}
	if p := st.Progress; p.Status != "" {
		out.Progress = &IndexingProgress{
			Status:         p.Status,
			Stage:          p.Stage,
			RunID:          p.RunID,
			FilesProcessed: p.FilesProcessed,
			FilesRemoved:   p.FilesRemoved,
			ElapsedSeconds: p.ElapsedSeconds,
			ErrorMessage:   p.ErrorMessage,
		}
	}
	return out, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// registerTools registers all tools with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{Name: "search", Description: toolDescription("search")}, s.mcpSearchHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: "eval_math", Description: toolDescription("eval_math")}, s.mcpEvalMathHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: "launch_file", Description: toolDescription("launch_file")}, s.mcpLaunchFileHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: "open_containing_folder", Description: toolDescription("open_containing_folder")}, s.mcpRevealHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: "rebuild_index", Description: toolDescription("rebuild_index")}, s.mcpRebuildIndexHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: "index_status", Description: toolDescription("index_status")}, s.mcpIndexStatusHandler)

	s.logger.Debug("mcp_tools_registered", slog.Int("count", len(tools)))
}

func (s *Server) mcpSearchHandler(ctx context.Context, _ *mcp.CallToolRequest, in SearchInput) (
	*mcp.CallToolResult,
	*SearchOutput,
	error,
) {
	out, text, err := s.search(ctx, in)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, out, nil
}

func (s *Server) mcpEvalMathHandler(_ context.Context, _ *mcp.CallToolRequest, in EvalMathInput) (
	*mcp.CallToolResult,
	*EvalMathOutput,
	error,
) {
	out, err := s.evalMath(in)
	return nil, out, err
}

func (s *Server) mcpLaunchFileHandler(ctx context.Context, _ *mcp.CallToolRequest, in PathInput) (
	*mcp.CallToolResult,
	*PathOutput,
	error,
) {
	out, err := s.launchFile(ctx, in)
	return nil, out, err
}

func (s *Server) mcpRevealHandler(ctx context.Context, _ *mcp.CallToolRequest, in PathInput) (
	*mcp.CallToolResult,
	*PathOutput,
	error,
) {
	out, err := s.openContainingFolder(ctx, in)
	return nil, out, err
}

func (s *Server) mcpRebuildIndexHandler(ctx context.Context, _ *mcp.CallToolRequest, _ RebuildIndexInput) (
	*mcp.CallToolResult,
	*RebuildIndexOutput,
	error,
) {
	out, err := s.rebuildIndex(ctx)
	return nil, out, err
}

func (s *Server) mcpIndexStatusHandler(ctx context.Context, _ *mcp.CallToolRequest, _ IndexStatusInput) (
	*mcp.CallToolResult,
	*IndexStatusOutput,
	error,
) {
	out, err := s.indexStatus(ctx)
	return nil, out, err
}

// Serve runs the server on the named transport until ctx is done.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("mcp_server_starting", slog.String("transport", transport))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("mcp_server_stopped", slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("mcp_server_stopped")
		return nil
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
