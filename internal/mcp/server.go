// Package mcp provides an MCP (Model Context Protocol) server for dbtcov.
// This allows AI agents to query project coverage through MCP tools instead
// of CLI commands.
package mcp

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dbtcov/dbtcov/internal/artifacts"
	"github.com/dbtcov/dbtcov/internal/config"
	"github.com/dbtcov/dbtcov/internal/coverage"
	"github.com/dbtcov/dbtcov/internal/store"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server wraps the MCP server with dbtcov-specific functionality
type Server struct {
	mcpServer    *server.MCPServer
	cfg          *config.Config
	projectDir   string
	tools        map[string]bool
	lastActivity time.Time
	timeout      time.Duration
	mu           sync.RWMutex
}

// Config holds server configuration
type Config struct {
	ProjectDir string        // dbt project root (default ".")
	Tools      []string      // Which tools to expose (empty = all)
	Timeout    time.Duration // Inactivity timeout (0 = no timeout)
}

// AllTools lists all available tools
var AllTools = []string{"dbtcov_compute", "dbtcov_compare", "dbtcov_history"}

// New creates a new MCP server for dbtcov
func New(cfg Config) (*Server, error) {
	projectDir := cfg.ProjectDir
	if projectDir == "" {
		projectDir = "."
	}

	projectCfg, err := config.Load(projectDir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	mcpServer := server.NewMCPServer(
		"dbtcov",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	s := &Server{
		mcpServer:    mcpServer,
		cfg:          projectCfg,
		projectDir:   projectDir,
		tools:        make(map[string]bool),
		lastActivity: time.Now(),
		timeout:      cfg.Timeout,
	}

	toolsToRegister := cfg.Tools
	if len(toolsToRegister) == 0 {
		toolsToRegister = AllTools
	}

	for _, toolName := range toolsToRegister {
		if err := s.registerTool(toolName); err != nil {
			return nil, fmt.Errorf("failed to register tool %s: %w", toolName, err)
		}
		s.tools[toolName] = true
	}

	return s, nil
}

// registerTool registers a single tool with the MCP server
func (s *Server) registerTool(name string) error {
	switch name {
	case "dbtcov_compute":
		return s.registerComputeTool()
	case "dbtcov_compare":
		return s.registerCompareTool()
	case "dbtcov_history":
		return s.registerHistoryTool()
	default:
		return fmt.Errorf("unknown tool: %s", name)
	}
}

// ServeStdio starts the server using stdio transport
func (s *Server) ServeStdio() error {
	if s.timeout > 0 {
		go s.timeoutChecker()
	}
	return server.ServeStdio(s.mcpServer)
}

// timeoutChecker monitors for inactivity and exits if timeout exceeded
func (s *Server) timeoutChecker() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		s.mu.RLock()
		elapsed := time.Since(s.lastActivity)
		s.mu.RUnlock()

		if elapsed > s.timeout {
			fmt.Fprintf(os.Stderr, "dbtcov serve: timeout after %v of inactivity\n", s.timeout)
			os.Exit(0)
		}
	}
}

// updateActivity updates the last activity timestamp
func (s *Server) updateActivity() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// Close releases server resources
func (s *Server) Close() error {
	return nil
}

// ListTools returns the list of registered tools
func (s *Server) ListTools() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tools := make([]string, 0, len(s.tools))
	for t := range s.tools {
		tools = append(tools, t)
	}
	return tools
}

// Tool registration

func (s *Server) registerComputeTool() error {
	tool := mcp.NewTool("dbtcov_compute",
		mcp.WithDescription("Compute documentation or test coverage for the dbt project. Returns the JSON coverage report."),
		mcp.WithString("cov_type",
			mcp.Required(),
			mcp.Description("Coverage dimension: doc or test"),
		),
		mcp.WithString("model_path_filter",
			mcp.Description("Comma-separated path prefixes to restrict tables (e.g. models/marts/)"),
		),
	)

	s.mcpServer.AddTool(tool, s.handleCompute)
	return nil
}

func (s *Server) registerCompareTool() error {
	tool := mcp.NewTool("dbtcov_compare",
		mcp.WithDescription("Compute fresh coverage and diff it against a history snapshot. Returns the summary and new-misses listing."),
		mcp.WithString("cov_type",
			mcp.Required(),
			mcp.Description("Coverage dimension: doc or test"),
		),
		mcp.WithNumber("snapshot_id",
			mcp.Description("Baseline snapshot id (default: latest snapshot of the same type)"),
		),
	)

	s.mcpServer.AddTool(tool, s.handleCompare)
	return nil
}

func (s *Server) registerHistoryTool() error {
	tool := mcp.NewTool("dbtcov_history",
		mcp.WithDescription("List recorded coverage snapshots, newest first."),
		mcp.WithString("cov_type",
			mcp.Description("Filter by coverage dimension: doc or test"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum snapshots to list (default: 20)"),
		),
	)

	s.mcpServer.AddTool(tool, s.handleHistory)
	return nil
}

// Tool handlers

func (s *Server) handleCompute(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.updateActivity()

	args := req.GetArguments()
	rawType, ok := args["cov_type"].(string)
	if !ok || rawType == "" {
		return mcp.NewToolResultError("cov_type parameter is required"), nil
	}

	var filters []string
	if raw, ok := args["model_path_filter"].(string); ok && raw != "" {
		for _, f := range strings.Split(raw, ",") {
			if f = strings.TrimSpace(f); f != "" {
				filters = append(filters, f)
			}
		}
	}

	result, err := s.executeCompute(rawType, filters)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(result), nil
}

func (s *Server) handleCompare(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.updateActivity()

	args := req.GetArguments()
	rawType, ok := args["cov_type"].(string)
	if !ok || rawType == "" {
		return mcp.NewToolResultError("cov_type parameter is required"), nil
	}

	snapshotID := int64(0)
	if id, ok := args["snapshot_id"].(float64); ok {
		snapshotID = int64(id)
	}

	result, err := s.executeCompare(rawType, snapshotID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(result), nil
}

func (s *Server) handleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.updateActivity()

	args := req.GetArguments()
	covType, _ := args["cov_type"].(string)

	limit := 20
	if l, ok := args["limit"].(float64); ok {
		limit = int(l)
	}

	result, err := s.executeHistory(covType, limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(result), nil
}

// Tool execution

// executeCompute builds a fresh report from the project artifacts.
func (s *Server) executeCompute(rawType string, filters []string) (string, error) {
	report, err := s.buildReport(rawType, filters)
	if err != nil {
		return "", err
	}

	data, err := report.ToJSON()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// executeCompare diffs fresh coverage against a stored snapshot.
func (s *Server) executeCompare(rawType string, snapshotID int64) (string, error) {
	current, err := s.buildReport(rawType, nil)
	if err != nil {
		return "", err
	}

	st, err := s.openStore()
	if err != nil {
		return "", err
	}
	defer st.Close()

	var snap *store.Snapshot
	if snapshotID > 0 {
		snap, err = st.GetSnapshot(snapshotID)
	} else {
		snap, err = st.LatestSnapshot(rawType)
	}
	if err != nil {
		return "", err
	}

	baseline, err := coverage.ReadReport(snap.Document)
	if err != nil {
		return "", err
	}

	diff, err := coverage.Compare(current, baseline)
	if err != nil {
		return "", err
	}

	summary, err := diff.Summary()
	if err != nil {
		return "", err
	}
	return summary + "\n" + diff.NewMissesSummary(), nil
}

// executeHistory lists stored snapshots.
func (s *Server) executeHistory(covType string, limit int) (string, error) {
	st, err := s.openStore()
	if err != nil {
		return "", err
	}
	defer st.Close()

	snaps, err := st.ListSnapshots(covType, limit)
	if err != nil {
		return "", err
	}
	if len(snaps) == 0 {
		return "No snapshots recorded.", nil
	}

	var buf strings.Builder
	for _, snap := range snaps {
		fmt.Fprintf(&buf, "%d: %s %d/%d (%.1f%%) %s %s\n",
			snap.ID, snap.CovType, snap.Covered, snap.Total,
			snap.Coverage*100, snap.GitRef, snap.CreatedAt.Format(time.RFC3339))
	}
	return buf.String(), nil
}

// buildReport loads artifacts and constructs a catalog-level report.
func (s *Server) buildReport(rawType string, filters []string) (*coverage.Report, error) {
	covType, err := coverage.ParseType(rawType)
	if err != nil {
		return nil, err
	}

	artDir := s.cfg.Project.ArtifactsDir
	manifest, err := artifacts.LoadManifest(s.projectDir, artDir)
	if err != nil {
		return nil, err
	}
	catalog, err := artifacts.LoadCatalog(s.projectDir, artDir, manifest)
	if err != nil {
		return nil, err
	}

	if len(filters) == 0 {
		filters = s.cfg.Project.ModelPathFilter
	}
	if len(filters) > 0 {
		catalog = catalog.Filter(filters)
		if len(catalog.Tables) == 0 {
			return nil, fmt.Errorf("no tables after filtering with %v", filters)
		}
	}

	return coverage.FromCatalog(catalog, covType)
}

// openStore opens the snapshot history database.
func (s *Server) openStore() (*store.Store, error) {
	covDir, err := config.FindConfigDir(s.projectDir)
	if err != nil {
		return nil, fmt.Errorf("no snapshot history: run 'dbtcov compute' first")
	}
	return store.Open(covDir)
}
