// Package mcp exposes run listing and report lookup as Model Context
// Protocol tools over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"bench-harvester/src/bench"
	"bench-harvester/src/harvest"
)

// DefaultBranch is used by list_bench_runs when no branch is given.
const DefaultBranch = "develop"

// Deps wires the server to the harvester components.
type Deps struct {
	Lister     harvest.RunLister
	Fetcher    harvest.ReportFetcher
	Runs       bench.RunGetter
	Repo       string
	ScratchDir string
	DateFormat string
}

// Server is the MCP server for the bench harvester.
type Server struct {
	mcpServer *server.MCPServer
	deps      Deps
}

// reportResponse is returned by get_bench_report. Report is omitted when the
// run has no recoverable report.
type reportResponse struct {
	Available bool             `json:"available"`
	Run       bench.JobRun     `json:"run"`
	Report    *bench.JobReport `json:"report,omitempty"`
}

// NewServer creates a new MCP server.
func NewServer(deps Deps) *Server {
	if deps.DateFormat == "" {
		deps.DateFormat = "2006-01-02"
	}

	s := server.NewMCPServer(
		"bench-harvester",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	srv := &Server{mcpServer: s, deps: deps}
	srv.registerTools()
	return srv
}

func (s *Server) registerTools() {
	listTool := mcp.NewTool("list_bench_runs",
		mcp.WithDescription("List successful benchmark workflow runs created in a date window. Returns run IDs with their head commits; pass an ID to get_bench_report for the scores."),
		mcp.WithString("since",
			mcp.Required(),
			mcp.Description("First day of the window, inclusive (e.g. 2024-01-01)"),
		),
		mcp.WithString("until",
			mcp.Required(),
			mcp.Description("Last day of the window, inclusive"),
		),
		mcp.WithNumber("workflow_id",
			mcp.Required(),
			mcp.Description("Numeric ID of the benchmark workflow"),
		),
		mcp.WithString("branch",
			mcp.Description("Branch the runs were triggered on (default: develop)"),
		),
	)

	reportTool := mcp.NewTool("get_bench_report",
		mcp.WithDescription("Get the benchmark scores (label -> score) of one run, from the cache or the run's report artifact."),
		mcp.WithString("run",
			mcp.Required(),
			mcp.Description("Workflow run ID or run URL"),
		),
	)

	s.mcpServer.AddTool(listTool, s.handleListRuns)
	s.mcpServer.AddTool(reportTool, s.handleGetReport)
}

// Run serves the MCP protocol on stdin/stdout until EOF.
func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) handleListRuns(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	since, err := s.parseDate(request.GetString("since", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid since: %v", err)), nil
	}
	until, err := s.parseDate(request.GetString("until", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid until: %v", err)), nil
	}

	workflowID := request.GetInt("workflow_id", 0)
	if workflowID <= 0 {
		return mcp.NewToolResultError("workflow_id parameter is required"), nil
	}

	runs, err := s.deps.Lister.ListRuns(ctx, bench.RunQuery{
		Since:      since,
		Until:      until,
		Branch:     request.GetString("branch", DefaultBranch),
		WorkflowID: int64(workflowID),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing runs failed: %v", err)), nil
	}

	harvest.SortRunsByCommitTime(runs)
	return jsonResult(runs)
}

func (s *Server) handleGetReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref := request.GetString("run", "")
	if ref == "" {
		return mcp.NewToolResultError("run parameter is required"), nil
	}

	run, err := bench.ResolveRun(ctx, s.deps.Runs, s.deps.Repo, ref)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("resolving run failed: %v", err)), nil
	}

	report, err := s.deps.Fetcher.GetReport(ctx, run, s.deps.ScratchDir)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("fetching report failed: %v", err)), nil
	}

	return jsonResult(reportResponse{Available: report != nil, Run: run, Report: report})
}

func (s *Server) parseDate(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, fmt.Errorf("parameter is required")
	}
	return time.Parse(s.deps.DateFormat, v)
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
