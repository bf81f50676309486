// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/ceflow/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// NewMCPServer initializes and configures the ceflow MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.StoreManager, logger *zap.Logger) *server.MCPServer {
	s := server.NewMCPServer(
		"ceflow Analysis Server",
		"1.0.0",
		server.WithLogging(),
	)
	if logger == nil {
		logger = zap.NewNop()
	}

	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
		logger:  logger,
	}

	// --- 1. Tool: run_analysis ---
	s.AddTool(mcp.NewTool("run_analysis",
		mcp.WithDescription("Process a scanner report: compute measures, evaluate the quality gate and persist the analysis."),
		mcp.WithString("report", mcp.Description("Path to the scanner report JSON file."), mcp.Required()),
		mcp.WithString("branch", mcp.Description("Branch name, required for non main branches.")),
		mcp.WithString("branch_type", mcp.Description("Branch key strategy. Defaults to 'main'."), mcp.Enum("main", "legacy", "long")),
		mcp.WithString("quality_gate", mcp.Description("Path to a YAML quality gate definition.")),
		mcp.WithString("period1", mcp.Description("Leak period: days, a date, a version, previous_version or previous_analysis.")),
		mcp.WithNumber("limit", mcp.Description("Limit the number of components returned.")),
	), h.handleRunAnalysis)

	// --- 2. Tool: get_measures ---
	s.AddTool(mcp.NewTool("get_measures",
		mcp.WithDescription("List the measures persisted by an analysis."),
		mcp.WithString("analysis_uuid", mcp.Description("UUID of the analysis."), mcp.Required()),
		mcp.WithString("component_key", mcp.Description("Only return measures of this component.")),
		mcp.WithString("metric_key", mcp.Description("Only return measures of this metric.")),
	), h.handleGetMeasures)

	// --- 3. Tool: get_quality_gate ---
	s.AddTool(mcp.NewTool("get_quality_gate",
		mcp.WithDescription("Return the quality gate status of the last processed analysis of a project."),
		mcp.WithString("project_key", mcp.Description("Key of the project, including any branch suffix."), mcp.Required()),
	), h.handleGetQualityGate)

	return s
}

// StartMCPServer starts the ceflow MCP server over stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.StoreManager) error {
	logger, err := contract.NewLogger(baseCfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	s := NewMCPServer(baseCfg, mgr, logger)
	return server.ServeStdio(s)
}
