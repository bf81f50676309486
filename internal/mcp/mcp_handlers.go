package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/huangsam/ceflow/core"
	"github.com/huangsam/ceflow/internal/contract"
	"github.com/huangsam/ceflow/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.StoreManager
	logger  *zap.Logger
}

// gateSummary is the payload of get_quality_gate.
type gateSummary struct {
	ProjectKey   string                          `json:"project_key"`
	AnalysisUUID string                          `json:"analysis_uuid"`
	Level        schema.Level                    `json:"level"`
	Text         string                          `json:"text,omitempty"`
	Conditions   []schema.QualityGateDetailEntry `json:"conditions"`
}

func (h *toolHandler) store() (contract.AnalysisStore, error) {
	if h.mgr == nil {
		return nil, fmt.Errorf("analysis store is not initialized")
	}
	store := h.mgr.GetAnalysisStore()
	if store == nil {
		return nil, fmt.Errorf("analysis store is not initialized")
	}
	return store, nil
}

func (h *toolHandler) handleRunAnalysis(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	cfg.ReportPath = strings.TrimSpace(request.GetString("report", ""))
	if cfg.ReportPath == "" {
		return mcp.NewToolResultError("--report is required"), nil
	}
	if b := request.GetString("branch", ""); b != "" {
		cfg.Branch = b
	}
	if bt := request.GetString("branch_type", ""); bt != "" {
		cfg.BranchType = schema.BranchType(strings.ToLower(bt))
	}
	if _, ok := schema.ValidBranchTypes[cfg.BranchType]; !ok {
		return mcp.NewToolResultError(fmt.Sprintf("invalid branch type '%s'. must be main, legacy, long", cfg.BranchType)), nil
	}
	if cfg.BranchType != schema.MainBranch && cfg.Branch == "" {
		return mcp.NewToolResultError(fmt.Sprintf("--branch is required with branch type %s", cfg.BranchType)), nil
	}
	if g := request.GetString("quality_gate", ""); g != "" {
		cfg.QualityGatePath = g
	}
	if p := request.GetString("period1", ""); p != "" {
		if cfg.PeriodSettings == nil {
			cfg.PeriodSettings = make(map[string]string)
		}
		cfg.PeriodSettings["period1"] = p
	}
	if l := request.GetInt("limit", 0); l > 0 {
		cfg.ResultLimit = l
	}

	result, err := core.RunReport(ctx, cfg, h.mgr, h.logger)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("analysis failed: %v", err)), nil
	}
	if cfg.ResultLimit > 0 && len(result.Components) > cfg.ResultLimit {
		result.Components = result.Components[:cfg.ResultLimit]
	}

	jsonData, _ := json.MarshalIndent(result, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleGetMeasures(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	analysisUUID := strings.TrimSpace(request.GetString("analysis_uuid", ""))
	if analysisUUID == "" {
		return mcp.NewToolResultError("analysis_uuid is required"), nil
	}
	componentKey := request.GetString("component_key", "")
	metricKey := request.GetString("metric_key", "")

	store, err := h.store()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	records, err := store.SelectMeasures(ctx, analysisUUID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load measures: %v", err)), nil
	}
	filtered := make([]schema.MeasureRecord, 0, len(records))
	for _, r := range records {
		if componentKey != "" && r.ComponentKey != componentKey {
			continue
		}
		if metricKey != "" && r.MetricKey != metricKey {
			continue
		}
		filtered = append(filtered, r)
	}

	jsonData, _ := json.MarshalIndent(filtered, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleGetQualityGate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectKey := strings.TrimSpace(request.GetString("project_key", ""))
	if projectKey == "" {
		return mcp.NewToolResultError("project_key is required"), nil
	}
	store, err := h.store()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	// 1. Resolve the project and its last analysis
	project, err := store.SelectComponentByKey(ctx, projectKey)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to look up project: %v", err)), nil
	}
	if project == nil || project.UUID != project.ProjectUUID {
		return mcp.NewToolResultError(fmt.Sprintf("project %s not found", projectKey)), nil
	}
	analysis, err := store.SelectLastAnalysis(ctx, project.UUID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load last analysis: %v", err)), nil
	}
	if analysis == nil {
		return mcp.NewToolResultError(fmt.Sprintf("project %s has no processed analysis", projectKey)), nil
	}

	// 2. Read the gate measures of that analysis
	summary := gateSummary{ProjectKey: projectKey, AnalysisUUID: analysis.UUID}
	details, err := store.SelectLastMeasure(ctx, project.UUID, schema.QualityGateDetailsKey)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load quality gate details: %v", err)), nil
	}
	if details != nil && details.TextValue != nil {
		var payload schema.QualityGateDetails
		if err := json.Unmarshal([]byte(*details.TextValue), &payload); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid quality gate details: %v", err)), nil
		}
		summary.Level, summary.Conditions = payload.Level, payload.Conditions
	}
	alert, err := store.SelectLastMeasure(ctx, project.UUID, schema.AlertStatusKey)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load quality gate status: %v", err)), nil
	}
	if alert != nil && alert.AlertText != nil {
		summary.Text = *alert.AlertText
	}

	jsonData, _ := json.MarshalIndent(summary, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}
