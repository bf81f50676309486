// Package core runs the Compute Engine pipeline that turns a scanner report into
// persisted measures, a quality gate status and issue notifications.
package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/huangsam/ceflow/core/agg"
	"github.com/huangsam/ceflow/core/repo"
	"github.com/huangsam/ceflow/internal/contract"
	"github.com/huangsam/ceflow/internal/iocache"
	"github.com/huangsam/ceflow/internal/notify"
	"github.com/huangsam/ceflow/internal/outwriter"
	"github.com/huangsam/ceflow/internal/reportreader"
	"github.com/huangsam/ceflow/schema"
	"go.uber.org/zap"
)

// DefaultSteps returns the steps of a full analysis, in execution order.
func DefaultSteps() []Step {
	return []Step{
		ValidateReportMetadataStep{},
		LoadMetricsStep{},
		BuildComponentTreeStep{},
		ValidateProjectStep{},
		LoadPeriodsStep{},
		LoadQualityGateStep{},
		LoadDuplicationsStep{},
		LoadIssuesStep{},
		agg.SizeMeasuresStep(),
		agg.CommentMeasuresStep(),
		agg.CoverageMeasuresStep(),
		agg.UnitTestMeasuresStep(),
		agg.DuplicationMeasuresStep(),
		agg.NewSizeMeasuresStep(),
		agg.NewCoverageMeasuresStep(),
		QualityProfileMeasuresStep{},
		QualityGateMeasuresStep{},
		PersistComponentsStep{},
		PersistAnalysisStep{},
		PersistMeasuresStep{},
		PersistFileSourcesStep{},
		PersistTestsStep{},
		PersistEventsStep{},
		PersistScannerContextStep{},
		EnableAnalysisStep{},
		SendIssueNotificationsStep{},
	}
}

// RunAnalysis runs steps over rc and summarizes the outcome.
func RunAnalysis(ctx context.Context, rc *repo.RunContext, steps []Step, opts ...PipelineOption) (*schema.RunResult, error) {
	pipeline, err := NewPipeline(steps, opts...)
	if err != nil {
		return nil, err
	}
	timings, err := pipeline.Run(ctx, rc)
	if err != nil {
		return nil, err
	}
	return BuildRunResult(rc, timings)
}

// BuildRunResult collects the tree, measures, periods and gate of a finished run.
func BuildRunResult(rc *repo.RunContext, timings []schema.StepTiming) (*schema.RunResult, error) {
	root, err := rc.Tree.Root()
	if err != nil {
		return nil, err
	}
	result := &schema.RunResult{
		ProjectUUID: root.UUID,
		ProjectKey:  root.Key,
		Steps:       timings,
	}

	// 1. Analysis metadata
	var errs []error
	var date int64
	result.AnalysisUUID, err = rc.Metadata.AnalysisUUID()
	errs = append(errs, err)
	date, err = rc.Metadata.AnalysisDate()
	errs = append(errs, err)
	result.Version, err = rc.Metadata.RootVersion()
	errs = append(errs, err)
	result.IsFirstAnalysis, err = rc.Metadata.IsFirstAnalysis()
	errs = append(errs, err)
	branch, err := rc.Metadata.Branch()
	errs = append(errs, err)
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	result.AnalysisDate = time.UnixMilli(date).UTC()
	if !branch.IsMain() {
		result.Branch = branch.Name
	}

	// 2. Periods and gate
	if result.Periods, err = rc.Periods.Periods(); err != nil {
		return nil, err
	}
	if result.QualityGate, err = GateResult(rc); err != nil {
		return nil, err
	}

	// 3. Components with their measures
	err = walkDepth(root, 0, func(c *schema.Component, depth int) error {
		measures, err := rc.Measures.GetRawMeasures(c)
		if err != nil {
			return err
		}
		cm := schema.ComponentMeasures{
			Key:      c.Key,
			Type:     c.Type,
			Path:     c.Path(),
			Depth:    depth,
			Measures: make(map[string]string, len(measures)),
			Values:   make(map[string]float64, len(measures)),
		}
		for key, m := range measures {
			if m.ValueType() == schema.NoValueType {
				continue
			}
			cm.Measures[key] = m.String()
			if v, ok := m.NumericValue(); ok {
				cm.Values[key] = v
			}
		}
		result.Components = append(result.Components, cm)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// walkDepth visits c before its children, passing the distance to the root.
func walkDepth(c *schema.Component, depth int, fn func(*schema.Component, int) error) error {
	if err := fn(c, depth); err != nil {
		return err
	}
	for _, child := range c.Children {
		if err := walkDepth(child, depth+1, fn); err != nil {
			return err
		}
	}
	return nil
}

// RunReport processes the report named by cfg against the store of mgr.
func RunReport(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager, logger *zap.Logger) (*schema.RunResult, error) {
	if cfg.ReportPath == "" {
		return nil, errors.New("--report is required")
	}
	report, err := reportreader.Load(cfg.ReportPath)
	if err != nil {
		return nil, err
	}
	store := mgr.GetAnalysisStore()
	if store == nil {
		return nil, errors.New("analysis store is not initialized")
	}

	sink, err := notify.OpenSink(cfg.NotifySubscribers, cfg.NotifyFile, logger)
	if err != nil {
		return nil, err
	}
	defer func() { _ = sink.Close() }()

	issues, err := iocache.NewIssueCache(cfg.SpillDir, logger)
	if err != nil {
		return nil, err
	}
	// The notification step discards the cache; this covers failed runs
	defer func() { _ = issues.Discard() }()

	rc := repo.NewRunContext(logger, cfg, report, store, sink, issues)
	return RunAnalysis(ctx, rc, DefaultSteps())
}

// ExecuteAnalysis runs the pipeline and prints the result.
// It serves as the main entry point for the 'run' command.
func ExecuteAnalysis(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	start := time.Now()
	logger, err := contract.NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	result, err := RunReport(ctx, cfg, mgr, logger)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	return outwriter.PrintRunResult(result, cfg, time.Since(start))
}
