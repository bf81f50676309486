// Package repo holds the per-run repositories shared by the pipeline steps.
package repo

import (
	"github.com/huangsam/ceflow/internal/contract"
	"go.uber.org/zap"
)

// RunContext carries everything one pipeline run shares between its steps.
type RunContext struct {
	Logger *zap.Logger
	Config *contract.Config

	Report contract.ReportReader
	Store  contract.AnalysisStore
	Sink   contract.NotificationSink
	Issues contract.IssueCache

	Tree         *TreeRootHolder
	Metadata     *AnalysisMetadataHolder
	Metrics      *MetricRepository
	Measures     *MeasureRepository
	Periods      *PeriodsHolder
	Duplications *DuplicationRepository
	QualityGate  *QualityGateHolder
	GateStatus   *QualityGateStatusHolder
	Stats        *Stats
}

// NewRunContext wires empty repositories around the run's collaborators.
// A nil logger is replaced by a no-op logger.
func NewRunContext(
	logger *zap.Logger,
	cfg *contract.Config,
	report contract.ReportReader,
	store contract.AnalysisStore,
	sink contract.NotificationSink,
	issues contract.IssueCache,
) *RunContext {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := &MetricRepository{}
	return &RunContext{
		Logger:       logger,
		Config:       cfg,
		Report:       report,
		Store:        store,
		Sink:         sink,
		Issues:       issues,
		Tree:         &TreeRootHolder{},
		Metadata:     &AnalysisMetadataHolder{},
		Metrics:      metrics,
		Measures:     NewMeasureRepository(report, store, metrics),
		Periods:      &PeriodsHolder{},
		Duplications: &DuplicationRepository{},
		QualityGate:  &QualityGateHolder{},
		GateStatus:   &QualityGateStatusHolder{},
		Stats:        &Stats{},
	}
}

