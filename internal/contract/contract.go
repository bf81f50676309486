// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"

	"github.com/huangsam/ceflow/schema"
)

// ReportReader is a read-only view of a scanner report.
// Per-file lookups return a nil slice or pointer when the report has no such data for the ref.
type ReportReader interface {
	// --- Report-wide ---

	// Metadata returns the header of the report.
	Metadata() (schema.ReportMetadata, error)

	// ScannerContext returns the scanner log, or "" when absent.
	ScannerContext() (string, error)

	// --- Per component ---

	// Component returns the component declared with ref.
	Component(ref int) (schema.ReportComponent, error)

	// Measures returns the raw measures computed by the scanner for ref.
	Measures(ref int) ([]schema.ReportMeasure, error)

	// Issues returns the issues raised on ref.
	Issues(ref int) ([]schema.Issue, error)

	// --- Per file ---

	Duplications(ref int) ([]schema.ReportDuplication, error)
	Changesets(ref int) (*schema.ReportChangesets, error)
	Coverage(ref int) ([]schema.LineCoverage, error)
	Tests(ref int) ([]schema.TestResult, error)
	CoverageDetails(ref int) ([]schema.CoverageDetail, error)
	SourceLines(ref int) ([]string, error)
}

// StoreManager defines the interface for managing stores.
// This allows the store layer to be mocked for testing.
type StoreManager interface {
	GetAnalysisStore() AnalysisStore
}

// AnalysisStore is the persistent store of components, analyses and measures.
type AnalysisStore interface {
	// --- Components ---

	// SelectComponentsByProjectKey returns the project with that key and all of its
	// components, including disabled ones.
	SelectComponentsByProjectKey(ctx context.Context, projectKey string) ([]schema.ComponentRecord, error)

	// SelectComponentByKey returns the component with that key, or nil.
	SelectComponentByKey(ctx context.Context, key string) (*schema.ComponentRecord, error)

	// UpsertComponents inserts or updates components by UUID.
	UpsertComponents(ctx context.Context, components []schema.ComponentRecord) error

	// DisableComponents flags components as removed. Their UUIDs are kept.
	DisableComponents(ctx context.Context, uuids []string) error

	// --- Analyses ---

	// SelectAnalyses returns analyses matching q, oldest first.
	SelectAnalyses(ctx context.Context, q schema.AnalysisQuery) ([]schema.AnalysisRecord, error)

	// SelectLastAnalysis returns the analysis flagged as last for the component, or nil.
	SelectLastAnalysis(ctx context.Context, componentUUID string) (*schema.AnalysisRecord, error)

	// InsertAnalysis records a new analysis.
	InsertAnalysis(ctx context.Context, analysis schema.AnalysisRecord) error

	// MarkAnalysisProcessed sets the analysis as processed and last, and unsets the previous last one.
	MarkAnalysisProcessed(ctx context.Context, componentUUID, analysisUUID string) error

	// --- Measures ---

	InsertMeasures(ctx context.Context, measures []schema.MeasureRecord) error

	// SelectLastMeasure returns the measure of the last processed analysis, or nil.
	SelectLastMeasure(ctx context.Context, componentUUID, metricKey string) (*schema.MeasureRecord, error)

	// SelectMeasures returns every measure of an analysis.
	SelectMeasures(ctx context.Context, analysisUUID string) ([]schema.MeasureRecord, error)

	// --- Side data ---

	InsertEvent(ctx context.Context, event schema.EventRecord) error
	SelectFileSources(ctx context.Context, projectUUID string) (map[string]schema.FileSourceRecord, error)
	UpsertFileSource(ctx context.Context, source schema.FileSourceRecord) error
	InsertTests(ctx context.Context, tests []schema.TestRecord) error
	InsertScannerContext(ctx context.Context, analysisUUID, log string) error

	// GetStatus returns status information about the analysis store
	GetStatus() (schema.StoreStatus, error)

	// Close closes the underlying connection
	Close() error
}

// NotificationSink delivers notifications built by the pipeline.
type NotificationSink interface {
	HasSubscribers(ctx context.Context, projectUUID string, types []schema.NotificationType) (bool, error)
	Deliver(ctx context.Context, n schema.Notification) error
}

// IssueCache is an append-only sequence of issues.
// It is written until Close and can only be read afterwards.
type IssueCache interface {
	Append(issue schema.Issue) error
	Close() error
	Iterate(fn func(schema.Issue) error) error
	Discard() error
}
