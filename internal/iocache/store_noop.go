package iocache

import (
	"context"

	"github.com/huangsam/ceflow/internal/contract"
	"github.com/huangsam/ceflow/schema"
)

// NoopStore is the store of the none backend. Every run looks like a first analysis.
type NoopStore struct{}

var _ contract.AnalysisStore = NoopStore{} // Compile-time check

func (NoopStore) SelectComponentsByProjectKey(context.Context, string) ([]schema.ComponentRecord, error) {
	return nil, nil
}

func (NoopStore) SelectComponentByKey(context.Context, string) (*schema.ComponentRecord, error) {
	return nil, nil
}

func (NoopStore) UpsertComponents(context.Context, []schema.ComponentRecord) error { return nil }
func (NoopStore) DisableComponents(context.Context, []string) error                { return nil }

func (NoopStore) SelectAnalyses(context.Context, schema.AnalysisQuery) ([]schema.AnalysisRecord, error) {
	return nil, nil
}

func (NoopStore) SelectLastAnalysis(context.Context, string) (*schema.AnalysisRecord, error) {
	return nil, nil
}

func (NoopStore) InsertAnalysis(context.Context, schema.AnalysisRecord) error     { return nil }
func (NoopStore) MarkAnalysisProcessed(context.Context, string, string) error     { return nil }
func (NoopStore) InsertMeasures(context.Context, []schema.MeasureRecord) error    { return nil }
func (NoopStore) InsertEvent(context.Context, schema.EventRecord) error           { return nil }
func (NoopStore) UpsertFileSource(context.Context, schema.FileSourceRecord) error { return nil }
func (NoopStore) InsertTests(context.Context, []schema.TestRecord) error          { return nil }
func (NoopStore) InsertScannerContext(context.Context, string, string) error      { return nil }

func (NoopStore) SelectLastMeasure(context.Context, string, string) (*schema.MeasureRecord, error) {
	return nil, nil
}

func (NoopStore) SelectMeasures(context.Context, string) ([]schema.MeasureRecord, error) {
	return nil, nil
}

func (NoopStore) SelectFileSources(context.Context, string) (map[string]schema.FileSourceRecord, error) {
	return map[string]schema.FileSourceRecord{}, nil
}

func (NoopStore) GetStatus() (schema.StoreStatus, error) {
	return schema.StoreStatus{Backend: string(schema.NoneBackend)}, nil
}

func (NoopStore) Close() error { return nil }
