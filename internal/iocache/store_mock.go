package iocache

import (
	"context"

	"github.com/huangsam/ceflow/internal/contract"
	"github.com/huangsam/ceflow/schema"
	"github.com/stretchr/testify/mock"
)

// MockStoreManager is a mock implementation of StoreManager for testing.
type MockStoreManager struct {
	mock.Mock
}

var _ contract.StoreManager = &MockStoreManager{} // Compile-time check

// GetAnalysisStore implements the StoreManager interface.
func (m *MockStoreManager) GetAnalysisStore() contract.AnalysisStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.AnalysisStore)
	return store
}

// MockAnalysisStore is a mock implementation of AnalysisStore for testing.
type MockAnalysisStore struct {
	mock.Mock
}

var _ contract.AnalysisStore = &MockAnalysisStore{} // Compile-time check

// SelectComponentsByProjectKey implements the AnalysisStore interface.
func (m *MockAnalysisStore) SelectComponentsByProjectKey(ctx context.Context, projectKey string) ([]schema.ComponentRecord, error) {
	args := m.Called(ctx, projectKey)
	records, _ := args.Get(0).([]schema.ComponentRecord)
	return records, args.Error(1)
}

// SelectComponentByKey implements the AnalysisStore interface.
func (m *MockAnalysisStore) SelectComponentByKey(ctx context.Context, key string) (*schema.ComponentRecord, error) {
	args := m.Called(ctx, key)
	record, _ := args.Get(0).(*schema.ComponentRecord)
	return record, args.Error(1)
}

// UpsertComponents implements the AnalysisStore interface.
func (m *MockAnalysisStore) UpsertComponents(ctx context.Context, components []schema.ComponentRecord) error {
	return m.Called(ctx, components).Error(0)
}

// DisableComponents implements the AnalysisStore interface.
func (m *MockAnalysisStore) DisableComponents(ctx context.Context, uuids []string) error {
	return m.Called(ctx, uuids).Error(0)
}

// SelectAnalyses implements the AnalysisStore interface.
func (m *MockAnalysisStore) SelectAnalyses(ctx context.Context, q schema.AnalysisQuery) ([]schema.AnalysisRecord, error) {
	args := m.Called(ctx, q)
	records, _ := args.Get(0).([]schema.AnalysisRecord)
	return records, args.Error(1)
}

// SelectLastAnalysis implements the AnalysisStore interface.
func (m *MockAnalysisStore) SelectLastAnalysis(ctx context.Context, componentUUID string) (*schema.AnalysisRecord, error) {
	args := m.Called(ctx, componentUUID)
	record, _ := args.Get(0).(*schema.AnalysisRecord)
	return record, args.Error(1)
}

// InsertAnalysis implements the AnalysisStore interface.
func (m *MockAnalysisStore) InsertAnalysis(ctx context.Context, analysis schema.AnalysisRecord) error {
	return m.Called(ctx, analysis).Error(0)
}

// MarkAnalysisProcessed implements the AnalysisStore interface.
func (m *MockAnalysisStore) MarkAnalysisProcessed(ctx context.Context, componentUUID, analysisUUID string) error {
	return m.Called(ctx, componentUUID, analysisUUID).Error(0)
}

// InsertMeasures implements the AnalysisStore interface.
func (m *MockAnalysisStore) InsertMeasures(ctx context.Context, measures []schema.MeasureRecord) error {
	return m.Called(ctx, measures).Error(0)
}

// SelectLastMeasure implements the AnalysisStore interface.
func (m *MockAnalysisStore) SelectLastMeasure(ctx context.Context, componentUUID, metricKey string) (*schema.MeasureRecord, error) {
	args := m.Called(ctx, componentUUID, metricKey)
	record, _ := args.Get(0).(*schema.MeasureRecord)
	return record, args.Error(1)
}

// SelectMeasures implements the AnalysisStore interface.
func (m *MockAnalysisStore) SelectMeasures(ctx context.Context, analysisUUID string) ([]schema.MeasureRecord, error) {
	args := m.Called(ctx, analysisUUID)
	records, _ := args.Get(0).([]schema.MeasureRecord)
	return records, args.Error(1)
}

// InsertEvent implements the AnalysisStore interface.
func (m *MockAnalysisStore) InsertEvent(ctx context.Context, event schema.EventRecord) error {
	return m.Called(ctx, event).Error(0)
}

// SelectFileSources implements the AnalysisStore interface.
func (m *MockAnalysisStore) SelectFileSources(ctx context.Context, projectUUID string) (map[string]schema.FileSourceRecord, error) {
	args := m.Called(ctx, projectUUID)
	records, _ := args.Get(0).(map[string]schema.FileSourceRecord)
	return records, args.Error(1)
}

// UpsertFileSource implements the AnalysisStore interface.
func (m *MockAnalysisStore) UpsertFileSource(ctx context.Context, source schema.FileSourceRecord) error {
	return m.Called(ctx, source).Error(0)
}

// InsertTests implements the AnalysisStore interface.
func (m *MockAnalysisStore) InsertTests(ctx context.Context, tests []schema.TestRecord) error {
	return m.Called(ctx, tests).Error(0)
}

// InsertScannerContext implements the AnalysisStore interface.
func (m *MockAnalysisStore) InsertScannerContext(ctx context.Context, analysisUUID, log string) error {
	return m.Called(ctx, analysisUUID, log).Error(0)
}

// GetStatus implements the AnalysisStore interface.
func (m *MockAnalysisStore) GetStatus() (schema.StoreStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.StoreStatus), args.Error(1)
}

// Close implements the AnalysisStore interface.
func (m *MockAnalysisStore) Close() error {
	return m.Called().Error(0)
}
