package core

import (
	"context"
	"testing"

	"github.com/huangsam/ceflow/core/repo"
	"github.com/huangsam/ceflow/internal/contract"
	"github.com/huangsam/ceflow/internal/iocache"
	"github.com/huangsam/ceflow/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func day(n int64) int64 { return n * millisPerDay }

// periodHistory holds three processed analyses and a trailing unprocessed one.
var periodHistory = []schema.AnalysisRecord{
	{UUID: "a3", Status: schema.ProcessedStatus, Version: "1.1", CreatedAt: day(80)},
	{UUID: "a1", Status: schema.ProcessedStatus, Version: "1.0", CreatedAt: day(10)},
	{UUID: "a2", Status: schema.ProcessedStatus, Version: "1.0", CreatedAt: day(50)},
	{UUID: "a4", Status: schema.UnprocessedStatus, Version: "1.1", CreatedAt: day(90)},
}

func periodContext(t *testing.T, settings map[string]string, version string, first bool) (*repo.RunContext, *iocache.MockAnalysisStore) {
	t.Helper()
	return periodContextWith(t, periodHistory, settings, version, first)
}

func periodContextWith(t *testing.T, history []schema.AnalysisRecord, settings map[string]string, version string, first bool) (*repo.RunContext, *iocache.MockAnalysisStore) {
	t.Helper()
	store := &iocache.MockAnalysisStore{}
	store.On("SelectAnalyses", mock.Anything, schema.AnalysisQuery{ComponentUUID: "p"}).Return(history, nil)
	cfg := &contract.Config{PeriodSettings: settings}
	rc := repo.NewRunContext(nil, cfg, nil, store, nil, nil)
	require.NoError(t, rc.Tree.SetRoot(&schema.Component{Type: schema.ProjectType, UUID: "p", Key: "p"}))
	require.NoError(t, rc.Metadata.SetFirstAnalysis(first))
	require.NoError(t, rc.Metadata.SetAnalysisDate(day(100)))
	require.NoError(t, rc.Metadata.SetRootVersion(version))
	return rc, store
}

func TestLoadPeriodsModes(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		version  string
		mode     schema.PeriodMode
		param    string
		analysis string
	}{
		{"previous analysis", "previous_analysis", "1.2", schema.PreviousAnalysisMode, "1970-03-22", "a3"},
		{"previous version", "previous_version", "1.2", schema.PreviousVersionMode, "1.1", "a3"},
		{"previous version skips same version", "PREVIOUS_VERSION", "1.1", schema.PreviousVersionMode, "1.0", "a2"},
		{"days", "30", "1.2", schema.DaysMode, "30", "a3"},
		{"date", "1970-02-15", "1.2", schema.DateMode, "1970-02-15", "a2"},
		{"version", "1.0", "1.2", schema.VersionMode, "1.0", "a2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc, _ := periodContext(t, map[string]string{"period1": tt.value}, tt.version, false)
			require.NoError(t, LoadPeriodsStep{}.Execute(context.Background(), rc))

			p, err := rc.Periods.Period(1)
			require.NoError(t, err)
			assert.Equal(t, tt.mode, p.Mode)
			assert.Equal(t, tt.param, p.Parameter())
			assert.Equal(t, tt.analysis, p.AnalysisUUID)
		})
	}
}

func TestLoadPeriodsSkipsUnresolved(t *testing.T) {
	settings := map[string]string{
		"period1": "previous_version",
		"period2": "9.9",
		"period3": "1.0",
	}
	rc, _ := periodContext(t, settings, "1.2", false)
	require.NoError(t, LoadPeriodsStep{}.Execute(context.Background(), rc))

	periods, err := rc.Periods.Periods()
	require.NoError(t, err)
	require.Len(t, periods, 2)
	assert.Equal(t, 1, periods[0].Index)
	assert.Equal(t, 3, periods[1].Index)
	assert.False(t, rc.Periods.HasPeriod(2))
}

func TestLoadPeriodsQualifierOverride(t *testing.T) {
	settings := map[string]string{"period1": "previous_version", "period1.TRK": "30"}
	rc, _ := periodContext(t, settings, "1.2", false)
	require.NoError(t, LoadPeriodsStep{}.Execute(context.Background(), rc))

	p, err := rc.Periods.Period(1)
	require.NoError(t, err)
	assert.Equal(t, schema.DaysMode, p.Mode)
}

func TestLoadPeriodsFirstAnalysis(t *testing.T) {
	rc, store := periodContext(t, map[string]string{"period1": "30"}, "1.2", true)
	require.NoError(t, LoadPeriodsStep{}.Execute(context.Background(), rc))

	periods, err := rc.Periods.Periods()
	require.NoError(t, err)
	assert.Empty(t, periods)
	store.AssertNotCalled(t, "SelectAnalyses", mock.Anything, mock.Anything)
}

func TestLoadPeriodsInvalidValues(t *testing.T) {
	for _, value := range []string{"0", "-3", "2999-01-01"} {
		t.Run(value, func(t *testing.T) {
			rc, _ := periodContext(t, map[string]string{"period2": value}, "1.2", false)
			err := LoadPeriodsStep{}.Execute(context.Background(), rc)
			require.ErrorIs(t, err, ErrInvalidPeriod)
			var cerr *ConfigurationError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, "period2", cerr.Property)
			assert.Equal(t, value, cerr.Value)
		})
	}
}

// TestLoadPeriodsVersionFallbacks tests when version modes fall back to the oldest processed analysis.
func TestLoadPeriodsVersionFallbacks(t *testing.T) {
	// the latest analysis of 2.0 was never processed
	pending := []schema.AnalysisRecord{
		{UUID: "b1", Status: schema.ProcessedStatus, Version: "1.0", CreatedAt: day(10)},
		{UUID: "b2", Status: schema.ProcessedStatus, Version: "1.0", CreatedAt: day(50)},
		{UUID: "b3", Status: schema.UnprocessedStatus, Version: "2.0", CreatedAt: day(90)},
	}
	sameVersion := []schema.AnalysisRecord{
		{UUID: "c2", Status: schema.ProcessedStatus, Version: "2.0", CreatedAt: day(50)},
		{UUID: "c1", Status: schema.ProcessedStatus, Version: "2.0", CreatedAt: day(10)},
	}

	tests := []struct {
		name     string
		history  []schema.AnalysisRecord
		value    string
		mode     schema.PeriodMode
		analysis string
	}{
		{"version of the last unprocessed analysis", pending, "2.0", schema.VersionMode, "b1"},
		{"unknown version", pending, "3.0", "", ""},
		{"previous version without another version", sameVersion, "previous_version", schema.PreviousVersionMode, "c1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc, _ := periodContextWith(t, tt.history, map[string]string{"period1": tt.value}, "2.0", false)
			require.NoError(t, LoadPeriodsStep{}.Execute(context.Background(), rc))

			if tt.analysis == "" {
				assert.False(t, rc.Periods.HasPeriod(1))
				return
			}
			p, err := rc.Periods.Period(1)
			require.NoError(t, err)
			assert.Equal(t, tt.mode, p.Mode)
			assert.Equal(t, tt.analysis, p.AnalysisUUID)
			assert.Nil(t, p.ModeParameter)
			assert.Equal(t, day(10), p.SnapshotDate)
		})
	}
}
