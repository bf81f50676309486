package core

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/huangsam/ceflow/core/repo"
	"github.com/huangsam/ceflow/internal/contract"
	"github.com/huangsam/ceflow/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadedMetrics(t *testing.T) *repo.MetricRepository {
	t.Helper()
	metrics := &repo.MetricRepository{}
	require.NoError(t, metrics.Load(schema.CoreMetrics()))
	return metrics
}

func TestParseQualityGate(t *testing.T) {
	gate, err := ParseQualityGate(strings.NewReader(`
id: "7"
name: Strict
conditions:
  - metric: coverage
    op: less_than
    error: "80"
    warning: "90"
  - id: 12
    metric: new_coverage
    op: LESS_THAN
    error: "70"
    on_leak_period: true
`), loadedMetrics(t))
	require.NoError(t, err)
	assert.Equal(t, int64(7), gate.ID)
	assert.Equal(t, "Strict", gate.Name)
	require.Len(t, gate.Conditions, 2)
	assert.Equal(t, 1, gate.Conditions[0].ID)
	assert.Equal(t, schema.LessThanOperator, gate.Conditions[0].Operator)
	assert.Equal(t, "90", gate.Conditions[0].WarningThreshold)
	assert.Equal(t, 12, gate.Conditions[1].ID)
	assert.True(t, gate.Conditions[1].OnLeakPeriod)
}

func TestParseQualityGateErrors(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		property string
	}{
		{"bad id", "id: abc\nname: x\n", "quality-gate.id"},
		{"unknown metric", "id: \"1\"\nconditions:\n  - metric: nope\n    op: EQUALS\n", "quality-gate.conditions[0].metric"},
		{"unknown operator", "id: \"1\"\nconditions:\n  - metric: ncloc\n    op: AROUND\n", "quality-gate.conditions[0].op"},
		{"bad threshold", "id: \"1\"\nconditions:\n  - metric: ncloc\n    op: EQUALS\n    error: lots\n", "quality-gate.conditions[0].error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseQualityGate(strings.NewReader(tt.yaml), loadedMetrics(t))
			var cerr *ConfigurationError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.property, cerr.Property)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadQualityGateFile("does/not/exist.yaml", loadedMetrics(t))
		assert.ErrorContains(t, err, "failed to open quality gate file")
	})
}

type gateFixture struct {
	rc   *repo.RunContext
	root *schema.Component
}

func newGateFixture(t *testing.T, gate *schema.QualityGate, measures map[string]schema.Measure) *gateFixture {
	t.Helper()
	rc := repo.NewRunContext(nil, &contract.Config{}, nil, nil, nil, nil)
	require.NoError(t, rc.Metrics.Load(schema.CoreMetrics()))
	root := &schema.Component{Type: schema.ProjectType, UUID: "p", Key: "p"}
	require.NoError(t, rc.Tree.SetRoot(root))
	require.NoError(t, rc.QualityGate.SetQualityGate(gate))
	for key, m := range measures {
		metric, err := rc.Metrics.ByKey(key)
		require.NoError(t, err)
		require.NoError(t, rc.Measures.Add(root, metric, m))
	}
	return &gateFixture{rc: rc, root: root}
}

func (f *gateFixture) measure(t *testing.T, key string) schema.Measure {
	t.Helper()
	metric, err := f.rc.Metrics.ByKey(key)
	require.NoError(t, err)
	m, ok, err := f.rc.Measures.GetRaw(f.root, metric)
	require.NoError(t, err)
	require.True(t, ok, "missing measure %s", key)
	return m
}

func TestQualityGateMeasures(t *testing.T) {
	gate := &schema.QualityGate{ID: 1, Name: "Sonar way", Conditions: []schema.Condition{
		{ID: 1, MetricKey: schema.NclocKey, Operator: schema.GreaterThanOperator, ErrorThreshold: "100", WarningThreshold: "50"},
		{ID: 2, MetricKey: schema.CoverageKey, Operator: schema.LessThanOperator, ErrorThreshold: "80"},
		{ID: 3, MetricKey: schema.NclocKey, Operator: schema.GreaterThanOperator, ErrorThreshold: "1000"},
	}}
	f := newGateFixture(t, gate, map[string]schema.Measure{
		schema.NclocKey:    schema.IntMeasure(70),
		schema.CoverageKey: schema.DoubleMeasure(60),
	})

	require.NoError(t, QualityGateMeasuresStep{}.Execute(context.Background(), f.rc))

	// the worst of the two ncloc conditions wins
	ncloc := f.measure(t, schema.NclocKey).QualityGateStatus()
	require.NotNil(t, ncloc)
	assert.Equal(t, schema.WarnLevel, ncloc.Level)
	assert.Equal(t, "Lines of Code > 50", ncloc.Text)

	alert := f.measure(t, schema.AlertStatusKey)
	assert.Equal(t, schema.ErrorLevel, alert.LevelValue())
	require.NotNil(t, alert.QualityGateStatus())
	assert.Equal(t, "Lines of Code > 50, Coverage < 80", alert.QualityGateStatus().Text)

	var details schema.QualityGateDetails
	text, ok := f.measure(t, schema.QualityGateDetailsKey).TextValue()
	require.True(t, ok)
	require.NoError(t, json.Unmarshal([]byte(text), &details))
	assert.Equal(t, schema.ErrorLevel, details.Level)
	assert.Len(t, details.Conditions, 3)
	assert.Equal(t, "60", details.Conditions[1].Actual)

	result, err := GateResult(f.rc)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, schema.ErrorLevel, result.Level)
	assert.Len(t, result.Conditions, 3)
}

func TestQualityGateIgnoresCoverageOnSmallChangeset(t *testing.T) {
	gate := &schema.QualityGate{ID: 1, Name: "Sonar way", Conditions: []schema.Condition{
		{ID: 1, MetricKey: schema.CoverageKey, Operator: schema.LessThanOperator, ErrorThreshold: "80"},
	}}
	f := newGateFixture(t, gate, map[string]schema.Measure{
		schema.CoverageKey: schema.DoubleMeasure(10),
		schema.NewLinesKey: schema.NoValueMeasure().WithVariations(schema.Variations{}.With(1, 5)),
	})

	require.NoError(t, QualityGateMeasuresStep{}.Execute(context.Background(), f.rc))
	assert.Equal(t, schema.OKLevel, f.measure(t, schema.AlertStatusKey).LevelValue())
}

func TestQualityGateWithoutGate(t *testing.T) {
	f := newGateFixture(t, nil, nil)

	require.NoError(t, QualityGateMeasuresStep{}.Execute(context.Background(), f.rc))
	metric, err := f.rc.Metrics.ByKey(schema.AlertStatusKey)
	require.NoError(t, err)
	_, ok, err := f.rc.Measures.GetRaw(f.root, metric)
	require.NoError(t, err)
	assert.False(t, ok)

	result, err := GateResult(f.rc)
	require.NoError(t, err)
	assert.Nil(t, result)
}
