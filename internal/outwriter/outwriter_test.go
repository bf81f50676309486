package outwriter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/huangsam/ceflow/internal/contract"
	"github.com/huangsam/ceflow/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *schema.RunResult {
	param := "1.0"
	return &schema.RunResult{
		AnalysisUUID:    "a1",
		ProjectUUID:     "p1",
		ProjectKey:      "proj",
		Version:         "1.1",
		AnalysisDate:    time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		IsFirstAnalysis: false,
		Periods: []schema.Period{
			{Index: 1, Mode: schema.PreviousVersionMode, ModeParameter: &param, SnapshotDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()},
		},
		QualityGate: &schema.GateResult{
			Name:  "Default",
			Level: schema.ErrorLevel,
			Conditions: []schema.EvaluatedCondition{
				{Condition: schema.Condition{MetricKey: "coverage", Operator: schema.LessThanOperator, ErrorThreshold: "80"}, Status: schema.ErrorStatus, ActualValue: "50.0"},
			},
		},
		Steps: []schema.StepTiming{
			{Description: "Build tree of components", Duration: 3 * time.Millisecond, Stats: map[string]any{"components": 3, "first_analysis": false}},
		},
		Components: []schema.ComponentMeasures{
			{Key: "proj", Type: schema.ProjectType, Measures: map[string]string{"ncloc": "30", "coverage": "50.0"}, Values: map[string]float64{"ncloc": 30}},
			{Key: "proj:a.go", Type: schema.FileType, Path: "a.go", Depth: 1, Measures: map[string]string{"ncloc": "10"}, Values: map[string]float64{"ncloc": 10}},
			{Key: "proj:b.go", Type: schema.FileType, Path: "b.go", Depth: 1, Measures: map[string]string{"ncloc": "20"}, Values: map[string]float64{"ncloc": 20}},
		},
	}
}

func testConfig(output schema.OutputMode, file string) *contract.Config {
	return &contract.Config{Output: output, OutputFile: file, ResultLimit: 10, Workers: 2, Width: 120, StoreBackend: schema.SQLiteBackend}
}

func TestWriteRunTable(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	cfg := testConfig(schema.TextOut, "")
	cfg.Detail = true

	require.NoError(t, writeRunTable(&buf, sampleResult(), cfg, time.Second))
	out := buf.String()

	assert.Contains(t, out, "Project proj (version 1.1)")
	assert.Contains(t, out, "Period 1: PREVIOUS_VERSION 1.0 (since 2024-01-01)")
	assert.Contains(t, out, `Quality gate "Default": Failed`)
	assert.Contains(t, out, "Build tree of components")
	assert.Contains(t, out, "components=3 first_analysis=false")
	assert.Contains(t, out, "Showing top 3 of 3 components by ncloc")

	// Ranked by ncloc, largest first
	assert.Less(t, strings.Index(out, "b.go"), strings.Index(out, "a.go"))
}

func TestWriteRunTable_Limit(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	cfg := testConfig(schema.TextOut, "")
	cfg.ResultLimit = 1

	require.NoError(t, writeRunTable(&buf, sampleResult(), cfg, time.Second))
	out := buf.String()
	assert.Contains(t, out, "Showing top 1 of 3 components")
	assert.NotContains(t, out, "a.go")
	assert.NotContains(t, out, "Build tree of components")
}

func TestWriteRunCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeRunCSV(&buf, sampleResult()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, []string{"analysis_uuid", "component_key", "type", "path", "depth", "metric", "value"}, records[0])
	assert.Equal(t, []string{"a1", "proj", "PROJECT", "", "0", "coverage", "50.0"}, records[1])
	assert.Equal(t, []string{"a1", "proj:a.go", "FILE", "a.go", "1", "ncloc", "10"}, records[3])
}

func TestPrintRunResult_Files(t *testing.T) {
	dir := t.TempDir()

	t.Run("json", func(t *testing.T) {
		path := filepath.Join(dir, "out.json")
		require.NoError(t, PrintRunResult(sampleResult(), testConfig(schema.JSONOut, path), time.Second))
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		var decoded schema.RunResult
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, "proj", decoded.ProjectKey)
		assert.Equal(t, schema.ErrorLevel, decoded.QualityGate.Level)
		assert.Len(t, decoded.Components, 3)
	})

	t.Run("csv", func(t *testing.T) {
		path := filepath.Join(dir, "out.csv")
		require.NoError(t, NewOutWriter().WriteRun(sampleResult(), testConfig(schema.CSVOut, path), time.Second))
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(data), "analysis_uuid,"))
	})

	t.Run("parquet", func(t *testing.T) {
		path := filepath.Join(dir, "out.parquet")
		require.NoError(t, PrintRunResult(sampleResult(), testConfig(schema.ParquetOut, path), time.Second))
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.NotZero(t, info.Size())
	})

	t.Run("bad path", func(t *testing.T) {
		err := PrintRunResult(sampleResult(), testConfig(schema.JSONOut, filepath.Join(dir, "missing", "x.json")), time.Second)
		assert.Error(t, err)
	})
}

func TestGetMaxTablePathWidth(t *testing.T) {
	tests := []struct {
		name   string
		width  int
		detail bool
		want   int
	}{
		{"narrow clamps to minimum", 40, false, 15},
		{"wide clamps to maximum", 300, false, 70},
		{"medium", 100, false, 100 - (15 + 36 + 10)},
		{"detail takes room", 120, true, 120 - (15 + 36 + 36 + 10)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &contract.Config{Width: tt.width, Detail: tt.detail}
			assert.Equal(t, tt.want, GetMaxTablePathWidth(cfg))
		})
	}
}

func TestFormatStats(t *testing.T) {
	assert.Equal(t, "", formatStats(nil))
	assert.Equal(t, "a=1 b=x", formatStats(map[string]any{"b": "x", "a": 1}))
}
