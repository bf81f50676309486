package parquet

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/ceflow/schema"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalysisStructTags(t *testing.T) {
	sch := parquet.SchemaOf(new(Analysis))
	require.NotNil(t, sch)
	for _, colName := range []string{
		"analysis_uuid", "component_uuid", "status", "is_last", "version",
		"created_at", "period_mode", "period_param", "period_date",
	} {
		_, ok := sch.Lookup(colName)
		assert.True(t, ok, "Column %s should exist in schema", colName)
	}
}

func TestMeasureStructTags(t *testing.T) {
	sch := parquet.SchemaOf(new(Measure))
	for _, colName := range []string{
		"analysis_uuid", "component_uuid", "metric_key", "value", "text_value",
		"variation_value_1", "variation_value_5", "alert_status",
	} {
		_, ok := sch.Lookup(colName)
		assert.True(t, ok, "Column %s should exist in schema", colName)
	}
}

func TestConvertAnalysisRecords(t *testing.T) {
	periodDate := int64(1_700_000_000_000)
	records := []schema.AnalysisRecord{
		{UUID: "a1", ComponentUUID: "p1", Status: schema.ProcessedStatus, IsLast: true, Version: "1.0", CreatedAt: 1_700_100_000_000,
			PeriodMode: "previous_version", PeriodParam: "0.9", PeriodDate: &periodDate},
		{UUID: "a2", ComponentUUID: "p1", Status: schema.UnprocessedStatus, CreatedAt: 1_700_200_000_000},
	}

	rows := ConvertAnalysisRecords(records)
	require.Len(t, rows, 2)

	assert.Equal(t, "a1", rows[0].AnalysisUUID)
	assert.Equal(t, "P", rows[0].Status)
	require.NotNil(t, rows[0].PeriodMode)
	assert.Equal(t, "previous_version", *rows[0].PeriodMode)
	assert.Equal(t, "0.9", *rows[0].PeriodParam)
	assert.Equal(t, time.UnixMilli(periodDate).UTC(), *rows[0].PeriodDate)

	assert.Nil(t, rows[1].PeriodMode)
	assert.Nil(t, rows[1].PeriodParam)
	assert.Nil(t, rows[1].PeriodDate)
}

func TestWriteMeasuresParquet(t *testing.T) {
	value, variation := 12.0, 3.0
	text := "OK"
	rows := ConvertMeasureRecords([]schema.MeasureRecord{
		{AnalysisUUID: "a1", ComponentUUID: "c1", MetricKey: "lines", Value: &value, Variation1: &variation},
		{AnalysisUUID: "a1", ComponentUUID: "c1", MetricKey: "alert_status", TextValue: &text, AlertStatus: &text},
	})

	outputPath := filepath.Join(t.TempDir(), "measures.parquet")
	require.NoError(t, WriteMeasuresParquet(rows, outputPath))

	file, err := os.Open(outputPath)
	require.NoError(t, err)
	defer func() { _ = file.Close() }()

	reader := parquet.NewGenericReader[Measure](file)
	defer func() { _ = reader.Close() }()
	assert.Equal(t, int64(2), reader.NumRows())

	read := make([]Measure, 2)
	n, _ := reader.Read(read)
	require.Equal(t, 2, n)
	assert.Equal(t, "lines", read[0].MetricKey)
	assert.InDelta(t, 12.0, *read[0].Value, 0.001)
	assert.InDelta(t, 3.0, *read[0].Variation1, 0.001)
	assert.Nil(t, read[0].Variation2)
	assert.Equal(t, "OK", *read[1].AlertStatus)
}

func TestWriteAnalysesParquetBadPath(t *testing.T) {
	err := WriteAnalysesParquet(nil, filepath.Join(t.TempDir(), "missing", "out.parquet"))
	assert.Error(t, err)
}

func TestConvertRunResult(t *testing.T) {
	result := &schema.RunResult{
		AnalysisUUID: "a1",
		ProjectKey:   "proj",
		AnalysisDate: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Components: []schema.ComponentMeasures{
			{Key: "proj", Type: schema.ProjectType, Measures: map[string]string{"ncloc": "10", "alert_status": "OK"},
				Values: map[string]float64{"ncloc": 10}},
			{Key: "proj:a.go", Type: schema.FileType, Path: "a.go", Depth: 1, Measures: map[string]string{"ncloc": "10"},
				Values: map[string]float64{"ncloc": 10}},
		},
	}

	rows := ConvertRunResult(result)
	require.Len(t, rows, 3)

	// Measures are ordered by metric key within a component
	assert.Equal(t, "alert_status", rows[0].MetricKey)
	assert.Nil(t, rows[0].NumericValue)
	assert.Nil(t, rows[0].Path)
	assert.Equal(t, "ncloc", rows[1].MetricKey)
	assert.InDelta(t, 10.0, *rows[1].NumericValue, 0.001)
	assert.Equal(t, "a.go", *rows[2].Path)
	assert.Equal(t, int32(1), rows[2].Depth)

	var buf bytes.Buffer
	require.NoError(t, WriteComponentMeasures(&buf, rows))
	assert.NotZero(t, buf.Len())
}
