// Package parquet exports analysis store rows and run results to Parquet files
// using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"time"

	"github.com/huangsam/ceflow/schema"
	"github.com/parquet-go/parquet-go"
)

// Analysis is one stored analysis of a project.
// This struct maps to the ce_analyses table.
type Analysis struct {
	AnalysisUUID  string `parquet:"analysis_uuid,snappy"`
	ComponentUUID string `parquet:"component_uuid,snappy"`
	Status        string `parquet:"status,snappy"`
	IsLast        bool   `parquet:"is_last,snappy"`
	Version       string `parquet:"version,snappy"`

	// CreatedAt is the analysis date (stored as TIMESTAMP with nanosecond precision)
	CreatedAt time.Time `parquet:"created_at,snappy"`

	// Period fields describe the first leak period, when one was resolved
	PeriodMode  *string    `parquet:"period_mode,optional,snappy"`
	PeriodParam *string    `parquet:"period_param,optional,snappy"`
	PeriodDate  *time.Time `parquet:"period_date,optional,snappy"`
}

// Measure is one stored measure of a component in an analysis.
// This struct maps to the ce_measures table.
type Measure struct {
	AnalysisUUID  string   `parquet:"analysis_uuid,snappy"`
	ComponentUUID string   `parquet:"component_uuid,snappy"`
	MetricKey     string   `parquet:"metric_key,snappy"`
	Value         *float64 `parquet:"value,optional,snappy"`
	TextValue     *string  `parquet:"text_value,optional,snappy"`
	Variation1    *float64 `parquet:"variation_value_1,optional,snappy"`
	Variation2    *float64 `parquet:"variation_value_2,optional,snappy"`
	Variation3    *float64 `parquet:"variation_value_3,optional,snappy"`
	Variation4    *float64 `parquet:"variation_value_4,optional,snappy"`
	Variation5    *float64 `parquet:"variation_value_5,optional,snappy"`
	AlertStatus   *string  `parquet:"alert_status,optional,snappy"`
}

// ComponentMeasure is one rendered measure of a run result, flattened for columnar tools.
type ComponentMeasure struct {
	AnalysisUUID string    `parquet:"analysis_uuid,snappy"`
	ProjectKey   string    `parquet:"project_key,snappy"`
	AnalysisDate time.Time `parquet:"analysis_date,snappy"`
	ComponentKey string    `parquet:"component_key,snappy"`
	Type         string    `parquet:"component_type,snappy"`
	Path         *string   `parquet:"path,optional,snappy"`
	Depth        int32     `parquet:"depth,snappy"`
	MetricKey    string    `parquet:"metric_key,snappy"`
	Value        string    `parquet:"value,snappy"`
	NumericValue *float64  `parquet:"numeric_value,optional,snappy"`
}

// WriteAnalysesParquet writes analyses to a Parquet file.
func WriteAnalysesParquet(data []Analysis, outputPath string) error {
	return writeFile(data, outputPath)
}

// WriteMeasuresParquet writes measures to a Parquet file.
func WriteMeasuresParquet(data []Measure, outputPath string) error {
	return writeFile(data, outputPath)
}

// WriteComponentMeasures writes run result rows to w.
func WriteComponentMeasures(w io.Writer, data []ComponentMeasure) error {
	return writeRows(w, data)
}

func writeFile[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()
	return writeRows(file, data)
}

// writeRows infers the schema from the struct tags of T.
func writeRows[T any](w io.Writer, data []T) error {
	writer := parquet.NewGenericWriter[T](w)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// ConvertAnalysisRecords converts store analyses for Parquet export.
func ConvertAnalysisRecords(records []schema.AnalysisRecord) []Analysis {
	result := make([]Analysis, len(records))
	for i, r := range records {
		row := Analysis{
			AnalysisUUID:  r.UUID,
			ComponentUUID: r.ComponentUUID,
			Status:        string(r.Status),
			IsLast:        r.IsLast,
			Version:       r.Version,
			CreatedAt:     r.CreatedTime(),
		}
		if r.PeriodMode != "" {
			mode, param := r.PeriodMode, r.PeriodParam
			row.PeriodMode = &mode
			if param != "" {
				row.PeriodParam = &param
			}
		}
		if r.PeriodDate != nil {
			date := time.UnixMilli(*r.PeriodDate).UTC()
			row.PeriodDate = &date
		}
		result[i] = row
	}
	return result
}

// ConvertMeasureRecords converts store measures for Parquet export.
func ConvertMeasureRecords(records []schema.MeasureRecord) []Measure {
	result := make([]Measure, len(records))
	for i, r := range records {
		result[i] = Measure{
			AnalysisUUID:  r.AnalysisUUID,
			ComponentUUID: r.ComponentUUID,
			MetricKey:     r.MetricKey,
			Value:         r.Value,
			TextValue:     r.TextValue,
			Variation1:    r.Variation1,
			Variation2:    r.Variation2,
			Variation3:    r.Variation3,
			Variation4:    r.Variation4,
			Variation5:    r.Variation5,
			AlertStatus:   r.AlertStatus,
		}
	}
	return result
}

// ConvertRunResult flattens a run result into one row per component and metric.
func ConvertRunResult(result *schema.RunResult) []ComponentMeasure {
	var rows []ComponentMeasure
	for _, c := range result.Components {
		var path *string
		if c.Path != "" {
			p := c.Path
			path = &p
		}
		for _, key := range slices.Sorted(maps.Keys(c.Measures)) {
			row := ComponentMeasure{
				AnalysisUUID: result.AnalysisUUID,
				ProjectKey:   result.ProjectKey,
				AnalysisDate: result.AnalysisDate,
				ComponentKey: c.Key,
				Type:         string(c.Type),
				Path:         path,
				Depth:        int32(c.Depth),
				MetricKey:    key,
				Value:        c.Measures[key],
			}
			if v, ok := c.Values[key]; ok {
				row.NumericValue = &v
			}
			rows = append(rows, row)
		}
	}
	return rows
}
