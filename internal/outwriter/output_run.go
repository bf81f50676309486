package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/ceflow/internal/contract"
	"github.com/huangsam/ceflow/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// Metric columns of the component table.
var (
	summaryMetrics = []string{schema.NclocKey, schema.CoverageKey, schema.DuplicatedLinesDensityKey}
	detailMetrics  = []string{schema.NewLinesKey, schema.NewCoverageKey, schema.TestsKey}
)

// rankMetric orders the component table.
const rankMetric = schema.NclocKey

// writeRunTable writes the run summary, the quality gate and the largest components.
func writeRunTable(w io.Writer, result *schema.RunResult, cfg *contract.Config, duration time.Duration) error {
	// 1. Summary
	if _, err := fmt.Fprintf(w, "Project %s (version %s) analyzed at %s\n",
		result.ProjectKey, result.Version, result.AnalysisDate.Format(time.RFC3339)); err != nil {
		return err
	}
	if result.Branch != "" {
		if _, err := fmt.Fprintf(w, "Branch: %s\n", result.Branch); err != nil {
			return err
		}
	}
	if result.IsFirstAnalysis {
		if _, err := fmt.Fprintln(w, "First analysis of the project"); err != nil {
			return err
		}
	}
	for _, p := range result.Periods {
		if _, err := fmt.Fprintf(w, "Period %d: %s %s (since %s)\n",
			p.Index, p.Mode, p.Parameter(), p.SnapshotTime().Format(time.DateOnly)); err != nil {
			return err
		}
	}

	// 2. Quality gate
	if result.QualityGate != nil {
		if err := writeGateTable(w, result.QualityGate); err != nil {
			return err
		}
	}

	// 3. Steps
	if cfg.Detail {
		if err := writeStepTable(w, result.Steps); err != nil {
			return err
		}
	}

	// 4. Components
	if err := writeComponentTable(w, result, cfg); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Analysis %s completed in %v with %d workers. Store backend: %s\n",
		result.AnalysisUUID, duration, cfg.Workers, cfg.StoreBackend)
	return err
}

func writeGateTable(w io.Writer, gate *schema.GateResult) error {
	if _, err := fmt.Fprintf(w, "\nQuality gate %q: %s\n", gate.Name, contract.GetColorLabel(gate.Level)); err != nil {
		return err
	}
	if len(gate.Conditions) == 0 {
		return nil
	}
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Metric", "Operator", "Error", "Warning", "Actual", "Status"})
	var data [][]string
	for _, c := range gate.Conditions {
		metric := c.Condition.MetricKey
		if c.Condition.OnLeakPeriod {
			metric += " (leak)"
		}
		data = append(data, []string{
			metric,
			c.Condition.Operator.Symbol(),
			c.Condition.ErrorThreshold,
			c.Condition.WarningThreshold,
			c.ActualValue,
			contract.GetColorStatus(c.Status),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func writeStepTable(w io.Writer, steps []schema.StepTiming) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Step", "Duration", "Stats"})
	var data [][]string
	for _, s := range steps {
		data = append(data, []string{s.Description, s.Duration.Round(time.Microsecond).String(), formatStats(s.Stats)})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func writeComponentTable(w io.Writer, result *schema.RunResult, cfg *contract.Config) error {
	metrics := slices.Clone(summaryMetrics)
	if cfg.Detail {
		metrics = append(metrics, detailMetrics...)
	}

	table := tablewriter.NewWriter(w)
	table.Header(append([]string{"Rank", "Component", "Type"}, metrics...))
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	ranked := schema.RankComponents(result.Components, rankMetric, cfg.ResultLimit)
	maxWidth := GetMaxTablePathWidth(cfg)
	var data [][]string
	for _, c := range ranked {
		name := c.Path
		if name == "" {
			name = c.Key
		}
		row := []string{strconv.Itoa(c.Rank), contract.TruncatePath(name, maxWidth), string(c.Type)}
		for _, m := range metrics {
			row = append(row, measureOrDash(c.Measures, m))
		}
		data = append(data, row)
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Showing top %d of %d components by %s\n", len(ranked), len(result.Components), rankMetric)
	return err
}

// writeRunCSV writes one row per component and measure.
func writeRunCSV(w io.Writer, result *schema.RunResult) error {
	header := []string{"analysis_uuid", "component_key", "type", "path", "depth", "metric", "value"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, c := range result.Components {
			for _, key := range slices.Sorted(maps.Keys(c.Measures)) {
				rec := []string{
					result.AnalysisUUID,
					c.Key,
					string(c.Type),
					c.Path,
					strconv.Itoa(c.Depth),
					key,
					c.Measures[key],
				}
				if err := cw.Write(rec); err != nil {
					return fmt.Errorf("failed to write CSV record: %w", err)
				}
			}
		}
		return nil
	})
}

func measureOrDash(measures map[string]string, key string) string {
	if v, ok := measures[key]; ok {
		return v
	}
	return "-"
}

// formatStats renders step statistics as sorted key=value pairs.
func formatStats(stats map[string]any) string {
	parts := make([]string, 0, len(stats))
	for _, k := range slices.Sorted(maps.Keys(stats)) {
		parts = append(parts, fmt.Sprintf("%s=%v", k, stats[k]))
	}
	return strings.Join(parts, " ")
}
