package schema

import (
	"sort"
	"time"
)

// StepTiming is the log record of one executed step.
type StepTiming struct {
	Description string         `json:"description"`
	Duration    time.Duration  `json:"duration_ns"`
	Stats       map[string]any `json:"stats,omitempty"`
}

// GateResult is the evaluated quality gate of a run.
type GateResult struct {
	Name       string               `json:"name"`
	Level      Level                `json:"level"`
	Conditions []EvaluatedCondition `json:"conditions"`
}

// ComponentMeasures holds the rendered measures of one component.
type ComponentMeasures struct {
	Key      string            `json:"key"`
	Type     ComponentType     `json:"type"`
	Path     string            `json:"path,omitempty"`
	Depth    int               `json:"depth"`
	Measures map[string]string `json:"measures"`

	// Values holds the numeric measures used for ranking.
	Values map[string]float64 `json:"-"`
}

// RunResult summarizes one pipeline run for the output writers.
type RunResult struct {
	AnalysisUUID    string              `json:"analysis_uuid"`
	ProjectUUID     string              `json:"project_uuid"`
	ProjectKey      string              `json:"project_key"`
	Branch          string              `json:"branch,omitempty"`
	Version         string              `json:"version"`
	AnalysisDate    time.Time           `json:"analysis_date"`
	IsFirstAnalysis bool                `json:"is_first_analysis"`
	Periods         []Period            `json:"periods"`
	QualityGate     *GateResult         `json:"quality_gate,omitempty"`
	Steps           []StepTiming        `json:"steps"`
	Components      []ComponentMeasures `json:"components"`
}

// RankedComponent adds presentation data to a ComponentMeasures.
type RankedComponent struct {
	Rank  int    `json:"rank"`
	Label string `json:"label"`
	ComponentMeasures
}

// GetPlainLabel returns a plain text label for an alert level.
func GetPlainLabel(level Level) string {
	switch level {
	case ErrorLevel:
		return "Failed"
	case WarnLevel:
		return "Warning"
	case OKLevel:
		return "Passed"
	default:
		return "None"
	}
}

// RankComponents orders components by descending value of metricKey and assigns ranks.
// Components without the metric are kept after the others, in their original order.
func RankComponents(components []ComponentMeasures, metricKey string, limit int) []RankedComponent {
	sorted := make([]ComponentMeasures, len(components))
	copy(sorted, components)
	sort.SliceStable(sorted, func(i, j int) bool {
		vi, okI := sorted[i].Values[metricKey]
		vj, okJ := sorted[j].Values[metricKey]
		if okI != okJ {
			return okI
		}
		return vi > vj
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	output := make([]RankedComponent, len(sorted))
	for i, c := range sorted {
		output[i] = RankedComponent{
			Rank:              i + 1,
			Label:             c.Measures[metricKey],
			ComponentMeasures: c,
		}
	}
	return output
}
