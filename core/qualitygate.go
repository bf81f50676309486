package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/huangsam/ceflow/core/algo"
	"github.com/huangsam/ceflow/core/repo"
	"github.com/huangsam/ceflow/schema"
	"gopkg.in/yaml.v3"
)

// Gates on coverage are not enforced on changesets smaller than this many new lines.
const smallChangesetMaxLines = 20

var smallChangesetMetrics = map[string]struct{}{
	schema.CoverageKey:          {},
	schema.LineCoverageKey:      {},
	schema.BranchCoverageKey:    {},
	schema.NewCoverageKey:       {},
	schema.NewLineCoverageKey:   {},
	schema.NewBranchCoverageKey: {},
}

type gateFile struct {
	ID         string          `yaml:"id"`
	Name       string          `yaml:"name"`
	Conditions []gateFileEntry `yaml:"conditions"`
}

type gateFileEntry struct {
	ID           int    `yaml:"id"`
	Metric       string `yaml:"metric"`
	Op           string `yaml:"op"`
	Error        string `yaml:"error"`
	Warning      string `yaml:"warning"`
	OnLeakPeriod bool   `yaml:"on_leak_period"`
}

// LoadQualityGateFile reads a YAML quality gate definition.
func LoadQualityGateFile(path string, metrics *repo.MetricRepository) (*schema.QualityGate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open quality gate file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ParseQualityGate(f, metrics)
}

// ParseQualityGate decodes a YAML quality gate and checks its conditions against the metric catalog.
func ParseQualityGate(r io.Reader, metrics *repo.MetricRepository) (*schema.QualityGate, error) {
	var raw gateFile
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode quality gate: %w", err)
	}
	id, err := strconv.ParseInt(strings.TrimSpace(raw.ID), 10, 64)
	if err != nil {
		return nil, &ConfigurationError{Property: "quality-gate.id", Value: raw.ID, Reason: "gate id must be an integer"}
	}
	gate := &schema.QualityGate{ID: id, Name: raw.Name}
	for i, e := range raw.Conditions {
		property := fmt.Sprintf("quality-gate.conditions[%d]", i)
		metric, err := metrics.ByKey(e.Metric)
		if err != nil {
			return nil, &ConfigurationError{Property: property + ".metric", Value: e.Metric, Reason: "unknown metric"}
		}
		op := schema.Operator(strings.ToUpper(e.Op))
		if _, ok := schema.ValidOperators[op]; !ok {
			return nil, &ConfigurationError{Property: property + ".op", Value: e.Op, Reason: "unknown operator"}
		}
		if err := algo.ParseThreshold(metric.Type, e.Error); err != nil {
			return nil, &ConfigurationError{Property: property + ".error", Value: e.Error, Reason: err.Error()}
		}
		if err := algo.ParseThreshold(metric.Type, e.Warning); err != nil {
			return nil, &ConfigurationError{Property: property + ".warning", Value: e.Warning, Reason: err.Error()}
		}
		id := e.ID
		if id == 0 {
			id = i + 1
		}
		gate.Conditions = append(gate.Conditions, schema.Condition{
			ID:               id,
			MetricKey:        metric.Key,
			Operator:         op,
			ErrorThreshold:   e.Error,
			WarningThreshold: e.Warning,
			OnLeakPeriod:     e.OnLeakPeriod,
		})
	}
	return gate, nil
}

// LoadQualityGateStep loads the configured gate. Without a gate file the holder stays empty.
type LoadQualityGateStep struct{}

func (LoadQualityGateStep) Description() string { return "Load quality gate" }

func (LoadQualityGateStep) Execute(_ context.Context, rc *repo.RunContext) error {
	if rc.Config.QualityGatePath == "" {
		rc.Stats.Add("gate", "none")
		return rc.QualityGate.SetQualityGate(nil)
	}
	gate, err := LoadQualityGateFile(rc.Config.QualityGatePath, rc.Metrics)
	if err != nil {
		return err
	}
	rc.Stats.Add("gate", gate.Name)
	rc.Stats.Add("conditions", len(gate.Conditions))
	return rc.QualityGate.SetQualityGate(gate)
}

// QualityGateMeasuresStep evaluates the gate on the root and stores the outcome.
type QualityGateMeasuresStep struct{}

func (QualityGateMeasuresStep) Description() string { return "Compute Quality Gate measures" }

func (QualityGateMeasuresStep) Execute(_ context.Context, rc *repo.RunContext) error {
	gate, err := rc.QualityGate.QualityGate()
	if err != nil {
		return err
	}
	if gate == nil {
		return nil
	}
	root, err := rc.Tree.Root()
	if err != nil {
		return err
	}
	smallChangeset, err := isSmallChangeset(rc, root)
	if err != nil {
		return err
	}

	// 1. Evaluate every condition and keep the worst one per metric
	evaluated := make([]schema.EvaluatedCondition, 0, len(gate.Conditions))
	worstByMetric := make(map[string]int)
	var metricOrder []string
	for _, cond := range gate.Conditions {
		metric, err := rc.Metrics.ByKey(cond.MetricKey)
		if err != nil {
			return err
		}
		m, ok, err := rc.Measures.GetRaw(root, metric)
		if err != nil {
			return err
		}
		var measure *schema.Measure
		if ok {
			measure = &m
		}
		ec, err := algo.EvaluateCondition(cond, metric, measure)
		if err != nil {
			return fmt.Errorf("failed to evaluate condition %s: %w", cond, err)
		}
		if _, ok := smallChangesetMetrics[cond.MetricKey]; ok && smallChangeset &&
			(ec.Status == schema.ErrorStatus || ec.Status == schema.WarnStatus) {
			ec.Status = schema.OKStatus
		}
		evaluated = append(evaluated, ec)
		i, seen := worstByMetric[cond.MetricKey]
		if !seen {
			metricOrder = append(metricOrder, cond.MetricKey)
		}
		if !seen || ec.Status.Severity() > evaluated[i].Status.Severity() {
			worstByMetric[cond.MetricKey] = len(evaluated) - 1
		}
	}

	// 2. Attach the per metric status to the measures
	var texts []string
	for _, key := range metricOrder {
		ec := evaluated[worstByMetric[key]]
		metric, err := rc.Metrics.ByKey(key)
		if err != nil {
			return err
		}
		text := alertText(metric, ec)
		if text != "" {
			texts = append(texts, text)
		}
		m, ok, err := rc.Measures.GetRaw(root, metric)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		status := schema.QualityGateStatus{Level: ec.Status.Level(), Text: text}
		if err := rc.Measures.Update(root, metric, m.WithQualityGateStatus(status)); err != nil {
			return err
		}
	}

	// 3. Global status
	level := globalLevel(evaluated)
	if err := rc.GateStatus.SetStatus(level, evaluated); err != nil {
		return err
	}
	alertStatus, err := rc.Metrics.ByKey(schema.AlertStatusKey)
	if err != nil {
		return err
	}
	status := schema.QualityGateStatus{Level: level, Text: strings.Join(texts, ", ")}
	if err := rc.Measures.Add(root, alertStatus, schema.LevelMeasure(level).WithQualityGateStatus(status)); err != nil {
		return err
	}
	details, err := rc.Metrics.ByKey(schema.QualityGateDetailsKey)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(gateDetails(level, evaluated))
	if err != nil {
		return err
	}
	if err := rc.Measures.Add(root, details, schema.StringMeasure(string(payload))); err != nil {
		return err
	}
	rc.Stats.Add("level", string(level))
	rc.Stats.Add("conditions", len(evaluated))
	return nil
}

func isSmallChangeset(rc *repo.RunContext, root *schema.Component) (bool, error) {
	metric, err := rc.Metrics.ByKey(schema.NewLinesKey)
	if err != nil {
		return false, err
	}
	m, ok, err := rc.Measures.GetRaw(root, metric)
	if err != nil || !ok {
		return false, err
	}
	vars := m.Variations()
	return vars.Has(1) && vars.Value(1) < smallChangesetMaxLines, nil
}

func alertText(metric schema.Metric, ec schema.EvaluatedCondition) string {
	var threshold string
	switch ec.Status {
	case schema.ErrorStatus:
		threshold = ec.Condition.ErrorThreshold
	case schema.WarnStatus:
		threshold = ec.Condition.WarningThreshold
	default:
		return ""
	}
	text := fmt.Sprintf("%s %s %s", metric.Name, ec.Condition.Operator.Symbol(), threshold)
	if ec.Condition.OnLeakPeriod {
		text += " since leak period"
	}
	return text
}

func globalLevel(evaluated []schema.EvaluatedCondition) schema.Level {
	worst := schema.OKStatus
	for _, ec := range evaluated {
		if ec.Status.Severity() > worst.Severity() {
			worst = ec.Status
		}
	}
	return worst.Level()
}

func gateDetails(level schema.Level, evaluated []schema.EvaluatedCondition) schema.QualityGateDetails {
	details := schema.QualityGateDetails{Level: level, Conditions: make([]schema.QualityGateDetailEntry, 0, len(evaluated))}
	for _, ec := range evaluated {
		entry := schema.QualityGateDetailEntry{
			Metric:  ec.Condition.MetricKey,
			Op:      string(ec.Condition.Operator),
			Error:   ec.Condition.ErrorThreshold,
			Warning: ec.Condition.WarningThreshold,
			Actual:  ec.ActualValue,
			Level:   string(ec.Status),
		}
		if ec.Condition.OnLeakPeriod {
			period := 1
			entry.Period = &period
		}
		details.Conditions = append(details.Conditions, entry)
	}
	return details
}

// GateResult returns the evaluated gate of a run, or nil when no gate was configured.
func GateResult(rc *repo.RunContext) (*schema.GateResult, error) {
	gate, err := rc.QualityGate.QualityGate()
	if err != nil || gate == nil {
		return nil, err
	}
	level, err := rc.GateStatus.Status()
	if errors.Is(err, repo.ErrStatusNotSet) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	conditions, err := rc.GateStatus.Conditions()
	if err != nil {
		return nil, err
	}
	return &schema.GateResult{Name: gate.Name, Level: level, Conditions: conditions}, nil
}
