// Package agg has the measure aggregation steps of the pipeline.
package agg

import (
	"context"
	"errors"
	"fmt"

	"github.com/huangsam/ceflow/core/repo"
	"github.com/huangsam/ceflow/schema"
)

// Counter accumulates the values of one formula for one component.
type Counter interface {
	// Initialize reads the values of a leaf.
	Initialize(lc *LeafContext) error
	// Aggregate merges the counter of a child into this one.
	Aggregate(child Counter)
}

// NodeCounter is implemented by counters that also count non-leaf components.
type NodeCounter interface {
	InitializeNode(c *schema.Component)
}

// Formula computes output measures from a counter.
type Formula interface {
	NewCounter() Counter
	OutputMetricKeys() []string
	// Compute returns the measure of one output metric, or false when there is none.
	Compute(mc MeasureContext, counter Counter) (schema.Measure, bool)
}

// MeasureContext describes the measure being computed.
type MeasureContext struct {
	Component *schema.Component
	Metric    schema.Metric
	Periods   []schema.Period
}

// LeafContext gives counters access to the data of a leaf.
type LeafContext struct {
	Component *schema.Component
	Periods   []schema.Period
	rc        *repo.RunContext
}

// Measure returns a raw measure of the leaf.
func (lc *LeafContext) Measure(metricKey string) (schema.Measure, bool, error) {
	metric, err := lc.rc.Metrics.ByKey(metricKey)
	if err != nil {
		return schema.Measure{}, false, err
	}
	return lc.rc.Measures.GetRaw(lc.Component, metric)
}

// IntMeasure returns the numeric value of a raw measure as int64.
func (lc *LeafContext) IntMeasure(metricKey string) (int64, bool, error) {
	m, ok, err := lc.Measure(metricKey)
	if err != nil || !ok {
		return 0, false, err
	}
	v, ok := m.NumericValue()
	return int64(v), ok, nil
}

// Coverage returns the line coverage of a report file.
func (lc *LeafContext) Coverage() ([]schema.LineCoverage, error) {
	if lc.Component.Type != schema.FileType {
		return nil, nil
	}
	return lc.rc.Report.Coverage(lc.Component.Ref())
}

// Changesets returns the SCM changesets of a report file.
func (lc *LeafContext) Changesets() (*schema.ReportChangesets, error) {
	return lc.changesetsOf(lc.Component)
}

func (lc *LeafContext) changesetsOf(c *schema.Component) (*schema.ReportChangesets, error) {
	if c.Type != schema.FileType {
		return nil, nil
	}
	return lc.rc.Report.Changesets(c.Ref())
}

// Duplications returns the duplications loaded for the leaf.
func (lc *LeafContext) Duplications() []schema.Duplication {
	if lc.Component.Type != schema.FileType {
		return nil
	}
	return lc.rc.Duplications.Get(lc.Component)
}

// FormulaExecutor walks the tree post-order and computes the outputs of its formulas.
type FormulaExecutor struct {
	formulas []Formula
}

// NewFormulaExecutor returns an executor for the given formulas.
func NewFormulaExecutor(formulas ...Formula) *FormulaExecutor {
	return &FormulaExecutor{formulas: formulas}
}

// Execute computes and stores every output measure of the tree.
// An output is never written over an existing raw measure.
func (e *FormulaExecutor) Execute(ctx context.Context, rc *repo.RunContext) error {
	root, err := rc.Tree.Root()
	if err != nil {
		return err
	}
	periods, err := rc.Periods.Periods()
	if errors.Is(err, repo.ErrPeriodsNotSet) {
		periods = nil
	} else if err != nil {
		return err
	}
	_, err = e.visit(ctx, rc, root, periods)
	return err
}

func (e *FormulaExecutor) visit(ctx context.Context, rc *repo.RunContext, c *schema.Component, periods []schema.Period) ([]Counter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	counters := make([]Counter, len(e.formulas))
	for i, f := range e.formulas {
		counters[i] = f.NewCounter()
	}

	// 1. Leaves read their own values, other components aggregate children
	if c.Type.IsLeaf() {
		lc := &LeafContext{Component: c, Periods: periods, rc: rc}
		for _, counter := range counters {
			if err := counter.Initialize(lc); err != nil {
				return nil, fmt.Errorf("failed to initialize counter of %s: %w", c, err)
			}
		}
	} else {
		for _, child := range c.Children {
			childCounters, err := e.visit(ctx, rc, child, periods)
			if err != nil {
				return nil, err
			}
			for i, counter := range counters {
				counter.Aggregate(childCounters[i])
			}
		}
		for _, counter := range counters {
			if nc, ok := counter.(NodeCounter); ok {
				nc.InitializeNode(c)
			}
		}
	}

	// 2. Project views already carry their measures
	if c.Type == schema.ProjectViewType {
		return counters, nil
	}

	// 3. Write outputs that are not already present
	for i, f := range e.formulas {
		for _, key := range f.OutputMetricKeys() {
			metric, err := rc.Metrics.ByKey(key)
			if err != nil {
				return nil, err
			}
			if _, exists, err := rc.Measures.GetRaw(c, metric); err != nil {
				return nil, err
			} else if exists {
				continue
			}
			m, ok := f.Compute(MeasureContext{Component: c, Metric: metric, Periods: periods}, counters[i])
			if !ok {
				continue
			}
			if err := rc.Measures.Add(c, metric, m); err != nil {
				return nil, err
			}
		}
	}
	return counters, nil
}

// FormulaStep adapts a formula executor into a pipeline step.
type FormulaStep struct {
	description string
	formulas    []Formula
}

func (s FormulaStep) Description() string { return s.description }

func (s FormulaStep) Execute(ctx context.Context, rc *repo.RunContext) error {
	return NewFormulaExecutor(s.formulas...).Execute(ctx, rc)
}
