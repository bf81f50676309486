package agg

import "github.com/huangsam/ceflow/schema"

// CoverageMeasuresStep computes coverage counters from per-line coverage, then their ratios.
// Unit test files and files without coverage produce no measures.
func CoverageMeasuresStep() FormulaStep {
	return FormulaStep{
		description: "Compute coverage measures",
		formulas:    []Formula{coverageFormula{}},
	}
}

type coverageCounter struct {
	linesToCover        optionalInt
	uncoveredLines      optionalInt
	conditionsToCover   optionalInt
	uncoveredConditions optionalInt
}

// coverageFormula outputs the four coverage counters and the three coverage ratios.
type coverageFormula struct{}

func (coverageFormula) NewCounter() Counter { return &coverageCounter{} }

func (coverageFormula) OutputMetricKeys() []string {
	return []string{
		schema.LinesToCoverKey,
		schema.UncoveredLinesKey,
		schema.ConditionsToCoverKey,
		schema.UncoveredConditionsKey,
		schema.CoverageKey,
		schema.LineCoverageKey,
		schema.BranchCoverageKey,
	}
}

func (coverageFormula) Compute(mc MeasureContext, counter Counter) (schema.Measure, bool) {
	c := counter.(*coverageCounter)
	ltc, ul := c.linesToCover, c.uncoveredLines
	ctc, uc := c.conditionsToCover, c.uncoveredConditions
	switch mc.Metric.Key {
	case schema.LinesToCoverKey:
		return sumMeasure(mc.Metric, ltc)
	case schema.UncoveredLinesKey:
		return sumMeasure(mc.Metric, ul)
	case schema.ConditionsToCoverKey:
		return sumMeasure(mc.Metric, ctc)
	case schema.UncoveredConditionsKey:
		return sumMeasure(mc.Metric, uc)
	case schema.CoverageKey:
		if !ltc.set || !ctc.set {
			return schema.Measure{}, false
		}
		covered := ltc.value - ul.value + ctc.value - uc.value
		return percentMeasure(covered, optionalInt{value: ltc.value + ctc.value, set: true})
	case schema.LineCoverageKey:
		return percentMeasure(ltc.value-ul.value, ltc)
	case schema.BranchCoverageKey:
		return percentMeasure(ctc.value-uc.value, ctc)
	}
	return schema.Measure{}, false
}

func (c *coverageCounter) Initialize(lc *LeafContext) error {
	if lc.Component.Type == schema.ProjectViewType {
		return readInts(lc, map[string]*optionalInt{
			schema.LinesToCoverKey:        &c.linesToCover,
			schema.UncoveredLinesKey:      &c.uncoveredLines,
			schema.ConditionsToCoverKey:   &c.conditionsToCover,
			schema.UncoveredConditionsKey: &c.uncoveredConditions,
		})
	}
	if lc.Component.IsUnitTest() {
		return nil
	}
	lines, err := lc.Coverage()
	if err != nil || lines == nil {
		return err
	}
	c.linesToCover.add(0)
	c.uncoveredLines.add(0)
	c.conditionsToCover.add(0)
	c.uncoveredConditions.add(0)
	for _, l := range lines {
		if l.Hits != nil {
			c.linesToCover.add(1)
			if !*l.Hits {
				c.uncoveredLines.add(1)
			}
		}
		c.conditionsToCover.add(int64(l.Conditions))
		c.uncoveredConditions.add(int64(l.Conditions - l.CoveredConditions))
	}
	return nil
}

func (c *coverageCounter) Aggregate(child Counter) {
	other := child.(*coverageCounter)
	c.linesToCover.merge(other.linesToCover)
	c.uncoveredLines.merge(other.uncoveredLines)
	c.conditionsToCover.merge(other.conditionsToCover)
	c.uncoveredConditions.merge(other.uncoveredConditions)
}
