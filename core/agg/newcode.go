package agg

import (
	"github.com/huangsam/ceflow/core/algo"
	"github.com/huangsam/ceflow/schema"
)

// isNewLine reports whether a line was changed at or after the period's snapshot.
func isNewLine(cs *schema.ReportChangesets, line int, period schema.Period) bool {
	changeset, ok := cs.ForLine(line)
	return ok && changeset.Date >= period.SnapshotDate
}

// NewSizeMeasuresStep computes new lines and new duplications, one variation per period.
func NewSizeMeasuresStep() FormulaStep {
	return FormulaStep{
		description: "Compute new size measures",
		formulas:    []Formula{newSizeFormula{}},
	}
}

type newSizeCounter struct {
	lines           periodInts
	duplicatedLines periodInts
	blocks          periodInts
}

// newSizeFormula outputs the new code size measures as variations.
type newSizeFormula struct{}

func (newSizeFormula) NewCounter() Counter { return &newSizeCounter{} }

func (newSizeFormula) OutputMetricKeys() []string {
	return []string{
		schema.NewLinesKey,
		schema.NewDuplicatedLinesKey,
		schema.NewBlocksDuplicatedKey,
		schema.NewDuplicatedLinesDensityKey,
	}
}

func (newSizeFormula) Compute(mc MeasureContext, counter Counter) (schema.Measure, bool) {
	c := counter.(*newSizeCounter)
	switch mc.Metric.Key {
	case schema.NewLinesKey:
		return variationMeasure(c.lines)
	case schema.NewDuplicatedLinesKey:
		return variationMeasure(c.duplicatedLines)
	case schema.NewBlocksDuplicatedKey:
		return variationMeasure(c.blocks)
	case schema.NewDuplicatedLinesDensityKey:
		return ratioVariations(c.duplicatedLines, c.lines)
	}
	return schema.Measure{}, false
}

func (c *newSizeCounter) Initialize(lc *LeafContext) error {
	if lc.Component.Type == schema.ProjectViewType {
		for key, target := range map[string]*periodInts{
			schema.NewLinesKey:            &c.lines,
			schema.NewDuplicatedLinesKey:  &c.duplicatedLines,
			schema.NewBlocksDuplicatedKey: &c.blocks,
		} {
			vars, err := viewVariations(lc, key)
			if err != nil {
				return err
			}
			target.addVariations(vars)
		}
		return nil
	}
	if len(lc.Periods) == 0 {
		return nil
	}
	cs, err := lc.Changesets()
	if err != nil || cs == nil {
		return err
	}

	// 1. Code lines come from ncloc_data, otherwise every attributed line counts
	var codeLines map[int]bool
	if m, ok, err := lc.Measure(schema.NclocDataKey); err != nil {
		return err
	} else if ok && m.Data() != "" {
		if codeLines, err = algo.ParseLineFlags(m.Data()); err != nil {
			return err
		}
	}

	// 2. Changesets of in-project partners
	partners := make(map[int]*schema.ReportChangesets)
	for _, d := range lc.Duplications() {
		for _, dup := range d.Duplicates {
			ip, ok := dup.(schema.InProjectDuplicate)
			if !ok {
				continue
			}
			if _, seen := partners[ip.FileRef]; seen {
				continue
			}
			pcs, err := lc.rc.Report.Changesets(ip.FileRef)
			if err != nil {
				return err
			}
			partners[ip.FileRef] = pcs
		}
	}

	self := lc.Component.Ref()
	for _, period := range lc.Periods {
		// 3. New code lines
		var newLines int64
		for l := 1; l <= cs.LineCount(); l++ {
			if isNewLine(cs, l, period) && (codeLines == nil || codeLines[l]) {
				newLines++
			}
		}
		c.lines.add(period.Index, newLines)

		// 4. New duplicated lines keyed by (file, line), and blocks with a new line
		type fileLine struct{ ref, line int }
		dupLines := make(map[fileLine]struct{})
		var blocks int64
		countBlock := func(ref int, changesets *schema.ReportChangesets, block schema.TextBlock) {
			hasNew := false
			for l := block.Start; l <= block.End; l++ {
				if isNewLine(changesets, l, period) {
					dupLines[fileLine{ref, l}] = struct{}{}
					hasNew = true
				}
			}
			if hasNew {
				blocks++
			}
		}
		for _, d := range lc.Duplications() {
			countBlock(self, cs, d.Original)
			for _, dup := range d.Duplicates {
				switch dup := dup.(type) {
				case schema.InnerDuplicate:
					countBlock(self, cs, dup.Block)
				case schema.InProjectDuplicate:
					countBlock(dup.FileRef, partners[dup.FileRef], dup.Block)
				}
			}
		}
		c.duplicatedLines.add(period.Index, int64(len(dupLines)))
		c.blocks.add(period.Index, blocks)
	}
	return nil
}

func (c *newSizeCounter) Aggregate(child Counter) {
	other := child.(*newSizeCounter)
	c.lines.merge(other.lines)
	c.duplicatedLines.merge(other.duplicatedLines)
	c.blocks.merge(other.blocks)
}

// NewCoverageMeasuresStep computes coverage restricted to new lines, one variation per period.
// Unit test files and files without changesets or coverage produce no measures.
func NewCoverageMeasuresStep() FormulaStep {
	return FormulaStep{
		description: "Compute new coverage measures",
		formulas:    []Formula{newCoverageFormula{}},
	}
}

type newCoverageCounter struct {
	linesToCover        periodInts
	uncoveredLines      periodInts
	conditionsToCover   periodInts
	uncoveredConditions periodInts
}

// newCoverageFormula outputs the coverage of new code as variations.
type newCoverageFormula struct{}

func (newCoverageFormula) NewCounter() Counter { return &newCoverageCounter{} }

func (newCoverageFormula) OutputMetricKeys() []string {
	return []string{
		schema.NewLinesToCoverKey,
		schema.NewUncoveredLinesKey,
		schema.NewConditionsToCoverKey,
		schema.NewUncoveredConditionsKey,
		schema.NewCoverageKey,
		schema.NewLineCoverageKey,
		schema.NewBranchCoverageKey,
	}
}

func (newCoverageFormula) Compute(mc MeasureContext, counter Counter) (schema.Measure, bool) {
	c := counter.(*newCoverageCounter)
	switch mc.Metric.Key {
	case schema.NewLinesToCoverKey:
		return variationMeasure(c.linesToCover)
	case schema.NewUncoveredLinesKey:
		return variationMeasure(c.uncoveredLines)
	case schema.NewConditionsToCoverKey:
		return variationMeasure(c.conditionsToCover)
	case schema.NewUncoveredConditionsKey:
		return variationMeasure(c.uncoveredConditions)
	case schema.NewCoverageKey:
		var covered, total periodInts
		for i := 1; i <= schema.MaxPeriods; i++ {
			ltc, ul := c.linesToCover.get(i), c.uncoveredLines.get(i)
			ctc, uc := c.conditionsToCover.get(i), c.uncoveredConditions.get(i)
			if ltc.set && ctc.set {
				covered.add(i, ltc.value-ul.value+ctc.value-uc.value)
				total.add(i, ltc.value+ctc.value)
			}
		}
		return ratioVariations(covered, total)
	case schema.NewLineCoverageKey:
		return ratioVariations(coveredPart(c.linesToCover, c.uncoveredLines), c.linesToCover)
	case schema.NewBranchCoverageKey:
		return ratioVariations(coveredPart(c.conditionsToCover, c.uncoveredConditions), c.conditionsToCover)
	}
	return schema.Measure{}, false
}

// coveredPart returns total - uncovered for every period where total is set.
func coveredPart(total, uncovered periodInts) periodInts {
	var out periodInts
	for i := 1; i <= schema.MaxPeriods; i++ {
		if t := total.get(i); t.set {
			out.add(i, t.value-uncovered.get(i).value)
		}
	}
	return out
}

func (c *newCoverageCounter) Initialize(lc *LeafContext) error {
	if lc.Component.Type == schema.ProjectViewType {
		for key, target := range map[string]*periodInts{
			schema.NewLinesToCoverKey:        &c.linesToCover,
			schema.NewUncoveredLinesKey:      &c.uncoveredLines,
			schema.NewConditionsToCoverKey:   &c.conditionsToCover,
			schema.NewUncoveredConditionsKey: &c.uncoveredConditions,
		} {
			vars, err := viewVariations(lc, key)
			if err != nil {
				return err
			}
			target.addVariations(vars)
		}
		return nil
	}
	if lc.Component.IsUnitTest() || len(lc.Periods) == 0 {
		return nil
	}
	cs, err := lc.Changesets()
	if err != nil || cs == nil {
		return err
	}
	lines, err := lc.Coverage()
	if err != nil || lines == nil {
		return err
	}
	for _, period := range lc.Periods {
		i := period.Index
		c.linesToCover.add(i, 0)
		c.uncoveredLines.add(i, 0)
		c.conditionsToCover.add(i, 0)
		c.uncoveredConditions.add(i, 0)
		for _, l := range lines {
			if !isNewLine(cs, l.Line, period) {
				continue
			}
			if l.Hits != nil {
				c.linesToCover.add(i, 1)
				if !*l.Hits {
					c.uncoveredLines.add(i, 1)
				}
			}
			c.conditionsToCover.add(i, int64(l.Conditions))
			c.uncoveredConditions.add(i, int64(l.Conditions-l.CoveredConditions))
		}
	}
	return nil
}

func (c *newCoverageCounter) Aggregate(child Counter) {
	other := child.(*newCoverageCounter)
	c.linesToCover.merge(other.linesToCover)
	c.uncoveredLines.merge(other.uncoveredLines)
	c.conditionsToCover.merge(other.conditionsToCover)
	c.uncoveredConditions.merge(other.uncoveredConditions)
}
