package agg

import "github.com/huangsam/ceflow/schema"

// DuplicationMeasuresStep computes duplicated lines, blocks, files and density.
func DuplicationMeasuresStep() FormulaStep {
	return FormulaStep{
		description: "Compute duplication measures",
		formulas:    []Formula{duplicationFormula{}},
	}
}

type duplicationCounter struct {
	lines       optionalInt
	blocks      optionalInt
	files       optionalInt
	denominator optionalInt
}

// duplicationFormula outputs the duplication totals of each component.
type duplicationFormula struct{}

func (duplicationFormula) NewCounter() Counter { return &duplicationCounter{} }

func (duplicationFormula) OutputMetricKeys() []string {
	return []string{
		schema.DuplicatedLinesKey,
		schema.DuplicatedBlocksKey,
		schema.DuplicatedFilesKey,
		schema.DuplicatedLinesDensityKey,
	}
}

func (duplicationFormula) Compute(mc MeasureContext, counter Counter) (schema.Measure, bool) {
	c := counter.(*duplicationCounter)
	switch mc.Metric.Key {
	case schema.DuplicatedLinesKey:
		return sumMeasure(mc.Metric, c.lines)
	case schema.DuplicatedBlocksKey:
		return sumMeasure(mc.Metric, c.blocks)
	case schema.DuplicatedFilesKey:
		return sumMeasure(mc.Metric, c.files)
	case schema.DuplicatedLinesDensityKey:
		if !c.lines.set {
			return schema.Measure{}, false
		}
		return percentMeasure(c.lines.value, c.denominator)
	}
	return schema.Measure{}, false
}

func (c *duplicationCounter) Initialize(lc *LeafContext) error {
	if lc.Component.Type == schema.ProjectViewType {
		return readInts(lc, map[string]*optionalInt{
			schema.DuplicatedLinesKey:  &c.lines,
			schema.DuplicatedBlocksKey: &c.blocks,
			schema.DuplicatedFilesKey:  &c.files,
			schema.LinesKey:            &c.denominator,
		})
	}
	if lc.Component.IsUnitTest() {
		return nil
	}

	// 1. Count lines and blocks of this file
	dups := lc.Duplications()
	lines := make(map[int]struct{})
	var blocks int64
	for _, d := range dups {
		for _, l := range d.Original.Lines() {
			lines[l] = struct{}{}
		}
		blocks++
		for _, dup := range d.Duplicates {
			switch dup := dup.(type) {
			case schema.InnerDuplicate:
				for _, l := range dup.Block.Lines() {
					lines[l] = struct{}{}
				}
				blocks++
			case schema.InProjectDuplicate:
				blocks++
			}
		}
	}
	c.lines.add(int64(len(lines)))
	c.blocks.add(blocks)
	if len(dups) > 0 {
		c.files.add(1)
	} else {
		c.files.add(0)
	}

	// 2. Density denominator: lines, or ncloc + comment_lines
	if v, ok, err := lc.IntMeasure(schema.LinesKey); err != nil {
		return err
	} else if ok {
		c.denominator.add(v)
		return nil
	}
	return readInts(lc, map[string]*optionalInt{
		schema.NclocKey:        &c.denominator,
		schema.CommentLinesKey: &c.denominator,
	})
}

func (c *duplicationCounter) Aggregate(child Counter) {
	other := child.(*duplicationCounter)
	c.lines.merge(other.lines)
	c.blocks.merge(other.blocks)
	c.files.merge(other.files)
	c.denominator.merge(other.denominator)
}
