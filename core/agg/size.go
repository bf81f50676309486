package agg

import "github.com/huangsam/ceflow/schema"

// SizeMeasuresStep computes lines, files, directories and the summed size metrics.
// Unit test files do not contribute.
func SizeMeasuresStep() FormulaStep {
	formulas := []Formula{linesFormula{}, filesFormula{}, directoriesFormula{}}
	for _, key := range []string{
		schema.NclocKey,
		schema.FunctionsKey,
		schema.StatementsKey,
		schema.ClassesKey,
		schema.GeneratedLinesKey,
		schema.GeneratedNclocKey,
	} {
		formulas = append(formulas, sumFormula{metricKey: key, skipUnitTests: true})
	}
	return FormulaStep{description: "Compute size measures", formulas: formulas}
}

// linesFormula reads lines from file attributes.
type linesFormula struct{}

type linesCounter struct{ lines optionalInt }

func (linesFormula) NewCounter() Counter { return &linesCounter{} }

func (linesFormula) OutputMetricKeys() []string { return []string{schema.LinesKey} }

func (linesFormula) Compute(mc MeasureContext, counter Counter) (schema.Measure, bool) {
	return sumMeasure(mc.Metric, counter.(*linesCounter).lines)
}

func (c *linesCounter) Initialize(lc *LeafContext) error {
	switch {
	case lc.Component.Type == schema.ProjectViewType:
		return readInts(lc, map[string]*optionalInt{schema.LinesKey: &c.lines})
	case lc.Component.IsUnitTest():
		return nil
	case lc.Component.FileAttributes != nil:
		c.lines.add(int64(lc.Component.FileAttributes.Lines))
	}
	return nil
}

func (c *linesCounter) Aggregate(child Counter) {
	c.lines.merge(child.(*linesCounter).lines)
}

// filesFormula counts one per non unit test file.
type filesFormula struct{}

type filesCounter struct{ files optionalInt }

func (filesFormula) NewCounter() Counter { return &filesCounter{} }

func (filesFormula) OutputMetricKeys() []string { return []string{schema.FilesKey} }

func (filesFormula) Compute(mc MeasureContext, counter Counter) (schema.Measure, bool) {
	return sumMeasure(mc.Metric, counter.(*filesCounter).files)
}

func (c *filesCounter) Initialize(lc *LeafContext) error {
	if lc.Component.Type == schema.ProjectViewType {
		return readInts(lc, map[string]*optionalInt{schema.FilesKey: &c.files})
	}
	if !lc.Component.IsUnitTest() {
		c.files.add(1)
	}
	return nil
}

func (c *filesCounter) InitializeNode(*schema.Component) {
	c.files.add(0)
}

func (c *filesCounter) Aggregate(child Counter) {
	c.files.merge(child.(*filesCounter).files)
}

// directoriesFormula counts each directory and its descendant directories.
type directoriesFormula struct{}

type directoriesCounter struct{ directories optionalInt }

func (directoriesFormula) NewCounter() Counter { return &directoriesCounter{} }

func (directoriesFormula) OutputMetricKeys() []string { return []string{schema.DirectoriesKey} }

func (directoriesFormula) Compute(mc MeasureContext, counter Counter) (schema.Measure, bool) {
	return sumMeasure(mc.Metric, counter.(*directoriesCounter).directories)
}

func (c *directoriesCounter) Initialize(lc *LeafContext) error {
	if lc.Component.Type == schema.ProjectViewType {
		return readInts(lc, map[string]*optionalInt{schema.DirectoriesKey: &c.directories})
	}
	return nil
}

func (c *directoriesCounter) InitializeNode(comp *schema.Component) {
	if comp.Type == schema.DirectoryType {
		c.directories.add(1)
	} else {
		c.directories.add(0)
	}
}

func (c *directoriesCounter) Aggregate(child Counter) {
	c.directories.merge(child.(*directoriesCounter).directories)
}
