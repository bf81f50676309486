package agg

import "github.com/huangsam/ceflow/schema"

// UnitTestMeasuresStep sums unit test results and computes their success density.
func UnitTestMeasuresStep() FormulaStep {
	return FormulaStep{
		description: "Compute unit test measures",
		formulas: []Formula{
			sumFormula{metricKey: schema.TestsKey},
			sumFormula{metricKey: schema.TestErrorsKey},
			sumFormula{metricKey: schema.TestFailuresKey},
			sumFormula{metricKey: schema.SkippedTestsKey},
			sumFormula{metricKey: schema.TestExecutionTimeKey},
			testSuccessFormula{},
		},
	}
}

// testSuccessFormula computes (tests - errors - failures) / tests.
type testSuccessFormula struct{}

type testSuccessCounter struct {
	tests    optionalInt
	errors   optionalInt
	failures optionalInt
}

func (testSuccessFormula) NewCounter() Counter { return &testSuccessCounter{} }

func (testSuccessFormula) OutputMetricKeys() []string {
	return []string{schema.TestSuccessDensityKey}
}

func (testSuccessFormula) Compute(_ MeasureContext, counter Counter) (schema.Measure, bool) {
	c := counter.(*testSuccessCounter)
	if !c.errors.set && !c.failures.set {
		return schema.Measure{}, false
	}
	return percentMeasure(c.tests.value-c.errors.value-c.failures.value, c.tests)
}

func (c *testSuccessCounter) Initialize(lc *LeafContext) error {
	return readInts(lc, map[string]*optionalInt{
		schema.TestsKey:        &c.tests,
		schema.TestErrorsKey:   &c.errors,
		schema.TestFailuresKey: &c.failures,
	})
}

func (c *testSuccessCounter) Aggregate(child Counter) {
	other := child.(*testSuccessCounter)
	c.tests.merge(other.tests)
	c.errors.merge(other.errors)
	c.failures.merge(other.failures)
}
