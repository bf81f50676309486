package agg

import "github.com/huangsam/ceflow/schema"

// CommentMeasuresStep computes comment and public API documentation measures.
func CommentMeasuresStep() FormulaStep {
	return FormulaStep{
		description: "Compute comment measures",
		formulas: []Formula{
			sumFormula{metricKey: schema.CommentLinesKey},
			sumFormula{metricKey: schema.PublicAPIKey},
			sumFormula{metricKey: schema.PublicUndocumentedAPIKey},
			commentDensityFormula{},
			documentedAPIDensityFormula{},
		},
	}
}

// commentDensityFormula computes comment_lines / (ncloc + comment_lines).
type commentDensityFormula struct{}

type commentDensityCounter struct {
	ncloc    optionalInt
	comments optionalInt
}

func (commentDensityFormula) NewCounter() Counter { return &commentDensityCounter{} }

func (commentDensityFormula) OutputMetricKeys() []string {
	return []string{schema.CommentLinesDensityKey}
}

func (commentDensityFormula) Compute(_ MeasureContext, counter Counter) (schema.Measure, bool) {
	c := counter.(*commentDensityCounter)
	if !c.ncloc.set || !c.comments.set {
		return schema.Measure{}, false
	}
	return percentMeasure(c.comments.value, optionalInt{value: c.ncloc.value + c.comments.value, set: true})
}

func (c *commentDensityCounter) Initialize(lc *LeafContext) error {
	return readInts(lc, map[string]*optionalInt{
		schema.NclocKey:        &c.ncloc,
		schema.CommentLinesKey: &c.comments,
	})
}

func (c *commentDensityCounter) Aggregate(child Counter) {
	other := child.(*commentDensityCounter)
	c.ncloc.merge(other.ncloc)
	c.comments.merge(other.comments)
}

// documentedAPIDensityFormula computes (public_api - public_undocumented_api) / public_api.
type documentedAPIDensityFormula struct{}

type documentedAPICounter struct {
	publicAPI    optionalInt
	undocumented optionalInt
}

func (documentedAPIDensityFormula) NewCounter() Counter { return &documentedAPICounter{} }

func (documentedAPIDensityFormula) OutputMetricKeys() []string {
	return []string{schema.PublicDocumentedAPIDensityKey}
}

func (documentedAPIDensityFormula) Compute(_ MeasureContext, counter Counter) (schema.Measure, bool) {
	c := counter.(*documentedAPICounter)
	if !c.undocumented.set {
		return schema.Measure{}, false
	}
	return percentMeasure(c.publicAPI.value-c.undocumented.value, c.publicAPI)
}

func (c *documentedAPICounter) Initialize(lc *LeafContext) error {
	return readInts(lc, map[string]*optionalInt{
		schema.PublicAPIKey:             &c.publicAPI,
		schema.PublicUndocumentedAPIKey: &c.undocumented,
	})
}

func (c *documentedAPICounter) Aggregate(child Counter) {
	other := child.(*documentedAPICounter)
	c.publicAPI.merge(other.publicAPI)
	c.undocumented.merge(other.undocumented)
}
