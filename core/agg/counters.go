package agg

import (
	"github.com/huangsam/ceflow/core/algo"
	"github.com/huangsam/ceflow/schema"
)

// optionalInt is a sum that only has a value once something was added to it.
type optionalInt struct {
	value int64
	set   bool
}

func (o *optionalInt) add(v int64) {
	o.value += v
	o.set = true
}

func (o *optionalInt) merge(other optionalInt) {
	if other.set {
		o.add(other.value)
	}
}

// periodInts holds one optional sum per period index.
type periodInts [schema.MaxPeriods]optionalInt

func (p *periodInts) add(index int, v int64) {
	p[index-1].add(v)
}

func (p *periodInts) merge(other periodInts) {
	for i := range p {
		p[i].merge(other[i])
	}
}

func (p *periodInts) get(index int) optionalInt {
	return p[index-1]
}

func (p *periodInts) isSet() bool {
	for _, v := range p {
		if v.set {
			return true
		}
	}
	return false
}

// addVariations copies the variations of a view measure into p.
func (p *periodInts) addVariations(v schema.Variations) {
	for i := 1; i <= schema.MaxPeriods; i++ {
		if v.Has(i) {
			p.add(i, int64(v.Value(i)))
		}
	}
}

// variationMeasure returns a NO_VALUE measure carrying one variation per set period.
func variationMeasure(p periodInts) (schema.Measure, bool) {
	if !p.isSet() {
		return schema.Measure{}, false
	}
	var vars schema.Variations
	for i := 1; i <= schema.MaxPeriods; i++ {
		if o := p.get(i); o.set {
			vars = vars.With(i, float64(o.value))
		}
	}
	return schema.NoValueMeasure().WithVariations(vars), true
}

// ratioVariations returns a NO_VALUE measure with num/den*100 for every period where den is non-zero.
func ratioVariations(num, den periodInts) (schema.Measure, bool) {
	var vars schema.Variations
	for i := 1; i <= schema.MaxPeriods; i++ {
		n, d := num.get(i), den.get(i)
		if !n.set || !d.set {
			continue
		}
		if v, ok := algo.Percent(float64(n.value), float64(d.value)); ok {
			vars = vars.With(i, v)
		}
	}
	if vars.IsEmpty() {
		return schema.Measure{}, false
	}
	return schema.NoValueMeasure().WithVariations(vars), true
}

// numericMeasure builds an INT or LONG measure depending on the metric.
func numericMeasure(metric schema.Metric, v int64) schema.Measure {
	if metric.Type.ValueType() == schema.LongValueType {
		return schema.LongMeasure(v)
	}
	return schema.IntMeasure(int(v))
}

// sumMeasure returns the measure of an optional sum.
func sumMeasure(metric schema.Metric, o optionalInt) (schema.Measure, bool) {
	if !o.set {
		return schema.Measure{}, false
	}
	return numericMeasure(metric, o.value), true
}

// percentMeasure returns num/den*100 when den is set and non-zero.
func percentMeasure(num int64, den optionalInt) (schema.Measure, bool) {
	if !den.set {
		return schema.Measure{}, false
	}
	v, ok := algo.Percent(float64(num), float64(den.value))
	if !ok {
		return schema.Measure{}, false
	}
	return schema.DoubleMeasure(v), true
}

// viewVariations returns the variations of a raw measure of a project view.
func viewVariations(lc *LeafContext, metricKey string) (schema.Variations, error) {
	m, ok, err := lc.Measure(metricKey)
	if err != nil || !ok {
		return schema.Variations{}, err
	}
	return m.Variations(), nil
}

// readInts reads the raw integer measures of a leaf into the given sums.
func readInts(lc *LeafContext, targets map[string]*optionalInt) error {
	for key, target := range targets {
		v, ok, err := lc.IntMeasure(key)
		if err != nil {
			return err
		}
		if ok {
			target.add(v)
		}
	}
	return nil
}

// sumFormula sums one integer metric read from the leaves.
type sumFormula struct {
	metricKey     string
	skipUnitTests bool
}

type sumCounter struct {
	formula sumFormula
	sum     optionalInt
}

func (f sumFormula) NewCounter() Counter { return &sumCounter{formula: f} }

func (f sumFormula) OutputMetricKeys() []string { return []string{f.metricKey} }

func (f sumFormula) Compute(mc MeasureContext, counter Counter) (schema.Measure, bool) {
	return sumMeasure(mc.Metric, counter.(*sumCounter).sum)
}

func (c *sumCounter) Initialize(lc *LeafContext) error {
	if c.formula.skipUnitTests && lc.Component.IsUnitTest() {
		return nil
	}
	return readInts(lc, map[string]*optionalInt{c.formula.metricKey: &c.sum})
}

func (c *sumCounter) Aggregate(child Counter) {
	c.sum.merge(child.(*sumCounter).sum)
}
