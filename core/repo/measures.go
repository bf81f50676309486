package repo

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/huangsam/ceflow/internal/contract"
	"github.com/huangsam/ceflow/schema"
)

// Measure repository errors.
var (
	ErrMeasureExists   = errors.New("measure already exists")
	ErrMeasureNotFound = errors.New("measure does not exist")
)

// MeasureRepository holds the raw measures computed during a run.
// Report measures are read lazily, once per component, and cached so they can be updated.
type MeasureRepository struct {
	report  contract.ReportReader
	store   contract.AnalysisStore
	metrics *MetricRepository

	mu         sync.RWMutex
	partitions map[*schema.Component]*measurePartition
}

// measurePartition holds the measures of one component.
type measurePartition struct {
	mu           sync.Mutex
	measures     map[string]schema.Measure
	reportLoaded bool
}

// NewMeasureRepository returns an empty repository backed by a report and a store.
// Both report and store may be nil.
func NewMeasureRepository(report contract.ReportReader, store contract.AnalysisStore, metrics *MetricRepository) *MeasureRepository {
	return &MeasureRepository{
		report:     report,
		store:      store,
		metrics:    metrics,
		partitions: make(map[*schema.Component]*measurePartition),
	}
}

func (r *MeasureRepository) partition(c *schema.Component) *measurePartition {
	r.mu.RLock()
	p, ok := r.partitions[c]
	r.mu.RUnlock()
	if ok {
		return p
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok = r.partitions[c]; !ok {
		p = &measurePartition{measures: make(map[string]schema.Measure)}
		r.partitions[c] = p
	}
	return p
}

// Add stores a new measure for (c, metric).
func (r *MeasureRepository) Add(c *schema.Component, metric schema.Metric, m schema.Measure) error {
	if err := checkValueType(metric, m); err != nil {
		return err
	}
	p := r.partition(c)
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.measures[metric.Key]; ok {
		return fmt.Errorf("%w: metric %s on %s", ErrMeasureExists, metric.Key, c)
	}
	p.measures[metric.Key] = m
	return nil
}

// Update replaces an existing measure for (c, metric).
func (r *MeasureRepository) Update(c *schema.Component, metric schema.Metric, m schema.Measure) error {
	if err := checkValueType(metric, m); err != nil {
		return err
	}
	if err := r.loadReport(c); err != nil {
		return err
	}
	p := r.partition(c)
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.measures[metric.Key]; !ok {
		return fmt.Errorf("%w: metric %s on %s", ErrMeasureNotFound, metric.Key, c)
	}
	p.measures[metric.Key] = m
	return nil
}

// GetRaw returns the measure of (c, metric) computed during this run or provided by the report.
func (r *MeasureRepository) GetRaw(c *schema.Component, metric schema.Metric) (schema.Measure, bool, error) {
	if err := r.loadReport(c); err != nil {
		return schema.Measure{}, false, err
	}
	p := r.partition(c)
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.measures[metric.Key]
	return m, ok, nil
}

// GetRawMeasures returns every raw measure of c keyed by metric key.
func (r *MeasureRepository) GetRawMeasures(c *schema.Component) (map[string]schema.Measure, error) {
	if err := r.loadReport(c); err != nil {
		return nil, err
	}
	p := r.partition(c)
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]schema.Measure, len(p.measures))
	for k, v := range p.measures {
		out[k] = v
	}
	return out, nil
}

// GetBase returns the measure persisted by the previous analysis, or nil.
func (r *MeasureRepository) GetBase(ctx context.Context, c *schema.Component, metric schema.Metric) (*schema.Measure, error) {
	if r.store == nil || c.UUID == "" {
		return nil, nil
	}
	rec, err := r.store.SelectLastMeasure(ctx, c.UUID, metric.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to load base measure %s of %s: %w", metric.Key, c.Key, err)
	}
	if rec == nil {
		return nil, nil
	}
	m := rec.ToMeasure(metric)
	return &m, nil
}

// loadReport reads the report measures of c the first time it is called for c.
// Existing measures are never overridden and unknown metric keys are ignored.
func (r *MeasureRepository) loadReport(c *schema.Component) error {
	if r.report == nil || c.ReportAttributes == nil {
		return nil
	}
	p := r.partition(c)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.reportLoaded {
		return nil
	}
	measures, err := r.report.Measures(c.Ref())
	if err != nil {
		return fmt.Errorf("failed to read report measures of %s: %w", c, err)
	}
	for _, rm := range measures {
		metric, err := r.metrics.ByKey(rm.MetricKey)
		if err != nil {
			continue
		}
		if _, ok := p.measures[metric.Key]; ok {
			continue
		}
		p.measures[metric.Key] = convertReportMeasure(metric, rm)
	}
	p.reportLoaded = true
	return nil
}

// convertReportMeasure reads the value field matching the metric's value type.
// A report measure without such a field becomes a NO_VALUE measure.
func convertReportMeasure(metric schema.Metric, rm schema.ReportMeasure) schema.Measure {
	raw := rm.ToMeasure()
	var m schema.Measure
	num, isNum := raw.NumericValue()
	text, isText := raw.TextValue()
	switch vt := metric.Type.ValueType(); {
	case vt == schema.IntValueType && isNum:
		m = schema.IntMeasure(int(num))
	case vt == schema.LongValueType && isNum:
		m = schema.LongMeasure(int64(num))
	case vt == schema.DoubleValueType && isNum:
		m = schema.DoubleMeasure(num)
	case vt == schema.BooleanValueType && isNum:
		m = schema.BoolMeasure(num != 0)
	case vt == schema.StringValueType && isText:
		m = schema.StringMeasure(text)
	case vt == schema.LevelValueType && isText:
		m = schema.LevelMeasure(schema.Level(text))
	default:
		m = schema.NoValueMeasure()
	}
	if d := raw.Data(); d != "" {
		m = m.WithData(d)
	}
	return m
}

func checkValueType(metric schema.Metric, m schema.Measure) error {
	if m.ValueType() == schema.NoValueType {
		return nil
	}
	if expected := metric.Type.ValueType(); m.ValueType() != expected {
		return fmt.Errorf("Measure's ValueType (%s) is not consistent with the Metric's ValueType (%s)", m.ValueType(), expected)
	}
	return nil
}
