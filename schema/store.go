package schema

import "time"

// ComponentRecord is a component row of the analysis store.
type ComponentRecord struct {
	UUID        string
	Key         string
	Name        string
	Description string
	Path        string
	Qualifier   string
	ProjectUUID string
	Language    string
	Enabled     bool
}

// AnalysisRecord is an analysis (snapshot) row of the analysis store.
type AnalysisRecord struct {
	UUID          string
	ComponentUUID string
	Status        SnapshotStatus
	IsLast        bool
	Version       string
	CreatedAt     int64 // epoch millis
	PeriodMode    string
	PeriodParam   string
	PeriodDate    *int64
}

// CreatedTime returns CreatedAt as a time.Time in UTC.
func (a AnalysisRecord) CreatedTime() time.Time {
	return time.UnixMilli(a.CreatedAt).UTC()
}

// AnalysisQuery filters analyses of one project.
type AnalysisQuery struct {
	ComponentUUID string
	Status        SnapshotStatus // empty means any status
	CreatedAfter  *int64         // inclusive
	CreatedBefore *int64         // exclusive
}

// MeasureRecord is a measure row of the analysis store.
type MeasureRecord struct {
	AnalysisUUID  string     `json:"analysis_uuid"`
	ComponentUUID string     `json:"component_uuid"`
	ComponentKey  string     `json:"component_key,omitempty"`
	MetricKey     string     `json:"metric_key"`
	Value         *float64   `json:"value,omitempty"`
	TextValue     *string    `json:"text_value,omitempty"`
	Data          *string    `json:"data,omitempty"`
	Variation1    *float64   `json:"variation_1,omitempty"`
	Variation2    *float64   `json:"variation_2,omitempty"`
	Variation3    *float64   `json:"variation_3,omitempty"`
	Variation4    *float64   `json:"variation_4,omitempty"`
	Variation5    *float64   `json:"variation_5,omitempty"`
	AlertStatus   *string    `json:"alert_status,omitempty"`
	AlertText     *string    `json:"alert_text,omitempty"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
}

// Variation returns the stored variation for period index.
func (r MeasureRecord) Variation(index int) *float64 {
	switch index {
	case 1:
		return r.Variation1
	case 2:
		return r.Variation2
	case 3:
		return r.Variation3
	case 4:
		return r.Variation4
	case 5:
		return r.Variation5
	default:
		return nil
	}
}

// NewMeasureRecord flattens a measure into its persisted form.
func NewMeasureRecord(analysisUUID string, c *Component, metric Metric, m Measure) MeasureRecord {
	rec := MeasureRecord{
		AnalysisUUID:  analysisUUID,
		ComponentUUID: c.UUID,
		ComponentKey:  c.Key,
		MetricKey:     metric.Key,
	}
	if v, ok := m.NumericValue(); ok {
		rec.Value = &v
	}
	if t, ok := m.TextValue(); ok {
		rec.TextValue = &t
	}
	if d := m.Data(); d != "" {
		rec.Data = &d
	}
	vars := m.Variations()
	rec.Variation1 = vars.Ptr(1)
	rec.Variation2 = vars.Ptr(2)
	rec.Variation3 = vars.Ptr(3)
	rec.Variation4 = vars.Ptr(4)
	rec.Variation5 = vars.Ptr(5)
	if qg := m.QualityGateStatus(); qg != nil {
		level, text := string(qg.Level), qg.Text
		rec.AlertStatus = &level
		rec.AlertText = &text
	}
	return rec
}

// ToMeasure rebuilds a typed measure from its persisted form.
func (r MeasureRecord) ToMeasure(metric Metric) Measure {
	var m Measure
	vt := metric.Type.ValueType()
	switch {
	case r.Value != nil && vt == IntValueType:
		m = IntMeasure(int(*r.Value))
	case r.Value != nil && vt == LongValueType:
		m = LongMeasure(int64(*r.Value))
	case r.Value != nil && vt == DoubleValueType:
		m = DoubleMeasure(*r.Value)
	case r.Value != nil && vt == BooleanValueType:
		m = BoolMeasure(*r.Value != 0)
	case r.TextValue != nil && vt == LevelValueType:
		m = LevelMeasure(Level(*r.TextValue))
	case r.TextValue != nil:
		m = StringMeasure(*r.TextValue)
	default:
		m = NoValueMeasure()
	}
	if r.Data != nil {
		m = m.WithData(*r.Data)
	}
	var vars Variations
	for i := 1; i <= MaxPeriods; i++ {
		if v := r.Variation(i); v != nil {
			vars = vars.With(i, *v)
		}
	}
	m = m.WithVariations(vars)
	if r.AlertStatus != nil {
		s := QualityGateStatus{Level: Level(*r.AlertStatus)}
		if r.AlertText != nil {
			s.Text = *r.AlertText
		}
		m = m.WithQualityGateStatus(s)
	}
	return m
}

// EventRecord is an event row of the analysis store.
type EventRecord struct {
	UUID          string
	AnalysisUUID  string
	ComponentUUID string
	Name          string
	Category      string
	Description   string
	Data          string
	EventDate     int64
	CreatedAt     int64
}

// FileSourceRecord is the stored source and line data of one file.
type FileSourceRecord struct {
	FileUUID    string
	ProjectUUID string
	SrcHash     string
	DataHash    string
	LineCount   int
	Data        string
	UpdatedAt   int64
}

// TestRecord is a stored unit test result with the lines it covered.
type TestRecord struct {
	FileUUID     string
	Name         string
	Status       TestStatus
	DurationMs   int64
	Message      string
	Stacktrace   string
	CoveredLines map[string][]int // covered file uuid to lines
}
