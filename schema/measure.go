package schema

import (
	"fmt"
	"strconv"
)

// Level is the quality gate level carried by alert measures.
type Level string

// Alert levels, ordered from best to worst.
const (
	OKLevel    Level = "OK"
	WarnLevel  Level = "WARN"
	ErrorLevel Level = "ERROR"
)

// ValidLevels lists all valid alert levels.
var ValidLevels = map[Level]struct{}{
	OKLevel:    {},
	WarnLevel:  {},
	ErrorLevel: {},
}

// QualityGateStatus is attached to a measure when a gate condition targets its metric.
type QualityGateStatus struct {
	Level Level  `json:"level"`
	Text  string `json:"text"`
}

// Variations holds one optional value per leak period, indexed 1..MaxPeriods.
type Variations struct {
	values [MaxPeriods]float64
	set    [MaxPeriods]bool
}

// Has reports whether the variation for period index is defined.
func (v Variations) Has(index int) bool {
	if index < 1 || index > MaxPeriods {
		return false
	}
	return v.set[index-1]
}

// Value returns the variation for period index, or 0 when undefined.
func (v Variations) Value(index int) float64 {
	if !v.Has(index) {
		return 0
	}
	return v.values[index-1]
}

// Ptr returns the variation for period index as a nullable value.
func (v Variations) Ptr(index int) *float64 {
	if !v.Has(index) {
		return nil
	}
	val := v.values[index-1]
	return &val
}

// With returns a copy of v with period index set to value. Out of range indexes are ignored.
func (v Variations) With(index int, value float64) Variations {
	if index >= 1 && index <= MaxPeriods {
		v.values[index-1] = value
		v.set[index-1] = true
	}
	return v
}

// IsEmpty reports whether no variation is defined.
func (v Variations) IsEmpty() bool {
	for _, s := range v.set {
		if s {
			return false
		}
	}
	return true
}

// Measure is a value attached to a (component, metric) pair.
// Exactly one of the typed values is meaningful, selected by ValueType.
type Measure struct {
	valueType  ValueType
	number     float64
	text       string
	data       string
	variations Variations
	qgStatus   *QualityGateStatus
}

// NoValueMeasure returns a measure carrying no value.
func NoValueMeasure() Measure { return Measure{valueType: NoValueType} }

// IntMeasure returns an INT measure.
func IntMeasure(v int) Measure { return Measure{valueType: IntValueType, number: float64(v)} }

// LongMeasure returns a LONG measure.
func LongMeasure(v int64) Measure { return Measure{valueType: LongValueType, number: float64(v)} }

// DoubleMeasure returns a DOUBLE measure.
func DoubleMeasure(v float64) Measure { return Measure{valueType: DoubleValueType, number: v} }

// BoolMeasure returns a BOOLEAN measure.
func BoolMeasure(v bool) Measure {
	m := Measure{valueType: BooleanValueType}
	if v {
		m.number = 1
	}
	return m
}

// StringMeasure returns a STRING measure.
func StringMeasure(v string) Measure { return Measure{valueType: StringValueType, text: v} }

// LevelMeasure returns a LEVEL measure.
func LevelMeasure(v Level) Measure { return Measure{valueType: LevelValueType, text: string(v)} }

// WithData returns a copy of m carrying data.
func (m Measure) WithData(data string) Measure {
	m.data = data
	return m
}

// WithVariations returns a copy of m carrying v.
func (m Measure) WithVariations(v Variations) Measure {
	m.variations = v
	return m
}

// WithQualityGateStatus returns a copy of m carrying the given gate status.
func (m Measure) WithQualityGateStatus(s QualityGateStatus) Measure {
	m.qgStatus = &s
	return m
}

// ValueType returns the kind of value held by m.
func (m Measure) ValueType() ValueType { return m.valueType }

// IntValue returns the value of an INT measure.
func (m Measure) IntValue() int { return int(m.number) }

// LongValue returns the value of a LONG measure.
func (m Measure) LongValue() int64 { return int64(m.number) }

// DoubleValue returns the value of a DOUBLE measure.
func (m Measure) DoubleValue() float64 { return m.number }

// BoolValue returns the value of a BOOLEAN measure.
func (m Measure) BoolValue() bool { return m.number != 0 }

// StringValue returns the value of a STRING measure.
func (m Measure) StringValue() string { return m.text }

// LevelValue returns the value of a LEVEL measure.
func (m Measure) LevelValue() Level { return Level(m.text) }

// Data returns the optional data attached to m.
func (m Measure) Data() string { return m.data }

// Variations returns the leak period variations of m.
func (m Measure) Variations() Variations { return m.variations }

// HasVariations reports whether any period variation is defined.
func (m Measure) HasVariations() bool { return !m.variations.IsEmpty() }

// QualityGateStatus returns the gate status attached to m, if any.
func (m Measure) QualityGateStatus() *QualityGateStatus { return m.qgStatus }

// IsNumeric reports whether m holds a value that compares as a number.
func (m Measure) IsNumeric() bool {
	switch m.valueType {
	case IntValueType, LongValueType, DoubleValueType, BooleanValueType:
		return true
	default:
		return false
	}
}

// NumericValue returns the value as float64 for numeric measures.
func (m Measure) NumericValue() (float64, bool) {
	if !m.IsNumeric() {
		return 0, false
	}
	return m.number, true
}

// TextValue returns the value of STRING and LEVEL measures.
func (m Measure) TextValue() (string, bool) {
	if m.valueType == StringValueType || m.valueType == LevelValueType {
		return m.text, true
	}
	return "", false
}

// IsPersistable reports whether m is worth storing: it has a value or a variation.
func (m Measure) IsPersistable() bool {
	return m.valueType != NoValueType || m.HasVariations()
}

// String renders the value for logs and text output.
func (m Measure) String() string {
	switch m.valueType {
	case NoValueType:
		return "-"
	case IntValueType, LongValueType:
		return strconv.FormatInt(int64(m.number), 10)
	case DoubleValueType:
		return strconv.FormatFloat(m.number, 'f', 1, 64)
	case BooleanValueType:
		return strconv.FormatBool(m.number != 0)
	default:
		return m.text
	}
}

// GoString implements fmt.GoStringer to keep test failures readable.
func (m Measure) GoString() string {
	return fmt.Sprintf("Measure{%s: %s}", m.valueType, m.String())
}
