package algo

import (
	"testing"

	"github.com/huangsam/ceflow/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRound1 tests half-up rounding to one decimal.
func TestRound1(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		expected float64
	}{
		{"already rounded", 12.3, 12.3},
		{"rounds half up", 0.25, 0.3},
		{"rounds down", 33.333, 33.3},
		{"zero", 0, 0},
		{"hundred", 99.96, 100},
		{"half below in binary", 1.15, 1.2},
		{"half above in binary", 2.25, 2.3},
		{"half of one hundredth", 1.05, 1.1},
		{"large half", 26.65, 26.7},
		{"just below half", 1.1499, 1.1},
		{"negative half", -1.15, -1.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Round1(tt.value), 1e-9)
		})
	}
}

// TestPercent tests ratio computation with a zero denominator.
func TestPercent(t *testing.T) {
	v, ok := Percent(1, 3)
	assert.True(t, ok)
	assert.InDelta(t, 33.3, v, 1e-9)

	_, ok = Percent(5, 0)
	assert.False(t, ok)
}

// TestParseLineFlags tests decoding of ncloc_data style payloads.
func TestParseLineFlags(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		flags, err := ParseLineFlags("1=1;2=0; 3=1;")
		require.NoError(t, err)
		assert.Equal(t, map[int]bool{1: true, 2: false, 3: true}, flags)
	})

	t.Run("empty", func(t *testing.T) {
		flags, err := ParseLineFlags("")
		require.NoError(t, err)
		assert.Empty(t, flags)
	})

	t.Run("invalid entries", func(t *testing.T) {
		for _, data := range []string{"1", "a=1", "0=1", "2=x"} {
			_, err := ParseLineFlags(data)
			assert.Error(t, err, data)
		}
	})
}

// TestKeyGrammar tests the component key and branch name patterns.
func TestKeyGrammar(t *testing.T) {
	assert.True(t, IsValidKey("org.sample:project"))
	assert.True(t, IsValidKey("projé-1"))
	assert.False(t, IsValidKey("12345"))
	assert.False(t, IsValidKey("with space"))
	assert.False(t, IsValidKey(""))

	assert.True(t, IsValidBranch("feature/my_branch-1.0"))
	assert.False(t, IsValidBranch("bad branch"))
	assert.False(t, IsValidBranch(""))
}

func metricOf(typ schema.MetricType) schema.Metric {
	return schema.Metric{Key: "m", Name: "M", Type: typ}
}

func measurePtr(m schema.Measure) *schema.Measure { return &m }

// TestEvaluateCondition tests status selection for numeric, text and leak conditions.
func TestEvaluateCondition(t *testing.T) {
	leak := schema.IntMeasure(0).WithVariations(schema.Variations{}.With(1, 15))

	tests := []struct {
		name     string
		cond     schema.Condition
		metric   schema.Metric
		measure  *schema.Measure
		expected schema.ConditionStatus
		actual   string
	}{
		{
			name:     "no measure",
			cond:     schema.Condition{Operator: schema.GreaterThanOperator, ErrorThreshold: "1"},
			metric:   metricOf(schema.IntMetric),
			expected: schema.NoValueStatus,
		},
		{
			name:     "error before warning",
			cond:     schema.Condition{Operator: schema.GreaterThanOperator, ErrorThreshold: "10", WarningThreshold: "5"},
			metric:   metricOf(schema.IntMetric),
			measure:  measurePtr(schema.IntMeasure(11)),
			expected: schema.ErrorStatus,
			actual:   "11",
		},
		{
			name:     "warning only",
			cond:     schema.Condition{Operator: schema.GreaterThanOperator, ErrorThreshold: "10", WarningThreshold: "5"},
			metric:   metricOf(schema.IntMetric),
			measure:  measurePtr(schema.IntMeasure(7)),
			expected: schema.WarnStatus,
		},
		{
			name:     "ok",
			cond:     schema.Condition{Operator: schema.GreaterThanOperator, ErrorThreshold: "10"},
			metric:   metricOf(schema.IntMetric),
			measure:  measurePtr(schema.IntMeasure(10)),
			expected: schema.OKStatus,
		},
		{
			name:     "integral threshold truncated",
			cond:     schema.Condition{Operator: schema.GreaterThanOperator, ErrorThreshold: "10.9"},
			metric:   metricOf(schema.IntMetric),
			measure:  measurePtr(schema.IntMeasure(10)),
			expected: schema.OKStatus,
		},
		{
			name:     "percent compares as float",
			cond:     schema.Condition{Operator: schema.LessThanOperator, ErrorThreshold: "80.5"},
			metric:   metricOf(schema.PercentMetric),
			measure:  measurePtr(schema.DoubleMeasure(80.4)),
			expected: schema.ErrorStatus,
			actual:   "80.4",
		},
		{
			name:     "empty thresholds",
			cond:     schema.Condition{Operator: schema.GreaterThanOperator},
			metric:   metricOf(schema.IntMetric),
			measure:  measurePtr(schema.IntMeasure(1000)),
			expected: schema.OKStatus,
		},
		{
			name:     "level equals",
			cond:     schema.Condition{Operator: schema.EqualsOperator, ErrorThreshold: "ERROR"},
			metric:   metricOf(schema.LevelMetric),
			measure:  measurePtr(schema.LevelMeasure(schema.ErrorLevel)),
			expected: schema.ErrorStatus,
			actual:   "ERROR",
		},
		{
			name:     "string not equals",
			cond:     schema.Condition{Operator: schema.NotEqualsOperator, WarningThreshold: "a"},
			metric:   metricOf(schema.StringMetric),
			measure:  measurePtr(schema.StringMeasure("b")),
			expected: schema.WarnStatus,
		},
		{
			name:     "bool",
			cond:     schema.Condition{Operator: schema.EqualsOperator, ErrorThreshold: "true"},
			metric:   metricOf(schema.BoolMetric),
			measure:  measurePtr(schema.BoolMeasure(true)),
			expected: schema.ErrorStatus,
		},
		{
			name:     "leak uses variation 1",
			cond:     schema.Condition{Operator: schema.GreaterThanOperator, ErrorThreshold: "10", OnLeakPeriod: true},
			metric:   metricOf(schema.IntMetric),
			measure:  &leak,
			expected: schema.ErrorStatus,
			actual:   "15",
		},
		{
			name:     "leak without variation",
			cond:     schema.Condition{Operator: schema.GreaterThanOperator, ErrorThreshold: "10", OnLeakPeriod: true},
			metric:   metricOf(schema.IntMetric),
			measure:  measurePtr(schema.IntMeasure(100)),
			expected: schema.NoValueStatus,
		},
		{
			name:     "no value measure",
			cond:     schema.Condition{Operator: schema.GreaterThanOperator, ErrorThreshold: "10"},
			metric:   metricOf(schema.IntMetric),
			measure:  measurePtr(schema.NoValueMeasure()),
			expected: schema.NoValueStatus,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := EvaluateCondition(tt.cond, tt.metric, tt.measure)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, res.Status)
			if tt.actual != "" {
				assert.Equal(t, tt.actual, res.ActualValue)
			}
		})
	}
}

// TestEvaluateConditionErrors tests invalid thresholds and operators.
func TestEvaluateConditionErrors(t *testing.T) {
	_, err := EvaluateCondition(
		schema.Condition{Operator: schema.GreaterThanOperator, ErrorThreshold: "abc"},
		metricOf(schema.IntMetric), measurePtr(schema.IntMeasure(1)))
	assert.Error(t, err)

	_, err = EvaluateCondition(
		schema.Condition{Operator: schema.GreaterThanOperator, ErrorThreshold: "x"},
		metricOf(schema.StringMetric), measurePtr(schema.StringMeasure("y")))
	assert.Error(t, err)

	assert.NoError(t, ParseThreshold(schema.StringMetric, "anything"))
	assert.Error(t, ParseThreshold(schema.BoolMetric, "maybe"))
	assert.NoError(t, ParseThreshold(schema.WorkDurationMetric, "30.5"))
	assert.NoError(t, ParseThreshold(schema.IntMetric, ""))
}
