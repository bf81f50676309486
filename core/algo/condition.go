package algo

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/huangsam/ceflow/schema"
)

// EvaluateCondition checks one gate condition against the root measure of its metric.
// A nil measure, or a missing variation for an on-leak condition, yields NO_VALUE.
// The error threshold is checked before the warning threshold; empty thresholds are skipped.
func EvaluateCondition(cond schema.Condition, metric schema.Metric, measure *schema.Measure) (schema.EvaluatedCondition, error) {
	result := schema.EvaluatedCondition{Condition: cond, Status: schema.NoValueStatus}
	if measure == nil {
		return result, nil
	}

	value, ok := conditionValue(cond, *measure)
	if !ok {
		return result, nil
	}
	result.ActualValue = value.String()

	for _, check := range []struct {
		threshold string
		status    schema.ConditionStatus
	}{
		{cond.ErrorThreshold, schema.ErrorStatus},
		{cond.WarningThreshold, schema.WarnStatus},
	} {
		if strings.TrimSpace(check.threshold) == "" {
			continue
		}
		failing, err := value.fails(cond.Operator, metric.Type, check.threshold)
		if err != nil {
			return result, fmt.Errorf("condition on metric %s: %w", metric.Key, err)
		}
		if failing {
			result.Status = check.status
			return result, nil
		}
	}
	result.Status = schema.OKStatus
	return result, nil
}

// gateValue is either a number or a text, depending on the metric.
type gateValue struct {
	number float64
	text   string
	isText bool
}

func (c gateValue) String() string {
	if c.isText {
		return c.text
	}
	return strconv.FormatFloat(c.number, 'f', -1, 64)
}

func conditionValue(cond schema.Condition, m schema.Measure) (gateValue, bool) {
	if cond.OnLeakPeriod {
		vars := m.Variations()
		if !vars.Has(1) {
			return gateValue{}, false
		}
		return gateValue{number: vars.Value(1)}, true
	}
	if v, ok := m.NumericValue(); ok {
		return gateValue{number: v}, true
	}
	if t, ok := m.TextValue(); ok {
		return gateValue{text: t, isText: true}, true
	}
	return gateValue{}, false
}

func (c gateValue) fails(op schema.Operator, metricType schema.MetricType, threshold string) (bool, error) {
	threshold = strings.TrimSpace(threshold)
	if c.isText {
		switch op {
		case schema.EqualsOperator:
			return c.text == threshold, nil
		case schema.NotEqualsOperator:
			return c.text != threshold, nil
		default:
			return false, fmt.Errorf("operator %s is not supported on text values", op)
		}
	}

	limit, err := parseThreshold(metricType, threshold)
	if err != nil {
		return false, err
	}
	switch op {
	case schema.EqualsOperator:
		return c.number == limit, nil
	case schema.NotEqualsOperator:
		return c.number != limit, nil
	case schema.GreaterThanOperator:
		return c.number > limit, nil
	case schema.LessThanOperator:
		return c.number < limit, nil
	default:
		return false, fmt.Errorf("unknown operator %s", op)
	}
}

// parseThreshold converts a threshold to the numeric domain of the metric type.
// Integral metrics drop the fractional part, booleans accept true/false as well as 1/0.
func parseThreshold(metricType schema.MetricType, threshold string) (float64, error) {
	if metricType == schema.BoolMetric {
		switch strings.ToLower(threshold) {
		case "1", "true":
			return 1, nil
		case "0", "false":
			return 0, nil
		default:
			return 0, fmt.Errorf("invalid boolean threshold %q", threshold)
		}
	}
	v, err := strconv.ParseFloat(threshold, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid threshold %q: %w", threshold, err)
	}
	if metricType.IsIntegral() {
		v = math.Trunc(v)
	}
	return v, nil
}

// ParseThreshold validates a threshold for the metric type without evaluating it.
// An empty threshold is valid and means the level is not checked.
func ParseThreshold(metricType schema.MetricType, threshold string) error {
	if strings.TrimSpace(threshold) == "" || metricType.ValueType() == schema.StringValueType || metricType.ValueType() == schema.LevelValueType {
		return nil
	}
	_, err := parseThreshold(metricType, strings.TrimSpace(threshold))
	return err
}
