package schema

import "fmt"

// Operator describes the failing state of a condition.
type Operator string

// All condition operators.
const (
	EqualsOperator      Operator = "EQUALS"
	NotEqualsOperator   Operator = "NOT_EQUALS"
	GreaterThanOperator Operator = "GREATER_THAN"
	LessThanOperator    Operator = "LESS_THAN"
)

// ValidOperators lists all valid condition operators.
var ValidOperators = map[Operator]struct{}{
	EqualsOperator:      {},
	NotEqualsOperator:   {},
	GreaterThanOperator: {},
	LessThanOperator:    {},
}

var operatorSymbols = map[Operator]string{
	EqualsOperator:      "=",
	NotEqualsOperator:   "!=",
	GreaterThanOperator: ">",
	LessThanOperator:    "<",
}

// Symbol returns the short form used in alert texts.
func (o Operator) Symbol() string {
	if s, ok := operatorSymbols[o]; ok {
		return s
	}
	return string(o)
}

// Condition is one rule of a quality gate.
type Condition struct {
	ID               int      `json:"id"`
	MetricKey        string   `json:"metric"`
	Operator         Operator `json:"op"`
	ErrorThreshold   string   `json:"error,omitempty"`
	WarningThreshold string   `json:"warning,omitempty"`
	OnLeakPeriod     bool     `json:"on_leak_period"`
}

func (c Condition) String() string {
	return fmt.Sprintf("%s %s error=%q warning=%q leak=%t", c.MetricKey, c.Operator, c.ErrorThreshold, c.WarningThreshold, c.OnLeakPeriod)
}

// QualityGate is a named ordered set of conditions.
type QualityGate struct {
	ID         int64       `json:"id"`
	Name       string      `json:"name"`
	Conditions []Condition `json:"conditions"`
}

// ConditionStatus is the outcome of evaluating one condition.
type ConditionStatus string

// All condition statuses.
const (
	NoValueStatus ConditionStatus = "NO_VALUE"
	OKStatus      ConditionStatus = "OK"
	WarnStatus    ConditionStatus = "WARN"
	ErrorStatus   ConditionStatus = "ERROR"
)

var statusSeverity = map[ConditionStatus]int{
	NoValueStatus: 0,
	OKStatus:      1,
	WarnStatus:    2,
	ErrorStatus:   3,
}

// Severity orders statuses so that a higher value is worse.
func (s ConditionStatus) Severity() int {
	return statusSeverity[s]
}

// Level maps a condition status to an alert level. NO_VALUE counts as OK.
func (s ConditionStatus) Level() Level {
	switch s {
	case ErrorStatus:
		return ErrorLevel
	case WarnStatus:
		return WarnLevel
	default:
		return OKLevel
	}
}

// EvaluatedCondition is a condition with its outcome and the value it was checked against.
type EvaluatedCondition struct {
	Condition   Condition       `json:"condition"`
	Status      ConditionStatus `json:"status"`
	ActualValue string          `json:"actual_value,omitempty"`
}

// QualityGateDetails is the payload of the quality_gate_details measure.
type QualityGateDetails struct {
	Level      Level                    `json:"level"`
	Conditions []QualityGateDetailEntry `json:"conditions"`
}

// QualityGateDetailEntry describes one evaluated condition in the details payload.
type QualityGateDetailEntry struct {
	Metric  string `json:"metric"`
	Op      string `json:"op"`
	Error   string `json:"error,omitempty"`
	Warning string `json:"warning,omitempty"`
	Period  *int   `json:"period,omitempty"`
	Actual  string `json:"actual,omitempty"`
	Level   string `json:"level"`
}
