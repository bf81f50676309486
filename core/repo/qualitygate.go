package repo

import (
	"errors"
	"sync"

	"github.com/huangsam/ceflow/schema"
)

// ErrStatusNotSet is returned when the gate status is read before evaluation,
// or when no quality gate is configured.
var ErrStatusNotSet = errors.New("quality gate status has not been set")

// QualityGateHolder keeps the quality gate of a run. A nil gate means none is configured.
type QualityGateHolder struct {
	mu   sync.RWMutex
	gate once[*schema.QualityGate]
}

// SetQualityGate stores the gate. It can only be called once.
func (h *QualityGateHolder) SetQualityGate(gate *schema.QualityGate) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.gate.put("quality gate", gate)
}

// QualityGate returns the gate, or nil when none is configured.
func (h *QualityGateHolder) QualityGate() (*schema.QualityGate, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.gate.get("quality gate")
}

// QualityGateStatusHolder keeps the evaluated gate status and per-condition outcomes.
type QualityGateStatusHolder struct {
	mu         sync.RWMutex
	set        bool
	level      schema.Level
	conditions []schema.EvaluatedCondition
	byCond     map[schema.Condition]schema.EvaluatedCondition
}

// SetStatus stores the global level and the outcome of each condition.
func (h *QualityGateStatusHolder) SetStatus(level schema.Level, conditions []schema.EvaluatedCondition) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.set {
		return errors.New("quality gate status has already been set")
	}
	h.byCond = make(map[schema.Condition]schema.EvaluatedCondition, len(conditions))
	for _, ec := range conditions {
		h.byCond[ec.Condition] = ec
	}
	h.level = level
	h.conditions = append([]schema.EvaluatedCondition(nil), conditions...)
	h.set = true
	return nil
}

// Status returns the global gate level.
func (h *QualityGateStatusHolder) Status() (schema.Level, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.set {
		return "", ErrStatusNotSet
	}
	return h.level, nil
}

// Conditions returns the evaluated conditions in gate order.
func (h *QualityGateStatusHolder) Conditions() ([]schema.EvaluatedCondition, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.set {
		return nil, ErrStatusNotSet
	}
	return append([]schema.EvaluatedCondition(nil), h.conditions...), nil
}

// ConditionStatus returns the outcome of one condition.
func (h *QualityGateStatusHolder) ConditionStatus(cond schema.Condition) (schema.EvaluatedCondition, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.set {
		return schema.EvaluatedCondition{}, ErrStatusNotSet
	}
	ec, ok := h.byCond[cond]
	if !ok {
		return schema.EvaluatedCondition{}, errors.New("condition is not part of the evaluated gate")
	}
	return ec, nil
}
