package repo

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/huangsam/ceflow/schema"
)

// ErrPeriodsNotSet is returned when periods are read before being resolved.
var ErrPeriodsNotSet = errors.New("periods have not been set")

// PeriodsHolder keeps the resolved leak periods of a run.
type PeriodsHolder struct {
	mu      sync.RWMutex
	set     bool
	periods [schema.MaxPeriods]*schema.Period
}

// SetPeriods stores the resolved periods. It can only be called once.
func (h *PeriodsHolder) SetPeriods(periods []schema.Period) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.set {
		return errors.New("periods have already been set")
	}
	var slots [schema.MaxPeriods]*schema.Period
	for _, p := range periods {
		if p.Index < 1 || p.Index > schema.MaxPeriods {
			return fmt.Errorf("period index (%d) must be between 1 and %d", p.Index, schema.MaxPeriods)
		}
		if slots[p.Index-1] != nil {
			return fmt.Errorf("there can't be more than one period for the index %d", p.Index)
		}
		slots[p.Index-1] = &p
	}
	h.periods, h.set = slots, true
	return nil
}

// Periods returns the resolved periods ordered by index.
func (h *PeriodsHolder) Periods() ([]schema.Period, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.set {
		return nil, ErrPeriodsNotSet
	}
	var out []schema.Period
	for _, p := range h.periods {
		if p != nil {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

// HasPeriod reports whether a period is resolved for index.
func (h *PeriodsHolder) HasPeriod(index int) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.set || index < 1 || index > schema.MaxPeriods {
		return false
	}
	return h.periods[index-1] != nil
}

// Period returns the period resolved for index.
func (h *PeriodsHolder) Period(index int) (schema.Period, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.set {
		return schema.Period{}, ErrPeriodsNotSet
	}
	if index < 1 || index > schema.MaxPeriods {
		return schema.Period{}, fmt.Errorf("period index (%d) must be between 1 and %d", index, schema.MaxPeriods)
	}
	p := h.periods[index-1]
	if p == nil {
		return schema.Period{}, fmt.Errorf("no period for index %d", index)
	}
	return *p, nil
}
