package repo

import (
	"errors"
	"fmt"
	"sync"

	"github.com/huangsam/ceflow/schema"
)

// MetricRepository is the read-only metric catalog of a run.
type MetricRepository struct {
	mu    sync.RWMutex
	all   []schema.Metric
	byKey map[string]schema.Metric
	byID  map[int]schema.Metric
}

// Load fills the repository. It can only be called once.
func (r *MetricRepository) Load(metrics []schema.Metric) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byKey != nil {
		return errors.New("metric repository has already been loaded")
	}
	byKey := make(map[string]schema.Metric, len(metrics))
	byID := make(map[int]schema.Metric, len(metrics))
	for _, m := range metrics {
		if _, dup := byKey[m.Key]; dup {
			return fmt.Errorf("duplicate metric key '%s'", m.Key)
		}
		byKey[m.Key] = m
		byID[m.ID] = m
	}
	r.all = append([]schema.Metric(nil), metrics...)
	r.byKey, r.byID = byKey, byID
	return nil
}

// ByKey returns the metric with the given key.
func (r *MetricRepository) ByKey(key string) (schema.Metric, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byKey[key]
	if !ok {
		return schema.Metric{}, fmt.Errorf("metric with key '%s' does not exist", key)
	}
	return m, nil
}

// ByID returns the metric with the given id.
func (r *MetricRepository) ByID(id int) (schema.Metric, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byID[id]
	if !ok {
		return schema.Metric{}, fmt.Errorf("metric with id '%d' does not exist", id)
	}
	return m, nil
}

// All returns every metric in catalog order.
func (r *MetricRepository) All() []schema.Metric {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]schema.Metric(nil), r.all...)
}
