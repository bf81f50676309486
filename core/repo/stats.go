package repo

import (
	"sync"

	"go.uber.org/zap"
)

// Stats collects key/value statistics reported by the running step.
// The engine drains them after each step.
type Stats struct {
	mu     sync.Mutex
	keys   []string
	values map[string]any
}

// Add records one statistic. Adding a key twice keeps the last value.
func (s *Stats) Add(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values == nil {
		s.values = make(map[string]any)
	}
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
}

// Drain returns the collected statistics as ordered log fields and as a map, then resets them.
func (s *Stats) Drain() ([]zap.Field, map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fields := make([]zap.Field, 0, len(s.keys))
	for _, k := range s.keys {
		fields = append(fields, zap.Any(k, s.values[k]))
	}
	values := s.values
	s.keys, s.values = nil, nil
	return fields, values
}
