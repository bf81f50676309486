package repo

import (
	"errors"
	"fmt"
	"sync"

	"github.com/huangsam/ceflow/schema"
)

// ErrTreeNotSet is returned by lookups made before the root is set.
var ErrTreeNotSet = errors.New("component tree has not been set")

// TreeRootHolder owns the component tree of a run and indexes it by ref and key.
type TreeRootHolder struct {
	mu    sync.RWMutex
	root  *schema.Component
	byRef map[int]*schema.Component
	byKey map[string]*schema.Component
}

// SetRoot stores the tree. It can only be called once.
func (h *TreeRootHolder) SetRoot(root *schema.Component) error {
	if root == nil {
		return errors.New("root component cannot be nil")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.root != nil {
		return errors.New("root has already been set")
	}
	byRef := make(map[int]*schema.Component)
	byKey := make(map[string]*schema.Component)
	_ = schema.Walk(root, schema.PreOrder, func(c *schema.Component) error {
		if c.ReportAttributes != nil {
			byRef[c.Ref()] = c
		}
		byKey[c.Key] = c
		return nil
	})
	h.root, h.byRef, h.byKey = root, byRef, byKey
	return nil
}

// IsSet reports whether the root has been set.
func (h *TreeRootHolder) IsSet() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.root != nil
}

// Root returns the root of the tree.
func (h *TreeRootHolder) Root() (*schema.Component, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.root == nil {
		return nil, ErrTreeNotSet
	}
	return h.root, nil
}

// ComponentByRef returns the report component with the given ref.
func (h *TreeRootHolder) ComponentByRef(ref int) (*schema.Component, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.root == nil {
		return nil, ErrTreeNotSet
	}
	c, ok := h.byRef[ref]
	if !ok {
		return nil, fmt.Errorf("component with ref '%d' can't be found", ref)
	}
	return c, nil
}

// ComponentByKey returns the component with the given key.
func (h *TreeRootHolder) ComponentByKey(key string) (*schema.Component, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.root == nil {
		return nil, ErrTreeNotSet
	}
	c, ok := h.byKey[key]
	if !ok {
		return nil, fmt.Errorf("component with key '%s' can't be found", key)
	}
	return c, nil
}

// Size returns the number of components in the tree.
func (h *TreeRootHolder) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byKey)
}
