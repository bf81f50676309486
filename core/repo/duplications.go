package repo

import (
	"fmt"
	"sync"

	"github.com/huangsam/ceflow/schema"
)

// DuplicationRepository holds the duplications of each file, keyed by ref.
type DuplicationRepository struct {
	mu     sync.RWMutex
	byFile map[int][]schema.Duplication
}

// Add appends a duplication to a FILE component.
func (r *DuplicationRepository) Add(file *schema.Component, dup schema.Duplication) error {
	if file.Type != schema.FileType {
		return fmt.Errorf("duplications can only be added to FILE components, got %s", file)
	}
	if len(dup.Duplicates) == 0 {
		return fmt.Errorf("duplication of %s on %s has no duplicate", dup.Original, file)
	}
	for _, d := range dup.Duplicates {
		if ip, ok := d.(schema.InProjectDuplicate); ok && ip.FileRef == file.Ref() {
			return fmt.Errorf("in-project duplicate of %s cannot reference the file itself", file)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byFile == nil {
		r.byFile = make(map[int][]schema.Duplication)
	}
	r.byFile[file.Ref()] = append(r.byFile[file.Ref()], dup)
	return nil
}

// Get returns the duplications of a file in insertion order.
func (r *DuplicationRepository) Get(file *schema.Component) []schema.Duplication {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]schema.Duplication(nil), r.byFile[file.Ref()]...)
}
