// Package iocache holds the persistent analysis store and the run-scoped issue cache.
package iocache

import (
	"sync"

	"github.com/huangsam/ceflow/internal/contract"
)

// StoreManager hands out the analysis store opened at startup.
type StoreManager struct {
	sync.RWMutex // Protects the store pointer during initialization
	analysis     contract.AnalysisStore
}

var _ contract.StoreManager = &StoreManager{} // Compile-time check

// GetAnalysisStore returns the analysis store.
func (mgr *StoreManager) GetAnalysisStore() contract.AnalysisStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.analysis
}
