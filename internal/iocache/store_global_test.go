package iocache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/huangsam/ceflow/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClearStore(t *testing.T) {
	t.Run("sqlite removes the file", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "store.db")
		_, err := MigrateStore(schema.SQLiteBackend, dbPath, -1)
		require.NoError(t, err)

		require.NoError(t, ClearStore(schema.SQLiteBackend, dbPath, ""))
		_, err = os.Stat(dbPath)
		assert.True(t, os.IsNotExist(err))

		// Missing file is fine
		assert.NoError(t, ClearStore(schema.SQLiteBackend, dbPath, ""))
	})

	t.Run("none backend", func(t *testing.T) {
		assert.NoError(t, ClearStore(schema.NoneBackend, "", ""))
	})

	t.Run("unsupported backend", func(t *testing.T) {
		err := ClearStore("oracle", "", "")
		assert.Error(t, err)
	})
}

func TestStoreManagerConcurrency(t *testing.T) {
	mgr := &StoreManager{analysis: NoopStore{}}
	done := make(chan struct{})
	for range 10 {
		go func() {
			defer func() { done <- struct{}{} }()
			assert.NotNil(t, mgr.GetAnalysisStore())
		}()
	}
	for range 10 {
		<-done
	}
}

func TestMockStoreManager(t *testing.T) {
	store := &MockAnalysisStore{}
	store.On("GetStatus").Return(schema.StoreStatus{Backend: "mock", Connected: true}, nil)

	mgr := &MockStoreManager{}
	mgr.On("GetAnalysisStore").Return(store)

	status, err := mgr.GetAnalysisStore().GetStatus()
	require.NoError(t, err)
	assert.Equal(t, "mock", status.Backend)
	mgr.AssertExpectations(t)
	store.AssertExpectations(t)
}
