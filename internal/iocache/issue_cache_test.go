package iocache

import (
	"errors"
	"os"
	"testing"

	"github.com/huangsam/ceflow/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func collectIssues(t *testing.T, c *BadgerIssueCache) []string {
	t.Helper()
	var keys []string
	require.NoError(t, c.Iterate(func(issue schema.Issue) error {
		keys = append(keys, issue.Key)
		return nil
	}))
	return keys
}

func TestIssueCache_InMemory(t *testing.T) {
	c, err := NewIssueCache("", nil)
	require.NoError(t, err)
	defer func() { _ = c.Discard() }()

	// Reading before close is refused
	assert.ErrorIs(t, c.Iterate(func(schema.Issue) error { return nil }), ErrIssueCacheOpen)

	for _, key := range []string{"k3", "k1", "k2"} {
		require.NoError(t, c.Append(schema.Issue{Key: key, RuleKey: "go:S1", Tags: []string{"bug"}}))
	}
	assert.Equal(t, 3, c.Len())
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	// Append order is kept
	assert.Equal(t, []string{"k3", "k1", "k2"}, collectIssues(t, c))
	// Several passes are allowed
	assert.Equal(t, []string{"k3", "k1", "k2"}, collectIssues(t, c))

	assert.ErrorIs(t, c.Append(schema.Issue{Key: "late"}), ErrIssueCacheClosed)
}

func TestIssueCache_Spill(t *testing.T) {
	spill := t.TempDir()
	c, err := NewIssueCache(spill, zaptest.NewLogger(t))
	require.NoError(t, err)

	entries, err := os.ReadDir(spill)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	for i := range 300 {
		require.NoError(t, c.Append(schema.Issue{Key: string(rune('a'+i%26)) + "-issue", RuleKey: "r", EffortMinutes: int64(i)}))
	}
	require.NoError(t, c.Close())

	var total int64
	require.NoError(t, c.Iterate(func(issue schema.Issue) error {
		total += issue.EffortMinutes
		return nil
	}))
	assert.Equal(t, int64(299*300/2), total)

	require.NoError(t, c.Discard())
	entries, err = os.ReadDir(spill)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestIssueCache_Discard(t *testing.T) {
	c, err := NewIssueCache("", nil)
	require.NoError(t, err)
	require.NoError(t, c.Append(schema.Issue{Key: "k1"}))
	require.NoError(t, c.Discard())
	require.NoError(t, c.Discard())

	assert.ErrorIs(t, c.Append(schema.Issue{Key: "k2"}), ErrIssueCacheDiscarded)
	assert.ErrorIs(t, c.Close(), ErrIssueCacheDiscarded)
	assert.ErrorIs(t, c.Iterate(func(schema.Issue) error { return nil }), ErrIssueCacheDiscarded)
}

func TestIssueCache_IterateStops(t *testing.T) {
	c, err := NewIssueCache("", nil)
	require.NoError(t, err)
	defer func() { _ = c.Discard() }()
	require.NoError(t, c.Append(schema.Issue{Key: "k1"}))
	require.NoError(t, c.Append(schema.Issue{Key: "k2"}))
	require.NoError(t, c.Close())

	stop := errors.New("stop")
	seen := 0
	err = c.Iterate(func(schema.Issue) error {
		seen++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, seen)
}
