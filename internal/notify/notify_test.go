package notify

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/huangsam/ceflow/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSink_HasSubscribers(t *testing.T) {
	s := NewSink([]schema.NotificationType{schema.NewIssuesNotification}, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name  string
		types []schema.NotificationType
		want  bool
	}{
		{"subscribed", []schema.NotificationType{schema.NewIssuesNotification}, true},
		{"not subscribed", []schema.NotificationType{schema.MyNewIssuesNotification}, false},
		{"any of", []schema.NotificationType{schema.IssueChangesNotification, schema.NewIssuesNotification}, true},
		{"empty", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.HasSubscribers(ctx, "p1", tt.types)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSink_DeliverWritesJSONLines(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	var buf bytes.Buffer
	s := NewSink(nil, &buf, zap.New(core))
	ctx := context.Background()

	stats := schema.NewIssueStatistics()
	stats.Add(schema.Issue{Key: "i1", RuleKey: "go:S1", Severity: "MAJOR", Type: "BUG"}, true)
	require.NoError(t, s.Deliver(ctx, schema.Notification{Type: schema.NewIssuesNotification, ProjectKey: "proj", Statistics: stats}))
	require.NoError(t, s.Deliver(ctx, schema.Notification{
		Type: schema.IssueChangesNotification, ProjectKey: "proj",
		IssueChange: &schema.IssueChangeDetail{IssueKey: "i2", Changes: []schema.FieldDiff{{Field: "severity", OldValue: "MINOR", NewValue: "MAJOR"}}},
	}))
	assert.Equal(t, 2, s.Delivered())

	var lines []schema.Notification
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		var n schema.Notification
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &n))
		lines = append(lines, n)
	}
	require.Len(t, lines, 2)
	assert.Equal(t, 1, lines[0].Statistics.IssuesOnLeak)
	assert.Equal(t, "i2", lines[1].IssueChange.IssueKey)

	entries := logs.FilterMessage("Notification delivered").All()
	require.Len(t, entries, 2)
	assert.Equal(t, "new-issues", entries[0].ContextMap()["type"])
	assert.Equal(t, "i2", entries[1].ContextMap()["issue"])
}

func TestSink_DeliverCancelled(t *testing.T) {
	s := NewSink(nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Deliver(ctx, schema.Notification{}), context.Canceled)
	assert.Zero(t, s.Delivered())
}

func TestOpenSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notifications.jsonl")
	s, err := OpenSink([]schema.NotificationType{schema.NewIssuesNotification}, path, nil)
	require.NoError(t, err)
	require.NoError(t, s.Deliver(context.Background(), schema.Notification{Type: schema.NewIssuesNotification, ProjectKey: "proj"}))
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"project_key":"proj"`)

	_, err = OpenSink(nil, filepath.Join(t.TempDir(), "missing", "n.jsonl"), nil)
	assert.Error(t, err)
}
