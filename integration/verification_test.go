//go:build basic

// Package integration contains end-to-end tests for the ceflow binary.
// These tests are excluded from normal test runs due to build tags.
// To run these tests: go test -tags basic ./integration
// Or, with Docker available: go test -tags database ./integration
package integration

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/huangsam/ceflow/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sqliteEnv points the binary at a fresh SQLite file.
func sqliteEnv(t *testing.T) map[string]string {
	return map[string]string{
		"CEFLOW_STORE_BACKEND":    string(schema.SQLiteBackend),
		"CEFLOW_STORE_DB_CONNECT": filepath.Join(t.TempDir(), "ceflow.db"),
	}
}

// reportFileNcloc sums the ncloc measures of the report, per file path.
func reportFileNcloc(t *testing.T) map[string]float64 {
	t.Helper()
	raw, err := os.ReadFile(sampleReport)
	require.NoError(t, err)
	var doc struct {
		Components []struct {
			Ref  int    `json:"ref"`
			Type string `json:"type"`
			Path string `json:"path"`
		} `json:"components"`
		Measures map[int][]struct {
			MetricKey string  `json:"metric_key"`
			IntValue  float64 `json:"int_value"`
		} `json:"measures"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))

	ncloc := make(map[string]float64)
	for _, c := range doc.Components {
		if c.Type != "FILE" {
			continue
		}
		for _, m := range doc.Measures[c.Ref] {
			if m.MetricKey == schema.NclocKey {
				ncloc[c.Path] = m.IntValue
			}
		}
	}
	return ncloc
}

// TestRunVerification checks that aggregated measures add up to what the report declares.
func TestRunVerification(t *testing.T) {
	env := sqliteEnv(t)
	out, err := runCeflowCommand(t, env, "run", "--report", writeReport(t, 0, "1.0"), "--output", "json", "--limit", "100")
	require.NoError(t, err)
	result := decodeRun(t, out)

	expected := reportFileNcloc(t)
	require.NotEmpty(t, expected)

	var total float64
	for _, cm := range result.Components {
		if cm.Type != schema.FileType {
			continue
		}
		want, ok := expected[cm.Path]
		if !ok {
			continue
		}
		t.Run(cm.Path, func(t *testing.T) {
			assert.InDelta(t, want, measureValue(t, cm, schema.NclocKey), 0.001)
		})
		total += want
	}

	require.NotEmpty(t, result.Components)
	root := result.Components[0]
	assert.Equal(t, schema.ProjectType, root.Type)
	assert.InDelta(t, total, measureValue(t, root, schema.NclocKey), 0.001)
}

// TestRunRejectsStaleReport replays an older report against a store that saw a newer one.
func TestRunRejectsStaleReport(t *testing.T) {
	env := sqliteEnv(t)
	_, err := runCeflowCommand(t, env, "run", "--report", writeReport(t, 5, "1.1"))
	require.NoError(t, err)
	_, err = runCeflowCommand(t, env, "run", "--report", writeReport(t, 0, "1.0"))
	assert.Error(t, err)
}

// TestRunCSVExport writes the component table to a file.
func TestRunCSVExport(t *testing.T) {
	env := sqliteEnv(t)
	csvPath := filepath.Join(t.TempDir(), "components.csv")
	_, err := runCeflowCommand(t, env, "run", "--report", writeReport(t, 0, "1.0"), "--output", "csv", "--output-file", csvPath)
	require.NoError(t, err)

	f, err := os.Open(csvPath)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Greater(t, len(records), 1)
}
