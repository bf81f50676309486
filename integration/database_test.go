//go:build database

package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/huangsam/ceflow/core"
	"github.com/huangsam/ceflow/internal/contract"
	"github.com/huangsam/ceflow/internal/iocache"
	"github.com/huangsam/ceflow/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startMySQL starts a MySQL container and returns its connection string.
func startMySQL(t *testing.T) string {
	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "mysql:8",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "secret123",
			"MYSQL_DATABASE":      "ceflow",
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(60 * time.Second),
	}
	mysqlC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = mysqlC.Terminate(ctx) })

	host, err := mysqlC.Host(ctx)
	require.NoError(t, err)
	port, err := mysqlC.MappedPort(ctx, "3306")
	require.NoError(t, err)
	return fmt.Sprintf("root:secret123@tcp(%s:%s)/ceflow", host, port.Port())
}

// startPostgres starts a PostgreSQL container and returns its connection string.
func startPostgres(t *testing.T) string {
	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_HOST_AUTH_METHOD": "trust",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432")
	require.NoError(t, err)
	return fmt.Sprintf("host=%s port=%s user=postgres dbname=postgres sslmode=disable", host, port.Port())
}

// storeManager serves one store to core.RunReport.
type storeManager struct{ store contract.AnalysisStore }

func (m storeManager) GetAnalysisStore() contract.AnalysisStore { return m.store }

// exerciseCLI drives the binary against a database backend.
func exerciseCLI(t *testing.T, backend schema.DatabaseBackend, connStr string) {
	env := map[string]string{
		"CEFLOW_STORE_BACKEND":    string(backend),
		"CEFLOW_STORE_DB_CONNECT": connStr,
	}

	_, err := runCeflowCommand(t, env, "store", "migrate")
	require.NoError(t, err)
	_, err = runCeflowCommand(t, env, "store", "clear")
	require.NoError(t, err)

	// 1. First analysis
	out, err := runCeflowCommand(t, env, "run", "--report", writeReport(t, 0, "1.2"), "--output", "json")
	require.NoError(t, err)
	first := decodeRun(t, out)
	assert.True(t, first.IsFirstAnalysis)
	require.NotEmpty(t, first.Components)
	assert.InDelta(t, 45, measureValue(t, first.Components[0], schema.NclocKey), 0.001)

	// 2. Second analysis compares against the first
	out, err = runCeflowCommand(t, env, "run", "--report", writeReport(t, 3, "1.3"), "--output", "json", "--period1", "previous_version")
	require.NoError(t, err)
	second := decodeRun(t, out)
	assert.False(t, second.IsFirstAnalysis)
	assert.Equal(t, first.ProjectUUID, second.ProjectUUID)
	require.Len(t, second.Periods, 1)
	assert.Equal(t, first.AnalysisUUID, second.Periods[0].AnalysisUUID)

	// 3. Store status sees both analyses
	out, err = runCeflowCommand(t, env, "store", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Total Analyses: 2")
}

// exerciseStore runs the pipeline in process and reads the rows back.
func exerciseStore(t *testing.T, backend schema.DatabaseBackend, connStr string) {
	ctx := context.Background()
	require.NoError(t, iocache.ClearStore(backend, "", connStr))
	store, err := iocache.NewAnalysisStore(backend, connStr)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	cfg := &contract.Config{ReportPath: writeReport(t, 0, "2.0"), BranchType: schema.MainBranch, Workers: 2}
	result, err := core.RunReport(ctx, cfg, storeManager{store}, nil)
	require.NoError(t, err)

	project, err := store.SelectComponentByKey(ctx, result.ProjectKey)
	require.NoError(t, err)
	require.NotNil(t, project)
	assert.Equal(t, result.ProjectUUID, project.UUID)

	last, err := store.SelectLastAnalysis(ctx, project.UUID)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, result.AnalysisUUID, last.UUID)

	measure, err := store.SelectLastMeasure(ctx, project.UUID, schema.NclocKey)
	require.NoError(t, err)
	require.NotNil(t, measure)
	require.NotNil(t, measure.Value)
	assert.InDelta(t, 45, *measure.Value, 0.001)

	sources, err := store.SelectFileSources(ctx, project.UUID)
	require.NoError(t, err)
	assert.NotEmpty(t, sources)
}

// TestCeflowWithMySQL tests the ceflow CLI and store with a MySQL backend.
func TestCeflowWithMySQL(t *testing.T) {
	connStr := startMySQL(t)
	t.Run("cli", func(t *testing.T) { exerciseCLI(t, schema.MySQLBackend, connStr) })
	t.Run("store", func(t *testing.T) { exerciseStore(t, schema.MySQLBackend, connStr) })
}

// TestCeflowWithPostgres tests the ceflow CLI and store with a PostgreSQL backend.
func TestCeflowWithPostgres(t *testing.T) {
	connStr := startPostgres(t)
	t.Run("cli", func(t *testing.T) { exerciseCLI(t, schema.PostgreSQLBackend, connStr) })
	t.Run("store", func(t *testing.T) { exerciseStore(t, schema.PostgreSQLBackend, connStr) })
}
