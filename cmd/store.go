package cmd

import (
	"fmt"
	"strings"

	"github.com/huangsam/ceflow/internal/contract"
	"github.com/huangsam/ceflow/internal/iocache"
	"github.com/huangsam/ceflow/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// loadStoreConfig reads the store backend settings without the full shared setup.
func loadStoreConfig() error {
	if err := loadConfigFile(); err != nil {
		return err
	}

	backend := schema.DatabaseBackend(strings.ToLower(viper.GetString("store-backend")))
	if backend == "" {
		backend = schema.NoneBackend
	}
	if _, ok := schema.ValidDatabaseBackends[backend]; !ok {
		return fmt.Errorf("invalid store backend '%s'. must be sqlite, mysql, postgresql, none", backend)
	}
	connStr := viper.GetString("store-db-connect")
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return err
	}

	cfg.StoreBackend = backend
	cfg.StoreDBConnect = connStr
	cfg.OutputFile = viper.GetString("output-file")
	return nil
}

// storeSetup opens the store for commands that read from it.
func storeSetup(_ *cobra.Command, _ []string) error {
	if err := loadStoreConfig(); err != nil {
		return err
	}
	if err := iocache.InitStore(cfg.StoreBackend, cfg.StoreDBConnect); err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	return nil
}

// storeOfflineSetup loads the store settings but leaves the store closed,
// so that migrations can run on a fresh database and clearing can drop it.
func storeOfflineSetup(_ *cobra.Command, _ []string) error {
	return loadStoreConfig()
}

// storeCmd focused on analysis store management.
//
// Note: Store subcommands use minimal initialization instead of the full
// sharedSetup used by run. No report or gate settings are needed to inspect a store.
var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the analysis store",
	Long: `Manage the store that keeps components, analyses and measures between runs.

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (disabled)

Subcommands:
  status  - Show store statistics
  export  - Export analyses and measures to Parquet
  clear   - Remove all stored data
  migrate - Run database schema migrations

Examples:
  # Check store status
  ceflow store status

  # Export for analysis in pandas/DuckDB
  ceflow store export --output-file ceflow-data`,
}

// storeStatusCmd shows store status.
var storeStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display store statistics and connection details",
	Long: `Show detailed information about the analysis store.

Displays:
- Backend type and connection status
- Number of projects, components, analyses and measures
- Last and oldest analysis timestamps
- Row counts per table

Examples:
  ceflow store status
  ceflow store status --store-backend postgresql --store-db-connect "host=localhost dbname=ceflow"`,
	PreRunE: storeSetup,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := storeManager.GetAnalysisStore().GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get store status", err)
		}
		iocache.PrintStoreStatus(status)
	},
}

// storeClearCmd clears the store.
var storeClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all stored analyses",
	Long: `Delete every component, analysis, measure and source kept by the store.

WARNING: This action cannot be undone. Consider exporting data first.
The next run of any project is treated as its first analysis.

Examples:
  # Export before clearing
  ceflow store export --output-file backup
  ceflow store clear`,
	PreRunE: storeOfflineSetup,
	Run: func(_ *cobra.Command, _ []string) {
		dbFilePath := ""
		if cfg.StoreBackend == schema.SQLiteBackend {
			dbFilePath = cfg.StoreDBConnect
		}
		if err := iocache.ClearStore(cfg.StoreBackend, dbFilePath, cfg.StoreDBConnect); err != nil {
			contract.LogFatal("Failed to clear store", err)
		}
		fmt.Println("Store cleared successfully.")
	},
}

// storeExportCmd exports stored data to Parquet files.
var storeExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export analyses and measures to Parquet",
	Long: `Export stored analyses and measures to Parquet for use with analytics tools.

Requires: --output-file parameter, used as the prefix of two files:
<prefix>.analyses.parquet and <prefix>.measures.parquet

Examples:
  ceflow store export --output-file ceflow-data
  duckdb -c "SELECT * FROM read_parquet('ceflow-data.measures.parquet') LIMIT 10"`,
	PreRunE: storeSetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ExecuteStoreExport(rootCtx, storeManager.GetAnalysisStore(), cfg.OutputFile); err != nil {
			contract.LogFatal("Failed to export store data", err)
		}
	},
}

// storeMigrateCmd runs database migrations for the store.
var storeMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions of the analysis store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  ceflow store migrate

  # Migrate to specific version
  ceflow store migrate --target-version 1

  # Roll back every migration
  ceflow store migrate --target-version 0`,
	PreRunE: storeOfflineSetup,
	Run: func(_ *cobra.Command, _ []string) {
		msg, err := iocache.MigrateStore(cfg.StoreBackend, cfg.StoreDBConnect, viper.GetInt("target-version"))
		if err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
		fmt.Println(msg)
	},
}
