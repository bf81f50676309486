// Package cmd defines the command-line interface for ceflow.
package cmd

import (
	"github.com/huangsam/ceflow/internal/contract"
	"github.com/huangsam/ceflow/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(storeCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the store subcommands to the parent store command
	storeCmd.AddCommand(storeStatusCmd)
	storeCmd.AddCommand(storeClearCmd)
	storeCmd.AddCommand(storeExportCmd)
	storeCmd.AddCommand(storeMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().Bool("detail", false, "Print the measures of every listed component")
	rootCmd.PersistentFlags().IntP("limit", "l", contract.DefaultResultLimit, "Number of components to display")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json or parquet")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().String("profile", "", "Enable profiling and write profiles to files with this prefix")
	rootCmd.PersistentFlags().Int("workers", contract.DefaultWorkers, "Number of concurrent workers")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug or info or warn or error")
	rootCmd.PersistentFlags().String("store-backend", string(schema.SQLiteBackend), "Store backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("store-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of runCmd to Viper
	runCmd.Flags().StringP("report", "r", "", "Path to the scanner report JSON file")
	runCmd.Flags().String("branch", "", "Branch name, required unless branch type is main")
	runCmd.Flags().String("branch-type", string(schema.MainBranch), "Branch key strategy: main or legacy or long")
	runCmd.Flags().String("period1", "", "Leak period: days, a date, a version, previous_version or previous_analysis")
	runCmd.Flags().String("period2", "", "Second differential period")
	runCmd.Flags().String("period3", "", "Third differential period")
	runCmd.Flags().String("period4", "", "Fourth differential period")
	runCmd.Flags().String("period5", "", "Fifth differential period")
	runCmd.Flags().StringSlice("period-override", nil, "Per qualifier period value (format: 'period1.TRK=30')")
	runCmd.Flags().String("quality-gate", "", "Path to a YAML quality gate definition")
	runCmd.Flags().String("spill-dir", "", "Directory where issues are spilled during the run (empty = in memory)")
	runCmd.Flags().String("notify-subscribers", "", "Comma-separated notification types: new-issues, my-new-issues, issue-changes")
	runCmd.Flags().String("notify-file", "", "File that receives notifications as JSON lines (default stdout)")
	if err := viper.BindPFlags(runCmd.Flags()); err != nil {
		contract.LogFatal("Error binding run flags", err)
	}

	// Bind all flags of storeMigrateCmd to Viper
	storeMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(storeMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding store migrate flags", err)
	}
}
