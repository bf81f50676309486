package cmd

import (
	"github.com/huangsam/ceflow/core"
	"github.com/huangsam/ceflow/internal/contract"
	"github.com/spf13/cobra"
)

// runCmd processes one scanner report.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process a scanner report and persist its analysis.",
	Long: `Run the compute engine pipeline on one scanner report.

The pipeline:
- Validates the report metadata and builds the component tree
- Resolves differential periods against the stored analysis history
- Aggregates measures from files up to the project
- Evaluates the quality gate, if one is given
- Persists components, measures, sources, tests and events
- Sends issue notifications to the configured subscribers

Running the same project again reuses component UUIDs and compares against
the previous analysis, so keep the store between runs.

Examples:
  # Process a report with the default SQLite store
  ceflow run --report build/scanner-report.json

  # Leak period of 30 days and a quality gate
  ceflow run -r report.json --period1 30 --quality-gate gate.yaml

  # Analyze a long-lived branch
  ceflow run -r report.json --branch-type long --branch release-1

  # Export the components of this run to CSV
  ceflow run -r report.json --output csv --output-file components.csv`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteAnalysis(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Cannot run analysis", err)
		}
	},
}
