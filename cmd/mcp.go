package cmd

import (
	"github.com/huangsam/ceflow/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the ceflow MCP server",
	Long: `Launch an MCP server over stdio that lets AI agents run analyses and read
measures and quality gate results from the store.

Tools:
  run_analysis     - process a scanner report
  get_measures     - list the measures of an analysis
  get_quality_gate - quality gate status of the last analysis of a project`,
	// Flags given here become the defaults of every run_analysis call
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, storeManager)
	},
}
