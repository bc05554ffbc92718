// Package main provides the entry point for the testevo CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/testevo/cmd/testevo/commands"
	"github.com/Sumatoshi-tech/testevo/pkg/version"
)

var (
	verbose bool
	quiet   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "testevo",
		Short: "Testevo - test quality evolution metrics for Python repositories",
		Long: `Testevo scans a git repository's history and reports how its Python
test suite evolved over time.

Commands:
  run       Scan a repository and emit the metrics report
  render    Regenerate the HTML chart page from a saved report
  validate  Check a report document against the schema
  mcp       Serve the analyzers over the Model Context Protocol`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress output")

	// Add commands.
	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewRenderCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewMCPCommand())
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "testevo %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
