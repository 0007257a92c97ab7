// Package cmd contains all CLI commands for dbtcov.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version is the current version of dbtcov
	Version = "0.1.0"

	// Global flags
	verbose      bool
	projectDir   string
	artifactsDir string
	outputFormat string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dbtcov",
	Short: "Documentation and test coverage for dbt projects",
	Long: `dbtcov computes documentation and test coverage for dbt-managed projects.

It reads the manifest.json and catalog.json artifacts produced by dbt, counts
which columns are documented (or tested) per table, and aggregates the result
into a catalog-level coverage report. Reports are persisted as JSON snapshots
that can be diffed to catch newly introduced coverage gaps in CI.

Main capabilities:
  - Compute doc or test coverage over the project catalog
  - Render reports as fixed-width text, Markdown, or JSON
  - Compare two snapshots and list exactly which columns regressed
  - Fetch a baseline snapshot straight from a git commit
  - Keep a local history of snapshots for trend queries
  - Serve coverage tools over MCP for AI agents

Examples:
  dbtcov compute doc                      # doc coverage, table output
  dbtcov compute test --fail-under 0.8    # enforce a threshold in CI
  dbtcov compare coverage.json old.json   # diff two snapshot files
  dbtcov compare-git HEAD~10              # diff against a committed snapshot
  dbtcov history --cov-type doc           # list recorded snapshots

See 'dbtcov <command> --help' for command-specific options.`,
	Version: Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags available to all commands
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&projectDir, "project-dir", ".", "dbt project directory")
	rootCmd.PersistentFlags().StringVar(&artifactsDir, "artifacts-dir", "", "Custom directory holding manifest.json and catalog.json (default: <project-dir>/target)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "", "Output format (table|markdown|json)")
}

// logVerbose writes progress output to stderr when --verbose is set.
func logVerbose(format string, args ...any) {
	if verbose {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}
