package cmd

import (
	"time"

	"github.com/dbtcov/dbtcov/internal/mcp"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve coverage tools over MCP",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This exposes dbtcov to AI agents as tools instead of CLI commands:
  dbtcov_compute  Compute a fresh coverage report
  dbtcov_compare  Diff fresh coverage against a history snapshot
  dbtcov_history  List recorded snapshots

Examples:
  dbtcov serve
  dbtcov serve --tools dbtcov_compute,dbtcov_history --timeout 10m`,
	RunE: runServe,
}

var (
	serveTools   []string
	serveTimeout time.Duration
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringSliceVar(&serveTools, "tools", nil, "Tools to expose (default: all)")
	serveCmd.Flags().DurationVar(&serveTimeout, "timeout", 0, "Exit after this much inactivity (0 = never)")
}

func runServe(cmd *cobra.Command, args []string) error {
	srv, err := mcp.New(mcp.Config{
		ProjectDir: projectDir,
		Tools:      serveTools,
		Timeout:    serveTimeout,
	})
	if err != nil {
		return err
	}
	defer srv.Close()

	logVerbose("Serving MCP tools: %v", srv.ListTools())
	return srv.ServeStdio()
}
