package cmd

import (
	"fmt"
	"os"

	"github.com/dbtcov/dbtcov/internal/config"
	"github.com/dbtcov/dbtcov/internal/coverage"
	"github.com/dbtcov/dbtcov/internal/store"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// compareCmd represents the compare command
var compareCmd = &cobra.Command{
	Use:   "compare <report> [baseline]",
	Short: "Compare two coverage reports",
	Long: `Compare a coverage report against a baseline and show what regressed.

Prints the before/after summary table followed by the new-misses listing,
which names every table and column that newly lost coverage. The baseline is
a second report file, or the most recent snapshot from the local history when
--latest is given.

Examples:
  dbtcov compare coverage.json baseline.json
  dbtcov compare coverage.json --latest
  dbtcov compare coverage.json baseline.json --fail`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runCompare,
}

var (
	compareLatest bool
	compareFail   bool
)

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().BoolVar(&compareLatest, "latest", false, "Use the most recent history snapshot as the baseline")
	compareCmd.Flags().BoolVar(&compareFail, "fail", false, "Exit non-zero when coverage decreased")
}

func runCompare(cmd *cobra.Command, args []string) error {
	current, err := readReportFile(args[0])
	if err != nil {
		return err
	}

	var baseline *coverage.Report
	switch {
	case compareLatest:
		baseline, err = latestBaseline(current.CovType)
	case len(args) == 2:
		baseline, err = readReportFile(args[1])
	default:
		return fmt.Errorf("a baseline report is required: pass a second path or --latest")
	}
	if err != nil {
		return err
	}

	diff, err := coverage.Compare(current, baseline)
	if err != nil {
		return err
	}
	printDiff(cmd, diff)

	cfg, err := config.Load(projectDir)
	if err != nil {
		return err
	}
	if compareFail || cfg.Checks.FailOnRegression {
		if current.Coverage < baseline.Coverage {
			return fmt.Errorf("%w: coverage decreased from %.2f%% to %.2f%%",
				coverage.ErrCoverageRegressed, baseline.Coverage*100, current.Coverage*100)
		}
		color.Green("OK: no coverage regression")
	}
	return nil
}

// latestBaseline loads the newest history snapshot for the coverage type.
func latestBaseline(covType coverage.Type) (*coverage.Report, error) {
	covDir, err := config.FindConfigDir(projectDir)
	if err != nil {
		return nil, fmt.Errorf("no snapshot history: run 'dbtcov compute' first")
	}

	st, err := store.Open(covDir)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	snap, err := st.LatestSnapshot(covType.String())
	if err != nil {
		return nil, err
	}
	return coverage.ReadReport(snap.Document)
}

// readReportFile reads and deserializes a persisted coverage report.
func readReportFile(path string) (*coverage.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read coverage report: %w", err)
	}
	report, err := coverage.ReadReport(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return report, nil
}

// printDiff writes the summary table and the new-misses listing.
func printDiff(cmd *cobra.Command, diff *coverage.Diff) {
	if summary, err := diff.Summary(); err == nil {
		fmt.Fprintln(cmd.OutOrStdout(), summary)
	}
	fmt.Fprintln(cmd.OutOrStdout(), diff.NewMissesSummary())
}
