package cmd

import (
	"fmt"

	"github.com/dbtcov/dbtcov/internal/coverage"
	"github.com/dbtcov/dbtcov/internal/gitio"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// compareGitCmd represents the compare-git command
var compareGitCmd = &cobra.Command{
	Use:   "compare-git <commit>",
	Short: "Compare against the report committed at a git revision",
	Long: `Compare the current coverage report with the version tracked in git.

Retrieves the coverage report file from the given commit (the report is
assumed to be committed to the repository) and diffs the current report
against it.

Examples:
  dbtcov compare-git HEAD~10
  dbtcov compare-git v1.4.0 --cov-report reports/coverage.json --fail`,
	Args: cobra.ExactArgs(1),
	RunE: runCompareGit,
}

var (
	compareGitReportPath string
	compareGitFail       bool
)

func init() {
	rootCmd.AddCommand(compareGitCmd)

	compareGitCmd.Flags().StringVar(&compareGitReportPath, "cov-report", "coverage.json", "Path to the current coverage report")
	compareGitCmd.Flags().BoolVar(&compareGitFail, "fail", false, "Exit non-zero when coverage decreased")
}

func runCompareGit(cmd *cobra.Command, args []string) error {
	ref := args[0]

	baselineData, err := gitio.ShowFile(projectDir, ref, compareGitReportPath)
	if err != nil {
		return err
	}
	baseline, err := coverage.ReadReport(baselineData)
	if err != nil {
		return fmt.Errorf("%s at %s: %w", compareGitReportPath, ref, err)
	}

	current, err := readReportFile(compareGitReportPath)
	if err != nil {
		return err
	}

	diff, err := coverage.Compare(current, baseline)
	if err != nil {
		return err
	}
	printDiff(cmd, diff)

	if compareGitFail {
		if current.Coverage < baseline.Coverage {
			return fmt.Errorf("%w: coverage decreased from %.2f%% to %.2f%% since %s",
				coverage.ErrCoverageRegressed, baseline.Coverage*100, current.Coverage*100, ref)
		}
		color.Green("OK: no coverage regression since %s", ref)
	}
	return nil
}
