package cmd

import (
	"fmt"
	"os"

	"github.com/dbtcov/dbtcov/internal/artifacts"
	"github.com/dbtcov/dbtcov/internal/config"
	"github.com/dbtcov/dbtcov/internal/coverage"
	"github.com/dbtcov/dbtcov/internal/gitio"
	"github.com/dbtcov/dbtcov/internal/output"
	"github.com/dbtcov/dbtcov/internal/store"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// computeCmd represents the compute command
var computeCmd = &cobra.Command{
	Use:   "compute <doc|test>",
	Short: "Compute coverage for a dbt project",
	Long: `Compute documentation or test coverage from dbt run artifacts.

Reads manifest.json and catalog.json from <project-dir>/target (or
--artifacts-dir), builds the coverage report, prints it in the chosen format
and writes the JSON snapshot to --cov-report. Each computed report is also
recorded in the local snapshot history unless --no-history is given.

Examples:
  dbt docs generate && dbtcov compute doc
  dbtcov compute test --model-path-filter models/marts/ --fail-under 0.9
  dbtcov compute doc --fail-compare baseline.json`,
	Args: cobra.ExactArgs(1),
	RunE: runCompute,
}

var (
	computeReportPath  string
	computeFailUnder   float64
	computeFailCompare string
	computeFilters     []string
	computeNoHistory   bool
)

func init() {
	rootCmd.AddCommand(computeCmd)

	computeCmd.Flags().StringVar(&computeReportPath, "cov-report", "", "Output coverage report path (default: coverage.json)")
	computeCmd.Flags().Float64Var(&computeFailUnder, "fail-under", 0, "Fail if coverage is below this fraction (0-1)")
	computeCmd.Flags().StringVar(&computeFailCompare, "fail-compare", "", "Fail if coverage decreased against this baseline report")
	computeCmd.Flags().StringSliceVar(&computeFilters, "model-path-filter", nil, "Keep only tables whose model path starts with one of these prefixes")
	computeCmd.Flags().BoolVar(&computeNoHistory, "no-history", false, "Skip recording the snapshot in .dbtcov/history.db")
}

func runCompute(cmd *cobra.Command, args []string) error {
	covType, err := coverage.ParseType(args[0])
	if err != nil {
		return err
	}

	cfg, err := config.Load(projectDir)
	if err != nil {
		return err
	}

	artDir := artifactsDir
	if artDir == "" {
		artDir = cfg.Project.ArtifactsDir
	}
	reportPath := computeReportPath
	if reportPath == "" {
		reportPath = cfg.Report.Path
	}
	formatStr := outputFormat
	if formatStr == "" {
		formatStr = cfg.Report.Format
	}
	filters := computeFilters
	if len(filters) == 0 {
		filters = cfg.Project.ModelPathFilter
	}
	failUnder := computeFailUnder
	if !cmd.Flags().Changed("fail-under") {
		failUnder = cfg.Checks.FailUnder
	}

	format, err := output.ParseFormat(formatStr)
	if err != nil {
		return err
	}

	report, err := buildReport(projectDir, artDir, filters, covType)
	if err != nil {
		return err
	}

	if err := format.Render(cmd.OutOrStdout(), report); err != nil {
		return err
	}

	data, err := report.ToJSON()
	if err != nil {
		return err
	}
	if err := os.WriteFile(reportPath, data, 0644); err != nil {
		return fmt.Errorf("write coverage report: %w", err)
	}
	logVerbose("Wrote coverage report to %s", reportPath)

	if !computeNoHistory {
		if err := recordSnapshot(report, data); err != nil {
			return err
		}
	}

	if failUnder > 0 {
		if err := coverage.FailUnder(report, failUnder); err != nil {
			return err
		}
		color.Green("OK: coverage %.1f%% meets the required %.1f%%", report.Coverage*100, failUnder*100)
	}

	if computeFailCompare != "" {
		baseline, err := readReportFile(computeFailCompare)
		if err != nil {
			return err
		}
		diff, err := coverage.FailCompare(report, baseline)
		if diff != nil {
			printDiff(cmd, diff)
		}
		if err != nil {
			return err
		}
		color.Green("OK: no coverage regression against %s", computeFailCompare)
	}

	return nil
}

// buildReport loads the dbt artifacts, applies path filtering and builds the
// catalog-level report. An empty catalog after filtering is rejected here,
// before report construction.
func buildReport(projectDir, artDir string, filters []string, covType coverage.Type) (*coverage.Report, error) {
	manifest, err := artifacts.LoadManifest(projectDir, artDir)
	if err != nil {
		return nil, err
	}

	catalog, err := artifacts.LoadCatalog(projectDir, artDir, manifest)
	if err != nil {
		return nil, err
	}
	logVerbose("Loaded %d tables from catalog", len(catalog.Tables))

	if len(filters) > 0 {
		catalog = catalog.Filter(filters)
		logVerbose("Filtered tables count: %d", len(catalog.Tables))
		if len(catalog.Tables) == 0 {
			return nil, fmt.Errorf("no tables after filtering, check --model-path-filter %v", filters)
		}
	}

	return coverage.FromCatalog(catalog, covType)
}

// recordSnapshot appends the computed report to the local history database.
func recordSnapshot(report *coverage.Report, document []byte) error {
	covDir, err := config.EnsureConfigDir(projectDir)
	if err != nil {
		return err
	}

	st, err := store.Open(covDir)
	if err != nil {
		return err
	}
	defer st.Close()

	id, err := st.SaveSnapshot(&store.Snapshot{
		CovType:  report.CovType.String(),
		GitRef:   gitio.Head(projectDir),
		Covered:  len(report.Covered),
		Total:    len(report.Total),
		Coverage: report.Coverage,
		Document: document,
	})
	if err != nil {
		return err
	}
	logVerbose("Recorded snapshot %d in %s", id, st.Path())
	return nil
}
