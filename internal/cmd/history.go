package cmd

import (
	"fmt"
	"time"

	"github.com/dbtcov/dbtcov/internal/config"
	"github.com/dbtcov/dbtcov/internal/store"
	"github.com/spf13/cobra"
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded coverage snapshots",
	Long: `List coverage snapshots recorded by 'dbtcov compute'.

Snapshots are stored in .dbtcov/history.db, newest first, one per computed
report. Use --cov-type to restrict the listing to one coverage dimension.

Examples:
  dbtcov history
  dbtcov history --cov-type doc --limit 5`,
	RunE: runHistory,
}

var (
	historyCovType string
	historyLimit   int
)

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVar(&historyCovType, "cov-type", "", "Filter by coverage type (doc|test)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum snapshots to list (0 = all)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	covDir, err := config.FindConfigDir(projectDir)
	if err != nil {
		return fmt.Errorf("no snapshot history: run 'dbtcov compute' first")
	}

	st, err := store.Open(covDir)
	if err != nil {
		return err
	}
	defer st.Close()

	snaps, err := st.ListSnapshots(historyCovType, historyLimit)
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No snapshots recorded.")
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%4s  %-4s  %-10s  %11s  %6s  %s\n",
		"ID", "TYPE", "REF", "COVERED", "PCT", "RECORDED")
	for _, snap := range snaps {
		ref := snap.GitRef
		if ref == "" {
			ref = "-"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%4d  %-4s  %-10s  %5d/%-5d  %5.1f%%  %s\n",
			snap.ID, snap.CovType, ref, snap.Covered, snap.Total,
			snap.Coverage*100, snap.CreatedAt.Format(time.RFC3339))
	}
	return nil
}
