package cmd

import (
	"fmt"

	"github.com/dbtcov/dbtcov/internal/config"
	"github.com/spf13/cobra"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default .dbtcov/config.yaml",
	Long: `Write the default dbtcov configuration to .dbtcov/config.yaml in the
project directory. Fails if a config file already exists.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	path, err := config.SaveDefault(projectDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
	return nil
}
