package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Run log maintenance",
}

var logsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old log entries",
	Long: `Deletes run log entries older than the retention period. The default
comes from logs.retention in the config file.`,
	Args: cobra.NoArgs,
	RunE: runLogsPrune,
}

func init() {
	logsPruneCmd.Flags().Duration("older-than", 0, "retention period (default from config)")
	logsCmd.AddCommand(logsPruneCmd)
	rootCmd.AddCommand(logsCmd)
}

func runLogsPrune(cmd *cobra.Command, _ []string) error {
	if logPruner == nil {
		return errors.New("log service not configured")
	}

	olderThan, err := cmd.Flags().GetDuration("older-than")
	if err != nil {
		return fmt.Errorf("getting older-than flag: %w", err)
	}
	if olderThan <= 0 {
		olderThan = logRetention
	}

	n, err := logPruner.Prune(cmd.Context(), olderThan)
	if err != nil {
		return fmt.Errorf("failed to prune logs: %w", err)
	}

	cmd.Printf("Deleted %d log entries older than %s.\n", n, olderThan)
	return nil
}
