package cli

import (
	"errors"
	"log"

	"github.com/spf13/cobra"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run harvests on a schedule",
	Long: `Runs in the foreground and executes harvests automatically. Pending runs
created with "harvester schedule" are picked up on the next check, and a new
run is created whenever the schedule interval has passed.

Edits to the config file are applied to later runs without a restart.`,
	Args: cobra.NoArgs,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	if scheduler == nil {
		return errors.New("scheduler not configured")
	}

	ctx := cmd.Context()

	if configWatcher != nil && onConfigChange != nil {
		go func() {
			if err := configWatcher.Watch(ctx, onConfigChange); err != nil {
				log.Printf("daemon: config watch: %v", err)
			}
		}()
	}

	cmd.Printf("Harvester daemon started (interval %s). Press Ctrl+C to stop.\n", scheduleInterval)
	err := scheduler.Start(ctx)
	if ctx.Err() != nil {
		// Interrupted by signal.
		cmd.Println("Harvester daemon stopped.")
		return nil
	}
	return err
}
