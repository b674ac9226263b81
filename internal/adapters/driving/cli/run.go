package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/harvester/internal/core/domain"
	"github.com/custodia-labs/harvester/internal/core/ports/driving"
	"github.com/custodia-labs/harvester/internal/logger"
)

// progressInterval is how often "run" polls harvest progress.
var progressInterval = 500 * time.Millisecond

var runCmd = &cobra.Command{
	Use:   "run [run-id]",
	Short: "Execute a harvest run",
	Long: `Executes a harvest run in the foreground.

With a run ID, the pending run with that ID is executed. Without one, a new
run is created and executed immediately. Interrupting the command ends the
run as stopped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	if runService == nil || harvestService == nil {
		return errors.New("harvest service not configured")
	}

	ctx := cmd.Context()

	var runID string
	if len(args) > 0 {
		runID = args[0]
	} else {
		id, err := runService.Schedule(ctx, domain.TriggerCLI)
		if err != nil {
			return fmt.Errorf("failed to create run: %w", err)
		}
		runID = id
	}

	cmd.Printf("Executing run %s...\n", runID)
	logger.Debug("run %s: executing", runID)

	stats, err := executeWithProgress(ctx, cmd, harvestService, runID)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	run, getErr := runService.Get(context.WithoutCancel(ctx), runID)
	if getErr == nil {
		p := newPrinter(cmd.OutOrStdout())
		cmd.Printf("Run %s %s.\n", runID, p.Status(run.Status))
	}
	if stats != nil {
		cmd.Println(stats.Summary())
	}
	return nil
}

// executeWithProgress runs the harvest while displaying progress updates.
func executeWithProgress(
	ctx context.Context,
	cmd *cobra.Command,
	harvester driving.Harvester,
	runID string,
) (*domain.RunStats, error) {
	type result struct {
		stats *domain.RunStats
		err   error
	}
	done := make(chan result, 1)
	go func() {
		stats, err := harvester.Execute(ctx, runID)
		done <- result{stats: stats, err: err}
	}()

	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	lastCount := 0
	for {
		select {
		case r := <-done:
			if lastCount > 0 {
				cmd.Println()
			}
			return r.stats, r.err
		case <-ticker.C:
			stats, ok := harvester.Progress(runID)
			if ok && stats.Processed() > lastCount {
				cmd.Printf("\rProcessing... %d harvested (%d errors)", stats.Processed(), stats.Errors)
				lastCount = stats.Processed()
			}
		}
	}
}
