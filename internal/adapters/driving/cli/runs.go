package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/harvester/internal/core/domain"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Schedule a harvest run",
	Long: `Creates a pending run for the daemon to execute.

With --if-due, a run is only created when no run is active and the schedule
interval has passed since the last completed run.`,
	Args: cobra.NoArgs,
	RunE: runSchedule,
}

var currentCmd = &cobra.Command{
	Use:   "current",
	Short: "Show the active run",
	Args:  cobra.NoArgs,
	RunE:  runCurrent,
}

var stopCmd = &cobra.Command{
	Use:   "stop [run-id]",
	Short: "Stop a run",
	Long: `Marks a run as stopped. A run executing elsewhere ends at its next
checkpoint.`,
	Args: cobra.ExactArgs(1),
	RunE: runStop,
}

var statusCmd = &cobra.Command{
	Use:   "status [run-id]",
	Short: "Show a run with its log",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent runs",
	Args:  cobra.NoArgs,
	RunE:  runRuns,
}

func init() {
	scheduleCmd.Flags().Bool("if-due", false, "only schedule when a run is due")
	statusCmd.Flags().IntP("logs", "n", 20, "number of log entries to show")
	runsCmd.Flags().IntP("limit", "n", 20, "maximum number of runs to list")

	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(currentCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(runsCmd)
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	if runService == nil {
		return errors.New("run service not configured")
	}

	ifDue, err := cmd.Flags().GetBool("if-due")
	if err != nil {
		return fmt.Errorf("getting if-due flag: %w", err)
	}

	if ifDue {
		id, created, err := runService.ScheduleIfNeeded(cmd.Context(), domain.TriggerManual, scheduleInterval)
		if err != nil {
			return fmt.Errorf("failed to schedule run: %w", err)
		}
		if !created {
			cmd.Println("No run is due.")
			return nil
		}
		cmd.Printf("Scheduled run %s\n", id)
		return nil
	}

	id, err := runService.Schedule(cmd.Context(), domain.TriggerManual)
	if err != nil {
		return fmt.Errorf("failed to schedule run: %w", err)
	}
	cmd.Printf("Scheduled run %s\n", id)
	return nil
}

func runCurrent(cmd *cobra.Command, _ []string) error {
	if runService == nil {
		return errors.New("run service not configured")
	}

	run, err := runService.Current(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get current run: %w", err)
	}
	if run == nil {
		cmd.Println("No active run.")
		return nil
	}

	printRun(cmd, run)
	if harvestService != nil {
		if stats, ok := harvestService.Progress(run.ID); ok {
			cmd.Printf("  Progress:  %d harvested, %d errors\n", stats.Processed(), stats.Errors)
		}
	}
	return nil
}

func runStop(cmd *cobra.Command, args []string) error {
	if runService == nil {
		return errors.New("run service not configured")
	}

	runID := args[0]
	stopped, err := runService.Stop(cmd.Context(), runID)
	if err != nil {
		return fmt.Errorf("failed to stop run: %w", err)
	}
	if !stopped {
		return fmt.Errorf("run %s: %w", runID, domain.ErrNotFound)
	}

	cmd.Printf("Run %s stopped.\n", runID)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	if runService == nil {
		return errors.New("run service not configured")
	}

	limit, err := cmd.Flags().GetInt("logs")
	if err != nil {
		return fmt.Errorf("getting logs flag: %w", err)
	}

	report, err := runService.Status(cmd.Context(), args[0], limit)
	if err != nil {
		return fmt.Errorf("failed to get run status: %w", err)
	}

	p := newPrinter(cmd.OutOrStdout())
	printRun(cmd, &report.Run)
	if report.Stats != nil {
		cmd.Println()
		cmd.Println(report.Stats.Summary())
	}

	if len(report.Logs) == 0 {
		return nil
	}
	cmd.Println()
	cmd.Println(p.Title("Log"))
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	// Oldest first reads naturally.
	for i := len(report.Logs) - 1; i >= 0; i-- {
		entry := report.Logs[i]
		line := entry.Message
		if entry.Subject != "" {
			line += " [" + entry.Subject + "]"
		}
		if entry.Detail != "" && entry.Level == domain.LevelError {
			line += ": " + entry.Detail
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\n",
			p.Muted(entry.CreatedAt.Local().Format(time.DateTime)), p.Level(entry.Level), line)
	}
	return w.Flush()
}

func runRuns(cmd *cobra.Command, _ []string) error {
	if runService == nil {
		return errors.New("run service not configured")
	}

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return fmt.Errorf("getting limit flag: %w", err)
	}

	runs, err := runService.List(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		cmd.Println("No runs yet.")
		return nil
	}

	p := newPrinter(cmd.OutOrStdout())
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTRIGGER\tSTATUS\tSCHEDULED\tCOMPLETED")
	for i := range runs {
		run := &runs[i]
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			run.ID, run.Trigger, p.Status(run.Status),
			formatTime(run.ScheduledAt), formatTime(run.CompletedAt))
	}
	return w.Flush()
}

// printRun prints the run header shared by current and status.
func printRun(cmd *cobra.Command, run *domain.Run) {
	p := newPrinter(cmd.OutOrStdout())
	cmd.Printf("%s %s\n", p.Title("Run"), run.ID)
	cmd.Printf("  Status:    %s\n", p.Status(run.Status))
	cmd.Printf("  Trigger:   %s\n", run.Trigger)
	cmd.Printf("  Scheduled: %s\n", formatTime(run.ScheduledAt))
	if !run.StartedAt.IsZero() {
		cmd.Printf("  Started:   %s\n", formatTime(run.StartedAt))
	}
	if !run.CompletedAt.IsZero() {
		cmd.Printf("  Completed: %s\n", formatTime(run.CompletedAt))
	}
}

// formatTime renders t in local time, or "-" for the zero time.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}
