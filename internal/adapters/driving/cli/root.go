// Package cli provides the harvester command-line interface.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/harvester/internal/core/ports/driving"
	"github.com/custodia-labs/harvester/internal/logger"
)

// LogPruner deletes old run log entries.
type LogPruner interface {
	Prune(ctx context.Context, olderThan time.Duration) (int, error)
}

// ConfigWatcher reports configuration file changes.
type ConfigWatcher interface {
	Watch(ctx context.Context, onChange func()) error
}

// ConfigEditor reads and writes single config keys.
type ConfigEditor interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Path() string
}

// Services holds the dependencies injected by the composition root.
type Services struct {
	Runs      driving.RunControl
	Harvester driving.Harvester
	Scheduler driving.Scheduler
	Logs      LogPruner
	Config    ConfigEditor

	// Interval is the automatic schedule interval.
	Interval time.Duration

	// LogRetention is the default age for "logs prune".
	LogRetention time.Duration

	// Watcher and OnConfigChange let the daemon apply config edits.
	// Both are optional.
	Watcher        ConfigWatcher
	OnConfigChange func()
}

var (
	version = "dev"
	verbose bool

	runService     driving.RunControl
	harvestService driving.Harvester
	scheduler      driving.Scheduler
	logPruner      LogPruner
	configEditor   ConfigEditor
	configWatcher  ConfigWatcher
	onConfigChange func()

	scheduleInterval = 48 * time.Hour
	logRetention     = 30 * 24 * time.Hour
)

var rootCmd = &cobra.Command{
	Use:   "harvester",
	Short: "Harvest GitHub repository, organization and user metadata",
	Long: `harvester keeps a local store of GitHub repositories, organizations and
users fresh. Each run walks the stale backlog of every kind, fetches details
and READMEs, and records what happened in a run log.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug output")
}

// SetVersion sets the version reported by "harvester version".
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// SetServices injects the core services used by the commands.
func SetServices(s Services) {
	runService = s.Runs
	harvestService = s.Harvester
	scheduler = s.Scheduler
	logPruner = s.Logs
	configEditor = s.Config
	configWatcher = s.Watcher
	onConfigChange = s.OnConfigChange
	if s.Interval > 0 {
		scheduleInterval = s.Interval
	}
	if s.LogRetention > 0 {
		logRetention = s.LogRetention
	}
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command's
// context so a running harvest ends as interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}
