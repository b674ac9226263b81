// Command harvester keeps a local store of GitHub metadata fresh.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/custodia-labs/harvester/internal/adapters/driven/config/file"
	"github.com/custodia-labs/harvester/internal/adapters/driven/markdown"
	"github.com/custodia-labs/harvester/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/harvester/internal/adapters/driving/cli"
	"github.com/custodia-labs/harvester/internal/connectors/github"
	"github.com/custodia-labs/harvester/internal/core/services"
	normaliser "github.com/custodia-labs/harvester/internal/normalisers/github"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// envConfigDir overrides the config directory (default ~/.harvester).
const envConfigDir = "HARVESTER_CONFIG_DIR"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	file.LoadEnv()

	configStore, err := file.NewConfigStore(os.Getenv(envConfigDir))
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}
	settings, err := file.LoadSettings(configStore, os.Getenv)
	if err != nil {
		return err
	}

	store, err := sqlite.NewStore(settings.DataDir)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	clock := services.SystemClock{}
	entities := store.EntityStore()
	runLog := services.NewRunLog(store.LogStore(), clock)

	client, err := github.NewClient(github.Config{
		Token:             settings.GitHub.Token,
		BaseURL:           settings.GitHub.BaseURL,
		GraphURL:          settings.GitHub.GraphURL,
		UserAgent:         github.DefaultUserAgent(version),
		RequestsPerSecond: settings.GitHub.RequestsPerSecond,
		MinBuffer:         settings.GitHub.MinRateBuffer,
	}, runLog)
	if err != nil {
		return fmt.Errorf("creating GitHub client: %w", err)
	}

	runs := services.NewRunScheduler(store.RunStore(), runLog, clock)
	policy := services.NewStalenessPolicy(entities, clock)
	harvester := services.NewHarvester(
		settings.Harvest, runs, policy, client, normaliser.New(),
		entities, markdown.New(), runLog, clock,
	)
	autoRunner := services.NewAutoRunner(settings.Schedule, runs, harvester)

	cli.SetVersion(version)
	cli.SetServices(cli.Services{
		Runs:         runs,
		Harvester:    harvester,
		Scheduler:    autoRunner,
		Logs:         runLog,
		Config:       file.NewEditor(configStore, os.Getenv),
		Interval:     settings.Schedule.Interval,
		LogRetention: settings.LogRetention,
		Watcher:      configStore,
		OnConfigChange: func() {
			updated, err := file.LoadSettings(configStore, os.Getenv)
			if err != nil {
				log.Printf("config: ignoring change: %v", err)
				return
			}
			harvester.SetConfig(updated.Harvest)
			autoRunner.SetInterval(updated.Schedule.Interval)
			log.Printf("config: reloaded %s", configStore.Path())
		},
	})

	return cli.Execute()
}
