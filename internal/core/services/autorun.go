package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/custodia-labs/harvester/internal/core/domain"
	"github.com/custodia-labs/harvester/internal/core/ports/driving"
)

// Ensure AutoRunner implements the interface.
var _ driving.Scheduler = (*AutoRunner)(nil)

// AutoRunner executes harvests on a schedule. On each tick it runs the
// current pending run, or creates an automatic run when one is due.
type AutoRunner struct {
	config    domain.ScheduleConfig
	runs      driving.RunControl
	harvester driving.Harvester

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	cron    *cron.Cron
}

// NewAutoRunner creates an automatic runner.
func NewAutoRunner(
	config domain.ScheduleConfig,
	runs driving.RunControl,
	harvester driving.Harvester,
) *AutoRunner {
	return &AutoRunner{
		config:    config,
		runs:      runs,
		harvester: harvester,
	}
}

// Start begins the schedule loop. This method blocks until Stop is called
// or ctx is cancelled.
func (a *AutoRunner) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return nil // Already running
	}
	cronLogger := cron.PrintfLogger(log.New(os.Stderr, "autorun: ", log.LstdFlags))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)))
	if _, err := c.AddFunc(a.config.CheckSpec, func() { a.tick(ctx) }); err != nil {
		a.mu.Unlock()
		return fmt.Errorf("add schedule %q: %w", a.config.CheckSpec, err)
	}
	a.running = true
	a.stopCh = make(chan struct{})
	a.cron = c
	stopCh := a.stopCh
	a.mu.Unlock()

	// Check for a due run immediately on startup
	a.tick(ctx)

	a.mu.Lock()
	if a.running {
		c.Start()
	}
	a.mu.Unlock()

	select {
	case <-ctx.Done():
		_ = a.Stop()
		return ctx.Err()
	case <-stopCh:
		return nil
	}
}

// Stop gracefully shuts down the loop and waits for an in-flight run.
func (a *AutoRunner) Stop() error {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return nil
	}
	a.running = false
	close(a.stopCh)
	c := a.cron
	a.mu.Unlock()

	<-c.Stop().Done()
	return nil
}

// SetInterval changes the minimum time between automatic runs.
// A new check spec only applies after a restart.
func (a *AutoRunner) SetInterval(interval time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.config.Interval = interval
}

func (a *AutoRunner) interval() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.config.Interval
}

func (a *AutoRunner) tick(ctx context.Context) {
	if _, err := a.Tick(ctx); err != nil {
		log.Printf("autorun: %v", err)
	}
}

// Tick performs one scheduling check and executes at most one run.
// It returns the id of the executed run, or "" if nothing was due.
func (a *AutoRunner) Tick(ctx context.Context) (string, error) {
	current, err := a.runs.Current(ctx)
	if err != nil {
		return "", err
	}

	var runID string
	switch {
	case current != nil && current.Status == domain.RunPending:
		runID = current.ID
	case current != nil:
		// A run is already executing, here or in another process.
		return "", nil
	default:
		id, created, err := a.runs.ScheduleIfNeeded(ctx, domain.TriggerAuto, a.interval())
		if err != nil {
			return "", err
		}
		if !created {
			return "", nil
		}
		runID = id
	}

	log.Printf("autorun: executing run %s", runID)
	stats, err := a.harvester.Execute(ctx, runID)
	if errors.Is(err, domain.ErrRunNotRunnable) {
		// Picked up by another process between Current and Execute.
		return "", nil
	}
	if stats != nil {
		log.Printf("autorun: run %s: %s", runID, stats.Summary())
	}
	if err != nil {
		return runID, err
	}
	return runID, nil
}
