package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/harvester/internal/core/domain"
	"github.com/custodia-labs/harvester/internal/core/ports/driven"
	"github.com/custodia-labs/harvester/internal/core/ports/driving"
)

// Ensure RunScheduler implements the interface.
var _ driving.RunControl = (*RunScheduler)(nil)

// RunScheduler owns the run state machine:
// pending -> running -> completed | failed | stopped.
type RunScheduler struct {
	store  driven.RunStore
	runLog *RunLog
	clock  driven.Clock
	newID  func() string
}

// NewRunScheduler creates a run scheduler.
func NewRunScheduler(store driven.RunStore, runLog *RunLog, clock driven.Clock) *RunScheduler {
	return &RunScheduler{
		store:  store,
		runLog: runLog,
		clock:  clock,
		newID:  uuid.NewString,
	}
}

// Schedule creates a pending run. No uniqueness check is made.
func (s *RunScheduler) Schedule(ctx context.Context, trigger domain.RunTrigger) (string, error) {
	run, err := s.newRun(trigger)
	if err != nil {
		return "", err
	}
	if err := s.store.Create(ctx, run); err != nil {
		return "", fmt.Errorf("create run: %w", err)
	}
	return run.ID, nil
}

// Transition moves a run to status. A missing run or an illegal edge
// yields false without an error, so a run stopped by an operator is never
// overwritten by the orchestrator's final status.
func (s *RunScheduler) Transition(ctx context.Context, runID string, status domain.RunStatus) (bool, error) {
	from := domain.TransitionSources(status)
	if len(from) == 0 {
		return false, nil
	}
	t := domain.RunTransition{RunID: runID, Status: status, From: from}
	now := s.clock.Now()
	if status == domain.RunRunning {
		t.StartedAt = now
	}
	if status.Terminal() {
		t.CompletedAt = now
	}
	ok, err := s.store.Update(ctx, t)
	if err != nil {
		return false, fmt.Errorf("update run: %w", err)
	}
	return ok, nil
}

// Current returns the oldest pending or running run, or nil.
func (s *RunScheduler) Current(ctx context.Context) (*domain.Run, error) {
	run, err := s.store.OldestActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("get current run: %w", err)
	}
	return run, nil
}

// NeedsScheduling reports whether no run is active and the last completed
// run finished at least interval ago (or no run ever completed).
func (s *RunScheduler) NeedsScheduling(ctx context.Context, interval time.Duration) (bool, error) {
	active, err := s.Current(ctx)
	if err != nil {
		return false, err
	}
	if active != nil {
		return false, nil
	}
	last, err := s.store.LastCompletedAt(ctx)
	if err != nil {
		return false, fmt.Errorf("get last completed run: %w", err)
	}
	if last.IsZero() {
		return true, nil
	}
	return s.clock.Now().Sub(last) >= interval, nil
}

// ScheduleIfNeeded creates a run when one is due. The check and the insert
// happen in one store operation.
func (s *RunScheduler) ScheduleIfNeeded(
	ctx context.Context,
	trigger domain.RunTrigger,
	interval time.Duration,
) (string, bool, error) {
	run, err := s.newRun(trigger)
	if err != nil {
		return "", false, err
	}
	created, err := s.store.CreateIfDue(ctx, run, run.ScheduledAt.Add(-interval))
	if err != nil {
		return "", false, fmt.Errorf("create run: %w", err)
	}
	if !created {
		return "", false, nil
	}
	return run.ID, true, nil
}

// Stop forces a run to stopped regardless of its status.
func (s *RunScheduler) Stop(ctx context.Context, runID string) (bool, error) {
	ok, err := s.store.Update(ctx, domain.RunTransition{
		RunID:       runID,
		Status:      domain.RunStopped,
		CompletedAt: s.clock.Now(),
	})
	if err != nil {
		return false, fmt.Errorf("stop run: %w", err)
	}
	if !ok {
		return false, nil
	}
	if err := s.runLog.System(ctx, runID, "Run stopped", ""); err != nil {
		return true, err
	}
	return true, nil
}

// Get returns a run or domain.ErrNotFound.
func (s *RunScheduler) Get(ctx context.Context, runID string) (*domain.Run, error) {
	run, err := s.store.Get(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	if run == nil {
		return nil, fmt.Errorf("run %s: %w", runID, domain.ErrNotFound)
	}
	return run, nil
}

// List returns recent runs, newest first.
func (s *RunScheduler) List(ctx context.Context, limit int) ([]domain.Run, error) {
	runs, err := s.store.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// Status returns a run with its recent log entries and final statistics.
func (s *RunScheduler) Status(ctx context.Context, runID string, logLimit int) (*domain.RunStatusReport, error) {
	run, err := s.Get(ctx, runID)
	if err != nil {
		return nil, err
	}
	logs, err := s.runLog.Recent(ctx, runID, logLimit)
	if err != nil {
		return nil, err
	}
	stats, err := s.runLog.LatestStats(ctx, runID)
	if err != nil {
		return nil, err
	}
	return &domain.RunStatusReport{Run: *run, Logs: logs, Stats: stats}, nil
}

func (s *RunScheduler) newRun(trigger domain.RunTrigger) (*domain.Run, error) {
	if !trigger.Valid() {
		return nil, fmt.Errorf("%w: unknown trigger %q", domain.ErrInvalidInput, trigger)
	}
	return &domain.Run{
		ID:          s.newID(),
		Trigger:     trigger,
		Status:      domain.RunPending,
		ScheduledAt: s.clock.Now(),
	}, nil
}
