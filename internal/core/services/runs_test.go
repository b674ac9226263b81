package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/harvester/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/harvester/internal/core/domain"
)

func newTestRunScheduler() (*RunScheduler, *fakeClock, *memory.LogStore) {
	clock := newFakeClock()
	logs := memory.NewLogStore()
	runs := NewRunScheduler(memory.NewRunStore(), NewRunLog(logs, clock), clock)
	n := 0
	runs.newID = func() string {
		n++
		return fmt.Sprintf("run-%d", n)
	}
	return runs, clock, logs
}

func TestRunScheduler_Schedule(t *testing.T) {
	runs, clock, _ := newTestRunScheduler()
	ctx := context.Background()

	id, err := runs.Schedule(ctx, domain.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, "run-1", id)

	run, err := runs.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.RunPending, run.Status)
	assert.Equal(t, domain.TriggerManual, run.Trigger)
	assert.Equal(t, clock.Now(), run.ScheduledAt)
	assert.True(t, run.StartedAt.IsZero())

	// No uniqueness check.
	second, err := runs.Schedule(ctx, domain.TriggerManual)
	require.NoError(t, err)
	assert.NotEqual(t, id, second)

	_, err = runs.Schedule(ctx, domain.RunTrigger("cron"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRunScheduler_Transition(t *testing.T) {
	tests := []struct {
		name   string
		path   []domain.RunStatus
		target domain.RunStatus
		want   bool
	}{
		{"pending to running", nil, domain.RunRunning, true},
		{"pending to stopped", nil, domain.RunStopped, true},
		{"running to completed", []domain.RunStatus{domain.RunRunning}, domain.RunCompleted, true},
		{"running to failed", []domain.RunStatus{domain.RunRunning}, domain.RunFailed, true},
		{"running to running", []domain.RunStatus{domain.RunRunning}, domain.RunRunning, false},
		{"completed is final", []domain.RunStatus{domain.RunRunning, domain.RunCompleted}, domain.RunFailed, false},
		{"stopped is final", []domain.RunStatus{domain.RunStopped}, domain.RunCompleted, false},
		{"nothing returns to pending", []domain.RunStatus{domain.RunRunning}, domain.RunPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, _, _ := newTestRunScheduler()
			ctx := context.Background()
			id, err := runs.Schedule(ctx, domain.TriggerAuto)
			require.NoError(t, err)
			for _, status := range tt.path {
				ok, err := runs.Transition(ctx, id, status)
				require.NoError(t, err)
				require.True(t, ok)
			}

			ok, err := runs.Transition(ctx, id, tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestRunScheduler_Transition_Timestamps(t *testing.T) {
	runs, clock, _ := newTestRunScheduler()
	ctx := context.Background()
	id, err := runs.Schedule(ctx, domain.TriggerAuto)
	require.NoError(t, err)

	clock.Advance(time.Minute)
	_, err = runs.Transition(ctx, id, domain.RunRunning)
	require.NoError(t, err)
	started := clock.Now()

	clock.Advance(time.Hour)
	_, err = runs.Transition(ctx, id, domain.RunCompleted)
	require.NoError(t, err)

	run, err := runs.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, started, run.StartedAt)
	assert.Equal(t, clock.Now(), run.CompletedAt)
}

func TestRunScheduler_Transition_UnknownRun(t *testing.T) {
	runs, _, _ := newTestRunScheduler()
	ok, err := runs.Transition(context.Background(), "missing", domain.RunRunning)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRunScheduler_Current(t *testing.T) {
	runs, clock, _ := newTestRunScheduler()
	ctx := context.Background()

	current, err := runs.Current(ctx)
	require.NoError(t, err)
	assert.Nil(t, current)

	first, _ := runs.Schedule(ctx, domain.TriggerManual)
	clock.Advance(time.Second)
	_, _ = runs.Schedule(ctx, domain.TriggerManual)

	current, err = runs.Current(ctx)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, first, current.ID)

	_, err = runs.Stop(ctx, first)
	require.NoError(t, err)
	current, err = runs.Current(ctx)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, "run-2", current.ID)
}

func TestRunScheduler_NeedsScheduling(t *testing.T) {
	runs, clock, _ := newTestRunScheduler()
	ctx := context.Background()
	interval := 48 * time.Hour

	// Never completed.
	due, err := runs.NeedsScheduling(ctx, interval)
	require.NoError(t, err)
	assert.True(t, due)

	// An active run blocks scheduling.
	id, _ := runs.Schedule(ctx, domain.TriggerAuto)
	due, err = runs.NeedsScheduling(ctx, interval)
	require.NoError(t, err)
	assert.False(t, due)

	_, _ = runs.Transition(ctx, id, domain.RunRunning)
	_, _ = runs.Transition(ctx, id, domain.RunCompleted)

	clock.Advance(47 * time.Hour)
	due, err = runs.NeedsScheduling(ctx, interval)
	require.NoError(t, err)
	assert.False(t, due)

	clock.Advance(time.Hour)
	due, err = runs.NeedsScheduling(ctx, interval)
	require.NoError(t, err)
	assert.True(t, due)
}

func TestRunScheduler_NeedsScheduling_IgnoresFailedRuns(t *testing.T) {
	runs, _, _ := newTestRunScheduler()
	ctx := context.Background()

	id, _ := runs.Schedule(ctx, domain.TriggerAuto)
	_, _ = runs.Transition(ctx, id, domain.RunRunning)
	_, _ = runs.Transition(ctx, id, domain.RunFailed)

	due, err := runs.NeedsScheduling(ctx, time.Hour)
	require.NoError(t, err)
	assert.True(t, due)
}

func TestRunScheduler_ScheduleIfNeeded(t *testing.T) {
	runs, clock, _ := newTestRunScheduler()
	ctx := context.Background()
	interval := time.Hour

	id, created, err := runs.ScheduleIfNeeded(ctx, domain.TriggerAuto, interval)
	require.NoError(t, err)
	require.True(t, created)

	// At most one active run.
	_, created, err = runs.ScheduleIfNeeded(ctx, domain.TriggerAuto, interval)
	require.NoError(t, err)
	assert.False(t, created)

	_, _ = runs.Transition(ctx, id, domain.RunRunning)
	_, _ = runs.Transition(ctx, id, domain.RunCompleted)

	_, created, err = runs.ScheduleIfNeeded(ctx, domain.TriggerAuto, interval)
	require.NoError(t, err)
	assert.False(t, created)

	clock.Advance(interval)
	next, created, err := runs.ScheduleIfNeeded(ctx, domain.TriggerAuto, interval)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, id, next)
}

func TestRunScheduler_Stop(t *testing.T) {
	runs, _, logs := newTestRunScheduler()
	ctx := context.Background()

	id, _ := runs.Schedule(ctx, domain.TriggerManual)
	_, _ = runs.Transition(ctx, id, domain.RunRunning)

	ok, err := runs.Stop(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	run, err := runs.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStopped, run.Status)
	assert.False(t, run.CompletedAt.IsZero())

	// The orchestrator's final status does not overwrite a stop.
	ok, err = runs.Transition(ctx, id, domain.RunCompleted)
	require.NoError(t, err)
	assert.False(t, ok)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "Run stopped", entries[0].Message)
	assert.Equal(t, domain.CategorySystem, entries[0].Category)
	assert.Equal(t, domain.RunReference(id), entries[0].Reference)

	ok, err = runs.Stop(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRunScheduler_Get_NotFound(t *testing.T) {
	runs, _, _ := newTestRunScheduler()
	_, err := runs.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRunScheduler_List(t *testing.T) {
	runs, clock, _ := newTestRunScheduler()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := runs.Schedule(ctx, domain.TriggerManual)
		require.NoError(t, err)
		clock.Advance(time.Minute)
	}

	list, err := runs.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "run-3", list[0].ID)
	assert.Equal(t, "run-2", list[1].ID)
}

func TestRunScheduler_Status(t *testing.T) {
	runs, _, _ := newTestRunScheduler()
	ctx := context.Background()
	id, _ := runs.Schedule(ctx, domain.TriggerManual)

	require.NoError(t, runs.runLog.Info(ctx, id, "a/one", "Harvested", ""))
	require.NoError(t, runs.runLog.Error(ctx, id, "a/two", "Failed to harvest repository", "http 404"))

	report, err := runs.Status(ctx, id, 10)
	require.NoError(t, err)
	assert.Equal(t, id, report.Run.ID)
	require.Len(t, report.Logs, 2)
	assert.Nil(t, report.Stats)

	require.NoError(t, runs.runLog.Stats(ctx, id, domain.RunStats{RepositoriesCrawled: 1, Errors: 1}))
	report, err = runs.Status(ctx, id, 1)
	require.NoError(t, err)
	assert.Len(t, report.Logs, 1)
	require.NotNil(t, report.Stats)
	assert.Equal(t, 1, report.Stats.Errors)

	_, err = runs.Status(ctx, "missing", 10)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRunScheduler_Status_SkipsRequestAudit(t *testing.T) {
	runs, _, _ := newTestRunScheduler()
	ctx := context.Background()
	id, _ := runs.Schedule(ctx, domain.TriggerManual)

	require.NoError(t, runs.runLog.Error(ctx, id, "a/two", "Failed to harvest repository", "http 404"))
	require.NoError(t, runs.runLog.Stats(ctx, id, domain.RunStats{RepositoriesCrawled: 1, Errors: 1}))
	runCtx := domain.ContextWithRun(ctx, id)
	for i := 0; i < 30; i++ {
		runs.runLog.RecordRequest(runCtx, domain.RequestRecord{Method: "GET", Endpoint: "/repos/a/one", Status: 200})
	}

	report, err := runs.Status(ctx, id, 20)
	require.NoError(t, err)
	require.Len(t, report.Logs, 2)
	for _, e := range report.Logs {
		assert.NotEqual(t, domain.CategoryAPI, e.Category)
	}
	assert.Equal(t, "a/two", report.Logs[1].Subject)
	require.NotNil(t, report.Stats)
	assert.Equal(t, 1, report.Stats.RepositoriesCrawled)
}
