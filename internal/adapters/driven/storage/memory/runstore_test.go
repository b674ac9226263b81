package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/harvester/internal/core/domain"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newRun(id string, status domain.RunStatus, scheduled time.Time) *domain.Run {
	return &domain.Run{ID: id, Trigger: domain.TriggerManual, Status: status, ScheduledAt: scheduled}
}

func TestRunStore_CreateAndGet(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newRun("r1", domain.RunPending, base)))

	run, err := store.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, domain.RunPending, run.Status)

	missing, err := store.Get(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRunStore_UpdateCompareAndSet(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, newRun("r1", domain.RunStopped, base)))

	ok, err := store.Update(ctx, domain.RunTransition{
		RunID:  "r1",
		Status: domain.RunCompleted,
		From:   []domain.RunStatus{domain.RunPending, domain.RunRunning},
	})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.Update(ctx, domain.RunTransition{RunID: "r1", Status: domain.RunFailed, CompletedAt: base})
	require.NoError(t, err)
	assert.True(t, ok)

	run, _ := store.Get(ctx, "r1")
	assert.Equal(t, domain.RunFailed, run.Status)
	assert.True(t, base.Equal(run.CompletedAt))

	ok, err = store.Update(ctx, domain.RunTransition{RunID: "missing", Status: domain.RunFailed})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRunStore_OldestActive(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	none, err := store.OldestActive(ctx)
	require.NoError(t, err)
	assert.Nil(t, none)

	require.NoError(t, store.Create(ctx, newRun("done", domain.RunCompleted, base)))
	require.NoError(t, store.Create(ctx, newRun("second", domain.RunPending, base.Add(2*time.Minute))))
	require.NoError(t, store.Create(ctx, newRun("first", domain.RunRunning, base.Add(time.Minute))))

	run, err := store.OldestActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "first", run.ID)
}

func TestRunStore_CreateIfDue(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	created, err := store.CreateIfDue(ctx, newRun("a", domain.RunPending, base), base)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.CreateIfDue(ctx, newRun("b", domain.RunPending, base), base)
	require.NoError(t, err)
	assert.False(t, created, "active run blocks scheduling")

	_, err = store.Update(ctx, domain.RunTransition{RunID: "a", Status: domain.RunCompleted, CompletedAt: base})
	require.NoError(t, err)

	created, err = store.CreateIfDue(ctx, newRun("c", domain.RunPending, base), base.Add(-time.Hour))
	require.NoError(t, err)
	assert.False(t, created, "recent completion blocks scheduling")

	created, err = store.CreateIfDue(ctx, newRun("d", domain.RunPending, base), base)
	require.NoError(t, err)
	assert.True(t, created)
}

func TestRunStore_ListNewestFirst(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, newRun("r1", domain.RunCompleted, base)))
	require.NoError(t, store.Create(ctx, newRun("r2", domain.RunCompleted, base.Add(time.Hour))))
	require.NoError(t, store.Create(ctx, newRun("r3", domain.RunPending, base.Add(2*time.Hour))))

	runs, err := store.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "r3", runs[0].ID)
	assert.Equal(t, "r2", runs[1].ID)

	last, err := store.LastCompletedAt(ctx)
	require.NoError(t, err)
	assert.True(t, last.IsZero(), "completed runs without CompletedAt do not count")
}
