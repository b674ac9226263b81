package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/harvester/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/harvester/internal/core/domain"
)

// brokenLogStore fails every append.
type brokenLogStore struct {
	*memory.LogStore
}

func (brokenLogStore) Append(context.Context, *domain.LogEntry) error {
	return errors.New("read-only database")
}

func TestRunLog_Entries(t *testing.T) {
	clock := newFakeClock()
	store := memory.NewLogStore()
	runLog := NewRunLog(store, clock)
	ctx := context.Background()

	require.NoError(t, runLog.Info(ctx, "r1", "a/one", "Harvested repository", ""))
	require.NoError(t, runLog.Error(ctx, "r1", "a/two", "Failed to harvest repository", "http 404"))
	require.NoError(t, runLog.System(ctx, "r1", "Run stopped", ""))

	entries := store.All()
	require.Len(t, entries, 3)

	assert.Equal(t, domain.CategoryCrawler, entries[0].Category)
	assert.Equal(t, domain.LevelInfo, entries[0].Level)
	assert.Equal(t, "run:r1", entries[0].Reference)
	assert.Equal(t, "a/one", entries[0].Subject)
	assert.Equal(t, clock.Now(), entries[0].CreatedAt)

	assert.Equal(t, domain.LevelError, entries[1].Level)
	assert.Equal(t, "http 404", entries[1].Detail)

	assert.Equal(t, domain.CategorySystem, entries[2].Category)
	assert.Empty(t, entries[2].Subject)
}

func TestRunLog_AppendFailureIsStorageError(t *testing.T) {
	runLog := NewRunLog(brokenLogStore{memory.NewLogStore()}, newFakeClock())
	err := runLog.Info(context.Background(), "r1", "", "Starting harvest", "")
	assert.ErrorIs(t, err, domain.ErrStorage)
}

func TestRunLog_RecordRequest(t *testing.T) {
	store := memory.NewLogStore()
	runLog := NewRunLog(store, newFakeClock())

	ctx, cancel := context.WithCancel(domain.ContextWithRun(context.Background(), "r1"))
	cancel()
	runLog.RecordRequest(ctx, domain.RequestRecord{
		Method:   "GET",
		Endpoint: "/repos/a/one",
		Status:   502,
		Duration: 1500 * time.Millisecond,
		Err:      errors.New("bad gateway"),
	})

	entries := store.All()
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, domain.CategoryAPI, e.Category)
	assert.Equal(t, domain.LevelInfo, e.Level)
	assert.Equal(t, "run:r1", e.Reference)
	assert.Equal(t, "GET /repos/a/one 502 (1.5s)", e.Message)
	assert.Equal(t, "bad gateway", e.Detail)

	// Audit entries never count as run errors.
	n, err := runLog.ErrorCount(context.Background(), "r1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRunLog_RecordRequest_WithoutRun(t *testing.T) {
	store := memory.NewLogStore()
	runLog := NewRunLog(store, newFakeClock())

	runLog.RecordRequest(context.Background(), domain.RequestRecord{Method: "GET", Endpoint: "/users/bob", Status: 200})

	entries := store.All()
	require.Len(t, entries, 1)
	assert.Empty(t, entries[0].Reference)
}

func TestRunLog_Stats(t *testing.T) {
	clock := newFakeClock()
	runLog := NewRunLog(memory.NewLogStore(), clock)
	ctx := context.Background()

	stats, err := runLog.LatestStats(ctx, "r1")
	require.NoError(t, err)
	assert.Nil(t, stats)

	want := domain.RunStats{
		RepositoriesCrawled: 3,
		UsersCrawled:        1,
		FilesSaved:          2,
		Errors:              1,
		StartedAt:           clock.Now(),
		EndedAt:             clock.Now().Add(90 * time.Second),
	}
	require.NoError(t, runLog.Stats(ctx, "r1", want))
	require.NoError(t, runLog.Info(ctx, "r1", "", "later entry", ""))

	got, err := runLog.LatestStats(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.RepositoriesCrawled, got.RepositoriesCrawled)
	assert.Equal(t, want.FilesSaved, got.FilesSaved)
	assert.Equal(t, want.Errors, got.Errors)
	assert.Equal(t, 90*time.Second, got.Elapsed())

	entries, err := runLog.Recent(ctx, "r1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, want.Summary(), entries[1].Message)
	assert.Equal(t, StatsSubject, entries[1].Subject)
}

func TestRunLog_Prune(t *testing.T) {
	clock := newFakeClock()
	store := memory.NewLogStore()
	runLog := NewRunLog(store, clock)
	ctx := context.Background()

	require.NoError(t, runLog.Info(ctx, "old", "", "old entry", ""))
	clock.Advance(31 * 24 * time.Hour)
	require.NoError(t, runLog.Info(ctx, "new", "", "new entry", ""))

	n, err := runLog.Prune(ctx, DefaultLogRetention)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	entries := store.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "new entry", entries[0].Message)
	assert.Equal(t, "Pruned log entries", entries[1].Message)
	assert.Empty(t, entries[1].Reference)

	_, err = runLog.Prune(ctx, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
