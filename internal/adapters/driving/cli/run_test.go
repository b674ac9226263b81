package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/harvester/internal/core/domain"
)

func TestRunCmd_Use(t *testing.T) {
	assert.Equal(t, "run [run-id]", runCmd.Use)
}

func TestRunCmd_AcceptsAtMostOneArg(t *testing.T) {
	setupTestServices(t)

	_, err := executeCommand(t, "run", "a", "b")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts at most 1 arg(s)")
}

func TestRunCmd_NotConfigured(t *testing.T) {
	_, err := executeCommand(t, "run")

	assert.EqualError(t, err, "harvest service not configured")
}

func TestRunCmd_CreatesAndExecutesRun(t *testing.T) {
	ts := setupTestServices(t)
	ctx := context.Background()
	_, err := ts.harvester.Track(ctx, domain.KindRepository, "octo/hello")
	require.NoError(t, err)

	out, err := executeCommand(t, "run")

	require.NoError(t, err)
	assert.Contains(t, out, "Executing run")
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "Harvest statistics: 1 repositories, 0 organizations, 1 users")

	runs, err := ts.runs.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, domain.TriggerCLI, runs[0].Trigger)
	assert.Equal(t, domain.RunCompleted, runs[0].Status)
}

func TestRunCmd_ExecutesPendingRun(t *testing.T) {
	ts := setupTestServices(t)
	runID, err := ts.runs.Schedule(context.Background(), domain.TriggerManual)
	require.NoError(t, err)

	out, err := executeCommand(t, "run", runID)

	require.NoError(t, err)
	assert.Contains(t, out, "Executing run "+runID)

	run, err := ts.runs.Get(context.Background(), runID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunCompleted, run.Status)
}

func TestRunCmd_RejectsFinishedRun(t *testing.T) {
	ts := setupTestServices(t)
	ctx := context.Background()
	runID, err := ts.runs.Schedule(ctx, domain.TriggerManual)
	require.NoError(t, err)
	_, err = ts.runs.Stop(ctx, runID)
	require.NoError(t, err)

	_, err = executeCommand(t, "run", runID)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRunNotRunnable)
}
