package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/harvester/internal/core/domain"
)

// RunControl manages the harvest run lifecycle.
type RunControl interface {
	// Schedule creates a pending run and returns its ID.
	Schedule(ctx context.Context, trigger domain.RunTrigger) (string, error)

	// Transition moves a run to status if the edge is legal.
	// Returns false and no error for a missing run or an illegal edge.
	Transition(ctx context.Context, runID string, status domain.RunStatus) (bool, error)

	// Current returns the oldest pending or running run, or nil.
	Current(ctx context.Context) (*domain.Run, error)

	// NeedsScheduling reports whether an automatic run is due.
	NeedsScheduling(ctx context.Context, interval time.Duration) (bool, error)

	// ScheduleIfNeeded creates a run when NeedsScheduling would be true.
	ScheduleIfNeeded(ctx context.Context, trigger domain.RunTrigger, interval time.Duration) (string, bool, error)

	// Stop forces a run to stopped regardless of its status.
	Stop(ctx context.Context, runID string) (bool, error)

	// Get returns a run, or domain.ErrNotFound.
	Get(ctx context.Context, runID string) (*domain.Run, error)

	// List returns recent runs, newest first.
	List(ctx context.Context, limit int) ([]domain.Run, error)

	// Status returns a run with its most recent log entries and statistics.
	Status(ctx context.Context, runID string, logLimit int) (*domain.RunStatusReport, error)
}
