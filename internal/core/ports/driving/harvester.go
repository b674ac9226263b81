package driving

import (
	"context"

	"github.com/custodia-labs/harvester/internal/core/domain"
)

// Harvester executes harvest runs.
type Harvester interface {
	// Execute runs a pending run to completion and returns its statistics.
	// Returns domain.ErrRunNotRunnable if the run is not pending.
	Execute(ctx context.Context, runID string) (*domain.RunStats, error)

	// Progress returns the live counters of an executing run.
	// Returns false if the run is not executing in this process.
	Progress(runID string) (domain.RunStats, bool)

	// Track registers an entity for harvesting.
	// Returns false if it was already known.
	Track(ctx context.Context, kind domain.EntityKind, key string) (bool, error)
}
