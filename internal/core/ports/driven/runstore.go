package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/harvester/internal/core/domain"
)

// RunStore persists harvest runs.
type RunStore interface {
	// Create inserts a new run.
	Create(ctx context.Context, run *domain.Run) error

	// CreateIfDue inserts run only when no run is pending or running and no
	// run completed after notAfter. The check and the insert are atomic.
	CreateIfDue(ctx context.Context, run *domain.Run, notAfter time.Time) (bool, error)

	// Get retrieves a run by ID.
	// Returns nil and no error if the run does not exist.
	Get(ctx context.Context, id string) (*domain.Run, error)

	// Update applies a transition as a compare-and-set on the current status.
	// Returns false when the run is missing or not in one of t.From.
	Update(ctx context.Context, t domain.RunTransition) (bool, error)

	// OldestActive returns the earliest scheduled pending or running run.
	// Returns nil and no error if there is none.
	OldestActive(ctx context.Context) (*domain.Run, error)

	// LastCompletedAt returns the latest CompletedAt of a completed run.
	// Returns the zero time if no run ever completed.
	LastCompletedAt(ctx context.Context) (time.Time, error)

	// List returns runs, most recently scheduled first.
	List(ctx context.Context, limit int) ([]domain.Run, error)
}
