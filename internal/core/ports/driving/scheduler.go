package driving

import "context"

// Scheduler runs harvests automatically in the background.
type Scheduler interface {
	// Start begins the schedule loop.
	// Blocks until context is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop gracefully stops the loop and waits for an in-flight run.
	Stop() error
}
