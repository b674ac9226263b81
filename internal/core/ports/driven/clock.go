package driven

import (
	"context"
	"time"
)

// Clock provides time to core services so tests can control it.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Sleep blocks for d or until ctx is done.
	Sleep(ctx context.Context, d time.Duration) error
}
