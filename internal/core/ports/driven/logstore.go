package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/harvester/internal/core/domain"
)

// LogStore persists log entries. Entries are append-only.
type LogStore interface {
	// Append stores an entry and assigns its ID.
	Append(ctx context.Context, entry *domain.LogEntry) error

	// Find returns entries matching the filter, newest first.
	Find(ctx context.Context, filter domain.LogFilter) ([]domain.LogEntry, error)

	// CountByReference counts entries with the given reference and level.
	CountByReference(ctx context.Context, reference string, level domain.LogLevel) (int, error)

	// DeleteBefore removes entries created before cutoff and returns how many.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int, error)
}
