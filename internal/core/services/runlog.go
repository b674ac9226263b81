package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/custodia-labs/harvester/internal/core/domain"
	"github.com/custodia-labs/harvester/internal/core/ports/driven"
	"github.com/custodia-labs/harvester/internal/logger"
)

// Ensure RunLog implements the interface.
var _ driven.RequestAuditor = (*RunLog)(nil)

// StatsSubject marks the statistics entry written at the end of a run.
const StatsSubject = "statistics"

// DefaultLogRetention is how long entries are kept by Prune.
const DefaultLogRetention = 30 * 24 * time.Hour

// RunLog records run events in the log store and mirrors them to the console.
type RunLog struct {
	store driven.LogStore
	clock driven.Clock
}

// NewRunLog creates a run logger.
func NewRunLog(store driven.LogStore, clock driven.Clock) *RunLog {
	return &RunLog{store: store, clock: clock}
}

// Info records a crawler event for a run.
func (l *RunLog) Info(ctx context.Context, runID, subject, message, detail string) error {
	return l.append(ctx, &domain.LogEntry{
		Category:  domain.CategoryCrawler,
		Level:     domain.LevelInfo,
		Message:   message,
		Detail:    detail,
		Reference: reference(runID),
		Subject:   subject,
	})
}

// Error records a crawler failure for a run.
// Every counted error in a run's statistics has exactly one such entry.
func (l *RunLog) Error(ctx context.Context, runID, subject, message, detail string) error {
	return l.append(ctx, &domain.LogEntry{
		Category:  domain.CategoryCrawler,
		Level:     domain.LevelError,
		Message:   message,
		Detail:    detail,
		Reference: reference(runID),
		Subject:   subject,
	})
}

// System records an operator or maintenance event.
func (l *RunLog) System(ctx context.Context, runID, message, detail string) error {
	return l.append(ctx, &domain.LogEntry{
		Category:  domain.CategorySystem,
		Level:     domain.LevelInfo,
		Message:   message,
		Detail:    detail,
		Reference: reference(runID),
	})
}

// Stats records the final statistics of a run.
// The message is the summary line; the detail holds the counters as JSON.
func (l *RunLog) Stats(ctx context.Context, runID string, stats domain.RunStats) error {
	detail, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}
	return l.append(ctx, &domain.LogEntry{
		Category:  domain.CategoryCrawler,
		Level:     domain.LevelInfo,
		Message:   stats.Summary(),
		Detail:    string(detail),
		Reference: reference(runID),
		Subject:   StatsSubject,
	})
}

// RecordRequest appends an API audit entry.
// Audit entries are informational even for failed requests; the caller
// records the failure itself so it is counted once.
func (l *RunLog) RecordRequest(ctx context.Context, rec domain.RequestRecord) {
	runID, _ := domain.RunFromContext(ctx)
	entry := &domain.LogEntry{
		Category:  domain.CategoryAPI,
		Level:     domain.LevelInfo,
		Message:   fmt.Sprintf("%s %s %d (%s)", rec.Method, rec.Endpoint, rec.Status, rec.Duration.Round(time.Millisecond)),
		Reference: reference(runID),
	}
	if rec.Err != nil {
		entry.Detail = rec.Err.Error()
	}
	// The request context may already be cancelled; the entry is still written.
	if err := l.append(context.WithoutCancel(ctx), entry); err != nil {
		logger.Warn("run log: record request: %v", err)
	}
}

// Recent returns a run's most recent crawler and system entries, newest
// first. Request audit entries are left out.
func (l *RunLog) Recent(ctx context.Context, runID string, limit int) ([]domain.LogEntry, error) {
	entries, err := l.store.Find(ctx, domain.LogFilter{
		Reference:  domain.RunReference(runID),
		Categories: []domain.LogCategory{domain.CategoryCrawler, domain.CategorySystem},
		Limit:      limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list run logs: %w", err)
	}
	return entries, nil
}

// ErrorCount returns the number of error entries recorded for a run.
func (l *RunLog) ErrorCount(ctx context.Context, runID string) (int, error) {
	n, err := l.store.CountByReference(ctx, domain.RunReference(runID), domain.LevelError)
	if err != nil {
		return 0, fmt.Errorf("count run errors: %w", err)
	}
	return n, nil
}

// LatestStats returns the statistics recorded for a run, or nil if the run
// has not finished.
func (l *RunLog) LatestStats(ctx context.Context, runID string) (*domain.RunStats, error) {
	entries, err := l.store.Find(ctx, domain.LogFilter{
		Reference:  domain.RunReference(runID),
		Categories: []domain.LogCategory{domain.CategoryCrawler},
		Subject:    StatsSubject,
		Limit:      1,
	})
	if err != nil {
		return nil, fmt.Errorf("find run stats: %w", err)
	}
	if len(entries) == 0 {
		return nil, nil
	}
	var stats domain.RunStats
	if err := json.Unmarshal([]byte(entries[0].Detail), &stats); err != nil {
		return nil, fmt.Errorf("decode stats: %w", err)
	}
	return &stats, nil
}

// Prune deletes entries older than olderThan and returns how many were removed.
func (l *RunLog) Prune(ctx context.Context, olderThan time.Duration) (int, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("%w: retention must be positive", domain.ErrInvalidInput)
	}
	n, err := l.store.DeleteBefore(ctx, l.clock.Now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("prune logs: %w", err)
	}
	if err := l.System(ctx, "", "Pruned log entries", fmt.Sprintf("%d entries older than %s", n, olderThan)); err != nil {
		return n, err
	}
	return n, nil
}

func (l *RunLog) append(ctx context.Context, entry *domain.LogEntry) error {
	entry.CreatedAt = l.clock.Now()
	mirror(entry)
	if err := l.store.Append(ctx, entry); err != nil {
		return fmt.Errorf("%w: append log: %w", domain.ErrStorage, err)
	}
	return nil
}

func mirror(entry *domain.LogEntry) {
	line := entry.Message
	if entry.Subject != "" && entry.Subject != StatsSubject {
		line = entry.Subject + ": " + line
	}
	if entry.Detail != "" && entry.Subject != StatsSubject {
		line += ": " + entry.Detail
	}
	switch {
	case entry.Level == domain.LevelError:
		logger.Error("%s", line)
	case entry.Category == domain.CategoryAPI:
		logger.Debug("%s", line)
	default:
		logger.Info("%s", line)
	}
}

func reference(runID string) string {
	if runID == "" {
		return ""
	}
	return domain.RunReference(runID)
}
