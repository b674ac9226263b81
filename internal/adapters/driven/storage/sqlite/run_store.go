package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/custodia-labs/harvester/internal/core/domain"
	"github.com/custodia-labs/harvester/internal/core/ports/driven"
)

// runStore implements driven.RunStore.
type runStore struct {
	store *Store
}

var _ driven.RunStore = (*runStore)(nil)

const runColumns = "id, triggered_by, status, scheduled_at, started_at, completed_at"

// Create inserts a new run.
func (s *runStore) Create(ctx context.Context, run *domain.Run) error {
	if run == nil || run.ID == "" {
		return domain.ErrInvalidInput
	}
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, string(run.Trigger), string(run.Status), run.ScheduledAt.UnixNano(),
		nullableTime(run.StartedAt), nullableTime(run.CompletedAt))
	if err != nil {
		return storageErr("creating run", err)
	}
	return nil
}

// CreateIfDue inserts run when no run is active and none completed after
// notAfter. The guard and the insert are one statement.
func (s *runStore) CreateIfDue(ctx context.Context, run *domain.Run, notAfter time.Time) (bool, error) {
	if run == nil || run.ID == "" {
		return false, domain.ErrInvalidInput
	}
	result, err := s.store.db.ExecContext(ctx, `
		INSERT INTO runs (`+runColumns+`)
		SELECT ?, ?, ?, ?, NULL, NULL
		WHERE NOT EXISTS (SELECT 1 FROM runs WHERE status IN (?, ?))
		AND NOT EXISTS (SELECT 1 FROM runs WHERE status = ? AND completed_at > ?)
	`, run.ID, string(run.Trigger), string(run.Status), run.ScheduledAt.UnixNano(),
		string(domain.RunPending), string(domain.RunRunning),
		string(domain.RunCompleted), notAfter.UnixNano())
	if err != nil {
		return false, storageErr("creating run", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, storageErr("creating run", err)
	}
	return n == 1, nil
}

// Get retrieves a run by ID.
// Returns nil and no error if the run does not exist.
func (s *runStore) Get(ctx context.Context, id string) (*domain.Run, error) {
	row := s.store.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("scanning run", err)
	}
	return run, nil
}

// Update applies a compare-and-set transition.
func (s *runStore) Update(ctx context.Context, t domain.RunTransition) (bool, error) {
	query := `
		UPDATE runs SET
			status = ?,
			started_at = COALESCE(?, started_at),
			completed_at = COALESCE(?, completed_at)
		WHERE id = ?`
	args := []any{string(t.Status), nullableTime(t.StartedAt), nullableTime(t.CompletedAt), t.RunID}
	if len(t.From) > 0 {
		query += " AND status IN (" + placeholders(len(t.From)) + ")"
		for _, status := range t.From {
			args = append(args, string(status))
		}
	}

	result, err := s.store.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, storageErr("updating run", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, storageErr("updating run", err)
	}
	return n == 1, nil
}

// OldestActive returns the earliest scheduled pending or running run.
func (s *runStore) OldestActive(ctx context.Context) (*domain.Run, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+runColumns+` FROM runs
		WHERE status IN (?, ?)
		ORDER BY scheduled_at, rowid
		LIMIT 1
	`, string(domain.RunPending), string(domain.RunRunning))
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("scanning run", err)
	}
	return run, nil
}

// LastCompletedAt returns the latest completion time of a completed run.
func (s *runStore) LastCompletedAt(ctx context.Context) (time.Time, error) {
	var last sql.NullInt64
	err := s.store.db.QueryRowContext(ctx,
		"SELECT MAX(completed_at) FROM runs WHERE status = ?", string(domain.RunCompleted)).Scan(&last)
	if err != nil {
		return time.Time{}, storageErr("querying last completed run", err)
	}
	return parseNullableTime(last), nil
}

// List returns runs, most recently scheduled first.
func (s *runStore) List(ctx context.Context, limit int) ([]domain.Run, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+runColumns+` FROM runs
		ORDER BY scheduled_at DESC, rowid DESC
		LIMIT ?
	`, sqlLimit(limit))
	if err != nil {
		return nil, storageErr("querying runs", err)
	}
	defer rows.Close()

	runs := make([]domain.Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, storageErr("scanning run", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterating runs", err)
	}
	return runs, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*domain.Run, error) {
	var (
		run                    domain.Run
		trigger, status        string
		scheduledAt            int64
		startedAt, completedAt sql.NullInt64
	)
	if err := row.Scan(&run.ID, &trigger, &status, &scheduledAt, &startedAt, &completedAt); err != nil {
		return nil, err
	}
	run.Trigger = domain.RunTrigger(trigger)
	run.Status = domain.RunStatus(status)
	run.ScheduledAt = unixTime(scheduledAt)
	run.StartedAt = parseNullableTime(startedAt)
	run.CompletedAt = parseNullableTime(completedAt)
	return &run, nil
}
