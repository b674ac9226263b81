package sqlite

import (
	"context"
	"time"

	"github.com/custodia-labs/harvester/internal/core/domain"
	"github.com/custodia-labs/harvester/internal/core/ports/driven"
)

// logStore implements driven.LogStore.
type logStore struct {
	store *Store
}

var _ driven.LogStore = (*logStore)(nil)

// Append stores an entry and assigns its ID.
func (s *logStore) Append(ctx context.Context, entry *domain.LogEntry) error {
	if entry == nil {
		return domain.ErrInvalidInput
	}
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	result, err := s.store.db.ExecContext(ctx, `
		INSERT INTO log_entries (category, level, message, detail, reference, subject, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, string(entry.Category), string(entry.Level), entry.Message, entry.Detail,
		entry.Reference, entry.Subject, createdAt.UnixNano())
	if err != nil {
		return storageErr("appending log entry", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return storageErr("appending log entry", err)
	}
	entry.ID = id
	return nil
}

// Find returns entries matching filter, newest first.
func (s *logStore) Find(ctx context.Context, filter domain.LogFilter) ([]domain.LogEntry, error) {
	query := `
		SELECT id, category, level, message, detail, reference, subject, created_at
		FROM log_entries
		WHERE reference = ?`
	args := []any{filter.Reference}
	if filter.Subject != "" {
		query += " AND subject = ?"
		args = append(args, filter.Subject)
	}
	if len(filter.Categories) > 0 {
		query += " AND category IN (" + placeholders(len(filter.Categories)) + ")"
		for _, c := range filter.Categories {
			args = append(args, string(c))
		}
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, sqlLimit(filter.Limit))

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("querying log entries", err)
	}
	defer rows.Close()

	entries := make([]domain.LogEntry, 0)
	for rows.Next() {
		var (
			e               domain.LogEntry
			category, level string
			createdAt       int64
		)
		if err := rows.Scan(&e.ID, &category, &level, &e.Message, &e.Detail,
			&e.Reference, &e.Subject, &createdAt); err != nil {
			return nil, storageErr("scanning log entry", err)
		}
		e.Category = domain.LogCategory(category)
		e.Level = domain.LogLevel(level)
		e.CreatedAt = unixTime(createdAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterating log entries", err)
	}
	return entries, nil
}

// CountByReference counts entries with reference and level.
func (s *logStore) CountByReference(ctx context.Context, reference string, level domain.LogLevel) (int, error) {
	var n int
	err := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM log_entries WHERE reference = ? AND level = ?",
		reference, string(level)).Scan(&n)
	if err != nil {
		return 0, storageErr("counting log entries", err)
	}
	return n, nil
}

// DeleteBefore removes entries created before cutoff.
func (s *logStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := s.store.db.ExecContext(ctx,
		"DELETE FROM log_entries WHERE created_at < ?", cutoff.UnixNano())
	if err != nil {
		return 0, storageErr("deleting log entries", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, storageErr("deleting log entries", err)
	}
	return int(n), nil
}
