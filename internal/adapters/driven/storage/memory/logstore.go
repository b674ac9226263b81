package memory

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/harvester/internal/core/domain"
	"github.com/custodia-labs/harvester/internal/core/ports/driven"
)

// Ensure LogStore implements the interface.
var _ driven.LogStore = (*LogStore)(nil)

// LogStore is an in-memory implementation of driven.LogStore.
type LogStore struct {
	mu      sync.RWMutex
	entries []domain.LogEntry
	nextID  int64
}

// NewLogStore creates a new in-memory log store.
func NewLogStore() *LogStore {
	return &LogStore{}
}

// Append stores an entry and assigns its ID.
func (s *LogStore) Append(_ context.Context, entry *domain.LogEntry) error {
	if entry == nil {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	entry.ID = s.nextID
	s.entries = append(s.entries, *entry)
	return nil
}

// Find returns entries matching filter, newest first.
func (s *LogStore) Find(_ context.Context, filter domain.LogFilter) ([]domain.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.LogEntry, 0)
	for i := len(s.entries) - 1; i >= 0; i-- {
		if !filter.Matches(&s.entries[i]) {
			continue
		}
		result = append(result, s.entries[i])
		if filter.Limit > 0 && len(result) == filter.Limit {
			break
		}
	}
	return result, nil
}

// CountByReference counts entries with reference and level.
func (s *LogStore) CountByReference(_ context.Context, reference string, level domain.LogLevel) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.entries {
		if e.Reference == reference && e.Level == level {
			n++
		}
	}
	return n, nil
}

// DeleteBefore removes entries created before cutoff.
func (s *LogStore) DeleteBefore(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.CreatedAt.Before(cutoff) {
			continue
		}
		kept = append(kept, e)
	}
	removed := len(s.entries) - len(kept)
	s.entries = kept
	return removed, nil
}

// All returns every stored entry in append order.
func (s *LogStore) All() []domain.LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.LogEntry(nil), s.entries...)
}
