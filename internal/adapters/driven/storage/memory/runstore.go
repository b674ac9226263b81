package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/harvester/internal/core/domain"
	"github.com/custodia-labs/harvester/internal/core/ports/driven"
)

// Ensure RunStore implements the interface.
var _ driven.RunStore = (*RunStore)(nil)

// RunStore is an in-memory implementation of driven.RunStore.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]domain.Run
	seq  map[string]int
	next int
}

// NewRunStore creates a new in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{
		runs: make(map[string]domain.Run),
		seq:  make(map[string]int),
	}
}

// Create inserts a new run.
func (s *RunStore) Create(_ context.Context, run *domain.Run) error {
	if run == nil || run.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insert(run)
	return nil
}

func (s *RunStore) insert(run *domain.Run) {
	s.next++
	s.seq[run.ID] = s.next
	s.runs[run.ID] = *run
}

// CreateIfDue inserts run when no run is active and none completed after notAfter.
func (s *RunStore) CreateIfDue(_ context.Context, run *domain.Run, notAfter time.Time) (bool, error) {
	if run == nil || run.ID == "" {
		return false, domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.oldestActive() != nil {
		return false, nil
	}
	if last := s.lastCompletedAt(); !last.IsZero() && last.After(notAfter) {
		return false, nil
	}
	s.insert(run)
	return true, nil
}

// Get retrieves a run by ID, or nil.
func (s *RunStore) Get(_ context.Context, id string) (*domain.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, nil
	}
	return &run, nil
}

// Update applies a compare-and-set transition.
func (s *RunStore) Update(_ context.Context, t domain.RunTransition) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[t.RunID]
	if !ok {
		return false, nil
	}
	if len(t.From) > 0 && !slices.Contains(t.From, run.Status) {
		return false, nil
	}
	run.Status = t.Status
	if !t.StartedAt.IsZero() {
		run.StartedAt = t.StartedAt
	}
	if !t.CompletedAt.IsZero() {
		run.CompletedAt = t.CompletedAt
	}
	s.runs[t.RunID] = run
	return true, nil
}

// OldestActive returns the earliest scheduled pending or running run.
func (s *RunStore) OldestActive(_ context.Context) (*domain.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.oldestActive(), nil
}

func (s *RunStore) oldestActive() *domain.Run {
	var oldest *domain.Run
	for _, run := range s.ordered() {
		if run.Status.Active() {
			r := run
			oldest = &r
			break
		}
	}
	return oldest
}

// LastCompletedAt returns the latest completion time of a completed run.
func (s *RunStore) LastCompletedAt(_ context.Context) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastCompletedAt(), nil
}

func (s *RunStore) lastCompletedAt() time.Time {
	var last time.Time
	for _, run := range s.runs {
		if run.Status == domain.RunCompleted && run.CompletedAt.After(last) {
			last = run.CompletedAt
		}
	}
	return last
}

// List returns runs, most recently scheduled first.
func (s *RunStore) List(_ context.Context, limit int) ([]domain.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	runs := s.ordered()
	slices.Reverse(runs)
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// ordered returns runs by schedule time, then insertion order.
func (s *RunStore) ordered() []domain.Run {
	runs := make([]domain.Run, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].ScheduledAt.Equal(runs[j].ScheduledAt) {
			return runs[i].ScheduledAt.Before(runs[j].ScheduledAt)
		}
		return s.seq[runs[i].ID] < s.seq[runs[j].ID]
	})
	return runs
}
