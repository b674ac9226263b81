package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/harvester/internal/core/domain"
)

// mockRunControl is a mock implementation of driving.RunControl.
type mockRunControl struct {
	runs     map[string]*domain.Run
	current  *domain.Run
	report   *domain.RunStatusReport
	nextID   string
	created  bool
	interval time.Duration
	stopped  []string
	err      error
}

func newMockRunControl() *mockRunControl {
	return &mockRunControl{runs: make(map[string]*domain.Run), nextID: "run-1"}
}

func (m *mockRunControl) Schedule(_ context.Context, trigger domain.RunTrigger) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.runs[m.nextID] = &domain.Run{ID: m.nextID, Trigger: trigger, Status: domain.RunPending}
	return m.nextID, nil
}

func (m *mockRunControl) Transition(_ context.Context, _ string, _ domain.RunStatus) (bool, error) {
	return false, m.err
}

func (m *mockRunControl) Current(_ context.Context) (*domain.Run, error) {
	return m.current, m.err
}

func (m *mockRunControl) NeedsScheduling(_ context.Context, _ time.Duration) (bool, error) {
	return m.created, m.err
}

func (m *mockRunControl) ScheduleIfNeeded(
	_ context.Context,
	_ domain.RunTrigger,
	interval time.Duration,
) (string, bool, error) {
	m.interval = interval
	if m.err != nil || !m.created {
		return "", false, m.err
	}
	return m.nextID, true, nil
}

func (m *mockRunControl) Stop(_ context.Context, runID string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if _, ok := m.runs[runID]; !ok {
		return false, nil
	}
	m.stopped = append(m.stopped, runID)
	return true, nil
}

func (m *mockRunControl) Get(_ context.Context, runID string) (*domain.Run, error) {
	if run, ok := m.runs[runID]; ok {
		return run, nil
	}
	return nil, fmt.Errorf("run %s: %w", runID, domain.ErrNotFound)
}

func (m *mockRunControl) List(_ context.Context, _ int) ([]domain.Run, error) {
	if m.err != nil {
		return nil, m.err
	}
	runs := make([]domain.Run, 0, len(m.runs))
	for _, run := range m.runs {
		runs = append(runs, *run)
	}
	return runs, nil
}

func (m *mockRunControl) Status(_ context.Context, runID string, _ int) (*domain.RunStatusReport, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.report == nil || m.report.Run.ID != runID {
		return nil, fmt.Errorf("run %s: %w", runID, domain.ErrNotFound)
	}
	return m.report, nil
}

// mockHarvester is a mock implementation of driving.Harvester.
type mockHarvester struct {
	progress map[string]domain.RunStats
}

func (m *mockHarvester) Execute(_ context.Context, _ string) (*domain.RunStats, error) {
	return &domain.RunStats{}, nil
}

func (m *mockHarvester) Progress(runID string) (domain.RunStats, bool) {
	stats, ok := m.progress[runID]
	return stats, ok
}

func (m *mockHarvester) Track(_ context.Context, _ domain.EntityKind, _ string) (bool, error) {
	return true, nil
}
