package domain

import "time"

// RunTrigger identifies what created a run.
type RunTrigger string

const (
	// TriggerAuto is a run created by the automatic runner.
	TriggerAuto RunTrigger = "auto"
	// TriggerManual is a run requested by an operator.
	TriggerManual RunTrigger = "manual"
	// TriggerCLI is a run created and executed by the CLI entry point.
	TriggerCLI RunTrigger = "cli"
)

// Valid reports whether t is a known trigger.
func (t RunTrigger) Valid() bool {
	switch t {
	case TriggerAuto, TriggerManual, TriggerCLI:
		return true
	}
	return false
}

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunStopped   RunStatus = "stopped"
)

// Valid reports whether s is a known status.
func (s RunStatus) Valid() bool {
	switch s {
	case RunPending, RunRunning, RunCompleted, RunFailed, RunStopped:
		return true
	}
	return false
}

// Terminal reports whether s ends a run's lifecycle.
func (s RunStatus) Terminal() bool {
	return s == RunCompleted || s == RunFailed || s == RunStopped
}

// Active reports whether s counts against the single-active-run convention.
func (s RunStatus) Active() bool {
	return s == RunPending || s == RunRunning
}

// ActiveStatuses lists the non-terminal statuses.
var ActiveStatuses = []RunStatus{RunPending, RunRunning}

// TransitionSources returns the statuses a run may move to target from.
// Terminal states are final, and nothing moves back to pending.
func TransitionSources(target RunStatus) []RunStatus {
	switch {
	case target == RunRunning:
		return []RunStatus{RunPending}
	case target.Terminal():
		return []RunStatus{RunPending, RunRunning}
	default:
		return nil
	}
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to RunStatus) bool {
	for _, s := range TransitionSources(to) {
		if s == from {
			return true
		}
	}
	return false
}

// Run identifies one harvesting execution.
type Run struct {
	// ID is the unique identifier for the run.
	ID string

	// Trigger records what created the run.
	Trigger RunTrigger

	// Status is the current lifecycle state.
	Status RunStatus

	// ScheduledAt is when the run was created.
	ScheduledAt time.Time

	// StartedAt is when the run entered running. Zero if never started.
	StartedAt time.Time

	// CompletedAt is when the run reached a terminal state. Zero if active.
	CompletedAt time.Time
}

// Reference returns the log reference that correlates entries to this run.
func (r *Run) Reference() string {
	return RunReference(r.ID)
}

// RunReference returns the log reference for a run id.
func RunReference(runID string) string {
	return "run:" + runID
}

// RunTransition describes a status change applied by a RunStore.
type RunTransition struct {
	// RunID identifies the run to update.
	RunID string

	// Status is the new status.
	Status RunStatus

	// From restricts the update to runs currently in one of these statuses.
	// Empty means any status.
	From []RunStatus

	// StartedAt is written when non-zero.
	StartedAt time.Time

	// CompletedAt is written when non-zero.
	CompletedAt time.Time
}

// RunStatusReport is a run plus its most recent log entries.
type RunStatusReport struct {
	Run   Run
	Logs  []LogEntry
	Stats *RunStats
}
