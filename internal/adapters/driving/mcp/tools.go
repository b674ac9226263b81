package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/harvester/internal/core/domain"
)

// defaultLogLimit is the number of log entries run_status returns by default.
const defaultLogLimit = 20

// RunOutput describes a run. Times are RFC 3339; unset times are omitted.
type RunOutput struct {
	ID          string `json:"id"`
	Trigger     string `json:"trigger"`
	Status      string `json:"status"`
	ScheduledAt string `json:"scheduled_at"`
	StartedAt   string `json:"started_at,omitempty"`
	CompletedAt string `json:"completed_at,omitempty"`
}

// StatsOutput holds run counters.
type StatsOutput struct {
	Repositories      int `json:"repositories"`
	Organizations     int `json:"organizations"`
	Users             int `json:"users"`
	ChildRepositories int `json:"child_repositories"`
	FilesSaved        int `json:"files_saved"`
	Errors            int `json:"errors"`
	ElapsedSeconds    int `json:"elapsed_seconds"`
}

// LogOutput is one run log entry.
type LogOutput struct {
	Level     string `json:"level"`
	Category  string `json:"category"`
	Message   string `json:"message"`
	Detail    string `json:"detail,omitempty"`
	Subject   string `json:"subject,omitempty"`
	CreatedAt string `json:"created_at"`
}

// ScheduleRunInput is the input schema for the schedule_run tool.
type ScheduleRunInput struct {
	IfDue bool `json:"if_due,omitempty" jsonschema:"only create a run when no run is active and the schedule interval has elapsed"`
}

// ScheduleRunOutput is the output schema for the schedule_run tool.
type ScheduleRunOutput struct {
	RunID   string `json:"run_id,omitempty"`
	Created bool   `json:"created"`
}

// CurrentRunInput is the input schema for the current_run tool.
type CurrentRunInput struct{}

// CurrentRunOutput is the output schema for the current_run tool.
type CurrentRunOutput struct {
	Active bool       `json:"active"`
	Run    *RunOutput `json:"run,omitempty"`
}

// StopRunInput is the input schema for the stop_run tool.
type StopRunInput struct {
	RunID string `json:"run_id" jsonschema:"the id of the run to stop"`
}

// StopRunOutput is the output schema for the stop_run tool.
type StopRunOutput struct {
	RunID   string `json:"run_id"`
	Stopped bool   `json:"stopped"`
}

// RunStatusInput is the input schema for the run_status tool.
type RunStatusInput struct {
	RunID    string `json:"run_id" jsonschema:"the id of the run"`
	LogLimit int    `json:"log_limit,omitempty" jsonschema:"maximum number of log entries to return (default 20)"`
}

// RunStatusOutput is the output schema for the run_status tool.
type RunStatusOutput struct {
	Run      RunOutput    `json:"run"`
	Stats    *StatsOutput `json:"stats,omitempty"`
	Progress *StatsOutput `json:"progress,omitempty"`
	Logs     []LogOutput  `json:"logs"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "schedule_run",
		Description: "Schedule a harvest run; the automatic runner executes it",
	}, s.handleScheduleRun)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "current_run",
		Description: "Show the oldest pending or running harvest run",
	}, s.handleCurrentRun)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "stop_run",
		Description: "Stop a harvest run; an executing run ends at its next checkpoint",
	}, s.handleStopRun)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "run_status",
		Description: "Show a harvest run with its statistics and recent log entries",
	}, s.handleRunStatus)
}

// handleScheduleRun handles the schedule_run tool invocation.
func (s *Server) handleScheduleRun(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ScheduleRunInput,
) (*mcp.CallToolResult, ScheduleRunOutput, error) {
	if input.IfDue {
		id, created, err := s.ports.Runs.ScheduleIfNeeded(ctx, domain.TriggerManual, s.ports.Interval)
		if err != nil {
			return nil, ScheduleRunOutput{}, err
		}
		return nil, ScheduleRunOutput{RunID: id, Created: created}, nil
	}

	id, err := s.ports.Runs.Schedule(ctx, domain.TriggerManual)
	if err != nil {
		return nil, ScheduleRunOutput{}, err
	}
	return nil, ScheduleRunOutput{RunID: id, Created: true}, nil
}

// handleCurrentRun handles the current_run tool invocation.
func (s *Server) handleCurrentRun(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ CurrentRunInput,
) (*mcp.CallToolResult, CurrentRunOutput, error) {
	run, err := s.ports.Runs.Current(ctx)
	if err != nil {
		return nil, CurrentRunOutput{}, err
	}
	if run == nil {
		return nil, CurrentRunOutput{}, nil
	}
	out := toRunOutput(run)
	return nil, CurrentRunOutput{Active: true, Run: &out}, nil
}

// handleStopRun handles the stop_run tool invocation.
func (s *Server) handleStopRun(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input StopRunInput,
) (*mcp.CallToolResult, StopRunOutput, error) {
	if input.RunID == "" {
		return nil, StopRunOutput{}, fmt.Errorf("run_id: %w", domain.ErrInvalidInput)
	}
	stopped, err := s.ports.Runs.Stop(ctx, input.RunID)
	if err != nil {
		return nil, StopRunOutput{}, err
	}
	if !stopped {
		return nil, StopRunOutput{}, fmt.Errorf("run %s: %w", input.RunID, domain.ErrNotFound)
	}
	return nil, StopRunOutput{RunID: input.RunID, Stopped: true}, nil
}

// handleRunStatus handles the run_status tool invocation.
func (s *Server) handleRunStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RunStatusInput,
) (*mcp.CallToolResult, RunStatusOutput, error) {
	if input.RunID == "" {
		return nil, RunStatusOutput{}, fmt.Errorf("run_id: %w", domain.ErrInvalidInput)
	}
	limit := input.LogLimit
	if limit <= 0 {
		limit = defaultLogLimit
	}

	report, err := s.ports.Runs.Status(ctx, input.RunID, limit)
	if err != nil {
		return nil, RunStatusOutput{}, err
	}

	output := RunStatusOutput{
		Run:  toRunOutput(&report.Run),
		Logs: make([]LogOutput, len(report.Logs)),
	}
	if report.Stats != nil {
		output.Stats = toStatsOutput(*report.Stats)
	}
	if s.ports.Harvester != nil {
		if progress, ok := s.ports.Harvester.Progress(input.RunID); ok {
			output.Progress = toStatsOutput(progress)
		}
	}
	for i := range report.Logs {
		entry := report.Logs[i]
		output.Logs[i] = LogOutput{
			Level:     string(entry.Level),
			Category:  string(entry.Category),
			Message:   entry.Message,
			Detail:    entry.Detail,
			Subject:   entry.Subject,
			CreatedAt: formatTime(entry.CreatedAt),
		}
	}

	return nil, output, nil
}

func toRunOutput(run *domain.Run) RunOutput {
	return RunOutput{
		ID:          run.ID,
		Trigger:     string(run.Trigger),
		Status:      string(run.Status),
		ScheduledAt: formatTime(run.ScheduledAt),
		StartedAt:   formatTime(run.StartedAt),
		CompletedAt: formatTime(run.CompletedAt),
	}
}

func toStatsOutput(stats domain.RunStats) *StatsOutput {
	return &StatsOutput{
		Repositories:      stats.RepositoriesCrawled,
		Organizations:     stats.OrganizationsCrawled,
		Users:             stats.UsersCrawled,
		ChildRepositories: stats.ChildRepositories,
		FilesSaved:        stats.FilesSaved,
		Errors:            stats.Errors,
		ElapsedSeconds:    int(stats.Elapsed().Seconds()),
	}
}

// formatTime renders t as RFC 3339, or "" for the zero time.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
