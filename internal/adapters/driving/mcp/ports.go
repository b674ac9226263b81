package mcp

import (
	"time"

	"github.com/custodia-labs/harvester/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Runs manages the run lifecycle.
	Runs driving.RunControl

	// Harvester reports live progress of runs executing in this process.
	// Optional.
	Harvester driving.Harvester

	// Interval is the automatic schedule interval used by schedule_run
	// when only a due run should be created.
	Interval time.Duration
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Runs == nil {
		return ErrMissingRunService
	}
	return nil
}
