// Package mcp provides an MCP (Model Context Protocol) server adapter for the
// harvester. It lets AI assistants schedule, inspect and stop harvest runs.
package mcp

import "errors"

// ErrMissingRunService is returned when the run service is not provided.
var ErrMissingRunService = errors.New("mcp: run service is required")
