package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/harvester/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for harvester resources.
	uriScheme = "harvester://"

	// recentRunsLimit bounds the runs resource.
	recentRunsLimit = 50
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for listing runs.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "runs",
		Name:        "runs",
		Description: "Recent harvest runs, newest first",
		MIMEType:    "application/json",
	}, s.handleRunsResource)

	// Template for a single run report.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "runs/{runId}",
		Name:        "run-status",
		Description: "Status, statistics and recent log entries of a harvest run",
		MIMEType:    "application/json",
	}, s.handleRunResource)
}

// handleRunsResource returns recent runs.
func (s *Server) handleRunsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	runs, err := s.ports.Runs.List(ctx, recentRunsLimit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	infos := make([]RunOutput, len(runs))
	for i := range runs {
		infos[i] = toRunOutput(&runs[i])
	}

	return jsonResource(req.Params.URI, infos)
}

// handleRunResource returns the status report of one run.
func (s *Server) handleRunResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	// Extract runId from URI: harvester://runs/{runId}
	runID := extractRunID(req.Params.URI)
	if runID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	_, report, err := s.handleRunStatus(ctx, nil, RunStatusInput{RunID: runID})
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting run status: %w", err)
	}

	return jsonResource(req.Params.URI, report)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractRunID extracts the run ID from a URI like harvester://runs/{runId}.
func extractRunID(uri string) string {
	const prefix = uriScheme + "runs/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	id := strings.TrimPrefix(uri, prefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
