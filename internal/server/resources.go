package server

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/joshdurbin/strava-dashboard/internal/dashboard"
	"github.com/joshdurbin/strava-dashboard/internal/logging"
)

const (
	summaryURI = "dashboard://summary"
	streaksURI = "dashboard://streaks"
)

// registerResources registers all MCP resources for the server
func (s *Server) registerResources() {
	// Static resource: dashboard summary for the stored preferences
	s.mcp.AddResource(&mcp.Resource{
		URI:         summaryURI,
		Name:        "dashboard_summary",
		Description: "Totals, sport breakdown and running stats for the saved date range and unit system",
		MIMEType:    "application/json",
	}, s.readSummary)

	// Static resource: streaks and gaps
	s.mcp.AddResource(&mcp.Resource{
		URI:         streaksURI,
		Name:        "dashboard_streaks",
		Description: "Current and longest streaks, rest gaps and days since the last activity",
		MIMEType:    "application/json",
	}, s.readStreaks)

	logging.Debug("MCP resources registered", "count", 2)
}

func (s *Server) readSummary(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	logging.Info("MCP resource read", "resource", "dashboard_summary")

	snap := s.svc.Store().Snapshot()
	output := convertSummary(dashboard.BuildSummary(snap))
	return jsonResource(summaryURI, output)
}

func (s *Server) readStreaks(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	logging.Info("MCP resource read", "resource", "dashboard_streaks")

	snap := s.svc.Store().Snapshot()
	return jsonResource(streaksURI, buildStreaks(snap, false))
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, internalError("failed to marshal resource", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: "application/json",
				Text:     string(jsonData),
			},
		},
	}, nil
}
