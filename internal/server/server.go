// Package server exposes the dashboard to MCP clients as tools, resources
// and prompts.
package server

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/joshdurbin/strava-dashboard/internal/dashboard"
	"github.com/joshdurbin/strava-dashboard/internal/logging"
)

const (
	serverName    = "strava-dashboard"
	serverVersion = "1.0.0"
)

// ptr returns a pointer to the given value - useful for optional fields in structs
func ptr[T any](v T) *T {
	return &v
}

// Server wraps the MCP server and the dashboard service
type Server struct {
	mcp *mcp.Server
	svc *dashboard.Service
}

// MCPServer returns the underlying MCP server (for use with HTTP/SSE transport)
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// New creates a new MCP server with the dashboard tools
func New(svc *dashboard.Service) *Server {
	logging.Info("MCP server initializing", "name", serverName, "version", serverVersion)

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: serverVersion,
	}, nil)

	s := &Server{
		mcp: mcpServer,
		svc: svc,
	}

	logging.Debug("Registering MCP tools")
	s.registerTools()

	logging.Debug("Registering MCP resources")
	s.registerResources()

	logging.Debug("Registering MCP prompts")
	s.registerPrompts()

	logging.Info("MCP server initialized", "tools_registered", 6, "resources_registered", 2, "prompts_registered", 1)
	return s
}

// Run starts the MCP server over stdio transport
func (s *Server) Run(ctx context.Context) error {
	logging.Info("MCP server starting")
	defer logging.Info("MCP server stopped")
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// SSEHandler serves the MCP server over HTTP with server-sent events
func (s *Server) SSEHandler() http.Handler {
	return mcp.NewSSEHandler(func(r *http.Request) *mcp.Server {
		logging.Debug("SSE connection", "remote_addr", r.RemoteAddr)
		return s.mcp
	}, nil)
}

// snapshot returns the current dashboard state with optional per-call range
// and unit overrides. Empty values keep the stored preferences.
func (s *Server) snapshot(dateRange, startDate, endDate, unitSystem string) (dashboard.Snapshot, error) {
	snap := s.svc.Store().Snapshot()
	form := dashboard.PreferenceForm{
		UnitSystem: unitSystem,
		DateRange:  dateRange,
		Start:      startDate,
		End:        endDate,
	}
	prefs, err := form.Apply(snap.Preferences)
	if err != nil {
		return snap, invalidInput("invalid date range or unit system", err)
	}
	return snap.WithPreferences(prefs), nil
}
