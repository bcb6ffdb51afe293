package server

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/joshdurbin/strava-dashboard/internal/logging"
)

// registerPrompts registers all MCP prompts for the server
func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(&mcp.Prompt{
		Name:        "weekly_review",
		Description: "Review the last week of training against the longer trend",
		Arguments: []*mcp.PromptArgument{
			{
				Name:        "units",
				Description: "Unit system for the review: 'metric' or 'imperial'. Leave empty for the saved preference.",
				Required:    false,
			},
		},
	}, s.weeklyReviewPrompt)

	logging.Debug("MCP prompts registered", "count", 1)
}

// weeklyReviewPrompt generates a prompt for a weekly training review
func (s *Server) weeklyReviewPrompt(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	unitSystem := s.svc.Store().Preferences().Units.String()
	if req != nil && req.Params != nil && req.Params.Arguments != nil {
		if u, ok := req.Params.Arguments["units"]; ok && u != "" {
			unitSystem = u
		}
	}

	logging.Info("MCP prompt requested", "prompt", "weekly_review", "units", unitSystem)

	promptText := fmt.Sprintf(`Please review my last week of training.

Use the following tools to gather data (units="%[1]s"):
1. **get_dashboard_summary** with range="last7" for the week's totals and sport mix
2. **get_trends** with granularity="week" and range="last90" to compare against recent weeks
3. **get_streaks** with range="last30" to check consistency and rest days
4. **find_activities** with range="last7" to list the individual sessions

Then provide:
- **Summary**: Activities, distance and moving time for the week
- **Comparison**: How this week compares to the previous weeks
- **Consistency**: Current streak and any long breaks
- **Highlights**: Long runs or a fast 10k
- **Recommendations**: Suggestions for the coming week

Please be specific with numbers and use the actual data from the tools.`, unitSystem)

	return &mcp.GetPromptResult{
		Description: "Weekly training review prompt",
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: promptText},
			},
		},
	}, nil
}
