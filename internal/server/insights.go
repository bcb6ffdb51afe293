package server

// SuggestedAction represents a suggested next tool call
type SuggestedAction struct {
	Tool        string `json:"tool"`        // Tool name to call
	Description string `json:"description"` // Why this action is suggested
	Priority    string `json:"priority"`    // "high", "medium", "low"
}

// SuggestNextActions suggests logical next tool calls based on context
func SuggestNextActions(context string) []SuggestedAction {
	suggestions := make([]SuggestedAction, 0)

	switch context {
	case "summary":
		suggestions = append(suggestions,
			SuggestedAction{
				Tool:        "get_trends",
				Description: "See how volume changes week to week",
				Priority:    "high",
			},
			SuggestedAction{
				Tool:        "get_streaks",
				Description: "Check consistency and rest gaps",
				Priority:    "medium",
			},
		)
	case "histogram":
		suggestions = append(suggestions,
			SuggestedAction{
				Tool:        "find_activities",
				Description: "List the runs behind a bin (sport=Run)",
				Priority:    "medium",
			},
			SuggestedAction{
				Tool:        "get_dashboard_summary",
				Description: "Compare with fastest 10k and longest run",
				Priority:    "low",
			},
		)
	case "trends":
		suggestions = append(suggestions,
			SuggestedAction{
				Tool:        "get_streaks",
				Description: "See which days the volume came from",
				Priority:    "medium",
			},
			SuggestedAction{
				Tool:        "get_trends",
				Description: "Switch granularity or field (pace, time, count)",
				Priority:    "low",
			},
		)
	case "streaks":
		suggestions = append(suggestions,
			SuggestedAction{
				Tool:        "find_activities",
				Description: "Look at the activities around a gap",
				Priority:    "medium",
			},
			SuggestedAction{
				Tool:        "get_trends",
				Description: "Check whether consistency shows up in volume",
				Priority:    "low",
			},
		)
	case "activities":
		suggestions = append(suggestions,
			SuggestedAction{
				Tool:        "get_dashboard_summary",
				Description: "Get aggregate stats for the same range",
				Priority:    "medium",
			},
			SuggestedAction{
				Tool:        "get_distance_histogram",
				Description: "See how run distances are distributed",
				Priority:    "low",
			},
		)
	case "preferences":
		suggestions = append(suggestions,
			SuggestedAction{
				Tool:        "get_dashboard_summary",
				Description: "View the dashboard with the new settings",
				Priority:    "high",
			},
		)
	}

	return suggestions
}
