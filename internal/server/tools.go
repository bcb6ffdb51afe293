package server

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/joshdurbin/strava-dashboard/internal/activity"
	"github.com/joshdurbin/strava-dashboard/internal/dashboard"
	"github.com/joshdurbin/strava-dashboard/internal/logging"
	"github.com/joshdurbin/strava-dashboard/internal/stats"
	"github.com/joshdurbin/strava-dashboard/internal/units"
)

// maxGaps caps the gaps listed by get_streaks, longest first
const maxGaps = 10

func (s *Server) registerTools() {
	logging.Debug("Registering tool", "name", "get_dashboard_summary")
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "get_dashboard_summary",
		Description: `Get the dashboard overview: totals, sport breakdown with count and time shares, and running stats.

Use when:
- User asks "How much did I train this year?" or "What's my sport mix?"
- User wants their fastest 10k, longest run or average pace

Parameters:
- range (string): all, ytd, lastN (days), lastNmonths or custom. Default: stored preference.
- start_date / end_date (string): custom range bounds, YYYY-MM-DD.
- units (string): metric or imperial.

Returns: Activity count, distance, moving time, per-sport shares, running stats and insights.

Example: {"range": "ytd"} or {"range": "last30", "units": "imperial"}`,
		Annotations: &mcp.ToolAnnotations{
			Title:           "Get Dashboard Summary",
			ReadOnlyHint:    true,
			IdempotentHint:  true,
			OpenWorldHint:   ptr(false),
			DestructiveHint: ptr(false),
		},
	}, s.getDashboardSummary)

	logging.Debug("Registering tool", "name", "get_distance_histogram")
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "get_distance_histogram",
		Description: `Get the distance histogram of running activities (2 km bins in metric, 1 mile bins in imperial).

Use when:
- User asks "What distances do I usually run?"

Parameters:
- range, start_date, end_date, units: as for get_dashboard_summary.

Returns: Bins with label, bounds and run count.

Example: {"range": "last90"}`,
		Annotations: &mcp.ToolAnnotations{
			Title:           "Get Distance Histogram",
			ReadOnlyHint:    true,
			IdempotentHint:  true,
			OpenWorldHint:   ptr(false),
			DestructiveHint: ptr(false),
		},
	}, s.getDistanceHistogram)

	logging.Debug("Registering tool", "name", "get_trends")
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "get_trends",
		Description: `Get activity volume per day, week, month or year, optionally restricted to running.

Use when:
- User asks "Am I running more than last month?" or "Weekly distance trend"

Parameters:
- granularity (string): day, week, month or year. Default: week.
- mode (string): all or running. Default: all.
- field (string): series used for smoothing and insights: count, distance, time or pace. Default: distance.
- window (integer): moving average window for daily series. Default: 7.
- range, start_date, end_date, units: as for get_dashboard_summary.

Returns: Buckets with count, distance, time and average run pace; daily series longer than the window carry a smoothed value.

Example: {"granularity": "month", "mode": "running"}`,
		Annotations: &mcp.ToolAnnotations{
			Title:           "Get Trends",
			ReadOnlyHint:    true,
			IdempotentHint:  true,
			OpenWorldHint:   ptr(false),
			DestructiveHint: ptr(false),
		},
	}, s.getTrends)

	logging.Debug("Registering tool", "name", "get_streaks")
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "get_streaks",
		Description: `Get the daily activity timeline with current and longest streaks, rest gaps and days since the last activity.

Use when:
- User asks "What's my current streak?" or "When did I last take a long break?"

Parameters:
- mode (string): all or running. Default: the stored heatmap mode.
- include_days (boolean): include every day of the timeline with its heatmap level.
- range, start_date, end_date: as for get_dashboard_summary.

Returns: Streak summary, longest gaps and insights.

Example: {"range": "last90", "mode": "running"}`,
		Annotations: &mcp.ToolAnnotations{
			Title:           "Get Streaks",
			ReadOnlyHint:    true,
			IdempotentHint:  true,
			OpenWorldHint:   ptr(false),
			DestructiveHint: ptr(false),
		},
	}, s.getStreaks)

	logging.Debug("Registering tool", "name", "find_activities")
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "find_activities",
		Description: `List recent activities in the selected range, newest first.

Use when:
- User asks "Show me my latest runs" or "What did I do last week?"
- User needs a specific activity by ID

Parameters:
- id (integer): Get a specific activity by its Strava ID, ignoring the range.
- sport (string): Filter by sport type (Run, Ride, Swim, Walk, ...). Case-insensitive.
- limit (integer): Number of activities to return. Default: 20, Max: 200.
- range, start_date, end_date, units: as for get_dashboard_summary.

Returns: Activities with local start time, distance, moving time, elevation and pace for runs.

Example: {"sport": "Run", "limit": 5}`,
		Annotations: &mcp.ToolAnnotations{
			Title:           "Find Activities",
			ReadOnlyHint:    true,
			IdempotentHint:  true,
			OpenWorldHint:   ptr(false),
			DestructiveHint: ptr(false),
		},
	}, s.findActivities)

	logging.Debug("Registering tool", "name", "set_preferences")
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "set_preferences",
		Description: `Change and save the dashboard preferences: date range, unit system and heatmap mode.

Use when:
- User says "Use miles from now on" or "Only show this year"

Parameters:
- range (string): date range preset, see get_dashboard_summary.
- start_date / end_date (string): custom range bounds, YYYY-MM-DD.
- units (string): metric or imperial.
- heatmap_mode (string): all or running.

Omitted parameters keep their current value.

Example: {"units": "imperial", "range": "ytd"}`,
		Annotations: &mcp.ToolAnnotations{
			Title:           "Set Preferences",
			ReadOnlyHint:    false,
			IdempotentHint:  true,
			OpenWorldHint:   ptr(false),
			DestructiveHint: ptr(false),
		},
	}, s.setPreferences)
}

// RangeInput selects the date range and unit system for one call
type RangeInput struct {
	Range     string `json:"range,omitempty" jsonschema:"Date range preset: all, ytd, last7, last30, last90, last6months, last365 or custom. Default: the stored preference."`
	StartDate string `json:"start_date,omitempty" jsonschema:"Start of a custom range. Format: YYYY-MM-DD. Implies range=custom."`
	EndDate   string `json:"end_date,omitempty" jsonschema:"End of a custom range, inclusive. Format: YYYY-MM-DD. Default: today."`
	Units     string `json:"units,omitempty" jsonschema:"Unit system for formatted values: metric or imperial. Default: the stored preference."`
}

// DashboardSummaryOutput - output for get_dashboard_summary
type DashboardSummaryOutput struct {
	Athlete          string              `json:"athlete,omitempty"`
	Range            string              `json:"range"`
	UnitSystem       string              `json:"unit_system"`
	Activities       int                 `json:"activities"`
	TotalDistance    string              `json:"total_distance"`
	TotalTime        string              `json:"total_time"`
	AvgDistance      string              `json:"avg_distance"`
	Sports           []dashboard.SportView `json:"sports"`
	Running          RunningSummary      `json:"running"`
	Insights         []dashboard.Insight `json:"insights,omitempty"`
	SuggestedActions []SuggestedAction   `json:"suggested_actions,omitempty"`
}

// RunningSummary is the running section of the summary
type RunningSummary struct {
	TotalRuns     int         `json:"total_runs"`
	Runs10kPlus   int         `json:"runs_10k_plus"`
	TotalDistance string      `json:"total_distance"`
	TotalTime     string      `json:"total_time"`
	AvgPace       string      `json:"avg_pace"`
	Fastest10k    *RunSummary `json:"fastest_10k,omitempty"`
	LongestRun    *RunSummary `json:"longest_run,omitempty"`
}

// RunSummary is a notable run
type RunSummary struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Date     string `json:"date"`
	Distance string `json:"distance"`
	Time     string `json:"time"`
	Pace     string `json:"pace"`
}

func (s *Server) getDashboardSummary(ctx context.Context, req *mcp.CallToolRequest, input RangeInput) (*mcp.CallToolResult, DashboardSummaryOutput, error) {
	logging.Info("MCP tool call", "tool", "get_dashboard_summary", "range", input.Range, "units", input.Units)
	if logging.IsVerbose() {
		logging.Debug("MCP request params", "tool", "get_dashboard_summary", "input", logging.ToJSON(input))
	}

	snap, err := s.snapshot(input.Range, input.StartDate, input.EndDate, input.Units)
	if err != nil {
		return nil, DashboardSummaryOutput{}, err
	}
	report := dashboard.BuildReport(snap, snap.Now, dashboard.ReportOptions{Surface: "mcp"})
	output := convertSummary(report.Summary)
	output.Insights = report.Insights
	output.SuggestedActions = SuggestNextActions("summary")
	return nil, output, nil
}

func convertSummary(sum dashboard.Summary) DashboardSummaryOutput {
	return DashboardSummaryOutput{
		Athlete:       sum.Athlete,
		Range:         sum.Range,
		UnitSystem:    sum.Units.String(),
		Activities:    sum.Totals.Count,
		TotalDistance: sum.Totals.Distance,
		TotalTime:     sum.Totals.Time,
		AvgDistance:   sum.Totals.AvgDistance,
		Sports:        sum.Sports,
		Running: RunningSummary{
			TotalRuns:     sum.Running.TotalRuns,
			Runs10kPlus:   sum.Running.Runs10kPlus,
			TotalDistance: sum.Running.TotalDistance,
			TotalTime:     sum.Running.TotalTime,
			AvgPace:       sum.Running.AvgPace,
			Fastest10k:    convertRun(sum.Running.Fastest10k),
			LongestRun:    convertRun(sum.Running.LongestRun),
		},
	}
}

func convertRun(v *dashboard.RunView) *RunSummary {
	if v == nil {
		return nil
	}
	return &RunSummary{
		ID:       v.ID,
		Name:     v.Name,
		Date:     v.RunRecord.Date.Format(time.DateOnly),
		Distance: v.Distance,
		Time:     v.Time,
		Pace:     v.Pace,
	}
}

// HistogramOutput - output for get_distance_histogram
type HistogramOutput struct {
	Range            string            `json:"range"`
	UnitSystem       string            `json:"unit_system"`
	Unit             string            `json:"unit"`
	BinWidth         float64           `json:"bin_width"`
	TotalRuns        int               `json:"total_runs"`
	Bins             []stats.Bin       `json:"bins"`
	SuggestedActions []SuggestedAction `json:"suggested_actions,omitempty"`
}

func (s *Server) getDistanceHistogram(ctx context.Context, req *mcp.CallToolRequest, input RangeInput) (*mcp.CallToolResult, HistogramOutput, error) {
	logging.Info("MCP tool call", "tool", "get_distance_histogram", "range", input.Range, "units", input.Units)

	snap, err := s.snapshot(input.Range, input.StartDate, input.EndDate, input.Units)
	if err != nil {
		return nil, HistogramOutput{}, err
	}
	sys := snap.Preferences.Units
	h := stats.ComputeHistogram(snap.Filtered, sys)

	output := HistogramOutput{
		Range:            snap.Preferences.Range.String(),
		UnitSystem:       sys.String(),
		Unit:             h.Unit,
		BinWidth:         h.BinWidth,
		Bins:             h.Bins,
		SuggestedActions: SuggestNextActions("histogram"),
	}
	for _, b := range h.Bins {
		output.TotalRuns += b.Count
	}
	return nil, output, nil
}

// TrendsInput - input for get_trends
type TrendsInput struct {
	Granularity string `json:"granularity,omitempty" jsonschema:"Bucket size: day, week, month or year. Default: week."`
	Mode        string `json:"mode,omitempty" jsonschema:"Which activities count: all or running. Default: all."`
	Field       string `json:"field,omitempty" jsonschema:"Series used for smoothing and insights: count, distance, time or pace. Default: distance."`
	Window      int    `json:"window,omitempty" jsonschema:"Moving average window for daily series. Default: 7."`
	Range       string `json:"range,omitempty" jsonschema:"Date range preset: all, ytd, last7, last30, last90, last6months, last365 or custom. Default: the stored preference."`
	StartDate   string `json:"start_date,omitempty" jsonschema:"Start of a custom range. Format: YYYY-MM-DD. Implies range=custom."`
	EndDate     string `json:"end_date,omitempty" jsonschema:"End of a custom range, inclusive. Format: YYYY-MM-DD. Default: today."`
	Units       string `json:"units,omitempty" jsonschema:"Unit system for formatted values: metric or imperial. Default: the stored preference."`
}

// TrendsOutput - output for get_trends
type TrendsOutput struct {
	Range            string              `json:"range"`
	UnitSystem       string              `json:"unit_system"`
	Granularity      string              `json:"granularity"`
	Mode             string              `json:"mode"`
	Field            string              `json:"field"`
	Window           int                 `json:"window"`
	Smoothed         bool                `json:"smoothed"`
	Buckets          []TrendBucket       `json:"buckets"`
	Insights         []dashboard.Insight `json:"insights,omitempty"`
	SuggestedActions []SuggestedAction   `json:"suggested_actions,omitempty"`
}

// TrendBucket is one formatted trend bucket
type TrendBucket struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Start    string `json:"start"`
	Count    int    `json:"count"`
	Distance string `json:"distance"`
	Time     string `json:"time"`
	// AvgRunPace is empty when the bucket has no running distance
	AvgRunPace string `json:"avg_run_pace,omitempty"`
	// Smoothed is the moving average of the selected field in raw units
	// (meters, seconds, seconds per km or a count)
	Smoothed *float64 `json:"smoothed,omitempty"`
}

func (s *Server) getTrends(ctx context.Context, req *mcp.CallToolRequest, input TrendsInput) (*mcp.CallToolResult, TrendsOutput, error) {
	logging.Info("MCP tool call", "tool", "get_trends", "granularity", input.Granularity, "mode", input.Mode, "range", input.Range)
	if logging.IsVerbose() {
		logging.Debug("MCP request params", "tool", "get_trends", "input", logging.ToJSON(input))
	}

	opts, err := dashboard.ParseReportOptions(input.Granularity, input.Mode, input.Field, input.Window)
	if err != nil {
		return nil, TrendsOutput{}, invalidInput("invalid trend options", err)
	}
	snap, err := s.snapshot(input.Range, input.StartDate, input.EndDate, input.Units)
	if err != nil {
		return nil, TrendsOutput{}, err
	}

	sys := snap.Preferences.Units
	trend := stats.ComputeTrend(snap.Filtered, opts.TrendOptions())
	output := TrendsOutput{
		Range:            snap.Preferences.Range.String(),
		UnitSystem:       sys.String(),
		Granularity:      string(trend.Granularity),
		Mode:             string(trend.Mode),
		Field:            string(trend.Field),
		Window:           trend.Window,
		Smoothed:         trend.Smoothed,
		Buckets:          make([]TrendBucket, 0, len(trend.Buckets)),
		SuggestedActions: SuggestNextActions("trends"),
	}
	for _, b := range trend.Buckets {
		output.Buckets = append(output.Buckets, convertBucket(b, sys))
	}

	// only trend-driven insights; streaks have their own tool
	output.Insights = dashboard.GenerateInsights(stats.StreakSummary{}, trend, stats.ComputeTotals(snap.Filtered))
	return nil, output, nil
}

func convertBucket(b stats.Bucket, sys units.System) TrendBucket {
	tb := TrendBucket{
		Key:      b.Key,
		Label:    b.Label,
		Start:    b.Start.Format(time.DateOnly),
		Count:    b.Count,
		Distance: units.FormatDistance(b.DistanceMeters, sys, units.DefaultDistanceDecimals),
		Time:     units.FormatDuration(b.TimeSeconds),
	}
	if b.AvgPaceSecPerKm != nil && *b.AvgPaceSecPerKm > 0 {
		tb.AvgRunPace = units.FormatPace(1000 / *b.AvgPaceSecPerKm, sys)
	}
	if b.Smoothed != nil {
		tb.Smoothed = ptr(units.Round(*b.Smoothed, 2))
	}
	return tb
}

// StreaksInput - input for get_streaks
type StreaksInput struct {
	Mode        string `json:"mode,omitempty" jsonschema:"Which activities make a day active: all or running. Default: the stored heatmap mode."`
	IncludeDays bool   `json:"include_days,omitempty" jsonschema:"Include every day of the timeline with its heatmap level (0-3)."`
	Range       string `json:"range,omitempty" jsonschema:"Date range preset: all, ytd, last7, last30, last90, last6months, last365 or custom. Default: the stored preference."`
	StartDate   string `json:"start_date,omitempty" jsonschema:"Start of a custom range. Format: YYYY-MM-DD. Implies range=custom."`
	EndDate     string `json:"end_date,omitempty" jsonschema:"End of a custom range, inclusive. Format: YYYY-MM-DD. Default: today."`
}

// StreaksOutput - output for get_streaks
type StreaksOutput struct {
	Range                 string              `json:"range"`
	Mode                  string              `json:"mode"`
	From                  string              `json:"from,omitempty"`
	To                    string              `json:"to,omitempty"`
	TotalDays             int                 `json:"total_days"`
	ActiveDays            int                 `json:"active_days"`
	CurrentStreak         int                 `json:"current_streak"`
	LongestStreak         int                 `json:"longest_streak"`
	DaysSinceLastActivity int                 `json:"days_since_last_activity"`
	LastActiveDate        string              `json:"last_active_date,omitempty"`
	LongestGap            *GapSummary         `json:"longest_gap,omitempty"`
	Gaps                  []GapSummary        `json:"gaps"`
	Days                  []DaySummary        `json:"days,omitempty"`
	Insights              []dashboard.Insight `json:"insights,omitempty"`
	SuggestedActions      []SuggestedAction   `json:"suggested_actions,omitempty"`
}

// GapSummary is a run of inactive days
type GapSummary struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Days  int    `json:"days"`
}

// DaySummary is one timeline day
type DaySummary struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
	Level int    `json:"level"`
}

func (s *Server) getStreaks(ctx context.Context, req *mcp.CallToolRequest, input StreaksInput) (*mcp.CallToolResult, StreaksOutput, error) {
	logging.Info("MCP tool call", "tool", "get_streaks", "mode", input.Mode, "range", input.Range)

	snap, err := s.snapshot(input.Range, input.StartDate, input.EndDate, "")
	if err != nil {
		return nil, StreaksOutput{}, err
	}
	if input.Mode != "" {
		mode, err := stats.ParseMode(input.Mode)
		if err != nil {
			return nil, StreaksOutput{}, invalidInput("invalid mode", err)
		}
		snap.Preferences.HeatmapMode = mode
	}

	output := buildStreaks(snap, input.IncludeDays)
	output.SuggestedActions = SuggestNextActions("streaks")
	return nil, output, nil
}

func buildStreaks(snap dashboard.Snapshot, includeDays bool) StreaksOutput {
	tl := dashboard.BuildTimeline(snap, snap.Now)
	st := tl.Streaks

	output := StreaksOutput{
		Range:                 snap.Preferences.Range.String(),
		Mode:                  string(tl.Mode),
		TotalDays:             st.TotalDays,
		ActiveDays:            st.ActiveDays,
		CurrentStreak:         st.CurrentStreak,
		LongestStreak:         st.LongestStreak,
		DaysSinceLastActivity: st.DaysSinceLastActivity,
		Gaps:                  longestGaps(st.Gaps, maxGaps),
		Insights:              dashboard.GenerateInsights(st, stats.Trend{}, stats.ComputeTotals(snap.Filtered)),
	}
	if tl.Domain != nil {
		output.From = tl.Domain.Start.Format(time.DateOnly)
		output.To = tl.Domain.End.Format(time.DateOnly)
	}
	if st.LastActiveDate != nil {
		output.LastActiveDate = st.LastActiveDate.Format(time.DateOnly)
	}
	if st.LongestGap != nil {
		g := convertGap(*st.LongestGap)
		output.LongestGap = &g
	}
	if includeDays {
		output.Days = make([]DaySummary, 0, len(tl.Days))
		for _, d := range tl.Days {
			output.Days = append(output.Days, DaySummary{
				Date:  d.Date.Format(time.DateOnly),
				Count: d.Count,
				Level: d.Level,
			})
		}
	}
	return output
}

// longestGaps returns up to n gaps, longest first; ties keep date order
func longestGaps(gaps []stats.Gap, n int) []GapSummary {
	out := make([]GapSummary, 0, min(len(gaps), n))
	used := make([]bool, len(gaps))
	for len(out) < n && len(out) < len(gaps) {
		best := -1
		for i, g := range gaps {
			if !used[i] && (best < 0 || g.Days > gaps[best].Days) {
				best = i
			}
		}
		used[best] = true
		out = append(out, convertGap(gaps[best]))
	}
	return out
}

func convertGap(g stats.Gap) GapSummary {
	return GapSummary{
		Start: g.Start.Format(time.DateOnly),
		End:   g.End.Format(time.DateOnly),
		Days:  g.Days,
	}
}

// FindActivitiesInput - input for find_activities
type FindActivitiesInput struct {
	ID        int64  `json:"id,omitempty" jsonschema:"Get a specific activity by its Strava activity ID. When set, the range and filters are ignored."`
	Sport     string `json:"sport,omitempty" jsonschema:"Filter by sport type, case-insensitive. Common values: Run, TrailRun, Ride, Swim, Walk, Hike."`
	Limit     int    `json:"limit,omitempty" jsonschema:"Maximum number of activities to return. Default: 20, Maximum: 200."`
	Range     string `json:"range,omitempty" jsonschema:"Date range preset: all, ytd, last7, last30, last90, last6months, last365 or custom. Default: the stored preference."`
	StartDate string `json:"start_date,omitempty" jsonschema:"Start of a custom range. Format: YYYY-MM-DD. Implies range=custom."`
	EndDate   string `json:"end_date,omitempty" jsonschema:"End of a custom range, inclusive. Format: YYYY-MM-DD. Default: today."`
	Units     string `json:"units,omitempty" jsonschema:"Unit system for formatted values: metric or imperial. Default: the stored preference."`
}

// FindActivitiesOutput - output for activity search
type FindActivitiesOutput struct {
	Range            string            `json:"range"`
	UnitSystem       string            `json:"unit_system"`
	TotalMatching    int               `json:"total_matching"`
	Activities       []ActivitySummary `json:"activities"`
	SuggestedActions []SuggestedAction `json:"suggested_actions,omitempty"`
}

// ActivitySummary is a formatted activity
type ActivitySummary struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Sport       string `json:"sport"`
	Date        string `json:"date"`
	StartLocal  string `json:"start_local"`
	TimeZone    string `json:"timezone,omitempty"`
	Distance    string `json:"distance"`
	MovingTime  string `json:"moving_time"`
	ElapsedTime string `json:"elapsed_time"`
	Elevation   string `json:"elevation"`
	Pace        string `json:"pace,omitempty"`
}

func (s *Server) findActivities(ctx context.Context, req *mcp.CallToolRequest, input FindActivitiesInput) (*mcp.CallToolResult, FindActivitiesOutput, error) {
	logging.Info("MCP tool call", "tool", "find_activities", "id", input.ID, "sport", input.Sport, "limit", input.Limit, "range", input.Range)
	if logging.IsVerbose() {
		logging.Debug("MCP request params", "tool", "find_activities", "input", logging.ToJSON(input))
	}

	if input.Limit < 0 || input.Limit > dashboard.MaxActivityLimit {
		return nil, FindActivitiesOutput{}, invalidInput(fmt.Sprintf("limit must be between 1 and %d", dashboard.MaxActivityLimit), nil)
	}
	snap, err := s.snapshot(input.Range, input.StartDate, input.EndDate, input.Units)
	if err != nil {
		return nil, FindActivitiesOutput{}, err
	}
	sys := snap.Preferences.Units

	output := FindActivitiesOutput{
		Range:            snap.Preferences.Range.String(),
		UnitSystem:       sys.String(),
		Activities:       []ActivitySummary{},
		SuggestedActions: SuggestNextActions("activities"),
	}

	if input.ID > 0 {
		for _, a := range snap.Activities {
			if a.ID == input.ID {
				byID := snap
				byID.Filtered = []activity.NormalizedActivity{a}
				output.Range = "any"
				output.Activities = convertActivities(dashboard.RecentActivities(byID, "", 1))
				output.TotalMatching = 1
				return nil, output, nil
			}
		}
		return nil, FindActivitiesOutput{}, notFound(fmt.Sprintf("activity %d", input.ID))
	}

	all := dashboard.RecentActivities(snap, input.Sport, dashboard.MaxActivityLimit)
	output.TotalMatching = len(all)
	limit := input.Limit
	if limit == 0 {
		limit = dashboard.DefaultActivityLimit
	}
	if len(all) > limit {
		all = all[:limit]
	}
	output.Activities = convertActivities(all)
	return nil, output, nil
}

func convertActivities(views []dashboard.ActivityView) []ActivitySummary {
	result := make([]ActivitySummary, len(views))
	for i, v := range views {
		a := v.Activity
		result[i] = ActivitySummary{
			ID:          a.ID,
			Name:        a.Name,
			Sport:       v.Sport,
			Date:        v.Date,
			StartLocal:  a.StartLocal.Format(activity.LocalLayout),
			Distance:    v.Distance,
			MovingTime:  v.Time,
			ElapsedTime: units.FormatDuration(a.ElapsedTimeSeconds),
			Elevation:   v.Elevation,
			Pace:        v.Pace,
		}
		if a.TimeZoneID != nil {
			result[i].TimeZone = *a.TimeZoneID
		}
	}
	return result
}

// SetPreferencesInput - input for set_preferences
type SetPreferencesInput struct {
	Range       string `json:"range,omitempty" jsonschema:"Date range preset: all, ytd, last7, last30, last90, last6months, last365 or custom."`
	StartDate   string `json:"start_date,omitempty" jsonschema:"Start of a custom range. Format: YYYY-MM-DD. Implies range=custom."`
	EndDate     string `json:"end_date,omitempty" jsonschema:"End of a custom range, inclusive. Format: YYYY-MM-DD."`
	Units       string `json:"units,omitempty" jsonschema:"Unit system: metric or imperial."`
	HeatmapMode string `json:"heatmap_mode,omitempty" jsonschema:"Which activities the daily heatmap counts: all or running."`
}

// SetPreferencesOutput - output for set_preferences
type SetPreferencesOutput struct {
	Preferences      dashboard.PreferenceForm `json:"preferences"`
	Range            string                   `json:"range"`
	ActivitiesInView int                      `json:"activities_in_view"`
	SuggestedActions []SuggestedAction        `json:"suggested_actions,omitempty"`
}

func (s *Server) setPreferences(ctx context.Context, req *mcp.CallToolRequest, input SetPreferencesInput) (*mcp.CallToolResult, SetPreferencesOutput, error) {
	logging.Info("MCP tool call", "tool", "set_preferences", "range", input.Range, "units", input.Units, "heatmap_mode", input.HeatmapMode)

	store := s.svc.Store()
	form := dashboard.PreferenceForm{
		UnitSystem:  input.Units,
		DateRange:   input.Range,
		Start:       input.StartDate,
		End:         input.EndDate,
		HeatmapMode: input.HeatmapMode,
	}
	prefs, err := form.Apply(store.Preferences())
	if err != nil {
		return nil, SetPreferencesOutput{}, invalidInput("invalid preferences", err)
	}
	if err := s.svc.SavePreferences(ctx, prefs); err != nil {
		return nil, SetPreferencesOutput{}, databaseError("save preferences", err)
	}

	snap := store.Snapshot()
	return nil, SetPreferencesOutput{
		Preferences:      dashboard.FormOf(snap.Preferences),
		Range:            snap.Preferences.Range.String(),
		ActivitiesInView: len(snap.Filtered),
		SuggestedActions: SuggestNextActions("preferences"),
	}, nil
}
