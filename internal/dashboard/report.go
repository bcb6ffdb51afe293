package dashboard

import (
	"fmt"
	"time"

	"github.com/joshdurbin/strava-dashboard/internal/observability"
	"github.com/joshdurbin/strava-dashboard/internal/stats"
	"github.com/joshdurbin/strava-dashboard/internal/units"
)

// ReportOptions selects the trend series and labels the caller for metrics
type ReportOptions struct {
	Granularity stats.Granularity
	TrendMode   stats.Mode
	Field       stats.Field
	Window      int
	// Surface is "api", "mcp" or "cli"
	Surface string
}

// ParseReportOptions parses the trend selection; empty values take defaults
func ParseReportOptions(granularity, mode, field string, window int) (ReportOptions, error) {
	g, err := stats.ParseGranularity(granularity)
	if err != nil {
		return ReportOptions{}, err
	}
	m, err := stats.ParseMode(mode)
	if err != nil {
		return ReportOptions{}, err
	}
	f := stats.FieldDistance
	if field != "" {
		if f, err = stats.ParseField(field); err != nil {
			return ReportOptions{}, err
		}
	}
	if window < 0 {
		return ReportOptions{}, fmt.Errorf("window must not be negative, got %d", window)
	}
	return ReportOptions{Granularity: g, TrendMode: m, Field: f, Window: window}, nil
}

// TrendOptions converts the trend selection for stats.ComputeTrend
func (o ReportOptions) TrendOptions() stats.TrendOptions {
	return stats.TrendOptions{
		Mode:        o.TrendMode,
		Granularity: o.Granularity,
		Field:       o.Field,
		Window:      o.Window,
	}
}

// Summary is the totals part of a report: overall totals, the sport
// breakdown and running stats
type Summary struct {
	Athlete string       `json:"athlete,omitempty"`
	Range   string       `json:"range"`
	Units   units.System `json:"unit_system"`
	Totals  TotalsView   `json:"totals"`
	Sports  []SportView  `json:"sports"`
	Running RunningView  `json:"running"`
}

// Report is everything a dashboard page shows for one snapshot
type Report struct {
	Summary
	GeneratedAt time.Time       `json:"generated_at"`
	LoadedAt    *time.Time      `json:"loaded_at,omitempty"`
	Histogram   stats.Histogram `json:"histogram"`
	Trend       stats.Trend     `json:"trend"`
	Timeline    TimelineView    `json:"timeline"`
	Insights    []Insight       `json:"insights"`
}

// TotalsView is stats.Totals with display strings
type TotalsView struct {
	stats.Totals
	Distance    string `json:"distance"`
	Time        string `json:"time"`
	AvgDistance string `json:"avg_distance"`
}

// SportView is one sport's line in the breakdown
type SportView struct {
	Sport       string  `json:"sport"`
	Count       int     `json:"count"`
	TimeSeconds int     `json:"time_s"`
	CountShare  float64 `json:"count_pct"`
	TimeShare   float64 `json:"time_pct"`
	Time        string  `json:"time"`
}

// RunView is a notable run with display strings
type RunView struct {
	stats.RunRecord
	Distance string `json:"distance"`
	Time     string `json:"time"`
	Pace     string `json:"pace"`
}

// RunningView is stats.RunningStats with display strings
type RunningView struct {
	TotalRuns     int      `json:"total_runs"`
	Runs10kPlus   int      `json:"runs_10k_plus"`
	TotalDistance string   `json:"total_distance"`
	TotalTime     string   `json:"total_time"`
	AvgPace       string   `json:"avg_pace"`
	Fastest10k    *RunView `json:"fastest_10k"`
	LongestRun    *RunView `json:"longest_run"`

	Stats stats.RunningStats `json:"raw"`
}

// TimelineView is the daily heatmap and its streak analysis
type TimelineView struct {
	Mode    stats.Mode          `json:"mode"`
	Domain  *stats.Domain       `json:"domain,omitempty"`
	Days    []stats.DayRecord   `json:"days"`
	Streaks stats.StreakSummary `json:"streaks"`
}

// BuildReport computes every dashboard section from snap's filtered
// activities, formatted in snap's unit system
func BuildReport(snap Snapshot, now time.Time, opts ReportOptions) Report {
	if opts.Surface != "" {
		defer observability.ObserveReport(opts.Surface, time.Now())
	}

	r := Report{
		Summary:     BuildSummary(snap),
		GeneratedAt: now,
		Histogram:   stats.ComputeHistogram(snap.Filtered, snap.Preferences.Units),
		Trend:       stats.ComputeTrend(snap.Filtered, opts.TrendOptions()),
	}
	if !snap.LoadedAt.IsZero() {
		loaded := snap.LoadedAt
		r.LoadedAt = &loaded
	}
	r.Timeline = BuildTimeline(snap, now)
	r.Insights = GenerateInsights(r.Timeline.Streaks, r.Trend, r.Totals.Totals)
	return r
}

// BuildSummary computes totals, the sport breakdown and running stats for
// snap's filtered activities
func BuildSummary(snap Snapshot) Summary {
	sys := snap.Preferences.Units
	acts := snap.Filtered

	sum := Summary{
		Range: snap.Preferences.Range.String(),
		Units: sys,
	}
	if snap.Athlete != nil {
		sum.Athlete = snap.Athlete.DisplayName()
	}

	totals := stats.ComputeTotals(acts)
	sum.Totals = TotalsView{
		Totals:      totals,
		Distance:    units.FormatDistance(totals.DistanceMeters, sys, units.DefaultDistanceDecimals),
		Time:        units.FormatDuration(totals.TimeSeconds),
		AvgDistance: units.FormatDistance(totals.AvgDistanceMeters, sys, units.DefaultDistanceDecimals),
	}
	sum.Sports = sportViews(stats.ComputeSportBreakdown(acts))
	sum.Running = runningView(stats.ComputeRunningStats(acts, sys), sys)
	return sum
}

// BuildTimeline computes the heatmap for snap's range and heatmap mode
func BuildTimeline(snap Snapshot, now time.Time) TimelineView {
	mode := snap.Preferences.HeatmapMode
	view := TimelineView{
		Mode: mode,
		Days: []stats.DayRecord{},
		Streaks: stats.StreakSummary{
			Gaps: []stats.Gap{},
		},
	}
	domain, ok := stats.ComputeDomain(snap.Preferences.Range, snap.Filtered, now)
	if !ok {
		return view
	}
	view.Domain = &domain
	view.Days = stats.ComputeDailyTimeline(snap.Filtered, domain, mode)
	view.Streaks = stats.ComputeStreaksAndGaps(view.Days, now)
	return view
}

func sportViews(b stats.SportBreakdown) []SportView {
	countShares := b.CountShares()
	timeShares := b.TimeShares()

	out := make([]SportView, 0, len(b))
	for _, sport := range b.Sports() {
		s := b[sport]
		out = append(out, SportView{
			Sport:       sport,
			Count:       s.Count,
			TimeSeconds: s.TimeSeconds,
			CountShare:  units.Round(countShares[sport], 1),
			TimeShare:   units.Round(timeShares[sport], 1),
			Time:        units.FormatDuration(s.TimeSeconds),
		})
	}
	return out
}

func runningView(rs stats.RunningStats, sys units.System) RunningView {
	return RunningView{
		TotalRuns:     rs.TotalRuns,
		Runs10kPlus:   rs.Runs10kPlus,
		TotalDistance: units.FormatDistance(rs.TotalDistanceMeters, sys, units.DefaultDistanceDecimals),
		TotalTime:     units.FormatDuration(rs.TotalTimeSeconds),
		AvgPace:       units.FormatPaceMinutes(rs.AvgPaceMinutes, sys),
		Fastest10k:    runView(rs.Fastest10k, sys),
		LongestRun:    runView(rs.LongestRun, sys),
		Stats:         rs,
	}
}

func runView(rec *stats.RunRecord, sys units.System) *RunView {
	if rec == nil {
		return nil
	}
	return &RunView{
		RunRecord: *rec,
		Distance:  units.FormatDistance(rec.DistanceMeters, sys, units.DefaultDistanceDecimals),
		Time:      units.FormatDuration(rec.MovingTimeSeconds),
		Pace:      units.FormatPaceMinutes(rec.PaceMinutes, sys),
	}
}
