package dashboard

import (
	"fmt"
	"math"

	"github.com/joshdurbin/strava-dashboard/internal/stats"
)

// Insight is a short observation about the current report
type Insight struct {
	Type    string `json:"type"` // "trend", "achievement", "warning" or "suggestion"
	Message string `json:"message"`
}

// GenerateInsights looks at streaks, the latest trend buckets and the totals.
// The result is never nil.
func GenerateInsights(streaks stats.StreakSummary, trend stats.Trend, totals stats.Totals) []Insight {
	insights := []Insight{}
	if totals.Count == 0 {
		return append(insights, Insight{
			Type:    "suggestion",
			Message: "No activities in this range yet. Widen the date range or sync again.",
		})
	}

	insights = append(insights, streakInsights(streaks)...)

	n := len(trend.Buckets)
	if n >= 2 {
		field := trend.Field
		cur, prev := trend.Buckets[n-1].Value(field), trend.Buckets[n-2].Value(field)
		if cur != nil && prev != nil {
			insights = append(insights, progressInsights(*cur, *prev, fieldLabel(field, trend.Granularity), field != stats.FieldPace)...)
		}
	}
	if n >= 4 {
		insights = append(insights, loadInsights(trend.Buckets, trend.Granularity)...)
	}
	return insights
}

func streakInsights(s stats.StreakSummary) []Insight {
	var insights []Insight
	switch {
	case s.CurrentStreak >= 3 && s.CurrentStreak == s.LongestStreak:
		insights = append(insights, Insight{
			Type:    "achievement",
			Message: fmt.Sprintf("You're on your longest streak: %d days in a row", s.CurrentStreak),
		})
	case s.CurrentStreak >= 3:
		insights = append(insights, Insight{
			Type:    "achievement",
			Message: fmt.Sprintf("%d day streak, %d short of your best", s.CurrentStreak, s.LongestStreak-s.CurrentStreak),
		})
	}

	if s.LastActiveDate != nil && s.DaysSinceLastActivity >= 7 {
		insights = append(insights, Insight{
			Type:    "warning",
			Message: fmt.Sprintf("%d days since your last activity", s.DaysSinceLastActivity),
		})
	}
	if s.TotalDays > 0 {
		pct := float64(s.ActiveDays) / float64(s.TotalDays) * 100
		insights = append(insights, Insight{
			Type:    "trend",
			Message: fmt.Sprintf("Active on %d of %d days (%.0f%%)", s.ActiveDays, s.TotalDays, pct),
		})
	}
	if s.LongestGap != nil && s.LongestGap.Days >= 14 {
		insights = append(insights, Insight{
			Type: "trend",
			Message: fmt.Sprintf("Longest break: %d days (%s to %s)", s.LongestGap.Days,
				s.LongestGap.Start.Format("Jan 2 2006"), s.LongestGap.End.Format("Jan 2 2006")),
		})
	}
	return insights
}

// progressInsights compares the latest bucket with the one before it
func progressInsights(currentValue, previousValue float64, metric string, higherIsBetter bool) []Insight {
	if previousValue == 0 {
		return nil
	}

	changePercent := (currentValue - previousValue) / previousValue * 100
	improving := (higherIsBetter && changePercent > 0) || (!higherIsBetter && changePercent < 0)
	absChange := math.Abs(changePercent)

	switch {
	case absChange < 5:
		return []Insight{{
			Type:    "trend",
			Message: fmt.Sprintf("Your %s is stable (%.1f%% change)", metric, changePercent),
		}}
	case improving:
		intensity := "improving"
		if absChange > 20 {
			intensity = "significantly improving"
		}
		return []Insight{{
			Type:    "achievement",
			Message: fmt.Sprintf("Your %s is %s (%.1f%% better)", metric, intensity, absChange),
		}}
	default:
		intensity := "declining"
		if absChange > 20 {
			intensity = "significantly declining"
		}
		return []Insight{{
			Type:    "warning",
			Message: fmt.Sprintf("Your %s is %s (%.1f%% worse)", metric, intensity, absChange),
		}}
	}
}

// loadInsights compares the latest bucket's training time with the mean of
// the buckets before it
func loadInsights(buckets []stats.Bucket, g stats.Granularity) []Insight {
	last := buckets[len(buckets)-1]
	var sum float64
	for _, b := range buckets[:len(buckets)-1] {
		sum += float64(b.TimeSeconds)
	}
	avg := sum / float64(len(buckets)-1)
	if avg == 0 {
		return nil
	}

	period := periodName(g)
	ratio := float64(last.TimeSeconds) / avg
	switch {
	case ratio > 1.3:
		return []Insight{{
			Type:    "warning",
			Message: fmt.Sprintf("Training time this %s is %.0f%% above your average - consider recovery", period, (ratio-1)*100),
		}}
	case ratio > 1.1:
		return []Insight{{
			Type:    "trend",
			Message: fmt.Sprintf("Training time this %s is %.0f%% above average", period, (ratio-1)*100),
		}}
	case ratio < 0.7:
		return []Insight{{
			Type:    "suggestion",
			Message: fmt.Sprintf("Training time this %s is %.0f%% below average - planned recovery or time to ramp up?", period, (1-ratio)*100),
		}}
	}
	return []Insight{{
		Type:    "trend",
		Message: fmt.Sprintf("Training time this %s is consistent with your average", period),
	}}
}

func fieldLabel(f stats.Field, g stats.Granularity) string {
	adj := map[stats.Granularity]string{
		stats.Day:   "daily",
		stats.Week:  "weekly",
		stats.Month: "monthly",
		stats.Year:  "yearly",
	}[g]
	if adj == "" {
		adj = "weekly"
	}
	switch f {
	case stats.FieldCount:
		return adj + " activity count"
	case stats.FieldTime:
		return adj + " training time"
	case stats.FieldPace:
		return "running pace"
	}
	return adj + " distance"
}

func periodName(g stats.Granularity) string {
	switch g {
	case stats.Day:
		return "day"
	case stats.Month:
		return "month"
	case stats.Year:
		return "year"
	}
	return "week"
}
