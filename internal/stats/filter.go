// Package stats computes dashboard statistics over normalized activities.
// Every function is pure: the current time is always passed in explicitly and
// empty inputs produce zero values rather than errors.
package stats

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joshdurbin/strava-dashboard/internal/activity"
)

// RangeKind selects how a DateRange bounds activities
type RangeKind string

const (
	// RangeAll applies no bounds
	RangeAll RangeKind = "all"
	// RangeLastDays covers the last Days calendar days, today included
	RangeLastDays RangeKind = "last_days"
	// RangeLastMonths covers today back to the same day Months months ago
	RangeLastMonths RangeKind = "last_months"
	// RangeYTD starts on January 1 of the current year
	RangeYTD RangeKind = "ytd"
	// RangeCustom uses Start and an optional End, both inclusive
	RangeCustom RangeKind = "custom"
)

// ErrUnknownRange is returned for unparseable range presets
var ErrUnknownRange = errors.New("unknown date range")

// DateRange is a tagged date filter. Dates are calendar days; the time of day
// of Start and End is ignored.
type DateRange struct {
	Kind   RangeKind  `json:"kind"`
	Days   int        `json:"days,omitempty"`
	Months int        `json:"months,omitempty"`
	Start  time.Time  `json:"start,omitempty"`
	End    *time.Time `json:"end,omitempty"`
}

// AllTime passes every activity through
func AllTime() DateRange { return DateRange{Kind: RangeAll} }

// LastDays covers today and the n-1 days before it
func LastDays(n int) DateRange { return DateRange{Kind: RangeLastDays, Days: n} }

// LastMonths covers today back to the same day n months ago
func LastMonths(n int) DateRange { return DateRange{Kind: RangeLastMonths, Months: n} }

// YearToDate covers January 1st of the current year onwards
func YearToDate() DateRange { return DateRange{Kind: RangeYTD} }

// Custom covers start through end inclusive; a nil end means today
func Custom(start time.Time, end *time.Time) DateRange {
	return DateRange{Kind: RangeCustom, Start: start, End: end}
}

// ParseRange parses a preset name: all, ytd, lastN (days), lastNmonths or
// custom. For custom, start is required and end optional (YYYY-MM-DD).
func ParseRange(preset, start, end string) (DateRange, error) {
	p := strings.ToLower(strings.TrimSpace(preset))
	switch {
	case p == "" || p == "all":
		return AllTime(), nil
	case p == "ytd":
		return YearToDate(), nil
	case p == "custom":
		if start == "" {
			return DateRange{}, fmt.Errorf("%w: custom range requires a start date", ErrUnknownRange)
		}
		s, err := time.Parse(time.DateOnly, start)
		if err != nil {
			return DateRange{}, fmt.Errorf("%w: start %q: %v", ErrUnknownRange, start, err)
		}
		var e *time.Time
		if end != "" {
			parsed, err := time.Parse(time.DateOnly, end)
			if err != nil {
				return DateRange{}, fmt.Errorf("%w: end %q: %v", ErrUnknownRange, end, err)
			}
			e = &parsed
		}
		return Custom(s, e), nil
	case strings.HasPrefix(p, "last") && strings.HasSuffix(p, "months"):
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(p, "last"), "months"))
		if err != nil || n < 1 {
			return DateRange{}, fmt.Errorf("%w: %q", ErrUnknownRange, preset)
		}
		return LastMonths(n), nil
	case strings.HasPrefix(p, "last"):
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(p, "last"), "days"))
		if err != nil || n < 1 {
			return DateRange{}, fmt.Errorf("%w: %q", ErrUnknownRange, preset)
		}
		return LastDays(n), nil
	}
	return DateRange{}, fmt.Errorf("%w: %q", ErrUnknownRange, preset)
}

// Preset returns the name ParseRange accepts for r (custom dates excluded)
func (r DateRange) Preset() string {
	switch r.Kind {
	case RangeLastDays:
		return fmt.Sprintf("last%d", max(r.Days, 1))
	case RangeLastMonths:
		return fmt.Sprintf("last%dmonths", max(r.Months, 1))
	case RangeYTD:
		return "ytd"
	case RangeCustom:
		return "custom"
	}
	return "all"
}

// String describes the range for logs and tool output
func (r DateRange) String() string {
	if r.Kind != RangeCustom {
		return r.Preset()
	}
	end := "today"
	if r.End != nil {
		end = r.End.Format(time.DateOnly)
	}
	return fmt.Sprintf("%s..%s", r.Start.Format(time.DateOnly), end)
}

// Midnight truncates t to its calendar date at midnight UTC, using t's own wall clock
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func addDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// daysBetween returns whole days from a to b (both calendar dates)
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

// Bounds returns the inclusive calendar-day bounds of r relative to now.
// A zero lower bound means unbounded below; a nil upper means unbounded above.
func Bounds(r DateRange, now time.Time) (lower time.Time, upper *time.Time) {
	today := Midnight(now)
	switch r.Kind {
	case RangeLastDays:
		return addDays(today, -(max(r.Days, 1) - 1)), nil
	case RangeLastMonths:
		return today.AddDate(0, -max(r.Months, 1), 0), nil
	case RangeYTD:
		return time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, time.UTC), nil
	case RangeCustom:
		end := today
		if r.End != nil {
			end = Midnight(*r.End)
		}
		return Midnight(r.Start), &end
	}
	return time.Time{}, nil
}

// FilterByRange returns the activities whose local start date falls within r,
// ordered by local start time. The input is not modified.
func FilterByRange(acts []activity.NormalizedActivity, r DateRange, now time.Time) []activity.NormalizedActivity {
	lower, upper := Bounds(r, now)

	out := make([]activity.NormalizedActivity, 0, len(acts))
	for _, a := range acts {
		d := a.Date()
		if !lower.IsZero() && d.Before(lower) {
			continue
		}
		if upper != nil && d.After(*upper) {
			continue
		}
		out = append(out, a)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartLocal.Before(out[j].StartLocal)
	})
	return out
}
