package stats

import (
	"time"

	"github.com/joshdurbin/strava-dashboard/internal/activity"
)

// Domain is an inclusive span of calendar days
type Domain struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Days returns the number of calendar days in d, 0 when End precedes Start
func (d Domain) Days() int {
	if d.End.Before(d.Start) {
		return 0
	}
	return daysBetween(d.Start, d.End) + 1
}

// ComputeDomain returns the day span the timeline covers for r. For all-time
// it spans the earliest to the latest activity date and is not ok without
// activities. Relative ranges end today; custom ranges end at their end date.
// The domain is not ok when it would end before it starts.
func ComputeDomain(r DateRange, acts []activity.NormalizedActivity, now time.Time) (Domain, bool) {
	today := Midnight(now)
	var d Domain
	switch r.Kind {
	case RangeLastDays, RangeLastMonths, RangeYTD, RangeCustom:
		lower, upper := Bounds(r, now)
		d = Domain{Start: lower, End: today}
		if upper != nil {
			d.End = *upper
		}
	default:
		if len(acts) == 0 {
			return Domain{}, false
		}
		d = Domain{Start: acts[0].Date(), End: acts[0].Date()}
		for _, a := range acts[1:] {
			day := a.Date()
			if day.Before(d.Start) {
				d.Start = day
			}
			if day.After(d.End) {
				d.End = day
			}
		}
	}
	if d.End.Before(d.Start) {
		return Domain{}, false
	}
	return d, true
}

// DayRecord is one calendar day of the timeline
type DayRecord struct {
	Date           time.Time `json:"date"`
	Active         bool      `json:"active"`
	Count          int       `json:"count"`
	TimeSeconds    int       `json:"time_s"`
	DistanceMeters float64   `json:"distance_m"`
	Level          int       `json:"level"`
}

// Quantization thresholds for heatmap levels
const (
	runLevel2Meters  = 10000.0
	runLevel3Meters  = 15000.0
	timeLevel2Second = 3600
	timeLevel3Second = 7200
)

// Quantize maps a day's value to an intensity level 0-3. Running mode uses
// distance in meters (<10 km, <15 km, 15 km+), all mode uses moving seconds
// (<1h, <2h, 2h+).
func Quantize(value float64, mode Mode) int {
	if value <= 0 {
		return 0
	}
	if mode == ModeRunning {
		switch {
		case value < runLevel2Meters:
			return 1
		case value < runLevel3Meters:
			return 2
		}
		return 3
	}
	switch {
	case value < timeLevel2Second:
		return 1
	case value < timeLevel3Second:
		return 2
	}
	return 3
}

// dayValue is the quantity that makes a day active: distance for running,
// moving time otherwise
func dayValue(r DayRecord, mode Mode) float64 {
	if mode == ModeRunning {
		return r.DistanceMeters
	}
	return float64(r.TimeSeconds)
}

// ComputeDailyTimeline returns one record per day of domain, inactive days
// included. Only activities qualifying for mode are counted, and a day is
// active when its value is positive.
func ComputeDailyTimeline(acts []activity.NormalizedActivity, domain Domain, mode Mode) []DayRecord {
	n := domain.Days()
	days := make([]DayRecord, n)
	for i := range days {
		days[i].Date = addDays(domain.Start, i)
	}
	if n == 0 {
		return days
	}

	for _, a := range acts {
		if !mode.Qualifies(a) {
			continue
		}
		idx := daysBetween(domain.Start, a.Date())
		if a.Date().Before(domain.Start) || idx >= n {
			continue
		}
		days[idx].Count++
		days[idx].TimeSeconds += a.MovingTimeSeconds
		days[idx].DistanceMeters += a.DistanceMeters
	}

	for i := range days {
		v := dayValue(days[i], mode)
		days[i].Active = v > 0
		days[i].Level = Quantize(v, mode)
	}
	return days
}

// Gap is a maximal run of inactive days
type Gap struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Days  int       `json:"days"`
}

// StreakSummary is the streak and gap analysis of a timeline
type StreakSummary struct {
	CurrentStreak         int        `json:"current_streak"`
	LongestStreak         int        `json:"longest_streak"`
	Gaps                  []Gap      `json:"gaps"`
	LongestGap            *Gap       `json:"longest_gap"`
	DaysSinceLastActivity int        `json:"days_since_last_activity"`
	LastActiveDate        *time.Time `json:"last_active_date"`
	ActiveDays            int        `json:"active_days"`
	TotalDays             int        `json:"total_days"`
}

// ComputeStreaksAndGaps analyzes a contiguous, ascending timeline.
//
// The current streak counts active days backward from the last day that is not
// after today. Gaps are maximal inactive runs; one still open at the end of the
// timeline closes on its last day. Days since last activity is today minus the
// last active date not after today, or the number of days from the timeline
// start through today when there is none.
func ComputeStreaksAndGaps(days []DayRecord, today time.Time) StreakSummary {
	today = Midnight(today)
	s := StreakSummary{TotalDays: len(days), Gaps: []Gap{}}
	if len(days) == 0 {
		return s
	}

	run := 0
	gapStart := -1
	for i, d := range days {
		if d.Active {
			s.ActiveDays++
			run++
			s.LongestStreak = max(s.LongestStreak, run)
			date := d.Date
			s.LastActiveDate = &date
			if gapStart >= 0 {
				s.Gaps = append(s.Gaps, newGap(days, gapStart, i-1))
				gapStart = -1
			}
			continue
		}
		run = 0
		if gapStart < 0 {
			gapStart = i
		}
	}
	if gapStart >= 0 {
		s.Gaps = append(s.Gaps, newGap(days, gapStart, len(days)-1))
	}

	end := len(days) - 1
	for end >= 0 && days[end].Date.After(today) {
		end--
	}
	for i := end; i >= 0 && days[i].Active; i-- {
		s.CurrentStreak++
	}

	for i := range s.Gaps {
		if s.LongestGap == nil || s.Gaps[i].Days > s.LongestGap.Days {
			g := s.Gaps[i]
			s.LongestGap = &g
		}
	}

	last := end
	for last >= 0 && !days[last].Active {
		last--
	}
	switch {
	case last >= 0:
		s.DaysSinceLastActivity = daysBetween(days[last].Date, today)
	case end >= 0:
		s.DaysSinceLastActivity = daysBetween(days[0].Date, today) + 1
	}
	return s
}

func newGap(days []DayRecord, from, to int) Gap {
	return Gap{Start: days[from].Date, End: days[to].Date, Days: to - from + 1}
}
