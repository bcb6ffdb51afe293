package stats

import (
	"sort"

	"github.com/joshdurbin/strava-dashboard/internal/activity"
)

// Totals summarizes a set of activities
type Totals struct {
	Count             int     `json:"count"`
	DistanceMeters    float64 `json:"distance_m"`
	TimeSeconds       int     `json:"time_s"`
	AvgDistanceMeters float64 `json:"avg_distance_m"`
}

// ComputeTotals sums count, distance and moving time. The average distance is 0
// for an empty set.
func ComputeTotals(acts []activity.NormalizedActivity) Totals {
	var t Totals
	for _, a := range acts {
		t.Count++
		t.DistanceMeters += a.DistanceMeters
		t.TimeSeconds += a.MovingTimeSeconds
	}
	if t.Count > 0 {
		t.AvgDistanceMeters = t.DistanceMeters / float64(t.Count)
	}
	return t
}

// SportStat is the per-sport share of a breakdown
type SportStat struct {
	Count       int `json:"count"`
	TimeSeconds int `json:"time_s"`
}

// SportBreakdown maps a sport label (activity.UnknownSport when absent) to its stats
type SportBreakdown map[string]SportStat

// ComputeSportBreakdown groups activities by resolved sport type
func ComputeSportBreakdown(acts []activity.NormalizedActivity) SportBreakdown {
	out := make(SportBreakdown)
	for _, a := range acts {
		label := a.SportLabel()
		s := out[label]
		s.Count++
		s.TimeSeconds += a.MovingTimeSeconds
		out[label] = s
	}
	return out
}

// CountShares returns each sport's percentage of the activity count
func (b SportBreakdown) CountShares() map[string]float64 {
	values := make(map[string]float64, len(b))
	for k, v := range b {
		values[k] = float64(v.Count)
	}
	return Percentages(values)
}

// TimeShares returns each sport's percentage of the moving time
func (b SportBreakdown) TimeShares() map[string]float64 {
	values := make(map[string]float64, len(b))
	for k, v := range b {
		values[k] = float64(v.TimeSeconds)
	}
	return Percentages(values)
}

// Sports returns the sport labels ordered by count descending, then name
func (b SportBreakdown) Sports() []string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if b[keys[i]].Count != b[keys[j]].Count {
			return b[keys[i]].Count > b[keys[j]].Count
		}
		return keys[i] < keys[j]
	})
	return keys
}

// Percentages scales values to percentages of their sum. Every share is 0 when
// the sum is 0.
func Percentages(values map[string]float64) map[string]float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	out := make(map[string]float64, len(values))
	for k, v := range values {
		if total == 0 {
			out[k] = 0
			continue
		}
		out[k] = v / total * 100
	}
	return out
}
