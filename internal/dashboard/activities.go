package dashboard

import (
	"strings"
	"time"

	"github.com/joshdurbin/strava-dashboard/internal/activity"
	"github.com/joshdurbin/strava-dashboard/internal/units"
)

const (
	DefaultActivityLimit = 20
	MaxActivityLimit     = 200
)

// ActivityView is one activity with display strings in the snapshot's units
type ActivityView struct {
	Activity  activity.NormalizedActivity `json:"activity"`
	Sport     string                      `json:"sport"`
	Date      string                      `json:"date"`
	Distance  string                      `json:"distance"`
	Time      string                      `json:"time"`
	Elevation string                      `json:"elevation"`
	// Pace is only set for runs
	Pace string `json:"pace,omitempty"`
}

// RecentActivities returns up to limit of snap's filtered activities, newest
// first. sport matches the sport label case-insensitively; empty matches all.
// limit is clamped to [1, MaxActivityLimit], with 0 meaning DefaultActivityLimit.
func RecentActivities(snap Snapshot, sport string, limit int) []ActivityView {
	switch {
	case limit == 0:
		limit = DefaultActivityLimit
	case limit < 1:
		limit = 1
	case limit > MaxActivityLimit:
		limit = MaxActivityLimit
	}
	sys := snap.Preferences.Units

	out := []ActivityView{}
	for i := len(snap.Filtered) - 1; i >= 0 && len(out) < limit; i-- {
		a := snap.Filtered[i]
		if sport != "" && !strings.EqualFold(a.SportLabel(), sport) {
			continue
		}
		out = append(out, newActivityView(a, sys))
	}
	return out
}

func newActivityView(a activity.NormalizedActivity, sys units.System) ActivityView {
	v := ActivityView{
		Activity:  a,
		Sport:     a.SportLabel(),
		Date:      a.Date().Format(time.DateOnly),
		Distance:  units.FormatDistance(a.DistanceMeters, sys, units.DefaultDistanceDecimals),
		Time:      units.FormatDuration(a.MovingTimeSeconds),
		Elevation: units.FormatElevation(a.ElevationGainMeters, sys, units.DefaultElevationDecimals),
	}
	if a.IsRunning() && a.MovingTimeSeconds > 0 {
		v.Pace = units.FormatPace(a.DistanceMeters/float64(a.MovingTimeSeconds), sys)
	}
	return v
}
