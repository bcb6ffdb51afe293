// Package normalize turns raw upstream activities into canonical records with
// rounded metric values, a resolved sport type and a resolved local start time.
package normalize

import (
	"math"
	"strings"
	"time"

	"github.com/joshdurbin/strava-dashboard/internal/activity"
	"github.com/joshdurbin/strava-dashboard/internal/logging"
	"github.com/joshdurbin/strava-dashboard/internal/observability"
	"github.com/joshdurbin/strava-dashboard/internal/strava"
)

// Normalizer converts strava.Activity values into activity.NormalizedActivity
type Normalizer struct {
	zones ZoneResolver
}

// New creates a Normalizer. A nil resolver uses the system zone database.
func New(zones ZoneResolver) *Normalizer {
	if zones == nil {
		zones = SystemZones{}
	}
	return &Normalizer{zones: zones}
}

// Normalize converts one raw activity. It never fails: unresolvable time
// zones fall back to the upstream local wall clock.
func (n *Normalizer) Normalize(raw strava.Activity) activity.NormalizedActivity {
	startLocal, zoneID := n.resolveLocalStart(raw)

	return activity.NormalizedActivity{
		ID:                  raw.ID,
		Name:                raw.Name,
		SportType:           ResolveSportType(raw.SportType, raw.Type),
		DistanceMeters:      Round2(raw.Distance),
		MovingTimeSeconds:   raw.MovingTime,
		ElapsedTimeSeconds:  raw.ElapsedTime,
		ElevationGainMeters: Round2(raw.TotalElevationGain),
		StartLocal:          startLocal,
		TimeZoneID:          zoneID,
	}
}

// NormalizeMany normalizes raw activities preserving order
func (n *Normalizer) NormalizeMany(raw []strava.Activity) []activity.NormalizedActivity {
	out := make([]activity.NormalizedActivity, 0, len(raw))
	for _, r := range raw {
		out = append(out, n.Normalize(r))
	}
	return out
}

func (n *Normalizer) resolveLocalStart(raw strava.Activity) (time.Time, *string) {
	fallback := WallClock(raw.StartDateLocal)

	if raw.Timezone == nil || strings.TrimSpace(*raw.Timezone) == "" {
		return fallback, nil
	}
	id, ok := ExtractZoneID(*raw.Timezone)
	if !ok {
		logging.Debug("no zone identifier in timezone label", "activity_id", raw.ID, "label", *raw.Timezone)
		observability.RecordZoneFallback("no_identifier")
		return fallback, nil
	}

	loc, err := n.zones.Resolve(id)
	if err != nil {
		logging.Debug("time zone not resolvable, using upstream local time", "activity_id", raw.ID, "zone", id, "error", err)
		observability.RecordZoneFallback("unresolvable")
		return fallback, nil
	}

	return WallClock(raw.StartDate.In(loc)), &id
}

// WallClock drops the offset of t, keeping its wall-clock fields in UTC
func WallClock(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, mo, d := t.Date()
	h, mi, s := t.Clock()
	return time.Date(y, mo, d, h, mi, s, t.Nanosecond(), time.UTC)
}

// ResolveSportType prefers the modern sport type, then the legacy type. Blank
// values count as absent.
func ResolveSportType(sportType, legacyType *string) *string {
	for _, v := range []*string{sportType, legacyType} {
		if v != nil && strings.TrimSpace(*v) != "" {
			s := *v
			return &s
		}
	}
	return nil
}

// Round2 rounds half away from zero to two decimals
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
