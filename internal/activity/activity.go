// Package activity holds the canonical, normalized activity record shared by
// the aggregation engine, the dashboard store and the outer transports.
package activity

import (
	"encoding/json"
	"strings"
	"time"
)

// LocalLayout is the wire format of a naive local start time
const LocalLayout = "2006-01-02T15:04:05"

// UnknownSport labels activities without a resolved sport type
const UnknownSport = "Unknown"

var runningTypes = map[string]bool{
	"Run":        true,
	"TrailRun":   true,
	"VirtualRun": true,
}

// NormalizedActivity is one upstream activity after unit rounding, sport type
// resolution and local time resolution. Values are never mutated after creation.
type NormalizedActivity struct {
	ID                  int64
	Name                string
	SportType           *string
	DistanceMeters      float64
	MovingTimeSeconds   int
	ElapsedTimeSeconds  int
	ElevationGainMeters float64
	// StartLocal carries wall-clock fields only. Its location is always UTC and
	// has no offset meaning.
	StartLocal time.Time
	TimeZoneID *string
}

// Date returns the local calendar date at midnight (UTC location)
func (a NormalizedActivity) Date() time.Time {
	y, m, d := a.StartLocal.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsRunning reports whether the activity's sport type is a running type
func (a NormalizedActivity) IsRunning() bool {
	return a.SportType != nil && IsRunningType(*a.SportType)
}

// SportLabel returns the sport type or UnknownSport when absent or blank
func (a NormalizedActivity) SportLabel() string {
	if a.SportType == nil || strings.TrimSpace(*a.SportType) == "" {
		return UnknownSport
	}
	return *a.SportType
}

// IsRunningType reports whether sportType is Run, TrailRun or VirtualRun
func IsRunningType(sportType string) bool {
	return runningTypes[sportType]
}

type jsonActivity struct {
	ID                  int64   `json:"id"`
	Name                string  `json:"name"`
	SportType           *string `json:"sport_type"`
	DistanceMeters      float64 `json:"distance_m"`
	MovingTimeSeconds   int     `json:"moving_time_s"`
	ElapsedTimeSeconds  int     `json:"elapsed_time_s"`
	ElevationGainMeters float64 `json:"elevation_gain_m"`
	StartLocal          string  `json:"start_local"`
	TimeZoneID          *string `json:"timezone_id"`
}

// MarshalJSON renders StartLocal without an offset
func (a NormalizedActivity) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonActivity{
		ID:                  a.ID,
		Name:                a.Name,
		SportType:           a.SportType,
		DistanceMeters:      a.DistanceMeters,
		MovingTimeSeconds:   a.MovingTimeSeconds,
		ElapsedTimeSeconds:  a.ElapsedTimeSeconds,
		ElevationGainMeters: a.ElevationGainMeters,
		StartLocal:          a.StartLocal.Format(LocalLayout),
		TimeZoneID:          a.TimeZoneID,
	})
}

// UnmarshalJSON parses the format written by MarshalJSON
func (a *NormalizedActivity) UnmarshalJSON(b []byte) error {
	var j jsonActivity
	if err := json.Unmarshal(b, &j); err != nil {
		return err
	}
	var start time.Time
	if j.StartLocal != "" {
		var err error
		start, err = time.ParseInLocation(LocalLayout, j.StartLocal, time.UTC)
		if err != nil {
			return err
		}
	}
	*a = NormalizedActivity{
		ID:                  j.ID,
		Name:                j.Name,
		SportType:           j.SportType,
		DistanceMeters:      j.DistanceMeters,
		MovingTimeSeconds:   j.MovingTimeSeconds,
		ElapsedTimeSeconds:  j.ElapsedTimeSeconds,
		ElevationGainMeters: j.ElevationGainMeters,
		StartLocal:          start,
		TimeZoneID:          j.TimeZoneID,
	}
	return nil
}
