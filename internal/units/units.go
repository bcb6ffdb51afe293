package units

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// System selects how distances, speeds and elevations are displayed
type System int

const (
	// Metric displays kilometers, km/h, min/km and meters
	Metric System = iota
	// Imperial displays miles, mph, min/mi and feet
	Imperial
)

const (
	metersPerKilometer = 1000.0
	metersPerMile      = 1609.344
	metersPerFoot      = 0.3048
	secondsPerHour     = 3600.0
)

// Default decimal places used by the formatters
const (
	DefaultDistanceDecimals  = 2
	DefaultSpeedDecimals     = 1
	DefaultElevationDecimals = 0
)

// PlaceholderPace is shown when the speed is zero or negative
const PlaceholderPace = "—"

// ErrUnknownSystem is returned when a unit system name can't be parsed
var ErrUnknownSystem = errors.New("unknown unit system")

// ParseSystem parses "metric" or "imperial" (case-insensitive)
func ParseSystem(s string) (System, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "metric", "":
		return Metric, nil
	case "imperial":
		return Imperial, nil
	}
	return Metric, fmt.Errorf("%w: %q", ErrUnknownSystem, s)
}

func (s System) String() string {
	if s == Imperial {
		return "imperial"
	}
	return "metric"
}

// MarshalText implements encoding.TextMarshaler
func (s System) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *System) UnmarshalText(b []byte) error {
	parsed, err := ParseSystem(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// DistanceUnit returns "km" or "mi"
func (s System) DistanceUnit() string {
	if s == Imperial {
		return "mi"
	}
	return "km"
}

// SpeedUnit returns "km/h" or "mph"
func (s System) SpeedUnit() string {
	if s == Imperial {
		return "mph"
	}
	return "km/h"
}

// PaceUnit returns "min/km" or "min/mi"
func (s System) PaceUnit() string {
	if s == Imperial {
		return "min/mi"
	}
	return "min/km"
}

// ElevationUnit returns "m" or "ft"
func (s System) ElevationUnit() string {
	if s == Imperial {
		return "ft"
	}
	return "m"
}

// MetersToKilometers converts meters to kilometers
func MetersToKilometers(m float64) float64 { return m / metersPerKilometer }

// KilometersToMeters converts kilometers to meters
func KilometersToMeters(km float64) float64 { return km * metersPerKilometer }

// MetersToMiles converts meters to statute miles
func MetersToMiles(m float64) float64 { return m / metersPerMile }

// MilesToMeters converts statute miles to meters
func MilesToMeters(mi float64) float64 { return mi * metersPerMile }

// MetersToFeet converts meters to feet
func MetersToFeet(m float64) float64 { return m / metersPerFoot }

// FeetToMeters converts feet to meters
func FeetToMeters(ft float64) float64 { return ft * metersPerFoot }

// MPSToKPH converts meters per second to kilometers per hour
func MPSToKPH(mps float64) float64 {
	return mps * secondsPerHour / metersPerKilometer
}

// MPSToMPH converts meters per second to miles per hour
func MPSToMPH(mps float64) float64 {
	return mps * secondsPerHour / metersPerMile
}

// PaceMinutesPerKm returns minutes per kilometer, or 0 for a non-positive speed
func PaceMinutesPerKm(mps float64) float64 {
	if mps <= 0 {
		return 0
	}
	return 60 / MPSToKPH(mps)
}

// PaceMinutesPerMile returns minutes per mile, or 0 for a non-positive speed
func PaceMinutesPerMile(mps float64) float64 {
	if mps <= 0 {
		return 0
	}
	return 60 / MPSToMPH(mps)
}

// Distance converts meters into the system's distance unit
func Distance(meters float64, sys System) float64 {
	if sys == Imperial {
		return MetersToMiles(meters)
	}
	return MetersToKilometers(meters)
}

// Elevation converts meters into the system's elevation unit
func Elevation(meters float64, sys System) float64 {
	if sys == Imperial {
		return MetersToFeet(meters)
	}
	return meters
}

// Speed converts meters per second into the system's speed unit
func Speed(mps float64, sys System) float64 {
	if sys == Imperial {
		return MPSToMPH(mps)
	}
	return MPSToKPH(mps)
}

// PaceMinutes converts meters per second into minutes per km or mile
func PaceMinutes(mps float64, sys System) float64 {
	if sys == Imperial {
		return PaceMinutesPerMile(mps)
	}
	return PaceMinutesPerKm(mps)
}

// Round rounds half away from zero to the given number of decimals
func Round(v float64, decimals int) float64 {
	if decimals < 0 {
		decimals = 0
	}
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

func formatNumber(v float64, decimals int) string {
	r := Round(v, decimals)
	if r == 0 {
		r = 0 // normalize -0
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

// FormatDistance renders meters as "12.34 km" or "7.67 mi"
func FormatDistance(meters float64, sys System, decimals int) string {
	return formatNumber(Distance(meters, sys), decimals) + " " + sys.DistanceUnit()
}

// FormatSpeed renders meters per second as "18 km/h" or "11.2 mph"
func FormatSpeed(mps float64, sys System, decimals int) string {
	return formatNumber(Speed(mps, sys), decimals) + " " + sys.SpeedUnit()
}

// FormatElevation renders meters as "100 m" or "328 ft"
func FormatElevation(meters float64, sys System, decimals int) string {
	return formatNumber(Elevation(meters, sys), decimals) + " " + sys.ElevationUnit()
}

// FormatPace renders a speed as "M:SS min/km". Non-positive speeds render as PlaceholderPace.
func FormatPace(mps float64, sys System) string {
	if mps <= 0 {
		return PlaceholderPace
	}
	return FormatPaceMinutes(PaceMinutes(mps, sys), sys)
}

// FormatPaceMinutes renders a pace already expressed in minutes per unit
func FormatPaceMinutes(pace float64, sys System) string {
	if pace <= 0 || math.IsInf(pace, 0) || math.IsNaN(pace) {
		return PlaceholderPace
	}
	minutes := math.Floor(pace)
	seconds := math.Floor((pace - minutes) * 60)
	return fmt.Sprintf("%d:%02d %s", int(minutes), int(seconds), sys.PaceUnit())
}

// FormatDuration renders seconds as "1h 5m", "12m 3s" or "45s"
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
