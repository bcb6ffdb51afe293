package units

import (
	"errors"
	"math"
	"testing"
)

const epsilon = 1e-9

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestDistanceRoundTrip(t *testing.T) {
	t.Parallel()

	for _, m := range []float64{0, 0.5, 1, 42.195, 1000, 1609.344, 21097.5, 123456.789} {
		if got := KilometersToMeters(MetersToKilometers(m)); !almostEqual(got, m, epsilon) {
			t.Errorf("km round trip of %v = %v", m, got)
		}
		if got := MilesToMeters(MetersToMiles(m)); !almostEqual(got, m, epsilon) {
			t.Errorf("mile round trip of %v = %v", m, got)
		}
		if got := FeetToMeters(MetersToFeet(m)); !almostEqual(got, m, epsilon) {
			t.Errorf("feet round trip of %v = %v", m, got)
		}
	}
}

func TestConversions(t *testing.T) {
	t.Parallel()

	if got := MilesToMeters(1.0); got != 1609.344 {
		t.Errorf("MilesToMeters(1) = %v, want 1609.344", got)
	}
	if got := MetersToFeet(100); !almostEqual(got, 328.08, 0.01) {
		t.Errorf("MetersToFeet(100) = %v, want ~328.08", got)
	}
	if got := MPSToKPH(5); !almostEqual(got, 18, epsilon) {
		t.Errorf("MPSToKPH(5) = %v, want 18", got)
	}
	if got := MPSToMPH(1609.344 / 3600); !almostEqual(got, 1, epsilon) {
		t.Errorf("MPSToMPH = %v, want 1", got)
	}
}

func TestPaceNonPositiveSpeed(t *testing.T) {
	t.Parallel()

	for _, mps := range []float64{0, -0.1, -5, math.Inf(-1)} {
		if got := PaceMinutesPerKm(mps); got != 0 {
			t.Errorf("PaceMinutesPerKm(%v) = %v, want 0", mps, got)
		}
		if got := PaceMinutesPerMile(mps); got != 0 {
			t.Errorf("PaceMinutesPerMile(%v) = %v, want 0", mps, got)
		}
	}
}

func TestFormatPace(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		mps  float64
		sys  System
		want string
	}{
		{"five minute km", 3.33, Metric, "5:00 min/km"},
		{"eight minute mile", 3.33, Imperial, "8:03 min/mi"},
		{"seconds truncated not rounded", 4.17, Metric, "3:59 min/km"},
		{"zero speed", 0, Metric, PlaceholderPace},
		{"negative speed", -1, Imperial, PlaceholderPace},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := FormatPace(tt.mps, tt.sys); got != tt.want {
				t.Errorf("FormatPace(%v, %v) = %q, want %q", tt.mps, tt.sys, got, tt.want)
			}
		})
	}
}

func TestFormatters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"distance metric whole", FormatDistance(5000, Metric, DefaultDistanceDecimals), "5 km"},
		{"distance imperial", FormatDistance(5000, Imperial, DefaultDistanceDecimals), "3.11 mi"},
		{"distance three decimals", FormatDistance(5432.1, Metric, 3), "5.432 km"},
		{"distance zero", FormatDistance(0, Imperial, 2), "0 mi"},
		{"speed metric", FormatSpeed(5, Metric, DefaultSpeedDecimals), "18 km/h"},
		{"speed imperial", FormatSpeed(5, Imperial, DefaultSpeedDecimals), "11.2 mph"},
		{"elevation imperial", FormatElevation(100, Imperial, DefaultElevationDecimals), "328 ft"},
		{"elevation metric", FormatElevation(89.6, Metric, DefaultElevationDecimals), "90 m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestRoundHalfAwayFromZero(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in       float64
		decimals int
		want     float64
	}{
		{2.5, 0, 3},
		{-2.5, 0, -3},
		{1234.5678, 2, 1234.57},
		{89.991, 2, 89.99},
		{0.125, 2, 0.13},
	}
	for _, tt := range tests {
		if got := Round(tt.in, tt.decimals); got != tt.want {
			t.Errorf("Round(%v, %d) = %v, want %v", tt.in, tt.decimals, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		seconds int
		want    string
	}{
		{0, "0s"},
		{45, "45s"},
		{723, "12m 3s"},
		{3900, "1h 5m"},
		{-3, "0s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.seconds); got != tt.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestParseSystem(t *testing.T) {
	t.Parallel()

	if sys, err := ParseSystem("Imperial"); err != nil || sys != Imperial {
		t.Errorf("ParseSystem(Imperial) = %v, %v", sys, err)
	}
	if sys, err := ParseSystem(""); err != nil || sys != Metric {
		t.Errorf("ParseSystem(\"\") = %v, %v", sys, err)
	}
	if _, err := ParseSystem("furlongs"); !errors.Is(err, ErrUnknownSystem) {
		t.Errorf("expected ErrUnknownSystem, got %v", err)
	}

	var sys System
	if err := sys.UnmarshalText([]byte("imperial")); err != nil || sys != Imperial {
		t.Errorf("UnmarshalText = %v, %v", sys, err)
	}
}
