package normalize

import (
	"errors"
	"testing"
	"time"

	"github.com/joshdurbin/strava-dashboard/internal/strava"
)

func strPtr(s string) *string { return &s }

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("parsing %q: %v", s, err)
	}
	return ts
}

func TestExtractZoneID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		label  string
		want   string
		wantOK bool
	}{
		{"(GMT-08:00) America/Los_Angeles", "America/Los_Angeles", true},
		{"America/Los_Angeles", "America/Los_Angeles", true},
		{"  Europe/Paris  ", "Europe/Paris", true},
		{"(GMT+00:00) UTC", "", false},
		{"", "", false},
		{"   ", "", false},
		{"Pacific Time", "", false},
		{"America/New York", "America/New York", true},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			t.Parallel()
			got, ok := ExtractZoneID(tt.label)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ExtractZoneID(%q) = (%q, %v), want (%q, %v)", tt.label, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestNormalizeResolvesZone(t *testing.T) {
	t.Parallel()

	n := New(SystemZones{})

	tests := []struct {
		name      string
		startUTC  string
		startLoc  string
		label     string
		wantLocal time.Time
	}{
		{
			name:      "winter standard time",
			startUTC:  "2025-01-15T12:00:00Z",
			startLoc:  "2025-01-15T04:00:00-08:00",
			label:     "(GMT-08:00) America/Los_Angeles",
			wantLocal: time.Date(2025, 1, 15, 4, 0, 0, 0, time.UTC),
		},
		{
			name: "summer daylight time",
			// upstream local deliberately wrong by an hour: the zone rules win
			startUTC:  "2025-07-01T12:00:00Z",
			startLoc:  "2025-07-01T04:00:00-08:00",
			label:     "(GMT-08:00) America/Los_Angeles",
			wantLocal: time.Date(2025, 7, 1, 5, 0, 0, 0, time.UTC),
		},
		{
			name:      "bare identifier",
			startUTC:  "2025-07-01T12:00:00Z",
			startLoc:  "2025-07-01T14:00:00+02:00",
			label:     "Europe/Paris",
			wantLocal: time.Date(2025, 7, 1, 14, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := n.Normalize(strava.Activity{
				ID:             1,
				StartDate:      mustTime(t, tt.startUTC),
				StartDateLocal: mustTime(t, tt.startLoc),
				Timezone:       strPtr(tt.label),
			})
			if !got.StartLocal.Equal(tt.wantLocal) || got.StartLocal.Location() != time.UTC {
				t.Errorf("StartLocal = %v, want %v", got.StartLocal, tt.wantLocal)
			}
			wantID, _ := ExtractZoneID(tt.label)
			if got.TimeZoneID == nil || *got.TimeZoneID != wantID {
				t.Errorf("TimeZoneID = %v, want %q", got.TimeZoneID, wantID)
			}
		})
	}
}

func TestNormalizeFallsBackToUpstreamLocal(t *testing.T) {
	t.Parallel()

	n := New(StaticZones{"America/Los_Angeles": time.FixedZone("PST", -8*3600)})

	tests := []struct {
		name  string
		label *string
	}{
		{"nil label", nil},
		{"blank label", strPtr("  ")},
		{"no identifier", strPtr("(GMT+00:00) Coordinated Universal Time")},
		{"unknown zone", strPtr("(GMT+01:00) Mars/Olympus_Mons")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := n.Normalize(strava.Activity{
				StartDate:      mustTime(t, "2025-07-01T12:00:00Z"),
				StartDateLocal: mustTime(t, "2025-07-01T04:00:00-08:00"),
				Timezone:       tt.label,
			})
			if got.TimeZoneID != nil {
				t.Errorf("expected nil TimeZoneID, got %q", *got.TimeZoneID)
			}
			want := time.Date(2025, 7, 1, 4, 0, 0, 0, time.UTC)
			if !got.StartLocal.Equal(want) {
				t.Errorf("StartLocal = %v, want %v", got.StartLocal, want)
			}
		})
	}
}

func TestNormalizeUsesInjectedResolver(t *testing.T) {
	t.Parallel()

	fake := StaticZones{"Test/Plus_Three": time.FixedZone("T3", 3*3600)}
	got := New(fake).Normalize(strava.Activity{
		StartDate:      mustTime(t, "2025-03-01T22:30:00Z"),
		StartDateLocal: mustTime(t, "2025-03-01T22:30:00Z"),
		Timezone:       strPtr("(GMT+03:00) Test/Plus_Three"),
	})

	want := time.Date(2025, 3, 2, 1, 30, 0, 0, time.UTC)
	if !got.StartLocal.Equal(want) {
		t.Errorf("StartLocal = %v, want %v", got.StartLocal, want)
	}
	if !got.Date().Equal(time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("expected activity to land on the next calendar day, got %v", got.Date())
	}
}

func TestNormalizeNumericsAndSportType(t *testing.T) {
	t.Parallel()

	got := New(nil).Normalize(strava.Activity{
		ID:                 99,
		Name:               "Track",
		Distance:           1234.5678,
		TotalElevationGain: 89.991,
		MovingTime:         1800,
		ElapsedTime:        1900,
		Type:               strPtr("Run"),
		SportType:          strPtr("TrailRun"),
	})

	if got.DistanceMeters != 1234.57 {
		t.Errorf("DistanceMeters = %v, want 1234.57", got.DistanceMeters)
	}
	if got.ElevationGainMeters != 89.99 {
		t.Errorf("ElevationGainMeters = %v, want 89.99", got.ElevationGainMeters)
	}
	if got.MovingTimeSeconds != 1800 || got.ElapsedTimeSeconds != 1900 {
		t.Errorf("times changed: %d/%d", got.MovingTimeSeconds, got.ElapsedTimeSeconds)
	}
	if got.SportType == nil || *got.SportType != "TrailRun" {
		t.Errorf("SportType = %v, want TrailRun", got.SportType)
	}
}

func TestResolveSportType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modern *string
		legacy *string
		want   *string
	}{
		{"modern wins", strPtr("VirtualRun"), strPtr("Run"), strPtr("VirtualRun")},
		{"blank modern falls back", strPtr(" "), strPtr("Ride"), strPtr("Ride")},
		{"nil modern falls back", nil, strPtr("Swim"), strPtr("Swim")},
		{"both absent", nil, strPtr(""), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ResolveSportType(tt.modern, tt.legacy)
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("got %q, want nil", *got)
			case tt.want != nil && (got == nil || *got != *tt.want):
				t.Errorf("got %v, want %q", got, *tt.want)
			}
		})
	}
}

func TestNormalizeMany(t *testing.T) {
	t.Parallel()

	n := New(nil)
	if got := n.NormalizeMany(nil); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", got)
	}

	raw := []strava.Activity{{ID: 3}, {ID: 1}, {ID: 2}}
	got := n.NormalizeMany(raw)
	for i, a := range got {
		if a.ID != raw[i].ID {
			t.Errorf("order not preserved at %d: %d != %d", i, a.ID, raw[i].ID)
		}
	}
}

func TestSystemZonesRejectsUnknown(t *testing.T) {
	t.Parallel()

	if _, err := (SystemZones{}).Resolve("Nowhere/Special"); !errors.Is(err, ErrZoneNotFound) {
		t.Errorf("expected ErrZoneNotFound, got %v", err)
	}
	if _, err := (SystemZones{}).Resolve(""); !errors.Is(err, ErrZoneNotFound) {
		t.Errorf("expected ErrZoneNotFound for empty id, got %v", err)
	}
}
