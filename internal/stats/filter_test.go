package stats

import (
	"errors"
	"testing"
	"time"

	"github.com/joshdurbin/strava-dashboard/internal/activity"
)

func strPtr(s string) *string { return &s }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func act(id int64, sport string, start time.Time, meters float64, seconds int) activity.NormalizedActivity {
	a := activity.NormalizedActivity{
		ID:                id,
		Name:              "activity",
		DistanceMeters:    meters,
		MovingTimeSeconds: seconds,
		StartLocal:        start,
	}
	if sport != "" {
		a.SportType = strPtr(sport)
	}
	return a
}

func ids(acts []activity.NormalizedActivity) []int64 {
	out := make([]int64, len(acts))
	for i, a := range acts {
		out[i] = a.ID
	}
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestFilterByRangeLastDaysIsInclusiveOfToday(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
	acts := []activity.NormalizedActivity{
		act(1, "Run", time.Date(2025, 3, 3, 23, 59, 0, 0, time.UTC), 5000, 1500), // 8 days back
		act(2, "Run", time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC), 5000, 1500),   // 7th day back, first included
		act(3, "Ride", time.Date(2025, 3, 10, 23, 30, 0, 0, time.UTC), 20000, 3600),
	}

	got := FilterByRange(acts, LastDays(7), now)
	if want := []int64{2, 3}; !equalIDs(ids(got), want) {
		t.Errorf("LastDays(7) = %v, want %v", ids(got), want)
	}

	lower, upper := Bounds(LastDays(7), now)
	if !lower.Equal(date(2025, 3, 4)) || upper != nil {
		t.Errorf("Bounds(LastDays(7)) = %v, %v", lower, upper)
	}

	if got := FilterByRange(acts, LastDays(1), now); !equalIDs(ids(got), []int64{3}) {
		t.Errorf("LastDays(1) should cover only today, got %v", ids(got))
	}
}

func TestFilterByRangeKinds(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)
	acts := []activity.NormalizedActivity{
		act(5, "Run", time.Date(2025, 6, 1, 7, 0, 0, 0, time.UTC), 1, 1),
		act(1, "Run", time.Date(2024, 12, 31, 7, 0, 0, 0, time.UTC), 1, 1),
		act(2, "Run", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), 1, 1),
		act(3, "Run", time.Date(2025, 3, 15, 7, 0, 0, 0, time.UTC), 1, 1),
		act(4, "Run", time.Date(2025, 3, 14, 23, 0, 0, 0, time.UTC), 1, 1),
	}
	end := date(2025, 3, 15)

	tests := []struct {
		name string
		r    DateRange
		want []int64
	}{
		{"all sorted", AllTime(), []int64{1, 2, 4, 3, 5}},
		{"ytd", YearToDate(), []int64{2, 4, 3, 5}},
		{"last 3 months", LastMonths(3), []int64{3, 5}},
		{"custom closed", Custom(date(2025, 1, 1), &end), []int64{2, 4, 3}},
		{"custom open end", Custom(date(2025, 3, 15), nil), []int64{3, 5}},
		{"custom inverted", Custom(date(2025, 4, 1), &end), []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := FilterByRange(acts, tt.r, now)
			if !equalIDs(ids(got), tt.want) {
				t.Errorf("got %v, want %v", ids(got), tt.want)
			}
		})
	}
}

func TestFilterByRangeDoesNotModifyInput(t *testing.T) {
	t.Parallel()

	acts := []activity.NormalizedActivity{
		act(2, "Run", date(2025, 2, 2), 1, 1),
		act(1, "Run", date(2025, 2, 1), 1, 1),
	}
	_ = FilterByRange(acts, AllTime(), date(2025, 3, 1))
	if acts[0].ID != 2 || acts[1].ID != 1 {
		t.Errorf("input reordered: %v", ids(acts))
	}
	if got := FilterByRange(nil, AllTime(), date(2025, 3, 1)); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil result, got %v", got)
	}
}

func TestParseRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		preset, start, end string
		want               DateRange
		wantErr            bool
	}{
		{preset: "", want: AllTime()},
		{preset: "all", want: AllTime()},
		{preset: "YTD", want: YearToDate()},
		{preset: "last7", want: LastDays(7)},
		{preset: "last30days", want: LastDays(30)},
		{preset: "last6months", want: LastMonths(6)},
		{preset: "custom", start: "2025-01-01", want: Custom(date(2025, 1, 1), nil)},
		{preset: "custom", wantErr: true},
		{preset: "custom", start: "01/02/2025", wantErr: true},
		{preset: "custom", start: "2025-01-01", end: "nope", wantErr: true},
		{preset: "last0", wantErr: true},
		{preset: "lastweek", wantErr: true},
		{preset: "forever", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.preset+"/"+tt.start, func(t *testing.T) {
			t.Parallel()
			got, err := ParseRange(tt.preset, tt.start, tt.end)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownRange) {
					t.Errorf("expected ErrUnknownRange, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Kind != tt.want.Kind || got.Days != tt.want.Days || got.Months != tt.want.Months || !got.Start.Equal(tt.want.Start) {
				t.Errorf("ParseRange(%q) = %+v, want %+v", tt.preset, got, tt.want)
			}
		})
	}
}

func TestDateRangePresetRoundTrip(t *testing.T) {
	t.Parallel()

	for _, r := range []DateRange{AllTime(), YearToDate(), LastDays(90), LastMonths(6)} {
		parsed, err := ParseRange(r.Preset(), "", "")
		if err != nil {
			t.Fatalf("ParseRange(%q): %v", r.Preset(), err)
		}
		if parsed != r {
			t.Errorf("round trip of %q gave %+v", r.Preset(), parsed)
		}
	}

	end := date(2025, 2, 1)
	if got := Custom(date(2025, 1, 1), &end).String(); got != "2025-01-01..2025-02-01" {
		t.Errorf("String() = %q", got)
	}
	if got := Custom(date(2025, 1, 1), nil).String(); got != "2025-01-01..today" {
		t.Errorf("String() = %q", got)
	}
}

func TestMidnight(t *testing.T) {
	t.Parallel()

	berlin := time.FixedZone("CET", 3600)
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"utc evening", time.Date(2025, 3, 15, 23, 59, 59, 0, time.UTC), date(2025, 3, 15)},
		{"wall clock of other zone", time.Date(2025, 3, 16, 0, 30, 0, 0, berlin), date(2025, 3, 16)},
		{"already midnight", date(2025, 1, 1), date(2025, 1, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Midnight(tt.in); !got.Equal(tt.want) {
				t.Errorf("Midnight(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
