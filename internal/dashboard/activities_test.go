package dashboard

import (
	"testing"

	"github.com/joshdurbin/strava-dashboard/internal/units"
)

func TestRecentActivities(t *testing.T) {
	t.Parallel()

	store := NewStore(WithClock(fixedClock))
	store.SetActivities(sampleActivities())
	snap := store.Snapshot()

	tests := []struct {
		name  string
		sport string
		limit int
		want  []int64
	}{
		{"newest first", "", 0, []int64{5, 4, 3, 2, 1}},
		{"limited", "", 2, []int64{5, 4}},
		{"sport filter ignores case", "run", 0, []int64{4, 3, 1}},
		{"unknown sport label", "Unknown", 0, []int64{5}},
		{"negative limit clamps to one", "", -3, []int64{5}},
		{"no match", "Swim", 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := RecentActivities(snap, tt.sport, tt.limit)
			if got == nil {
				t.Fatal("expected a non-nil slice")
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d activities, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].Activity.ID != id {
					t.Errorf("[%d] id = %d, want %d", i, got[i].Activity.ID, id)
				}
			}
		})
	}
}

func TestActivityViewFormatting(t *testing.T) {
	t.Parallel()

	run := act(3, "Run", "2025-03-13T06:30:00", 10500, 3000)
	v := newActivityView(run, units.Metric)
	if v.Date != "2025-03-13" || v.Distance != "10.5 km" || v.Time != "50m 0s" {
		t.Errorf("view = %+v", v)
	}
	// 10.5 km in 50 minutes is 4:45 per km
	if v.Pace != "4:45 min/km" {
		t.Errorf("pace = %q", v.Pace)
	}

	ride := newActivityView(act(2, "Ride", "2025-03-10T17:00:00", 30000, 3600), units.Imperial)
	if ride.Pace != "" || ride.Distance != "18.64 mi" {
		t.Errorf("ride view = %+v", ride)
	}
}
