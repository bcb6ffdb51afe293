package stats

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/joshdurbin/strava-dashboard/internal/activity"
	"github.com/joshdurbin/strava-dashboard/internal/units"
)

func TestComputeTotals(t *testing.T) {
	t.Parallel()

	if got := ComputeTotals(nil); got != (Totals{}) {
		t.Errorf("ComputeTotals(nil) = %+v, want zero", got)
	}

	acts := []activity.NormalizedActivity{
		act(1, "Run", date(2025, 1, 1), 5000, 1500),
		act(2, "Ride", date(2025, 1, 2), 20000, 3600),
		act(3, "", date(2025, 1, 3), 0, 600),
	}
	got := ComputeTotals(acts)
	want := Totals{Count: 3, DistanceMeters: 25000, TimeSeconds: 5700, AvgDistanceMeters: 25000.0 / 3}
	if got != want {
		t.Errorf("ComputeTotals = %+v, want %+v", got, want)
	}
}

func TestComputeTotalsIsIdempotent(t *testing.T) {
	t.Parallel()

	now := date(2025, 1, 10)
	acts := []activity.NormalizedActivity{
		act(1, "Run", date(2025, 1, 9), 5000, 1500),
		act(2, "Run", date(2024, 12, 1), 7000, 2000),
	}
	first := ComputeTotals(FilterByRange(acts, LastDays(30), now))
	second := ComputeTotals(FilterByRange(acts, LastDays(30), now))
	if first != second {
		t.Errorf("results differ: %+v vs %+v", first, second)
	}
}

func TestComputeSportBreakdown(t *testing.T) {
	t.Parallel()

	blank := act(4, "", date(2025, 1, 4), 0, 100)
	blank.SportType = strPtr("  ")
	acts := []activity.NormalizedActivity{
		act(1, "Run", date(2025, 1, 1), 5000, 1000),
		act(2, "Run", date(2025, 1, 2), 5000, 1000),
		act(3, "", date(2025, 1, 3), 0, 200),
		blank,
		act(5, "Ride", date(2025, 1, 5), 0, 1700),
	}

	got := ComputeSportBreakdown(acts)
	want := SportBreakdown{
		"Run":                 {Count: 2, TimeSeconds: 2000},
		activity.UnknownSport: {Count: 2, TimeSeconds: 300},
		"Ride":                {Count: 1, TimeSeconds: 1700},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("breakdown = %+v, want %+v", got, want)
	}

	counts := got.CountShares()
	if counts["Run"] != 40 || counts["Ride"] != 20 {
		t.Errorf("count shares = %v", counts)
	}
	times := got.TimeShares()
	if times["Run"] != 50 {
		t.Errorf("time shares = %v", times)
	}

	if order := got.Sports(); !reflect.DeepEqual(order, []string{"Run", activity.UnknownSport, "Ride"}) {
		t.Errorf("Sports() = %v", order)
	}
}

func TestPercentagesZeroTotal(t *testing.T) {
	t.Parallel()

	got := Percentages(map[string]float64{"Run": 0, "Ride": 0})
	for k, v := range got {
		if v != 0 || math.IsNaN(v) {
			t.Errorf("%s = %v, want 0", k, v)
		}
	}
	if got := Percentages(nil); len(got) != 0 {
		t.Errorf("expected empty map, got %v", got)
	}
}

func TestComputeHistogram(t *testing.T) {
	t.Parallel()

	acts := []activity.NormalizedActivity{
		act(1, "Run", date(2025, 1, 1), 1500, 1),
		act(2, "TrailRun", date(2025, 1, 2), 4000, 1),
		act(3, "VirtualRun", date(2025, 1, 3), 5999, 1),
		act(4, "Run", date(2025, 1, 4), 6000, 1),
		act(5, "Ride", date(2025, 1, 5), 50000, 1),
		act(6, "", date(2025, 1, 6), 50000, 1),
	}

	h := ComputeHistogram(acts, units.Metric)
	if h.Unit != "km" || h.BinWidth != 2 {
		t.Fatalf("unexpected unit/width: %s %v", h.Unit, h.BinWidth)
	}
	wantCounts := []int{1, 0, 3}
	if len(h.Bins) != len(wantCounts) {
		t.Fatalf("got %d bins, want %d", len(h.Bins), len(wantCounts))
	}
	total := 0
	for i, b := range h.Bins {
		if b.Count != wantCounts[i] {
			t.Errorf("bin %d count = %d, want %d", i, b.Count, wantCounts[i])
		}
		total += b.Count
	}
	if total != 4 {
		t.Errorf("bin counts sum to %d, want the 4 running activities", total)
	}
	if h.Bins[0].Label != "0-2 km" || h.Bins[2].Label != "4-6 km" {
		t.Errorf("labels = %q, %q", h.Bins[0].Label, h.Bins[2].Label)
	}
}

func TestComputeHistogramImperialAndEdges(t *testing.T) {
	t.Parallel()

	t.Run("imperial one mile bins", func(t *testing.T) {
		t.Parallel()
		acts := []activity.NormalizedActivity{
			act(1, "Run", date(2025, 1, 1), units.MilesToMeters(3.1), 1),
			act(2, "Run", date(2025, 1, 2), units.MilesToMeters(0.5), 1),
		}
		h := ComputeHistogram(acts, units.Imperial)
		if h.Unit != "mi" || len(h.Bins) != 4 {
			t.Fatalf("got unit %s with %d bins", h.Unit, len(h.Bins))
		}
		if h.Bins[0].Count != 1 || h.Bins[3].Count != 1 {
			t.Errorf("bins = %+v", h.Bins)
		}
	})

	t.Run("no runs", func(t *testing.T) {
		t.Parallel()
		h := ComputeHistogram([]activity.NormalizedActivity{act(1, "Ride", date(2025, 1, 1), 9000, 1)}, units.Metric)
		if h.Bins == nil || len(h.Bins) != 0 {
			t.Errorf("expected zero bins, got %+v", h.Bins)
		}
	})

	t.Run("zero length runs", func(t *testing.T) {
		t.Parallel()
		h := ComputeHistogram([]activity.NormalizedActivity{
			act(1, "Run", date(2025, 1, 1), 0, 1),
			act(2, "Run", date(2025, 1, 2), 0, 1),
		}, units.Metric)
		if len(h.Bins) != 1 || h.Bins[0].Count != 2 {
			t.Errorf("expected one bin holding both runs, got %+v", h.Bins)
		}
	})
}

func TestComputeRunningStats(t *testing.T) {
	t.Parallel()

	acts := []activity.NormalizedActivity{
		act(1, "Run", date(2025, 1, 1), 10000, 3000),  // 5:00/km
		act(2, "Run", date(2025, 1, 2), 12000, 3360),  // 4:40/km
		act(3, "Ride", date(2025, 1, 3), 40000, 3600), // ignored
		act(4, "TrailRun", date(2025, 1, 4), 8000, 2400),
		act(5, "Run", date(2025, 1, 5), 10000, 2800), // 4:40/km, tie loses
	}

	rs := ComputeRunningStats(acts, units.Metric)
	if rs.TotalRuns != 4 || rs.Runs10kPlus != 3 {
		t.Errorf("runs = %d, 10k+ = %d", rs.TotalRuns, rs.Runs10kPlus)
	}
	if rs.TotalDistanceMeters != 40000 || rs.TotalDistance != 40 {
		t.Errorf("distance = %v m / %v km", rs.TotalDistanceMeters, rs.TotalDistance)
	}
	if rs.TotalTimeSeconds != 11560 {
		t.Errorf("time = %d", rs.TotalTimeSeconds)
	}
	wantPace := 11560.0 / 60 / 40
	if math.Abs(rs.AvgPaceMinutes-wantPace) > 1e-9 {
		t.Errorf("avg pace = %v, want %v", rs.AvgPaceMinutes, wantPace)
	}
	if rs.Fastest10k == nil || rs.Fastest10k.ID != 2 {
		t.Errorf("fastest 10k = %+v, want id 2", rs.Fastest10k)
	}
	if rs.LongestRun == nil || rs.LongestRun.ID != 2 {
		t.Errorf("longest run = %+v, want id 2", rs.LongestRun)
	}
}

func TestComputeRunningStatsEmpty(t *testing.T) {
	t.Parallel()

	rs := ComputeRunningStats(nil, units.Imperial)
	if rs.TotalRuns != 0 || rs.AvgPaceMinutes != 0 || rs.Fastest10k != nil || rs.LongestRun != nil {
		t.Errorf("expected zero stats, got %+v", rs)
	}
	if rs.Units != units.Imperial {
		t.Errorf("units = %v", rs.Units)
	}
}

func TestComputeRunningStatsZeroDistanceRun(t *testing.T) {
	t.Parallel()

	rs := ComputeRunningStats([]activity.NormalizedActivity{
		act(1, "Run", time.Date(2025, 1, 1, 6, 0, 0, 0, time.UTC), 0, 900),
	}, units.Metric)
	if rs.AvgPaceMinutes != 0 || rs.LongestRun == nil || rs.LongestRun.PaceMinutes != 0 {
		t.Errorf("zero distance should give zero pace, got %+v", rs)
	}
}
