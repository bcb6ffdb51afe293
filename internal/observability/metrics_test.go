package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordActivitiesSaved(t *testing.T) {
	before := testutil.ToFloat64(activitiesSynced)

	RecordActivitiesSaved(3)
	RecordActivitiesSaved(0)
	RecordActivitiesSaved(-2)

	if got := testutil.ToFloat64(activitiesSynced) - before; got != 3 {
		t.Errorf("expected counter to grow by 3, got %v", got)
	}
}

func TestRecordZoneFallback(t *testing.T) {
	counter := zoneFallbacks.WithLabelValues("unknown_zone")
	before := testutil.ToFloat64(counter)

	RecordZoneFallback("unknown_zone")

	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("expected one fallback, got %v", got)
	}
}

func TestGauges(t *testing.T) {
	ts := time.Date(2025, 3, 15, 18, 30, 0, 0, time.UTC)
	RecordSyncCompleted(ts)
	RecordSyncCompleted(time.Time{})
	if got := testutil.ToFloat64(lastSyncGauge); got != float64(ts.Unix()) {
		t.Errorf("zero time should not reset the watermark, got %v", got)
	}

	RecordActivitiesLoaded(42)
	if got := testutil.ToFloat64(loadedActivities); got != 42 {
		t.Errorf("expected 42 loaded activities, got %v", got)
	}
}

func TestObserveReport(t *testing.T) {
	ObserveReport("cli", time.Now().Add(-10*time.Millisecond))

	if n := testutil.CollectAndCount(reportDuration, "strava_dashboard_dashboard_report_duration_seconds"); n < 1 {
		t.Errorf("expected at least one report histogram series, got %d", n)
	}
}
