package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "strava_dashboard"

var (
	zoneFallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "normalize",
		Name:      "zone_fallbacks_total",
		Help:      "Activities whose local start time fell back to the upstream wall clock.",
	}, []string{"reason"})
	activitiesSynced = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "activities_saved_total",
		Help:      "Raw activities saved to the local mirror.",
	})
	lastSyncGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successful sync.",
	})
	loadedActivities = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "dashboard",
		Name:      "activities_loaded",
		Help:      "Normalized activities held by the dashboard store.",
	})
	reportDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "dashboard",
		Name:      "report_duration_seconds",
		Help:      "Time spent building dashboard reports.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
	}, []string{"surface"})
)

func init() {
	prometheus.MustRegister(zoneFallbacks, activitiesSynced, lastSyncGauge, loadedActivities, reportDuration)
}

// RecordZoneFallback counts a normalization that kept the upstream local time
func RecordZoneFallback(reason string) {
	zoneFallbacks.WithLabelValues(reason).Inc()
}

// RecordActivitiesSaved adds n to the saved-activities counter
func RecordActivitiesSaved(n int) {
	if n <= 0 {
		return
	}
	activitiesSynced.Add(float64(n))
}

// RecordSyncCompleted updates the last-sync watermark gauge
func RecordSyncCompleted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	lastSyncGauge.Set(float64(ts.Unix()))
}

// RecordActivitiesLoaded sets the number of activities held by the store
func RecordActivitiesLoaded(n int) {
	loadedActivities.Set(float64(n))
}

// ObserveReport records how long a report took to build for a surface ("api", "mcp", "cli")
func ObserveReport(surface string, started time.Time) {
	reportDuration.WithLabelValues(surface).Observe(time.Since(started).Seconds())
}
