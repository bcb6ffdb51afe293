package stats

import (
	"time"

	"github.com/joshdurbin/strava-dashboard/internal/activity"
	"github.com/joshdurbin/strava-dashboard/internal/units"
)

// TenKMeters is the minimum distance for the fastest 10k record
const TenKMeters = 10000.0

// RunRecord identifies a single notable run
type RunRecord struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	Date              time.Time `json:"date"`
	DistanceMeters    float64   `json:"distance_m"`
	MovingTimeSeconds int       `json:"moving_time_s"`
	// PaceMinutes is minutes per display unit; 0 when distance is 0
	PaceMinutes float64 `json:"pace_minutes"`
}

// RunningStats summarizes running-type activities
type RunningStats struct {
	Units               units.System `json:"units"`
	TotalRuns           int          `json:"total_runs"`
	Runs10kPlus         int          `json:"runs_10k_plus"`
	TotalDistanceMeters float64      `json:"total_distance_m"`
	TotalDistance       float64      `json:"total_distance"`
	TotalTimeSeconds    int          `json:"total_time_s"`
	AvgPaceMinutes      float64      `json:"avg_pace_minutes"`
	Fastest10k          *RunRecord   `json:"fastest_10k"`
	LongestRun          *RunRecord   `json:"longest_run"`
}

// ComputeRunningStats summarizes the running-type activities in acts. Average
// pace is moving minutes per converted distance unit, 0 without distance. The
// fastest 10k is the lowest time/distance ratio among runs of at least 10 km;
// on an exact tie the earlier run in acts wins.
func ComputeRunningStats(acts []activity.NormalizedActivity, sys units.System) RunningStats {
	rs := RunningStats{Units: sys}

	var fastestRatio float64
	for _, a := range acts {
		if !a.IsRunning() {
			continue
		}
		rs.TotalRuns++
		rs.TotalDistanceMeters += a.DistanceMeters
		rs.TotalTimeSeconds += a.MovingTimeSeconds

		if a.DistanceMeters >= TenKMeters {
			rs.Runs10kPlus++
			ratio := float64(a.MovingTimeSeconds) / a.DistanceMeters
			if rs.Fastest10k == nil || ratio < fastestRatio {
				fastestRatio = ratio
				rs.Fastest10k = newRunRecord(a, sys)
			}
		}
		if rs.LongestRun == nil || a.DistanceMeters > rs.LongestRun.DistanceMeters {
			rs.LongestRun = newRunRecord(a, sys)
		}
	}

	rs.TotalDistance = units.Distance(rs.TotalDistanceMeters, sys)
	rs.AvgPaceMinutes = paceMinutes(rs.TotalTimeSeconds, rs.TotalDistance)
	return rs
}

func newRunRecord(a activity.NormalizedActivity, sys units.System) *RunRecord {
	return &RunRecord{
		ID:                a.ID,
		Name:              a.Name,
		Date:              a.Date(),
		DistanceMeters:    a.DistanceMeters,
		MovingTimeSeconds: a.MovingTimeSeconds,
		PaceMinutes:       paceMinutes(a.MovingTimeSeconds, units.Distance(a.DistanceMeters, sys)),
	}
}

func paceMinutes(seconds int, distance float64) float64 {
	if distance <= 0 {
		return 0
	}
	return float64(seconds) / 60 / distance
}
