package stats

import (
	"math"
	"strconv"

	"github.com/joshdurbin/strava-dashboard/internal/activity"
	"github.com/joshdurbin/strava-dashboard/internal/units"
)

// Bin is one distance histogram bin covering [Lower, Upper) in display units.
// The last bin also holds the maximum.
type Bin struct {
	Label string  `json:"label"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// Histogram is a distance histogram of running activities
type Histogram struct {
	Unit     string  `json:"unit"`
	BinWidth float64 `json:"bin_width"`
	Bins     []Bin   `json:"bins"`
}

// BinWidth is 1 mile for imperial and 2 km for metric
func BinWidth(sys units.System) float64 {
	if sys == units.Imperial {
		return 1
	}
	return 2
}

// ComputeHistogram bins running-type activities by converted distance. There are
// ceil(max/width) bins, at least one when any run exists.
func ComputeHistogram(acts []activity.NormalizedActivity, sys units.System) Histogram {
	width := BinWidth(sys)
	h := Histogram{Unit: sys.DistanceUnit(), BinWidth: width, Bins: []Bin{}}

	var distances []float64
	maxDist := 0.0
	for _, a := range acts {
		if !a.IsRunning() {
			continue
		}
		d := units.Distance(a.DistanceMeters, sys)
		distances = append(distances, d)
		maxDist = math.Max(maxDist, d)
	}
	if len(distances) == 0 {
		return h
	}

	n := int(math.Ceil(maxDist / width))
	if n < 1 {
		n = 1
	}

	h.Bins = make([]Bin, n)
	for i := range h.Bins {
		lower := float64(i) * width
		upper := float64(i+1) * width
		h.Bins[i] = Bin{
			Label: formatBound(lower) + "-" + formatBound(upper) + " " + h.Unit,
			Lower: lower,
			Upper: upper,
		}
	}
	for _, d := range distances {
		idx := int(math.Floor(d / width))
		idx = max(0, min(idx, n-1))
		h.Bins[idx].Count++
	}
	return h
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
