package stats

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/joshdurbin/strava-dashboard/internal/activity"
)

// Granularity is the width of a trend bucket
type Granularity string

const (
	// Day buckets by calendar date
	Day Granularity = "day"
	// Week buckets by ISO week, starting Monday
	Week Granularity = "week"
	// Month buckets by calendar month
	Month Granularity = "month"
	// Year buckets by calendar year
	Year Granularity = "year"
)

// Mode selects which activities qualify for trends and the daily timeline
type Mode string

const (
	// ModeAll counts every activity
	ModeAll Mode = "all"
	// ModeRunning counts running activities only
	ModeRunning Mode = "running"
)

// Field is a numeric bucket series that can be smoothed
type Field string

const (
	FieldCount    Field = "count"
	FieldDistance Field = "distance"
	FieldTime     Field = "time"
	FieldPace     Field = "pace"
)

// DefaultWindow is the moving average window used when none is given
const DefaultWindow = 7

// Parse errors for trend options
var (
	// ErrUnknownGranularity is returned for anything but day, week, month or year
	ErrUnknownGranularity = errors.New("unknown granularity")
	// ErrUnknownMode is returned for anything but all or running
	ErrUnknownMode = errors.New("unknown mode")
	// ErrUnknownField is returned for a series name that cannot be smoothed
	ErrUnknownField = errors.New("unknown field")
)

// ParseGranularity accepts day, week, month or year
func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(strings.ToLower(strings.TrimSpace(s))); g {
	case Day, Week, Month, Year:
		return g, nil
	case "":
		return Week, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownGranularity, s)
}

// ParseMode accepts all or running; empty means all
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeAll, ModeRunning:
		return m, nil
	case "":
		return ModeAll, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// ParseField accepts count, distance, time or pace; empty means distance
func ParseField(s string) (Field, error) {
	switch f := Field(strings.ToLower(strings.TrimSpace(s))); f {
	case FieldCount, FieldDistance, FieldTime, FieldPace:
		return f, nil
	case "":
		return FieldDistance, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
}

// Qualifies reports whether a counts toward mode
func (m Mode) Qualifies(a activity.NormalizedActivity) bool {
	if m == ModeRunning {
		return a.IsRunning()
	}
	return true
}

// Bucket is one trend aggregation unit
type Bucket struct {
	Key               string    `json:"key"`
	Label             string    `json:"label"`
	Start             time.Time `json:"start"`
	Count             int       `json:"count"`
	DistanceMeters    float64   `json:"distance_m"`
	TimeSeconds       int       `json:"time_s"`
	RunDistanceMeters float64   `json:"run_distance_m"`
	RunTimeSeconds    int       `json:"run_time_s"`
	// AvgPaceSecPerKm is nil when the bucket holds no running distance
	AvgPaceSecPerKm *float64 `json:"avg_pace_s_per_km"`
	Smoothed        *float64 `json:"smoothed,omitempty"`
}

// Value returns the bucket's value for f; nil means missing
func (b Bucket) Value(f Field) *float64 {
	var v float64
	switch f {
	case FieldCount:
		v = float64(b.Count)
	case FieldDistance:
		v = b.DistanceMeters
	case FieldTime:
		v = float64(b.TimeSeconds)
	case FieldPace:
		if b.AvgPaceSecPerKm == nil {
			return nil
		}
		v = *b.AvgPaceSecPerKm
	default:
		return nil
	}
	return &v
}

// BucketStart returns the first calendar day of the bucket containing day
func BucketStart(day time.Time, g Granularity) time.Time {
	day = Midnight(day)
	switch g {
	case Week:
		offset := (int(day.Weekday()) + 6) % 7
		return addDays(day, -offset)
	case Month:
		return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
	case Year:
		return time.Date(day.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return day
}

func bucketKey(start time.Time, g Granularity) (key, label string) {
	switch g {
	case Week:
		y, w := start.ISOWeek()
		end := addDays(start, 6)
		return fmt.Sprintf("%04d-W%02d", y, w),
			start.Format(time.DateOnly) + " → " + end.Format(time.DateOnly)
	case Month:
		return start.Format("2006-01"), start.Format("Jan 2006")
	case Year:
		return start.Format("2006"), start.Format("2006")
	}
	return start.Format(time.DateOnly), start.Format("Mon Jan 2, 2006")
}

// ComputeTrendBuckets groups activities by granularity. A bucket exists only
// when at least one activity qualifies for mode. Running distance and time are
// accumulated regardless of mode and drive the bucket's average pace.
func ComputeTrendBuckets(acts []activity.NormalizedActivity, mode Mode, g Granularity) []Bucket {
	byKey := make(map[string]*Bucket)
	for _, a := range acts {
		if !mode.Qualifies(a) {
			continue
		}
		start := BucketStart(a.Date(), g)
		key, label := bucketKey(start, g)
		if _, ok := byKey[key]; !ok {
			byKey[key] = &Bucket{Key: key, Label: label, Start: start}
		}
	}

	for _, a := range acts {
		key, _ := bucketKey(BucketStart(a.Date(), g), g)
		b, ok := byKey[key]
		if !ok {
			continue
		}
		if mode.Qualifies(a) {
			b.Count++
			b.DistanceMeters += a.DistanceMeters
			b.TimeSeconds += a.MovingTimeSeconds
		}
		if a.IsRunning() {
			b.RunDistanceMeters += a.DistanceMeters
			b.RunTimeSeconds += a.MovingTimeSeconds
		}
	}

	out := make([]Bucket, 0, len(byKey))
	for _, b := range byKey {
		if b.RunDistanceMeters > 0 {
			pace := float64(b.RunTimeSeconds) / (b.RunDistanceMeters / 1000)
			b.AvgPaceSecPerKm = &pace
		}
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// Smooth returns a copy of buckets with Smoothed set to the trailing mean of
// field over up to window values ending at each position. Missing values are
// excluded from both the sum and the count; a window with no values leaves
// Smoothed nil. A window of zero or less uses DefaultWindow.
func Smooth(buckets []Bucket, field Field, window int) []Bucket {
	if window <= 0 {
		window = DefaultWindow
	}
	out := make([]Bucket, len(buckets))
	copy(out, buckets)
	for i := range out {
		var sum float64
		var n int
		for j := max(0, i-window+1); j <= i; j++ {
			if v := buckets[j].Value(field); v != nil {
				sum += *v
				n++
			}
		}
		out[i].Smoothed = nil
		if n > 0 {
			mean := sum / float64(n)
			out[i].Smoothed = &mean
		}
	}
	return out
}

// TrendOptions configures ComputeTrend
type TrendOptions struct {
	Mode        Mode
	Granularity Granularity
	Field       Field
	Window      int
}

// Trend is a bucket series with optional smoothing
type Trend struct {
	Mode        Mode        `json:"mode"`
	Granularity Granularity `json:"granularity"`
	Field       Field       `json:"field"`
	Window      int         `json:"window"`
	Smoothed    bool        `json:"smoothed"`
	Buckets     []Bucket    `json:"buckets"`
}

// ComputeTrend buckets acts and smooths the series when the granularity is day
// and there are more buckets than the window
func ComputeTrend(acts []activity.NormalizedActivity, opts TrendOptions) Trend {
	if opts.Mode == "" {
		opts.Mode = ModeAll
	}
	if opts.Granularity == "" {
		opts.Granularity = Week
	}
	if opts.Field == "" {
		opts.Field = FieldDistance
	}
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}

	t := Trend{
		Mode:        opts.Mode,
		Granularity: opts.Granularity,
		Field:       opts.Field,
		Window:      opts.Window,
		Buckets:     ComputeTrendBuckets(acts, opts.Mode, opts.Granularity),
	}
	if opts.Granularity == Day && len(t.Buckets) > opts.Window {
		t.Buckets = Smooth(t.Buckets, opts.Field, opts.Window)
		t.Smoothed = true
	}
	return t
}
