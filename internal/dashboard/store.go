// Package dashboard holds the dashboard state (activities, filter and display
// preferences) and builds reports from it.
package dashboard

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/joshdurbin/strava-dashboard/internal/activity"
	"github.com/joshdurbin/strava-dashboard/internal/stats"
	"github.com/joshdurbin/strava-dashboard/internal/strava"
	"github.com/joshdurbin/strava-dashboard/internal/units"
)

// Preferences are the user-selectable display settings
type Preferences struct {
	Units       units.System    `json:"unit_system"`
	Range       stats.DateRange `json:"date_range"`
	HeatmapMode stats.Mode      `json:"heatmap_mode"`
}

// DefaultPreferences shows everything in metric
func DefaultPreferences() Preferences {
	return Preferences{
		Units:       units.Metric,
		Range:       stats.AllTime(),
		HeatmapMode: stats.ModeAll,
	}
}

// Validate rejects unit systems, ranges and heatmap modes the engine doesn't know
func (p Preferences) Validate() error {
	if p.Units != units.Metric && p.Units != units.Imperial {
		return fmt.Errorf("%w: %d", units.ErrUnknownSystem, int(p.Units))
	}
	if err := validateRange(p.Range); err != nil {
		return err
	}
	if p.HeatmapMode != stats.ModeAll && p.HeatmapMode != stats.ModeRunning {
		return fmt.Errorf("%w: %q", stats.ErrUnknownMode, p.HeatmapMode)
	}
	return nil
}

func validateRange(r stats.DateRange) error {
	switch r.Kind {
	case stats.RangeAll, stats.RangeYTD, stats.RangeLastDays, stats.RangeLastMonths:
		return nil
	case stats.RangeCustom:
		if r.Start.IsZero() {
			return fmt.Errorf("%w: custom range requires a start date", stats.ErrUnknownRange)
		}
		if r.End != nil && stats.Midnight(*r.End).Before(stats.Midnight(r.Start)) {
			return fmt.Errorf("%w: end before start", stats.ErrUnknownRange)
		}
		return nil
	}
	return fmt.Errorf("%w: kind %q", stats.ErrUnknownRange, r.Kind)
}

// Snapshot is a read-only copy of the store state. Filtered holds the
// activities inside Preferences.Range, oldest first.
type Snapshot struct {
	Athlete     *strava.Athlete
	Activities  []activity.NormalizedActivity
	Filtered    []activity.NormalizedActivity
	Preferences Preferences
	LoadedAt    time.Time
	Now         time.Time
}

// WithPreferences returns a copy of s viewed through p, with Filtered
// recomputed for p's range as of s.Now. The store is not touched.
func (s Snapshot) WithPreferences(p Preferences) Snapshot {
	s.Filtered = stats.FilterByRange(s.Activities, p.Range, s.Now)
	s.Preferences = p
	return s
}

// Listener receives a snapshot after every change
type Listener func(Snapshot)

type subscription struct {
	id int
	fn Listener
}

// Store is the dashboard state container. Setters recompute the filtered view
// synchronously and then notify listeners outside the lock, so a listener may
// call back into the store.
type Store struct {
	mu       sync.Mutex
	now      func() time.Time
	athlete  *strava.Athlete
	all      []activity.NormalizedActivity
	filtered []activity.NormalizedActivity
	prefs    Preferences
	loadedAt time.Time
	// calendar day the filtered view was computed for
	filteredOn time.Time

	nextID    int
	listeners []subscription
}

// Option configures a Store
type Option func(*Store)

// WithClock replaces time.Now, mostly for tests
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithPreferences sets the initial preferences. Invalid values are ignored.
func WithPreferences(p Preferences) Option {
	return func(s *Store) {
		if p.Validate() == nil {
			s.prefs = p
		}
	}
}

// NewStore creates an empty store
func NewStore(opts ...Option) *Store {
	s := &Store{
		now:   time.Now,
		prefs: DefaultPreferences(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.filtered = []activity.NormalizedActivity{}
	return s
}

// Subscribe registers fn and returns a function that removes it again
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.listeners = slices.DeleteFunc(s.listeners, func(sub subscription) bool {
				return sub.id == id
			})
		})
	}
}

// Snapshot returns a copy of the current state
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Preferences returns the current preferences
func (s *Store) Preferences() Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs
}

// SetAthlete replaces the athlete profile
func (s *Store) SetAthlete(a *strava.Athlete) {
	s.update(func() {
		if a == nil {
			s.athlete = nil
			return
		}
		cp := *a
		s.athlete = &cp
	})
}

// SetActivities replaces the full activity list and refilters it
func (s *Store) SetActivities(acts []activity.NormalizedActivity) {
	s.update(func() {
		s.all = slices.Clone(acts)
		if s.all == nil {
			s.all = []activity.NormalizedActivity{}
		}
		s.loadedAt = s.now()
		s.refilterLocked()
	})
}

// SetDateRange changes the filter
func (s *Store) SetDateRange(r stats.DateRange) error {
	if err := validateRange(r); err != nil {
		return err
	}
	s.update(func() {
		s.prefs.Range = r
		s.refilterLocked()
	})
	return nil
}

// SetUnitSystem changes the display units
func (s *Store) SetUnitSystem(sys units.System) error {
	if sys != units.Metric && sys != units.Imperial {
		return fmt.Errorf("%w: %d", units.ErrUnknownSystem, int(sys))
	}
	s.update(func() { s.prefs.Units = sys })
	return nil
}

// SetHeatmapMode changes which activities light up the timeline
func (s *Store) SetHeatmapMode(m stats.Mode) error {
	if m != stats.ModeAll && m != stats.ModeRunning {
		return fmt.Errorf("%w: %q", stats.ErrUnknownMode, m)
	}
	s.update(func() { s.prefs.HeatmapMode = m })
	return nil
}

// SetPreferences applies all preferences with a single notification
func (s *Store) SetPreferences(p Preferences) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.update(func() {
		s.prefs = p
		s.refilterLocked()
	})
	return nil
}

// Refresh refilters against the current clock and notifies listeners.
// Snapshots refilter on their own once the day rolls over.
func (s *Store) Refresh() {
	s.update(s.refilterLocked)
}

func (s *Store) update(mutate func()) {
	s.mu.Lock()
	mutate()
	snap := s.snapshotLocked()
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	for _, sub := range listeners {
		sub.fn(snap)
	}
}

func (s *Store) refilterLocked() {
	s.refilterAtLocked(s.now())
}

func (s *Store) refilterAtLocked(now time.Time) {
	s.filtered = stats.FilterByRange(s.all, s.prefs.Range, now)
	s.filteredOn = stats.Midnight(now)
}

func (s *Store) snapshotLocked() Snapshot {
	now := s.now()
	if !stats.Midnight(now).Equal(s.filteredOn) {
		s.refilterAtLocked(now)
	}
	snap := Snapshot{
		Activities:  slices.Clone(s.all),
		Filtered:    slices.Clone(s.filtered),
		Preferences: s.prefs,
		LoadedAt:    s.loadedAt,
		Now:         now,
	}
	if snap.Activities == nil {
		snap.Activities = []activity.NormalizedActivity{}
	}
	if snap.Filtered == nil {
		snap.Filtered = []activity.NormalizedActivity{}
	}
	if s.athlete != nil {
		cp := *s.athlete
		snap.Athlete = &cp
	}
	return snap
}
