package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/joshdurbin/strava-dashboard/internal/db"
	"github.com/joshdurbin/strava-dashboard/internal/logging"
	"github.com/joshdurbin/strava-dashboard/internal/normalize"
	"github.com/joshdurbin/strava-dashboard/internal/observability"
	"github.com/joshdurbin/strava-dashboard/internal/stats"
	"github.com/joshdurbin/strava-dashboard/internal/sync"
	"github.com/joshdurbin/strava-dashboard/internal/units"
)

// Preference keys in the preferences table
const (
	KeyUnitSystem  = "unit_system"
	KeyDateRange   = "date_range"
	KeyRangeStart  = "date_range_start"
	KeyRangeEnd    = "date_range_end"
	KeyHeatmapMode = "heatmap_mode"
)

// Service loads the local mirror into a Store and persists preferences
type Service struct {
	queries    *db.Queries
	store      *Store
	normalizer *normalize.Normalizer
}

// NewService creates a new dashboard service
func NewService(queries *db.Queries, store *Store, normalizer *normalize.Normalizer) *Service {
	return &Service{
		queries:    queries,
		store:      store,
		normalizer: normalizer,
	}
}

// Store returns the state container the service feeds
func (s *Service) Store() *Store {
	return s.store
}

// Reload reads every stored activity and the athlete profile, normalizes the
// activities and replaces the store contents
func (s *Service) Reload(ctx context.Context) error {
	start := time.Now()

	raw, err := sync.LoadActivities(ctx, s.queries)
	if err != nil {
		return fmt.Errorf("loading activities: %w", err)
	}
	normalized := s.normalizer.NormalizeMany(raw)

	row, err := s.queries.GetAthlete(ctx)
	switch {
	case err == nil:
		athlete := sync.AthleteFromRow(row)
		s.store.SetAthlete(&athlete)
	case !db.IsNotFound(err):
		return fmt.Errorf("loading athlete: %w", err)
	}

	s.store.SetActivities(normalized)
	observability.RecordActivitiesLoaded(len(normalized))

	logging.Debug("Dashboard reloaded",
		"activities", len(normalized),
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

// LoadPreferences applies stored preferences to the store. Unreadable values
// are logged and the current value is kept.
func (s *Service) LoadPreferences(ctx context.Context) error {
	stored, err := s.queries.GetPreferences(ctx)
	if err != nil {
		return fmt.Errorf("loading preferences: %w", err)
	}

	prefs := s.store.Preferences()
	if v, ok := stored[KeyUnitSystem]; ok {
		if sys, err := units.ParseSystem(v); err == nil {
			prefs.Units = sys
		} else {
			logging.Warn("Ignoring stored unit system", "value", v, "error", err)
		}
	}
	if v, ok := stored[KeyDateRange]; ok {
		if r, err := stats.ParseRange(v, stored[KeyRangeStart], stored[KeyRangeEnd]); err == nil {
			prefs.Range = r
		} else {
			logging.Warn("Ignoring stored date range", "value", v, "error", err)
		}
	}
	if v, ok := stored[KeyHeatmapMode]; ok {
		if m, err := stats.ParseMode(v); err == nil {
			prefs.HeatmapMode = m
		} else {
			logging.Warn("Ignoring stored heatmap mode", "value", v, "error", err)
		}
	}
	return s.store.SetPreferences(prefs)
}

// SavePreferences validates p, applies it to the store and persists it
func (s *Service) SavePreferences(ctx context.Context, p Preferences) error {
	if err := s.store.SetPreferences(p); err != nil {
		return err
	}

	form := FormOf(p)
	values := []struct{ key, value string }{
		{KeyUnitSystem, form.UnitSystem},
		{KeyDateRange, form.DateRange},
		{KeyRangeStart, form.Start},
		{KeyRangeEnd, form.End},
		{KeyHeatmapMode, form.HeatmapMode},
	}
	for _, kv := range values {
		if err := s.queries.SetPreference(ctx, kv.key, kv.value); err != nil {
			return fmt.Errorf("saving preference %s: %w", kv.key, err)
		}
	}

	logging.Info("Preferences saved",
		"unit_system", p.Units.String(),
		"date_range", p.Range.String(),
		"heatmap_mode", string(p.HeatmapMode))
	return nil
}

// ParsePreferences builds preferences from their string forms, starting from
// base for any empty value
func ParsePreferences(base Preferences, unitSystem, dateRange, start, end, heatmapMode string) (Preferences, error) {
	p := base
	if unitSystem != "" {
		sys, err := units.ParseSystem(unitSystem)
		if err != nil {
			return p, err
		}
		p.Units = sys
	}
	if dateRange != "" {
		r, err := stats.ParseRange(dateRange, start, end)
		if err != nil {
			return p, err
		}
		p.Range = r
	}
	if heatmapMode != "" {
		m, err := stats.ParseMode(heatmapMode)
		if err != nil {
			return p, err
		}
		p.HeatmapMode = m
	}
	return p, p.Validate()
}

// PreferenceForm is the string form of Preferences used by the API, the MCP
// tools and the preferences table
type PreferenceForm struct {
	UnitSystem  string `json:"unit_system"`
	DateRange   string `json:"date_range"`
	Start       string `json:"start,omitempty"`
	End         string `json:"end,omitempty"`
	HeatmapMode string `json:"heatmap_mode"`
}

// FormOf renders p as a PreferenceForm
func FormOf(p Preferences) PreferenceForm {
	f := PreferenceForm{
		UnitSystem:  p.Units.String(),
		DateRange:   p.Range.Preset(),
		HeatmapMode: string(p.HeatmapMode),
	}
	if p.Range.Kind == stats.RangeCustom {
		f.Start = p.Range.Start.Format(time.DateOnly)
		if p.Range.End != nil {
			f.End = p.Range.End.Format(time.DateOnly)
		}
	}
	return f
}

// Apply parses f on top of base; empty fields keep base's value. A start
// date without a range name selects a custom range.
func (f PreferenceForm) Apply(base Preferences) (Preferences, error) {
	dateRange := f.DateRange
	if dateRange == "" && f.Start != "" {
		dateRange = string(stats.RangeCustom)
	}
	return ParsePreferences(base, f.UnitSystem, dateRange, f.Start, f.End, f.HeatmapMode)
}
