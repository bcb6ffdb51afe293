// Package sync mirrors upstream activities into the local database and reads
// them back as raw records.
package sync

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/joshdurbin/strava-dashboard/internal/db"
	"github.com/joshdurbin/strava-dashboard/internal/logging"
	"github.com/joshdurbin/strava-dashboard/internal/observability"
	"github.com/joshdurbin/strava-dashboard/internal/strava"
)

// SaveProgressCallback is called after each activity is saved
type SaveProgressCallback func(current, total int, activityName string)

// ErrRateLimited is returned when rate limited by the API
var ErrRateLimited = strava.ErrRateLimited

// Service handles syncing activities from Strava to the database
type Service struct {
	queries *db.Queries
	client  *strava.Client
}

// NewService creates a new sync service
func NewService(queries *db.Queries, client *strava.Client) *Service {
	return &Service{
		queries: queries,
		client:  client,
	}
}

// Sync fetches all activities and upserts them
func (s *Service) Sync(ctx context.Context, fetchProgress strava.ProgressCallback, saveProgress SaveProgressCallback) (int, error) {
	return s.SyncDelta(ctx, time.Time{}, fetchProgress, saveProgress)
}

// SyncDelta fetches activities started after since (all when since is zero)
// and upserts them. It returns the number saved.
func (s *Service) SyncDelta(ctx context.Context, since time.Time, fetchProgress strava.ProgressCallback, saveProgress SaveProgressCallback) (int, error) {
	var (
		activities []strava.Activity
		err        error
	)
	if since.IsZero() {
		activities, err = s.client.FetchAllActivities(ctx, fetchProgress)
	} else {
		activities, err = s.client.FetchActivitiesSince(ctx, since, fetchProgress)
	}
	if err != nil {
		return 0, fmt.Errorf("fetching activities: %w", err)
	}

	saved, err := SaveActivities(ctx, s.queries, activities, saveProgress)
	observability.RecordActivitiesSaved(saved)
	return saved, err
}

// SyncAthlete fetches the athlete profile and stores it
func (s *Service) SyncAthlete(ctx context.Context) (*strava.Athlete, error) {
	athlete, err := s.client.FetchAthlete(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching athlete: %w", err)
	}
	if err := s.queries.UpsertAthlete(ctx, ConvertAthleteToParams(*athlete)); err != nil {
		return nil, fmt.Errorf("saving athlete: %w", err)
	}
	return athlete, nil
}

// SaveActivities upserts activities, stopping at the first failure or when
// ctx is cancelled. It returns the number saved.
func SaveActivities(ctx context.Context, queries *db.Queries, activities []strava.Activity, progress SaveProgressCallback) (int, error) {
	for i, activity := range activities {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := queries.UpsertActivity(ctx, ConvertActivityToParams(activity)); err != nil {
			return i, fmt.Errorf("saving activity %d (%s): %w", activity.ID, activity.Name, err)
		}
		logging.Debug("saved activity", "activity_id", activity.ID, "activity_name", activity.Name)
		if progress != nil {
			progress(i+1, len(activities), activity.Name)
		}
	}
	return len(activities), nil
}

// LoadActivities reads every stored activity back as a raw record, oldest first
func LoadActivities(ctx context.Context, queries *db.Queries) ([]strava.Activity, error) {
	rows, err := queries.GetAllActivities(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading activities: %w", err)
	}
	out := make([]strava.Activity, 0, len(rows))
	for _, row := range rows {
		a, err := ActivityFromRow(row)
		if err != nil {
			logging.Warn("skipping unreadable stored activity", "activity_id", row.ID, "error", err)
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// ConvertActivityToParams converts a Strava activity to database params
func ConvertActivityToParams(a strava.Activity) db.UpsertActivityParams {
	return db.UpsertActivityParams{
		ID:                 a.ID,
		Name:               a.Name,
		Distance:           toNullFloat64(a.Distance),
		MovingTime:         toNullInt64(int64(a.MovingTime)),
		ElapsedTime:        toNullInt64(int64(a.ElapsedTime)),
		TotalElevationGain: toNullFloat64(a.TotalElevationGain),
		Type:               toNullString(a.Type),
		SportType:          toNullString(a.SportType),
		StartDate:          toNullTime(a.StartDate.UTC()),
		StartDateLocal:     toNullTime(a.StartDateLocal),
		Timezone:           toNullString(a.Timezone),
		AverageSpeed:       toNullFloat64(a.AverageSpeed),
		MaxSpeed:           toNullFloat64(a.MaxSpeed),
		AverageCadence:     toNullFloat64(a.AverageCadence),
		AverageHeartrate:   toNullFloat64(a.AverageHeartrate),
		MaxHeartrate:       toNullFloat64(a.MaxHeartrate),
		Kilojoules:         toNullFloat64(a.Kilojoules),
	}
}

// ActivityFromRow converts a stored row back into the raw record it came from
func ActivityFromRow(row db.Activity) (strava.Activity, error) {
	start, err := fromNullTime(row.StartDate)
	if err != nil {
		return strava.Activity{}, fmt.Errorf("start_date: %w", err)
	}
	startLocal, err := fromNullTime(row.StartDateLocal)
	if err != nil {
		return strava.Activity{}, fmt.Errorf("start_date_local: %w", err)
	}

	return strava.Activity{
		ID:                 row.ID,
		Name:               row.Name,
		Distance:           row.Distance.Float64,
		MovingTime:         int(row.MovingTime.Int64),
		ElapsedTime:        int(row.ElapsedTime.Int64),
		TotalElevationGain: row.TotalElevationGain.Float64,
		Type:               fromNullString(row.Type),
		SportType:          fromNullString(row.SportType),
		StartDate:          start,
		StartDateLocal:     startLocal,
		Timezone:           fromNullString(row.Timezone),
		AverageSpeed:       row.AverageSpeed.Float64,
		MaxSpeed:           row.MaxSpeed.Float64,
		AverageCadence:     row.AverageCadence.Float64,
		AverageHeartrate:   row.AverageHeartrate.Float64,
		MaxHeartrate:       row.MaxHeartrate.Float64,
		Kilojoules:         row.Kilojoules.Float64,
	}, nil
}

// ConvertAthleteToParams converts the athlete profile to its stored row
func ConvertAthleteToParams(a strava.Athlete) db.Athlete {
	return db.Athlete{
		AthleteID: a.ID,
		Username:  toNullString(&a.Username),
		FirstName: toNullString(&a.FirstName),
		LastName:  toNullString(&a.LastName),
	}
}

// AthleteFromRow converts a stored athlete row back into a profile
func AthleteFromRow(row db.Athlete) strava.Athlete {
	return strava.Athlete{
		ID:        row.AthleteID,
		Username:  row.Username.String,
		FirstName: row.FirstName.String,
		LastName:  row.LastName.String,
	}
}

func toNullFloat64(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: v != 0}
}

func toNullInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}

func toNullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: *v != ""}
}

// toNullTime keeps the value's own offset
func toNullTime(v time.Time) sql.NullString {
	if v.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: v.Format(time.RFC3339), Valid: true}
}

func fromNullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func fromNullTime(v sql.NullString) (time.Time, error) {
	if !v.Valid || v.String == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, v.String)
}
