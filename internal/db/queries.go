package db

import (
	"context"
	"database/sql"
	"time"
)

const activityColumns = `id, name, distance, moving_time, elapsed_time, total_elevation_gain,
	type, sport_type, start_date, start_date_local, timezone, average_speed, max_speed,
	average_cadence, average_heartrate, max_heartrate, kilojoules`

type UpsertActivityParams = Activity

const upsertActivity = `INSERT INTO activities (` + activityColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	name = excluded.name,
	distance = excluded.distance,
	moving_time = excluded.moving_time,
	elapsed_time = excluded.elapsed_time,
	total_elevation_gain = excluded.total_elevation_gain,
	type = excluded.type,
	sport_type = excluded.sport_type,
	start_date = excluded.start_date,
	start_date_local = excluded.start_date_local,
	timezone = excluded.timezone,
	average_speed = excluded.average_speed,
	max_speed = excluded.max_speed,
	average_cadence = excluded.average_cadence,
	average_heartrate = excluded.average_heartrate,
	max_heartrate = excluded.max_heartrate,
	kilojoules = excluded.kilojoules,
	updated_at = CURRENT_TIMESTAMP`

func (q *Queries) UpsertActivity(ctx context.Context, arg UpsertActivityParams) error {
	_, err := q.db.ExecContext(ctx, upsertActivity,
		arg.ID,
		arg.Name,
		arg.Distance,
		arg.MovingTime,
		arg.ElapsedTime,
		arg.TotalElevationGain,
		arg.Type,
		arg.SportType,
		arg.StartDate,
		arg.StartDateLocal,
		arg.Timezone,
		arg.AverageSpeed,
		arg.MaxSpeed,
		arg.AverageCadence,
		arg.AverageHeartrate,
		arg.MaxHeartrate,
		arg.Kilojoules,
	)
	return err
}

const getAllActivities = `SELECT ` + activityColumns + ` FROM activities ORDER BY start_date ASC, id ASC`

func (q *Queries) GetAllActivities(ctx context.Context) ([]Activity, error) {
	return q.queryActivities(ctx, getAllActivities)
}

const getRecentActivities = `SELECT ` + activityColumns + ` FROM activities ORDER BY start_date DESC, id DESC LIMIT ?`

func (q *Queries) GetRecentActivities(ctx context.Context, limit int64) ([]Activity, error) {
	return q.queryActivities(ctx, getRecentActivities, limit)
}

func (q *Queries) queryActivities(ctx context.Context, query string, args ...interface{}) ([]Activity, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Activity
	for rows.Next() {
		var i Activity
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.Distance,
			&i.MovingTime,
			&i.ElapsedTime,
			&i.TotalElevationGain,
			&i.Type,
			&i.SportType,
			&i.StartDate,
			&i.StartDateLocal,
			&i.Timezone,
			&i.AverageSpeed,
			&i.MaxSpeed,
			&i.AverageCadence,
			&i.AverageHeartrate,
			&i.MaxHeartrate,
			&i.Kilojoules,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countActivities = `SELECT COUNT(*) FROM activities`

func (q *Queries) CountActivities(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countActivities).Scan(&count)
	return count, err
}

// GetLatestActivityDate returns the newest start_date, zero when empty
func (q *Queries) GetLatestActivityDate(ctx context.Context) (time.Time, error) {
	return q.activityDate(ctx, `SELECT MAX(start_date) FROM activities`)
}

// GetOldestActivityDate returns the oldest start_date, zero when empty
func (q *Queries) GetOldestActivityDate(ctx context.Context) (time.Time, error) {
	return q.activityDate(ctx, `SELECT MIN(start_date) FROM activities`)
}

func (q *Queries) activityDate(ctx context.Context, query string) (time.Time, error) {
	var s sql.NullString
	if err := q.db.QueryRowContext(ctx, query).Scan(&s); err != nil {
		return time.Time{}, err
	}
	if !s.Valid || s.String == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s.String)
}

const getAuthConfig = `SELECT client_id, client_secret, access_token, refresh_token, expires_at FROM auth_config WHERE id = 1`

func (q *Queries) GetAuthConfig(ctx context.Context) (AuthConfig, error) {
	var i AuthConfig
	err := q.db.QueryRowContext(ctx, getAuthConfig).Scan(
		&i.ClientID,
		&i.ClientSecret,
		&i.AccessToken,
		&i.RefreshToken,
		&i.ExpiresAt,
	)
	return i, err
}

type SaveAuthConfigParams struct {
	ClientID     string
	ClientSecret string
	AccessToken  sql.NullString
	RefreshToken sql.NullString
	ExpiresAt    sql.NullInt64
}

const saveAuthConfig = `INSERT INTO auth_config (id, client_id, client_secret, access_token, refresh_token, expires_at)
VALUES (1, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	client_id = excluded.client_id,
	client_secret = excluded.client_secret,
	access_token = excluded.access_token,
	refresh_token = excluded.refresh_token,
	expires_at = excluded.expires_at,
	updated_at = CURRENT_TIMESTAMP`

func (q *Queries) SaveAuthConfig(ctx context.Context, arg SaveAuthConfigParams) error {
	_, err := q.db.ExecContext(ctx, saveAuthConfig,
		arg.ClientID,
		arg.ClientSecret,
		arg.AccessToken,
		arg.RefreshToken,
		arg.ExpiresAt,
	)
	return err
}

type UpdateTokensParams struct {
	AccessToken  sql.NullString
	RefreshToken sql.NullString
	ExpiresAt    sql.NullInt64
}

const updateTokens = `UPDATE auth_config
SET access_token = ?, refresh_token = ?, expires_at = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = 1`

func (q *Queries) UpdateTokens(ctx context.Context, arg UpdateTokensParams) error {
	_, err := q.db.ExecContext(ctx, updateTokens, arg.AccessToken, arg.RefreshToken, arg.ExpiresAt)
	return err
}

func (q *Queries) DeleteAuthConfig(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM auth_config WHERE id = 1`)
	return err
}

const upsertAthlete = `INSERT INTO athlete (id, athlete_id, username, first_name, last_name)
VALUES (1, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	athlete_id = excluded.athlete_id,
	username = excluded.username,
	first_name = excluded.first_name,
	last_name = excluded.last_name,
	updated_at = CURRENT_TIMESTAMP`

func (q *Queries) UpsertAthlete(ctx context.Context, arg Athlete) error {
	_, err := q.db.ExecContext(ctx, upsertAthlete, arg.AthleteID, arg.Username, arg.FirstName, arg.LastName)
	return err
}

func (q *Queries) GetAthlete(ctx context.Context) (Athlete, error) {
	var i Athlete
	err := q.db.QueryRowContext(ctx,
		`SELECT athlete_id, username, first_name, last_name FROM athlete WHERE id = 1`,
	).Scan(&i.AthleteID, &i.Username, &i.FirstName, &i.LastName)
	return i, err
}

func (q *Queries) GetPreference(ctx context.Context, key string) (string, error) {
	var value string
	err := q.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	return value, err
}

const setPreference = `INSERT INTO preferences (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`

func (q *Queries) SetPreference(ctx context.Context, key, value string) error {
	_, err := q.db.ExecContext(ctx, setPreference, key, value)
	return err
}

func (q *Queries) GetPreferences(ctx context.Context) (map[string]string, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT key, value FROM preferences ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prefs := make(map[string]string)
	for rows.Next() {
		var p Preference
		if err := rows.Scan(&p.Key, &p.Value); err != nil {
			return nil, err
		}
		prefs[p.Key] = p.Value
	}
	return prefs, rows.Err()
}
