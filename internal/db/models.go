package db

import (
	"database/sql"
)

type AuthConfig struct {
	ClientID     string
	ClientSecret string
	AccessToken  sql.NullString
	RefreshToken sql.NullString
	ExpiresAt    sql.NullInt64
}

// Activity is one stored upstream record. Timestamps are RFC3339 text so the
// provider's offset on start_date_local survives the round trip.
type Activity struct {
	ID                 int64
	Name               string
	Distance           sql.NullFloat64
	MovingTime         sql.NullInt64
	ElapsedTime        sql.NullInt64
	TotalElevationGain sql.NullFloat64
	Type               sql.NullString
	SportType          sql.NullString
	StartDate          sql.NullString
	StartDateLocal     sql.NullString
	Timezone           sql.NullString
	AverageSpeed       sql.NullFloat64
	MaxSpeed           sql.NullFloat64
	AverageCadence     sql.NullFloat64
	AverageHeartrate   sql.NullFloat64
	MaxHeartrate       sql.NullFloat64
	Kilojoules         sql.NullFloat64
}

type Athlete struct {
	AthleteID int64
	Username  sql.NullString
	FirstName sql.NullString
	LastName  sql.NullString
}

type Preference struct {
	Key   string
	Value string
}
