// Package workers runs the background jobs that keep the local mirror and
// the OAuth tokens fresh.
package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joshdurbin/strava-dashboard/internal/auth"
	"github.com/joshdurbin/strava-dashboard/internal/db"
	"github.com/joshdurbin/strava-dashboard/internal/logging"
	"github.com/joshdurbin/strava-dashboard/internal/observability"
	"github.com/joshdurbin/strava-dashboard/internal/strava"
	syncsvc "github.com/joshdurbin/strava-dashboard/internal/sync"
)

// refresh tokens that expire within this window
const refreshThreshold = 10 * time.Minute

// ReloadFunc is called after a sync saved new activities
type ReloadFunc func(ctx context.Context) error

// TokenRefresher keeps auth tokens up to date
type TokenRefresher struct {
	storage  *auth.Storage
	interval time.Duration
}

// NewTokenRefresher creates a new token refresher worker
func NewTokenRefresher(storage *auth.Storage, interval time.Duration) *TokenRefresher {
	return &TokenRefresher{
		storage:  storage,
		interval: interval,
	}
}

// Run checks the token immediately and then on every tick until ctx is done
func (t *TokenRefresher) Run(ctx context.Context) error {
	log := logging.Logger
	log.Info().Dur("interval", t.interval).Msg("token refresher started")

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.checkAndRefresh(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("token refresher stopped")
			return nil
		case <-ticker.C:
			t.checkAndRefresh(ctx)
		}
	}
}

// checkAndRefresh reports whether a refresh happened
func (t *TokenRefresher) checkAndRefresh(ctx context.Context) bool {
	log := logging.Logger
	log.Debug().Msg("checking token validity")

	tokens, err := t.storage.LoadTokens(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to load tokens for refresh check")
		return false
	}

	timeUntilExpiry := time.Until(time.Unix(tokens.ExpiresAt, 0))
	if timeUntilExpiry >= refreshThreshold {
		log.Debug().Dur("expires_in", timeUntilExpiry.Round(time.Second)).Msg("token still valid")
		return false
	}

	log.Info().Dur("expires_in", timeUntilExpiry).Msg("token expiring soon, refreshing")
	newTokens, err := t.storage.Refresh(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to refresh token")
		return false
	}

	log.Info().
		Str("new_expires_at", time.Unix(newTokens.ExpiresAt, 0).Format(time.RFC3339)).
		Msg("token refreshed successfully")
	return true
}

// ActivitySyncer periodically pulls new activities into the local mirror
type ActivitySyncer struct {
	queries   *db.Queries
	storage   *auth.Storage
	interval  time.Duration
	newClient func(accessToken string) *strava.Client
	onSynced  ReloadFunc
}

// NewActivitySyncer creates a new activity sync worker. onSynced may be nil.
func NewActivitySyncer(queries *db.Queries, storage *auth.Storage, interval time.Duration, retryConfig strava.RetryConfig, onSynced ReloadFunc) *ActivitySyncer {
	return &ActivitySyncer{
		queries:  queries,
		storage:  storage,
		interval: interval,
		newClient: func(accessToken string) *strava.Client {
			return strava.NewClientWithRetryConfig(accessToken, retryConfig)
		},
		onSynced: onSynced,
	}
}

// Run syncs on every tick until ctx is done. The first sync waits one
// interval since startup already ran SyncOnce.
func (a *ActivitySyncer) Run(ctx context.Context) error {
	log := logging.Logger
	log.Info().Dur("interval", a.interval).Msg("activity syncer started")

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("activity syncer stopped")
			return nil
		case <-ticker.C:
			if _, err := a.syncActivities(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("activity sync failed")
			}
		}
	}
}

func (a *ActivitySyncer) syncActivities(ctx context.Context) (int, error) {
	accessToken, err := a.storage.GetValidAccessToken(ctx)
	if err != nil {
		return 0, fmt.Errorf("getting access token: %w", err)
	}

	client := a.newClient(accessToken)

	// the previous run may have left the window nearly exhausted
	if err := client.WaitForRateLimit(ctx); err != nil {
		return 0, err
	}

	saved, err := syncWith(ctx, a.queries, client)
	if err != nil {
		return saved, err
	}

	if saved > 0 && a.onSynced != nil {
		if err := a.onSynced(ctx); err != nil {
			return saved, fmt.Errorf("reloading dashboard: %w", err)
		}
	}
	return saved, nil
}

// SyncOnce performs a single sync (used for initial sync on startup)
func SyncOnce(ctx context.Context, queries *db.Queries, accessToken string, retryConfig strava.RetryConfig) (int, error) {
	return syncWith(ctx, queries, strava.NewClientWithRetryConfig(accessToken, retryConfig))
}

// syncWith fetches activities newer than the latest stored one (everything
// when the mirror is empty), saves them and refreshes the athlete profile
func syncWith(ctx context.Context, queries *db.Queries, client *strava.Client) (int, error) {
	log := logging.Logger

	latestDate, err := queries.GetLatestActivityDate(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to get latest activity date, doing full sync")
		latestDate = time.Time{}
	}

	progress := func(result strava.FetchResult) {
		rl := result.RateLimit
		event := log.Debug()
		if result.Paused > 0 || rl.IsRateLimited {
			event = log.Info()
		}
		event.
			Int("page", result.Page).
			Int("activities_on_page", len(result.Activities)).
			Int("total_fetched", result.TotalFetched).
			Dur("paused", result.Paused).
			Str("15min_usage", fmt.Sprintf("%d/%d", rl.Usage15Min, rl.Limit15Min)).
			Str("daily_usage", fmt.Sprintf("%d/%d", rl.UsageDaily, rl.LimitDaily)).
			Msg("activity sync progress")
	}

	if latestDate.IsZero() {
		log.Info().Msg("performing full sync")
	} else {
		log.Info().Str("since", latestDate.Format(time.RFC3339)).Msg("performing delta sync")
	}

	service := syncsvc.NewService(queries, client)
	saved, err := service.SyncDelta(ctx, latestDate, progress, nil)
	if err != nil {
		log.Info().Int("saved", saved).Msg("activity sync interrupted")
		return saved, err
	}

	if _, err := service.SyncAthlete(ctx); err != nil {
		// the activities are already stored; a stale profile is not fatal
		log.Warn().Err(err).Msg("failed to refresh athlete profile")
	}

	observability.RecordSyncCompleted(time.Now())

	rl := client.GetRateLimit()
	log.Info().
		Int("saved", saved).
		Str("15min_usage", fmt.Sprintf("%d/%d", rl.Usage15Min, rl.Limit15Min)).
		Str("daily_usage", fmt.Sprintf("%d/%d", rl.UsageDaily, rl.LimitDaily)).
		Msg("activity sync completed")
	return saved, nil
}

// LogDatabaseStats logs current database statistics
func LogDatabaseStats(ctx context.Context, queries *db.Queries) {
	log := logging.Logger

	count, err := queries.CountActivities(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to count activities")
		return
	}

	if count == 0 {
		log.Info().Int64("total_activities", 0).Msg("database statistics")
		return
	}

	newest, _ := queries.GetLatestActivityDate(ctx)
	oldest, _ := queries.GetOldestActivityDate(ctx)

	log.Info().
		Int64("total_activities", count).
		Str("newest_activity", formatDate(newest)).
		Str("oldest_activity", formatDate(oldest)).
		Msg("database statistics")
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Format(time.RFC3339)
}
