package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/joshdurbin/strava-dashboard/internal/api"
	"github.com/joshdurbin/strava-dashboard/internal/auth"
	"github.com/joshdurbin/strava-dashboard/internal/config"
	"github.com/joshdurbin/strava-dashboard/internal/dashboard"
	"github.com/joshdurbin/strava-dashboard/internal/db"
	"github.com/joshdurbin/strava-dashboard/internal/logging"
	"github.com/joshdurbin/strava-dashboard/internal/normalize"
	"github.com/joshdurbin/strava-dashboard/internal/server"
	"github.com/joshdurbin/strava-dashboard/internal/strava"
	"github.com/joshdurbin/strava-dashboard/internal/workers"
)

// Run is the main entry point for the unified run mode
func Run(ctx context.Context, cfg *config.Config, forceReauth bool) error {
	log := logging.Logger

	log.Info().
		Str("db_path", cfg.DBPath).
		Int("http_port", cfg.HTTP.Port).
		Bool("mcp_enabled", cfg.MCP.Enabled).
		Int("mcp_port", cfg.MCP.Port).
		Bool("sync_enabled", cfg.Sync.Enabled).
		Dur("sync_interval", cfg.Sync.Interval).
		Dur("token_refresh_interval", cfg.Sync.TokenRefreshInterval).
		Msg("starting strava-dashboard")

	// Set up context for shutdown handling
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Str("path", cfg.DBPath).Msg("opening database")
	sqlDB, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	// Check for database lock (another instance running)
	if err := checkDatabaseLock(sqlDB); err != nil {
		return err
	}
	if err := db.Migrate(ctx, sqlDB); err != nil {
		return err
	}

	queries := db.New(sqlDB)
	storage := auth.NewStorage(queries)

	// Log database statistics
	workers.LogDatabaseStats(ctx, queries)

	// Use default retry config (rate limiting is handled by waiting for window resets)
	retryConfig := strava.DefaultRetryConfig()

	if cfg.Sync.Enabled {
		l := &login{
			storage:      storage,
			strava:       cfg.Strava,
			prompt:       newPrompter(os.Stdin, os.Stderr),
			authenticate: auth.Authenticate,
		}
		accessToken, err := l.accessToken(ctx, forceReauth)
		if err != nil {
			return fmt.Errorf("authentication: %w", err)
		}

		// Perform initial sync
		if _, err := workers.SyncOnce(ctx, queries, accessToken, retryConfig); err != nil {
			log.Warn().Err(err).Msg("initial sync failed")
			// Continue anyway - background worker will retry
		}

		// Log database statistics after initial sync
		workers.LogDatabaseStats(ctx, queries)
	} else {
		log.Info().Msg("running in offline mode (--no-sync), skipping Strava API sync")
	}

	svc, err := newDashboard(ctx, cfg, queries)
	if err != nil {
		return err
	}

	// Start background workers with errgroup for graceful shutdown
	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Sync.Enabled {
		log.Info().Msg("starting background workers")

		// Token refresh worker
		tokenRefresher := workers.NewTokenRefresher(storage, cfg.Sync.TokenRefreshInterval)
		g.Go(func() error {
			return tokenRefresher.Run(gCtx)
		})

		// Activity sync worker, reloads the dashboard when new activities arrive
		activitySyncer := workers.NewActivitySyncer(queries, storage, cfg.Sync.Interval, retryConfig, svc.Reload)
		g.Go(func() error {
			return activitySyncer.Run(gCtx)
		})
	}

	if cfg.HTTP.Port > 0 {
		gin.SetMode(gin.ReleaseMode)
		apiServer := api.New(svc, storage, api.Options{
			ClientID:      cfg.Strava.ClientID,
			ClientSecret:  cfg.Strava.ClientSecret,
			RedirectURI:   cfg.Strava.RedirectURI,
			SessionSecret: cfg.Session.Secret,
			OnAuthorized:  svc.Reload,
		})
		g.Go(func() error {
			return apiServer.Run(gCtx, fmt.Sprintf(":%d", cfg.HTTP.Port))
		})
	}

	if cfg.MCP.Enabled {
		srv := server.New(svc)
		if cfg.MCP.Port > 0 {
			g.Go(func() error {
				return runSSEServer(gCtx, srv.SSEHandler(), cfg.MCP.Port)
			})
		} else {
			g.Go(func() error {
				log.Info().Msg("MCP server running via stdio")
				// stdin closing ends the session and the process
				defer stop()
				return srv.Run(gCtx)
			})
		}
	}

	log.Info().Msg("waiting for shutdown")
	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Warn().Err(err).Msg("error during shutdown")
		return err
	}
	log.Info().Msg("all workers shut down gracefully")
	return nil
}

// newDashboard builds the dashboard service from the configured preferences,
// applies stored preferences and loads the local mirror
func newDashboard(ctx context.Context, cfg *config.Config, queries *db.Queries) (*dashboard.Service, error) {
	log := logging.Logger

	prefs, err := dashboard.ParsePreferences(dashboard.DefaultPreferences(),
		cfg.Dashboard.UnitSystem, cfg.Dashboard.DateRange, "", "", cfg.Dashboard.HeatmapMode)
	if err != nil {
		return nil, fmt.Errorf("dashboard preferences: %w", err)
	}

	store := dashboard.NewStore(dashboard.WithPreferences(prefs))
	store.Subscribe(func(snap dashboard.Snapshot) {
		log.Debug().
			Int("activities", len(snap.Activities)).
			Int("in_range", len(snap.Filtered)).
			Str("range", snap.Preferences.Range.String()).
			Str("unit_system", snap.Preferences.Units.String()).
			Msg("dashboard updated")
	})

	svc := dashboard.NewService(queries, store, normalize.New(normalize.SystemZones{}))
	if err := svc.LoadPreferences(ctx); err != nil {
		return nil, fmt.Errorf("loading preferences: %w", err)
	}
	if err := svc.Reload(ctx); err != nil {
		return nil, fmt.Errorf("loading activities: %w", err)
	}
	return svc, nil
}

// runSSEServer runs the MCP server over HTTP/SSE
func runSSEServer(ctx context.Context, handler http.Handler, port int) error {
	log := logging.Logger

	addr := fmt.Sprintf(":%d", port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info().
			Str("address", addr).
			Str("endpoint", fmt.Sprintf("http://localhost%s", addr)).
			Msg("MCP server running via HTTP/SSE")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down MCP HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

// checkDatabaseLock verifies no other process has the database locked
func checkDatabaseLock(sqlDB *sql.DB) error {
	log := logging.Logger

	// Try to start a transaction to actually acquire the lock
	_, err := sqlDB.Exec("BEGIN EXCLUSIVE")
	if err != nil {
		if strings.Contains(err.Error(), "locked") || strings.Contains(err.Error(), "busy") {
			return fmt.Errorf("another instance is already running (database is locked)")
		}
		return fmt.Errorf("checking database lock: %w", err)
	}

	// Commit the transaction - we've verified no other process has exclusive access
	if _, err := sqlDB.Exec("COMMIT"); err != nil {
		return fmt.Errorf("releasing lock check: %w", err)
	}

	log.Debug().Msg("database lock check passed")
	return nil
}
