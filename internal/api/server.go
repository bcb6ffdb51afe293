// Package api serves the dashboard as a JSON HTTP API.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joshdurbin/strava-dashboard/internal/auth"
	"github.com/joshdurbin/strava-dashboard/internal/dashboard"
	"github.com/joshdurbin/strava-dashboard/internal/logging"
)

const shutdownTimeout = 5 * time.Second

// Options carries the OAuth settings used by /auth/login and /auth/callback
type Options struct {
	ClientID     string
	ClientSecret string
	// RedirectURI replaces the callback URL derived from the request
	RedirectURI string
	// SessionSecret signs the OAuth state. A random key is used when empty,
	// so logins do not survive a restart.
	SessionSecret string
	// OnAuthorized runs after the callback stored new tokens
	OnAuthorized func(ctx context.Context) error
}

// Server is the HTTP API
type Server struct {
	svc     *dashboard.Service
	storage *auth.Storage
	opts    Options
	secret  []byte
	now     func() time.Time
	// exchange is replaced in tests
	exchange func(ctx context.Context, redirectURI, code string) (*auth.TokenResponse, error)
	engine   *gin.Engine
}

// New creates the API server and registers its routes
func New(svc *dashboard.Service, storage *auth.Storage, opts Options) *Server {
	s := &Server{
		svc:     svc,
		storage: storage,
		opts:    opts,
		now:     time.Now,
	}
	if opts.SessionSecret != "" {
		s.secret = []byte(opts.SessionSecret)
	} else {
		s.secret = []byte(uuid.NewString())
	}
	s.exchange = func(ctx context.Context, redirectURI, code string) (*auth.TokenResponse, error) {
		return auth.Exchange(ctx, s.opts.ClientID, s.opts.ClientSecret, redirectURI, code)
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(), cors())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authGroup := r.Group("/auth")
	{
		authGroup.GET("/login", s.login)
		authGroup.GET("/callback", s.callback)
	}

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/activities", s.activities)
		apiGroup.GET("/summary", s.summary)
		apiGroup.GET("/histogram", s.histogram)
		apiGroup.GET("/trends", s.trends)
		apiGroup.GET("/timeline", s.timeline)
		apiGroup.GET("/report", s.report)
		apiGroup.GET("/preferences", s.getPreferences)
		apiGroup.PUT("/preferences", s.putPreferences)
	}

	r.NoRoute(func(c *gin.Context) {
		fail(c, http.StatusNotFound, fmt.Sprintf("no route for %s %s", c.Request.Method, c.Request.URL.Path))
	})

	s.engine = r
	return s
}

// Handler returns the gin engine
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is done, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errChan := make(chan error, 1)
	go func() {
		logging.Info("HTTP API listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http api: %w", err)
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http api shutdown: %w", err)
	}
	logging.Info("HTTP API stopped")
	return nil
}
