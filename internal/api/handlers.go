package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/joshdurbin/strava-dashboard/internal/auth"
	"github.com/joshdurbin/strava-dashboard/internal/dashboard"
	"github.com/joshdurbin/strava-dashboard/internal/logging"
	"github.com/joshdurbin/strava-dashboard/internal/stats"
)

// login handles GET /auth/login?redirectUri=
func (s *Server) login(c *gin.Context) {
	if s.opts.ClientID == "" {
		fail(c, http.StatusInternalServerError, "Strava client id is not configured")
		return
	}

	redirectURI := c.Query("redirectUri")
	if redirectURI == "" {
		redirectURI = s.opts.RedirectURI
	}
	if redirectURI == "" {
		redirectURI = fmt.Sprintf("%s://%s/auth/callback", requestScheme(c), c.Request.Host)
	}

	state, err := signState(s.secret, redirectURI, s.now())
	if err != nil {
		internalError(c, fmt.Errorf("signing state: %w", err))
		return
	}
	url, err := auth.LoginURL(s.opts.ClientID, redirectURI, state)
	if err != nil {
		internalError(c, err)
		return
	}
	c.Redirect(http.StatusFound, url)
}

// callback handles the redirect back from the Strava consent page
func (s *Server) callback(c *gin.Context) {
	if reason := c.Query("error"); reason != "" {
		badRequest(c, fmt.Errorf("authorization denied: %s", reason))
		return
	}
	claims, err := verifyState(s.secret, c.Query("state"), s.now())
	if err != nil {
		badRequest(c, err)
		return
	}
	code := c.Query("code")
	if code == "" {
		badRequest(c, errors.New("missing authorization code"))
		return
	}

	ctx := c.Request.Context()
	tokens, err := s.exchange(ctx, claims.RedirectURI, code)
	if err != nil {
		_ = c.Error(err)
		fail(c, http.StatusBadGateway, err.Error())
		return
	}
	if err := s.storage.SaveFullConfig(ctx, s.opts.ClientID, s.opts.ClientSecret, tokens); err != nil {
		internalError(c, fmt.Errorf("saving tokens: %w", err))
		return
	}
	logging.Info("Stored tokens from web login", "scope", c.Query("scope"))

	if s.opts.OnAuthorized != nil {
		if err := s.opts.OnAuthorized(ctx); err != nil {
			logging.Warn("Post-login hook failed", "error", err)
		}
	}
	success(c, gin.H{
		"authorized": true,
		"expires_at": time.Unix(tokens.ExpiresAt, 0).UTC(),
	})
}

func requestScheme(c *gin.Context) string {
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	if c.Request.TLS != nil {
		return "https"
	}
	return "http"
}

// snapshot returns the store snapshot with the request's range and unit
// overrides applied
func (s *Server) snapshot(c *gin.Context) (dashboard.Snapshot, bool) {
	snap := s.svc.Store().Snapshot()
	form := dashboard.PreferenceForm{
		UnitSystem: c.Query("units"),
		DateRange:  c.Query("range"),
		Start:      c.Query("start"),
		End:        c.Query("end"),
	}
	prefs, err := form.Apply(snap.Preferences)
	if err != nil {
		badRequest(c, err)
		return snap, false
	}
	return snap.WithPreferences(prefs), true
}

// GET /api/activities?limit=&sport=
func (s *Server) activities(c *gin.Context) {
	snap, ok := s.snapshot(c)
	if !ok {
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			badRequest(c, fmt.Errorf("invalid limit %q", raw))
			return
		}
		limit = n
	}

	list := dashboard.RecentActivities(snap, c.Query("sport"), limit)
	success(c, gin.H{
		"range":       snap.Preferences.Range.String(),
		"unit_system": snap.Preferences.Units,
		"total":       len(snap.Filtered),
		"count":       len(list),
		"activities":  list,
	})
}

// GET /api/summary
func (s *Server) summary(c *gin.Context) {
	snap, ok := s.snapshot(c)
	if !ok {
		return
	}
	success(c, dashboard.BuildSummary(snap))
}

// GET /api/histogram
func (s *Server) histogram(c *gin.Context) {
	snap, ok := s.snapshot(c)
	if !ok {
		return
	}
	success(c, gin.H{
		"range":       snap.Preferences.Range.String(),
		"unit_system": snap.Preferences.Units,
		"histogram":   stats.ComputeHistogram(snap.Filtered, snap.Preferences.Units),
	})
}

// GET /api/trends?granularity=&mode=&field=&window=
func (s *Server) trends(c *gin.Context) {
	snap, ok := s.snapshot(c)
	if !ok {
		return
	}
	opts, ok := reportOptions(c)
	if !ok {
		return
	}
	success(c, gin.H{
		"range":       snap.Preferences.Range.String(),
		"unit_system": snap.Preferences.Units,
		"trend":       stats.ComputeTrend(snap.Filtered, opts.TrendOptions()),
	})
}

// GET /api/timeline?mode=
func (s *Server) timeline(c *gin.Context) {
	snap, ok := s.snapshot(c)
	if !ok {
		return
	}
	if raw := c.Query("mode"); raw != "" {
		mode, err := stats.ParseMode(raw)
		if err != nil {
			badRequest(c, err)
			return
		}
		snap.Preferences.HeatmapMode = mode
	}
	success(c, dashboard.BuildTimeline(snap, snap.Now))
}

// GET /api/report combines every section
func (s *Server) report(c *gin.Context) {
	snap, ok := s.snapshot(c)
	if !ok {
		return
	}
	opts, ok := reportOptions(c)
	if !ok {
		return
	}
	opts.Surface = "api"
	success(c, dashboard.BuildReport(snap, snap.Now, opts))
}

func reportOptions(c *gin.Context) (dashboard.ReportOptions, bool) {
	window := 0
	if raw := c.Query("window"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, fmt.Errorf("invalid window %q", raw))
			return dashboard.ReportOptions{}, false
		}
		window = n
	}
	opts, err := dashboard.ParseReportOptions(c.Query("granularity"), c.Query("mode"), c.Query("field"), window)
	if err != nil {
		badRequest(c, err)
		return opts, false
	}
	return opts, true
}

// GET /api/preferences
func (s *Server) getPreferences(c *gin.Context) {
	success(c, dashboard.FormOf(s.svc.Store().Preferences()))
}

// PUT /api/preferences applies and persists the given fields; omitted
// fields keep their current value
func (s *Server) putPreferences(c *gin.Context) {
	var form dashboard.PreferenceForm
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, fmt.Errorf("invalid request body: %w", err))
		return
	}
	prefs, err := form.Apply(s.svc.Store().Preferences())
	if err != nil {
		badRequest(c, err)
		return
	}
	if err := s.svc.SavePreferences(c.Request.Context(), prefs); err != nil {
		internalError(c, err)
		return
	}
	success(c, dashboard.FormOf(prefs))
}
