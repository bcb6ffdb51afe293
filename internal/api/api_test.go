package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/joshdurbin/strava-dashboard/internal/activity"
	"github.com/joshdurbin/strava-dashboard/internal/auth"
	"github.com/joshdurbin/strava-dashboard/internal/dashboard"
	"github.com/joshdurbin/strava-dashboard/internal/db"
	"github.com/joshdurbin/strava-dashboard/internal/normalize"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var fixedNow = time.Date(2025, 3, 15, 18, 30, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func act(id int64, sport, start string, meters float64, seconds int) activity.NormalizedActivity {
	t, err := time.Parse(activity.LocalLayout, start)
	if err != nil {
		panic(err)
	}
	return activity.NormalizedActivity{
		ID:                 id,
		Name:               "activity",
		SportType:          strPtr(sport),
		DistanceMeters:     meters,
		MovingTimeSeconds:  seconds,
		ElapsedTimeSeconds: seconds,
		StartLocal:         t,
	}
}

type testEnv struct {
	server  *Server
	queries *db.Queries
	storage *auth.Storage
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()

	sqlDB, err := db.Open(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	if err := db.Migrate(context.Background(), sqlDB); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	queries := db.New(sqlDB)
	store := dashboard.NewStore(dashboard.WithClock(func() time.Time { return fixedNow }))
	store.SetActivities([]activity.NormalizedActivity{
		act(1, "Run", "2025-01-10T07:00:00", 5000, 1500),
		act(2, "Ride", "2025-03-10T17:00:00", 30000, 3600),
		act(3, "Run", "2025-03-13T06:30:00", 10500, 3000),
		act(4, "Run", "2025-03-14T06:30:00", 12000, 3900),
		act(5, "Walk", "2025-03-15T12:00:00", 2000, 1200),
	})
	svc := dashboard.NewService(queries, store, normalize.New(normalize.StaticZones{}))
	storage := auth.NewStorage(queries)

	server := New(svc, storage, opts)
	server.now = func() time.Time { return fixedNow }
	return &testEnv{server: server, queries: queries, storage: storage}
}

func (e *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
	if data != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			t.Fatalf("decoding data %s: %v", env.Data, err)
		}
	}
	return env
}

func TestHealth(t *testing.T) {
	t.Parallel()

	rec := newTestEnv(t, Options{}).do(t, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body["status"] != "ok" {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestLoginWithoutClientID(t *testing.T) {
	t.Parallel()

	rec := newTestEnv(t, Options{}).do(t, http.MethodGet, "/auth/login", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if env := decode(t, rec, nil); env.Code != http.StatusInternalServerError || !strings.Contains(env.Message, "client id") {
		t.Errorf("envelope = %+v", env)
	}
}

func TestLoginRedirect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		opts         Options
		target       string
		wantRedirect string
	}{
		{
			name:         "derived from request",
			opts:         Options{ClientID: "123"},
			target:       "/auth/login",
			wantRedirect: "http://example.com/auth/callback",
		},
		{
			name:         "configured",
			opts:         Options{ClientID: "123", RedirectURI: "https://dash.example.org/auth/callback"},
			target:       "/auth/login",
			wantRedirect: "https://dash.example.org/auth/callback",
		},
		{
			name:         "query parameter wins",
			opts:         Options{ClientID: "123", RedirectURI: "https://dash.example.org/auth/callback"},
			target:       "/auth/login?redirectUri=" + url.QueryEscape("http://localhost:3000/cb"),
			wantRedirect: "http://localhost:3000/cb",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t, tt.opts)
			rec := env.do(t, http.MethodGet, tt.target, "")
			if rec.Code != http.StatusFound {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
			}

			loc, err := url.Parse(rec.Header().Get("Location"))
			if err != nil {
				t.Fatalf("bad location: %v", err)
			}
			if loc.Host != "www.strava.com" || loc.Path != "/oauth/authorize" {
				t.Errorf("location = %s", loc)
			}
			q := loc.Query()
			if q.Get("client_id") != "123" || q.Get("response_type") != "code" || q.Get("scope") != auth.Scope {
				t.Errorf("query = %v", q)
			}
			if q.Get("redirect_uri") != tt.wantRedirect {
				t.Errorf("redirect_uri = %q, want %q", q.Get("redirect_uri"), tt.wantRedirect)
			}
			claims, err := verifyState(env.server.secret, q.Get("state"), fixedNow)
			if err != nil {
				t.Fatalf("state does not verify: %v", err)
			}
			if claims.RedirectURI != tt.wantRedirect {
				t.Errorf("state redirect = %q", claims.RedirectURI)
			}
		})
	}
}

func TestCallbackStoresTokens(t *testing.T) {
	t.Parallel()

	authorized := 0
	env := newTestEnv(t, Options{
		ClientID:      "123",
		ClientSecret:  "secret",
		SessionSecret: "session",
		OnAuthorized: func(context.Context) error {
			authorized++
			return nil
		},
	})
	env.server.exchange = func(_ context.Context, redirectURI, code string) (*auth.TokenResponse, error) {
		if redirectURI != "http://example.com/auth/callback" || code != "the-code" {
			return nil, errors.New("unexpected exchange")
		}
		return &auth.TokenResponse{
			AccessToken:  "access",
			RefreshToken: "refresh",
			ExpiresAt:    fixedNow.Add(6 * time.Hour).Unix(),
		}, nil
	}

	state, err := signState([]byte("session"), "http://example.com/auth/callback", fixedNow)
	if err != nil {
		t.Fatalf("signState: %v", err)
	}
	rec := env.do(t, http.MethodGet, "/auth/callback?code=the-code&scope=read,activity:read_all&state="+state, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	tokens, err := env.storage.LoadTokens(context.Background())
	if err != nil {
		t.Fatalf("LoadTokens: %v", err)
	}
	if tokens.AccessToken != "access" || tokens.RefreshToken != "refresh" {
		t.Errorf("tokens = %+v", tokens)
	}
	if authorized != 1 {
		t.Errorf("OnAuthorized called %d times", authorized)
	}
}

func TestCallbackRejects(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, Options{ClientID: "123", SessionSecret: "session"})
	env.server.exchange = func(context.Context, string, string) (*auth.TokenResponse, error) {
		return nil, errors.New("upstream said no")
	}

	valid, _ := signState([]byte("session"), "http://example.com/auth/callback", fixedNow)
	foreign, _ := signState([]byte("other"), "http://example.com/auth/callback", fixedNow)
	expired, _ := signState([]byte("session"), "http://example.com/auth/callback", fixedNow.Add(-time.Hour))

	tests := []struct {
		name   string
		query  string
		status int
	}{
		{"denied", "error=access_denied&state=" + valid, http.StatusBadRequest},
		{"missing state", "code=x", http.StatusBadRequest},
		{"foreign state", "code=x&state=" + foreign, http.StatusBadRequest},
		{"expired state", "code=x&state=" + expired, http.StatusBadRequest},
		{"missing code", "state=" + valid, http.StatusBadRequest},
		{"exchange fails", "code=x&state=" + valid, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := env.do(t, http.MethodGet, "/auth/callback?"+tt.query, "")
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body.String())
			}
			if env := decode(t, rec, nil); env.Code != tt.status {
				t.Errorf("envelope code = %d", env.Code)
			}
		})
	}

	if _, err := env.storage.LoadTokens(context.Background()); err == nil {
		t.Error("no tokens should have been stored")
	}
}

func TestActivities(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, Options{})

	tests := []struct {
		name    string
		query   string
		wantIDs []int64
		total   int
	}{
		{"all", "", []int64{5, 4, 3, 2, 1}, 5},
		{"limit", "?limit=2", []int64{5, 4}, 5},
		{"sport", "?sport=run", []int64{4, 3, 1}, 5},
		{"range override", "?range=last7&sport=Run", []int64{4, 3}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := env.do(t, http.MethodGet, "/api/activities"+tt.query, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
			}
			var data struct {
				Total      int                      `json:"total"`
				Activities []dashboard.ActivityView `json:"activities"`
			}
			if env := decode(t, rec, &data); env.Code != 0 || env.Message != "success" {
				t.Errorf("envelope = %+v", env)
			}
			if data.Total != tt.total {
				t.Errorf("total = %d, want %d", data.Total, tt.total)
			}
			if len(data.Activities) != len(tt.wantIDs) {
				t.Fatalf("got %d activities, want %d", len(data.Activities), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if data.Activities[i].Activity.ID != id {
					t.Errorf("[%d] id = %d, want %d", i, data.Activities[i].Activity.ID, id)
				}
			}
		})
	}
}

func TestBadQueries(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, Options{})
	targets := []string{
		"/api/activities?limit=zero",
		"/api/activities?limit=-1",
		"/api/summary?range=forever",
		"/api/summary?units=cubits",
		"/api/summary?range=custom",
		"/api/trends?granularity=fortnight",
		"/api/trends?window=wide",
		"/api/timeline?mode=swimming",
		"/api/report?field=calories",
	}
	for _, target := range targets {
		t.Run(target, func(t *testing.T) {
			t.Parallel()
			rec := env.do(t, http.MethodGet, target, "")
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			if env := decode(t, rec, nil); env.Code != http.StatusBadRequest || env.Message == "" {
				t.Errorf("envelope = %+v", env)
			}
		})
	}
}

func TestSummary(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, Options{})
	rec := env.do(t, http.MethodGet, "/api/summary?range=last7&units=imperial", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var sum dashboard.Summary
	decode(t, rec, &sum)

	if sum.Range != "last7" || sum.Totals.Count != 4 {
		t.Errorf("summary = %+v", sum)
	}
	if !strings.HasSuffix(sum.Totals.Distance, " mi") {
		t.Errorf("distance = %q, want miles", sum.Totals.Distance)
	}
	if sum.Running.TotalRuns != 2 || sum.Running.Runs10kPlus != 2 {
		t.Errorf("running = %+v", sum.Running)
	}

	// the override is per request
	if p := env.server.svc.Store().Preferences(); p != dashboard.DefaultPreferences() {
		t.Errorf("store preferences changed: %+v", p)
	}
}

func TestHistogramTrendsTimeline(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, Options{})

	rec := env.do(t, http.MethodGet, "/api/histogram", "")
	var hist struct {
		Histogram struct {
			Unit string `json:"unit"`
			Bins []struct {
				Count int `json:"count"`
			} `json:"bins"`
		} `json:"histogram"`
	}
	decode(t, rec, &hist)
	runs := 0
	for _, b := range hist.Histogram.Bins {
		runs += b.Count
	}
	if rec.Code != http.StatusOK || hist.Histogram.Unit != "km" || runs != 3 {
		t.Errorf("histogram: status %d, %+v", rec.Code, hist)
	}

	rec = env.do(t, http.MethodGet, "/api/trends?granularity=month&mode=running&field=count", "")
	var trend struct {
		Trend struct {
			Granularity string `json:"granularity"`
			Mode        string `json:"mode"`
			Buckets     []struct {
				Count int `json:"count"`
			} `json:"buckets"`
		} `json:"trend"`
	}
	decode(t, rec, &trend)
	if rec.Code != http.StatusOK || trend.Trend.Granularity != "month" || trend.Trend.Mode != "running" {
		t.Errorf("trend: status %d, %+v", rec.Code, trend)
	}
	counted := 0
	for _, b := range trend.Trend.Buckets {
		counted += b.Count
	}
	if counted != 3 {
		t.Errorf("running trend counts %d activities, want 3", counted)
	}

	rec = env.do(t, http.MethodGet, "/api/timeline?mode=running&range=last7", "")
	var tl dashboard.TimelineView
	decode(t, rec, &tl)
	if rec.Code != http.StatusOK || tl.Mode != "running" || len(tl.Days) != 7 {
		t.Errorf("timeline: status %d, mode %q, %d days", rec.Code, tl.Mode, len(tl.Days))
	}
}

func TestReport(t *testing.T) {
	t.Parallel()

	rec := newTestEnv(t, Options{}).do(t, http.MethodGet, "/api/report?granularity=week", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var report struct {
		Range    string              `json:"range"`
		Totals   struct{ Count int } `json:"totals"`
		Insights []dashboard.Insight `json:"insights"`
	}
	decode(t, rec, &report)
	if report.Range != "all" || report.Totals.Count != 5 || len(report.Insights) == 0 {
		t.Errorf("report = %+v", report)
	}
}

func TestPreferences(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, Options{})

	var form dashboard.PreferenceForm
	decode(t, env.do(t, http.MethodGet, "/api/preferences", ""), &form)
	if form != dashboard.FormOf(dashboard.DefaultPreferences()) {
		t.Errorf("initial = %+v", form)
	}

	rec := env.do(t, http.MethodPut, "/api/preferences", `{"unit_system":"imperial","date_range":"last30"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	decode(t, env.do(t, http.MethodGet, "/api/preferences", ""), &form)
	want := dashboard.PreferenceForm{UnitSystem: "imperial", DateRange: "last30", HeatmapMode: "all"}
	if form != want {
		t.Errorf("after put = %+v, want %+v", form, want)
	}

	stored, err := env.queries.GetPreferences(context.Background())
	if err != nil || stored[dashboard.KeyUnitSystem] != "imperial" {
		t.Errorf("stored = %v, %v", stored, err)
	}

	for _, body := range []string{`{"heatmap_mode":"cycling"}`, `{"date_range":"custom"}`, `not json`} {
		rec := env.do(t, http.MethodPut, "/api/preferences", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("PUT %s: status = %d", body, rec.Code)
		}
	}
	if p := env.server.svc.Store().Preferences(); p.Range.Preset() != "last30" {
		t.Errorf("rejected updates changed the store: %+v", p)
	}
}

func TestMetricsCORSAndNotFound(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, Options{})

	rec := env.do(t, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "strava_dashboard_sync_last_success_timestamp_seconds") {
		t.Errorf("metrics: status %d", rec.Code)
	}

	rec = env.do(t, http.MethodOptions, "/api/summary", "")
	if rec.Code != http.StatusNoContent || rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("preflight: status %d, headers %v", rec.Code, rec.Header())
	}

	rec = env.do(t, http.MethodGet, "/api/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown route: status %d", rec.Code)
	}
	if env := decode(t, rec, nil); env.Code != http.StatusNotFound {
		t.Errorf("envelope = %+v", env)
	}
}

func TestStateRoundTrip(t *testing.T) {
	t.Parallel()

	secret := []byte("k")
	state, err := signState(secret, "http://x/cb", fixedNow)
	if err != nil {
		t.Fatalf("signState: %v", err)
	}
	if _, err := verifyState(secret, state, fixedNow.Add(stateTTL+time.Minute)); !errors.Is(err, errInvalidState) {
		t.Errorf("expired state: %v", err)
	}
	if _, err := verifyState(secret, state+"x", fixedNow); !errors.Is(err, errInvalidState) {
		t.Errorf("tampered state: %v", err)
	}
	claims, err := verifyState(secret, state, fixedNow.Add(time.Minute))
	if err != nil || claims.RedirectURI != "http://x/cb" || claims.ID == "" {
		t.Errorf("claims = %+v, %v", claims, err)
	}
}
