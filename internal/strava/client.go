package strava

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/joshdurbin/strava-dashboard/internal/logging"
)

const (
	baseURL = "https://www.strava.com/api/v3"
	perPage = 100
	// maxPages caps a single fetch at perPage*maxPages activities
	maxPages = 100
)

const (
	defaultMaxRetries     = 5
	defaultInitialBackoff = 1 * time.Second
	defaultMaxBackoff     = 5 * time.Minute
)

// Between-page pauses once the 15-minute window is mostly used
const (
	pagePauseAt80 = 15 * time.Second
	pagePauseAt90 = 60 * time.Second
)

// Activity is one upstream activity summary as returned by the Strava API.
// Type, SportType and Timezone may be absent upstream and are nil when they are.
type Activity struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Distance           float64   `json:"distance"`
	MovingTime         int       `json:"moving_time"`
	ElapsedTime        int       `json:"elapsed_time"`
	TotalElevationGain float64   `json:"total_elevation_gain"`
	Type               *string   `json:"type"`
	SportType          *string   `json:"sport_type"`
	StartDate          time.Time `json:"start_date"`
	StartDateLocal     time.Time `json:"start_date_local"`
	Timezone           *string   `json:"timezone"`
	AverageSpeed       float64   `json:"average_speed"`
	MaxSpeed           float64   `json:"max_speed"`
	AverageCadence     float64   `json:"average_cadence"`
	AverageHeartrate   float64   `json:"average_heartrate"`
	MaxHeartrate       float64   `json:"max_heartrate"`
	Kilojoules         float64   `json:"kilojoules"`
}

// Athlete is the authenticated athlete's profile
type Athlete struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
}

// DisplayName returns "First Last", falling back to the username
func (a Athlete) DisplayName() string {
	name := strings.TrimSpace(a.FirstName + " " + a.LastName)
	if name == "" {
		return a.Username
	}
	return name
}

// RateLimitInfo is the rate limit state reported by the most recent response
type RateLimitInfo struct {
	Limit15Min    int
	Usage15Min    int
	LimitDaily    int
	UsageDaily    int
	IsRateLimited bool

	TimeUntil15MinReset time.Duration
	TimeUntilDailyReset time.Duration
	RecommendedWait     time.Duration
}

// requests held back from each limit for other callers
const rateLimitBuffer = 5

// timeUntilNext15MinWindow returns the time until the next quarter hour.
// Strava resets its short-term window at :00, :15, :30 and :45.
func timeUntilNext15MinWindow(now time.Time) time.Duration {
	into := time.Duration(now.Minute()%15)*time.Minute +
		time.Duration(now.Second())*time.Second +
		time.Duration(now.Nanosecond())
	return 15*time.Minute - into + 2*time.Second
}

func timeUntilMidnightUTC(now time.Time) time.Duration {
	nowUTC := now.UTC()
	midnight := time.Date(nowUTC.Year(), nowUTC.Month(), nowUTC.Day()+1, 0, 0, 0, 0, time.UTC)
	return midnight.Sub(nowUTC) + 2*time.Second
}

// IsApproaching15MinLimit reports whether usage is within the buffer of the 15-minute limit
func (info *RateLimitInfo) IsApproaching15MinLimit() bool {
	if info.Limit15Min == 0 {
		return false
	}
	return info.Usage15Min >= info.Limit15Min-rateLimitBuffer
}

// IsApproachingDailyLimit reports whether usage is within the buffer of the daily limit
func (info *RateLimitInfo) IsApproachingDailyLimit() bool {
	if info.LimitDaily == 0 {
		return false
	}
	return info.UsageDaily >= info.LimitDaily-rateLimitBuffer
}

// UsageFraction15Min returns the used share of the 15-minute window, 0 when unknown
func (info *RateLimitInfo) UsageFraction15Min() float64 {
	if info.Limit15Min <= 0 {
		return 0
	}
	return float64(info.Usage15Min) / float64(info.Limit15Min)
}

// PagePause returns how long to pause before requesting the next page:
// 60s at 90% of the 15-minute limit, 15s at 80%, otherwise none.
func (info *RateLimitInfo) PagePause() time.Duration {
	if info.Limit15Min <= 0 {
		return 0
	}
	switch {
	case info.Usage15Min >= info.Limit15Min*9/10:
		return pagePauseAt90
	case info.Usage15Min >= info.Limit15Min*8/10:
		return pagePauseAt80
	}
	return 0
}

// recalculate derives reset times and the recommended wait from the counters
func (info *RateLimitInfo) recalculate(now time.Time) {
	info.TimeUntil15MinReset = timeUntilNext15MinWindow(now)
	info.TimeUntilDailyReset = timeUntilMidnightUTC(now)
	info.RecommendedWait = 0

	switch {
	case info.Limit15Min > 0 && info.Usage15Min >= info.Limit15Min:
		info.IsRateLimited = true
		info.RecommendedWait = info.TimeUntil15MinReset
	case info.LimitDaily > 0 && info.UsageDaily >= info.LimitDaily:
		info.IsRateLimited = true
		info.RecommendedWait = info.TimeUntilDailyReset
	case info.IsApproaching15MinLimit():
		info.RecommendedWait = info.TimeUntil15MinReset
	case info.IsApproachingDailyLimit():
		info.RecommendedWait = info.TimeUntilDailyReset
	}
}

// FetchResult describes one fetched page, reported through ProgressCallback
type FetchResult struct {
	Activities   []Activity
	RateLimit    RateLimitInfo
	Page         int
	TotalFetched int
	Paused       time.Duration
}

// ProgressCallback is called after each page is fetched
type ProgressCallback func(result FetchResult)

var (
	// ErrRateLimited is returned when 429 responses outlast the retry budget
	ErrRateLimited = errors.New("rate limited")
	// ErrUnauthorized is returned for 401 responses (expired or revoked token)
	ErrUnauthorized = errors.New("unauthorized")
)

// Client is a Strava API client with automatic retry and backoff
type Client struct {
	httpClient  *retryablehttp.Client
	accessToken string
	baseURL     string
	perPage     int

	// sleep pauses between pages; replaced in tests
	sleep func(ctx context.Context, d time.Duration) error

	rateMu    sync.RWMutex
	rateLimit RateLimitInfo
}

// RetryConfig holds retry/backoff settings
type RetryConfig struct {
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: defaultMaxRetries,
		MinWait:    defaultInitialBackoff,
		MaxWait:    defaultMaxBackoff,
	}
}

// NewClient creates a Strava API client with the default retry configuration
func NewClient(accessToken string) *Client {
	return newClient(accessToken, baseURL, DefaultRetryConfig())
}

// NewClientWithRetryConfig creates a Strava API client with custom retry settings
func NewClientWithRetryConfig(accessToken string, cfg RetryConfig) *Client {
	return newClient(accessToken, baseURL, cfg)
}

// NewClientWithBaseURL creates a Strava API client against another base URL (for testing)
func NewClientWithBaseURL(accessToken, customBaseURL string) *Client {
	return newClient(accessToken, customBaseURL, DefaultRetryConfig())
}

func newClient(accessToken, baseURL string, cfg RetryConfig) *Client {
	client := retryablehttp.NewClient()
	client.RetryMax = cfg.MaxRetries
	client.RetryWaitMin = cfg.MinWait
	client.RetryWaitMax = cfg.MaxWait
	client.Logger = &logging.LeveledLogger{}
	client.CheckRetry = checkRetry
	client.Backoff = backoff
	client.RequestLogHook = logRequest
	client.ResponseLogHook = logResponse

	return &Client{
		httpClient:  client,
		accessToken: accessToken,
		baseURL:     baseURL,
		perPage:     perPage,
		sleep:       sleepContext,
	}
}

// checkRetry retries connection errors, 429 and 5xx. Client errors are final.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return true, nil
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return true, nil
	}
	return resp.StatusCode >= 500, nil
}

// backoff honours Retry-After, otherwise waits for the next 15-minute window on
// 429 and backs off exponentially on everything else
func backoff(min, max time.Duration, attemptNum int, resp *http.Response) time.Duration {
	log := logging.Logger

	if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := strconv.Atoi(retryAfter); err == nil {
				wait := time.Duration(seconds) * time.Second
				log.Info().Dur("wait", wait).Int("attempt", attemptNum).Msg("rate limited, honouring Retry-After")
				return wait
			}
		}
		wait := timeUntilNext15MinWindow(time.Now())
		log.Info().Dur("wait", wait).Int("attempt", attemptNum).Msg("rate limited, waiting for 15-minute window reset")
		return wait
	}

	wait := min * time.Duration(1<<uint(attemptNum))
	if wait > max || wait <= 0 {
		wait = max
	}
	log.Info().Dur("wait", wait).Int("attempt", attemptNum).Msg("backing off before retry")
	return wait
}

func logRequest(_ retryablehttp.Logger, req *http.Request, retry int) {
	log := logging.Logger
	if retry > 0 {
		log.Info().Str("url", req.URL.Path).Int("attempt", retry+1).Msg("retrying request")
	}
	if logging.IsTraceEnabled() {
		log.Debug().
			Str("method", req.Method).
			Str("url", req.URL.String()).
			Str("headers", formatHeaders(req.Header)).
			Msg("request headers")
	}
}

func logResponse(_ retryablehttp.Logger, resp *http.Response) {
	log := logging.Logger
	if logging.IsTraceEnabled() {
		log.Debug().
			Int("status", resp.StatusCode).
			Str("url", resp.Request.URL.Path).
			Str("headers", formatHeaders(resp.Header)).
			Msg("response headers")
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		rl := parseRateLimitHeaders(resp.Header, time.Now())
		log.Warn().
			Str("url", resp.Request.URL.Path).
			Str("15min_usage", fmt.Sprintf("%d/%d", rl.Usage15Min, rl.Limit15Min)).
			Str("daily_usage", fmt.Sprintf("%d/%d", rl.UsageDaily, rl.LimitDaily)).
			Dur("wait_for_reset", rl.TimeUntil15MinReset).
			Msg("rate limited by API")
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// WithRetryConfig overrides retry settings (useful for testing)
func (c *Client) WithRetryConfig(maxRetries int, initialBackoff, maxBackoff time.Duration) *Client {
	c.httpClient.RetryMax = maxRetries
	c.httpClient.RetryWaitMin = initialBackoff
	c.httpClient.RetryWaitMax = maxBackoff
	return c
}

// WithPerPage overrides the page size
func (c *Client) WithPerPage(n int) *Client {
	if n > 0 {
		c.perPage = n
	}
	return c
}

// GetRateLimit returns the latest rate limit info with reset times recalculated for now
func (c *Client) GetRateLimit() RateLimitInfo {
	c.rateMu.RLock()
	info := c.rateLimit
	c.rateMu.RUnlock()

	info.IsRateLimited = false
	info.recalculate(time.Now())
	return info
}

// WaitForRateLimit blocks until the recommended wait has passed or ctx is done
func (c *Client) WaitForRateLimit(ctx context.Context) error {
	rl := c.GetRateLimit()
	if rl.RecommendedWait <= 0 {
		return nil
	}

	logging.Logger.Info().
		Dur("wait", rl.RecommendedWait).
		Str("15min_usage", fmt.Sprintf("%d/%d", rl.Usage15Min, rl.Limit15Min)).
		Str("daily_usage", fmt.Sprintf("%d/%d", rl.UsageDaily, rl.LimitDaily)).
		Msg("waiting for rate limit window to reset")

	if err := c.sleep(ctx, rl.RecommendedWait); err != nil {
		return err
	}
	logging.Logger.Info().Msg("rate limit window reset, resuming")
	return nil
}

func (c *Client) updateRateLimit(resp *http.Response) RateLimitInfo {
	rl := parseRateLimitHeaders(resp.Header, time.Now())
	if resp.StatusCode == http.StatusTooManyRequests {
		rl.IsRateLimited = true
	}
	c.rateMu.Lock()
	c.rateLimit = rl
	c.rateMu.Unlock()
	return rl
}

// FetchAllActivities fetches every activity of the authenticated athlete
func (c *Client) FetchAllActivities(ctx context.Context, progress ProgressCallback) ([]Activity, error) {
	return c.fetchPages(ctx, time.Time{}, progress)
}

// FetchActivitiesSince fetches activities that started after since (delta sync)
func (c *Client) FetchActivitiesSince(ctx context.Context, since time.Time, progress ProgressCallback) ([]Activity, error) {
	return c.fetchPages(ctx, since, progress)
}

// fetchPages walks pages until an empty page, a short page or maxPages.
// Between pages it pauses when the 15-minute usage is at 80% or 90%.
func (c *Client) fetchPages(ctx context.Context, since time.Time, progress ProgressCallback) ([]Activity, error) {
	var all []Activity
	var after int64
	if !since.IsZero() {
		after = since.Unix()
	}

	for page := 1; page <= maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return all, err
		}

		activities, rl, err := c.fetchActivitiesPage(ctx, page, after)
		if err != nil {
			return all, err
		}
		all = append(all, activities...)

		last := len(activities) < c.perPage
		var pause time.Duration
		if !last {
			pause = rl.PagePause()
		}

		if progress != nil {
			progress(FetchResult{
				Activities:   activities,
				RateLimit:    rl,
				Page:         page,
				TotalFetched: len(all),
				Paused:       pause,
			})
		}

		if last {
			break
		}
		if pause > 0 {
			logging.Logger.Info().
				Dur("pause", pause).
				Str("15min_usage", fmt.Sprintf("%d/%d", rl.Usage15Min, rl.Limit15Min)).
				Msg("pausing between pages")
			if err := c.sleep(ctx, pause); err != nil {
				return all, err
			}
		}
	}

	return all, nil
}

func (c *Client) fetchActivitiesPage(ctx context.Context, page int, after int64) ([]Activity, RateLimitInfo, error) {
	url := fmt.Sprintf("%s/athlete/activities?page=%d&per_page=%d", c.baseURL, page, c.perPage)
	if after > 0 {
		url += fmt.Sprintf("&after=%d", after)
	}

	var activities []Activity
	rl, err := c.getJSON(ctx, url, &activities)
	if err != nil {
		return nil, rl, err
	}
	return activities, rl, nil
}

// FetchAthlete fetches the authenticated athlete's profile
func (c *Client) FetchAthlete(ctx context.Context) (*Athlete, error) {
	var athlete Athlete
	if _, err := c.getJSON(ctx, c.baseURL+"/athlete", &athlete); err != nil {
		return nil, err
	}
	return &athlete, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) (RateLimitInfo, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return RateLimitInfo{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return RateLimitInfo{}, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	rl := c.updateRateLimit(resp)

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return rl, ErrRateLimited
	case http.StatusUnauthorized:
		return rl, ErrUnauthorized
	default:
		return rl, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return rl, fmt.Errorf("decoding response: %w", err)
	}
	return rl, nil
}

// minPositive returns the smaller of two values, ignoring values that are unset
func minPositive(a, b int) int {
	if a <= 0 {
		return b
	}
	if b <= 0 {
		return a
	}
	return min(a, b)
}

// parsePair parses "15min,daily" header values
func parsePair(v string) (int, int) {
	if v == "" {
		return 0, 0
	}
	parts := strings.SplitN(v, ",", 2)
	first, _ := strconv.Atoi(strings.TrimSpace(parts[0]))
	var second int
	if len(parts) > 1 {
		second, _ = strconv.Atoi(strings.TrimSpace(parts[1]))
	}
	return first, second
}

// parseRateLimitHeaders merges X-RateLimit-* and the stricter X-ReadRateLimit-*
// headers: the smaller limit and the larger usage win.
func parseRateLimitHeaders(headers http.Header, now time.Time) RateLimitInfo {
	genLimit15, genLimitDay := parsePair(headers.Get("X-RateLimit-Limit"))
	genUsage15, genUsageDay := parsePair(headers.Get("X-RateLimit-Usage"))
	readLimit15, readLimitDay := parsePair(headers.Get("X-ReadRateLimit-Limit"))
	readUsage15, readUsageDay := parsePair(headers.Get("X-ReadRateLimit-Usage"))

	info := RateLimitInfo{
		Limit15Min: minPositive(genLimit15, readLimit15),
		LimitDaily: minPositive(genLimitDay, readLimitDay),
		Usage15Min: max(genUsage15, readUsage15),
		UsageDaily: max(genUsageDay, readUsageDay),
	}
	info.recalculate(now)
	return info
}

// formatHeaders renders headers for trace logging with credentials redacted
func formatHeaders(headers http.Header) string {
	if len(headers) == 0 {
		return "{}"
	}

	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		value := strings.Join(headers[k], ", ")
		switch strings.ToLower(k) {
		case "authorization", "cookie", "set-cookie":
			value = "[REDACTED]"
		}
		parts = append(parts, fmt.Sprintf("%s: %q", k, value))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
