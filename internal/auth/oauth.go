// Package auth handles the Strava OAuth2 authorization-code flow, token refresh
// and token persistence.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/joshdurbin/strava-dashboard/internal/logging"
	"github.com/pkg/browser"
	"golang.org/x/oauth2"
)

const (
	authURL  = "https://www.strava.com/oauth/authorize"
	tokenURL = "https://www.strava.com/oauth/token"

	// DefaultCallbackAddr serves the local callback during interactive login
	DefaultCallbackAddr = "localhost:8089"
	// Scope grants read access to profile and all activities, private included
	Scope = "read,activity:read_all"

	loginTimeout = 5 * time.Minute
	// tokens this close to expiry are treated as expired
	expiryMargin = 5 * time.Minute
)

// ErrMissingClientID is returned when no client id has been configured
var ErrMissingClientID = errors.New("strava client id is not configured")

// Endpoint is the Strava OAuth2 endpoint. Strava expects credentials in the
// request body.
var Endpoint = oauth2.Endpoint{
	AuthURL:   authURL,
	TokenURL:  tokenURL,
	AuthStyle: oauth2.AuthStyleInParams,
}

// OAuthConfig returns the OAuth2 config for Strava with the given redirect
func OAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     Endpoint,
		RedirectURL:  redirectURL,
		// Strava takes a comma separated scope list as a single value
		Scopes: []string{Scope},
	}
}

// LoginURL builds the authorize URL a browser is redirected to
func LoginURL(clientID, redirectURL, state string) (string, error) {
	if clientID == "" {
		return "", ErrMissingClientID
	}
	cfg := OAuthConfig(clientID, "", redirectURL)
	return cfg.AuthCodeURL(state,
		oauth2.SetAuthURLParam("approval_prompt", "auto"),
	), nil
}

// TokenResponse is the token set returned by Strava
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
	TokenType    string `json:"token_type"`
}

// TokenFromOAuth2 converts an oauth2.Token
func TokenFromOAuth2(token *oauth2.Token) *TokenResponse {
	return &TokenResponse{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry.Unix(),
		TokenType:    token.TokenType,
	}
}

// ToOAuth2Token converts back to an oauth2.Token
func (t *TokenResponse) ToOAuth2Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		Expiry:       time.Unix(t.ExpiresAt, 0),
		TokenType:    t.TokenType,
	}
}

// Authenticate runs the interactive flow: it serves a callback on
// callbackAddr, opens the consent page in a browser and exchanges the code.
func Authenticate(ctx context.Context, clientID, clientSecret, callbackAddr string) (*TokenResponse, error) {
	if clientID == "" {
		return nil, ErrMissingClientID
	}
	if callbackAddr == "" {
		callbackAddr = DefaultCallbackAddr
	}
	config := OAuthConfig(clientID, clientSecret, "http://"+callbackAddr+"/callback")
	state := fmt.Sprintf("strava-dashboard-%d", time.Now().UnixNano())

	codeChan := make(chan string, 1)
	errChan := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", callbackHandler(state, codeChan, errChan))

	listener, err := net.Listen("tcp", callbackAddr)
	if err != nil {
		return nil, fmt.Errorf("starting callback server: %w", err)
	}
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			report(errChan, fmt.Errorf("callback server error: %w", err))
		}
	}()
	defer server.Shutdown(context.Background())

	consentURL := config.AuthCodeURL(state, oauth2.SetAuthURLParam("approval_prompt", "force"))
	fmt.Println("Opening browser for Strava authorization...")
	fmt.Printf("If the browser doesn't open, visit: %s\n\n", consentURL)
	if err := browser.OpenURL(consentURL); err != nil {
		logging.Warn("could not open browser", "error", err)
	}

	var code string
	select {
	case code = <-codeChan:
	case err := <-errChan:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(loginTimeout):
		return nil, fmt.Errorf("authorization timeout")
	}

	return exchange(ctx, config, code)
}

// Exchange trades an authorization code received on redirectURL for tokens
func Exchange(ctx context.Context, clientID, clientSecret, redirectURL, code string) (*TokenResponse, error) {
	if clientID == "" {
		return nil, ErrMissingClientID
	}
	return exchange(ctx, OAuthConfig(clientID, clientSecret, redirectURL), code)
}

func exchange(ctx context.Context, config *oauth2.Config, code string) (*TokenResponse, error) {
	token, err := config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}
	return TokenFromOAuth2(token), nil
}

func callbackHandler(state string, codeChan chan<- string, errChan chan<- error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			report(errChan, fmt.Errorf("authorization failed: state mismatch"))
			return
		}
		code := q.Get("code")
		if code == "" {
			msg := q.Get("error")
			if msg == "" {
				msg = "no authorization code received"
			}
			http.Error(w, msg, http.StatusBadRequest)
			report(errChan, fmt.Errorf("authorization failed: %s", msg))
			return
		}

		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><h1>Authorization successful</h1><p>You can close this window and return to the dashboard.</p></body></html>`)
		select {
		case codeChan <- code:
		default:
		}
	}
}

// report delivers err unless one is already pending
func report(errChan chan<- error, err error) {
	select {
	case errChan <- err:
	default:
	}
}

// RefreshAccessToken exchanges a refresh token for a new token set
func RefreshAccessToken(ctx context.Context, clientID, clientSecret, refreshToken string) (*TokenResponse, error) {
	config := OAuthConfig(clientID, clientSecret, "")

	// an already expired token forces the source to refresh
	old := &oauth2.Token{
		RefreshToken: refreshToken,
		Expiry:       time.Now().Add(-time.Hour),
	}
	newToken, err := config.TokenSource(ctx, old).Token()
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}
	return TokenFromOAuth2(newToken), nil
}

// IsTokenExpired reports whether the token expires within the safety margin
func IsTokenExpired(expiresAt int64) bool {
	return time.Now().Add(expiryMargin).Unix() > expiresAt
}
