package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/joshdurbin/strava-dashboard/internal/auth"
	"github.com/joshdurbin/strava-dashboard/internal/config"
	"github.com/joshdurbin/strava-dashboard/internal/logging"
)

// authenticateFunc runs the browser flow; replaced in tests
type authenticateFunc func(ctx context.Context, clientID, clientSecret, callbackAddr string) (*auth.TokenResponse, error)

// prompter talks to the user on a terminal. It never writes to stdout,
// which belongs to the MCP stdio transport.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

func (p *prompter) banner(title string, lines ...string) {
	fmt.Fprintf(p.out, "\n=== %s ===\n", title)
	for _, l := range lines {
		fmt.Fprintln(p.out, l)
	}
}

// ask prints label and returns the trimmed answer. A final line without a
// newline is accepted.
func (p *prompter) ask(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("reading %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(line), nil
}

func (p *prompter) credentials() (*auth.ClientConfig, error) {
	p.banner("Strava API Credentials Required",
		"Get your API credentials from: https://www.strava.com/settings/api", "")

	clientID, err := p.ask("Enter your Client ID")
	if err != nil {
		return nil, err
	}
	if clientID == "" {
		return nil, errors.New("client ID is required")
	}

	clientSecret, err := p.ask("Enter your Client Secret")
	if err != nil {
		return nil, err
	}
	if clientSecret == "" {
		return nil, errors.New("client secret is required")
	}

	return &auth.ClientConfig{ClientID: clientID, ClientSecret: clientSecret}, nil
}

// login makes sure the local database holds a usable access token
type login struct {
	storage      *auth.Storage
	strava       config.StravaConfig
	prompt       *prompter
	authenticate authenticateFunc
}

// accessToken returns a valid token, running the OAuth flow when there is
// none or it can no longer be refreshed. force discards stored credentials.
func (l *login) accessToken(ctx context.Context, force bool) (string, error) {
	log := logging.Logger

	if force {
		log.Info().Msg("force re-authentication requested, clearing existing credentials and tokens")
		if err := l.storage.DeleteTokens(ctx); err != nil {
			log.Debug().Err(err).Msg("failed to delete existing auth config (may not exist)")
		}
	}

	client, err := l.clientConfig(ctx, force)
	if err != nil {
		return "", fmt.Errorf("getting credentials: %w", err)
	}

	if !force {
		token, err := l.storage.GetValidAccessToken(ctx)
		switch {
		case err == nil:
			log.Info().Msg("using existing authentication")
			return token, nil
		case errors.Is(err, auth.ErrNotAuthenticated):
			log.Info().Msg("no valid authentication found, starting OAuth flow")
		default:
			log.Warn().Err(err).Msg("token refresh failed, re-authentication required")
			l.prompt.banner("Token Refresh Failed",
				"Your Strava authentication has expired or been revoked.",
				"Re-authentication is required.")
		}
	}

	return l.authorize(ctx, client)
}

// clientConfig prefers configured credentials, then stored ones, then asks
func (l *login) clientConfig(ctx context.Context, force bool) (*auth.ClientConfig, error) {
	if l.strava.ClientID != "" && l.strava.ClientSecret != "" {
		return &auth.ClientConfig{ClientID: l.strava.ClientID, ClientSecret: l.strava.ClientSecret}, nil
	}
	if !force {
		if stored, err := l.storage.LoadClientConfig(ctx); err == nil {
			return stored, nil
		}
	}
	return l.prompt.credentials()
}

func (l *login) authorize(ctx context.Context, client *auth.ClientConfig) (string, error) {
	l.prompt.banner("Strava Authentication Required",
		"A browser window will open for you to authorize this application.")
	if _, err := l.prompt.ask("Press Enter to continue"); err != nil {
		return "", err
	}

	tokens, err := l.authenticate(ctx, client.ClientID, client.ClientSecret, l.strava.CallbackAddr)
	if err != nil {
		return "", fmt.Errorf("OAuth flow failed: %w", err)
	}
	expires := time.Unix(tokens.ExpiresAt, 0)
	logging.Logger.Info().Str("expires_at", expires.Format(time.RFC3339)).Msg("OAuth authentication successful")

	if err := l.storage.SaveFullConfig(ctx, client.ClientID, client.ClientSecret, tokens); err != nil {
		return "", fmt.Errorf("saving tokens: %w", err)
	}

	fmt.Fprintf(l.prompt.out, "\nAuthentication successful! Token expires: %s\n\n", expires.Format(time.RFC1123))
	return tokens.AccessToken, nil
}
