package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/joshdurbin/strava-dashboard/internal/db"
)

var (
	// ErrNotConfigured is returned when no client credentials are stored
	ErrNotConfigured = errors.New("client not configured: run strava-dashboard to log in")
	// ErrNotAuthenticated is returned when no access token is stored
	ErrNotAuthenticated = errors.New("not authenticated: run strava-dashboard to log in")
)

// Storage persists client credentials and tokens in SQLite
type Storage struct {
	queries *db.Queries
	// refresh is swapped in tests
	refresh func(ctx context.Context, clientID, clientSecret, refreshToken string) (*TokenResponse, error)
}

// NewStorage creates a new Storage instance
func NewStorage(queries *db.Queries) *Storage {
	return &Storage{
		queries: queries,
		refresh: RefreshAccessToken,
	}
}

// StoredTokens are the tokens stored in the database
type StoredTokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    int64
}

// ClientConfig holds the stored client credentials
type ClientConfig struct {
	ClientID     string
	ClientSecret string
}

// SaveTokens updates the tokens, keeping the stored client credentials
func (s *Storage) SaveTokens(ctx context.Context, tokens *TokenResponse) error {
	if _, err := s.queries.GetAuthConfig(ctx); err != nil {
		if db.IsNotFound(err) {
			return ErrNotConfigured
		}
		return fmt.Errorf("checking existing config: %w", err)
	}

	return s.queries.UpdateTokens(ctx, db.UpdateTokensParams{
		AccessToken:  sql.NullString{String: tokens.AccessToken, Valid: true},
		RefreshToken: sql.NullString{String: tokens.RefreshToken, Valid: true},
		ExpiresAt:    sql.NullInt64{Int64: tokens.ExpiresAt, Valid: true},
	})
}

// LoadTokens loads the stored tokens
func (s *Storage) LoadTokens(ctx context.Context) (*StoredTokens, error) {
	config, err := s.queries.GetAuthConfig(ctx)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrNotAuthenticated
		}
		return nil, fmt.Errorf("loading auth config: %w", err)
	}
	if !config.AccessToken.Valid {
		return nil, ErrNotAuthenticated
	}

	return &StoredTokens{
		AccessToken:  config.AccessToken.String,
		RefreshToken: config.RefreshToken.String,
		ExpiresAt:    config.ExpiresAt.Int64,
	}, nil
}

// SaveClientConfig stores client credentials, clearing any tokens
func (s *Storage) SaveClientConfig(ctx context.Context, clientID, clientSecret string) error {
	return s.queries.SaveAuthConfig(ctx, db.SaveAuthConfigParams{
		ClientID:     clientID,
		ClientSecret: clientSecret,
	})
}

// SaveFullConfig stores client credentials and tokens together
func (s *Storage) SaveFullConfig(ctx context.Context, clientID, clientSecret string, tokens *TokenResponse) error {
	return s.queries.SaveAuthConfig(ctx, db.SaveAuthConfigParams{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		AccessToken:  sql.NullString{String: tokens.AccessToken, Valid: true},
		RefreshToken: sql.NullString{String: tokens.RefreshToken, Valid: true},
		ExpiresAt:    sql.NullInt64{Int64: tokens.ExpiresAt, Valid: true},
	})
}

// LoadClientConfig loads the stored client credentials
func (s *Storage) LoadClientConfig(ctx context.Context) (*ClientConfig, error) {
	config, err := s.queries.GetAuthConfig(ctx)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrNotConfigured
		}
		return nil, fmt.Errorf("loading auth config: %w", err)
	}

	return &ClientConfig{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
	}, nil
}

// DeleteTokens removes the stored credentials and tokens
func (s *Storage) DeleteTokens(ctx context.Context) error {
	return s.queries.DeleteAuthConfig(ctx)
}

// Refresh exchanges the stored refresh token and saves the result
func (s *Storage) Refresh(ctx context.Context) (*TokenResponse, error) {
	tokens, err := s.LoadTokens(ctx)
	if err != nil {
		return nil, err
	}
	config, err := s.LoadClientConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading client config for refresh: %w", err)
	}

	newTokens, err := s.refresh(ctx, config.ClientID, config.ClientSecret, tokens.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("refreshing token: %w", err)
	}
	if err := s.SaveTokens(ctx, newTokens); err != nil {
		return nil, fmt.Errorf("saving refreshed tokens: %w", err)
	}
	return newTokens, nil
}

// GetValidAccessToken returns the stored access token, refreshing it first
// when it is about to expire
func (s *Storage) GetValidAccessToken(ctx context.Context) (string, error) {
	tokens, err := s.LoadTokens(ctx)
	if err != nil {
		return "", err
	}
	if !IsTokenExpired(tokens.ExpiresAt) {
		return tokens.AccessToken, nil
	}

	newTokens, err := s.Refresh(ctx)
	if err != nil {
		return "", err
	}
	return newTokens.AccessToken, nil
}
