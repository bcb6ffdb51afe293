package api

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	stateIssuer = "strava-dashboard"
	stateTTL    = 10 * time.Minute
)

var errInvalidState = errors.New("invalid oauth state")

// stateClaims travel through the Strava consent page in the state parameter,
// so the callback knows which redirect URI to exchange the code against
type stateClaims struct {
	RedirectURI string `json:"redirect_uri"`
	jwt.RegisteredClaims
}

func signState(secret []byte, redirectURI string, now time.Time) (string, error) {
	claims := stateClaims{
		RedirectURI: redirectURI,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    stateIssuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(stateTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func verifyState(secret []byte, state string, now time.Time) (*stateClaims, error) {
	if state == "" {
		return nil, fmt.Errorf("%w: missing", errInvalidState)
	}
	var claims stateClaims
	_, err := jwt.ParseWithClaims(state, &claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithIssuer(stateIssuer),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidState, err)
	}
	return &claims, nil
}
