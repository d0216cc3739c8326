// Package auth enforces authentication on the API routes. Credentials are
// exchanged for a signed session token at the token endpoint; subsequent
// requests present the token in the access_token query parameter, the
// X-Access-Token header, or an Authorization bearer header. The principal
// recovered from a token rides the request context so handlers can scope
// the catalog before traversal.
package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultMaxAge is the session token lifetime used when none is configured.
const DefaultMaxAge = 15 * time.Minute

// ErrInvalidToken indicates a session token that failed verification.
var ErrInvalidToken = errors.New("invalid session token")

// Sessions issues and verifies the signed tokens that carry a principal
// between requests.
type Sessions struct {
	secret []byte
	maxAge time.Duration
}

// NewSessions creates a token manager signing with secret. An empty secret
// gets a random key, which invalidates outstanding sessions on restart.
func NewSessions(secret string, maxAge time.Duration) (*Sessions, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generating session key: %w", err)
		}
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Sessions{secret: key, maxAge: maxAge}, nil
}

// MaxAge returns the lifetime of issued tokens.
func (s *Sessions) MaxAge() time.Duration {
	return s.maxAge
}

// Issue signs a new session token for principal.
func (s *Sessions) Issue(principal string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   principal,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.maxAge)),
		ID:        uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}
	return signed, nil
}

// Verify checks a session token and returns the principal it carries.
func (s *Sessions) Verify(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
