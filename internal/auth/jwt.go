// Package auth guards the dashboard API. The dashboard has a single
// operator identity: a shared secret is exchanged for a short-lived
// HS256 token, and every /api route except health and login requires it.
package auth

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const dashboardSubject = "dashboard"

var ErrBadSecret = errors.New("auth: secret mismatch")

type Manager struct {
	secret []byte
	ttl    time.Duration
}

func NewManager(secret string, ttl time.Duration) (*Manager, error) {
	if secret == "" {
		return nil, errors.New("auth: DASHBOARD_SECRET is required")
	}
	if ttl <= 0 {
		return nil, errors.New("auth: token TTL must be positive")
	}
	return &Manager{secret: []byte(secret), ttl: ttl}, nil
}

// Exchange trades the dashboard secret for a signed token. The compare
// is constant-time; the secret never appears in a token claim.
func (m *Manager) Exchange(now time.Time, secret string) (string, time.Time, error) {
	if subtle.ConstantTimeCompare([]byte(secret), m.secret) != 1 {
		return "", time.Time{}, ErrBadSecret
	}

	expires := now.Add(m.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   dashboardSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
		ID:        uuid.NewString(),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tok, expires, nil
}

// Verify checks signature, expiry and subject.
func (m *Manager) Verify(tokenString string, now time.Time) error {
	var claims jwt.RegisteredClaims

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithLeeway(30*time.Second), // clock skew tolerance
	)
	if _, err := parser.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}); err != nil {
		return err
	}

	if claims.Subject != dashboardSubject {
		return errors.New("auth: unexpected subject")
	}
	return nil
}
