// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package session mints and validates stateless session tokens and handles
// their cookie carrier.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CookieName is the cookie the session token travels in.
const CookieName = "token"

// DefaultValidity is the session lifetime used when no override is given.
const DefaultValidity = 15 * 24 * time.Hour

var (
	// ErrNoSecret is returned when no signing secret is configured. Callers
	// must treat this as issuance being skipped, not as a fatal condition.
	ErrNoSecret = errors.New("session signing secret is not configured")
	// ErrInvalidToken covers malformed tokens, signature mismatches and
	// expired tokens alike.
	ErrInvalidToken = errors.New("invalid session token")
)

// Manager issues and validates signed session tokens. Safe for concurrent
// use; the secret is read-only after construction.
type Manager struct {
	secret       []byte
	cookieSecure bool
}

// NewManager creates a session manager with the given signing secret.
func NewManager(secret string, cookieSecure bool) *Manager {
	return &Manager{secret: []byte(secret), cookieSecure: cookieSecure}
}

// Issue mints a signed token binding the user id, expiring after validity.
func (m *Manager) Issue(userID string, validity time.Duration) (string, error) {
	if len(m.secret) == 0 {
		return "", ErrNoSecret
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}
	return signed, nil
}

// Validate verifies signature and expiry and returns the bound user id.
// Any failure mode collapses into ErrInvalidToken.
func (m *Manager) Validate(tokenString string) (string, error) {
	if len(m.secret) == 0 {
		return "", ErrInvalidToken
	}

	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
	)
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}

	return claims.Subject, nil
}

// Cookie wraps a session token in the transport carrier: HTTP-only, strict
// same-site, max-age matching the token validity.
func (m *Manager) Cookie(token string, validity time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(validity.Seconds()),
		HttpOnly: true,
		Secure:   m.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	}
}

// ClearCookie returns a cookie that removes the carrier with matching flags.
func (m *Manager) ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	}
}
