// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"io"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"

	"codeberg.org/oliverandrich/go-identity-service/internal/database"
	"codeberg.org/oliverandrich/go-identity-service/internal/i18n"
	"codeberg.org/oliverandrich/go-identity-service/internal/repository"
)

// NewTestDB creates an in-memory SQLite database for tests.
// Returns both the database connection and the repository for convenience.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	repo := repository.New(db)
	return db, repo
}

// InitI18n loads the embedded translation bundle.
func InitI18n(t *testing.T) {
	t.Helper()
	require.NoError(t, i18n.Init())
}

// NewEchoContext creates an Echo context for handler tests.
func NewEchoContext(e *echo.Echo, method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

// SentMail records a single delivery attempt made through the MailRecorder.
type SentMail struct {
	To       string
	Subject  string
	HTMLBody string
}

// MailRecorder is a Sender that records messages instead of delivering them.
// Set Fail to simulate delivery failures.
type MailRecorder struct {
	mu   sync.Mutex
	Sent []SentMail
	Fail error
}

// Send records the message, or returns Fail if set.
func (m *MailRecorder) Send(_ context.Context, to, subject, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	m.Sent = append(m.Sent, SentMail{To: to, Subject: subject, HTMLBody: htmlBody})
	return nil
}

// Count returns the number of recorded messages.
func (m *MailRecorder) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

// Last returns the most recently recorded message.
func (m *MailRecorder) Last() SentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Sent[len(m.Sent)-1]
}
