// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"codeberg.org/oliverandrich/go-identity-service/internal/auth"
	"codeberg.org/oliverandrich/go-identity-service/internal/handlers"
	"codeberg.org/oliverandrich/go-identity-service/internal/models"
	"codeberg.org/oliverandrich/go-identity-service/internal/repository"
	"codeberg.org/oliverandrich/go-identity-service/internal/services/account"
	"codeberg.org/oliverandrich/go-identity-service/internal/services/password"
	"codeberg.org/oliverandrich/go-identity-service/internal/services/session"
	"codeberg.org/oliverandrich/go-identity-service/internal/testutil"
)

type fixture struct {
	e        *echo.Echo
	handlers *handlers.AuthHandlers
	accounts *account.Service
	repo     *repository.Repository
	mailer   *testutil.MailRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	testutil.InitI18n(t)
	_, repo := testutil.NewTestDB(t)
	mailer := &testutil.MailRecorder{}
	hasher := password.NewHasher(bcrypt.MinCost)
	sessions := session.NewManager("test-secret-for-handler-tests", false)
	accounts := account.NewService(repo, hasher, mailer, "http://localhost:8080")
	return &fixture{
		e:        echo.New(),
		handlers: handlers.NewAuth(accounts, sessions, time.Hour),
		accounts: accounts,
		repo:     repo,
		mailer:   mailer,
	}
}

func (f *fixture) signup(t *testing.T) *models.User {
	t.Helper()
	user, err := f.accounts.Signup(context.Background(), "Ann Smith", "a@x.com", "pw123456")
	require.NoError(t, err)
	return user
}

func (f *fixture) request(method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	return testutil.NewEchoContext(f.e, method, path, reader)
}

// authenticate puts the user into the request context the way the session
// middleware would.
func authenticate(c echo.Context, user *models.User) {
	ctx := auth.SetUser(c.Request().Context(), user)
	c.SetRequest(c.Request().WithContext(ctx))
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == session.CookieName {
			return cookie
		}
	}
	return nil
}

func TestSignupHandler(t *testing.T) {
	f := newFixture(t)
	c, rec := f.request(http.MethodPost, "/api/auth/signup",
		`{"name":"Ann Smith","email":"a@x.com","password":"pw123456"}`)

	require.NoError(t, f.handlers.Signup(c))

	assert.Equal(t, http.StatusCreated, rec.Code)

	// A fresh session cookie accompanies the signup.
	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)

	assert.Equal(t, 1, f.mailer.Count())
}

func TestSignupHandler_MissingFields(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing name", `{"email":"a@x.com","password":"pw123456"}`},
		{"missing email", `{"name":"Ann","password":"pw123456"}`},
		{"missing password", `{"name":"Ann","email":"a@x.com"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := f.request(http.MethodPost, "/api/auth/signup", tt.body)

			require.NoError(t, f.handlers.Signup(c))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestSignupHandler_EmailTaken(t *testing.T) {
	f := newFixture(t)
	f.signup(t)
	c, rec := f.request(http.MethodPost, "/api/auth/signup",
		`{"name":"Bob","email":"a@x.com","password":"other-pw"}`)

	require.NoError(t, f.handlers.Signup(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestVerifyHandler(t *testing.T) {
	f := newFixture(t)
	user := f.signup(t)
	stored, err := f.repo.GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)

	c, rec := f.request(http.MethodPost, "/api/auth/verify-account",
		`{"code":"`+*stored.VerificationToken+`"}`)
	authenticate(c, stored)

	require.NoError(t, f.handlers.Verify(c))

	assert.Equal(t, http.StatusOK, rec.Code)

	verified, err := f.repo.GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.True(t, verified.IsVerified)
}

func TestVerifyHandler_WrongCode(t *testing.T) {
	f := newFixture(t)
	user := f.signup(t)

	c, rec := f.request(http.MethodPost, "/api/auth/verify-account", `{"code":"000000"}`)
	authenticate(c, user)

	require.NoError(t, f.handlers.Verify(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerifyHandler_AlreadyVerified(t *testing.T) {
	f := newFixture(t)
	user := f.signup(t)
	stored, err := f.repo.GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.NoError(t, f.accounts.Verify(context.Background(), user.ID, *stored.VerificationToken))

	c, rec := f.request(http.MethodPost, "/api/auth/verify-account",
		`{"code":"`+*stored.VerificationToken+`"}`)
	authenticate(c, stored)

	require.NoError(t, f.handlers.Verify(c))

	assert.Equal(t, http.StatusNotAcceptable, rec.Code)
}

func TestVerifyHandler_MissingCode(t *testing.T) {
	f := newFixture(t)
	user := f.signup(t)

	c, rec := f.request(http.MethodPost, "/api/auth/verify-account", `{}`)
	authenticate(c, user)

	require.NoError(t, f.handlers.Verify(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginHandler(t *testing.T) {
	f := newFixture(t)
	f.signup(t)
	c, rec := f.request(http.MethodPost, "/api/auth/login",
		`{"email":"a@x.com","password":"pw123456"}`)

	require.NoError(t, f.handlers.Login(c))

	assert.Equal(t, http.StatusOK, rec.Code)

	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.NotEmpty(t, cookie.Value)

	body := decode(t, rec)
	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, data["is_verified"])
}

func TestLoginHandler_WrongPassword(t *testing.T) {
	f := newFixture(t)
	f.signup(t)
	c, rec := f.request(http.MethodPost, "/api/auth/login",
		`{"email":"a@x.com","password":"wrong-password"}`)

	require.NoError(t, f.handlers.Login(c))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, sessionCookie(rec))
}

func TestLoginHandler_UnknownEmail(t *testing.T) {
	f := newFixture(t)
	c, rec := f.request(http.MethodPost, "/api/auth/login",
		`{"email":"nobody@x.com","password":"pw123456"}`)

	require.NoError(t, f.handlers.Login(c))

	// Same status and message as a wrong password.
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutHandler(t *testing.T) {
	f := newFixture(t)
	c, rec := f.request(http.MethodPost, "/api/auth/logout", "")

	require.NoError(t, f.handlers.Logout(c))

	assert.Equal(t, http.StatusOK, rec.Code)

	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Equal(t, -1, cookie.MaxAge)
}

func TestLogoutHandler_Idempotent(t *testing.T) {
	f := newFixture(t)

	for i := 0; i < 2; i++ {
		c, rec := f.request(http.MethodPost, "/api/auth/logout", "")
		require.NoError(t, f.handlers.Logout(c))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestForgotPasswordHandler(t *testing.T) {
	f := newFixture(t)
	f.signup(t)
	c, rec := f.request(http.MethodPost, "/api/auth/forgot-password", `{"email":"a@x.com"}`)

	require.NoError(t, f.handlers.ForgotPassword(c))

	assert.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	message, ok := body["message"].(string)
	require.True(t, ok)
	assert.Contains(t, message, "a@x.com")
}

func TestForgotPasswordHandler_UnknownEmail(t *testing.T) {
	f := newFixture(t)
	c, rec := f.request(http.MethodPost, "/api/auth/forgot-password", `{"email":"nobody@x.com"}`)

	require.NoError(t, f.handlers.ForgotPassword(c))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResetPasswordHandler(t *testing.T) {
	f := newFixture(t)
	user := f.signup(t)
	_, err := f.accounts.ForgotPassword(context.Background(), "a@x.com")
	require.NoError(t, err)
	stored, err := f.repo.GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)

	c, rec := f.request(http.MethodPut, "/api/auth/reset-password/"+user.ID+"/"+*stored.ResetToken,
		`{"password":"new-password"}`)
	c.SetParamNames("id", "token")
	c.SetParamValues(user.ID, *stored.ResetToken)

	require.NoError(t, f.handlers.ResetPassword(c))

	assert.Equal(t, http.StatusCreated, rec.Code)

	_, err = f.accounts.Login(context.Background(), "a@x.com", "new-password")
	assert.NoError(t, err)
}

func TestResetPasswordHandler_InvalidToken(t *testing.T) {
	f := newFixture(t)
	user := f.signup(t)
	_, err := f.accounts.ForgotPassword(context.Background(), "a@x.com")
	require.NoError(t, err)

	c, rec := f.request(http.MethodPut, "/api/auth/reset-password/"+user.ID+"/bogus",
		`{"password":"new-password"}`)
	c.SetParamNames("id", "token")
	c.SetParamValues(user.ID, "bogus")

	require.NoError(t, f.handlers.ResetPassword(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResetPasswordHandler_NoPendingReset(t *testing.T) {
	f := newFixture(t)
	user := f.signup(t)

	c, rec := f.request(http.MethodPut, "/api/auth/reset-password/"+user.ID+"/sometoken",
		`{"password":"new-password"}`)
	c.SetParamNames("id", "token")
	c.SetParamValues(user.ID, "sometoken")

	require.NoError(t, f.handlers.ResetPassword(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResetPasswordHandler_UnknownAccount(t *testing.T) {
	f := newFixture(t)

	c, rec := f.request(http.MethodPut, "/api/auth/reset-password/missing-id/sometoken",
		`{"password":"new-password"}`)
	c.SetParamNames("id", "token")
	c.SetParamValues("missing-id", "sometoken")

	require.NoError(t, f.handlers.ResetPassword(c))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResetPasswordHandler_MissingPassword(t *testing.T) {
	f := newFixture(t)
	user := f.signup(t)

	c, rec := f.request(http.MethodPut, "/api/auth/reset-password/"+user.ID+"/sometoken", `{}`)
	c.SetParamNames("id", "token")
	c.SetParamValues(user.ID, "sometoken")

	require.NoError(t, f.handlers.ResetPassword(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckSessionHandler(t *testing.T) {
	f := newFixture(t)
	user := f.signup(t)
	stored, err := f.repo.GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)

	c, rec := f.request(http.MethodGet, "/api/auth/check-session", "")
	authenticate(c, stored)

	require.NoError(t, f.handlers.CheckSession(c))

	assert.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, user.ID, data["id"])
	assert.Equal(t, "a@x.com", data["email"])

	// Secrets never leave the process.
	assert.NotContains(t, data, "password_hash")
	assert.NotContains(t, rec.Body.String(), stored.PasswordHash)
	assert.NotContains(t, rec.Body.String(), *stored.VerificationToken)
}

func TestHealthHandler(t *testing.T) {
	f := newFixture(t)
	c, rec := f.request(http.MethodGet, "/health", "")

	require.NoError(t, handlers.Health(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}
