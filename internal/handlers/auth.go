// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"codeberg.org/oliverandrich/go-identity-service/internal/auth"
	"codeberg.org/oliverandrich/go-identity-service/internal/i18n"
	"codeberg.org/oliverandrich/go-identity-service/internal/services/account"
	"codeberg.org/oliverandrich/go-identity-service/internal/services/session"
)

// AuthHandlers contains handlers for the account lifecycle endpoints.
type AuthHandlers struct {
	accounts *account.Service
	sessions *session.Manager
	validity time.Duration
}

// NewAuth creates a new AuthHandlers instance.
func NewAuth(accounts *account.Service, sessions *session.Manager, validity time.Duration) *AuthHandlers {
	if validity <= 0 {
		validity = session.DefaultValidity
	}
	return &AuthHandlers{
		accounts: accounts,
		sessions: sessions,
		validity: validity,
	}
}

// issueSession mints a session token and attaches it to the response. A
// missing signing secret skips issuance instead of failing the request.
func (h *AuthHandlers) issueSession(c echo.Context, userID string) {
	token, err := h.sessions.Issue(userID, h.validity)
	if err != nil {
		if errors.Is(err, session.ErrNoSecret) {
			slog.Warn("session_skipped", "user_id", userID, "reason", "no_signing_secret")
			return
		}
		slog.Error("session_issue_failed", "user_id", userID, "error", err)
		return
	}
	c.SetCookie(h.sessions.Cookie(token, h.validity))
}

// SignupRequest is the request body for account creation.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup creates a new unverified account and logs it in right away.
func (h *AuthHandlers) Signup(c echo.Context) error {
	ctx := c.Request().Context()

	var req SignupRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, i18n.T(ctx, "error_internal"))
	}
	if req.Name == "" {
		return Error(c, http.StatusBadRequest, i18n.T(ctx, "error_name_required"))
	}
	if req.Email == "" {
		return Error(c, http.StatusBadRequest, i18n.T(ctx, "error_email_required"))
	}
	if req.Password == "" {
		return Error(c, http.StatusBadRequest, i18n.T(ctx, "error_password_required"))
	}

	user, err := h.accounts.Signup(ctx, req.Name, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, account.ErrEmailTaken):
			return Error(c, http.StatusConflict, i18n.T(ctx, "error_email_taken"))
		case errors.Is(err, account.ErrMailDelivery):
			return Error(c, http.StatusInternalServerError, i18n.T(ctx, "error_mail_delivery"))
		default:
			slog.Error("signup_failed", "email", req.Email, "error", err)
			return Error(c, http.StatusInternalServerError, i18n.T(ctx, "error_internal"))
		}
	}

	h.issueSession(c, user.ID)
	return Success(c, http.StatusCreated, i18n.T(ctx, "signup_success"), nil)
}

// VerifyRequest is the request body for account verification.
type VerifyRequest struct {
	Code string `json:"code"`
}

// Verify consumes the 6-digit verification code for the authenticated account.
func (h *AuthHandlers) Verify(c echo.Context) error {
	ctx := c.Request().Context()
	user := auth.GetUser(ctx)

	var req VerifyRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, i18n.T(ctx, "error_internal"))
	}
	if req.Code == "" {
		return Error(c, http.StatusBadRequest, i18n.T(ctx, "error_code_required"))
	}

	if err := h.accounts.Verify(ctx, user.ID, req.Code); err != nil {
		switch {
		case errors.Is(err, account.ErrNotFound):
			return Error(c, http.StatusNotFound, i18n.T(ctx, "error_account_not_found"))
		case errors.Is(err, account.ErrAlreadyVerified):
			return Error(c, http.StatusNotAcceptable, i18n.T(ctx, "error_already_verified"))
		case errors.Is(err, account.ErrNoPendingToken):
			return Error(c, http.StatusBadRequest, i18n.T(ctx, "error_no_pending_verification"))
		case errors.Is(err, account.ErrTokenInvalid):
			return Error(c, http.StatusBadRequest, i18n.T(ctx, "error_invalid_verification_code"))
		default:
			slog.Error("verify_failed", "user_id", user.ID, "error", err)
			return Error(c, http.StatusInternalServerError, i18n.T(ctx, "error_internal"))
		}
	}

	return Success(c, http.StatusOK, i18n.T(ctx, "verify_success"), nil)
}

// LoginRequest is the request body for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates the credentials and issues a fresh session. Unknown
// email and wrong password produce the same response.
func (h *AuthHandlers) Login(c echo.Context) error {
	ctx := c.Request().Context()

	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, i18n.T(ctx, "error_internal"))
	}
	if req.Email == "" {
		return Error(c, http.StatusBadRequest, i18n.T(ctx, "error_email_required"))
	}
	if req.Password == "" {
		return Error(c, http.StatusBadRequest, i18n.T(ctx, "error_password_required"))
	}

	user, err := h.accounts.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, account.ErrInvalidCredentials) {
			return Error(c, http.StatusUnauthorized, i18n.T(ctx, "error_invalid_credentials"))
		}
		slog.Error("login_failed", "email", req.Email, "error", err)
		return Error(c, http.StatusInternalServerError, i18n.T(ctx, "error_internal"))
	}

	h.issueSession(c, user.ID)
	return Success(c, http.StatusOK, i18n.T(ctx, "login_success"), map[string]any{
		"is_verified": user.IsVerified,
	})
}

// Logout clears the session carrier. Idempotent; no store mutation.
func (h *AuthHandlers) Logout(c echo.Context) error {
	c.SetCookie(h.sessions.ClearCookie())
	return Success(c, http.StatusOK, i18n.T(c.Request().Context(), "logout_success"), nil)
}

// ForgotPasswordRequest is the request body for requesting a reset link.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword generates a reset token and mails the reset link.
func (h *AuthHandlers) ForgotPassword(c echo.Context) error {
	ctx := c.Request().Context()

	var req ForgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, i18n.T(ctx, "error_internal"))
	}
	if req.Email == "" {
		return Error(c, http.StatusBadRequest, i18n.T(ctx, "error_email_required"))
	}

	user, err := h.accounts.ForgotPassword(ctx, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, account.ErrNotFound):
			return Error(c, http.StatusNotFound, i18n.T(ctx, "error_account_not_found"))
		case errors.Is(err, account.ErrMailDelivery):
			return Error(c, http.StatusInternalServerError, i18n.T(ctx, "error_mail_delivery"))
		default:
			slog.Error("forgot_password_failed", "email", req.Email, "error", err)
			return Error(c, http.StatusInternalServerError, i18n.T(ctx, "error_internal"))
		}
	}

	msg := i18n.TData(ctx, "forgot_password_sent", map[string]any{"Email": user.Email})
	return Success(c, http.StatusOK, msg, nil)
}

// ResetPasswordRequest is the request body for resetting the password.
type ResetPasswordRequest struct {
	Password string `json:"password"`
}

// ResetPassword consumes the reset token from the path and stores the new
// password.
func (h *AuthHandlers) ResetPassword(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")
	resetToken := c.Param("token")

	if id == "" {
		return Error(c, http.StatusBadRequest, i18n.T(ctx, "error_id_required"))
	}
	if resetToken == "" {
		return Error(c, http.StatusBadRequest, i18n.T(ctx, "error_token_required"))
	}

	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, i18n.T(ctx, "error_internal"))
	}
	if req.Password == "" {
		return Error(c, http.StatusBadRequest, i18n.T(ctx, "error_password_required"))
	}

	if err := h.accounts.ResetPassword(ctx, id, resetToken, req.Password); err != nil {
		switch {
		case errors.Is(err, account.ErrNotFound):
			return Error(c, http.StatusNotFound, i18n.T(ctx, "error_account_not_found"))
		case errors.Is(err, account.ErrNoPendingToken):
			return Error(c, http.StatusBadRequest, i18n.T(ctx, "error_no_pending_reset"))
		case errors.Is(err, account.ErrTokenInvalid):
			return Error(c, http.StatusBadRequest, i18n.T(ctx, "error_invalid_reset_token"))
		case errors.Is(err, account.ErrSamePassword):
			return Error(c, http.StatusBadRequest, i18n.T(ctx, "error_same_password"))
		default:
			slog.Error("reset_password_failed", "user_id", id, "error", err)
			return Error(c, http.StatusInternalServerError, i18n.T(ctx, "error_internal"))
		}
	}

	return Success(c, http.StatusCreated, i18n.T(ctx, "reset_password_success"), nil)
}

// CheckSession returns the authenticated account. The credential hash and
// pending tokens are excluded by the model's JSON tags.
func (h *AuthHandlers) CheckSession(c echo.Context) error {
	ctx := c.Request().Context()
	user := auth.GetUser(ctx)

	return Success(c, http.StatusOK, i18n.T(ctx, "session_restored"), user)
}
