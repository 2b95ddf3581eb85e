// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"codeberg.org/oliverandrich/go-identity-service/internal/auth"
	"codeberg.org/oliverandrich/go-identity-service/internal/handlers"
	"codeberg.org/oliverandrich/go-identity-service/internal/i18n"
	"codeberg.org/oliverandrich/go-identity-service/internal/repository"
	"codeberg.org/oliverandrich/go-identity-service/internal/services/session"
)

// RequireSession validates the session cookie, loads the account and stores
// it in the request context. Requests without a valid session are rejected
// with 401; a session whose account no longer exists yields 404.
func RequireSession(sessions *session.Manager, repo *repository.Repository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			cookie, err := c.Cookie(session.CookieName)
			if err != nil || cookie.Value == "" {
				return handlers.Error(c, http.StatusUnauthorized, i18n.T(ctx, "error_unauthorized"))
			}

			userID, err := sessions.Validate(cookie.Value)
			if err != nil {
				return handlers.Error(c, http.StatusUnauthorized, i18n.T(ctx, "error_unauthorized"))
			}

			user, err := repo.GetUserByID(ctx, userID)
			if err != nil {
				// Token outlived the account, e.g. deleted after issuance.
				return handlers.Error(c, http.StatusNotFound, i18n.T(ctx, "error_account_not_found"))
			}

			c.SetRequest(c.Request().WithContext(auth.SetUser(ctx, user)))
			return next(c)
		}
	}
}
