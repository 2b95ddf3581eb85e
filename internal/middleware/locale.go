// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package middleware

import (
	"github.com/labstack/echo/v4"

	"codeberg.org/oliverandrich/go-identity-service/internal/i18n"
)

// Locale resolves the request language from the Accept-Language header and
// stores a localizer in the request context.
func Locale(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tag := i18n.MatchLanguage(c.Request().Header.Get("Accept-Language"))
		ctx := i18n.WithLocale(c.Request().Context(), tag)
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}
