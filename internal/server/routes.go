// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"codeberg.org/oliverandrich/go-identity-service/internal/config"
	"codeberg.org/oliverandrich/go-identity-service/internal/handlers"
	"codeberg.org/oliverandrich/go-identity-service/internal/middleware"
	"codeberg.org/oliverandrich/go-identity-service/internal/repository"
	"codeberg.org/oliverandrich/go-identity-service/internal/services/account"
	"codeberg.org/oliverandrich/go-identity-service/internal/services/session"
)

// setupRoutes configures all HTTP routes on the given Echo instance.
func setupRoutes(e *echo.Echo, cfg *config.Config, repo *repository.Repository, accounts *account.Service, sessions *session.Manager) {
	// Global middleware (order matters)
	e.Use(middleware.RequestLogger(slog.Default()))
	e.Use(middleware.Locale)

	// Health check - public
	e.GET("/health", handlers.Health)

	authHandler := handlers.NewAuth(accounts, sessions, cfg.Auth.SessionValidityDuration())
	requireSession := middleware.RequireSession(sessions, repo)

	api := e.Group("/api/auth")
	api.POST("/signup", authHandler.Signup)
	api.POST("/login", authHandler.Login)
	api.POST("/forgot-password", authHandler.ForgotPassword)
	api.PUT("/reset-password/:id/:token", authHandler.ResetPassword)

	// Protected routes - require a valid session
	api.POST("/verify-account", authHandler.Verify, requireSession)
	api.POST("/logout", authHandler.Logout, requireSession)
	api.GET("/check-session", authHandler.CheckSession, requireSession)
}
