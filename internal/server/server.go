// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package server wires configuration, storage, services and routes into a
// runnable HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"

	"codeberg.org/oliverandrich/go-identity-service/internal/config"
	"codeberg.org/oliverandrich/go-identity-service/internal/database"
	"codeberg.org/oliverandrich/go-identity-service/internal/i18n"
	"codeberg.org/oliverandrich/go-identity-service/internal/repository"
	"codeberg.org/oliverandrich/go-identity-service/internal/services/account"
	"codeberg.org/oliverandrich/go-identity-service/internal/services/email"
	"codeberg.org/oliverandrich/go-identity-service/internal/services/password"
	"codeberg.org/oliverandrich/go-identity-service/internal/services/session"
)

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
	)

	if cfg.Auth.JWTSecret == "" {
		slog.Warn("no JWT secret configured, sessions will not be issued")
	}

	// Database
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	// i18n
	if initErr := i18n.Init(); initErr != nil {
		return fmt.Errorf("failed to init i18n: %w", initErr)
	}

	// Mail
	mailer, err := email.NewSMTPSender(&cfg.SMTP)
	if err != nil {
		return fmt.Errorf("failed to create mail sender: %w", err)
	}

	// Services
	repo := repository.New(db)
	hasher := password.NewHasher(cfg.Auth.BcryptCost)
	sessions := session.NewManager(cfg.Auth.JWTSecret, cfg.Auth.CookieSecure)
	accounts := account.NewService(repo, hasher, mailer, cfg.Server.BaseURL)

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	setupRoutes(e, cfg, repo, accounts, sessions)

	return startWithGracefulShutdown(e, cfg)
}

func startWithGracefulShutdown(e *echo.Echo, cfg *config.Config) error {
	errChan := make(chan error, 1)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		slog.Info("server running", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}
