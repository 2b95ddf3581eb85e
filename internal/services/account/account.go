// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package account orchestrates the credential and token lifecycle: signup,
// email verification, login, password reset.
package account

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"codeberg.org/oliverandrich/go-identity-service/internal/models"
	"codeberg.org/oliverandrich/go-identity-service/internal/repository"
	"codeberg.org/oliverandrich/go-identity-service/internal/services/email"
	"codeberg.org/oliverandrich/go-identity-service/internal/services/password"
	"codeberg.org/oliverandrich/go-identity-service/internal/token"
)

const (
	// VerificationCodeDigits is the length of the numeric verification code.
	VerificationCodeDigits = 6
	// VerificationTokenTTL is how long a verification code is valid.
	VerificationTokenTTL = 24 * time.Hour
	// ResetTokenLength is the length of the password reset token.
	ResetTokenLength = 30
	// ResetTokenTTL is how long a reset token is valid.
	ResetTokenTTL = time.Hour
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotFound           = errors.New("account not found")
	ErrAlreadyVerified    = errors.New("account already verified")
	ErrNoPendingToken     = errors.New("no pending token")
	ErrTokenInvalid       = errors.New("invalid or expired token")
	ErrSamePassword       = errors.New("password equals current one")
	ErrMailDelivery       = errors.New("mail delivery failed")
)

// Service implements the account lifecycle state machine on top of the store,
// the hasher and the mail sender.
type Service struct {
	repo    *repository.Repository
	hasher  *password.Hasher
	mailer  email.Sender
	baseURL string
}

// NewService creates a new account service. baseURL is used to build password
// reset links.
func NewService(repo *repository.Repository, hasher *password.Hasher, mailer email.Sender, baseURL string) *Service {
	return &Service{
		repo:    repo,
		hasher:  hasher,
		mailer:  mailer,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// Signup creates a new unverified account with a pending verification code
// and sends the verification mail. A mail delivery failure aborts the signup;
// no account is persisted in that case.
func (s *Service) Signup(ctx context.Context, name, emailAddr, plaintext string) (*models.User, error) {
	taken, err := s.repo.EmailExists(ctx, emailAddr)
	if err != nil {
		return nil, fmt.Errorf("checking existing account: %w", err)
	}
	if taken {
		return nil, ErrEmailTaken
	}

	hash, err := s.hasher.Hash(plaintext)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	code, err := token.NumericCode(VerificationCodeDigits)
	if err != nil {
		return nil, fmt.Errorf("generating verification code: %w", err)
	}
	expiresAt := time.Now().Add(VerificationTokenTTL)

	msg, err := email.VerificationMail(ctx, firstWord(name), code)
	if err != nil {
		return nil, err
	}
	if err := s.mailer.Send(ctx, emailAddr, msg.Subject, msg.HTMLBody); err != nil {
		slog.Error("mail_send_failed", "kind", "verification", "email", emailAddr, "error", err)
		return nil, ErrMailDelivery
	}

	user := &models.User{
		Name:                  name,
		Email:                 emailAddr,
		PasswordHash:          hash,
		VerificationToken:     &code,
		VerificationExpiresAt: &expiresAt,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		// Lost the race against a concurrent signup for the same email.
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("creating account: %w", err)
	}

	slog.Info("signup_success", "user_id", user.ID, "email", emailAddr)
	return user, nil
}

// Verify consumes the verification code and flips the account to verified.
// Verification is authoritative once the code check passes; the welcome mail
// is best-effort and never rolls it back.
func (s *Service) Verify(ctx context.Context, userID, code string) error {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("loading account: %w", err)
	}

	if user.IsVerified {
		return ErrAlreadyVerified
	}
	if !user.HasPendingVerification() {
		return ErrNoPendingToken
	}
	if !tokensEqual(*user.VerificationToken, code) || time.Now().After(*user.VerificationExpiresAt) {
		slog.Warn("verify_failed", "user_id", userID, "reason", "invalid_or_expired")
		return ErrTokenInvalid
	}

	if err := s.repo.MarkVerified(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// A concurrent request consumed the token first.
			return ErrAlreadyVerified
		}
		return fmt.Errorf("marking account verified: %w", err)
	}

	slog.Info("verify_success", "user_id", userID)

	if msg, err := email.WelcomeMail(ctx, user.FirstName()); err == nil {
		if err := s.mailer.Send(ctx, user.Email, msg.Subject, msg.HTMLBody); err != nil {
			slog.Warn("mail_send_failed", "kind", "welcome", "user_id", userID, "error", err)
		}
	}

	return nil
}

// Login verifies the credentials and returns the account. Unknown email and
// wrong password are indistinguishable to the caller: both cost one bcrypt
// comparison and both return ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, emailAddr, plaintext string) (*models.User, error) {
	user, err := s.repo.GetUserByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.hasher.VerifyDummy(plaintext)
			slog.Warn("login_failed", "email", emailAddr, "reason", "account_not_found")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("loading account: %w", err)
	}

	if !s.hasher.Verify(user.PasswordHash, plaintext) {
		slog.Warn("login_failed", "email", emailAddr, "reason", "invalid_password")
		return nil, ErrInvalidCredentials
	}

	slog.Info("login_success", "user_id", user.ID, "email", emailAddr)
	return user, nil
}

// ForgotPassword generates a fresh reset token, overwriting any outstanding
// one, and mails the reset link. On delivery failure the token stays pending
// and the error is reported; retrying simply overwrites again.
func (s *Service) ForgotPassword(ctx context.Context, emailAddr string) (*models.User, error) {
	user, err := s.repo.GetUserByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading account: %w", err)
	}

	resetToken, err := token.AlphanumericString(ResetTokenLength)
	if err != nil {
		return nil, fmt.Errorf("generating reset token: %w", err)
	}
	expiresAt := time.Now().Add(ResetTokenTTL)

	if err := s.repo.SetResetToken(ctx, user.ID, resetToken, expiresAt); err != nil {
		return nil, fmt.Errorf("storing reset token: %w", err)
	}

	resetLink := fmt.Sprintf("%s/reset-password/%s/%s", s.baseURL, user.ID, resetToken)
	msg, err := email.ResetMail(ctx, user.Name, resetLink, "1 hour")
	if err != nil {
		return nil, err
	}
	if err := s.mailer.Send(ctx, user.Email, msg.Subject, msg.HTMLBody); err != nil {
		slog.Error("mail_send_failed", "kind", "reset", "user_id", user.ID, "error", err)
		return nil, ErrMailDelivery
	}

	slog.Info("forgot_password_sent", "user_id", user.ID)
	return user, nil
}

// ResetPassword consumes the reset token and stores the new credential hash.
// The confirmation mail is best-effort.
func (s *Service) ResetPassword(ctx context.Context, userID, resetToken, plaintext string) error {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("loading account: %w", err)
	}

	if !user.HasPendingReset() {
		return ErrNoPendingToken
	}
	if !tokensEqual(*user.ResetToken, resetToken) || time.Now().After(*user.ResetExpiresAt) {
		slog.Warn("reset_failed", "user_id", userID, "reason", "invalid_or_expired")
		return ErrTokenInvalid
	}

	if s.hasher.Verify(user.PasswordHash, plaintext) {
		return ErrSamePassword
	}

	hash, err := s.hasher.Hash(plaintext)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	if err := s.repo.UpdatePasswordClearResetToken(ctx, userID, hash); err != nil {
		return fmt.Errorf("updating password: %w", err)
	}

	slog.Info("reset_password_success", "user_id", userID)

	if msg, err := email.ResetSuccessMail(ctx, user.FirstName()); err == nil {
		if err := s.mailer.Send(ctx, user.Email, msg.Subject, msg.HTMLBody); err != nil {
			slog.Warn("mail_send_failed", "kind", "reset_success", "user_id", userID, "error", err)
		}
	}

	return nil
}

// Get returns the account for the given id.
func (s *Service) Get(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading account: %w", err)
	}
	return user, nil
}

// tokensEqual compares tokens in constant time to avoid timing side channels.
func tokensEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func firstWord(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' {
			return s[:i]
		}
	}
	return s
}
