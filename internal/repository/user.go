// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"codeberg.org/oliverandrich/go-identity-service/internal/models"
)

// CreateUser inserts a new account record. A missing ID is filled with a
// fresh UUID; timestamps are set to now.
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, is_verified,
			verification_token, verification_expires_at, reset_token, reset_expires_at,
			created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Name, user.Email, user.PasswordHash, user.IsVerified,
		user.VerificationToken, user.VerificationExpiresAt, user.ResetToken, user.ResetExpiresAt,
		user.CreatedAt, user.UpdatedAt)
	return err
}

// GetUserByID retrieves an account by its id.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE id = ?`, id); err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// GetUserByEmail retrieves an account by its email address.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE email = ?`, email); err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// EmailExists reports whether an account with the given email exists.
func (r *Repository) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users WHERE email = ?`, email); err != nil {
		return false, err
	}
	return count > 0, nil
}

// SetVerificationToken stores a new verification token pair, replacing any
// outstanding one. Single statement, so concurrent writers are last-writer-wins.
func (r *Repository) SetVerificationToken(ctx context.Context, id, token string, expiresAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET verification_token = ?, verification_expires_at = ?, updated_at = ? WHERE id = ?`,
		token, expiresAt, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// MarkVerified flips the account to verified and clears the token pair in one
// statement. Once verified an account never reverts, hence the guard.
func (r *Repository) MarkVerified(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_verified = 1, verification_token = NULL, verification_expires_at = NULL,
			updated_at = ? WHERE id = ? AND is_verified = 0`,
		time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetResetToken stores a new password reset token pair, replacing any
// outstanding one.
func (r *Repository) SetResetToken(ctx context.Context, id, token string, expiresAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET reset_token = ?, reset_expires_at = ?, updated_at = ? WHERE id = ?`,
		token, expiresAt, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// UpdatePasswordClearResetToken stores the new credential hash and consumes
// the reset token pair in one statement.
func (r *Repository) UpdatePasswordClearResetToken(ctx context.Context, id, passwordHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, reset_token = NULL, reset_expires_at = NULL,
			updated_at = ? WHERE id = ?`,
		passwordHash, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func requireRow(res interface{ RowsAffected() (int64, error) }) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
