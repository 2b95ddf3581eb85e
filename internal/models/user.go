// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"time"
)

// User is a single account record. Verification and reset tokens live on the
// record itself: at most one outstanding token per purpose, a newer request
// overwrites the older one.
type User struct { //nolint:govet // fieldalignment: readability over optimization
	ID           string `db:"id" json:"id"`
	Name         string `db:"name" json:"name"`
	Email        string `db:"email" json:"email"`
	PasswordHash string `db:"password_hash" json:"-"`

	IsVerified bool `db:"is_verified" json:"is_verified"`

	// Both fields of a pair are set or both are NULL, never one without
	// the other.
	VerificationToken     *string    `db:"verification_token" json:"-"`
	VerificationExpiresAt *time.Time `db:"verification_expires_at" json:"-"`
	ResetToken            *string    `db:"reset_token" json:"-"`
	ResetExpiresAt        *time.Time `db:"reset_expires_at" json:"-"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// HasPendingVerification reports whether a verification token is outstanding.
func (u *User) HasPendingVerification() bool {
	return u.VerificationToken != nil && u.VerificationExpiresAt != nil
}

// HasPendingReset reports whether a password reset token is outstanding.
func (u *User) HasPendingReset() bool {
	return u.ResetToken != nil && u.ResetExpiresAt != nil
}

// FirstName returns the first word of the display name, used as the
// salutation in mails.
func (u *User) FirstName() string {
	for i := 0; i < len(u.Name); i++ {
		if u.Name[i] == ' ' {
			return u.Name[:i]
		}
	}
	return u.Name
}
