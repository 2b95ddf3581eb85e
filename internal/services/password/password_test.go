// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package password_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"codeberg.org/oliverandrich/go-identity-service/internal/services/password"
)

func newHasher() *password.Hasher {
	// MinCost keeps the tests fast; production uses the configured cost.
	return password.NewHasher(bcrypt.MinCost)
}

func TestHashAndVerify(t *testing.T) {
	h := newHasher()

	hashed, err := h.Hash("pw123456")

	require.NoError(t, err)
	assert.NotEqual(t, "pw123456", hashed)
	assert.True(t, h.Verify(hashed, "pw123456"))
	assert.False(t, h.Verify(hashed, "wrong-password"))
}

func TestHash_EmptyPassword(t *testing.T) {
	h := newHasher()

	_, err := h.Hash("")

	assert.ErrorIs(t, err, password.ErrEmptyPassword)
}

func TestHash_Salting(t *testing.T) {
	h := newHasher()

	first, err := h.Hash("pw123456")
	require.NoError(t, err)
	second, err := h.Hash("pw123456")
	require.NoError(t, err)

	// Per-call salting: the same plaintext never produces the same hash.
	assert.NotEqual(t, first, second)
	assert.True(t, h.Verify(first, "pw123456"))
	assert.True(t, h.Verify(second, "pw123456"))
}

func TestVerify_EmptyOrMalformed(t *testing.T) {
	h := newHasher()
	hashed, err := h.Hash("pw123456")
	require.NoError(t, err)

	assert.False(t, h.Verify("", "pw123456"))
	assert.False(t, h.Verify(hashed, ""))
	assert.False(t, h.Verify("not-a-bcrypt-hash", "pw123456"))
}

func TestNewHasher_CostOutOfRange(t *testing.T) {
	h := password.NewHasher(99)

	hashed, err := h.Hash("pw123456")

	require.NoError(t, err)
	assert.True(t, h.Verify(hashed, "pw123456"))
}
