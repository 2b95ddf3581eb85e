// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package token generates short-lived single-use tokens from the system's
// secure random source.
package token

import (
	"crypto/rand"
	"fmt"
)

const alphanumerics = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// NumericCode returns a uniformly random decimal code of exactly digits
// significant digits. The first digit is drawn from 1-9 so the code never
// carries a leading zero.
func NumericCode(digits int) (string, error) {
	if digits < 1 {
		return "", fmt.Errorf("numeric code length must be positive, got %d", digits)
	}

	buf := make([]byte, digits)

	first, err := randomByte(9)
	if err != nil {
		return "", err
	}
	buf[0] = '1' + first

	for i := 1; i < digits; i++ {
		d, err := randomByte(10)
		if err != nil {
			return "", err
		}
		buf[i] = '0' + d
	}

	return string(buf), nil
}

// AlphanumericString returns a random string of exactly length characters
// drawn from [A-Za-z0-9].
func AlphanumericString(length int) (string, error) {
	if length < 1 {
		return "", fmt.Errorf("string length must be positive, got %d", length)
	}

	buf := make([]byte, length)
	for i := 0; i < length; i++ {
		idx, err := randomByte(byte(len(alphanumerics)))
		if err != nil {
			return "", err
		}
		buf[i] = alphanumerics[idx]
	}

	return string(buf), nil
}

// randomByte returns a uniform value in [0, n) using rejection sampling to
// avoid modulo bias.
func randomByte(n byte) (byte, error) {
	limit := byte(256 % int(n))
	var b [1]byte
	for {
		if _, err := rand.Read(b[:]); err != nil {
			return 0, fmt.Errorf("reading random bytes: %w", err)
		}
		if b[0] >= limit {
			return b[0] % n, nil
		}
	}
}
