// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives: password hashing, opaque
// session tokens and signed OAuth state values.
//
// # Architecture
//
// This package isolates security-sensitive code from the domain logic. It has
// no knowledge of users or sessions; the auth package composes it.
package sec

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/taibuivan/secrets/internal/platform/apperr"
)

// # Credential Hashing

// DefaultWorkFactor is the bcrypt cost used when none is configured.
//
// Each increment doubles the CPU time of both hashing and verification.
const DefaultWorkFactor = 10

// MaxPasswordBytes is the longest input bcrypt reads; later bytes are ignored.
const MaxPasswordBytes = 72

var (
	errEmptyPassword      = errors.New("sec: password must not be empty")
	errWorkFactorOutRange = fmt.Errorf("sec: work factor must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
)

// ValidWorkFactor reports whether workFactor is accepted by [HashPassword].
func ValidWorkFactor(workFactor int) bool {
	return workFactor >= bcrypt.MinCost && workFactor <= bcrypt.MaxCost
}

// HashPassword hashes a plain-text password using the bcrypt algorithm.
//
// The returned string embeds the random salt and the work factor, so it is
// the only value that needs to be stored. Failures match [apperr.ErrHashingFailed].
func HashPassword(plainTextPassword string, workFactor int) (string, error) {
	if plainTextPassword == "" {
		return "", apperr.HashingFailed(errEmptyPassword)
	}

	// bcrypt silently upgrades low costs to its default; reject instead.
	if !ValidWorkFactor(workFactor) {
		return "", apperr.HashingFailed(errWorkFactorOutRange)
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(plainTextPassword), workFactor)
	if err != nil {
		return "", apperr.HashingFailed(fmt.Errorf("sec: failed to hash password: %w", err))
	}
	return string(hashedBytes), nil
}

// VerifyPassword compares a plain-text password with a stored bcrypt hash.
//
// A wrong password is (false, nil). Passwords longer than [MaxPasswordBytes]
// can never have been hashed and are rejected without comparison, so a
// suffix appended to a 72-byte password does not verify. Only a stored hash
// that cannot be parsed produces an error, matching [apperr.ErrVerificationFailed].
func VerifyPassword(plainTextPassword, storedHash string) (bool, error) {
	if len(plainTextPassword) > MaxPasswordBytes {
		return false, nil
	}

	err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(plainTextPassword))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, apperr.VerificationFailed(fmt.Errorf("sec: malformed password hash: %w", err))
	}
}
