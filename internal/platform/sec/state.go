// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// # OAuth State

// MinStateSecretLength is the shortest HMAC key accepted by [NewStateSigner].
const MinStateSecretLength = 32

// ErrStateMismatch is returned when a valid state was issued for another provider.
var ErrStateMismatch = errors.New("sec: state was issued for a different provider")

// StateClaims is the payload of an OAuth `state` value.
//
// The random ID claim doubles as a nonce so two states for the same provider
// never collide.
type StateClaims struct {
	jwt.RegisteredClaims

	Provider string `json:"prv"`
}

// StateSigner issues and verifies short-lived HS256 state values for the
// OAuth authorization redirect. Nothing is persisted server-side.
type StateSigner struct {
	secret     []byte
	issuer     string
	timeToLive time.Duration
	now        func() time.Time
}

// NewStateSigner creates a [StateSigner] keyed by secret.
func NewStateSigner(secret, issuer string, timeToLive time.Duration) (*StateSigner, error) {
	if len(secret) < MinStateSecretLength {
		return nil, fmt.Errorf("sec: state secret must be at least %d bytes", MinStateSecretLength)
	}
	if timeToLive <= 0 {
		return nil, fmt.Errorf("sec: state time to live must be positive")
	}

	return &StateSigner{
		secret:     []byte(secret),
		issuer:     issuer,
		timeToLive: timeToLive,
		now:        time.Now,
	}, nil
}

// Issue returns a signed state value bound to provider.
func (signer *StateSigner) Issue(provider string) (string, error) {
	nonce, err := GenerateSecureToken(16)
	if err != nil {
		return "", err
	}

	currentTime := signer.now()
	claims := StateClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        nonce,
			Issuer:    signer.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(signer.timeToLive)),
		},
		Provider: provider,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signer.secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign state: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, issuer and expiry of state and that it was
// issued for provider.
func (signer *StateSigner) Verify(state, provider string) error {
	claims := &StateClaims{}
	_, err := jwt.ParseWithClaims(state, claims, func(token *jwt.Token) (any, error) {
		return signer.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(signer.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(signer.now),
	)
	if err != nil {
		return fmt.Errorf("sec: invalid state: %w", err)
	}

	if claims.Provider != provider {
		return ErrStateMismatch
	}
	return nil
}
