// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"errors"

	"github.com/taibuivan/secrets/internal/platform/apperr"
)

// # Domain Errors

// Client-facing failures. Compare with [errors.Is]; causes may be attached.
var (
	ErrUsernameTaken      = apperr.UsernameTaken()
	ErrInvalidCredentials = apperr.InvalidCredentials()
	ErrUnauthenticated    = apperr.Unauthenticated()
	ErrFederationFailed   = apperr.FederationFailed(nil)
	ErrUnknownProvider    = apperr.NotFound("Identity provider")
)

// Repository outcomes.
var (
	// ErrUserNotFound is returned by lookups that match no user.
	ErrUserNotFound = errors.New("auth: user not found")

	// ErrDuplicateIdentity is returned by InsertIfAbsent when the username or
	// the federated identity is already taken.
	ErrDuplicateIdentity = errors.New("auth: identity already exists")

	// ErrSessionNotFound is returned by [SessionStore] reads and touches of absent or expired keys.
	ErrSessionNotFound = errors.New("auth: session not found")
)
