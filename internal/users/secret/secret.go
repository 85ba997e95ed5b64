// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package secret lets signed-in users publish a single free-form secret and
lets anyone read the published secrets.

# Architecture

  - Domain: This package depends on the auth package for the User entity and
    for session resolution.
  - Storage: The secret is a column of the user account, written through
    [Repository].
  - Privacy: Listings expose secret texts only, never who wrote them.
*/
package secret

import (
	"context"

	"github.com/taibuivan/secrets/internal/users/auth"
)

// # Limits

// MaxLength is the longest accepted secret, in characters.
const MaxLength = 4096

// FieldSecret names the secret text in payloads and validation errors.
const FieldSecret = "secret"

// # Contracts

// Repository is the slice of [auth.UserRepository] this package writes through.
type Repository interface {
	UpdateSecret(context context.Context, userID, secret string) error
	FindAllWithSecret(context context.Context) ([]auth.User, error)
}

// SessionResolver maps a session token to its user. [auth.SessionManager]
// implements it.
type SessionResolver interface {
	Resolve(context context.Context, token string) (userID string, ok bool, err error)
}
