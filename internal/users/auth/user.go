// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements the user identity and session management layer.

It defines the core domain entities (User, Session) and the flows that
produce authenticated sessions: local username/password registration and
login, and the OAuth2 federated login with idempotent account linking.

# Architecture

  - Service: local registration, login, logout and session rehydration.
  - FederationService: the OAuth2 authorization-code handshake.
  - SessionManager: opaque session tokens over a [SessionStore].
  - Repositories: [UserRepository] implemented on PostgreSQL and SQLite,
    [SessionStore] implemented on Redis.
*/
package auth

import (
	"errors"
	"time"
)

// # Domain Entities

// IdentityKind tags the source a user signs in with.
type IdentityKind string

const (
	IdentityLocal     IdentityKind = "local"
	IdentityFederated IdentityKind = "federated"
)

// LocalCredential is a username bound to a password hash.
type LocalCredential struct {
	Username     string
	PasswordHash string
}

// FederatedIdentity is the stable identifier an external provider assigns to a user.
type FederatedIdentity struct {
	Provider  string
	SubjectID string
}

// User represents an account reachable through a local credential, a
// federated identity, or both.
type User struct {
	ID        string
	Local     *LocalCredential
	Federated *FederatedIdentity

	// Secret is the user's free-form payload. Empty means none.
	Secret string

	CreatedAt time.Time
	UpdatedAt time.Time
}

var errNoIdentity = errors.New("auth: user has neither a local credential nor a federated identity")

// Kind reports the identity source. A user holding both reports [IdentityLocal].
func (user *User) Kind() IdentityKind {
	if user.Local != nil {
		return IdentityLocal
	}
	return IdentityFederated
}

// Username returns the local username, or "" for federated-only users.
func (user *User) Username() string {
	if user.Local == nil {
		return ""
	}
	return user.Local.Username
}

// Validate checks that the user is complete enough to be persisted.
func (user *User) Validate() error {
	if user.Local == nil && user.Federated == nil {
		return errNoIdentity
	}
	if user.Local != nil && (user.Local.Username == "" || user.Local.PasswordHash == "") {
		return errors.New("auth: local credential is incomplete")
	}
	if user.Federated != nil && (user.Federated.Provider == "" || user.Federated.SubjectID == "") {
		return errors.New("auth: federated identity is incomplete")
	}
	return nil
}

// # Field Identifiers

// Field names for validation errors and JSON payloads.
const (
	FieldUsername = "username"
	FieldPassword = "password"
	FieldProvider = "provider"
	FieldUser     = "user"
)
