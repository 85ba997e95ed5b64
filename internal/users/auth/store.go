// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"time"
)

// # User Data Access

// UserRepository defines the data access contract for user accounts.
//
// Implementations must be safe for concurrent use. Lookups that match no
// row return [ErrUserNotFound]; any other failure is a repository failure.
type UserRepository interface {

	/*
		FindByID returns the account with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *User: Hydrated entity
		  - error: ErrUserNotFound or retrieval failures
	*/
	FindByID(context context.Context, id string) (*User, error)

	/*
		FindByUsername returns the account holding the given local username.

		Parameters:
		  - context: context.Context
		  - username: string (already normalized)

		Returns:
		  - *User: Hydrated entity
		  - error: ErrUserNotFound or retrieval failures
	*/
	FindByUsername(context context.Context, username string) (*User, error)

	/*
		FindByFederatedID returns the account linked to an external identity.

		Parameters:
		  - context: context.Context
		  - provider: string
		  - subjectID: string

		Returns:
		  - *User: Hydrated entity
		  - error: ErrUserNotFound or retrieval failures
	*/
	FindByFederatedID(context context.Context, provider, subjectID string) (*User, error)

	/*
		InsertIfAbsent atomically persists a new account unless its username or
		federated identity already exists.

		Parameters:
		  - context: context.Context
		  - user: *User (ID and timestamps are assigned on success)

		Returns:
		  - error: ErrDuplicateIdentity on a uniqueness conflict, or persistence failures
	*/
	InsertIfAbsent(context context.Context, user *User) error

	/*
		UpdateSecret replaces the secret payload of one account.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - secret: string

		Returns:
		  - error: ErrUserNotFound or persistence failures
	*/
	UpdateSecret(context context.Context, userID, secret string) error

	/*
		FindAllWithSecret returns every account whose secret is non-empty,
		oldest first.

		Parameters:
		  - context: context.Context

		Returns:
		  - []User: Possibly empty
		  - error: Retrieval failures
	*/
	FindAllWithSecret(context context.Context) ([]User, error)
}

// # Session Data Access

// SessionRecord is the persisted form of a session: a user reference plus
// timestamps. The full [User] is rehydrated from the repository on use.
type SessionRecord struct {
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionStore defines the volatile storage for sessions, keyed by token digest.
type SessionStore interface {

	/*
		Save stores a session record that expires after ttl.

		Parameters:
		  - context: context.Context
		  - key: string (token digest)
		  - record: SessionRecord
		  - ttl: time.Duration

		Returns:
		  - error: Persistence failures
	*/
	Save(context context.Context, key string, record SessionRecord, ttl time.Duration) error

	/*
		Load retrieves a live session record.

		Parameters:
		  - context: context.Context
		  - key: string (token digest)

		Returns:
		  - *SessionRecord: Stored record
		  - error: ErrSessionNotFound or retrieval failures
	*/
	Load(context context.Context, key string) (*SessionRecord, error)

	/*
		Touch resets the remaining lifetime of a record to ttl.

		Parameters:
		  - context: context.Context
		  - key: string (token digest)
		  - ttl: time.Duration

		Returns:
		  - error: ErrSessionNotFound if the record vanished since Load, or persistence failures
	*/
	Touch(context context.Context, key string, ttl time.Duration) error

	/*
		Delete removes a record. Deleting an absent key is not an error.

		Parameters:
		  - context: context.Context
		  - key: string (token digest)

		Returns:
		  - error: Persistence failures
	*/
	Delete(context context.Context, key string) error
}
