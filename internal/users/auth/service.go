// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/secrets/internal/platform/apperr"
	"github.com/taibuivan/secrets/internal/platform/ctxutil"
	"github.com/taibuivan/secrets/internal/platform/sec"
	"github.com/taibuivan/secrets/internal/platform/validate"
	"github.com/taibuivan/secrets/pkg/username"
)

// # Contracts & Types

// timingPassword is hashed once per service so unknown usernames cost the
// same bcrypt comparison as known ones.
const timingPassword = "timing-equalizer-password"

// Service implements the local username/password flows.
type Service struct {
	userRepository UserRepository
	sessions       *SessionManager
	workFactor     int
	timingHash     string
}

// NewService constructs a new [Service].
//
// workFactor is the bcrypt cost applied to new passwords.
func NewService(userRepository UserRepository, sessions *SessionManager, workFactor int) (*Service, error) {
	timingHash, err := sec.HashPassword(timingPassword, workFactor)
	if err != nil {
		return nil, fmt.Errorf("auth_service_init_failed: %w", err)
	}

	return &Service{
		userRepository: userRepository,
		sessions:       sessions,
		workFactor:     workFactor,
		timingHash:     timingHash,
	}, nil
}

// LoginSession represents a successfully established user session.
type LoginSession struct {
	Token     string
	ExpiresAt time.Time
	User      *User
}

// # Registration Flow

// RegisterInput holds the data required to enroll a new local user.
type RegisterInput struct {
	Username string
	Password string
}

/*
Register validates, hashes, and persists a brand new local account, then
signs the caller in.

Parameters:
  - context: context.Context
  - input: RegisterInput

Returns:
  - *LoginSession: Session for the new user
  - error: ValidationError, ErrUsernameTaken, HashingFailed or RepositoryFailure
*/
func (service *Service) Register(context context.Context, input RegisterInput) (*LoginSession, error) {
	normalized := username.Normalize(input.Username)

	validator := &validate.Validator{}
	validator.Required(FieldUsername, normalized).
		MinLen(FieldUsername, normalized, UsernameMinLength).
		MaxLen(FieldUsername, normalized, UsernameMaxLength).
		Printable(FieldUsername, normalized).
		Required(FieldPassword, input.Password).
		MaxBytes(FieldPassword, input.Password, PasswordMaxBytes)

	if err := validator.Err(); err != nil {
		return nil, err
	}

	// Plain-text passwords never reach the repository.
	hashedPassword, err := sec.HashPassword(input.Password, service.workFactor)
	if err != nil {
		return nil, err
	}

	user := &User{
		Local: &LocalCredential{Username: normalized, PasswordHash: hashedPassword},
	}

	// The uniqueness check and the write are a single repository operation.
	if err := service.userRepository.InsertIfAbsent(context, user); err != nil {
		if errors.Is(err, ErrDuplicateIdentity) {
			return nil, ErrUsernameTaken
		}
		return nil, asRepositoryFailure("auth_service_register_failed", err)
	}

	ctxutil.GetLogger(context).InfoContext(context, "user_registered", slog.String("user_id", user.ID))

	return service.openSession(context, user)
}

// # Authentication Flow

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Username string
	Password string
}

/*
Login validates user credentials and issues a session.

Description: Unknown usernames, federated-only accounts, wrong passwords and
unreadable stored hashes all fail with the same ErrInvalidCredentials. Unknown
usernames still pay for one bcrypt comparison.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *LoginSession: Session for the authenticated user
  - error: ErrInvalidCredentials or RepositoryFailure
*/
func (service *Service) Login(context context.Context, input LoginInput) (*LoginSession, error) {
	normalized := username.Normalize(input.Username)
	if normalized == "" || input.Password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := service.userRepository.FindByUsername(context, normalized)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			_, _ = sec.VerifyPassword(input.Password, service.timingHash)
			return nil, ErrInvalidCredentials
		}
		return nil, asRepositoryFailure("auth_service_login_failed", err)
	}

	if user.Local == nil {
		_, _ = sec.VerifyPassword(input.Password, service.timingHash)
		return nil, ErrInvalidCredentials
	}

	matched, err := sec.VerifyPassword(input.Password, user.Local.PasswordHash)
	if err != nil {
		ctxutil.GetLogger(context).WarnContext(context, "stored_password_hash_unreadable",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
		return nil, ErrInvalidCredentials
	}
	if !matched {
		return nil, ErrInvalidCredentials
	}

	return service.openSession(context, user)
}

/*
Logout invalidates the presented session token.

Description: Idempotent. Unknown or already invalidated tokens succeed.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - error: RepositoryFailure
*/
func (service *Service) Logout(context context.Context, token string) error {
	return service.sessions.Invalidate(context, token)
}

/*
CurrentUser rehydrates the user behind a session token from the repository.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - *User: Fresh copy of the account
  - error: ErrUnauthenticated or RepositoryFailure
*/
func (service *Service) CurrentUser(context context.Context, token string) (*User, error) {
	userID, ok, err := service.sessions.Resolve(context, token)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUnauthenticated
	}

	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, asRepositoryFailure("auth_service_current_user_failed", err)
	}
	return user, nil
}

// openSession creates a session for user.
func (service *Service) openSession(context context.Context, user *User) (*LoginSession, error) {
	session, err := service.sessions.Create(context, user.ID)
	if err != nil {
		return nil, err
	}

	return &LoginSession{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		User:      user,
	}, nil
}

// asRepositoryFailure keeps classified errors and tags everything else as a
// repository failure.
func asRepositoryFailure(operation string, err error) error {
	if apperr.IsAppError(err) {
		return fmt.Errorf("%s: %w", operation, err)
	}
	return repositoryFailure(operation, err)
}
