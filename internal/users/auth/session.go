// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/taibuivan/secrets/internal/platform/apperr"
	"github.com/taibuivan/secrets/internal/platform/constants"
	"github.com/taibuivan/secrets/internal/platform/sec"
)

// # Session Manager

// IssuedSession is returned once, when a session is created. The token is
// never persisted; the store only sees its digest.
type IssuedSession struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
}

// SessionManager issues, resolves and invalidates opaque session tokens.
//
// A session lives until it has been idle for idleTTL or until maxTTL after
// creation, whichever comes first.
type SessionManager struct {
	store   SessionStore
	idleTTL time.Duration
	maxTTL  time.Duration
	now     func() time.Time
}

// NewSessionManager constructs a [SessionManager]. idleTTL is clamped to maxTTL.
func NewSessionManager(store SessionStore, idleTTL, maxTTL time.Duration) *SessionManager {
	return &SessionManager{
		store:   store,
		idleTTL: min(idleTTL, maxTTL),
		maxTTL:  maxTTL,
		now:     time.Now,
	}
}

/*
Create issues a fresh session bound to userID.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - *IssuedSession: The token to hand to the client
  - error: RepositoryFailure if the store is unavailable
*/
func (manager *SessionManager) Create(context context.Context, userID string) (*IssuedSession, error) {
	token, err := sec.GenerateSecureToken(constants.SessionTokenBytes)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("session_token_generation_failed: %w", err))
	}

	currentTime := manager.now().UTC()
	record := SessionRecord{
		UserID:    userID,
		CreatedAt: currentTime,
		ExpiresAt: currentTime.Add(manager.maxTTL),
	}

	if err := manager.store.Save(context, sec.HashToken(token), record, manager.idleTTL); err != nil {
		return nil, repositoryFailure("session_create_failed", err)
	}

	return &IssuedSession{
		Token:     token,
		UserID:    userID,
		ExpiresAt: record.ExpiresAt,
	}, nil
}

/*
Resolve returns the user bound to token.

Description: Empty, unknown, expired and invalidated tokens are not errors;
they report ok == false. A successful resolve extends the idle window, never
past the absolute expiry.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - string: User ID
  - bool: Whether the token denotes a live session
  - error: RepositoryFailure if the store is unavailable
*/
func (manager *SessionManager) Resolve(context context.Context, token string) (string, bool, error) {
	if token == "" {
		return "", false, nil
	}

	key := sec.HashToken(token)
	record, err := manager.store.Load(context, key)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return "", false, nil
		}
		return "", false, repositoryFailure("session_resolve_failed", err)
	}

	remaining := record.ExpiresAt.Sub(manager.now())
	if remaining <= 0 {
		_ = manager.store.Delete(context, key)
		return "", false, nil
	}

	// Invalidate may have run between Load and Touch.
	if err := manager.store.Touch(context, key, min(manager.idleTTL, remaining)); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return "", false, nil
		}
		return "", false, repositoryFailure("session_touch_failed", err)
	}

	return record.UserID, true, nil
}

/*
Invalidate ends the session denoted by token. Invalidating an unknown or
already invalidated token succeeds.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - error: RepositoryFailure if the store is unavailable
*/
func (manager *SessionManager) Invalidate(context context.Context, token string) error {
	if token == "" {
		return nil
	}

	if err := manager.store.Delete(context, sec.HashToken(token)); err != nil {
		return repositoryFailure("session_invalidate_failed", err)
	}
	return nil
}

// # Cookie Transport

// SetSessionCookie writes the session token as an HttpOnly cookie.
func SetSessionCookie(writer http.ResponseWriter, session *IssuedSession, secure bool) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.SessionCookieName,
		Value:    session.Token,
		Path:     constants.SessionCookiePath,
		Expires:  session.ExpiresAt,
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie instructs the client to drop the session cookie.
func ClearSessionCookie(writer http.ResponseWriter, secure bool) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.SessionCookieName,
		Value:    "",
		Path:     constants.SessionCookiePath,
		MaxAge:   -1,
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// SessionTokenFromRequest returns the presented session token, or "".
func SessionTokenFromRequest(request *http.Request) string {
	cookie, err := request.Cookie(constants.SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
