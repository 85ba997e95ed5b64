// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/taibuivan/secrets/internal/platform/apperr"
	"github.com/taibuivan/secrets/internal/users/auth"
	"github.com/taibuivan/secrets/internal/users/auth/authtest"
)

func newTestService(t *testing.T) (*auth.Service, *authtest.MemoryUserRepository, *auth.SessionManager) {
	t.Helper()

	repository := authtest.NewMemoryUserRepository()
	sessions, _ := authtest.NewSessionManager(t, testIdleTTL, testMaxTTL)

	service, err := auth.NewService(repository, sessions, bcrypt.MinCost)
	require.NoError(t, err)
	return service, repository, sessions
}

/*
TestService_RegisterThenLogin covers the happy path: a registered user can
sign in and both sessions resolve to the same account.
*/
func TestService_RegisterThenLogin(t *testing.T) {
	service, repository, sessions := newTestService(t)
	ctx := context.Background()

	registered, err := service.Register(ctx, auth.RegisterInput{Username: "alice", Password: "p4ssword!"})
	require.NoError(t, err)
	require.NotNil(t, registered.User)
	assert.NotEmpty(t, registered.User.ID)
	assert.Equal(t, auth.IdentityLocal, registered.User.Kind())
	assert.NotEqual(t, "p4ssword!", registered.User.Local.PasswordHash)

	stored, err := repository.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, stored.ID)

	loggedIn, err := service.Login(ctx, auth.LoginInput{Username: "alice", Password: "p4ssword!"})
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, loggedIn.User.ID)
	assert.NotEqual(t, registered.Token, loggedIn.Token)

	userID, ok, err := sessions.Resolve(ctx, loggedIn.Token)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, registered.User.ID, userID)
}

func TestService_RegisterNormalizesUsername(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := service.Register(ctx, auth.RegisterInput{Username: "  Alice ", Password: "p4ssword!"})
	require.NoError(t, err)

	session, err := service.Login(ctx, auth.LoginInput{Username: "ALICE", Password: "p4ssword!"})
	require.NoError(t, err)
	assert.Equal(t, "alice", session.User.Username())
}

func TestService_RegisterDuplicate(t *testing.T) {
	service, repository, _ := newTestService(t)
	ctx := context.Background()

	_, err := service.Register(ctx, auth.RegisterInput{Username: "alice", Password: "p4ssword!"})
	require.NoError(t, err)

	_, err = service.Register(ctx, auth.RegisterInput{Username: "alice", Password: "another-one"})
	assert.ErrorIs(t, err, auth.ErrUsernameTaken)
	assert.Equal(t, 1, repository.Len())
}

func TestService_RegisterValidation(t *testing.T) {
	service, repository, _ := newTestService(t)

	tests := []struct {
		name  string
		input auth.RegisterInput
	}{
		{"empty_username", auth.RegisterInput{Username: "", Password: "p4ssword!"}},
		{"short_username", auth.RegisterInput{Username: "al", Password: "p4ssword!"}},
		{"empty_password", auth.RegisterInput{Username: "alice", Password: ""}},
		{"password_over_72_bytes", auth.RegisterInput{Username: "alice", Password: string(make([]byte, 73))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Register(context.Background(), tt.input)
			appError := apperr.As(err)
			require.NotNil(t, appError)
			assert.Equal(t, apperr.CodeValidation, appError.Code)
		})
	}

	assert.Equal(t, 0, repository.Len())
}

/*
TestService_LoginFailuresAreIndistinguishable checks that every failed
login returns the very same error value.
*/
func TestService_LoginFailuresAreIndistinguishable(t *testing.T) {
	service, repository, _ := newTestService(t)
	ctx := context.Background()

	_, err := service.Register(ctx, auth.RegisterInput{Username: "alice", Password: "p4ssword!"})
	require.NoError(t, err)

	longPassword := strings.Repeat("x", auth.PasswordMaxBytes)
	_, err = service.Register(ctx, auth.RegisterInput{Username: "carol", Password: longPassword})
	require.NoError(t, err)

	require.NoError(t, repository.InsertIfAbsent(ctx, &auth.User{
		Federated: &auth.FederatedIdentity{Provider: auth.ProviderGoogle, SubjectID: "g-1"},
	}))
	require.NoError(t, repository.InsertIfAbsent(ctx, &auth.User{
		Local: &auth.LocalCredential{Username: "mallory", PasswordHash: "not-a-bcrypt-hash"},
	}))

	tests := []struct {
		name  string
		input auth.LoginInput
	}{
		{"unknown_user", auth.LoginInput{Username: "bob", Password: "p4ssword!"}},
		{"wrong_password", auth.LoginInput{Username: "alice", Password: "wrong-password"}},
		{"malformed_hash", auth.LoginInput{Username: "mallory", Password: "p4ssword!"}},
		{"empty_username", auth.LoginInput{Username: "", Password: "p4ssword!"}},
		{"empty_password", auth.LoginInput{Username: "alice", Password: ""}},
		{"suffix_past_bcrypt_limit", auth.LoginInput{Username: "carol", Password: longPassword + "-suffix"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := service.Login(ctx, tt.input)
			assert.Nil(t, session)
			assert.Same(t, auth.ErrInvalidCredentials, err)
		})
	}
}

func TestService_LoginRepositoryFailure(t *testing.T) {
	service, repository, _ := newTestService(t)
	repository.Err = errors.New("connection reset")

	_, err := service.Login(context.Background(), auth.LoginInput{Username: "alice", Password: "p4ssword!"})
	assert.ErrorIs(t, err, apperr.ErrRepositoryFailure)
	assert.NotErrorIs(t, err, auth.ErrInvalidCredentials)
}

/*
TestService_LogoutAndCurrentUser checks that the current user is
rehydrated from the repository and that logging out ends the session.
*/
func TestService_LogoutAndCurrentUser(t *testing.T) {
	service, repository, _ := newTestService(t)
	ctx := context.Background()

	session, err := service.Register(ctx, auth.RegisterInput{Username: "alice", Password: "p4ssword!"})
	require.NoError(t, err)

	require.NoError(t, repository.UpdateSecret(ctx, session.User.ID, "fresh"))

	current, err := service.CurrentUser(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, "fresh", current.Secret)

	require.NoError(t, service.Logout(ctx, session.Token))
	require.NoError(t, service.Logout(ctx, session.Token))

	_, err = service.CurrentUser(ctx, session.Token)
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)

	_, err = service.CurrentUser(ctx, "")
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
}

func TestService_CurrentUserVanished(t *testing.T) {
	service, _, sessions := newTestService(t)
	ctx := context.Background()

	orphan, err := sessions.Create(ctx, "01900000-0000-7000-8000-000000000000")
	require.NoError(t, err)

	_, err = service.CurrentUser(ctx, orphan.Token)
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
}
