// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/secrets/internal/platform/migration"
	"github.com/taibuivan/secrets/internal/users/auth"
)

// newSQLiteRepository migrates a fresh database file and opens it.
func newSQLiteRepository(t *testing.T) *auth.SQLiteUserRepository {
	t.Helper()

	path := filepath.Join(t.TempDir(), "secrets.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, migration.RunUp(migration.DriverSQLite, path, filepath.Join("..", "..", "..", "data", "migrations"), logger))

	repository, err := auth.NewSQLiteUserRepository(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repository.Close() })
	return repository
}

func TestSQLiteUserRepository_LocalUser(t *testing.T) {
	repository := newSQLiteRepository(t)
	ctx := context.Background()

	user := &auth.User{Local: &auth.LocalCredential{Username: "alice", PasswordHash: "hash"}}
	require.NoError(t, repository.InsertIfAbsent(ctx, user))
	require.NotEmpty(t, user.ID)

	found, err := repository.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	assert.Equal(t, user.Local, found.Local)
	assert.Nil(t, found.Federated)
	assert.True(t, user.CreatedAt.Equal(found.CreatedAt))

	byID, err := repository.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username())

	err = repository.InsertIfAbsent(ctx, &auth.User{Local: &auth.LocalCredential{Username: "alice", PasswordHash: "other"}})
	assert.ErrorIs(t, err, auth.ErrDuplicateIdentity)

	_, err = repository.FindByUsername(ctx, "bob")
	assert.ErrorIs(t, err, auth.ErrUserNotFound)
}

func TestSQLiteUserRepository_FederatedUser(t *testing.T) {
	repository := newSQLiteRepository(t)
	ctx := context.Background()

	user := &auth.User{Federated: &auth.FederatedIdentity{Provider: "google", SubjectID: "g-123"}}
	require.NoError(t, repository.InsertIfAbsent(ctx, user))

	found, err := repository.FindByFederatedID(ctx, "google", "g-123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	assert.Nil(t, found.Local)

	// Same subject at another provider is another identity.
	require.NoError(t, repository.InsertIfAbsent(ctx, &auth.User{
		Federated: &auth.FederatedIdentity{Provider: "github", SubjectID: "g-123"},
	}))

	err = repository.InsertIfAbsent(ctx, &auth.User{
		Federated: &auth.FederatedIdentity{Provider: "google", SubjectID: "g-123"},
	})
	assert.ErrorIs(t, err, auth.ErrDuplicateIdentity)
}

/*
TestSQLiteUserRepository_ConcurrentInsert races several inserts of one
username: exactly one must win and the rest must see a duplicate.
*/
func TestSQLiteUserRepository_ConcurrentInsert(t *testing.T) {
	repository := newSQLiteRepository(t)

	const attempts = 8
	var (
		waitGroup  sync.WaitGroup
		mutex      sync.Mutex
		inserted   int
		duplicates int
	)

	for range attempts {
		waitGroup.Add(1)
		go func() {
			defer waitGroup.Done()
			err := repository.InsertIfAbsent(context.Background(), &auth.User{
				Local: &auth.LocalCredential{Username: "alice", PasswordHash: "hash"},
			})

			mutex.Lock()
			defer mutex.Unlock()
			switch {
			case err == nil:
				inserted++
			case errors.Is(err, auth.ErrDuplicateIdentity):
				duplicates++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	waitGroup.Wait()

	assert.Equal(t, 1, inserted)
	assert.Equal(t, attempts-1, duplicates)
}

func TestSQLiteUserRepository_Secrets(t *testing.T) {
	repository := newSQLiteRepository(t)
	ctx := context.Background()

	first := &auth.User{Local: &auth.LocalCredential{Username: "alice", PasswordHash: "hash"}}
	second := &auth.User{Federated: &auth.FederatedIdentity{Provider: "google", SubjectID: "g-1"}}
	silent := &auth.User{Local: &auth.LocalCredential{Username: "carol", PasswordHash: "hash"}}
	for _, user := range []*auth.User{first, second, silent} {
		require.NoError(t, repository.InsertIfAbsent(ctx, user))
	}

	users, err := repository.FindAllWithSecret(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	require.NoError(t, repository.UpdateSecret(ctx, first.ID, "I like cats"))
	require.NoError(t, repository.UpdateSecret(ctx, second.ID, "I like dogs"))
	assert.ErrorIs(t, repository.UpdateSecret(ctx, "missing", "x"), auth.ErrUserNotFound)

	users, err = repository.FindAllWithSecret(ctx)
	require.NoError(t, err)

	secrets := make([]string, 0, len(users))
	for _, user := range users {
		secrets = append(secrets, user.Secret)
	}
	assert.ElementsMatch(t, []string{"I like cats", "I like dogs"}, secrets)

	require.NoError(t, repository.Ping(ctx))
}
