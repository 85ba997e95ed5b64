// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package authtest provides in-memory collaborators for tests of packages
// built on [auth].
package authtest

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/secrets/internal/users/auth"
	"github.com/taibuivan/secrets/pkg/uuid"
)

// # Memory User Repository

// MemoryUserRepository is a goroutine-safe [auth.UserRepository] held in a map.
type MemoryUserRepository struct {
	mutex sync.Mutex
	users map[string]auth.User

	// Err, when set, is returned by every operation.
	Err error
}

var _ auth.UserRepository = (*MemoryUserRepository)(nil)

// NewMemoryUserRepository returns an empty repository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]auth.User)}
}

// Len reports how many users are stored.
func (repository *MemoryUserRepository) Len() int {
	repository.mutex.Lock()
	defer repository.mutex.Unlock()
	return len(repository.users)
}

func (repository *MemoryUserRepository) FindByID(_ context.Context, id string) (*auth.User, error) {
	return repository.find(func(user auth.User) bool { return user.ID == id })
}

func (repository *MemoryUserRepository) FindByUsername(_ context.Context, username string) (*auth.User, error) {
	return repository.find(func(user auth.User) bool {
		return user.Local != nil && user.Local.Username == username
	})
}

func (repository *MemoryUserRepository) FindByFederatedID(_ context.Context, provider, subjectID string) (*auth.User, error) {
	return repository.find(func(user auth.User) bool {
		return user.Federated != nil && user.Federated.Provider == provider && user.Federated.SubjectID == subjectID
	})
}

func (repository *MemoryUserRepository) find(match func(auth.User) bool) (*auth.User, error) {
	repository.mutex.Lock()
	defer repository.mutex.Unlock()

	if repository.Err != nil {
		return nil, repository.Err
	}
	for _, user := range repository.users {
		if match(user) {
			found := user
			return &found, nil
		}
	}
	return nil, auth.ErrUserNotFound
}

func (repository *MemoryUserRepository) InsertIfAbsent(_ context.Context, user *auth.User) error {
	if err := user.Validate(); err != nil {
		return err
	}

	repository.mutex.Lock()
	defer repository.mutex.Unlock()

	if repository.Err != nil {
		return repository.Err
	}
	for _, existing := range repository.users {
		if user.Local != nil && existing.Local != nil && existing.Local.Username == user.Local.Username {
			return auth.ErrDuplicateIdentity
		}
		if user.Federated != nil && existing.Federated != nil && *existing.Federated == *user.Federated {
			return auth.ErrDuplicateIdentity
		}
	}

	if user.ID == "" {
		user.ID = uuid.New()
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	repository.users[user.ID] = *user
	return nil
}

func (repository *MemoryUserRepository) UpdateSecret(_ context.Context, userID, secret string) error {
	repository.mutex.Lock()
	defer repository.mutex.Unlock()

	if repository.Err != nil {
		return repository.Err
	}
	user, ok := repository.users[userID]
	if !ok {
		return auth.ErrUserNotFound
	}
	user.Secret = secret
	user.UpdatedAt = time.Now().UTC()
	repository.users[userID] = user
	return nil
}

func (repository *MemoryUserRepository) FindAllWithSecret(_ context.Context) ([]auth.User, error) {
	repository.mutex.Lock()
	defer repository.mutex.Unlock()

	if repository.Err != nil {
		return nil, repository.Err
	}
	users := make([]auth.User, 0)
	for _, user := range repository.users {
		if user.Secret != "" {
			users = append(users, user)
		}
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

// # Sessions

// NewSessionManager returns a [auth.SessionManager] over a fresh miniredis
// instance that is shut down with the test.
func NewSessionManager(t testing.TB, idleTTL, maxTTL time.Duration) (*auth.SessionManager, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return auth.NewSessionManager(auth.NewRedisSessionStore(client), idleTTL, maxTTL), server
}
