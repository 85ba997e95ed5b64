// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	// Registers the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"

	"github.com/taibuivan/secrets/internal/platform/database/schema"
	"github.com/taibuivan/secrets/internal/platform/dberr"
	"github.com/taibuivan/secrets/pkg/uuid"
)

// # User Repository (SQLite)

// SQLiteUserRepository implements [UserRepository] on an embedded SQLite file.
//
// Timestamps are stored as unix milliseconds. Writes are serialized in
// process because SQLite allows a single writer.
type SQLiteUserRepository struct {
	database  *sql.DB
	writeLock *sync.Mutex
}

var _ UserRepository = (*SQLiteUserRepository)(nil)

// NewSQLiteUserRepository opens (or creates) the database file at path.
// The schema is applied by the migration runner, not here.
func NewSQLiteUserRepository(context context.Context, path string) (*SQLiteUserRepository, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)

	database, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite_user_repo_open_failed: %w", err)
	}

	if err := database.PingContext(context); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("sqlite_user_repo_ping_failed: %w", err)
	}

	database.SetConnMaxLifetime(5 * time.Minute)

	return &SQLiteUserRepository{
		database:  database,
		writeLock: new(sync.Mutex),
	}, nil
}

var (
	liteAccount = schema.UserAccountSQLite

	liteSelectUser = fmt.Sprintf(`SELECT %s FROM %s`, liteAccount.SelectList(), liteAccount.Table)

	liteFindByID        = liteSelectUser + fmt.Sprintf(` WHERE %s = ?`, liteAccount.ID)
	liteFindByUsername  = liteSelectUser + fmt.Sprintf(` WHERE %s = ?`, liteAccount.Username)
	liteFindByFederated = liteSelectUser + fmt.Sprintf(` WHERE %s = ? AND %s = ?`, liteAccount.Provider, liteAccount.SubjectID)
	liteFindWithSecret  = liteSelectUser + fmt.Sprintf(` WHERE %s <> '' ORDER BY %s, %s`, liteAccount.Secret, liteAccount.CreatedAt, liteAccount.ID)

	liteInsertIfAbsent = fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
		RETURNING %s`, liteAccount.Table, liteAccount.SelectList(), liteAccount.ID)

	liteUpdateSecret = fmt.Sprintf(`UPDATE %s SET %s = ?, %s = ? WHERE %s = ?`,
		liteAccount.Table, liteAccount.Secret, liteAccount.UpdatedAt, liteAccount.ID)
)

// FindByID implements [UserRepository.FindByID].
func (repository *SQLiteUserRepository) FindByID(context context.Context, id string) (*User, error) {
	return repository.findOne(context, "sqlite_user_repo_find_by_id_failed", liteFindByID, id)
}

// FindByUsername implements [UserRepository.FindByUsername].
func (repository *SQLiteUserRepository) FindByUsername(context context.Context, username string) (*User, error) {
	return repository.findOne(context, "sqlite_user_repo_find_by_username_failed", liteFindByUsername, username)
}

// FindByFederatedID implements [UserRepository.FindByFederatedID].
func (repository *SQLiteUserRepository) FindByFederatedID(context context.Context, provider, subjectID string) (*User, error) {
	return repository.findOne(context, "sqlite_user_repo_find_by_federated_id_failed", liteFindByFederated, provider, subjectID)
}

func (repository *SQLiteUserRepository) findOne(context context.Context, operation, query string, arguments ...any) (*User, error) {
	user, err := scanSQLiteUser(repository.database.QueryRowContext(context, query, arguments...))
	if err != nil {
		if dberr.IsNoRows(err) {
			return nil, ErrUserNotFound
		}
		return nil, repositoryFailure(operation, err)
	}
	return user, nil
}

/*
InsertIfAbsent persists a new user unless its username or federated
identity is already taken.

Description: Same single-statement conditional insert as the PostgreSQL
store, executed under the repository write lock. Constraint violations that
slip past ON CONFLICT are classified as duplicates too.

Parameters:
  - context: context.Context
  - user: *User (ID and timestamps are assigned here)

Returns:
  - error: ErrDuplicateIdentity or repository failures
*/
func (repository *SQLiteUserRepository) InsertIfAbsent(context context.Context, user *User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("sqlite_user_repo_insert_invalid: %w", err)
	}

	candidate := *user
	if candidate.ID == "" {
		candidate.ID = uuid.New()
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	candidate.CreatedAt, candidate.UpdatedAt = now, now

	username, passwordHash, provider, subjectID := liteIdentityColumns(&candidate)

	repository.writeLock.Lock()
	defer repository.writeLock.Unlock()

	var insertedID string
	err := repository.database.QueryRowContext(context, liteInsertIfAbsent,
		candidate.ID,
		username,
		passwordHash,
		provider,
		subjectID,
		candidate.Secret,
		candidate.CreatedAt.UnixMilli(),
		candidate.UpdatedAt.UnixMilli(),
	).Scan(&insertedID)

	if err != nil {
		if dberr.IsNoRows(err) || dberr.IsUniqueViolation(err) {
			return ErrDuplicateIdentity
		}
		return repositoryFailure("sqlite_user_repo_insert_failed", err)
	}

	*user = candidate
	return nil
}

// UpdateSecret implements [UserRepository.UpdateSecret].
func (repository *SQLiteUserRepository) UpdateSecret(context context.Context, userID, secret string) error {
	repository.writeLock.Lock()
	defer repository.writeLock.Unlock()

	result, err := repository.database.ExecContext(context, liteUpdateSecret, secret, time.Now().UTC().UnixMilli(), userID)
	if err != nil {
		return repositoryFailure("sqlite_user_repo_update_secret_failed", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return repositoryFailure("sqlite_user_repo_update_secret_failed", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// FindAllWithSecret implements [UserRepository.FindAllWithSecret].
func (repository *SQLiteUserRepository) FindAllWithSecret(context context.Context) ([]User, error) {
	rows, err := repository.database.QueryContext(context, liteFindWithSecret)
	if err != nil {
		return nil, repositoryFailure("sqlite_user_repo_find_with_secret_failed", err)
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		user, err := scanSQLiteUser(rows)
		if err != nil {
			return nil, repositoryFailure("sqlite_user_repo_scan_failed", err)
		}
		users = append(users, *user)
	}

	if err := rows.Err(); err != nil {
		return nil, repositoryFailure("sqlite_user_repo_find_with_secret_failed", err)
	}
	return users, nil
}

// Ping reports whether the database file is reachable.
func (repository *SQLiteUserRepository) Ping(context context.Context) error {
	if err := repository.database.PingContext(context); err != nil {
		return fmt.Errorf("sqlite: ping failed: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (repository *SQLiteUserRepository) Close() error {
	if err := repository.database.Close(); err != nil {
		return fmt.Errorf("sqlite_user_repo_close_failed: %w", err)
	}
	return nil
}

// scanSQLiteUser reads one row, converting millisecond timestamps.
func scanSQLiteUser(row rowScanner) (*User, error) {
	var (
		user                                        User
		username, passwordHash, provider, subjectID sql.NullString
		createdAt, updatedAt                        int64
	)

	if err := row.Scan(
		&user.ID,
		&username,
		&passwordHash,
		&provider,
		&subjectID,
		&user.Secret,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	user.CreatedAt = time.UnixMilli(createdAt).UTC()
	user.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	if username.Valid {
		user.Local = &LocalCredential{Username: username.String, PasswordHash: passwordHash.String}
	}
	if provider.Valid {
		user.Federated = &FederatedIdentity{Provider: provider.String, SubjectID: subjectID.String}
	}
	return &user, nil
}

// liteIdentityColumns flattens the identity variants into nullable columns.
func liteIdentityColumns(user *User) (username, passwordHash, provider, subjectID sql.NullString) {
	if user.Local != nil {
		username = sql.NullString{String: user.Local.Username, Valid: true}
		passwordHash = sql.NullString{String: user.Local.PasswordHash, Valid: true}
	}
	if user.Federated != nil {
		provider = sql.NullString{String: user.Federated.Provider, Valid: true}
		subjectID = sql.NullString{String: user.Federated.SubjectID, Valid: true}
	}
	return username, passwordHash, provider, subjectID
}
