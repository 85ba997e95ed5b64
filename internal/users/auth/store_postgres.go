// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/taibuivan/secrets/internal/platform/apperr"
	"github.com/taibuivan/secrets/internal/platform/database/schema"
	"github.com/taibuivan/secrets/internal/platform/dberr"
	"github.com/taibuivan/secrets/pkg/uuid"
)

// # User Repository (PostgreSQL)

// PgxQuerier is the subset of [pgxpool.Pool] used by the repository.
// pgxmock satisfies it in tests.
type PgxQuerier interface {
	Exec(context context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(context context.Context, sql string, arguments ...any) (pgx.Rows, error)
	QueryRow(context context.Context, sql string, arguments ...any) pgx.Row
}

// PostgresUserRepository implements [UserRepository] using pgx.
type PostgresUserRepository struct {
	pool PgxQuerier
}

var _ UserRepository = (*PostgresUserRepository)(nil)

// NewPostgresUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewPostgresUserRepository(pool PgxQuerier) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

var (
	pgAccount = schema.UserAccount

	pgSelectUser = fmt.Sprintf(`SELECT %s FROM %s`, pgAccount.SelectList(), pgAccount.Table)

	pgFindByID        = pgSelectUser + fmt.Sprintf(` WHERE %s = $1`, pgAccount.ID)
	pgFindByUsername  = pgSelectUser + fmt.Sprintf(` WHERE %s = $1`, pgAccount.Username)
	pgFindByFederated = pgSelectUser + fmt.Sprintf(` WHERE %s = $1 AND %s = $2`, pgAccount.Provider, pgAccount.SubjectID)
	pgFindWithSecret  = pgSelectUser + fmt.Sprintf(` WHERE %s <> '' ORDER BY %s, %s`, pgAccount.Secret, pgAccount.CreatedAt, pgAccount.ID)

	// ON CONFLICT without a target covers both the username and the
	// (provider, subjectid) constraints. A conflict yields no returned row.
	pgInsertIfAbsent = fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT DO NOTHING
		RETURNING %s`, pgAccount.Table, pgAccount.SelectList(), pgAccount.ID)

	pgUpdateSecret = fmt.Sprintf(`UPDATE %s SET %s = $2, %s = $3 WHERE %s = $1`,
		pgAccount.Table, pgAccount.Secret, pgAccount.UpdatedAt, pgAccount.ID)
)

/*
FindByID retrieves a user record by their unique ID.

Parameters:
  - context: context.Context
  - id: string (UUIDv7)

Returns:
  - *User: Hydrated account entity
  - error: ErrUserNotFound or repository failures
*/
func (repository *PostgresUserRepository) FindByID(context context.Context, id string) (*User, error) {
	if !uuid.Valid(id) {
		return nil, ErrUserNotFound
	}
	return repository.findOne(context, "postgres_user_repo_find_by_id_failed", pgFindByID, id)
}

/*
FindByUsername retrieves a user record by their unique username.

Parameters:
  - context: context.Context
  - username: string

Returns:
  - *User: Hydrated account entity
  - error: ErrUserNotFound or repository failures
*/
func (repository *PostgresUserRepository) FindByUsername(context context.Context, username string) (*User, error) {
	return repository.findOne(context, "postgres_user_repo_find_by_username_failed", pgFindByUsername, username)
}

/*
FindByFederatedID retrieves the user linked to an external identity.

Parameters:
  - context: context.Context
  - provider: string
  - subjectID: string

Returns:
  - *User: Hydrated account entity
  - error: ErrUserNotFound or repository failures
*/
func (repository *PostgresUserRepository) FindByFederatedID(context context.Context, provider, subjectID string) (*User, error) {
	return repository.findOne(context, "postgres_user_repo_find_by_federated_id_failed", pgFindByFederated, provider, subjectID)
}

func (repository *PostgresUserRepository) findOne(context context.Context, operation, query string, arguments ...any) (*User, error) {
	user, err := scanUser(repository.pool.QueryRow(context, query, arguments...))
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

Description: A single INSERT ... ON CONFLICT DO NOTHING statement, so the
check and the write are one atomic step. The row is written complete or
not at all.

Parameters:
  - context: context.Context
  - user: *User (ID and timestamps are assigned here)

Returns:
  - error: ErrDuplicateIdentity or repository failures
*/
func (repository *PostgresUserRepository) InsertIfAbsent(context context.Context, user *User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("postgres_user_repo_insert_invalid: %w", err)
	}

	candidate := *user
	if candidate.ID == "" {
		candidate.ID = uuid.New()
	}
	now := time.Now().UTC()
	candidate.CreatedAt, candidate.UpdatedAt = now, now

	username, passwordHash, provider, subjectID := identityColumns(&candidate)

	var insertedID string
	err := repository.pool.QueryRow(context, pgInsertIfAbsent,
		candidate.ID,
		username,
		passwordHash,
		provider,
		subjectID,
		candidate.Secret,
		candidate.CreatedAt,
		candidate.UpdatedAt,
	).Scan(&insertedID)

	if err != nil {
		if dberr.IsNoRows(err) || dberr.IsUniqueViolation(err) {
			return ErrDuplicateIdentity
		}
		return repositoryFailure("postgres_user_repo_insert_failed", err)
	}

	*user = candidate
	return nil
}

/*
UpdateSecret replaces the secret payload of one user.

Parameters:
  - context: context.Context
  - userID: string
  - secret: string

Returns:
  - error: ErrUserNotFound or repository failures
*/
func (repository *PostgresUserRepository) UpdateSecret(context context.Context, userID, secret string) error {
	if !uuid.Valid(userID) {
		return ErrUserNotFound
	}

	tag, err := repository.pool.Exec(context, pgUpdateSecret, userID, secret, time.Now().UTC())
	if err != nil {
		return repositoryFailure("postgres_user_repo_update_secret_failed", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

/*
FindAllWithSecret lists every user with a non-empty secret, oldest first.

Parameters:
  - context: context.Context

Returns:
  - []User: Possibly empty
  - error: Repository failures
*/
func (repository *PostgresUserRepository) FindAllWithSecret(context context.Context) ([]User, error) {
	rows, err := repository.pool.Query(context, pgFindWithSecret)
	if err != nil {
		return nil, repositoryFailure("postgres_user_repo_find_with_secret_failed", err)
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, repositoryFailure("postgres_user_repo_scan_failed", err)
		}
		users = append(users, *user)
	}

	if err := rows.Err(); err != nil {
		return nil, repositoryFailure("postgres_user_repo_find_with_secret_failed", err)
	}
	return users, nil
}

// # Row Mapping

// rowScanner is implemented by [pgx.Row], [pgx.Rows] and [*sql.Row].
type rowScanner interface {
	Scan(dest ...any) error
}

// scanUser reads one row in [schema.UserAccountTable.Columns] order.
func scanUser(row rowScanner) (*User, error) {
	var (
		user                                        User
		username, passwordHash, provider, subjectID pgtype.Text
	)

	if err := row.Scan(
		&user.ID,
		&username,
		&passwordHash,
		&provider,
		&subjectID,
		&user.Secret,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}

	applyIdentityColumns(&user, username, passwordHash, provider, subjectID)
	return &user, nil
}

// identityColumns flattens the identity variants into nullable columns.
func identityColumns(user *User) (username, passwordHash, provider, subjectID pgtype.Text) {
	if user.Local != nil {
		username = pgtype.Text{String: user.Local.Username, Valid: true}
		passwordHash = pgtype.Text{String: user.Local.PasswordHash, Valid: true}
	}
	if user.Federated != nil {
		provider = pgtype.Text{String: user.Federated.Provider, Valid: true}
		subjectID = pgtype.Text{String: user.Federated.SubjectID, Valid: true}
	}
	return username, passwordHash, provider, subjectID
}

// applyIdentityColumns rebuilds the identity variants from nullable columns.
func applyIdentityColumns(user *User, username, passwordHash, provider, subjectID pgtype.Text) {
	if username.Valid {
		user.Local = &LocalCredential{Username: username.String, PasswordHash: passwordHash.String}
	}
	if provider.Valid {
		user.Federated = &FederatedIdentity{Provider: provider.String, SubjectID: subjectID.String}
	}
}

// repositoryFailure tags a store error for the client as a generic failure.
func repositoryFailure(operation string, err error) error {
	return fmt.Errorf("%s: %w", operation, apperr.RepositoryFailure(err))
}
