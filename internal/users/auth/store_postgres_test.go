// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/secrets/internal/platform/apperr"
	"github.com/taibuivan/secrets/internal/platform/database/schema"
	"github.com/taibuivan/secrets/internal/users/auth"
)

const pgTestUserID = "01900000-0000-7000-8000-000000000001"

func newMockRepository(t *testing.T) (*auth.PostgresUserRepository, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return auth.NewPostgresUserRepository(mock), mock
}

func accountRows() *pgxmock.Rows {
	return pgxmock.NewRows(schema.UserAccount.Columns())
}

func text(value string) pgtype.Text {
	return pgtype.Text{String: value, Valid: true}
}

func TestPostgresUserRepository_FindByUsername(t *testing.T) {
	repository, mock := newMockRepository(t)
	createdAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users.account WHERE username = $1")).
		WithArgs("alice").
		WillReturnRows(accountRows().AddRow(
			pgTestUserID, text("alice"), text("$2a$10$hash"), nil, nil, "", createdAt, createdAt,
		))

	user, err := repository.FindByUsername(context.Background(), "alice")
	require.NoError(t, err)

	assert.Equal(t, pgTestUserID, user.ID)
	assert.Equal(t, &auth.LocalCredential{Username: "alice", PasswordHash: "$2a$10$hash"}, user.Local)
	assert.Nil(t, user.Federated)
	assert.Equal(t, createdAt, user.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserRepository_FindByFederatedID(t *testing.T) {
	repository, mock := newMockRepository(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE provider = $1 AND subjectid = $2")).
		WithArgs("google", "g-123").
		WillReturnRows(accountRows().AddRow(
			pgTestUserID, nil, nil, text("google"), text("g-123"), "hello", now, now,
		))

	user, err := repository.FindByFederatedID(context.Background(), "google", "g-123")
	require.NoError(t, err)

	assert.Equal(t, auth.IdentityFederated, user.Kind())
	assert.Equal(t, "hello", user.Secret)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserRepository_FindNotFound(t *testing.T) {
	repository, mock := newMockRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1")).
		WithArgs(pgTestUserID).
		WillReturnRows(accountRows())

	_, err := repository.FindByID(context.Background(), pgTestUserID)
	assert.ErrorIs(t, err, auth.ErrUserNotFound)

	// Malformed ids never reach the database.
	_, err = repository.FindByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, auth.ErrUserNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserRepository_FindFailure(t *testing.T) {
	repository, mock := newMockRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE username = $1")).
		WithArgs("alice").
		WillReturnError(errors.New("connection refused"))

	_, err := repository.FindByUsername(context.Background(), "alice")
	assert.ErrorIs(t, err, apperr.ErrRepositoryFailure)
	assert.NotErrorIs(t, err, auth.ErrUserNotFound)
}

/*
TestPostgresUserRepository_InsertIfAbsent covers the three outcomes of the
conditional insert: a returned id, no row on conflict, and a raw unique
violation.
*/
func TestPostgresUserRepository_InsertIfAbsent(t *testing.T) {
	insertQuery := regexp.QuoteMeta("INSERT INTO users.account") + `(?s).*` + regexp.QuoteMeta("ON CONFLICT DO NOTHING")

	tests := []struct {
		name    string
		expect  func(mock pgxmock.PgxPoolIface)
		wantErr error
	}{
		{
			name: "inserted",
			expect: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(insertQuery).
					WithArgs(pgxmock.AnyArg(), text("alice"), text("hash"), pgtype.Text{}, pgtype.Text{}, "", pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(pgTestUserID))
			},
		},
		{
			name: "conflict_returns_no_row",
			expect: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(insertQuery).
					WithArgs(pgxmock.AnyArg(), text("alice"), text("hash"), pgtype.Text{}, pgtype.Text{}, "", pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnRows(pgxmock.NewRows([]string{"id"}))
			},
			wantErr: auth.ErrDuplicateIdentity,
		},
		{
			name: "unique_violation",
			expect: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(insertQuery).
					WithArgs(pgxmock.AnyArg(), text("alice"), text("hash"), pgtype.Text{}, pgtype.Text{}, "", pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnError(&pgconn.PgError{Code: "23505"})
			},
			wantErr: auth.ErrDuplicateIdentity,
		},
		{
			name: "store_down",
			expect: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(insertQuery).
					WithArgs(pgxmock.AnyArg(), text("alice"), text("hash"), pgtype.Text{}, pgtype.Text{}, "", pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnError(errors.New("connection reset"))
			},
			wantErr: apperr.ErrRepositoryFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repository, mock := newMockRepository(t)
			tt.expect(mock)

			user := &auth.User{Local: &auth.LocalCredential{Username: "alice", PasswordHash: "hash"}}
			err := repository.InsertIfAbsent(context.Background(), user)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, user.ID)
			} else {
				require.NoError(t, err)
				assert.NotEmpty(t, user.ID)
				assert.False(t, user.CreatedAt.IsZero())
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresUserRepository_InsertRejectsIncompleteUser(t *testing.T) {
	repository, mock := newMockRepository(t)

	err := repository.InsertIfAbsent(context.Background(), &auth.User{})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserRepository_UpdateSecret(t *testing.T) {
	repository, mock := newMockRepository(t)
	updateQuery := regexp.QuoteMeta("UPDATE users.account SET secret = $2, updatedat = $3 WHERE id = $1")

	mock.ExpectExec(updateQuery).
		WithArgs(pgTestUserID, "my secret", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(updateQuery).
		WithArgs(pgTestUserID, "my secret", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, repository.UpdateSecret(context.Background(), pgTestUserID, "my secret"))
	assert.ErrorIs(t, repository.UpdateSecret(context.Background(), pgTestUserID, "my secret"), auth.ErrUserNotFound)
	assert.ErrorIs(t, repository.UpdateSecret(context.Background(), "nope", "my secret"), auth.ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserRepository_FindAllWithSecret(t *testing.T) {
	repository, mock := newMockRepository(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE secret <> '' ORDER BY createdat, id")).
		WillReturnRows(accountRows().
			AddRow(pgTestUserID, text("alice"), text("hash"), nil, nil, "first", now, now).
			AddRow("01900000-0000-7000-8000-000000000002", nil, nil, text("github"), text("42"), "second", now, now))

	users, err := repository.FindAllWithSecret(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "first", users[0].Secret)
	assert.Equal(t, "second", users[1].Secret)
	assert.Equal(t, "42", users[1].Federated.SubjectID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
