// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package migration

import (
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func TestDatabaseURLFor(t *testing.T) {
	tests := []struct {
		name   string
		driver string
		dsn    string
		want   string
	}{
		{"postgres_scheme", DriverPostgres, "postgres://u:p@db:5432/secrets", "pgx5://u:p@db:5432/secrets"},
		{"postgresql_scheme", DriverPostgres, "postgresql://db/secrets", "pgx5://db/secrets"},
		{"already_pgx5", DriverPostgres, "pgx5://db/secrets", "pgx5://db/secrets"},
		{"sqlite_path", DriverSQLite, "data/secrets.db", "sqlite://data/secrets.db"},
		{"sqlite_url", DriverSQLite, "sqlite://data/secrets.db", "sqlite://data/secrets.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := databaseURLFor(tt.driver, tt.dsn)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := databaseURLFor("mongo", "mongodb://db")
	assert.Error(t, err)
}

/*
TestRunUp_SQLite applies the shipped SQLite migrations to a fresh file and
checks that running them again is a no-op.
*/
func TestRunUp_SQLite(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	path := filepath.Join(t.TempDir(), "secrets.db")
	root := filepath.Join("..", "..", "..", "data", "migrations")

	require.NoError(t, RunUp(DriverSQLite, path, root, logger))
	require.NoError(t, RunUp(DriverSQLite, path, root, logger))

	database, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer database.Close()

	var count int
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM account`).Scan(&count))
	assert.Zero(t, count)
}
