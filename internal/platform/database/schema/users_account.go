// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package schema names the tables and columns shared by the SQL user stores.
package schema

import "strings"

// UserAccountTable represents the user account table
type UserAccountTable struct {
	Table        string
	ID           string
	Username     string
	PasswordHash string
	Provider     string
	SubjectID    string
	Secret       string
	CreatedAt    string
	UpdatedAt    string
}

// UserAccount is the schema definition for users.account (PostgreSQL)
var UserAccount = UserAccountTable{
	Table:        "users.account",
	ID:           "id",
	Username:     "username",
	PasswordHash: "passwordhash",
	Provider:     "provider",
	SubjectID:    "subjectid",
	Secret:       "secret",
	CreatedAt:    "createdat",
	UpdatedAt:    "updatedat",
}

// UserAccountSQLite is the same table in SQLite, which has no schemas.
var UserAccountSQLite = func() UserAccountTable {
	table := UserAccount
	table.Table = "account"
	return table
}()

// Columns returns all standard column names
func (t UserAccountTable) Columns() []string {
	return []string{
		t.ID, t.Username, t.PasswordHash, t.Provider, t.SubjectID,
		t.Secret, t.CreatedAt, t.UpdatedAt,
	}
}

// SelectList returns Columns joined for a SELECT clause.
func (t UserAccountTable) SelectList() string {
	return strings.Join(t.Columns(), ", ")
}
