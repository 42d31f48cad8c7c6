package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateCreatesUsersTable(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Migrate(db))

	var name string
	err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'users'`).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "users", name)
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Migrate(db))
	require.NoError(t, Migrate(db))
}

func TestMigrateEnforcesUniqueEmail(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Migrate(db))

	const insert = `INSERT INTO users (email, hashed_password) VALUES (?, ?)`
	_, err := db.Exec(insert, "a@b.com", "x")
	require.NoError(t, err)
	_, err = db.Exec(insert, "a@b.com", "y")
	assert.Error(t, err)
}

func TestSessionFrom(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	assert.Same(t, db, SessionFrom(ctx, db))

	conn, err := db.Conn(ctx)
	require.NoError(t, err)
	defer conn.Close()

	ctx = WithSession(ctx, conn)
	assert.Same(t, conn, SessionFrom(ctx, db))
}
