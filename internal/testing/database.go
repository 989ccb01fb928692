package testing

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Somnusochi/auto-novel/db"
)

// CreateTestDB creates a migrated in-memory SQLite database.
// The pool is pinned to one connection because every :memory: connection is
// its own database. Cleanup is registered via t.Cleanup().
func CreateTestDB(t *testing.T) *sql.DB {
	t.Helper()

	database, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	database.SetMaxOpenConns(1)

	if err := db.Migrate(database, nil); err != nil {
		database.Close()
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		database.Close()
	})
	return database
}

// CreateFileTestDB creates a migrated on-disk database with a real connection
// pool, for tests that need concurrent connections racing on SQLite locks.
func CreateFileTestDB(t *testing.T) *sql.DB {
	t.Helper()

	database, err := db.OpenWithMigrations(t.TempDir()+"/sakura.db", nil)
	if err != nil {
		t.Fatalf("Failed to create file test database: %v", err)
	}

	t.Cleanup(func() {
		database.Close()
	})
	return database
}
