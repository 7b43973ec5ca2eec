package database_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jsprateek/wordpressprojects/pkg/database"
)

func TestOpenDatabase(t *testing.T) {
	t.Run("creates new database with schema", func(t *testing.T) {
		dbPath := tempDBPath(t)

		db, err := database.OpenDatabase(database.DatabaseOptions{
			Path:      dbPath,
			EnableWAL: true,
		})
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer database.CloseDatabase(db)

		info, err := os.Stat(dbPath)
		if err != nil {
			t.Fatalf("database file was not created: %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("expected mode 0600, got %o", perm)
		}

		var version string
		if err := db.QueryRow("SELECT version FROM schema_version").Scan(&version); err != nil {
			t.Fatalf("failed to query schema version: %v", err)
		}
		if version != "1.0.0" {
			t.Errorf("expected schema version 1.0.0, got %s", version)
		}

		var mode string
		if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
			t.Fatalf("failed to query journal mode: %v", err)
		}
		if mode != "wal" {
			t.Errorf("expected journal mode wal, got %s", mode)
		}
	})

	t.Run("opens existing database without reinitializing", func(t *testing.T) {
		dbPath := tempDBPath(t)
		ctx := context.Background()

		db1, err := database.OpenDatabase(database.DatabaseOptions{Path: dbPath})
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		err = database.UpsertTestUser(ctx, db1, database.TestUserRow{
			Site:     "https://example.test/",
			Username: "seravo-test",
			Password: "secret",
		})
		if err != nil {
			t.Fatalf("failed to store user: %v", err)
		}
		database.CloseDatabase(db1)

		db2, err := database.OpenDatabase(database.DatabaseOptions{Path: dbPath})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		defer database.CloseDatabase(db2)

		var count int
		if err := db2.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&count); err != nil {
			t.Fatalf("failed to count schema versions: %v", err)
		}
		if count != 1 {
			t.Errorf("expected 1 schema version row, got %d", count)
		}

		row, err := database.GetTestUser(ctx, db2, "https://example.test/")
		if err != nil {
			t.Fatalf("failed to load user: %v", err)
		}
		if row == nil || row.Password != "secret" {
			t.Errorf("expected stored user to survive reopen, got %+v", row)
		}
	})

	t.Run("creates test_users table", func(t *testing.T) {
		db, err := database.OpenDatabase(database.DatabaseOptions{Path: tempDBPath(t)})
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer database.CloseDatabase(db)

		var name string
		err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='test_users'").Scan(&name)
		if err != nil {
			t.Errorf("test_users table not found: %v", err)
		}
	})

	t.Run("sets busy timeout when specified", func(t *testing.T) {
		db, err := database.OpenDatabase(database.DatabaseOptions{
			Path:        tempDBPath(t),
			BusyTimeout: 10000,
		})
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer database.CloseDatabase(db)

		var timeout int
		if err := db.QueryRow("PRAGMA busy_timeout").Scan(&timeout); err != nil {
			t.Fatalf("failed to query busy timeout: %v", err)
		}
		if timeout != 10000 {
			t.Errorf("expected busy timeout 10000, got %d", timeout)
		}
	})

	t.Run("requires a path", func(t *testing.T) {
		if _, err := database.OpenDatabase(database.DatabaseOptions{}); err == nil {
			t.Error("expected error for empty path")
		}
	})

	t.Run("fails in a missing directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing", "state.db")
		if _, err := database.OpenDatabase(database.DatabaseOptions{Path: path}); err == nil {
			t.Error("expected error for missing directory")
		}
	})
}

func TestCloseDatabase(t *testing.T) {
	t.Run("closes database connection", func(t *testing.T) {
		db, err := database.OpenDatabase(database.DatabaseOptions{Path: tempDBPath(t)})
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}

		if err := database.CloseDatabase(db); err != nil {
			t.Errorf("failed to close database: %v", err)
		}

		var version string
		if err := db.QueryRow("SELECT version FROM schema_version").Scan(&version); err == nil {
			t.Error("expected error after closing database, but query succeeded")
		}
	})
}
