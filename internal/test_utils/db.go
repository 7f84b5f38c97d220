package test_utils

import (
	"database/sql"
	"testing"

	"github.com/kawazanyo/kawazanyo/internal/config"
	"github.com/kawazanyo/kawazanyo/internal/database"
)

// SetupTestDB creates a new in-memory SQLite database and applies all migrations.
// Each database is completely isolated from others.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	cfg := config.Database{Driver: database.DriverSqlite}
	db, err := database.Open(cfg)
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	if err := database.Migrate(cfg, db); err != nil {
		t.Fatalf("Failed to apply migrations: %v", err)
	}
	return db
}
