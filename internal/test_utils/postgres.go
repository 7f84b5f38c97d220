package test_utils

import (
	"context"
	"database/sql"
	"testing"

	"github.com/kawazanyo/kawazanyo/internal/config"
	"github.com/kawazanyo/kawazanyo/internal/database"
	log "github.com/sirupsen/logrus"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

const (
	pgName     = "kawazanyo"
	pgUser     = "test_kawazanyo"
	pgPassword = "test_kawazanyo"
)

// SetupPostgresDB starts a Postgres container and applies all migrations. The test is
// skipped in short mode or when no container runtime is available.
func SetupPostgresDB(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Postgres test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := postgres.Run(
		ctx, "postgres:18.1-alpine",
		postgres.WithDatabase(pgName),
		postgres.WithUsername(pgUser),
		postgres.WithPassword(pgPassword),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, container)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to read container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("failed to read container port: %v", err)
	}
	log.Infof("Postgres container started at %s:%d", host, port.Int())

	cfg := config.Database{
		Driver: database.DriverPostgres,
		Host:   host,
		Port:   port.Int(),
		User:   pgUser,
		Pass:   pgPassword,
		Name:   pgName,
		Schema: "kawazanyo",
	}
	db, err := database.Open(cfg)
	if err != nil {
		t.Fatalf("failed to open database connection: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	if err := database.Migrate(cfg, db); err != nil {
		t.Fatalf("failed to apply migrations: %v", err)
	}
	return db
}
