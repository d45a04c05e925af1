//go:build integration

// Package integration runs the key-reconciliation scenarios against a real
// PostgreSQL instance using testcontainers-go and verifies the resulting
// database state directly through the connection pool.
package integration

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	pgContainer *postgres.PostgresContainer
	pgPool      *pgxpool.Pool
	pgURL       string

	testCtx    context.Context
	cancelFunc context.CancelFunc
)

// TestMain sets up and tears down the test container.
func TestMain(m *testing.M) {
	testCtx, cancelFunc = context.WithTimeout(context.Background(), 10*time.Minute)

	if err := setupPostgreSQL(testCtx); err != nil {
		log.Printf("Container setup failed: %v", err)
		cleanup()
		cancelFunc()
		os.Exit(1)
	}

	code := m.Run()

	cleanup()
	cancelFunc()
	os.Exit(code)
}

// setupPostgreSQL starts a PostgreSQL container and creates the connection pool.
func setupPostgreSQL(ctx context.Context) error {
	var err error

	log.Println("Starting PostgreSQL container...")
	pgContainer, err = postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("rowtrack_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to start PostgreSQL container: %w", err)
	}

	pgURL, err = pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return fmt.Errorf("failed to get PostgreSQL connection string: %w", err)
	}

	pgPool, err = pgxpool.New(ctx, pgURL)
	if err != nil {
		return fmt.Errorf("failed to create PostgreSQL pool: %w", err)
	}

	if err := pgPool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	log.Println("PostgreSQL container ready")
	return nil
}

// cleanup terminates the container and closes the pool.
func cleanup() {
	if pgPool != nil {
		pgPool.Close()
	}

	if pgContainer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := pgContainer.Terminate(ctx); err != nil {
			log.Printf("Failed to terminate PostgreSQL container: %v", err)
		}
	}
}

// GetPostgreSQLPool returns the PostgreSQL connection pool for assertions.
func GetPostgreSQLPool() *pgxpool.Pool {
	return pgPool
}

// GetPostgreSQLURL returns the PostgreSQL connection URL.
func GetPostgreSQLURL() string {
	return pgURL
}

// GetTestContext returns the shared test context.
func GetTestContext() context.Context {
	return testCtx
}
