//go:build integration

package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"treewatch/internal/store"
)

const (
	postgresImage = "postgres:16-alpine"
	postgresUser  = "treewatch"
	postgresPass  = "treewatch"
	postgresDB    = "treewatch"

	startupTimeout = 60 * time.Second
)

// StartPostgres starts a disposable Postgres container, applies the store
// schema, and returns a connected *sql.DB. Skips the test unless
// TREEWATCH_PG_TESTS=1 is set, so a plain `go test ./...` never needs Docker.
func StartPostgres(t *testing.T) *sql.DB {
	t.Helper()
	if os.Getenv("TREEWATCH_PG_TESTS") != "1" {
		t.Skip("set TREEWATCH_PG_TESTS=1 to run Postgres-backed integration tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	container, err := postgres.Run(ctx, postgresImage,
		postgres.WithDatabase(postgresDB),
		postgres.WithUsername(postgresUser),
		postgres.WithPassword(postgresPass),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("testutil: start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("testutil: terminate postgres container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(context.Background(), "sslmode=disable")
	if err != nil {
		t.Fatalf("testutil: postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("testutil: open postgres connection: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.ExecContext(context.Background(), store.Schema("postgres")); err != nil {
		t.Fatalf("testutil: apply schema: %v", err)
	}

	return db
}
