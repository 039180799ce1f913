// Package storagetest provides a shared Postgres test fixture for the
// storage package's integration tests, backed by testcontainers-go in
// local dev and an external CI_DATABASE_URL in CI.
package storagetest

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/truffle/expertise-miner/pkg/storage"
)

// NewTestStore spins up (or connects to, in CI) a Postgres instance, runs
// migrations, and returns a ready *storage.Store. The database is
// truncated between tests by the caller via Reset.
func NewTestStore(t *testing.T) *storage.Store {
	t.Helper()
	ctx := context.Background()

	connStr := os.Getenv("CI_DATABASE_URL")
	if connStr == "" {
		pgContainer, err := postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("test"),
			postgres.WithUsername("test"),
			postgres.WithPassword("test"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second)),
		)
		require.NoError(t, err)
		t.Cleanup(func() {
			if err := testcontainers.TerminateContainer(pgContainer); err != nil {
				t.Logf("failed to terminate container: %v", err)
			}
		})

		connStr, err = pgContainer.ConnectionString(ctx, "sslmode=disable")
		require.NoError(t, err)
	}

	db, err := sql.Open("pgx", connStr)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, storage.Migrate(db))

	return storage.NewStoreFromDB(db)
}

// Reset truncates all application tables so tests run against a clean slate.
func Reset(t *testing.T, s *storage.Store) {
	t.Helper()
	_, err := s.DB().Exec(`TRUNCATE TABLE user_skill_scores, expertise_evidence, skills, users RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
}
