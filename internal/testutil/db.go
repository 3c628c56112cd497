// Package testutil connects integration tests to a real Postgres.
package testutil

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"muhasabahAPI/internal/migrations"
)

// SetupTestDB returns a migrated pool, or skips the test when
// TEST_DATABASE_URL is unset. Users created through CreateUser are removed on
// cleanup, and their rows cascade.
func SetupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Fatalf("failed to ping test database: %v", err)
	}
	if _, err := migrations.NewRunner(pool, zap.NewNop()).Apply(ctx); err != nil {
		pool.Close()
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		_, err := pool.Exec(context.Background(), `DELETE FROM users WHERE email LIKE 'test-%@example.com'`)
		if err != nil {
			t.Logf("warning: failed to clean up test users: %v", err)
		}
		pool.Close()
	})
	return pool
}

// CreateUser inserts a verified, active person with the given role.
func CreateUser(t *testing.T, pool *pgxpool.Pool, role string) uuid.UUID {
	t.Helper()
	tag := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]

	var id uuid.UUID
	err := pool.QueryRow(context.Background(), `
		INSERT INTO users (email, username, password_hash, role, is_verified)
		VALUES ($1, $2, 'x', $3, TRUE)
		RETURNING id`,
		fmt.Sprintf("test-%s@example.com", tag), "test_"+tag, role,
	).Scan(&id)
	if err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return id
}

// CreateSitting inserts an active sitting led by leaderID.
func CreateSitting(t *testing.T, pool *pgxpool.Pool, leaderID uuid.UUID, name string) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	err := pool.QueryRow(context.Background(), `
		INSERT INTO sittings (name, leader_id, day_of_week, max_members)
		VALUES ($1, $2, 'friday', 20)
		RETURNING id`, name, leaderID,
	).Scan(&id)
	if err != nil {
		t.Fatalf("failed to create test sitting: %v", err)
	}
	return id
}
