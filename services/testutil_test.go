package services

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"sweepifyAPI/internal/user"
)

// setupTestDB connects to the database named by TEST_DATABASE_URL, which must
// already carry the schema from schema.sql. Tests are skipped when it is not
// set so the pure unit tests still run everywhere.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err, "failed to connect to test database")
	require.NoError(t, pool.Ping(ctx), "failed to ping test database")

	t.Cleanup(func() {
		cleanupTestData(t, pool)
		pool.Close()
	})
	return pool
}

// cleanupTestData removes everything created by test users, in FK order.
func cleanupTestData(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	ctx := context.Background()

	statements := []string{
		`DELETE FROM verification_votes WHERE verifier_id IN (SELECT id FROM users WHERE clerk_id LIKE 'user_test_%')`,
		`DELETE FROM submissions WHERE created_by IN (SELECT id FROM users WHERE clerk_id LIKE 'user_test_%')`,
		`DELETE FROM event_participants WHERE user_id IN (SELECT id FROM users WHERE clerk_id LIKE 'user_test_%')`,
		`DELETE FROM events WHERE organizer_id IN (SELECT id FROM users WHERE clerk_id LIKE 'user_test_%')`,
		`DELETE FROM reward_redemptions WHERE user_id IN (SELECT id FROM users WHERE clerk_id LIKE 'user_test_%')`,
		`DELETE FROM user_achievements WHERE user_id IN (SELECT id FROM users WHERE clerk_id LIKE 'user_test_%')`,
		`DELETE FROM point_awards WHERE user_id IN (SELECT id FROM users WHERE clerk_id LIKE 'user_test_%')`,
		`DELETE FROM notifications WHERE user_id IN (SELECT id FROM users WHERE clerk_id LIKE 'user_test_%')`,
		`DELETE FROM device_tokens WHERE user_id IN (SELECT id FROM users WHERE clerk_id LIKE 'user_test_%')`,
		`DELETE FROM photo_analyses WHERE url LIKE 'https://storage.googleapis.com/test/%'`,
		`DELETE FROM users WHERE clerk_id LIKE 'user_test_%'`,
	}
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			t.Logf("Warning: failed to cleanup test data: %v", err)
		}
	}
}

// createTestUser inserts a user with a unique clerk id and returns it.
func createTestUser(t *testing.T, pool *pgxpool.Pool, label string) *user.User {
	t.Helper()

	clerkID := fmt.Sprintf("user_test_%s_%s", label, uuid.NewString()[:8])
	svc := NewUserService(pool)
	u, err := svc.CreateUser(context.Background(), &user.CreateUserRequest{
		ClerkID:     clerkID,
		Email:       fmt.Sprintf("test.%s@example.com", clerkID),
		DisplayName: "Test " + label,
	})
	require.NoError(t, err)
	return u
}

// grantPoints credits a user directly, bypassing the award ledger, so reward
// tests can set up a balance.
func grantPoints(t *testing.T, pool *pgxpool.Pool, userID uuid.UUID, points int) {
	t.Helper()
	_, err := pool.Exec(context.Background(),
		`UPDATE users SET points = points + $2 WHERE id = $1`, userID, points)
	require.NoError(t, err)
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}
