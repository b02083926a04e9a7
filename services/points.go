package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"sweepifyAPI/internal/scoring"
	"sweepifyAPI/middleware"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx so helpers can run
// inside or outside a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// userIDByClerkID resolves the authenticated Clerk subject to the internal
// user id.
func userIDByClerkID(ctx context.Context, q querier, clerkID string) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, fmt.Errorf("%w: clerk_id %s", ErrUserNotFound, clerkID)
		}
		return uuid.Nil, fmt.Errorf("database error resolving user: %w", err)
	}
	return id, nil
}

// awardPoints applies one point award exactly once. The ledger insert is the
// idempotency guard: a second award with the same (user, reason, source)
// fails with scoring.ErrDuplicateAward and the balance is untouched. Always
// called inside the transaction that performs the owning state transition.
func awardPoints(ctx context.Context, tx pgx.Tx, userID uuid.UUID, points int, reason, source, detail string) error {
	ct, err := tx.Exec(ctx, `
		INSERT INTO point_awards (user_id, points, reason, source, detail)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, reason, source) DO NOTHING
	`, userID, points, reason, source, detail)
	if err != nil {
		return fmt.Errorf("failed to record point award: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return scoring.ErrDuplicateAward
	}

	_, err = tx.Exec(ctx, `
		UPDATE users SET points = points + $2, updated_at = NOW() WHERE id = $1
	`, userID, points)
	if err != nil {
		return fmt.Errorf("failed to apply point award: %w", err)
	}

	// Redemptions pass a negative amount; the counter only tracks credits.
	if points > 0 {
		middleware.RecordPointsAwarded(reason, points)
	}
	return nil
}
