package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"sweepifyAPI/internal/achievement"
	"sweepifyAPI/internal/notification"
	"sweepifyAPI/internal/scoring"
)

const awardReasonAchievement = "achievement_unlocked"

// AchievementService evaluates the static criteria catalog against a user's
// aggregate snapshot. Unlock state is derived, but the first time a
// predicate flips true an unlock event is persisted so unlockedAt is stable
// history rather than reconstructed on every read.
type AchievementService struct {
	db           *pgxpool.Pool
	notification *NotificationService
}

func NewAchievementService(db *pgxpool.Pool, notificationService *NotificationService) *AchievementService {
	return &AchievementService{db: db, notification: notificationService}
}

func (s *AchievementService) aggregates(ctx context.Context, userID uuid.UUID) (achievement.Aggregates, error) {
	var agg achievement.Aggregates
	err := s.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM submissions WHERE completed_by = $1),
			(SELECT COUNT(*) FROM submissions WHERE completed_by = $1 AND site_type = 'beach'),
			(SELECT COUNT(*) FROM verification_votes WHERE verifier_id = $1),
			(SELECT streak_days FROM users WHERE id = $1),
			(SELECT COUNT(*) FROM events WHERE organizer_id = $1),
			(SELECT points FROM users WHERE id = $1)
	`, userID).Scan(
		&agg.Cleanups,
		&agg.BeachCleanups,
		&agg.Verifications,
		&agg.StreakDays,
		&agg.EventsHosted,
		&agg.Points,
	)
	if err != nil {
		return agg, fmt.Errorf("failed to load aggregates: %w", err)
	}
	return agg, nil
}

func (s *AchievementService) definitions(ctx context.Context) ([]achievement.Achievement, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, title, description, icon, criteria_type, criteria_value, points
		FROM achievements ORDER BY criteria_value
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load achievement catalog: %w", err)
	}
	defer rows.Close()

	var defs []achievement.Achievement
	for rows.Next() {
		var d achievement.Achievement
		if err := rows.Scan(&d.ID, &d.Title, &d.Description, &d.Icon, &d.CriteriaType, &d.CriteriaValue, &d.Points); err != nil {
			return nil, err
		}
		defs = append(defs, d)
	}
	return defs, rows.Err()
}

// SyncUser persists unlock events for every newly met criteria and awards the
// achievement points through the exactly-once ledger. Returns the ids
// unlocked by this call.
func (s *AchievementService) SyncUser(ctx context.Context, userID uuid.UUID) ([]string, error) {
	agg, err := s.aggregates(ctx, userID)
	if err != nil {
		return nil, err
	}
	defs, err := s.definitions(ctx)
	if err != nil {
		return nil, err
	}

	var unlocked []string
	for _, d := range defs {
		if !d.Met(agg) {
			continue
		}

		tx, err := s.db.Begin(ctx)
		if err != nil {
			return unlocked, fmt.Errorf("failed to begin transaction: %w", err)
		}

		ct, err := tx.Exec(ctx, `
			INSERT INTO user_achievements (user_id, achievement_id)
			VALUES ($1, $2)
			ON CONFLICT (user_id, achievement_id) DO NOTHING
		`, userID, d.ID)
		if err != nil {
			tx.Rollback(ctx)
			return unlocked, fmt.Errorf("failed to record unlock: %w", err)
		}
		if ct.RowsAffected() == 0 {
			// already unlocked earlier
			tx.Rollback(ctx)
			continue
		}

		if err := awardPoints(ctx, tx, userID, d.Points, awardReasonAchievement, d.ID, d.Title); err != nil && !errors.Is(err, scoring.ErrDuplicateAward) {
			tx.Rollback(ctx)
			return unlocked, err
		}

		if err := tx.Commit(ctx); err != nil {
			return unlocked, fmt.Errorf("failed to commit unlock: %w", err)
		}

		unlocked = append(unlocked, d.ID)
		s.notifyUnlock(userID, d)
	}

	return unlocked, nil
}

func (s *AchievementService) notifyUnlock(userID uuid.UUID, d achievement.Achievement) {
	if s.notification == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	body := fmt.Sprintf("You unlocked %s: %s (+%d points)", d.Title, d.Description, d.Points)
	if err := s.notification.Notify(ctx, userID, notification.TypeAchievementUnlock, "Achievement unlocked!", body, map[string]any{
		"achievement_id": d.ID,
	}); err != nil {
		log.Printf("Failed to notify achievement unlock: %v", err)
	}
}

// List joins the catalog with the caller's unlock state and progress.
func (s *AchievementService) List(ctx context.Context, clerkID string) ([]*achievement.WithStatus, error) {
	userID, err := userIDByClerkID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	agg, err := s.aggregates(ctx, userID)
	if err != nil {
		return nil, err
	}
	defs, err := s.definitions(ctx)
	if err != nil {
		return nil, err
	}

	unlockedAt := map[string]time.Time{}
	rows, err := s.db.Query(ctx, `
		SELECT achievement_id, unlocked_at FROM user_achievements WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load unlocks: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var at time.Time
		if err := rows.Scan(&id, &at); err != nil {
			return nil, err
		}
		unlockedAt[id] = at
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]*achievement.WithStatus, 0, len(defs))
	for _, d := range defs {
		ws := &achievement.WithStatus{
			Achievement: d,
			Progress:    d.ProgressFor(agg),
		}
		if at, ok := unlockedAt[d.ID]; ok {
			ws.Unlocked = true
			at := at
			ws.UnlockedAt = &at
			ws.Progress = 100
		}
		out = append(out, ws)
	}
	return out, nil
}
