package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrRewardNotFound    = errors.New("reward not found")
	ErrRewardInactive    = errors.New("reward is not available")
	ErrInsufficientFunds = errors.New("not enough points for this reward")
)

type Reward struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	ImageURL    *string   `json:"image_url,omitempty" db:"image_url"`
	Cost        int       `json:"cost" db:"cost"`
	IsActive    bool      `json:"is_active" db:"is_active"`
}

type Redemption struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	RewardID  uuid.UUID `json:"reward_id" db:"reward_id"`
	Cost      int       `json:"cost" db:"cost"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	Balance   int       `json:"balance"`
}

type RewardService struct {
	db *pgxpool.Pool
}

func NewRewardService(db *pgxpool.Pool) *RewardService {
	return &RewardService{db: db}
}

func (s *RewardService) GetRewards(ctx context.Context) ([]*Reward, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, title, description, image_url, cost, is_active
		FROM rewards
		WHERE is_active
		ORDER BY cost
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load rewards: %w", err)
	}
	defer rows.Close()

	var rewards []*Reward
	for rows.Next() {
		var r Reward
		if err := rows.Scan(&r.ID, &r.Title, &r.Description, &r.ImageURL, &r.Cost, &r.IsActive); err != nil {
			return nil, err
		}
		rewards = append(rewards, &r)
	}
	return rewards, rows.Err()
}

// Redeem spends points on a reward. The balance check and decrement happen
// under a row lock so concurrent redemptions cannot overdraw; redemptions
// are the only operation that decreases a user's points.
func (s *RewardService) Redeem(ctx context.Context, clerkID string, rewardID uuid.UUID) (*Redemption, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var reward Reward
	err = tx.QueryRow(ctx, `
		SELECT id, title, cost, is_active FROM rewards WHERE id = $1
	`, rewardID).Scan(&reward.ID, &reward.Title, &reward.Cost, &reward.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRewardNotFound
		}
		return nil, fmt.Errorf("failed to load reward: %w", err)
	}
	if !reward.IsActive {
		return nil, ErrRewardInactive
	}

	var (
		userID uuid.UUID
		points int
	)
	err = tx.QueryRow(ctx, `
		SELECT id, points FROM users WHERE clerk_id = $1 FOR UPDATE
	`, clerkID).Scan(&userID, &points)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if points < reward.Cost {
		return nil, ErrInsufficientFunds
	}

	redemption := &Redemption{Balance: points - reward.Cost}
	err = tx.QueryRow(ctx, `
		INSERT INTO reward_redemptions (user_id, reward_id, cost)
		VALUES ($1, $2, $3)
		RETURNING id, user_id, reward_id, cost, created_at
	`, userID, reward.ID, reward.Cost).Scan(
		&redemption.ID, &redemption.UserID, &redemption.RewardID, &redemption.Cost, &redemption.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record redemption: %w", err)
	}

	// The negative award debits the balance and leaves a ledger entry for
	// the activity feed; the redemption id keys uniqueness.
	if err := awardPoints(ctx, tx, userID, -reward.Cost, "reward_redeemed", redemption.ID.String(), reward.Title); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit redemption: %w", err)
	}

	return redemption, nil
}
