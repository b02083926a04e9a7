package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sweepifyAPI/internal/leaderboard"
	"sweepifyAPI/internal/scoring"
	"sweepifyAPI/internal/stats"
	"sweepifyAPI/internal/user"
)

var ErrUserNotFound = errors.New("user not found")

type UserService struct {
	db *pgxpool.Pool
}

func NewUserService(db *pgxpool.Pool) *UserService {
	return &UserService{db: db}
}

func (s *UserService) CreateUser(ctx context.Context, req *user.CreateUserRequest) (*user.User, error) {
	u := &user.User{
		ID:          uuid.New(),
		ClerkID:     req.ClerkID,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		ImageURL:    req.ImageURL,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	err := s.db.QueryRow(ctx, `
		INSERT INTO users (id, clerk_id, email, display_name, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (clerk_id) DO UPDATE SET email = EXCLUDED.email, updated_at = NOW()
		RETURNING id, points, streak_days
	`, u.ID, u.ClerkID, u.Email, u.DisplayName, u.ImageURL, u.CreatedAt, u.UpdatedAt).Scan(&u.ID, &u.Points, &u.StreakDays)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return u, nil
}

func (s *UserService) GetUserByClerkID(ctx context.Context, clerkID string) (*user.User, error) {
	u := &user.User{}
	var imageURL *string
	err := s.db.QueryRow(ctx, `
		SELECT id, clerk_id, email, display_name, image_url, points, streak_days, created_at, updated_at
		FROM users WHERE clerk_id = $1
	`, clerkID).Scan(
		&u.ID, &u.ClerkID, &u.Email, &u.DisplayName, &imageURL,
		&u.Points, &u.StreakDays, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if imageURL != nil {
		u.ImageURL = *imageURL
	}
	return u, nil
}

// GetProfile joins the stored user with the derived level and cleanup count.
func (s *UserService) GetProfile(ctx context.Context, clerkID string) (*user.ProfileResponse, error) {
	u, err := s.GetUserByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	var totalCleanups int
	err = s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM submissions WHERE completed_by = $1
	`, u.ID).Scan(&totalCleanups)
	if err != nil {
		return nil, fmt.Errorf("failed to count cleanups: %w", err)
	}

	return &user.ProfileResponse{
		User:              *u,
		Level:             scoring.LevelFor(u.Points).Name,
		PointsToNextLevel: scoring.PointsToNextLevel(u.Points),
		TotalCleanups:     totalCleanups,
	}, nil
}

func (s *UserService) UpdateProfileByClerkID(ctx context.Context, clerkID string, req *user.UpdateProfileRequest) (*user.User, error) {
	_, err := s.db.Exec(ctx, `
		UPDATE users
		SET display_name = COALESCE($2, display_name),
		    image_url = COALESCE($3, image_url),
		    updated_at = NOW()
		WHERE clerk_id = $1
	`, clerkID, req.DisplayName, req.ImageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return s.GetUserByClerkID(ctx, clerkID)
}

func (s *UserService) DeleteUserByClerkID(ctx context.Context, clerkID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM users WHERE clerk_id = $1`, clerkID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// GetStats assembles the dashboard aggregate snapshot in one round trip per
// concern.
func (s *UserService) GetStats(ctx context.Context, clerkID string) (*stats.UserStats, error) {
	u, err := s.GetUserByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	st := &stats.UserStats{
		Points:            u.Points,
		Level:             scoring.LevelFor(u.Points).Name,
		PointsToNextLevel: scoring.PointsToNextLevel(u.Points),
		StreakDays:        u.StreakDays,
	}

	err = s.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM submissions WHERE completed_by = $1),
			(SELECT COUNT(*) FROM submissions WHERE completed_by = $1 AND site_type = 'beach'),
			(SELECT COUNT(*) FROM verification_votes WHERE verifier_id = $1),
			(SELECT COUNT(*) FROM events WHERE organizer_id = $1),
			(SELECT COUNT(*) FROM event_participants WHERE user_id = $1),
			(SELECT COUNT(*) FROM user_achievements WHERE user_id = $1),
			(SELECT COUNT(*) + 1 FROM users WHERE points > $2)
	`, u.ID, u.Points).Scan(
		&st.TotalCleanups,
		&st.BeachCleanups,
		&st.VerificationsCast,
		&st.EventsHosted,
		&st.EventsJoined,
		&st.AchievementsCount,
		&st.Rank,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load user stats: %w", err)
	}

	return st, nil
}

// GetActivity returns the recent point movements for the dashboard feed.
func (s *UserService) GetActivity(ctx context.Context, clerkID string, limit int) ([]*stats.Activity, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	userID, err := userIDByClerkID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT reason, COALESCE(detail, ''), points, created_at
		FROM point_awards
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load activity: %w", err)
	}
	defer rows.Close()

	var feed []*stats.Activity
	for rows.Next() {
		var a stats.Activity
		if err := rows.Scan(&a.Reason, &a.Detail, &a.Points, &a.CreatedAt); err != nil {
			return nil, err
		}
		feed = append(feed, &a)
	}
	return feed, rows.Err()
}

// GetLeaderboard ranks users by lifetime points and locates the caller.
func (s *UserService) GetLeaderboard(ctx context.Context, clerkID string, limit int) (*leaderboard.Leaderboard, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, display_name, image_url, points,
		       RANK() OVER (ORDER BY points DESC) AS rank
		FROM users
		ORDER BY points DESC, display_name
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}
	defer rows.Close()

	board := &leaderboard.Leaderboard{}
	for rows.Next() {
		var e leaderboard.Entry
		if err := rows.Scan(&e.UserID, &e.DisplayName, &e.ImageURL, &e.Points, &e.Rank); err != nil {
			return nil, err
		}
		e.Level = scoring.LevelFor(e.Points).Name
		board.Entries = append(board.Entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = s.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&board.TotalUsers)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	if clerkID != "" {
		var pos leaderboard.Entry
		err = s.db.QueryRow(ctx, `
			SELECT r.id, r.display_name, r.image_url, r.points, r.rank
			FROM (
				SELECT id, clerk_id, display_name, image_url, points,
				       RANK() OVER (ORDER BY points DESC) AS rank
				FROM users
			) r
			WHERE r.clerk_id = $1
		`, clerkID).Scan(&pos.UserID, &pos.DisplayName, &pos.ImageURL, &pos.Points, &pos.Rank)
		if err == nil {
			pos.Level = scoring.LevelFor(pos.Points).Name
			board.UserPosition = &pos
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("failed to locate caller on leaderboard: %w", err)
		}
	}

	return board, nil
}
