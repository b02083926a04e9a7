package services

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"sweepifyAPI/internal/notification"
)

type NotificationService struct {
	db   *pgxpool.Pool
	push notification.PushProvider
}

func NewNotificationService(db *pgxpool.Pool) *NotificationService {
	return &NotificationService{db: db}
}

// SetPushProvider injects the FCM provider; without one, notifications are
// stored but never pushed.
func (s *NotificationService) SetPushProvider(p notification.PushProvider) {
	s.push = p
}

// Notify stores a notification row and pushes it to the user's devices. The
// push is best effort: a delivery failure is logged, never returned.
func (s *NotificationService) Notify(ctx context.Context, userID uuid.UUID, ntype notification.Type, title, body string, data map[string]any) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO notifications (user_id, type, title, body, data)
		VALUES ($1, $2, $3, $4, $5)
	`, userID, ntype, title, body, data)
	if err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}

	if s.push == nil {
		return nil
	}

	tokens, err := s.deviceTokens(ctx, userID)
	if err != nil {
		log.Printf("Failed to load device tokens for %s: %v", userID, err)
		return nil
	}
	if err := s.push.SendPush(ctx, tokens, title, body, data); err != nil {
		log.Printf("Push delivery failed for %s: %v", userID, err)
	}
	return nil
}

func (s *NotificationService) deviceTokens(ctx context.Context, userID uuid.UUID) ([]notification.DeviceToken, error) {
	rows, err := s.db.Query(ctx, `
		SELECT user_id, token, platform FROM device_tokens WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []notification.DeviceToken
	for rows.Next() {
		var t notification.DeviceToken
		if err := rows.Scan(&t.UserID, &t.Token, &t.Platform); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (s *NotificationService) RegisterDeviceToken(ctx context.Context, clerkID, token, platform string) error {
	userID, err := userIDByClerkID(ctx, s.db, clerkID)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO device_tokens (user_id, token, platform)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, token) DO UPDATE SET platform = EXCLUDED.platform
	`, userID, token, platform)
	if err != nil {
		return fmt.Errorf("failed to register device token: %w", err)
	}
	return nil
}

func (s *NotificationService) List(ctx context.Context, clerkID string, limit int) ([]*notification.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	userID, err := userIDByClerkID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, type, title, body, data, read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var out []*notification.Notification
	for rows.Next() {
		var n notification.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Body, &n.Data, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}

func (s *NotificationService) MarkAsRead(ctx context.Context, notificationID uuid.UUID, clerkID string) error {
	userID, err := userIDByClerkID(ctx, s.db, clerkID)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2
	`, notificationID, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

func (s *NotificationService) GetUnreadCount(ctx context.Context, clerkID string) (int, error) {
	userID, err := userIDByClerkID(ctx, s.db, clerkID)
	if err != nil {
		return 0, err
	}
	var count int
	err = s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT read
	`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}
