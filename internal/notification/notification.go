package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeSubmissionVerified Type = "submission_verified"
	TypeSubmissionDisputed Type = "submission_disputed"
	TypeVerifierReward     Type = "verifier_reward"
	TypeAchievementUnlock  Type = "achievement_unlock"
)

type Notification struct {
	ID        uuid.UUID      `json:"id" db:"id"`
	UserID    uuid.UUID      `json:"user_id" db:"user_id"`
	Type      Type           `json:"type" db:"type"`
	Title     string         `json:"title" db:"title"`
	Body      string         `json:"body" db:"body"`
	Data      map[string]any `json:"data,omitempty"`
	Read      bool           `json:"read" db:"read"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}

type DeviceToken struct {
	UserID   uuid.UUID `json:"user_id" db:"user_id"`
	Token    string    `json:"token" db:"token"`
	Platform string    `json:"platform" db:"platform"`
}

// PushProvider delivers a notification to a user's devices. Delivery is best
// effort; failures never roll back the state change that produced the
// notification.
type PushProvider interface {
	SendPush(ctx context.Context, tokens []DeviceToken, title, body string, data map[string]any) error
}
