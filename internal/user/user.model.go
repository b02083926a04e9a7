package user

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID          uuid.UUID `json:"id" db:"id"`
	ClerkID     string    `json:"clerk_id" db:"clerk_id"`
	Email       string    `json:"email" db:"email"`
	DisplayName string    `json:"display_name" db:"display_name"`
	ImageURL    string    `json:"image_url,omitempty" db:"image_url"`
	// Points only decreases through reward redemptions; every other write is
	// an atomic increment.
	Points     int       `json:"points" db:"points"`
	StreakDays int       `json:"streak_days" db:"streak_days"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}
