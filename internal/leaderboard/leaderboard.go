package leaderboard

import "github.com/google/uuid"

type Entry struct {
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	DisplayName string    `json:"display_name" db:"display_name"`
	ImageURL    *string   `json:"image_url" db:"image_url"`
	Points      int       `json:"points" db:"points"`
	Level       string    `json:"level"`
	Rank        int       `json:"rank" db:"rank"`
}

type Leaderboard struct {
	Entries      []*Entry `json:"entries"`
	UserPosition *Entry   `json:"user_position,omitempty"`
	TotalUsers   int      `json:"total_users"`
}
