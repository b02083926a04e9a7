package stats

import "time"

// UserStats is the dashboard aggregate snapshot for one user.
type UserStats struct {
	Points            int    `json:"points"`
	Level             string `json:"level"`
	PointsToNextLevel int    `json:"points_to_next_level"`
	TotalCleanups     int    `json:"total_cleanups"`
	BeachCleanups     int    `json:"beach_cleanups"`
	VerificationsCast int    `json:"verifications_cast"`
	EventsHosted      int    `json:"events_hosted"`
	EventsJoined      int    `json:"events_joined"`
	StreakDays        int    `json:"streak_days"`
	AchievementsCount int    `json:"achievements_count"`
	Rank              int    `json:"rank"`
}

// Activity is one row of the recent point activity feed.
type Activity struct {
	Reason    string    `json:"reason"`
	Detail    string    `json:"detail,omitempty"`
	Points    int       `json:"points"`
	CreatedAt time.Time `json:"created_at"`
}
