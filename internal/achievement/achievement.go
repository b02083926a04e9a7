package achievement

import (
	"time"

	"github.com/google/uuid"
)

type CriteriaType string

const (
	CriteriaCleanups      CriteriaType = "cleanups"
	CriteriaBeachCleanups CriteriaType = "beach_cleanups"
	CriteriaVerifications CriteriaType = "verifications"
	CriteriaStreak        CriteriaType = "streak"
	CriteriaEventsHosted  CriteriaType = "events_hosted"
	CriteriaPoints        CriteriaType = "points"
)

type Achievement struct {
	ID            string       `json:"id" db:"id"`
	Title         string       `json:"title" db:"title"`
	Description   string       `json:"description" db:"description"`
	Icon          string       `json:"icon" db:"icon"`
	CriteriaType  CriteriaType `json:"criteria_type" db:"criteria_type"`
	CriteriaValue int          `json:"criteria_value" db:"criteria_value"`
	Points        int          `json:"points" db:"points"`
}

type UserAchievement struct {
	UserID        uuid.UUID `json:"user_id" db:"user_id"`
	AchievementID string    `json:"achievement_id" db:"achievement_id"`
	UnlockedAt    time.Time `json:"unlocked_at" db:"unlocked_at"`
}

type WithStatus struct {
	Achievement
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
	Progress   int        `json:"progress"` // 0-100
}

// Aggregates is the snapshot of user stats that criteria are evaluated
// against. Unlock state is a pure function of this snapshot.
type Aggregates struct {
	Cleanups      int
	BeachCleanups int
	Verifications int
	StreakDays    int
	EventsHosted  int
	Points        int
}

func (a Aggregates) valueFor(ct CriteriaType) int {
	switch ct {
	case CriteriaCleanups:
		return a.Cleanups
	case CriteriaBeachCleanups:
		return a.BeachCleanups
	case CriteriaVerifications:
		return a.Verifications
	case CriteriaStreak:
		return a.StreakDays
	case CriteriaEventsHosted:
		return a.EventsHosted
	case CriteriaPoints:
		return a.Points
	}
	return 0
}

// Met reports whether the criteria predicate holds for the snapshot.
func (d Achievement) Met(agg Aggregates) bool {
	return d.CriteriaValue > 0 && agg.valueFor(d.CriteriaType) >= d.CriteriaValue
}

// ProgressFor returns percentage toward the criteria, capped at 100.
func (d Achievement) ProgressFor(agg Aggregates) int {
	if d.CriteriaValue <= 0 {
		return 0
	}
	p := agg.valueFor(d.CriteriaType) * 100 / d.CriteriaValue
	if p > 100 {
		p = 100
	}
	if p < 0 {
		p = 0
	}
	return p
}

// Definitions is the static achievement catalog. It is seeded into the
// achievements table and kept here as the source of truth for tests.
var Definitions = []Achievement{
	{ID: "first-steps", Title: "First Steps", Description: "Complete your first cleanup", Icon: "🌱", CriteriaType: CriteriaCleanups, CriteriaValue: 1, Points: 50},
	{ID: "eco-warrior", Title: "Eco Warrior", Description: "Complete 25 cleanups", Icon: "⚔️", CriteriaType: CriteriaCleanups, CriteriaValue: 25, Points: 200},
	{ID: "community-leader", Title: "Community Leader", Description: "Organize 5 community cleanup events", Icon: "👥", CriteriaType: CriteriaEventsHosted, CriteriaValue: 5, Points: 500},
	{ID: "streak-master", Title: "Streak Master", Description: "Keep a 30 day cleanup streak", Icon: "🔥", CriteriaType: CriteriaStreak, CriteriaValue: 30, Points: 300},
	{ID: "verification-expert", Title: "Verification Expert", Description: "Verify 30 community submissions", Icon: "✅", CriteriaType: CriteriaVerifications, CriteriaValue: 30, Points: 250},
	{ID: "beach-guardian", Title: "Beach Guardian", Description: "Complete 10 beach cleanups", Icon: "🏖️", CriteriaType: CriteriaBeachCleanups, CriteriaValue: 10, Points: 400},
}
