// Package scoring holds the deterministic points policy: what a completed
// cleanup is worth, what a verifier earns, and how lifetime points map to
// levels.
package scoring

import (
	"errors"

	"sweepifyAPI/internal/submission"
)

// VerifierReward is credited to each approving verifier when a submission
// resolves to verified.
const VerifierReward = 25

var urgencyBase = map[submission.Urgency]int{
	submission.UrgencyLow:    50,
	submission.UrgencyMedium: 75,
	submission.UrgencyHigh:   100,
}

// Site multipliers are chosen so every urgency/site pair stays an integer.
var siteMultiplier = map[submission.SiteType]float64{
	submission.SitePark:   1.0,
	submission.SiteBeach:  1.0,
	submission.SiteTrail:  1.2,
	submission.SitePublic: 0.8,
}

// PointsForCompletion computes the award attached to a submission at
// completion time. Unknown enum values fall back to the lowest band.
func PointsForCompletion(urgency submission.Urgency, site submission.SiteType) int {
	base, ok := urgencyBase[urgency]
	if !ok {
		base = urgencyBase[submission.UrgencyLow]
	}
	mult, ok := siteMultiplier[site]
	if !ok {
		mult = 1.0
	}
	return int(float64(base) * mult)
}

type Level struct {
	Name      string `json:"name"`
	Threshold int    `json:"threshold"`
}

// Levels is ordered by ascending threshold; the last entry is terminal.
var Levels = []Level{
	{Name: "Newcomer", Threshold: 0},
	{Name: "Beginner", Threshold: 100},
	{Name: "Explorer", Threshold: 300},
	{Name: "Warrior", Threshold: 600},
	{Name: "Champion", Threshold: 1000},
	{Name: "Master", Threshold: 1500},
}

func LevelFor(points int) Level {
	current := Levels[0]
	for _, l := range Levels {
		if points >= l.Threshold {
			current = l
		}
	}
	return current
}

// PointsToNextLevel returns how many points remain until the next tier, or 0
// at the terminal tier.
func PointsToNextLevel(points int) int {
	for _, l := range Levels {
		if points < l.Threshold {
			return l.Threshold - points
		}
	}
	return 0
}

// ErrDuplicateAward signals that a point award for the same action was
// already applied; the caller must not re-credit.
var ErrDuplicateAward = errors.New("points already awarded for this action")
