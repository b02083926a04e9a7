package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sweepifyAPI/internal/submission"
)

func TestPointsForCompletion(t *testing.T) {
	tests := []struct {
		name     string
		urgency  submission.Urgency
		site     submission.SiteType
		expected int
	}{
		{"high urgency park", submission.UrgencyHigh, submission.SitePark, 100},
		{"high urgency beach", submission.UrgencyHigh, submission.SiteBeach, 100},
		{"high urgency trail", submission.UrgencyHigh, submission.SiteTrail, 120},
		{"high urgency public", submission.UrgencyHigh, submission.SitePublic, 80},
		{"medium urgency park", submission.UrgencyMedium, submission.SitePark, 75},
		{"medium urgency trail", submission.UrgencyMedium, submission.SiteTrail, 90},
		{"medium urgency public", submission.UrgencyMedium, submission.SitePublic, 60},
		{"low urgency park", submission.UrgencyLow, submission.SitePark, 50},
		{"low urgency trail", submission.UrgencyLow, submission.SiteTrail, 60},
		{"low urgency public", submission.UrgencyLow, submission.SitePublic, 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, PointsForCompletion(tt.urgency, tt.site))
		})
	}
}

func TestPointsForCompletionUnknownEnums(t *testing.T) {
	// Unknown urgency falls back to the lowest band, unknown site to x1.
	assert.Equal(t, 50, PointsForCompletion("critical", submission.SitePark))
	assert.Equal(t, 100, PointsForCompletion(submission.UrgencyHigh, "forest"))
	assert.Equal(t, 50, PointsForCompletion("", ""))
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		points   int
		expected string
	}{
		{0, "Newcomer"},
		{99, "Newcomer"},
		{100, "Beginner"},
		{299, "Beginner"},
		{300, "Explorer"},
		{600, "Warrior"},
		{1000, "Champion"},
		{1499, "Champion"},
		{1500, "Master"},
		{100000, "Master"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, LevelFor(tt.points).Name, "points=%d", tt.points)
	}
}

func TestLevelsOrdered(t *testing.T) {
	for i := 1; i < len(Levels); i++ {
		assert.Greater(t, Levels[i].Threshold, Levels[i-1].Threshold)
	}
}

func TestPointsToNextLevel(t *testing.T) {
	assert.Equal(t, 100, PointsToNextLevel(0))
	assert.Equal(t, 1, PointsToNextLevel(99))
	assert.Equal(t, 200, PointsToNextLevel(100))
	assert.Equal(t, 500, PointsToNextLevel(1000))

	// Terminal tier has nothing left to earn.
	assert.Equal(t, 0, PointsToNextLevel(1500))
	assert.Equal(t, 0, PointsToNextLevel(999999))
}
