package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sweepifyAPI/internal/notification"
)

func TestNotifyListAndRead(t *testing.T) {
	pool := setupTestDB(t)
	svc := NewNotificationService(pool)
	ctx := testContext(t)

	u := createTestUser(t, pool, "recipient")

	err := svc.Notify(ctx, u.ID, notification.TypeSubmissionVerified, "Cleanup verified", "Your cleanup was verified. +100 points!", map[string]any{
		"submission_id": "abc",
	})
	require.NoError(t, err)
	err = svc.Notify(ctx, u.ID, notification.TypeAchievementUnlock, "Achievement unlocked!", "First Steps", nil)
	require.NoError(t, err)

	count, err := svc.GetUnreadCount(ctx, u.ClerkID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	list, err := svc.List(ctx, u.ClerkID, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.False(t, list[0].Read)

	require.NoError(t, svc.MarkAsRead(ctx, list[0].ID, u.ClerkID))

	count, err = svc.GetUnreadCount(ctx, u.ClerkID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMarkAsReadScopedToOwner(t *testing.T) {
	pool := setupTestDB(t)
	svc := NewNotificationService(pool)
	ctx := testContext(t)

	owner := createTestUser(t, pool, "owner")
	other := createTestUser(t, pool, "other")

	require.NoError(t, svc.Notify(ctx, owner.ID, notification.TypeSubmissionDisputed, "Cleanup disputed", "A verifier disputed your cleanup.", nil))

	list, err := svc.List(ctx, owner.ClerkID, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)

	// Another user cannot flip someone else's notification.
	require.NoError(t, svc.MarkAsRead(ctx, list[0].ID, other.ClerkID))

	count, err := svc.GetUnreadCount(ctx, owner.ClerkID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRegisterDeviceTokenUpsert(t *testing.T) {
	pool := setupTestDB(t)
	svc := NewNotificationService(pool)
	ctx := testContext(t)

	u := createTestUser(t, pool, "device")

	require.NoError(t, svc.RegisterDeviceToken(ctx, u.ClerkID, "fcm-token-1", "android"))
	require.NoError(t, svc.RegisterDeviceToken(ctx, u.ClerkID, "fcm-token-1", "ios"))

	tokens, err := svc.deviceTokens(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, "ios", tokens[0].Platform)
}
