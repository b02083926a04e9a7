package services

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sweepifyAPI/internal/analysis"
	"sweepifyAPI/internal/scoring"
	"sweepifyAPI/internal/submission"
	"sweepifyAPI/internal/user"
)

func reportTestSubmission(t *testing.T, svc *SubmissionService, creator *user.User, urgency submission.Urgency, site submission.SiteType) *submission.Submission {
	t.Helper()
	sub, err := svc.Report(testContext(t), creator.ClerkID, &submission.ReportRequest{
		LocationName:   "Riverside Park",
		Latitude:       42.69,
		Longitude:      23.32,
		Description:    "Bottles and wrappers near the playground",
		Urgency:        urgency,
		SiteType:       site,
		BeforePhotoURL: "https://storage.googleapis.com/test/before.jpg",
	})
	require.NoError(t, err)
	require.Equal(t, submission.StatusReported, sub.Status)
	return sub
}

func completeTestSubmission(t *testing.T, svc *SubmissionService, completer *user.User, id uuid.UUID, key string) *submission.Submission {
	t.Helper()
	sub, err := svc.Complete(testContext(t), completer.ClerkID, id, &submission.CompleteRequest{
		AfterPhotoURL:  "https://storage.googleapis.com/test/after.jpg",
		IdempotencyKey: key,
	})
	require.NoError(t, err)
	require.Equal(t, submission.StatusCompleted, sub.Status)
	return sub
}

func userPoints(t *testing.T, pool *pgxpool.Pool, clerkID string) int {
	t.Helper()
	u, err := NewUserService(pool).GetUserByClerkID(testContext(t), clerkID)
	require.NoError(t, err)
	return u.Points
}

func TestSubmissionLifecycleVerified(t *testing.T) {
	pool := setupTestDB(t)
	svc := NewSubmissionService(pool, 2, nil)
	ctx := testContext(t)

	creator := createTestUser(t, pool, "creator")
	completer := createTestUser(t, pool, "completer")
	verifierA := createTestUser(t, pool, "verifier-a")
	verifierB := createTestUser(t, pool, "verifier-b")

	sub := reportTestSubmission(t, svc, creator, submission.UrgencyHigh, submission.SiteTrail)
	completed := completeTestSubmission(t, svc, completer, sub.ID, "complete-key-1")
	assert.Equal(t, 120, completed.Points)
	require.NotNil(t, completed.Completion)
	assert.Equal(t, completer.ID, completed.Completion.CompletedBy)

	// No points move before the terminal transition.
	assert.Equal(t, 0, userPoints(t, pool, completer.ClerkID))

	afterFirst, err := svc.Verify(ctx, verifierA.ClerkID, sub.ID, &submission.VerifyRequest{
		Decision: submission.DecisionApprove, IdempotencyKey: "vote-a",
	})
	require.NoError(t, err)
	assert.Equal(t, submission.StatusCompleted, afterFirst.Status)
	assert.Equal(t, 1, afterFirst.Approvals)

	verified, err := svc.Verify(ctx, verifierB.ClerkID, sub.ID, &submission.VerifyRequest{
		Decision: submission.DecisionApprove, IdempotencyKey: "vote-b",
	})
	require.NoError(t, err)
	assert.Equal(t, submission.StatusVerified, verified.Status)
	assert.Equal(t, 2, verified.Approvals)
	require.NotNil(t, verified.Resolution)
	assert.Equal(t, verifierB.ID, verified.Resolution.ResolvedBy)

	assert.Equal(t, 120, userPoints(t, pool, completer.ClerkID))
	assert.Equal(t, scoring.VerifierReward, userPoints(t, pool, verifierA.ClerkID))
	assert.Equal(t, scoring.VerifierReward, userPoints(t, pool, verifierB.ClerkID))
	assert.Equal(t, 0, userPoints(t, pool, creator.ClerkID))
}

func TestCompleteIdempotentReplay(t *testing.T) {
	pool := setupTestDB(t)
	svc := NewSubmissionService(pool, 3, nil)
	ctx := testContext(t)

	creator := createTestUser(t, pool, "creator")
	completer := createTestUser(t, pool, "completer")

	sub := reportTestSubmission(t, svc, creator, submission.UrgencyMedium, submission.SitePark)
	first := completeTestSubmission(t, svc, completer, sub.ID, "retry-key")

	// Same key replays the stored record instead of failing.
	replay, err := svc.Complete(ctx, completer.ClerkID, sub.ID, &submission.CompleteRequest{
		AfterPhotoURL:  "https://storage.googleapis.com/test/after.jpg",
		IdempotencyKey: "retry-key",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, replay.ID)
	assert.Equal(t, submission.StatusCompleted, replay.Status)
	assert.Equal(t, first.Points, replay.Points)

	// A different key is a lost race, not a retry.
	_, err = svc.Complete(ctx, creator.ClerkID, sub.ID, &submission.CompleteRequest{
		AfterPhotoURL:  "https://storage.googleapis.com/test/other.jpg",
		IdempotencyKey: "other-key",
	})
	assert.ErrorIs(t, err, submission.ErrAlreadyCompleted)
}

func TestCompleteValidation(t *testing.T) {
	pool := setupTestDB(t)
	svc := NewSubmissionService(pool, 3, nil)
	ctx := testContext(t)

	creator := createTestUser(t, pool, "creator")
	sub := reportTestSubmission(t, svc, creator, submission.UrgencyLow, submission.SitePublic)

	_, err := svc.Complete(ctx, creator.ClerkID, sub.ID, &submission.CompleteRequest{
		AfterPhotoURL: "https://storage.googleapis.com/test/after.jpg",
	})
	assert.ErrorIs(t, err, submission.ErrInvalidPayload, "idempotency key is required")

	_, err = svc.Complete(ctx, creator.ClerkID, sub.ID, &submission.CompleteRequest{
		IdempotencyKey: "key-without-photo",
	})
	assert.ErrorIs(t, err, submission.ErrInvalidPayload, "after photo is required")

	_, err = svc.Complete(ctx, creator.ClerkID, uuid.New(), &submission.CompleteRequest{
		AfterPhotoURL:  "https://storage.googleapis.com/test/after.jpg",
		IdempotencyKey: "key",
	})
	assert.ErrorIs(t, err, submission.ErrNotFound)
}

func TestCompleteAttachesRecordedAnalysis(t *testing.T) {
	pool := setupTestDB(t)
	svc := NewSubmissionService(pool, 3, nil)
	ctx := testContext(t)

	creator := createTestUser(t, pool, "creator")
	completer := createTestUser(t, pool, "completer")

	sub := reportTestSubmission(t, svc, creator, submission.UrgencyMedium, submission.SitePark)

	afterURL := fmt.Sprintf("https://storage.googleapis.com/test/after-%s.jpg", uuid.NewString()[:8])
	require.NoError(t, svc.RecordAnalysis(ctx, afterURL, &analysis.Result{Score: 87, IsTrashy: true}))

	// The stored score follows the photo onto the completion.
	completed, err := svc.Complete(ctx, completer.ClerkID, sub.ID, &submission.CompleteRequest{
		AfterPhotoURL:  afterURL,
		IdempotencyKey: "analysis-key",
	})
	require.NoError(t, err)
	require.NotNil(t, completed.AnalysisScore)
	assert.Equal(t, 87, *completed.AnalysisScore)

	// A photo that was never analyzed carries no score.
	other := reportTestSubmission(t, svc, creator, submission.UrgencyMedium, submission.SitePark)
	plain, err := svc.Complete(ctx, completer.ClerkID, other.ID, &submission.CompleteRequest{
		AfterPhotoURL:  "https://storage.googleapis.com/test/unscored.jpg",
		IdempotencyKey: "analysis-key-2",
	})
	require.NoError(t, err)
	assert.Nil(t, plain.AnalysisScore)
}

func TestVerifyRejectionDisputes(t *testing.T) {
	pool := setupTestDB(t)
	svc := NewSubmissionService(pool, 3, nil)
	ctx := testContext(t)

	creator := createTestUser(t, pool, "creator")
	completer := createTestUser(t, pool, "completer")
	approver := createTestUser(t, pool, "approver")
	rejecter := createTestUser(t, pool, "rejecter")
	latecomer := createTestUser(t, pool, "latecomer")

	sub := reportTestSubmission(t, svc, creator, submission.UrgencyHigh, submission.SitePark)
	completeTestSubmission(t, svc, completer, sub.ID, "key")

	_, err := svc.Verify(ctx, approver.ClerkID, sub.ID, &submission.VerifyRequest{
		Decision: submission.DecisionApprove, IdempotencyKey: "approve-1",
	})
	require.NoError(t, err)

	// A single rejection overrides any number of prior approvals.
	disputed, err := svc.Verify(ctx, rejecter.ClerkID, sub.ID, &submission.VerifyRequest{
		Decision: submission.DecisionReject, IdempotencyKey: "reject-1",
	})
	require.NoError(t, err)
	assert.Equal(t, submission.StatusDisputed, disputed.Status)
	assert.Equal(t, 1, disputed.Approvals)
	assert.Equal(t, 1, disputed.Rejections)

	// Disputed moves no points, including to the earlier approver.
	assert.Equal(t, 0, userPoints(t, pool, completer.ClerkID))
	assert.Equal(t, 0, userPoints(t, pool, approver.ClerkID))

	// Disputed is terminal; a fresh vote is rejected.
	_, err = svc.Verify(ctx, latecomer.ClerkID, sub.ID, &submission.VerifyRequest{
		Decision: submission.DecisionApprove, IdempotencyKey: "late-1",
	})
	assert.ErrorIs(t, err, submission.ErrSubmissionAlreadyResolved)

	// But a retry of the tipping vote replays the resolved record.
	replay, err := svc.Verify(ctx, rejecter.ClerkID, sub.ID, &submission.VerifyRequest{
		Decision: submission.DecisionReject, IdempotencyKey: "reject-1",
	})
	require.NoError(t, err)
	assert.Equal(t, submission.StatusDisputed, replay.Status)
}

func TestVerifySelfAndDuplicateRules(t *testing.T) {
	pool := setupTestDB(t)
	svc := NewSubmissionService(pool, 3, nil)
	ctx := testContext(t)

	creator := createTestUser(t, pool, "creator")
	completer := createTestUser(t, pool, "completer")
	verifier := createTestUser(t, pool, "verifier")

	sub := reportTestSubmission(t, svc, creator, submission.UrgencyMedium, submission.SiteBeach)

	// Votes only apply to completed submissions.
	_, err := svc.Verify(ctx, verifier.ClerkID, sub.ID, &submission.VerifyRequest{
		Decision: submission.DecisionApprove, IdempotencyKey: "early",
	})
	assert.ErrorIs(t, err, submission.ErrInvalidTransition)

	completeTestSubmission(t, svc, completer, sub.ID, "key")

	// Neither the reporter nor the completer can vote.
	_, err = svc.Verify(ctx, creator.ClerkID, sub.ID, &submission.VerifyRequest{
		Decision: submission.DecisionApprove, IdempotencyKey: "self-1",
	})
	assert.ErrorIs(t, err, submission.ErrSelfVerificationForbidden)

	_, err = svc.Verify(ctx, completer.ClerkID, sub.ID, &submission.VerifyRequest{
		Decision: submission.DecisionApprove, IdempotencyKey: "self-2",
	})
	assert.ErrorIs(t, err, submission.ErrSelfVerificationForbidden)

	// One vote per verifier. A same-key retry replays, a new key conflicts.
	_, err = svc.Verify(ctx, verifier.ClerkID, sub.ID, &submission.VerifyRequest{
		Decision: submission.DecisionApprove, IdempotencyKey: "vote-1",
	})
	require.NoError(t, err)

	replay, err := svc.Verify(ctx, verifier.ClerkID, sub.ID, &submission.VerifyRequest{
		Decision: submission.DecisionApprove, IdempotencyKey: "vote-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, replay.Approvals)

	_, err = svc.Verify(ctx, verifier.ClerkID, sub.ID, &submission.VerifyRequest{
		Decision: submission.DecisionReject, IdempotencyKey: "vote-2",
	})
	assert.ErrorIs(t, err, submission.ErrDuplicateVote)

	votes, err := svc.Votes(ctx, sub.ID)
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.True(t, votes[0].Approved)
}

func TestVerifyQuorumUnderConcurrency(t *testing.T) {
	pool := setupTestDB(t)
	svc := NewSubmissionService(pool, 3, nil)
	ctx := testContext(t)

	creator := createTestUser(t, pool, "creator")
	completer := createTestUser(t, pool, "completer")

	sub := reportTestSubmission(t, svc, creator, submission.UrgencyHigh, submission.SiteTrail)
	completeTestSubmission(t, svc, completer, sub.ID, "key")

	verifiers := make([]*user.User, 5)
	for i := range verifiers {
		verifiers[i] = createTestUser(t, pool, fmt.Sprintf("verifier-%d", i))
	}

	// All five vote approve at once against quorum 3. The row lock
	// serializes them: exactly three votes land, the third resolves, and
	// the stragglers find a terminal submission.
	errs := make([]error, len(verifiers))
	var wg sync.WaitGroup
	for i, v := range verifiers {
		wg.Add(1)
		go func(i int, clerkID string) {
			defer wg.Done()
			_, errs[i] = svc.Verify(ctx, clerkID, sub.ID, &submission.VerifyRequest{
				Decision: submission.DecisionApprove, IdempotencyKey: fmt.Sprintf("storm-%d", i),
			})
		}(i, v.ClerkID)
	}
	wg.Wait()

	var wins, losers int
	for i, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, submission.ErrSubmissionAlreadyResolved):
			losers++
		default:
			t.Fatalf("verifier %d: unexpected error: %v", i, err)
		}
	}
	assert.Equal(t, 3, wins)
	assert.Equal(t, 2, losers)

	final, err := svc.Get(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, submission.StatusVerified, final.Status)
	assert.Equal(t, 3, final.Approvals)

	votes, err := svc.Votes(ctx, sub.ID)
	require.NoError(t, err)
	require.Len(t, votes, 3)

	// One tipping transaction: the completer is credited exactly once, and
	// only verifiers whose vote landed get the reward.
	assert.Equal(t, 120, userPoints(t, pool, completer.ClerkID))

	recorded := map[uuid.UUID]bool{}
	for _, v := range votes {
		recorded[v.VerifierID] = true
	}
	for i, v := range verifiers {
		want := 0
		if recorded[v.ID] {
			want = scoring.VerifierReward
		}
		assert.Equal(t, want, userPoints(t, pool, v.ClerkID), "verifier %d", i)
	}
}

func TestListFiltersAndPagination(t *testing.T) {
	pool := setupTestDB(t)
	svc := NewSubmissionService(pool, 3, nil)
	ctx := testContext(t)

	creator := createTestUser(t, pool, "creator")
	for i := 0; i < 3; i++ {
		reportTestSubmission(t, svc, creator, submission.UrgencyHigh, submission.SiteBeach)
	}

	page, err := svc.List(ctx, submission.ListFilter{
		Status:   submission.StatusReported,
		SiteType: submission.SiteBeach,
		Limit:    2,
	})
	require.NoError(t, err)
	assert.Len(t, page.Submissions, 2)
	require.NotEmpty(t, page.NextCursor)

	rest, err := svc.List(ctx, submission.ListFilter{
		Status:   submission.StatusReported,
		SiteType: submission.SiteBeach,
		Cursor:   page.NextCursor,
		Limit:    2,
	})
	require.NoError(t, err)
	require.NotEmpty(t, rest.Submissions)

	// Keyset pages never overlap.
	seen := map[uuid.UUID]bool{}
	for _, s := range page.Submissions {
		seen[s.ID] = true
	}
	for _, s := range rest.Submissions {
		assert.False(t, seen[s.ID], "submission %s appeared on both pages", s.ID)
	}
}
