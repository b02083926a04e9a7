package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sweepifyAPI/internal/analysis"
	"sweepifyAPI/internal/notification"
	"sweepifyAPI/internal/scoring"
	"sweepifyAPI/internal/submission"
	"sweepifyAPI/middleware"
)

const (
	awardReasonCleanup      = "cleanup_verified"
	awardReasonVerification = "verification_reward"
)

// SubmissionService owns the cleanup submission lifecycle:
// reported -> completed -> {verified, disputed}. All transitions are
// conditional writes against the stored status so concurrent callers
// serialize at the database, not in process memory.
type SubmissionService struct {
	db           *pgxpool.Pool
	quorum       int
	notification *NotificationService
	achievements *AchievementService
}

func NewSubmissionService(db *pgxpool.Pool, quorum int, notificationService *NotificationService) *SubmissionService {
	return &SubmissionService{
		db:           db,
		quorum:       quorum,
		notification: notificationService,
	}
}

// SetAchievementSync wires the achievement service; submission outcomes
// trigger a best-effort unlock sync for the affected users.
func (s *SubmissionService) SetAchievementSync(a *AchievementService) {
	s.achievements = a
}

const submissionColumns = `
	id, location_name, latitude, longitude, description, urgency, site_type,
	before_photo_url, status, points, analysis_score, created_by, created_at,
	after_photo_url, completion_description, completed_by, completed_at,
	resolved_by, resolved_at, approvals, rejections`

func scanSubmission(row pgx.Row) (*submission.Submission, error) {
	var (
		sub          submission.Submission
		afterPhoto   *string
		completeDesc *string
		completedBy  *uuid.UUID
		completedAt  *time.Time
		resolvedBy   *uuid.UUID
		resolvedAt   *time.Time
	)

	err := row.Scan(
		&sub.ID,
		&sub.LocationName,
		&sub.Geolocation.Latitude,
		&sub.Geolocation.Longitude,
		&sub.Description,
		&sub.Urgency,
		&sub.SiteType,
		&sub.BeforePhoto,
		&sub.Status,
		&sub.Points,
		&sub.AnalysisScore,
		&sub.CreatedBy,
		&sub.CreatedAt,
		&afterPhoto,
		&completeDesc,
		&completedBy,
		&completedAt,
		&resolvedBy,
		&resolvedAt,
		&sub.Approvals,
		&sub.Rejections,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, submission.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan submission: %w", err)
	}

	if completedBy != nil && completedAt != nil {
		sub.Completion = &submission.Completion{
			CompletedBy: *completedBy,
			CompletedAt: *completedAt,
		}
		if afterPhoto != nil {
			sub.Completion.AfterPhoto = *afterPhoto
		}
		if completeDesc != nil {
			sub.Completion.Description = *completeDesc
		}
	}
	if resolvedBy != nil && resolvedAt != nil {
		sub.Resolution = &submission.Resolution{
			ResolvedBy: *resolvedBy,
			ResolvedAt: *resolvedAt,
		}
	}

	return &sub, nil
}

// Report creates a new submission in state reported. Validation happens
// before any write.
func (s *SubmissionService) Report(ctx context.Context, clerkID string, req *submission.ReportRequest) (*submission.Submission, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	userID, err := userIDByClerkID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	row := s.db.QueryRow(ctx, `
		INSERT INTO submissions
			(id, location_name, latitude, longitude, description, urgency, site_type, before_photo_url, status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'reported', $9)
		RETURNING `+submissionColumns+`
	`, id, req.LocationName, req.Latitude, req.Longitude, req.Description, req.Urgency, req.SiteType, req.BeforePhotoURL, userID)

	sub, err := scanSubmission(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create submission: %w", err)
	}

	middleware.RecordSubmissionTransition(string(submission.StatusReported))
	return sub, nil
}

// Complete transitions a reported submission to completed, computing and
// storing its point value. The write is conditional on status so exactly one
// of two concurrent completions wins; a retry carrying the winner's
// idempotency key gets the stored record back instead of an error.
func (s *SubmissionService) Complete(ctx context.Context, clerkID string, submissionID uuid.UUID, req *submission.CompleteRequest) (*submission.Submission, error) {
	if req.IdempotencyKey == "" {
		return nil, submission.ErrInvalidPayload
	}

	userID, err := userIDByClerkID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		status        submission.Status
		urgency       submission.Urgency
		siteType      submission.SiteType
		completionKey *string
	)
	err = tx.QueryRow(ctx, `
		SELECT status, urgency, site_type, completion_key
		FROM submissions WHERE id = $1
		FOR UPDATE
	`, submissionID).Scan(&status, &urgency, &siteType, &completionKey)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, submission.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load submission: %w", err)
	}

	switch status {
	case submission.StatusReported:
		// proceed
	case submission.StatusCompleted:
		if completionKey != nil && *completionKey == req.IdempotencyKey {
			return s.getTx(ctx, tx, submissionID)
		}
		return nil, submission.ErrAlreadyCompleted
	default:
		return nil, submission.ErrInvalidTransition
	}

	if req.AfterPhotoURL == "" {
		return nil, submission.ErrInvalidPayload
	}

	points := scoring.PointsForCompletion(urgency, siteType)

	// The analysis score is never client-supplied; it comes from the
	// detection result recorded when the after photo was uploaded.
	row := tx.QueryRow(ctx, `
		UPDATE submissions
		SET status = 'completed',
		    after_photo_url = $2,
		    completion_description = $3,
		    completed_by = $4,
		    completed_at = NOW(),
		    completion_key = $5,
		    points = $6,
		    analysis_score = (SELECT score FROM photo_analyses WHERE url = $2)
		WHERE id = $1 AND status = 'reported'
		RETURNING `+submissionColumns+`
	`, submissionID, req.AfterPhotoURL, req.CompletionDescription, userID, req.IdempotencyKey, points)

	sub, err := scanSubmission(row)
	if err != nil {
		if errors.Is(err, submission.ErrNotFound) {
			// Lost the race after the status check released; only possible if
			// another transaction committed between our lock and this write.
			return nil, submission.ErrAlreadyCompleted
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit completion: %w", err)
	}

	middleware.RecordSubmissionTransition(string(submission.StatusCompleted))
	return sub, nil
}

// Verify records one verifier's vote on a completed submission and resolves
// the submission when the vote tips it: any rejection disputes it, and the
// configured quorum of approvals verifies it. Point attribution happens in
// the same transaction as the terminal transition, exactly once.
func (s *SubmissionService) Verify(ctx context.Context, clerkID string, submissionID uuid.UUID, req *submission.VerifyRequest) (*submission.Submission, error) {
	if !req.Decision.Valid() || req.IdempotencyKey == "" {
		return nil, submission.ErrInvalidPayload
	}

	verifierID, err := userIDByClerkID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		status       submission.Status
		createdBy    uuid.UUID
		completedBy  *uuid.UUID
		points       int
		locationName string
	)
	err = tx.QueryRow(ctx, `
		SELECT status, created_by, completed_by, points, location_name
		FROM submissions WHERE id = $1
		FOR UPDATE
	`, submissionID).Scan(&status, &createdBy, &completedBy, &points, &locationName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, submission.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load submission: %w", err)
	}

	if status == submission.StatusReported {
		return nil, submission.ErrInvalidTransition
	}
	if status.Terminal() {
		if replay, ok, err := s.replayVote(ctx, tx, submissionID, verifierID, req.IdempotencyKey); err != nil {
			return nil, err
		} else if ok {
			return replay, nil
		}
		return nil, submission.ErrSubmissionAlreadyResolved
	}

	if verifierID == createdBy || (completedBy != nil && verifierID == *completedBy) {
		return nil, submission.ErrSelfVerificationForbidden
	}

	approved := req.Decision == submission.DecisionApprove
	ct, err := tx.Exec(ctx, `
		INSERT INTO verification_votes (submission_id, verifier_id, approved, idempotency_key)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (submission_id, verifier_id) DO NOTHING
	`, submissionID, verifierID, approved, req.IdempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("failed to record vote: %w", err)
	}
	if ct.RowsAffected() == 0 {
		if replay, ok, err := s.replayVote(ctx, tx, submissionID, verifierID, req.IdempotencyKey); err != nil {
			return nil, err
		} else if ok {
			return replay, nil
		}
		return nil, submission.ErrDuplicateVote
	}

	var approvals, rejections int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE approved),
		       COUNT(*) FILTER (WHERE NOT approved)
		FROM verification_votes WHERE submission_id = $1
	`, submissionID).Scan(&approvals, &rejections)
	if err != nil {
		return nil, fmt.Errorf("failed to tally votes: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE submissions SET approvals = $2, rejections = $3 WHERE id = $1
	`, submissionID, approvals, rejections)
	if err != nil {
		return nil, fmt.Errorf("failed to store tally: %w", err)
	}

	var outcome submission.Status
	switch {
	case !approved:
		outcome = submission.StatusDisputed
	case approvals >= s.quorum:
		outcome = submission.StatusVerified
	}

	if outcome != "" {
		_, err = tx.Exec(ctx, `
			UPDATE submissions
			SET status = $2, resolved_by = $3, resolved_at = NOW()
			WHERE id = $1 AND status = 'completed'
		`, submissionID, outcome, verifierID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve submission: %w", err)
		}

		if outcome == submission.StatusVerified {
			if err := s.creditVerifiedOutcome(ctx, tx, submissionID, completedBy, points, locationName); err != nil {
				return nil, err
			}
		}
	}

	sub, err := s.getTx(ctx, tx, submissionID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit vote: %w", err)
	}

	if outcome != "" {
		middleware.RecordSubmissionTransition(string(outcome))
		s.notifyOutcome(sub)
		s.syncAchievements(sub, verifierID)
	}

	return sub, nil
}

// replayVote returns the current submission when the verifier's stored vote
// carries the same idempotency key, so ambiguous-failure retries are safe.
func (s *SubmissionService) replayVote(ctx context.Context, tx pgx.Tx, submissionID, verifierID uuid.UUID, key string) (*submission.Submission, bool, error) {
	var storedKey *string
	err := tx.QueryRow(ctx, `
		SELECT idempotency_key FROM verification_votes
		WHERE submission_id = $1 AND verifier_id = $2
	`, submissionID, verifierID).Scan(&storedKey)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to load existing vote: %w", err)
	}
	if storedKey == nil || *storedKey != key {
		return nil, false, nil
	}
	sub, err := s.getTx(ctx, tx, submissionID)
	if err != nil {
		return nil, false, err
	}
	return sub, true, nil
}

// creditVerifiedOutcome awards the submission's points to the completer and
// the fixed reward to every approving verifier, all inside the resolving
// transaction. The point_awards ledger makes each credit exactly-once even
// if the transition is somehow replayed. A nil completer means the account
// was deleted while the submission was pending; their award is skipped.
func (s *SubmissionService) creditVerifiedOutcome(ctx context.Context, tx pgx.Tx, submissionID uuid.UUID, completedBy *uuid.UUID, points int, locationName string) error {
	if completedBy != nil {
		if err := awardPoints(ctx, tx, *completedBy, points, awardReasonCleanup, submissionID.String(), locationName); err != nil {
			if errors.Is(err, scoring.ErrDuplicateAward) {
				return err
			}
			return fmt.Errorf("failed to credit completer: %w", err)
		}
	}

	rows, err := tx.Query(ctx, `
		SELECT verifier_id FROM verification_votes
		WHERE submission_id = $1 AND approved
	`, submissionID)
	if err != nil {
		return fmt.Errorf("failed to list approving verifiers: %w", err)
	}
	defer rows.Close()

	var verifiers []uuid.UUID
	for rows.Next() {
		var vid uuid.UUID
		if err := rows.Scan(&vid); err != nil {
			return fmt.Errorf("failed to scan verifier: %w", err)
		}
		verifiers = append(verifiers, vid)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, vid := range verifiers {
		if err := awardPoints(ctx, tx, vid, scoring.VerifierReward, awardReasonVerification, submissionID.String(), locationName); err != nil {
			return fmt.Errorf("failed to credit verifier: %w", err)
		}
	}
	return nil
}

func (s *SubmissionService) notifyOutcome(sub *submission.Submission) {
	if s.notification == nil || sub.Completion == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var (
		ntype notification.Type
		title string
		body  string
	)
	if sub.Status == submission.StatusVerified {
		ntype = notification.TypeSubmissionVerified
		title = "Cleanup verified"
		body = fmt.Sprintf("Your cleanup at %s was verified by the community. +%d points!", sub.LocationName, sub.Points)
	} else {
		ntype = notification.TypeSubmissionDisputed
		title = "Cleanup disputed"
		body = fmt.Sprintf("Your cleanup at %s was disputed by a verifier.", sub.LocationName)
	}

	if err := s.notification.Notify(ctx, sub.Completion.CompletedBy, ntype, title, body, map[string]any{
		"submission_id": sub.ID.String(),
	}); err != nil {
		log.Printf("Failed to notify submission outcome: %v", err)
	}

	if sub.Status == submission.StatusVerified {
		s.notifyVerifierRewards(ctx, sub)
	}
}

func (s *SubmissionService) notifyVerifierRewards(ctx context.Context, sub *submission.Submission) {
	votes, err := s.Votes(ctx, sub.ID)
	if err != nil {
		log.Printf("Failed to load votes for reward notifications: %v", err)
		return
	}
	body := fmt.Sprintf("Thanks for verifying the cleanup at %s. +%d points!", sub.LocationName, scoring.VerifierReward)
	for _, v := range votes {
		if !v.Approved {
			continue
		}
		if err := s.notification.Notify(ctx, v.VerifierID, notification.TypeVerifierReward, "Verification reward", body, map[string]any{
			"submission_id": sub.ID.String(),
		}); err != nil {
			log.Printf("Failed to notify verifier reward: %v", err)
		}
	}
}

func (s *SubmissionService) syncAchievements(sub *submission.Submission, verifierID uuid.UUID) {
	if s.achievements == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	users := []uuid.UUID{verifierID}
	if sub.Completion != nil {
		users = append(users, sub.Completion.CompletedBy)
	}
	for _, id := range users {
		if _, err := s.achievements.SyncUser(ctx, id); err != nil {
			log.Printf("Failed to sync achievements for %s: %v", id, err)
		}
	}
}

func (s *SubmissionService) getTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*submission.Submission, error) {
	row := tx.QueryRow(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id)
	return scanSubmission(row)
}

func (s *SubmissionService) Get(ctx context.Context, id uuid.UUID) (*submission.Submission, error) {
	row := s.db.QueryRow(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id)
	return scanSubmission(row)
}

// List serves the filtered, keyset-paginated read-side projection.
func (s *SubmissionService) List(ctx context.Context, filter submission.ListFilter) (*submission.ListResponse, error) {
	filter.Normalize()

	where, args, err := filter.WhereClause()
	if err != nil {
		return nil, submission.ErrInvalidPayload
	}

	query := fmt.Sprintf(`
		SELECT %s FROM submissions
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT %d
	`, submissionColumns, where, filter.Limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	var subs []*submission.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	resp := &submission.ListResponse{Submissions: subs}
	if len(subs) > filter.Limit {
		resp.Submissions = subs[:filter.Limit]
		last := resp.Submissions[len(resp.Submissions)-1]
		resp.NextCursor = submission.EncodeCursor(last.CreatedAt, last.ID)
	}
	return resp, nil
}

// RecordAnalysis stores a detection result against the uploaded photo's
// URL so a later completion referencing that photo picks the score up.
func (s *SubmissionService) RecordAnalysis(ctx context.Context, url string, result *analysis.Result) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO photo_analyses (url, score, is_trashy, is_clean)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (url) DO UPDATE
		SET score = EXCLUDED.score, is_trashy = EXCLUDED.is_trashy, is_clean = EXCLUDED.is_clean
	`, url, result.Score, result.IsTrashy, result.IsClean)
	if err != nil {
		return fmt.Errorf("failed to record analysis: %w", err)
	}
	return nil
}

// Votes lists the recorded verification votes for one submission.
func (s *SubmissionService) Votes(ctx context.Context, submissionID uuid.UUID) ([]*submission.Vote, error) {
	rows, err := s.db.Query(ctx, `
		SELECT submission_id, verifier_id, approved, created_at
		FROM verification_votes
		WHERE submission_id = $1
		ORDER BY created_at
	`, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}
	defer rows.Close()

	var votes []*submission.Vote
	for rows.Next() {
		var v submission.Vote
		if err := rows.Scan(&v.SubmissionID, &v.VerifierID, &v.Approved, &v.CreatedAt); err != nil {
			return nil, err
		}
		votes = append(votes, &v)
	}
	return votes, rows.Err()
}
