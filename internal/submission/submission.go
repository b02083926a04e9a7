package submission

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusReported  Status = "reported"
	StatusCompleted Status = "completed"
	StatusVerified  Status = "verified"
	StatusDisputed  Status = "disputed"
)

// TerminalStatuses are final: there is no re-review path out of disputed.
var TerminalStatuses = []Status{StatusVerified, StatusDisputed}

func (s Status) Terminal() bool {
	return s == StatusVerified || s == StatusDisputed
}

type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

func (u Urgency) Valid() bool {
	return u == UrgencyLow || u == UrgencyMedium || u == UrgencyHigh
}

type SiteType string

const (
	SitePark   SiteType = "park"
	SiteBeach  SiteType = "beach"
	SiteTrail  SiteType = "trail"
	SitePublic SiteType = "public"
)

func (t SiteType) Valid() bool {
	return t == SitePark || t == SiteBeach || t == SiteTrail || t == SitePublic
}

type Geolocation struct {
	Latitude  float64 `json:"latitude" db:"latitude"`
	Longitude float64 `json:"longitude" db:"longitude"`
}

func (g Geolocation) Valid() bool {
	if g.Latitude == 0 && g.Longitude == 0 {
		return false
	}
	return g.Latitude >= -90 && g.Latitude <= 90 && g.Longitude >= -180 && g.Longitude <= 180
}

// Completion is set once a reported submission is cleaned up. Nil before.
type Completion struct {
	CompletedBy uuid.UUID `json:"completed_by" db:"completed_by"`
	CompletedAt time.Time `json:"completed_at" db:"completed_at"`
	AfterPhoto  string    `json:"after_photo_url" db:"after_photo_url"`
	Description string    `json:"completion_description,omitempty" db:"completion_description"`
}

// Resolution is set exactly once when the community resolves a completed
// submission. ResolvedBy is the verifier whose vote tipped the outcome.
type Resolution struct {
	ResolvedBy uuid.UUID `json:"resolved_by" db:"resolved_by"`
	ResolvedAt time.Time `json:"resolved_at" db:"resolved_at"`
}

type Submission struct {
	ID            uuid.UUID   `json:"id" db:"id"`
	LocationName  string      `json:"location_name" db:"location_name"`
	Geolocation   Geolocation `json:"geolocation"`
	Description   string      `json:"description" db:"description"`
	Urgency       Urgency     `json:"urgency" db:"urgency"`
	SiteType      SiteType    `json:"site_type" db:"site_type"`
	BeforePhoto   string      `json:"before_photo_url" db:"before_photo_url"`
	Status        Status      `json:"status" db:"status"`
	Points        int         `json:"points" db:"points"`
	AnalysisScore *int        `json:"analysis_score,omitempty" db:"analysis_score"`
	CreatedBy     uuid.UUID   `json:"created_by" db:"created_by"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`

	Completion *Completion `json:"completion,omitempty"`
	Resolution *Resolution `json:"resolution,omitempty"`

	Approvals  int `json:"approvals" db:"approvals"`
	Rejections int `json:"rejections" db:"rejections"`
}

type Vote struct {
	SubmissionID uuid.UUID `json:"submission_id" db:"submission_id"`
	VerifierID   uuid.UUID `json:"verifier_id" db:"verifier_id"`
	Approved     bool      `json:"approved" db:"approved"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

var (
	ErrNotFound                  = errors.New("submission not found")
	ErrInvalidLocation           = errors.New("geolocation missing or out of range")
	ErrInvalidPayload            = errors.New("required field or photo missing")
	ErrInvalidTransition         = errors.New("submission is not in the required state")
	ErrAlreadyCompleted          = errors.New("submission was already completed")
	ErrDuplicateVote             = errors.New("verifier already voted on this submission")
	ErrSubmissionAlreadyResolved = errors.New("submission already resolved")
	ErrSelfVerificationForbidden = errors.New("cannot verify your own submission")
)
