package event

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func (d Difficulty) Valid() bool {
	return d == DifficultyEasy || d == DifficultyMedium || d == DifficultyHard
}

type Event struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	Title           string     `json:"title" db:"title"`
	OrganizerID     uuid.UUID  `json:"organizer_id" db:"organizer_id"`
	OrganizerName   string     `json:"organizer_name,omitempty"`
	Date            time.Time  `json:"date" db:"event_date"`
	TimeOfDay       string     `json:"time" db:"event_time"`
	Location        string     `json:"location" db:"location"`
	MaxParticipants int        `json:"max_participants" db:"max_participants"`
	Participants    int        `json:"participants"`
	Difficulty      Difficulty `json:"difficulty" db:"difficulty"`
	Duration        string     `json:"duration" db:"duration"`
	Description     string     `json:"description" db:"description"`
	Status          Status     `json:"status" db:"status"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}

// Past is a read-side projection, not stored state.
func (e *Event) Past(now time.Time) bool {
	return !e.Date.After(now)
}

// Scope selects which projection of the event list a caller wants. The sets
// overlap: "mine" contains both upcoming and past events.
type Scope string

const (
	ScopeUpcoming Scope = "upcoming"
	ScopePast     Scope = "past"
	ScopeMine     Scope = "mine"
)

func (s Scope) Valid() bool {
	return s == ScopeUpcoming || s == ScopePast || s == ScopeMine
}

// InScope reports whether the event belongs to the projection for the given
// caller at the given instant.
func (e *Event) InScope(scope Scope, callerID uuid.UUID, now time.Time) bool {
	switch scope {
	case ScopeUpcoming:
		return !e.Past(now)
	case ScopePast:
		return e.Past(now)
	case ScopeMine:
		return e.OrganizerID == callerID
	}
	return false
}

var (
	ErrNotFound      = errors.New("event not found")
	ErrEventFull     = errors.New("event is at capacity")
	ErrAlreadyJoined = errors.New("user already joined this event")
	ErrCancelled     = errors.New("event is cancelled")
	ErrNotOrganizer  = errors.New("only the organizer may modify this event")
)
