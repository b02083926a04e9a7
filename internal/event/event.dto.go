package event

import (
	"errors"
	"time"
)

type CreateEventRequest struct {
	Title           string     `json:"title"`
	Date            string     `json:"date"` // YYYY-MM-DD
	Time            string     `json:"time"` // HH:MM, free text in the UI
	Location        string     `json:"location"`
	MaxParticipants int        `json:"max_participants"`
	Difficulty      Difficulty `json:"difficulty"`
	Duration        string     `json:"duration"`
	Description     string     `json:"description"`
}

var ErrInvalidEvent = errors.New("event payload is invalid")

// Validate checks the payload and parses the date. Past dates are accepted;
// they simply land in the "past" projection.
func (r *CreateEventRequest) Validate() (time.Time, error) {
	if r.Title == "" || r.Location == "" {
		return time.Time{}, ErrInvalidEvent
	}
	if r.MaxParticipants < 1 {
		return time.Time{}, ErrInvalidEvent
	}
	if !r.Difficulty.Valid() {
		return time.Time{}, ErrInvalidEvent
	}
	date, err := time.Parse("2006-01-02", r.Date)
	if err != nil {
		return time.Time{}, ErrInvalidEvent
	}
	return date, nil
}

type JoinResponse struct {
	Event  *Event `json:"event"`
	Joined bool   `json:"joined"`
}

type InviteResponse struct {
	EventID      string `json:"event_id"`
	QrCodeBase64 string `json:"qr_code_base64"`
}
