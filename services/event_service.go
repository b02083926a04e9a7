package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/skip2/go-qrcode"

	"sweepifyAPI/internal/event"
)

type EventService struct {
	db *pgxpool.Pool
}

func NewEventService(db *pgxpool.Pool) *EventService {
	return &EventService{db: db}
}

const eventColumns = `
	e.id, e.title, e.organizer_id, u.display_name, e.event_date, e.event_time,
	e.location, e.max_participants, e.difficulty, e.duration, e.description,
	e.status, e.created_at,
	(SELECT COUNT(*) FROM event_participants p WHERE p.event_id = e.id) AS participants`

func scanEvent(row pgx.Row) (*event.Event, error) {
	var e event.Event
	err := row.Scan(
		&e.ID,
		&e.Title,
		&e.OrganizerID,
		&e.OrganizerName,
		&e.Date,
		&e.TimeOfDay,
		&e.Location,
		&e.MaxParticipants,
		&e.Difficulty,
		&e.Duration,
		&e.Description,
		&e.Status,
		&e.CreatedAt,
		&e.Participants,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, event.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan event: %w", err)
	}
	return &e, nil
}

// Create validates and stores a new community cleanup event. The organizer
// joins their own event automatically.
func (s *EventService) Create(ctx context.Context, clerkID string, req *event.CreateEventRequest) (*event.Event, error) {
	date, err := req.Validate()
	if err != nil {
		return nil, err
	}

	organizerID, err := userIDByClerkID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	id := uuid.New()
	_, err = tx.Exec(ctx, `
		INSERT INTO events
			(id, title, organizer_id, event_date, event_time, location, max_participants, difficulty, duration, description, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 'active')
	`, id, req.Title, organizerID, date, req.Time, req.Location, req.MaxParticipants, req.Difficulty, req.Duration, req.Description)
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO event_participants (event_id, user_id) VALUES ($1, $2)
	`, id, organizerID)
	if err != nil {
		return nil, fmt.Errorf("failed to add organizer as participant: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return s.Get(ctx, id)
}

func (s *EventService) Get(ctx context.Context, id uuid.UUID) (*event.Event, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+eventColumns+`
		FROM events e JOIN users u ON u.id = e.organizer_id
		WHERE e.id = $1
	`, id)
	return scanEvent(row)
}

// Join adds the caller as a participant. The event row is locked for the
// capacity check so concurrent joins past capacity lose with ErrEventFull,
// and the participants primary key rejects duplicate joins.
func (s *EventService) Join(ctx context.Context, clerkID string, eventID uuid.UUID) (*event.Event, error) {
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
		status          event.Status
		maxParticipants int
	)
	err = tx.QueryRow(ctx, `
		SELECT status, max_participants FROM events WHERE id = $1 FOR UPDATE
	`, eventID).Scan(&status, &maxParticipants)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, event.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load event: %w", err)
	}
	if status == event.StatusCancelled {
		return nil, event.ErrCancelled
	}

	var participants int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM event_participants WHERE event_id = $1
	`, eventID).Scan(&participants)
	if err != nil {
		return nil, fmt.Errorf("failed to count participants: %w", err)
	}
	if participants >= maxParticipants {
		return nil, event.ErrEventFull
	}

	ct, err := tx.Exec(ctx, `
		INSERT INTO event_participants (event_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (event_id, user_id) DO NOTHING
	`, eventID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to join event: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return nil, event.ErrAlreadyJoined
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return s.Get(ctx, eventID)
}

func (s *EventService) Leave(ctx context.Context, clerkID string, eventID uuid.UUID) (*event.Event, error) {
	userID, err := userIDByClerkID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	_, err = s.db.Exec(ctx, `
		DELETE FROM event_participants WHERE event_id = $1 AND user_id = $2
	`, eventID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to leave event: %w", err)
	}

	return s.Get(ctx, eventID)
}

// Cancel marks the event cancelled. Only the organizer may cancel.
func (s *EventService) Cancel(ctx context.Context, clerkID string, eventID uuid.UUID) (*event.Event, error) {
	userID, err := userIDByClerkID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	ct, err := s.db.Exec(ctx, `
		UPDATE events SET status = 'cancelled' WHERE id = $1 AND organizer_id = $2
	`, eventID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel event: %w", err)
	}
	if ct.RowsAffected() == 0 {
		if _, err := s.Get(ctx, eventID); err != nil {
			return nil, err
		}
		return nil, event.ErrNotOrganizer
	}

	return s.Get(ctx, eventID)
}

// ListFilter mirrors the community page filters: scope tab, search box,
// location and difficulty dropdowns.
type EventListFilter struct {
	Scope      event.Scope
	Query      string
	Location   string
	Difficulty event.Difficulty
}

// List returns events for one scope projection. The scopes overlap by
// design: "mine" contains both upcoming and past events of the caller.
func (s *EventService) List(ctx context.Context, clerkID string, filter EventListFilter) ([]*event.Event, error) {
	if filter.Scope == "" {
		filter.Scope = event.ScopeUpcoming
	}
	if !filter.Scope.Valid() {
		return nil, event.ErrInvalidEvent
	}

	args := []any{}
	where := "e.status = 'active'"

	switch filter.Scope {
	case event.ScopeUpcoming:
		where += " AND e.event_date > NOW()"
	case event.ScopePast:
		where += " AND e.event_date <= NOW()"
	case event.ScopeMine:
		callerID, err := userIDByClerkID(ctx, s.db, clerkID)
		if err != nil {
			return nil, err
		}
		args = append(args, callerID)
		where = fmt.Sprintf("e.organizer_id = $%d", len(args))
	}

	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		n := len(args)
		where += fmt.Sprintf(" AND (e.title ILIKE $%d OR e.description ILIKE $%d OR e.location ILIKE $%d OR u.display_name ILIKE $%d)", n, n, n, n)
	}
	if filter.Location != "" {
		args = append(args, "%"+filter.Location+"%")
		where += fmt.Sprintf(" AND e.location ILIKE $%d", len(args))
	}
	if filter.Difficulty != "" {
		args = append(args, string(filter.Difficulty))
		where += fmt.Sprintf(" AND e.difficulty = $%d", len(args))
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM events e JOIN users u ON u.id = e.organizer_id
		WHERE %s
		ORDER BY e.event_date, e.created_at
		LIMIT 50
	`, eventColumns, where)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*event.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Invite renders a QR code that deep links into the event join flow.
func (s *EventService) Invite(ctx context.Context, eventID uuid.UUID) (*event.InviteResponse, error) {
	if _, err := s.Get(ctx, eventID); err != nil {
		return nil, err
	}

	content := fmt.Sprintf("sweepify://events/join/%s", eventID)
	pngBytes, err := qrcode.Encode(content, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR png: %w", err)
	}

	return &event.InviteResponse{
		EventID:      eventID.String(),
		QrCodeBase64: base64.StdEncoding.EncodeToString(pngBytes),
	}, nil
}
