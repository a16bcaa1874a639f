// Package repository implements all database queries for the exchange
// event platform. It uses pgx directly (no ORM) for transparency and
// performance.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusbridge/exchange-events/internal/model"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyRegistered is returned when a participation record already
// blocks a new registration for the same (event, user) pair.
var ErrAlreadyRegistered = errors.New("already registered for this event")

// EventRepository handles persistence for events.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `id, title, description, category, location, date,
	 max_participants, min_participants, current_participants,
	 fee, inoutdoor, languages, tags, organizer_id, created_at`

func scanEvent(row pgx.Row) (*model.Event, error) {
	var e model.Event
	err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.Category, &e.Location, &e.Date,
		&e.MaxParticipants, &e.MinParticipants, &e.CurrentParticipants,
		&e.Fee, &e.InOutdoor, &e.Languages, &e.Tags, &e.OrganizerID, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Create inserts a new event and returns it with a generated UUID.
func (r *EventRepository) Create(ctx context.Context, organizerID string, req model.CreateEventRequest) (*model.Event, error) {
	event := &model.Event{
		ID:              uuid.New().String(),
		Title:           req.Title,
		Description:     req.Description,
		Category:        req.Category,
		Location:        req.Location,
		Date:            req.Date,
		MaxParticipants: req.MaxParticipants,
		MinParticipants: req.MinParticipants,
		Fee:             req.Fee,
		InOutdoor:       req.InOutdoor,
		Languages:       req.Languages,
		Tags:            req.Tags,
		OrganizerID:     organizerID,
		CreatedAt:       time.Now().UTC(),
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO events (id, title, description, category, location, date,
		                     max_participants, min_participants, current_participants,
		                     fee, inoutdoor, languages, tags, organizer_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9, $10, $11, $12, $13, $14)`,
		event.ID, event.Title, event.Description, event.Category, event.Location,
		event.Date, event.MaxParticipants, event.MinParticipants,
		event.Fee, event.InOutdoor, event.Languages, event.Tags,
		event.OrganizerID, event.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return event, nil
}

// List returns all events ordered by creation time descending.
func (r *EventRepository) List(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+eventColumns+` FROM events ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// GetByID returns a single event or ErrNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	e, err := scanEvent(r.db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}
