// Package model defines the core domain types for the campus exchange
// event platform.
package model

import (
	"strings"
	"time"
)

// Date layouts accepted on events. Events created through the UI carry
// a time component; imported legacy rows may be date-only.
const (
	DateTimeLayout = "2006-01-02 15:04"
	DateOnlyLayout = "2006-01-02"
)

// InOutdoor is the indoor/outdoor marker on an event.
type InOutdoor string

const (
	Indoor  InOutdoor = "in"
	Outdoor InOutdoor = "out"
)

// Event represents a cross-cultural exchange event created by an organizer.
//
// Date is kept as the raw "YYYY-MM-DD HH:MM" string (time part optional):
// the filter predicates are defined on the string form, and parsing only
// happens when deriving completion.
type Event struct {
	ID                  string    `json:"id"`
	Title               string    `json:"title"`
	Description         string    `json:"description"`
	Category            string    `json:"category"`
	Location            string    `json:"location"`
	Date                string    `json:"date"`
	MaxParticipants     int       `json:"max_participants"`
	MinParticipants     *int      `json:"min_participants,omitempty"`
	CurrentParticipants int       `json:"current_participants"`
	Fee                 *int      `json:"fee,omitempty"`
	InOutdoor           InOutdoor `json:"inoutdoor,omitempty"`
	Languages           []string  `json:"languages"`
	Tags                []string  `json:"tags"`
	OrganizerID         string    `json:"organizer_id"`
	CreatedAt           time.Time `json:"created_at"`
}

// Remaining returns the number of open seats.
func (e *Event) Remaining() int {
	return e.MaxParticipants - e.CurrentParticipants
}

// IsFull reports whether new registrations would be waitlisted.
func (e *Event) IsFull() bool {
	return e.CurrentParticipants >= e.MaxParticipants
}

// StartTime parses the event date. The boolean is false when the date
// string matches neither accepted layout.
func (e *Event) StartTime() (time.Time, bool) {
	raw := strings.TrimSpace(e.Date)
	if t, err := time.Parse(DateTimeLayout, raw); err == nil {
		return t, true
	}
	if t, err := time.Parse(DateOnlyLayout, raw); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// Completed reports whether the event lies strictly in the past at now.
// An unparsable date never counts as completed.
func (e *Event) Completed(now time.Time) bool {
	t, ok := e.StartTime()
	if !ok {
		return false
	}
	return t.Before(now)
}

// TimePart returns the "HH:MM" portion of the date string, or "" when
// the event carries no time component.
func (e *Event) TimePart() string {
	parts := strings.SplitN(strings.TrimSpace(e.Date), " ", 2)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// ParticipationStatus tracks one user's registration state for one event.
type ParticipationStatus string

const (
	StatusRegistered ParticipationStatus = "registered"
	StatusWaitlist   ParticipationStatus = "waitlist"
	StatusCancelled  ParticipationStatus = "cancelled"
)

// Active reports whether the status still occupies (or queues for) a seat.
func (s ParticipationStatus) Active() bool {
	return s == StatusRegistered || s == StatusWaitlist
}

// Participation is the join entity recording one user's registration
// attempt for one event. Rows are never deleted or re-activated: a user
// who cancels and rejoins gets a brand-new row.
type Participation struct {
	ID           string              `json:"id"`
	EventID      string              `json:"event_id"`
	UserID       string              `json:"user_id"`
	Status       ParticipationStatus `json:"status"`
	RegisteredAt time.Time           `json:"registered_at"`
	CancelledAt  *time.Time          `json:"cancelled_at,omitempty"`
}

// UserEvent is a participation joined with its event, as returned by
// the "my events" read paths.
type UserEvent struct {
	Participation Participation `json:"participation"`
	Event         Event         `json:"event"`
}

// Profile holds the public exchange profile for a user. Profiles are
// maintained elsewhere; this service only reads them.
type Profile struct {
	UserID      string   `json:"user_id"`
	DisplayName string   `json:"display_name"`
	AvatarURL   string   `json:"avatar_url,omitempty"`
	Campus      string   `json:"campus,omitempty"`
	Languages   []string `json:"languages"`
}

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Category        string    `json:"category"`
	Location        string    `json:"location"`
	Date            string    `json:"date"`
	MaxParticipants int       `json:"max_participants"`
	MinParticipants *int      `json:"min_participants,omitempty"`
	Fee             *int      `json:"fee,omitempty"`
	InOutdoor       InOutdoor `json:"inoutdoor,omitempty"`
	Languages       []string  `json:"languages"`
	Tags            []string  `json:"tags"`
}

// ErrorResponse is the standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
