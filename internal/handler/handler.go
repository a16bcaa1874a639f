// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/campusbridge/exchange-events/internal/auth"
	"github.com/campusbridge/exchange-events/internal/filter"
	"github.com/campusbridge/exchange-events/internal/model"
	"github.com/campusbridge/exchange-events/internal/repository"
	"github.com/campusbridge/exchange-events/internal/service"
)

// EventHandler holds all HTTP handlers for the exchange event API.
type EventHandler struct {
	events         *service.EventService
	participations *service.ParticipationService
	profiles       *service.ProfileService
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(
	events *service.EventService,
	participations *service.ParticipationService,
	profiles *service.ProfileService,
) *EventHandler {
	return &EventHandler{events: events, participations: participations, profiles: profiles}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// requireUser extracts the authenticated user id or writes a 401.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return "", false
	}
	return userID, true
}

// ─── Event handlers ───────────────────────────────────────────────────────────

// CreateEvent handles POST /events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.CreateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.events.CreateEvent(r.Context(), userID, req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, event)
}

// ListEvents handles GET /events
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.ListEvents(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if events == nil {
		events = []model.Event{}
	}

	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	event, err := h.events.GetEvent(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get event")
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// FilterRequest is the payload for POST /events/filter.
type FilterRequest struct {
	Query   string         `json:"query"`
	Filters filter.Filters `json:"filters"`
}

// FilterResponse carries the matching events and the badge count.
type FilterResponse struct {
	Events            []model.Event `json:"events"`
	ActiveFilterCount int           `json:"active_filter_count"`
}

// FilterEvents handles POST /events/filter
// Runs the in-memory filter over the full event list.
func (h *EventHandler) FilterEvents(w http.ResponseWriter, r *http.Request) {
	var req FilterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	events, err := h.events.ListEvents(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	matched := filter.Apply(events, req.Query, req.Filters, time.Now())
	writeJSON(w, http.StatusOK, FilterResponse{
		Events:            matched,
		ActiveFilterCount: req.Filters.ActiveCount(),
	})
}

// ─── Participation handlers ───────────────────────────────────────────────────

// Register handles POST /events/{id}/register
func (h *EventHandler) Register(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	eventID := chi.URLParam(r, "id")

	p, err := h.participations.Register(r.Context(), userID, eventID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, http.StatusNotFound, "event not found")
		case errors.Is(err, repository.ErrAlreadyRegistered):
			writeError(w, http.StatusConflict, "you are already registered for this event")
		case errors.Is(err, auth.ErrAuthRequired):
			writeError(w, http.StatusUnauthorized, "authentication required")
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusCreated, p)
}

// CancelRegistration handles DELETE /events/{id}/register
// Always returns 200; a request matching no record is a silent no-op.
func (h *EventHandler) CancelRegistration(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	eventID := chi.URLParam(r, "id")

	p, err := h.participations.Cancel(r.Context(), userID, eventID)
	if err != nil {
		if errors.Is(err, auth.ErrAuthRequired) {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if p == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "no_change"})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ParticipationStatus handles GET /events/{id}/status
func (h *EventHandler) ParticipationStatus(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	eventID := chi.URLParam(r, "id")

	p, err := h.participations.Status(r.Context(), userID, eventID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get status")
		return
	}
	if p == nil {
		writeJSON(w, http.StatusOK, map[string]any{"participation": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"participation": p})
}

// MyEvents handles GET /me/events
func (h *EventHandler) MyEvents(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	events, err := h.participations.RegisteredEvents(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list registrations")
		return
	}
	if events == nil {
		events = []model.UserEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

// MyCompletedEvents handles GET /me/events/completed
func (h *EventHandler) MyCompletedEvents(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	events, err := h.participations.CompletedEvents(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list completed events")
		return
	}
	if events == nil {
		events = []model.UserEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

// ─── Profile handlers ─────────────────────────────────────────────────────────

// GetProfile handles GET /profiles/{id}
func (h *EventHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	profile, err := h.profiles.GetProfile(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get profile")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
