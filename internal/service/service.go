// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/campusbridge/exchange-events/internal/cache"
	"github.com/campusbridge/exchange-events/internal/metrics"
	"github.com/campusbridge/exchange-events/internal/model"
	"github.com/campusbridge/exchange-events/internal/repository"
)

// EventStore is the persistence surface EventService depends on.
type EventStore interface {
	Create(ctx context.Context, organizerID string, req model.CreateEventRequest) (*model.Event, error)
	List(ctx context.Context) ([]model.Event, error)
	GetByID(ctx context.Context, id string) (*model.Event, error)
}

// ProfileStore reads exchange profiles.
type ProfileStore interface {
	GetByUserID(ctx context.Context, userID string) (*model.Profile, error)
}

// EventService orchestrates event reads and creation, with a Redis
// read-through cache in front of listings.
type EventService struct {
	events EventStore
	cache  *cache.EventCache
}

// NewEventService constructs an EventService. cache may be nil.
func NewEventService(events EventStore, c *cache.EventCache) *EventService {
	return &EventService{events: events, cache: c}
}

// CreateEvent validates the request and delegates to the repository.
func (s *EventService) CreateEvent(ctx context.Context, organizerID string, req model.CreateEventRequest) (*model.Event, error) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return nil, fmt.Errorf("event title is required")
	}
	if req.MaxParticipants < 1 {
		return nil, fmt.Errorf("max_participants must be at least 1")
	}
	if req.MinParticipants != nil && *req.MinParticipants > req.MaxParticipants {
		return nil, fmt.Errorf("min_participants cannot exceed max_participants")
	}
	if req.Fee != nil && *req.Fee < 0 {
		return nil, fmt.Errorf("fee cannot be negative")
	}
	switch req.InOutdoor {
	case "", model.Indoor, model.Outdoor:
	default:
		return nil, fmt.Errorf("inoutdoor must be %q or %q", model.Indoor, model.Outdoor)
	}
	probe := model.Event{Date: req.Date}
	if _, ok := probe.StartTime(); !ok {
		return nil, fmt.Errorf("date must be %q or %q", model.DateTimeLayout, model.DateOnlyLayout)
	}

	event, err := s.events.Create(ctx, organizerID, req)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Invalidate(ctx, "")
	return event, nil
}

// ListEvents returns all events, serving from cache when possible.
func (s *EventService) ListEvents(ctx context.Context) ([]model.Event, error) {
	if events, ok := s.cache.GetList(ctx); ok {
		metrics.CacheRequestsTotal.WithLabelValues("hit").Inc()
		return events, nil
	}
	metrics.CacheRequestsTotal.WithLabelValues("miss").Inc()

	events, err := s.events.List(ctx)
	if err != nil {
		return nil, err
	}
	_ = s.cache.SetList(ctx, events)
	return events, nil
}

// GetEvent returns a single event by ID.
func (s *EventService) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	if id == "" {
		return nil, fmt.Errorf("event id is required")
	}
	if e, ok := s.cache.GetEvent(ctx, id); ok {
		metrics.CacheRequestsTotal.WithLabelValues("hit").Inc()
		return e, nil
	}
	metrics.CacheRequestsTotal.WithLabelValues("miss").Inc()

	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	_ = s.cache.SetEvent(ctx, event)
	return event, nil
}

// ProfileService reads exchange profiles for organizers and participants.
type ProfileService struct {
	profiles ProfileStore
}

// NewProfileService constructs a ProfileService.
func NewProfileService(profiles ProfileStore) *ProfileService {
	return &ProfileService{profiles: profiles}
}

// GetProfile returns a user's public profile.
func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	return s.profiles.GetByUserID(ctx, userID)
}
