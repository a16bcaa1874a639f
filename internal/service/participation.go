package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/campusbridge/exchange-events/internal/auth"
	"github.com/campusbridge/exchange-events/internal/cache"
	"github.com/campusbridge/exchange-events/internal/config"
	"github.com/campusbridge/exchange-events/internal/messaging"
	"github.com/campusbridge/exchange-events/internal/metrics"
	"github.com/campusbridge/exchange-events/internal/model"
	"github.com/campusbridge/exchange-events/internal/repository"
)

// ParticipationStore is the persistence surface ParticipationService
// depends on.
type ParticipationStore interface {
	Register(ctx context.Context, eventID, userID string, allowRejoin bool) (*model.Participation, error)
	Cancel(ctx context.Context, eventID, userID string, allowWaitlistCancel bool) (*model.Participation, error)
	GetByEventAndUser(ctx context.Context, eventID, userID string) (*model.Participation, error)
	ListUserEvents(ctx context.Context, userID string) ([]model.UserEvent, error)
}

// ParticipationService mediates the registration lifecycle for
// (event, user) pairs. The caller identity is always an explicit
// argument, taken from the request's auth context by the handler.
type ParticipationService struct {
	participations ParticipationStore
	cfg            config.ParticipationConfig
	publisher      messaging.Publisher
	cache          *cache.EventCache
}

// NewParticipationService constructs a ParticipationService. publisher
// and cache are optional collaborators; pass nil to skip them.
func NewParticipationService(
	participations ParticipationStore,
	cfg config.ParticipationConfig,
	publisher messaging.Publisher,
	c *cache.EventCache,
) *ParticipationService {
	return &ParticipationService{
		participations: participations,
		cfg:            cfg,
		publisher:      publisher,
		cache:          c,
	}
}

// Register registers the user for the event. Status is assigned from
// the capacity snapshot inside the repository's transaction: waitlist
// when the event is full, registered otherwise.
func (s *ParticipationService) Register(ctx context.Context, userID, eventID string) (*model.Participation, error) {
	if userID == "" {
		return nil, auth.ErrAuthRequired
	}
	if eventID == "" {
		return nil, fmt.Errorf("event id is required")
	}

	p, err := s.participations.Register(ctx, eventID, userID, s.cfg.AllowRejoin)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) ||
			errors.Is(err, repository.ErrAlreadyRegistered) {
			return nil, err
		}
		metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("register for event: %w", err)
	}

	metrics.RegistrationsTotal.WithLabelValues(string(p.Status)).Inc()
	logrus.WithFields(logrus.Fields{
		"event_id": eventID,
		"user_id":  userID,
		"status":   p.Status,
	}).Info("registration created")

	s.publish(ctx, messageType(p.Status), eventID, userID)
	s.invalidate(ctx, eventID)
	return p, nil
}

// Cancel cancels the user's participation. A request that matches no
// cancellable record succeeds as a no-op and returns nil; this is the
// contract the UI relies on, not a guaranteed-effect operation.
func (s *ParticipationService) Cancel(ctx context.Context, userID, eventID string) (*model.Participation, error) {
	if userID == "" {
		return nil, auth.ErrAuthRequired
	}
	if eventID == "" {
		return nil, fmt.Errorf("event id is required")
	}

	p, err := s.participations.Cancel(ctx, eventID, userID, s.cfg.AllowWaitlistCancel)
	if err != nil {
		metrics.CancellationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("cancel registration: %w", err)
	}
	if p == nil {
		metrics.CancellationsTotal.WithLabelValues("noop").Inc()
		return nil, nil
	}

	metrics.CancellationsTotal.WithLabelValues("cancelled").Inc()
	logrus.WithFields(logrus.Fields{
		"event_id": eventID,
		"user_id":  userID,
	}).Info("registration cancelled")

	s.publish(ctx, messaging.TypeCancelled, eventID, userID)
	s.invalidate(ctx, eventID)
	return p, nil
}

// Status returns the user's current participation record for the event,
// or nil when the caller is unauthenticated or has no record. Drives
// the join / cancel / waitlisted button state.
func (s *ParticipationService) Status(ctx context.Context, userID, eventID string) (*model.Participation, error) {
	if userID == "" {
		return nil, nil
	}
	p, err := s.participations.GetByEventAndUser(ctx, eventID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get participation status: %w", err)
	}
	return p, nil
}

// RegisteredEvents returns the user's active participations (registered
// or waitlisted) with event details, newest registration first. Past
// events are included; use CompletedEvents for the date-based view.
func (s *ParticipationService) RegisteredEvents(ctx context.Context, userID string) ([]model.UserEvent, error) {
	if userID == "" {
		return nil, auth.ErrAuthRequired
	}
	return s.participations.ListUserEvents(ctx, userID)
}

// CompletedEvents returns the subset of the user's participations whose
// event already took place.
func (s *ParticipationService) CompletedEvents(ctx context.Context, userID string) ([]model.UserEvent, error) {
	all, err := s.RegisteredEvents(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	completed := make([]model.UserEvent, 0, len(all))
	for _, ue := range all {
		if ue.Event.Completed(now) {
			completed = append(completed, ue)
		}
	}
	return completed, nil
}

// publish emits a lifecycle message, fire and forget.
func (s *ParticipationService) publish(ctx context.Context, msgType, eventID, userID string) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.Publish(ctx, messaging.ParticipationMessage{
		Type:       msgType,
		EventID:    eventID,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		logrus.WithError(err).Warn("publish participation message")
	}
}

func (s *ParticipationService) invalidate(ctx context.Context, eventID string) {
	if err := s.cache.Invalidate(ctx, eventID); err != nil {
		logrus.WithError(err).Warn("invalidate event cache")
	}
}

func messageType(status model.ParticipationStatus) string {
	if status == model.StatusWaitlist {
		return messaging.TypeWaitlisted
	}
	return messaging.TypeRegistered
}
