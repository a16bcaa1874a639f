package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusbridge/exchange-events/internal/auth"
	"github.com/campusbridge/exchange-events/internal/config"
	"github.com/campusbridge/exchange-events/internal/messaging"
	"github.com/campusbridge/exchange-events/internal/model"
	"github.com/campusbridge/exchange-events/internal/repository"
)

// fakeParticipationStore implements ParticipationStore in memory with
// the same contract as the Postgres repository: snapshot-based status
// assignment, duplicate checks, seat accounting, silent no-op cancels.
type fakeParticipationStore struct {
	mu      sync.Mutex
	events  map[string]*model.Event
	records []*model.Participation
}

func newFakeStore(events ...*model.Event) *fakeParticipationStore {
	s := &fakeParticipationStore{events: make(map[string]*model.Event)}
	for _, e := range events {
		s.events[e.ID] = e
	}
	return s
}

func (s *fakeParticipationStore) Register(_ context.Context, eventID, userID string, allowRejoin bool) (*model.Participation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[eventID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	for _, r := range s.records {
		if r.EventID != eventID || r.UserID != userID {
			continue
		}
		if allowRejoin && r.Status == model.StatusCancelled {
			continue
		}
		return nil, repository.ErrAlreadyRegistered
	}

	status := model.StatusRegistered
	if event.CurrentParticipants >= event.MaxParticipants {
		status = model.StatusWaitlist
	}
	p := &model.Participation{
		ID:           uuid.New().String(),
		EventID:      eventID,
		UserID:       userID,
		Status:       status,
		RegisteredAt: time.Now().UTC(),
	}
	s.records = append(s.records, p)
	if status == model.StatusRegistered {
		event.CurrentParticipants++
	}
	out := *p
	return &out, nil
}

func (s *fakeParticipationStore) Cancel(_ context.Context, eventID, userID string, allowWaitlistCancel bool) (*model.Participation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.records) - 1; i >= 0; i-- {
		r := s.records[i]
		if r.EventID != eventID || r.UserID != userID {
			continue
		}
		if r.Status != model.StatusRegistered &&
			!(allowWaitlistCancel && r.Status == model.StatusWaitlist) {
			continue
		}
		wasRegistered := r.Status == model.StatusRegistered
		now := time.Now().UTC()
		r.Status = model.StatusCancelled
		r.CancelledAt = &now
		if wasRegistered {
			s.events[eventID].CurrentParticipants--
		}
		out := *r
		return &out, nil
	}
	return nil, nil
}

func (s *fakeParticipationStore) GetByEventAndUser(_ context.Context, eventID, userID string) (*model.Participation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.records) - 1; i >= 0; i-- {
		r := s.records[i]
		if r.EventID == eventID && r.UserID == userID {
			out := *r
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakeParticipationStore) ListUserEvents(_ context.Context, userID string) ([]model.UserEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.UserEvent
	for i := len(s.records) - 1; i >= 0; i-- {
		r := s.records[i]
		if r.UserID == userID && r.Status.Active() {
			out = append(out, model.UserEvent{Participation: *r, Event: *s.events[r.EventID]})
		}
	}
	return out, nil
}

// capturePublisher records published messages.
type capturePublisher struct {
	mu       sync.Mutex
	messages []messaging.ParticipationMessage
}

func (p *capturePublisher) Publish(_ context.Context, msg messaging.ParticipationMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.messages))
	for _, m := range p.messages {
		out = append(out, m.Type)
	}
	return out
}

func openEvent(id string, capacity, current int) *model.Event {
	return &model.Event{
		ID:                  id,
		Title:               "Test event " + id,
		Date:                "2099-01-01 10:00",
		MaxParticipants:     capacity,
		CurrentParticipants: current,
	}
}

func newService(store *fakeParticipationStore, cfg config.ParticipationConfig, pub messaging.Publisher) *ParticipationService {
	return NewParticipationService(store, cfg, pub, nil)
}

func TestRegisterAssignsStatusFromCapacitySnapshot(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		current  int
		want     model.ParticipationStatus
	}{
		{"open event", 10, 3, model.StatusRegistered},
		{"last seat", 10, 9, model.StatusRegistered},
		{"exactly full", 10, 10, model.StatusWaitlist},
		{"over capacity", 10, 11, model.StatusWaitlist},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore(openEvent("ev", tt.capacity, tt.current))
			svc := newService(store, config.ParticipationConfig{}, nil)

			p, err := svc.Register(context.Background(), "user-1", "ev")
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Status)
		})
	}
}

func TestRegisterSeatAccounting(t *testing.T) {
	event := openEvent("ev", 2, 0)
	store := newFakeStore(event)
	svc := newService(store, config.ParticipationConfig{}, nil)
	ctx := context.Background()

	for _, user := range []string{"u1", "u2"} {
		p, err := svc.Register(ctx, user, "ev")
		require.NoError(t, err)
		require.Equal(t, model.StatusRegistered, p.Status)
	}
	assert.Equal(t, 2, event.CurrentParticipants)

	// Third registration waitlists and does not consume a seat.
	p, err := svc.Register(ctx, "u3", "ev")
	require.NoError(t, err)
	assert.Equal(t, model.StatusWaitlist, p.Status)
	assert.Equal(t, 2, event.CurrentParticipants)
}

func TestRegisterTwiceReturnsAlreadyRegistered(t *testing.T) {
	store := newFakeStore(openEvent("ev", 10, 10))
	svc := newService(store, config.ParticipationConfig{}, nil)
	ctx := context.Background()

	_, err := svc.Register(ctx, "u1", "ev")
	require.NoError(t, err)

	// Duplicate regardless of the first call's resulting status.
	_, err = svc.Register(ctx, "u1", "ev")
	assert.ErrorIs(t, err, repository.ErrAlreadyRegistered)
}

func TestRegisterUnknownEvent(t *testing.T) {
	store := newFakeStore()
	svc := newService(store, config.ParticipationConfig{}, nil)

	_, err := svc.Register(context.Background(), "u1", "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRegisterRequiresIdentity(t *testing.T) {
	store := newFakeStore(openEvent("ev", 10, 0))
	svc := newService(store, config.ParticipationConfig{}, nil)

	_, err := svc.Register(context.Background(), "", "ev")
	assert.ErrorIs(t, err, auth.ErrAuthRequired)

	_, err = svc.Cancel(context.Background(), "", "ev")
	assert.ErrorIs(t, err, auth.ErrAuthRequired)
}

func TestRejoinAfterCancelBlockedByDefault(t *testing.T) {
	store := newFakeStore(openEvent("ev", 10, 0))
	svc := newService(store, config.ParticipationConfig{}, nil)
	ctx := context.Background()

	_, err := svc.Register(ctx, "u1", "ev")
	require.NoError(t, err)
	p, err := svc.Cancel(ctx, "u1", "ev")
	require.NoError(t, err)
	require.NotNil(t, p)

	// Legacy behavior: the cancelled record still blocks.
	_, err = svc.Register(ctx, "u1", "ev")
	assert.ErrorIs(t, err, repository.ErrAlreadyRegistered)
}

func TestRejoinAfterCancelAllowedByFlag(t *testing.T) {
	store := newFakeStore(openEvent("ev", 10, 0))
	svc := newService(store, config.ParticipationConfig{AllowRejoin: true}, nil)
	ctx := context.Background()

	first, err := svc.Register(ctx, "u1", "ev")
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, "u1", "ev")
	require.NoError(t, err)

	second, err := svc.Register(ctx, "u1", "ev")
	require.NoError(t, err)
	assert.Equal(t, model.StatusRegistered, second.Status)
	// A brand-new record, never a re-activated one.
	assert.NotEqual(t, first.ID, second.ID)
}

func TestCancelRegisteredReleasesSeat(t *testing.T) {
	event := openEvent("ev", 10, 0)
	store := newFakeStore(event)
	svc := newService(store, config.ParticipationConfig{}, nil)
	ctx := context.Background()

	_, err := svc.Register(ctx, "u1", "ev")
	require.NoError(t, err)
	require.Equal(t, 1, event.CurrentParticipants)

	p, err := svc.Cancel(ctx, "u1", "ev")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, model.StatusCancelled, p.Status)
	assert.NotNil(t, p.CancelledAt)
	assert.Equal(t, 0, event.CurrentParticipants)
}

func TestCancelAbsentRecordIsSilentNoop(t *testing.T) {
	store := newFakeStore(openEvent("ev", 10, 0))
	svc := newService(store, config.ParticipationConfig{}, nil)

	p, err := svc.Cancel(context.Background(), "u1", "ev")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestWaitlistedUserCannotCancelByDefault(t *testing.T) {
	// Full event: registration waitlists; cancel must leave the record
	// untouched and still report success.
	store := newFakeStore(openEvent("ev", 10, 10))
	svc := newService(store, config.ParticipationConfig{}, nil)
	ctx := context.Background()

	reg, err := svc.Register(ctx, "u1", "ev")
	require.NoError(t, err)
	require.Equal(t, model.StatusWaitlist, reg.Status)

	p, err := svc.Cancel(ctx, "u1", "ev")
	require.NoError(t, err)
	assert.Nil(t, p)

	status, err := svc.Status(ctx, "u1", "ev")
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, model.StatusWaitlist, status.Status)
	assert.Nil(t, status.CancelledAt)
}

func TestWaitlistCancelAllowedByFlag(t *testing.T) {
	store := newFakeStore(openEvent("ev", 10, 10))
	svc := newService(store, config.ParticipationConfig{AllowWaitlistCancel: true}, nil)
	ctx := context.Background()

	reg, err := svc.Register(ctx, "u1", "ev")
	require.NoError(t, err)
	require.Equal(t, model.StatusWaitlist, reg.Status)

	p, err := svc.Cancel(ctx, "u1", "ev")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, model.StatusCancelled, p.Status)
}

func TestStatusForUnauthenticatedAndUnknown(t *testing.T) {
	store := newFakeStore(openEvent("ev", 10, 0))
	svc := newService(store, config.ParticipationConfig{}, nil)
	ctx := context.Background()

	p, err := svc.Status(ctx, "", "ev")
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = svc.Status(ctx, "u1", "ev")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestLifecycleMessages(t *testing.T) {
	store := newFakeStore(openEvent("open", 10, 0), openEvent("full", 5, 5))
	pub := &capturePublisher{}
	svc := newService(store, config.ParticipationConfig{}, pub)
	ctx := context.Background()

	_, err := svc.Register(ctx, "u1", "open")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "u1", "full")
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, "u1", "open")
	require.NoError(t, err)
	// No-op cancel publishes nothing.
	_, err = svc.Cancel(ctx, "u2", "open")
	require.NoError(t, err)

	assert.Equal(t, []string{
		messaging.TypeRegistered,
		messaging.TypeWaitlisted,
		messaging.TypeCancelled,
	}, pub.types())
}

func TestRegisteredAndCompletedEvents(t *testing.T) {
	past := openEvent("past", 10, 0)
	past.Date = "2020-01-01 10:00"
	future := openEvent("future", 10, 0)

	store := newFakeStore(past, future)
	svc := newService(store, config.ParticipationConfig{}, nil)
	ctx := context.Background()

	_, err := svc.Register(ctx, "u1", "past")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "u1", "future")
	require.NoError(t, err)

	// Past events stay in the list: the filter is status-only.
	registered, err := svc.RegisteredEvents(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, registered, 2)
	// Most recent registration first.
	assert.Equal(t, "future", registered[0].Event.ID)

	completed, err := svc.CompletedEvents(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, "past", completed[0].Event.ID)
}

func TestFullEventEndToEnd(t *testing.T) {
	// maxParticipants=10, currentParticipants=10: register waitlists,
	// cancel is a no-op, and the record stays waitlisted.
	event := openEvent("ev", 10, 10)
	store := newFakeStore(event)
	svc := newService(store, config.ParticipationConfig{}, nil)
	ctx := context.Background()

	p, err := svc.Register(ctx, "u1", "ev")
	require.NoError(t, err)
	require.Equal(t, model.StatusWaitlist, p.Status)
	require.Equal(t, 10, event.CurrentParticipants)

	cancelled, err := svc.Cancel(ctx, "u1", "ev")
	require.NoError(t, err)
	assert.Nil(t, cancelled)

	status, err := svc.Status(ctx, "u1", "ev")
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, model.StatusWaitlist, status.Status)
}
