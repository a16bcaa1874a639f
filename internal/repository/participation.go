package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/campusbridge/exchange-events/internal/model"
)

// DB is the slice of pgxpool.Pool behavior the participation repository
// uses. Tests substitute a fake to pin transaction handling.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ParticipationRepository handles persistence for participation records.
type ParticipationRepository struct {
	db DB
}

// NewParticipationRepository constructs a ParticipationRepository.
func NewParticipationRepository(db DB) *ParticipationRepository {
	return &ParticipationRepository{db: db}
}

// Register performs the capacity check, duplicate check, status
// assignment, and insert as a single transaction.
//
// The event row is locked with SELECT … FOR UPDATE so concurrent
// registrations near the capacity boundary serialise instead of both
// reading the same counter snapshot. current_participants is
// incremented in the same transaction, only for registered rows, so it
// always equals the count of registered participations.
//
// allowRejoin controls whether cancelled records block re-registration:
// when false (legacy behavior) any prior record, cancelled included,
// yields ErrAlreadyRegistered.
func (r *ParticipationRepository) Register(ctx context.Context, eventID, userID string, allowRejoin bool) (*model.Participation, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}

	// Every return path resolves the transaction here: sentinel errors
	// such as ErrAlreadyRegistered must release the row lock and the
	// pooled connection too.
	p, err := r.registerInTx(ctx, tx, eventID, userID, allowRejoin)
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return p, nil
}

func (r *ParticipationRepository) registerInTx(ctx context.Context, tx pgx.Tx, eventID, userID string, allowRejoin bool) (*model.Participation, error) {
	// Lock the event row for the duration of the transaction.
	var maxParticipants, currentParticipants int
	err := tx.QueryRow(ctx,
		`SELECT max_participants, current_participants
		 FROM events
		 WHERE id = $1
		 FOR UPDATE`,
		eventID,
	).Scan(&maxParticipants, &currentParticipants)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock event row: %w", err)
	}

	// Duplicate check. Cancelled rows count as duplicates unless rejoin
	// is enabled.
	dupQuery := `SELECT COUNT(*) FROM event_participants WHERE event_id = $1 AND user_id = $2`
	if allowRejoin {
		dupQuery += ` AND status <> 'cancelled'`
	}
	var dupCount int
	if err := tx.QueryRow(ctx, dupQuery, eventID, userID).Scan(&dupCount); err != nil {
		return nil, fmt.Errorf("check duplicate: %w", err)
	}
	if dupCount > 0 {
		return nil, ErrAlreadyRegistered
	}

	status := model.StatusRegistered
	if currentParticipants >= maxParticipants {
		status = model.StatusWaitlist
	}

	p := &model.Participation{
		ID:           uuid.New().String(),
		EventID:      eventID,
		UserID:       userID,
		Status:       status,
		RegisteredAt: time.Now().UTC(),
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO event_participants (id, event_id, user_id, status, registered_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		p.ID, p.EventID, p.UserID, p.Status, p.RegisteredAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert participation: %w", err)
	}

	// Only registered rows occupy a seat.
	if status == model.StatusRegistered {
		_, err = tx.Exec(ctx,
			`UPDATE events SET current_participants = current_participants + 1 WHERE id = $1`,
			eventID,
		)
		if err != nil {
			return nil, fmt.Errorf("increment current_participants: %w", err)
		}
	}

	return p, nil
}

// Cancel transitions the caller's active participation to cancelled and
// releases the seat when the row was registered. Returns the cancelled
// record, or nil when no row matched (silent no-op, by contract).
//
// Waitlisted rows are only cancellable when allowWaitlistCancel is set;
// the legacy behavior leaves them untouched.
func (r *ParticipationRepository) Cancel(ctx context.Context, eventID, userID string, allowWaitlistCancel bool) (*model.Participation, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}

	p, err := r.cancelInTx(ctx, tx, eventID, userID, allowWaitlistCancel)
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return p, nil
}

func (r *ParticipationRepository) cancelInTx(ctx context.Context, tx pgx.Tx, eventID, userID string, allowWaitlistCancel bool) (*model.Participation, error) {
	statuses := []string{string(model.StatusRegistered)}
	if allowWaitlistCancel {
		statuses = append(statuses, string(model.StatusWaitlist))
	}

	var p model.Participation
	err := tx.QueryRow(ctx,
		`SELECT id, event_id, user_id, status, registered_at
		 FROM event_participants
		 WHERE event_id = $1 AND user_id = $2 AND status = ANY($3)
		 ORDER BY registered_at DESC
		 LIMIT 1
		 FOR UPDATE`,
		eventID, userID, statuses,
	).Scan(&p.ID, &p.EventID, &p.UserID, &p.Status, &p.RegisteredAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// No matching record: the caller commits and reports the no-op.
			return nil, nil
		}
		return nil, fmt.Errorf("lock participation row: %w", err)
	}

	now := time.Now().UTC()
	_, err = tx.Exec(ctx,
		`UPDATE event_participants SET status = 'cancelled', cancelled_at = $2 WHERE id = $1`,
		p.ID, now,
	)
	if err != nil {
		return nil, fmt.Errorf("cancel participation: %w", err)
	}

	if p.Status == model.StatusRegistered {
		_, err = tx.Exec(ctx,
			`UPDATE events SET current_participants = current_participants - 1 WHERE id = $1`,
			eventID,
		)
		if err != nil {
			return nil, fmt.Errorf("decrement current_participants: %w", err)
		}
	}

	p.Status = model.StatusCancelled
	p.CancelledAt = &now
	return &p, nil
}

// GetByEventAndUser returns the user's most recent participation record
// for the event, or ErrNotFound.
func (r *ParticipationRepository) GetByEventAndUser(ctx context.Context, eventID, userID string) (*model.Participation, error) {
	var p model.Participation
	err := r.db.QueryRow(ctx,
		`SELECT id, event_id, user_id, status, registered_at, cancelled_at
		 FROM event_participants
		 WHERE event_id = $1 AND user_id = $2
		 ORDER BY registered_at DESC
		 LIMIT 1`,
		eventID, userID,
	).Scan(&p.ID, &p.EventID, &p.UserID, &p.Status, &p.RegisteredAt, &p.CancelledAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get participation: %w", err)
	}
	return &p, nil
}

// ListUserEvents returns the user's active participations joined with
// their events, most recent registration first.
func (r *ParticipationRepository) ListUserEvents(ctx context.Context, userID string) ([]model.UserEvent, error) {
	rows, err := r.db.Query(ctx,
		`SELECT p.id, p.event_id, p.user_id, p.status, p.registered_at, p.cancelled_at,
		        `+prefixedEventColumns("e")+`
		 FROM event_participants p
		 JOIN events e ON e.id = p.event_id
		 WHERE p.user_id = $1 AND p.status IN ('registered', 'waitlist')
		 ORDER BY p.registered_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list user events: %w", err)
	}
	defer rows.Close()

	var out []model.UserEvent
	for rows.Next() {
		var ue model.UserEvent
		p := &ue.Participation
		e := &ue.Event
		err := rows.Scan(
			&p.ID, &p.EventID, &p.UserID, &p.Status, &p.RegisteredAt, &p.CancelledAt,
			&e.ID, &e.Title, &e.Description, &e.Category, &e.Location, &e.Date,
			&e.MaxParticipants, &e.MinParticipants, &e.CurrentParticipants,
			&e.Fee, &e.InOutdoor, &e.Languages, &e.Tags, &e.OrganizerID, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan user event: %w", err)
		}
		out = append(out, ue)
	}
	return out, rows.Err()
}

func prefixedEventColumns(alias string) string {
	return alias + `.id, ` + alias + `.title, ` + alias + `.description, ` +
		alias + `.category, ` + alias + `.location, ` + alias + `.date, ` +
		alias + `.max_participants, ` + alias + `.min_participants, ` +
		alias + `.current_participants, ` + alias + `.fee, ` + alias + `.inoutdoor, ` +
		alias + `.languages, ` + alias + `.tags, ` + alias + `.organizer_id, ` +
		alias + `.created_at`
}
