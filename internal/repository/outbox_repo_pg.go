package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/avetisov/apptcore/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OutboxRepository is the relay's view of the durable event queue. Events are
// written by the booking repository inside its transactions; the relay polls
// due rows, delivers, and records the outcome.
type OutboxRepository interface {
	DuePending(ctx context.Context, limit int) ([]domain.OutboxEvent, error)
	MarkDelivered(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, attempts int, nextAttemptAt time.Time, terminal bool) error
}

type PGOutboxRepository struct {
	db *pgxpool.Pool
}

func NewOutboxRepository(db *pgxpool.Pool) OutboxRepository {
	return &PGOutboxRepository{db: db}
}

const outboxColumns = `id, event_id, event_type, business_id, payload, status, attempts, next_attempt_at, created_at`

func (r *PGOutboxRepository) DuePending(ctx context.Context, limit int) ([]domain.OutboxEvent, error) {
	rows, err := r.db.Query(ctx, `
        SELECT `+outboxColumns+` FROM outbox_events
        WHERE status = $1 AND next_attempt_at <= now()
        ORDER BY id
        LIMIT $2`, domain.OutboxStatusPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.OutboxEvent
	for rows.Next() {
		var ev domain.OutboxEvent
		if err := rows.Scan(&ev.ID, &ev.EventID, &ev.Type, &ev.BusinessID, &ev.Payload,
			&ev.Status, &ev.Attempts, &ev.NextAttemptAt, &ev.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (r *PGOutboxRepository) MarkDelivered(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `UPDATE outbox_events SET status=$1 WHERE id=$2`, domain.OutboxStatusDelivered, id)
	return err
}

// MarkFailed reschedules the event or, when terminal, parks it permanently.
// A permanently failed fact surfaces only in logs and metrics.
func (r *PGOutboxRepository) MarkFailed(ctx context.Context, id int64, attempts int, nextAttemptAt time.Time, terminal bool) error {
	status := domain.OutboxStatusPending
	if terminal {
		status = domain.OutboxStatusFailed
	}
	_, err := r.db.Exec(ctx,
		`UPDATE outbox_events SET status=$1, attempts=$2, next_attempt_at=$3 WHERE id=$4`,
		status, attempts, nextAttemptAt, id)
	return err
}

// bookingEventPayload is the notifier-facing snapshot carried by a lifecycle
// fact.
type bookingEventPayload struct {
	BookingID     int64     `json:"booking_id"`
	BusinessID    int64     `json:"business_id"`
	StaffID       *int64    `json:"staff_id,omitempty"`
	ServiceID     *int64    `json:"service_id,omitempty"`
	CustomerName  string    `json:"customer_name,omitempty"`
	CustomerEmail string    `json:"customer_email,omitempty"`
	StartsAt      time.Time `json:"starts_at"`
	EndsAt        time.Time `json:"ends_at"`
	Status        string    `json:"status"`
}

// insertOutboxEvent records a lifecycle fact in the caller's transaction, so
// the fact commits iff the booking mutation commits.
func insertOutboxEvent(ctx context.Context, tx pgx.Tx, eventType domain.EventType, b *domain.Booking) error {
	payload, err := json.Marshal(bookingEventPayload{
		BookingID:     b.ID,
		BusinessID:    b.BusinessID,
		StaffID:       b.StaffID,
		ServiceID:     b.ServiceID,
		CustomerName:  b.CustomerName,
		CustomerEmail: b.CustomerEmail,
		StartsAt:      b.Interval.Start,
		EndsAt:        b.Interval.End,
		Status:        string(b.Status),
	})
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
        INSERT INTO outbox_events (event_id, event_type, business_id, payload)
        VALUES ($1, $2, $3, $4)`,
		uuid.NewString(), eventType, b.BusinessID, payload)
	return err
}

var _ OutboxRepository = (*PGOutboxRepository)(nil)
