// Package outbox delivers booking lifecycle facts from the durable outbox to
// the broker. Delivery is at-least-once and fully decoupled from the booking
// request path: a broker outage delays notifications, never bookings.
package outbox

import (
	"context"
	"time"

	"github.com/avetisov/apptcore/internal/domain"
	"github.com/avetisov/apptcore/internal/kafka"
	"github.com/avetisov/apptcore/internal/metrics"
	"github.com/avetisov/apptcore/internal/repository"
	"github.com/rs/zerolog"
)

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// retryBackoff is the delay before each redelivery attempt; past its length
// the event is permanently failed.
var retryBackoff = []time.Duration{1 * time.Minute, 5 * time.Minute, 15 * time.Minute}

type Relay struct {
	repo               repository.OutboxRepository
	producer           Producer
	bookingTopic       string
	notificationsTopic string
	batchSize          int
	maxAttempts        int
	logger             zerolog.Logger
	now                func() time.Time
}

func NewRelay(repo repository.OutboxRepository, producer Producer, bookingTopic, notificationsTopic string, batchSize, maxAttempts int, logger zerolog.Logger) *Relay {
	if batchSize <= 0 {
		batchSize = 50
	}
	if maxAttempts <= 0 {
		maxAttempts = len(retryBackoff) + 1
	}
	return &Relay{
		repo:               repo,
		producer:           producer,
		bookingTopic:       bookingTopic,
		notificationsTopic: notificationsTopic,
		batchSize:          batchSize,
		maxAttempts:        maxAttempts,
		logger:             logger,
		now:                time.Now,
	}
}

// RunOnce drains one batch of due events. Returns the number delivered.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	events, err := r.repo.DuePending(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, ev := range events {
		if err := r.deliver(ctx, ev); err != nil {
			r.recordFailure(ctx, ev, err)
			continue
		}
		if err := r.repo.MarkDelivered(ctx, ev.ID); err != nil {
			return delivered, err
		}
		metrics.IncOutboxDelivered()
		delivered++
	}
	return delivered, nil
}

func (r *Relay) deliver(ctx context.Context, ev domain.OutboxEvent) error {
	msg := kafka.BookingEvent{
		EventID:    ev.EventID,
		Type:       string(ev.Type),
		BusinessID: ev.BusinessID,
		Payload:    ev.Payload,
		CreatedAt:  ev.CreatedAt,
	}
	if err := r.producer.Publish(ctx, r.bookingTopic, ev.EventID, msg); err != nil {
		return err
	}
	if r.notificationsTopic != "" {
		return r.producer.Publish(ctx, r.notificationsTopic, ev.EventID, msg)
	}
	return nil
}

func (r *Relay) recordFailure(ctx context.Context, ev domain.OutboxEvent, cause error) {
	attempts := ev.Attempts + 1
	terminal := attempts >= r.maxAttempts
	next := r.now().Add(backoffFor(attempts))

	metrics.IncOutboxFailed(terminal)
	evt := r.logger.Warn().
		Int64("event_id", ev.ID).
		Str("type", string(ev.Type)).
		Int("attempts", attempts).
		Err(cause)
	if terminal {
		evt.Msg("outbox event permanently failed")
	} else {
		evt.Time("next_attempt_at", next).Msg("outbox delivery failed, rescheduled")
	}

	if err := r.repo.MarkFailed(ctx, ev.ID, attempts, next, terminal); err != nil {
		r.logger.Error().Err(err).Int64("event_id", ev.ID).Msg("failed to record outbox failure")
	}
}

func backoffFor(attempts int) time.Duration {
	idx := attempts - 1
	if idx >= len(retryBackoff) {
		idx = len(retryBackoff) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return retryBackoff[idx]
}
