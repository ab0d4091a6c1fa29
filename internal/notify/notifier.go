// Package notify is the consumer side of the notification pipeline: it turns
// delivered lifecycle facts into customer-facing messages. Actual channel
// integrations live behind the Sender interface.
package notify

import (
	"context"

	"github.com/avetisov/apptcore/internal/kafka"
	"github.com/rs/zerolog"
)

type Sender interface {
	Send(ctx context.Context, event kafka.BookingEvent) error
}

// LogSender logs the notification instead of delivering it. Stands in for
// the email/WhatsApp integrations, which are external to this core.
type LogSender struct {
	logger zerolog.Logger
}

func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, event kafka.BookingEvent) error {
	s.logger.Info().
		Str("type", event.Type).
		Int64("business_id", event.BusinessID).
		RawJSON("payload", event.Payload).
		Msg("notification dispatched")
	return nil
}

// Handler adapts a Sender to the consumer loop. A send failure stops the
// consumer rather than silently dropping the notification.
func Handler(sender Sender) kafka.EventHandler {
	return func(ctx context.Context, event kafka.BookingEvent) error {
		return sender.Send(ctx, event)
	}
}
