package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/avetisov/apptcore/config"
	"github.com/rs/zerolog"
	kafka "github.com/segmentio/kafka-go"
)

// EventHandler processes one decoded booking lifecycle fact.
type EventHandler func(ctx context.Context, event BookingEvent) error

// Consumer reads a topic in a consumer group and hands decoded BookingEvents
// to a handler. Messages that do not decode are logged and skipped; they
// would fail identically on every redelivery.
type Consumer struct {
	reader *kafka.Reader
	logger zerolog.Logger
}

func NewConsumer(cfg config.KafkaConfig, topic string, logger zerolog.Logger) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:           cfg.Brokers,
			GroupID:           cfg.GroupID,
			Topic:             topic,
			HeartbeatInterval: 3 * time.Second,
			SessionTimeout:    30 * time.Second,
		}),
		logger: logger,
	}
}

func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// Consume blocks, delivering events until the context is canceled, the
// reader fails, or the handler returns an error.
func (c *Consumer) Consume(ctx context.Context, handler EventHandler) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			return err
		}

		event, err := decodeEvent(msg.Value)
		if err != nil {
			c.logger.Error().Err(err).
				Int64("offset", msg.Offset).
				Msg("skipping undecodable booking event")
			continue
		}

		if err := handler(ctx, event); err != nil {
			return err
		}
	}
}

func decodeEvent(value []byte) (BookingEvent, error) {
	var event BookingEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return BookingEvent{}, err
	}
	return event, nil
}
