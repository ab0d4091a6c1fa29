package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avetisov/apptcore/config"
	"github.com/avetisov/apptcore/internal/catalog"
	"github.com/avetisov/apptcore/internal/kafka"
	"github.com/avetisov/apptcore/internal/metrics"
	"github.com/avetisov/apptcore/internal/notify"
	"github.com/avetisov/apptcore/internal/outbox"
	"github.com/avetisov/apptcore/internal/repository"
	"github.com/avetisov/apptcore/internal/service/booking"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

func main() {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Str("component", "worker").Logger()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()

	metrics.Register()

	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	bookingRepo := repository.NewBookingRepository(pool, cfg.Booking.TxRetryAttempts)
	catalogReader := catalog.NewReader(repository.NewCatalogRepository(pool, cfg.Booking), nil)
	outboxRepo := repository.NewOutboxRepository(pool)

	bookingSvc := booking.NewBookingService(
		bookingRepo,
		catalogReader,
		logger,
		time.Duration(cfg.Booking.HoldTTLSeconds)*time.Second,
		time.Duration(cfg.Booking.ConfirmationTTL)*time.Minute,
	)

	relay := outbox.NewRelay(
		outboxRepo,
		producer,
		cfg.Kafka.BookingEventsTopic,
		cfg.Kafka.NotificationsTopic,
		cfg.Worker.OutboxBatchSize,
		cfg.Worker.MaxDeliveryAttempts,
		logger,
	)

	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.NotificationsTopic, logger)
	defer consumer.Close()

	sender := notify.NewLogSender(logger)
	go func() {
		if err := consumer.Consume(ctx, notify.Handler(sender)); err != nil {
			logger.Warn().Err(err).Msg("consumer stopped")
		}
	}()

	relayTicker := time.NewTicker(time.Duration(cfg.Worker.OutboxPollSeconds) * time.Second)
	defer relayTicker.Stop()
	sweepTicker := time.NewTicker(time.Duration(cfg.Worker.SweepMinutes) * time.Minute)
	defer sweepTicker.Stop()

	logger.Info().Msg("worker started")

	for {
		select {
		case <-relayTicker.C:
			if _, err := relay.RunOnce(ctx); err != nil {
				logger.Error().Err(err).Msg("outbox relay error")
			}
		case <-sweepTicker.C:
			if _, err := bookingSvc.SweepExpiredHolds(ctx); err != nil {
				logger.Error().Err(err).Msg("hold sweep error")
			}
			if _, err := bookingSvc.SweepUnconfirmed(ctx); err != nil {
				logger.Error().Err(err).Msg("unconfirmed sweep error")
			}
		case <-ctx.Done():
			logger.Info().Msg("shutting down")
			return
		}
	}
}
