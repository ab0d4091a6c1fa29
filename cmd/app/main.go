package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avetisov/apptcore/config"
	"github.com/avetisov/apptcore/internal/bootstrap"
	"github.com/avetisov/apptcore/internal/cache"
	"github.com/avetisov/apptcore/internal/catalog"
	"github.com/avetisov/apptcore/internal/metrics"
	"github.com/avetisov/apptcore/internal/repository"
	"github.com/avetisov/apptcore/internal/service/availability"
	"github.com/avetisov/apptcore/internal/service/booking"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

func main() {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

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

	if cfg.Metrics.Enabled {
		metrics.Register()
	}

	var policyCache catalog.Cache
	if cfg.Redis.Addr != "" && cfg.Booking.PolicyCacheTTL > 0 {
		policyCache = cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Booking.PolicyCacheTTL)*time.Second)
	}

	scheduleRepo := repository.NewScheduleRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool, cfg.Booking.TxRetryAttempts)
	catalogRepo := repository.NewCatalogRepository(pool, cfg.Booking)
	catalogReader := catalog.NewReader(catalogRepo, policyCache)

	availabilitySvc := availability.NewService(scheduleRepo, bookingRepo, catalogReader, logger)
	bookingSvc := booking.NewBookingService(
		bookingRepo,
		catalogReader,
		logger,
		time.Duration(cfg.Booking.HoldTTLSeconds)*time.Second,
		time.Duration(cfg.Booking.ConfirmationTTL)*time.Minute,
	)

	logger.Info().Str("address", cfg.HTTP.Address).Msg("starting server")
	if err := bootstrap.Run(ctx, cfg, availabilitySvc, bookingSvc); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
	logger.Info().Msg("server stopped")
}
