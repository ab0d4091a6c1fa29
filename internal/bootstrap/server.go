package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/avetisov/apptcore/api"
	"github.com/avetisov/apptcore/config"
	"github.com/avetisov/apptcore/internal/service/availability"
	"github.com/avetisov/apptcore/internal/service/booking"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run assembles the HTTP server and blocks until the context is canceled or
// the server fails.
func Run(ctx context.Context, cfg *config.Config, availabilitySvc availability.AvailabilityUseCase, bookingSvc booking.BookingUseCase) error {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	v1 := router.Group("/api/v1")
	api.NewAvailabilityHandler(availabilitySvc).Register(v1.Group("/businesses"))
	api.NewHoldHandler(bookingSvc).Register(v1.Group("/holds"))
	api.NewBookingHandler(bookingSvc).Register(v1.Group("/bookings"))

	srv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}
