package api

import (
	"errors"
	"net/http"

	"github.com/avetisov/apptcore/internal/domain"
	"github.com/gin-gonic/gin"
)

// respondError maps domain errors to HTTP statuses. Conflict and expiry are
// expected, recoverable conditions; anything unmapped is a service error with
// no detail leaked.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrSlotUnavailable):
		c.JSON(http.StatusConflict, gin.H{"error": "slot unavailable, re-fetch availability and retry"})
	case errors.Is(err, domain.ErrHoldNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "hold not found"})
	case errors.Is(err, domain.ErrHoldExpired):
		c.JSON(http.StatusGone, gin.H{"error": "hold expired, restart from slot selection"})
	case errors.Is(err, domain.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "booking not found"})
	case errors.Is(err, domain.ErrInvalidInterval):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "interval end must be after start"})
	case errors.Is(err, domain.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "invalid booking status transition"})
	case errors.Is(err, domain.ErrCancellationWindowClosed):
		c.JSON(http.StatusConflict, gin.H{"error": "cancellation window closed"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
