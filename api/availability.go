package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/avetisov/apptcore/internal/service/availability"
	"github.com/gin-gonic/gin"
)

type AvailabilityHandler struct {
	service availability.AvailabilityUseCase
}

func NewAvailabilityHandler(service availability.AvailabilityUseCase) *AvailabilityHandler {
	return &AvailabilityHandler{service: service}
}

func (h *AvailabilityHandler) Register(router *gin.RouterGroup) {
	router.GET("/:businessId/available-dates", h.dates)
	router.GET("/:businessId/available-slots", h.slots)
}

func (h *AvailabilityHandler) dates(c *gin.Context) {
	businessID, err := strconv.ParseInt(c.Param("businessId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid business id"})
		return
	}
	from, err := parseDate(c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from date"})
		return
	}
	to, err := parseDate(c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to date"})
		return
	}

	dates, err := h.service.AvailableDates(c.Request.Context(), availability.DatesInput{
		BusinessID: businessID,
		StaffID:    optionalID(c.Query("staff_id")),
		From:       from,
		To:         to,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dates": dates})
}

func (h *AvailabilityHandler) slots(c *gin.Context) {
	businessID, err := strconv.ParseInt(c.Param("businessId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid business id"})
		return
	}
	serviceID, err := strconv.ParseInt(c.Query("service_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid service id"})
		return
	}
	date, err := parseDate(c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date"})
		return
	}

	result, err := h.service.AvailableSlots(c.Request.Context(), availability.SlotsInput{
		BusinessID: businessID,
		ServiceID:  serviceID,
		StaffID:    optionalID(c.Query("staff_id")),
		Date:       date,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slots": result})
}

func parseDate(value string) (time.Time, error) {
	return time.Parse("2006-01-02", value)
}

func optionalID(value string) *int64 {
	if value == "" {
		return nil
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return nil
	}
	return &id
}
