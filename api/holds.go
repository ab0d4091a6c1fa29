package api

import (
	"net/http"
	"time"

	"github.com/avetisov/apptcore/internal/domain"
	"github.com/avetisov/apptcore/internal/service/booking"
	"github.com/gin-gonic/gin"
)

type HoldHandler struct {
	service booking.BookingUseCase
}

type createHoldRequest struct {
	BusinessID     int64     `json:"business_id" binding:"required"`
	ServiceID      int64     `json:"service_id" binding:"required"`
	StaffID        *int64    `json:"staff_id"`
	CustomerID     *int64    `json:"customer_id"`
	Start          time.Time `json:"start" binding:"required"`
	End            time.Time `json:"end" binding:"required"`
	IdempotencyKey *string   `json:"idempotency_key"`
	TTLSeconds     int       `json:"ttl_seconds"`
}

type holdResponse struct {
	Token     string    `json:"token"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	ExpiresAt time.Time `json:"expires_at"`
}

func NewHoldHandler(service booking.BookingUseCase) *HoldHandler {
	return &HoldHandler{service: service}
}

func (h *HoldHandler) Register(router *gin.RouterGroup) {
	router.POST("/", h.create)
}

func (h *HoldHandler) create(c *gin.Context) {
	var req createHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	key := req.IdempotencyKey
	if header := c.GetHeader("Idempotency-Key"); header != "" {
		key = &header
	}

	hold, err := h.service.CreateHold(c.Request.Context(), booking.CreateHoldInput{
		BusinessID:     req.BusinessID,
		ServiceID:      req.ServiceID,
		StaffID:        req.StaffID,
		CustomerID:     req.CustomerID,
		Start:          req.Start,
		End:            req.End,
		IdempotencyKey: key,
		TTLSeconds:     req.TTLSeconds,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toHoldResponse(hold))
}

func toHoldResponse(h *domain.Hold) holdResponse {
	return holdResponse{
		Token:     h.Token,
		Start:     h.Interval.Start,
		End:       h.Interval.End,
		ExpiresAt: h.ExpiresAt,
	}
}
