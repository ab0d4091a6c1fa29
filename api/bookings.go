package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/avetisov/apptcore/internal/domain"
	"github.com/avetisov/apptcore/internal/service/booking"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type confirmBookingRequest struct {
	HoldToken     string `json:"hold_token" binding:"required"`
	CustomerName  string `json:"customer_name" binding:"required"`
	CustomerEmail string `json:"customer_email" binding:"required"`
}

type adminCreateRequest struct {
	BusinessID    int64           `json:"business_id" binding:"required"`
	ServiceID     int64           `json:"service_id" binding:"required"`
	StaffID       *int64          `json:"staff_id"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email"`
	Start         time.Time       `json:"start" binding:"required"`
	End           time.Time       `json:"end" binding:"required"`
	Metadata      json.RawMessage `json:"metadata"`
}

type rescheduleRequest struct {
	Start time.Time `json:"start" binding:"required"`
	End   time.Time `json:"end" binding:"required"`
}

type bookingResponse struct {
	ID            int64     `json:"id"`
	BusinessID    int64     `json:"business_id"`
	StaffID       *int64    `json:"staff_id,omitempty"`
	ServiceID     *int64    `json:"service_id,omitempty"`
	CustomerName  string    `json:"customer_name,omitempty"`
	CustomerEmail string    `json:"customer_email,omitempty"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	Status        string    `json:"status"`
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("/", h.confirm)
	router.POST("/admin", h.adminCreate)
	router.GET("/:id", h.get)
	router.PATCH("/:id/cancel", h.cancel)
	router.PATCH("/:id/approve", h.approve)
	router.PATCH("/:id/reschedule", h.reschedule)
}

func (h *BookingHandler) confirm(c *gin.Context) {
	var req confirmBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	b, err := h.service.ConfirmHold(c.Request.Context(), booking.ConfirmInput{
		HoldToken:     req.HoldToken,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBookingResponse(b))
}

func (h *BookingHandler) adminCreate(c *gin.Context) {
	var req adminCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	b, err := h.service.AdminCreateBooking(c.Request.Context(), booking.AdminCreateInput{
		BusinessID:    req.BusinessID,
		ServiceID:     req.ServiceID,
		StaffID:       req.StaffID,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		Start:         req.Start,
		End:           req.End,
		Metadata:      req.Metadata,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBookingResponse(b))
}

func (h *BookingHandler) get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	b, err := h.service.GetBooking(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) cancel(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	b, err := h.service.CancelBooking(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) approve(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	b, err := h.service.ApproveBooking(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) reschedule(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req rescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	b, err := h.service.RescheduleBooking(c.Request.Context(), id, req.Start, req.End)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

func toBookingResponse(b *domain.Booking) bookingResponse {
	return bookingResponse{
		ID:            b.ID,
		BusinessID:    b.BusinessID,
		StaffID:       b.StaffID,
		ServiceID:     b.ServiceID,
		CustomerName:  b.CustomerName,
		CustomerEmail: b.CustomerEmail,
		Start:         b.Interval.Start,
		End:           b.Interval.End,
		Status:        string(b.Status),
	}
}
