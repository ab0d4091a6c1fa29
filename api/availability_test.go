package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/avetisov/apptcore/internal/service/availability"
	"github.com/avetisov/apptcore/internal/slots"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAvailabilityUseCase struct {
	mock.Mock
}

func (m *MockAvailabilityUseCase) AvailableSlots(ctx context.Context, input availability.SlotsInput) ([]slots.Slot, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]slots.Slot), args.Error(1)
}

func (m *MockAvailabilityUseCase) AvailableDates(ctx context.Context, input availability.DatesInput) ([]availability.DateInfo, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]availability.DateInfo), args.Error(1)
}

func availabilityRouter(svc availability.AvailabilityUseCase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewAvailabilityHandler(svc).Register(router.Group("/businesses"))
	return router
}

func TestAvailableSlots_OK(t *testing.T) {
	svc := &MockAvailabilityUseCase{}
	date := time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC)
	staffID := int64(3)
	svc.On("AvailableSlots", mock.Anything, availability.SlotsInput{
		BusinessID: 1,
		ServiceID:  10,
		StaffID:    &staffID,
		Date:       date,
	}).Return([]slots.Slot{
		{Start: date.Add(9 * time.Hour), End: date.Add(10 * time.Hour), Available: true},
	}, nil)

	w := doJSON(t, availabilityRouter(svc), http.MethodGet,
		"/businesses/1/available-slots?service_id=10&date=2025-06-02&staff_id=3", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Slots []slots.Slot `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Slots, 1)
	assert.True(t, resp.Slots[0].Available)
	svc.AssertExpectations(t)
}

func TestAvailableSlots_BadDate(t *testing.T) {
	svc := &MockAvailabilityUseCase{}

	w := doJSON(t, availabilityRouter(svc), http.MethodGet,
		"/businesses/1/available-slots?service_id=10&date=June-2nd", nil, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "AvailableSlots")
}

func TestAvailableDates_OK(t *testing.T) {
	svc := &MockAvailabilityUseCase{}
	svc.On("AvailableDates", mock.Anything, mock.MatchedBy(func(in availability.DatesInput) bool {
		return in.BusinessID == 1 && in.StaffID == nil &&
			in.From.Format("2006-01-02") == "2025-06-01" &&
			in.To.Format("2006-01-02") == "2025-06-07"
	})).Return([]availability.DateInfo{
		{Date: "2025-06-02", Available: true},
	}, nil)

	w := doJSON(t, availabilityRouter(svc), http.MethodGet,
		"/businesses/1/available-dates?from=2025-06-01&to=2025-06-07", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Dates []availability.DateInfo `json:"dates"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Dates, 1)
	assert.Equal(t, "2025-06-02", resp.Dates[0].Date)
	svc.AssertExpectations(t)
}

func TestAvailableDates_BadBusinessID(t *testing.T) {
	svc := &MockAvailabilityUseCase{}

	w := doJSON(t, availabilityRouter(svc), http.MethodGet,
		"/businesses/nan/available-dates?from=2025-06-01&to=2025-06-07", nil, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "AvailableDates")
}
