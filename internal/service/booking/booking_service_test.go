package booking

import (
	"context"
	"testing"
	"time"

	"github.com/avetisov/apptcore/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) BookingsInRange(ctx context.Context, businessID int64, staffID *int64, from, to time.Time) ([]domain.Booking, error) {
	args := m.Called(ctx, businessID, staffID, from, to)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) ActiveHolds(ctx context.Context, businessID int64, staffID *int64, from, to time.Time) ([]domain.Hold, error) {
	args := m.Called(ctx, businessID, staffID, from, to)
	return args.Get(0).([]domain.Hold), args.Error(1)
}

func (m *MockBookingRepository) GetBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) GetHoldByToken(ctx context.Context, token string) (*domain.Hold, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Hold), args.Error(1)
}

func (m *MockBookingRepository) CreateHoldIfFree(ctx context.Context, hold *domain.Hold, svc *domain.Service) (*domain.Hold, error) {
	args := m.Called(ctx, hold, svc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Hold), args.Error(1)
}

func (m *MockBookingRepository) ConfirmHold(ctx context.Context, token string, status domain.BookingStatus, customerName, customerEmail string) (*domain.Booking, error) {
	args := m.Called(ctx, token, status, customerName, customerEmail)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) CreateBookingIfFree(ctx context.Context, booking *domain.Booking, svc *domain.Service) (*domain.Booking, error) {
	args := m.Called(ctx, booking, svc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) UpdateStatus(ctx context.Context, id int64, next domain.BookingStatus, event domain.EventType) (*domain.Booking, error) {
	args := m.Called(ctx, id, next, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) Reschedule(ctx context.Context, id int64, interval domain.Interval, svc *domain.Service) (*domain.Booking, error) {
	args := m.Called(ctx, id, interval, svc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) DeleteExpiredHolds(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBookingRepository) ExpireUnconfirmedBefore(ctx context.Context, deadline time.Time) ([]domain.Booking, error) {
	args := m.Called(ctx, deadline)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) Service(ctx context.Context, serviceID int64) (*domain.Service, error) {
	args := m.Called(ctx, serviceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Service), args.Error(1)
}

func (m *MockCatalog) Policy(ctx context.Context, businessID int64) (*domain.BookingPolicy, error) {
	args := m.Called(ctx, businessID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BookingPolicy), args.Error(1)
}

var fixedNow = time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC)

func newTestService(repo *MockBookingRepository, cat *MockCatalog) *BookingService {
	return NewBookingService(repo, cat, zerolog.Nop(), 5*time.Minute, time.Hour,
		WithClock(func() time.Time { return fixedNow }))
}

func testSvc() *domain.Service {
	return &domain.Service{ID: 10, BusinessID: 1, DurationMinutes: 60, Capacity: 1}
}

func TestCreateHold_Success(t *testing.T) {
	repo := &MockBookingRepository{}
	cat := &MockCatalog{}
	s := newTestService(repo, cat)

	cat.On("Service", mock.Anything, int64(10)).Return(testSvc(), nil)
	repo.On("CreateHoldIfFree", mock.Anything, mock.MatchedBy(func(h *domain.Hold) bool {
		return h.BusinessID == 1 &&
			h.Token != "" &&
			h.ExpiresAt.Equal(fixedNow.Add(5*time.Minute))
	}), testSvc()).Return(&domain.Hold{ID: 42, Token: "tok", BusinessID: 1}, nil)

	hold, err := s.CreateHold(context.Background(), CreateHoldInput{
		BusinessID: 1,
		ServiceID:  10,
		Start:      fixedNow.Add(24 * time.Hour),
		End:        fixedNow.Add(25 * time.Hour),
	})

	require.NoError(t, err)
	assert.Equal(t, int64(42), hold.ID)
	repo.AssertExpectations(t)
}

func TestCreateHold_InvalidInterval(t *testing.T) {
	repo := &MockBookingRepository{}
	cat := &MockCatalog{}
	s := newTestService(repo, cat)

	_, err := s.CreateHold(context.Background(), CreateHoldInput{
		BusinessID: 1,
		ServiceID:  10,
		Start:      fixedNow.Add(25 * time.Hour),
		End:        fixedNow.Add(24 * time.Hour),
	})

	assert.ErrorIs(t, err, domain.ErrInvalidInterval)
	repo.AssertNotCalled(t, "CreateHoldIfFree")
}

func TestCreateHold_ConflictPropagates(t *testing.T) {
	repo := &MockBookingRepository{}
	cat := &MockCatalog{}
	s := newTestService(repo, cat)

	cat.On("Service", mock.Anything, int64(10)).Return(testSvc(), nil)
	repo.On("CreateHoldIfFree", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, domain.ErrSlotUnavailable)

	_, err := s.CreateHold(context.Background(), CreateHoldInput{
		BusinessID: 1,
		ServiceID:  10,
		Start:      fixedNow.Add(24 * time.Hour),
		End:        fixedNow.Add(25 * time.Hour),
	})

	assert.ErrorIs(t, err, domain.ErrSlotUnavailable)
}

func TestCreateHold_TTLCappedAtDefault(t *testing.T) {
	repo := &MockBookingRepository{}
	cat := &MockCatalog{}
	s := newTestService(repo, cat)

	cat.On("Service", mock.Anything, int64(10)).Return(testSvc(), nil)
	repo.On("CreateHoldIfFree", mock.Anything, mock.MatchedBy(func(h *domain.Hold) bool {
		// Requested 3600s, capped at the configured 5 minutes.
		return h.ExpiresAt.Equal(fixedNow.Add(5 * time.Minute))
	}), mock.Anything).Return(&domain.Hold{ID: 1}, nil)

	_, err := s.CreateHold(context.Background(), CreateHoldInput{
		BusinessID: 1,
		ServiceID:  10,
		Start:      fixedNow.Add(24 * time.Hour),
		End:        fixedNow.Add(25 * time.Hour),
		TTLSeconds: 3600,
	})

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestCreateHold_ShorterTTLHonored(t *testing.T) {
	repo := &MockBookingRepository{}
	cat := &MockCatalog{}
	s := newTestService(repo, cat)

	cat.On("Service", mock.Anything, int64(10)).Return(testSvc(), nil)
	repo.On("CreateHoldIfFree", mock.Anything, mock.MatchedBy(func(h *domain.Hold) bool {
		return h.ExpiresAt.Equal(fixedNow.Add(time.Minute))
	}), mock.Anything).Return(&domain.Hold{ID: 1}, nil)

	_, err := s.CreateHold(context.Background(), CreateHoldInput{
		BusinessID: 1,
		ServiceID:  10,
		Start:      fixedNow.Add(24 * time.Hour),
		End:        fixedNow.Add(25 * time.Hour),
		TTLSeconds: 60,
	})

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestConfirmHold_StatusFollowsPolicy(t *testing.T) {
	tests := []struct {
		name   string
		policy domain.BookingPolicy
		want   domain.BookingStatus
	}{
		{"email confirmation required", domain.BookingPolicy{RequireEmailConfirmation: true}, domain.BookingStatusUnconfirmed},
		{"approval required", domain.BookingPolicy{RequireApproval: true}, domain.BookingStatusPending},
		{"no gate", domain.BookingPolicy{}, domain.BookingStatusConfirmed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &MockBookingRepository{}
			cat := &MockCatalog{}
			s := newTestService(repo, cat)

			repo.On("GetHoldByToken", mock.Anything, "tok").
				Return(&domain.Hold{Token: "tok", BusinessID: 1}, nil)
			cat.On("Policy", mock.Anything, int64(1)).Return(&tt.policy, nil)
			repo.On("ConfirmHold", mock.Anything, "tok", tt.want, "Ann", "ann@example.com").
				Return(&domain.Booking{ID: 7, BusinessID: 1, Status: tt.want}, nil)

			b, err := s.ConfirmHold(context.Background(), ConfirmInput{
				HoldToken:     "tok",
				CustomerName:  "Ann",
				CustomerEmail: "ann@example.com",
			})

			require.NoError(t, err)
			assert.Equal(t, tt.want, b.Status)
			repo.AssertExpectations(t)
		})
	}
}

func TestConfirmHold_NotFound(t *testing.T) {
	repo := &MockBookingRepository{}
	cat := &MockCatalog{}
	s := newTestService(repo, cat)

	repo.On("GetHoldByToken", mock.Anything, "missing").Return(nil, domain.ErrHoldNotFound)

	_, err := s.ConfirmHold(context.Background(), ConfirmInput{HoldToken: "missing"})
	assert.ErrorIs(t, err, domain.ErrHoldNotFound)
}

func TestCancelBooking_Idempotent(t *testing.T) {
	repo := &MockBookingRepository{}
	cat := &MockCatalog{}
	s := newTestService(repo, cat)

	cancelled := &domain.Booking{ID: 7, Status: domain.BookingStatusCancelled}
	repo.On("GetBooking", mock.Anything, int64(7)).Return(cancelled, nil)

	got, err := s.CancelBooking(context.Background(), 7)

	require.NoError(t, err)
	assert.Equal(t, cancelled, got)
	repo.AssertNotCalled(t, "UpdateStatus")
}

func TestCancelBooking_WindowClosed(t *testing.T) {
	repo := &MockBookingRepository{}
	cat := &MockCatalog{}
	s := newTestService(repo, cat)

	// Booking starts in 2 hours; policy demands 24h notice.
	interval, _ := domain.NewInterval(fixedNow.Add(2*time.Hour), fixedNow.Add(3*time.Hour))
	repo.On("GetBooking", mock.Anything, int64(7)).
		Return(&domain.Booking{ID: 7, BusinessID: 1, Status: domain.BookingStatusConfirmed, Interval: interval}, nil)
	cat.On("Policy", mock.Anything, int64(1)).
		Return(&domain.BookingPolicy{CancellationPolicyHours: 24}, nil)

	_, err := s.CancelBooking(context.Background(), 7)

	assert.ErrorIs(t, err, domain.ErrCancellationWindowClosed)
	repo.AssertNotCalled(t, "UpdateStatus")
}

func TestCancelBooking_Success(t *testing.T) {
	repo := &MockBookingRepository{}
	cat := &MockCatalog{}
	s := newTestService(repo, cat)

	interval, _ := domain.NewInterval(fixedNow.Add(48*time.Hour), fixedNow.Add(49*time.Hour))
	repo.On("GetBooking", mock.Anything, int64(7)).
		Return(&domain.Booking{ID: 7, BusinessID: 1, Status: domain.BookingStatusConfirmed, Interval: interval}, nil)
	cat.On("Policy", mock.Anything, int64(1)).
		Return(&domain.BookingPolicy{CancellationPolicyHours: 24}, nil)
	repo.On("UpdateStatus", mock.Anything, int64(7), domain.BookingStatusCancelled, domain.EventBookingCancelled).
		Return(&domain.Booking{ID: 7, Status: domain.BookingStatusCancelled}, nil)

	got, err := s.CancelBooking(context.Background(), 7)

	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, got.Status)
	repo.AssertExpectations(t)
}

func TestRescheduleBooking_InvalidInterval(t *testing.T) {
	repo := &MockBookingRepository{}
	cat := &MockCatalog{}
	s := newTestService(repo, cat)

	_, err := s.RescheduleBooking(context.Background(), 7, fixedNow, fixedNow)

	assert.ErrorIs(t, err, domain.ErrInvalidInterval)
	repo.AssertNotCalled(t, "Reschedule")
}

func TestRescheduleBooking_Success(t *testing.T) {
	repo := &MockBookingRepository{}
	cat := &MockCatalog{}
	s := newTestService(repo, cat)

	serviceID := int64(10)
	repo.On("GetBooking", mock.Anything, int64(7)).
		Return(&domain.Booking{ID: 7, BusinessID: 1, ServiceID: &serviceID, Status: domain.BookingStatusConfirmed}, nil)
	cat.On("Service", mock.Anything, serviceID).Return(testSvc(), nil)

	start := fixedNow.Add(72 * time.Hour)
	interval, _ := domain.NewInterval(start, start.Add(time.Hour))
	repo.On("Reschedule", mock.Anything, int64(7), interval, testSvc()).
		Return(&domain.Booking{ID: 7, Interval: interval, Status: domain.BookingStatusConfirmed}, nil)

	got, err := s.RescheduleBooking(context.Background(), 7, start, start.Add(time.Hour))

	require.NoError(t, err)
	assert.Equal(t, start, got.Interval.Start)
	repo.AssertExpectations(t)
}

func TestAdminCreateBooking_RunsConflictCheck(t *testing.T) {
	repo := &MockBookingRepository{}
	cat := &MockCatalog{}
	s := newTestService(repo, cat)

	cat.On("Service", mock.Anything, int64(10)).Return(testSvc(), nil)
	repo.On("CreateBookingIfFree", mock.Anything, mock.Anything, testSvc()).
		Return(nil, domain.ErrSlotUnavailable)

	_, err := s.AdminCreateBooking(context.Background(), AdminCreateInput{
		BusinessID: 1,
		ServiceID:  10,
		Start:      fixedNow.Add(24 * time.Hour),
		End:        fixedNow.Add(25 * time.Hour),
	})

	assert.ErrorIs(t, err, domain.ErrSlotUnavailable)
}

func TestSweepUnconfirmed_UsesConfirmationTTL(t *testing.T) {
	repo := &MockBookingRepository{}
	cat := &MockCatalog{}
	s := newTestService(repo, cat)

	repo.On("ExpireUnconfirmedBefore", mock.Anything, fixedNow.Add(-time.Hour)).
		Return([]domain.Booking{{ID: 1}}, nil)

	expired, err := s.SweepUnconfirmed(context.Background())

	require.NoError(t, err)
	assert.Len(t, expired, 1)
	repo.AssertExpectations(t)
}
