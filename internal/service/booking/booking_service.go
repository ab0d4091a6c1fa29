package booking

import (
	"context"
	"errors"
	"time"

	"github.com/avetisov/apptcore/internal/domain"
	"github.com/avetisov/apptcore/internal/metrics"
	"github.com/avetisov/apptcore/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type BookingUseCase interface {
	CreateHold(ctx context.Context, input CreateHoldInput) (*domain.Hold, error)
	ConfirmHold(ctx context.Context, input ConfirmInput) (*domain.Booking, error)
	GetBooking(ctx context.Context, id int64) (*domain.Booking, error)
	CancelBooking(ctx context.Context, id int64) (*domain.Booking, error)
	ApproveBooking(ctx context.Context, id int64) (*domain.Booking, error)
	RescheduleBooking(ctx context.Context, id int64, start, end time.Time) (*domain.Booking, error)
	AdminCreateBooking(ctx context.Context, input AdminCreateInput) (*domain.Booking, error)
	SweepExpiredHolds(ctx context.Context) (int64, error)
	SweepUnconfirmed(ctx context.Context) ([]domain.Booking, error)
}

// Catalog serves service definitions and booking policies.
type Catalog interface {
	Service(ctx context.Context, serviceID int64) (*domain.Service, error)
	Policy(ctx context.Context, businessID int64) (*domain.BookingPolicy, error)
}

type CreateHoldInput struct {
	BusinessID     int64
	ServiceID      int64
	StaffID        *int64
	CustomerID     *int64
	Start          time.Time
	End            time.Time
	IdempotencyKey *string
	TTLSeconds     int
}

type ConfirmInput struct {
	HoldToken     string
	CustomerName  string
	CustomerEmail string
}

type AdminCreateInput struct {
	BusinessID    int64
	ServiceID     int64
	StaffID       *int64
	CustomerName  string
	CustomerEmail string
	Start         time.Time
	End           time.Time
	Metadata      []byte
}

type BookingService struct {
	bookings        repository.BookingRepository
	catalog         Catalog
	logger          zerolog.Logger
	holdTTL         time.Duration
	confirmationTTL time.Duration
	now             func() time.Time
}

type Option func(*BookingService)

// WithClock fixes the service's notion of now. Tests use it.
func WithClock(now func() time.Time) Option {
	return func(s *BookingService) {
		s.now = now
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	catalog Catalog,
	logger zerolog.Logger,
	holdTTL, confirmationTTL time.Duration,
	opts ...Option,
) *BookingService {
	s := &BookingService{
		bookings:        bookings,
		catalog:         catalog,
		logger:          logger,
		holdTTL:         holdTTL,
		confirmationTTL: confirmationTTL,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateHold reserves the candidate interval for a short window. The conflict
// re-check against current bookings and other live holds runs inside the
// store transaction; client-computed availability is never trusted.
func (s *BookingService) CreateHold(ctx context.Context, input CreateHoldInput) (*domain.Hold, error) {
	interval, err := domain.NewInterval(input.Start, input.End)
	if err != nil {
		return nil, err
	}

	svc, err := s.catalog.Service(ctx, input.ServiceID)
	if err != nil {
		return nil, err
	}

	ttl := s.holdTTL
	if input.TTLSeconds > 0 {
		requested := time.Duration(input.TTLSeconds) * time.Second
		// Clients may shorten the hold, never stretch it.
		if requested < ttl {
			ttl = requested
		}
	}

	hold := &domain.Hold{
		Token:          uuid.NewString(),
		BusinessID:     input.BusinessID,
		StaffID:        input.StaffID,
		ServiceID:      &svc.ID,
		CustomerID:     input.CustomerID,
		Interval:       interval,
		IdempotencyKey: input.IdempotencyKey,
		ExpiresAt:      s.now().Add(ttl),
	}

	created, err := s.bookings.CreateHoldIfFree(ctx, hold, svc)
	if err != nil {
		if errors.Is(err, domain.ErrSlotUnavailable) {
			metrics.IncHoldConflict()
			s.logger.Info().
				Int64("business_id", input.BusinessID).
				Time("start", input.Start).
				Msg("hold rejected on conflict")
		}
		return nil, err
	}

	metrics.IncHoldCreated()
	s.logger.Info().
		Int64("business_id", created.BusinessID).
		Str("token", created.Token).
		Time("expires_at", created.ExpiresAt).
		Msg("hold created")
	return created, nil
}

// ConfirmHold converts a live hold into a booking. The initial status follows
// business policy: unconfirmed when email confirmation is required, pending
// when manual approval is required, confirmed otherwise.
func (s *BookingService) ConfirmHold(ctx context.Context, input ConfirmInput) (*domain.Booking, error) {
	hold, err := s.bookings.GetHoldByToken(ctx, input.HoldToken)
	if err != nil {
		return nil, err
	}

	policy, err := s.catalog.Policy(ctx, hold.BusinessID)
	if err != nil {
		return nil, err
	}

	booking, err := s.bookings.ConfirmHold(ctx, input.HoldToken, domain.InitialStatus(*policy), input.CustomerName, input.CustomerEmail)
	if err != nil {
		return nil, err
	}

	metrics.IncBookingCreated(string(booking.Status))
	s.logger.Info().
		Int64("booking_id", booking.ID).
		Int64("business_id", booking.BusinessID).
		Str("status", string(booking.Status)).
		Msg("hold confirmed into booking")
	return booking, nil
}

func (s *BookingService) GetBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	return s.bookings.GetBooking(ctx, id)
}

// CancelBooking sets the cancelled status and frees the interval for future
// conflict checks. Cancelling an already-cancelled booking is a no-op.
func (s *BookingService) CancelBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	current, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == domain.BookingStatusCancelled {
		return current, nil
	}

	policy, err := s.catalog.Policy(ctx, current.BusinessID)
	if err != nil {
		return nil, err
	}
	if policy.CancellationPolicyHours > 0 {
		cutoff := current.Interval.Start.Add(-time.Duration(policy.CancellationPolicyHours) * time.Hour)
		if s.now().After(cutoff) {
			return nil, domain.ErrCancellationWindowClosed
		}
	}

	updated, err := s.bookings.UpdateStatus(ctx, id, domain.BookingStatusCancelled, domain.EventBookingCancelled)
	if err != nil {
		return nil, err
	}

	metrics.IncBookingCancelled()
	s.logger.Info().Int64("booking_id", id).Msg("booking cancelled")
	return updated, nil
}

// ApproveBooking moves a pending booking to confirmed (manual approval flow).
func (s *BookingService) ApproveBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	updated, err := s.bookings.UpdateStatus(ctx, id, domain.BookingStatusConfirmed, domain.EventBookingConfirmed)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int64("booking_id", id).Msg("booking confirmed")
	return updated, nil
}

// RescheduleBooking validates the new interval and moves the booking
// atomically. It never cancels and recreates, so the old slot is never
// momentarily free to a concurrent request.
func (s *BookingService) RescheduleBooking(ctx context.Context, id int64, start, end time.Time) (*domain.Booking, error) {
	interval, err := domain.NewInterval(start, end)
	if err != nil {
		return nil, err
	}

	current, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	var svc *domain.Service
	if current.ServiceID != nil {
		svc, err = s.catalog.Service(ctx, *current.ServiceID)
		if err != nil {
			return nil, err
		}
	}

	updated, err := s.bookings.Reschedule(ctx, id, interval, svc)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("booking_id", id).
		Time("start", interval.Start).
		Msg("booking rescheduled")
	return updated, nil
}

// AdminCreateBooking bypasses the hold step but runs the identical conflict
// validation inside the store transaction.
func (s *BookingService) AdminCreateBooking(ctx context.Context, input AdminCreateInput) (*domain.Booking, error) {
	interval, err := domain.NewInterval(input.Start, input.End)
	if err != nil {
		return nil, err
	}

	svc, err := s.catalog.Service(ctx, input.ServiceID)
	if err != nil {
		return nil, err
	}

	booking := &domain.Booking{
		BusinessID:    input.BusinessID,
		StaffID:       input.StaffID,
		ServiceID:     &svc.ID,
		CustomerName:  input.CustomerName,
		CustomerEmail: input.CustomerEmail,
		Interval:      interval,
		Status:        domain.BookingStatusConfirmed,
		Metadata:      input.Metadata,
	}

	created, err := s.bookings.CreateBookingIfFree(ctx, booking, svc)
	if err != nil {
		if errors.Is(err, domain.ErrSlotUnavailable) {
			metrics.IncHoldConflict()
		}
		return nil, err
	}

	metrics.IncBookingCreated(string(created.Status))
	s.logger.Info().
		Int64("booking_id", created.ID).
		Int64("business_id", created.BusinessID).
		Msg("booking created by admin")
	return created, nil
}

// SweepExpiredHolds physically deletes dead holds. Conflict checks already
// ignore them; the sweep only reclaims rows.
func (s *BookingService) SweepExpiredHolds(ctx context.Context) (int64, error) {
	n, err := s.bookings.DeleteExpiredHolds(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.AddHoldsSwept(n)
		s.logger.Info().Int64("holds", n).Msg("swept expired holds")
	}
	return n, nil
}

// SweepUnconfirmed cancels bookings whose email-confirmation window lapsed.
func (s *BookingService) SweepUnconfirmed(ctx context.Context) ([]domain.Booking, error) {
	deadline := s.now().Add(-s.confirmationTTL)
	expired, err := s.bookings.ExpireUnconfirmedBefore(ctx, deadline)
	if err != nil {
		return nil, err
	}
	if len(expired) > 0 {
		s.logger.Info().Int("bookings", len(expired)).Msg("expired unconfirmed bookings")
	}
	return expired, nil
}

var _ BookingUseCase = (*BookingService)(nil)
