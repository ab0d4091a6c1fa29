package availability

import (
	"context"
	"time"

	"github.com/avetisov/apptcore/internal/domain"
	"github.com/avetisov/apptcore/internal/repository"
	"github.com/avetisov/apptcore/internal/schedule"
	"github.com/avetisov/apptcore/internal/slots"
	"github.com/rs/zerolog"
)

type AvailabilityUseCase interface {
	AvailableSlots(ctx context.Context, input SlotsInput) ([]slots.Slot, error)
	AvailableDates(ctx context.Context, input DatesInput) ([]DateInfo, error)
}

// Catalog serves service definitions and booking policies.
type Catalog interface {
	Service(ctx context.Context, serviceID int64) (*domain.Service, error)
	Policy(ctx context.Context, businessID int64) (*domain.BookingPolicy, error)
}

type SlotsInput struct {
	BusinessID int64
	ServiceID  int64
	StaffID    *int64
	Date       time.Time
}

type DatesInput struct {
	BusinessID int64
	StaffID    *int64
	From       time.Time
	To         time.Time
}

type DateInfo struct {
	Date      string `json:"date"`
	Available bool   `json:"available"`
}

type Service struct {
	schedules repository.ScheduleRepository
	bookings  repository.BookingRepository
	catalog   Catalog
	logger    zerolog.Logger
	now       func() time.Time
}

type Option func(*Service)

// WithClock fixes the service's notion of now. Tests use it.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(schedules repository.ScheduleRepository, bookings repository.BookingRepository, catalog Catalog, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		schedules: schedules,
		bookings:  bookings,
		catalog:   catalog,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AvailableSlots returns every candidate slot for the date, flagged
// available or not, so calendar UIs can grey out taken slots.
func (s *Service) AvailableSlots(ctx context.Context, input SlotsInput) ([]slots.Slot, error) {
	svc, err := s.catalog.Service(ctx, input.ServiceID)
	if err != nil {
		return nil, err
	}
	policy, err := s.catalog.Policy(ctx, input.BusinessID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if beyondAdvanceLimit(input.Date, now, policy.MaxAdvanceBookingDays) {
		return nil, nil
	}

	windows, err := s.resolveWindows(ctx, input.BusinessID, input.StaffID, input.Date)
	if err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		// Closed date: empty result, not an error.
		return nil, nil
	}

	occupancies, err := s.loadOccupancies(ctx, input.BusinessID, input.StaffID, windows, svc)
	if err != nil {
		return nil, err
	}

	generated := slots.Generate(slots.Params{
		Windows:         windows,
		DurationMinutes: svc.DurationMinutes,
		BufferMinutes:   svc.BufferMinutes,
		Capacity:        svc.Capacity,
		MinNoticeHours:  policy.MinBookingNoticeHours,
		StaffID:         input.StaffID,
		Occupancies:     occupancies,
		Now:             now,
	})

	s.logger.Debug().
		Int64("business_id", input.BusinessID).
		Str("date", input.Date.Format("2006-01-02")).
		Int("slots", len(generated)).
		Msg("generated slots")
	return generated, nil
}

// AvailableDates lists dates in [From, To] with an open-hours flag. Dates
// beyond the advance-booking horizon are excluded entirely.
func (s *Service) AvailableDates(ctx context.Context, input DatesInput) ([]DateInfo, error) {
	policy, err := s.catalog.Policy(ctx, input.BusinessID)
	if err != nil {
		return nil, err
	}

	state, err := s.loadDayState(ctx, input.BusinessID, input.StaffID, input.From, input.To)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var dates []DateInfo
	for d := midnight(input.From); !d.After(input.To); d = d.AddDate(0, 0, 1) {
		if beyondAdvanceLimit(d, now, policy.MaxAdvanceBookingDays) {
			continue
		}
		dates = append(dates, DateInfo{
			Date:      d.Format("2006-01-02"),
			Available: schedule.DateOpen(state, input.StaffID, d),
		})
	}
	return dates, nil
}

func (s *Service) resolveWindows(ctx context.Context, businessID int64, staffID *int64, date time.Time) ([]domain.TimeWindow, error) {
	state, err := s.loadDayState(ctx, businessID, staffID, date, date)
	if err != nil {
		return nil, err
	}
	return schedule.Resolve(state, staffID, date), nil
}

func (s *Service) loadDayState(ctx context.Context, businessID int64, staffID *int64, from, to time.Time) (schedule.DaySchedule, error) {
	var state schedule.DaySchedule

	businessTpl, err := s.schedules.GetTemplate(ctx, businessID, nil)
	if err != nil {
		return state, err
	}
	state.BusinessTemplate = businessTpl

	if staffID != nil {
		staffTpl, err := s.schedules.GetTemplate(ctx, businessID, staffID)
		if err != nil {
			return state, err
		}
		state.StaffTemplate = staffTpl
	}

	overrides, err := s.schedules.GetOverrides(ctx, businessID, staffID, midnight(from), midnight(to))
	if err != nil {
		return state, err
	}
	state.Overrides = overrides
	return state, nil
}

// loadOccupancies reads blocking bookings and live holds covering the
// resolved windows, widened backwards by the service buffer so occupancies
// ending just before a window still impose their trailing gap.
func (s *Service) loadOccupancies(ctx context.Context, businessID int64, staffID *int64, windows []domain.TimeWindow, svc *domain.Service) ([]slots.Occupancy, error) {
	from := windows[0].Start
	to := windows[0].End
	for _, w := range windows[1:] {
		if w.Start.Before(from) {
			from = w.Start
		}
		if w.End.After(to) {
			to = w.End
		}
	}
	from = from.Add(-time.Duration(svc.BufferMinutes) * time.Minute)

	bookings, err := s.bookings.BookingsInRange(ctx, businessID, staffID, from, to)
	if err != nil {
		return nil, err
	}
	holds, err := s.bookings.ActiveHolds(ctx, businessID, staffID, from, to)
	if err != nil {
		return nil, err
	}

	occupancies := make([]slots.Occupancy, 0, len(bookings)+len(holds))
	for _, b := range bookings {
		occupancies = append(occupancies, slots.Occupancy{Interval: b.Interval, StaffID: b.StaffID})
	}
	for _, h := range holds {
		occupancies = append(occupancies, slots.Occupancy{Interval: h.Interval, StaffID: h.StaffID})
	}
	return occupancies, nil
}

func beyondAdvanceLimit(date, now time.Time, maxAdvanceDays int) bool {
	if maxAdvanceDays <= 0 {
		return false
	}
	limit := midnight(now).AddDate(0, 0, maxAdvanceDays)
	return !midnight(date).Before(limit)
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

var _ AvailabilityUseCase = (*Service)(nil)
