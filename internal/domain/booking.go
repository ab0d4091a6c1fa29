package domain

import "time"

type BookingStatus string

const (
	// Awaiting customer email confirmation. Still blocks the slot.
	BookingStatusUnconfirmed BookingStatus = "UNCONFIRMED"
	// Awaiting manual approval by the business.
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCompleted BookingStatus = "COMPLETED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	BookingStatusNoShow    BookingStatus = "NO_SHOW"
)

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusUnconfirmed: {BookingStatusPending, BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusPending:     {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed:   {BookingStatusCompleted, BookingStatusCancelled, BookingStatusNoShow},
	BookingStatusCompleted:   {},
	BookingStatusCancelled:   {},
	BookingStatusNoShow:      {},
}

func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further status change is allowed.
func (s BookingStatus) Terminal() bool {
	return len(bookingTransitions[s]) == 0
}

// Blocks reports whether a booking in this status occupies its interval for
// conflict checks. Unconfirmed bookings block to avoid a race while the
// customer confirms by email.
func (s BookingStatus) Blocks() bool {
	switch s {
	case BookingStatusUnconfirmed, BookingStatusPending, BookingStatusConfirmed:
		return true
	}
	return false
}

var allBookingStatuses = []BookingStatus{
	BookingStatusUnconfirmed,
	BookingStatusPending,
	BookingStatusConfirmed,
	BookingStatusCompleted,
	BookingStatusCancelled,
	BookingStatusNoShow,
}

// BlockingStatuses lists every status whose bookings occupy their interval.
// Conflict queries derive their status filter from this list so the SQL
// cannot drift from Blocks.
func BlockingStatuses() []BookingStatus {
	var out []BookingStatus
	for _, s := range allBookingStatuses {
		if s.Blocks() {
			out = append(out, s)
		}
	}
	return out
}

type Booking struct {
	ID            int64
	BusinessID    int64
	StaffID       *int64
	ServiceID     *int64
	CustomerName  string
	CustomerEmail string
	Interval      Interval
	Status        BookingStatus
	// Metadata carries opaque workflow state produced by components outside
	// this core. Stored as-is, never interpreted.
	Metadata  []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Transition moves the booking to next or fails with ErrInvalidTransition.
func (b *Booking) Transition(next BookingStatus) error {
	if !b.Status.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	b.Status = next
	return nil
}

// InitialStatus derives the status of a freshly created booking from the
// business policy.
func InitialStatus(p BookingPolicy) BookingStatus {
	switch {
	case p.RequireEmailConfirmation:
		return BookingStatusUnconfirmed
	case p.RequireApproval:
		return BookingStatusPending
	default:
		return BookingStatusConfirmed
	}
}
