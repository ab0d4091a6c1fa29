package domain

// Service is a bookable offering of a business.
type Service struct {
	ID              int64
	BusinessID      int64
	Name            string
	DurationMinutes int
	BufferMinutes   int
	// Capacity is the number of concurrent bookings the service admits per
	// slot. Holds count against it like bookings.
	Capacity int
}

// BookingPolicy is the per-business booking configuration consumed by the
// core. Read-mostly; written by dashboard components outside this core.
type BookingPolicy struct {
	BusinessID               int64
	MinBookingNoticeHours    int
	MaxAdvanceBookingDays    int
	CancellationPolicyHours  int
	RequireApproval          bool
	RequireEmailConfirmation bool
}
