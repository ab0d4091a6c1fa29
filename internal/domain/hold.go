package domain

import "time"

// Hold is a short-lived exclusive reservation on an interval. It occupies the
// same conflict space as a booking until it expires or is consumed by
// confirmation. An expired hold is dead immediately, before any sweep
// physically deletes it.
type Hold struct {
	ID             int64
	Token          string
	BusinessID     int64
	StaffID        *int64
	ServiceID      *int64
	CustomerID     *int64
	Interval       Interval
	IdempotencyKey *string
	ExpiresAt      time.Time
	CreatedAt      time.Time
}

func (h Hold) Expired(now time.Time) bool {
	return !h.ExpiresAt.After(now)
}
