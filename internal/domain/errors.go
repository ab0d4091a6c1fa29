package domain

import "errors"

var (
	// ErrSlotUnavailable means the requested interval conflicts with an
	// existing booking or live hold. Caller must re-fetch availability.
	ErrSlotUnavailable = errors.New("slot unavailable")

	ErrHoldNotFound = errors.New("hold not found")
	ErrHoldExpired  = errors.New("hold expired")

	ErrBookingNotFound = errors.New("booking not found")

	// ErrInvalidInterval is returned on construction of any interval with
	// end <= start. Such intervals are never persisted.
	ErrInvalidInterval = errors.New("interval end must be after start")

	ErrInvalidTransition = errors.New("invalid booking status transition")

	// ErrCancellationWindowClosed means the booking starts too soon to be
	// cancelled under the business cancellation policy.
	ErrCancellationWindowClosed = errors.New("cancellation window closed")
)
