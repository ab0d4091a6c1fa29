package domain

import "time"

// AvailabilityTemplate is a weekly recurring schedule. StaffID nil means the
// business-wide default; a staff-specific template wins over the default when
// resolving that staff member's hours.
type AvailabilityTemplate struct {
	ID         int64
	BusinessID int64
	StaffID    *int64
	Slots      []WeeklySlot
}

// WeeklySlot is one open range on one day of the week. Times are minutes
// since midnight in the business's local day.
type WeeklySlot struct {
	DayOfWeek    time.Weekday
	StartMinutes int
	EndMinutes   int
}

// AvailabilityOverride is a date-specific exception. An override always wins
// over the weekly template for its date; it replaces, never merges. StaffID
// nil applies to all staff, but a staff-scoped override for the same date is
// more specific and wins.
type AvailabilityOverride struct {
	ID           int64
	BusinessID   int64
	StaffID      *int64
	Date         time.Time // midnight, business-local
	IsAvailable  bool
	StartMinutes int // only meaningful when IsAvailable
	EndMinutes   int
}

// TimeWindow is a resolved open range on a concrete date.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}
