// Package schedule resolves the effective open windows for a business, an
// optional staff member, and a calendar date. Resolution is a pure function
// of the schedule state passed in: no clock, no store access.
package schedule

import (
	"time"

	"github.com/avetisov/apptcore/internal/domain"
)

// DaySchedule is the schedule state relevant to one date, as loaded by the
// caller: the templates and overrides that could apply.
type DaySchedule struct {
	BusinessTemplate *domain.AvailabilityTemplate
	StaffTemplate    *domain.AvailabilityTemplate
	Overrides        []domain.AvailabilityOverride
}

// Resolve returns the open windows for date. Precedence: a staff-scoped
// override wins over a business-wide one, any override wins over the weekly
// template, a staff template wins over the business default. A closed
// override or a missing template yields no windows.
func Resolve(state DaySchedule, staffID *int64, date time.Time) []domain.TimeWindow {
	day := midnight(date)

	if ov := pickOverride(state.Overrides, staffID, day); ov != nil {
		if !ov.IsAvailable {
			return nil
		}
		return []domain.TimeWindow{window(day, ov.StartMinutes, ov.EndMinutes)}
	}

	tpl := pickTemplate(state, staffID)
	if tpl == nil {
		return nil
	}

	var windows []domain.TimeWindow
	for _, slot := range tpl.Slots {
		if slot.DayOfWeek != day.Weekday() {
			continue
		}
		windows = append(windows, window(day, slot.StartMinutes, slot.EndMinutes))
	}
	return windows
}

// DateOpen reports whether date has any open hours at all: an explicit open
// override, or no override and a template entry for that day of week. Used by
// the month-listing variant, which does not need the windows themselves.
func DateOpen(state DaySchedule, staffID *int64, date time.Time) bool {
	day := midnight(date)

	if ov := pickOverride(state.Overrides, staffID, day); ov != nil {
		return ov.IsAvailable
	}

	tpl := pickTemplate(state, staffID)
	if tpl == nil {
		return false
	}
	for _, slot := range tpl.Slots {
		if slot.DayOfWeek == day.Weekday() {
			return true
		}
	}
	return false
}

// pickOverride returns the most specific override for the date: staff-scoped
// first, then business-wide. A business-wide override applies to every staff
// member.
func pickOverride(overrides []domain.AvailabilityOverride, staffID *int64, day time.Time) *domain.AvailabilityOverride {
	var businessWide *domain.AvailabilityOverride
	for i := range overrides {
		ov := &overrides[i]
		if !sameDay(ov.Date, day) {
			continue
		}
		if ov.StaffID == nil {
			businessWide = ov
			continue
		}
		if staffID != nil && *ov.StaffID == *staffID {
			return ov
		}
	}
	return businessWide
}

func pickTemplate(state DaySchedule, staffID *int64) *domain.AvailabilityTemplate {
	if staffID != nil && state.StaffTemplate != nil {
		return state.StaffTemplate
	}
	return state.BusinessTemplate
}

func window(day time.Time, startMin, endMin int) domain.TimeWindow {
	return domain.TimeWindow{
		Start: day.Add(time.Duration(startMin) * time.Minute),
		End:   day.Add(time.Duration(endMin) * time.Minute),
	}
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func sameDay(a, b time.Time) bool {
	y1, m1, d1 := a.Date()
	y2, m2, d2 := b.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
