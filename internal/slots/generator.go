// Package slots enumerates candidate booking slots inside resolved schedule
// windows and marks each against existing bookings, live holds, and the
// minimum-notice policy.
package slots

import (
	"time"

	"github.com/avetisov/apptcore/internal/domain"
)

// Slot is one candidate interval with its computed availability.
type Slot struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Available bool      `json:"available"`
}

// Occupancy is an interval that counts against a service's capacity: a
// blocking booking or an unexpired hold.
type Occupancy struct {
	Interval domain.Interval
	StaffID  *int64
}

// Params drives generation for one date.
type Params struct {
	Windows         []domain.TimeWindow
	DurationMinutes int
	BufferMinutes   int
	Capacity        int
	MinNoticeHours  int
	StaffID         *int64
	Occupancies     []Occupancy
	Now             time.Time
}

// Generate returns every candidate in every window, in order, each flagged
// available or not. Candidates step at exactly the service duration; the
// buffer never widens the step, it only pads the conflict test.
func Generate(p Params) []Slot {
	duration := time.Duration(p.DurationMinutes) * time.Minute
	if duration <= 0 {
		return nil
	}
	buffer := time.Duration(p.BufferMinutes) * time.Minute
	capacity := p.Capacity
	if capacity <= 0 {
		capacity = 1
	}
	notBefore := p.Now.Add(time.Duration(p.MinNoticeHours) * time.Hour)

	var out []Slot
	for _, w := range p.Windows {
		for start := w.Start; !start.Add(duration).After(w.End); start = start.Add(duration) {
			candidate := domain.Interval{Start: start, End: start.Add(duration)}
			available := !start.Before(notBefore) &&
				overlapCount(candidate, buffer, p.StaffID, p.Occupancies) < capacity
			out = append(out, Slot{Start: candidate.Start, End: candidate.End, Available: available})
		}
	}
	return out
}

// Conflicts reports whether candidate collides with any occupancy for the
// same staff member, given the service capacity. Hold creation and admin
// booking creation re-run this exact test inside the store transaction.
func Conflicts(candidate domain.Interval, bufferMinutes, capacity int, staffID *int64, occupancies []Occupancy) bool {
	if capacity <= 0 {
		capacity = 1
	}
	buffer := time.Duration(bufferMinutes) * time.Minute
	return overlapCount(candidate, buffer, staffID, occupancies) >= capacity
}

// overlapCount counts occupancies in the candidate's conflict space. An
// occupancy with no staff scope shares the space with every staff member, and
// an unscoped candidate collides with everything in the business.
func overlapCount(candidate domain.Interval, buffer time.Duration, staffID *int64, occupancies []Occupancy) int {
	n := 0
	for _, occ := range occupancies {
		if !sameConflictSpace(staffID, occ.StaffID) {
			continue
		}
		if candidate.ConflictsWith(occ.Interval, buffer) {
			n++
		}
	}
	return n
}

func sameConflictSpace(a, b *int64) bool {
	if a == nil || b == nil {
		return true
	}
	return *a == *b
}
