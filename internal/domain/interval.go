package domain

import "time"

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

func NewInterval(start, end time.Time) (Interval, error) {
	if !end.After(start) {
		return Interval{}, ErrInvalidInterval
	}
	return Interval{Start: start, End: end}, nil
}

func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// ConflictsWith reports whether the interval overlaps other once other's end
// is padded by buffer. The buffer guards only the trailing gap after an
// existing occupancy: the interval may not start within buffer of other's
// end, while an occupancy after the interval imposes no leading pad.
// Boundary contact without the buffer is not a conflict.
func (i Interval) ConflictsWith(other Interval, buffer time.Duration) bool {
	return i.Start.Before(other.End.Add(buffer)) && i.End.After(other.Start)
}
