package schedule

import (
	"testing"
	"time"

	"github.com/avetisov/apptcore/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr(v int64) *int64 {
	return &v
}

// Monday 2025-06-02.
var monday = date(2025, time.June, 2)

func businessTemplate() *domain.AvailabilityTemplate {
	return &domain.AvailabilityTemplate{
		ID:         1,
		BusinessID: 1,
		Slots: []domain.WeeklySlot{
			{DayOfWeek: time.Monday, StartMinutes: 9 * 60, EndMinutes: 12 * 60},
			{DayOfWeek: time.Wednesday, StartMinutes: 10 * 60, EndMinutes: 18 * 60},
		},
	}
}

func TestResolve_TemplateMatchingWeekday(t *testing.T) {
	state := DaySchedule{BusinessTemplate: businessTemplate()}

	windows := Resolve(state, nil, monday)

	require.Len(t, windows, 1)
	assert.Equal(t, monday.Add(9*time.Hour), windows[0].Start)
	assert.Equal(t, monday.Add(12*time.Hour), windows[0].End)
}

func TestResolve_NoTemplate(t *testing.T) {
	windows := Resolve(DaySchedule{}, nil, monday)
	assert.Empty(t, windows)
}

func TestResolve_NoSlotForWeekday(t *testing.T) {
	state := DaySchedule{BusinessTemplate: businessTemplate()}

	// Tuesday has no weekly slot.
	windows := Resolve(state, nil, monday.AddDate(0, 0, 1))
	assert.Empty(t, windows)
}

func TestResolve_ClosedOverrideWinsOverTemplate(t *testing.T) {
	state := DaySchedule{
		BusinessTemplate: businessTemplate(),
		Overrides: []domain.AvailabilityOverride{
			{BusinessID: 1, Date: monday, IsAvailable: false},
		},
	}

	windows := Resolve(state, nil, monday)
	assert.Empty(t, windows)
}

func TestResolve_CustomHoursOverrideReplacesTemplate(t *testing.T) {
	state := DaySchedule{
		BusinessTemplate: businessTemplate(),
		Overrides: []domain.AvailabilityOverride{
			{BusinessID: 1, Date: monday, IsAvailable: true, StartMinutes: 14 * 60, EndMinutes: 16 * 60},
		},
	}

	windows := Resolve(state, nil, monday)

	require.Len(t, windows, 1)
	assert.Equal(t, monday.Add(14*time.Hour), windows[0].Start)
	assert.Equal(t, monday.Add(16*time.Hour), windows[0].End)
}

func TestResolve_StaffOverrideWinsOverBusinessOverride(t *testing.T) {
	state := DaySchedule{
		BusinessTemplate: businessTemplate(),
		Overrides: []domain.AvailabilityOverride{
			{BusinessID: 1, Date: monday, IsAvailable: false},
			{BusinessID: 1, StaffID: ptr(7), Date: monday, IsAvailable: true, StartMinutes: 10 * 60, EndMinutes: 13 * 60},
		},
	}

	windows := Resolve(state, ptr(7), monday)

	require.Len(t, windows, 1)
	assert.Equal(t, monday.Add(10*time.Hour), windows[0].Start)
}

func TestResolve_BusinessOverrideAppliesToStaff(t *testing.T) {
	state := DaySchedule{
		BusinessTemplate: businessTemplate(),
		Overrides: []domain.AvailabilityOverride{
			{BusinessID: 1, Date: monday, IsAvailable: false},
		},
	}

	windows := Resolve(state, ptr(7), monday)
	assert.Empty(t, windows)
}

func TestResolve_StaffTemplateWinsOverBusinessDefault(t *testing.T) {
	staffID := ptr(7)
	state := DaySchedule{
		BusinessTemplate: businessTemplate(),
		StaffTemplate: &domain.AvailabilityTemplate{
			ID:         2,
			BusinessID: 1,
			StaffID:    staffID,
			Slots: []domain.WeeklySlot{
				{DayOfWeek: time.Monday, StartMinutes: 13 * 60, EndMinutes: 17 * 60},
			},
		},
	}

	windows := Resolve(state, staffID, monday)

	require.Len(t, windows, 1)
	assert.Equal(t, monday.Add(13*time.Hour), windows[0].Start)
	assert.Equal(t, monday.Add(17*time.Hour), windows[0].End)
}

func TestResolve_OverrideOnOtherDateIgnored(t *testing.T) {
	state := DaySchedule{
		BusinessTemplate: businessTemplate(),
		Overrides: []domain.AvailabilityOverride{
			{BusinessID: 1, Date: monday.AddDate(0, 0, 7), IsAvailable: false},
		},
	}

	windows := Resolve(state, nil, monday)
	require.Len(t, windows, 1)
}

func TestDateOpen(t *testing.T) {
	tests := []struct {
		name  string
		state DaySchedule
		date  time.Time
		want  bool
	}{
		{
			name:  "template weekday open",
			state: DaySchedule{BusinessTemplate: businessTemplate()},
			date:  monday,
			want:  true,
		},
		{
			name:  "template weekday closed",
			state: DaySchedule{BusinessTemplate: businessTemplate()},
			date:  monday.AddDate(0, 0, 1),
			want:  false,
		},
		{
			name: "closed override",
			state: DaySchedule{
				BusinessTemplate: businessTemplate(),
				Overrides:        []domain.AvailabilityOverride{{Date: monday, IsAvailable: false}},
			},
			date: monday,
			want: false,
		},
		{
			name: "open override without template slot",
			state: DaySchedule{
				BusinessTemplate: businessTemplate(),
				Overrides: []domain.AvailabilityOverride{
					{Date: monday.AddDate(0, 0, 1), IsAvailable: true, StartMinutes: 600, EndMinutes: 720},
				},
			},
			date: monday.AddDate(0, 0, 1),
			want: true,
		},
		{
			name:  "no schedule at all",
			state: DaySchedule{},
			date:  monday,
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DateOpen(tt.state, nil, tt.date))
		})
	}
}
