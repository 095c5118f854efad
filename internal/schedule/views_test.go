package schedule

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAppt(start, end string, status AppointmentStatus) Appointment {
	return Appointment{
		ID:          uuid.New(),
		DentistID:   uuid.New(),
		PatientID:   uuid.New(),
		TreatmentID: uuid.New(),
		StartTime:   at(start),
		EndTime:     at(end),
		Status:      status,
	}
}

func TestWeekStartOf(t *testing.T) {
	monday := testDay

	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"monday maps to itself", monday, monday},
		{"wednesday maps back", monday.AddDate(0, 0, 2).Add(14 * time.Hour), monday},
		{"sunday belongs to the ending week", monday.AddDate(0, 0, 6), monday},
		{"next monday starts the next week", monday.AddDate(0, 0, 7), monday.AddDate(0, 0, 7)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WeekStartOf(tt.in))
		})
	}
}

func TestProjectWeek(t *testing.T) {
	scheduled := testAppt("09:00", "09:30", StatusScheduled)
	cancelled := testAppt("10:00", "10:30", StatusCancelled)
	completed := testAppt("11:00", "11:30", StatusCompleted)

	thursdayAppt := testAppt("09:00", "10:00", StatusScheduled)
	thursdayAppt.StartTime = thursdayAppt.StartTime.AddDate(0, 0, 3)
	thursdayAppt.EndTime = thursdayAppt.EndTime.AddDate(0, 0, 3)

	block := BlockedPeriod{
		ID:        uuid.New(),
		DentistID: scheduled.DentistID,
		StartTime: at("14:00"),
		EndTime:   at("15:00"),
		Reason:    "staff meeting",
	}

	view := ProjectWeek(testDay,
		[]Appointment{cancelled, thursdayAppt, scheduled, completed},
		[]BlockedPeriod{block})

	assert.Equal(t, testDay, view.WeekStart)
	for i, day := range view.Days {
		assert.Equal(t, testDay.AddDate(0, 0, i), day.Date)
	}

	monday := view.Days[0]
	require.Len(t, monday.Entries, 3, "cancelled appointment must not appear")
	assert.Equal(t, scheduled.ID, monday.Entries[0].ID)
	assert.Equal(t, completed.ID, monday.Entries[1].ID)
	assert.Equal(t, block.ID, monday.Entries[2].ID)
	assert.Equal(t, EntryBlockedPeriod, monday.Entries[2].Kind)
	assert.Equal(t, "staff meeting", monday.Entries[2].Reason)

	thursday := view.Days[3]
	require.Len(t, thursday.Entries, 1)
	assert.Equal(t, thursdayAppt.ID, thursday.Entries[0].ID)
}

func TestProjectWeekDropsOutOfRange(t *testing.T) {
	outside := testAppt("09:00", "09:30", StatusScheduled)
	outside.StartTime = outside.StartTime.AddDate(0, 0, 7)
	outside.EndTime = outside.EndTime.AddDate(0, 0, 7)

	view := ProjectWeek(testDay, []Appointment{outside}, nil)

	for _, day := range view.Days {
		assert.Empty(t, day.Entries)
	}
}

func TestProjectDay(t *testing.T) {
	appt := testAppt("10:00", "10:45", StatusScheduled)
	noShow := testAppt("09:00", "09:30", StatusNoShow)
	block := BlockedPeriod{
		ID:        uuid.New(),
		StartTime: at("08:00"),
		EndTime:   at("09:00"),
		Reason:    "admin",
	}
	working := iv("09:00", "17:00")

	view := ProjectDay(testDay, &working, []Appointment{appt, noShow}, []BlockedPeriod{block})

	assert.Equal(t, testDay, view.Date)
	require.NotNil(t, view.Working)
	require.Len(t, view.Entries, 2, "no-show must not appear")

	// Entries come back chronological: block first.
	assert.Equal(t, block.ID, view.Entries[0].ID)
	assert.Equal(t, appt.ID, view.Entries[1].ID)
	assert.Equal(t, 10*60, view.Entries[1].StartMinute)
	assert.Equal(t, 10*60+45, view.Entries[1].EndMinute)

	require.Len(t, view.BlockedPeriods, 1)
}

func TestProjectDayNonWorking(t *testing.T) {
	view := ProjectDay(testDay, nil, nil, nil)

	assert.Nil(t, view.Working)
	assert.Empty(t, view.Entries)
}

func TestProjectList(t *testing.T) {
	later := testAppt("14:00", "14:30", StatusScheduled)
	earlier := testAppt("09:00", "09:30", StatusScheduled)

	page := ProjectList([]Appointment{later, earlier}, 20, 0)

	require.Len(t, page.Items, 2)
	assert.Equal(t, earlier.ID, page.Items[0].ID)
	assert.Equal(t, later.ID, page.Items[1].ID)
	assert.Equal(t, 20, page.Limit)
	assert.Equal(t, 0, page.Offset)
}
