package schedule

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// The three calendar shapes are independent pure projections over one
// query result. They never re-derive booking rules and never mutate.

type CalendarEntryKind string

const (
	EntryAppointment   CalendarEntryKind = "appointment"
	EntryBlockedPeriod CalendarEntryKind = "blocked_period"
)

// CalendarEntry is one positioned item on a week or day grid. StartMinute
// and EndMinute are minutes past midnight for time-of-day positioning.
type CalendarEntry struct {
	ID          uuid.UUID
	Kind        CalendarEntryKind
	StartTime   time.Time
	EndTime     time.Time
	StartMinute int
	EndMinute   int
	Status      AppointmentStatus
	PatientID   *uuid.UUID
	TreatmentID *uuid.UUID
	Reason      string
}

type WeekDay struct {
	Date    time.Time
	Entries []CalendarEntry
}

type WeekView struct {
	WeekStart time.Time
	Days      [7]WeekDay
}

// DayScheduleView is a single day's calendar plus the raw blocked periods,
// which the schedule screen lets staff edit (through the orchestrator, not
// through the view).
type DayScheduleView struct {
	Date           time.Time
	Working        *Interval
	Entries        []CalendarEntry
	BlockedPeriods []BlockedPeriod
}

// AppointmentPage is one page of the flat chronological list.
type AppointmentPage struct {
	Items  []Appointment
	Limit  int
	Offset int
}

// ProjectWeek groups occupying entries by day-of-week for the week
// starting at weekStart (midnight). Cancelled and no-show appointments do
// not occupy time and are left out of the grid.
func ProjectWeek(weekStart time.Time, appts []Appointment, blocks []BlockedPeriod) WeekView {
	view := WeekView{WeekStart: weekStart}
	for i := range view.Days {
		view.Days[i].Date = weekStart.AddDate(0, 0, i)
	}

	for i := range appts {
		a := &appts[i]
		if !a.Status.Occupies() {
			continue
		}
		if idx, ok := weekDayIndex(weekStart, a.StartTime); ok {
			view.Days[idx].Entries = append(view.Days[idx].Entries, appointmentEntry(a))
		}
	}
	for i := range blocks {
		b := &blocks[i]
		if idx, ok := weekDayIndex(weekStart, b.StartTime); ok {
			view.Days[idx].Entries = append(view.Days[idx].Entries, blockedEntry(b))
		}
	}

	for i := range view.Days {
		sortEntries(view.Days[i].Entries)
	}
	return view
}

// ProjectDay renders one day's calendar. working is nil on a non-working
// day.
func ProjectDay(date time.Time, working *Interval, appts []Appointment, blocks []BlockedPeriod) DayScheduleView {
	view := DayScheduleView{
		Date:           StartOfDay(date),
		Working:        working,
		BlockedPeriods: blocks,
	}

	for i := range appts {
		a := &appts[i]
		if !a.Status.Occupies() {
			continue
		}
		view.Entries = append(view.Entries, appointmentEntry(a))
	}
	for i := range blocks {
		view.Entries = append(view.Entries, blockedEntry(&blocks[i]))
	}

	sortEntries(view.Entries)
	return view
}

// ProjectList shapes repository rows into a chronological page. Ordering
// is re-asserted here so the projection holds regardless of query order.
func ProjectList(items []Appointment, limit, offset int) AppointmentPage {
	sorted := make([]Appointment, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].StartTime.Before(sorted[j].StartTime)
	})
	return AppointmentPage{Items: sorted, Limit: limit, Offset: offset}
}

func appointmentEntry(a *Appointment) CalendarEntry {
	patientID := a.PatientID
	treatmentID := a.TreatmentID
	return CalendarEntry{
		ID:          a.ID,
		Kind:        EntryAppointment,
		StartTime:   a.StartTime,
		EndTime:     a.EndTime,
		StartMinute: minuteOfDay(a.StartTime),
		EndMinute:   minuteOfDay(a.EndTime),
		Status:      a.Status,
		PatientID:   &patientID,
		TreatmentID: &treatmentID,
	}
}

func blockedEntry(b *BlockedPeriod) CalendarEntry {
	return CalendarEntry{
		ID:          b.ID,
		Kind:        EntryBlockedPeriod,
		StartTime:   b.StartTime,
		EndTime:     b.EndTime,
		StartMinute: minuteOfDay(b.StartTime),
		EndMinute:   minuteOfDay(b.EndTime),
		Reason:      b.Reason,
	}
}

func sortEntries(entries []CalendarEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].StartTime.Before(entries[j].StartTime)
	})
}

func weekDayIndex(weekStart, t time.Time) (int, bool) {
	idx := int(StartOfDay(t).Sub(weekStart).Hours() / 24)
	if idx < 0 || idx > 6 {
		return 0, false
	}
	return idx, true
}

func minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// WeekStartOf returns the Monday midnight of the week containing t.
func WeekStartOf(t time.Time) time.Time {
	day := StartOfDay(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}
