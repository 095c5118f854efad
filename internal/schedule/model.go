package schedule

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusNoShow    AppointmentStatus = "no_show"
)

// Occupies reports whether an appointment in this status still holds its
// interval on the dentist's calendar. Cancelled and no-show appointments
// stay in storage for the audit trail but free their time.
func (s AppointmentStatus) Occupies() bool {
	return s == StatusScheduled || s == StatusCompleted
}

type Dentist struct {
	ID        uuid.UUID
	Name      string
	Active    bool
	Hours     WorkingHours
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Treatment is a bookable catalog entry. DurationMinutes is authoritative
// for appointment length; it never changes once an appointment references
// the treatment, so past bookings keep their original span.
type Treatment struct {
	ID              uuid.UUID
	Name            string
	DurationMinutes int
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (t *Treatment) Duration() time.Duration {
	return time.Duration(t.DurationMinutes) * time.Minute
}

// TreatmentDurations is the set of admissible treatment lengths in minutes.
var TreatmentDurations = []int{15, 30, 45, 60}

func ValidTreatmentDuration(minutes int) bool {
	for _, d := range TreatmentDurations {
		if d == minutes {
			return true
		}
	}
	return false
}

type Appointment struct {
	ID          uuid.UUID
	DentistID   uuid.UUID
	PatientID   uuid.UUID
	TreatmentID uuid.UUID
	StartTime   time.Time
	EndTime     time.Time
	Status      AppointmentStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (a *Appointment) Interval() Interval {
	return Interval{Start: a.StartTime, End: a.EndTime}
}

// BlockedPeriod marks dentist time unavailable for reasons not tied to a
// patient (leave, admin block).
type BlockedPeriod struct {
	ID        uuid.UUID
	DentistID uuid.UUID
	StartTime time.Time
	EndTime   time.Time
	Reason    string
	CreatedAt time.Time
}

func (b *BlockedPeriod) Interval() Interval {
	return Interval{Start: b.StartTime, End: b.EndTime}
}

type EventLog struct {
	ID        int64
	EventType string
	SubjectID *uuid.UUID
	Payload   []byte
	CreatedAt time.Time
}

// WorkingHours is a per-weekday open/close template. Clock values are
// "15:04" strings interpreted in the queried date's location; a missing
// weekday means the dentist does not work that day.
type WorkingHours map[time.Weekday]DayHours

type DayHours struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// IntervalOn resolves the template for day's weekday into a concrete
// half-open interval on that date. ok is false when the dentist has no
// hours that day or the template entry is malformed.
func (wh WorkingHours) IntervalOn(day time.Time) (Interval, bool) {
	dh, found := wh[day.Weekday()]
	if !found {
		return Interval{}, false
	}

	open, err := clockOnDate(day, dh.Open)
	if err != nil {
		return Interval{}, false
	}
	close, err := clockOnDate(day, dh.Close)
	if err != nil {
		return Interval{}, false
	}
	if !open.Before(close) {
		return Interval{}, false
	}

	return Interval{Start: open, End: close}, true
}

func clockOnDate(date time.Time, clock string) (time.Time, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid clock time %q: %w", clock, err)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, date.Location()), nil
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
