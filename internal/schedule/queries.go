package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/dental-scheduling/internal/auth"
)

// AvailabilityResult is the booking UI's pre-submission picture of one
// dentist day: the free windows and the treatment-sized starts that fit
// inside them.
type AvailabilityResult struct {
	Date    time.Time
	Working *Interval
	Free    []Interval
	Starts  []time.Time
}

// Availability computes the free windows for a dentist day and the legal
// starts for the given treatment. Derived fresh on every call; nothing is
// cached across mutations.
func (s *Service) Availability(ctx context.Context, dentistID uuid.UUID, day time.Time, treatmentID uuid.UUID) (*AvailabilityResult, error) {
	if err := s.authorize(ctx, dentistID); err != nil {
		return nil, err
	}

	dentist, err := s.repo.GetDentistByID(ctx, dentistID)
	if err != nil {
		return nil, err
	}
	treatment, err := s.repo.GetTreatmentByID(ctx, treatmentID)
	if err != nil {
		return nil, err
	}

	from := StartOfDay(day)
	to := from.AddDate(0, 0, 1)

	result := &AvailabilityResult{Date: from}

	window, ok := dentist.Hours.IntervalOn(from)
	if !ok {
		return result, nil
	}

	occupied, err := s.repo.ListOccupied(ctx, dentistID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list occupied: %w", err)
	}

	result.Working = &window
	result.Free = FreeWindows(window, OccupiedIntervals(occupied))
	result.Starts = AvailableStarts(dentist.Hours, from, treatment.Duration(), result.Free)
	return result, nil
}

// WeekSchedule projects the week containing date as a day-of-week grid.
func (s *Service) WeekSchedule(ctx context.Context, dentistID uuid.UUID, date time.Time) (*WeekView, error) {
	if err := s.authorize(ctx, dentistID); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetDentistByID(ctx, dentistID); err != nil {
		return nil, err
	}

	weekStart := WeekStartOf(date)
	weekEnd := weekStart.AddDate(0, 0, 7)

	appts, blocks, err := s.calendarRange(ctx, dentistID, weekStart, weekEnd)
	if err != nil {
		return nil, err
	}

	view := ProjectWeek(weekStart, appts, blocks)
	return &view, nil
}

// DaySchedule projects a single day, including the editable blocked
// periods for that dentist.
func (s *Service) DaySchedule(ctx context.Context, dentistID uuid.UUID, date time.Time) (*DayScheduleView, error) {
	if err := s.authorize(ctx, dentistID); err != nil {
		return nil, err
	}
	dentist, err := s.repo.GetDentistByID(ctx, dentistID)
	if err != nil {
		return nil, err
	}

	from := StartOfDay(date)
	to := from.AddDate(0, 0, 1)

	appts, blocks, err := s.calendarRange(ctx, dentistID, from, to)
	if err != nil {
		return nil, err
	}

	var working *Interval
	if window, ok := dentist.Hours.IntervalOn(from); ok {
		working = &window
	}

	view := ProjectDay(from, working, appts, blocks)
	return &view, nil
}

// ListAppointments returns one page of the flat chronological list. A
// dentist-scoped caller is pinned to their own calendar regardless of the
// requested filter.
func (s *Service) ListAppointments(ctx context.Context, f AppointmentFilter) (*AppointmentPage, error) {
	p, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrNotAuthorized
	}
	if p.Role == auth.RoleDentist {
		if f.DentistID != nil && *f.DentistID != p.DentistID {
			return nil, ErrNotAuthorized
		}
		own := p.DentistID
		f.DentistID = &own
	}

	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	items, err := s.repo.ListAppointments(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}

	page := ProjectList(items, f.Limit, f.Offset)
	return &page, nil
}

func (s *Service) calendarRange(ctx context.Context, dentistID uuid.UUID, from, to time.Time) ([]Appointment, []BlockedPeriod, error) {
	appts, err := s.repo.ListAppointmentsInRange(ctx, dentistID, from, to)
	if err != nil {
		return nil, nil, fmt.Errorf("list appointments: %w", err)
	}
	blocks, err := s.repo.ListBlockedPeriodsInRange(ctx, dentistID, from, to)
	if err != nil {
		return nil, nil, fmt.Errorf("list blocked periods: %w", err)
	}
	return appts, blocks, nil
}

// IsNotFound reports whether err is any of the record-missing sentinels,
// keeping handler error mapping simple when a query touches several
// record kinds.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrDentistNotFound) ||
		errors.Is(err, ErrPatientNotFound) ||
		errors.Is(err, ErrTreatmentNotFound) ||
		errors.Is(err, ErrAppointmentNotFound) ||
		errors.Is(err, ErrBlockedPeriodNotFound)
}
