package schedule

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicdesk/dental-scheduling/internal/auth"
	redisclient "github.com/clinicdesk/dental-scheduling/internal/redis"
)

type fixture struct {
	svc       *Service
	repo      *MemoryRepository
	dentist   Dentist
	patient   Patient
	treatment Treatment
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := NewMemoryRepository()
	svc := NewService(repo, redisclient.NewLocalLocker(), zerolog.Nop())

	f := &fixture{
		svc:  svc,
		repo: repo,
		dentist: Dentist{
			ID:     uuid.New(),
			Name:   "Dr. Adams",
			Active: true,
			Hours:  WorkingHours{time.Monday: {Open: "09:00", Close: "17:00"}},
		},
		patient: Patient{ID: uuid.New(), Name: "Pat Doe"},
		treatment: Treatment{
			ID:              uuid.New(),
			Name:            "Hygiene cleaning",
			DurationMinutes: 30,
			Active:          true,
		},
	}
	repo.PutDentist(f.dentist)
	repo.PutPatient(f.patient)
	repo.PutTreatment(f.treatment)
	return f
}

func receptionistCtx() context.Context {
	return auth.NewContext(context.Background(), auth.Principal{Role: auth.RoleReceptionist})
}

func dentistCtx(dentistID uuid.UUID) context.Context {
	return auth.NewContext(context.Background(), auth.Principal{Role: auth.RoleDentist, DentistID: dentistID})
}

func (f *fixture) book(t *testing.T, start time.Time) *Appointment {
	t.Helper()
	appt, err := f.svc.CreateAppointment(receptionistCtx(), f.dentist.ID, f.patient.ID, f.treatment.ID, start)
	require.NoError(t, err)
	return appt
}

func conflictReason(t *testing.T, err error) ConflictReason {
	t.Helper()
	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	return ce.Reason
}

func TestCreateAppointment(t *testing.T) {
	f := newFixture(t)

	appt := f.book(t, at("10:00"))

	assert.Equal(t, f.dentist.ID, appt.DentistID)
	assert.Equal(t, StatusScheduled, appt.Status)
	assert.Equal(t, at("10:00"), appt.StartTime)
	assert.Equal(t, at("10:30"), appt.EndTime, "end derives from the treatment duration")

	events := f.repo.Events()
	require.Len(t, events, 1)
	assert.Equal(t, EventAppointmentCreated, events[0].EventType)
	require.NotNil(t, events[0].SubjectID)
	assert.Equal(t, appt.ID, *events[0].SubjectID)
}

func TestCreateAppointmentConflicts(t *testing.T) {
	f := newFixture(t)
	existing := f.book(t, at("10:00"))

	t.Run("same interval rejected", func(t *testing.T) {
		_, err := f.svc.CreateAppointment(receptionistCtx(), f.dentist.ID, f.patient.ID, f.treatment.ID, at("10:00"))

		var ce *ConflictError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, ReasonOverlapsAppointment, ce.Reason)
		assert.Equal(t, existing.ID, ce.ConflictID)
	})

	t.Run("partial overlap rejected", func(t *testing.T) {
		_, err := f.svc.CreateAppointment(receptionistCtx(), f.dentist.ID, f.patient.ID, f.treatment.ID, at("10:15"))

		assert.Equal(t, ReasonOverlapsAppointment, conflictReason(t, err))
	})

	t.Run("back to back accepted", func(t *testing.T) {
		appt := f.book(t, at("10:30"))
		assert.Equal(t, at("11:00"), appt.EndTime)
	})

	t.Run("outside working hours", func(t *testing.T) {
		_, err := f.svc.CreateAppointment(receptionistCtx(), f.dentist.ID, f.patient.ID, f.treatment.ID, at("16:45"))

		assert.Equal(t, ReasonOutsideWorkingHours, conflictReason(t, err))
	})

	t.Run("non-working day", func(t *testing.T) {
		sunday := at("10:00").AddDate(0, 0, -1)
		_, err := f.svc.CreateAppointment(receptionistCtx(), f.dentist.ID, f.patient.ID, f.treatment.ID, sunday)

		assert.Equal(t, ReasonOutsideWorkingHours, conflictReason(t, err))
	})

	t.Run("other dentist unaffected", func(t *testing.T) {
		other := Dentist{ID: uuid.New(), Name: "Dr. Brook", Active: true, Hours: f.dentist.Hours}
		f.repo.PutDentist(other)

		_, err := f.svc.CreateAppointment(receptionistCtx(), other.ID, f.patient.ID, f.treatment.ID, at("10:00"))
		assert.NoError(t, err)
	})
}

func TestCreateAppointmentValidation(t *testing.T) {
	f := newFixture(t)

	t.Run("unknown dentist", func(t *testing.T) {
		_, err := f.svc.CreateAppointment(receptionistCtx(), uuid.New(), f.patient.ID, f.treatment.ID, at("10:00"))
		assert.ErrorIs(t, err, ErrDentistNotFound)
	})

	t.Run("unknown patient", func(t *testing.T) {
		_, err := f.svc.CreateAppointment(receptionistCtx(), f.dentist.ID, uuid.New(), f.treatment.ID, at("10:00"))
		assert.ErrorIs(t, err, ErrPatientNotFound)
	})

	t.Run("unknown treatment", func(t *testing.T) {
		_, err := f.svc.CreateAppointment(receptionistCtx(), f.dentist.ID, f.patient.ID, uuid.New(), at("10:00"))
		assert.ErrorIs(t, err, ErrTreatmentNotFound)
	})

	t.Run("zero start", func(t *testing.T) {
		_, err := f.svc.CreateAppointment(receptionistCtx(), f.dentist.ID, f.patient.ID, f.treatment.ID, time.Time{})

		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "start", ve.Field)
	})

	t.Run("inactive treatment", func(t *testing.T) {
		retired := Treatment{ID: uuid.New(), Name: "Old procedure", DurationMinutes: 30, Active: false}
		f.repo.PutTreatment(retired)

		_, err := f.svc.CreateAppointment(receptionistCtx(), f.dentist.ID, f.patient.ID, retired.ID, at("10:00"))

		var ve *ValidationError
		assert.ErrorAs(t, err, &ve)
	})

	t.Run("deactivated dentist", func(t *testing.T) {
		gone := Dentist{ID: uuid.New(), Name: "Dr. Left", Active: false, Hours: f.dentist.Hours}
		f.repo.PutDentist(gone)

		_, err := f.svc.CreateAppointment(receptionistCtx(), gone.ID, f.patient.ID, f.treatment.ID, at("10:00"))

		var ve *ValidationError
		assert.ErrorAs(t, err, &ve)
	})

	t.Run("unsupported treatment duration", func(t *testing.T) {
		odd := Treatment{ID: uuid.New(), Name: "Odd", DurationMinutes: 20, Active: true}
		f.repo.PutTreatment(odd)

		_, err := f.svc.CreateAppointment(receptionistCtx(), f.dentist.ID, f.patient.ID, odd.ID, at("10:00"))

		var ve *ValidationError
		assert.ErrorAs(t, err, &ve)
	})
}

func TestCreateAppointmentAuthorization(t *testing.T) {
	f := newFixture(t)

	t.Run("no principal", func(t *testing.T) {
		_, err := f.svc.CreateAppointment(context.Background(), f.dentist.ID, f.patient.ID, f.treatment.ID, at("10:00"))
		assert.ErrorIs(t, err, ErrNotAuthorized)
	})

	t.Run("dentist booking for another dentist", func(t *testing.T) {
		_, err := f.svc.CreateAppointment(dentistCtx(uuid.New()), f.dentist.ID, f.patient.ID, f.treatment.ID, at("10:00"))
		assert.ErrorIs(t, err, ErrNotAuthorized)
	})

	t.Run("dentist booking their own calendar", func(t *testing.T) {
		_, err := f.svc.CreateAppointment(dentistCtx(f.dentist.ID), f.dentist.ID, f.patient.ID, f.treatment.ID, at("10:00"))
		assert.NoError(t, err)
	})
}

func TestRescheduleAppointment(t *testing.T) {
	f := newFixture(t)

	t.Run("move that overlaps only itself succeeds", func(t *testing.T) {
		appt := f.book(t, at("09:00"))

		moved, err := f.svc.RescheduleAppointment(receptionistCtx(), appt.ID, at("09:15"))

		require.NoError(t, err)
		assert.Equal(t, at("09:15"), moved.StartTime)
		assert.Equal(t, at("09:45"), moved.EndTime)
	})

	t.Run("move onto another appointment rejected", func(t *testing.T) {
		first := f.book(t, at("11:00"))
		second := f.book(t, at("12:00"))

		_, err := f.svc.RescheduleAppointment(receptionistCtx(), second.ID, at("11:15"))

		var ce *ConflictError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, ReasonOverlapsAppointment, ce.Reason)
		assert.Equal(t, first.ID, ce.ConflictID)
	})

	t.Run("cancelled appointment cannot move", func(t *testing.T) {
		appt := f.book(t, at("14:00"))
		_, err := f.svc.CancelAppointment(receptionistCtx(), appt.ID)
		require.NoError(t, err)

		_, err = f.svc.RescheduleAppointment(receptionistCtx(), appt.ID, at("15:00"))
		assert.ErrorIs(t, err, ErrInvalidStatusTransition)
	})

	t.Run("unknown appointment", func(t *testing.T) {
		_, err := f.svc.RescheduleAppointment(receptionistCtx(), uuid.New(), at("15:00"))
		assert.ErrorIs(t, err, ErrAppointmentNotFound)
	})
}

func TestCancelAppointment(t *testing.T) {
	f := newFixture(t)

	t.Run("cancel frees the interval", func(t *testing.T) {
		appt := f.book(t, at("10:00"))

		cancelled, err := f.svc.CancelAppointment(receptionistCtx(), appt.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, cancelled.Status)

		// The slot opens up again.
		_, err = f.svc.CreateAppointment(receptionistCtx(), f.dentist.ID, f.patient.ID, f.treatment.ID, at("10:00"))
		assert.NoError(t, err)
	})

	t.Run("idempotent", func(t *testing.T) {
		appt := f.book(t, at("11:00"))
		_, err := f.svc.CancelAppointment(receptionistCtx(), appt.ID)
		require.NoError(t, err)

		again, err := f.svc.CancelAppointment(receptionistCtx(), appt.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, again.Status)
	})

	t.Run("completed appointment cannot be cancelled", func(t *testing.T) {
		appt := f.book(t, at("12:00"))
		_, err := f.svc.CompleteAppointment(receptionistCtx(), appt.ID)
		require.NoError(t, err)

		_, err = f.svc.CancelAppointment(receptionistCtx(), appt.ID)
		assert.ErrorIs(t, err, ErrInvalidStatusTransition)
	})
}

func TestStatusTransitions(t *testing.T) {
	f := newFixture(t)

	t.Run("completed stays on the calendar", func(t *testing.T) {
		appt := f.book(t, at("10:00"))
		done, err := f.svc.CompleteAppointment(receptionistCtx(), appt.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, done.Status)

		_, err = f.svc.CreateAppointment(receptionistCtx(), f.dentist.ID, f.patient.ID, f.treatment.ID, at("10:00"))
		assert.Equal(t, ReasonOverlapsAppointment, conflictReason(t, err))
	})

	t.Run("no-show frees the slot", func(t *testing.T) {
		appt := f.book(t, at("11:00"))
		missed, err := f.svc.MarkNoShow(receptionistCtx(), appt.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusNoShow, missed.Status)

		_, err = f.svc.CreateAppointment(receptionistCtx(), f.dentist.ID, f.patient.ID, f.treatment.ID, at("11:00"))
		assert.NoError(t, err)
	})

	t.Run("no-show cannot become completed", func(t *testing.T) {
		appt := f.book(t, at("12:00"))
		_, err := f.svc.MarkNoShow(receptionistCtx(), appt.ID)
		require.NoError(t, err)

		_, err = f.svc.CompleteAppointment(receptionistCtx(), appt.ID)
		assert.ErrorIs(t, err, ErrInvalidStatusTransition)
	})
}

func TestBlockPeriod(t *testing.T) {
	f := newFixture(t)

	t.Run("block then book inside it", func(t *testing.T) {
		bp, err := f.svc.BlockPeriod(receptionistCtx(), f.dentist.ID, iv("13:00", "14:00"), "staff meeting")
		require.NoError(t, err)
		assert.Equal(t, "staff meeting", bp.Reason)

		_, err = f.svc.CreateAppointment(receptionistCtx(), f.dentist.ID, f.patient.ID, f.treatment.ID, at("13:30"))

		var ce *ConflictError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, ReasonOverlapsBlockedPeriod, ce.Reason)
		assert.Equal(t, bp.ID, ce.ConflictID)
	})

	t.Run("blocking over an appointment rejected", func(t *testing.T) {
		appt := f.book(t, at("10:00"))

		_, err := f.svc.BlockPeriod(receptionistCtx(), f.dentist.ID, iv("09:45", "10:15"), "attempt")

		var ce *ConflictError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, ReasonOverlapsAppointment, ce.Reason)
		assert.Equal(t, appt.ID, ce.ConflictID)
	})

	t.Run("unblock reopens the time", func(t *testing.T) {
		bp, err := f.svc.BlockPeriod(receptionistCtx(), f.dentist.ID, iv("15:00", "16:00"), "admin")
		require.NoError(t, err)

		require.NoError(t, f.svc.UnblockPeriod(receptionistCtx(), bp.ID))

		_, err = f.svc.CreateAppointment(receptionistCtx(), f.dentist.ID, f.patient.ID, f.treatment.ID, at("15:00"))
		assert.NoError(t, err)
	})

	t.Run("invalid interval", func(t *testing.T) {
		_, err := f.svc.BlockPeriod(receptionistCtx(), f.dentist.ID, iv("14:00", "13:00"), "")

		var ve *ValidationError
		assert.ErrorAs(t, err, &ve)
	})

	t.Run("unblock unknown period", func(t *testing.T) {
		err := f.svc.UnblockPeriod(receptionistCtx(), uuid.New())
		assert.ErrorIs(t, err, ErrBlockedPeriodNotFound)
	})
}

// Two staff members submitting the same slot at once: exactly one booking
// wins, every loser gets a conflict, never a double booking.
func TestConcurrentBookingSingleWinner(t *testing.T) {
	f := newFixture(t)
	const attempts = 8

	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.CreateAppointment(receptionistCtx(), f.dentist.ID, f.patient.ID, f.treatment.ID, at("10:00"))
			errs[i] = err
		}(i)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		default:
			var ce *ConflictError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, ReasonOverlapsAppointment, ce.Reason)
			conflicts++
		}
	}

	assert.Equal(t, 1, wins)
	assert.Equal(t, attempts-1, conflicts)

	occupied, err := f.repo.ListOccupied(context.Background(), f.dentist.ID, testDay, testDay.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Len(t, occupied, 1)
}

func TestAvailabilityQuery(t *testing.T) {
	f := newFixture(t)
	f.book(t, at("10:00"))
	_, err := f.svc.BlockPeriod(receptionistCtx(), f.dentist.ID, iv("13:00", "14:00"), "lunch")
	require.NoError(t, err)

	result, err := f.svc.Availability(receptionistCtx(), f.dentist.ID, testDay, f.treatment.ID)
	require.NoError(t, err)

	require.NotNil(t, result.Working)
	assert.Equal(t, iv("09:00", "17:00"), *result.Working)
	require.Equal(t, []Interval{
		iv("09:00", "10:00"),
		iv("10:30", "13:00"),
		iv("14:00", "17:00"),
	}, result.Free)

	for _, start := range result.Starts {
		assert.NotEqual(t, at("10:00"), start, "booked slot must not be offered")
		assert.NotEqual(t, at("13:00"), start, "blocked slot must not be offered")
		assert.NotEqual(t, at("13:30"), start, "blocked slot must not be offered")
	}
}

func TestAvailabilityNonWorkingDay(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.Availability(receptionistCtx(), f.dentist.ID, testDay.AddDate(0, 0, 1), f.treatment.ID)
	require.NoError(t, err)

	assert.Nil(t, result.Working)
	assert.Empty(t, result.Free)
	assert.Empty(t, result.Starts)
}

func TestWeekSchedule(t *testing.T) {
	f := newFixture(t)
	appt := f.book(t, at("10:00"))

	cancelled := f.book(t, at("11:00"))
	_, err := f.svc.CancelAppointment(receptionistCtx(), cancelled.ID)
	require.NoError(t, err)

	view, err := f.svc.WeekSchedule(receptionistCtx(), f.dentist.ID, testDay.AddDate(0, 0, 2))
	require.NoError(t, err)

	assert.Equal(t, testDay, view.WeekStart, "wednesday resolves to its monday")
	require.Len(t, view.Days[0].Entries, 1)
	assert.Equal(t, appt.ID, view.Days[0].Entries[0].ID)
}

func TestDaySchedule(t *testing.T) {
	f := newFixture(t)
	appt := f.book(t, at("10:00"))
	bp, err := f.svc.BlockPeriod(receptionistCtx(), f.dentist.ID, iv("13:00", "14:00"), "lunch")
	require.NoError(t, err)

	view, err := f.svc.DaySchedule(receptionistCtx(), f.dentist.ID, testDay)
	require.NoError(t, err)

	require.NotNil(t, view.Working)
	require.Len(t, view.Entries, 2)
	assert.Equal(t, appt.ID, view.Entries[0].ID)
	assert.Equal(t, bp.ID, view.Entries[1].ID)
	require.Len(t, view.BlockedPeriods, 1)
}

func TestListAppointments(t *testing.T) {
	f := newFixture(t)
	other := Dentist{ID: uuid.New(), Name: "Dr. Brook", Active: true, Hours: f.dentist.Hours}
	f.repo.PutDentist(other)

	a1 := f.book(t, at("09:00"))
	f.book(t, at("10:00"))
	_, err := f.svc.CreateAppointment(receptionistCtx(), other.ID, f.patient.ID, f.treatment.ID, at("09:00"))
	require.NoError(t, err)

	t.Run("filter by dentist", func(t *testing.T) {
		page, err := f.svc.ListAppointments(receptionistCtx(), AppointmentFilter{DentistID: &f.dentist.ID})
		require.NoError(t, err)

		require.Len(t, page.Items, 2)
		assert.Equal(t, a1.ID, page.Items[0].ID, "page is chronological")
	})

	t.Run("dentist caller pinned to own calendar", func(t *testing.T) {
		page, err := f.svc.ListAppointments(dentistCtx(other.ID), AppointmentFilter{})
		require.NoError(t, err)

		require.Len(t, page.Items, 1)
		assert.Equal(t, other.ID, page.Items[0].DentistID)
	})

	t.Run("dentist requesting another calendar rejected", func(t *testing.T) {
		_, err := f.svc.ListAppointments(dentistCtx(other.ID), AppointmentFilter{DentistID: &f.dentist.ID})
		assert.ErrorIs(t, err, ErrNotAuthorized)
	})

	t.Run("status filter", func(t *testing.T) {
		status := StatusScheduled
		page, err := f.svc.ListAppointments(receptionistCtx(), AppointmentFilter{Status: &status})
		require.NoError(t, err)
		assert.Len(t, page.Items, 3)
	})

	t.Run("limit and offset", func(t *testing.T) {
		page, err := f.svc.ListAppointments(receptionistCtx(), AppointmentFilter{DentistID: &f.dentist.ID, Limit: 1, Offset: 1})
		require.NoError(t, err)

		require.Len(t, page.Items, 1)
		assert.Equal(t, at("10:00"), page.Items[0].StartTime)
	})
}

func TestEventLogTrail(t *testing.T) {
	f := newFixture(t)

	appt := f.book(t, at("10:00"))
	_, err := f.svc.RescheduleAppointment(receptionistCtx(), appt.ID, at("11:00"))
	require.NoError(t, err)
	_, err = f.svc.CancelAppointment(receptionistCtx(), appt.ID)
	require.NoError(t, err)

	events := f.repo.Events()
	require.Len(t, events, 3)
	assert.Equal(t, EventAppointmentCreated, events[0].EventType)
	assert.Equal(t, EventAppointmentRescheduled, events[1].EventType)
	assert.Equal(t, EventAppointmentCancelled, events[2].EventType)
}
