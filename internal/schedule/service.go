package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/dental-scheduling/internal/auth"
	"github.com/clinicdesk/dental-scheduling/internal/metrics"
	redisclient "github.com/clinicdesk/dental-scheduling/internal/redis"
)

const (
	EventAppointmentCreated     = "APPOINTMENT_CREATED"
	EventAppointmentRescheduled = "APPOINTMENT_RESCHEDULED"
	EventAppointmentCancelled   = "APPOINTMENT_CANCELLED"
	EventAppointmentStatusSet   = "APPOINTMENT_STATUS_SET"
	EventPeriodBlocked          = "PERIOD_BLOCKED"
	EventPeriodUnblocked        = "PERIOD_UNBLOCKED"
)

// Service is the booking orchestrator: the sole path through which
// appointments and blocked periods are created, moved or cancelled. Every
// mutation runs read -> conflict check -> write under the per-dentist
// calendar lock, so two concurrent bookings can never both pass the check
// against a stale view.
type Service struct {
	repo   Repository
	locker redisclient.Locker
	logger zerolog.Logger
}

func NewService(repo Repository, locker redisclient.Locker, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		logger: logger.With().Str("component", "schedule").Logger(),
	}
}

// CreateAppointment books a treatment for a patient. The end time is
// computed from the treatment's catalog duration, never supplied by the
// caller.
func (s *Service) CreateAppointment(ctx context.Context, dentistID, patientID, treatmentID uuid.UUID, start time.Time) (*Appointment, error) {
	if err := s.authorize(ctx, dentistID); err != nil {
		return nil, err
	}
	if start.IsZero() {
		return nil, invalidField("start", "start time is required")
	}

	dentist, err := s.loadActiveDentist(ctx, dentistID)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetPatientByID(ctx, patientID); err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}
	treatment, err := s.repo.GetTreatmentByID(ctx, treatmentID)
	if err != nil {
		if errors.Is(err, ErrTreatmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load treatment: %w", err)
	}
	if !treatment.Active {
		return nil, invalidField("treatment_id", "treatment is no longer offered")
	}
	if !ValidTreatmentDuration(treatment.DurationMinutes) {
		return nil, invalidField("treatment_id", fmt.Sprintf("unsupported duration %d minutes", treatment.DurationMinutes))
	}

	proposed := Interval{Start: start, End: start.Add(treatment.Duration())}

	var created *Appointment
	err = s.withCalendarLock(ctx, dentistID, func(lockCtx context.Context) error {
		decision, err := s.checkProposal(lockCtx, dentist, proposed, uuid.Nil)
		if err != nil {
			return err
		}
		if !decision.Allowed {
			return newConflictError(decision)
		}

		appt, err := s.repo.CreateAppointment(lockCtx, dentistID, patientID, treatmentID, proposed.Start, proposed.End)
		if err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}
		created = appt

		s.logEvent(lockCtx, appt.ID, EventAppointmentCreated, map[string]any{
			"dentist_id":   dentistID.String(),
			"patient_id":   patientID.String(),
			"treatment_id": treatmentID.String(),
			"start":        proposed.Start,
			"end":          proposed.End,
		})
		return nil
	})
	if err != nil {
		s.recordOutcome("create", err)
		return nil, err
	}

	s.recordOutcome("create", nil)
	s.logger.Info().
		Str("appointment_id", created.ID.String()).
		Str("dentist_id", dentistID.String()).
		Time("start", created.StartTime).
		Msg("appointment created")
	return created, nil
}

// RescheduleAppointment moves an appointment to a new start. The end is
// recomputed from the treatment's duration, and the appointment's own old
// interval is excluded from the conflict check so a move that only
// overlaps itself succeeds.
func (s *Service) RescheduleAppointment(ctx context.Context, id uuid.UUID, newStart time.Time) (*Appointment, error) {
	if newStart.IsZero() {
		return nil, invalidField("start", "start time is required")
	}

	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, appt.DentistID); err != nil {
		return nil, err
	}
	if appt.Status != StatusScheduled {
		return nil, fmt.Errorf("%w: cannot reschedule a %s appointment", ErrInvalidStatusTransition, appt.Status)
	}

	dentist, err := s.loadActiveDentist(ctx, appt.DentistID)
	if err != nil {
		return nil, err
	}
	treatment, err := s.repo.GetTreatmentByID(ctx, appt.TreatmentID)
	if err != nil {
		return nil, fmt.Errorf("load treatment: %w", err)
	}

	proposed := Interval{Start: newStart, End: newStart.Add(treatment.Duration())}

	var moved *Appointment
	err = s.withCalendarLock(ctx, appt.DentistID, func(lockCtx context.Context) error {
		decision, err := s.checkProposal(lockCtx, dentist, proposed, appt.ID)
		if err != nil {
			return err
		}
		if !decision.Allowed {
			return newConflictError(decision)
		}

		updated, err := s.repo.UpdateAppointmentTime(lockCtx, appt.ID, proposed.Start, proposed.End)
		if err != nil {
			return fmt.Errorf("reschedule appointment: %w", err)
		}
		moved = updated

		s.logEvent(lockCtx, appt.ID, EventAppointmentRescheduled, map[string]any{
			"from_start": appt.StartTime,
			"to_start":   proposed.Start,
		})
		return nil
	})
	if err != nil {
		s.recordOutcome("reschedule", err)
		return nil, err
	}

	s.recordOutcome("reschedule", nil)
	return moved, nil
}

// CancelAppointment transitions an appointment to cancelled, keeping the
// record for the audit trail and freeing its interval. Cancelling an
// already-cancelled appointment is a no-op.
func (s *Service) CancelAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, appt.DentistID); err != nil {
		return nil, err
	}

	if appt.Status == StatusCancelled {
		return appt, nil
	}
	if appt.Status != StatusScheduled {
		return nil, fmt.Errorf("%w: cannot cancel a %s appointment", ErrInvalidStatusTransition, appt.Status)
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, StatusScheduled, StatusCancelled)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Lost a race with another transition; report the current state.
			return nil, ErrInvalidStatusTransition
		}
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	s.logEvent(ctx, updated.ID, EventAppointmentCancelled, map[string]any{})
	s.recordOutcome("cancel", nil)
	return updated, nil
}

// CompleteAppointment marks a scheduled appointment as completed. The
// interval stays occupied: completed visits remain on the calendar.
func (s *Service) CompleteAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusCompleted)
}

// MarkNoShow marks a scheduled appointment as a no-show, freeing its
// interval.
func (s *Service) MarkNoShow(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusNoShow)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, to AppointmentStatus) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, appt.DentistID); err != nil {
		return nil, err
	}
	if appt.Status != StatusScheduled {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, appt.Status, to)
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, StatusScheduled, to)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrInvalidStatusTransition
		}
		return nil, fmt.Errorf("set appointment status: %w", err)
	}

	s.logEvent(ctx, updated.ID, EventAppointmentStatusSet, map[string]any{
		"status": string(to),
	})
	return updated, nil
}

// BlockPeriod reserves dentist time for non-patient reasons. Blocking time
// that already holds a scheduled appointment is rejected; the appointment
// must be explicitly reassigned first.
func (s *Service) BlockPeriod(ctx context.Context, dentistID uuid.UUID, iv Interval, reason string) (*BlockedPeriod, error) {
	if err := s.authorize(ctx, dentistID); err != nil {
		return nil, err
	}
	if !iv.Valid() {
		return nil, invalidField("interval", "end must be after start")
	}
	if _, err := s.loadActiveDentist(ctx, dentistID); err != nil {
		return nil, err
	}

	var created *BlockedPeriod
	err := s.withCalendarLock(ctx, dentistID, func(lockCtx context.Context) error {
		occupied, err := s.repo.ListOccupied(lockCtx, dentistID, iv.Start, iv.End)
		if err != nil {
			return fmt.Errorf("list occupied: %w", err)
		}

		decision := CheckBlockConflict(iv, occupied)
		if !decision.Allowed {
			return newConflictError(decision)
		}

		bp, err := s.repo.CreateBlockedPeriod(lockCtx, dentistID, iv, reason)
		if err != nil {
			return fmt.Errorf("create blocked period: %w", err)
		}
		created = bp

		s.logEvent(lockCtx, bp.ID, EventPeriodBlocked, map[string]any{
			"dentist_id": dentistID.String(),
			"start":      iv.Start,
			"end":        iv.End,
			"reason":     reason,
		})
		return nil
	})
	if err != nil {
		s.recordOutcome("block", err)
		return nil, err
	}

	s.recordOutcome("block", nil)
	return created, nil
}

// UnblockPeriod removes a blocked period, freeing its interval.
func (s *Service) UnblockPeriod(ctx context.Context, id uuid.UUID) error {
	bp, err := s.repo.GetBlockedPeriodByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, bp.DentistID); err != nil {
		return err
	}

	if err := s.repo.DeleteBlockedPeriod(ctx, id); err != nil {
		return fmt.Errorf("delete blocked period: %w", err)
	}

	s.logEvent(ctx, bp.ID, EventPeriodUnblocked, map[string]any{
		"dentist_id": bp.DentistID.String(),
	})
	return nil
}

// checkProposal loads the day's occupied set under the lock and runs the
// conflict check against it.
func (s *Service) checkProposal(ctx context.Context, dentist *Dentist, proposed Interval, ignore uuid.UUID) (Decision, error) {
	day := StartOfDay(proposed.Start)
	occupied, err := s.repo.ListOccupied(ctx, dentist.ID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return Decision{}, fmt.Errorf("list occupied: %w", err)
	}
	return CheckConflict(dentist.Hours, proposed, occupied, ignore), nil
}

func (s *Service) withCalendarLock(ctx context.Context, dentistID uuid.UUID, fn func(ctx context.Context) error) error {
	err := s.locker.WithCalendarLock(ctx, dentistID, fn)
	if errors.Is(err, redisclient.ErrLockNotAcquired) {
		return ErrCalendarBusy
	}
	return err
}

func (s *Service) loadActiveDentist(ctx context.Context, id uuid.UUID) (*Dentist, error) {
	dentist, err := s.repo.GetDentistByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrDentistNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load dentist: %w", err)
	}
	if !dentist.Active {
		return nil, invalidField("dentist_id", "dentist is deactivated")
	}
	return dentist, nil
}

func (s *Service) authorize(ctx context.Context, dentistID uuid.UUID) error {
	p, ok := auth.FromContext(ctx)
	if !ok || !p.CanManageCalendar(dentistID) {
		return ErrNotAuthorized
	}
	return nil
}

func (s *Service) recordOutcome(operation string, err error) {
	switch {
	case err == nil:
		metrics.IncBookingDecision(operation, "accepted")
	case isConflict(err):
		metrics.IncBookingDecision(operation, "conflict")
		var ce *ConflictError
		if errors.As(err, &ce) {
			metrics.IncConflictRejection(string(ce.Reason))
		}
	default:
		metrics.IncBookingDecision(operation, "error")
	}
}

func isConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

func (s *Service) logEvent(ctx context.Context, subjectID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Msg("marshal event payload")
		data = nil
	}

	id := subjectID
	ev := EventLog{
		EventType: eventType,
		SubjectID: &id,
		Payload:   data,
		CreatedAt: time.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.logger.Error().Err(err).
			Str("event_type", eventType).
			Str("subject_id", subjectID.String()).
			Msg("insert event log")
	}
}
