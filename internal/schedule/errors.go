package schedule

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrDentistNotFound       = errors.New("dentist not found")
	ErrPatientNotFound       = errors.New("patient not found")
	ErrTreatmentNotFound     = errors.New("treatment not found")
	ErrAppointmentNotFound   = errors.New("appointment not found")
	ErrBlockedPeriodNotFound = errors.New("blocked period not found")

	ErrNotAuthorized           = errors.New("caller may not access this dentist's calendar")
	ErrInvalidStatusTransition = errors.New("invalid appointment status transition")
	ErrCalendarBusy            = errors.New("calendar is being modified, please retry")
)

// ConflictError is a rejected booking carrying the specific rule it broke.
// Expected, recoverable and user-facing, not a system fault.
type ConflictError struct {
	Reason     ConflictReason
	ConflictID uuid.UUID // record collided with, zero for outside_working_hours
}

func (e *ConflictError) Error() string {
	switch e.Reason {
	case ReasonOverlapsAppointment:
		return "requested time overlaps an existing appointment"
	case ReasonOverlapsBlockedPeriod:
		return "requested time overlaps a blocked period"
	case ReasonOutsideWorkingHours:
		return "requested time is outside working hours"
	}
	return "booking conflict"
}

func newConflictError(d Decision) *ConflictError {
	e := &ConflictError{Reason: d.Reason}
	if d.Conflict != nil {
		e.ConflictID = d.Conflict.ID
	}
	return e
}

// ValidationError reports malformed command input.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func invalidField(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Msg: msg}
}
