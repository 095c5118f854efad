package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository contains all DB interactions needed by the scheduling service.
type Repository interface {
	GetDentistByID(ctx context.Context, id uuid.UUID) (*Dentist, error)
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetTreatmentByID(ctx context.Context, id uuid.UUID) (*Treatment, error)

	// ListOccupied returns the occupied set for conflict checks and
	// availability: scheduled/completed appointments plus blocked periods
	// intersecting [from, to), ordered by start.
	ListOccupied(ctx context.Context, dentistID uuid.UUID, from, to time.Time) ([]Occupied, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	CreateAppointment(ctx context.Context, dentistID, patientID, treatmentID uuid.UUID, start, end time.Time) (*Appointment, error)
	UpdateAppointmentTime(ctx context.Context, id uuid.UUID, start, end time.Time) (*Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error)

	ListAppointmentsInRange(ctx context.Context, dentistID uuid.UUID, from, to time.Time) ([]Appointment, error)
	ListAppointments(ctx context.Context, f AppointmentFilter) ([]Appointment, error)

	GetBlockedPeriodByID(ctx context.Context, id uuid.UUID) (*BlockedPeriod, error)
	CreateBlockedPeriod(ctx context.Context, dentistID uuid.UUID, iv Interval, reason string) (*BlockedPeriod, error)
	DeleteBlockedPeriod(ctx context.Context, id uuid.UUID) error
	ListBlockedPeriodsInRange(ctx context.Context, dentistID uuid.UUID, from, to time.Time) ([]BlockedPeriod, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}

// AppointmentFilter narrows and pages the flat appointment list.
type AppointmentFilter struct {
	DentistID *uuid.UUID
	PatientID *uuid.UUID
	Status    *AppointmentStatus
	Limit     int
	Offset    int
}
