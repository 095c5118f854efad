package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/dental-scheduling/internal/schedule"
)

type CreateAppointmentRequest struct {
	DentistID   string    `json:"dentist_id"`
	PatientID   string    `json:"patient_id"`
	TreatmentID string    `json:"treatment_id"`
	Start       time.Time `json:"start"`
}

type RescheduleAppointmentRequest struct {
	Start time.Time `json:"start"`
}

type BlockPeriodRequest struct {
	DentistID string    `json:"dentist_id"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Reason    string    `json:"reason"`
}

type AppointmentResponse struct {
	ID          uuid.UUID `json:"id"`
	DentistID   uuid.UUID `json:"dentist_id"`
	PatientID   uuid.UUID `json:"patient_id"`
	TreatmentID uuid.UUID `json:"treatment_id"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Status      string    `json:"status"`
}

func toAppointmentResponse(a *schedule.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:          a.ID,
		DentistID:   a.DentistID,
		PatientID:   a.PatientID,
		TreatmentID: a.TreatmentID,
		Start:       a.StartTime,
		End:         a.EndTime,
		Status:      string(a.Status),
	}
}

type BlockedPeriodResponse struct {
	ID        uuid.UUID `json:"id"`
	DentistID uuid.UUID `json:"dentist_id"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Reason    string    `json:"reason"`
}

func toBlockedPeriodResponse(b *schedule.BlockedPeriod) BlockedPeriodResponse {
	return BlockedPeriodResponse{
		ID:        b.ID,
		DentistID: b.DentistID,
		Start:     b.StartTime,
		End:       b.EndTime,
		Reason:    b.Reason,
	}
}

type IntervalResponse struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func toIntervalResponse(iv schedule.Interval) IntervalResponse {
	return IntervalResponse{Start: iv.Start, End: iv.End}
}

type AvailabilityResponse struct {
	Date    string             `json:"date"`
	Working *IntervalResponse  `json:"working,omitempty"`
	Free    []IntervalResponse `json:"free"`
	Starts  []time.Time        `json:"starts"`
}

type CalendarEntryResponse struct {
	ID          uuid.UUID  `json:"id"`
	Kind        string     `json:"kind"`
	Start       time.Time  `json:"start"`
	End         time.Time  `json:"end"`
	StartMinute int        `json:"start_minute"`
	EndMinute   int        `json:"end_minute"`
	Status      string     `json:"status,omitempty"`
	PatientID   *uuid.UUID `json:"patient_id,omitempty"`
	TreatmentID *uuid.UUID `json:"treatment_id,omitempty"`
	Reason      string     `json:"reason,omitempty"`
}

func toCalendarEntryResponse(e schedule.CalendarEntry) CalendarEntryResponse {
	return CalendarEntryResponse{
		ID:          e.ID,
		Kind:        string(e.Kind),
		Start:       e.StartTime,
		End:         e.EndTime,
		StartMinute: e.StartMinute,
		EndMinute:   e.EndMinute,
		Status:      string(e.Status),
		PatientID:   e.PatientID,
		TreatmentID: e.TreatmentID,
		Reason:      e.Reason,
	}
}

type WeekDayResponse struct {
	Date    string                  `json:"date"`
	Entries []CalendarEntryResponse `json:"entries"`
}

type WeekViewResponse struct {
	WeekStart string            `json:"week_start"`
	Days      []WeekDayResponse `json:"days"`
}

type DayScheduleResponse struct {
	Date           string                  `json:"date"`
	Working        *IntervalResponse       `json:"working,omitempty"`
	Entries        []CalendarEntryResponse `json:"entries"`
	BlockedPeriods []BlockedPeriodResponse `json:"blocked_periods"`
}

type AppointmentListResponse struct {
	Items  []AppointmentResponse `json:"items"`
	Limit  int                   `json:"limit"`
	Offset int                   `json:"offset"`
}

type ErrorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Reason     string `json:"reason,omitempty"`
	ConflictID string `json:"conflict_id,omitempty"`
}
