package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicdesk/dental-scheduling/internal/schedule"
)

const dateLayout = "2006-01-02"

func createAppointmentHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		dentistID, err := uuid.Parse(req.DentistID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_dentist_id", "dentist_id must be a valid UUID")
			return
		}
		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}
		treatmentID, err := uuid.Parse(req.TreatmentID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_treatment_id", "treatment_id must be a valid UUID")
			return
		}

		appt, err := svc.CreateAppointment(r.Context(), dentistID, patientID, treatmentID, req.Start)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func rescheduleAppointmentHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "id")
		if !ok {
			return
		}

		var req RescheduleAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.RescheduleAppointment(r.Context(), id, req.Start)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func cancelAppointmentHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "id")
		if !ok {
			return
		}

		appt, err := svc.CancelAppointment(r.Context(), id)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func completeAppointmentHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "id")
		if !ok {
			return
		}

		appt, err := svc.CompleteAppointment(r.Context(), id)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func noShowAppointmentHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "id")
		if !ok {
			return
		}

		appt, err := svc.MarkNoShow(r.Context(), id)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func blockPeriodHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BlockPeriodRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		dentistID, err := uuid.Parse(req.DentistID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_dentist_id", "dentist_id must be a valid UUID")
			return
		}

		iv := schedule.Interval{Start: req.Start, End: req.End}
		bp, err := svc.BlockPeriod(r.Context(), dentistID, iv, req.Reason)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toBlockedPeriodResponse(bp))
	}
}

func unblockPeriodHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "id")
		if !ok {
			return
		}

		if err := svc.UnblockPeriod(r.Context(), id); err != nil {
			handleScheduleError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func availabilityHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dentistID, ok := pathUUID(w, r, "id")
		if !ok {
			return
		}
		day, ok := queryDate(w, r, "date")
		if !ok {
			return
		}
		treatmentID, err := uuid.Parse(r.URL.Query().Get("treatment_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_treatment_id", "treatment_id must be a valid UUID")
			return
		}

		result, err := svc.Availability(r.Context(), dentistID, day, treatmentID)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		resp := AvailabilityResponse{
			Date:   result.Date.Format(dateLayout),
			Free:   []IntervalResponse{},
			Starts: result.Starts,
		}
		if result.Working != nil {
			working := toIntervalResponse(*result.Working)
			resp.Working = &working
		}
		for _, f := range result.Free {
			resp.Free = append(resp.Free, toIntervalResponse(f))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func weekScheduleHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dentistID, ok := pathUUID(w, r, "id")
		if !ok {
			return
		}
		date, ok := queryDate(w, r, "date")
		if !ok {
			return
		}

		view, err := svc.WeekSchedule(r.Context(), dentistID, date)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		resp := WeekViewResponse{WeekStart: view.WeekStart.Format(dateLayout)}
		for _, day := range view.Days {
			d := WeekDayResponse{Date: day.Date.Format(dateLayout), Entries: []CalendarEntryResponse{}}
			for _, e := range day.Entries {
				d.Entries = append(d.Entries, toCalendarEntryResponse(e))
			}
			resp.Days = append(resp.Days, d)
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func dayScheduleHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dentistID, ok := pathUUID(w, r, "id")
		if !ok {
			return
		}
		date, ok := queryDate(w, r, "date")
		if !ok {
			return
		}

		view, err := svc.DaySchedule(r.Context(), dentistID, date)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		resp := DayScheduleResponse{
			Date:           view.Date.Format(dateLayout),
			Entries:        []CalendarEntryResponse{},
			BlockedPeriods: []BlockedPeriodResponse{},
		}
		if view.Working != nil {
			working := toIntervalResponse(*view.Working)
			resp.Working = &working
		}
		for _, e := range view.Entries {
			resp.Entries = append(resp.Entries, toCalendarEntryResponse(e))
		}
		for i := range view.BlockedPeriods {
			resp.BlockedPeriods = append(resp.BlockedPeriods, toBlockedPeriodResponse(&view.BlockedPeriods[i]))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func listAppointmentsHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var f schedule.AppointmentFilter
		q := r.URL.Query()

		if v := q.Get("dentist_id"); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_dentist_id", "dentist_id must be a valid UUID")
				return
			}
			f.DentistID = &id
		}
		if v := q.Get("patient_id"); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
				return
			}
			f.PatientID = &id
		}
		if v := q.Get("status"); v != "" {
			status := schedule.AppointmentStatus(v)
			switch status {
			case schedule.StatusScheduled, schedule.StatusCompleted, schedule.StatusCancelled, schedule.StatusNoShow:
				f.Status = &status
			default:
				writeError(w, http.StatusBadRequest, "invalid_status", "unknown appointment status")
				return
			}
		}
		f.Limit, _ = strconv.Atoi(q.Get("limit"))
		f.Offset, _ = strconv.Atoi(q.Get("offset"))

		page, err := svc.ListAppointments(r.Context(), f)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		resp := AppointmentListResponse{
			Items:  []AppointmentResponse{},
			Limit:  page.Limit,
			Offset: page.Offset,
		}
		for i := range page.Items {
			resp.Items = append(resp.Items, toAppointmentResponse(&page.Items[i]))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func handleScheduleError(w http.ResponseWriter, err error) {
	var conflict *schedule.ConflictError
	var validation *schedule.ValidationError

	switch {
	case errors.As(err, &conflict):
		resp := ErrorResponse{
			Error:   "conflict",
			Details: conflict.Error(),
			Reason:  string(conflict.Reason),
		}
		if conflict.ConflictID != uuid.Nil {
			resp.ConflictID = conflict.ConflictID.String()
		}
		writeJSON(w, http.StatusConflict, resp)
	case errors.As(err, &validation):
		writeError(w, http.StatusUnprocessableEntity, "invalid_request", validation.Error())
	case schedule.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, schedule.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, schedule.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, schedule.ErrCalendarBusy):
		writeError(w, http.StatusConflict, "calendar_busy", "calendar is being modified, please retry shortly")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func pathUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+param, param+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func queryDate(w http.ResponseWriter, r *http.Request, param string) (time.Time, bool) {
	raw := r.URL.Query().Get(param)
	if raw == "" {
		writeError(w, http.StatusBadRequest, "missing_"+param, param+" query parameter is required (YYYY-MM-DD)")
		return time.Time{}, false
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+param, param+" must be formatted YYYY-MM-DD")
		return time.Time{}, false
	}
	return t, true
}
