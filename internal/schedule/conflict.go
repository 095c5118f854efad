package schedule

import "github.com/google/uuid"

type ConflictReason string

const (
	ReasonOverlapsAppointment   ConflictReason = "overlaps_appointment"
	ReasonOverlapsBlockedPeriod ConflictReason = "overlaps_blocked_period"
	ReasonOutsideWorkingHours   ConflictReason = "outside_working_hours"
)

// Decision is the outcome of a conflict check. When rejected, Conflict
// names the occupied record responsible (nil for outside_working_hours).
type Decision struct {
	Allowed  bool
	Reason   ConflictReason
	Conflict *Occupied
}

func accept() Decision {
	return Decision{Allowed: true}
}

func reject(reason ConflictReason, with *Occupied) Decision {
	return Decision{Reason: reason, Conflict: with}
}

// CheckConflict decides whether proposed may be committed on a dentist's
// calendar. Intervals are half-open, so a booking ending exactly when
// another starts passes. A proposal that only partially exits working
// hours is rejected. ignore excludes one appointment from the check (a
// reschedule must not conflict with its own old interval); pass uuid.Nil
// to check against everything. Pure; no side effects.
func CheckConflict(hours WorkingHours, proposed Interval, occupied []Occupied, ignore uuid.UUID) Decision {
	window, ok := hours.IntervalOn(proposed.Start)
	if !ok || !window.Contains(proposed) {
		return reject(ReasonOutsideWorkingHours, nil)
	}

	for i := range occupied {
		occ := &occupied[i]
		if occ.Kind == OccupiedAppointment && ignore != uuid.Nil && occ.ID == ignore {
			continue
		}
		if !occ.Overlaps(proposed) {
			continue
		}
		if occ.Kind == OccupiedBlockedPeriod {
			return reject(ReasonOverlapsBlockedPeriod, occ)
		}
		return reject(ReasonOverlapsAppointment, occ)
	}

	return accept()
}

// CheckBlockConflict decides whether a period may be blocked. Blocking is
// rejected only over scheduled or completed appointments: the appointment
// must be explicitly reassigned first, never silently overridden. Blocked
// periods may overlap each other (the availability merge absorbs them)
// and may extend outside working hours, e.g. a full-day leave block.
func CheckBlockConflict(proposed Interval, occupied []Occupied) Decision {
	for i := range occupied {
		occ := &occupied[i]
		if occ.Kind != OccupiedAppointment {
			continue
		}
		if occ.Overlaps(proposed) {
			return reject(ReasonOverlapsAppointment, occ)
		}
	}
	return accept()
}
