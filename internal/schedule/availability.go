package schedule

import (
	"time"

	"github.com/google/uuid"
)

type OccupiedKind string

const (
	OccupiedAppointment   OccupiedKind = "appointment"
	OccupiedBlockedPeriod OccupiedKind = "blocked_period"
)

// Occupied pairs an interval with the record holding it, so conflict
// decisions can name what a proposal collided with.
type Occupied struct {
	ID   uuid.UUID
	Kind OccupiedKind
	Interval
}

// FreeWindows computes the ordered free intervals of a working day: the
// working-hours window minus the merged union of occupied intervals.
// A fully covered day yields an empty set; an empty occupied set yields
// the whole window.
func FreeWindows(window Interval, occupied []Interval) []Interval {
	return SubtractIntervals(window, MergeIntervals(occupied))
}

// DayAvailability is the derived free/occupied picture of one dentist day.
// Never persisted; recomputed on demand.
type DayAvailability struct {
	Date    time.Time
	Working *Interval // nil when the dentist does not work that day
	Free    []Interval
}

// AvailabilityRange derives per-day availability for every day in
// [from, to) given the dentist's template and the occupied set for the
// whole range. Each day's occupied subset is merged independently, so a
// week costs one sort per day, not a re-sort per comparison.
func AvailabilityRange(hours WorkingHours, from, to time.Time, occupied []Occupied) []DayAvailability {
	var days []DayAvailability
	for day := StartOfDay(from); day.Before(to); day = day.AddDate(0, 0, 1) {
		window, ok := hours.IntervalOn(day)
		if !ok {
			days = append(days, DayAvailability{Date: day})
			continue
		}

		var ivs []Interval
		for _, occ := range occupied {
			if occ.Overlaps(window) {
				ivs = append(ivs, occ.Interval)
			}
		}

		w := window
		days = append(days, DayAvailability{
			Date:    day,
			Working: &w,
			Free:    FreeWindows(window, ivs),
		})
	}
	return days
}

// OccupiedIntervals extracts just the time ranges from an occupied set.
func OccupiedIntervals(occupied []Occupied) []Interval {
	if len(occupied) == 0 {
		return nil
	}
	ivs := make([]Interval, len(occupied))
	for i, occ := range occupied {
		ivs[i] = occ.Interval
	}
	return ivs
}
