package schedule

import "time"

// LegalStarts returns every bookable start time for a treatment of the
// given duration on day, stepping in duration-sized increments from open
// toward close. A start whose end would pass closing time is excluded.
// Empty when the dentist has no working hours that day. Pure and
// deterministic for identical inputs.
func LegalStarts(hours WorkingHours, day time.Time, duration time.Duration) []time.Time {
	window, ok := hours.IntervalOn(day)
	if !ok || duration <= 0 {
		return nil
	}

	var starts []time.Time
	for cursor := window.Start; !cursor.Add(duration).After(window.End); cursor = cursor.Add(duration) {
		starts = append(starts, cursor)
	}
	return starts
}

// AvailableStarts filters the legal starts for day down to those whose
// whole interval fits inside one of the free windows.
func AvailableStarts(hours WorkingHours, day time.Time, duration time.Duration, free []Interval) []time.Time {
	var starts []time.Time
	for _, start := range LegalStarts(hours, day, duration) {
		proposed := Interval{Start: start, End: start.Add(duration)}
		for _, w := range free {
			if w.Contains(proposed) {
				starts = append(starts, start)
				break
			}
		}
	}
	return starts
}
