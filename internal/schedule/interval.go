package schedule

import (
	"sort"
	"time"
)

// Interval is a half-open [Start, End) time range. Touching endpoints do
// not overlap, so back-to-back bookings are legal.
type Interval struct {
	Start time.Time
	End   time.Time
}

func (iv Interval) Valid() bool {
	return !iv.Start.IsZero() && iv.Start.Before(iv.End)
}

func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// Contains reports whether other lies entirely within iv.
func (iv Interval) Contains(other Interval) bool {
	return !other.Start.Before(iv.Start) && !other.End.After(iv.End)
}

func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// MergeIntervals sorts ivs by start and coalesces overlapping or adjacent
// intervals into a minimal ordered set. The input is not modified.
func MergeIntervals(ivs []Interval) []Interval {
	if len(ivs) == 0 {
		return nil
	}

	sorted := make([]Interval, len(ivs))
	copy(sorted, ivs)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	merged := []Interval{sorted[0]}
	for _, iv := range sorted[1:] {
		last := &merged[len(merged)-1]
		if !iv.Start.After(last.End) {
			if iv.End.After(last.End) {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// SubtractIntervals returns the ordered parts of window not covered by
// occupied. occupied must already be merged and ordered (see MergeIntervals).
func SubtractIntervals(window Interval, occupied []Interval) []Interval {
	free := []Interval{}
	cursor := window.Start

	for _, occ := range occupied {
		if !occ.Overlaps(window) {
			continue
		}
		if occ.Start.After(cursor) {
			free = append(free, Interval{Start: cursor, End: occ.Start})
		}
		if occ.End.After(cursor) {
			cursor = occ.End
		}
	}

	if cursor.Before(window.End) {
		free = append(free, Interval{Start: cursor, End: window.End})
	}
	return free
}
