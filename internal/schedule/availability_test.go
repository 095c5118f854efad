package schedule

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreeWindows(t *testing.T) {
	window := iv("09:00", "17:00")

	t.Run("empty calendar yields the whole window", func(t *testing.T) {
		free := FreeWindows(window, nil)

		require.Equal(t, []Interval{window}, free)
	})

	t.Run("fully booked day yields nothing", func(t *testing.T) {
		free := FreeWindows(window, []Interval{iv("09:00", "13:00"), iv("13:00", "17:00")})

		assert.Empty(t, free)
	})

	t.Run("unsorted overlapping input", func(t *testing.T) {
		occupied := []Interval{
			iv("13:00", "14:00"),
			iv("10:00", "10:30"),
			iv("10:15", "11:00"),
		}

		free := FreeWindows(window, occupied)

		require.Equal(t, []Interval{
			iv("09:00", "10:00"),
			iv("11:00", "13:00"),
			iv("14:00", "17:00"),
		}, free)
	})
}

// Free windows and occupied intervals must tile the working window: no
// free minute overlaps occupied time, and together they cover the window.
func TestFreeWindowsPartitionProperty(t *testing.T) {
	window := iv("09:00", "17:00")
	occupied := []Interval{
		iv("09:30", "10:00"),
		iv("09:45", "10:30"),
		iv("12:00", "13:00"),
		iv("16:30", "17:00"),
	}

	free := FreeWindows(window, occupied)

	var total time.Duration
	for _, f := range free {
		require.True(t, window.Contains(f), "free window %v escapes working hours", f)
		for _, occ := range occupied {
			assert.False(t, f.Overlaps(occ), "free window %v overlaps occupied %v", f, occ)
		}
		total += f.Duration()
	}

	var covered time.Duration
	for _, m := range MergeIntervals(occupied) {
		clipped := m
		if clipped.Start.Before(window.Start) {
			clipped.Start = window.Start
		}
		if clipped.End.After(window.End) {
			clipped.End = window.End
		}
		covered += clipped.Duration()
	}
	assert.Equal(t, window.Duration(), total+covered)
}

func TestAvailabilityRange(t *testing.T) {
	hours := WorkingHours{
		time.Monday:  {Open: "09:00", Close: "17:00"},
		time.Tuesday: {Open: "10:00", Close: "14:00"},
	}
	occupied := []Occupied{
		occupiedAppt(uuid.New(), "10:00", "10:30"),
		{
			ID:   uuid.New(),
			Kind: OccupiedBlockedPeriod,
			Interval: Interval{
				Start: testDay.AddDate(0, 0, 1).Add(11 * time.Hour),
				End:   testDay.AddDate(0, 0, 1).Add(12 * time.Hour),
			},
		},
	}

	days := AvailabilityRange(hours, testDay, testDay.AddDate(0, 0, 3), occupied)

	require.Len(t, days, 3)

	monday := days[0]
	require.NotNil(t, monday.Working)
	assert.Equal(t, iv("09:00", "17:00"), *monday.Working)
	require.Equal(t, []Interval{iv("09:00", "10:00"), iv("10:30", "17:00")}, monday.Free)

	tuesday := days[1]
	require.NotNil(t, tuesday.Working)
	require.Len(t, tuesday.Free, 2)
	assert.Equal(t, testDay.AddDate(0, 0, 1).Add(10*time.Hour), tuesday.Free[0].Start)
	assert.Equal(t, testDay.AddDate(0, 0, 1).Add(11*time.Hour), tuesday.Free[0].End)

	wednesday := days[2]
	assert.Nil(t, wednesday.Working)
	assert.Empty(t, wednesday.Free)
}

func TestOccupiedIntervals(t *testing.T) {
	assert.Nil(t, OccupiedIntervals(nil))

	occ := []Occupied{
		occupiedAppt(uuid.New(), "09:00", "09:30"),
		occupiedBlock(uuid.New(), "10:00", "11:00"),
	}
	assert.Equal(t, []Interval{iv("09:00", "09:30"), iv("10:00", "11:00")}, OccupiedIntervals(occ))
}
