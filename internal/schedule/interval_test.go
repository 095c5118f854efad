package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2026-03-02 is a Monday.
var testDay = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func at(clock string) time.Time {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		panic(err)
	}
	return testDay.Add(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute)
}

func iv(start, end string) Interval {
	return Interval{Start: at(start), End: at(end)}
}

func TestIntervalOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"disjoint", iv("09:00", "10:00"), iv("11:00", "12:00"), false},
		{"touching endpoints do not overlap", iv("09:00", "10:00"), iv("10:00", "11:00"), false},
		{"partial overlap", iv("09:00", "10:00"), iv("09:30", "10:30"), true},
		{"containment", iv("09:00", "12:00"), iv("10:00", "11:00"), true},
		{"identical", iv("09:00", "10:00"), iv("09:00", "10:00"), true},
		{"one minute shared", iv("09:00", "10:01"), iv("10:00", "11:00"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Overlaps(tt.b))
			assert.Equal(t, tt.want, tt.b.Overlaps(tt.a), "overlap must be symmetric")
		})
	}
}

func TestIntervalContains(t *testing.T) {
	window := iv("09:00", "17:00")

	assert.True(t, window.Contains(iv("09:00", "09:30")))
	assert.True(t, window.Contains(iv("16:30", "17:00")))
	assert.True(t, window.Contains(window))
	assert.False(t, window.Contains(iv("08:45", "09:15")))
	assert.False(t, window.Contains(iv("16:45", "17:15")))
}

func TestIntervalValid(t *testing.T) {
	assert.True(t, iv("09:00", "09:15").Valid())
	assert.False(t, iv("09:00", "09:00").Valid())
	assert.False(t, iv("10:00", "09:00").Valid())
	assert.False(t, Interval{}.Valid())
}

func TestMergeIntervals(t *testing.T) {
	tests := []struct {
		name  string
		input []Interval
		want  []Interval
	}{
		{"empty", nil, nil},
		{"single", []Interval{iv("09:00", "10:00")}, []Interval{iv("09:00", "10:00")}},
		{
			"overlapping pair",
			[]Interval{iv("09:00", "10:00"), iv("09:30", "11:00")},
			[]Interval{iv("09:00", "11:00")},
		},
		{
			"adjacent coalesce",
			[]Interval{iv("09:00", "10:00"), iv("10:00", "11:00")},
			[]Interval{iv("09:00", "11:00")},
		},
		{
			"disjoint stay apart",
			[]Interval{iv("11:00", "12:00"), iv("09:00", "10:00")},
			[]Interval{iv("09:00", "10:00"), iv("11:00", "12:00")},
		},
		{
			"contained absorbed",
			[]Interval{iv("09:00", "12:00"), iv("10:00", "11:00")},
			[]Interval{iv("09:00", "12:00")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MergeIntervals(tt.input))
		})
	}
}

func TestMergeIntervalsDoesNotModifyInput(t *testing.T) {
	input := []Interval{iv("11:00", "12:00"), iv("09:00", "10:00")}

	MergeIntervals(input)

	require.Equal(t, iv("11:00", "12:00"), input[0])
	require.Equal(t, iv("09:00", "10:00"), input[1])
}

func TestSubtractIntervals(t *testing.T) {
	window := iv("09:00", "17:00")

	tests := []struct {
		name     string
		occupied []Interval
		want     []Interval
	}{
		{"nothing occupied", nil, []Interval{window}},
		{
			"hole in the middle",
			[]Interval{iv("12:00", "13:00")},
			[]Interval{iv("09:00", "12:00"), iv("13:00", "17:00")},
		},
		{
			"occupied at the edges",
			[]Interval{iv("09:00", "10:00"), iv("16:00", "17:00")},
			[]Interval{iv("10:00", "16:00")},
		},
		{
			"fully covered",
			[]Interval{iv("09:00", "17:00")},
			[]Interval{},
		},
		{
			"occupied spills past the window",
			[]Interval{iv("08:00", "09:30"), iv("16:30", "18:00")},
			[]Interval{iv("09:30", "16:30")},
		},
		{
			"outside the window entirely",
			[]Interval{iv("07:00", "08:00")},
			[]Interval{window},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SubtractIntervals(window, tt.occupied))
		})
	}
}
