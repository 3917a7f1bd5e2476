package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-01-10")
	require.NoError(t, err)
	assert.Equal(t, Date{Year: 2024, Month: time.January, Day: 10}, d)
	assert.Equal(t, "2024-01-10", d.String())

	for _, bad := range []string{"", "2024-1-10", "10/01/2024", "2024-02-30", "tomorrow"} {
		_, err := ParseDate(bad)
		assert.ErrorIs(t, err, ErrInvalidDate, bad)
	}
}

func TestDate_AddDaysAndCompare(t *testing.T) {
	d, _ := ParseDate("2024-02-26")
	week := d.AddDays(7)
	assert.Equal(t, "2024-03-04", week.String())
	assert.True(t, d.Before(week))
	assert.True(t, week.After(d))
	assert.Equal(t, 0, d.Compare(d))
	assert.True(t, Date{}.IsZero())
}

func TestParseClockTime(t *testing.T) {
	tests := []struct {
		in   string
		want ClockTime
		ok   bool
	}{
		{"09:00", 540, true},
		{"9:30", 570, true},
		{"23:59", 1439, true},
		{"24:00", EndOfDay, true},
		{"10:00:00", 600, true},
		{"10:00:30", 0, false},
		{"24:01", 0, false},
		{"12:60", 0, false},
		{"12:5", 0, false},
		{"noon", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClockTime(tt.in)
			if !tt.ok {
				assert.ErrorIs(t, err, ErrInvalidClock)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, "09:05", ClockTime(545).String())
}

func TestParseHourRange(t *testing.T) {
	s, err := ParseHourRange("9-10")
	require.NoError(t, err)
	assert.Equal(t, "09:00-10:00", s.String())
	assert.Equal(t, time.Hour, s.Duration())

	s, err = ParseHourRange(" 22 - 24 ")
	require.NoError(t, err)
	assert.Equal(t, EndOfDay, s.End)

	for _, bad := range []string{"9", "10-9", "9-9", "a-b", "9-25", "-1-3"} {
		_, err := ParseHourRange(bad)
		assert.Error(t, err, bad)
	}
}

func TestSlot_Overlaps(t *testing.T) {
	at := func(h, m int) ClockTime {
		c, err := NewClockTime(h, m)
		require.NoError(t, err)
		return c
	}
	base := Slot{Start: at(9, 0), End: at(10, 0)}

	tests := []struct {
		name  string
		other Slot
		want  bool
	}{
		{"identical", base, true},
		{"partial after", Slot{at(9, 30), at(10, 30)}, true},
		{"partial before", Slot{at(8, 30), at(9, 1)}, true},
		{"contained", Slot{at(9, 15), at(9, 45)}, true},
		{"containing", Slot{at(8, 0), at(11, 0)}, true},
		{"touching end", Slot{at(10, 0), at(11, 0)}, false},
		{"touching start", Slot{at(8, 0), at(9, 0)}, false},
		{"disjoint", Slot{at(13, 0), at(14, 0)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base.Overlaps(tt.other))
			assert.Equal(t, tt.want, tt.other.Overlaps(base), "overlap must be symmetric")
		})
	}
}

func TestNewSlot_RejectsEmptyAndReversed(t *testing.T) {
	_, err := NewSlot(600, 600)
	assert.ErrorIs(t, err, ErrInvalidSlot)
	_, err = NewSlot(660, 600)
	assert.ErrorIs(t, err, ErrInvalidSlot)
	_, err = NewSlot(0, EndOfDay)
	assert.NoError(t, err)
}

func TestBooking_JSONUsesWireFormats(t *testing.T) {
	d, _ := ParseDate("2024-01-10")
	b := Booking{ID: 1, UserID: 2, EquipmentID: 3, Date: d, StartTime: 540, EndTime: 600}

	raw, err := json.Marshal(b)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"date":"2024-01-10"`)
	assert.Contains(t, string(raw), `"start_time":"09:00"`)
	assert.Contains(t, string(raw), `"end_time":"10:00"`)
}

func TestBooking_ConflictsWith(t *testing.T) {
	d, _ := ParseDate("2024-01-10")
	a := &Booking{ID: 1, EquipmentID: 1, Date: d, StartTime: 540, EndTime: 600}

	assert.False(t, a.ConflictsWith(a), "self")
	assert.True(t, a.ConflictsWith(&Booking{ID: 2, EquipmentID: 1, Date: d, StartTime: 570, EndTime: 630}))
	assert.False(t, a.ConflictsWith(&Booking{ID: 2, EquipmentID: 2, Date: d, StartTime: 570, EndTime: 630}))
	assert.False(t, a.ConflictsWith(&Booking{ID: 2, EquipmentID: 1, Date: d.AddDays(1), StartTime: 570, EndTime: 630}))
	assert.True(t, (&Booking{EquipmentID: 1, Date: d, StartTime: 540, EndTime: 600}).ConflictsWith(a), "unsaved candidate")
}
