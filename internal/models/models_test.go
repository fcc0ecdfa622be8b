package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func datetime(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC)
}

func TestBooking_Duration(t *testing.T) {
	b := Booking{
		StartTime: datetime(2026, 1, 15, 10, 0),
		EndTime:   datetime(2026, 1, 15, 12, 30),
	}
	assert.Equal(t, 2*time.Hour+30*time.Minute, b.Duration())
}

func TestBooking_OverlapsWith(t *testing.T) {
	existing := Booking{
		StartTime: datetime(2026, 1, 15, 10, 0),
		EndTime:   datetime(2026, 1, 15, 11, 0),
	}

	tests := []struct {
		name       string
		start, end time.Time
		want       bool
	}{
		{"touching after", datetime(2026, 1, 15, 11, 0), datetime(2026, 1, 15, 12, 0), false},
		{"touching before", datetime(2026, 1, 15, 9, 0), datetime(2026, 1, 15, 10, 0), false},
		{"contained", datetime(2026, 1, 15, 10, 30), datetime(2026, 1, 15, 10, 45), true},
		{"partial overlap", datetime(2026, 1, 15, 9, 0), datetime(2026, 1, 15, 10, 1), true},
		{"covering", datetime(2026, 1, 15, 9, 0), datetime(2026, 1, 15, 12, 0), true},
		{"identical", datetime(2026, 1, 15, 10, 0), datetime(2026, 1, 15, 11, 0), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other := Booking{StartTime: tt.start, EndTime: tt.end}
			assert.Equal(t, tt.want, existing.OverlapsWith(&other))
			assert.Equal(t, tt.want, other.OverlapsWith(&existing))
		})
	}
}

func TestBooking_ContainsTime(t *testing.T) {
	b := Booking{
		StartTime: datetime(2026, 1, 15, 10, 0),
		EndTime:   datetime(2026, 1, 15, 14, 0),
	}

	assert.True(t, b.ContainsTime(datetime(2026, 1, 15, 10, 0)))
	assert.True(t, b.ContainsTime(datetime(2026, 1, 15, 12, 0)))
	assert.False(t, b.ContainsTime(datetime(2026, 1, 15, 14, 0)))
	assert.False(t, b.ContainsTime(datetime(2026, 1, 15, 9, 0)))
}

func TestBooking_DisplayStatus(t *testing.T) {
	b := Booking{
		StartTime: datetime(2026, 1, 15, 10, 0),
		EndTime:   datetime(2026, 1, 15, 11, 0),
	}

	assert.Equal(t, DisplayUpcoming, b.DisplayStatus(datetime(2026, 1, 15, 9, 59)))
	assert.Equal(t, DisplayActive, b.DisplayStatus(datetime(2026, 1, 15, 10, 0)))
	assert.Equal(t, DisplayActive, b.DisplayStatus(datetime(2026, 1, 15, 10, 59)))
	assert.Equal(t, DisplayCompleted, b.DisplayStatus(datetime(2026, 1, 15, 11, 0)))
}

func TestDayBounds(t *testing.T) {
	loc := time.FixedZone("UTC-8", -8*60*60)
	start, end := DayBounds(time.Date(2024, 1, 15, 17, 42, 5, 0, loc))

	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, loc), start)
	assert.Equal(t, time.Date(2024, 1, 15, 23, 59, 59, int(999*time.Millisecond), loc), end)
}

func TestFreeIntervals(t *testing.T) {
	from := datetime(2026, 1, 15, 8, 0)
	to := datetime(2026, 1, 15, 20, 0)

	t.Run("NoBookings", func(t *testing.T) {
		free := FreeIntervals(from, to, nil)
		assert.Equal(t, []Interval{{Start: from, End: to}}, free)
	})

	t.Run("Gaps", func(t *testing.T) {
		bookings := []Booking{
			{StartTime: datetime(2026, 1, 15, 13, 0), EndTime: datetime(2026, 1, 15, 14, 0)},
			{StartTime: datetime(2026, 1, 15, 10, 0), EndTime: datetime(2026, 1, 15, 11, 0)},
			{StartTime: datetime(2026, 1, 15, 11, 0), EndTime: datetime(2026, 1, 15, 12, 0)},
		}
		free := FreeIntervals(from, to, bookings)
		assert.Equal(t, []Interval{
			{Start: datetime(2026, 1, 15, 8, 0), End: datetime(2026, 1, 15, 10, 0)},
			{Start: datetime(2026, 1, 15, 12, 0), End: datetime(2026, 1, 15, 13, 0)},
			{Start: datetime(2026, 1, 15, 14, 0), End: datetime(2026, 1, 15, 20, 0)},
		}, free)
	})

	t.Run("FullyBooked", func(t *testing.T) {
		bookings := []Booking{{StartTime: datetime(2026, 1, 15, 7, 0), EndTime: datetime(2026, 1, 15, 21, 0)}}
		assert.Empty(t, FreeIntervals(from, to, bookings))
	})
}
