package models

import (
	"sort"
	"time"
)

// StatusActive is the only stored booking status. Cancelled bookings are deleted.
const StatusActive = "active"

// Derived display statuses, computed from the current time.
const (
	DisplayUpcoming  = "upcoming"
	DisplayActive    = "active"
	DisplayCompleted = "completed"
)

// Booking represents a room reservation record.
type Booking struct {
	ID        int64     `json:"id"`
	RoomID    int64     `json:"room_id"`
	UserName  string    `json:"user_name"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// BookingWithRoom is a booking joined with its room's name and floor.
type BookingWithRoom struct {
	Booking
	RoomName      string `json:"room_name"`
	Floor         int    `json:"floor"`
	DisplayStatus string `json:"display_status,omitempty"`
}

// Stats aggregates the active booking set.
type Stats struct {
	TotalBookings int `json:"total_bookings"`
	RoomsBooked   int `json:"rooms_booked"`
	UniqueUsers   int `json:"unique_users"`
}

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration returns the booking length.
func (b *Booking) Duration() time.Duration {
	return b.EndTime.Sub(b.StartTime)
}

// OverlapsWith reports whether two bookings overlap as half-open intervals.
// Back-to-back bookings (one ends exactly when the other starts) do not overlap.
func (b *Booking) OverlapsWith(other *Booking) bool {
	return Overlaps(b.StartTime, b.EndTime, other.StartTime, other.EndTime)
}

// ContainsTime checks whether t falls inside [StartTime, EndTime).
func (b *Booking) ContainsTime(t time.Time) bool {
	return !t.Before(b.StartTime) && t.Before(b.EndTime)
}

// DisplayStatus derives upcoming/active/completed from now.
func (b *Booking) DisplayStatus(now time.Time) string {
	switch {
	case now.Before(b.StartTime):
		return DisplayUpcoming
	case now.Before(b.EndTime):
		return DisplayActive
	default:
		return DisplayCompleted
	}
}

// Overlaps is the half-open overlap test: s1 < e2 && e1 > s2.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && e1.After(s2)
}

// DayBounds returns the first and last millisecond of the calendar day containing
// date, in date's location.
func DayBounds(date time.Time) (start, end time.Time) {
	start = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	end = start.AddDate(0, 0, 1).Add(-time.Millisecond)
	return start, end
}

// FreeIntervals returns the gaps inside [from, to) not covered by any booking.
func FreeIntervals(from, to time.Time, bookings []Booking) []Interval {
	sorted := make([]Booking, len(bookings))
	copy(sorted, bookings)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].StartTime.Before(sorted[j].StartTime)
	})

	free := make([]Interval, 0)
	cursor := from
	for _, b := range sorted {
		if !b.EndTime.After(cursor) {
			continue
		}
		if !b.StartTime.Before(to) {
			break
		}
		if b.StartTime.After(cursor) {
			free = append(free, Interval{Start: cursor, End: b.StartTime})
		}
		cursor = b.EndTime
	}
	if cursor.Before(to) {
		free = append(free, Interval{Start: cursor, End: to})
	}
	return free
}
