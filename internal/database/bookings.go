package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"roombook/internal/models"
)

const bookingColumns = `b.id, b.room_id, b.user_name, b.start_time, b.end_time, b.status, b.created_at`

func scanBooking(row interface{ Scan(...any) error }) (*models.Booking, error) {
	var b models.Booking
	if err := row.Scan(&b.ID, &b.RoomID, &b.UserName, &b.StartTime, &b.EndTime, &b.Status, &b.CreatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func scanBookingWithRoom(row interface{ Scan(...any) error }) (*models.BookingWithRoom, error) {
	var b models.BookingWithRoom
	if err := row.Scan(
		&b.ID, &b.RoomID, &b.UserName, &b.StartTime, &b.EndTime, &b.Status, &b.CreatedAt,
		&b.RoomName, &b.Floor,
	); err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateBooking inserts an active booking if its interval does not overlap any
// active booking on the same room. The overlap count and the insert run in one
// IMMEDIATE transaction, so concurrent writers on the same file are serialized.
func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	start := dbTime(booking.StartTime)
	end := dbTime(booking.EndTime)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var roomCount int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM rooms WHERE id = ?`, booking.RoomID).Scan(&roomCount); err != nil {
		return fmt.Errorf("check room: %w", err)
	}
	if roomCount == 0 {
		return ErrRoomNotFound
	}

	var overlapping int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM bookings
		WHERE room_id = ?
		AND status = ?
		AND start_time < ? AND end_time > ?`,
		booking.RoomID, models.StatusActive, end, start,
	).Scan(&overlapping)
	if err != nil {
		return fmt.Errorf("check availability: %w", err)
	}
	if overlapping > 0 {
		return ErrSlotConflict
	}

	now := dbTime(time.Now())
	res, err := tx.ExecContext(ctx, `
		INSERT INTO bookings (room_id, user_name, start_time, end_time, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		booking.RoomID, booking.UserName, start, end, models.StatusActive, now,
	)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	booking.ID = id
	booking.StartTime = start
	booking.EndTime = end
	booking.Status = models.StatusActive
	booking.CreatedAt = now
	return nil
}

// GetRoomBookings returns active bookings of a room starting within the calendar
// day of date (in date's location), ordered by start time.
func (db *DB) GetRoomBookings(ctx context.Context, roomID int64, date time.Time) ([]models.Booking, error) {
	dayStart, dayEnd := models.DayBounds(date)

	rows, err := db.QueryContext(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings b
		WHERE b.room_id = ?
		AND b.status = ?
		AND b.start_time >= ? AND b.start_time <= ?
		ORDER BY b.start_time`,
		roomID, models.StatusActive, dbTime(dayStart), dbTime(dayEnd),
	)
	if err != nil {
		return nil, fmt.Errorf("get room bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]models.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryBookingsWithRoom(ctx context.Context, q querier, where string, args ...any) ([]models.BookingWithRoom, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+bookingColumns+`, r.name, r.floor
		FROM bookings b
		JOIN rooms r ON r.id = b.room_id
		WHERE `+where+`
		ORDER BY b.start_time DESC, b.id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]models.BookingWithRoom, 0)
	for rows.Next() {
		b, err := scanBookingWithRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// ListActiveBookings returns every active booking with its room name and floor,
// newest start time first.
func (db *DB) ListActiveBookings(ctx context.Context) ([]models.BookingWithRoom, error) {
	bookings, err := queryBookingsWithRoom(ctx, db, `b.status = ?`, models.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("list active bookings: %w", err)
	}
	return bookings, nil
}

// ListBookingsInRange returns active bookings whose start time lies in [from, to].
func (db *DB) ListBookingsInRange(ctx context.Context, from, to time.Time) ([]models.BookingWithRoom, error) {
	bookings, err := queryBookingsWithRoom(ctx, db,
		`b.status = ? AND b.start_time >= ? AND b.start_time <= ?`,
		models.StatusActive, dbTime(from), dbTime(to),
	)
	if err != nil {
		return nil, fmt.Errorf("list bookings in range: %w", err)
	}
	return bookings, nil
}

// GetBooking returns a booking by id, or (nil, nil) when it does not exist.
func (db *DB) GetBooking(ctx context.Context, id int64) (*models.BookingWithRoom, error) {
	bookings, err := queryBookingsWithRoom(ctx, db, `b.id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("get booking %d: %w", id, err)
	}
	if len(bookings) == 0 {
		return nil, nil
	}
	return &bookings[0], nil
}

// ListOverlappingBookings returns active bookings of a room that overlap [from, to),
// including ones that started before from. Ordered by start time.
func (db *DB) ListOverlappingBookings(ctx context.Context, roomID int64, from, to time.Time) ([]models.Booking, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings b
		WHERE b.room_id = ?
		AND b.status = ?
		AND b.start_time < ? AND b.end_time > ?
		ORDER BY b.start_time`,
		roomID, models.StatusActive, dbTime(to), dbTime(from),
	)
	if err != nil {
		return nil, fmt.Errorf("list overlapping bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]models.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// RemoveBooking deletes a booking and returns it as it was, joined with its room.
// The read and the delete share one IMMEDIATE transaction. A missing id yields (nil, nil).
func (db *DB) RemoveBooking(ctx context.Context, id int64) (*models.BookingWithRoom, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	found, err := queryBookingsWithRoom(ctx, tx, `b.id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("get booking %d: %w", id, err)
	}
	if len(found) == 0 {
		return nil, nil
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("delete booking %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &found[0], nil
}

// DeleteBooking removes a booking. It reports whether a row was deleted.
func (db *DB) DeleteBooking(ctx context.Context, id int64) (bool, error) {
	removed, err := db.RemoveBooking(ctx, id)
	if err != nil {
		return false, err
	}
	return removed != nil, nil
}

// GetStats aggregates active bookings.
func (db *DB) GetStats(ctx context.Context) (*models.Stats, error) {
	var s models.Stats
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT room_id), COUNT(DISTINCT user_name)
		FROM bookings
		WHERE status = ?`, models.StatusActive,
	).Scan(&s.TotalBookings, &s.RoomsBooked, &s.UniqueUsers)
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	return &s, nil
}

// ClearAllBookings deletes every booking and returns how many were removed.
func (db *DB) ClearAllBookings(ctx context.Context) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM bookings`)
	if err != nil {
		return 0, fmt.Errorf("clear bookings: %w", err)
	}
	return res.RowsAffected()
}
