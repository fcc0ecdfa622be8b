package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"roombook/internal/config"
	"roombook/internal/models"
)

const roomColumns = `id, name, floor, capacity, equipment, is_active, created_at`

func scanRoom(row interface{ Scan(...any) error }) (*models.Room, error) {
	var r models.Room
	if err := row.Scan(&r.ID, &r.Name, &r.Floor, &r.Capacity, &r.Equipment, &r.IsActive, &r.CreatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func (db *DB) queryRooms(ctx context.Context, query string, args ...any) ([]models.Room, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rooms := make([]models.Room, 0)
	for rows.Next() {
		r, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, *r)
	}
	return rooms, rows.Err()
}

// ListActiveRooms returns active rooms ordered by floor, then name.
func (db *DB) ListActiveRooms(ctx context.Context) ([]models.Room, error) {
	rooms, err := db.queryRooms(ctx, `
		SELECT `+roomColumns+`
		FROM rooms
		WHERE is_active = 1
		ORDER BY floor, name`)
	if err != nil {
		return nil, fmt.Errorf("list active rooms: %w", err)
	}
	return rooms, nil
}

// ListFloors returns the distinct floors that have at least one active room.
func (db *DB) ListFloors(ctx context.Context) ([]int, error) {
	rows, err := db.QueryContext(ctx, `SELECT DISTINCT floor FROM rooms WHERE is_active = 1 ORDER BY floor`)
	if err != nil {
		return nil, fmt.Errorf("list floors: %w", err)
	}
	defer rows.Close()

	floors := make([]int, 0)
	for rows.Next() {
		var floor int
		if err := rows.Scan(&floor); err != nil {
			return nil, fmt.Errorf("list floors: %w", err)
		}
		floors = append(floors, floor)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list floors: %w", err)
	}
	return floors, nil
}

// ListRoomsOnFloor returns active rooms on a floor ordered by name.
func (db *DB) ListRoomsOnFloor(ctx context.Context, floor int) ([]models.Room, error) {
	rooms, err := db.queryRooms(ctx, `
		SELECT `+roomColumns+`
		FROM rooms
		WHERE floor = ? AND is_active = 1
		ORDER BY name`, floor)
	if err != nil {
		return nil, fmt.Errorf("list rooms on floor %d: %w", floor, err)
	}
	return rooms, nil
}

// GetRoom returns an active room by id. A missing or inactive room yields (nil, nil).
func (db *DB) GetRoom(ctx context.Context, id int64) (*models.Room, error) {
	r, err := scanRoom(db.QueryRowContext(ctx, `
		SELECT `+roomColumns+`
		FROM rooms
		WHERE id = ? AND is_active = 1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get room %d: %w", id, err)
	}
	return r, nil
}

// RoomExists reports whether a room row exists, active or not.
func (db *DB) RoomExists(ctx context.Context, id int64) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rooms WHERE id = ?`, id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check room %d: %w", id, err)
	}
	return count > 0, nil
}

// CreateRoom inserts a room and fills in its id and creation time.
func (db *DB) CreateRoom(ctx context.Context, room *models.Room) error {
	now := dbTime(time.Now())
	res, err := db.ExecContext(ctx, `
		INSERT INTO rooms (name, floor, capacity, equipment, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		room.Name, room.Floor, room.Capacity, room.Equipment, room.IsActive, now, now,
	)
	if err != nil {
		return fmt.Errorf("create room: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last id: %w", err)
	}
	room.ID = id
	room.CreatedAt = now
	return nil
}

// SyncRoomsFromConfig applies rooms.yaml to the database.
// It upserts configured rooms and marks rooms missing from the file inactive.
func (db *DB) SyncRoomsFromConfig(ctx context.Context, cfg *config.RoomsConfig) error {
	if cfg == nil {
		return fmt.Errorf("rooms config is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := dbTime(time.Now())
	seen := make(map[int64]struct{}, len(cfg.Rooms))

	for _, room := range cfg.Rooms {
		// Preserve created_at if the room already exists.
		_, err := tx.ExecContext(ctx, `
			INSERT INTO rooms (id, name, floor, capacity, equipment, is_active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, COALESCE((SELECT created_at FROM rooms WHERE id = ?), ?), ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				floor = excluded.floor,
				capacity = excluded.capacity,
				equipment = excluded.equipment,
				is_active = excluded.is_active,
				updated_at = excluded.updated_at`,
			room.ID, room.Name, room.Floor, room.Capacity, room.Equipment, room.Active(), room.ID, now, now,
		)
		if err != nil {
			return fmt.Errorf("sync room %d: %w", room.ID, err)
		}
		seen[room.ID] = struct{}{}
	}

	rows, err := tx.QueryContext(ctx, `SELECT id FROM rooms WHERE is_active = 1`)
	if err != nil {
		return fmt.Errorf("list rooms: %w", err)
	}
	var missing []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		if _, ok := seen[id]; !ok {
			missing = append(missing, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range missing {
		if _, err := tx.ExecContext(ctx, `UPDATE rooms SET is_active = 0, updated_at = ? WHERE id = ?`, now, id); err != nil {
			return fmt.Errorf("deactivate room %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	db.logger.Info().
		Int("rooms", len(cfg.Rooms)).
		Int("deactivated", len(missing)).
		Msg("Rooms synced from config")
	return nil
}
