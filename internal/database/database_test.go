package database

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"roombook/internal/config"
	"roombook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func createRoom(t *testing.T, db *DB, name string, floor int, active bool) *models.Room {
	t.Helper()
	room := &models.Room{Name: name, Floor: floor, Capacity: 4, IsActive: active}
	require.NoError(t, db.CreateRoom(context.Background(), room))
	return room
}

func book(t *testing.T, db *DB, roomID int64, user string, start, end time.Time) *models.Booking {
	t.Helper()
	b := &models.Booking{RoomID: roomID, UserName: user, StartTime: start, EndTime: end}
	require.NoError(t, db.CreateBooking(context.Background(), b))
	return b
}

func TestCatalogQueries(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	r3b := createRoom(t, db, "Room 3B", 3, true)
	createRoom(t, db, "Room 3A", 3, true)
	createRoom(t, db, "Room 2A", 2, true)
	hidden := createRoom(t, db, "Room 5A", 5, false)

	rooms, err := db.ListActiveRooms(ctx)
	require.NoError(t, err)
	names := make([]string, 0, len(rooms))
	for _, r := range rooms {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"Room 2A", "Room 3A", "Room 3B"}, names)

	floors, err := db.ListFloors(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, floors)

	onFloor, err := db.ListRoomsOnFloor(ctx, 3)
	require.NoError(t, err)
	require.Len(t, onFloor, 2)
	assert.Equal(t, "Room 3A", onFloor[0].Name)

	empty, err := db.ListRoomsOnFloor(ctx, 9)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	got, err := db.GetRoom(ctx, r3b.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Room 3B", got.Name)
	assert.True(t, got.IsActive)

	got, err = db.GetRoom(ctx, hidden.ID)
	require.NoError(t, err)
	assert.Nil(t, got, "inactive room is not returned")

	got, err = db.GetRoom(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, got)

	exists, err := db.RoomExists(ctx, hidden.ID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCreateBooking_Overlap(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	room := createRoom(t, db, "Room 2A", 2, true)
	other := createRoom(t, db, "Room 2B", 2, true)

	base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	existing := book(t, db, room.ID, "alice", base, base.Add(time.Hour))
	assert.NotZero(t, existing.ID)
	assert.Equal(t, models.StatusActive, existing.Status)

	tests := []struct {
		name    string
		roomID  int64
		start   time.Time
		end     time.Time
		wantErr error
	}{
		{"back to back after", room.ID, base.Add(time.Hour), base.Add(2 * time.Hour), nil},
		{"back to back before", room.ID, base.Add(-time.Hour), base, nil},
		{"contained", room.ID, base.Add(30 * time.Minute), base.Add(45 * time.Minute), ErrSlotConflict},
		{"partial start", room.ID, base.Add(-time.Hour), base.Add(time.Minute), ErrSlotConflict},
		{"covering", room.ID, base.Add(-2 * time.Hour), base.Add(3 * time.Hour), ErrSlotConflict},
		{"other room", other.ID, base, base.Add(time.Hour), nil},
		{"missing room", 999, base.Add(5 * time.Hour), base.Add(6 * time.Hour), ErrRoomNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &models.Booking{RoomID: tt.roomID, UserName: "bob", StartTime: tt.start, EndTime: tt.end}
			err := db.CreateBooking(ctx, b)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Zero(t, b.ID)
				return
			}
			require.NoError(t, err)
			assert.NotZero(t, b.ID)
		})
	}
}

func TestCreateBooking_AfterDeleteSlotIsFree(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	room := createRoom(t, db, "Room 2A", 2, true)

	start := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	b := book(t, db, room.ID, "alice", start, start.Add(time.Hour))

	deleted, err := db.DeleteBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = db.DeleteBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	book(t, db, room.ID, "bob", start, start.Add(time.Hour))
}

func TestCreateBooking_Concurrent(t *testing.T) {
	db := newTestDB(t)
	room := createRoom(t, db, "Room 2A", 2, true)
	start := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b := &models.Booking{
				RoomID:    room.ID,
				UserName:  "user",
				StartTime: start.Add(time.Duration(i) * time.Minute),
				EndTime:   start.Add(time.Hour),
			}
			errs[i] = db.CreateBooking(context.Background(), b)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrSlotConflict)
	}
	assert.Equal(t, 1, succeeded)

	all, err := db.ListActiveBookings(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestGetRoomBookings_DayWindow(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	room := createRoom(t, db, "Room 2A", 2, true)

	loc := time.FixedZone("UTC+3", 3*3600)
	late := time.Date(2024, 1, 15, 23, 30, 0, 0, loc)
	early := time.Date(2024, 1, 15, 0, 0, 0, 0, loc)
	book(t, db, room.ID, "alice", late, late.Add(time.Hour))
	book(t, db, room.ID, "bob", early, early.Add(time.Hour))

	day, err := db.GetRoomBookings(ctx, room.ID, time.Date(2024, 1, 15, 12, 0, 0, 0, loc))
	require.NoError(t, err)
	require.Len(t, day, 2)
	assert.Equal(t, "bob", day[0].UserName)
	assert.Equal(t, "alice", day[1].UserName)
	assert.True(t, day[1].StartTime.Equal(late))

	next, err := db.GetRoomBookings(ctx, room.ID, time.Date(2024, 1, 16, 0, 0, 0, 0, loc))
	require.NoError(t, err)
	assert.Empty(t, next)
}

func TestListOverlappingBookings_CrossesMidnight(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	room := createRoom(t, db, "Room 2A", 2, true)
	other := createRoom(t, db, "Room 2B", 2, true)

	dayStart := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	book(t, db, room.ID, "overnight", dayStart.Add(-2*time.Hour), dayStart.Add(2*time.Hour))
	book(t, db, room.ID, "previous evening", dayStart.Add(-3*time.Hour), dayStart.Add(-2*time.Hour))
	book(t, db, room.ID, "noon", dayStart.Add(12*time.Hour), dayStart.Add(13*time.Hour))
	book(t, db, room.ID, "next day", dayEnd, dayEnd.Add(time.Hour))
	book(t, db, other.ID, "other room", dayStart.Add(12*time.Hour), dayStart.Add(13*time.Hour))

	got, err := db.ListOverlappingBookings(ctx, room.ID, dayStart, dayEnd)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "overnight", got[0].UserName)
	assert.Equal(t, "noon", got[1].UserName)

	starting, err := db.GetRoomBookings(ctx, room.ID, dayStart)
	require.NoError(t, err)
	require.Len(t, starting, 1)
	assert.Equal(t, "noon", starting[0].UserName)
}

func TestRemoveBooking_ReturnsJoinedRow(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	room := createRoom(t, db, "Room 6D", 6, true)

	start := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	b := book(t, db, room.ID, "alice", start, start.Add(time.Hour))

	removed, err := db.RemoveBooking(ctx, b.ID)
	require.NoError(t, err)
	require.NotNil(t, removed)
	assert.Equal(t, b.ID, removed.ID)
	assert.Equal(t, "Room 6D", removed.RoomName)
	assert.Equal(t, 6, removed.Floor)
	assert.True(t, removed.StartTime.Equal(start))

	again, err := db.RemoveBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Nil(t, again)

	book(t, db, room.ID, "bob", start, start.Add(time.Hour))
}

func TestListBookings(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	a := createRoom(t, db, "Room 2A", 2, true)
	b := createRoom(t, db, "Room 4C", 4, true)

	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	first := book(t, db, a.ID, "A", day.Add(9*time.Hour), day.Add(10*time.Hour))
	book(t, db, b.ID, "A", day.Add(24*time.Hour), day.Add(25*time.Hour))
	book(t, db, a.ID, "B", day.Add(48*time.Hour), day.Add(49*time.Hour))

	all, err := db.ListActiveBookings(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "B", all[0].UserName)
	assert.Equal(t, "Room 4C", all[1].RoomName)
	assert.Equal(t, 4, all[1].Floor)
	assert.Equal(t, first.ID, all[2].ID)

	inRange, err := db.ListBookingsInRange(ctx, day.Add(9*time.Hour), day.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, inRange, 2, "range bounds are inclusive")
	assert.Equal(t, "Room 4C", inRange[0].RoomName)

	got, err := db.GetBooking(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Room 2A", got.RoomName)

	missing, err := db.GetBooking(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	stats, err := db.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Stats{TotalBookings: 3, RoomsBooked: 2, UniqueUsers: 2}, *stats)

	cleared, err := db.ClearAllBookings(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, cleared)

	stats, err = db.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Stats{}, *stats)
}

func TestSyncRoomsFromConfig(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	cfg, err := config.ParseRoomsConfig([]byte(`rooms:
  - {id: 1, name: "Room 2A", floor: 2, capacity: 4, equipment: "Whiteboard"}
  - {id: 2, name: "Room 2B", floor: 2, capacity: 6}
  - {id: 3, name: "Room 3A", floor: 3, capacity: 8}`))
	require.NoError(t, err)
	require.NoError(t, db.SyncRoomsFromConfig(ctx, cfg))

	rooms, err := db.ListActiveRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 3)
	assert.Equal(t, "Whiteboard", rooms[0].Equipment)

	start := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	book(t, db, 3, "alice", start, start.Add(time.Hour))

	cfg, err = config.ParseRoomsConfig([]byte(`rooms:
  - {id: 1, name: "Room 2A", floor: 2, capacity: 10}
  - {id: 2, name: "Room 2B", floor: 2, capacity: 6}`))
	require.NoError(t, err)
	require.NoError(t, db.SyncRoomsFromConfig(ctx, cfg))

	floors, err := db.ListFloors(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, floors)

	room, err := db.GetRoom(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, room)
	assert.Equal(t, 10, room.Capacity)

	all, err := db.ListActiveBookings(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1, "bookings on deactivated rooms stay listed")
	assert.Equal(t, "Room 3A", all[0].RoomName)
}

func TestGetTableData(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createRoom(t, db, "Room 2A", 2, true)

	names, err := db.GetTableNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"rooms", "bookings"}, names)

	rows, columns, err := db.GetTableData(ctx, "rooms")
	require.NoError(t, err)
	assert.Contains(t, columns, "name")
	require.Len(t, rows, 1)
	assert.Equal(t, "Room 2A", rows[0]["name"])

	_, _, err = db.GetTableData(ctx, "sqlite_master")
	assert.Error(t, err)
}

func TestBackupService(t *testing.T) {
	db := newTestDB(t)
	createRoom(t, db, "Room 2A", 2, true)

	dir := filepath.Join(t.TempDir(), "backups")
	logger := zerolog.New(io.Discard)
	svc := NewBackupService(db, BackupOptions{Enabled: true, Dir: dir, RetentionDays: 7}, &logger)

	path, err := svc.PerformBackup(context.Background())
	require.NoError(t, err)

	restored, err := NewDB(path, &logger)
	require.NoError(t, err)
	defer restored.Close()
	rooms, err := restored.ListActiveRooms(context.Background())
	require.NoError(t, err)
	assert.Len(t, rooms, 1)

	old := filepath.Join(dir, "backup_20000101_000000.db")
	require.NoError(t, os.WriteFile(old, []byte("old"), 0o644))
	past := time.Now().AddDate(0, 0, -30)
	require.NoError(t, os.Chtimes(old, past, past))

	assert.Equal(t, 1, svc.CleanupOldBackups())
	_, err = os.Stat(old)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(path)
	assert.NoError(t, err)
}
