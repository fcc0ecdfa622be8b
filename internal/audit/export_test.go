package audit

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"roombook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type stubBookings struct {
	rows []models.BookingWithRoom
	err  error
}

func (s stubBookings) ListAllActiveBookings(context.Context) ([]models.BookingWithRoom, error) {
	return s.rows, s.err
}

type stubTables struct{}

func (stubTables) GetTableNames(context.Context) ([]string, error) {
	return []string{"rooms"}, nil
}

func (stubTables) GetTableData(context.Context, string) ([]map[string]any, []string, error) {
	return []map[string]any{{"id": int64(1), "name": "Room 2A"}}, []string{"id", "name"}, nil
}

func TestExporter_Export(t *testing.T) {
	start := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	rows := []models.BookingWithRoom{{
		Booking: models.Booking{
			ID: 5, RoomID: 1, UserName: "alice",
			StartTime: start, EndTime: start.Add(90 * time.Minute), CreatedAt: start,
		},
		RoomName:      "Room 2A",
		Floor:         2,
		DisplayStatus: models.DisplayUpcoming,
	}}

	logger := zerolog.New(io.Discard)
	exp := NewExporter(stubBookings{rows: rows}, stubTables{}, time.UTC, &logger)

	var buf bytes.Buffer
	n, err := exp.Export(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Bookings", "table_rooms"}, f.GetSheetList())

	sheet, err := f.GetRows("Bookings")
	require.NoError(t, err)
	require.Len(t, sheet, 2)
	assert.Equal(t, BookingColumns, sheet[0])
	assert.Equal(t, []string{"5", "Room 2A", "2", "alice", "2024-01-15 10:00", "2024-01-15 11:30", "90", "upcoming", "2024-01-15 10:00"}, sheet[1])

	raw, err := f.GetRows("table_rooms")
	require.NoError(t, err)
	require.Len(t, raw, 2)
	assert.Equal(t, []string{"1", "Room 2A"}, raw[1])
}

func TestExporter_SourceError(t *testing.T) {
	logger := zerolog.New(io.Discard)
	exp := NewExporter(stubBookings{err: errors.New("db down")}, nil, nil, &logger)

	_, err := exp.Export(context.Background(), io.Discard)
	assert.ErrorContains(t, err, "db down")
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "bookings_2024-03-09.xlsx", Filename(time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)))
}
