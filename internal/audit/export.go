package audit

import (
	"context"
	"fmt"
	"io"
	"time"

	"roombook/internal/models"

	"github.com/rs/zerolog"
)

// BookingSource lists the active bookings to export.
type BookingSource interface {
	ListAllActiveBookings(ctx context.Context) ([]models.BookingWithRoom, error)
}

// TableExporter provides raw table dumps.
type TableExporter interface {
	GetTableNames(ctx context.Context) ([]string, error)
	GetTableData(ctx context.Context, tableName string) ([]map[string]any, []string, error)
}

// BookingColumns is the header of the bookings sheet.
var BookingColumns = []string{
	"ID", "Room", "Floor", "User", "Start", "End", "Duration (min)", "Status", "Created",
}

const timeLayout = "2006-01-02 15:04"

// Exporter builds XLSX reports of bookings.
type Exporter struct {
	bookings BookingSource
	tables   TableExporter
	writer   func(*time.Location) Workbook
	location *time.Location
	logger   *zerolog.Logger
}

// NewExporter creates an exporter. tables may be nil to export the bookings sheet only.
func NewExporter(bookings BookingSource, tables TableExporter, loc *time.Location, logger *zerolog.Logger) *Exporter {
	if loc == nil {
		loc = time.Local
	}
	l := logger.With().Str("component", "audit").Logger()
	return &Exporter{
		bookings: bookings,
		tables:   tables,
		writer:   newXLSXWorkbook,
		location: loc,
		logger:   &l,
	}
}

// Filename returns the download name for a report generated at t.
func Filename(t time.Time) string {
	return fmt.Sprintf("bookings_%s.xlsx", t.Format("2006-01-02"))
}

// BookingRow renders a booking as a bookings sheet row.
func BookingRow(b models.BookingWithRoom, loc *time.Location) []any {
	return []any{
		b.ID,
		b.RoomName,
		b.Floor,
		b.UserName,
		b.StartTime.In(loc).Format(timeLayout),
		b.EndTime.In(loc).Format(timeLayout),
		int(b.Duration().Minutes()),
		b.DisplayStatus,
		b.CreatedAt.In(loc).Format(timeLayout),
	}
}

// Export writes the workbook to w and returns the number of bookings exported.
func (e *Exporter) Export(ctx context.Context, w io.Writer) (int, error) {
	bookings, err := e.bookings.ListAllActiveBookings(ctx)
	if err != nil {
		return 0, fmt.Errorf("list bookings: %w", err)
	}

	excel := e.writer(e.location)
	defer excel.Close()

	if err := excel.AddSheet("Bookings"); err != nil {
		return 0, err
	}
	if err := excel.WriteHeader(BookingColumns); err != nil {
		return 0, err
	}
	for _, b := range bookings {
		if err := excel.WriteRow(BookingRow(b, e.location)); err != nil {
			return 0, fmt.Errorf("write booking %d: %w", b.ID, err)
		}
	}

	if e.tables != nil {
		if err := e.writeTables(ctx, excel); err != nil {
			return 0, err
		}
	}

	if err := excel.Save(w); err != nil {
		return 0, fmt.Errorf("save excel: %w", err)
	}

	e.logger.Info().Int("bookings", len(bookings)).Msg("Bookings exported")
	return len(bookings), nil
}

func (e *Exporter) writeTables(ctx context.Context, excel Workbook) error {
	tables, err := e.tables.GetTableNames(ctx)
	if err != nil {
		return fmt.Errorf("get table names: %w", err)
	}

	for _, tableName := range tables {
		data, columns, err := e.tables.GetTableData(ctx, tableName)
		if err != nil {
			e.logger.Error().Err(err).Str("table", tableName).Msg("Failed to get table data")
			continue
		}

		if err := excel.AddSheet("table_" + tableName); err != nil {
			return err
		}
		if err := excel.WriteHeader(columns); err != nil {
			return err
		}

		for _, row := range data {
			values := make([]any, len(columns))
			for i, col := range columns {
				values[i] = row[col]
			}
			if err := excel.WriteRow(values); err != nil {
				e.logger.Error().Err(err).Str("table", tableName).Msg("Failed to write row")
			}
		}
		e.logger.Debug().Str("table", tableName).Int("rows", len(data)).Msg("Exported table")
	}
	return nil
}
