package google

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"sync"

	"roombook/internal/events"
	"roombook/internal/models"

	"github.com/rs/zerolog"
	googleoauth "golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetHeader is the first row of the bookings sheet.
var SheetHeader = []any{"ID", "Room ID", "Room", "Floor", "User", "Start", "End", "Status", "Created"}

const (
	timeLayout = "2006-01-02 15:04:05"
	lastColumn = "I"
)

// valuesClient is the subset of the Sheets values API the mirror needs.
type valuesClient interface {
	Update(ctx context.Context, rng string, rows [][]any) error
	Append(ctx context.Context, rng string, rows [][]any) (updatedRange string, err error)
	Clear(ctx context.Context, rng string) error
}

type apiClient struct {
	srv           *sheets.Service
	spreadsheetID string
}

func (c *apiClient) Update(ctx context.Context, rng string, rows [][]any) error {
	_, err := c.srv.Spreadsheets.Values.Update(c.spreadsheetID, rng, &sheets.ValueRange{Values: rows}).
		ValueInputOption("RAW").Context(ctx).Do()
	return err
}

func (c *apiClient) Append(ctx context.Context, rng string, rows [][]any) (string, error) {
	resp, err := c.srv.Spreadsheets.Values.Append(c.spreadsheetID, rng, &sheets.ValueRange{Values: rows}).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return "", err
	}
	if resp.Updates == nil {
		return "", nil
	}
	return resp.Updates.UpdatedRange, nil
}

func (c *apiClient) Clear(ctx context.Context, rng string) error {
	_, err := c.srv.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

// SheetsService mirrors active bookings into a Google Sheet, one row per booking.
type SheetsService struct {
	client    valuesClient
	sheetName string
	logger    *zerolog.Logger

	rowCache map[int64]int
	nextRow  int
	cacheMu  sync.RWMutex

	tasks chan syncTask
}

type syncTask struct {
	op      string
	booking models.BookingWithRoom
}

// NewSheetsService authenticates with a service account credentials file.
func NewSheetsService(ctx context.Context, credentialsFile, spreadsheetID, sheetName string, logger *zerolog.Logger) (*SheetsService, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	creds, err := googleoauth.CredentialsFromJSON(ctx, data, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return newSheetsService(&apiClient{srv: srv, spreadsheetID: spreadsheetID}, sheetName, logger), nil
}

func newSheetsService(client valuesClient, sheetName string, logger *zerolog.Logger) *SheetsService {
	if sheetName == "" {
		sheetName = "Bookings"
	}
	l := logger.With().Str("component", "sheets").Logger()
	return &SheetsService{
		client:    client,
		sheetName: sheetName,
		logger:    &l,
		rowCache:  make(map[int64]int),
		nextRow:   2,
		tasks:     make(chan syncTask, 256),
	}
}

func bookingRowValues(b *models.BookingWithRoom) []any {
	return []any{
		b.ID,
		b.RoomID,
		b.RoomName,
		b.Floor,
		b.UserName,
		b.StartTime.UTC().Format(timeLayout),
		b.EndTime.UTC().Format(timeLayout),
		b.Status,
		b.CreatedAt.UTC().Format(timeLayout),
	}
}

var rowPattern = regexp.MustCompile(`![A-Z]+(\d+)`)

// parseRowFromRange extracts the first row number from an A1 range like "Bookings!A5:I5".
func parseRowFromRange(rng string) (int, bool) {
	m := rowPattern.FindStringSubmatch(rng)
	if len(m) != 2 {
		return 0, false
	}
	row, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return row, true
}

func (s *SheetsService) rowRange(row int) string {
	return fmt.Sprintf("%s!A%d:%s%d", s.sheetName, row, lastColumn, row)
}

func (s *SheetsService) getCachedRow(bookingID int64) (int, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	row, ok := s.rowCache[bookingID]
	return row, ok
}

func (s *SheetsService) setCachedRow(bookingID int64, row int) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache[bookingID] = row
	if row >= s.nextRow {
		s.nextRow = row + 1
	}
}

func (s *SheetsService) deleteCacheRow(bookingID int64) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	delete(s.rowCache, bookingID)
}

// ClearCache forgets every known booking row.
func (s *SheetsService) ClearCache() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache = make(map[int64]int)
	s.nextRow = 2
}

// ReplaceAll rewrites the sheet with the header and the given bookings.
func (s *SheetsService) ReplaceAll(ctx context.Context, bookings []models.BookingWithRoom) error {
	if err := s.client.Clear(ctx, fmt.Sprintf("%s!A:%s", s.sheetName, lastColumn)); err != nil {
		return fmt.Errorf("clear sheet: %w", err)
	}

	rows := make([][]any, 0, len(bookings)+1)
	rows = append(rows, SheetHeader)
	for i := range bookings {
		rows = append(rows, bookingRowValues(&bookings[i]))
	}

	rng := fmt.Sprintf("%s!A1:%s%d", s.sheetName, lastColumn, len(rows))
	if err := s.client.Update(ctx, rng, rows); err != nil {
		return fmt.Errorf("write sheet: %w", err)
	}

	s.ClearCache()
	for i := range bookings {
		s.setCachedRow(bookings[i].ID, i+2)
	}

	s.logger.Info().Int("rows", len(bookings)).Msg("Sheet rebuilt")
	return nil
}

// AppendBooking adds a booking row and remembers where it landed.
func (s *SheetsService) AppendBooking(ctx context.Context, b *models.BookingWithRoom) error {
	if row, ok := s.getCachedRow(b.ID); ok {
		return s.client.Update(ctx, s.rowRange(row), [][]any{bookingRowValues(b)})
	}

	updated, err := s.client.Append(ctx, fmt.Sprintf("%s!A:%s", s.sheetName, lastColumn), [][]any{bookingRowValues(b)})
	if err != nil {
		return fmt.Errorf("append booking %d: %w", b.ID, err)
	}

	if row, ok := parseRowFromRange(updated); ok {
		s.setCachedRow(b.ID, row)
	}
	return nil
}

// RemoveBooking clears the booking's row. Unknown bookings are ignored.
func (s *SheetsService) RemoveBooking(ctx context.Context, bookingID int64) error {
	row, ok := s.getCachedRow(bookingID)
	if !ok {
		s.logger.Debug().Int64("booking_id", bookingID).Msg("Booking row not cached, nothing to clear")
		return nil
	}

	if err := s.client.Clear(ctx, s.rowRange(row)); err != nil {
		return fmt.Errorf("clear booking %d: %w", bookingID, err)
	}
	s.deleteCacheRow(bookingID)
	return nil
}

// Subscribe queues booking events for the background sync loop.
func (s *SheetsService) Subscribe(bus *events.EventBus) {
	enqueue := func(op string) events.EventHandler {
		return func(ev events.Event) error {
			b, err := events.DecodeBooking(ev)
			if err != nil {
				return err
			}
			select {
			case s.tasks <- syncTask{op: op, booking: *b}:
				return nil
			default:
				return fmt.Errorf("sheets sync queue full, dropping booking %d", b.ID)
			}
		}
	}
	bus.Subscribe(events.EventBookingCreated, enqueue("append"))
	bus.Subscribe(events.EventBookingDeleted, enqueue("remove"))
}

// Run processes queued sync tasks until ctx is done.
func (s *SheetsService) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-s.tasks:
			s.process(ctx, task)
		}
	}
}

func (s *SheetsService) process(ctx context.Context, task syncTask) {
	var err error
	switch task.op {
	case "append":
		err = s.AppendBooking(ctx, &task.booking)
	case "remove":
		err = s.RemoveBooking(ctx, task.booking.ID)
	}
	if err != nil {
		s.logger.Error().Err(err).Str("op", task.op).Int64("booking_id", task.booking.ID).Msg("Sheets sync failed")
	}
}
