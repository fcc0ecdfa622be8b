package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"roombook/internal/models"
	"roombook/internal/service"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Catalog serves room reads.
type Catalog interface {
	ListActiveRooms(ctx context.Context) ([]models.Room, error)
	ListFloors(ctx context.Context) ([]int, error)
	ListRoomsOnFloor(ctx context.Context, floor int) ([]models.Room, error)
	GetRoom(ctx context.Context, id int64) (*models.Room, error)
}

// Bookings is the booking engine as seen by the handlers.
type Bookings interface {
	CreateBooking(ctx context.Context, req service.CreateBookingRequest) (*models.Booking, error)
	GetRoomBookings(ctx context.Context, roomID int64, date time.Time) ([]models.Booking, error)
	RoomAvailability(ctx context.Context, roomID int64, date time.Time) ([]models.Interval, error)
	ListAllActiveBookings(ctx context.Context) ([]models.BookingWithRoom, error)
	ListBookingsInRange(ctx context.Context, from, to time.Time) ([]models.BookingWithRoom, error)
	DeleteBooking(ctx context.Context, id int64) (bool, error)
	ComputeStats(ctx context.Context) (*models.Stats, error)
}

// Exporter writes a bookings workbook.
type Exporter interface {
	Export(ctx context.Context, w io.Writer) (int, error)
}

// Options tunes the HTTP server.
type Options struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	RateLimit    rate.Limit
	Burst        int
	Location     *time.Location
}

// HTTPServer exposes the catalog and booking engine over JSON HTTP.
type HTTPServer struct {
	catalog  Catalog
	bookings Bookings
	exporter Exporter
	log      zerolog.Logger
	loc      *time.Location
	now      func() time.Time
	server   *http.Server
}

// NewHTTPServer wires routes and middleware. exporter may be nil to disable XLSX export.
func NewHTTPServer(opts Options, catalog Catalog, bookings Bookings, exporter Exporter, logger *zerolog.Logger) *HTTPServer {
	if opts.Location == nil {
		opts.Location = time.Local
	}

	s := &HTTPServer{
		catalog:  catalog,
		bookings: bookings,
		exporter: exporter,
		log:      logger.With().Str("component", "http").Logger(),
		loc:      opts.Location,
		now:      time.Now,
	}

	mux := http.NewServeMux()
	s.routes(mux)

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = int(opts.RateLimit) + 1
		}
		limiter = rate.NewLimiter(opts.RateLimit, burst)
	}

	handler := s.recoverer(s.requestID(s.accessLog(s.rateLimit(limiter, mux))))

	s.server = &http.Server{
		Addr:              opts.Address,
		Handler:           handler,
		ReadTimeout:       opts.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      opts.WriteTimeout,
	}
	return s
}

func (s *HTTPServer) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", s.handleHealth)

	mux.HandleFunc("GET /api/rooms", s.handleListRooms)
	mux.HandleFunc("GET /api/rooms/floors", s.handleListFloors)
	mux.HandleFunc("GET /api/rooms/floor/{floor}", s.handleRoomsOnFloor)
	mux.HandleFunc("GET /api/rooms/{id}", s.handleGetRoom)
	// A literal {id}/bookings pattern would collide with floor/{floor}.
	mux.HandleFunc("GET /api/rooms/{id}/{resource}", s.handleRoomResource)

	mux.HandleFunc("POST /api/bookings", s.handleCreateBooking)

	mux.HandleFunc("GET /api/admin/bookings", s.handleListBookings)
	mux.HandleFunc("GET /api/admin/bookings/stats", s.handleStats)
	mux.HandleFunc("GET /api/admin/bookings/range", s.handleBookingsInRange)
	mux.HandleFunc("GET /api/admin/bookings/export", s.handleExport)
	mux.HandleFunc("DELETE /api/admin/bookings/{id}", s.handleDeleteBooking)

	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
}

// Handler returns the root handler with middleware applied.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until Shutdown is called.
func (s *HTTPServer) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "OK",
		"timestamp": s.now().UTC().Format(time.RFC3339),
	})
}
