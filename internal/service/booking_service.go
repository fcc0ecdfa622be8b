package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"roombook/internal/events"
	"roombook/internal/metrics"
	"roombook/internal/models"

	"github.com/rs/zerolog"
)

// CreateBookingRequest carries the caller-supplied booking fields.
type CreateBookingRequest struct {
	RoomID    int64
	UserName  string
	StartTime time.Time
	EndTime   time.Time
}

// BookingService is the booking engine. Creation on a room is serialized by a
// per-room lock around the storage transaction.
type BookingService struct {
	repo    BookingRepository
	catalog *CatalogService
	bus     EventPublisher
	locks   *roomLocker
	logger  *zerolog.Logger
	now     func() time.Time
}

func NewBookingService(repo BookingRepository, catalog *CatalogService, bus EventPublisher, logger *zerolog.Logger) *BookingService {
	l := logger.With().Str("component", "booking").Logger()
	return &BookingService{
		repo:    repo,
		catalog: catalog,
		bus:     bus,
		locks:   newRoomLocker(),
		logger:  &l,
		now:     time.Now,
	}
}

func (s *BookingService) validate(req *CreateBookingRequest) error {
	req.UserName = strings.TrimSpace(req.UserName)

	switch {
	case req.RoomID <= 0:
		return missingField("roomId")
	case req.UserName == "":
		return missingField("userName")
	case req.StartTime.IsZero():
		return missingField("startTime")
	case req.EndTime.IsZero():
		return missingField("endTime")
	case !req.EndTime.After(req.StartTime):
		return &ValidationError{Field: "endTime", Message: "must be after startTime"}
	}
	return nil
}

// CreateBooking books [StartTime, EndTime) on a room. It fails with ErrSlotConflict
// when the interval overlaps an active booking on the same room.
func (s *BookingService) CreateBooking(ctx context.Context, req CreateBookingRequest) (*models.Booking, error) {
	if err := s.validate(&req); err != nil {
		metrics.IncBookingCreated(metrics.StatusInvalid)
		return nil, err
	}

	booking := &models.Booking{
		RoomID:    req.RoomID,
		UserName:  req.UserName,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	}

	unlock := s.locks.Lock(req.RoomID)
	err := s.repo.CreateBooking(ctx, booking)
	unlock()

	switch {
	case errors.Is(err, ErrSlotConflict):
		metrics.IncBookingCreated(metrics.StatusConflict)
		s.logger.Info().
			Int64("room_id", req.RoomID).
			Str("user_name", req.UserName).
			Time("start", req.StartTime).
			Time("end", req.EndTime).
			Msg("Booking rejected: slot not available")
		return nil, err
	case errors.Is(err, ErrRoomNotFound):
		metrics.IncBookingCreated(metrics.StatusInvalid)
		return nil, err
	case err != nil:
		metrics.IncBookingCreated(metrics.StatusError)
		s.logger.Error().Err(err).Int64("room_id", req.RoomID).Msg("Failed to create booking")
		return nil, err
	}

	metrics.IncBookingCreated(metrics.StatusCreated)
	s.logger.Info().
		Int64("booking_id", booking.ID).
		Int64("room_id", booking.RoomID).
		Str("user_name", booking.UserName).
		Msg("Booking created")

	s.publish(ctx, events.EventBookingCreated, booking.ID, nil)
	return booking, nil
}

// publish emits a booking event. joined is looked up by id when nil.
func (s *BookingService) publish(ctx context.Context, eventType string, id int64, joined *models.BookingWithRoom) {
	if s.bus == nil {
		return
	}
	if joined == nil {
		var err error
		joined, err = s.repo.GetBooking(ctx, id)
		if err != nil || joined == nil {
			s.logger.Warn().Err(err).Int64("booking_id", id).Str("event", eventType).Msg("Skipping event: booking lookup failed")
			return
		}
	}

	ev, err := events.NewBookingEvent(eventType, *joined)
	if err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("Failed to build event")
		return
	}
	s.bus.Publish(ev)
}

// GetRoomBookings returns the room's active bookings starting on the calendar day of date.
func (s *BookingService) GetRoomBookings(ctx context.Context, roomID int64, date time.Time) ([]models.Booking, error) {
	return s.repo.GetRoomBookings(ctx, roomID, date)
}

// ListAllActiveBookings returns every active booking with room name and floor,
// newest start first, annotated with a display status.
func (s *BookingService) ListAllActiveBookings(ctx context.Context) ([]models.BookingWithRoom, error) {
	bookings, err := s.repo.ListActiveBookings(ctx)
	if err != nil {
		return nil, err
	}
	s.annotate(bookings)
	return bookings, nil
}

// ListBookingsInRange returns active bookings whose start time lies in [from, to].
func (s *BookingService) ListBookingsInRange(ctx context.Context, from, to time.Time) ([]models.BookingWithRoom, error) {
	bookings, err := s.repo.ListBookingsInRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	s.annotate(bookings)
	return bookings, nil
}

func (s *BookingService) annotate(bookings []models.BookingWithRoom) {
	now := s.now()
	for i := range bookings {
		bookings[i].DisplayStatus = bookings[i].Booking.DisplayStatus(now)
	}
}

// DeleteBooking removes a booking. Deleting an unknown id reports false, not an error.
func (s *BookingService) DeleteBooking(ctx context.Context, id int64) (bool, error) {
	removed, err := s.repo.RemoveBooking(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Int64("booking_id", id).Msg("Failed to delete booking")
		return false, err
	}
	deleted := removed != nil
	metrics.IncBookingDeleted(deleted)

	if deleted {
		s.logger.Info().Int64("booking_id", id).Msg("Booking deleted")
		s.publish(ctx, events.EventBookingDeleted, id, removed)
	}
	return deleted, nil
}

// ComputeStats aggregates the active booking set.
func (s *BookingService) ComputeStats(ctx context.Context) (*models.Stats, error) {
	return s.repo.GetStats(ctx)
}

// RoomAvailability returns the free intervals of an active room across the calendar day of date.
func (s *BookingService) RoomAvailability(ctx context.Context, roomID int64, date time.Time) ([]models.Interval, error) {
	room, err := s.catalog.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}

	dayStart, _ := models.DayBounds(date)
	dayEnd := dayStart.AddDate(0, 0, 1)

	// Bookings carried over from the previous day still occupy the morning.
	bookings, err := s.repo.ListOverlappingBookings(ctx, roomID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	return models.FreeIntervals(dayStart, dayEnd, bookings), nil
}
