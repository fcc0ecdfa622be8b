package service

import (
	"context"
	"time"

	"roombook/internal/config"
	"roombook/internal/events"
	"roombook/internal/models"
)

type CatalogRepository interface {
	ListActiveRooms(ctx context.Context) ([]models.Room, error)
	ListFloors(ctx context.Context) ([]int, error)
	ListRoomsOnFloor(ctx context.Context, floor int) ([]models.Room, error)
	GetRoom(ctx context.Context, id int64) (*models.Room, error)
	SyncRoomsFromConfig(ctx context.Context, cfg *config.RoomsConfig) error
}

type BookingRepository interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id int64) (*models.BookingWithRoom, error)
	GetRoomBookings(ctx context.Context, roomID int64, date time.Time) ([]models.Booking, error)
	ListActiveBookings(ctx context.Context) ([]models.BookingWithRoom, error)
	ListBookingsInRange(ctx context.Context, from, to time.Time) ([]models.BookingWithRoom, error)
	ListOverlappingBookings(ctx context.Context, roomID int64, from, to time.Time) ([]models.Booking, error)
	RemoveBooking(ctx context.Context, id int64) (*models.BookingWithRoom, error)
	GetStats(ctx context.Context) (*models.Stats, error)
}

type EventPublisher interface {
	Publish(event events.Event) int
}
