package events

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"roombook/internal/models"

	"github.com/rs/zerolog"
)

// Event types published by the booking engine.
const (
	EventBookingCreated = "booking.created"
	EventBookingDeleted = "booking.deleted"
)

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// BookingPayload is the JSON body of booking events.
type BookingPayload struct {
	Booking models.BookingWithRoom `json:"booking"`
}

// NewBookingEvent builds a booking event of the given type.
func NewBookingEvent(eventType string, booking models.BookingWithRoom) (Event, error) {
	data, err := json.Marshal(BookingPayload{Booking: booking})
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{Type: eventType, Payload: data, CreatedAt: time.Now()}, nil
}

// DecodeBooking extracts the booking from a booking event.
func DecodeBooking(event Event) (*models.BookingWithRoom, error) {
	var p BookingPayload
	if err := json.Unmarshal(event.Payload, &p); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", event.Type, err)
	}
	return &p.Booking, nil
}

// EventHandler reacts to an event.
type EventHandler func(event Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
	logger      *zerolog.Logger
}

// NewEventBus constructs an empty bus. Handler errors are logged to logger when set.
func NewEventBus(logger *zerolog.Logger) *EventBus {
	return &EventBus{
		subscribers: make(map[string][]EventHandler),
		logger:      logger,
	}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type and returns how many handlers failed.
// Handlers run synchronously; a handler that needs I/O should hand off to its own goroutine.
func (b *EventBus) Publish(event Event) int {
	if b == nil {
		return 0
	}

	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	failed := 0
	for _, handler := range handlers {
		if err := handler(event); err != nil {
			failed++
			if b.logger != nil {
				b.logger.Warn().Err(err).Str("event", event.Type).Msg("Event handler failed")
			}
		}
	}
	return failed
}
