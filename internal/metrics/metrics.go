package metrics

import (
	"sync"

	"roombook/internal/events"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "roombook"

var (
	once sync.Once

	bookingCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_created_total",
			Help:      "Count of booking creation attempts by outcome.",
		},
		[]string{"status"},
	)

	bookingDeleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_deleted_total",
			Help:      "Count of booking deletions by result.",
		},
		[]string{"result"},
	)

	eventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Count of domain events published on the bus.",
		},
		[]string{"type"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Count of HTTP requests by route and status code.",
		},
		[]string{"route", "code"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"route"},
	)

	notificationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_sent_total",
			Help:      "Count of outbound notifications by channel and status.",
		},
		[]string{"channel", "status"},
	)
)

// Booking creation outcomes.
const (
	StatusCreated  = "created"
	StatusConflict = "conflict"
	StatusInvalid  = "invalid"
	StatusError    = "error"
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			bookingCreated,
			bookingDeleted,
			eventsPublished,
			httpRequests,
			httpDuration,
			notificationsSent,
		)
	})
}

func IncBookingCreated(status string) {
	bookingCreated.WithLabelValues(status).Inc()
}

func IncBookingDeleted(deleted bool) {
	result := "missing"
	if deleted {
		result = "deleted"
	}
	bookingDeleted.WithLabelValues(result).Inc()
}

func ObserveHTTPRequest(route, code string, seconds float64) {
	httpRequests.WithLabelValues(route, code).Inc()
	httpDuration.WithLabelValues(route).Observe(seconds)
}

func IncNotificationSent(channel, status string) {
	notificationsSent.WithLabelValues(channel, status).Inc()
}

// SubscribeEvents counts booking events published on bus.
func SubscribeEvents(bus *events.EventBus) {
	for _, t := range []string{events.EventBookingCreated, events.EventBookingDeleted} {
		bus.Subscribe(t, func(ev events.Event) error {
			eventsPublished.WithLabelValues(ev.Type).Inc()
			return nil
		})
	}
}
