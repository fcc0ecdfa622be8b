package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"roombook/internal/events"
	"roombook/internal/metrics"
	"roombook/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Sender delivers Telegram messages; *tgbotapi.BotAPI satisfies it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Options configures the notifier.
type Options struct {
	ChatIDs    []int64
	Rate       rate.Limit
	Burst      int
	MaxRetries int
	RetryDelay time.Duration
	Location   *time.Location
}

// DefaultMaxRetries applies when Options.MaxRetries is zero. A negative value disables retries.
const DefaultMaxRetries = 3

// IsRejected reports whether Telegram refused a message for good (400 or 403),
// as opposed to a failure worth retrying.
func IsRejected(err error) bool {
	var ptr *tgbotapi.Error
	if errors.As(err, &ptr) {
		return ptr.Code == 400 || ptr.Code == 403
	}
	var val tgbotapi.Error
	if errors.As(err, &val) {
		return val.Code == 400 || val.Code == 403
	}
	return false
}

// TelegramNotifier posts booking events to admin chats.
type TelegramNotifier struct {
	sender  Sender
	opts    Options
	limiter *rate.Limiter
	queue   chan tgbotapi.MessageConfig
	logger  *zerolog.Logger
}

// NewBot connects to the Telegram Bot API.
func NewBot(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return bot, nil
}

func NewTelegramNotifier(sender Sender, opts Options, logger *zerolog.Logger) *TelegramNotifier {
	if opts.Rate <= 0 {
		// Telegram allows about one message per second per chat.
		opts.Rate = rate.Limit(1)
	}
	if opts.Burst <= 0 {
		opts.Burst = 5
	}
	switch {
	case opts.MaxRetries == 0:
		opts.MaxRetries = DefaultMaxRetries
	case opts.MaxRetries < 0:
		opts.MaxRetries = 0
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	l := logger.With().Str("component", "telegram").Logger()
	return &TelegramNotifier{
		sender:  sender,
		opts:    opts,
		limiter: rate.NewLimiter(opts.Rate, opts.Burst),
		queue:   make(chan tgbotapi.MessageConfig, 128),
		logger:  &l,
	}
}

// FormatBooking renders a booking event as a plain-text message.
func FormatBooking(eventType string, b *models.BookingWithRoom, loc *time.Location) string {
	var title string
	switch eventType {
	case events.EventBookingCreated:
		title = "New booking"
	case events.EventBookingDeleted:
		title = "Booking cancelled"
	default:
		title = eventType
	}

	start := b.StartTime.In(loc)
	end := b.EndTime.In(loc)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s #%d\n", title, b.ID)
	fmt.Fprintf(&sb, "Room: %s (floor %d)\n", b.RoomName, b.Floor)
	fmt.Fprintf(&sb, "User: %s\n", b.UserName)
	fmt.Fprintf(&sb, "Time: %s %s-%s", start.Format("2006-01-02"), start.Format("15:04"), end.Format("15:04"))
	return sb.String()
}

// Subscribe queues a message for every booking event.
func (n *TelegramNotifier) Subscribe(bus *events.EventBus) {
	handler := func(ev events.Event) error {
		b, err := events.DecodeBooking(ev)
		if err != nil {
			return err
		}
		text := FormatBooking(ev.Type, b, n.opts.Location)
		for _, chatID := range n.opts.ChatIDs {
			select {
			case n.queue <- tgbotapi.NewMessage(chatID, text):
			default:
				metrics.IncNotificationSent("telegram", "dropped")
				return fmt.Errorf("telegram queue full, dropping message for chat %d", chatID)
			}
		}
		return nil
	}
	bus.Subscribe(events.EventBookingCreated, handler)
	bus.Subscribe(events.EventBookingDeleted, handler)
}

// Run sends queued messages until ctx is done.
func (n *TelegramNotifier) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-n.queue:
			if err := n.Send(ctx, msg); err != nil && !errors.Is(err, context.Canceled) {
				n.logger.Error().Err(err).Int64("chat_id", msg.ChatID).Msg("Telegram send failed")
			}
		}
	}
}

// Send delivers one message, honoring the rate limit and Telegram's retry_after hints.
func (n *TelegramNotifier) Send(ctx context.Context, msg tgbotapi.MessageConfig) error {
	var lastErr error
	for attempt := 0; attempt <= n.opts.MaxRetries; attempt++ {
		if err := n.limiter.Wait(ctx); err != nil {
			return err
		}

		_, err := n.sender.Send(msg)
		if err == nil {
			metrics.IncNotificationSent("telegram", "sent")
			return nil
		}
		lastErr = err

		if IsRejected(err) {
			metrics.IncNotificationSent("telegram", "rejected")
			return err
		}
		delay := n.opts.RetryDelay
		var tgErr *tgbotapi.Error
		if errors.As(err, &tgErr) && tgErr.Code == 429 && tgErr.RetryAfter > 0 {
			delay = time.Duration(tgErr.RetryAfter) * time.Second
		}

		if attempt == n.opts.MaxRetries {
			break
		}
		n.logger.Warn().Err(err).Int("attempt", attempt+1).Dur("delay", delay).Msg("Retrying telegram send")
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	metrics.IncNotificationSent("telegram", "failed")
	return fmt.Errorf("send to chat %d: %w", msg.ChatID, lastErr)
}
