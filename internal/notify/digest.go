package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"roombook/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// DigestSource lists the bookings starting inside a time window.
type DigestSource interface {
	ListBookingsInRange(ctx context.Context, from, to time.Time) ([]models.BookingWithRoom, error)
}

// DigestConfig controls when the daily digest goes out.
type DigestConfig struct {
	Hour          int
	Minute        int
	CheckInterval time.Duration
	Location      *time.Location
}

// ParseDigestTime parses "HH:MM" into hour and minute.
func ParseDigestTime(value string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid digest time %q: expected HH:MM", value)
	}
	return t.Hour(), t.Minute(), nil
}

// DigestScheduler sends the day's booking list to the admin chats once a day.
type DigestScheduler struct {
	cfg      DigestConfig
	source   DigestSource
	notifier *TelegramNotifier
	logger   *zerolog.Logger
	now      func() time.Time

	mu      sync.Mutex
	day     string
	settled map[int64]bool // chats that got today's digest or rejected it for good
}

func NewDigestScheduler(cfg DigestConfig, source DigestSource, notifier *TelegramNotifier, logger *zerolog.Logger) *DigestScheduler {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	l := logger.With().Str("component", "digest").Logger()
	return &DigestScheduler{
		cfg:      cfg,
		source:   source,
		notifier: notifier,
		logger:   &l,
		now:      time.Now,
		settled:  make(map[int64]bool),
	}
}

// Start checks the clock every CheckInterval until ctx is done.
func (s *DigestScheduler) Start(ctx context.Context) {
	s.logger.Info().
		Str("daily_time", fmt.Sprintf("%02d:%02d", s.cfg.Hour, s.cfg.Minute)).
		Str("timezone", s.cfg.Location.String()).
		Msg("Digest scheduler started")

	ticker := time.NewTicker(s.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Digest scheduler stopped")
			return
		case <-ticker.C:
			s.checkAndRun(ctx)
		}
	}
}

// checkAndRun sends the digest to every chat still pending today once the daily
// time has passed. It reports whether all chats are settled for the day.
func (s *DigestScheduler) checkAndRun(ctx context.Context) bool {
	now := s.now().In(s.cfg.Location)
	today := now.Format("2006-01-02")

	pending := s.pendingChats(today)
	if len(pending) == 0 {
		return false
	}

	due := time.Date(now.Year(), now.Month(), now.Day(), s.cfg.Hour, s.cfg.Minute, 0, 0, s.cfg.Location)
	if now.Before(due) {
		return false
	}

	settled, err := s.SendDigest(ctx, now, pending)

	s.mu.Lock()
	for _, chatID := range settled {
		s.settled[chatID] = true
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error().Err(err).Str("date", today).Int("pending", len(pending)-len(settled)).Msg("Daily digest not delivered to every chat")
	}
	return len(settled) == len(pending)
}

// pendingChats resets state on a new day and lists chats without today's digest.
func (s *DigestScheduler) pendingChats(today string) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.day != today {
		s.day = today
		s.settled = make(map[int64]bool)
	}

	var pending []int64
	for _, chatID := range s.notifier.opts.ChatIDs {
		if !s.settled[chatID] {
			pending = append(pending, chatID)
		}
	}
	return pending
}

// SendDigest sends the digest for the calendar day containing day to chatIDs.
// It returns the chats that are done for the day: delivered, or permanently
// rejected by Telegram. Failures for the others are joined into err.
func (s *DigestScheduler) SendDigest(ctx context.Context, day time.Time, chatIDs []int64) (settled []int64, err error) {
	from, to := models.DayBounds(day.In(s.cfg.Location))
	bookings, err := s.source.ListBookingsInRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	text := FormatDigest(from, bookings, s.cfg.Location)

	var errs []error
	for _, chatID := range chatIDs {
		sendErr := s.notifier.Send(ctx, tgbotapi.NewMessage(chatID, text))
		switch {
		case sendErr == nil:
			settled = append(settled, chatID)
		case IsRejected(sendErr):
			s.logger.Warn().Err(sendErr).Int64("chat_id", chatID).Msg("Chat rejected daily digest; skipping until tomorrow")
			settled = append(settled, chatID)
		default:
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, sendErr))
		}
	}

	s.logger.Info().
		Int("bookings", len(bookings)).
		Int("chats", len(settled)).
		Str("date", from.Format("2006-01-02")).
		Msg("Daily digest sent")
	return settled, errors.Join(errs...)
}

// FormatDigest renders a day's bookings in start order.
func FormatDigest(day time.Time, bookings []models.BookingWithRoom, loc *time.Location) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Bookings for %s: %d\n", day.Format("2006-01-02"), len(bookings))
	if len(bookings) == 0 {
		sb.WriteString("No bookings today.")
		return sb.String()
	}

	// Range queries return newest first.
	for i := len(bookings) - 1; i >= 0; i-- {
		b := bookings[i]
		fmt.Fprintf(&sb, "\n%s-%s %s (floor %d): %s",
			b.StartTime.In(loc).Format("15:04"),
			b.EndTime.In(loc).Format("15:04"),
			b.RoomName, b.Floor, b.UserName)
	}
	return sb.String()
}
