package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"roombook/internal/api"
	"roombook/internal/audit"
	"roombook/internal/cache"
	"roombook/internal/config"
	"roombook/internal/database"
	"roombook/internal/events"
	"roombook/internal/google"
	"roombook/internal/metrics"
	"roombook/internal/notify"
	"roombook/internal/service"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	configPath := pflag.StringP("config", "c", os.Getenv("ROOMBOOK_CONFIG"), "path to config.yaml")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging.Level, cfg.Logging.Format)

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = cache.NewClient(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		defer rdb.Close()
	}
	catalogCache := cache.New(rdb, cfg.CatalogCacheTTL(), "roombook:catalog:")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog := service.NewCatalogService(db, catalogCache, &logger)
	err = config.WatchRooms(ctx, cfg.Catalog.RoomsPath, cfg.CatalogWatchInterval(), &logger, func(rooms *config.RoomsConfig) {
		if err := catalog.ApplyConfig(ctx, rooms); err != nil {
			logger.Error().Err(err).Msg("failed to apply rooms config")
			return
		}
		logger.Info().Str("rooms", rooms.String()).Msg("rooms config applied")
	})
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.Catalog.RoomsPath).Msg("load rooms config error")
	}

	bus := events.NewEventBus(&logger)
	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		metrics.SubscribeEvents(bus)
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	bookings := service.NewBookingService(db, catalog, bus, &logger)

	if cfg.Telegram.BotToken != "" {
		startTelegram(ctx, cfg, bookings, bus, &logger)
	}
	if cfg.GoogleSheets.Enabled {
		startSheets(ctx, cfg, bookings, bus, &logger)
	}

	backups := database.NewBackupService(db, database.BackupOptions{
		Enabled:       cfg.Backup.Enabled,
		Dir:           cfg.Backup.Path,
		Interval:      cfg.BackupInterval(),
		RetentionDays: cfg.Backup.RetentionDays,
	}, &logger)
	go backups.Start(ctx)

	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, catalogCache, &logger)
	if cfg.Monitoring.GRPCHealthPort > 0 {
		go startGRPCHealth(ctx, cfg.Monitoring.GRPCHealthPort, db, &logger)
	}

	exporter := audit.NewExporter(bookings, db, time.Local, &logger)
	srv := api.NewHTTPServer(api.Options{
		Address:      cfg.Server.Address,
		ReadTimeout:  cfg.ReadTimeout(),
		WriteTimeout: cfg.WriteTimeout(),
		RateLimit:    rate.Limit(cfg.RateLimit.RequestsPerSecond),
		Burst:        cfg.RateLimit.Burst,
		Location:     time.Local,
	}, catalog, bookings, exporter, &logger)

	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctxShutdown); err != nil {
			logger.Error().Err(err).Msg("http shutdown error")
		}
	}()

	logger.Info().Str("db", db.Path()).Msg("room booking service started")
	if err := srv.Start(); err != nil {
		logger.Error().Err(err).Msg("http server error")
		stop()
	}
	logger.Info().Msg("room booking service stopped")
}

func newLogger(level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if format == "json" {
		logger = zerolog.New(os.Stdout)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	return logger.Level(lvl).With().Timestamp().Logger()
}

func startTelegram(ctx context.Context, cfg *config.Config, bookings *service.BookingService, bus *events.EventBus, logger *zerolog.Logger) {
	if len(cfg.Telegram.AdminChatIDs) == 0 {
		logger.Warn().Msg("telegram token set but no admin_chat_ids; notifications disabled")
		return
	}

	bot, err := notify.NewBot(cfg.Telegram.BotToken)
	if err != nil {
		logger.Error().Err(err).Msg("telegram bot init error; notifications disabled")
		return
	}

	notifier := notify.NewTelegramNotifier(bot, notify.Options{
		ChatIDs:    cfg.Telegram.AdminChatIDs,
		MaxRetries: cfg.Telegram.MaxRetries,
		RetryDelay: cfg.TelegramRetryDelay(),
		Location:   time.Local,
	}, logger)
	notifier.Subscribe(bus)
	go notifier.Run(ctx)
	logger.Info().Str("bot", bot.Self.UserName).Int("chats", len(cfg.Telegram.AdminChatIDs)).Msg("telegram notifications enabled")

	if cfg.Telegram.DigestTime == "" {
		return
	}
	hour, minute, err := notify.ParseDigestTime(cfg.Telegram.DigestTime)
	if err != nil {
		logger.Error().Err(err).Msg("daily digest disabled")
		return
	}
	digest := notify.NewDigestScheduler(notify.DigestConfig{
		Hour:     hour,
		Minute:   minute,
		Location: time.Local,
	}, bookings, notifier, logger)
	go digest.Start(ctx)
}

func startSheets(ctx context.Context, cfg *config.Config, bookings *service.BookingService, bus *events.EventBus, logger *zerolog.Logger) {
	sheets, err := google.NewSheetsService(ctx,
		cfg.GoogleSheets.CredentialsFile,
		cfg.GoogleSheets.SpreadsheetID,
		cfg.GoogleSheets.SheetName,
		logger,
	)
	if err != nil {
		logger.Error().Err(err).Msg("google sheets init error; sync disabled")
		return
	}

	current, err := bookings.ListAllActiveBookings(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load bookings for sheets sync")
	} else if err := sheets.ReplaceAll(ctx, current); err != nil {
		logger.Error().Err(err).Msg("initial sheets sync failed")
	}

	sheets.Subscribe(bus)
	go sheets.Run(ctx)
}

func startHealthServer(ctx context.Context, port int, db *database.DB, c *cache.Cache, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := db.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if err := c.Ping(ctxPing); err != nil {
			http.Error(w, "redis not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	serve(ctx, "health", fmt.Sprintf(":%d", port), mux, logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	serve(ctx, "metrics", fmt.Sprintf(":%d", port), mux, logger)
}

func serve(ctx context.Context, name, addr string, handler http.Handler, logger *zerolog.Logger) {
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msgf("%s server error", name)
	}
}

// startGRPCHealth serves grpc.health.v1 and flips to NOT_SERVING when the database stops answering.
func startGRPCHealth(ctx context.Context, port int, db *database.DB, logger *zerolog.Logger) {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		logger.Error().Err(err).Int("port", port).Msg("grpc health listen error")
		return
	}

	srv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			status := healthpb.HealthCheckResponse_SERVING
			ctxPing, cancel := context.WithTimeout(ctx, time.Second)
			if err := db.PingContext(ctxPing); err != nil {
				status = healthpb.HealthCheckResponse_NOT_SERVING
			}
			cancel()
			hs.SetServingStatus("", status)

			select {
			case <-ctx.Done():
				hs.Shutdown()
				srv.GracefulStop()
				return
			case <-ticker.C:
			}
		}
	}()

	logger.Info().Int("port", port).Msg("grpc health server listening")
	if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		logger.Error().Err(err).Msg("grpc health server error")
	}
}
