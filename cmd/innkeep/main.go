package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"innkeep/internal/app/commands"
	bookingapp "innkeep/internal/app/handlers/booking"
	calendarapp "innkeep/internal/app/handlers/calendar"
	quoteapp "innkeep/internal/app/handlers/quote"
	"innkeep/internal/app/handlers/support"
	"innkeep/internal/app/middleware"
	"innkeep/internal/app/outbox"
	"innkeep/internal/app/policies"
	"innkeep/internal/app/queries"
	"innkeep/internal/app/validation"
	"innkeep/internal/app/window"
	"innkeep/internal/domain/occupancy"
	"innkeep/internal/domain/pricing"
	"innkeep/internal/domain/reservation"
	"innkeep/internal/infra/bookingapi"
	"innkeep/internal/infra/broker/kafka"
	"innkeep/internal/infra/config"
	mongodb "innkeep/internal/infra/db/mongo"
	ginserver "innkeep/internal/infra/http/gin"
	"innkeep/internal/infra/inbox"
	"innkeep/internal/infra/obs"
	infraoutbox "innkeep/internal/infra/outbox"
	"innkeep/internal/infra/storage/memory"
	redisstore "innkeep/internal/infra/storage/redis"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		obs.NewLogger("dev", "info").Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer app.close(logger)

	server := ginserver.NewServer(cfg.HTTPAddr, cfg.Env, obs.Middleware{Logger: logger, GuestHeader: ginserver.GuestHeader}, app.health, app.handlers)

	var wg sync.WaitGroup
	for name, run := range app.background {
		wg.Add(1)
		go func(name string, run func(context.Context) error) {
			defer wg.Done()
			if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("background task stopped", "task", name, "error", err)
			}
		}(name, run)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		stop()
	}
	wg.Wait()
	app.cache.Wait()
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers   ginserver.Handlers
	health     obs.HealthHandlers
	cache      *window.Cache
	background map[string]func(context.Context) error
	closers    []func(context.Context) error
}

func (a application) close(logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}
}

type stores struct {
	queue       infraoutbox.Queue
	sink        outbox.Sink
	idempotency middleware.IdempotencyStore
	inbox       policies.Inbox
	preferences policies.PreferenceStore
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (application, error) {
	loc, err := cfg.Location()
	if err != nil {
		return application{}, err
	}
	app := application{
		background: map[string]func(context.Context) error{},
		health:     obs.HealthHandlers{Checks: map[string]obs.Pinger{}},
	}

	st, err := app.openStores(ctx, cfg, logger)
	if err != nil {
		app.close(logger)
		return application{}, err
	}

	client := bookingapi.New(cfg.BookingAPIURL, nil, bookingapi.Options{
		Timeout:            cfg.BookingAPITimeout,
		Backoff:            cfg.RetryBackoff,
		BreakerMaxFailures: cfg.BreakerMaxFailures,
		BreakerOpenTimeout: cfg.BreakerOpenTimeout,
		Location:           loc,
		Logger:             logger,
	})
	app.cache = window.New(func(ctx context.Context, key window.Key) ([]reservation.Reservation, error) {
		return client.GetReservationsInRange(ctx, key.Property, key.Start, key.End)
	}, window.WithTTL(cfg.WindowCacheTTL), window.WithLogger(logger))

	loader := support.Loader{Port: client, Cache: app.cache}
	settings := support.Settings{
		MaxNights:  cfg.MaxNights,
		Hours:      occupancy.Hours{Open: cfg.VenueOpen, Close: cfg.VenueClose, Step: cfg.VenueSlotStep},
		Calculator: pricing.NewCalculator(cfg.SeniorPWDPercent, cfg.Currency),
		Location:   loc,
	}
	clock := policies.SystemClock{Location: loc}
	box := outbox.NewBuffered(st.sink)

	v, err := validation.New()
	if err != nil {
		app.close(logger)
		return application{}, err
	}

	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler(commandBus, calendarapp.ApplySelectionCommand{}.Key(), &calendarapp.ApplySelectionHandler{
		Loader:      loader,
		Preferences: st.preferences,
		Settings:    settings,
		Clock:       clock,
		Logger:      logger,
	})
	commands.RegisterHandler(commandBus, bookingapp.CommitRangeCommand{}.Key(), &bookingapp.CommitRangeHandler{
		Loader:      loader,
		Settings:    settings,
		Outbox:      box,
		Encoder:     outbox.JSONEventEncoder{},
		Notifier:    outbox.Notifier{Outbox: box},
		Preferences: st.preferences,
		Clock:       clock,
		Logger:      logger,
	})
	commands.RegisterHandler(commandBus, calendarapp.InvalidateWindowsCommand{}.Key(), &calendarapp.InvalidateWindowsHandler{
		Cache:  app.cache,
		Inbox:  st.inbox,
		Logger: logger,
	})

	logger.Debug("command bus ready", "commands", commandBus.Keys())

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, calendarapp.GetCalendarQuery{}.Key(), &calendarapp.GetCalendarHandler{
		Loader:      loader,
		Preferences: st.preferences,
		Settings:    settings,
		Clock:       clock,
		Logger:      logger,
	})
	queries.RegisterHandler(queryBus, calendarapp.ListVenueSlotsQuery{}.Key(), &calendarapp.ListVenueSlotsHandler{
		Loader:   loader,
		Settings: settings,
		Clock:    clock,
	})
	queries.RegisterHandler(queryBus, quoteapp.GetQuoteQuery{}.Key(), &quoteapp.GetQuoteHandler{
		Loader:   loader,
		Settings: settings,
		Clock:    clock,
	})

	commandBusWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.CommandLogging(logger),
		middleware.Validation(v),
		middleware.RequireGuest(),
		middleware.Idempotency(st.idempotency, nil),
		middleware.OutboxFlush(box),
	)
	queryBusWithMiddleware := middleware.ChainQueries(
		queryBus,
		middleware.QueryLogging(logger),
		middleware.QueryValidation(v),
	)

	app.handlers = ginserver.Handlers{
		Calendar: ginserver.CalendarHandler{Queries: queryBusWithMiddleware, Commands: commandBusWithMiddleware, Location: loc},
		Booking:  ginserver.BookingHandler{Commands: commandBusWithMiddleware, Location: loc},
	}

	if err := app.startMessaging(cfg, st, commandBusWithMiddleware, logger); err != nil {
		app.close(logger)
		return application{}, err
	}
	return app, nil
}

// openStores picks Mongo and Redis adapters when configured and in-memory ones otherwise.
func (a *application) openStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (stores, error) {
	var st stores
	if cfg.MongoEnabled() {
		client, err := mongodb.New(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return stores{}, fmt.Errorf("connect mongo: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		a.health.Checks["mongo"] = client

		outboxStore, err := infraoutbox.NewStore(ctx, client.DB)
		if err != nil {
			return stores{}, fmt.Errorf("outbox store: %w", err)
		}
		idem, err := mongodb.NewIdempotencyStore(ctx, client.DB, cfg.IdempotencyTTL)
		if err != nil {
			return stores{}, fmt.Errorf("idempotency store: %w", err)
		}
		in, err := inbox.NewStore(ctx, client.DB, cfg.ConsumerGroup(), cfg.InboxTTL)
		if err != nil {
			return stores{}, fmt.Errorf("inbox store: %w", err)
		}
		st.queue, st.sink, st.idempotency, st.inbox = outboxStore, outboxStore, idem, in
		logger.Info("mongo storage enabled", "db", cfg.MongoDB)
	} else {
		mem := memory.NewOutbox()
		st.queue, st.sink = mem, mem
		st.idempotency = memory.NewIdempotencyStore(cfg.IdempotencyTTL)
		st.inbox = memory.NewInbox()
		logger.Info("mongo not configured, using in-memory storage")
	}

	if cfg.RedisEnabled() {
		prefs := redisstore.NewPreferenceStore(redisstore.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB), cfg.RedisPreferenceTTL)
		a.closers = append(a.closers, func(context.Context) error { return prefs.Client.Close() })
		a.health.Checks["redis"] = prefs
		st.preferences = prefs
	} else {
		st.preferences = memory.NewPreferenceStore()
	}
	return st, nil
}

// startMessaging registers the outbox worker and, with Kafka configured, the
// reservation change feed consumer.
func (a *application) startMessaging(cfg config.Config, st stores, bus commands.Bus, logger *slog.Logger) error {
	var producer infraoutbox.Producer = infraoutbox.LogProducer{Logger: logger}
	if cfg.KafkaEnabled() {
		p, err := kafka.NewProducer(cfg.KafkaBrokers, "innkeep", nil)
		if err != nil {
			return fmt.Errorf("kafka producer: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return p.Close() })
		producer = p
	}
	worker := &infraoutbox.Worker{
		Queue:       st.queue,
		Producer:    producer,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Backoff:     cfg.RetryBackoff,
		MaxAttempts: cfg.OutboxMaxAttempts,
		Logger:      logger,
	}
	a.background["outbox"] = worker.Run

	if !cfg.KafkaEnabled() || !cfg.ReservationFeed {
		return nil
	}
	consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.ConsumerGroup(), nil, kafka.ReservationEventHandler{Commands: bus}, logger)
	if err != nil {
		return fmt.Errorf("kafka consumer: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return consumer.Close() })
	topic := cfg.KafkaTopicPrefix + cfg.ReservationTopic
	logger.Info("reservation feed enabled", "topic", topic, "group", cfg.ConsumerGroup())
	a.background["reservation-feed"] = func(ctx context.Context) error {
		return consumer.Run(ctx, []string{topic})
	}
	return nil
}
