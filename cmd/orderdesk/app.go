package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/vaidashi/order-status-sync/internal/config"
	"github.com/vaidashi/order-status-sync/internal/database"
	"github.com/vaidashi/order-status-sync/internal/docstore"
	"github.com/vaidashi/order-status-sync/internal/events"
	"github.com/vaidashi/order-status-sync/internal/feed"
	"github.com/vaidashi/order-status-sync/internal/models"
	"github.com/vaidashi/order-status-sync/internal/outbox"
	"github.com/vaidashi/order-status-sync/internal/repository"
	"github.com/vaidashi/order-status-sync/internal/service"
	"github.com/vaidashi/order-status-sync/internal/session"
	"github.com/vaidashi/order-status-sync/internal/telemetry"
	"github.com/vaidashi/order-status-sync/pkg/circuitbreaker"
	"github.com/vaidashi/order-status-sync/pkg/kafka"
	"github.com/vaidashi/order-status-sync/pkg/logger"
	"github.com/vaidashi/order-status-sync/pkg/retry"
)

const (
	serveConnectAttempts = 5
	cliConnectAttempts   = 1
)

// app is the wired object graph shared by serve and the one-shot commands
type app struct {
	cfg       *config.Config
	log       logger.Logger
	db        *database.Database
	store     docstore.Client
	orders    *repository.OrderRepository
	tracking  *repository.TrackingRepository
	outbox    *repository.OutboxRepository
	telemetry *telemetry.Provider
	feedStats *telemetry.FeedMetrics
	statStats *telemetry.StatusMetrics
	publisher *events.KafkaPublisher
}

func newApp(ctx context.Context, cfg *config.Config, log logger.Logger, connectAttempts int, withEvents bool) (*app, error) {
	a := &app{cfg: cfg, log: log}

	if err := a.openStore(ctx, connectAttempts); err != nil {
		return nil, err
	}

	a.orders = repository.NewOrderRepository(a.store, cfg.Feed.QueryLimit, log)
	a.tracking = repository.NewTrackingRepository(a.store, log)
	a.outbox = repository.NewOutboxRepository(a.store, log)

	provider, err := telemetry.NewProvider(cfg.Metrics.Enabled)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.telemetry = provider

	if a.feedStats, err = telemetry.NewFeedMetrics(provider.MeterProvider); err != nil {
		a.Close(ctx)
		return nil, err
	}
	if a.statStats, err = telemetry.NewStatusMetrics(provider.MeterProvider); err != nil {
		a.Close(ctx)
		return nil, err
	}

	if withEvents {
		a.openPublisher()
	}

	return a, nil
}

func (a *app) openStore(ctx context.Context, attempts int) error {
	if a.cfg.DB.Driver == config.DriverMemory {
		a.log.Warn("Using the in-memory document store, data is lost on exit")
		a.store = docstore.NewMemoryStore()
		return nil
	}

	err := retry.Retry(ctx, func() error {
		db, err := database.New(a.cfg, a.log)
		if err != nil {
			return err
		}
		a.db = db
		return nil
	}, &retry.RetryConfig{
		MaxAttempts:     attempts,
		BackoffStrategy: retry.NewDefaultExponentialBackoff(),
		Logger:          a.log,
	})
	if err != nil {
		return fmt.Errorf("failed to open document store: %w", err)
	}

	if err := a.db.RunMigrations(); err != nil {
		a.db.Close()
		return err
	}

	a.store = docstore.NewSQLStore(a.db, a.log)
	return nil
}

// openPublisher connects to Kafka when brokers are configured. A broker that
// cannot be reached only disables publishing.
func (a *app) openPublisher() {
	if len(a.cfg.Kafka.Brokers) == 0 {
		a.log.Info("No Kafka brokers configured, status events are not published")
		return
	}

	producer, err := kafka.NewProducer(a.cfg.Kafka.Brokers, a.log)
	if err != nil {
		a.log.Error("Failed to create Kafka producer, status events are not published", "error", err)
		return
	}

	breaker := circuitbreaker.NewCircuitBreaker(circuitbreaker.CircuitBreakerConfig{
		FailureThreshold: 3,
		ResetTimeout:     30 * time.Second,
		HalfOpenMaxCalls: 1,
	})
	a.publisher = events.NewKafkaPublisher(producer, a.cfg.Kafka.StatusTopic, a.log, events.WithBreaker(breaker))
}

// newFeed builds one polling feed per signed-in operator
func (a *app) newFeed() session.Feed {
	return feed.New(a.orders, a.cfg.Feed.PollInterval, a.log, feed.WithMetrics(a.feedStats))
}

// statusService wires the transition engine with the given notifier. Status
// events go to the outbox; the serve process delivers them.
func (a *app) statusService(notifier service.Notifier) *service.StatusService {
	return service.NewStatusService(a.orders, a.tracking, a.log,
		service.WithNotifier(notifier),
		service.WithMetrics(a.statStats),
		service.WithPublisher(outbox.NewPublisher(a.outbox)),
	)
}

// outboxProcessor delivers status events to Kafka, or to the log when no
// producer is available
func (a *app) outboxProcessor() *outbox.Processor {
	processor := outbox.NewProcessor(a.outbox, outbox.ProcessorConfig{
		PollingInterval: a.cfg.Outbox.PollInterval,
		BatchSize:       a.cfg.Outbox.BatchSize,
		MaxAttempts:     a.cfg.Outbox.MaxAttempts,
	}, a.log)

	var handler outbox.MessageHandler = outbox.NewLoggingHandler(a.log)
	if a.publisher != nil {
		handler = outbox.NewKafkaHandler(a.publisher)
	}
	processor.RegisterHandler(models.EventTypeStatusChanged, handler)

	return processor
}

// Close releases everything newApp opened
func (a *app) Close(ctx context.Context) {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Error("Error closing Kafka producer", "error", err)
		}
	}

	if a.telemetry != nil {
		if err := a.telemetry.Shutdown(ctx); err != nil {
			a.log.Error("Error shutting down metrics", "error", err)
		}
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Error("Error closing database connection", "error", err)
		}
	}
}

// printNotifier shows confirmation messages on the terminal
type printNotifier struct {
	w io.Writer
}

func (n printNotifier) Post(message string) {
	fmt.Fprintln(n.w, color.New(color.FgGreen).Sprint(message))
}
