package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/nudge-api/internal/config"
	"github.com/phrazzld/nudge-api/internal/events"
	"github.com/phrazzld/nudge-api/internal/gateway"
	"github.com/phrazzld/nudge-api/internal/metrics"
	"github.com/phrazzld/nudge-api/internal/notify"
	"github.com/phrazzld/nudge-api/internal/platform/gemini"
	"github.com/phrazzld/nudge-api/internal/platform/postgres"
	"github.com/phrazzld/nudge-api/internal/service"
	"github.com/phrazzld/nudge-api/internal/service/auth"
	"github.com/phrazzld/nudge-api/internal/stats"
	"github.com/phrazzld/nudge-api/internal/store"
	"github.com/phrazzld/nudge-api/internal/task"
	"github.com/phrazzld/nudge-api/internal/tracing"
	"github.com/prometheus/client_golang/prometheus"
)

// application holds the shared dependencies of the server and releases them
// on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	taskStore   store.TaskStore
	targetStore store.TargetStore
	recordStore store.RecordStore
	tokenStore  store.TokenStore

	jwtService  auth.JWTService
	taskService service.TaskService
	aggregator  *stats.Aggregator

	registry  *task.Registry
	scheduler *task.Scheduler
	trigger   *dueTrigger

	emitter   *events.OutcomeEmitter
	publisher *events.NSQPublisher

	metrics         *prometheus.Registry
	shutdownTracing func(context.Context) error
}

// newApplication wires stores, gateways, senders, strategies and services.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.shutdownTracing, err = tracing.InitTracing(ctx, cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	app.metrics = prometheus.NewRegistry()
	metrics.MustRegister(app.metrics)

	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	app.taskStore = postgres.NewPostgresTaskStore(db, logger)
	app.targetStore = postgres.NewPostgresTargetStore(db, logger)
	app.recordStore = postgres.NewPostgresRecordStore(db, logger)
	app.tokenStore = postgres.NewPostgresTokenStore(db, logger)

	app.emitter = events.NewOutcomeEmitter(logger)
	if cfg.Events.Enabled {
		app.publisher, err = events.NewNSQPublisher(cfg.Events.NSQDAddr, cfg.Events.Topic, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize event publisher: %w", err)
		}
		app.emitter.RegisterHandler(app.publisher)
		logger.Info("publishing task outcomes", "topic", cfg.Events.Topic)
	}

	analyzer, err := gemini.NewAnalyzer(ctx, logger, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize analyzer: %w", err)
	}

	app.registry, err = task.NewRegistry(
		task.NewReminderStrategy(app.targetStore, app.setupSenders(), nil, cfg.Scheduler.SendTimeout, logger),
		task.NewContentAnalysisStrategy(analyzer, app.recordStore, cfg.Scheduler.AnalysisTimeout, logger),
		task.NewMediaStrategy(app.setupFiles(), analyzer, app.recordStore, cfg.Scheduler.AnalysisTimeout, logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build strategy registry: %w", err)
	}
	if err := app.registry.Validate(); err != nil {
		return nil, fmt.Errorf("incomplete strategy registry: %w", err)
	}

	executor := task.NewExecutor(app.taskStore, app.registry, logger, task.WithEmitter(app.emitter))
	app.scheduler = task.NewScheduler(app.taskStore, executor, task.SchedulerConfig{
		Concurrency: cfg.Scheduler.Concurrency,
		BatchSize:   cfg.Scheduler.BatchSize,
	}, logger)

	app.taskService, err = service.NewTaskService(app.taskStore, app.registry, app.emitter, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}
	app.aggregator = stats.NewAggregator(app.taskStore, app.recordStore, cfg.Scheduler.StaleAfter, logger)

	app.trigger, err = newDueTrigger(app.scheduler, cfg.Scheduler.Interval, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler trigger: %w", err)
	}

	return app, nil
}

// setupSenders registers a sender per enabled channel. Channels left out
// produce "channel not configured" notes on reminders.
func (app *application) setupSenders() *notify.Registry {
	var senders []notify.Sender
	if app.config.Mail.Enabled {
		gmail := gateway.NewTokenGateway(gateway.ProviderGmail, app.config.Mail.BaseURL,
			app.config.Mail.OAuth, app.tokenStore, app.logger)
		senders = append(senders, notify.NewEmailSender(gmail, app.config.Mail.From, app.logger))
	}
	if app.config.Messaging.Enabled {
		senders = append(senders, notify.NewMessagingSender(app.config.Messaging, nil, app.logger))
	}
	app.logger.Info("notification senders configured", "count", len(senders))
	return notify.NewRegistry(senders...)
}

func (app *application) setupFiles() task.FileFetcher {
	if !app.config.Files.Enabled {
		return filesDisabled{}
	}
	drive := gateway.NewTokenGateway(gateway.ProviderDrive, app.config.Files.BaseURL,
		app.config.Files.OAuth, app.tokenStore, app.logger)
	return gateway.NewDriveFiles(drive)
}

// filesDisabled rejects every fetch as if no owner had connected a file provider.
type filesDisabled struct{}

func (filesDisabled) Fetch(context.Context, *gateway.Session, uuid.UUID, string) (*gateway.File, error) {
	return nil, fmt.Errorf("%w: file access disabled", gateway.ErrUnauthenticated)
}

// Run serves HTTP and runs the timer trigger until ctx is cancelled.
func (app *application) Run(ctx context.Context) error {
	app.trigger.Start()
	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup stops background work and flushes exporters. The database is
// closed by the caller that opened it.
func (app *application) cleanup() {
	if app.trigger != nil {
		if err := app.trigger.Stop(); err != nil {
			app.logger.Error("error stopping scheduler trigger", "error", err)
		}
	}
	if app.publisher != nil {
		app.publisher.Stop()
	}
	if app.shutdownTracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
		defer cancel()
		if err := app.shutdownTracing(ctx); err != nil {
			app.logger.Error("error flushing traces", "error", err)
		}
	}
	app.logger.Info("application shutdown completed")
}
