package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bsm/redislock"

	"github.com/artur-silva-empresa/Texdex/internal/api"
	"github.com/artur-silva-empresa/Texdex/internal/application"
	"github.com/artur-silva-empresa/Texdex/internal/auth"
	"github.com/artur-silva-empresa/Texdex/internal/domain"
	"github.com/artur-silva-empresa/Texdex/internal/infrastructure/events"
	"github.com/artur-silva-empresa/Texdex/internal/infrastructure/export"
	mongoRepo "github.com/artur-silva-empresa/Texdex/internal/infrastructure/mongodb"
	"github.com/artur-silva-empresa/Texdex/internal/infrastructure/redis"
	"github.com/artur-silva-empresa/Texdex/internal/ingest"
	"github.com/artur-silva-empresa/Texdex/internal/realtime"
	"github.com/artur-silva-empresa/Texdex/pkg/cloudevents"
	"github.com/artur-silva-empresa/Texdex/pkg/kafka"
	"github.com/artur-silva-empresa/Texdex/pkg/logging"
	"github.com/artur-silva-empresa/Texdex/pkg/metrics"
	"github.com/artur-silva-empresa/Texdex/pkg/mongodb"
	"github.com/artur-silva-empresa/Texdex/pkg/tracing"
)

const serviceName = "texflow-api"

func main() {
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.ParseLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting texflow API")

	config, err := loadConfig()
	if err != nil {
		logger.WithError(err).Error("Invalid configuration")
		os.Exit(1)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing is optional; the service runs without a collector
	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	tracingConfig.Environment = getEnv("ENVIRONMENT", "development")
	tracingConfig.Enabled = getEnv("TRACING_ENABLED", "false") == "true"

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
	}

	m := metrics.New(metrics.DefaultConfig(serviceName))

	mongoClient, err := mongodb.NewClient(ctx, config.MongoDB)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Close(closeCtx)
	}()
	logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

	observer := mongodb.NewObserver(config.MongoDB.Database, m, logger)
	db := mongoClient.Database()
	ledger := mongoRepo.NewOrderRepository(db, observer, logger)
	configs := mongoRepo.NewConfigRepository(db, observer)
	importLogs := mongoRepo.NewImportLogRepository(db, observer)

	hub := realtime.NewHub(logger, m)

	// Without Redis the hub is the notifier and imports lock in-process
	var notifier domain.ChangeNotifier = hub
	var lock domain.ImportLock = &application.LocalImportLock{}
	if config.Redis != nil {
		rdb, err := redis.NewClient(ctx, *config.Redis)
		if err != nil {
			logger.WithError(err).Error("Failed to connect to Redis")
			os.Exit(1)
		}
		defer rdb.Close()

		bus := redis.NewNotificationBus(rdb, config.Redis.Channel, logger)
		if err := bus.StartForwarder(ctx, forwardTo(ctx, hub, logger)); err != nil {
			logger.WithError(err).Error("Failed to subscribe to notifications")
			os.Exit(1)
		}
		notifier = bus
		lock = redis.NewImportLock(redislock.New(rdb), 0, logger)
		logger.Info("Redis connected", "addr", config.Redis.Addr, "channel", config.Redis.Channel)
	}

	var publisher domain.EventPublisher
	if config.KafkaEnabled {
		producer := kafka.NewProducer(config.Kafka)
		defer producer.Close()
		breaker := kafka.NewCircuitBreakerProducer(producer, m, logger)
		publisher = events.NewPublisher(breaker, cloudevents.NewEventFactory("/"+serviceName), logger)
		logger.Info("Kafka producer initialized", "brokers", config.Kafka.Brokers)
	}

	clock := func() time.Time { return time.Now().In(config.Location) }

	ledgerSync := application.NewLedgerSync(ledger, notifier, logger, m)
	ledgerSync.OnSnapshot(api.SnapshotBroadcaster(hub, clock))
	ledgerSync.Start(ctx)
	defer ledgerSync.Stop()

	orderService := application.NewOrderService(ledger, configs, publisher, notifier, logger, m).WithClock(clock)
	queryService := application.NewOrderQueryService(ledgerSync, configs, importLogs).WithClock(clock)
	importService := application.NewImportService(application.ImportServiceConfig{
		Merge:        application.NewMergeEngine(ledger, logger, m),
		Decoder:      ingest.NewExcelDecoder(),
		Backups:      export.BackupReader{},
		Normalizer:   ingest.NewNormalizer(config.Location),
		Configs:      configs,
		ImportLogs:   importLogs,
		Lock:         lock,
		Publisher:    publisher,
		Notifier:     notifier,
		Logger:       logger,
		Metrics:      m,
		Clock:        clock,
		MergeTimeout: config.MergeTimeout,
	})

	credentials, err := auth.LoadCredentials(config.UsersFile)
	if err != nil {
		logger.WithError(err).Error("Failed to load users")
		os.Exit(1)
	}
	tokens, err := auth.NewTokenIssuer(config.JWTSecret, config.TokenTTL)
	if err != nil {
		logger.WithError(err).Error("Invalid JWT_SECRET")
		os.Exit(1)
	}

	router := api.NewRouter(&api.Dependencies{
		ServiceName: serviceName,
		Orders:      orderService,
		Queries:     queryService,
		Imports:     importService,
		Sync:        ledgerSync,
		Hub:         hub,
		Credentials: credentials,
		Tokens:      tokens,
		Metrics:     m,
		Logger:      logger,
		Ready: func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return mongoClient.HealthCheck(pingCtx)
		},
		MaxUploadBytes: config.MaxUploadBytes,
	})

	// No write timeout: the event stream holds its response open
	srv := &http.Server{
		Addr:              config.ServerAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		logger.Info("Server listening", "addr", config.ServerAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("Server error")
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Ending ctx closes the stream clients so Shutdown does not wait on them
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

func forwardTo(ctx context.Context, hub *realtime.Hub, logger *logging.Logger) func(domain.Notification) {
	return func(n domain.Notification) {
		if err := hub.Notify(ctx, n); err != nil {
			logger.WithError(err).Warn("Failed to relay notification")
		}
	}
}
