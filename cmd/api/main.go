package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pygmalion/meettodo-back/internal/calendar"
	"github.com/pygmalion/meettodo-back/internal/config"
	"github.com/pygmalion/meettodo-back/internal/events"
	httpserver "github.com/pygmalion/meettodo-back/internal/http"
	"github.com/pygmalion/meettodo-back/internal/http/handlers"
	"github.com/pygmalion/meettodo-back/internal/notify"
	"github.com/pygmalion/meettodo-back/internal/queue"
	"github.com/pygmalion/meettodo-back/internal/repository"
	"github.com/pygmalion/meettodo-back/internal/service"
	"github.com/pygmalion/meettodo-back/internal/worker"
)

func main() {
	if err := config.LoadDotEnv(".env", ".env.local"); err != nil {
		os.Stderr.WriteString("failed loading .env files: " + err.Error() + "\n")
	}
	cfg := config.Load()

	logger := newLogger(cfg)
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, repoCloser := setupRepository(ctx, cfg, logger)
	defer repoCloser()

	producer, consumer, queueCloser := setupQueue(ctx, cfg, logger)
	defer queueCloser()

	notifier, notifierCloser := setupNotifier(ctx, cfg, logger)
	defer notifierCloser()

	eventsProducer := setupEvents(cfg, logger)
	defer eventsProducer.Close()

	calendarService := calendar.NewMemoryService(cfg.CalendarAccessGranted)

	companiesService := service.NewCompaniesService(repo, producer, eventsProducer, logger)
	api := handlers.NewAPI(companiesService)

	handler := httpserver.NewRouter(httpserver.RouterDependencies{
		API:            api,
		Logger:         logger,
		AuthToken:      cfg.AuthToken,
		CORSOrigins:    cfg.CORSAllowedOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})

	if cfg.WorkerEnabled {
		processor := worker.NewProcessor(
			consumer,
			repo,
			notifier,
			calendarService,
			cfg.ReminderLeadMinutes,
			logger,
		)
		go processor.Start(ctx)
		logger.Info("worker enabled and started")
	} else {
		logger.Info("worker disabled by configuration")
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("api listening", zap.String("port", cfg.Port))
		errChan <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newLogger(cfg config.Config) *zap.Logger {
	zapConfig := zap.NewProductionConfig()
	if cfg.LogFormat == "console" {
		zapConfig = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err == nil {
		zapConfig.Level = zap.NewAtomicLevelAt(level)
	}
	logger, err := zapConfig.Build()
	if err != nil {
		logger = zap.NewNop()
	}
	return logger
}

func setupRepository(
	ctx context.Context,
	cfg config.Config,
	logger *zap.Logger,
) (repository.CompaniesRepository, func()) {
	if cfg.DatabaseURL == "" {
		logger.Info("DATABASE_URL not configured, using in-memory repository")
		return repository.NewMemoryCompaniesRepository(), func() {}
	}

	pgRepo, err := repository.NewPostgresCompaniesRepository(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Warn("failed to initialize postgres repository, fallback to memory", zap.Error(err))
		return repository.NewMemoryCompaniesRepository(), func() {}
	}
	logger.Info("postgres repository initialized")
	return pgRepo, func() {
		pgRepo.Close()
	}
}

func setupQueue(
	ctx context.Context,
	cfg config.Config,
	logger *zap.Logger,
) (queue.Producer, queue.Consumer, func()) {
	var (
		baseProducer queue.Producer
		consumer     queue.Consumer
		baseCloser   = func() {}
	)

	if cfg.RedisAddr == "" {
		logger.Info("REDIS_ADDR not configured, using local queue fallback")
		local := queue.NewLocalQueue(512, 3, logger)
		baseProducer = local
		consumer = local
	} else {
		streams, err := queue.NewStreamsQueue(ctx, queue.StreamsConfig{
			Addr:        cfg.RedisAddr,
			Password:    cfg.RedisPassword,
			DB:          cfg.RedisDB,
			Stream:      cfg.RedisStream,
			DLQStream:   cfg.RedisDLQ,
			Group:       cfg.RedisGroup,
			Consumer:    cfg.RedisConsumer,
			MaxAttempts: 3,
		})
		if err != nil {
			logger.Warn("failed to initialize redis streams queue, fallback to local", zap.Error(err))
			local := queue.NewLocalQueue(512, 3, logger)
			baseProducer = local
			consumer = local
		} else {
			logger.Info("redis streams queue initialized")
			baseProducer = streams
			consumer = streams
			baseCloser = func() {
				_ = streams.Close()
			}
		}
	}

	producer := baseProducer
	batchingCloser := func() {}
	if cfg.QueueBatchingEnabled {
		batching := queue.NewBatchingProducer(ctx, baseProducer, queue.BatchingConfig{
			MaxBatchSize:       cfg.QueueBatchSize,
			FlushInterval:      time.Duration(cfg.QueueBatchFlushMS) * time.Millisecond,
			FlushTimeout:       time.Duration(cfg.QueueBatchFlushTimeoutMS) * time.Millisecond,
			QueueCapacity:      cfg.QueueBatchQueueCapacity,
			MaxInFlightBatches: cfg.QueueBatchMaxInFlight,
		})
		producer = batching
		batchingCloser = batching.Close
		logger.Info("queue batching enabled",
			zap.Int("size", cfg.QueueBatchSize),
			zap.Int("flush_ms", cfg.QueueBatchFlushMS),
			zap.Int("queue_capacity", cfg.QueueBatchQueueCapacity),
			zap.Int("max_in_flight", cfg.QueueBatchMaxInFlight),
		)
	}

	return producer, consumer, func() {
		batchingCloser()
		baseCloser()
	}
}

func setupNotifier(
	ctx context.Context,
	cfg config.Config,
	logger *zap.Logger,
) (notify.Notifier, func()) {
	if cfg.RedisAddr == "" {
		logger.Info("REDIS_ADDR not configured, using in-memory notifier")
		return notify.NewMemoryNotifier(), func() {}
	}

	redisNotifier, err := notify.NewRedisNotifier(ctx, notify.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		logger.Warn("failed to initialize redis notifier, fallback to memory", zap.Error(err))
		return notify.NewMemoryNotifier(), func() {}
	}
	logger.Info("redis notifier initialized")
	return redisNotifier, func() {
		_ = redisNotifier.Close()
	}
}

func setupEvents(cfg config.Config, logger *zap.Logger) events.Producer {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("KAFKA_BROKERS not configured, domain events disabled")
		return events.NopProducer{}
	}
	logger.Info("kafka events producer initialized",
		zap.Strings("brokers", cfg.KafkaBrokers),
		zap.String("topic", cfg.KafkaTopic),
	)
	return events.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
}
