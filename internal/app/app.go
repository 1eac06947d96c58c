package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/Vishwagit2006/Final-Project-sub000/internal/cache"
	"github.com/Vishwagit2006/Final-Project-sub000/internal/config"
	"github.com/Vishwagit2006/Final-Project-sub000/internal/event"
	handler "github.com/Vishwagit2006/Final-Project-sub000/internal/handler/http"
	"github.com/Vishwagit2006/Final-Project-sub000/internal/repository"
	"github.com/Vishwagit2006/Final-Project-sub000/internal/scorer"
	"github.com/Vishwagit2006/Final-Project-sub000/internal/service"
	"github.com/Vishwagit2006/Final-Project-sub000/pkg/database"
	"github.com/Vishwagit2006/Final-Project-sub000/pkg/health"
	pkgkafka "github.com/Vishwagit2006/Final-Project-sub000/pkg/kafka"
	"github.com/Vishwagit2006/Final-Project-sub000/pkg/middleware"
	"github.com/Vishwagit2006/Final-Project-sub000/pkg/tracing"
)

const (
	serviceName    = "sellertrust"
	serviceVersion = "0.1.0"

	kafkaPingAttempts = 3
	idempotencyTTL    = 24 * time.Hour
)

// App wires together all dependencies and runs the sellertrust service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	registry       *prometheus.Registry
	store          repository.Store
	closeStore     func()
	redis          *redis.Client
	producer       *pkgkafka.Producer
	invalidations  *pkgkafka.Consumer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
// Whatever was opened before a failure is released before returning.
func NewApp(cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger, closeStore: func() {}}
	defer func() {
		if err != nil {
			a.release()
		}
	}()

	// Initialize OpenTelemetry tracing.
	a.tracerShutdown, err = tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	store, closeStore, err := OpenStore(ctx, cfg, a.registry, logger)
	if err != nil {
		return nil, err
	}
	a.store, a.closeStore = store, closeStore

	// Optional Redis profile cache. A nil interface, not a typed nil, keeps
	// the services on their uncached path.
	var (
		profileCache service.ProfileCache
		invalidator  service.ProfileInvalidator
		redisCache   *cache.ProfileCache
	)
	if cfg.RedisEnabled {
		a.redis, err = database.NewRedisClient(ctx, cfg.Redis())
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("connected to Redis", slog.String("addr", cfg.Redis().Addr()))
		redisCache = cache.NewProfileCache(a.redis, cfg.ProfileCacheTTL, logger)
		profileCache = redisCache
		invalidator = redisCache
	}

	// Optional Kafka producer and cache invalidation consumer.
	var publisher service.EventPublisher
	if cfg.KafkaEnabled {
		kafkaMetrics := pkgkafka.NewMetrics(a.registry, serviceName)
		producerCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
		producerCfg.Metrics = kafkaMetrics
		a.producer = pkgkafka.NewProducer(producerCfg, logger)
		if err := pingKafkaWithRetry(ctx, a.producer, logger); err != nil {
			logger.Warn("kafka producer ping failed after retries, continuing in degraded mode",
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
		}
		publisher = event.NewProducer(a.producer, logger)

		if redisCache != nil {
			a.invalidations = newInvalidationConsumer(cfg, a.redis, redisCache, kafkaMetrics, logger)
		}
	}

	// Build the dependency graph.
	metrics := service.NewMetrics(a.registry)
	directory := service.NewDirectory(a.store)
	guard := service.NewDuplicateGuard(a.store.Reviews())
	engine := service.NewAggregateEngine(a.store, directory, guard, metrics, logger, cfg.AggregateMaxRetries)
	trustScorer := scorer.NewClient(scorer.Config{
		BaseURL:    cfg.ScorerURL,
		Timeout:    cfg.ScorerTimeout,
		MaxRetries: cfg.ScorerMaxRetries,
	}, a.registry, logger)

	reviewService := service.NewReviewService(directory, guard, engine, trustScorer, invalidator, publisher, metrics, logger,
		service.SubmissionTimeouts{
			StepTimeout:  cfg.SubmissionStepTimeout,
			ScoreTimeout: cfg.ScorerTimeout,
		})
	profileService := service.NewProfileService(directory, a.store.Reviews(), profileCache, logger, service.ProfileConfig{
		ReviewLimit:  cfg.ProfileReviewLimit,
		RecentWindow: cfg.ProfileRecentWindow,
	})

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical(cfg.StoreDriver, a.store.Ping)
	if a.redis != nil {
		client := a.redis
		healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
	}
	if a.producer != nil {
		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
	}

	// HTTP router.
	cors := middleware.DefaultCORSConfig()
	cors.Environment = cfg.Environment
	if len(cfg.CORSAllowedOrigins) > 0 {
		cors.AllowedOrigins = cfg.CORSAllowedOrigins
	}
	router := handler.NewRouter(
		reviewService,
		profileService,
		healthHandler,
		middleware.NewHTTPMetrics(a.registry, serviceName),
		a.registry,
		logger,
		handler.RouterConfig{
			ServiceName:    serviceName,
			RequestTimeout: cfg.RequestTimeout,
			ProfileMaxAge:  cfg.ProfileMaxAge,
			PprofCIDRs:     cfg.PprofAllowedCIDRs,
			CORS:           cors,
		},
	)

	// The write timeout must outlast a full submission: scorer call plus
	// the commit step.
	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.ScorerTimeout + 2*cfg.SubmissionStepTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// newInvalidationConsumer drops the cached profile of every reviewed seller
// once more after the event arrives, which evicts a profile a concurrent read
// loaded just before the commit. Redelivered events are skipped through Redis.
func newInvalidationConsumer(cfg *config.Config, client redis.Cmdable, profiles *cache.ProfileCache, metrics *pkgkafka.Metrics, logger *slog.Logger) *pkgkafka.Consumer {
	eventConsumer := event.NewConsumer(profiles, logger)
	idempotencyStore := pkgkafka.NewRedisIdempotencyStore(client, serviceName+":events", idempotencyTTL)

	return pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
		Brokers:   cfg.KafkaBrokers,
		GroupID:   serviceName + "-cache-invalidation",
		Topic:     event.TopicReviewAccepted,
		MinBytes:  1,
		MaxBytes:  10e6,
		EnableDLQ: true,
		Metrics:   metrics,
	}, pkgkafka.IdempotentHandler(idempotencyStore, eventConsumer.Handle, metrics, logger), logger)
}

// Handler returns the HTTP handler serving the API.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the HTTP server and the Kafka consumer, then blocks until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	// Start HTTP server.
	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	// Start Kafka consumer.
	if a.invalidations != nil {
		go func() {
			if err := a.invalidations.Start(ctx); err != nil {
				errCh <- fmt.Errorf("cache invalidation consumer: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka consumer and producer
// 4. Redis client and store
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests.
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	errs = append(errs, a.release()...)

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// release closes everything except the HTTP server. It is safe on a
// partially built App.
func (a *App) release() []error {
	var errs []error

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.invalidations != nil {
		if err := a.invalidations.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.closeStore()
	return errs
}

// pingKafkaWithRetry pings the brokers up to three times with 1s, 2s
// backoff and jitter.
func pingKafkaWithRetry(ctx context.Context, producer *pkgkafka.Producer, logger *slog.Logger) error {
	var lastErr error
	for attempt := 0; attempt < kafkaPingAttempts; attempt++ {
		if lastErr = producer.Ping(ctx); lastErr == nil {
			return nil
		}
		if attempt == kafkaPingAttempts-1 {
			break
		}
		wait := database.Backoff(attempt, time.Second)
		logger.Warn("kafka producer ping failed, retrying",
			slog.Int("attempt", attempt+1),
			slog.Int("max_attempts", kafkaPingAttempts),
			slog.Duration("backoff", wait),
			slog.String("error", lastErr.Error()),
		)
		select {
		case <-ctx.Done():
			return fmt.Errorf("kafka ping: context canceled during retry: %w", ctx.Err())
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("kafka ping failed after %d attempts: %w", kafkaPingAttempts, lastErr)
}
