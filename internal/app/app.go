package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/utafrali/QuaichGo/internal/auth"
	"github.com/utafrali/QuaichGo/internal/cache"
	"github.com/utafrali/QuaichGo/internal/cache/breaker"
	"github.com/utafrali/QuaichGo/internal/cache/memory"
	cacheredis "github.com/utafrali/QuaichGo/internal/cache/redis"
	"github.com/utafrali/QuaichGo/internal/config"
	"github.com/utafrali/QuaichGo/internal/event"
	handler "github.com/utafrali/QuaichGo/internal/handler/http"
	"github.com/utafrali/QuaichGo/internal/repository/postgres"
	"github.com/utafrali/QuaichGo/internal/service"
	"github.com/utafrali/QuaichGo/migrations"
	"github.com/utafrali/QuaichGo/pkg/database"
	"github.com/utafrali/QuaichGo/pkg/health"
	pkgkafka "github.com/utafrali/QuaichGo/pkg/kafka"
	"github.com/utafrali/QuaichGo/pkg/tracing"
)

const (
	serviceName    = "quaich"
	serviceVersion = "0.1.0"
)

// App wires together all dependencies and runs the quaich service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *goredis.Client
	producer       *pkgkafka.Producer
	invalidations  *pkgkafka.Consumer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	instanceID := resolveInstanceID(cfg.InstanceID)
	logger = logger.With(slog.String("instance_id", instanceID))

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, cfg.Tracing(serviceName, serviceVersion))
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	a := &App{cfg: cfg, logger: logger, tracerShutdown: tracerShutdown}
	if err := a.init(ctx, instanceID); err != nil {
		a.closeResources()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context, instanceID string) error {
	cfg, logger := a.cfg, a.logger

	// Initialize PostgreSQL connection pool.
	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, serviceName); err != nil {
		logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Configure slow query logging.
	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	}

	// Cache store.
	store, redisClient, err := newCacheStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	a.redis = redisClient
	resultsCache := cache.New(store, logger)

	// Kafka producer for domain events and cache broadcasts.
	var (
		events        service.EventPublisher
		eventProducer *event.Producer
	)
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		if err := pingKafkaWithRetry(ctx, a.producer, logger); err != nil {
			logger.Warn("kafka producer ping failed after retries, continuing in degraded mode",
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
		}
		eventProducer = event.NewProducer(a.producer, instanceID, logger)
		events = eventProducer
	}

	var dispatcherOpts []cache.DispatcherOption
	if cfg.CacheBroadcast {
		dispatcherOpts = append(dispatcherOpts, cache.WithBroadcaster(eventProducer))
	}
	dispatcher := cache.NewDispatcher(resultsCache, logger, dispatcherOpts...)

	// Build the dependency graph.
	ttl := cfg.CacheTTL()
	meetingRepo := postgres.NewMeetingRepository(pool)
	whiskyRepo := postgres.NewWhiskyRepository(pool)
	voteRepo := postgres.NewVoteRepository(pool)
	memberRepo := postgres.NewMemberRepository(pool)
	resultsRepo := postgres.NewResultsRepository(pool)

	services := handler.Services{
		Meetings: service.NewMeetingService(meetingRepo, resultsCache, dispatcher, events, ttl, logger),
		Whiskies: service.NewWhiskyService(whiskyRepo, meetingRepo, resultsCache, dispatcher, ttl, logger),
		Votes:    service.NewVoteService(voteRepo, dispatcher, events, logger),
		Members:  service.NewMemberService(memberRepo, resultsCache, dispatcher, ttl, logger),
		Results:  service.NewResultsService(resultsRepo, resultsCache, ttl, logger),
	}

	// Cross-instance invalidation consumer. Every instance reads every
	// message, so each one gets its own consumer group.
	if cfg.CacheBroadcast {
		a.invalidations = newInvalidationConsumer(cfg, dispatcher, redisClient, instanceID, logger)
	}

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	if redisClient != nil {
		healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	if a.producer != nil {
		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
	}

	// HTTP router.
	validator := auth.NewValidator(cfg.JWTSecret, cfg.JWTIssuer)
	router := handler.NewRouter(services, validator.Validate, healthHandler, handler.RouterConfig{
		VoteRatePerSecond: cfg.VoteRateLimit,
		VoteRateBurst:     cfg.VoteRateBurst,
	}, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

// newCacheStore builds the configured store. Redis is wrapped in a circuit
// breaker so an outage degrades reads to the database.
func newCacheStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (cache.Store, *goredis.Client, error) {
	if cfg.CacheStore != config.CacheStoreRedis {
		logger.Info("using in-process cache store")
		return memory.New(), nil, nil
	}

	client, err := database.NewRedisClient(ctx, cfg.Redis())
	if err != nil {
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis", slog.String("addr", cfg.Redis().Addr()))

	store := cacheredis.New(client, cacheredis.WithTagTTL(cfg.CacheTagTTL))
	return breaker.New(store, cfg.Breaker(), logger), client, nil
}

func newInvalidationConsumer(
	cfg *config.Config,
	dispatcher *cache.Dispatcher,
	redisClient *goredis.Client,
	instanceID string,
	logger *slog.Logger,
) *pkgkafka.Consumer {
	var idempotency pkgkafka.IdempotencyStore = pkgkafka.NewMemoryIdempotencyStore(time.Hour)
	if redisClient != nil {
		idempotency = pkgkafka.NewRedisIdempotencyStore(redisClient, "quaich:events:"+instanceID+":", time.Hour)
	}

	handle := event.NewInvalidationConsumer(dispatcher, instanceID, logger).HandleCacheInvalidated
	return pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
		Brokers:     cfg.KafkaBrokers,
		GroupID:     fmt.Sprintf("%s-%s", cfg.InvalidationGroupPfx, instanceID),
		Topic:       event.TopicCacheInvalidated,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartLatest: true,
	}, pkgkafka.IdempotentHandler(idempotency, handle, logger), logger)
}

// resolveInstanceID returns id, or hostname plus a random suffix when id is
// empty, so restarted pods never share a consumer group.
func resolveInstanceID(id string) string {
	if id != "" {
		return id
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = serviceName
	}
	return host + "-" + uuid.NewString()[:8]
}

// Run starts the HTTP server and the invalidation consumer, then blocks
// until the context is canceled.
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
// 2. remaining resources, see closeResources
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownGracePeriod)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	errs = append(errs, a.closeResources()...)

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// closeResources releases everything but the HTTP server: the tracer first
// so spans of drained requests are flushed, then the consumer, producer,
// Redis and PostgreSQL. Nil members are skipped, so it is safe after a
// partial init.
func (a *App) closeResources() []error {
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
			a.logger.Error("invalidation consumer close error", slog.String("error", err.Error()))
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

	if a.pool != nil {
		a.pool.Close()
	}
	return errs
}

// pingKafkaWithRetry attempts to ping the Kafka producer with exponential
// backoff (3 attempts, 1s/2s/4s with ±25% jitter).
func pingKafkaWithRetry(ctx context.Context, producer *pkgkafka.Producer, logger *slog.Logger) error {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if err := producer.Ping(ctx); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if attempt < 2 {
			base := time.Duration(1<<uint(attempt)) * time.Second
			jitter := time.Duration(float64(base) * 0.25 * (2*rand.Float64() - 1)) // #nosec G404 -- non-cryptographic jitter for retry backoff
			wait := base + jitter
			logger.Warn("kafka producer ping failed, retrying",
				slog.Int("attempt", attempt+1),
				slog.Int("max_attempts", 3),
				slog.Duration("backoff", wait),
				slog.String("error", lastErr.Error()),
			)
			select {
			case <-ctx.Done():
				return fmt.Errorf("kafka ping: context canceled during retry: %w", ctx.Err())
			case <-time.After(wait):
			}
		}
	}
	return fmt.Errorf("kafka producer ping failed after 3 attempts: %w", lastErr)
}
