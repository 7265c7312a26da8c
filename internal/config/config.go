package config

import (
	"fmt"
	"time"

	"github.com/utafrali/QuaichGo/internal/cache/breaker"
	"github.com/utafrali/QuaichGo/internal/service"
	pkgconfig "github.com/utafrali/QuaichGo/pkg/config"
	"github.com/utafrali/QuaichGo/pkg/database"
	"github.com/utafrali/QuaichGo/pkg/tracing"
)

// Cache store backends.
const (
	CacheStoreMemory = "memory"
	CacheStoreRedis  = "redis"
)

// Config holds all configuration for the quaich service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Identifies this process in broadcast invalidations. Generated when empty.
	InstanceID string `env:"INSTANCE_ID"`

	// HTTP server
	HTTPPort            int           `env:"QUAICH_HTTP_PORT" envDefault:"8080"`
	HTTPReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`
	HTTPWriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"15s"`
	HTTPIdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownGracePeriod time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"20s"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"quaich"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"quaich_secret"`
	PostgresDB   string `env:"QUAICH_DB_NAME" envDefault:"quaich"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"20"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"15"`

	// Cache
	CacheStore        string        `env:"CACHE_STORE" envDefault:"memory"`
	CacheResultsTTL   time.Duration `env:"CACHE_RESULTS_TTL" envDefault:"30s"`
	CacheAggregateTTL time.Duration `env:"CACHE_AGGREGATE_TTL" envDefault:"30s"`
	CacheMetadataTTL  time.Duration `env:"CACHE_METADATA_TTL" envDefault:"60s"`
	CacheTagTTL       time.Duration `env:"CACHE_TAG_TTL" envDefault:"1h"`

	// Circuit breaker around the Redis store
	BreakerTimeout      time.Duration `env:"CACHE_BREAKER_TIMEOUT" envDefault:"15s"`
	BreakerMinRequests  uint32        `env:"CACHE_BREAKER_MIN_REQUESTS" envDefault:"5"`
	BreakerFailureRatio float64       `env:"CACHE_BREAKER_FAILURE_RATIO" envDefault:"0.5"`

	// Redis
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaEnabled         bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers         []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	CacheBroadcast       bool     `env:"CACHE_BROADCAST" envDefault:"false"`
	InvalidationGroupPfx string   `env:"CACHE_INVALIDATION_GROUP_PREFIX" envDefault:"quaich-cache"`

	// Bearer token validation
	JWTSecret string `env:"JWT_SECRET"`
	JWTIssuer string `env:"JWT_ISSUER"`

	// Per-member vote rate limit
	VoteRateLimit float64 `env:"VOTE_RATE_LIMIT_PER_SECOND" envDefault:"2"`
	VoteRateBurst int     `env:"VOTE_RATE_BURST" envDefault:"5"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Slow query logging
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load quaich config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.PostgresHost == "" {
		return fmt.Errorf("POSTGRES_HOST is required")
	}
	if c.PostgresUser == "" {
		return fmt.Errorf("POSTGRES_USER is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.CacheStore != CacheStoreMemory && c.CacheStore != CacheStoreRedis {
		return fmt.Errorf("CACHE_STORE must be %q or %q, got %q", CacheStoreMemory, CacheStoreRedis, c.CacheStore)
	}
	if c.CacheResultsTTL <= 0 || c.CacheAggregateTTL <= 0 || c.CacheMetadataTTL <= 0 {
		return fmt.Errorf("cache TTLs must be > 0")
	}
	if c.CacheTagTTL < c.CacheResultsTTL || c.CacheTagTTL < c.CacheMetadataTTL {
		return fmt.Errorf("CACHE_TAG_TTL must not be shorter than the entry TTLs")
	}
	if c.BreakerFailureRatio <= 0 || c.BreakerFailureRatio > 1 {
		return fmt.Errorf("CACHE_BREAKER_FAILURE_RATIO must be in (0, 1], got %f", c.BreakerFailureRatio)
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}
	if c.CacheBroadcast && !c.KafkaEnabled {
		return fmt.Errorf("CACHE_BROADCAST requires KAFKA_ENABLED")
	}
	if c.VoteRateLimit <= 0 || c.VoteRateBurst < 1 {
		return fmt.Errorf("vote rate limit must be positive, got %f/s burst %d", c.VoteRateLimit, c.VoteRateBurst)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	return nil
}

// Postgres returns the pool configuration.
func (c *Config) Postgres() database.PostgresConfig {
	return database.PostgresConfig{
		Host:            c.PostgresHost,
		Port:            c.PostgresPort,
		User:            c.PostgresUser,
		Password:        c.PostgresPass,
		DBName:          c.PostgresDB,
		SSLMode:         c.PostgresSSL,
		MaxConns:        c.DBMaxConns,
		MinConns:        c.DBMinConns,
		MaxConnLifetime: time.Duration(c.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(c.DBMaxConnIdleTimeMins) * time.Minute,
	}
}

// Redis returns the Redis client configuration.
func (c *Config) Redis() database.RedisConfig {
	cfg := database.DefaultRedisConfig()
	cfg.Host = c.RedisHost
	cfg.Port = c.RedisPort
	cfg.Password = c.RedisPassword
	cfg.DB = c.RedisDB
	return cfg
}

// CacheTTL returns the TTLs of the cached read models.
func (c *Config) CacheTTL() service.CacheTTL {
	return service.CacheTTL{
		Results:   c.CacheResultsTTL,
		Aggregate: c.CacheAggregateTTL,
		Metadata:  c.CacheMetadataTTL,
	}
}

// Breaker returns the circuit breaker settings of the Redis cache store.
func (c *Config) Breaker() breaker.Config {
	cfg := breaker.DefaultConfig("cache-redis")
	cfg.Timeout = c.BreakerTimeout
	cfg.MinRequests = c.BreakerMinRequests
	cfg.FailureRatio = c.BreakerFailureRatio
	return cfg
}

// Tracing returns the OpenTelemetry settings for the given service.
func (c *Config) Tracing(serviceName, version string) tracing.Config {
	return tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: version,
		Environment:    c.Environment,
		OTLPEndpoint:   c.OTELEndpoint,
		SampleRate:     c.OTELSampleRate,
		Enabled:        c.OTELEnabled,
	}
}
