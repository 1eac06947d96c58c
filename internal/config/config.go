package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/Vishwagit2006/Final-Project-sub000/pkg/database"
	pkgconfig "github.com/Vishwagit2006/Final-Project-sub000/pkg/config"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all configuration for the sellertrust service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort       int           `env:"SELLERTRUST_HTTP_PORT" envDefault:"8012"`
	RequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"30s"`

	// Store
	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"sellertrust"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"sellertrust_secret"`
	PostgresDB   string `env:"POSTGRES_DB" envDefault:"sellertrust_db"`
	PostgresSSL  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINS" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINS" envDefault:"30"`

	// Trust scorer
	ScorerURL        string        `env:"TRUST_SCORER_URL" envDefault:"http://localhost:8090"`
	ScorerTimeout    time.Duration `env:"TRUST_SCORER_TIMEOUT" envDefault:"15s"`
	ScorerMaxRetries int           `env:"TRUST_SCORER_MAX_RETRIES" envDefault:"0"`

	// Submission pipeline
	AggregateMaxRetries   int           `env:"AGGREGATE_MAX_RETRIES" envDefault:"5"`
	SubmissionStepTimeout time.Duration `env:"SUBMISSION_STEP_TIMEOUT" envDefault:"5s"`

	// Profile
	ProfileReviewLimit  int           `env:"PROFILE_REVIEW_LIMIT" envDefault:"50"`
	ProfileRecentWindow time.Duration `env:"PROFILE_RECENT_WINDOW" envDefault:"720h"`
	ProfileMaxAge       time.Duration `env:"PROFILE_MAX_AGE" envDefault:"30s"`

	// Redis profile cache
	RedisEnabled    bool          `env:"REDIS_ENABLED" envDefault:"false"`
	RedisHost       string        `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort       int           `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword   string        `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB         int           `env:"REDIS_DB" envDefault:"0"`
	ProfileCacheTTL time.Duration `env:"PROFILE_CACHE_TTL" envDefault:"30s"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Pprof debug endpoints (IP allowlist in CIDR notation)
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,127.0.0.0/8,::1/128" envSeparator:","`

	// CORS; empty means the development wildcard
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	// Slow query logging
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load sellertrust config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFrom reads configuration from vars instead of the process environment.
func LoadFrom(vars map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.LoadFromMap(cfg, vars); err != nil {
		return nil, fmt.Errorf("load sellertrust config: %w", err)
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
	switch c.StoreDriver {
	case DriverPostgres:
		if c.PostgresHost == "" {
			return fmt.Errorf("POSTGRES_HOST is required")
		}
		if c.PostgresUser == "" {
			return fmt.Errorf("POSTGRES_USER is required")
		}
		if c.DBMaxConns < 1 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
			return fmt.Errorf("invalid pool size: min %d, max %d", c.DBMinConns, c.DBMaxConns)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverMemory, c.StoreDriver)
	}
	u, err := url.Parse(c.ScorerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("TRUST_SCORER_URL must be an absolute http(s) URL, got %q", c.ScorerURL)
	}
	if c.ScorerTimeout <= 0 {
		return fmt.Errorf("TRUST_SCORER_TIMEOUT must be > 0, got %s", c.ScorerTimeout)
	}
	if c.ScorerMaxRetries < 0 {
		return fmt.Errorf("TRUST_SCORER_MAX_RETRIES must be >= 0, got %d", c.ScorerMaxRetries)
	}
	if c.AggregateMaxRetries < 0 {
		return fmt.Errorf("AGGREGATE_MAX_RETRIES must be >= 0, got %d", c.AggregateMaxRetries)
	}
	if c.SubmissionStepTimeout <= 0 {
		return fmt.Errorf("SUBMISSION_STEP_TIMEOUT must be > 0, got %s", c.SubmissionStepTimeout)
	}
	if c.ProfileReviewLimit < 1 {
		return fmt.Errorf("PROFILE_REVIEW_LIMIT must be > 0, got %d", c.ProfileReviewLimit)
	}
	if c.RedisEnabled && c.ProfileCacheTTL <= 0 {
		return fmt.Errorf("PROFILE_CACHE_TTL must be > 0 when Redis is enabled, got %s", c.ProfileCacheTTL)
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	return nil
}

// Postgres returns the pool settings for database.NewPostgresPool.
func (c *Config) Postgres() *database.PostgresConfig {
	return &database.PostgresConfig{
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

		SlowQueryThreshold: time.Duration(c.SlowQueryThresholdMs) * time.Millisecond,
	}
}

// Redis returns the client settings for database.NewRedisClient.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{
		Host:        c.RedisHost,
		Port:        c.RedisPort,
		Password:    c.RedisPassword,
		DB:          c.RedisDB,
		DialTimeout: 5 * time.Second,
	}
}
