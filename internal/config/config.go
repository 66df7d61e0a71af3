package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/lisahq/lisaflow/pkg/api"
)

type (
	// Config holds configuration settings for the workflow engine
	Config struct {
		// API Server
		APIHost  string
		APIPort  int
		LogLevel string

		// Cache & Archiving
		Cache            CacheConfig
		ArchiveBucketURL string

		// Scheduling
		MaxConcurrency int
		NodeTimeout    int64
		Retry          api.RetryConfig

		ShutdownTimeout time.Duration
	}

	// CacheConfig holds the Redis connection used by cache nodes. Leaving
	// Addr empty disables the cache node type
	CacheConfig struct {
		Addr     string
		Password string
		DB       int
		Prefix   string
	}
)

const (
	DefaultNodeTimeout     = 30 * api.Second
	DefaultShutdownTimeout = 10 * time.Second

	DefaultAPIPort = 8080
	DefaultAPIHost = "0.0.0.0"
	MaxTCPPort     = 65535

	DefaultRedisDB     = 0
	DefaultRedisPrefix = "lisaflow"

	DefaultMaxConcurrency = 4
	MaxConcurrencyLimit   = 10_000

	DefaultRetryMaxRetries  = 3
	DefaultRetryInitBackoff = 1000
	DefaultRetryMaxBackoff  = 60000
	DefaultRetryBackoffType = api.BackoffTypeExponential

	MaxRetryMaxRetries  = 1000
	MaxNodeTimeout      = 24 * 60 * api.Minute // 1 day in ms
	MaxRetryInitBackoff = 24 * 60 * api.Minute
	MaxRetryMaxBackoff  = MaxRetryInitBackoff
)

var (
	ErrInvalidAPIPort          = errors.New("invalid API port")
	ErrInvalidNodeTimeout      = errors.New("node timeout must be positive")
	ErrInvalidMaxConcurrency   = errors.New("max concurrency must be positive")
	ErrInvalidRetryInitBackoff = errors.New(
		"retry initial backoff must be positive",
	)
	ErrInvalidRetryMaxBackoff = errors.New(
		"retry max backoff must be positive",
	)
	ErrRetryMaxBackoffTooSmall = errors.New(
		"retry max backoff must be >= retry initial backoff",
	)
)

// NewDefaultConfig creates a configuration with sensible defaults for the
// server, scheduler, and retry behavior
func NewDefaultConfig() *Config {
	return &Config{
		APIHost:  DefaultAPIHost,
		APIPort:  DefaultAPIPort,
		LogLevel: "info",
		Cache: CacheConfig{
			DB:     DefaultRedisDB,
			Prefix: DefaultRedisPrefix,
		},
		MaxConcurrency: DefaultMaxConcurrency,
		NodeTimeout:    DefaultNodeTimeout,
		Retry: api.RetryConfig{
			MaxRetries:  DefaultRetryMaxRetries,
			InitBackoff: DefaultRetryInitBackoff,
			MaxBackoff:  DefaultRetryMaxBackoff,
			BackoffType: DefaultRetryBackoffType,
		},
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// LoadFromEnv populates configuration values from environment variables.
// Returns an error if any env var cannot be parsed.
func (c *Config) LoadFromEnv() error {
	if apiHost := os.Getenv("API_HOST"); apiHost != "" {
		c.APIHost = apiHost
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.LogLevel = logLevel
	}
	if bucketURL := os.Getenv("ARCHIVE_BUCKET_URL"); bucketURL != "" {
		c.ArchiveBucketURL = bucketURL
	}
	if backoffType := os.Getenv("RETRY_BACKOFF_TYPE"); backoffType != "" {
		c.Retry.BackoffType = backoffType
	}
	loadCacheConfigFromEnv(&c.Cache)

	if err := loadEnvInt("API_PORT", &c.APIPort, 0, MaxTCPPort); err != nil {
		return err
	}
	if err := loadEnvInt(
		"MAX_CONCURRENCY", &c.MaxConcurrency, 0, MaxConcurrencyLimit,
	); err != nil {
		return err
	}
	if err := loadEnvInt(
		"NODE_TIMEOUT", &c.NodeTimeout, 0, MaxNodeTimeout,
	); err != nil {
		return err
	}

	if err := loadEnvInt(
		"RETRY_MAX_RETRIES", &c.Retry.MaxRetries, -1, MaxRetryMaxRetries,
	); err != nil {
		return err
	}
	if err := loadEnvInt(
		"RETRY_INITIAL_BACKOFF", &c.Retry.InitBackoff, 0, MaxRetryInitBackoff,
	); err != nil {
		return err
	}
	if err := loadEnvInt(
		"RETRY_MAX_BACKOFF", &c.Retry.MaxBackoff, 0, MaxRetryMaxBackoff,
	); err != nil {
		return err
	}
	return nil
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.APIPort <= 0 || c.APIPort > MaxTCPPort {
		return fmt.Errorf("%w: %d", ErrInvalidAPIPort, c.APIPort)
	}

	if c.MaxConcurrency <= 0 {
		return ErrInvalidMaxConcurrency
	}

	if c.NodeTimeout <= 0 {
		return ErrInvalidNodeTimeout
	}

	if c.Retry.InitBackoff <= 0 {
		return ErrInvalidRetryInitBackoff
	}

	if c.Retry.MaxBackoff <= 0 {
		return ErrInvalidRetryMaxBackoff
	}

	if c.Retry.MaxBackoff < c.Retry.InitBackoff {
		return ErrRetryMaxBackoffTooSmall
	}

	return c.Retry.Validate()
}

func loadCacheConfigFromEnv(cc *CacheConfig) {
	if addr := os.Getenv("CACHE_REDIS_ADDR"); addr != "" {
		cc.Addr = addr
	}
	if password := os.Getenv("CACHE_REDIS_PASSWORD"); password != "" {
		cc.Password = password
	}
	if dbStr := os.Getenv("CACHE_REDIS_DB"); dbStr != "" {
		if db, err := strconv.Atoi(dbStr); err == nil {
			cc.DB = db
		}
	}
	if prefix := os.Getenv("CACHE_REDIS_PREFIX"); prefix != "" {
		cc.Prefix = prefix
	}
}

// loadEnvInt reads key from the environment, parses it as an integer, and
// sets *dst if the value is in the range (min, max). Returns an error if
// the value cannot be parsed or falls outside the valid range.
func loadEnvInt[T ~int | ~int64](key string, dst *T, min, max T) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %q", key, s)
	}
	tv := T(v)
	if tv <= min || tv > max {
		return fmt.Errorf("invalid %s: %d out of range [%d, %d]",
			key, tv, min+1, max)
	}
	*dst = tv
	return nil
}
