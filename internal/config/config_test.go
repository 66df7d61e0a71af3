package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lisahq/lisaflow/internal/config"
	"github.com/lisahq/lisaflow/pkg/api"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := config.NewDefaultConfig()
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name      string
		configMod func(*config.Config)
		wantErr   error
	}{
		{
			name:      "api_port_zero",
			configMod: func(c *config.Config) { c.APIPort = 0 },
			wantErr:   config.ErrInvalidAPIPort,
		},
		{
			name:      "api_port_too_high",
			configMod: func(c *config.Config) { c.APIPort = 70000 },
			wantErr:   config.ErrInvalidAPIPort,
		},
		{
			name:      "zero_max_concurrency",
			configMod: func(c *config.Config) { c.MaxConcurrency = 0 },
			wantErr:   config.ErrInvalidMaxConcurrency,
		},
		{
			name:      "zero_node_timeout",
			configMod: func(c *config.Config) { c.NodeTimeout = 0 },
			wantErr:   config.ErrInvalidNodeTimeout,
		},
		{
			name: "zero_init_backoff",
			configMod: func(c *config.Config) {
				c.Retry.InitBackoff = 0
			},
			wantErr: config.ErrInvalidRetryInitBackoff,
		},
		{
			name: "max_backoff_below_init",
			configMod: func(c *config.Config) {
				c.Retry.InitBackoff = 5000
				c.Retry.MaxBackoff = 1000
			},
			wantErr: config.ErrRetryMaxBackoffTooSmall,
		},
		{
			name: "bogus_backoff_type",
			configMod: func(c *config.Config) {
				c.Retry.BackoffType = "fibonacci"
			},
			wantErr: api.ErrInvalidBackoffType,
		},
		{
			name: "negative_max_retries",
			configMod: func(c *config.Config) {
				c.Retry.MaxRetries = -1
			},
			wantErr: api.ErrNegativeMaxRetries,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewDefaultConfig()
			tt.configMod(cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("API_HOST", "127.0.0.1")
	t.Setenv("API_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("MAX_CONCURRENCY", "16")
	t.Setenv("NODE_TIMEOUT", "5000")
	t.Setenv("RETRY_MAX_RETRIES", "7")
	t.Setenv("RETRY_BACKOFF_TYPE", api.BackoffTypeLinear)
	t.Setenv("CACHE_REDIS_ADDR", "redis:6379")
	t.Setenv("CACHE_REDIS_PREFIX", "flowtest")
	t.Setenv("ARCHIVE_BUCKET_URL", "mem://reports")

	cfg := config.NewDefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "127.0.0.1", cfg.APIHost)
	assert.Equal(t, 9090, cfg.APIPort)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 16, cfg.MaxConcurrency)
	assert.Equal(t, int64(5000), cfg.NodeTimeout)
	assert.Equal(t, 7, cfg.Retry.MaxRetries)
	assert.Equal(t, api.BackoffTypeLinear, cfg.Retry.BackoffType)
	assert.Equal(t, "redis:6379", cfg.Cache.Addr)
	assert.Equal(t, "flowtest", cfg.Cache.Prefix)
	assert.Equal(t, "mem://reports", cfg.ArchiveBucketURL)
}

func TestLoadFromEnvRejectsGarbage(t *testing.T) {
	t.Setenv("API_PORT", "not-a-port")

	cfg := config.NewDefaultConfig()
	assert.Error(t, cfg.LoadFromEnv())
}

func TestLoadFromEnvRejectsOutOfRange(t *testing.T) {
	t.Setenv("API_PORT", "99999")

	cfg := config.NewDefaultConfig()
	assert.Error(t, cfg.LoadFromEnv())
}
