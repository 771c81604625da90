// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

var validate = validator.New()

// Config holds the application's configuration, loaded from config/.env and
// the process environment.
type Config struct {
	APIHost  string `validate:"required"`
	Port     int    `validate:"required,min=1,max=65535"`
	APIToken string

	// Probe transport
	RequestTimeout     time.Duration `validate:"required"`
	DialTimeout        time.Duration `validate:"required"`
	MaxConnsPerHost    int           `validate:"required,min=1"`
	InsecureSkipVerify bool

	// Batch validation
	MaxConcurrency   int `validate:"required,min=1,max=10"`
	MaxBatchKeys     int `validate:"required,min=1"`
	InterBatchDelay  time.Duration
	RetryBackoffBase time.Duration
	JitterMin        time.Duration
	JitterMax        time.Duration

	// Health checking
	HealthTestCount  int `validate:"required,min=1,max=10"`
	HealthProbeDelay time.Duration
	HealthCacheTTL   time.Duration
}

// Load loads and validates the full application configuration.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile("config/.env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetDefault("API_HOST", "127.0.0.1")
	v.SetDefault("PORT", 5000)
	v.SetDefault("REQUEST_TIMEOUT", DefaultRequestTimeout)
	v.SetDefault("DIAL_TIMEOUT", DefaultDialTimeout)
	v.SetDefault("MAX_CONNS_PER_HOST", DefaultMaxConnsPerHost)
	v.SetDefault("TLS_SKIP_VERIFY", false)
	v.SetDefault("MAX_CONCURRENCY", DefaultMaxConcurrency)
	v.SetDefault("MAX_BATCH_KEYS", DefaultMaxBatchKeys)
	v.SetDefault("INTER_BATCH_DELAY", DefaultInterBatchDelay)
	v.SetDefault("RETRY_BACKOFF_BASE", DefaultRetryBackoffBase)
	v.SetDefault("JITTER_MIN", DefaultJitterMin)
	v.SetDefault("JITTER_MAX", DefaultJitterMax)
	v.SetDefault("HEALTH_TEST_COUNT", DefaultHealthTestCount)
	v.SetDefault("HEALTH_PROBE_DELAY", DefaultHealthProbeDelay)
	v.SetDefault("HEALTH_CACHE_TTL", DefaultHealthCacheTTL)

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	appConfig := &Config{
		APIHost:            v.GetString("API_HOST"),
		Port:               v.GetInt("PORT"),
		APIToken:           v.GetString("API_TOKEN"),
		RequestTimeout:     v.GetDuration("REQUEST_TIMEOUT"),
		DialTimeout:        v.GetDuration("DIAL_TIMEOUT"),
		MaxConnsPerHost:    v.GetInt("MAX_CONNS_PER_HOST"),
		InsecureSkipVerify: v.GetBool("TLS_SKIP_VERIFY"),
		MaxConcurrency:     v.GetInt("MAX_CONCURRENCY"),
		MaxBatchKeys:       v.GetInt("MAX_BATCH_KEYS"),
		InterBatchDelay:    v.GetDuration("INTER_BATCH_DELAY"),
		RetryBackoffBase:   v.GetDuration("RETRY_BACKOFF_BASE"),
		JitterMin:          v.GetDuration("JITTER_MIN"),
		JitterMax:          v.GetDuration("JITTER_MAX"),
		HealthTestCount:    v.GetInt("HEALTH_TEST_COUNT"),
		HealthProbeDelay:   v.GetDuration("HEALTH_PROBE_DELAY"),
		HealthCacheTTL:     v.GetDuration("HEALTH_CACHE_TTL"),
	}

	// The jitter window is a pair of values; validator tags can't relate them.
	if appConfig.JitterMax < appConfig.JitterMin {
		return nil, fmt.Errorf("JITTER_MAX must not be below JITTER_MIN")
	}

	if err := validate.Struct(appConfig); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	return appConfig, nil
}
