// Path: internal/config/constants.go
package config

import "time"

const (
	// Server configuration defaults. The write timeout must cover a full
	// synchronous batch validation, which can spend minutes in retries and
	// inter-group delays.
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 10 * time.Minute
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 5 * time.Second
)

const (
	// Probe transport defaults
	DefaultRequestTimeout  = 30 * time.Second
	DefaultDialTimeout     = 10 * time.Second
	DefaultMaxConnsPerHost = 10

	// Batch validation defaults
	DefaultMaxConcurrency   = 3
	DefaultMaxBatchKeys     = 100
	DefaultInterBatchDelay  = 2 * time.Second
	DefaultRetryBackoffBase = 2 * time.Second
	DefaultJitterMin        = 1 * time.Second
	DefaultJitterMax        = 2 * time.Second

	// Health check defaults
	DefaultHealthTestCount  = 3
	DefaultHealthProbeDelay = 500 * time.Millisecond
	DefaultHealthCacheTTL   = 300 * time.Second
)
