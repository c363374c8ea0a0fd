// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults come from New; Load layers a YAML file and env vars on top.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"runtime"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr" validate:"required"`

	// SuperadminToken is the bearer token required on privileged routes.
	SuperadminToken string `koanf:"superadmin_token" validate:"required"`

	// EvaluationBaseURL locates the external evaluation pipeline.
	EvaluationBaseURL string `koanf:"evaluation_base_url" validate:"required,url"`

	// EvaluationTimeoutSeconds bounds each evaluation service call.
	EvaluationTimeoutSeconds int `koanf:"evaluation_timeout_seconds" validate:"gt=0"`

	// LeaseTTLSeconds is how long a distribution lease is held before a
	// stalled run's lease may be reclaimed.
	LeaseTTLSeconds int `koanf:"lease_ttl_seconds" validate:"gt=0"`

	// PoolCacheTTLSeconds and PoolCacheSize bound the pool response cache.
	PoolCacheTTLSeconds int `koanf:"pool_cache_ttl_seconds" validate:"gt=0"`
	PoolCacheSize       int `koanf:"pool_cache_size" validate:"gt=0"`

	// PoolQueryParallelism bounds concurrent membership queries.
	PoolQueryParallelism int `koanf:"pool_query_parallelism" validate:"gt=0"`

	// RateLimitRPS and RateLimitBurst shape the API token bucket.
	RateLimitRPS   float64 `koanf:"rate_limit_rps" validate:"gt=0"`
	RateLimitBurst int     `koanf:"rate_limit_burst" validate:"gt=0"`

	// ExposeErrorDetail includes internal error text in 500 responses.
	// Keep false outside development.
	ExposeErrorDetail bool `koanf:"expose_error_detail"`

	// SeedFile optionally points at a YAML fixture loaded into the
	// in-memory store at startup.
	SeedFile string `koanf:"seed_file"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:                 "info",
		Addr:                     ":9090",
		SuperadminToken:          "",
		EvaluationBaseURL:        "http://localhost:9091",
		EvaluationTimeoutSeconds: 30,
		LeaseTTLSeconds:          30,
		PoolCacheTTLSeconds:      30,
		PoolCacheSize:            64,
		PoolQueryParallelism:     runtime.NumCPU(),
		RateLimitRPS:             20,
		RateLimitBurst:           40,
	}
}
