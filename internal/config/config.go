// Package config loads and validates application configuration from
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// StoreBackend selects which store.ObjectStore implementation to open.
type StoreBackend string

const (
	BackendFilesystem StoreBackend = "fs"
	BackendPostgres   StoreBackend = "postgres"
)

// CacheBackend selects which confidence cache implementation to open.
type CacheBackend string

const (
	CacheBackendMemory CacheBackend = "memory"
	CacheBackendSQLite CacheBackend = "sqlite"
)

// Config holds all application configuration. Every knob is tunable
// configuration, not a law — nothing here is a magic
// constant baked into core logic.
type Config struct {
	// Store settings.
	RepoPath      string
	StoreBackend  StoreBackend
	PostgresURL   string
	PostgresNotifyURL string

	// Event algebra / confidence engine settings.
	MaxDepth                 int
	MaxParallelDescent       int
	VolatilityK              float64
	CacheCapacity            int
	CacheBackend             CacheBackend
	CachePath                string
	MergeConfidenceThreshold float64
	DefaultBranch            string

	// OTEL settings.
	OTELEndpoint string
	OTELInsecure bool
	ServiceName  string

	// Operational settings.
	LogLevel string
}

// Load reads configuration from environment variables with sensible
// defaults. Missing variables use defaults; only malformed values are
// rejected, collected into a single aggregated error.
func Load() (Config, error) {
	var errs []error
	cfg := Config{
		RepoPath:          envStr("VERITAS_REPO_PATH", ".veritas"),
		StoreBackend:      StoreBackend(envStr("VERITAS_STORE_BACKEND", string(BackendFilesystem))),
		PostgresURL:       envStr("VERITAS_POSTGRES_URL", ""),
		PostgresNotifyURL: envStr("VERITAS_POSTGRES_NOTIFY_URL", ""),
		CacheBackend:      CacheBackend(envStr("VERITAS_CACHE_BACKEND", string(CacheBackendMemory))),
		CachePath:         envStr("VERITAS_CACHE_PATH", ""),
		DefaultBranch:     envStr("VERITAS_DEFAULT_BRANCH", "main"),
		OTELEndpoint:      envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:       envStr("OTEL_SERVICE_NAME", "veritaschain"),
		LogLevel:          envStr("VERITAS_LOG_LEVEL", "info"),
	}

	cfg.MaxDepth, errs = collectInt(errs, "VERITAS_MAX_DEPTH", 10)
	cfg.MaxParallelDescent, errs = collectInt(errs, "VERITAS_MAX_PARALLEL_DESCENT", 8)
	cfg.CacheCapacity, errs = collectInt(errs, "VERITAS_CACHE_CAPACITY", 10000)
	cfg.VolatilityK, errs = collectFloat(errs, "VERITAS_VOLATILITY_K", 10.0)
	cfg.MergeConfidenceThreshold, errs = collectFloat(errs, "VERITAS_MERGE_CONFIDENCE_THRESHOLD", 0.05)
	cfg.OTELInsecure, errs = collectBool(errs, "OTEL_EXPORTER_OTLP_INSECURE", false)

	if len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return Config{}, fmt.Errorf("config: invalid environment variables:\n  %s", strings.Join(msgs, "\n  "))
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// collectInt parses an int env var, appending any error to the accumulator.
func collectInt(errs []error, key string, fallback int) (int, []error) {
	v, err := envInt(key, fallback)
	if err != nil {
		errs = append(errs, err)
	}
	return v, errs
}

// collectFloat parses a float64 env var, appending any error to the accumulator.
func collectFloat(errs []error, key string, fallback float64) (float64, []error) {
	v, err := envFloat(key, fallback)
	if err != nil {
		errs = append(errs, err)
	}
	return v, errs
}

// collectBool parses a bool env var, appending any error to the accumulator.
func collectBool(errs []error, key string, fallback bool) (bool, []error) {
	v, err := envBool(key, fallback)
	if err != nil {
		errs = append(errs, err)
	}
	return v, errs
}

// Validate checks that required configuration is present and sane.
func (c Config) Validate() error {
	var errs []error

	switch c.StoreBackend {
	case BackendFilesystem:
		if c.RepoPath == "" {
			errs = append(errs, errors.New("config: VERITAS_REPO_PATH is required for the fs backend"))
		}
	case BackendPostgres:
		if c.PostgresURL == "" {
			errs = append(errs, errors.New("config: VERITAS_POSTGRES_URL is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: VERITAS_STORE_BACKEND %q must be %q or %q", c.StoreBackend, BackendFilesystem, BackendPostgres))
	}
	if c.MaxDepth <= 0 {
		errs = append(errs, errors.New("config: VERITAS_MAX_DEPTH must be positive"))
	}
	if c.MaxParallelDescent <= 0 {
		errs = append(errs, errors.New("config: VERITAS_MAX_PARALLEL_DESCENT must be positive"))
	}
	if c.VolatilityK <= 0 {
		errs = append(errs, errors.New("config: VERITAS_VOLATILITY_K must be positive"))
	}
	if c.CacheCapacity <= 0 {
		errs = append(errs, errors.New("config: VERITAS_CACHE_CAPACITY must be positive"))
	}
	switch c.CacheBackend {
	case CacheBackendMemory:
	case CacheBackendSQLite:
		if c.CachePath == "" {
			errs = append(errs, errors.New("config: VERITAS_CACHE_PATH is required for the sqlite cache backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: VERITAS_CACHE_BACKEND %q must be %q or %q", c.CacheBackend, CacheBackendMemory, CacheBackendSQLite))
	}
	if c.MergeConfidenceThreshold < 0 || c.MergeConfidenceThreshold > 1 {
		errs = append(errs, errors.New("config: VERITAS_MERGE_CONFIDENCE_THRESHOLD must be between 0 and 1"))
	}
	if c.DefaultBranch == "" {
		errs = append(errs, errors.New("config: VERITAS_DEFAULT_BRANCH is required"))
	}

	return errors.Join(errs...)
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid integer", key, v)
	}
	return n, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid number", key, v)
	}
	return f, nil
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s=%q is not a valid boolean", key, v)
	}
	return b, nil
}
