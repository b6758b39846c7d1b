// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New builds a Config with defaults; Load layers file and env on top.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/okian/stagely/internal/domain/consensus"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Store selects the catalog and rating backend: memory or postgres.
	Store string `koanf:"store"`
	// SeedFile is an optional YAML fixture loaded into the memory store.
	SeedFile string `koanf:"seed_file"`
	// DatabaseURL is the lib/pq connection string for the postgres store.
	DatabaseURL string `koanf:"database_url"`

	// RedisAddr enables the Redis plan cache when set.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	// CacheTTLSeconds bounds how long a computed plan is reused.
	CacheTTLSeconds int `koanf:"cache_ttl_seconds"`

	// JWTSecret is the HS256 signing secret. Empty enables X-Member-ID.
	JWTSecret string `koanf:"jwt_secret"`

	// EventQueueSize bounds the rating event queue.
	EventQueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of rating event workers.
	WorkerCount int `koanf:"worker_count"`
	// DedupeSize bounds the idempotency key tracker.
	DedupeSize int `koanf:"dedupe_size"`

	OverlapToleranceMinutes int               `koanf:"overlap_tolerance_minutes"`
	GapThresholdMinutes     int               `koanf:"gap_threshold_minutes"`
	SlotMinutes             int               `koanf:"slot_minutes"`
	Weights                 consensus.Weights `koanf:"weights"`

	BreakerFailureThreshold int `koanf:"breaker_failure_threshold"`
	BreakerTimeoutSeconds   int `koanf:"breaker_timeout_seconds"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:                "info",
		LogFormat:               "text",
		Addr:                    ":9080",
		Store:                   StoreMemory,
		CacheTTLSeconds:         300,
		EventQueueSize:          10_000,
		WorkerCount:             runtime.NumCPU(),
		DedupeSize:              50_000,
		OverlapToleranceMinutes: 30,
		GapThresholdMinutes:     5,
		SlotMinutes:             15,
		Weights:                 consensus.DefaultWeights,
		BreakerFailureThreshold: 5,
		BreakerTimeoutSeconds:   30,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate(_ context.Context) error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.Store != StoreMemory && c.Store != StorePostgres:
		return fmt.Errorf("%w: unknown store %q", ErrInvalidConfig, c.Store)
	case c.Store == StorePostgres && c.DatabaseURL == "":
		return fmt.Errorf("%w: database_url is required for the postgres store", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.LogFormat)
	case c.EventQueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.SlotMinutes <= 0:
		return fmt.Errorf("%w: slot_minutes must be positive", ErrInvalidConfig)
	case c.OverlapToleranceMinutes < 0 || c.GapThresholdMinutes < 0:
		return fmt.Errorf("%w: tolerances must not be negative", ErrInvalidConfig)
	case c.CacheTTLSeconds < 0:
		return fmt.Errorf("%w: cache_ttl_seconds must not be negative", ErrInvalidConfig)
	case c.BreakerFailureThreshold < 0 || c.BreakerTimeoutSeconds < 0:
		return fmt.Errorf("%w: breaker settings must not be negative", ErrInvalidConfig)
	}
	if err := c.Weights.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
