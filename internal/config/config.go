// Package config defines service configuration structures and loading hooks.
//
// Durations are configured as integer milliseconds or seconds, matching the
// keys operators already use; the accessor methods convert them.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory message queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of message workers. One keeps feed order.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets how many message keys are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// TickIntervalMS is the period of the display tick.
	TickIntervalMS int `koanf:"tick_interval_ms"`

	// Display cycle timings.
	LastUnlockedSeconds int `koanf:"last_unlocked_seconds"`
	LockedSeconds       int `koanf:"locked_seconds"`
	RotationSeconds     int `koanf:"rotation_seconds"`
	MaxSubscribers      int `koanf:"max_subscribers"`

	// BaseGamerscore is the gamerscore earned before the session started.
	BaseGamerscore int64 `koanf:"base_gamerscore"`

	// IconCacheDir stores downloaded achievement icons. Empty disables
	// prefetching.
	IconCacheDir         string `koanf:"icon_cache_dir"`
	IconFetchConcurrency int    `koanf:"icon_fetch_concurrency"`
	IconFetchTimeoutMS   int    `koanf:"icon_fetch_timeout_ms"`

	// RedisAddr enables the redis broadcaster when set.
	RedisAddr          string `koanf:"redis_addr"`
	RedisChannelPrefix string `koanf:"redis_channel_prefix"`

	// CORSOrigins lists origins allowed to call the API from a browser.
	CORSOrigins []string `koanf:"cors_origins"`
}

// New creates a Config holding the defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":9080",
		QueueSize:            1024,
		WorkerCount:          1,
		DedupeSize:           4096,
		TickIntervalMS:       100,
		LastUnlockedSeconds:  45,
		LockedSeconds:        30,
		RotationSeconds:      120,
		MaxSubscribers:       16,
		IconFetchConcurrency: 4,
		IconFetchTimeoutMS:   5000,
		RedisChannelPrefix:   "trophycase",
		CORSOrigins:          []string{"*"},
	}
}

// TickInterval returns the display tick period.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMS) * time.Millisecond
}

// LastUnlockedDuration returns how long the last unlock is shown.
func (c *Config) LastUnlockedDuration() time.Duration {
	return time.Duration(c.LastUnlockedSeconds) * time.Second
}

// LockedDuration returns how long each locked achievement is shown.
func (c *Config) LockedDuration() time.Duration {
	return time.Duration(c.LockedSeconds) * time.Second
}

// RotationDuration returns the length of the locked rotation.
func (c *Config) RotationDuration() time.Duration {
	return time.Duration(c.RotationSeconds) * time.Second
}

// IconFetchTimeout returns the per-icon download timeout.
func (c *Config) IconFetchTimeout() time.Duration {
	return time.Duration(c.IconFetchTimeoutMS) * time.Millisecond
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.TickIntervalMS <= 0:
		return fmt.Errorf("%w: tick_interval_ms must be positive", ErrInvalidConfig)
	case c.LastUnlockedSeconds <= 0 || c.LockedSeconds <= 0 || c.RotationSeconds <= 0:
		return fmt.Errorf("%w: display durations must be positive", ErrInvalidConfig)
	case c.MaxSubscribers <= 0:
		return fmt.Errorf("%w: max_subscribers must be positive", ErrInvalidConfig)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}
