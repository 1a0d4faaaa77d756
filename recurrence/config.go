package recurrence

import (
	"io"
	"log/slog"
)

// EngineConfig holds configuration options for the recurrence engine
type EngineConfig struct {
	// Cache configuration
	CacheEnabled bool
	CacheConfig  CacheConfig

	// Logger receives debug output about generation. Nil disables logging.
	Logger *slog.Logger
}

// DefaultEngineConfig memoises previews with the default cache settings
var DefaultEngineConfig = EngineConfig{
	CacheEnabled: true,
	CacheConfig:  DefaultCacheConfig,
}

// DisabledCacheConfig turns off caching entirely
var DisabledCacheConfig = EngineConfig{
	CacheEnabled: false,
}

// Option modifies an EngineConfig
type Option func(*EngineConfig)

// WithCache enables preview memoisation with the given settings
func WithCache(config CacheConfig) Option {
	return func(c *EngineConfig) {
		c.CacheEnabled = true
		c.CacheConfig = config
	}
}

// WithoutCache disables preview memoisation
func WithoutCache() Option {
	return func(c *EngineConfig) {
		c.CacheEnabled = false
	}
}

// WithLogger sets the logger for the engine
func WithLogger(logger *slog.Logger) Option {
	return func(c *EngineConfig) {
		c.Logger = logger
	}
}

func (c *EngineConfig) normalize() {
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}
