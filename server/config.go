package server

import (
	"log/slog"

	"github.com/cyp0633/libslots/server/auth"
	"github.com/cyp0633/libslots/slot"
)

// HandlerConfig contains configuration for the slot HTTP handler
type HandlerConfig struct {
	// Locale selects the language of month headers and range labels.
	Locale slot.Locale

	// Summary is the event title of calendar exports.
	Summary string

	// CustomHeaders allows adding custom headers to responses
	CustomHeaders map[string]string

	// MaxBodyBytes caps request bodies. Zero means 1 MiB.
	MaxBodyBytes int64

	// Authenticator, if set, guards every endpoint except /health.
	Authenticator auth.Authenticator
	Realm         string

	// Logger is the slog.Logger to use for logging
	// If nil, logging is disabled
	Logger *slog.Logger
}

// Option is a function that modifies HandlerConfig
type Option func(*HandlerConfig)

// WithLocale sets the label locale
func WithLocale(locale slot.Locale) Option {
	return func(c *HandlerConfig) {
		c.Locale = locale
	}
}

// WithSummary sets the event title of calendar exports
func WithSummary(summary string) Option {
	return func(c *HandlerConfig) {
		c.Summary = summary
	}
}

// WithCustomHeaders sets custom response headers
func WithCustomHeaders(headers map[string]string) Option {
	return func(c *HandlerConfig) {
		c.CustomHeaders = headers
	}
}

// WithMaxBodyBytes caps request bodies
func WithMaxBodyBytes(n int64) Option {
	return func(c *HandlerConfig) {
		c.MaxBodyBytes = n
	}
}

// WithAuthenticator requires credentials accepted by a
func WithAuthenticator(a auth.Authenticator, realm string) Option {
	return func(c *HandlerConfig) {
		c.Authenticator = a
		c.Realm = realm
	}
}

// WithLogger sets the logger for the handler
func WithLogger(logger *slog.Logger) Option {
	return func(c *HandlerConfig) {
		c.Logger = logger
	}
}
