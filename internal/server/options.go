package server

import (
	"errors"
	"log/slog"

	"github.com/giantswarm/mcp-openapi/internal/gateway"
	"github.com/giantswarm/mcp-openapi/internal/instrumentation"
)

// Option is a functional option for configuring ServerContext.
type Option func(*ServerContext) error

// WithCache sets the per-origin resource cache for the ServerContext.
func WithCache(cache *gateway.OriginCache) Option {
	return func(sc *ServerContext) error {
		if cache == nil {
			return ErrMissingCache
		}
		sc.cache = cache
		return nil
	}
}

// WithRegistry sets the static tool registry.
func WithRegistry(registry *Registry) Option {
	return func(sc *ServerContext) error {
		if registry == nil {
			return ErrMissingRegistry
		}
		sc.registry = registry
		return nil
	}
}

// WithLogger sets the logger for the ServerContext.
func WithLogger(logger *slog.Logger) Option {
	return func(sc *ServerContext) error {
		if logger == nil {
			return ErrMissingLogger
		}
		sc.logger = logger
		return nil
	}
}

// WithConfig sets the configuration for the ServerContext.
func WithConfig(config *Config) Option {
	return func(sc *ServerContext) error {
		if config == nil {
			return ErrMissingConfig
		}
		sc.config = config.Clone()
		return nil
	}
}

// WithServerName sets the server name in the configuration.
func WithServerName(name string) Option {
	return func(sc *ServerContext) error {
		if sc.config == nil {
			sc.config = NewDefaultConfig()
		}
		sc.config.ServerName = name
		return nil
	}
}

// WithVersion sets the server version reported on initialize and health
// endpoints.
func WithVersion(version string) Option {
	return func(sc *ServerContext) error {
		if sc.config == nil {
			sc.config = NewDefaultConfig()
		}
		sc.config.Version = version
		return nil
	}
}

// WithInstrumentationProvider sets the OpenTelemetry instrumentation
// provider. This enables metrics and tracing.
func WithInstrumentationProvider(provider *instrumentation.Provider) Option {
	return func(sc *ServerContext) error {
		sc.instrumentationProvider = provider
		return nil
	}
}

// Error definitions for ServerContext validation.
var (
	ErrMissingCache    = errors.New("origin cache is required")
	ErrMissingRegistry = errors.New("tool registry is required")
	ErrMissingLogger   = errors.New("logger is required")
	ErrMissingConfig   = errors.New("configuration is required")
)
