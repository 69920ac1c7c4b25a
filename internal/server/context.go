package server

import (
	"context"
	"log/slog"
	"sync"

	"github.com/giantswarm/mcp-openapi/internal/gateway"
	"github.com/giantswarm/mcp-openapi/internal/instrumentation"
)

// ServerContext encapsulates all dependencies needed by the MCP gateway
// server and provides a clean abstraction for dependency injection and
// lifecycle management.
type ServerContext struct {
	// Core dependencies
	cache      *gateway.OriginCache
	middleware *gateway.Middleware
	registry   *Registry
	logger     *slog.Logger
	config     *Config

	// Instrumentation
	instrumentationProvider *instrumentation.Provider

	// Context management
	ctx    context.Context
	cancel context.CancelFunc

	// Lifecycle management
	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a new ServerContext with default values.
// Use the provided functional options to customize the context.
func NewServerContext(ctx context.Context, opts ...Option) (*ServerContext, error) {
	serverCtx, cancel := context.WithCancel(ctx)

	sc := &ServerContext{
		ctx:      serverCtx,
		cancel:   cancel,
		config:   NewDefaultConfig(),
		logger:   slog.Default(),
		registry: NewRegistry(),
	}

	for _, opt := range opts {
		if err := opt(sc); err != nil {
			cancel()
			return nil, err
		}
	}

	if err := sc.validate(); err != nil {
		cancel()
		return nil, err
	}

	sc.middleware = gateway.NewMiddleware(sc.cache, sc.logger)

	return sc, nil
}

// Context returns the server context for cancellation and deadlines.
func (sc *ServerContext) Context() context.Context {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.ctx
}

// Cache returns the per-origin resource cache.
func (sc *ServerContext) Cache() *gateway.OriginCache {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.cache
}

// Middleware returns the gateway dispatch middleware.
func (sc *ServerContext) Middleware() *gateway.Middleware {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.middleware
}

// Registry returns the static tool registry.
func (sc *ServerContext) Registry() *Registry {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.registry
}

// Logger returns the logger.
func (sc *ServerContext) Logger() *slog.Logger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.logger
}

// Config returns the server configuration.
func (sc *ServerContext) Config() *Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.config
}

// InstrumentationProvider returns the instrumentation provider, or nil when
// instrumentation is not configured.
func (sc *ServerContext) InstrumentationProvider() *instrumentation.Provider {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.instrumentationProvider
}

// Shutdown gracefully shuts down the server context. It closes the origin
// cache, which releases every per-origin HTTP client, and cancels the
// context. Idempotent.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.logger.Info("shutting down server context")

	if sc.cache != nil {
		sc.cache.Close()
	}

	if sc.cancel != nil {
		sc.cancel()
	}

	sc.shutdown = true

	sc.logger.Info("server context shutdown complete")
	return nil
}

// IsShutdown returns true if the server context has been shut down.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// validate ensures all required dependencies are set.
func (sc *ServerContext) validate() error {
	if sc.cache == nil {
		return ErrMissingCache
	}
	if sc.logger == nil {
		return ErrMissingLogger
	}
	if sc.config == nil {
		return ErrMissingConfig
	}
	if sc.registry == nil {
		return ErrMissingRegistry
	}
	return nil
}

// Config holds the server configuration.
type Config struct {
	// Server identity
	ServerName string `json:"serverName"`
	Version    string `json:"version"`

	// Transport settings
	HTTPAddr string `json:"httpAddr"`
	Endpoint string `json:"endpoint"`

	// Logging settings
	LogLevel  string `json:"logLevel"`
	LogFormat string `json:"logFormat"`
}

// NewDefaultConfig creates a configuration with sensible defaults.
func NewDefaultConfig() *Config {
	return &Config{
		ServerName: "mcp-openapi",
		Version:    "0.1.0",
		HTTPAddr:   ":8000",
		Endpoint:   "/mcp",
		LogLevel:   "info",
		LogFormat:  "json",
	}
}

// Clone creates a copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}
