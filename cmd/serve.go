package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/giantswarm/mcp-openapi/internal/gateway"
	"github.com/giantswarm/mcp-openapi/internal/instrumentation"
	"github.com/giantswarm/mcp-openapi/internal/openapi"
	"github.com/giantswarm/mcp-openapi/internal/server"
)

// defaultCacheTTLSeconds mirrors gateway.DefaultCacheTTL for the flag
// default.
const defaultCacheTTLSeconds = 300

func newServeCmd() *cobra.Command {
	config := ServeConfig{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the OpenAPI MCP gateway",
		Long: `Start the gateway as an MCP server over streamable HTTP.

Each request selects its target API through headers:

  X-Openapi-Url   URL of the OpenAPI specification document (required)
  X-Api-Url       base URL of the API to call (required)
  X-Cookies       cookie string forwarded on every proxied call (optional)

Requests without the two URL headers see only statically registered tools.
Translated specifications are cached per (spec URL, API URL) pair; set
--cache-ttl 0 to disable caching and re-fetch on every request.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if config.DebugMode {
				config.LogLevel = "debug"
			}
			if err := config.Validate(); err != nil {
				return err
			}
			return runServe(config)
		},
	}

	// Environment variables provide the defaults, flags override them.
	cmd.Flags().StringVar(&config.HTTPAddr, "http-addr", envOrDefault("MCP_OPENAPI_HTTP_ADDR", ":8000"), "HTTP server address")
	cmd.Flags().StringVar(&config.Endpoint, "endpoint", envOrDefault("MCP_OPENAPI_ENDPOINT", "/mcp"), "MCP endpoint path")
	cmd.Flags().IntVar(&config.CacheTTLSeconds, "cache-ttl", envIntOrDefault("MCP_OPENAPI_CACHE_TTL", defaultCacheTTLSeconds), "Seconds a translated specification stays cached, 0 disables caching")
	cmd.Flags().DurationVar(&config.FetchTimeout, "fetch-timeout", gateway.DefaultFetchTimeout, "Timeout for fetching a specification document")
	cmd.Flags().StringVar(&config.LogLevel, "log-level", envOrDefault("MCP_OPENAPI_LOG_LEVEL", "info"), "Log level: debug, info, warn, or error")
	cmd.Flags().StringVar(&config.LogFormat, "log-format", envOrDefault("MCP_OPENAPI_LOG_FORMAT", "json"), "Log format: json or text")
	cmd.Flags().BoolVar(&config.DebugMode, "debug", false, "Enable debug logging (shorthand for --log-level debug)")
	cmd.Flags().BoolVar(&config.Metrics.Enabled, "enable-metrics", false, "Serve Prometheus metrics on a dedicated port")
	cmd.Flags().StringVar(&config.Metrics.Addr, "metrics-addr", envOrDefault("MCP_OPENAPI_METRICS_ADDR", server.DefaultMetricsAddr), "Metrics server address")
	cmd.Flags().StringVar(&config.AllowedOrigins, "allowed-origins", envOrDefault("MCP_OPENAPI_ALLOWED_ORIGINS", ""), "Comma-separated CORS origins for browser-based clients")

	return cmd
}

// runServe wires the gateway together and serves until interrupted.
func runServe(config ServeConfig) error {
	logger := newLogger(config)
	slog.SetDefault(logger)

	// Listen for both SIGINT and SIGTERM
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Initialize OpenTelemetry instrumentation from the environment
	instrumentationConfig := instrumentation.DefaultConfig()
	instrumentationConfig.ServiceVersion = rootCmd.Version
	instrumentationProvider, err := instrumentation.NewProvider(shutdownCtx, instrumentationConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if shutdownErr := instrumentationProvider.Shutdown(context.Background()); shutdownErr != nil {
			logger.Error("error during instrumentation shutdown", "error", shutdownErr)
		}
	}()

	if instrumentationProvider.Enabled() {
		logger.Info("OpenTelemetry instrumentation enabled",
			"metrics", instrumentationConfig.MetricsExporter,
			"tracing", instrumentationConfig.TracingExporter)
	}

	// The origin cache owns spec fetching, tool translation and the
	// per-origin HTTP clients.
	cache := gateway.NewOriginCache(gateway.CacheConfig{
		TTL:          config.CacheTTL(),
		Builder:      openapi.Translate,
		FetchTimeout: config.FetchTimeout,
		Metrics:      &instrumentation.CacheCallback{Metrics: instrumentationProvider.Metrics()},
		Logger:       logger,
	})

	serverContext, err := server.NewServerContext(shutdownCtx,
		server.WithCache(cache),
		server.WithRegistry(server.NewRegistry()),
		server.WithLogger(logger),
		server.WithVersion(rootCmd.Version),
		server.WithInstrumentationProvider(instrumentationProvider),
	)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if shutdownErr := serverContext.Shutdown(); shutdownErr != nil {
			logger.Error("error during server context shutdown", "error", shutdownErr)
		}
	}()

	if config.CacheTTL() > 0 {
		logger.Info("origin cache enabled", "ttl", config.CacheTTL())
	} else {
		logger.Info("origin cache disabled, specifications are fetched per request")
	}

	return runStreamableHTTPServer(shutdownCtx, serverContext, config)
}

// newLogger builds the process logger from the serve configuration.
func newLogger(config ServeConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(config.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if config.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
