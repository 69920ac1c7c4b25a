package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/giantswarm/mcp-openapi/internal/server"
	"github.com/giantswarm/mcp-openapi/internal/server/middleware"
)

// runStreamableHTTPServer runs the gateway over streamable HTTP until the
// context is cancelled. The MCP server and the optional metrics server run
// in one errgroup so a failure in either tears both down.
func runStreamableHTTPServer(ctx context.Context, sc *server.ServerContext, config ServeConfig) error {
	logger := sc.Logger()
	provider := sc.InstrumentationProvider()

	mux := http.NewServeMux()
	mux.Handle(config.Endpoint, server.NewStreamableHTTPHandler(sc))

	// Health check endpoints
	healthChecker := server.NewHealthChecker(sc)
	healthChecker.RegisterHealthEndpoints(mux)

	logger.Info("streamable HTTP server starting",
		"addr", config.HTTPAddr,
		"endpoint", config.Endpoint,
		"health_endpoints", []string{"/healthz", "/readyz"})

	// Cross-cutting middleware; metrics live on a dedicated server.
	var handler http.Handler = mux
	handler = middleware.SecurityHeaders(middleware.SecurityHeadersConfig{})(handler)
	if config.AllowedOrigins != "" {
		origins, err := middleware.ValidateAllowedOrigins(config.AllowedOrigins)
		if err != nil {
			return fmt.Errorf("invalid allowed origins: %w", err)
		}
		handler = middleware.CORS(origins)(handler)
	}
	handler = middleware.HTTPMetrics(provider)(handler)

	var metricsServer *server.MetricsServer
	if config.Metrics.Enabled && provider != nil && provider.Enabled() {
		var err error
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    config.Metrics.Addr,
			Enabled:                 config.Metrics.Enabled,
			InstrumentationProvider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
	}

	// HTTP server with security timeouts
	httpServer := &http.Server{
		Addr:              config.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
		return nil
	})

	if metricsServer != nil {
		logger.Info("metrics server starting", "addr", metricsServer.Addr(), "endpoint", "/metrics")
		g.Go(func() error {
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server stopped with error: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received, stopping HTTP server")
		healthChecker.SetReady(false)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()

		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("error shutting down metrics server", "error", err)
			}
		}
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("HTTP server gracefully stopped")
	return nil
}
