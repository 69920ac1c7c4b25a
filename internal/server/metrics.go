package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/giantswarm/mcp-openapi/internal/instrumentation"
)

// DefaultMetricsAddr is the default listen address for the dedicated
// metrics server.
const DefaultMetricsAddr = ":9090"

// DefaultShutdownTimeout bounds a graceful HTTP server shutdown.
const DefaultShutdownTimeout = 10 * time.Second

// MetricsServerConfig holds configuration for the dedicated metrics server.
type MetricsServerConfig struct {
	// Addr is the listen address. Defaults to DefaultMetricsAddr.
	Addr string

	// Enabled reports whether metrics serving was requested.
	Enabled bool

	// InstrumentationProvider supplies the Prometheus registry. Required.
	InstrumentationProvider *instrumentation.Provider
}

// MetricsServer serves Prometheus metrics on a dedicated port, isolated
// from the MCP traffic so the metrics endpoint is never exposed alongside
// the public API.
type MetricsServer struct {
	addr   string
	server *http.Server
}

// NewMetricsServer creates the metrics server. The provider must be set;
// its Prometheus registry backs the /metrics endpoint.
func NewMetricsServer(config MetricsServerConfig) (*MetricsServer, error) {
	if config.InstrumentationProvider == nil {
		return nil, errors.New("instrumentation provider is required")
	}

	addr := config.Addr
	if addr == "" {
		addr = DefaultMetricsAddr
	}

	mux := http.NewServeMux()

	registry := config.InstrumentationProvider.PrometheusRegistry()
	if registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	} else {
		// The provider is exporting elsewhere (otlp, stdout); still expose
		// the endpoint so scrapes do not 404.
		mux.Handle("/metrics", promhttp.Handler())
	}

	// A minimal liveness endpoint so the metrics port can be probed.
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &MetricsServer{
		addr: addr,
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Addr returns the configured listen address.
func (m *MetricsServer) Addr() string {
	return m.addr
}

// Start listens and serves until Shutdown is called. It returns
// http.ErrServerClosed after a graceful shutdown.
func (m *MetricsServer) Start() error {
	return m.server.ListenAndServe()
}

// Shutdown gracefully stops the metrics server.
func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.server.Shutdown(ctx)
}
