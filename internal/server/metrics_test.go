package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/mcp-openapi/internal/instrumentation"
)

// createTestProvider builds an enabled instrumentation provider backed by
// an in-process Prometheus registry.
func createTestProvider(t *testing.T) *instrumentation.Provider {
	t.Helper()

	config := instrumentation.Config{
		ServiceName:     "mcp-openapi-test",
		ServiceVersion:  "test",
		Enabled:         true,
		MetricsExporter: "prometheus",
		TracingExporter: "none",
	}

	provider, err := instrumentation.NewProvider(context.Background(), config)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = provider.Shutdown(ctx)
	})
	return provider
}

func TestNewMetricsServer(t *testing.T) {
	t.Run("requires a provider", func(t *testing.T) {
		_, err := NewMetricsServer(MetricsServerConfig{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "instrumentation provider is required")
	})

	t.Run("defaults the listen address", func(t *testing.T) {
		srv, err := NewMetricsServer(MetricsServerConfig{
			InstrumentationProvider: createTestProvider(t),
		})
		require.NoError(t, err)
		assert.Equal(t, DefaultMetricsAddr, srv.Addr())
	})

	t.Run("honors a custom listen address", func(t *testing.T) {
		srv, err := NewMetricsServer(MetricsServerConfig{
			Addr:                    ":9191",
			InstrumentationProvider: createTestProvider(t),
		})
		require.NoError(t, err)
		assert.Equal(t, ":9191", srv.Addr())
	})
}

func TestMetricsServerEndpoints(t *testing.T) {
	provider := createTestProvider(t)

	srv, err := NewMetricsServer(MetricsServerConfig{
		Addr:                    "127.0.0.1:0",
		InstrumentationProvider: provider,
	})
	require.NoError(t, err)

	// Exercise the handler directly instead of binding a port.
	handler := srv.server.Handler

	t.Run("metrics", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, rec.Body.String())
	})

	t.Run("healthz", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ok", rec.Body.String())
	})
}

func TestMetricsServerStartAndShutdown(t *testing.T) {
	srv, err := NewMetricsServer(MetricsServerConfig{
		Addr:                    "127.0.0.1:0",
		InstrumentationProvider: createTestProvider(t),
	})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- srv.Start()
	}()

	// Let the listener come up before shutting it down.
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	select {
	case err := <-done:
		assert.ErrorIs(t, err, http.ErrServerClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("metrics server did not stop")
	}
}
