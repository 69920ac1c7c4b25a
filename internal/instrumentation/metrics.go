package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys.
const (
	attrMethod = "method"
	attrPath   = "path"
	attrStatus = "status"
	attrKind   = "kind"
	attrReason = "reason"
)

// Tool call kinds.
const (
	ToolKindDynamic = "dynamic"
	ToolKindStatic  = "static"
)

// Statuses for operation metrics.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Metrics provides methods for recording observability metrics.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	// Gateway metrics
	specFetchTotal      metric.Int64Counter
	toolCallsTotal      metric.Int64Counter
	toolCallDuration    metric.Float64Histogram
	cacheHitsTotal      metric.Int64Counter
	cacheMissesTotal    metric.Int64Counter
	cacheEvictionsTotal metric.Int64Counter
	cacheSize           metric.Int64Gauge
}

// NewMetrics creates a new Metrics instance with all instruments initialized.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	m.specFetchTotal, err = meter.Int64Counter(
		"gateway_spec_fetch_total",
		metric.WithDescription("Total number of OpenAPI specification fetches"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway_spec_fetch_total counter: %w", err)
	}

	m.toolCallsTotal, err = meter.Int64Counter(
		"gateway_tool_calls_total",
		metric.WithDescription("Total number of tool calls routed by the gateway"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway_tool_calls_total counter: %w", err)
	}

	m.toolCallDuration, err = meter.Float64Histogram(
		"gateway_tool_call_duration_seconds",
		metric.WithDescription("Tool call duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway_tool_call_duration_seconds histogram: %w", err)
	}

	m.cacheHitsTotal, err = meter.Int64Counter(
		"gateway_spec_cache_hits_total",
		metric.WithDescription("Total number of origin cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway_spec_cache_hits_total counter: %w", err)
	}

	m.cacheMissesTotal, err = meter.Int64Counter(
		"gateway_spec_cache_misses_total",
		metric.WithDescription("Total number of origin cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway_spec_cache_misses_total counter: %w", err)
	}

	m.cacheEvictionsTotal, err = meter.Int64Counter(
		"gateway_spec_cache_evictions_total",
		metric.WithDescription("Total number of origin cache evictions"),
		metric.WithUnit("{eviction}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway_spec_cache_evictions_total counter: %w", err)
	}

	m.cacheSize, err = meter.Int64Gauge(
		"gateway_spec_cache_size",
		metric.WithDescription("Current number of entries in the origin cache"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway_spec_cache_size gauge: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordSpecFetch records an OpenAPI specification fetch attempt.
func (m *Metrics) RecordSpecFetch(ctx context.Context, status string) {
	if m == nil || m.specFetchTotal == nil {
		return
	}
	m.specFetchTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrStatus, status)))
}

// RecordToolCall records a routed tool call with its kind (dynamic tools
// are proxied upstream, static tools run in-process), status and duration.
func (m *Metrics) RecordToolCall(ctx context.Context, kind, status string, duration time.Duration) {
	if m == nil || m.toolCallsTotal == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrKind, kind),
		attribute.String(attrStatus, status),
	}
	m.toolCallsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolCallDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// CacheCallback adapts Metrics to the origin cache's metrics callback
// interface. The zero value (nil metrics) is a safe no-op.
type CacheCallback struct {
	Metrics *Metrics
}

// OnCacheHit records a cache hit.
func (c *CacheCallback) OnCacheHit() {
	if c.Metrics == nil || c.Metrics.cacheHitsTotal == nil {
		return
	}
	c.Metrics.cacheHitsTotal.Add(context.Background(), 1)
}

// OnCacheMiss records a cache miss.
func (c *CacheCallback) OnCacheMiss() {
	if c.Metrics == nil || c.Metrics.cacheMissesTotal == nil {
		return
	}
	c.Metrics.cacheMissesTotal.Add(context.Background(), 1)
}

// OnCacheEviction records a cache eviction with the given reason.
func (c *CacheCallback) OnCacheEviction(reason string) {
	if c.Metrics == nil || c.Metrics.cacheEvictionsTotal == nil {
		return
	}
	c.Metrics.cacheEvictionsTotal.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(attrReason, reason)))
}

// OnCacheSizeChange records the current cache size.
func (c *CacheCallback) OnCacheSizeChange(size int) {
	if c.Metrics == nil || c.Metrics.cacheSize == nil {
		return
	}
	c.Metrics.cacheSize.Record(context.Background(), int64(size))
}

// OnSpecFetch records a specification fetch attempt.
func (c *CacheCallback) OnSpecFetch(status string) {
	c.Metrics.RecordSpecFetch(context.Background(), status)
}
