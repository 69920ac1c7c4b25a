// Package instrumentation provides OpenTelemetry metrics and tracing for
// the mcp-openapi gateway.
//
// Instrumentation is disabled by default and enabled via environment
// variables (INSTRUMENTATION_ENABLED=true). When enabled, a Provider owns
// the meter and tracer providers and the metric instruments; when disabled
// every recording call is a no-op with zero allocation overhead.
//
// # Metrics
//
//   - http_requests_total / http_request_duration_seconds
//   - gateway_spec_fetch_total
//   - gateway_tool_calls_total / gateway_tool_call_duration_seconds
//   - gateway_spec_cache_{hits,misses,evictions}_total, gateway_spec_cache_size
//
// Metrics are exported via Prometheus (default), OTLP, or stdout. Traces
// are exported via OTLP or stdout and are off by default.
package instrumentation
