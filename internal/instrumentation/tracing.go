package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the tracer name for the mcp-openapi package.
const TracerName = "github.com/giantswarm/mcp-openapi"

// Span attribute keys for gateway operations.
const (
	// SpanAttrSpecURL is the OpenAPI specification URL attribute.
	SpanAttrSpecURL = "gateway.spec_url"

	// SpanAttrAPIURL is the target API base URL attribute.
	SpanAttrAPIURL = "gateway.api_url"

	// SpanAttrTool is the MCP tool name.
	SpanAttrTool = "mcp.tool"

	// SpanAttrUpstreamMethod is the HTTP method of a proxied call.
	SpanAttrUpstreamMethod = "gateway.upstream_method"

	// SpanAttrUpstreamStatus is the HTTP status of a proxied call.
	SpanAttrUpstreamStatus = "gateway.upstream_status"
)

// StartResolveSpan starts a span covering the resolution of a per-origin
// resource (cache lookup and, on a miss, fetch plus build).
func StartResolveSpan(ctx context.Context, specURL, apiURL string) (context.Context, trace.Span) {
	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "gateway.resolve",
		trace.WithAttributes(
			attribute.String(SpanAttrSpecURL, specURL),
			attribute.String(SpanAttrAPIURL, apiURL),
		),
	)
}

// StartToolSpan starts a span for an MCP tool invocation.
func StartToolSpan(ctx context.Context, toolName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+1)
	allAttrs = append(allAttrs, attribute.String(SpanAttrTool, toolName))
	allAttrs = append(allAttrs, attrs...)

	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "tool."+toolName,
		trace.WithAttributes(allAttrs...),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// StartUpstreamSpan starts a span for a proxied upstream API call.
func StartUpstreamSpan(ctx context.Context, method, path string) (context.Context, trace.Span) {
	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "upstream."+method,
		trace.WithAttributes(
			attribute.String(SpanAttrUpstreamMethod, method),
			attribute.String("gateway.upstream_path", path),
		),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// SetSpanError records an error on the span and sets the status to error.
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess sets the span status to OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// GetTraceID returns the trace ID from the current span in context.
// Returns empty string if no valid span is present.
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}
