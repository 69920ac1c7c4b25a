package gateway

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/mcp-openapi/internal/instrumentation"
	"github.com/giantswarm/mcp-openapi/internal/logging"
)

// ListToolsHandlerFunc is the next-stage handler for a tools/list request.
type ListToolsHandlerFunc func(ctx context.Context) ([]mcp.Tool, error)

// CallToolHandlerFunc is the next-stage handler for a tools/call request.
type CallToolHandlerFunc func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)

// Middleware is the per-request dispatch pipeline. For every inbound
// request it extracts the gateway identifiers, resolves a resource handle
// through the origin cache, publishes the handle on the request context and
// routes the request to the dynamic tools or the next-stage handler.
//
// A request missing either identifier passes through to the next handler
// with no resource published; a request with bad identifiers fails with a
// cache error, which is distinguishable from "no tools available".
type Middleware struct {
	cache  *OriginCache
	logger *slog.Logger
}

// NewMiddleware creates the dispatch middleware. A nil logger falls back to
// slog.Default().
func NewMiddleware(cache *OriginCache, logger *slog.Logger) *Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &Middleware{cache: cache, logger: logger}
}

// resolve extracts the request identifiers and, when present, resolves a
// resource handle and publishes it (and the forwarded cookie string) on the
// returned context. The returned context is scoped to this request: it is
// handed to the downstream handler and discarded when the request ends, so
// the published handle can never leak into another request.
func (m *Middleware) resolve(ctx context.Context) (context.Context, error) {
	specURL, apiURL, cookies := requestIdentifiers(ctx)
	if specURL == "" || apiURL == "" {
		m.logger.Debug("no spec or API URL in request headers, passing through")
		return ctx, nil
	}

	ctx, span := instrumentation.StartResolveSpan(ctx, specURL, apiURL)
	defer span.End()

	h, err := m.cache.Get(ctx, CacheKey{SpecURL: specURL, APIURL: apiURL})
	if err != nil {
		instrumentation.SetSpanError(span, err)
		m.logger.Warn("failed to resolve per-origin resource",
			logging.SpecURL(specURL),
			logging.APIURL(apiURL),
			logging.Err(err),
		)
		return ctx, err
	}
	instrumentation.SetSpanSuccess(span)

	ctx = WithResource(ctx, h)
	if cookies != "" {
		ctx = WithForwardedCookies(ctx, cookies)
		m.logger.Debug("forwarding session cookies",
			slog.String("cookies", logging.SanitizeCookies(cookies)))
	}
	return ctx, nil
}

// HandleListTools serves a tools/list request: dynamic tools first, then
// whatever the next-stage handler returns.
func (m *Middleware) HandleListTools(ctx context.Context, next ListToolsHandlerFunc) ([]mcp.Tool, error) {
	ctx, err := m.resolve(ctx)
	if err != nil {
		return nil, err
	}

	h, ok := ResourceFrom(ctx)
	if !ok {
		return next(ctx)
	}

	static, err := next(ctx)
	if err != nil {
		return nil, err
	}

	dynamic := h.Provider.Tools()
	merged := make([]mcp.Tool, 0, len(dynamic)+len(static))
	merged = append(merged, dynamic...)
	merged = append(merged, static...)
	return merged, nil
}

// HandleCallTool serves a tools/call request. A call naming a dynamic tool
// is proxied to the upstream API directly, bypassing the next-stage handler;
// anything else falls through to it (the tool may be registered statically).
func (m *Middleware) HandleCallTool(ctx context.Context, req mcp.CallToolRequest, next CallToolHandlerFunc) (*mcp.CallToolResult, error) {
	ctx, err := m.resolve(ctx)
	if err != nil {
		return nil, err
	}

	if h, ok := ResourceFrom(ctx); ok {
		if tool, ok := h.Provider.Tool(req.Params.Name); ok {
			logger := logging.WithTool(m.logger, req.Params.Name)
			logger.Debug("proxying tool call upstream")

			result, err := tool.Call(ctx, req.GetArguments())
			if err != nil || (result != nil && result.IsError) {
				logger.Debug("upstream tool call failed", logging.Status(logging.StatusError), logging.Err(err))
			}
			return result, err
		}
	}

	return next(ctx, req)
}
