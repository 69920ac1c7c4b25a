// Package gateway implements the request-time core of the OpenAPI gateway:
// a per-origin cache of translated API resources with single-flight
// construction, per-request isolation of the resolved resource, and the
// dispatch pipeline that turns inbound list-tools / call-tool requests into
// dynamic tool listings and proxied API calls.
//
// # Request Flow
//
// Each inbound MCP request may carry three headers:
//
//   - x-openapi-url: URL of the OpenAPI JSON specification
//   - x-api-url: base URL of the target API
//   - x-cookies (optional): cookie string forwarded to the API
//
// When both URLs are present, the dispatch middleware asks the OriginCache
// for a ResourceHandle (a translated tool set plus an HTTP client bound to
// the target base URL), publishes it on the request context, and routes the
// request: tools/list prepends the dynamic tools to the static ones,
// tools/call intercepts calls to dynamic tools and proxies them upstream.
// Requests without the headers pass through to the static handlers
// untouched.
//
// # Isolation
//
// The resolved handle is carried as a context value on the request context
// and never outlives the request: two concurrent requests each see only
// their own handle, even when they share a cached entry. Cookie values are
// likewise carried per request and injected per outgoing call, so the
// shared per-origin HTTP client never holds session state.
package gateway
