package gateway

import (
	"context"
	"net/http"
)

// Request metadata headers consumed by the gateway. Lookup is
// case-insensitive (net/http canonicalizes header names).
const (
	// HeaderSpecURL carries the URL of the OpenAPI specification document.
	HeaderSpecURL = "X-Openapi-Url"

	// HeaderAPIURL carries the base URL of the target API.
	HeaderAPIURL = "X-Api-Url"

	// HeaderCookies optionally carries a cookie string forwarded to the
	// target API on every proxied call.
	HeaderCookies = "X-Cookies"
)

type headersContextKey struct{}

// WithHeaders returns a context carrying the inbound request's headers.
// The HTTP transport stashes them here so the dispatch middleware can
// extract gateway identifiers without knowing about the wire protocol.
func WithHeaders(ctx context.Context, h http.Header) context.Context {
	return context.WithValue(ctx, headersContextKey{}, h)
}

// HeadersFrom returns the inbound request headers, or nil for transports
// that carry none (for example stdio).
func HeadersFrom(ctx context.Context) http.Header {
	h, _ := ctx.Value(headersContextKey{}).(http.Header)
	return h
}

// requestIdentifiers extracts the gateway identifiers from the inbound
// request headers. Empty strings mean the request did not opt into dynamic
// resolution.
func requestIdentifiers(ctx context.Context) (specURL, apiURL, cookies string) {
	h := HeadersFrom(ctx)
	if h == nil {
		return "", "", ""
	}
	return h.Get(HeaderSpecURL), h.Get(HeaderAPIURL), h.Get(HeaderCookies)
}
