package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

// Tool is a single callable operation derived from one API operation.
type Tool interface {
	// Call invokes the operation against the upstream API with the given
	// arguments. Upstream call failures are propagated verbatim.
	Call(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error)
}

// ToolProvider exposes the tools translated from one OpenAPI document.
// Implementations must be safe for concurrent use; the gateway shares one
// provider between all requests that hit the same cache entry.
type ToolProvider interface {
	// Tools returns the tool definitions in document order.
	Tools() []mcp.Tool

	// Tool looks up a tool by name.
	Tool(name string) (Tool, bool)
}

// Builder constructs a ToolProvider from a fetched specification document
// and the HTTP client bound to the target base URL. It may fail with a
// translator error; the cache wraps that as ErrResourceBuild.
type Builder func(ctx context.Context, spec []byte, apiURL string, client *http.Client) (ToolProvider, error)

// CacheKey identifies a cacheable per-origin resource. Two requests with
// identical URLs share a key regardless of any other headers they carry.
// Lookup is exact string equality; no normalization is applied.
type CacheKey struct {
	SpecURL string
	APIURL  string
}

// ResourceHandle pairs a translated tool provider with the HTTP client
// bound to its target base URL. Handles are immutable after construction
// and shared read-only by any number of concurrent requests until evicted.
type ResourceHandle struct {
	Provider ToolProvider
	Client   *http.Client

	// expiresAt is set once at construction to creation time + TTL and is
	// never refreshed on access.
	expiresAt time.Time
}

// Expired reports whether the handle's TTL has elapsed at the given time.
func (h *ResourceHandle) Expired(now time.Time) bool {
	return !now.Before(h.expiresAt)
}
