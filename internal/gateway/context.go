package gateway

import "context"

// Context keys are unexported types so no other package can collide with or
// read values it should not see.
type (
	resourceContextKey struct{}
	cookiesContextKey  struct{}
)

// WithResource returns a context carrying the resolved resource handle.
// The derived context is confined to one request's call tree; it is the
// only way downstream handlers observe a handle, so two concurrent requests
// can never see each other's resource.
func WithResource(ctx context.Context, h *ResourceHandle) context.Context {
	return context.WithValue(ctx, resourceContextKey{}, h)
}

// ResourceFrom returns the resource handle published on the context, if any.
func ResourceFrom(ctx context.Context) (*ResourceHandle, bool) {
	h, ok := ctx.Value(resourceContextKey{}).(*ResourceHandle)
	return h, ok
}

// WithForwardedCookies returns a context carrying the inbound request's
// forwarded cookie string. The value rides the request context rather than
// the shared per-origin client so concurrent requests against the same
// origin keep their own sessions.
func WithForwardedCookies(ctx context.Context, cookies string) context.Context {
	return context.WithValue(ctx, cookiesContextKey{}, cookies)
}

// ForwardedCookiesFrom returns the forwarded cookie string for this request,
// or "" if the request carried none.
func ForwardedCookiesFrom(ctx context.Context) string {
	cookies, _ := ctx.Value(cookiesContextKey{}).(string)
	return cookies
}
