package gateway

import (
	"net/http"
	"time"
)

// ForwardedCookieHeader is the internal header tool invokers set on
// outgoing requests to carry the inbound request's cookie string. The
// origin client's transport rewrites it into the native Cookie header just
// before the request leaves the process, so the value is applied per
// physical call even though the client and its connection pool are shared
// across many inbound requests.
const ForwardedCookieHeader = "X-Forwarded-Cookies"

// defaultUpstreamTimeout bounds a single proxied API call.
const defaultUpstreamTimeout = 60 * time.Second

// sessionRewriteTransport rewrites ForwardedCookieHeader into Cookie on
// each outgoing request. The gateway never stores cookies in a jar and
// never propagates a response's Set-Cookie to a later call: sessions exist
// only for the duration of the single proxied request.
type sessionRewriteTransport struct {
	base http.RoundTripper
}

func (t *sessionRewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if cookies := req.Header.Get(ForwardedCookieHeader); cookies != "" {
		// RoundTrippers must not mutate the caller's request.
		req = req.Clone(req.Context())
		req.Header.Del(ForwardedCookieHeader)
		req.Header.Set("Cookie", cookies)
	}
	return t.base.RoundTrip(req)
}

// NewOriginClient creates the dedicated HTTP client for one target origin.
// The client has no cookie jar and installs the session rewrite transport;
// it is owned by the origin cache and shared read-only by every request
// resolved to the same cache entry.
func NewOriginClient() *http.Client {
	base := http.DefaultTransport.(*http.Transport).Clone()
	base.MaxIdleConnsPerHost = 8
	base.IdleConnTimeout = 90 * time.Second

	return &http.Client{
		Transport: &sessionRewriteTransport{base: base},
		Timeout:   defaultUpstreamTimeout,
	}
}
