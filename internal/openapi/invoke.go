package openapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/giantswarm/mcp-openapi/internal/gateway"
	"github.com/giantswarm/mcp-openapi/internal/instrumentation"
)

// maxResponseSize caps how much of an upstream response body is read back
// into a tool result.
const maxResponseSize = 16 << 20 // 16 MiB

// Operation is a single translated API operation. It implements
// gateway.Tool and proxies calls to the upstream API through the client it
// was built with.
type Operation struct {
	name     string
	method   string
	pathTmpl string
	baseURL  string
	client   *http.Client

	params     []parameter
	hasBody    bool
	bodyFields []string
}

// Call renders the tool arguments into an HTTP request, executes it against
// the upstream API and wraps the response as a tool result. Session cookies
// carried on ctx ride along on the outgoing request.
func (o *Operation) Call(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	req, err := o.buildRequest(ctx, args)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments for %s: %v", o.name, err)), nil
	}

	ctx, span := instrumentation.StartUpstreamSpan(ctx, o.method, o.pathTmpl)
	defer span.End()
	req = req.WithContext(ctx)

	resp, err := o.client.Do(req)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return mcp.NewToolResultError(fmt.Sprintf("upstream request failed: %v", err)), nil
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int(instrumentation.SpanAttrUpstreamStatus, resp.StatusCode))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return mcp.NewToolResultError(fmt.Sprintf("reading upstream response: %v", err)), nil
	}

	if resp.StatusCode >= 400 {
		instrumentation.SetSpanError(span, fmt.Errorf("upstream status %d", resp.StatusCode))
		return mcp.NewToolResultError(fmt.Sprintf("upstream returned status %d: %s", resp.StatusCode, string(body))), nil
	}

	instrumentation.SetSpanSuccess(span)
	return mcp.NewToolResultText(string(body)), nil
}

// buildRequest renders path, query and header parameters plus the JSON body
// from the tool arguments.
func (o *Operation) buildRequest(ctx context.Context, args map[string]any) (*http.Request, error) {
	path := o.pathTmpl
	query := url.Values{}
	headers := http.Header{}
	consumed := make(map[string]bool, len(o.params))

	for _, p := range o.params {
		val, ok := args[p.name]
		if !ok {
			if p.required {
				return nil, fmt.Errorf("missing required parameter %q", p.name)
			}
			continue
		}
		consumed[p.name] = true
		rendered, err := renderValue(val)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", p.name, err)
		}
		switch p.in {
		case inPath:
			path = strings.ReplaceAll(path, "{"+p.name+"}", url.PathEscape(rendered))
		case inQuery:
			query.Set(p.name, rendered)
		case inHeader:
			headers.Set(p.name, rendered)
		}
	}

	var body io.Reader
	if o.hasBody {
		payload, err := o.bodyPayload(args, consumed)
		if err != nil {
			return nil, err
		}
		if payload != nil {
			raw, err := json.Marshal(payload)
			if err != nil {
				return nil, fmt.Errorf("encoding request body: %w", err)
			}
			body = bytes.NewReader(raw)
			headers.Set("Content-Type", "application/json")
		}
	}

	target := o.baseURL + path
	if encoded := query.Encode(); encoded != "" {
		target += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, o.method, target, body)
	if err != nil {
		return nil, err
	}
	for k, vals := range headers {
		req.Header[k] = vals
	}

	if cookies := gateway.ForwardedCookiesFrom(ctx); cookies != "" {
		req.Header.Set(gateway.ForwardedCookieHeader, cookies)
	}

	return req, nil
}

// bodyPayload assembles the request body from arguments not consumed by
// parameters. Object bodies are built from their flattened fields;
// everything else is taken verbatim from the "body" argument.
func (o *Operation) bodyPayload(args map[string]any, consumed map[string]bool) (any, error) {
	if o.bodyFields == nil {
		val, ok := args["body"]
		if !ok {
			return nil, nil
		}
		return val, nil
	}

	payload := make(map[string]any)
	for _, field := range o.bodyFields {
		if consumed[field] {
			continue
		}
		if val, ok := args[field]; ok {
			payload[field] = val
		}
	}
	if len(payload) == 0 {
		return nil, nil
	}
	return payload, nil
}

// renderValue converts a tool argument into its string form for a path,
// query or header position.
func renderValue(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case bool:
		return strconv.FormatBool(val), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case nil:
		return "", nil
	default:
		raw, err := json.Marshal(val)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
}
