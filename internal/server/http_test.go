package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/mcp-openapi/internal/gateway"
)

// cookieEchoProvider exposes one tool that reports the forwarded cookie
// string from its call context.
type cookieEchoProvider struct{}

func (cookieEchoProvider) Tools() []mcp.Tool {
	return []mcp.Tool{{Name: "echo_cookies", Description: "echo session cookies"}}
}

func (cookieEchoProvider) Tool(name string) (gateway.Tool, bool) {
	if name != "echo_cookies" {
		return nil, false
	}
	return cookieEchoTool{}, true
}

type cookieEchoTool struct{}

func (cookieEchoTool) Call(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(gateway.ForwardedCookiesFrom(ctx)), nil
}

func cookieEchoBuilder(ctx context.Context, spec []byte, apiURL string, client *http.Client) (gateway.ToolProvider, error) {
	return cookieEchoProvider{}, nil
}

// newTestHandler builds a handler backed by a spec server and a cookie-echo
// tool provider.
func newTestHandler(t *testing.T) (*StreamableHTTPHandler, string) {
	t.Helper()

	specSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"openapi":"3.0.0"}`))
	}))
	t.Cleanup(specSrv.Close)

	cache := gateway.NewOriginCache(gateway.CacheConfig{
		TTL:     time.Minute,
		Builder: cookieEchoBuilder,
	})
	t.Cleanup(cache.Close)

	sc, err := NewServerContext(context.Background(),
		WithCache(cache),
		WithLogger(slog.Default()),
	)
	if err != nil {
		t.Fatalf("NewServerContext failed: %v", err)
	}
	t.Cleanup(func() { _ = sc.Shutdown() })

	return NewStreamableHTTPHandler(sc), specSrv.URL
}

// rpc posts one JSON-RPC message and decodes the response envelope.
func rpc(t *testing.T, h *StreamableHTTPHandler, headers map[string]string, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var envelope map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("response is not JSON: %v\n%s", err, rec.Body.String())
		}
	}
	return rec, envelope
}

func gatewayHeaders(specURL string) map[string]string {
	return map[string]string{
		gateway.HeaderSpecURL: specURL,
		gateway.HeaderAPIURL:  "http://api.example.com",
	}
}

func toolNames(t *testing.T, envelope map[string]any) []string {
	t.Helper()
	result, ok := envelope["result"].(map[string]any)
	if !ok {
		t.Fatalf("missing result in %v", envelope)
	}
	rawTools, ok := result["tools"].([]any)
	if !ok {
		// "tools": null marshals to nil for an empty list
		return nil
	}
	names := make([]string, 0, len(rawTools))
	for _, raw := range rawTools {
		tool := raw.(map[string]any)
		names = append(names, tool["name"].(string))
	}
	return names
}

func TestHTTPInitialize(t *testing.T) {
	h, _ := newTestHandler(t)

	rec, envelope := rpc(t, h, nil, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("Mcp-Session-Id") == "" {
		t.Error("initialize must mint a session id")
	}

	result := envelope["result"].(map[string]any)
	if result["protocolVersion"] != protocolVersion {
		t.Errorf("unexpected protocol version %v", result["protocolVersion"])
	}
	info := result["serverInfo"].(map[string]any)
	if info["name"] != "mcp-openapi" {
		t.Errorf("unexpected server name %v", info["name"])
	}
}

func TestHTTPListToolsWithoutHeaders(t *testing.T) {
	h, _ := newTestHandler(t)

	_, envelope := rpc(t, h, nil, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)

	if names := toolNames(t, envelope); len(names) != 0 {
		t.Errorf("expected zero tools without gateway headers, got %v", names)
	}
}

func TestHTTPListToolsWithHeaders(t *testing.T) {
	h, specURL := newTestHandler(t)

	_, envelope := rpc(t, h, gatewayHeaders(specURL), `{"jsonrpc":"2.0","id":3,"method":"tools/list"}`)

	names := toolNames(t, envelope)
	if len(names) != 1 || names[0] != "echo_cookies" {
		t.Errorf("expected the dynamic tool, got %v", names)
	}
}

func TestHTTPCallToolForwardsCookies(t *testing.T) {
	h, specURL := newTestHandler(t)

	headers := gatewayHeaders(specURL)
	headers[gateway.HeaderCookies] = "session=abc123"

	_, envelope := rpc(t, h, headers,
		`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"echo_cookies","arguments":{}}}`)

	result := envelope["result"].(map[string]any)
	content := result["content"].([]any)
	first := content[0].(map[string]any)
	if first["text"] != "session=abc123" {
		t.Errorf("expected the forwarded cookie string, got %v", first["text"])
	}
}

func TestHTTPCookieIsolationAcrossRequests(t *testing.T) {
	h, specURL := newTestHandler(t)

	// Sequential requests on one shared cache entry with different cookie
	// headers must each observe only their own session.
	for i, cookie := range []string{"session=alice", "session=bob", ""} {
		headers := gatewayHeaders(specURL)
		if cookie != "" {
			headers[gateway.HeaderCookies] = cookie
		}

		_, envelope := rpc(t, h, headers, fmt.Sprintf(
			`{"jsonrpc":"2.0","id":%d,"method":"tools/call","params":{"name":"echo_cookies","arguments":{}}}`, 10+i))

		result := envelope["result"].(map[string]any)
		content := result["content"].([]any)
		first := content[0].(map[string]any)
		if first["text"] != cookie {
			t.Errorf("request %d observed cookies %q, want %q", i, first["text"], cookie)
		}
	}
}

func TestHTTPCallUnknownTool(t *testing.T) {
	h, specURL := newTestHandler(t)

	_, envelope := rpc(t, h, gatewayHeaders(specURL),
		`{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"no_such_tool","arguments":{}}}`)

	rpcErr, ok := envelope["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected a JSON-RPC error, got %v", envelope)
	}
	if rpcErr["code"].(float64) != codeInvalidParams {
		t.Errorf("expected invalid params code, got %v", rpcErr["code"])
	}
}

func TestHTTPBadSpecURLFailsLoudly(t *testing.T) {
	h, _ := newTestHandler(t)

	// A failing resolve must surface as an error, not as an empty tool
	// list.
	_, envelope := rpc(t, h, gatewayHeaders("http://127.0.0.1:1/openapi.json"),
		`{"jsonrpc":"2.0","id":6,"method":"tools/list"}`)

	if _, ok := envelope["error"].(map[string]any); !ok {
		t.Fatalf("expected a JSON-RPC error for an unreachable spec, got %v", envelope)
	}
}

func TestHTTPProtocolEdges(t *testing.T) {
	h, _ := newTestHandler(t)

	t.Run("GET is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/mcp", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405 for GET, got %d", rec.Code)
		}
	})

	t.Run("notification is accepted without body", func(t *testing.T) {
		rec, _ := rpc(t, h, nil, `{"jsonrpc":"2.0","method":"notifications/initialized"}`)
		if rec.Code != http.StatusAccepted {
			t.Errorf("expected 202 for a notification, got %d", rec.Code)
		}
	})

	t.Run("malformed JSON", func(t *testing.T) {
		rec, envelope := rpc(t, h, nil, `{not json`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		rpcErr := envelope["error"].(map[string]any)
		if rpcErr["code"].(float64) != codeParseError {
			t.Errorf("expected parse error code, got %v", rpcErr["code"])
		}
	})

	t.Run("unknown method", func(t *testing.T) {
		_, envelope := rpc(t, h, nil, `{"jsonrpc":"2.0","id":7,"method":"resources/list"}`)
		rpcErr := envelope["error"].(map[string]any)
		if rpcErr["code"].(float64) != codeMethodNotFound {
			t.Errorf("expected method not found code, got %v", rpcErr["code"])
		}
	})

	t.Run("ping", func(t *testing.T) {
		_, envelope := rpc(t, h, nil, `{"jsonrpc":"2.0","id":8,"method":"ping"}`)
		if _, ok := envelope["result"]; !ok {
			t.Errorf("expected an empty result for ping, got %v", envelope)
		}
	})
}
