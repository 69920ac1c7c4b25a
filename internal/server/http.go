package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/mcp-openapi/internal/gateway"
	"github.com/giantswarm/mcp-openapi/internal/instrumentation"
	"github.com/giantswarm/mcp-openapi/internal/logging"
)

// sessionIDHeader carries the MCP streamable HTTP session identifier. The
// gateway is stateless, so the identifier is purely informational: it is
// minted on initialize and echoed back, never used to key server state.
const sessionIDHeader = "Mcp-Session-Id"

// protocolVersion is the MCP protocol revision this server speaks.
const protocolVersion = "2025-03-26"

// maxRequestSize caps an inbound JSON-RPC message (4 MiB).
const maxRequestSize = 4 << 20

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

type jsonrpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type jsonrpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *jsonrpcError   `json:"error,omitempty"`
}

type jsonrpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// StreamableHTTPHandler serves MCP over streamable HTTP in stateless JSON
// mode: one POST per JSON-RPC message, one JSON response per POST. Inbound
// request headers are published on the request context so the gateway
// middleware can resolve the per-origin resource they identify.
type StreamableHTTPHandler struct {
	sc *ServerContext
}

// NewStreamableHTTPHandler creates the MCP endpoint handler.
func NewStreamableHTTPHandler(sc *ServerContext) *StreamableHTTPHandler {
	return &StreamableHTTPHandler{sc: sc}
}

func (h *StreamableHTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handlePost(w, r)
	case http.MethodDelete:
		// Session teardown. Nothing is stored per session, so there is
		// nothing to delete.
		w.WriteHeader(http.StatusOK)
	default:
		// No server-initiated stream support; GET gets a clean 405.
		w.Header().Set("Allow", "POST, DELETE")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *StreamableHTTPHandler) handlePost(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestSize))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	var req jsonrpcRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeResponse(w, http.StatusBadRequest, &jsonrpcResponse{
			JSONRPC: "2.0",
			Error:   &jsonrpcError{Code: codeParseError, Message: "parse error"},
		})
		return
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		writeResponse(w, http.StatusBadRequest, &jsonrpcResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &jsonrpcError{Code: codeInvalidRequest, Message: "invalid request"},
		})
		return
	}

	// Notifications get acknowledged without a body.
	if req.ID == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	// Publish the inbound headers for the dispatch middleware.
	ctx := gateway.WithHeaders(r.Context(), r.Header)

	resp := &jsonrpcResponse{JSONRPC: "2.0", ID: req.ID}
	status := http.StatusOK

	switch req.Method {
	case "initialize":
		w.Header().Set(sessionIDHeader, uuid.NewString())
		resp.Result = h.initializeResult()

	case "ping":
		resp.Result = struct{}{}

	case "tools/list":
		tools, err := h.sc.Middleware().HandleListTools(ctx, h.sc.Registry().ListTools)
		if err != nil {
			resp.Error = gatewayError(err)
		} else {
			resp.Result = mcp.ListToolsResult{Tools: tools}
		}

	case "tools/call":
		resp.Result, resp.Error = h.callTool(ctx, req.Params)

	default:
		resp.Error = &jsonrpcError{Code: codeMethodNotFound, Message: "method not found: " + req.Method}
	}

	writeResponse(w, status, resp)
}

// initializeResult builds the initialize response payload.
func (h *StreamableHTTPHandler) initializeResult() map[string]any {
	config := h.sc.Config()
	return map[string]any{
		"protocolVersion": protocolVersion,
		"capabilities": map[string]any{
			"tools": map[string]any{"listChanged": false},
		},
		"serverInfo": map[string]any{
			"name":    config.ServerName,
			"version": config.Version,
		},
	}
}

// callTool parses the tools/call params and routes the call through the
// gateway middleware to the dynamic or static tool it names.
func (h *StreamableHTTPHandler) callTool(ctx context.Context, rawParams json.RawMessage) (any, *jsonrpcError) {
	var params struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	}
	if err := json.Unmarshal(rawParams, &params); err != nil || params.Name == "" {
		return nil, &jsonrpcError{Code: codeInvalidParams, Message: "invalid tool call params"}
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = params.Name
	req.Params.Arguments = params.Arguments

	start := time.Now()
	toolCtx, span := instrumentation.StartToolSpan(ctx, params.Name)
	defer span.End()

	result, err := h.sc.Middleware().HandleCallTool(toolCtx, req, h.sc.Registry().CallTool)
	duration := time.Since(start)

	if provider := h.sc.InstrumentationProvider(); provider != nil && provider.Enabled() {
		kind := instrumentation.ToolKindStatic
		if hdr := gateway.HeadersFrom(toolCtx); hdr.Get(gateway.HeaderSpecURL) != "" && hdr.Get(gateway.HeaderAPIURL) != "" {
			kind = instrumentation.ToolKindDynamic
		}
		status := instrumentation.StatusSuccess
		if err != nil || (result != nil && result.IsError) {
			status = instrumentation.StatusError
		}
		provider.Metrics().RecordToolCall(toolCtx, kind, status, duration)
	}

	if err != nil {
		instrumentation.SetSpanError(span, err)
		attrs := []any{logging.Tool(params.Name), logging.Err(err)}
		if traceID := instrumentation.GetTraceID(toolCtx); traceID != "" {
			attrs = append(attrs, "trace_id", traceID)
		}
		h.sc.Logger().Warn("tool call failed", attrs...)
		return nil, gatewayError(err)
	}
	instrumentation.SetSpanSuccess(span)
	return result, nil
}

// gatewayError maps gateway and registry failures to JSON-RPC errors. Cache
// resolution failures surface as errors rather than empty tool lists so a
// client can tell a bad spec URL apart from an API with no operations.
func gatewayError(err error) *jsonrpcError {
	switch {
	case errors.Is(err, ErrToolNotFound):
		return &jsonrpcError{Code: codeInvalidParams, Message: err.Error()}
	case errors.Is(err, gateway.ErrSpecFetch),
		errors.Is(err, gateway.ErrResourceBuild),
		errors.Is(err, gateway.ErrCacheClosed):
		return &jsonrpcError{Code: codeInternalError, Message: err.Error()}
	default:
		return &jsonrpcError{Code: codeInternalError, Message: err.Error()}
	}
}

func writeResponse(w http.ResponseWriter, status int, resp *jsonrpcResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
