package server

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/mcp-openapi/internal/gateway"
)

// ErrToolNotFound indicates a tools/call named a tool that is neither a
// dynamic gateway tool nor statically registered.
var ErrToolNotFound = errors.New("tool not found")

// ToolHandler handles a call to one statically registered tool.
type ToolHandler func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)

// Registry holds the statically registered tools. It is the next-stage
// handler behind the gateway middleware: requests carrying no gateway
// headers are served from here alone, so a gateway with an empty registry
// exposes zero tools to such requests.
type Registry struct {
	mu       sync.RWMutex
	tools    map[string]mcp.Tool
	handlers map[string]ToolHandler
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:    make(map[string]mcp.Tool),
		handlers: make(map[string]ToolHandler),
	}
}

// Register adds a tool and its handler. Registering a name twice replaces
// the previous registration.
func (r *Registry) Register(tool mcp.Tool, handler ToolHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name] = tool
	r.handlers[tool.Name] = handler
}

// ListTools returns the registered tool definitions sorted by name. It has
// the gateway.ListToolsHandlerFunc signature.
func (r *Registry) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]mcp.Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		tools = append(tools, tool)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	return tools, nil
}

// CallTool invokes a registered tool. It has the
// gateway.CallToolHandlerFunc signature.
func (r *Registry) CallTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r.mu.RLock()
	handler, ok := r.handlers[req.Params.Name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, req.Params.Name)
	}
	return handler(ctx, req)
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// compile-time checks that Registry matches the middleware handler shapes
var (
	_ gateway.ListToolsHandlerFunc = (*Registry)(nil).ListTools
	_ gateway.CallToolHandlerFunc  = (*Registry)(nil).CallTool
)
