// Package server provides the ServerContext pattern and the HTTP transport
// for the OpenAPI MCP gateway.
//
// This package implements the core server architecture:
//
//   - ServerContext: encapsulates all server dependencies and lifecycle
//     management, configured through functional options
//   - Registry: the static tool registry that serves requests carrying no
//     gateway headers
//   - StreamableHTTPHandler: the MCP streamable HTTP endpoint that feeds
//     inbound request headers to the gateway dispatch middleware
//   - HealthChecker: liveness and readiness endpoints with cache statistics
//
// All dependencies are injected using functional options, making the code
// testable and keeping construction in one place:
//
//	serverCtx, err := server.NewServerContext(ctx,
//		server.WithLogger(logger),
//		server.WithCache(cache),
//		server.WithRegistry(registry),
//	)
//	if err != nil {
//		return err
//	}
//	defer serverCtx.Shutdown()
//
// Shutdown is idempotent and closes the origin cache, releasing every
// per-origin HTTP client the gateway built.
package server
