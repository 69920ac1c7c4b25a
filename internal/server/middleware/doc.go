// Package middleware provides HTTP middleware for the OpenAPI MCP gateway.
// These middleware functions handle request metrics, security headers, CORS,
// and other cross-cutting concerns.
package middleware
