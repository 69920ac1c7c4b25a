// Package openapi translates OpenAPI 3.x documents into callable MCP tools.
//
// Translate parses a specification document with kin-openapi and produces a
// ToolSet: one MCP tool per API operation, each bound to an invoker that
// renders path, query and header parameters, attaches the per-request
// forwarded cookie string, and proxies the call to the target API through
// the HTTP client bound to its base URL.
package openapi
