// Package cmd provides the command-line interface for mcp-openapi.
//
// This package implements a Cobra-based CLI with multiple subcommands:
//   - serve: Starts the gateway (default behavior when no subcommand is provided)
//   - version: Displays the application version
//   - self-update: Updates the binary to the latest version from GitHub releases
//
// The CLI maintains backwards compatibility by running the serve command when
// no subcommand is specified.
//
// Command Structure:
//
//	mcp-openapi [flags]                 # Starts the gateway (default)
//	mcp-openapi serve [flags]           # Explicitly starts the gateway
//	mcp-openapi version                 # Shows version information
//	mcp-openapi self-update             # Updates to latest release
//	mcp-openapi help [command]          # Shows help information
//
// Serve Configuration Examples:
//
//	mcp-openapi serve                                   # Defaults: :8000, /mcp, 300s cache
//	mcp-openapi serve --http-addr :9000 --endpoint /mcp
//	mcp-openapi serve --cache-ttl 0                     # Disable spec caching
//	mcp-openapi serve --enable-metrics --metrics-addr :9090
//
// The gateway itself is driven by request headers: X-Openapi-Url and
// X-Api-Url select the target API per request, X-Cookies optionally carries
// a session cookie string forwarded on proxied calls.
package cmd
