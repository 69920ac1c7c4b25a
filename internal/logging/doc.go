// Package logging provides structured logging utilities for mcp-openapi.
//
// It centralizes attribute naming and sanitization so log output stays
// consistent and never leaks credentials or network topology:
//
//   - URL attributes have IP addresses redacted
//   - cookie strings are logged as a length indicator only
//
// Usage:
//
//	logger.Info("resolved origin",
//	    logging.SpecURL(specURL),
//	    logging.APIURL(apiURL))
package logging
