package logging

import (
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeySpecURL  = "spec_url"
	KeyAPIURL   = "api_url"
	KeyTool     = "tool"
	KeyMethod   = "method"
	KeyPath     = "path"
	KeyStatus   = "status"
	KeyDuration = "duration"
	KeyError    = "error"
	KeyHost     = "host"
)

// Status values for consistent logging.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ipv4Regex matches IPv4 addresses for sanitization.
var ipv4Regex = regexp.MustCompile(`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}`)

// ipv6Regex matches IPv6 addresses, including bracketed URL form.
var ipv6Regex = regexp.MustCompile(`\[?([0-9a-fA-F]{0,4}:){2,7}[0-9a-fA-F]{0,4}\]?`)

// SpecURL returns a slog attribute for the specification document URL.
func SpecURL(u string) slog.Attr {
	return slog.String(KeySpecURL, SanitizeHost(u))
}

// APIURL returns a slog attribute for the target API base URL.
func APIURL(u string) slog.Attr {
	return slog.String(KeyAPIURL, SanitizeHost(u))
}

// Tool returns a slog attribute for the MCP tool name.
func Tool(name string) slog.Attr {
	return slog.String(KeyTool, name)
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// Err returns a slog attribute for an error.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

// Host returns a slog attribute for a host with IP addresses sanitized.
func Host(host string) slog.Attr {
	return slog.String(KeyHost, SanitizeHost(host))
}

// WithTool returns a logger with the tool attribute set.
func WithTool(logger *slog.Logger, tool string) *slog.Logger {
	return logger.With(slog.String(KeyTool, tool))
}

// SanitizeHost returns a sanitized version of a host or URL for logging.
// IP addresses (IPv4 and IPv6) are redacted so internal network topology
// never appears in logs, while hostnames, ports and paths are preserved for
// debugging.
func SanitizeHost(host string) string {
	if host == "" {
		return "<empty>"
	}

	redactIPs := func(s string) string {
		result := ipv4Regex.ReplaceAllString(s, "<redacted-ip>")
		result = ipv6Regex.ReplaceAllString(result, "<redacted-ip>")
		return result
	}

	if !strings.Contains(host, "://") {
		return redactIPs(host)
	}

	parsed, err := url.Parse(host)
	if err != nil {
		return redactIPs(host)
	}

	if ipv4Regex.MatchString(parsed.Host) || ipv6Regex.MatchString(parsed.Host) {
		parsed.Host = redactIPs(parsed.Host)
		return parsed.String()
	}

	return host
}

// SanitizeCookies returns a masked representation of a cookie string for
// logging. It reports only the length, as cookie values are credentials.
func SanitizeCookies(cookies string) string {
	if cookies == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[cookies:%d chars]", len(cookies))
}
