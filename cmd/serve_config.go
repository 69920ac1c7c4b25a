package cmd

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// ServeConfig holds all configuration for the serve command.
type ServeConfig struct {
	// Transport settings
	HTTPAddr string
	Endpoint string

	// Cache settings
	CacheTTLSeconds int

	// Spec fetch settings
	FetchTimeout time.Duration

	// Logging settings
	LogLevel  string
	LogFormat string
	DebugMode bool

	// Metrics server settings
	Metrics MetricsServeConfig

	// AllowedOrigins is a comma-separated list of CORS origins. Empty
	// disables CORS handling entirely.
	AllowedOrigins string
}

// MetricsServeConfig holds configuration for the dedicated metrics server.
type MetricsServeConfig struct {
	Enabled bool
	Addr    string
}

// CacheTTL returns the configured entry time-to-live as a duration. Zero
// disables caching.
func (c *ServeConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// Validate checks the serve configuration for inconsistencies before any
// server is started.
func (c *ServeConfig) Validate() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("http address must not be empty")
	}
	if !strings.HasPrefix(c.Endpoint, "/") {
		return fmt.Errorf("endpoint must start with '/', got %q", c.Endpoint)
	}
	if c.CacheTTLSeconds < 0 {
		return fmt.Errorf("cache TTL must not be negative, got %d", c.CacheTTLSeconds)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive, got %v", c.FetchTimeout)
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("log format must be json or text, got %q", c.LogFormat)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log level must be debug, info, warn or error, got %q", c.LogLevel)
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics address must not be empty when metrics are enabled")
	}
	if c.AllowedOrigins != "" {
		for _, origin := range strings.Split(c.AllowedOrigins, ",") {
			origin = strings.TrimSpace(origin)
			if origin == "" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid CORS origin %q: %w", origin, err)
			}
		}
	}
	return nil
}

// envOrDefault reads a MCP_OPENAPI_* environment variable, falling back to
// the given default. Used for flag defaults so the environment configures
// the server and flags override it.
func envOrDefault(envKey, defaultValue string) string {
	if value := os.Getenv(envKey); value != "" {
		return value
	}
	return defaultValue
}

// envIntOrDefault is envOrDefault for integer variables. Unparseable values
// fall back to the default.
func envIntOrDefault(envKey string, defaultValue int) int {
	if value := os.Getenv(envKey); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
