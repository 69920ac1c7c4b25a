package gateway

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/giantswarm/mcp-openapi/internal/logging"
)

// DefaultCacheTTL is the default time-to-live for cached per-origin
// resources. Spec documents rarely change mid-session, but a bounded TTL
// keeps memory use in check with many distinct origins and lets upstream
// spec changes take effect within a predictable window.
const DefaultCacheTTL = 5 * time.Minute

// DefaultCacheCleanupInterval is how often the background sweep removes
// expired entries. Entries are also evicted on access when expired.
const DefaultCacheCleanupInterval = 1 * time.Minute

// DefaultFetchTimeout bounds a single specification document fetch.
const DefaultFetchTimeout = 30 * time.Second

// maxSpecSize caps the size of a fetched specification document (16 MiB).
// Guards against an origin serving an unbounded body.
const maxSpecSize = 16 << 20

// CacheMetricsCallback receives cache events for metrics recording. It lets
// the cache report metrics without depending on the instrumentation package.
type CacheMetricsCallback interface {
	// OnCacheHit is called when a valid entry is returned.
	OnCacheHit()
	// OnCacheMiss is called when no valid entry exists for a key.
	OnCacheMiss()
	// OnCacheEviction is called when an entry is evicted.
	// Reasons: "expired", "closed".
	OnCacheEviction(reason string)
	// OnCacheSizeChange is called when the number of entries changes.
	OnCacheSizeChange(size int)
	// OnSpecFetch is called after every specification fetch attempt.
	// Statuses: "success", "error".
	OnSpecFetch(status string)
}

// CacheConfig holds configuration options for the origin cache.
type CacheConfig struct {
	// TTL is the time-to-live for cached entries. Zero disables caching
	// entirely: every request takes the slow path and re-fetches. Negative
	// values fall back to DefaultCacheTTL.
	TTL time.Duration

	// Builder constructs the translated resource from a fetched document.
	// Required.
	Builder Builder

	// FetchTimeout bounds each specification fetch. Defaults to
	// DefaultFetchTimeout.
	FetchTimeout time.Duration

	// FetchClient overrides the lazily created shared client used to fetch
	// specification documents. Used by tests.
	FetchClient *http.Client

	// NewOriginClient overrides the factory for per-origin clients. Used by
	// tests; defaults to NewOriginClient.
	NewOriginClient func() *http.Client

	// Metrics is an optional callback for recording cache metrics.
	Metrics CacheMetricsCallback

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// OriginCache maps (spec URL, API URL) pairs to resource handles. Entry
// creation and eviction are guarded by a single lock; a cache miss holds
// the lock across the fetch and build so that exactly one caller per key
// performs the expensive construction while concurrent callers for the same
// key wait and observe its outcome.
type OriginCache struct {
	mu      sync.RWMutex
	entries map[CacheKey]*ResourceHandle
	closed  bool

	// fetchClient is created lazily on first use, lives for the cache
	// lifetime and is only used to fetch raw specification documents.
	fetchClient *http.Client

	ttl             time.Duration
	fetchTimeout    time.Duration
	builder         Builder
	newOriginClient func() *http.Client
	metrics         CacheMetricsCallback
	logger          *slog.Logger

	// stopCleanup signals the cleanup goroutine to stop.
	stopCleanup chan struct{}
	// cleanupDone signals that cleanup has finished.
	cleanupDone chan struct{}
}

// NewOriginCache creates a new origin cache. A background goroutine sweeps
// expired entries until Close is called.
func NewOriginCache(config CacheConfig) *OriginCache {
	if config.TTL < 0 {
		config.TTL = DefaultCacheTTL
	}
	if config.FetchTimeout <= 0 {
		config.FetchTimeout = DefaultFetchTimeout
	}
	if config.NewOriginClient == nil {
		config.NewOriginClient = NewOriginClient
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	c := &OriginCache{
		entries:         make(map[CacheKey]*ResourceHandle),
		fetchClient:     config.FetchClient,
		ttl:             config.TTL,
		fetchTimeout:    config.FetchTimeout,
		builder:         config.Builder,
		newOriginClient: config.NewOriginClient,
		metrics:         config.Metrics,
		logger:          config.Logger,
		stopCleanup:     make(chan struct{}),
		cleanupDone:     make(chan struct{}),
	}

	go c.cleanupLoop()

	return c
}

// TTL returns the configured entry time-to-live.
func (c *OriginCache) TTL() time.Duration {
	return c.ttl
}

// Get returns the cached handle for key, building it if absent or expired.
//
// The fast path reads under a shared lock and returns a valid entry without
// blocking other readers. On a miss the exclusive lock is taken, the entry
// is re-checked (another caller may have refreshed it while this one waited),
// any expired entry is evicted, and only then is the replacement fetched and
// built -- still under the lock, so concurrent callers for the same key
// never fetch twice. Fetch and build failures cache nothing.
func (c *OriginCache) Get(ctx context.Context, key CacheKey) (*ResourceHandle, error) {
	now := time.Now()

	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return nil, ErrCacheClosed
	}
	if h, ok := c.entries[key]; ok && !h.Expired(now) {
		c.mu.RUnlock()
		c.recordHit()
		return h, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrCacheClosed
	}

	// Re-check: another caller may have built the entry while this one
	// waited for the lock.
	now = time.Now()
	if h, ok := c.entries[key]; ok {
		if !h.Expired(now) {
			c.recordHit()
			return h, nil
		}
		// Evict before constructing the replacement so a failed build never
		// leaves two live entries under one key.
		c.removeLocked(key, h, "expired")
	}
	c.recordMiss()

	spec, err := c.fetchSpecLocked(ctx, key.SpecURL)
	if c.metrics != nil {
		if err != nil {
			c.metrics.OnSpecFetch("error")
		} else {
			c.metrics.OnSpecFetch("success")
		}
	}
	if err != nil {
		return nil, err
	}

	client := c.newOriginClient()
	provider, err := c.builder(ctx, spec, key.APIURL, client)
	if err != nil {
		// Don't leak the connection pool of the client we just made.
		client.CloseIdleConnections()
		return nil, fmt.Errorf("%w: %w", ErrResourceBuild, err)
	}

	h := &ResourceHandle{
		Provider:  provider,
		Client:    client,
		expiresAt: now.Add(c.ttl),
	}

	// A zero TTL disables caching: the handle is returned but never stored,
	// so the next request repeats the whole slow path.
	if c.ttl > 0 {
		c.entries[key] = h
		c.reportSizeLocked()
	}

	c.logger.Debug("built per-origin resource",
		logging.SpecURL(key.SpecURL),
		logging.APIURL(key.APIURL),
		slog.Int("tools", len(provider.Tools())),
		slog.Bool("cached", c.ttl > 0),
	)

	return h, nil
}

// fetchSpecLocked fetches the raw specification document via the shared
// fetch client, creating the client on first use. Must be called with the
// exclusive lock held.
func (c *OriginCache) fetchSpecLocked(ctx context.Context, specURL string) ([]byte, error) {
	if c.fetchClient == nil {
		c.fetchClient = &http.Client{Timeout: c.fetchTimeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, specURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSpecFetch, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.fetchClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSpecFetch, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrSpecFetch, specURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSpecSize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrSpecFetch, specURL, err)
	}

	return body, nil
}

// removeLocked removes an entry from the map and releases its client's idle
// connections. The client is only closed after the entry is unreachable
// from the map; CloseIdleConnections never interrupts an in-flight call, so
// a request that grabbed the handle just before eviction finishes normally.
// Must be called with the exclusive lock held.
func (c *OriginCache) removeLocked(key CacheKey, h *ResourceHandle, reason string) {
	delete(c.entries, key)
	h.Client.CloseIdleConnections()

	if c.metrics != nil {
		c.metrics.OnCacheEviction(reason)
	}
	c.reportSizeLocked()
}

// reportSizeLocked reports the current cache size to metrics.
// Must be called with the exclusive lock held.
func (c *OriginCache) reportSizeLocked() {
	if c.metrics != nil {
		c.metrics.OnCacheSizeChange(len(c.entries))
	}
}

func (c *OriginCache) recordHit() {
	if c.metrics != nil {
		c.metrics.OnCacheHit()
	}
}

func (c *OriginCache) recordMiss() {
	if c.metrics != nil {
		c.metrics.OnCacheMiss()
	}
}

// cleanupLoop periodically removes expired entries until Close is called.
func (c *OriginCache) cleanupLoop() {
	ticker := time.NewTicker(DefaultCacheCleanupInterval)
	defer ticker.Stop()
	defer close(c.cleanupDone)

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stopCleanup:
			return
		}
	}
}

// cleanup removes all expired entries from the cache.
func (c *OriginCache) cleanup() {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	for key, h := range c.entries {
		if h.Expired(now) {
			c.removeLocked(key, h, "expired")
		}
	}
}

// Close stops the cleanup goroutine, closes every cached client and the
// shared fetch client, and clears the map. Idempotent.
func (c *OriginCache) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for key, h := range c.entries {
		c.removeLocked(key, h, "closed")
	}
	if c.fetchClient != nil {
		c.fetchClient.CloseIdleConnections()
	}
	c.mu.Unlock()

	close(c.stopCleanup)
	<-c.cleanupDone
}

// CacheStats reports cache state for health endpoints and monitoring.
type CacheStats struct {
	Size int           `json:"size"`
	TTL  time.Duration `json:"ttl"`
}

// Stats returns current cache statistics.
func (c *OriginCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return CacheStats{
		Size: len(c.entries),
		TTL:  c.ttl,
	}
}
