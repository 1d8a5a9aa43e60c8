package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"

	"github.com/newswire-dev/newswire/internal/metrics"
)

const (
	// DefaultTTL applies when Set is called with a non-positive TTL.
	DefaultTTL = 300 * time.Second

	connectRetryDelay  = 1 * time.Second
	maxConnectAttempts = 3
	connectTimeout     = 2 * time.Second
)

// Client wraps a Redis connection with cache-aside semantics. Construction
// never dials; the connection is established lazily on the first operation.
// A Client whose connect attempts are exhausted stays in always-miss mode
// until the process restarts.
type Client struct {
	url   string
	clock clockwork.Clock

	mu           sync.Mutex
	rdb          *redis.Client
	connected    bool
	attempts     int
	exhausted    bool
	retryPending bool

	statsMu     sync.Mutex
	hits        int64
	misses      int64
	totalOps    int64
	avgResponse float64 // milliseconds, incremental running mean
}

// MetricsSnapshot is the externally visible view of the client's counters.
type MetricsSnapshot struct {
	CacheHits           int64   `json:"cacheHits"`
	CacheMisses         int64   `json:"cacheMisses"`
	TotalOperations     int64   `json:"totalOperations"`
	AverageResponseTime float64 `json:"averageResponseTime"`
	HitRate             float64 `json:"hitRate"`
}

// New creates a cache client for the given Redis URL. The clock is injected
// so tests can drive the reconnect delay deterministically.
func New(url string, clock clockwork.Clock) *Client {
	return &Client{url: url, clock: clock}
}

// Available reports whether the client currently holds a live connection.
func (c *Client) Available() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Ping verifies the connection for health checks. Unlike the cache
// operations it returns an error, since health endpoints want the reason.
func (c *Client) Ping(ctx context.Context) error {
	rdb := c.client(ctx)
	if rdb == nil {
		return errors.New("cache unavailable")
	}
	return rdb.Ping(ctx).Err()
}

// Close releases the underlying connection, if any.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rdb == nil {
		return nil
	}
	c.connected = false
	return c.rdb.Close()
}

// client returns the live Redis client, lazily connecting if needed.
// Returns nil when the cache is unavailable; callers degrade to empty values.
func (c *Client) client(ctx context.Context) *redis.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected {
		return c.rdb
	}
	if c.exhausted || c.retryPending {
		return nil
	}
	return c.connectLocked(ctx)
}

func (c *Client) connectLocked(ctx context.Context) *redis.Client {
	c.attempts++
	metrics.CacheConnectAttempts.Inc()

	opts, err := redis.ParseURL(c.url)
	if err == nil {
		rdb := redis.NewClient(opts)
		rdb.AddHook(metricsHook{})
		pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		err = rdb.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			c.rdb = rdb
			c.connected = true
			metrics.CacheUnavailable.Set(0)
			slog.Info("Cache connected", "attempt", c.attempts)
			return rdb
		}
		_ = rdb.Close()
	}

	metrics.CacheConnectionErrors.Inc()
	slog.Warn("Cache connect failed", "attempt", c.attempts, "error", err)

	if c.attempts >= maxConnectAttempts {
		c.exhausted = true
		metrics.CacheUnavailable.Set(1)
		slog.Warn("Cache unavailable, degrading to always-miss", "attempts", c.attempts)
		return nil
	}

	c.retryPending = true
	go c.retryAfterDelay()
	return nil
}

func (c *Client) retryAfterDelay() {
	c.clock.Sleep(connectRetryDelay)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.retryPending = false
	if c.connected || c.exhausted {
		return
	}
	c.connectLocked(context.Background())
}

// Get fetches and JSON-decodes the value at key into dest. Returns true only
// on a hit; misses, decode failures, and cache unavailability all return
// false without an error.
func (c *Client) Get(ctx context.Context, key string, dest any) bool {
	rdb := c.client(ctx)
	if rdb == nil {
		return false
	}

	start := c.clock.Now()
	raw, err := rdb.Get(ctx, key).Bytes()
	elapsed := c.clock.Since(start)

	if errors.Is(err, redis.Nil) {
		c.recordGet(elapsed, false)
		return false
	}
	if err != nil {
		slog.Debug("Cache get failed", "key", key, "error", err)
		c.recordGet(elapsed, false)
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		slog.Warn("Cache entry not decodable, treating as miss", "key", key, "error", err)
		c.recordGet(elapsed, false)
		return false
	}

	c.recordGet(elapsed, true)
	return true
}

// Set JSON-encodes value and stores it at key with the given TTL.
// A non-positive TTL falls back to DefaultTTL.
func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) bool {
	rdb := c.client(ctx)
	if rdb == nil {
		return false
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	payload, err := json.Marshal(value)
	if err != nil {
		slog.Warn("Cache set skipped, value not serializable", "key", key, "error", err)
		return false
	}

	start := c.clock.Now()
	err = rdb.Set(ctx, key, payload, ttl).Err()
	c.recordOp(c.clock.Since(start))

	if err != nil {
		slog.Debug("Cache set failed", "key", key, "error", err)
		return false
	}
	return true
}

// Del removes key and reports whether a key was actually deleted.
func (c *Client) Del(ctx context.Context, key string) bool {
	rdb := c.client(ctx)
	if rdb == nil {
		return false
	}

	start := c.clock.Now()
	removed, err := rdb.Del(ctx, key).Result()
	c.recordOp(c.clock.Since(start))

	if err != nil {
		slog.Debug("Cache del failed", "key", key, "error", err)
		return false
	}
	return removed > 0
}

// Exists reports whether key is present.
func (c *Client) Exists(ctx context.Context, key string) bool {
	rdb := c.client(ctx)
	if rdb == nil {
		return false
	}

	start := c.clock.Now()
	count, err := rdb.Exists(ctx, key).Result()
	c.recordOp(c.clock.Since(start))

	if err != nil {
		slog.Debug("Cache exists failed", "key", key, "error", err)
		return false
	}
	return count > 0
}

// SAdd adds member to the set at key.
func (c *Client) SAdd(ctx context.Context, key, member string) bool {
	rdb := c.client(ctx)
	if rdb == nil {
		return false
	}

	start := c.clock.Now()
	err := rdb.SAdd(ctx, key, member).Err()
	c.recordOp(c.clock.Since(start))

	if err != nil {
		slog.Debug("Cache sadd failed", "key", key, "error", err)
		return false
	}
	return true
}

// SRem removes member from the set at key.
func (c *Client) SRem(ctx context.Context, key, member string) bool {
	rdb := c.client(ctx)
	if rdb == nil {
		return false
	}

	start := c.clock.Now()
	err := rdb.SRem(ctx, key, member).Err()
	c.recordOp(c.clock.Since(start))

	if err != nil {
		slog.Debug("Cache srem failed", "key", key, "error", err)
		return false
	}
	return true
}

// SIsMember reports whether member is in the set at key.
func (c *Client) SIsMember(ctx context.Context, key, member string) bool {
	rdb := c.client(ctx)
	if rdb == nil {
		return false
	}

	start := c.clock.Now()
	ok, err := rdb.SIsMember(ctx, key, member).Result()
	c.recordOp(c.clock.Since(start))

	if err != nil {
		slog.Debug("Cache sismember failed", "key", key, "error", err)
		return false
	}
	return ok
}

// SMembers returns all members of the set at key, or an empty slice on any failure.
func (c *Client) SMembers(ctx context.Context, key string) []string {
	rdb := c.client(ctx)
	if rdb == nil {
		return []string{}
	}

	start := c.clock.Now()
	members, err := rdb.SMembers(ctx, key).Result()
	c.recordOp(c.clock.Since(start))

	if err != nil {
		slog.Debug("Cache smembers failed", "key", key, "error", err)
		return []string{}
	}
	return members
}

// FlushAll clears the entire store. Administrative use only.
func (c *Client) FlushAll(ctx context.Context) bool {
	rdb := c.client(ctx)
	if rdb == nil {
		return false
	}

	start := c.clock.Now()
	err := rdb.FlushAll(ctx).Err()
	c.recordOp(c.clock.Since(start))

	if err != nil {
		slog.Warn("Cache flush failed", "error", err)
		return false
	}
	slog.Info("Cache flushed")
	return true
}

// Metrics returns a snapshot of the client's counters. HitRate is a
// percentage in [0,100] and 0 when no gets have been recorded.
func (c *Client) Metrics() MetricsSnapshot {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()

	snap := MetricsSnapshot{
		CacheHits:           c.hits,
		CacheMisses:         c.misses,
		TotalOperations:     c.totalOps,
		AverageResponseTime: c.avgResponse,
	}
	if gets := c.hits + c.misses; gets > 0 {
		snap.HitRate = float64(c.hits) / float64(gets) * 100
	}
	return snap
}

func (c *Client) recordGet(elapsed time.Duration, hit bool) {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	if hit {
		c.hits++
	} else {
		c.misses++
	}
	c.recordLocked(elapsed)
}

func (c *Client) recordOp(elapsed time.Duration) {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	c.recordLocked(elapsed)
}

// recordLocked folds a latency sample into the running mean. statsMu held.
func (c *Client) recordLocked(elapsed time.Duration) {
	c.totalOps++
	latest := float64(elapsed.Microseconds()) / 1000.0
	n := float64(c.totalOps)
	c.avgResponse = (c.avgResponse*(n-1) + latest) / n
}

// connectionAttempts is exposed for tests of the bounded-retry contract.
func (c *Client) connectionAttempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

var _ fmt.Stringer = MetricsSnapshot{}

// String renders the snapshot for log output.
func (s MetricsSnapshot) String() string {
	return fmt.Sprintf("hits=%d misses=%d ops=%d avg=%.2fms hit_rate=%.1f%%",
		s.CacheHits, s.CacheMisses, s.TotalOperations, s.AverageResponseTime, s.HitRate)
}
