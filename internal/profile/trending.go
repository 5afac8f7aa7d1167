package profile

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Trending cache TTL bounds. Trending data is advisory, so the TTL trades
// freshness against aggregate query cost.
const (
	DefaultTrendingTTL = 10 * time.Minute
	MinTrendingTTL     = 5 * time.Minute
	MaxTrendingTTL     = 15 * time.Minute
)

// trendingRedisKey is the shared Redis key for the warm snapshot.
const trendingRedisKey = "feedcore:trending:snapshot"

// TrendingSnapshot is one computation of the trending aggregates, shared
// across all users until it expires.
type TrendingSnapshot struct {
	Hashtags   []string  `cbor:"hashtags"`
	Interests  []string  `cbor:"interests"`
	ComputedAt time.Time `cbor:"computed_at"`
}

// TrendingCache holds the process-wide trending snapshot. The aggregate
// queries are expensive, so refreshes are collapsed to a single flight and
// an expired snapshot is served stale while a background refresh runs.
// An optional Redis layer warms cold processes from a sibling's snapshot.
type TrendingCache struct {
	store   ContentStore
	ttl     time.Duration
	timeout time.Duration
	logger  *slog.Logger
	metrics *Metrics
	rdb     *redis.Client

	group singleflight.Group

	mu   sync.RWMutex
	snap *TrendingSnapshot
}

// TrendingCacheOption configures a TrendingCache.
type TrendingCacheOption func(*TrendingCache)

// WithTrendingTTL sets the snapshot TTL, clamped to [MinTrendingTTL, MaxTrendingTTL].
func WithTrendingTTL(ttl time.Duration) TrendingCacheOption {
	return func(c *TrendingCache) {
		if ttl <= 0 {
			return
		}
		if ttl < MinTrendingTTL {
			ttl = MinTrendingTTL
		}
		if ttl > MaxTrendingTTL {
			ttl = MaxTrendingTTL
		}
		c.ttl = ttl
	}
}

// WithTrendingRedis attaches a Redis client as a cross-process warm layer.
// All Redis failures are silent; the in-process snapshot is authoritative.
func WithTrendingRedis(client *redis.Client) TrendingCacheOption {
	return func(c *TrendingCache) {
		c.rdb = client
	}
}

// WithTrendingLogger sets the cache's logger.
func WithTrendingLogger(logger *slog.Logger) TrendingCacheOption {
	return func(c *TrendingCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTrendingMetrics sets the cache's metrics.
func WithTrendingMetrics(m *Metrics) TrendingCacheOption {
	return func(c *TrendingCache) {
		c.metrics = m
	}
}

// WithTrendingTimeout bounds the store queries during a refresh.
func WithTrendingTimeout(d time.Duration) TrendingCacheOption {
	return func(c *TrendingCache) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewTrendingCache creates a trending cache over the store.
func NewTrendingCache(store ContentStore, opts ...TrendingCacheOption) *TrendingCache {
	c := &TrendingCache{
		store:   store,
		ttl:     DefaultTrendingTTL,
		timeout: DefaultStoreTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the current trending snapshot. A fresh snapshot is returned
// directly; an expired one is served immediately while a single background
// refresh runs (stale-while-revalidate); a cold cache blocks on one
// refresh. Get never returns an error: a failed refresh yields whatever
// snapshot exists, or an empty one.
func (c *TrendingCache) Get(ctx context.Context) TrendingSnapshot {
	c.mu.RLock()
	snap := c.snap
	c.mu.RUnlock()

	now := time.Now()
	if snap != nil {
		if now.Sub(snap.ComputedAt) < c.ttl {
			if c.metrics != nil {
				c.metrics.IncTrendingCache("hit")
			}
			return *snap
		}

		// Expired: serve stale, refresh in the background.
		if c.metrics != nil {
			c.metrics.IncTrendingCache("stale")
		}
		c.refreshAsync()
		return *snap
	}

	if c.metrics != nil {
		c.metrics.IncTrendingCache("miss")
	}

	// Cold cache: a sibling process may have a warm snapshot in Redis.
	if warm := c.readRedis(ctx); warm != nil {
		c.mu.Lock()
		if c.snap == nil {
			c.snap = warm
		}
		snap = c.snap
		c.mu.Unlock()
		return *snap
	}

	refreshed, err, _ := c.group.Do("trending", func() (any, error) {
		return c.refresh()
	})
	if err != nil {
		c.logger.Warn("trending refresh failed, serving empty snapshot", "error", err)
		return TrendingSnapshot{ComputedAt: now}
	}
	return *(refreshed.(*TrendingSnapshot))
}

// refreshAsync triggers a non-blocking single-flight refresh.
func (c *TrendingCache) refreshAsync() {
	ch := c.group.DoChan("trending", func() (any, error) {
		return c.refresh()
	})
	go func() {
		res := <-ch
		if res.Err != nil {
			c.logger.Warn("background trending refresh failed", "error", res.Err)
		}
	}()
}

// refresh recomputes the snapshot from the store and stores it locally and
// in Redis. Runs detached from any request context: the result outlives
// the request that triggered it.
func (c *TrendingCache) refresh() (*TrendingSnapshot, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	hashtags, err := c.store.GetTrendingHashtags(ctx, TrendingHashtagWindowDays, TrendingHashtagMinUsage)
	if err != nil {
		if c.metrics != nil {
			c.metrics.IncTrendingRefreshError()
		}
		return nil, fmt.Errorf("trending hashtags: %w", err)
	}

	interests, err := c.store.GetTrendingInterests(ctx, TrendingInterestWindowDays, TrendingInterestMinCount)
	if err != nil {
		if c.metrics != nil {
			c.metrics.IncTrendingRefreshError()
		}
		return nil, fmt.Errorf("trending interests: %w", err)
	}

	snap := &TrendingSnapshot{
		Hashtags:   hashtags,
		Interests:  interests,
		ComputedAt: time.Now(),
	}

	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()

	c.writeRedis(ctx, snap)
	return snap, nil
}

// readRedis attempts to load a warm snapshot written by another process.
func (c *TrendingCache) readRedis(ctx context.Context) *TrendingSnapshot {
	if c.rdb == nil {
		return nil
	}

	data, err := c.rdb.Get(ctx, trendingRedisKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug("trending redis read failed", "error", err)
		}
		return nil
	}

	var snap TrendingSnapshot
	if err := cbor.Unmarshal(data, &snap); err != nil {
		c.logger.Debug("trending redis snapshot undecodable", "error", err)
		return nil
	}
	if time.Since(snap.ComputedAt) >= c.ttl {
		return nil
	}
	return &snap
}

// writeRedis publishes the snapshot for sibling processes.
func (c *TrendingCache) writeRedis(ctx context.Context, snap *TrendingSnapshot) {
	if c.rdb == nil {
		return
	}

	data, err := cbor.Marshal(snap)
	if err != nil {
		c.logger.Debug("trending snapshot encode failed", "error", err)
		return
	}
	if err := c.rdb.Set(ctx, trendingRedisKey, data, c.ttl).Err(); err != nil {
		c.logger.Debug("trending redis write failed", "error", err)
	}
}
