package profile

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// countingStore counts trending aggregate computations.
type countingStore struct {
	*MemStore
	hashtagCalls atomic.Int64
	delay        time.Duration
}

func (s *countingStore) GetTrendingHashtags(ctx context.Context, windowDays, minUsage int) ([]string, error) {
	s.hashtagCalls.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.MemStore.GetTrendingHashtags(ctx, windowDays, minUsage)
}

// TestTrendingCache_ColdMiss verifies a cold cache blocks on one refresh.
func TestTrendingCache_ColdMiss(t *testing.T) {
	store := &countingStore{MemStore: NewMemStore()}
	store.SetTrendingHashtags([]string{"vibes"})

	cache := NewTrendingCache(store)
	snap := cache.Get(context.Background())

	if len(snap.Hashtags) != 1 || snap.Hashtags[0] != "vibes" {
		t.Errorf("expected refreshed snapshot, got %+v", snap)
	}
	if calls := store.hashtagCalls.Load(); calls != 1 {
		t.Errorf("expected 1 aggregate computation, got %d", calls)
	}
}

// TestTrendingCache_Hit verifies a fresh snapshot is served without
// recomputation.
func TestTrendingCache_Hit(t *testing.T) {
	store := &countingStore{MemStore: NewMemStore()}
	store.SetTrendingHashtags([]string{"vibes"})

	cache := NewTrendingCache(store)
	cache.Get(context.Background())
	cache.Get(context.Background())
	cache.Get(context.Background())

	if calls := store.hashtagCalls.Load(); calls != 1 {
		t.Errorf("expected 1 aggregate computation for repeated gets, got %d", calls)
	}
}

// TestTrendingCache_SingleFlight verifies concurrent cold gets collapse to
// one computation.
func TestTrendingCache_SingleFlight(t *testing.T) {
	store := &countingStore{MemStore: NewMemStore(), delay: 50 * time.Millisecond}
	store.SetTrendingHashtags([]string{"vibes"})

	cache := NewTrendingCache(store)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap := cache.Get(context.Background())
			if len(snap.Hashtags) != 1 {
				t.Error("expected snapshot from collapsed refresh")
			}
		}()
	}
	wg.Wait()

	if calls := store.hashtagCalls.Load(); calls != 1 {
		t.Errorf("expected 1 collapsed computation, got %d", calls)
	}
}

// TestTrendingCache_StaleWhileRevalidate verifies an expired snapshot is
// served immediately while a background refresh runs.
func TestTrendingCache_StaleWhileRevalidate(t *testing.T) {
	store := &countingStore{MemStore: NewMemStore()}
	store.SetTrendingHashtags([]string{"old"})

	cache := NewTrendingCache(store)
	cache.Get(context.Background())

	// Expire the snapshot and change the upstream data.
	cache.mu.Lock()
	cache.snap.ComputedAt = time.Now().Add(-MaxTrendingTTL - time.Minute)
	cache.mu.Unlock()
	store.SetTrendingHashtags([]string{"new"})

	snap := cache.Get(context.Background())
	if len(snap.Hashtags) != 1 || snap.Hashtags[0] != "old" {
		t.Errorf("expected stale snapshot served immediately, got %+v", snap)
	}

	// The background refresh should land shortly.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap = cache.Get(context.Background())
		if len(snap.Hashtags) == 1 && snap.Hashtags[0] == "new" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("background refresh never replaced the stale snapshot")
}

// TestTrendingCache_FailedRefreshServesEmpty verifies a cold cache with a
// broken store degrades to an empty snapshot instead of failing.
func TestTrendingCache_FailedRefreshServesEmpty(t *testing.T) {
	store := &failingStore{ContentStore: NewMemStore(), failTrending: true}

	cache := NewTrendingCache(store)
	snap := cache.Get(context.Background())

	if len(snap.Hashtags) != 0 || len(snap.Interests) != 0 {
		t.Errorf("expected empty snapshot on refresh failure, got %+v", snap)
	}
}

// TestTrendingCache_TTLClamped verifies the TTL bounds.
func TestTrendingCache_TTLClamped(t *testing.T) {
	tests := []struct {
		name     string
		ttl      time.Duration
		expected time.Duration
	}{
		{name: "below minimum", ttl: time.Minute, expected: MinTrendingTTL},
		{name: "above maximum", ttl: time.Hour, expected: MaxTrendingTTL},
		{name: "in range", ttl: 7 * time.Minute, expected: 7 * time.Minute},
		{name: "zero keeps default", ttl: 0, expected: DefaultTrendingTTL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := NewTrendingCache(NewMemStore(), WithTrendingTTL(tt.ttl))
			if cache.ttl != tt.expected {
				t.Errorf("expected ttl %s, got %s", tt.expected, cache.ttl)
			}
		})
	}
}

// TestTrendingCache_Redis tests the cross-process warm layer with a real
// Redis instance. This test requires Redis on localhost:6379 and skips
// otherwise.
func TestTrendingCache_Redis(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Redis not available, skipping integration test")
	}
	defer func() { _ = client.Close() }()

	// Isolate the shared key for this run.
	client.Del(context.Background(), trendingRedisKey)
	defer client.Del(context.Background(), trendingRedisKey)

	store := NewMemStore()
	store.SetTrendingHashtags([]string{"vibes-" + strconv.FormatInt(time.Now().UnixNano(), 10)})

	// First process computes and publishes.
	warm := NewTrendingCache(store, WithTrendingRedis(client))
	published := warm.Get(context.Background())

	// A cold sibling with a broken store still warms from Redis.
	cold := NewTrendingCache(
		&failingStore{ContentStore: NewMemStore(), failTrending: true},
		WithTrendingRedis(client))
	snap := cold.Get(context.Background())

	if len(snap.Hashtags) != 1 || snap.Hashtags[0] != published.Hashtags[0] {
		t.Errorf("expected warm snapshot from Redis, got %+v", snap)
	}
}
