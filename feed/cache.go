package feed

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
	"github.com/rustyeddy/sentinel/market"
	"github.com/rustyeddy/sentinel/pkg/clock"
)

// Cache holds recently fetched series for a short TTL. A cache failure is a
// miss, never an error.
type Cache interface {
	Get(ctx context.Context, key string) (market.Series, bool)
	Set(ctx context.Context, key string, s market.Series, ttl time.Duration)
}

func cacheKey(interval Interval, ticker string) string {
	return "sentinel:series:" + string(interval) + ":" + ticker
}

type memEntry struct {
	s       market.Series
	expires time.Time
}

// MemoryCache is the default in-process cache.
type MemoryCache struct {
	clock clock.Clock
	mu    sync.Mutex
	items map[string]memEntry
}

func NewMemoryCache(c clock.Clock) *MemoryCache {
	if c == nil {
		c = clock.Real{}
	}
	return &MemoryCache{clock: c, items: make(map[string]memEntry)}
}

func (m *MemoryCache) Get(_ context.Context, key string) (market.Series, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.items[key]
	if !ok {
		return nil, false
	}
	if !m.clock.Now().Before(e.expires) {
		delete(m.items, key)
		return nil, false
	}
	return e.s, true
}

func (m *MemoryCache) Set(_ context.Context, key string, s market.Series, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = memEntry{s: s, expires: m.clock.Now().Add(ttl)}
}

// RedisCache shares fetched series between processes (for example a
// scanner and a one-off `scan` command) so they do not double the request
// volume.
type RedisCache struct {
	c *redis.Client
}

func NewRedisCache(addr, password string, db int) *RedisCache {
	return &RedisCache{c: redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		MaxRetries:   1,
	})}
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(c *redis.Client) *RedisCache {
	return &RedisCache{c: c}
}

func (r *RedisCache) Get(ctx context.Context, key string) (market.Series, bool) {
	val, err := r.c.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			log.Debug().Err(err).Str("key", key).Msg("redis cache get failed")
		}
		return nil, false
	}
	var s market.Series
	if err := json.Unmarshal([]byte(val), &s); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("redis cache decode failed")
		return nil, false
	}
	return s, true
}

func (r *RedisCache) Set(ctx context.Context, key string, s market.Series, ttl time.Duration) {
	data, err := json.Marshal(s)
	if err != nil {
		return
	}
	if err := r.c.Set(ctx, key, string(data), ttl).Err(); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("redis cache set failed")
	}
}

func (r *RedisCache) Close() error { return r.c.Close() }
