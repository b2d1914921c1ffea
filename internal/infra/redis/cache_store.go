package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AFFWORLDT/WHITLIN-sub002/internal/infra/cache"
	"github.com/AFFWORLDT/WHITLIN-sub002/internal/metrics"
)

// CacheStore implements cache.Store on Redis. Values are stored as JSON and
// returned from Get as json.RawMessage.
type CacheStore struct {
	c *Client
}

var _ cache.Store = (*CacheStore)(nil)

// NewCacheStore creates a cache store on c.
func NewCacheStore(c *Client) *CacheStore {
	return &CacheStore{c: c}
}

func (s *CacheStore) Get(ctx context.Context, key string) (any, bool, error) {
	val, err := s.c.rdb.Get(ctx, s.c.cacheKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CacheMisses.WithLabelValues("redis").Inc()
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get failed: %w", err)
	}
	metrics.CacheHits.WithLabelValues("redis").Inc()
	return json.RawMessage(val), true, nil
}

func (s *CacheStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		_, err := s.Delete(ctx, key)
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache value: %w", err)
	}
	if err := s.c.rdb.Set(ctx, s.c.cacheKey(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("set failed: %w", err)
	}
	return nil
}

func (s *CacheStore) Delete(ctx context.Context, key string) (bool, error) {
	n, err := s.c.rdb.Del(ctx, s.c.cacheKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("del failed: %w", err)
	}
	return n > 0, nil
}

// Invalidate removes every cache key containing pattern.
func (s *CacheStore) Invalidate(ctx context.Context, pattern string) (int, error) {
	keys, err := s.c.scanAll(ctx, s.c.cacheKey("*"+escapeGlob(pattern)+"*"))
	if err != nil {
		return 0, err
	}
	return s.c.deleteKeys(ctx, keys)
}

func (s *CacheStore) Clear(ctx context.Context) error {
	keys, err := s.c.scanAll(ctx, s.c.cacheKey("*"))
	if err != nil {
		return err
	}
	_, err = s.c.deleteKeys(ctx, keys)
	return err
}

func (s *CacheStore) Stats(ctx context.Context) (cache.Stats, error) {
	keys, err := s.c.scanAll(ctx, s.c.cacheKey("*"))
	if err != nil {
		return cache.Stats{}, err
	}

	prefix := s.c.cacheKey("")
	stats := cache.Stats{Keys: make([]string, 0, len(keys))}
	for _, key := range keys {
		stats.Keys = append(stats.Keys, strings.TrimPrefix(key, prefix))
	}
	sort.Strings(stats.Keys)
	stats.Size = len(stats.Keys)
	return stats, nil
}
