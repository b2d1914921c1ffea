package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"
)

// Store is the contract shared by the in-memory cache and external backends.
// Backends that serialize values return them as json.RawMessage from Get.
type Store interface {
	Get(ctx context.Context, key string) (any, bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) (bool, error)
	Invalidate(ctx context.Context, pattern string) (int, error)
	Clear(ctx context.Context) error
	Stats(ctx context.Context) (Stats, error)
}

type memoryStore struct {
	c *TTLCache
}

// NewMemoryStore exposes c through the Store interface.
func NewMemoryStore(c *TTLCache) Store {
	return &memoryStore{c: c}
}

func (s *memoryStore) Get(_ context.Context, key string) (any, bool, error) {
	v, ok := s.c.Get(key)
	return v, ok, nil
}

func (s *memoryStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	s.c.Set(key, value, ttl)
	return nil
}

func (s *memoryStore) Delete(_ context.Context, key string) (bool, error) {
	return s.c.Delete(key), nil
}

func (s *memoryStore) Invalidate(_ context.Context, pattern string) (int, error) {
	return s.c.Invalidate(pattern), nil
}

func (s *memoryStore) Clear(_ context.Context) error {
	s.c.Clear()
	return nil
}

func (s *memoryStore) Stats(_ context.Context) (Stats, error) {
	return s.c.Stats(), nil
}

// WithCache returns the cached value for key, or calls produce and stores its
// result for ttl. Concurrent callers that miss together each call produce and
// the last write wins; producers are expected to be idempotent. Cache backend
// errors degrade to a miss.
func WithCache[T any](
	ctx context.Context,
	store Store,
	key string,
	ttl time.Duration,
	produce func(context.Context) (T, error),
) (T, error) {
	if v, ok := lookup[T](ctx, store, key); ok {
		return v, nil
	}

	value, err := produce(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	if err := store.Set(ctx, key, value, ttl); err != nil {
		slog.Warn("Cache write failed", "key", key, "error", err)
	}
	return value, nil
}

// Coalesced is a get-or-compute helper that lets only one producer run per
// key at a time; callers arriving while it runs share its result.
type Coalesced[T any] struct {
	store Store
	group singleflight.Group
}

// NewCoalesced creates a coalescing helper over store.
func NewCoalesced[T any](store Store) *Coalesced[T] {
	return &Coalesced[T]{store: store}
}

// Get behaves like WithCache but de-duplicates concurrent misses for key.
// The shared producer runs detached from the caller's cancellation so one
// abandoned request does not fail the others waiting on it.
func (c *Coalesced[T]) Get(
	ctx context.Context,
	key string,
	ttl time.Duration,
	produce func(context.Context) (T, error),
) (T, error) {
	if v, ok := lookup[T](ctx, c.store, key); ok {
		return v, nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		return WithCache(context.WithoutCancel(ctx), c.store, key, ttl, produce)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case res = <-ch:
	}
	v, err := res.Val, res.Err
	if err != nil {
		var zero T
		return zero, err
	}
	result, _ := v.(T)
	return result, nil
}

func lookup[T any](ctx context.Context, store Store, key string) (T, bool) {
	var zero T

	raw, ok, err := store.Get(ctx, key)
	if err != nil {
		slog.Warn("Cache read failed", "key", key, "error", err)
		return zero, false
	}
	if !ok {
		return zero, false
	}

	if v, ok := raw.(T); ok {
		return v, true
	}

	var data []byte
	switch b := raw.(type) {
	case json.RawMessage:
		data = b
	case []byte:
		data = b
	case string:
		data = []byte(b)
	default:
		return zero, false
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		slog.Warn("Cache entry has unexpected shape", "key", key, "error", err)
		return zero, false
	}
	return v, true
}
