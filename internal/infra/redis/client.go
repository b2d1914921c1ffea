// Package redis backs the cache, the rate limiter and the one-time code
// store with a shared Redis instance so several server processes see the
// same state.
package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps the Redis connection shared by the storefront stores.
type Client struct {
	rdb    *redis.Client
	prefix string
}

// Config holds Redis connection configuration.
type Config struct {
	URL       string `yaml:"url"`
	Password  string `yaml:"password"`
	KeyPrefix string `yaml:"key_prefix"`
}

// NewClient connects to cfg.URL and verifies the connection.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb, prefix: normalizePrefix(cfg.KeyPrefix)}, nil
}

// Ping checks the connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

func normalizePrefix(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "storefront:"
	}
	if !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}
	return prefix
}

// Key helpers
func (c *Client) cacheKey(key string) string {
	return c.prefix + "cache:" + key
}

func (c *Client) rateLimitKey(key string) string {
	return c.prefix + "ratelimit:" + key
}

func (c *Client) otpKey(ownerKey string) string {
	return c.prefix + "otp:" + ownerKey
}

// scanAll returns every key matching pattern.
func (c *Client) scanAll(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := c.rdb.Scan(ctx, 0, pattern, 200).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", pattern, err)
	}
	return keys, nil
}

// deleteKeys removes keys in batches and returns how many existed.
func (c *Client) deleteKeys(ctx context.Context, keys []string) (int, error) {
	const batch = 500

	removed := 0
	for start := 0; start < len(keys); start += batch {
		end := min(start+batch, len(keys))
		n, err := c.rdb.Del(ctx, keys[start:end]...).Result()
		if err != nil {
			return removed, fmt.Errorf("del failed: %w", err)
		}
		removed += int(n)
	}
	return removed, nil
}

// escapeGlob quotes the characters SCAN MATCH treats as wildcards.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
