package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AFFWORLDT/WHITLIN-sub002/internal/metrics"
	"github.com/AFFWORLDT/WHITLIN-sub002/internal/security/ratelimit"
)

// fixedWindowScript counts a request and starts the window on the first one.
// Returns {count, remaining window in ms}.
var fixedWindowScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
local ttl = redis.call('PTTL', KEYS[1])
if count == 1 or ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RateLimiter is a fixed-window ratelimit.Limiter shared through Redis.
// Windows expire on their own; no sweep is needed.
type RateLimiter struct {
	c   *Client
	cfg ratelimit.Config
	now func() time.Time
}

var _ ratelimit.Limiter = (*RateLimiter)(nil)

// NewRateLimiter creates a limiter on c. Zero fields in cfg use the defaults.
func NewRateLimiter(c *Client, cfg ratelimit.Config) *RateLimiter {
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = ratelimit.DefaultConfig.MaxRequests
	}
	if cfg.Window <= 0 {
		cfg.Window = ratelimit.DefaultConfig.Window
	}
	return &RateLimiter{c: c, cfg: cfg, now: time.Now}
}

func (l *RateLimiter) Check(ctx context.Context, key string) (ratelimit.Result, error) {
	vals, err := fixedWindowScript.Run(ctx, l.c.rdb,
		[]string{l.c.rateLimitKey(key)},
		l.cfg.Window.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return ratelimit.Result{}, fmt.Errorf("rate limit script: %w", err)
	}
	if len(vals) != 2 {
		return ratelimit.Result{}, fmt.Errorf("rate limit script: unexpected reply %v", vals)
	}

	return windowResult(key, vals[0], vals[1], l.cfg.MaxRequests, l.now()), nil
}

func windowResult(key string, count, ttlMillis int64, limit int, now time.Time) ratelimit.Result {
	res := ratelimit.Result{
		Success:   count <= int64(limit),
		Limit:     limit,
		Remaining: max(limit-int(count), 0),
		ResetTime: now.Add(time.Duration(ttlMillis) * time.Millisecond),
	}
	if !res.Success {
		metrics.RateLimitRejections.WithLabelValues(ratelimit.Namespace(key)).Inc()
	}
	return res
}
