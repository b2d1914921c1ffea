// Package ratelimit throttles sensitive endpoints with a fixed-window counter.
//
// A fixed window resets all at once, so a client can send up to twice
// MaxRequests in quick succession across a window boundary. That is the
// accepted behavior of this limiter.
package ratelimit

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/AFFWORLDT/WHITLIN-sub002/internal/core/domain"
	"github.com/AFFWORLDT/WHITLIN-sub002/internal/metrics"
)

// Config defines the window size and allowance.
type Config struct {
	MaxRequests int           `yaml:"max_requests"`
	Window      time.Duration `yaml:"window"`
}

// DefaultConfig is the allowance used for authentication endpoints.
var DefaultConfig = Config{
	MaxRequests: 10,
	Window:      15 * time.Minute,
}

// Result is the outcome of a single Check.
type Result struct {
	Success   bool      `json:"success"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetTime time.Time `json:"resetTime"`
}

// RetryAfter returns the whole seconds left until the window resets, at least 1.
func (r Result) RetryAfter(now time.Time) int {
	secs := int(math.Ceil(r.ResetTime.Sub(now).Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

// Limiter is implemented by the in-memory and shared-backend limiters.
type Limiter interface {
	Check(ctx context.Context, key string) (Result, error)
}

// Key builds a limiter key from a namespace such as "auth" and a client id.
func Key(namespace, client string) string {
	return namespace + ":" + client
}

// Namespace returns the namespace part of a key built by Key.
func Namespace(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i]
	}
	return key
}

// Option configures a FixedWindow.
type Option func(*FixedWindow)

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(l *FixedWindow) {
		l.now = now
	}
}

// FixedWindow is an in-process fixed-window limiter.
type FixedWindow struct {
	cfg     Config
	now     func() time.Time
	mu      sync.Mutex
	windows map[string]*domain.RateLimitWindow
}

// NewFixedWindow creates a limiter. Zero fields in cfg fall back to DefaultConfig.
func NewFixedWindow(cfg Config, opts ...Option) *FixedWindow {
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = DefaultConfig.MaxRequests
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultConfig.Window
	}
	l := &FixedWindow{
		cfg:     cfg,
		now:     time.Now,
		windows: make(map[string]*domain.RateLimitWindow),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check counts a request from key and reports whether it may proceed.
// Expired windows for every key are dropped on each call.
func (l *FixedWindow) Check(_ context.Context, key string) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)

	w, ok := l.windows[key]
	if !ok {
		w = &domain.RateLimitWindow{Key: key, Count: 1, ResetAt: now.Add(l.cfg.Window)}
		l.windows[key] = w
		return Result{
			Success:   true,
			Limit:     l.cfg.MaxRequests,
			Remaining: l.cfg.MaxRequests - 1,
			ResetTime: w.ResetAt,
		}, nil
	}

	w.Count++
	if w.Count > l.cfg.MaxRequests {
		metrics.RateLimitRejections.WithLabelValues(Namespace(key)).Inc()
		return Result{
			Success:   false,
			Limit:     l.cfg.MaxRequests,
			Remaining: 0,
			ResetTime: w.ResetAt,
		}, nil
	}

	return Result{
		Success:   true,
		Limit:     l.cfg.MaxRequests,
		Remaining: l.cfg.MaxRequests - w.Count,
		ResetTime: w.ResetAt,
	}, nil
}

// Prune drops every expired window and returns how many were removed.
func (l *FixedWindow) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.prune(l.now())
}

func (l *FixedWindow) prune(now time.Time) int {
	removed := 0
	for k, w := range l.windows {
		if !now.Before(w.ResetAt) {
			delete(l.windows, k)
			removed++
		}
	}
	return removed
}

// Size returns the number of tracked windows, including ones not yet swept.
func (l *FixedWindow) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
