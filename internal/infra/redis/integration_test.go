package redis

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/AFFWORLDT/WHITLIN-sub002/internal/security/ratelimit"
)

// newIntegrationClient connects to REDIS_URL under a unique key prefix.
func newIntegrationClient(t *testing.T) *Client {
	t.Helper()

	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("Skipping: REDIS_URL not set")
	}
	c, err := NewClient(Config{URL: url, KeyPrefix: "test-" + uuid.NewString()})
	if err != nil {
		t.Skipf("Skipping: Redis not reachable: %v", err)
	}
	t.Cleanup(func() {
		ctx := context.Background()
		keys, _ := c.scanAll(ctx, c.prefix+"*")
		_, _ = c.deleteKeys(ctx, keys)
		_ = c.Close()
	})
	return c
}

func TestIntegration_CacheStore(t *testing.T) {
	c := newIntegrationClient(t)
	s := NewCacheStore(c)
	ctx := context.Background()

	if err := s.Set(ctx, "products:all", []string{"a", "b"}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	_ = s.Set(ctx, "product:1", map[string]any{"name": "Lamp"}, time.Minute)
	_ = s.Set(ctx, "categories:all", []string{"x"}, time.Minute)

	v, ok, err := s.Get(ctx, "products:all")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	var got []string
	if err := json.Unmarshal(v.(json.RawMessage), &got); err != nil || len(got) != 2 {
		t.Fatalf("unexpected value %s", v)
	}

	removed, err := s.Invalidate(ctx, "product")
	if err != nil || removed != 2 {
		t.Fatalf("expected 2 removed, got %d err=%v", removed, err)
	}

	stats, err := s.Stats(ctx)
	if err != nil || stats.Size != 1 || stats.Keys[0] != "categories:all" {
		t.Fatalf("unexpected stats %+v err=%v", stats, err)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "categories:all"); ok {
		t.Fatal("expected miss after clear")
	}
}

func TestIntegration_RateLimiter(t *testing.T) {
	c := newIntegrationClient(t)
	l := NewRateLimiter(c, ratelimit.Config{MaxRequests: 3, Window: time.Minute})
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		res, err := l.Check(ctx, "auth:ip")
		if err != nil || !res.Success {
			t.Fatalf("request %d: expected success, got %+v err=%v", i, res, err)
		}
		if res.Remaining != 3-i {
			t.Errorf("request %d: remaining = %d", i, res.Remaining)
		}
	}
	res, _ := l.Check(ctx, "auth:ip")
	if res.Success {
		t.Fatal("fourth request should be rejected")
	}
}

func TestIntegration_OTPStore(t *testing.T) {
	c := newIntegrationClient(t)
	s := NewOTPStore(c)
	ctx := context.Background()

	_ = s.Save(ctx, "A@x.com", "123456", time.Now().Add(10*time.Minute))
	if ok, err := s.Verify(ctx, "a@x.com", "123456"); err != nil || !ok {
		t.Fatalf("expected valid code, got ok=%v err=%v", ok, err)
	}
	_ = s.MarkUsed(ctx, "a@x.com")
	if ok, _ := s.Verify(ctx, "a@x.com", "123456"); ok {
		t.Fatal("used code must not verify")
	}

	_ = s.MarkUsed(ctx, "nobody@x.com")
	if n, _ := c.rdb.Exists(ctx, c.otpKey("nobody@x.com")).Result(); n != 0 {
		t.Fatal("MarkUsed must not create a record")
	}
}
