package otp

import (
	"context"
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestMemoryStore_VerifyMarkUsed(t *testing.T) {
	s := NewMemoryStore()
	defer s.Shutdown()
	ctx := context.Background()

	if err := s.Save(ctx, "a@x.com", "123456", time.Now().Add(10*time.Minute)); err != nil {
		t.Fatalf("save: %v", err)
	}

	ok, err := s.Verify(ctx, "a@x.com", "123456")
	if err != nil || !ok {
		t.Fatalf("expected valid code, got ok=%v err=%v", ok, err)
	}

	// Verify alone does not consume
	if ok, _ := s.Verify(ctx, "a@x.com", "123456"); !ok {
		t.Fatal("second verify without MarkUsed must still pass")
	}

	if err := s.MarkUsed(ctx, "a@x.com"); err != nil {
		t.Fatalf("mark used: %v", err)
	}
	if ok, _ := s.Verify(ctx, "a@x.com", "123456"); ok {
		t.Fatal("used code must not verify")
	}
}

func TestMemoryStore_ExpiredCodeFails(t *testing.T) {
	s := NewMemoryStore()
	defer s.Shutdown()
	ctx := context.Background()

	_ = s.Save(ctx, "a@x.com", "123456", time.Now().Add(-time.Millisecond))
	if ok, _ := s.Verify(ctx, "a@x.com", "123456"); ok {
		t.Fatal("expired code must not verify")
	}
}

func TestMemoryStore_ExpiryUsesClock(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	s := NewMemoryStore(WithClock(clock.Now))
	defer s.Shutdown()
	ctx := context.Background()

	_ = s.Save(ctx, "a@x.com", "654321", clock.now.Add(10*time.Minute))
	clock.Advance(9 * time.Minute)
	if ok, _ := s.Verify(ctx, "a@x.com", "654321"); !ok {
		t.Fatal("code should be live before expiry")
	}
	clock.Advance(time.Minute)
	if ok, _ := s.Verify(ctx, "a@x.com", "654321"); ok {
		t.Fatal("code must fail at expiry even if never used")
	}
}

func TestMemoryStore_OverwriteInvalidatesOldCode(t *testing.T) {
	s := NewMemoryStore()
	defer s.Shutdown()
	ctx := context.Background()
	exp := time.Now().Add(10 * time.Minute)

	_ = s.Save(ctx, "a@x.com", "111111", exp)
	_ = s.MarkUsed(ctx, "a@x.com")
	_ = s.Save(ctx, "A@X.com ", "222222", exp)

	if ok, _ := s.Verify(ctx, "a@x.com", "111111"); ok {
		t.Error("old code must be invalid after overwrite")
	}
	if ok, _ := s.Verify(ctx, "a@x.com", "222222"); !ok {
		t.Error("new code must verify and must not inherit the used flag")
	}
	if s.Len() != 1 {
		t.Errorf("expected one record per owner, got %d", s.Len())
	}
}

func TestMemoryStore_MismatchAndMissing(t *testing.T) {
	s := NewMemoryStore()
	defer s.Shutdown()
	ctx := context.Background()

	_ = s.Save(ctx, "a@x.com", "123456", time.Now().Add(time.Minute))

	tests := []struct {
		owner string
		code  string
	}{
		{"a@x.com", "123457"},
		{"a@x.com", ""},
		{"a@x.com", "1234567"},
		{"b@x.com", "123456"},
	}
	for _, tt := range tests {
		if ok, _ := s.Verify(ctx, tt.owner, tt.code); ok {
			t.Errorf("Verify(%q, %q) = true, want false", tt.owner, tt.code)
		}
	}

	// Owner keys are case-insensitive
	if ok, _ := s.Verify(ctx, "  A@X.COM", "123456"); !ok {
		t.Error("expected lower-cased owner key lookup")
	}
}

func TestMemoryStore_Clear(t *testing.T) {
	s := NewMemoryStore()
	defer s.Shutdown()
	ctx := context.Background()

	_ = s.Save(ctx, "a@x.com", "123456", time.Now().Add(time.Minute))
	_ = s.Clear(ctx, "a@x.com")

	if ok, _ := s.Verify(ctx, "a@x.com", "123456"); ok {
		t.Error("cleared code must not verify")
	}
	if err := s.Clear(ctx, "missing@x.com"); err != nil {
		t.Errorf("clearing a missing key should be a no-op, got %v", err)
	}
	if err := s.MarkUsed(ctx, "missing@x.com"); err != nil {
		t.Errorf("marking a missing key should be a no-op, got %v", err)
	}
}

func TestMemoryStore_SelfDeletes(t *testing.T) {
	s := NewMemoryStore()
	defer s.Shutdown()
	ctx := context.Background()

	_ = s.Save(ctx, "a@x.com", "123456", time.Now().Add(10*time.Millisecond))

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if s.Len() == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("record was not removed by its timer")
}

func TestMemoryStore_StaleTimerKeepsReplacement(t *testing.T) {
	s := NewMemoryStore()
	defer s.Shutdown()
	ctx := context.Background()

	_ = s.Save(ctx, "a@x.com", "111111", time.Now().Add(5*time.Millisecond))
	_ = s.Save(ctx, "a@x.com", "222222", time.Now().Add(time.Minute))

	time.Sleep(30 * time.Millisecond)
	rec, ok := s.Get("a@x.com")
	if !ok || rec.Code != "222222" {
		t.Fatalf("replacement record lost: %+v ok=%v", rec, ok)
	}
}
