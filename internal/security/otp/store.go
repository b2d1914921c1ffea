// Package otp issues and checks the short-lived numeric codes used to prove
// control of an email address during password reset.
package otp

import (
	"context"
	"crypto/subtle"
	"strings"
	"sync"
	"time"

	"github.com/AFFWORLDT/WHITLIN-sub002/internal/core/domain"
)

// Store keeps at most one live code per owner key.
type Store interface {
	// Save creates or replaces the code for ownerKey.
	Save(ctx context.Context, ownerKey, code string, expiresAt time.Time) error

	// Verify reports whether code matches a live, unused record. It never
	// changes state.
	Verify(ctx context.Context, ownerKey, code string) (bool, error)

	// MarkUsed makes the current record unusable. It cannot be undone.
	MarkUsed(ctx context.Context, ownerKey string) error

	// Clear deletes the record for ownerKey.
	Clear(ctx context.Context, ownerKey string) error
}

// OwnerKey canonicalizes an identifier such as an email address.
func OwnerKey(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

// CodesEqual compares codes in constant time. An empty code never matches.
func CodesEqual(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

type memoryRecord struct {
	record domain.OTPRecord
	timer  *time.Timer
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock injects the time source used for expiry checks.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// MemoryStore is an in-process Store. Each record deletes itself when it
// expires.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*memoryRecord
	now     func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		records: make(map[string]*memoryRecord),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Save(_ context.Context, ownerKey, code string, expiresAt time.Time) error {
	key := OwnerKey(ownerKey)

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.records[key]; ok {
		old.timer.Stop()
	}

	rec := &memoryRecord{
		record: domain.OTPRecord{Code: code, OwnerKey: key, ExpiresAt: expiresAt},
	}
	rec.timer = time.AfterFunc(expiresAt.Sub(s.now()), func() {
		s.expire(key, rec)
	})
	s.records[key] = rec
	return nil
}

func (s *MemoryStore) Verify(_ context.Context, ownerKey, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[OwnerKey(ownerKey)]
	if !ok || !rec.record.Live(s.now()) {
		return false, nil
	}
	return CodesEqual(rec.record.Code, code), nil
}

func (s *MemoryStore) MarkUsed(_ context.Context, ownerKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[OwnerKey(ownerKey)]; ok {
		rec.record.Used = true
	}
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, ownerKey string) error {
	key := OwnerKey(ownerKey)

	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[key]; ok {
		rec.timer.Stop()
		delete(s.records, key)
	}
	return nil
}

// Get returns a copy of the record for ownerKey.
func (s *MemoryStore) Get(ownerKey string) (domain.OTPRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[OwnerKey(ownerKey)]
	if !ok {
		return domain.OTPRecord{}, false
	}
	return rec.record, true
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Shutdown stops every pending self-delete timer and drops all records.
func (s *MemoryStore) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, rec := range s.records {
		rec.timer.Stop()
		delete(s.records, key)
	}
}

// expire removes rec unless it has since been replaced.
func (s *MemoryStore) expire(key string, rec *memoryRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.records[key]; ok && current == rec {
		delete(s.records, key)
	}
}
