package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/AFFWORLDT/WHITLIN-sub002/internal/metrics"
)

// ErrInvalidCode is returned for a wrong, expired, used or unknown code alike.
var ErrInvalidCode = errors.New("invalid or expired code")

// CodeLength is the number of digits in a generated code.
const CodeLength = 6

// Config holds code issuing settings.
type Config struct {
	TTL time.Duration `yaml:"ttl"`
}

// DefaultConfig keeps codes valid for ten minutes.
var DefaultConfig = Config{TTL: 10 * time.Minute}

// Mailer delivers a code to its owner.
type Mailer interface {
	SendOTP(ctx context.Context, email, code string, expiresAt time.Time) error
}

// GenerateCode returns a uniformly random 6-digit numeric string.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", CodeLength, n.Int64()), nil
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceClock injects the time source used to compute expiry.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// WithGenerator overrides code generation.
func WithGenerator(gen func() (string, error)) ServiceOption {
	return func(s *Service) {
		s.generate = gen
	}
}

// Service issues codes through a Store and a Mailer.
type Service struct {
	store    Store
	mailer   Mailer
	ttl      time.Duration
	now      func() time.Time
	generate func() (string, error)
}

// NewService creates a code service.
func NewService(store Store, mailer Mailer, cfg Config, opts ...ServiceOption) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultConfig.TTL
	}
	s := &Service{
		store:    store,
		mailer:   mailer,
		ttl:      cfg.TTL,
		now:      time.Now,
		generate: GenerateCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue stores a fresh code for email, replacing any earlier one, and mails it.
func (s *Service) Issue(ctx context.Context, email string) (time.Time, error) {
	code, err := s.generate()
	if err != nil {
		return time.Time{}, err
	}

	key := OwnerKey(email)
	expiresAt := s.now().Add(s.ttl)
	if err := s.store.Save(ctx, key, code, expiresAt); err != nil {
		return time.Time{}, fmt.Errorf("save code: %w", err)
	}

	if err := s.mailer.SendOTP(ctx, key, code, expiresAt); err != nil {
		if clearErr := s.store.Clear(ctx, key); clearErr != nil {
			slog.Warn("Failed to clear undelivered code", "error", clearErr)
		}
		return time.Time{}, fmt.Errorf("send code: %w", err)
	}

	metrics.OTPIssued.Inc()
	return expiresAt, nil
}

// Verify checks code without consuming it.
func (s *Service) Verify(ctx context.Context, email, code string) error {
	ok, err := s.store.Verify(ctx, OwnerKey(email), code)
	if err != nil {
		return fmt.Errorf("verify code: %w", err)
	}
	if !ok {
		metrics.OTPVerifications.WithLabelValues("rejected").Inc()
		return ErrInvalidCode
	}
	metrics.OTPVerifications.WithLabelValues("accepted").Inc()
	return nil
}

// Consume verifies code and marks it used so it cannot be redeemed again.
func (s *Service) Consume(ctx context.Context, email, code string) error {
	if err := s.Verify(ctx, email, code); err != nil {
		return err
	}
	return s.MarkUsed(ctx, email)
}

// MarkUsed burns the current code for email. Callers that must finish other
// work before the code is spent call Verify, do the work, then MarkUsed.
func (s *Service) MarkUsed(ctx context.Context, email string) error {
	if err := s.store.MarkUsed(ctx, OwnerKey(email)); err != nil {
		return fmt.Errorf("mark code used: %w", err)
	}
	return nil
}
