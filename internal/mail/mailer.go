// Package mail hands one-time codes to the delivery collaborator.
package mail

import (
	"context"
	"log/slog"
	"time"
)

// Config holds mail delivery settings.
type Config struct {
	From string `yaml:"from"`
	// LogCodes writes the code itself to the log. Development only.
	LogCodes bool `yaml:"log_codes"`
}

// LogMailer records outgoing codes in the structured log instead of sending
// them. It stands in for the external email provider.
type LogMailer struct {
	cfg Config
	log *slog.Logger
}

// NewLogMailer creates a mailer that writes to log, or slog.Default when nil.
func NewLogMailer(cfg Config, log *slog.Logger) *LogMailer {
	if log == nil {
		log = slog.Default()
	}
	if cfg.From == "" {
		cfg.From = "no-reply@localhost"
	}
	return &LogMailer{cfg: cfg, log: log}
}

// SendOTP implements otp.Mailer.
func (m *LogMailer) SendOTP(ctx context.Context, email, code string, expiresAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	attrs := []any{
		"from", m.cfg.From,
		"to", email,
		"expires_at", expiresAt.UTC().Format(time.RFC3339),
	}
	if m.cfg.LogCodes {
		attrs = append(attrs, "code", code)
	}
	m.log.InfoContext(ctx, "Password reset code sent", attrs...)
	return nil
}
