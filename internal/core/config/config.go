package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/AFFWORLDT/WHITLIN-sub002/internal/core/retry"
	"github.com/AFFWORLDT/WHITLIN-sub002/internal/infra/api"
	redisclient "github.com/AFFWORLDT/WHITLIN-sub002/internal/infra/redis"
	"github.com/AFFWORLDT/WHITLIN-sub002/internal/infra/storage/postgres"
	"github.com/AFFWORLDT/WHITLIN-sub002/internal/mail"
	"github.com/AFFWORLDT/WHITLIN-sub002/internal/security/otp"
	"github.com/AFFWORLDT/WHITLIN-sub002/internal/security/ratelimit"
	"github.com/AFFWORLDT/WHITLIN-sub002/internal/server"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server    server.Config      `yaml:"server"`
	Logging   LoggingConfig      `yaml:"logging"`
	Database  postgres.Config    `yaml:"database"`
	Redis     redisclient.Config `yaml:"redis"`
	Cache     CacheConfig        `yaml:"cache"`
	RateLimit ratelimit.Config   `yaml:"rate_limit"`
	OTP       otp.Config         `yaml:"otp"`
	Retry     retry.Config       `yaml:"retry"`
	Client    api.Config         `yaml:"client"`
	Mail      mail.Config        `yaml:"mail"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// SlogLevel maps Level to a slog level. Unknown values mean info.
func (c LoggingConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// CacheConfig holds cache lifetimes.
type CacheConfig struct {
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	ProductTTL      time.Duration `yaml:"product_ttl"`
	CategoryTTL     time.Duration `yaml:"category_ttl"`
}
