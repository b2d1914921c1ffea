package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/AFFWORLDT/WHITLIN-sub002/internal/core/retry"
	"github.com/AFFWORLDT/WHITLIN-sub002/internal/infra/api"
	"github.com/AFFWORLDT/WHITLIN-sub002/internal/security/otp"
	"github.com/AFFWORLDT/WHITLIN-sub002/internal/security/ratelimit"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML content, expanding environment variables first.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *AppConfig {
	var cfg AppConfig
	cfg.applyDefaults()
	return &cfg
}

func (c *AppConfig) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	if c.Cache.CleanupInterval <= 0 {
		c.Cache.CleanupInterval = 5 * time.Minute
	}
	if c.Cache.ProductTTL <= 0 {
		c.Cache.ProductTTL = 5 * time.Minute
	}
	if c.Cache.CategoryTTL <= 0 {
		c.Cache.CategoryTTL = 5 * time.Minute
	}
	c.Server.ProductTTL = c.Cache.ProductTTL
	c.Server.CategoryTTL = c.Cache.CategoryTTL

	if c.RateLimit.MaxRequests <= 0 {
		c.RateLimit.MaxRequests = ratelimit.DefaultConfig.MaxRequests
	}
	if c.RateLimit.Window <= 0 {
		c.RateLimit.Window = ratelimit.DefaultConfig.Window
	}
	if c.OTP.TTL <= 0 {
		c.OTP.TTL = otp.DefaultConfig.TTL
	}

	c.Retry = retryDefaults(c.Retry)
	if c.Database.ReadAttempts <= 0 {
		c.Database.ReadAttempts = 3
	}
	if c.Database.Retry == (retry.Config{}) {
		c.Database.Retry = c.Retry
	}

	if c.Client.BaseURL == "" {
		c.Client.BaseURL = fmt.Sprintf("http://localhost:%d", c.Server.Port)
	}
	if c.Client.Timeout <= 0 {
		c.Client.Timeout = api.DefaultTimeout
	}
	if c.Client.MaxAttempts <= 0 {
		c.Client.MaxAttempts = api.DefaultMaxAttempts
	}
	if c.Client.Retry == (retry.Config{}) {
		c.Client.Retry = c.Retry
	}
}

func retryDefaults(r retry.Config) retry.Config {
	if r.MaxAttempts <= 0 {
		r.MaxAttempts = retry.DefaultConfig.MaxAttempts
	}
	if r.BaseDelay <= 0 {
		r.BaseDelay = retry.DefaultConfig.BaseDelay
	}
	if r.MaxDelay <= 0 {
		r.MaxDelay = retry.DefaultConfig.MaxDelay
	}
	return r
}

// Validate rejects settings that cannot work.
func (c *AppConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	switch c.Database.Driver {
	case "", "pgx", "postgres":
	default:
		return fmt.Errorf("database.driver must be pgx or postgres, got %q", c.Database.Driver)
	}
	if c.Server.BcryptCost != 0 && (c.Server.BcryptCost < 4 || c.Server.BcryptCost > 31) {
		return fmt.Errorf("server.bcrypt_cost out of range: %d", c.Server.BcryptCost)
	}
	return nil
}
