// Package server exposes the catalog, cache and password-reset endpoints
// over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AFFWORLDT/WHITLIN-sub002/internal/core/domain"
	"github.com/AFFWORLDT/WHITLIN-sub002/internal/core/normalize"
	"github.com/AFFWORLDT/WHITLIN-sub002/internal/infra/cache"
	"github.com/AFFWORLDT/WHITLIN-sub002/internal/infra/storage"
	"github.com/AFFWORLDT/WHITLIN-sub002/internal/security/otp"
	"github.com/AFFWORLDT/WHITLIN-sub002/internal/security/ratelimit"
)

// Config holds HTTP server settings.
type Config struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	// TrustProxy takes the client address from X-Forwarded-For.
	TrustProxy bool `yaml:"trust_proxy"`
	// AdminToken guards the cache endpoints when set.
	AdminToken string `yaml:"admin_token"`
	BcryptCost int    `yaml:"bcrypt_cost"`

	ProductTTL  time.Duration `yaml:"-"`
	CategoryTTL time.Duration `yaml:"-"`
}

// HealthCheck is a named dependency probe.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Deps are the collaborators the handlers use.
type Deps struct {
	Products   storage.ProductRepository
	Users      storage.UserRepository
	Cache      cache.Store
	Limiter    ratelimit.Limiter
	OTP        *otp.Service
	Normalizer *normalize.Normalizer
	Checks     []HealthCheck
	Now        func() time.Time
}

// Server provides the storefront HTTP API.
type Server struct {
	cfg      Config
	deps     Deps
	validate *validator.Validate
	server   *http.Server

	productList *cache.Coalesced[[]domain.Product]
	product     *cache.Coalesced[domain.Product]
}

// New creates a server. Zero TTLs default to five minutes.
func New(cfg Config, deps Deps) *Server {
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ProductTTL <= 0 {
		cfg.ProductTTL = 5 * time.Minute
	}
	if cfg.CategoryTTL <= 0 {
		cfg.CategoryTTL = 5 * time.Minute
	}
	if deps.Normalizer == nil {
		deps.Normalizer = normalize.New()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	s := &Server{
		cfg:         cfg,
		deps:        deps,
		validate:    newValidator(),
		productList: cache.NewCoalesced[[]domain.Product](deps.Cache),
		product:     cache.NewCoalesced[domain.Product](deps.Cache),
	}
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/products", s.handleListProducts)
	mux.HandleFunc("GET /api/products/{id}", s.handleGetProduct)
	mux.HandleFunc("POST /api/products", s.handleCreateProduct)
	mux.HandleFunc("GET /api/categories", s.handleCategories)

	mux.HandleFunc("GET /api/cache", s.admin(s.handleCacheStats))
	mux.HandleFunc("POST /api/cache/clear", s.admin(s.handleCacheClear))

	mux.HandleFunc("POST /api/auth/forgot-password", s.limit("auth", s.handleForgotPassword))
	mux.HandleFunc("POST /api/auth/verify-otp", s.limit("auth", s.handleVerifyOTP))
	mux.HandleFunc("POST /api/auth/reset-password", s.limit("auth", s.handleResetPassword))

	return recoverer(requestID(accessLog(mux)))
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	slog.Info("HTTP server listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	checks := make(map[string]string, len(s.deps.Checks))
	for _, c := range s.deps.Checks {
		if err := c.Check(ctx); err != nil {
			slog.Warn("Health check failed", "check", c.Name, "error", err)
			checks[c.Name] = "unavailable"
			status = "degraded"
			continue
		}
		checks[c.Name] = "ok"
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{"status": status, "checks": checks})
}
