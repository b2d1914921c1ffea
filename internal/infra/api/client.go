// Package api is the storefront's HTTP client. Every call goes through
// FetchWithRetry, which retries server-class failures and always answers
// with a domain.Response envelope instead of an error.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/AFFWORLDT/WHITLIN-sub002/internal/core/domain"
	"github.com/AFFWORLDT/WHITLIN-sub002/internal/core/retry"
	"github.com/AFFWORLDT/WHITLIN-sub002/internal/metrics"
)

// User-facing failure messages.
const (
	MsgDatabase = domain.MsgDatabase
	MsgServer   = domain.MsgServer
	MsgNetwork  = domain.MsgNetwork
	MsgGeneric  = domain.MsgGeneric
)

const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxAttempts = 3
)

// databaseVocabulary marks server errors caused by the storage backend.
var databaseVocabulary = []string{"database", "mongo", "connection", "pool"}

// Config holds client settings.
type Config struct {
	BaseURL     string        `yaml:"base_url"`
	Timeout     time.Duration `yaml:"timeout"`      // per attempt
	MaxAttempts int           `yaml:"max_attempts"` // per call
	Retry       retry.Config  `yaml:"retry"`
	// Token is sent as a bearer token for the admin endpoints.
	Token string `yaml:"token"`
}

type errorKind int

const (
	kindGeneric errorKind = iota
	kindNetwork
	kindAborted
	kindServer
	kindClient
)

// RequestError describes one failed attempt.
type RequestError struct {
	Status  int
	Message string
	Details any
	Err     error
	kind    errorKind
}

func (e *RequestError) Error() string {
	switch {
	case e.Status > 0:
		return fmt.Sprintf("http %d: %s", e.Status, e.Message)
	case e.Err != nil:
		return e.Err.Error()
	}
	return e.Message
}

func (e *RequestError) Unwrap() error { return e.Err }

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.httpClient = h
	}
}

// WithExecutor replaces the retry executor built from Config.Retry.
func WithExecutor(e *retry.Executor) Option {
	return func(c *Client) {
		c.executor = e
	}
}

// Client calls the storefront API.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	executor    *retry.Executor
	timeout     time.Duration
	maxAttempts int
	token       string
}

// NewClient creates a client for cfg.BaseURL.
func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		executor:    retry.NewExecutor(cfg.Retry),
		timeout:     cfg.Timeout,
		maxAttempts: cfg.MaxAttempts,
		token:       cfg.Token,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// FetchWithRetry sends method to path with body encoded as JSON, retrying
// 5xx and transport failures. A 4xx reply is returned at once with the
// server's message. An attempt that hits its timeout or the caller's
// cancellation ends the call.
func (c *Client) FetchWithRetry(ctx context.Context, method, path string, body any) domain.Response[json.RawMessage] {
	start := time.Now()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			slog.Error("Failed to encode request body", "method", method, "path", path, "error", err)
			return domain.Fail[json.RawMessage](MsgGeneric)
		}
	}

	res, err := retry.ExecuteWith(ctx, c.executor, method+" "+path, c.maxAttempts,
		func(ctx context.Context) (domain.Response[json.RawMessage], error) {
			return c.attempt(ctx, method, path, payload)
		},
	)
	metrics.ClientLatency.WithLabelValues(method).Observe(time.Since(start).Seconds())

	if err != nil {
		outcome, failed := failure(err)
		metrics.ClientRequests.WithLabelValues(method, outcome).Inc()
		slog.Warn("API request failed",
			"method", method,
			"path", path,
			"outcome", outcome,
			"error", err,
		)
		return failed
	}

	metrics.ClientRequests.WithLabelValues(method, "success").Inc()
	return res
}

func (c *Client) attempt(ctx context.Context, method, path string, payload []byte) (domain.Response[json.RawMessage], error) {
	var zero domain.Response[json.RawMessage]

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return zero, retry.Permanent(&RequestError{Err: fmt.Errorf("create request: %w", err)})
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return zero, transportError(ctx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return zero, transportError(ctx, fmt.Errorf("read response: %w", err))
	}

	env, decodeErr := decodeEnvelope(data)

	if resp.StatusCode >= http.StatusInternalServerError {
		return zero, retry.Transient(&RequestError{
			Status:  resp.StatusCode,
			Message: errorText(env, resp),
			kind:    kindServer,
		})
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return zero, retry.Permanent(&RequestError{
			Status:  resp.StatusCode,
			Message: errorText(env, resp),
			Details: env.Details,
			kind:    kindClient,
		})
	}
	if decodeErr != nil {
		return zero, retry.Permanent(&RequestError{Err: decodeErr})
	}
	return env, nil
}

func transportError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return retry.Permanent(&RequestError{Err: err, kind: kindAborted})
	}
	return retry.Transient(&RequestError{Err: err, kind: kindNetwork})
}

type wireEnvelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details"`
}

// decodeEnvelope reads a {success, data, ...} body. A JSON body without a
// success field is taken as the data of a successful reply.
func decodeEnvelope(data []byte) (domain.Response[json.RawMessage], error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return domain.Response[json.RawMessage]{Success: true}, nil
	}

	var wire wireEnvelope
	if err := json.Unmarshal(trimmed, &wire); err == nil && wire.Success != nil {
		res := domain.Response[json.RawMessage]{
			Success: *wire.Success,
			Data:    wire.Data,
			Error:   wire.Error,
			Message: wire.Message,
		}
		if len(wire.Details) > 0 {
			res.Details = wire.Details
		}
		return res, nil
	}

	if !json.Valid(trimmed) {
		return domain.Response[json.RawMessage]{}, fmt.Errorf("parse response: invalid JSON")
	}
	return domain.OK(json.RawMessage(trimmed)), nil
}

func errorText(env domain.Response[json.RawMessage], resp *http.Response) string {
	if env.Error != "" {
		return env.Error
	}
	if env.Message != "" {
		return env.Message
	}
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return resp.Status
}

// failure maps a final error to the envelope shown to users.
func failure(err error) (string, domain.Response[json.RawMessage]) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		switch reqErr.kind {
		case kindClient:
			res := domain.Fail[json.RawMessage](reqErr.Message)
			res.Details = reqErr.Details
			return "client_error", res
		case kindServer:
			if mentionsDatabase(reqErr.Message) {
				return "database_error", domain.Fail[json.RawMessage](MsgDatabase)
			}
			return "server_error", domain.Fail[json.RawMessage](MsgServer)
		case kindNetwork:
			return "network_error", domain.Fail[json.RawMessage](MsgNetwork)
		case kindAborted:
			return "aborted", domain.Fail[json.RawMessage](MsgNetwork)
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "aborted", domain.Fail[json.RawMessage](MsgNetwork)
	}
	return "error", domain.Fail[json.RawMessage](MsgGeneric)
}

func mentionsDatabase(message string) bool {
	lower := strings.ToLower(message)
	for _, word := range databaseVocabulary {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}
