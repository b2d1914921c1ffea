package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/AFFWORLDT/WHITLIN-sub002/internal/core/domain"
	"github.com/AFFWORLDT/WHITLIN-sub002/internal/core/normalize"
	"github.com/AFFWORLDT/WHITLIN-sub002/internal/infra/cache"
)

// SortNewest orders products by creation time, most recent first.
const SortNewest = "newest"

// ProductQuery selects a page of the catalog.
type ProductQuery struct {
	Category string
	Limit    int
	Sort     string
}

// FallbackQuery is issued once when a query legitimately returns nothing.
var FallbackQuery = ProductQuery{Sort: SortNewest}

// Path renders the query as a request path.
func (q ProductQuery) Path() string {
	v := url.Values{}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	if len(v) == 0 {
		return "/api/products"
	}
	return "/api/products?" + v.Encode()
}

// ProductClient fetches catalog records and normalizes them.
type ProductClient struct {
	client     *Client
	normalizer *normalize.Normalizer
}

// NewProductClient wraps c. A nil normalizer uses the defaults.
func NewProductClient(c *Client, n *normalize.Normalizer) *ProductClient {
	if n == nil {
		n = normalize.New()
	}
	return &ProductClient{client: c, normalizer: n}
}

// List returns the normalized products matching q. An empty result is
// followed by one FallbackQuery before giving up.
func (p *ProductClient) List(ctx context.Context, q ProductQuery) domain.Response[[]domain.Product] {
	res := p.list(ctx, q)
	if !res.Success || len(res.Data) > 0 || q == FallbackQuery {
		return res
	}

	slog.Info("Product query returned no records, trying fallback",
		"category", q.Category,
		"sort", q.Sort,
	)
	return p.list(ctx, FallbackQuery)
}

func (p *ProductClient) list(ctx context.Context, q ProductQuery) domain.Response[[]domain.Product] {
	raw := p.client.FetchWithRetry(ctx, http.MethodGet, q.Path(), nil)
	if !raw.Success {
		return reshape[[]domain.Product](raw)
	}
	return domain.Response[[]domain.Product]{
		Success: true,
		Data:    p.normalizer.ProductList(raw.Data),
		Message: raw.Message,
	}
}

// Get returns one normalized product.
func (p *ProductClient) Get(ctx context.Context, id string) domain.Response[domain.Product] {
	raw := p.client.FetchWithRetry(ctx, http.MethodGet, "/api/products/"+url.PathEscape(id), nil)
	if !raw.Success {
		return reshape[domain.Product](raw)
	}
	return domain.Response[domain.Product]{
		Success: true,
		Data:    p.normalizer.Product(raw.Data),
		Message: raw.Message,
	}
}

// CacheStats reads the server's cache introspection endpoint.
func (c *Client) CacheStats(ctx context.Context) domain.Response[cache.Stats] {
	raw := c.FetchWithRetry(ctx, http.MethodGet, "/api/cache", nil)
	if !raw.Success {
		return reshape[cache.Stats](raw)
	}

	var stats cache.Stats
	if len(raw.Data) > 0 {
		if err := json.Unmarshal(raw.Data, &stats); err != nil {
			slog.Warn("Unexpected cache stats payload", "error", err)
			return domain.Fail[cache.Stats](MsgGeneric)
		}
	}
	return domain.OK(stats)
}

// ClearCache empties the server cache, or only keys containing pattern.
func (c *Client) ClearCache(ctx context.Context, pattern string) domain.Response[json.RawMessage] {
	var body any
	if pattern != "" {
		body = map[string]string{"pattern": pattern}
	}
	return c.FetchWithRetry(ctx, http.MethodPost, "/api/cache/clear", body)
}

func reshape[T any](raw domain.Response[json.RawMessage]) domain.Response[T] {
	return domain.Response[T]{
		Success: raw.Success,
		Error:   raw.Error,
		Message: raw.Message,
		Details: raw.Details,
	}
}
