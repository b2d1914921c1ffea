package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/AFFWORLDT/WHITLIN-sub002/internal/core/domain"
	"github.com/AFFWORLDT/WHITLIN-sub002/internal/infra/cache"
	"github.com/AFFWORLDT/WHITLIN-sub002/internal/infra/storage"
)

const (
	defaultPageSize = 24
	maxPageSize     = 100

	// productKeyPattern matches both list and single-product cache keys.
	productKeyPattern = "product"
)

func productListKey(f storage.ProductFilter) string {
	return fmt.Sprintf("products:%s:%d:%s", strings.ToLower(f.Category), f.Limit, f.Sort)
}

func productKey(id string) string {
	return "product:" + id
}

// parseFilter reads category, limit and sort from the query string.
func parseFilter(r *http.Request) (storage.ProductFilter, error) {
	q := r.URL.Query()
	f := storage.ProductFilter{
		Category: strings.TrimSpace(q.Get("category")),
		Limit:    defaultPageSize,
		Sort:     storage.SortNewest,
	}

	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return f, fmt.Errorf("limit must be a positive integer")
		}
		f.Limit = min(n, maxPageSize)
	}

	switch sort := q.Get("sort"); sort {
	case "", storage.SortNewest:
	case storage.SortOldest, storage.SortName:
		f.Sort = sort
	default:
		return f, fmt.Errorf("unsupported sort %q", sort)
	}
	return f, nil
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	products, err := s.productList.Get(r.Context(), productListKey(f), s.cfg.ProductTTL,
		func(ctx context.Context) ([]domain.Product, error) {
			docs, err := s.deps.Products.List(ctx, f)
			if err != nil {
				return nil, err
			}
			return s.deps.Normalizer.ProductList(docs), nil
		},
	)
	if err != nil {
		storageError(w, r, "products.list", err)
		return
	}
	if products == nil {
		products = []domain.Product{}
	}
	writeOK(w, http.StatusOK, products)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	product, err := s.product.Get(r.Context(), productKey(id), s.cfg.ProductTTL,
		func(ctx context.Context) (domain.Product, error) {
			doc, err := s.deps.Products.Get(ctx, id)
			if err != nil {
				return domain.Product{}, err
			}
			return s.deps.Normalizer.Product(doc), nil
		},
	)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Product not found", nil)
		return
	}
	if err != nil {
		storageError(w, r, "products.get", err)
		return
	}
	writeOK(w, http.StatusOK, product)
}

// CreateProductRequest is the body of POST /api/products.
type CreateProductRequest struct {
	Name        string             `json:"name" validate:"required,max=200"`
	Description string             `json:"description,omitempty" validate:"max=5000"`
	Price       float64            `json:"price" validate:"gte=0"`
	Image       string             `json:"image,omitempty" validate:"omitempty,max=2048"`
	Images      []string           `json:"images,omitempty" validate:"omitempty,max=20,dive,max=2048"`
	Category    string             `json:"category,omitempty" validate:"omitempty,max=100"`
	Stock       int                `json:"stock" validate:"gte=0"`
	Attributes  []domain.Attribute `json:"attributes,omitempty" validate:"omitempty,max=50"`
	IsActive    *bool              `json:"isActive,omitempty"`
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if !s.decode(w, r, &req) {
		return
	}

	doc, err := toDocument(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	doc["_id"] = uuid.NewString()
	if req.IsActive == nil {
		doc["isActive"] = true
	}
	doc["createdAt"] = s.deps.Now().UTC()

	product := s.deps.Normalizer.Product(doc)
	if err := s.deps.Products.Create(r.Context(), &product); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			writeError(w, http.StatusConflict, "Product already exists", nil)
			return
		}
		storageError(w, r, "products.create", err)
		return
	}

	if n, err := s.deps.Cache.Invalidate(r.Context(), productKeyPattern); err != nil {
		slog.Warn("Failed to invalidate product cache", "error", err)
	} else {
		slog.Debug("Invalidated product cache", "removed", n)
	}
	writeOK(w, http.StatusCreated, product)
}

func toDocument(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := cache.WithCache(r.Context(), s.deps.Cache, "categories:all", s.cfg.CategoryTTL,
		func(ctx context.Context) ([]domain.Category, error) {
			names, err := s.deps.Products.Categories(ctx)
			if err != nil {
				return nil, err
			}
			out := make([]domain.Category, 0, len(names))
			for _, name := range names {
				out = append(out, domain.Category{Name: name, Slug: slugify(name)})
			}
			return out, nil
		},
	)
	if err != nil {
		storageError(w, r, "products.categories", err)
		return
	}
	writeOK(w, http.StatusOK, categories)
}

func slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
