// Package normalize turns loosely-typed catalog documents into canonical
// domain.Product values. Normalization never fails: anything missing or
// malformed is replaced by a default.
package normalize

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/AFFWORLDT/WHITLIN-sub002/internal/core/domain"
)

const (
	DefaultName     = "Unnamed Product"
	DefaultCategory = "Uncategorized"
	DefaultRating   = 4.5
	PlaceholderPath = "/images/placeholder-product.svg"
	generatedPrefix = "generated-"

	// maxCount bounds stock and review counts so they fit in an int everywhere.
	maxCount = math.MaxInt32
)

// Timestamps outside this range cannot be encoded as RFC 3339.
var (
	minTimestamp = time.Date(0, time.January, 1, 0, 0, 0, 0, time.UTC)
	maxTimestamp = time.Date(9999, time.December, 31, 23, 59, 59, 999_000_000, time.UTC)
)

// validImagePrefixes lists the URL forms a browser can load directly.
var validImagePrefixes = []string{"http://", "https://", "/", "data:image/"}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithClock injects the time source used for generated ids and missing timestamps.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) {
		n.now = now
	}
}

// WithPlaceholder overrides the image used when a record has none.
func WithPlaceholder(path string) Option {
	return func(n *Normalizer) {
		if validImage(path) {
			n.placeholder = path
		}
	}
}

// Normalizer maps raw records to domain.Product. It holds no state besides
// its configuration.
type Normalizer struct {
	now         func() time.Time
	placeholder string
}

// New creates a Normalizer.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{now: time.Now, placeholder: PlaceholderPath}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

var defaultNormalizer = New()

// Product normalizes raw with the default normalizer.
func Product(raw any) domain.Product {
	return defaultNormalizer.Product(raw)
}

// ProductList normalizes every element of raw with the default normalizer.
func ProductList(raw any) []domain.Product {
	return defaultNormalizer.ProductList(raw)
}

// Product builds a fully populated record from raw, which may be nil, a
// decoded JSON object, raw JSON bytes, a domain.Product, or any value that
// marshals to a JSON object.
func (n *Normalizer) Product(raw any) domain.Product {
	doc := toDocument(raw)
	now := n.now().UTC().Truncate(time.Millisecond)

	p := domain.Product{
		ID:          identifier(doc, now),
		Name:        nonEmptyString(doc["name"], DefaultName),
		Description: nonEmptyString(doc["description"], ""),
		Price:       numberInRange(doc["price"], 0, math.Inf(1), 0),
		Category:    category(doc["category"]),
		Attributes:  attributes(doc["attributes"]),
		Stock:       count(doc["stock"]),
		Rating:      numberInRange(doc["rating"], 0, 5, DefaultRating),
		Reviews:     reviewCount(doc["reviews"]),
	}

	p.Images = n.images(doc)
	p.Image = p.Images[0]

	status, hasStatus := doc["status"].(string)
	if active, ok := doc["isActive"].(bool); ok {
		p.IsActive = active
	} else {
		p.IsActive = status == domain.ProductStatusActive
	}
	switch {
	case hasStatus && status != "":
		p.Status = status
	case p.IsActive:
		p.Status = domain.ProductStatusActive
	default:
		p.Status = domain.ProductStatusInactive
	}

	if inStock, ok := doc["inStock"].(bool); ok {
		p.InStock = inStock
	} else {
		p.InStock = p.Stock > 0 || status == domain.ProductStatusActive
	}

	p.CreatedAt = timestamp(doc["createdAt"], now)
	p.UpdatedAt = timestamp(doc["updatedAt"], p.CreatedAt)
	return p
}

// ProductList normalizes each element of an array-shaped raw value. Anything
// that is not an array yields an empty, non-nil slice.
func (n *Normalizer) ProductList(raw any) []domain.Product {
	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case []map[string]any:
		for _, m := range v {
			items = append(items, m)
		}
	case []json.RawMessage:
		for _, m := range v {
			items = append(items, m)
		}
	case []domain.Product:
		for _, m := range v {
			items = append(items, m)
		}
	case json.RawMessage, []byte:
		var decoded []json.RawMessage
		b, _ := v.([]byte)
		if rm, ok := v.(json.RawMessage); ok {
			b = rm
		}
		if err := json.Unmarshal(b, &decoded); err == nil {
			for _, m := range decoded {
				items = append(items, m)
			}
		}
	}

	products := make([]domain.Product, 0, len(items))
	for _, item := range items {
		products = append(products, n.Product(item))
	}
	return products
}

func (n *Normalizer) images(doc map[string]any) []string {
	var images []string
	if list, ok := doc["images"].([]any); ok {
		for _, item := range list {
			if s, ok := item.(string); ok && validImage(s) {
				images = append(images, s)
			}
		}
	}
	if len(images) == 0 {
		if s, ok := doc["image"].(string); ok && validImage(s) {
			images = append(images, s)
		}
	}
	if len(images) == 0 {
		images = []string{n.placeholder}
	}
	return images
}

func validImage(s string) bool {
	if s == "" {
		return false
	}
	for _, prefix := range validImagePrefixes {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

// toDocument decodes raw into a JSON object, or an empty one.
func toDocument(raw any) map[string]any {
	switch v := raw.(type) {
	case nil:
		return map[string]any{}
	case map[string]any:
		return v
	case *domain.Product:
		if v == nil {
			return map[string]any{}
		}
		return toDocument(*v)
	case domain.Product:
		raw = encodable(v)
	case json.RawMessage:
		return decodeObject(v)
	case []byte:
		return decodeObject(v)
	case string:
		return decodeObject([]byte(v))
	}

	b, err := json.Marshal(raw)
	if err != nil {
		return map[string]any{}
	}
	return decodeObject(b)
}

// encodable clears the fields of p that JSON cannot represent, so they fall
// back to defaults instead of discarding the whole record.
func encodable(p domain.Product) domain.Product {
	if math.IsNaN(p.Price) || math.IsInf(p.Price, 0) {
		p.Price = 0
	}
	if math.IsNaN(p.Rating) || math.IsInf(p.Rating, 0) {
		p.Rating = -1
	}
	if !inTimestampRange(p.CreatedAt) {
		p.CreatedAt = time.Time{}
	}
	if !inTimestampRange(p.UpdatedAt) {
		p.UpdatedAt = time.Time{}
	}
	return p
}

func decodeObject(b []byte) map[string]any {
	var doc map[string]any
	if err := json.Unmarshal(b, &doc); err != nil || doc == nil {
		return map[string]any{}
	}
	return doc
}

func identifier(doc map[string]any, now time.Time) string {
	for _, key := range []string{"_id", "id"} {
		if id := idString(doc[key]); id != "" {
			return id
		}
	}
	return generatedPrefix + strconv.FormatInt(now.UnixMilli(), 10)
}

func idString(v any) string {
	switch id := v.(type) {
	case string:
		return strings.TrimSpace(id)
	case float64:
		if !math.IsNaN(id) && !math.IsInf(id, 0) {
			return strconv.FormatFloat(id, 'f', -1, 64)
		}
	case map[string]any:
		// Extended JSON object ids
		if oid, ok := id["$oid"].(string); ok {
			return oid
		}
	}
	return ""
}

func nonEmptyString(v any, fallback string) string {
	if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
		return s
	}
	return fallback
}

func numberInRange(v any, lo, hi, fallback float64) float64 {
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) || f < lo || f > hi {
		return fallback
	}
	return f
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func reviewCount(v any) int {
	if list, ok := v.([]any); ok {
		return len(list)
	}
	return count(v)
}

func count(v any) int {
	return int(math.Floor(numberInRange(v, 0, maxCount, 0)))
}

func category(v any) domain.Category {
	switch c := v.(type) {
	case string:
		if strings.TrimSpace(c) != "" {
			return domain.Category{Name: c}
		}
	case map[string]any:
		cat := domain.Category{
			Name: nonEmptyString(c["name"], DefaultCategory),
			Slug: nonEmptyString(c["slug"], ""),
			ID:   idString(c["_id"]),
		}
		if cat.ID == "" {
			cat.ID = idString(c["id"])
		}
		return cat
	}
	return domain.Category{Name: DefaultCategory}
}

func attributes(v any) []domain.Attribute {
	attrs := []domain.Attribute{}
	switch a := v.(type) {
	case []any:
		for _, item := range a {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			name, ok := m["name"].(string)
			if !ok || strings.TrimSpace(name) == "" {
				continue
			}
			attrs = append(attrs, domain.Attribute{Name: name, Value: scalarString(m["value"])})
		}
	case map[string]any:
		keys := make([]string, 0, len(a))
		for k := range a {
			if strings.TrimSpace(k) != "" {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			attrs = append(attrs, domain.Attribute{Name: k, Value: scalarString(a[k])})
		}
	}
	return attrs
}

func scalarString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case bool:
		return strconv.FormatBool(s)
	case nil:
		return ""
	}
	if f, ok := toFloat(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func timestamp(v any, fallback time.Time) time.Time {
	var t time.Time
	switch ts := v.(type) {
	case time.Time:
		t = ts
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return fallback
		}
		t = parsed
	default:
		ms, ok := toFloat(v)
		if !ok || math.IsNaN(ms) || ms <= 0 || ms > float64(maxTimestamp.UnixMilli()) {
			return fallback
		}
		t = time.UnixMilli(int64(ms))
	}
	if t.IsZero() || !inTimestampRange(t) {
		return fallback
	}
	return t.UTC().Truncate(time.Millisecond)
}

func inTimestampRange(t time.Time) bool {
	u := t.UTC()
	return !u.Before(minTimestamp) && !u.After(maxTimestamp)
}
