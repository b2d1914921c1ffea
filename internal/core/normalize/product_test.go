package normalize

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AFFWORLDT/WHITLIN-sub002/internal/core/domain"
)

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 589_793_238, time.UTC)

func newTestNormalizer() *Normalizer {
	return New(WithClock(func() time.Time { return fixedNow }))
}

func TestProduct_EmptyInputsAreFullyDefaulted(t *testing.T) {
	n := newTestNormalizer()

	for name, raw := range map[string]any{
		"nil":         nil,
		"empty map":   map[string]any{},
		"nil pointer": (*domain.Product)(nil),
		"garbage":     json.RawMessage(`not json`),
		"array":       json.RawMessage(`[1,2,3]`),
		"number":      42,
	} {
		t.Run(name, func(t *testing.T) {
			p := n.Product(raw)

			assert.Equal(t, "generated-1741944413589", p.ID)
			assert.Equal(t, DefaultName, p.Name)
			require.NotEmpty(t, p.Images)
			assert.Equal(t, PlaceholderPath, p.Images[0])
			assert.Equal(t, p.Images[0], p.Image)
			assert.Equal(t, DefaultCategory, p.Category.Name)
			assert.Equal(t, 0.0, p.Price)
			assert.Equal(t, 0, p.Stock)
			assert.Equal(t, DefaultRating, p.Rating)
			assert.Equal(t, 0, p.Reviews)
			assert.NotNil(t, p.Attributes)
			assert.False(t, p.IsActive)
			assert.False(t, p.InStock)
			assert.Equal(t, domain.ProductStatusInactive, p.Status)
			assert.Equal(t, fixedNow.Truncate(time.Millisecond), p.CreatedAt)
			assert.Equal(t, p.CreatedAt, p.UpdatedAt)
		})
	}
}

func TestProduct_Identifier(t *testing.T) {
	n := newTestNormalizer()

	tests := []struct {
		name string
		raw  map[string]any
		want string
	}{
		{"prefers _id", map[string]any{"_id": "abc", "id": "def"}, "abc"},
		{"falls back to id", map[string]any{"id": "def"}, "def"},
		{"numeric id", map[string]any{"id": float64(17)}, "17"},
		{"extended json oid", map[string]any{"_id": map[string]any{"$oid": "65f0c0ffee"}}, "65f0c0ffee"},
		{"blank ids generate", map[string]any{"_id": "  ", "id": ""}, "generated-1741944413589"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Product(tt.raw).ID)
		})
	}
}

func TestProduct_Images(t *testing.T) {
	n := newTestNormalizer()

	tests := []struct {
		name string
		raw  map[string]any
		want []string
	}{
		{
			name: "filters invalid entries",
			raw: map[string]any{"images": []any{
				"https://cdn.example.com/a.jpg", "", "ftp://nope", 12, nil, "/uploads/b.png", "data:image/png;base64,AAA", "http://x/c.gif", "relative.jpg",
			}},
			want: []string{"https://cdn.example.com/a.jpg", "/uploads/b.png", "data:image/png;base64,AAA", "http://x/c.gif"},
		},
		{
			name: "falls back to single image",
			raw:  map[string]any{"images": []any{"bad"}, "image": "https://cdn.example.com/single.jpg"},
			want: []string{"https://cdn.example.com/single.jpg"},
		},
		{
			name: "invalid single image uses placeholder",
			raw:  map[string]any{"image": "javascript:alert(1)"},
			want: []string{PlaceholderPath},
		},
		{
			name: "images not an array",
			raw:  map[string]any{"images": "https://cdn.example.com/a.jpg"},
			want: []string{PlaceholderPath},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := n.Product(tt.raw)
			assert.Equal(t, tt.want, p.Images)
			assert.Equal(t, tt.want[0], p.Image)
		})
	}
}

func TestProduct_Category(t *testing.T) {
	n := newTestNormalizer()

	tests := []struct {
		name string
		raw  any
		want domain.Category
	}{
		{"string", "Shoes", domain.Category{Name: "Shoes"}},
		{"blank string", " ", domain.Category{Name: DefaultCategory}},
		{"object", map[string]any{"_id": "c1", "name": "Hats", "slug": "hats"}, domain.Category{ID: "c1", Name: "Hats", Slug: "hats"}},
		{"object with id", map[string]any{"id": "c2", "name": "Bags"}, domain.Category{ID: "c2", Name: "Bags"}},
		{"object missing name", map[string]any{"slug": 5}, domain.Category{Name: DefaultCategory}},
		{"absent", nil, domain.Category{Name: DefaultCategory}},
		{"wrong type", 3.5, domain.Category{Name: DefaultCategory}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := n.Product(map[string]any{"category": tt.raw})
			assert.Equal(t, tt.want, p.Category)
		})
	}
}

func TestProduct_NumericFields(t *testing.T) {
	n := newTestNormalizer()

	tests := []struct {
		name    string
		raw     map[string]any
		price   float64
		stock   int
		rating  float64
		reviews int
	}{
		{"valid", map[string]any{"price": 19.99, "stock": float64(3), "rating": 3.2, "reviews": float64(8)}, 19.99, 3, 3.2, 8},
		{"negative", map[string]any{"price": -1.0, "stock": -4.0, "rating": -1.0, "reviews": -2.0}, 0, 0, DefaultRating, 0},
		{"strings", map[string]any{"price": "19.99", "stock": "3", "rating": "5", "reviews": "many"}, 0, 0, DefaultRating, 0},
		{"rating above five", map[string]any{"rating": 7.0}, 0, 0, DefaultRating, 0},
		{"non finite", map[string]any{"price": math.Inf(1), "rating": math.NaN()}, 0, 0, DefaultRating, 0},
		{"fractional stock", map[string]any{"stock": 2.9}, 0, 2, DefaultRating, 0},
		{"go ints", map[string]any{"price": 5, "stock": int64(6)}, 5, 6, DefaultRating, 0},
		{"review documents", map[string]any{"reviews": []any{map[string]any{}, map[string]any{}}}, 0, 0, DefaultRating, 2},
		{"counts beyond int", map[string]any{"stock": 1e19, "reviews": 1e19}, 0, 0, DefaultRating, 0},
		{"largest count", map[string]any{"stock": float64(math.MaxInt32), "reviews": float64(math.MaxInt32) + 1}, 0, math.MaxInt32, DefaultRating, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := n.Product(tt.raw)
			assert.Equal(t, tt.price, p.Price)
			assert.Equal(t, tt.stock, p.Stock)
			assert.Equal(t, tt.rating, p.Rating)
			assert.Equal(t, tt.reviews, p.Reviews)
		})
	}
}

func TestProduct_Flags(t *testing.T) {
	n := newTestNormalizer()

	tests := []struct {
		name     string
		raw      map[string]any
		isActive bool
		inStock  bool
		status   string
	}{
		{"explicit flags win", map[string]any{"isActive": false, "inStock": true, "status": "active"}, false, true, "active"},
		{"active status", map[string]any{"status": "active"}, true, true, "active"},
		{"stock implies in stock", map[string]any{"stock": 2.0, "status": "draft"}, false, true, "draft"},
		{"nothing", map[string]any{}, false, false, "inactive"},
		{"explicit active without status", map[string]any{"isActive": true}, true, false, "active"},
		{"non-bool flag ignored", map[string]any{"isActive": "yes", "status": "active"}, true, true, "active"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := n.Product(tt.raw)
			assert.Equal(t, tt.isActive, p.IsActive, "isActive")
			assert.Equal(t, tt.inStock, p.InStock, "inStock")
			assert.Equal(t, tt.status, p.Status, "status")
		})
	}
}

func TestProduct_Attributes(t *testing.T) {
	n := newTestNormalizer()

	list := n.Product(map[string]any{"attributes": []any{
		map[string]any{"name": "color", "value": "red"},
		map[string]any{"name": "size", "value": 42.0},
		map[string]any{"name": "", "value": "dropped"},
		"dropped",
		map[string]any{"name": "organic", "value": true},
	}})
	assert.Equal(t, []domain.Attribute{
		{Name: "color", Value: "red"},
		{Name: "size", Value: "42"},
		{Name: "organic", Value: "true"},
	}, list.Attributes)

	object := n.Product(map[string]any{"attributes": map[string]any{"size": "M", "color": "blue"}})
	assert.Equal(t, []domain.Attribute{
		{Name: "color", Value: "blue"},
		{Name: "size", Value: "M"},
	}, object.Attributes)
}

func TestProduct_Timestamps(t *testing.T) {
	n := newTestNormalizer()

	p := n.Product(map[string]any{
		"createdAt": "2024-05-01T10:00:00.123456Z",
		"updatedAt": float64(1717236000000),
	})
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 123_000_000, time.UTC), p.CreatedAt)
	assert.Equal(t, time.UnixMilli(1717236000000).UTC(), p.UpdatedAt)

	bad := n.Product(map[string]any{"createdAt": "yesterday"})
	assert.Equal(t, fixedNow.Truncate(time.Millisecond), bad.CreatedAt)
}

func TestProduct_TimestampsOutsideEncodableRange(t *testing.T) {
	n := newTestNormalizer()
	now := fixedNow.Truncate(time.Millisecond)

	tests := []struct {
		name string
		raw  any
		want time.Time
	}{
		{"epoch millis past year 9999", 1e15, now},
		{"epoch millis beyond int64", 1e300, now},
		{"offset pushes into year 10000", "9999-12-31T23:00:00-05:00", now},
		{"last encodable millisecond", "9999-12-31T23:59:59.999Z", time.Date(9999, 12, 31, 23, 59, 59, 999_000_000, time.UTC)},
		{"time value past year 9999", time.Date(10000, 1, 1, 0, 0, 0, 0, time.UTC), now},
		{"fractional millis", 1.7172360005e12, time.UnixMilli(1717236000500).UTC()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := n.Product(map[string]any{"_id": "p1", "createdAt": tt.raw})
			assert.Equal(t, tt.want, p.CreatedAt)

			_, err := json.Marshal(p)
			require.NoError(t, err)
		})
	}
}

func TestProduct_NonEncodableStructFieldsFallBack(t *testing.T) {
	n := newTestNormalizer()

	p := n.Product(domain.Product{
		ID:        "p1",
		Name:      "Lamp",
		Price:     math.NaN(),
		Rating:    math.Inf(1),
		Stock:     4,
		CreatedAt: time.Date(10000, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, "Lamp", p.Name)
	assert.Equal(t, 0.0, p.Price)
	assert.Equal(t, DefaultRating, p.Rating)
	assert.Equal(t, 4, p.Stock)
	assert.Equal(t, fixedNow.Truncate(time.Millisecond), p.CreatedAt)
}

func TestProduct_AcceptsJSONAndStructs(t *testing.T) {
	n := newTestNormalizer()

	fromJSON := n.Product(json.RawMessage(`{"_id":"p1","name":"Lamp","price":30,"category":"Home"}`))
	assert.Equal(t, "p1", fromJSON.ID)
	assert.Equal(t, "Lamp", fromJSON.Name)
	assert.Equal(t, 30.0, fromJSON.Price)
	assert.Equal(t, "Home", fromJSON.Category.Name)

	type legacy struct {
		ID    string  `json:"id"`
		Title string  `json:"name"`
		Cost  float64 `json:"price"`
	}
	fromStruct := n.Product(legacy{ID: "p2", Title: "Desk", Cost: 120})
	assert.Equal(t, "p2", fromStruct.ID)
	assert.Equal(t, "Desk", fromStruct.Name)
	assert.Equal(t, 120.0, fromStruct.Price)
}

func TestProduct_Idempotent(t *testing.T) {
	n := newTestNormalizer()

	inputs := []any{
		nil,
		map[string]any{},
		map[string]any{
			"_id":        "p1",
			"name":       "Runner",
			"price":      89.5,
			"images":     []any{"https://cdn.example.com/1.jpg", "bad", "/local/2.jpg"},
			"category":   map[string]any{"_id": "c1", "name": "Shoes", "slug": "shoes"},
			"attributes": map[string]any{"size": 42.0, "color": "black"},
			"status":     "draft",
			"stock":      3.0,
			"rating":     4.9,
			"reviews":    []any{1, 2, 3},
			"createdAt":  "2024-01-02T03:04:05.678901Z",
		},
		map[string]any{"category": "Hats", "image": "data:image/gif;base64,R0lG", "isActive": true, "reviews": 11.0},
		json.RawMessage(`{"id": 99, "price": -3, "rating": 9, "updatedAt": 1700000000000}`),
		map[string]any{
			"_id":       "huge",
			"name":      "Crate",
			"price":     1e300,
			"stock":     1e19,
			"reviews":   1e19,
			"createdAt": 1e15,
			"updatedAt": "9999-12-31T23:00:00-05:00",
		},
		map[string]any{"_id": "frac", "stock": 7.99, "reviews": 0.5, "createdAt": 1.7172360005e12},
		domain.Product{ID: "nan", Name: "Odd", Price: math.NaN(), Rating: math.NaN(), Stock: 2},
	}

	for i, raw := range inputs {
		once := n.Product(raw)
		_, err := json.Marshal(once)
		require.NoError(t, err, "input %d", i)

		twice := n.Product(once)
		assert.Equal(t, once, twice, "input %d", i)

		ptr := n.Product(&once)
		assert.Equal(t, once, ptr, "input %d via pointer", i)
	}
}

func TestProduct_DoesNotMutateInput(t *testing.T) {
	n := newTestNormalizer()

	raw := map[string]any{"name": "Cap", "images": []any{"bad", "/ok.png"}}
	_ = n.Product(raw)

	assert.Equal(t, map[string]any{"name": "Cap", "images": []any{"bad", "/ok.png"}}, raw)
}

func TestProductList(t *testing.T) {
	n := newTestNormalizer()

	fromRaw := n.ProductList(json.RawMessage(`[{"_id":"a"},{"_id":"b","price":2}]`))
	require.Len(t, fromRaw, 2)
	assert.Equal(t, "a", fromRaw[0].ID)
	assert.Equal(t, 2.0, fromRaw[1].Price)

	fromSlice := n.ProductList([]any{map[string]any{"_id": "c"}, nil})
	require.Len(t, fromSlice, 2)
	assert.Equal(t, "c", fromSlice[0].ID)
	assert.Equal(t, DefaultName, fromSlice[1].Name)

	notArray := n.ProductList(json.RawMessage(`{"_id":"a"}`))
	assert.NotNil(t, notArray)
	assert.Empty(t, notArray)

	assert.Empty(t, n.ProductList(nil))
}
