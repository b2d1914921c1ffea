package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AFFWORLDT/WHITLIN-sub002/internal/core/domain"
	"github.com/AFFWORLDT/WHITLIN-sub002/internal/infra/storage"
)

func seedProducts(t *testing.T, repo *ProductRepo) {
	t.Helper()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	products := []domain.Product{
		{ID: "p1", Name: "Vase", Category: domain.Category{Name: "Decor"}, CreatedAt: base},
		{ID: "p2", Name: "Armchair", Category: domain.Category{Name: "Furniture"}, CreatedAt: base.Add(time.Hour)},
		{ID: "p3", Name: "Candle", Category: domain.Category{Name: "Decor"}, CreatedAt: base.Add(2 * time.Hour)},
	}
	for i := range products {
		if err := repo.Create(context.Background(), &products[i]); err != nil {
			t.Fatalf("seed %s: %v", products[i].ID, err)
		}
	}
}

func ids(docs []map[string]any) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d["_id"].(string))
	}
	return out
}

func TestProductRepo_List(t *testing.T) {
	repo := NewProductRepo(NewMemoryStorage())
	seedProducts(t, repo)

	tests := []struct {
		name   string
		filter storage.ProductFilter
		want   []string
	}{
		{"newest first by default", storage.ProductFilter{}, []string{"p3", "p2", "p1"}},
		{"oldest first", storage.ProductFilter{Sort: storage.SortOldest}, []string{"p1", "p2", "p3"}},
		{"by name", storage.ProductFilter{Sort: storage.SortName}, []string{"p2", "p3", "p1"}},
		{"category is case-insensitive", storage.ProductFilter{Category: "decor"}, []string{"p3", "p1"}},
		{"limit", storage.ProductFilter{Limit: 1}, []string{"p3"}},
		{"unknown category", storage.ProductFilter{Category: "garden"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := repo.List(context.Background(), tt.filter)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got := ids(docs)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestProductRepo_GetCreateCategories(t *testing.T) {
	repo := NewProductRepo(NewMemoryStorage())
	seedProducts(t, repo)
	ctx := context.Background()

	doc, err := repo.Get(ctx, "p2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc["name"] != "Armchair" {
		t.Errorf("unexpected doc %v", doc)
	}

	// Returned documents are copies
	doc["name"] = "changed"
	again, _ := repo.Get(ctx, "p2")
	if again["name"] != "Armchair" {
		t.Error("stored document was mutated through a returned copy")
	}

	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := repo.Create(ctx, &domain.Product{ID: "p1"}); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}

	cats, _ := repo.Categories(ctx)
	if len(cats) != 2 || cats[0] != "Decor" || cats[1] != "Furniture" {
		t.Errorf("unexpected categories %v", cats)
	}
}

func TestUserRepo(t *testing.T) {
	repo := NewUserRepo(NewMemoryStorage())
	ctx := context.Background()

	if err := repo.Create(ctx, &domain.User{ID: "u1", Email: "Shopper@Example.com", PasswordHash: "old"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Create(ctx, &domain.User{ID: "u2", Email: "shopper@example.com"}); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}

	if err := repo.UpdatePassword(ctx, "SHOPPER@example.com", "new"); err != nil {
		t.Fatalf("update: %v", err)
	}
	u, err := repo.GetByEmail(ctx, "shopper@example.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if u.PasswordHash != "new" || u.ID != "u1" {
		t.Errorf("unexpected user %+v", u)
	}

	if err := repo.UpdatePassword(ctx, "nobody@example.com", "x"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.GetByEmail(ctx, "nobody@example.com"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
