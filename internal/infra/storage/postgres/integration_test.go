package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/AFFWORLDT/WHITLIN-sub002/internal/core/domain"
	"github.com/AFFWORLDT/WHITLIN-sub002/internal/infra/storage"
)

func newIntegrationDB(t *testing.T) *DB {
	t.Helper()

	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("Skipping: DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := NewDB(ctx, Config{URL: url, Driver: os.Getenv("DATABASE_DRIVER")})
	if err != nil {
		t.Skipf("Skipping: database not reachable: %v", err)
	}
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestIntegration_ProductRepo(t *testing.T) {
	db := newIntegrationDB(t)
	repo := NewProductRepo(db)
	ctx := context.Background()

	category := "it-" + uuid.NewString()
	now := time.Now().UTC().Truncate(time.Millisecond)
	first := &domain.Product{ID: uuid.NewString(), Name: "First", Category: domain.Category{Name: category}, CreatedAt: now, UpdatedAt: now}
	second := &domain.Product{ID: uuid.NewString(), Name: "Second", Category: domain.Category{Name: category}, CreatedAt: now.Add(time.Second), UpdatedAt: now}

	for _, p := range []*domain.Product{first, second} {
		if err := repo.Create(ctx, p); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if err := repo.Create(ctx, first); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	docs, err := repo.List(ctx, storage.ProductFilter{Category: category})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 2 || docs[0]["_id"] != second.ID {
		t.Fatalf("expected newest first, got %v", docs)
	}

	doc, err := repo.Get(ctx, first.ID)
	if err != nil || doc["name"] != "First" {
		t.Fatalf("get: %v %v", doc, err)
	}
	if _, err := repo.Get(ctx, uuid.NewString()); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestIntegration_UserRepo(t *testing.T) {
	db := newIntegrationDB(t)
	repo := NewUserRepo(db)
	ctx := context.Background()

	email := uuid.NewString() + "@example.com"
	if err := repo.Create(ctx, &domain.User{ID: uuid.NewString(), Email: email, PasswordHash: "old"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.UpdatePassword(ctx, email, "new"); err != nil {
		t.Fatalf("update: %v", err)
	}
	u, err := repo.GetByEmail(ctx, email)
	if err != nil || u.PasswordHash != "new" {
		t.Fatalf("get: %+v %v", u, err)
	}
}
