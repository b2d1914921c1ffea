package storage

import (
	"context"
	"errors"

	"github.com/AFFWORLDT/WHITLIN-sub002/internal/core/domain"
)

var (
	// ErrNotFound is returned when a record doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a record with the same key already exists
	ErrConflict = errors.New("already exists")
)

// Product orderings understood by ProductRepository.List.
const (
	SortNewest = "newest"
	SortOldest = "oldest"
	SortName   = "name"
)

// ProductFilter selects catalog documents.
type ProductFilter struct {
	Category string
	Limit    int
	Sort     string // defaults to SortNewest
}

// ProductRepository handles catalog documents. Documents are returned as
// decoded JSON objects; callers normalize them.
type ProductRepository interface {
	// List returns the documents matching f
	List(ctx context.Context, f ProductFilter) ([]map[string]any, error)

	// Get returns one document or ErrNotFound
	Get(ctx context.Context, id string) (map[string]any, error)

	// Create stores a product or returns ErrConflict
	Create(ctx context.Context, p *domain.Product) error

	// Categories returns the distinct category names in use, sorted
	Categories(ctx context.Context) ([]string, error)
}

// UserRepository handles storefront accounts
type UserRepository interface {
	// GetByEmail returns the user or ErrNotFound
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Create stores a user or returns ErrConflict
	Create(ctx context.Context, u *domain.User) error

	// UpdatePassword replaces the password hash or returns ErrNotFound
	UpdatePassword(ctx context.Context, email, passwordHash string) error
}
