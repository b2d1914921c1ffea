package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/AFFWORLDT/WHITLIN-sub002/internal/core/domain"
	"github.com/AFFWORLDT/WHITLIN-sub002/internal/infra/storage"
)

type productEntry struct {
	doc       map[string]any
	name      string
	category  string
	createdAt time.Time
}

// MemoryStorage keeps catalog documents and accounts in process memory.
// Used when no database is configured.
type MemoryStorage struct {
	products map[string]*productEntry
	users    map[string]*domain.User
	mu       sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		products: make(map[string]*productEntry),
		users:    make(map[string]*domain.User),
	}
}

// -----------------------------------------------------------------------------
// Product Repository
// -----------------------------------------------------------------------------

type ProductRepo struct {
	store *MemoryStorage
}

var _ storage.ProductRepository = (*ProductRepo)(nil)

func NewProductRepo(store *MemoryStorage) *ProductRepo {
	return &ProductRepo{store: store}
}

func (r *ProductRepo) List(ctx context.Context, f storage.ProductFilter) ([]map[string]any, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	entries := make([]*productEntry, 0, len(r.store.products))
	for _, e := range r.store.products {
		if f.Category != "" && !strings.EqualFold(e.category, f.Category) {
			continue
		}
		entries = append(entries, e)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		switch f.Sort {
		case storage.SortOldest:
			return entries[i].createdAt.Before(entries[j].createdAt)
		case storage.SortName:
			return entries[i].name < entries[j].name
		default:
			return entries[i].createdAt.After(entries[j].createdAt)
		}
	})

	if f.Limit > 0 && len(entries) > f.Limit {
		entries = entries[:f.Limit]
	}

	docs := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		docs = append(docs, maps.Clone(e.doc))
	}
	return docs, nil
}

func (r *ProductRepo) Get(ctx context.Context, id string) (map[string]any, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	e, ok := r.store.products[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return maps.Clone(e.doc), nil
}

func (r *ProductRepo) Create(ctx context.Context, p *domain.Product) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode product: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode product: %w", err)
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.products[p.ID]; exists {
		return storage.ErrConflict
	}
	r.store.products[p.ID] = &productEntry{
		doc:       doc,
		name:      p.Name,
		category:  p.Category.Name,
		createdAt: p.CreatedAt,
	}
	return nil
}

func (r *ProductRepo) Categories(ctx context.Context) ([]string, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, e := range r.store.products {
		if e.category != "" {
			seen[e.category] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// -----------------------------------------------------------------------------
// User Repository
// -----------------------------------------------------------------------------

type UserRepo struct {
	store *MemoryStorage
}

var _ storage.UserRepository = (*UserRepo)(nil)

func NewUserRepo(store *MemoryStorage) *UserRepo {
	return &UserRepo{store: store}
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	u, ok := r.store.users[emailKey(email)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	key := emailKey(u.Email)
	if _, exists := r.store.users[key]; exists {
		return storage.ErrConflict
	}
	copied := *u
	copied.Email = key
	r.store.users[key] = &copied
	return nil
}

func (r *UserRepo) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	u, ok := r.store.users[emailKey(email)]
	if !ok {
		return storage.ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now().UTC()
	return nil
}
