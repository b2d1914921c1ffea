package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/AFFWORLDT/WHITLIN-sub002/internal/core/domain"
	"github.com/AFFWORLDT/WHITLIN-sub002/internal/infra/storage"
)

// ProductRepo implements storage.ProductRepository on a JSONB document table.
type ProductRepo struct {
	db *DB
}

var _ storage.ProductRepository = (*ProductRepo)(nil)

// NewProductRepo creates a new PostgreSQL product repository.
func NewProductRepo(db *DB) *ProductRepo {
	return &ProductRepo{db: db}
}

func orderClause(sort string) string {
	switch sort {
	case storage.SortOldest:
		return "created_at ASC, id ASC"
	case storage.SortName:
		return "name ASC, id ASC"
	default:
		return "created_at DESC, id DESC"
	}
}

// listQuery builds the SELECT for f with ? placeholders.
func listQuery(f storage.ProductFilter) (string, []any) {
	var (
		b    strings.Builder
		args []any
	)
	b.WriteString("SELECT doc FROM products")
	if f.Category != "" {
		b.WriteString(" WHERE lower(category) = lower(?)")
		args = append(args, f.Category)
	}
	b.WriteString(" ORDER BY ")
	b.WriteString(orderClause(f.Sort))
	if f.Limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, f.Limit)
	}
	return b.String(), args
}

// List returns the documents matching f.
func (r *ProductRepo) List(ctx context.Context, f storage.ProductFilter) ([]map[string]any, error) {
	query, args := listQuery(f)
	query = r.db.Rebind(query)

	rows, err := read(ctx, r.db, "products.list", func(ctx context.Context) ([][]byte, error) {
		var rows [][]byte
		if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
			return nil, err
		}
		return rows, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	docs := make([]map[string]any, 0, len(rows))
	for _, raw := range rows {
		doc, err := decodeDoc(raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Get returns one document.
func (r *ProductRepo) Get(ctx context.Context, id string) (map[string]any, error) {
	query := r.db.Rebind("SELECT doc FROM products WHERE id = ?")

	raw, err := read(ctx, r.db, "products.get", func(ctx context.Context) ([]byte, error) {
		var raw []byte
		if err := r.db.GetContext(ctx, &raw, query, id); err != nil {
			return nil, err
		}
		return raw, nil
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return decodeDoc(raw)
}

// Create stores p as a document.
func (r *ProductRepo) Create(ctx context.Context, p *domain.Product) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode product: %w", err)
	}

	_, err = r.db.ExecContext(ctx, r.db.Rebind(
		`INSERT INTO products (id, doc, name, category, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`),
		p.ID, string(doc), p.Name, p.Category.Name, p.CreatedAt, p.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return storage.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to save product: %w", err)
	}
	return nil
}

// Categories returns the distinct category names in use.
func (r *ProductRepo) Categories(ctx context.Context) ([]string, error) {
	names, err := read(ctx, r.db, "products.categories", func(ctx context.Context) ([]string, error) {
		var names []string
		err := r.db.SelectContext(ctx, &names,
			"SELECT DISTINCT category FROM products WHERE category <> '' ORDER BY category")
		return names, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

func decodeDoc(raw []byte) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode product document: %w", err)
	}
	return doc, nil
}
