package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AFFWORLDT/WHITLIN-sub002/internal/core/domain"
	"github.com/AFFWORLDT/WHITLIN-sub002/internal/infra/storage"
)

// UserRepo implements storage.UserRepository using PostgreSQL.
type UserRepo struct {
	db *DB
}

var _ storage.UserRepository = (*UserRepo)(nil)

// NewUserRepo creates a new PostgreSQL user repository.
func NewUserRepo(db *DB) *UserRepo {
	return &UserRepo{db: db}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// GetByEmail retrieves a user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := r.db.Rebind(`SELECT id, email, name, password_hash, created_at, updated_at
		FROM users WHERE email = ?`)

	u, err := read(ctx, r.db, "users.get_by_email", func(ctx context.Context) (*domain.User, error) {
		var u domain.User
		if err := r.db.GetContext(ctx, &u, query, normalizeEmail(email)); err != nil {
			return nil, err
		}
		return &u, nil
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// Create saves a new user.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	row := *u
	row.Email = normalizeEmail(u.Email)
	now := time.Now().UTC()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}

	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO users (id, email, name, password_hash, created_at, updated_at)
		 VALUES (:id, :email, :name, :password_hash, :created_at, :updated_at)`,
		row,
	)
	if isUniqueViolation(err) {
		return storage.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	res, err := r.db.ExecContext(ctx,
		r.db.Rebind("UPDATE users SET password_hash = ?, updated_at = now() WHERE email = ?"),
		passwordHash, normalizeEmail(email),
	)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
