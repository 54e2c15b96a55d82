// internal/repository/postgres/user_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"rayslaund-service/internal/domain/user"
	"rayslaund-service/internal/events"
	xerrors "rayslaund-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	db  *pgxpool.Pool
	bus *events.Bus
}

func NewUserRepository(db *pgxpool.Pool, bus *events.Bus) *UserRepository {
	return &UserRepository{db: db, bus: bus}
}

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (id, full_name, email, password_hash, role, phone)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(
		ctx, query,
		u.ID, u.FullName, strings.ToLower(u.Email), u.PasswordHash, u.Role, u.Phone,
	).Scan(&u.CreatedAt, &u.UpdatedAt)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return xerrors.ErrConflict
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	r.bus.Publish(events.CollectionUsers)
	return nil
}

// FindByID retrieves a user by ID
func (r *UserRepository) FindByID(ctx context.Context, id string) (*user.User, error) {
	query := `
		SELECT id, full_name, email, password_hash, role, phone, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	var u user.User
	err := r.db.QueryRow(ctx, query, id).Scan(
		&u.ID, &u.FullName, &u.Email, &u.PasswordHash, &u.Role, &u.Phone,
		&u.CreatedAt, &u.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return &u, nil
}

// FindByEmail retrieves a user by email
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	query := `
		SELECT id, full_name, email, password_hash, role, phone, created_at, updated_at
		FROM users
		WHERE email = $1
	`

	var u user.User
	err := r.db.QueryRow(ctx, query, strings.ToLower(email)).Scan(
		&u.ID, &u.FullName, &u.Email, &u.PasswordHash, &u.Role, &u.Phone,
		&u.CreatedAt, &u.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return &u, nil
}

// UpdatePassword replaces a user's credential hash
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	r.bus.Publish(events.CollectionUsers)
	return nil
}

// List retrieves users with optional role/search filters, plus order and
// discount counters for the admin listing.
func (r *UserRepository) List(ctx context.Context, filters *user.UserListFilters) ([]user.UserSummary, error) {
	query := `
		SELECT u.id, u.full_name, u.email, u.role, u.phone, u.created_at, u.updated_at,
		       COUNT(DISTINCT o.id) AS order_count,
		       COUNT(DISTINCT d.id) AS discount_count
		FROM users u
		LEFT JOIN orders o ON o.customer_id = u.id
		LEFT JOIN discount_offers d ON d.user_id = u.id
	`

	conditions := []string{}
	args := []interface{}{}
	argPos := 1

	if filters != nil && filters.Role != "" {
		conditions = append(conditions, fmt.Sprintf("u.role = $%d", argPos))
		args = append(args, filters.Role)
		argPos++
	}
	if filters != nil && filters.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(u.full_name ILIKE $%d OR u.email ILIKE $%d OR u.phone ILIKE $%d)", argPos, argPos, argPos))
		args = append(args, "%"+filters.Search+"%")
		argPos++
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " GROUP BY u.id ORDER BY u.created_at DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []user.UserSummary
	for rows.Next() {
		var u user.UserSummary
		if err := rows.Scan(
			&u.ID, &u.FullName, &u.Email, &u.Role, &u.Phone,
			&u.CreatedAt, &u.UpdatedAt, &u.OrderCount, &u.DiscountCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}

	return users, rows.Err()
}
