// internal/repository/postgres/discount_repo.go
package postgres

import (
	"context"
	"fmt"

	"rayslaund-service/internal/domain/discount"
	"rayslaund-service/internal/events"
	xerrors "rayslaund-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DiscountRepository struct {
	db  *pgxpool.Pool
	bus *events.Bus
}

func NewDiscountRepository(db *pgxpool.Pool, bus *events.Bus) *DiscountRepository {
	return &DiscountRepository{db: db, bus: bus}
}

// Create inserts a new discount offer
func (r *DiscountRepository) Create(ctx context.Context, o *discount.Offer) error {
	query := `
		INSERT INTO discount_offers (id, user_id, amount, message, claimed)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	err := r.db.QueryRow(ctx, query, o.ID, o.UserID, o.Amount, o.Message, o.Claimed).Scan(&o.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create discount offer: %w", err)
	}

	r.bus.Publish(events.CollectionDiscounts)
	return nil
}

// ListByUser retrieves a user's discount offers, newest first
func (r *DiscountRepository) ListByUser(ctx context.Context, userID string) ([]discount.Offer, error) {
	return r.list(ctx,
		`SELECT id, user_id, amount, message, claimed, created_at
		 FROM discount_offers WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
}

// ListAll retrieves every discount offer for the admin board
func (r *DiscountRepository) ListAll(ctx context.Context) ([]discount.Offer, error) {
	return r.list(ctx,
		`SELECT id, user_id, amount, message, claimed, created_at
		 FROM discount_offers ORDER BY created_at DESC`,
	)
}

// Claim flips the claimed flag; the offer must belong to the caller and be
// unclaimed.
func (r *DiscountRepository) Claim(ctx context.Context, id, userID string) error {
	query := `
		UPDATE discount_offers SET claimed = true
		WHERE id = $1 AND user_id = $2 AND claimed = false
	`

	tag, err := r.db.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to claim discount: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	r.bus.Publish(events.CollectionDiscounts)
	return nil
}

func (r *DiscountRepository) list(ctx context.Context, query string, args ...interface{}) ([]discount.Offer, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list discount offers: %w", err)
	}
	defer rows.Close()

	var offers []discount.Offer
	for rows.Next() {
		var o discount.Offer
		if err := rows.Scan(&o.ID, &o.UserID, &o.Amount, &o.Message, &o.Claimed, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan discount offer: %w", err)
		}
		offers = append(offers, o)
	}

	return offers, rows.Err()
}
