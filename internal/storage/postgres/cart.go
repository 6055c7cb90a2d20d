package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oddline/storefront/internal/domain/cart"
)

const (
	loadCartSQL = `SELECT items FROM carts WHERE id = $1`

	saveCartSQL = `INSERT INTO carts (id, items, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE SET items = EXCLUDED.items, updated_at = now()`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL. Line items
// are serialized to a JSONB column; only items are persisted, never
// transient checkout state.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Load returns the persisted line items for cartID. A cart that was never
// saved yields an empty list, not an error.
func (r *CartRepository) Load(ctx context.Context, cartID string) ([]cart.LineItem, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, loadCartSQL, cartID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading cart %q: %w", cartID, err)
	}

	var items []cart.LineItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("unmarshaling cart %q items: %w", cartID, err)
	}
	return items, nil
}

// Save writes the full items list for cartID, replacing any previous state.
// Last write wins across concurrent clients of the same cart.
func (r *CartRepository) Save(ctx context.Context, cartID string, items []cart.LineItem) error {
	if items == nil {
		items = []cart.LineItem{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshaling cart %q items: %w", cartID, err)
	}

	if _, err := r.pool.Exec(ctx, saveCartSQL, cartID, raw); err != nil {
		return fmt.Errorf("saving cart %q: %w", cartID, err)
	}
	return nil
}
