package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/cart"
)

const (
	getCartItemsSQL = `SELECT product_id, quantity FROM cart_items
		WHERE user_id = $1 ORDER BY product_id`

	cartExistsSQL = `SELECT EXISTS (SELECT 1 FROM carts WHERE user_id = $1)`

	touchCartSQL = `INSERT INTO carts (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = now()`

	// Increment-in-place: concurrent adds of the same line never lose updates.
	incrementCartItemSQL = `INSERT INTO cart_items (user_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`

	setCartItemSQL = `UPDATE cart_items SET quantity = $3
		WHERE user_id = $1 AND product_id = $2`

	deleteCartItemSQL = `DELETE FROM cart_items
		WHERE user_id = $1 AND product_id = $2`

	deleteCartSQL = `DELETE FROM carts WHERE user_id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Get returns the user's cart lines. A user without a cart record gets an
// empty cart, not an error.
func (r *CartRepository) Get(ctx context.Context, userID string) (*cart.Cart, error) {
	rows, err := r.pool.Query(ctx, getCartItemsSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("getting cart for user %q: %w", userID, err)
	}

	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (cart.Item, error) {
		var item cart.Item
		err := row.Scan(&item.ProductID, &item.Quantity)
		return item, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning cart for user %q: %w", userID, err)
	}

	return &cart.Cart{UserID: userID, Items: items}, nil
}

// Exists reports whether a cart record is persisted for the user.
func (r *CartRepository) Exists(ctx context.Context, userID string) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, cartExistsSQL, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking cart for user %q: %w", userID, err)
	}
	return exists, nil
}

// AddItem lazily creates the cart record and atomically increments the line
// quantity, inserting the line when absent.
func (r *CartRepository) AddItem(ctx context.Context, userID, productID string, qty int) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, touchCartSQL, userID); err != nil {
			return fmt.Errorf("touching cart: %w", err)
		}
		if _, err := tx.Exec(ctx, incrementCartItemSQL, userID, productID, qty); err != nil {
			return fmt.Errorf("incrementing cart item: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("adding item %q for user %q: %w", productID, userID, err)
	}
	return nil
}

// SetItemQuantity overwrites the line quantity, or deletes the line when qty
// is zero or below. It reports whether a matching line existed.
func (r *CartRepository) SetItemQuantity(ctx context.Context, userID, productID string, qty int) (bool, error) {
	var (
		tag pgconn.CommandTag
		err error
	)
	if qty <= 0 {
		tag, err = r.pool.Exec(ctx, deleteCartItemSQL, userID, productID)
	} else {
		tag, err = r.pool.Exec(ctx, setCartItemSQL, userID, productID, qty)
	}
	if err != nil {
		return false, fmt.Errorf("setting quantity of item %q for user %q: %w", productID, userID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// RemoveItem deletes the line if present. Removing an absent line is a no-op.
func (r *CartRepository) RemoveItem(ctx context.Context, userID, productID string) error {
	if _, err := r.pool.Exec(ctx, deleteCartItemSQL, userID, productID); err != nil {
		return fmt.Errorf("removing item %q for user %q: %w", productID, userID, err)
	}
	return nil
}

// Delete removes the cart record; lines go with it via ON DELETE CASCADE.
func (r *CartRepository) Delete(ctx context.Context, userID string) error {
	if _, err := r.pool.Exec(ctx, deleteCartSQL, userID); err != nil {
		return fmt.Errorf("deleting cart for user %q: %w", userID, err)
	}
	return nil
}
