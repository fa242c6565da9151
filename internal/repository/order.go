package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders (id, user_id, status, total, shipping)
		VALUES ($1, $2, $3, $4, $5)`

	insertOrderItemSQL = `INSERT INTO order_items (id, order_id, product_id, name, unit_price, quantity, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	getOrderSQL = `SELECT id, user_id, status, total, shipping, version, created_at, updated_at
		FROM orders WHERE id = $1 AND user_id = $2`

	listOrdersSQL = `SELECT id, user_id, status, total, shipping, version, created_at, updated_at
		FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id DESC`

	getOrderItemsSQL = `SELECT id, product_id, name, unit_price, quantity
		FROM order_items WHERE order_id = $1 ORDER BY position`

	getOrdersItemsSQL = `SELECT order_id, id, product_id, name, unit_price, quantity
		FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, position`

	// Conditional on version: a concurrent update makes this a no-op and the
	// caller sees ErrConflict instead of silently losing the race.
	updateOrderSQL = `UPDATE orders
		SET status = $3, total = $4, version = version + 1, updated_at = now()
		WHERE id = $1 AND user_id = $2 AND version = $5`

	deleteOrderItemsSQL = `DELETE FROM order_items WHERE order_id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// CreateFromCart persists the order with its items and deletes the owning
// user's cart record, all in one transaction.
func (r *OrderRepository) CreateFromCart(ctx context.Context, o *order.Order) error {
	shipping, err := marshalShipping(o.Shipping)
	if err != nil {
		return err
	}

	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertOrderSQL, o.ID, o.UserID, string(o.Status), o.Total, shipping); err != nil {
			return fmt.Errorf("inserting order: %w", err)
		}
		for i, item := range o.Items {
			if _, err := tx.Exec(ctx, insertOrderItemSQL,
				item.ID, o.ID, item.ProductID, item.Name, item.UnitPrice, item.Quantity, i,
			); err != nil {
				return fmt.Errorf("inserting order item %q: %w", item.ID, err)
			}
		}
		if _, err := tx.Exec(ctx, deleteCartSQL, o.UserID); err != nil {
			return fmt.Errorf("deleting cart: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns the order matching both id and owner with its items.
func (r *OrderRepository) GetByID(ctx context.Context, id, userID string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id, userID)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	itemRows, err := r.pool.Query(ctx, getOrderItemsSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting items of order %q: %w", id, err)
	}
	o.Items, err = pgx.CollectRows(itemRows, scanOrderItem)
	if err != nil {
		return nil, fmt.Errorf("scanning items of order %q: %w", id, err)
	}

	return &o, nil
}

// ListByUser returns the user's orders with items, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %q: %w", userID, err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("scanning orders for user %q: %w", userID, err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	itemRows, err := r.pool.Query(ctx, getOrdersItemsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("listing order items for user %q: %w", userID, err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var (
			orderID string
			item    order.Item
		)
		if err := itemRows.Scan(&orderID, &item.ID, &item.ProductID, &item.Name, &item.UnitPrice, &item.Quantity); err != nil {
			return nil, fmt.Errorf("scanning order items for user %q: %w", userID, err)
		}
		i := index[orderID]
		orders[i].Items = append(orders[i].Items, item)
	}
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("reading order items for user %q: %w", userID, err)
	}

	return orders, nil
}

// Update rewrites status, total, and items conditionally on the stored
// version. A version mismatch returns order.ErrConflict and changes nothing.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, updateOrderSQL, o.ID, o.UserID, string(o.Status), o.Total, o.Version)
		if err != nil {
			return fmt.Errorf("updating order: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return order.ErrConflict
		}

		if _, err := tx.Exec(ctx, deleteOrderItemsSQL, o.ID); err != nil {
			return fmt.Errorf("clearing order items: %w", err)
		}
		for i, item := range o.Items {
			if _, err := tx.Exec(ctx, insertOrderItemSQL,
				item.ID, o.ID, item.ProductID, item.Name, item.UnitPrice, item.Quantity, i,
			); err != nil {
				return fmt.Errorf("inserting order item %q: %w", item.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, order.ErrConflict) {
			return order.ErrConflict
		}
		return fmt.Errorf("updating order %q: %w", o.ID, err)
	}

	o.Version++
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o        order.Order
		status   string
		shipping []byte
	)
	err := row.Scan(&o.ID, &o.UserID, &status, &o.Total, &shipping, &o.Version, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return o, err
	}
	o.Status = order.Status(status)
	if len(shipping) > 0 {
		var addr order.ShippingAddress
		if err := json.Unmarshal(shipping, &addr); err != nil {
			return o, fmt.Errorf("unmarshaling shipping address: %w", err)
		}
		o.Shipping = &addr
	}
	return o, nil
}

func scanOrderItem(row pgx.CollectableRow) (order.Item, error) {
	var item order.Item
	err := row.Scan(&item.ID, &item.ProductID, &item.Name, &item.UnitPrice, &item.Quantity)
	return item, err
}

func marshalShipping(addr *order.ShippingAddress) ([]byte, error) {
	if addr == nil {
		return nil, nil
	}
	data, err := json.Marshal(addr)
	if err != nil {
		return nil, fmt.Errorf("marshaling shipping address: %w", err)
	}
	return data, nil
}
