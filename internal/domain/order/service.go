package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/product"
)

// Service is the sole transition path from carts to orders and the guard on
// every later status change.
type Service struct {
	carts    cart.Repository
	products product.Repository
	orders   Repository
	events   Events
}

// NewService creates an order Service with the required domain dependencies.
// Pass NoopEvents when no event publisher is configured.
func NewService(
	carts cart.Repository,
	products product.Repository,
	orders Repository,
	events Events,
) *Service {
	if events == nil {
		events = NoopEvents{}
	}
	return &Service{
		carts:    carts,
		products: products,
		orders:   orders,
		events:   events,
	}
}

// Place converts the user's cart into an order. It reads the cart, snapshots
// the current catalog name and price onto every line, computes the total, and
// persists order plus cart deletion as one transaction. An absent cart is
// treated the same as an empty one.
func (s *Service) Place(ctx context.Context, userID string, shipping *ShippingAddress) (*Order, error) {
	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}
	if len(c.Items) == 0 {
		return nil, ErrEmptyCart
	}

	ids := make([]string, len(c.Items))
	for i, item := range c.Items {
		ids[i] = item.ProductID
	}
	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	byID := make(map[string]product.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	items := make([]Item, 0, len(c.Items))
	total := decimal.Zero
	for _, line := range c.Items {
		p, ok := byID[line.ProductID]
		if !ok {
			return nil, errors.Wrap(product.ErrNotFound, line.ProductID)
		}
		items = append(items, Item{
			ID:        uuid.New().String(),
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Quantity:  line.Quantity,
		})
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	o := &Order{
		ID:       uuid.New().String(),
		UserID:   userID,
		Items:    items,
		Total:    total.Round(2),
		Status:   StatusPlaced,
		Shipping: shipping,
	}

	if err := s.orders.CreateFromCart(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	s.events.OrderPlaced(ctx, o)
	return o, nil
}

// History returns the user's orders, newest first.
func (s *Service) History(ctx context.Context, userID string) ([]Order, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// Get returns a single order owned by the user.
func (s *Service) Get(ctx context.Context, orderID, userID string) (*Order, error) {
	return s.orders.GetByID(ctx, orderID, userID)
}

// Cancel transitions an order owned by the user from a non-terminal state to
// Cancelled. Cancelling an already Cancelled or Delivered order fails with
// ErrInvalidTransition and changes nothing.
func (s *Service) Cancel(ctx context.Context, orderID, userID string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if o.Status.Terminal() {
		return nil, ErrInvalidTransition
	}

	o.Status = StatusCancelled
	if err := s.orders.Update(ctx, o); err != nil {
		return nil, errors.Wrap(err, "update order")
	}

	s.events.OrderCancelled(ctx, o)
	return o, nil
}

// CancelItem removes a single line from a non-terminal order owned by the
// user. The line is located by its own id first; when no line id matches, the
// lookup falls back to the product reference. Removing the last line cancels
// the whole order with a zero total; otherwise the total is recomputed from
// the snapshot prices of the remaining lines.
func (s *Service) CancelItem(ctx context.Context, orderID, userID, itemID string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if o.Status.Terminal() {
		return nil, ErrInvalidTransition
	}

	idx := findItem(o.Items, itemID)
	if idx < 0 {
		return nil, ErrItemNotFound
	}
	o.Items = append(o.Items[:idx], o.Items[idx+1:]...)

	if len(o.Items) == 0 {
		o.Status = StatusCancelled
		o.Total = decimal.Zero
	} else {
		o.recomputeTotal()
	}

	if err := s.orders.Update(ctx, o); err != nil {
		return nil, errors.Wrap(err, "update order")
	}

	if o.Status == StatusCancelled {
		s.events.OrderCancelled(ctx, o)
	}
	return o, nil
}

// findItem locates a line by id, preferring the line's own id over its
// product reference. The id match wins even when another line's product
// reference would also match.
func findItem(items []Item, id string) int {
	for i, item := range items {
		if item.ID == id {
			return i
		}
	}
	for i, item := range items {
		if item.ProductID == id {
			return i
		}
	}
	return -1
}
