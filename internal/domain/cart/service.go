package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/product"
)

// Service maintains the single active cart per user. Every mutation returns
// the full resolved cart, matching what a storefront client renders next.
type Service struct {
	carts    Repository
	products product.Repository
}

// NewService creates a cart Service with the required dependencies.
func NewService(carts Repository, products product.Repository) *Service {
	return &Service{
		carts:    carts,
		products: products,
	}
}

// AddItem adds qty units of a product to the user's cart, creating the cart
// lazily on first use. Adding a product already in the cart increments the
// stored quantity. The product must exist in the catalog; stock is not
// checked.
func (s *Service) AddItem(ctx context.Context, userID, productID string, qty int) (*ResolvedCart, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}

	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, errors.Wrapf(err, "get product %s", productID)
	}

	if err := s.carts.AddItem(ctx, userID, productID, qty); err != nil {
		return nil, errors.Wrap(err, "add cart item")
	}

	return s.Get(ctx, userID)
}

// SetQuantity overwrites the stored quantity of a cart line. A quantity of
// zero or below removes the line entirely. It fails with ErrNotFound when the
// user has no cart and ErrItemNotFound when the product is not in the cart.
func (s *Service) SetQuantity(ctx context.Context, userID, productID string, qty int) (*ResolvedCart, error) {
	exists, err := s.carts.Exists(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "check cart")
	}
	if !exists {
		return nil, ErrNotFound
	}

	if qty <= 0 {
		// Equivalent to removal, but the line must exist for an update.
		found, err := s.carts.SetItemQuantity(ctx, userID, productID, 0)
		if err != nil {
			return nil, errors.Wrap(err, "remove cart item")
		}
		if !found {
			return nil, ErrItemNotFound
		}
		return s.Get(ctx, userID)
	}

	found, err := s.carts.SetItemQuantity(ctx, userID, productID, qty)
	if err != nil {
		return nil, errors.Wrap(err, "set cart item quantity")
	}
	if !found {
		return nil, ErrItemNotFound
	}

	return s.Get(ctx, userID)
}

// RemoveItem removes a product from the cart. Removing a product that is not
// in the cart is a no-op: the unchanged cart is returned.
func (s *Service) RemoveItem(ctx context.Context, userID, productID string) (*ResolvedCart, error) {
	if err := s.carts.RemoveItem(ctx, userID, productID); err != nil {
		return nil, errors.Wrap(err, "remove cart item")
	}
	return s.Get(ctx, userID)
}

// Get returns the user's cart with every line resolved against the catalog.
// A user without a persisted cart gets an empty-items cart, never nil.
func (s *Service) Get(ctx context.Context, userID string) (*ResolvedCart, error) {
	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}
	return s.resolve(ctx, c)
}

// resolve joins cart lines with catalog products and computes the subtotal.
// Lines whose product has been removed from the catalog are dropped from the
// resolved view rather than failing the whole read.
func (s *Service) resolve(ctx context.Context, c *Cart) (*ResolvedCart, error) {
	resolved := &ResolvedCart{
		UserID:   c.UserID,
		Items:    make([]ResolvedItem, 0, len(c.Items)),
		Subtotal: decimal.Zero,
	}
	if len(c.Items) == 0 {
		return resolved, nil
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

	for _, item := range c.Items {
		p, ok := byID[item.ProductID]
		if !ok {
			continue
		}
		resolved.Items = append(resolved.Items, ResolvedItem{
			Product:  p,
			Quantity: item.Quantity,
		})
		qty := decimal.NewFromInt(int64(item.Quantity))
		resolved.Subtotal = resolved.Subtotal.Add(p.Price.Mul(qty))
	}
	resolved.Subtotal = resolved.Subtotal.Round(2)

	return resolved, nil
}
