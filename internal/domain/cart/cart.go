package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/product"
)

// Sentinel errors for cart operations.
var (
	// ErrNotFound is returned when an update targets a cart that does not exist.
	ErrNotFound = errors.New("cart not found")
	// ErrItemNotFound is returned when an update targets a line that is not in the cart.
	ErrItemNotFound = errors.New("item not in cart")
	// ErrInvalidQuantity is returned when an add specifies a non-positive quantity.
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
)

// Cart holds the single active cart of one user. A user with no persisted
// cart record is indistinguishable from a user with an empty cart: reads
// always produce a Cart value, never nil.
type Cart struct {
	UserID string
	Items  []Item
}

// Item is one line of a cart. At most one Item per distinct product exists
// in a cart; adding the same product again increments Quantity.
type Item struct {
	ProductID string
	Quantity  int
}

// ResolvedCart is a cart with every line joined against the live catalog,
// ready to be returned to a client.
type ResolvedCart struct {
	UserID   string
	Items    []ResolvedItem
	Subtotal decimal.Decimal
}

// ResolvedItem pairs a cart line with its catalog product.
type ResolvedItem struct {
	Product  product.Product
	Quantity int
}

// Repository defines persistence operations for carts.
//
// AddItem and SetItemQuantity are single atomic statements against the store:
// concurrent mutations of the same line must not lose updates.
type Repository interface {
	// Get returns the user's cart. A missing cart record is reported as an
	// empty cart, not an error.
	Get(ctx context.Context, userID string) (*Cart, error)
	// Exists reports whether a cart record is persisted for the user,
	// distinguishing "no cart" from "empty cart" for update guards.
	Exists(ctx context.Context, userID string) (bool, error)
	// AddItem creates the cart when absent and increments the line quantity
	// by qty, inserting the line when absent.
	AddItem(ctx context.Context, userID, productID string, qty int) error
	// SetItemQuantity overwrites the line quantity. It reports whether a
	// matching line existed.
	SetItemQuantity(ctx context.Context, userID, productID string, qty int) (bool, error)
	// RemoveItem deletes the line if present. Removing an absent line is not
	// an error.
	RemoveItem(ctx context.Context, userID, productID string) error
	// Delete removes the cart record and all of its lines.
	Delete(ctx context.Context, userID string) error
}
