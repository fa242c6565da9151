package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an order.
type Status string

// Order lifecycle states. Cancelled and Delivered are terminal; Delivered is
// set by an external fulfillment process, never by this service.
const (
	StatusPlaced    Status = "Placed"
	StatusCancelled Status = "Cancelled"
	StatusDelivered Status = "Delivered"
)

// Terminal reports whether no further transitions are permitted from s.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusDelivered
}

// Sentinel errors for order operations.
var (
	// ErrEmptyCart is returned when placement is attempted on an absent or empty cart.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrNotFound is returned when no order matches the given id and owner.
	ErrNotFound = errors.New("order not found")
	// ErrItemNotFound is returned when a cancel-item target is not on the order.
	ErrItemNotFound = errors.New("order item not found")
	// ErrInvalidTransition is returned when cancellation targets a terminal order.
	ErrInvalidTransition = errors.New("order cannot be cancelled")
	// ErrConflict is returned when a conditional update loses a concurrent race.
	ErrConflict = errors.New("order was modified concurrently")
)

// Order is an immutable snapshot of a cart at placement time. After creation
// it is mutated only by cancellation, never deleted.
type Order struct {
	ID       string
	UserID   string
	Items    []Item
	Total    decimal.Decimal
	Status   Status
	Shipping *ShippingAddress

	// Version guards read-modify-write cancellation against lost updates.
	// Every successful update increments it.
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Item is one line of an order. Name and UnitPrice are copied from the
// catalog when the order is placed; later catalog edits never change a
// placed order's totals.
type Item struct {
	ID        string
	ProductID string
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

// ShippingAddress is the optional address snapshot captured at placement.
type ShippingAddress struct {
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
}

// recomputeTotal derives the order total from the snapshot prices of the
// remaining items. The live catalog is deliberately not consulted.
func (o *Order) recomputeTotal() {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	o.Total = total.Round(2)
}

// Repository defines persistence operations for orders.
type Repository interface {
	// CreateFromCart persists the order and deletes the owning user's cart
	// record in a single transaction. The cart delete must never happen
	// without a successfully persisted order.
	CreateFromCart(ctx context.Context, o *Order) error
	// GetByID returns the order matching both id and owner, or ErrNotFound.
	GetByID(ctx context.Context, id, userID string) (*Order, error)
	// ListByUser returns the user's orders, newest first.
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	// Update persists status, total, and items conditionally on o.Version
	// matching the stored row. It returns ErrConflict on a version mismatch
	// and increments o.Version on success.
	Update(ctx context.Context, o *Order) error
}

// Events receives order lifecycle notifications. Implementations must not
// fail the calling operation; publishing is best effort.
type Events interface {
	OrderPlaced(ctx context.Context, o *Order)
	OrderCancelled(ctx context.Context, o *Order)
}

// NoopEvents discards all events.
type NoopEvents struct{}

func (NoopEvents) OrderPlaced(context.Context, *Order)    {}
func (NoopEvents) OrderCancelled(context.Context, *Order) {}
