package order

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/product"
)

// --- Mock implementations ---

type mockProductRepo struct {
	byID map[string]*product.Product
}

func (m *mockProductRepo) List(_ context.Context) ([]product.Product, error) {
	return nil, nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	out := make([]product.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

type mockCartRepo struct {
	items   []cart.Item
	deleted bool
}

func (m *mockCartRepo) Get(_ context.Context, userID string) (*cart.Cart, error) {
	return &cart.Cart{UserID: userID, Items: m.items}, nil
}

func (m *mockCartRepo) Exists(_ context.Context, _ string) (bool, error) {
	return len(m.items) > 0, nil
}

func (m *mockCartRepo) AddItem(_ context.Context, _, _ string, _ int) error {
	return nil
}

func (m *mockCartRepo) SetItemQuantity(_ context.Context, _, _ string, _ int) (bool, error) {
	return false, nil
}

func (m *mockCartRepo) RemoveItem(_ context.Context, _, _ string) error {
	return nil
}

func (m *mockCartRepo) Delete(_ context.Context, _ string) error {
	m.deleted = true
	return nil
}

// mockOrderRepo stores orders by id and mimics the version-conditional update
// of the SQL implementation.
type mockOrderRepo struct {
	byID      map[string]*Order
	cartRepo  *mockCartRepo
	createErr error
	updateErr error
}

func newOrderRepo(cartRepo *mockCartRepo) *mockOrderRepo {
	return &mockOrderRepo{byID: make(map[string]*Order), cartRepo: cartRepo}
}

func (m *mockOrderRepo) CreateFromCart(_ context.Context, o *Order) error {
	if m.createErr != nil {
		return m.createErr
	}
	o.Version = 1
	stored := *o
	m.byID[o.ID] = &stored
	if m.cartRepo != nil {
		m.cartRepo.items = nil
		m.cartRepo.deleted = true
	}
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id, userID string) (*Order, error) {
	o, ok := m.byID[id]
	if !ok || o.UserID != userID {
		return nil, ErrNotFound
	}
	copied := *o
	copied.Items = append([]Item(nil), o.Items...)
	return &copied, nil
}

func (m *mockOrderRepo) ListByUser(_ context.Context, userID string) ([]Order, error) {
	var out []Order
	for _, o := range m.byID {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) Update(_ context.Context, o *Order) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	stored, ok := m.byID[o.ID]
	if !ok || stored.Version != o.Version {
		return ErrConflict
	}
	o.Version++
	copied := *o
	copied.Items = append([]Item(nil), o.Items...)
	m.byID[o.ID] = &copied
	return nil
}

type recordingEvents struct {
	placed    []*Order
	cancelled []*Order
}

func (r *recordingEvents) OrderPlaced(_ context.Context, o *Order) {
	r.placed = append(r.placed, o)
}

func (r *recordingEvents) OrderCancelled(_ context.Context, o *Order) {
	r.cancelled = append(r.cancelled, o)
}

// --- Helpers ---

func newTestProduct(id, name string, price decimal.Decimal) product.Product {
	return product.Product{
		ID:       id,
		Name:     name,
		Price:    price,
		Category: "test",
		Image:    "products/test.jpg",
		Stock:    10,
	}
}

func newProductRepo(products ...product.Product) *mockProductRepo {
	byID := make(map[string]*product.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	return &mockProductRepo{byID: byID}
}

// placeTestOrder places an order for two products totalling 250.00.
func placeTestOrder(t *testing.T) (*Service, *mockCartRepo, *mockOrderRepo, *Order) {
	t.Helper()

	p1 := newTestProduct("p1", "Widget", decimal.RequireFromString("100.00"))
	p2 := newTestProduct("p2", "Gadget", decimal.RequireFromString("50.00"))
	carts := &mockCartRepo{items: []cart.Item{
		{ProductID: "p1", Quantity: 2},
		{ProductID: "p2", Quantity: 1},
	}}
	orders := newOrderRepo(carts)
	svc := NewService(carts, newProductRepo(p1, p2), orders, nil)

	o, err := svc.Place(context.Background(), "u1", nil)
	require.NoError(t, err)
	return svc, carts, orders, o
}

// --- Tests ---

func TestPlace_EmptyCart(t *testing.T) {
	carts := &mockCartRepo{}
	svc := NewService(carts, newProductRepo(), newOrderRepo(carts), nil)

	_, err := svc.Place(context.Background(), "u1", nil)
	require.ErrorIs(t, err, ErrEmptyCart)
	assert.False(t, carts.deleted)
}

func TestPlace_SnapshotsAndTotal(t *testing.T) {
	_, carts, _, o := placeTestOrder(t)

	assert.Equal(t, StatusPlaced, o.Status)
	assert.True(t, decimal.RequireFromString("250.00").Equal(o.Total))
	require.Len(t, o.Items, 2)

	byProduct := make(map[string]Item, len(o.Items))
	for _, item := range o.Items {
		require.NotEmpty(t, item.ID)
		byProduct[item.ProductID] = item
	}
	assert.Equal(t, "Widget", byProduct["p1"].Name)
	assert.True(t, decimal.RequireFromString("100.00").Equal(byProduct["p1"].UnitPrice))
	assert.Equal(t, 2, byProduct["p1"].Quantity)
	assert.True(t, decimal.RequireFromString("50.00").Equal(byProduct["p2"].UnitPrice))

	assert.True(t, carts.deleted, "cart must be deleted on placement")
}

func TestPlace_ProductDelistedBetweenAddAndPlace(t *testing.T) {
	carts := &mockCartRepo{items: []cart.Item{{ProductID: "gone", Quantity: 1}}}
	svc := NewService(carts, newProductRepo(), newOrderRepo(carts), nil)

	_, err := svc.Place(context.Background(), "u1", nil)
	require.ErrorIs(t, err, product.ErrNotFound)
	assert.False(t, carts.deleted)
}

func TestPlace_PublishesEvent(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", decimal.RequireFromString("10.00"))
	carts := &mockCartRepo{items: []cart.Item{{ProductID: "p1", Quantity: 1}}}
	events := &recordingEvents{}
	svc := NewService(carts, newProductRepo(p1), newOrderRepo(carts), events)

	o, err := svc.Place(context.Background(), "u1", nil)
	require.NoError(t, err)

	require.Len(t, events.placed, 1)
	assert.Equal(t, o.ID, events.placed[0].ID)
}

func TestPlace_ShippingSnapshot(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", decimal.RequireFromString("10.00"))
	carts := &mockCartRepo{items: []cart.Item{{ProductID: "p1", Quantity: 1}}}
	svc := NewService(carts, newProductRepo(p1), newOrderRepo(carts), nil)

	shipping := &ShippingAddress{Address: "1 Main St", City: "Springfield", State: "OR", ZipCode: "97477"}
	o, err := svc.Place(context.Background(), "u1", shipping)
	require.NoError(t, err)

	require.NotNil(t, o.Shipping)
	assert.Equal(t, "Springfield", o.Shipping.City)
}

func TestPlace_TotalImmuneToLaterPriceChange(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", decimal.RequireFromString("100.00"))
	products := newProductRepo(p1)
	carts := &mockCartRepo{items: []cart.Item{{ProductID: "p1", Quantity: 1}}}
	orders := newOrderRepo(carts)
	svc := NewService(carts, products, orders, nil)

	placed, err := svc.Place(context.Background(), "u1", nil)
	require.NoError(t, err)

	// Catalog price doubles after placement.
	products.byID["p1"].Price = decimal.RequireFromString("200.00")

	got, err := svc.Get(context.Background(), placed.ID, "u1")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("100.00").Equal(got.Total))
}

func TestGet_WrongOwner(t *testing.T) {
	svc, _, _, o := placeTestOrder(t)

	_, err := svc.Get(context.Background(), o.ID, "intruder")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCancel_PlacedOrder(t *testing.T) {
	svc, _, orders, o := placeTestOrder(t)

	cancelled, err := svc.Cancel(context.Background(), o.ID, "u1")
	require.NoError(t, err)

	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Equal(t, StatusCancelled, orders.byID[o.ID].Status)
}

func TestCancel_AlreadyCancelled(t *testing.T) {
	svc, _, _, o := placeTestOrder(t)

	_, err := svc.Cancel(context.Background(), o.ID, "u1")
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), o.ID, "u1")
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancel_DeliveredOrder(t *testing.T) {
	svc, _, orders, o := placeTestOrder(t)
	orders.byID[o.ID].Status = StatusDelivered

	_, err := svc.Cancel(context.Background(), o.ID, "u1")
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancel_ConcurrentModification(t *testing.T) {
	svc, _, orders, o := placeTestOrder(t)
	orders.updateErr = ErrConflict

	_, err := svc.Cancel(context.Background(), o.ID, "u1")
	require.ErrorIs(t, err, ErrConflict)
}

func TestCancel_PublishesEvent(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", decimal.RequireFromString("10.00"))
	carts := &mockCartRepo{items: []cart.Item{{ProductID: "p1", Quantity: 1}}}
	events := &recordingEvents{}
	orders := newOrderRepo(carts)
	svc := NewService(carts, newProductRepo(p1), orders, events)

	o, err := svc.Place(context.Background(), "u1", nil)
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), o.ID, "u1")
	require.NoError(t, err)

	require.Len(t, events.cancelled, 1)
	assert.Equal(t, o.ID, events.cancelled[0].ID)
}

func TestCancelItem_RecomputesTotal(t *testing.T) {
	svc, _, _, o := placeTestOrder(t)

	var widgetLine Item
	for _, item := range o.Items {
		if item.ProductID == "p1" {
			widgetLine = item
		}
	}

	updated, err := svc.CancelItem(context.Background(), o.ID, "u1", widgetLine.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusPlaced, updated.Status)
	require.Len(t, updated.Items, 1)
	assert.True(t, decimal.RequireFromString("50.00").Equal(updated.Total))
}

func TestCancelItem_ByProductID(t *testing.T) {
	svc, _, _, o := placeTestOrder(t)

	updated, err := svc.CancelItem(context.Background(), o.ID, "u1", "p2")
	require.NoError(t, err)

	require.Len(t, updated.Items, 1)
	assert.Equal(t, "p1", updated.Items[0].ProductID)
	assert.True(t, decimal.RequireFromString("200.00").Equal(updated.Total))
}

func TestCancelItem_LineIDWinsOverProductID(t *testing.T) {
	carts := &mockCartRepo{items: []cart.Item{{ProductID: "p1", Quantity: 1}}}
	orders := newOrderRepo(carts)
	svc := NewService(carts, newProductRepo(), orders, nil)

	// One line whose product reference collides with another line's id.
	orders.byID["o1"] = &Order{
		ID:     "o1",
		UserID: "u1",
		Status: StatusPlaced,
		Items: []Item{
			{ID: "shared", ProductID: "p1", Name: "Widget", UnitPrice: decimal.RequireFromString("10.00"), Quantity: 1},
			{ID: "other", ProductID: "shared", Name: "Gadget", UnitPrice: decimal.RequireFromString("20.00"), Quantity: 1},
		},
		Total:   decimal.RequireFromString("30.00"),
		Version: 1,
	}

	updated, err := svc.CancelItem(context.Background(), "o1", "u1", "shared")
	require.NoError(t, err)

	// The line with id "shared" goes, not the one referencing product "shared".
	require.Len(t, updated.Items, 1)
	assert.Equal(t, "other", updated.Items[0].ID)
	assert.True(t, decimal.RequireFromString("20.00").Equal(updated.Total))
}

func TestCancelItem_LastItemCancelsOrder(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", decimal.RequireFromString("10.00"))
	carts := &mockCartRepo{items: []cart.Item{{ProductID: "p1", Quantity: 1}}}
	events := &recordingEvents{}
	svc := NewService(carts, newProductRepo(p1), newOrderRepo(carts), events)

	o, err := svc.Place(context.Background(), "u1", nil)
	require.NoError(t, err)

	updated, err := svc.CancelItem(context.Background(), o.ID, "u1", o.Items[0].ID)
	require.NoError(t, err)

	assert.Equal(t, StatusCancelled, updated.Status)
	assert.Empty(t, updated.Items)
	assert.True(t, decimal.Zero.Equal(updated.Total))
	require.Len(t, events.cancelled, 1)
}

func TestCancelItem_UnknownItem(t *testing.T) {
	svc, _, _, o := placeTestOrder(t)

	_, err := svc.CancelItem(context.Background(), o.ID, "u1", "nonexistent")
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestCancelItem_TerminalOrder(t *testing.T) {
	svc, _, _, o := placeTestOrder(t)

	_, err := svc.Cancel(context.Background(), o.ID, "u1")
	require.NoError(t, err)

	_, err = svc.CancelItem(context.Background(), o.ID, "u1", o.Items[0].ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestPlace_CreateError(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", decimal.RequireFromString("10.00"))
	carts := &mockCartRepo{items: []cart.Item{{ProductID: "p1", Quantity: 1}}}
	orders := newOrderRepo(carts)
	orders.createErr = errors.New("db write failed")
	svc := NewService(carts, newProductRepo(p1), orders, nil)

	_, err := svc.Place(context.Background(), "u1", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create order")
}
