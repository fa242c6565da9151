package cart

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

// mockCartRepo keeps per-user carts in memory and mirrors the semantics the
// SQL implementation provides: lazy cart creation on add, reported line
// existence on set, idempotent removal.
type mockCartRepo struct {
	carts map[string]map[string]int
}

func newCartRepo() *mockCartRepo {
	return &mockCartRepo{carts: make(map[string]map[string]int)}
}

func (m *mockCartRepo) Get(_ context.Context, userID string) (*Cart, error) {
	c := &Cart{UserID: userID}
	for productID, qty := range m.carts[userID] {
		c.Items = append(c.Items, Item{ProductID: productID, Quantity: qty})
	}
	return c, nil
}

func (m *mockCartRepo) Exists(_ context.Context, userID string) (bool, error) {
	_, ok := m.carts[userID]
	return ok, nil
}

func (m *mockCartRepo) AddItem(_ context.Context, userID, productID string, qty int) error {
	if m.carts[userID] == nil {
		m.carts[userID] = make(map[string]int)
	}
	m.carts[userID][productID] += qty
	return nil
}

func (m *mockCartRepo) SetItemQuantity(_ context.Context, userID, productID string, qty int) (bool, error) {
	items := m.carts[userID]
	if _, ok := items[productID]; !ok {
		return false, nil
	}
	if qty <= 0 {
		delete(items, productID)
	} else {
		items[productID] = qty
	}
	return true, nil
}

func (m *mockCartRepo) RemoveItem(_ context.Context, userID, productID string) error {
	delete(m.carts[userID], productID)
	return nil
}

func (m *mockCartRepo) Delete(_ context.Context, userID string) error {
	delete(m.carts, userID)
	return nil
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

func itemQuantity(c *ResolvedCart, productID string) int {
	for _, item := range c.Items {
		if item.Product.ID == productID {
			return item.Quantity
		}
	}
	return 0
}

// --- Tests ---

func TestAddItem_InvalidQuantity(t *testing.T) {
	svc := NewService(newCartRepo(), newProductRepo())

	_, err := svc.AddItem(context.Background(), "u1", "p1", 0)
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.AddItem(context.Background(), "u1", "p1", -3)
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestAddItem_UnknownProduct(t *testing.T) {
	svc := NewService(newCartRepo(), newProductRepo())

	_, err := svc.AddItem(context.Background(), "u1", "missing", 1)
	require.ErrorIs(t, err, product.ErrNotFound)
}

func TestAddItem_CreatesCartLazily(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", decimal.RequireFromString("10.00"))
	repo := newCartRepo()
	svc := NewService(repo, newProductRepo(p1))

	c, err := svc.AddItem(context.Background(), "u1", "p1", 2)
	require.NoError(t, err)

	assert.Equal(t, "u1", c.UserID)
	assert.Equal(t, 2, itemQuantity(c, "p1"))
	assert.True(t, decimal.RequireFromString("20.00").Equal(c.Subtotal))
}

func TestAddItem_IncrementsExistingLine(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", decimal.RequireFromString("10.00"))
	svc := NewService(newCartRepo(), newProductRepo(p1))

	_, err := svc.AddItem(context.Background(), "u1", "p1", 2)
	require.NoError(t, err)

	c, err := svc.AddItem(context.Background(), "u1", "p1", 3)
	require.NoError(t, err)

	require.Len(t, c.Items, 1)
	assert.Equal(t, 5, itemQuantity(c, "p1"))
	assert.True(t, decimal.RequireFromString("50.00").Equal(c.Subtotal))
}

func TestGet_EmptyWithoutCart(t *testing.T) {
	svc := NewService(newCartRepo(), newProductRepo())

	c, err := svc.Get(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, c)

	assert.Empty(t, c.Items)
	assert.True(t, decimal.Zero.Equal(c.Subtotal))
}

func TestSetQuantity_NoCart(t *testing.T) {
	svc := NewService(newCartRepo(), newProductRepo())

	_, err := svc.SetQuantity(context.Background(), "u1", "p1", 3)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSetQuantity_ItemNotInCart(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", decimal.RequireFromString("10.00"))
	svc := NewService(newCartRepo(), newProductRepo(p1))

	_, err := svc.AddItem(context.Background(), "u1", "p1", 1)
	require.NoError(t, err)

	_, err = svc.SetQuantity(context.Background(), "u1", "p2", 3)
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestSetQuantity_Overwrites(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", decimal.RequireFromString("10.00"))
	svc := NewService(newCartRepo(), newProductRepo(p1))

	_, err := svc.AddItem(context.Background(), "u1", "p1", 2)
	require.NoError(t, err)

	c, err := svc.SetQuantity(context.Background(), "u1", "p1", 7)
	require.NoError(t, err)

	assert.Equal(t, 7, itemQuantity(c, "p1"))
	assert.True(t, decimal.RequireFromString("70.00").Equal(c.Subtotal))
}

func TestSetQuantity_ZeroRemovesLine(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", decimal.RequireFromString("10.00"))
	p2 := newTestProduct("p2", "Gadget", decimal.RequireFromString("20.00"))
	svc := NewService(newCartRepo(), newProductRepo(p1, p2))

	_, err := svc.AddItem(context.Background(), "u1", "p1", 2)
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), "u1", "p2", 1)
	require.NoError(t, err)

	c, err := svc.SetQuantity(context.Background(), "u1", "p1", 0)
	require.NoError(t, err)

	require.Len(t, c.Items, 1)
	assert.Equal(t, 0, itemQuantity(c, "p1"))
	assert.True(t, decimal.RequireFromString("20.00").Equal(c.Subtotal))
}

func TestSetQuantity_ZeroOnAbsentLine(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", decimal.RequireFromString("10.00"))
	svc := NewService(newCartRepo(), newProductRepo(p1))

	_, err := svc.AddItem(context.Background(), "u1", "p1", 1)
	require.NoError(t, err)

	_, err = svc.SetQuantity(context.Background(), "u1", "p2", 0)
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestRemoveItem_Removes(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", decimal.RequireFromString("10.00"))
	svc := NewService(newCartRepo(), newProductRepo(p1))

	_, err := svc.AddItem(context.Background(), "u1", "p1", 2)
	require.NoError(t, err)

	c, err := svc.RemoveItem(context.Background(), "u1", "p1")
	require.NoError(t, err)

	assert.Empty(t, c.Items)
	assert.True(t, decimal.Zero.Equal(c.Subtotal))
}

func TestRemoveItem_AbsentIsNoop(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", decimal.RequireFromString("10.00"))
	svc := NewService(newCartRepo(), newProductRepo(p1))

	_, err := svc.AddItem(context.Background(), "u1", "p1", 2)
	require.NoError(t, err)

	c, err := svc.RemoveItem(context.Background(), "u1", "p2")
	require.NoError(t, err)

	assert.Equal(t, 2, itemQuantity(c, "p1"))
}

func TestGet_DropsDelistedProducts(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", decimal.RequireFromString("10.00"))
	products := newProductRepo(p1)
	repo := newCartRepo()
	svc := NewService(repo, products)

	_, err := svc.AddItem(context.Background(), "u1", "p1", 1)
	require.NoError(t, err)

	// Simulate the product disappearing from the catalog after it was added.
	delete(products.byID, "p1")

	c, err := svc.Get(context.Background(), "u1")
	require.NoError(t, err)

	assert.Empty(t, c.Items)
	assert.True(t, decimal.Zero.Equal(c.Subtotal))
}
