package handler

import (
	"strings"
	"time"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/user"
)

type userResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

type productResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Image       string  `json:"image"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Stock       int     `json:"stock"`
}

type cartItemResponse struct {
	Product  productResponse `json:"product"`
	Quantity int             `json:"quantity"`
}

type cartResponse struct {
	UserID   string             `json:"userId"`
	Items    []cartItemResponse `json:"items"`
	Subtotal float64            `json:"subtotal"`
}

type orderItemResponse struct {
	ID        string  `json:"id"`
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unitPrice"`
	Quantity  int     `json:"quantity"`
}

type shippingAddressResponse struct {
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
}

type orderResponse struct {
	ID          string                   `json:"id"`
	UserID      string                   `json:"userId"`
	Status      string                   `json:"status"`
	TotalAmount float64                  `json:"totalAmount"`
	Items       []orderItemResponse      `json:"items"`
	Shipping    *shippingAddressResponse `json:"shippingAddress,omitempty"`
	CreatedAt   time.Time                `json:"createdAt"`
	UpdatedAt   time.Time                `json:"updatedAt"`
}

func toUserResponse(u *user.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email}
}

// toProductResponse maps a catalog product, prepending the configured image
// base URL to relative image paths.
func (h *Handler) toProductResponse(p product.Product) productResponse {
	image := p.Image
	if h.imageBaseURL != "" && image != "" && !strings.HasPrefix(image, "http") {
		image = strings.TrimSuffix(h.imageBaseURL, "/") + "/" + strings.TrimPrefix(image, "/")
	}
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price.InexactFloat64(),
		Image:       image,
		Description: p.Description,
		Category:    p.Category,
		Stock:       p.Stock,
	}
}

func (h *Handler) toCartResponse(c *cart.ResolvedCart) cartResponse {
	items := make([]cartItemResponse, len(c.Items))
	for i, item := range c.Items {
		items[i] = cartItemResponse{
			Product:  h.toProductResponse(item.Product),
			Quantity: item.Quantity,
		}
	}
	return cartResponse{
		UserID:   c.UserID,
		Items:    items,
		Subtotal: c.Subtotal.InexactFloat64(),
	}
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = orderItemResponse{
			ID:        item.ID,
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice.InexactFloat64(),
			Quantity:  item.Quantity,
		}
	}

	resp := orderResponse{
		ID:          o.ID,
		UserID:      o.UserID,
		Status:      string(o.Status),
		TotalAmount: o.Total.InexactFloat64(),
		Items:       items,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
	if o.Shipping != nil {
		resp.Shipping = &shippingAddressResponse{
			Address: o.Shipping.Address,
			City:    o.Shipping.City,
			State:   o.Shipping.State,
			ZipCode: o.Shipping.ZipCode,
		}
	}
	return resp
}
