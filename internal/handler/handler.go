// Package handler exposes the storefront API over HTTP using gin. Handlers
// stay thin: they bind requests, delegate to domain services, and map domain
// errors to structured JSON responses.
package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xenking/storefront/internal/auth"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/user"
)

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// ImageBaseURL is prepended to relative image paths in product responses.
	// When empty, image paths are returned as stored in the database.
	ImageBaseURL string
}

// Handler implements the storefront HTTP API, delegating business logic to
// the injected domain services.
type Handler struct {
	users        *user.Service
	tokens       *auth.TokenManager
	products     product.Repository
	carts        *cart.Service
	orders       *order.Service
	imageBaseURL string
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg HandlerConfig,
	users *user.Service,
	tokens *auth.TokenManager,
	products product.Repository,
	carts *cart.Service,
	orders *order.Service,
) *Handler {
	return &Handler{
		users:        users,
		tokens:       tokens,
		products:     products,
		carts:        carts,
		orders:       orders,
		imageBaseURL: cfg.ImageBaseURL,
	}
}

// Register mounts all API routes on the given router group.
func (h *Handler) Register(api *gin.RouterGroup) {
	api.POST("/auth/signup", h.Signup)
	api.POST("/auth/login", h.Login)

	api.GET("/products", h.ListProducts)
	api.GET("/products/:id", h.GetProduct)

	authed := api.Group("", RequireAuth(h.tokens))
	authed.GET("/auth/profile", h.Profile)

	authed.GET("/cart", h.GetCart)
	authed.POST("/cart/items", h.AddCartItem)
	authed.PUT("/cart/items/:productId", h.SetCartItemQuantity)
	authed.DELETE("/cart/items/:productId", h.RemoveCartItem)

	authed.POST("/orders", h.PlaceOrder)
	authed.GET("/orders", h.OrderHistory)
	authed.POST("/orders/:id/cancel", h.CancelOrder)
	authed.DELETE("/orders/:id/items/:itemId", h.CancelOrderItem)
}
