package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/product"
)

type addCartItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required"`
}

type setQuantityRequest struct {
	// Quantity may legitimately be zero (remove), so no required binding.
	Quantity int `json:"quantity"`
}

// GetCart returns the authenticated user's resolved cart. A user without a
// cart gets an empty-items cart, never null.
func (h *Handler) GetCart(c *gin.Context) {
	resolved, err := h.carts.Get(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondInternal(c, err)
		return
	}
	c.JSON(http.StatusOK, h.toCartResponse(resolved))
}

// AddCartItem adds quantity units of a product to the cart, incrementing the
// existing line when the product is already present.
func (h *Handler) AddCartItem(c *gin.Context) {
	var req addCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	resolved, err := h.carts.AddItem(c.Request.Context(), currentUserID(c), req.ProductID, req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, cart.ErrInvalidQuantity):
			respondError(c, http.StatusBadRequest, "quantity must be greater than 0")
		case errors.Is(err, product.ErrNotFound):
			respondError(c, http.StatusNotFound, "product not found")
		default:
			respondInternal(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, h.toCartResponse(resolved))
}

// SetCartItemQuantity overwrites the stored quantity of a cart line; a
// quantity of zero or below removes the line.
func (h *Handler) SetCartItemQuantity(c *gin.Context) {
	var req setQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	resolved, err := h.carts.SetQuantity(c.Request.Context(), currentUserID(c), c.Param("productId"), req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, cart.ErrNotFound):
			respondError(c, http.StatusNotFound, "cart not found")
		case errors.Is(err, cart.ErrItemNotFound):
			respondError(c, http.StatusNotFound, "item not in cart")
		default:
			respondInternal(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, h.toCartResponse(resolved))
}

// RemoveCartItem removes a product from the cart. Removing an absent product
// is a no-op and still returns the unchanged cart.
func (h *Handler) RemoveCartItem(c *gin.Context) {
	resolved, err := h.carts.RemoveItem(c.Request.Context(), currentUserID(c), c.Param("productId"))
	if err != nil {
		respondInternal(c, err)
		return
	}
	c.JSON(http.StatusOK, h.toCartResponse(resolved))
}
