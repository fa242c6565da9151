package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/order"
)

type shippingAddressRequest struct {
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
}

type placeOrderRequest struct {
	Shipping *shippingAddressRequest `json:"shippingAddress"`
}

// PlaceOrder converts the authenticated user's cart into an order.
func (h *Handler) PlaceOrder(c *gin.Context) {
	var req placeOrderRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	var shipping *order.ShippingAddress
	if req.Shipping != nil {
		shipping = &order.ShippingAddress{
			Address: req.Shipping.Address,
			City:    req.Shipping.City,
			State:   req.Shipping.State,
			ZipCode: req.Shipping.ZipCode,
		}
	}

	o, err := h.orders.Place(c.Request.Context(), currentUserID(c), shipping)
	if err != nil {
		if errors.Is(err, order.ErrEmptyCart) {
			respondError(c, http.StatusBadRequest, "cart is empty")
			return
		}
		respondInternal(c, err)
		return
	}

	c.JSON(http.StatusCreated, toOrderResponse(o))
}

// OrderHistory returns the authenticated user's orders, newest first.
func (h *Handler) OrderHistory(c *gin.Context) {
	orders, err := h.orders.History(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondInternal(c, err)
		return
	}

	resp := make([]orderResponse, len(orders))
	for i := range orders {
		resp[i] = toOrderResponse(&orders[i])
	}
	c.JSON(http.StatusOK, resp)
}

// CancelOrder transitions a non-terminal order to Cancelled.
func (h *Handler) CancelOrder(c *gin.Context) {
	o, err := h.orders.Cancel(c.Request.Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		respondOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(o))
}

// CancelOrderItem removes a single line from a non-terminal order. The item
// is located by line id first, then by product reference.
func (h *Handler) CancelOrderItem(c *gin.Context) {
	o, err := h.orders.CancelItem(c.Request.Context(), c.Param("id"), currentUserID(c), c.Param("itemId"))
	if err != nil {
		respondOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(o))
}

// respondOrderError maps cancellation errors to HTTP responses.
func respondOrderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, order.ErrNotFound):
		respondError(c, http.StatusNotFound, "order not found")
	case errors.Is(err, order.ErrItemNotFound):
		respondError(c, http.StatusNotFound, "order item not found")
	case errors.Is(err, order.ErrInvalidTransition):
		respondError(c, http.StatusBadRequest, "order cannot be cancelled")
	case errors.Is(err, order.ErrConflict):
		respondError(c, http.StatusConflict, "order was modified concurrently, retry")
	default:
		respondInternal(c, err)
	}
}
