package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aq2208/gstore-api/internal/adapter/http/middleware"
	"github.com/aq2208/gstore-api/internal/entity"
	"github.com/aq2208/gstore-api/internal/metrics"
	"github.com/aq2208/gstore-api/internal/usecase"
)

type CartService interface {
	AddItem(ctx context.Context, userID, productID int64, quantity int) (usecase.CartView, error)
	RemoveItem(ctx context.Context, userID, productID int64) error
	Cancel(ctx context.Context, userID int64) error
	Get(ctx context.Context, userID int64) (usecase.CartView, error)
}

type CheckoutService interface {
	Confirm(ctx context.Context, in usecase.ConfirmInput) (usecase.ConfirmResult, error)
}

type StatusAdvancer interface {
	AdvanceStatus(ctx context.Context, orderID int64) (*entity.Order, error)
}

type OrderQueries interface {
	ListPlaced(ctx context.Context) ([]usecase.OrderView, error)
	ListByUser(ctx context.Context, userID int64) ([]usecase.OrderView, error)
	Status(ctx context.Context, orderID int64) (string, error)
}

const (
	readTimeout  = 3 * time.Second
	writeTimeout = 5 * time.Second
)

type OrderHandler struct {
	cart        CartService
	checkout    CheckoutService
	fulfillment StatusAdvancer
	orders      OrderQueries
}

func NewOrderHandler(cart CartService, checkout CheckoutService, fulfillment StatusAdvancer, orders OrderQueries) *OrderHandler {
	return &OrderHandler{cart: cart, checkout: checkout, fulfillment: fulfillment, orders: orders}
}

type statusResp struct {
	OrderID int64  `json:"orderId"`
	Status  string `json:"status"`
}

// ListPlaced handler: every confirmed order with its owner (admin).
func (h *OrderHandler) ListPlaced(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readTimeout)
	defer cancel()

	out, err := h.orders.ListPlaced(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) ListMine(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readTimeout)
	defer cancel()

	out, err := h.orders.ListByUser(ctx, middleware.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) GetCart(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readTimeout)
	defer cancel()

	out, err := h.cart.Get(ctx, middleware.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// AddItem handler: form or JSON productId + quantity
func (h *OrderHandler) AddItem(c *gin.Context) {
	var req addItemReq
	if err := bind(c, &req); err != nil {
		writeError(c, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), writeTimeout)
	defer cancel()

	out, err := h.cart.AddItem(ctx, middleware.UserID(c), req.ProductID, req.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	metrics.CartItemsAdded.Inc()
	c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) RemoveItem(c *gin.Context) {
	productID, err := pathID(c, "productId")
	if err != nil {
		writeError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), writeTimeout)
	defer cancel()

	if err := h.cart.RemoveItem(ctx, middleware.UserID(c), productID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *OrderHandler) CancelCart(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), writeTimeout)
	defer cancel()

	if err := h.cart.Cancel(ctx, middleware.UserID(c)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Confirm handler: address + paymentMethod, optional X-Idempotency-Key
func (h *OrderHandler) Confirm(c *gin.Context) {
	var req confirmReq
	if err := bind(c, &req); err != nil {
		writeError(c, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(c, err)
		return
	}

	idemKey := c.GetHeader("X-Idempotency-Key") // replays return the first order

	ctx, cancel := context.WithTimeout(c.Request.Context(), writeTimeout)
	defer cancel()

	out, err := h.checkout.Confirm(ctx, usecase.ConfirmInput{
		UserID:         middleware.UserID(c),
		Address:        strings.TrimSpace(req.Address),
		PaymentMethod:  entity.PaymentMethod(req.PaymentMethod),
		IdempotencyKey: idemKey,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	if out.Replay {
		c.Header("Idempotent-Replayed", "true")
		metrics.Confirmations.WithLabelValues("replay").Inc()
	} else {
		metrics.Confirmations.WithLabelValues("placed").Inc()
	}
	c.JSON(http.StatusOK, out)
}

// AdvanceStatus handler (admin): in_progress -> en_route -> delivered
func (h *OrderHandler) AdvanceStatus(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), writeTimeout)
	defer cancel()

	o, err := h.fulfillment.AdvanceStatus(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	metrics.StatusTransitions.WithLabelValues(string(o.Status)).Inc()
	c.JSON(http.StatusOK, statusResp{OrderID: o.ID, Status: string(o.Status)})
}

func (h *OrderHandler) GetStatus(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), readTimeout)
	defer cancel()

	status, err := h.orders.Status(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, statusResp{OrderID: id, Status: status})
}
