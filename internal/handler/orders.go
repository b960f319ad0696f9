package handler

import (
	"net/http"

	"tallypos/internal/apierror"
	"tallypos/internal/dto"
	"tallypos/internal/middleware"
	"tallypos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type OrdersHandler struct{ svc service.OrderService }

func NewOrdersHandler(svc service.OrderService) *OrdersHandler {
	return &OrdersHandler{svc: svc}
}

// Create finalizes a POS order: stock is debited and, for credit orders,
// the customer's debt is recorded — all in one transaction.
func (h *OrdersHandler) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CreatePOSOrder(c.Request.Context(), middleware.ActorID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Get returns one order with its items.
func (h *OrdersHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid order ID"))
		return
	}
	resp, err := h.svc.GetOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// List returns a paginated, filtered list of orders.
func (h *OrdersHandler) List(c *gin.Context) {
	var filter dto.OrderFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	resp, err := h.svc.ListOrders(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Delete reverses a POS order: stock is restored via compensating entries
// and any credit debt is reversed, then the order is removed.
func (h *OrdersHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid order ID"))
		return
	}
	if err := h.svc.DeletePOSOrder(c.Request.Context(), id, middleware.ActorID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ConfirmPayment settles a pending-online order after verifying the payment
// reference against the gateway server-side.
func (h *OrdersHandler) ConfirmPayment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid order ID"))
		return
	}
	var req dto.ConfirmOrderPaymentRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.ConfirmOnlinePayment(c.Request.Context(), id, req.PaymentRef)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Exchange swaps returned items for new ones in one atomic ledger batch.
func (h *OrdersHandler) Exchange(c *gin.Context) {
	var req dto.ExchangeRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.ProcessExchange(c.Request.Context(), middleware.ActorID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}
