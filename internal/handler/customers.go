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

type CustomersHandler struct{ svc service.CreditService }

func NewCustomersHandler(svc service.CreditService) *CustomersHandler {
	return &CustomersHandler{svc: svc}
}

// Create registers a new customer account with a zero credit balance.
func (h *CustomersHandler) Create(c *gin.Context) {
	var req dto.CreateCustomerRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CreateCustomer(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Get returns one customer with the current credit balance.
func (h *CustomersHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid customer ID"))
		return
	}
	resp, err := h.svc.GetCustomer(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// List returns a paginated list of customer accounts.
func (h *CustomersHandler) List(c *gin.Context) {
	page, limit := pageParams(c)
	resp, err := h.svc.ListCustomers(c.Request.Context(), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Ledger returns the customer's credit ledger, newest first.
func (h *CustomersHandler) Ledger(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid customer ID"))
		return
	}
	page, limit := pageParams(c)
	resp, err := h.svc.Ledger(c.Request.Context(), id, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AddCredit grants store credit outside an order (supervisor operation).
func (h *CustomersHandler) AddCredit(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid customer ID"))
		return
	}
	var req dto.ManualCreditRequest
	if !bindAndValidate(c, &req) {
		return
	}
	entry, err := h.svc.AddManualCredit(c.Request.Context(), id, req, middleware.ActorID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, service.EntryResponse(entry))
}

// AcceptPayment records an in-person payment against the credit balance.
func (h *CustomersHandler) AcceptPayment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid customer ID"))
		return
	}
	var req dto.CashPaymentRequest
	if !bindAndValidate(c, &req) {
		return
	}
	entry, err := h.svc.AcceptPayment(c.Request.Context(), id, req, middleware.ActorID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, service.EntryResponse(entry))
}
