package handler

import (
	"net/http"

	"tallypos/internal/dto"
	"tallypos/internal/middleware"
	"tallypos/internal/service"

	"github.com/gin-gonic/gin"
)

// PaymentsHandler exposes the online payment flow. The gateway response is
// never trusted client-side: Verify re-checks with the gateway server-side
// before any ledger write.
type PaymentsHandler struct{ svc service.CreditService }

func NewPaymentsHandler(svc service.CreditService) *PaymentsHandler {
	return &PaymentsHandler{svc: svc}
}

// Initiate opens a gateway payment session. No ledger effect.
func (h *PaymentsHandler) Initiate(c *gin.Context) {
	var req dto.OnlineInitiateRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.InitiateOnlinePayment(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Verify confirms a payment with the gateway and records it exactly once
// per payment reference. Replays return the original entry.
func (h *PaymentsHandler) Verify(c *gin.Context) {
	var req dto.OnlineVerifyRequest
	if !bindAndValidate(c, &req) {
		return
	}
	entry, err := h.svc.VerifyOnlinePayment(c.Request.Context(), req, middleware.ActorID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, service.EntryResponse(entry))
}
