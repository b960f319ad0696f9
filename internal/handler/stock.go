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

type StockHandler struct{ svc service.StockService }

func NewStockHandler(svc service.StockService) *StockHandler {
	return &StockHandler{svc: svc}
}

// Adjust applies a signed manual stock correction (supervisor operation).
// Positive restocks; negative removes shrinkage or damage.
func (h *StockHandler) Adjust(c *gin.Context) {
	var req dto.StockAdjustRequest
	if !bindAndValidate(c, &req) {
		return
	}
	entry, err := h.svc.Adjust(c.Request.Context(), req, middleware.ActorID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, service.EntryResponse(entry))
}

// Alerts lists products and variations at or below their minimum stock.
func (h *StockHandler) Alerts(c *gin.Context) {
	alerts, err := h.svc.Alerts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": alerts})
}

// Ledger returns a product's stock ledger, newest first. An optional
// variation_id query param scopes it to one variation.
func (h *StockHandler) Ledger(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid product ID"))
		return
	}
	var filter dto.StockLedgerFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	var variationID *uuid.UUID
	if filter.VariationID != "" {
		v, err := uuid.Parse(filter.VariationID)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("invalid variation ID"))
			return
		}
		variationID = &v
	}
	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}
	resp, err := h.svc.Ledger(c.Request.Context(), productID, variationID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
