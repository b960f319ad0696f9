package dto

// StockAdjustRequest is a supervisor-level manual stock correction. It goes
// through the transaction coordinator like every other stock mutation — never
// a raw column update.
type StockAdjustRequest struct {
	ProductID   string  `json:"product_id" validate:"required,uuid4"`
	VariationID *string `json:"variation_id" validate:"omitempty,uuid4"`
	// Delta is signed: positive restocks, negative removes (shrinkage, damage).
	Delta  int    `json:"delta" validate:"required"`
	Reason string `json:"reason" validate:"required,max=300"`
}

type StockAlertResponse struct {
	ProductID   string  `json:"product_id"`
	VariationID *string `json:"variation_id,omitempty"`
	SKU         string  `json:"sku"`
	Name        string  `json:"name"`
	Stock       int     `json:"stock"`
	MinStock    int     `json:"min_stock"`
}

type StockLedgerFilter struct {
	VariationID string `form:"variation_id"`
	Page        int    `form:"page"`
	Limit       int    `form:"limit"`
}
