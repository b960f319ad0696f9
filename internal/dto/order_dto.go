package dto

import "github.com/shopspring/decimal"

type OrderItemRequest struct {
	ProductID   string  `json:"product_id" validate:"required,uuid4"`
	VariationID *string `json:"variation_id" validate:"omitempty,uuid4"`
	Quantity    int     `json:"quantity" validate:"required,gt=0"`
}

type CreateOrderRequest struct {
	// CustomerID empty selects the synthesized walk-in customer. Credit orders
	// require an explicit customer.
	CustomerID    *string            `json:"customer_id" validate:"omitempty,uuid4"`
	PaymentMethod string             `json:"payment_method" validate:"required,oneof=cash credit online"`
	CustomerEmail *string            `json:"customer_email" validate:"omitempty,email"`
	Items         []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

type OrderItemResponse struct {
	ProductID   string          `json:"product_id"`
	VariationID *string         `json:"variation_id,omitempty"`
	ProductName string          `json:"product_name"`
	SKU         string          `json:"sku"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type OrderResponse struct {
	ID            string              `json:"id"`
	Number        int                 `json:"number"`
	CustomerID    string              `json:"customer_id"`
	Status        string              `json:"status"`
	PaymentStatus string              `json:"payment_status"`
	PaymentMethod string              `json:"payment_method"`
	Subtotal      decimal.Decimal     `json:"subtotal"`
	Total         decimal.Decimal     `json:"total"`
	Items         []OrderItemResponse `json:"items"`
	CreatedAt     string              `json:"created_at"`
}

// ConfirmOrderPaymentRequest carries the gateway reference for a
// pending-online order; the server verifies it before settling.
type ConfirmOrderPaymentRequest struct {
	PaymentRef string `json:"payment_ref" validate:"required,max=80"`
}

type OrderListResponse struct {
	Data  []OrderResponse `json:"data"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

type OrderFilter struct {
	Status string `form:"status"`
	Date   string `form:"date"`
	Page   int    `form:"page"`
	Limit  int    `form:"limit"`
}

// ExchangeRequest swaps returned items for newly sold ones in one atomic
// batch. Either leg may be empty, but not both.
type ExchangeRequest struct {
	ReturnItems []OrderItemRequest `json:"return_items" validate:"omitempty,dive"`
	NewItems    []OrderItemRequest `json:"new_items" validate:"omitempty,dive"`
	Reason      string             `json:"reason" validate:"max=300"`
}

type ExchangeResponse struct {
	ExchangeID string                `json:"exchange_id"`
	Entries    []LedgerEntryResponse `json:"entries"`
}
