package dto

import "github.com/shopspring/decimal"

type CreateCustomerRequest struct {
	Name  string  `json:"name" validate:"required,min=2,max=120"`
	Phone string  `json:"phone" validate:"omitempty,min=5,max=30"`
	Email *string `json:"email" validate:"omitempty,email"`
}

type CustomerResponse struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Phone         string          `json:"phone,omitempty"`
	Email         *string         `json:"email,omitempty"`
	CreditBalance decimal.Decimal `json:"credit_balance"`
	WalkIn        bool            `json:"walk_in,omitempty"`
	CreatedAt     string          `json:"created_at"`
}

type CustomerListResponse struct {
	Data  []CustomerResponse `json:"data"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}

// ManualCreditRequest grants store credit (customer debt) outside an order.
type ManualCreditRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"required,gt=0"`
	Description string          `json:"description" validate:"required,max=300"`
}

// CashPaymentRequest records an in-person payment against the credit balance.
type CashPaymentRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"required,gt=0"`
	Description string          `json:"description" validate:"max=300"`
}

type OnlineInitiateRequest struct {
	CustomerID string          `json:"customer_id" validate:"required,uuid4"`
	Amount     decimal.Decimal `json:"amount" validate:"required,gt=0"`
}

type OnlineInitiateResponse struct {
	GatewayOrderID string `json:"gateway_order_id"`
}

type OnlineVerifyRequest struct {
	CustomerID string          `json:"customer_id" validate:"required,uuid4"`
	Amount     decimal.Decimal `json:"amount" validate:"required,gt=0"`
	PaymentRef string          `json:"payment_ref" validate:"required,max=80"`
}

type LedgerEntryResponse struct {
	ID           string          `json:"id"`
	Kind         string          `json:"kind"`
	Direction    *string         `json:"direction,omitempty"`
	Delta        decimal.Decimal `json:"delta"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	Description  string          `json:"description,omitempty"`
	ReferenceID  *string         `json:"reference_id,omitempty"`
	CreatedAt    string          `json:"created_at"`
}

type LedgerListResponse struct {
	Data  []LedgerEntryResponse `json:"data"`
	Total int64                 `json:"total"`
	Page  int                   `json:"page"`
	Limit int                   `json:"limit"`
}

type PageFilter struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}
