package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CustomerAccount pairs a customer identity with its credit aggregate.
// CreditBalance is mutated only through the transaction coordinator and always
// equals the latest credit-ledger BalanceAfter for this customer (or 0 when the
// ledger is empty). Positive balance = the customer owes the store.
// An account is never deleted while ledger entries for it exist.
type CustomerAccount struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name          string    `gorm:"index;not null"`
	Phone         string    `gorm:"index"`
	Email         *string
	CreditBalance decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	// WalkIn marks the synthesized counter customer used for anonymous POS sales.
	WalkIn    bool `gorm:"not null;default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (CustomerAccount) TableName() string { return "customer_accounts" }
