package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SubjectType discriminates the tagged subject of a ledger entry.
type SubjectType string

const (
	SubjectCustomer         SubjectType = "customer"
	SubjectProductVariation SubjectType = "product_variation"
)

// LedgerKind identifies the business event that produced an entry.
type LedgerKind string

const (
	KindOrder     LedgerKind = "order"
	KindPayment   LedgerKind = "payment"
	KindManual    LedgerKind = "manual"
	KindReturn    LedgerKind = "return"
	KindRestock   LedgerKind = "restock"
	KindExchange  LedgerKind = "exchange"
	KindPOSCancel LedgerKind = "pos_cancel"
)

// StockDirection marks stock-ledger entries as inbound or outbound.
// Credit-ledger entries carry no direction.
type StockDirection string

const (
	DirectionIn  StockDirection = "in"
	DirectionOut StockDirection = "out"
)

// Subject identifies which aggregate a ledger entry belongs to. It is a tagged
// variant: exactly one of the two shapes is populated, discriminated by Type.
// Consumers must switch on Type exhaustively — never inspect the id fields blind.
type Subject struct {
	Type        SubjectType
	CustomerID  uuid.UUID  // valid when Type == SubjectCustomer
	ProductID   uuid.UUID  // valid when Type == SubjectProductVariation
	VariationID *uuid.UUID // nil = base product stock
}

// CustomerSubject tags a credit-ledger subject.
func CustomerSubject(id uuid.UUID) Subject {
	return Subject{Type: SubjectCustomer, CustomerID: id}
}

// ProductSubject tags a base-product stock subject.
func ProductSubject(productID uuid.UUID) Subject {
	return Subject{Type: SubjectProductVariation, ProductID: productID}
}

// VariationSubject tags a variation-level stock subject. The coordinator updates
// the variation stock and the parent product aggregate stock together.
func VariationSubject(productID, variationID uuid.UUID) Subject {
	v := variationID
	return Subject{Type: SubjectProductVariation, ProductID: productID, VariationID: &v}
}

// Key returns a stable identity string for grouping and lock ordering.
func (s Subject) Key() string {
	switch s.Type {
	case SubjectCustomer:
		return "customer:" + s.CustomerID.String()
	case SubjectProductVariation:
		if s.VariationID != nil {
			return fmt.Sprintf("stock:%s:%s", s.ProductID, *s.VariationID)
		}
		return "stock:" + s.ProductID.String()
	default:
		return "unknown:" + string(s.Type)
	}
}

// LedgerEntry is one immutable, signed balance change for a subject.
// Both logical ledgers (credit and stock) share this shape. Entries are never
// updated or deleted; corrections are new compensating entries.
//
// Invariant: for a fixed subject ordered by created_at,
// entry[i].BalanceAfter == entry[i-1].BalanceAfter + entry[i].Delta
// (0 + Delta for the first entry). The paired aggregate always equals the
// latest BalanceAfter.
type LedgerEntry struct {
	ID          uuid.UUID   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SubjectType SubjectType `gorm:"type:varchar(30);not null;index"`
	CustomerID  *uuid.UUID  `gorm:"type:uuid;index"`
	ProductID   *uuid.UUID  `gorm:"type:uuid;index"`
	VariationID *uuid.UUID  `gorm:"type:uuid;index"`
	Kind        LedgerKind  `gorm:"type:varchar(20);not null"`
	// Direction is set on stock-ledger entries only.
	Direction    *StockDirection `gorm:"type:varchar(3)"`
	Delta        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	BalanceAfter decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Description  string
	// ReferenceID links back to the order / payment / exchange that caused the
	// entry. A partial unique index on (reference_id) WHERE kind='payment'
	// enforces online-payment idempotency at the DB level.
	ReferenceID *string    `gorm:"type:varchar(80);index"`
	ActorID     *uuid.UUID `gorm:"type:uuid"`
	CreatedAt   time.Time
}

func (LedgerEntry) TableName() string { return "ledger_entries" }

// Subject reconstructs the tagged subject from the persisted columns.
func (e *LedgerEntry) Subject() Subject {
	if e.SubjectType == SubjectCustomer && e.CustomerID != nil {
		return CustomerSubject(*e.CustomerID)
	}
	if e.ProductID != nil {
		if e.VariationID != nil {
			return VariationSubject(*e.ProductID, *e.VariationID)
		}
		return ProductSubject(*e.ProductID)
	}
	return Subject{Type: e.SubjectType}
}
