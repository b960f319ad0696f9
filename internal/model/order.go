package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the order lifecycle state machine:
//
//	draft → items_attached → finalized → delivered | cancelled | rejected
//	delivered → returned
//
// delivered, cancelled and rejected are terminal; returned is reachable only
// from delivered via the return workflow.
type OrderStatus string

const (
	OrderDraft         OrderStatus = "draft"
	OrderItemsAttached OrderStatus = "items_attached"
	OrderFinalized     OrderStatus = "finalized"
	OrderDelivered     OrderStatus = "delivered"
	OrderCancelled     OrderStatus = "cancelled"
	OrderRejected      OrderStatus = "rejected"
	OrderReturned      OrderStatus = "returned"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderDraft:         {OrderItemsAttached},
	OrderItemsAttached: {OrderFinalized},
	OrderFinalized:     {OrderDelivered, OrderCancelled, OrderRejected},
	OrderDelivered:     {OrderReturned},
}

// CanTransition reports whether moving from s to next is a legal lifecycle step.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	for _, t := range orderTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are allowed from s.
func (s OrderStatus) Terminal() bool {
	return s == OrderCancelled || s == OrderRejected || s == OrderReturned
}

// PaymentStatus tracks how a finalized order stands financially.
type PaymentStatus string

const (
	PaymentPendingCredit PaymentStatus = "pending_credit"
	PaymentPendingOnline PaymentStatus = "pending_online"
	PaymentPaid          PaymentStatus = "paid"
)

// PaymentMethod selects how an order is settled at creation time.
type PaymentMethod string

const (
	MethodCash   PaymentMethod = "cash"
	MethodCredit PaymentMethod = "credit"
	MethodOnline PaymentMethod = "online"
)

// Order is a finalized POS sale. It owns its items: deleting an order removes
// the items and reverses their ledger effects in the same transaction.
type Order struct {
	ID            uuid.UUID     `gorm:"type:uuid;primaryKey"`
	Number        int           `gorm:"uniqueIndex;not null"`
	CustomerID    uuid.UUID     `gorm:"type:uuid;not null;index"`
	Status        OrderStatus   `gorm:"type:varchar(20);not null"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(20);not null"`
	PaymentMethod PaymentMethod `gorm:"type:varchar(10);not null"`
	Subtotal      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Total         decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	// POS marks staff-created in-person orders; only these may be reversed by
	// the POS deletion workflow.
	POS       bool `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Customer *CustomerAccount `gorm:"foreignKey:CustomerID"`
	Items    []OrderItem      `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (Order) TableName() string { return "orders" }

// OrderItem is a denormalized snapshot of the sold product at sale time.
// ProductID/VariationID are weak references kept for lookup only; the name,
// SKU, image and unit price here are authoritative for the historical record.
type OrderItem struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OrderID     uuid.UUID  `gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID  `gorm:"type:uuid;not null"`
	VariationID *uuid.UUID `gorm:"type:uuid"`
	ProductName string     `gorm:"not null"`
	SKU         string     `gorm:"not null"`
	Image       *string
	UnitPrice   decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Quantity    int             `gorm:"not null"`
	Subtotal    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreatedAt   time.Time
}

func (OrderItem) TableName() string { return "order_items" }
