package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product carries the base catalog record and the product-level stock
// aggregate. For products with variations, Stock is the sum over all
// variations and is kept in step with them by the transaction coordinator:
// a variation sale decrements both rows in the same transaction.
type Product struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SKU         string    `gorm:"uniqueIndex;not null"`
	Name        string    `gorm:"index;not null"`
	Description *string
	Image       *string
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Stock       int             `gorm:"not null;default:0"`
	MinStock    int             `gorm:"not null;default:5"`
	Active      bool            `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Variations []ProductVariation `gorm:"foreignKey:ProductID"`
}

func (Product) TableName() string { return "products" }

// ProductVariation is one SKU-level option (size/color/etc.) of a product,
// carrying its own stock aggregate. Price nil means the base product price
// applies.
type ProductVariation struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index"`
	SKU       string    `gorm:"uniqueIndex;not null"`
	Name      string    `gorm:"not null"`
	Price     *decimal.Decimal `gorm:"type:decimal(10,2)"`
	Stock     int              `gorm:"not null;default:0"`
	MinStock  int              `gorm:"not null;default:5"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Product *Product `gorm:"foreignKey:ProductID"`
}

func (ProductVariation) TableName() string { return "product_variations" }

// CatalogSnapshot is the denormalized view of a product or variation at sale
// time, copied onto order items so the historical record survives later
// catalog edits.
type CatalogSnapshot struct {
	Name  string
	SKU   string
	Image *string
	Price decimal.Decimal
}
