package repository

import (
	"context"

	"tallypos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductRepository is the current-state store for the stock aggregates
// (product level and variation level) and the catalog snapshot source for
// denormalized order items.
type ProductRepository interface {
	Create(ctx context.Context, p *model.Product) error
	CreateVariation(ctx context.Context, v *model.ProductVariation) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindVariationByID(ctx context.Context, id uuid.UUID) (*model.ProductVariation, error)
	// Snapshot resolves the denormalized sale-time view of a product or
	// variation: name, SKU, image, effective unit price.
	Snapshot(ctx context.Context, productID uuid.UUID, variationID *uuid.UUID) (*model.CatalogSnapshot, error)
	// LowStock lists products and variations at or below their minimum level.
	LowStock(ctx context.Context) ([]model.Product, []model.ProductVariation, error)

	// Used inside coordinator transactions. The ForUpdate variants take row
	// locks; stock writes always set the absolute value computed under that
	// lock, never a relative bump that could race.
	FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*model.Product, error)
	FindVariationForUpdate(tx *gorm.DB, id uuid.UUID) (*model.ProductVariation, error)
	// HasVariationsTx reports whether any variation rows exist for the
	// product. The coordinator uses it to refuse base-level stock movements
	// on products whose stock is tracked per variation.
	HasVariationsTx(tx *gorm.DB, productID uuid.UUID) (bool, error)
	UpdateStockTx(tx *gorm.DB, id uuid.UUID, stock int) error
	UpdateVariationStockTx(tx *gorm.DB, id uuid.UUID, stock int) error

	DB() *gorm.DB
}

type productRepo struct{ db *gorm.DB }

func NewProductRepository(db *gorm.DB) ProductRepository { return &productRepo{db: db} }

func (r *productRepo) DB() *gorm.DB { return r.db }

func (r *productRepo) Create(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *productRepo) CreateVariation(ctx context.Context, v *model.ProductVariation) error {
	return r.db.WithContext(ctx).Create(v).Error
}

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	if err := r.db.WithContext(ctx).Preload("Variations").First(&p, "id = ?", id).Error; err != nil {
		return nil, Classify(err, "product not found")
	}
	return &p, nil
}

func (r *productRepo) FindVariationByID(ctx context.Context, id uuid.UUID) (*model.ProductVariation, error) {
	var v model.ProductVariation
	if err := r.db.WithContext(ctx).First(&v, "id = ?", id).Error; err != nil {
		return nil, Classify(err, "product variation not found")
	}
	return &v, nil
}

func (r *productRepo) Snapshot(ctx context.Context, productID uuid.UUID, variationID *uuid.UUID) (*model.CatalogSnapshot, error) {
	var p model.Product
	if err := r.db.WithContext(ctx).First(&p, "id = ?", productID).Error; err != nil {
		return nil, Classify(err, "product not found")
	}
	snap := &model.CatalogSnapshot{Name: p.Name, SKU: p.SKU, Image: p.Image, Price: p.Price}
	if variationID == nil {
		return snap, nil
	}

	var v model.ProductVariation
	err := r.db.WithContext(ctx).
		Where("id = ? AND product_id = ?", *variationID, productID).
		First(&v).Error
	if err != nil {
		return nil, Classify(err, "product variation not found")
	}
	snap.Name = p.Name + " — " + v.Name
	snap.SKU = v.SKU
	if v.Price != nil {
		snap.Price = *v.Price
	}
	return snap, nil
}

func (r *productRepo) LowStock(ctx context.Context) ([]model.Product, []model.ProductVariation, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).
		Where("active = true AND stock <= min_stock").
		Order("stock ASC").Find(&products).Error
	if err != nil {
		return nil, nil, err
	}
	var variations []model.ProductVariation
	err = r.db.WithContext(ctx).
		Preload("Product").
		Where("stock <= min_stock").
		Order("stock ASC").Find(&variations).Error
	return products, variations, err
}

func (r *productRepo) FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, "id = ?", id).Error
	if err != nil {
		return nil, Classify(err, "product not found")
	}
	return &p, nil
}

func (r *productRepo) FindVariationForUpdate(tx *gorm.DB, id uuid.UUID) (*model.ProductVariation, error) {
	var v model.ProductVariation
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&v, "id = ?", id).Error
	if err != nil {
		return nil, Classify(err, "product variation not found")
	}
	return &v, nil
}

func (r *productRepo) HasVariationsTx(tx *gorm.DB, productID uuid.UUID) (bool, error) {
	var count int64
	err := tx.Model(&model.ProductVariation{}).Where("product_id = ?", productID).Count(&count).Error
	return count > 0, err
}

func (r *productRepo) UpdateStockTx(tx *gorm.DB, id uuid.UUID, stock int) error {
	return tx.Model(&model.Product{}).Where("id = ?", id).Update("stock", stock).Error
}

func (r *productRepo) UpdateVariationStockTx(tx *gorm.DB, id uuid.UUID, stock int) error {
	return tx.Model(&model.ProductVariation{}).Where("id = ?", id).Update("stock", stock).Error
}
