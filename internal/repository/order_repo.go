package repository

import (
	"context"

	"tallypos/internal/dto"
	"tallypos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrderRepository interface {
	// CreateTx persists the order shell with its items inside the finalization
	// transaction.
	CreateTx(tx *gorm.DB, o *model.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	List(ctx context.Context, filter dto.OrderFilter) ([]model.Order, int64, error)
	UpdateStatusTx(tx *gorm.DB, id uuid.UUID, status model.OrderStatus, payment model.PaymentStatus) error
	// DeleteTx removes the order and its items. Only called by the reversal
	// workflow after the compensating ledger batch succeeded in the same tx.
	DeleteTx(tx *gorm.DB, id uuid.UUID) error
	// NextNumber draws the next receipt number from a Postgres sequence so
	// concurrent terminals never collide.
	NextNumber(ctx context.Context, tx *gorm.DB) (int, error)

	DB() *gorm.DB
}

type orderRepo struct{ db *gorm.DB }

func NewOrderRepository(db *gorm.DB) OrderRepository { return &orderRepo{db: db} }

func (r *orderRepo) DB() *gorm.DB { return r.db }

func (r *orderRepo) CreateTx(tx *gorm.DB, o *model.Order) error {
	return tx.Create(o).Error
}

func (r *orderRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).Preload("Items").Preload("Customer").First(&o, "id = ?", id).Error
	if err != nil {
		return nil, Classify(err, "order not found")
	}
	return &o, nil
}

func (r *orderRepo) List(ctx context.Context, filter dto.OrderFilter) ([]model.Order, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Order{})

	if filter.Status != "" && filter.Status != "all" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Date != "" {
		q = q.Where("DATE(created_at) = ?", filter.Date)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}
	var orders []model.Order
	err := q.Preload("Items").
		Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&orders).Error
	return orders, total, err
}

func (r *orderRepo) UpdateStatusTx(tx *gorm.DB, id uuid.UUID, status model.OrderStatus, payment model.PaymentStatus) error {
	return tx.Model(&model.Order{}).Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "payment_status": payment}).Error
}

func (r *orderRepo) DeleteTx(tx *gorm.DB, id uuid.UUID) error {
	if err := tx.Where("order_id = ?", id).Delete(&model.OrderItem{}).Error; err != nil {
		return err
	}
	return tx.Delete(&model.Order{}, "id = ?", id).Error
}

func (r *orderRepo) NextNumber(ctx context.Context, tx *gorm.DB) (int, error) {
	var num int
	err := tx.WithContext(ctx).Raw("SELECT nextval('orders_number_seq')").Scan(&num).Error
	return num, err
}
