package repository

import (
	"context"

	"tallypos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CustomerRepository is the current-state store for customer accounts and
// their credit aggregate. Services depend on this interface, not on the
// concrete GORM implementation, enabling clean unit testing via stubs.
//
// CreditBalance is only ever written through the ...Tx methods inside a
// coordinator transaction; the plain reads are for display.
type CustomerRepository interface {
	Create(ctx context.Context, c *model.CustomerAccount) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.CustomerAccount, error)
	List(ctx context.Context, page, limit int) ([]model.CustomerAccount, int64, error)
	// FindWalkIn returns the synthesized counter customer, if one exists.
	FindWalkIn(ctx context.Context) (*model.CustomerAccount, error)

	// Used inside coordinator transactions — callers must pass the tx instance.
	// FindByIDForUpdate takes a row lock so the read-modify-write on the
	// balance is isolated from concurrent terminals.
	FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*model.CustomerAccount, error)
	UpdateBalanceTx(tx *gorm.DB, id uuid.UUID, balance decimal.Decimal) error

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type customerRepo struct{ db *gorm.DB }

func NewCustomerRepository(db *gorm.DB) CustomerRepository { return &customerRepo{db: db} }

func (r *customerRepo) DB() *gorm.DB { return r.db }

func (r *customerRepo) Create(ctx context.Context, c *model.CustomerAccount) error {
	return Classify(r.db.WithContext(ctx).Create(c).Error, "customer not found")
}

func (r *customerRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.CustomerAccount, error) {
	var c model.CustomerAccount
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, Classify(err, "customer not found")
	}
	return &c, nil
}

func (r *customerRepo) List(ctx context.Context, page, limit int) ([]model.CustomerAccount, int64, error) {
	var customers []model.CustomerAccount
	var total int64

	q := r.db.WithContext(ctx).Model(&model.CustomerAccount{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := q.Order("name ASC").Limit(limit).Offset(offset).Find(&customers).Error
	return customers, total, err
}

func (r *customerRepo) FindWalkIn(ctx context.Context) (*model.CustomerAccount, error) {
	var c model.CustomerAccount
	if err := r.db.WithContext(ctx).Where("walk_in = true").First(&c).Error; err != nil {
		return nil, Classify(err, "walk-in customer not found")
	}
	return &c, nil
}

func (r *customerRepo) FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*model.CustomerAccount, error) {
	var c model.CustomerAccount
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&c, "id = ?", id).Error
	if err != nil {
		return nil, Classify(err, "customer not found")
	}
	return &c, nil
}

func (r *customerRepo) UpdateBalanceTx(tx *gorm.DB, id uuid.UUID, balance decimal.Decimal) error {
	return tx.Model(&model.CustomerAccount{}).Where("id = ?", id).
		Update("credit_balance", balance).Error
}
