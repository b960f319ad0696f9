package repository

import (
	"context"

	"tallypos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LedgerRepository is the append-only store shared by the credit and stock
// ledgers. Entries are immutable once written — there is deliberately no
// Update or Delete. Corrections are new compensating entries.
type LedgerRepository interface {
	// AppendTx writes one entry inside an open coordinator transaction.
	AppendTx(tx *gorm.DB, e *model.LedgerEntry) error
	ListBySubject(ctx context.Context, s model.Subject, page, limit int) ([]model.LedgerEntry, int64, error)
	// FindPaymentByReference locates an applied online payment by its gateway
	// reference. Backs the verify-payment idempotency check; the partial
	// unique index uq_ledger_payment_ref closes the concurrent window.
	FindPaymentByReference(ctx context.Context, customerID uuid.UUID, ref string) (*model.LedgerEntry, error)
	// SumDeltaBySubject folds the subject's deltas. Used by the audit endpoint
	// and integration tests to check the replay invariant against the
	// aggregate.
	SumDeltaBySubject(ctx context.Context, s model.Subject) (decimal.Decimal, error)

	DB() *gorm.DB
}

type ledgerRepo struct{ db *gorm.DB }

func NewLedgerRepository(db *gorm.DB) LedgerRepository { return &ledgerRepo{db: db} }

func (r *ledgerRepo) DB() *gorm.DB { return r.db }

func (r *ledgerRepo) AppendTx(tx *gorm.DB, e *model.LedgerEntry) error {
	if err := tx.Create(e).Error; err != nil {
		return Classify(err, "ledger subject not found")
	}
	return nil
}

func subjectScope(q *gorm.DB, s model.Subject) *gorm.DB {
	switch s.Type {
	case model.SubjectCustomer:
		return q.Where("subject_type = ? AND customer_id = ?", model.SubjectCustomer, s.CustomerID)
	case model.SubjectProductVariation:
		q = q.Where("subject_type = ? AND product_id = ?", model.SubjectProductVariation, s.ProductID)
		if s.VariationID != nil {
			return q.Where("variation_id = ?", *s.VariationID)
		}
		return q.Where("variation_id IS NULL")
	default:
		// Unknown tag: match nothing rather than everything.
		return q.Where("1 = 0")
	}
}

func (r *ledgerRepo) ListBySubject(ctx context.Context, s model.Subject, page, limit int) ([]model.LedgerEntry, int64, error) {
	q := subjectScope(r.db.WithContext(ctx).Model(&model.LedgerEntry{}), s)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 100
	}
	var entries []model.LedgerEntry
	err := q.Order("created_at DESC, id DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&entries).Error
	return entries, total, err
}

func (r *ledgerRepo) FindPaymentByReference(ctx context.Context, customerID uuid.UUID, ref string) (*model.LedgerEntry, error) {
	var e model.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("kind = ? AND customer_id = ? AND reference_id = ?", model.KindPayment, customerID, ref).
		First(&e).Error
	if err != nil {
		return nil, Classify(err, "payment entry not found")
	}
	return &e, nil
}

func (r *ledgerRepo) SumDeltaBySubject(ctx context.Context, s model.Subject) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	q := subjectScope(r.db.WithContext(ctx).Model(&model.LedgerEntry{}), s)
	if err := q.Select("COALESCE(SUM(delta), 0)").Scan(&sum).Error; err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}
