package service

import (
	"context"
	"sort"

	"tallypos/internal/apierror"
	"tallypos/internal/model"
	"tallypos/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Op describes one ledger mutation for the coordinator to apply.
// Delta is signed; for stock subjects it must be a whole number and the
// direction is derived from its sign.
type Op struct {
	Subject     model.Subject
	Delta       decimal.Decimal
	Kind        model.LedgerKind
	Description string
	ReferenceID *string
	ActorID     *uuid.UUID
}

// EventBus receives stock-change notifications after a commit. Delivery is
// best-effort and fire-and-forget; implementations must never return an error
// into the consistency path.
type EventBus interface {
	StockChanged(ctx context.Context, e model.LedgerEntry)
}

// LedgerService is the transaction coordinator: it executes a unit of work —
// read aggregates under the transaction, compute new balances, append ledger
// entries, write aggregates — as one atomic transaction. Any failure aborts
// the whole unit with zero residual mutation.
type LedgerService interface {
	// Apply executes a single op in its own transaction.
	Apply(ctx context.Context, op Op) (*model.LedgerEntry, error)
	// ApplyBatch executes every op inside one transaction spanning all touched
	// subjects; if any op fails, none is applied.
	ApplyBatch(ctx context.Context, ops []Op) ([]model.LedgerEntry, error)
	// ApplyBatchTx is the caller-owns-the-transaction variant, used when the
	// ledger batch must be atomic with other writes (order finalization,
	// reversal). The caller publishes events after its commit via
	// PublishStockEvents.
	ApplyBatchTx(ctx context.Context, tx *gorm.DB, ops []Op) ([]model.LedgerEntry, error)
	// PublishStockEvents emits best-effort stock-change notifications for the
	// stock entries in the slice. Called after the owning transaction commits.
	PublishStockEvents(ctx context.Context, entries []model.LedgerEntry)
	// Replay folds a subject's ledger from zero. The result must always equal
	// the current aggregate; exposed for audits and tests.
	Replay(ctx context.Context, s model.Subject) (decimal.Decimal, error)
}

type ledgerService struct {
	customers repository.CustomerRepository
	products  repository.ProductRepository
	ledger    repository.LedgerRepository
	bus       EventBus
}

// NewLedgerService wires the coordinator with explicit store handles — no
// ambient DB, no process-wide singletons. bus may be nil.
func NewLedgerService(
	customers repository.CustomerRepository,
	products repository.ProductRepository,
	ledger repository.LedgerRepository,
	bus EventBus,
) LedgerService {
	return &ledgerService{customers: customers, products: products, ledger: ledger, bus: bus}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

func (s *ledgerService) Apply(ctx context.Context, op Op) (*model.LedgerEntry, error) {
	entries, err := s.ApplyBatch(ctx, []Op{op})
	if err != nil {
		return nil, err
	}
	return &entries[0], nil
}

func (s *ledgerService) ApplyBatch(ctx context.Context, ops []Op) ([]model.LedgerEntry, error) {
	var entries []model.LedgerEntry
	err := runTx(ctx, s.ledger.DB(), func(tx *gorm.DB) error {
		var txErr error
		entries, txErr = s.ApplyBatchTx(ctx, tx, ops)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	s.PublishStockEvents(ctx, entries)
	return entries, nil
}

// balanceSheet tracks the running value of every aggregate touched by a batch.
// Reads happen once per aggregate, under row locks, inside the transaction.
type balanceSheet struct {
	customers  map[uuid.UUID]decimal.Decimal
	products   map[uuid.UUID]int
	variations map[uuid.UUID]int
}

func (s *ledgerService) ApplyBatchTx(ctx context.Context, tx *gorm.DB, ops []Op) ([]model.LedgerEntry, error) {
	if len(ops) == 0 {
		return nil, apierror.Validation("empty operation batch")
	}
	for i := range ops {
		if err := validateOp(&ops[i]); err != nil {
			return nil, err
		}
	}

	sheet, err := s.loadAggregates(tx, ops)
	if err != nil {
		return nil, err
	}

	// First pass: walk ops in input order, advancing each subject's running
	// balance and building the entry chain. Nothing is written until every op
	// has passed, so a failing op leaves zero mutations behind.
	entries := make([]model.LedgerEntry, 0, len(ops))
	for i := range ops {
		entry, err := applyToSheet(sheet, &ops[i])
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}

	// Second pass: append entries, then write each aggregate once at its final
	// value.
	for i := range entries {
		if err := s.ledger.AppendTx(tx, &entries[i]); err != nil {
			return nil, err
		}
	}
	for id, balance := range sheet.customers {
		if err := s.customers.UpdateBalanceTx(tx, id, balance); err != nil {
			return nil, err
		}
	}
	for id, stock := range sheet.products {
		if err := s.products.UpdateStockTx(tx, id, stock); err != nil {
			return nil, err
		}
	}
	for id, stock := range sheet.variations {
		if err := s.products.UpdateVariationStockTx(tx, id, stock); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

func validateOp(op *Op) error {
	if op.Delta.IsZero() {
		return apierror.Validation("ledger delta must be non-zero")
	}
	if op.Kind == "" {
		return apierror.Validation("ledger kind is required")
	}
	switch op.Subject.Type {
	case model.SubjectCustomer:
		if op.Subject.CustomerID == uuid.Nil {
			return apierror.Validation("customer subject requires a customer id")
		}
	case model.SubjectProductVariation:
		if op.Subject.ProductID == uuid.Nil {
			return apierror.Validation("stock subject requires a product id")
		}
		if !op.Delta.IsInteger() {
			return apierror.Validation("stock delta must be a whole number")
		}
	default:
		return apierror.Validation("unknown ledger subject type")
	}
	return nil
}

// loadAggregates locks and reads every aggregate the batch touches. Lock
// order is deterministic (customers, then products, then variations, each
// sorted by id) so concurrent batches over the same subjects cannot deadlock.
// A variation subject locks its parent product too: both move together.
//
// Base-level ops are refused on products that carry variations: variation
// entries move the product aggregate under their own subjects, so a base
// entry chaining on that aggregate could not be replayed from the
// base-subject ledger alone.
func (s *ledgerService) loadAggregates(tx *gorm.DB, ops []Op) (*balanceSheet, error) {
	customerIDs := map[uuid.UUID]struct{}{}
	productIDs := map[uuid.UUID]struct{}{}
	variationIDs := map[uuid.UUID]struct{}{}
	baseProductIDs := map[uuid.UUID]struct{}{}

	for i := range ops {
		sub := ops[i].Subject
		switch sub.Type {
		case model.SubjectCustomer:
			customerIDs[sub.CustomerID] = struct{}{}
		case model.SubjectProductVariation:
			productIDs[sub.ProductID] = struct{}{}
			if sub.VariationID != nil {
				variationIDs[*sub.VariationID] = struct{}{}
			} else {
				baseProductIDs[sub.ProductID] = struct{}{}
			}
		}
	}

	sheet := &balanceSheet{
		customers:  make(map[uuid.UUID]decimal.Decimal, len(customerIDs)),
		products:   make(map[uuid.UUID]int, len(productIDs)),
		variations: make(map[uuid.UUID]int, len(variationIDs)),
	}

	for _, id := range sortedIDs(customerIDs) {
		c, err := s.customers.FindByIDForUpdate(tx, id)
		if err != nil {
			return nil, err
		}
		sheet.customers[id] = c.CreditBalance
	}
	for _, id := range sortedIDs(productIDs) {
		p, err := s.products.FindByIDForUpdate(tx, id)
		if err != nil {
			return nil, err
		}
		if _, base := baseProductIDs[id]; base {
			has, err := s.products.HasVariationsTx(tx, id)
			if err != nil {
				return nil, err
			}
			if has {
				return nil, apierror.Validation("product " + id.String() + " tracks stock per variation; a variation id is required")
			}
		}
		sheet.products[id] = p.Stock
	}
	for _, id := range sortedIDs(variationIDs) {
		v, err := s.products.FindVariationForUpdate(tx, id)
		if err != nil {
			return nil, err
		}
		sheet.variations[id] = v.Stock
	}
	return sheet, nil
}

func sortedIDs(set map[uuid.UUID]struct{}) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// applyToSheet advances the running balances for one op and returns its ledger
// entry. Underflow policy: a stock decrement below zero is rejected with
// InsufficientStock — never clamped.
func applyToSheet(sheet *balanceSheet, op *Op) (*model.LedgerEntry, error) {
	entry := &model.LedgerEntry{
		SubjectType: op.Subject.Type,
		Kind:        op.Kind,
		Delta:       op.Delta,
		Description: op.Description,
		ReferenceID: op.ReferenceID,
		ActorID:     op.ActorID,
	}

	switch op.Subject.Type {
	case model.SubjectCustomer:
		id := op.Subject.CustomerID
		next := sheet.customers[id].Add(op.Delta)
		sheet.customers[id] = next
		entry.CustomerID = &id
		entry.BalanceAfter = next

	case model.SubjectProductVariation:
		qty := int(op.Delta.IntPart())
		dir := model.DirectionIn
		if qty < 0 {
			dir = model.DirectionOut
		}
		entry.Direction = &dir
		pid := op.Subject.ProductID
		entry.ProductID = &pid

		nextProduct := sheet.products[pid] + qty
		if nextProduct < 0 {
			return nil, apierror.InsufficientStock("insufficient stock for product " + pid.String())
		}
		sheet.products[pid] = nextProduct
		entry.BalanceAfter = decimal.NewFromInt(int64(nextProduct))

		if op.Subject.VariationID != nil {
			vid := *op.Subject.VariationID
			nextVar := sheet.variations[vid] + qty
			if nextVar < 0 {
				return nil, apierror.InsufficientStock("insufficient stock for variation " + vid.String())
			}
			sheet.variations[vid] = nextVar
			entry.VariationID = &vid
			// The entry chains on the variation's own balance; the product
			// aggregate moves with it in the same transaction.
			entry.BalanceAfter = decimal.NewFromInt(int64(nextVar))
		}
	}
	return entry, nil
}

func (s *ledgerService) PublishStockEvents(ctx context.Context, entries []model.LedgerEntry) {
	if s.bus == nil {
		return
	}
	for i := range entries {
		if entries[i].SubjectType == model.SubjectProductVariation {
			s.bus.StockChanged(ctx, entries[i])
		}
	}
}

func (s *ledgerService) Replay(ctx context.Context, sub model.Subject) (decimal.Decimal, error) {
	return s.ledger.SumDeltaBySubject(ctx, sub)
}
