package service

// stubs_test.go — in-memory repository stubs shared by the service tests.
// DB() returns nil so the coordinator runs its unit of work without a real
// transaction; the batch-or-nothing behavior is preserved because nothing is
// written until every operation in the batch has been computed.

import (
	"context"
	"time"

	"tallypos/internal/apierror"
	"tallypos/internal/dto"
	"tallypos/internal/model"
	"tallypos/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── Customer repository stub ──────────────────────────────────────────────────

type stubCustomerRepo struct {
	customers map[uuid.UUID]*model.CustomerAccount
}

func newStubCustomerRepo() *stubCustomerRepo {
	return &stubCustomerRepo{customers: make(map[uuid.UUID]*model.CustomerAccount)}
}

func (r *stubCustomerRepo) add(c *model.CustomerAccount) *model.CustomerAccount {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	r.customers[c.ID] = c
	return c
}

func (r *stubCustomerRepo) Create(_ context.Context, c *model.CustomerAccount) error {
	if c.WalkIn {
		// Mirrors the partial unique index on walk-in rows.
		for _, existing := range r.customers {
			if existing.WalkIn {
				return apierror.Conflict("duplicate record: uq_customer_walk_in")
			}
		}
	}
	r.add(c)
	return nil
}

func (r *stubCustomerRepo) FindByID(_ context.Context, id uuid.UUID) (*model.CustomerAccount, error) {
	c, ok := r.customers[id]
	if !ok {
		return nil, apierror.NotFound("customer not found")
	}
	cp := *c
	return &cp, nil
}

func (r *stubCustomerRepo) List(_ context.Context, _, _ int) ([]model.CustomerAccount, int64, error) {
	out := make([]model.CustomerAccount, 0, len(r.customers))
	for _, c := range r.customers {
		out = append(out, *c)
	}
	return out, int64(len(out)), nil
}

func (r *stubCustomerRepo) FindWalkIn(_ context.Context) (*model.CustomerAccount, error) {
	for _, c := range r.customers {
		if c.WalkIn {
			cp := *c
			return &cp, nil
		}
	}
	return nil, apierror.NotFound("walk-in customer not found")
}

func (r *stubCustomerRepo) FindByIDForUpdate(_ *gorm.DB, id uuid.UUID) (*model.CustomerAccount, error) {
	return r.FindByID(context.Background(), id)
}

func (r *stubCustomerRepo) UpdateBalanceTx(_ *gorm.DB, id uuid.UUID, balance decimal.Decimal) error {
	c, ok := r.customers[id]
	if !ok {
		return apierror.NotFound("customer not found")
	}
	c.CreditBalance = balance
	return nil
}

func (r *stubCustomerRepo) DB() *gorm.DB { return nil }

var _ repository.CustomerRepository = (*stubCustomerRepo)(nil)

// ── Product repository stub ───────────────────────────────────────────────────

type stubProductRepo struct {
	products   map[uuid.UUID]*model.Product
	variations map[uuid.UUID]*model.ProductVariation
}

func newStubProductRepo() *stubProductRepo {
	return &stubProductRepo{
		products:   make(map[uuid.UUID]*model.Product),
		variations: make(map[uuid.UUID]*model.ProductVariation),
	}
}

func (r *stubProductRepo) add(p *model.Product) *model.Product {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.products[p.ID] = p
	return p
}

func (r *stubProductRepo) addVariation(v *model.ProductVariation) *model.ProductVariation {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	r.variations[v.ID] = v
	return v
}

func (r *stubProductRepo) Create(_ context.Context, p *model.Product) error {
	r.add(p)
	return nil
}

func (r *stubProductRepo) CreateVariation(_ context.Context, v *model.ProductVariation) error {
	r.addVariation(v)
	return nil
}

func (r *stubProductRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, apierror.NotFound("product not found")
	}
	cp := *p
	return &cp, nil
}

func (r *stubProductRepo) FindVariationByID(_ context.Context, id uuid.UUID) (*model.ProductVariation, error) {
	v, ok := r.variations[id]
	if !ok {
		return nil, apierror.NotFound("product variation not found")
	}
	cp := *v
	return &cp, nil
}

func (r *stubProductRepo) Snapshot(_ context.Context, productID uuid.UUID, variationID *uuid.UUID) (*model.CatalogSnapshot, error) {
	p, ok := r.products[productID]
	if !ok {
		return nil, apierror.NotFound("product not found")
	}
	snap := &model.CatalogSnapshot{Name: p.Name, SKU: p.SKU, Image: p.Image, Price: p.Price}
	if variationID == nil {
		return snap, nil
	}
	v, ok := r.variations[*variationID]
	if !ok || v.ProductID != productID {
		return nil, apierror.NotFound("product variation not found")
	}
	snap.Name = p.Name + " — " + v.Name
	snap.SKU = v.SKU
	if v.Price != nil {
		snap.Price = *v.Price
	}
	return snap, nil
}

func (r *stubProductRepo) LowStock(_ context.Context) ([]model.Product, []model.ProductVariation, error) {
	var products []model.Product
	for _, p := range r.products {
		if p.Active && p.Stock <= p.MinStock {
			products = append(products, *p)
		}
	}
	var variations []model.ProductVariation
	for _, v := range r.variations {
		if v.Stock <= v.MinStock {
			cp := *v
			if parent, ok := r.products[v.ProductID]; ok {
				pc := *parent
				cp.Product = &pc
			}
			variations = append(variations, cp)
		}
	}
	return products, variations, nil
}

func (r *stubProductRepo) FindByIDForUpdate(_ *gorm.DB, id uuid.UUID) (*model.Product, error) {
	return r.FindByID(context.Background(), id)
}

func (r *stubProductRepo) FindVariationForUpdate(_ *gorm.DB, id uuid.UUID) (*model.ProductVariation, error) {
	return r.FindVariationByID(context.Background(), id)
}

func (r *stubProductRepo) HasVariationsTx(_ *gorm.DB, productID uuid.UUID) (bool, error) {
	for _, v := range r.variations {
		if v.ProductID == productID {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubProductRepo) UpdateStockTx(_ *gorm.DB, id uuid.UUID, stock int) error {
	p, ok := r.products[id]
	if !ok {
		return apierror.NotFound("product not found")
	}
	p.Stock = stock
	return nil
}

func (r *stubProductRepo) UpdateVariationStockTx(_ *gorm.DB, id uuid.UUID, stock int) error {
	v, ok := r.variations[id]
	if !ok {
		return apierror.NotFound("product variation not found")
	}
	v.Stock = stock
	return nil
}

func (r *stubProductRepo) DB() *gorm.DB { return nil }

var _ repository.ProductRepository = (*stubProductRepo)(nil)

// ── Ledger repository stub ────────────────────────────────────────────────────

type stubLedgerRepo struct {
	entries []model.LedgerEntry
}

func newStubLedgerRepo() *stubLedgerRepo { return &stubLedgerRepo{} }

func (r *stubLedgerRepo) AppendTx(_ *gorm.DB, e *model.LedgerEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	r.entries = append(r.entries, *e)
	return nil
}

func (r *stubLedgerRepo) bySubject(s model.Subject) []model.LedgerEntry {
	var out []model.LedgerEntry
	for _, e := range r.entries {
		if e.Subject().Key() == s.Key() {
			out = append(out, e)
		}
	}
	return out
}

func (r *stubLedgerRepo) ListBySubject(_ context.Context, s model.Subject, _, _ int) ([]model.LedgerEntry, int64, error) {
	matched := r.bySubject(s)
	// Newest first, like the real store.
	out := make([]model.LedgerEntry, len(matched))
	for i := range matched {
		out[len(matched)-1-i] = matched[i]
	}
	return out, int64(len(out)), nil
}

func (r *stubLedgerRepo) FindPaymentByReference(_ context.Context, customerID uuid.UUID, ref string) (*model.LedgerEntry, error) {
	for i := range r.entries {
		e := &r.entries[i]
		if e.Kind == model.KindPayment && e.CustomerID != nil && *e.CustomerID == customerID &&
			e.ReferenceID != nil && *e.ReferenceID == ref {
			cp := *e
			return &cp, nil
		}
	}
	return nil, apierror.NotFound("payment entry not found")
}

func (r *stubLedgerRepo) SumDeltaBySubject(_ context.Context, s model.Subject) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, e := range r.bySubject(s) {
		sum = sum.Add(e.Delta)
	}
	return sum, nil
}

func (r *stubLedgerRepo) DB() *gorm.DB { return nil }

var _ repository.LedgerRepository = (*stubLedgerRepo)(nil)

// ── Order repository stub ─────────────────────────────────────────────────────

type stubOrderRepo struct {
	orders    map[uuid.UUID]*model.Order
	numberSeq int
}

func newStubOrderRepo() *stubOrderRepo {
	return &stubOrderRepo{orders: make(map[uuid.UUID]*model.Order), numberSeq: 1000}
}

func (r *stubOrderRepo) CreateTx(_ *gorm.DB, o *model.Order) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *stubOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, apierror.NotFound("order not found")
	}
	cp := *o
	return &cp, nil
}

func (r *stubOrderRepo) List(_ context.Context, filter dto.OrderFilter) ([]model.Order, int64, error) {
	var out []model.Order
	for _, o := range r.orders {
		if filter.Status != "" && filter.Status != "all" && string(o.Status) != filter.Status {
			continue
		}
		out = append(out, *o)
	}
	return out, int64(len(out)), nil
}

func (r *stubOrderRepo) UpdateStatusTx(_ *gorm.DB, id uuid.UUID, status model.OrderStatus, payment model.PaymentStatus) error {
	o, ok := r.orders[id]
	if !ok {
		return apierror.NotFound("order not found")
	}
	o.Status = status
	o.PaymentStatus = payment
	return nil
}

func (r *stubOrderRepo) DeleteTx(_ *gorm.DB, id uuid.UUID) error {
	delete(r.orders, id)
	return nil
}

func (r *stubOrderRepo) NextNumber(_ context.Context, _ *gorm.DB) (int, error) {
	r.numberSeq++
	return r.numberSeq, nil
}

func (r *stubOrderRepo) DB() *gorm.DB { return nil }

var _ repository.OrderRepository = (*stubOrderRepo)(nil)

// ── Payment gateway stub ──────────────────────────────────────────────────────

type stubGateway struct {
	initiateID  string
	initiateErr error
	confirmed   bool
	verifyErr   error
	verifyCalls int
}

func (g *stubGateway) Initiate(_ context.Context, _ decimal.Decimal, _ string) (string, error) {
	if g.initiateErr != nil {
		return "", g.initiateErr
	}
	return g.initiateID, nil
}

func (g *stubGateway) Verify(_ context.Context, _ string) (bool, error) {
	g.verifyCalls++
	if g.verifyErr != nil {
		return false, g.verifyErr
	}
	return g.confirmed, nil
}

var _ PaymentGateway = (*stubGateway)(nil)

// ── Event bus recorder ────────────────────────────────────────────────────────

type recorderBus struct {
	events []model.LedgerEntry
}

func (b *recorderBus) StockChanged(_ context.Context, e model.LedgerEntry) {
	b.events = append(b.events, e)
}

var _ EventBus = (*recorderBus)(nil)
