package service

import (
	"context"

	"tallypos/internal/apierror"
	"tallypos/internal/dto"
	"tallypos/internal/model"
	"tallypos/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentGateway is the external payment provider, treated as untrusted I/O:
// the ledger never records an online payment without a server-side verified
// confirmation.
type PaymentGateway interface {
	Initiate(ctx context.Context, amount decimal.Decimal, customerRef string) (string, error)
	Verify(ctx context.Context, paymentRef string) (bool, error)
}

// CreditService owns customer accounts and every credit-ledger operation.
type CreditService interface {
	CreateCustomer(ctx context.Context, req dto.CreateCustomerRequest) (*dto.CustomerResponse, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (*dto.CustomerResponse, error)
	ListCustomers(ctx context.Context, page, limit int) (*dto.CustomerListResponse, error)

	// AddManualCredit grants credit (increases debt) outside an order.
	AddManualCredit(ctx context.Context, customerID uuid.UUID, req dto.ManualCreditRequest, actorID *uuid.UUID) (*model.LedgerEntry, error)
	// AcceptPayment records an in-person payment against the balance.
	AcceptPayment(ctx context.Context, customerID uuid.UUID, req dto.CashPaymentRequest, actorID *uuid.UUID) (*model.LedgerEntry, error)

	// InitiateOnlinePayment opens a gateway session. No ledger effect.
	InitiateOnlinePayment(ctx context.Context, req dto.OnlineInitiateRequest) (*dto.OnlineInitiateResponse, error)
	// VerifyOnlinePayment confirms the payment with the gateway server-side
	// and records it exactly once per payment reference.
	VerifyOnlinePayment(ctx context.Context, req dto.OnlineVerifyRequest, actorID *uuid.UUID) (*model.LedgerEntry, error)

	Ledger(ctx context.Context, customerID uuid.UUID, page, limit int) (*dto.LedgerListResponse, error)
}

type creditService struct {
	customers repository.CustomerRepository
	entries   repository.LedgerRepository
	ledger    LedgerService
	gateway   PaymentGateway
}

func NewCreditService(
	customers repository.CustomerRepository,
	entries repository.LedgerRepository,
	ledger LedgerService,
	gateway PaymentGateway,
) CreditService {
	return &creditService{customers: customers, entries: entries, ledger: ledger, gateway: gateway}
}

// OrderDebtOp builds the credit-ledger op that records an order's total as
// customer debt. The order workflow includes it in the finalization batch.
func OrderDebtOp(customerID uuid.UUID, total decimal.Decimal, orderRef string, actorID *uuid.UUID) Op {
	ref := orderRef
	return Op{
		Subject:     model.CustomerSubject(customerID),
		Delta:       total,
		Kind:        model.KindOrder,
		Description: "order on credit",
		ReferenceID: &ref,
		ActorID:     actorID,
	}
}

// OrderDebtReversalOp compensates a previously recorded order debt when a POS
// order is deleted. History is never edited; the reversal is a new entry.
func OrderDebtReversalOp(customerID uuid.UUID, total decimal.Decimal, orderRef string, actorID *uuid.UUID) Op {
	ref := orderRef
	return Op{
		Subject:     model.CustomerSubject(customerID),
		Delta:       total.Neg(),
		Kind:        model.KindPOSCancel,
		Description: "order on credit reversed",
		ReferenceID: &ref,
		ActorID:     actorID,
	}
}

func (s *creditService) CreateCustomer(ctx context.Context, req dto.CreateCustomerRequest) (*dto.CustomerResponse, error) {
	c := &model.CustomerAccount{
		Name:          req.Name,
		Phone:         req.Phone,
		Email:         req.Email,
		CreditBalance: decimal.Zero,
	}
	if err := s.customers.Create(ctx, c); err != nil {
		return nil, err
	}
	return customerToResponse(c), nil
}

func (s *creditService) GetCustomer(ctx context.Context, id uuid.UUID) (*dto.CustomerResponse, error) {
	c, err := s.customers.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return customerToResponse(c), nil
}

func (s *creditService) ListCustomers(ctx context.Context, page, limit int) (*dto.CustomerListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}
	customers, total, err := s.customers.List(ctx, page, limit)
	if err != nil {
		return nil, err
	}
	items := make([]dto.CustomerResponse, 0, len(customers))
	for i := range customers {
		items = append(items, *customerToResponse(&customers[i]))
	}
	return &dto.CustomerListResponse{Data: items, Total: total, Page: page, Limit: limit}, nil
}

// requireAmount rejects non-positive or non-finite amounts before any
// transaction is opened.
func requireAmount(amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return apierror.Validation("amount must be positive")
	}
	return nil
}

func (s *creditService) AddManualCredit(ctx context.Context, customerID uuid.UUID, req dto.ManualCreditRequest, actorID *uuid.UUID) (*model.LedgerEntry, error) {
	if err := requireAmount(req.Amount); err != nil {
		return nil, err
	}
	if _, err := s.customers.FindByID(ctx, customerID); err != nil {
		return nil, err
	}
	return s.ledger.Apply(ctx, Op{
		Subject:     model.CustomerSubject(customerID),
		Delta:       req.Amount,
		Kind:        model.KindManual,
		Description: req.Description,
		ActorID:     actorID,
	})
}

func (s *creditService) AcceptPayment(ctx context.Context, customerID uuid.UUID, req dto.CashPaymentRequest, actorID *uuid.UUID) (*model.LedgerEntry, error) {
	if err := requireAmount(req.Amount); err != nil {
		return nil, err
	}
	if _, err := s.customers.FindByID(ctx, customerID); err != nil {
		return nil, err
	}
	return s.ledger.Apply(ctx, Op{
		Subject:     model.CustomerSubject(customerID),
		Delta:       req.Amount.Neg(),
		Kind:        model.KindPayment,
		Description: req.Description,
		ActorID:     actorID,
	})
}

func (s *creditService) InitiateOnlinePayment(ctx context.Context, req dto.OnlineInitiateRequest) (*dto.OnlineInitiateResponse, error) {
	if err := requireAmount(req.Amount); err != nil {
		return nil, err
	}
	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		return nil, apierror.Validation("invalid customer_id")
	}
	if _, err := s.customers.FindByID(ctx, customerID); err != nil {
		return nil, err
	}

	gatewayOrderID, err := s.gateway.Initiate(ctx, req.Amount, customerID.String())
	if err != nil {
		return nil, apierror.Wrap(apierror.KindGateway, "payment gateway initiation failed", err)
	}
	return &dto.OnlineInitiateResponse{GatewayOrderID: gatewayOrderID}, nil
}

func (s *creditService) VerifyOnlinePayment(ctx context.Context, req dto.OnlineVerifyRequest, actorID *uuid.UUID) (*model.LedgerEntry, error) {
	if err := requireAmount(req.Amount); err != nil {
		return nil, err
	}
	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		return nil, apierror.Validation("invalid customer_id")
	}
	if _, err := s.customers.FindByID(ctx, customerID); err != nil {
		return nil, err
	}

	// Idempotency: a reference that was already applied returns the original
	// entry without touching the ledger again.
	if existing, err := s.entries.FindPaymentByReference(ctx, customerID, req.PaymentRef); err == nil {
		return existing, nil
	}

	// Server-side confirmation. Client-reported success is never trusted.
	confirmed, err := s.gateway.Verify(ctx, req.PaymentRef)
	if err != nil {
		return nil, apierror.Wrap(apierror.KindGateway, "payment gateway verification failed", err)
	}
	if !confirmed {
		return nil, apierror.Gateway("payment not confirmed by gateway")
	}

	ref := req.PaymentRef
	entry, err := s.ledger.Apply(ctx, Op{
		Subject:     model.CustomerSubject(customerID),
		Delta:       req.Amount.Neg(),
		Kind:        model.KindPayment,
		Description: "online payment",
		ReferenceID: &ref,
		ActorID:     actorID,
	})
	if err != nil {
		// Two verifications racing past the pre-check both reach the insert;
		// the partial unique index lets exactly one through. The loser reads
		// the winner's entry back — same outcome, applied once.
		if apierror.KindOf(err) == apierror.KindConflict {
			if existing, findErr := s.entries.FindPaymentByReference(ctx, customerID, req.PaymentRef); findErr == nil {
				return existing, nil
			}
		}
		return nil, err
	}
	return entry, nil
}

func (s *creditService) Ledger(ctx context.Context, customerID uuid.UUID, page, limit int) (*dto.LedgerListResponse, error) {
	if _, err := s.customers.FindByID(ctx, customerID); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 100
	}
	entries, total, err := s.entries.ListBySubject(ctx, model.CustomerSubject(customerID), page, limit)
	if err != nil {
		return nil, err
	}
	return entriesToListResponse(entries, total, page, limit), nil
}

// ── Mappers ──────────────────────────────────────────────────────────────────

func customerToResponse(c *model.CustomerAccount) *dto.CustomerResponse {
	return &dto.CustomerResponse{
		ID:            c.ID.String(),
		Name:          c.Name,
		Phone:         c.Phone,
		Email:         c.Email,
		CreditBalance: c.CreditBalance,
		WalkIn:        c.WalkIn,
		CreatedAt:     c.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// EntryResponse converts a ledger entry to its API shape. Handlers use it
// for operations that return the appended entry directly.
func EntryResponse(e *model.LedgerEntry) dto.LedgerEntryResponse {
	return entryToResponse(e)
}

func entryToResponse(e *model.LedgerEntry) dto.LedgerEntryResponse {
	var dir *string
	if e.Direction != nil {
		d := string(*e.Direction)
		dir = &d
	}
	return dto.LedgerEntryResponse{
		ID:           e.ID.String(),
		Kind:         string(e.Kind),
		Direction:    dir,
		Delta:        e.Delta,
		BalanceAfter: e.BalanceAfter,
		Description:  e.Description,
		ReferenceID:  e.ReferenceID,
		CreatedAt:    e.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func entriesToListResponse(entries []model.LedgerEntry, total int64, page, limit int) *dto.LedgerListResponse {
	items := make([]dto.LedgerEntryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, entryToResponse(&entries[i]))
	}
	return &dto.LedgerListResponse{Data: items, Total: total, Page: page, Limit: limit}
}
