package service

import (
	"context"
	"fmt"

	"tallypos/internal/apierror"
	"tallypos/internal/dto"
	"tallypos/internal/model"
	"tallypos/internal/repository"
	"tallypos/internal/worker"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderService orchestrates POS order creation, reversal and product
// exchange. Each public operation is one logical business event and calls the
// coordinator once; the ledger batch and the order rows commit or roll back
// together.
type OrderService interface {
	CreatePOSOrder(ctx context.Context, actorID *uuid.UUID, req dto.CreateOrderRequest) (*dto.OrderResponse, error)
	// DeletePOSOrder reverses a POS order: one inbound POSCancel entry per
	// item mirroring the sale quantity, a compensating credit entry when the
	// order was paid on credit, then the order and its items are removed —
	// all in one transaction.
	DeletePOSOrder(ctx context.Context, orderID uuid.UUID, actorID *uuid.UUID) error
	// ConfirmOnlinePayment settles a pending-online order after the gateway
	// confirms the payment reference server-side. Calling it again on an
	// already-paid order returns the order unchanged.
	ConfirmOnlinePayment(ctx context.Context, orderID uuid.UUID, paymentRef string) (*dto.OrderResponse, error)
	ProcessExchange(ctx context.Context, actorID *uuid.UUID, req dto.ExchangeRequest) (*dto.ExchangeResponse, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*dto.OrderResponse, error)
	ListOrders(ctx context.Context, filter dto.OrderFilter) (*dto.OrderListResponse, error)
}

type orderService struct {
	orders     repository.OrderRepository
	customers  repository.CustomerRepository
	products   repository.ProductRepository
	ledger     LedgerService
	gateway    PaymentGateway
	dispatcher *worker.Dispatcher
}

func NewOrderService(
	orders repository.OrderRepository,
	customers repository.CustomerRepository,
	products repository.ProductRepository,
	ledger LedgerService,
	gateway PaymentGateway,
	dispatcher *worker.Dispatcher,
) OrderService {
	return &orderService{
		orders:     orders,
		customers:  customers,
		products:   products,
		ledger:     ledger,
		gateway:    gateway,
		dispatcher: dispatcher,
	}
}

// resolvedItem carries the catalog snapshot taken at sale time. The snapshot
// is copied onto the order item so later catalog edits cannot rewrite history.
type resolvedItem struct {
	productID   uuid.UUID
	variationID *uuid.UUID
	snapshot    model.CatalogSnapshot
	quantity    int
	subtotal    decimal.Decimal
}

func (s *orderService) resolveItems(ctx context.Context, items []dto.OrderItemRequest) ([]resolvedItem, decimal.Decimal, error) {
	resolved := make([]resolvedItem, 0, len(items))
	total := decimal.Zero
	for _, item := range items {
		pid, err := uuid.Parse(item.ProductID)
		if err != nil {
			return nil, decimal.Zero, apierror.Validation("invalid product_id " + item.ProductID)
		}
		var vid *uuid.UUID
		if item.VariationID != nil {
			v, err := uuid.Parse(*item.VariationID)
			if err != nil {
				return nil, decimal.Zero, apierror.Validation("invalid variation_id " + *item.VariationID)
			}
			vid = &v
		}
		if item.Quantity <= 0 {
			return nil, decimal.Zero, apierror.Validation("quantity must be positive")
		}
		snap, err := s.products.Snapshot(ctx, pid, vid)
		if err != nil {
			return nil, decimal.Zero, err
		}
		lineSubtotal := snap.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(lineSubtotal)
		resolved = append(resolved, resolvedItem{
			productID:   pid,
			variationID: vid,
			snapshot:    *snap,
			quantity:    item.Quantity,
			subtotal:    lineSubtotal,
		})
	}
	return resolved, total, nil
}

// resolveCustomer returns the explicit customer, or synthesizes the walk-in
// counter customer for anonymous cash/online sales.
func (s *orderService) resolveCustomer(ctx context.Context, customerID *string) (*model.CustomerAccount, error) {
	if customerID != nil && *customerID != "" {
		id, err := uuid.Parse(*customerID)
		if err != nil {
			return nil, apierror.Validation("invalid customer_id")
		}
		return s.customers.FindByID(ctx, id)
	}

	if walkIn, err := s.customers.FindWalkIn(ctx); err == nil {
		return walkIn, nil
	}
	walkIn := &model.CustomerAccount{
		Name:          "Walk-in customer",
		WalkIn:        true,
		CreditBalance: decimal.Zero,
	}
	if err := s.customers.Create(ctx, walkIn); err != nil {
		// Two terminals can both miss the read and race the insert; the
		// unique index lets one through. The loser adopts the winner's row
		// instead of failing the sale.
		if apierror.KindOf(err) == apierror.KindConflict {
			return s.customers.FindWalkIn(ctx)
		}
		return nil, err
	}
	return walkIn, nil
}

func (s *orderService) CreatePOSOrder(ctx context.Context, actorID *uuid.UUID, req dto.CreateOrderRequest) (*dto.OrderResponse, error) {
	method := model.PaymentMethod(req.PaymentMethod)
	switch method {
	case model.MethodCash, model.MethodCredit, model.MethodOnline:
	default:
		return nil, apierror.Validation("unknown payment method " + req.PaymentMethod)
	}
	// Credit needs an account to owe against; the anonymous walk-in customer
	// cannot carry debt.
	if method == model.MethodCredit && (req.CustomerID == nil || *req.CustomerID == "") {
		return nil, apierror.Validation("credit orders require an explicit customer")
	}

	// Pre-flight resolution outside the transaction: unknown products and bad
	// input fail here with zero mutation. Stock checks happen inside the
	// transaction, under row locks.
	customer, err := s.resolveCustomer(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}
	resolved, total, err := s.resolveItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	orderID := uuid.New()
	orderRef := orderID.String()
	ops := make([]Op, 0, len(resolved)+1)
	for _, r := range resolved {
		desc := fmt.Sprintf("sale %s x%d", r.snapshot.SKU, r.quantity)
		ops = append(ops, SaleOp(r.productID, r.variationID, r.quantity, model.KindOrder, desc, &orderRef, actorID))
	}
	if method == model.MethodCredit {
		ops = append(ops, OrderDebtOp(customer.ID, total, orderRef, actorID))
	}

	paymentStatus := model.PaymentPaid
	switch method {
	case model.MethodCredit:
		paymentStatus = model.PaymentPendingCredit
	case model.MethodOnline:
		paymentStatus = model.PaymentPendingOnline
	}

	var order model.Order
	var entries []model.LedgerEntry
	txErr := runTx(ctx, s.orders.DB(), func(tx *gorm.DB) error {
		// Ledger batch first: if any leg fails (stock underflow, missing row,
		// conflict) nothing exists yet — no half-created order to clean up.
		var err error
		entries, err = s.ledger.ApplyBatchTx(ctx, tx, ops)
		if err != nil {
			return err
		}

		number, err := s.orders.NextNumber(ctx, tx)
		if err != nil {
			return err
		}

		order = model.Order{
			ID:            orderID,
			Number:        number,
			CustomerID:    customer.ID,
			Status:        model.OrderFinalized,
			PaymentStatus: paymentStatus,
			PaymentMethod: method,
			Subtotal:      total,
			Total:         total,
			POS:           true,
		}
		for _, r := range resolved {
			order.Items = append(order.Items, model.OrderItem{
				OrderID:     orderID,
				ProductID:   r.productID,
				VariationID: r.variationID,
				ProductName: r.snapshot.Name,
				SKU:         r.snapshot.SKU,
				Image:       r.snapshot.Image,
				UnitPrice:   r.snapshot.Price,
				Quantity:    r.quantity,
				Subtotal:    r.subtotal,
			})
		}
		return s.orders.CreateTx(tx, &order)
	})
	if txErr != nil {
		return nil, txErr
	}

	s.ledger.PublishStockEvents(ctx, entries)

	// Receipt pipeline is best-effort — fire & forget, outside the
	// consistency boundary.
	if s.dispatcher != nil {
		payload := worker.ReceiptJobPayload{OrderID: orderID.String()}
		if req.CustomerEmail != nil {
			payload.Email = *req.CustomerEmail
		} else if customer.Email != nil {
			payload.Email = *customer.Email
		}
		_ = s.dispatcher.EnqueueReceipt(ctx, payload)
	}

	return orderToResponse(&order), nil
}

func (s *orderService) DeletePOSOrder(ctx context.Context, orderID uuid.UUID, actorID *uuid.UUID) error {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	if !order.POS {
		return apierror.Validation("only POS orders can be reversed")
	}
	if !order.Status.CanTransition(model.OrderCancelled) {
		return apierror.Validation(fmt.Sprintf("order in status %q cannot be cancelled", order.Status))
	}

	orderRef := order.ID.String()
	ops := make([]Op, 0, len(order.Items)+1)
	for _, item := range order.Items {
		desc := fmt.Sprintf("cancel %s x%d", item.SKU, item.Quantity)
		ops = append(ops, RestockOp(item.ProductID, item.VariationID, item.Quantity, model.KindPOSCancel, desc, &orderRef, actorID))
	}
	if order.PaymentMethod == model.MethodCredit {
		ops = append(ops, OrderDebtReversalOp(order.CustomerID, order.Total, orderRef, actorID))
	}

	var entries []model.LedgerEntry
	txErr := runTx(ctx, s.orders.DB(), func(tx *gorm.DB) error {
		var err error
		entries, err = s.ledger.ApplyBatchTx(ctx, tx, ops)
		if err != nil {
			return err
		}
		return s.orders.DeleteTx(tx, order.ID)
	})
	if txErr != nil {
		return txErr
	}

	s.ledger.PublishStockEvents(ctx, entries)
	return nil
}

func (s *orderService) ConfirmOnlinePayment(ctx context.Context, orderID uuid.UUID, paymentRef string) (*dto.OrderResponse, error) {
	if paymentRef == "" {
		return nil, apierror.Validation("payment_ref is required")
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus == model.PaymentPaid {
		return orderToResponse(order), nil
	}
	if order.PaymentStatus != model.PaymentPendingOnline {
		return nil, apierror.Validation("order is not awaiting an online payment")
	}

	// Server-side confirmation, same trust boundary as credit payments:
	// the client's claim of success is never enough to settle the order.
	confirmed, err := s.gateway.Verify(ctx, paymentRef)
	if err != nil {
		return nil, apierror.Wrap(apierror.KindGateway, "payment gateway verification failed", err)
	}
	if !confirmed {
		return nil, apierror.Gateway("payment not confirmed by gateway")
	}

	txErr := runTx(ctx, s.orders.DB(), func(tx *gorm.DB) error {
		return s.orders.UpdateStatusTx(tx, order.ID, order.Status, model.PaymentPaid)
	})
	if txErr != nil {
		return nil, txErr
	}
	order.PaymentStatus = model.PaymentPaid
	return orderToResponse(order), nil
}

func (s *orderService) ProcessExchange(ctx context.Context, actorID *uuid.UUID, req dto.ExchangeRequest) (*dto.ExchangeResponse, error) {
	if len(req.ReturnItems) == 0 && len(req.NewItems) == 0 {
		return nil, apierror.Validation("exchange requires at least one item")
	}

	returned, _, err := s.resolveItems(ctx, req.ReturnItems)
	if err != nil {
		return nil, err
	}
	sold, _, err := s.resolveItems(ctx, req.NewItems)
	if err != nil {
		return nil, err
	}

	exchangeID := uuid.New().String()
	ops := make([]Op, 0, len(returned)+len(sold))
	for _, r := range returned {
		desc := fmt.Sprintf("exchange return %s x%d", r.snapshot.SKU, r.quantity)
		if req.Reason != "" {
			desc += ": " + req.Reason
		}
		ops = append(ops, RestockOp(r.productID, r.variationID, r.quantity, model.KindExchange, desc, &exchangeID, actorID))
	}
	for _, r := range sold {
		desc := fmt.Sprintf("exchange sale %s x%d", r.snapshot.SKU, r.quantity)
		if req.Reason != "" {
			desc += ": " + req.Reason
		}
		ops = append(ops, SaleOp(r.productID, r.variationID, r.quantity, model.KindExchange, desc, &exchangeID, actorID))
	}

	// Both legs ride one batch: if any sale leg fails, the return-leg entries
	// roll back with it.
	entries, err := s.ledger.ApplyBatch(ctx, ops)
	if err != nil {
		return nil, err
	}

	items := make([]dto.LedgerEntryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, entryToResponse(&entries[i]))
	}
	return &dto.ExchangeResponse{ExchangeID: exchangeID, Entries: items}, nil
}

func (s *orderService) GetOrder(ctx context.Context, id uuid.UUID) (*dto.OrderResponse, error) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return orderToResponse(order), nil
}

func (s *orderService) ListOrders(ctx context.Context, filter dto.OrderFilter) (*dto.OrderListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	orders, total, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]dto.OrderResponse, 0, len(orders))
	for i := range orders {
		items = append(items, *orderToResponse(&orders[i]))
	}
	return &dto.OrderListResponse{Data: items, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func orderToResponse(o *model.Order) *dto.OrderResponse {
	items := make([]dto.OrderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		var vid *string
		if item.VariationID != nil {
			v := item.VariationID.String()
			vid = &v
		}
		items = append(items, dto.OrderItemResponse{
			ProductID:   item.ProductID.String(),
			VariationID: vid,
			ProductName: item.ProductName,
			SKU:         item.SKU,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
			Subtotal:    item.Subtotal,
		})
	}
	return &dto.OrderResponse{
		ID:            o.ID.String(),
		Number:        o.Number,
		CustomerID:    o.CustomerID.String(),
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		PaymentMethod: string(o.PaymentMethod),
		Subtotal:      o.Subtotal,
		Total:         o.Total,
		Items:         items,
		CreatedAt:     o.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
