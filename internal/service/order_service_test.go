package service

import (
	"context"
	"testing"

	"tallypos/internal/apierror"
	"tallypos/internal/dto"
	"tallypos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderFixture struct {
	customers *stubCustomerRepo
	products  *stubProductRepo
	entries   *stubLedgerRepo
	orders    *stubOrderRepo
	gateway   *stubGateway
	svc       OrderService
	ledger    LedgerService
}

func newOrderFixture() *orderFixture {
	customers := newStubCustomerRepo()
	products := newStubProductRepo()
	entries := newStubLedgerRepo()
	orders := newStubOrderRepo()
	gateway := &stubGateway{}
	ledger := NewLedgerService(customers, products, entries, nil)
	svc := NewOrderService(orders, customers, products, ledger, gateway, nil)
	return &orderFixture{
		customers: customers,
		products:  products,
		entries:   entries,
		orders:    orders,
		gateway:   gateway,
		svc:       svc,
		ledger:    ledger,
	}
}

func itemReq(productID uuid.UUID, qty int) dto.OrderItemRequest {
	return dto.OrderItemRequest{ProductID: productID.String(), Quantity: qty}
}

func TestCreatePOSOrderCash(t *testing.T) {
	f := newOrderFixture()
	cust := f.customers.add(&model.CustomerAccount{Name: "Ana"})
	prod := f.products.add(&model.Product{SKU: "SKU-A", Name: "Widget", Stock: 10, Price: decimal.NewFromInt(5)})

	custID := cust.ID.String()
	resp, err := f.svc.CreatePOSOrder(context.Background(), nil, dto.CreateOrderRequest{
		CustomerID:    &custID,
		PaymentMethod: "cash",
		Items:         []dto.OrderItemRequest{itemReq(prod.ID, 3)},
	})
	require.NoError(t, err)

	assert.Equal(t, string(model.OrderFinalized), resp.Status)
	assert.Equal(t, string(model.PaymentPaid), resp.PaymentStatus)
	assert.True(t, resp.Total.Equal(decimal.NewFromInt(15)))
	assert.Greater(t, resp.Number, 1000)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "SKU-A", resp.Items[0].SKU)

	// Stock moved through the ledger, not a raw update.
	assert.Equal(t, 7, f.products.products[prod.ID].Stock)
	require.Len(t, f.entries.entries, 1)
	assert.Equal(t, model.KindOrder, f.entries.entries[0].Kind)
	require.NotNil(t, f.entries.entries[0].ReferenceID)
	assert.Equal(t, resp.ID, *f.entries.entries[0].ReferenceID)

	// Cash orders leave the credit balance untouched.
	assert.True(t, f.customers.customers[cust.ID].CreditBalance.IsZero())
	assert.Len(t, f.orders.orders, 1)
}

func TestCreatePOSOrderCreditRecordsDebt(t *testing.T) {
	f := newOrderFixture()
	cust := f.customers.add(&model.CustomerAccount{Name: "Ana"})
	prod := f.products.add(&model.Product{SKU: "SKU-A", Name: "Widget", Stock: 10, Price: decimal.NewFromInt(5)})

	custID := cust.ID.String()
	resp, err := f.svc.CreatePOSOrder(context.Background(), nil, dto.CreateOrderRequest{
		CustomerID:    &custID,
		PaymentMethod: "credit",
		Items:         []dto.OrderItemRequest{itemReq(prod.ID, 2)},
	})
	require.NoError(t, err)
	assert.Equal(t, string(model.PaymentPendingCredit), resp.PaymentStatus)

	// One stock entry plus one credit-debt entry, both referencing the order.
	require.Len(t, f.entries.entries, 2)
	assert.True(t, f.customers.customers[cust.ID].CreditBalance.Equal(decimal.NewFromInt(10)))
}

func TestCreatePOSOrderCreditRequiresCustomer(t *testing.T) {
	f := newOrderFixture()
	prod := f.products.add(&model.Product{SKU: "SKU-A", Name: "Widget", Stock: 10, Price: decimal.NewFromInt(5)})

	_, err := f.svc.CreatePOSOrder(context.Background(), nil, dto.CreateOrderRequest{
		PaymentMethod: "credit",
		Items:         []dto.OrderItemRequest{itemReq(prod.ID, 1)},
	})
	require.Error(t, err)
	assert.Equal(t, apierror.KindValidation, apierror.KindOf(err))
}

func TestCreatePOSOrderSynthesizesWalkIn(t *testing.T) {
	f := newOrderFixture()
	prod := f.products.add(&model.Product{SKU: "SKU-A", Name: "Widget", Stock: 10, Price: decimal.NewFromInt(5)})

	resp, err := f.svc.CreatePOSOrder(context.Background(), nil, dto.CreateOrderRequest{
		PaymentMethod: "cash",
		Items:         []dto.OrderItemRequest{itemReq(prod.ID, 1)},
	})
	require.NoError(t, err)

	walkIn, err := f.customers.FindWalkIn(context.Background())
	require.NoError(t, err)
	assert.Equal(t, walkIn.ID.String(), resp.CustomerID)

	// A second anonymous sale reuses the same counter customer.
	_, err = f.svc.CreatePOSOrder(context.Background(), nil, dto.CreateOrderRequest{
		PaymentMethod: "cash",
		Items:         []dto.OrderItemRequest{itemReq(prod.ID, 1)},
	})
	require.NoError(t, err)
	count := 0
	for _, c := range f.customers.customers {
		if c.WalkIn {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestCreatePOSOrderUnknownProductLeavesNothing(t *testing.T) {
	f := newOrderFixture()
	cust := f.customers.add(&model.CustomerAccount{Name: "Ana"})
	prod := f.products.add(&model.Product{SKU: "SKU-A", Name: "Widget", Stock: 10, Price: decimal.NewFromInt(5)})

	custID := cust.ID.String()
	_, err := f.svc.CreatePOSOrder(context.Background(), nil, dto.CreateOrderRequest{
		CustomerID:    &custID,
		PaymentMethod: "cash",
		Items: []dto.OrderItemRequest{
			itemReq(prod.ID, 2),
			itemReq(uuid.New(), 1), // not in the catalog
		},
	})
	require.Error(t, err)
	assert.Equal(t, apierror.KindNotFound, apierror.KindOf(err))

	// The valid line must not have been applied either.
	assert.Equal(t, 10, f.products.products[prod.ID].Stock)
	assert.Empty(t, f.entries.entries)
	assert.Empty(t, f.orders.orders)
}

func TestDeletePOSOrderRestoresStockAndDebt(t *testing.T) {
	f := newOrderFixture()
	cust := f.customers.add(&model.CustomerAccount{Name: "Ana"})
	prod := f.products.add(&model.Product{SKU: "SKU-A", Name: "Widget", Stock: 10, Price: decimal.NewFromInt(5)})

	custID := cust.ID.String()
	resp, err := f.svc.CreatePOSOrder(context.Background(), nil, dto.CreateOrderRequest{
		CustomerID:    &custID,
		PaymentMethod: "credit",
		Items:         []dto.OrderItemRequest{itemReq(prod.ID, 4)},
	})
	require.NoError(t, err)
	orderID := uuid.MustParse(resp.ID)
	assert.Equal(t, 6, f.products.products[prod.ID].Stock)

	require.NoError(t, f.svc.DeletePOSOrder(context.Background(), orderID, nil))

	// Stock and balance are back where they started, via compensating entries —
	// the history has four entries, not zero.
	assert.Equal(t, 10, f.products.products[prod.ID].Stock)
	assert.True(t, f.customers.customers[cust.ID].CreditBalance.IsZero())
	assert.Len(t, f.entries.entries, 4)
	assert.Empty(t, f.orders.orders)

	cancelKinds := 0
	for _, e := range f.entries.entries {
		if e.Kind == model.KindPOSCancel {
			cancelKinds++
		}
	}
	assert.Equal(t, 2, cancelKinds)

	// Replay still matches the (restored) aggregates.
	replayed, err := f.ledger.Replay(context.Background(), model.ProductSubject(prod.ID))
	require.NoError(t, err)
	assert.True(t, replayed.IsZero())
}

func TestDeletePOSOrderUnknownOrder(t *testing.T) {
	f := newOrderFixture()
	err := f.svc.DeletePOSOrder(context.Background(), uuid.New(), nil)
	require.Error(t, err)
	assert.Equal(t, apierror.KindNotFound, apierror.KindOf(err))
}

func TestDeleteRejectsNonPOSOrder(t *testing.T) {
	f := newOrderFixture()
	cust := f.customers.add(&model.CustomerAccount{Name: "Ana"})
	order := &model.Order{
		ID:            uuid.New(),
		Number:        1,
		CustomerID:    cust.ID,
		Status:        model.OrderFinalized,
		PaymentStatus: model.PaymentPaid,
		PaymentMethod: model.MethodCash,
		POS:           false,
	}
	require.NoError(t, f.orders.CreateTx(nil, order))

	err := f.svc.DeletePOSOrder(context.Background(), order.ID, nil)
	require.Error(t, err)
	assert.Equal(t, apierror.KindValidation, apierror.KindOf(err))
	assert.Len(t, f.orders.orders, 1)
}

func TestProcessExchangeAtomicAcrossLegs(t *testing.T) {
	f := newOrderFixture()
	prodA := f.products.add(&model.Product{SKU: "SKU-A", Name: "Widget", Stock: 5, Price: decimal.NewFromInt(5)})
	prodB := f.products.add(&model.Product{SKU: "SKU-B", Name: "Gadget", Stock: 0, Price: decimal.NewFromInt(8)})

	// The sale leg cannot be satisfied: the return leg must roll back with it.
	_, err := f.svc.ProcessExchange(context.Background(), nil, dto.ExchangeRequest{
		ReturnItems: []dto.OrderItemRequest{itemReq(prodA.ID, 2)},
		NewItems:    []dto.OrderItemRequest{itemReq(prodB.ID, 1)},
	})
	require.Error(t, err)
	assert.Equal(t, apierror.KindInsufficientStock, apierror.KindOf(err))
	assert.Equal(t, 5, f.products.products[prodA.ID].Stock)
	assert.Equal(t, 0, f.products.products[prodB.ID].Stock)
	assert.Empty(t, f.entries.entries)
}

func TestProcessExchangeSwapsStock(t *testing.T) {
	f := newOrderFixture()
	prodA := f.products.add(&model.Product{SKU: "SKU-A", Name: "Widget", Stock: 5, Price: decimal.NewFromInt(5)})
	prodB := f.products.add(&model.Product{SKU: "SKU-B", Name: "Gadget", Stock: 3, Price: decimal.NewFromInt(8)})

	resp, err := f.svc.ProcessExchange(context.Background(), nil, dto.ExchangeRequest{
		ReturnItems: []dto.OrderItemRequest{itemReq(prodA.ID, 2)},
		NewItems:    []dto.OrderItemRequest{itemReq(prodB.ID, 1)},
	})
	require.NoError(t, err)
	require.Len(t, resp.Entries, 2)

	assert.Equal(t, 7, f.products.products[prodA.ID].Stock)
	assert.Equal(t, 2, f.products.products[prodB.ID].Stock)

	// Both legs share the exchange reference and the exchange kind.
	for _, e := range f.entries.entries {
		assert.Equal(t, model.KindExchange, e.Kind)
		require.NotNil(t, e.ReferenceID)
		assert.Equal(t, resp.ExchangeID, *e.ReferenceID)
	}
}

func createOnlineOrder(t *testing.T, f *orderFixture) *dto.OrderResponse {
	t.Helper()
	cust := f.customers.add(&model.CustomerAccount{Name: "Ana"})
	prod := f.products.add(&model.Product{SKU: "SKU-A", Name: "Widget", Stock: 10, Price: decimal.NewFromInt(5)})
	custID := cust.ID.String()
	resp, err := f.svc.CreatePOSOrder(context.Background(), nil, dto.CreateOrderRequest{
		CustomerID:    &custID,
		PaymentMethod: "online",
		Items:         []dto.OrderItemRequest{itemReq(prod.ID, 1)},
	})
	require.NoError(t, err)
	require.Equal(t, string(model.PaymentPendingOnline), resp.PaymentStatus)
	return resp
}

func TestConfirmOnlinePaymentMarksPaid(t *testing.T) {
	f := newOrderFixture()
	created := createOnlineOrder(t, f)
	f.gateway.confirmed = true

	resp, err := f.svc.ConfirmOnlinePayment(context.Background(), uuid.MustParse(created.ID), "pay_ref_1")
	require.NoError(t, err)
	assert.Equal(t, string(model.PaymentPaid), resp.PaymentStatus)
	assert.Equal(t, 1, f.gateway.verifyCalls)

	// The stored order moved off pending_online too.
	stored := f.orders.orders[uuid.MustParse(created.ID)]
	assert.Equal(t, model.PaymentPaid, stored.PaymentStatus)
}

func TestConfirmOnlinePaymentDeclinedLeavesPending(t *testing.T) {
	f := newOrderFixture()
	created := createOnlineOrder(t, f)
	f.gateway.confirmed = false

	_, err := f.svc.ConfirmOnlinePayment(context.Background(), uuid.MustParse(created.ID), "pay_ref_1")
	require.Error(t, err)
	assert.Equal(t, apierror.KindGateway, apierror.KindOf(err))

	stored := f.orders.orders[uuid.MustParse(created.ID)]
	assert.Equal(t, model.PaymentPendingOnline, stored.PaymentStatus)
}

func TestConfirmOnlinePaymentRejectsNonOnlineOrder(t *testing.T) {
	f := newOrderFixture()
	cust := f.customers.add(&model.CustomerAccount{Name: "Ana"})
	prod := f.products.add(&model.Product{SKU: "SKU-A", Name: "Widget", Stock: 10, Price: decimal.NewFromInt(5)})
	custID := cust.ID.String()
	resp, err := f.svc.CreatePOSOrder(context.Background(), nil, dto.CreateOrderRequest{
		CustomerID:    &custID,
		PaymentMethod: "credit",
		Items:         []dto.OrderItemRequest{itemReq(prod.ID, 1)},
	})
	require.NoError(t, err)

	_, err = f.svc.ConfirmOnlinePayment(context.Background(), uuid.MustParse(resp.ID), "pay_ref_1")
	require.Error(t, err)
	assert.Equal(t, apierror.KindValidation, apierror.KindOf(err))
	assert.Zero(t, f.gateway.verifyCalls)
}

func TestConfirmOnlinePaymentReplaySkipsGateway(t *testing.T) {
	f := newOrderFixture()
	created := createOnlineOrder(t, f)
	f.gateway.confirmed = true
	orderID := uuid.MustParse(created.ID)

	_, err := f.svc.ConfirmOnlinePayment(context.Background(), orderID, "pay_ref_1")
	require.NoError(t, err)

	// A repeated confirmation returns the paid order without asking the
	// gateway again.
	resp, err := f.svc.ConfirmOnlinePayment(context.Background(), orderID, "pay_ref_1")
	require.NoError(t, err)
	assert.Equal(t, string(model.PaymentPaid), resp.PaymentStatus)
	assert.Equal(t, 1, f.gateway.verifyCalls)
}

func TestProcessExchangeNewItemsOnly(t *testing.T) {
	f := newOrderFixture()
	prod := f.products.add(&model.Product{SKU: "SKU-A", Name: "Widget", Stock: 5, Price: decimal.NewFromInt(5)})

	// A straight add-on sale with nothing coming back is a valid exchange.
	resp, err := f.svc.ProcessExchange(context.Background(), nil, dto.ExchangeRequest{
		NewItems: []dto.OrderItemRequest{itemReq(prod.ID, 2)},
	})
	require.NoError(t, err)
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, 3, f.products.products[prod.ID].Stock)
}

func TestProcessExchangeReasonOnEntries(t *testing.T) {
	f := newOrderFixture()
	prodA := f.products.add(&model.Product{SKU: "SKU-A", Name: "Widget", Stock: 5, Price: decimal.NewFromInt(5)})
	prodB := f.products.add(&model.Product{SKU: "SKU-B", Name: "Gadget", Stock: 3, Price: decimal.NewFromInt(8)})

	_, err := f.svc.ProcessExchange(context.Background(), nil, dto.ExchangeRequest{
		ReturnItems: []dto.OrderItemRequest{itemReq(prodA.ID, 1)},
		NewItems:    []dto.OrderItemRequest{itemReq(prodB.ID, 1)},
		Reason:      "wrong size",
	})
	require.NoError(t, err)
	require.Len(t, f.entries.entries, 2)
	for _, e := range f.entries.entries {
		assert.Contains(t, e.Description, "wrong size")
	}
}

// racingCustomerRepo simulates a competing terminal inserting the walk-in row
// between this terminal's lookup miss and its insert attempt.
type racingCustomerRepo struct {
	*stubCustomerRepo
	raced bool
}

func (r *racingCustomerRepo) FindWalkIn(ctx context.Context) (*model.CustomerAccount, error) {
	if !r.raced {
		r.raced = true
		defer r.stubCustomerRepo.add(&model.CustomerAccount{Name: "Walk-in", WalkIn: true})
		return nil, apierror.NotFound("walk-in customer not found")
	}
	return r.stubCustomerRepo.FindWalkIn(ctx)
}

func TestCreatePOSOrderWalkInRaceAdoptsWinner(t *testing.T) {
	customers := &racingCustomerRepo{stubCustomerRepo: newStubCustomerRepo()}
	products := newStubProductRepo()
	entries := newStubLedgerRepo()
	orders := newStubOrderRepo()
	ledger := NewLedgerService(customers, products, entries, nil)
	svc := NewOrderService(orders, customers, products, ledger, &stubGateway{}, nil)

	prod := products.add(&model.Product{SKU: "SKU-A", Name: "Widget", Stock: 10, Price: decimal.NewFromInt(5)})

	// The unique-index collision must not fail the sale: the loser adopts the
	// winner's row.
	resp, err := svc.CreatePOSOrder(context.Background(), nil, dto.CreateOrderRequest{
		PaymentMethod: "cash",
		Items:         []dto.OrderItemRequest{itemReq(prod.ID, 1)},
	})
	require.NoError(t, err)

	count := 0
	var walkInID uuid.UUID
	for _, c := range customers.customers {
		if c.WalkIn {
			count++
			walkInID = c.ID
		}
	}
	assert.Equal(t, 1, count)
	assert.Equal(t, walkInID.String(), resp.CustomerID)
}

func TestCreatePOSOrderVariationPricing(t *testing.T) {
	f := newOrderFixture()
	cust := f.customers.add(&model.CustomerAccount{Name: "Ana"})
	prod := f.products.add(&model.Product{SKU: "SKU-A", Name: "Shirt", Stock: 10, Price: decimal.NewFromInt(20)})
	override := decimal.NewFromInt(25)
	varn := f.products.addVariation(&model.ProductVariation{
		ProductID: prod.ID, SKU: "SKU-A-L", Name: "L", Stock: 4, Price: &override,
	})

	custID := cust.ID.String()
	varnID := varn.ID.String()
	resp, err := f.svc.CreatePOSOrder(context.Background(), nil, dto.CreateOrderRequest{
		CustomerID:    &custID,
		PaymentMethod: "cash",
		Items: []dto.OrderItemRequest{{
			ProductID:   prod.ID.String(),
			VariationID: &varnID,
			Quantity:    2,
		}},
	})
	require.NoError(t, err)

	// Variation price override and SKU are snapshotted onto the item.
	assert.True(t, resp.Total.Equal(decimal.NewFromInt(50)))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "SKU-A-L", resp.Items[0].SKU)

	assert.Equal(t, 2, f.products.variations[varn.ID].Stock)
	assert.Equal(t, 8, f.products.products[prod.ID].Stock)
}
