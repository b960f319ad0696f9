package service

import (
	"context"
	"fmt"

	"tallypos/internal/apierror"
	"tallypos/internal/dto"
	"tallypos/internal/model"
	"tallypos/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockService exposes the stock-ledger operations. Every mutation goes
// through the transaction coordinator; there is no path that touches a stock
// column directly.
type StockService interface {
	// RecordSale writes an outbound entry. source is KindOrder for POS sales
	// or KindExchange for the sale leg of an exchange.
	RecordSale(ctx context.Context, productID uuid.UUID, variationID *uuid.UUID, qty int, source model.LedgerKind, ref *string, actorID *uuid.UUID) (*model.LedgerEntry, error)
	// RecordReturnOrRestock writes an inbound entry. source is one of
	// KindRestock, KindReturn, KindExchange, KindPOSCancel.
	RecordReturnOrRestock(ctx context.Context, productID uuid.UUID, variationID *uuid.UUID, qty int, source model.LedgerKind, ref *string, actorID *uuid.UUID) (*model.LedgerEntry, error)
	// Adjust applies a signed supervisor correction (restock or removal).
	Adjust(ctx context.Context, req dto.StockAdjustRequest, actorID *uuid.UUID) (*model.LedgerEntry, error)
	Alerts(ctx context.Context) ([]dto.StockAlertResponse, error)
	Ledger(ctx context.Context, productID uuid.UUID, variationID *uuid.UUID, page, limit int) (*dto.LedgerListResponse, error)
}

type stockService struct {
	products repository.ProductRepository
	entries  repository.LedgerRepository
	ledger   LedgerService
}

func NewStockService(
	products repository.ProductRepository,
	entries repository.LedgerRepository,
	ledger LedgerService,
) StockService {
	return &stockService{products: products, entries: entries, ledger: ledger}
}

// SaleOp builds the outbound stock op for one sold line. The order workflow
// batches one per item.
func SaleOp(productID uuid.UUID, variationID *uuid.UUID, qty int, source model.LedgerKind, desc string, ref *string, actorID *uuid.UUID) Op {
	return stockOp(productID, variationID, -qty, source, desc, ref, actorID)
}

// RestockOp builds the inbound stock op mirroring a sale (return, exchange
// return leg, POS cancellation).
func RestockOp(productID uuid.UUID, variationID *uuid.UUID, qty int, source model.LedgerKind, desc string, ref *string, actorID *uuid.UUID) Op {
	return stockOp(productID, variationID, qty, source, desc, ref, actorID)
}

func stockOp(productID uuid.UUID, variationID *uuid.UUID, delta int, kind model.LedgerKind, desc string, ref *string, actorID *uuid.UUID) Op {
	sub := model.ProductSubject(productID)
	if variationID != nil {
		sub = model.VariationSubject(productID, *variationID)
	}
	return Op{
		Subject:     sub,
		Delta:       decimal.NewFromInt(int64(delta)),
		Kind:        kind,
		Description: desc,
		ReferenceID: ref,
		ActorID:     actorID,
	}
}

var outboundSources = map[model.LedgerKind]bool{
	model.KindOrder:    true,
	model.KindExchange: true,
}

var inboundSources = map[model.LedgerKind]bool{
	model.KindRestock:   true,
	model.KindReturn:    true,
	model.KindExchange:  true,
	model.KindPOSCancel: true,
}

func (s *stockService) RecordSale(ctx context.Context, productID uuid.UUID, variationID *uuid.UUID, qty int, source model.LedgerKind, ref *string, actorID *uuid.UUID) (*model.LedgerEntry, error) {
	if qty <= 0 {
		return nil, apierror.Validation("quantity must be positive")
	}
	if !outboundSources[source] {
		return nil, apierror.Validation(fmt.Sprintf("invalid sale source %q", source))
	}
	return s.ledger.Apply(ctx, SaleOp(productID, variationID, qty, source, "sale", ref, actorID))
}

func (s *stockService) RecordReturnOrRestock(ctx context.Context, productID uuid.UUID, variationID *uuid.UUID, qty int, source model.LedgerKind, ref *string, actorID *uuid.UUID) (*model.LedgerEntry, error) {
	if qty <= 0 {
		return nil, apierror.Validation("quantity must be positive")
	}
	if !inboundSources[source] {
		return nil, apierror.Validation(fmt.Sprintf("invalid restock source %q", source))
	}
	return s.ledger.Apply(ctx, RestockOp(productID, variationID, qty, source, "restock", ref, actorID))
}

func (s *stockService) Adjust(ctx context.Context, req dto.StockAdjustRequest, actorID *uuid.UUID) (*model.LedgerEntry, error) {
	if req.Delta == 0 {
		return nil, apierror.Validation("delta must be non-zero")
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return nil, apierror.Validation("invalid product_id")
	}
	var variationID *uuid.UUID
	if req.VariationID != nil {
		vid, err := uuid.Parse(*req.VariationID)
		if err != nil {
			return nil, apierror.Validation("invalid variation_id")
		}
		variationID = &vid
	}

	kind := model.KindRestock
	if req.Delta < 0 {
		kind = model.KindManual
	}
	return s.ledger.Apply(ctx, stockOp(productID, variationID, req.Delta, kind, req.Reason, nil, actorID))
}

func (s *stockService) Alerts(ctx context.Context) ([]dto.StockAlertResponse, error) {
	products, variations, err := s.products.LowStock(ctx)
	if err != nil {
		return nil, err
	}
	alerts := make([]dto.StockAlertResponse, 0, len(products)+len(variations))
	for i := range products {
		p := &products[i]
		alerts = append(alerts, dto.StockAlertResponse{
			ProductID: p.ID.String(),
			SKU:       p.SKU,
			Name:      p.Name,
			Stock:     p.Stock,
			MinStock:  p.MinStock,
		})
	}
	for i := range variations {
		v := &variations[i]
		vid := v.ID.String()
		name := v.Name
		if v.Product != nil {
			name = v.Product.Name + " — " + v.Name
		}
		alerts = append(alerts, dto.StockAlertResponse{
			ProductID:   v.ProductID.String(),
			VariationID: &vid,
			SKU:         v.SKU,
			Name:        name,
			Stock:       v.Stock,
			MinStock:    v.MinStock,
		})
	}
	return alerts, nil
}

func (s *stockService) Ledger(ctx context.Context, productID uuid.UUID, variationID *uuid.UUID, page, limit int) (*dto.LedgerListResponse, error) {
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 100
	}
	sub := model.ProductSubject(productID)
	if variationID != nil {
		sub = model.VariationSubject(productID, *variationID)
	}
	entries, total, err := s.entries.ListBySubject(ctx, sub, page, limit)
	if err != nil {
		return nil, err
	}
	return entriesToListResponse(entries, total, page, limit), nil
}
