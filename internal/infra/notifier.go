package infra

import (
	"context"
	"encoding/json"

	"tallypos/internal/model"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const StockChannel = "stock.changed"

// Notifier publishes stock-change events to interested observers (dashboards,
// terminal displays) over redis pub/sub. Delivery is best-effort and
// explicitly outside the consistency boundary: a lost event is never a
// correctness failure and never surfaces as an error to the caller.
type Notifier struct {
	rdb *redis.Client
}

func NewNotifier(rdb *redis.Client) *Notifier { return &Notifier{rdb: rdb} }

type stockEvent struct {
	ProductID   string  `json:"product_id"`
	VariationID *string `json:"variation_id,omitempty"`
	SKU         string  `json:"sku,omitempty"`
	Kind        string  `json:"kind"`
	Delta       string  `json:"delta"`
	Stock       string  `json:"stock"`
}

// StockChanged emits one event for a committed stock-ledger entry.
func (n *Notifier) StockChanged(ctx context.Context, e model.LedgerEntry) {
	if n.rdb == nil || e.ProductID == nil {
		return
	}
	ev := stockEvent{
		ProductID: e.ProductID.String(),
		Kind:      string(e.Kind),
		Delta:     e.Delta.String(),
		Stock:     e.BalanceAfter.String(),
	}
	if e.VariationID != nil {
		vid := e.VariationID.String()
		ev.VariationID = &vid
	}

	data, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Msg("notifier: marshal stock event")
		return
	}
	if err := n.rdb.Publish(ctx, StockChannel, data).Err(); err != nil {
		log.Warn().Err(err).Msg("notifier: publish stock event")
	}
}
