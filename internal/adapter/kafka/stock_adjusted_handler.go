package kafka

import (
	"context"

	"github.com/aq2208/gstore-api/internal/logging"
	"github.com/aq2208/gstore-api/internal/metrics"
	"github.com/aq2208/gstore-api/internal/usecase"
)

// StockAdjuster is satisfied by *usecase.Catalog.
type StockAdjuster interface {
	AdjustStock(ctx context.Context, productID int64, delta int) error
}

// StockAdjustedHandler applies warehouse restock and write-off events to the catalog.
type StockAdjustedHandler struct {
	Catalog StockAdjuster
}

func NewStockAdjustedHandler(c StockAdjuster) *StockAdjustedHandler {
	return &StockAdjustedHandler{Catalog: c}
}

func (h *StockAdjustedHandler) Handle(ctx context.Context, ev usecase.StockAdjustedMsg) error {
	if err := h.Catalog.AdjustStock(ctx, ev.ProductID, ev.Delta); err != nil {
		metrics.StockEvents.WithLabelValues("failed").Inc()
		return err
	}
	metrics.StockEvents.WithLabelValues("applied").Inc()
	logging.FromCtx(ctx).Info("stock adjusted", "product_id", ev.ProductID, "delta", ev.Delta, "reason", ev.Reason)
	return nil
}
