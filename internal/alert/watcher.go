package alert

import (
	"context"

	"github.com/fekuna/omnipos-checkout-service/internal/event"
	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/fekuna/omnipos-checkout-service/internal/product"
	"github.com/fekuna/omnipos-checkout-service/pkg/logger"
	"github.com/fekuna/omnipos-checkout-service/pkg/metrics"
	"go.uber.org/zap"
)

// Watcher re-checks every key a committed batch touched and publishes a
// StockAlertRaised event for each one now in alert.
type Watcher struct {
	catalog   product.Catalog
	publisher event.Publisher
	logger    logger.ZapLogger
}

func NewWatcher(catalog product.Catalog, publisher event.Publisher, log logger.ZapLogger) *Watcher {
	return &Watcher{catalog: catalog, publisher: publisher, logger: log}
}

func (w *Watcher) MovementsApplied(ctx context.Context, movements []model.StockMovement) {
	// the last movement per key carries its final quantity
	last := make(map[model.StockKey]model.StockMovement)
	var order []model.StockKey
	for _, m := range movements {
		key := model.StockKey{ProductID: m.ProductID, StoreID: m.StoreID}
		if _, ok := last[key]; !ok {
			order = append(order, key)
		}
		last[key] = m
	}

	for _, key := range order {
		m := last[key]
		p, err := w.catalog.GetProduct(ctx, m.ProductID)
		if err != nil {
			w.logger.Warn("skipping alert check", zap.String("product_id", m.ProductID), zap.Error(err))
			continue
		}
		a, ok := Check(*p, m.StoreID, m.NewQuantity)
		if !ok {
			continue
		}

		metrics.AlertsRaised.WithLabelValues(string(a.Kind)).Inc()
		w.logger.Info("stock alert raised",
			zap.String("product_id", a.ProductID),
			zap.String("store_id", a.StoreID),
			zap.String("kind", string(a.Kind)),
			zap.String("quantity", a.Quantity.String()),
		)
		if err := w.publisher.Publish(ctx, event.New(event.StockAlertRaised, key.String(), a)); err != nil {
			w.logger.Warn("failed to publish stock alert", zap.String("key", key.String()), zap.Error(err))
		}
	}
}
