package usecase

import (
	"context"

	"github.com/fekuna/omnipos-checkout-service/internal/event"
	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/fekuna/omnipos-checkout-service/pkg/logger"
	"go.uber.org/zap"
)

// EventObserver publishes a StockMovementRecorded event per committed
// movement, keyed by product@store so a partition sees a key in order.
type EventObserver struct {
	publisher event.Publisher
	logger    logger.ZapLogger
}

func NewEventObserver(publisher event.Publisher, log logger.ZapLogger) *EventObserver {
	return &EventObserver{publisher: publisher, logger: log}
}

func (o *EventObserver) MovementsApplied(ctx context.Context, movements []model.StockMovement) {
	for _, m := range movements {
		key := model.StockKey{ProductID: m.ProductID, StoreID: m.StoreID}.String()
		if err := o.publisher.Publish(ctx, event.New(event.StockMovementRecorded, key, m)); err != nil {
			o.logger.Warn("failed to publish stock movement", zap.String("movement_id", m.ID), zap.Error(err))
		}
	}
}
