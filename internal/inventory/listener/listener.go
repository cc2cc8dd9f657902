package listener

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fekuna/omnipos-checkout-service/internal/availability"
	"github.com/fekuna/omnipos-checkout-service/internal/inventory"
	"github.com/fekuna/omnipos-checkout-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/fekuna/omnipos-checkout-service/internal/product"
	"github.com/fekuna/omnipos-checkout-service/pkg/logger"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const orderPaid = "OrderPaid"

// MessageReader is satisfied by broker.KafkaConsumer.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// Requirements is satisfied by availability.Resolver.
type Requirements interface {
	Requirements(ctx context.Context, p model.Product, qty decimal.Decimal) ([]availability.Requirement, error)
}

// InventoryListener deducts stock for orders paid through channels other
// than the register, e.g. the online shop.
type InventoryListener struct {
	consumer MessageReader
	uc       inventory.UseCase
	catalog  product.Catalog
	stock    Requirements
	logger   logger.ZapLogger
}

func NewInventoryListener(consumer MessageReader, uc inventory.UseCase, catalog product.Catalog, stock Requirements, logger logger.ZapLogger) *InventoryListener {
	return &InventoryListener{
		consumer: consumer,
		uc:       uc,
		catalog:  catalog,
		stock:    stock,
		logger:   logger,
	}
}

func (l *InventoryListener) Start(ctx context.Context) {
	l.logger.Info("Starting Inventory Kafka Listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopping Inventory Kafka Listener")
			return
		default:
			msg, err := l.consumer.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("Failed to read kafka message", zap.Error(err))
				time.Sleep(1 * time.Second)
				continue
			}
			l.processMessage(ctx, msg.Value)
		}
	}
}

type OrderPaidEvent struct {
	EventID   string       `json:"event_id"`
	EventType string       `json:"event_type"`
	Payload   OrderPayload `json:"payload"`
	Timestamp time.Time    `json:"timestamp"`
}

type OrderPayload struct {
	ID      string             `json:"id"`
	StoreID string             `json:"store_id"`
	ActorID string             `json:"actor_id"`
	Items   []OrderItemPayload `json:"items"`
}

type OrderItemPayload struct {
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// processMessage applies the whole order as one ledger batch. A rejected
// order is logged and skipped; nothing is partially deducted.
func (l *InventoryListener) processMessage(ctx context.Context, value []byte) {
	var evt OrderPaidEvent
	if err := json.Unmarshal(value, &evt); err != nil {
		l.logger.Error("Failed to unmarshal event", zap.Error(err))
		return
	}

	if evt.EventType != orderPaid {
		return
	}

	order := evt.Payload
	l.logger.Info("Processing OrderPaid event", zap.String("order_id", order.ID))

	actorID := order.ActorID
	if actorID == "" {
		actorID = "system"
	}

	var inputs []dto.MovementInput
	for _, item := range order.Items {
		p, err := l.catalog.GetProduct(ctx, item.ProductID)
		if err != nil {
			l.logger.Error("Unknown product in order",
				zap.String("order_id", order.ID),
				zap.String("product_id", item.ProductID),
				zap.Error(err),
			)
			return
		}
		reqs, err := l.stock.Requirements(ctx, *p, item.Quantity)
		if err != nil {
			l.logger.Error("Failed to expand order item", zap.String("order_id", order.ID), zap.Error(err))
			return
		}
		for _, r := range reqs {
			inputs = append(inputs, dto.MovementInput{
				ProductID:     r.ProductID,
				StoreID:       order.StoreID,
				Kind:          model.MovementOut,
				QuantityDelta: r.Quantity.Neg(),
				Reason:        "Order Sale",
				ActorID:       actorID,
				ReferenceType: "sale",
				ReferenceID:   order.ID,
			})
		}
	}
	if len(inputs) == 0 {
		return
	}

	if _, err := l.uc.ApplyBatch(ctx, inputs); err != nil {
		l.logger.Error("Failed to deduct stock for order",
			zap.String("order_id", order.ID),
			zap.Int("movements", len(inputs)),
			zap.Error(err),
		)
	}
}
