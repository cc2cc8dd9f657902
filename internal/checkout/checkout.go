package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-checkout-service/internal/availability"
	"github.com/fekuna/omnipos-checkout-service/internal/cart"
	"github.com/fekuna/omnipos-checkout-service/internal/event"
	"github.com/fekuna/omnipos-checkout-service/internal/inventory"
	"github.com/fekuna/omnipos-checkout-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/fekuna/omnipos-checkout-service/internal/pricing"
	"github.com/fekuna/omnipos-checkout-service/pkg/logger"
	"github.com/fekuna/omnipos-checkout-service/pkg/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const referenceSale = "sale"

var (
	ErrEmptyCart     = errors.New("cart is empty")
	ErrStoreMismatch = errors.New("cart belongs to a different store")
	ErrMissingActor  = errors.New("actor is required")
)

type Receipt struct {
	ID        string                `json:"id"`
	StoreID   string                `json:"store_id"`
	ActorID   string                `json:"actor_id"`
	Lines     []cart.CartItem       `json:"lines"`
	Totals    pricing.Totals        `json:"totals"`
	Movements []model.StockMovement `json:"movements"`
	CreatedAt time.Time             `json:"created_at"`
}

// Requirements expands a sold line into tracked stock.
type Requirements interface {
	Requirements(ctx context.Context, p model.Product, qty decimal.Decimal) ([]availability.Requirement, error)
}

type Service struct {
	ledger    inventory.UseCase
	stock     Requirements
	publisher event.Publisher
	logger    logger.ZapLogger
}

func NewService(ledger inventory.UseCase, stock Requirements, publisher event.Publisher, log logger.ZapLogger) *Service {
	if publisher == nil {
		publisher = event.NopPublisher{}
	}
	return &Service{ledger: ledger, stock: stock, publisher: publisher, logger: log}
}

// FinalizeSale is called once payment has succeeded. It decrements stock for
// every line in a single ledger batch, so either every line is deducted or
// none is. On success the cart is cleared.
func (s *Service) FinalizeSale(ctx context.Context, c *cart.Cart, storeID, actorID string, discount decimal.Decimal) (*Receipt, error) {
	if c.IsEmpty() {
		return nil, ErrEmptyCart
	}
	if actorID == "" {
		return nil, ErrMissingActor
	}
	if c.StoreID() != storeID {
		return nil, fmt.Errorf("%w: cart %s, sale %s", ErrStoreMismatch, c.StoreID(), storeID)
	}

	totals, err := c.Totals(discount)
	if err != nil {
		return nil, err
	}

	saleID := uuid.New().String()
	lines := c.Items()

	var inputs []dto.MovementInput
	for _, line := range lines {
		reqs, err := s.stock.Requirements(ctx, line.Product, line.Quantity)
		if err != nil {
			return nil, err
		}
		for _, r := range reqs {
			inputs = append(inputs, dto.MovementInput{
				ProductID:     r.ProductID,
				StoreID:       storeID,
				Kind:          model.MovementOut,
				QuantityDelta: r.Quantity.Neg(),
				Reason:        referenceSale,
				ActorID:       actorID,
				ReferenceType: referenceSale,
				ReferenceID:   saleID,
			})
		}
	}

	movements := []model.StockMovement{}
	if len(inputs) > 0 {
		movements, err = s.ledger.ApplyBatch(ctx, inputs)
		if err != nil {
			metrics.SalesFinalized.WithLabelValues("rejected").Inc()
			s.logger.Warn("sale rejected",
				zap.String("sale_id", saleID),
				zap.String("store_id", storeID),
				zap.Error(err),
			)
			return nil, err
		}
	}

	receipt := &Receipt{
		ID:        saleID,
		StoreID:   storeID,
		ActorID:   actorID,
		Lines:     lines,
		Totals:    totals,
		Movements: movements,
		CreatedAt: time.Now().UTC(),
	}
	c.Clear()

	metrics.SalesFinalized.WithLabelValues("completed").Inc()
	s.logger.Info("sale finalized",
		zap.String("sale_id", saleID),
		zap.String("store_id", storeID),
		zap.Int("lines", len(lines)),
		zap.String("grand_total", totals.GrandTotal.String()),
	)
	if err := s.publisher.Publish(ctx, event.New(event.SaleFinalized, saleID, receipt)); err != nil {
		s.logger.Warn("failed to publish sale", zap.String("sale_id", saleID), zap.Error(err))
	}
	return receipt, nil
}
