package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fekuna/omnipos-checkout-service/internal/event"
	"github.com/fekuna/omnipos-checkout-service/internal/inventory"
	"github.com/fekuna/omnipos-checkout-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/fekuna/omnipos-checkout-service/internal/product"
	"github.com/fekuna/omnipos-checkout-service/internal/reconciliation"
	"github.com/fekuna/omnipos-checkout-service/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const referenceCount = "inventory_count"

type countUseCase struct {
	repo      reconciliation.Repository
	ledger    inventory.UseCase
	catalog   product.Catalog
	publisher event.Publisher
	logger    logger.ZapLogger

	// one mutex per open session serializes record and finalize calls on it
	locks sync.Map
}

func NewCountUseCase(
	repo reconciliation.Repository,
	ledger inventory.UseCase,
	catalog product.Catalog,
	publisher event.Publisher,
	log logger.ZapLogger,
) reconciliation.UseCase {
	if publisher == nil {
		publisher = event.NopPublisher{}
	}
	return &countUseCase{
		repo:      repo,
		ledger:    ledger,
		catalog:   catalog,
		publisher: publisher,
		logger:    log,
	}
}

func (uc *countUseCase) lock(sessionID string) func() {
	v, _ := uc.locks.LoadOrStore(sessionID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// forget drops the lock of a session id that does not exist. Finalized
// sessions drop theirs too; calls on them never write.
func (uc *countUseCase) forget(sessionID string, err error) {
	if errors.Is(err, reconciliation.ErrSessionNotFound) {
		uc.locks.Delete(sessionID)
	}
}

func (uc *countUseCase) StartSession(ctx context.Context, storeID, actorID string) (*model.CountSession, error) {
	if storeID == "" || actorID == "" {
		return nil, reconciliation.ErrMissingIdentity
	}
	s := &model.CountSession{
		ID:        uuid.New().String(),
		StoreID:   storeID,
		ActorID:   actorID,
		State:     model.CountInProgress,
		Lines:     map[string]model.CountLine{},
		StartedAt: time.Now().UTC(),
	}
	if err := uc.repo.Save(ctx, s); err != nil {
		return nil, err
	}
	uc.logger.Info("inventory count started", zap.String("session_id", s.ID), zap.String("store_id", storeID))
	return s, nil
}

func (uc *countUseCase) load(ctx context.Context, sessionID string) (*model.CountSession, error) {
	s, err := uc.repo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("%w: %s", reconciliation.ErrSessionNotFound, sessionID)
	}
	return s, nil
}

// RecordCount stores the counted quantity. The ledger quantity is read only
// on the first count of a product; recounts replace the counted value.
func (uc *countUseCase) RecordCount(ctx context.Context, sessionID, productID string, counted decimal.Decimal) (*model.CountLine, error) {
	if counted.IsNegative() {
		return nil, fmt.Errorf("%w: %s is negative", reconciliation.ErrInvalidCount, counted)
	}

	unlock := uc.lock(sessionID)
	defer unlock()

	s, err := uc.load(ctx, sessionID)
	if err != nil {
		uc.forget(sessionID, err)
		return nil, err
	}
	if s.State == model.CountFinalized {
		uc.locks.Delete(sessionID)
		return nil, reconciliation.ErrSessionClosed
	}

	p, err := uc.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p.Kind() == model.KindComposite {
		return nil, fmt.Errorf("%w: %s", inventory.ErrCompositeNotStocked, productID)
	}
	if !p.TracksStock {
		return nil, fmt.Errorf("%w: %s", reconciliation.ErrProductNotTracked, productID)
	}
	if !p.IsFractional() && !counted.Equal(counted.Truncate(0)) {
		return nil, fmt.Errorf("%w: %s is not a whole number for %s product %s", reconciliation.ErrInvalidCount, counted, p.Kind(), productID)
	}

	line, ok := s.Lines[productID]
	if !ok {
		system, err := uc.ledger.CurrentQuantity(ctx, productID, s.StoreID)
		if err != nil {
			return nil, err
		}
		line = model.CountLine{ProductID: productID, SystemQuantity: system}
	}
	line.CountedQuantity = counted
	s.Lines[productID] = line

	if err := uc.repo.Save(ctx, s); err != nil {
		return nil, err
	}
	return &line, nil
}

// FinalizeSession applies every non-zero count delta as one ledger batch.
// If the batch is rejected the session stays in progress. Adjustments already
// in the ledger for this session are never applied a second time.
func (uc *countUseCase) FinalizeSession(ctx context.Context, sessionID string) ([]model.StockMovement, error) {
	unlock := uc.lock(sessionID)
	defer unlock()

	s, err := uc.load(ctx, sessionID)
	if err != nil {
		uc.forget(sessionID, err)
		return nil, err
	}
	if s.State == model.CountFinalized {
		uc.locks.Delete(sessionID)
		return s.Movements, nil
	}

	applied, err := uc.appliedMovements(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	if len(applied) > 0 {
		uc.logger.Warn("inventory count adjustments already recorded, completing session",
			zap.String("session_id", s.ID), zap.Int("adjustments", len(applied)))
		return uc.complete(ctx, s, applied)
	}

	var inputs []dto.MovementInput
	for _, l := range s.SortedLines() {
		delta := l.Delta()
		if delta.IsZero() {
			continue
		}
		inputs = append(inputs, dto.MovementInput{
			ProductID:     l.ProductID,
			StoreID:       s.StoreID,
			Kind:          model.MovementAdjustment,
			QuantityDelta: delta,
			Reason:        "inventory count: " + signed(delta),
			ActorID:       s.ActorID,
			ReferenceType: referenceCount,
			ReferenceID:   s.ID,
		})
	}

	movements := []model.StockMovement{}
	if len(inputs) > 0 {
		movements, err = uc.ledger.ApplyBatch(ctx, inputs)
		if err != nil {
			uc.logger.Warn("inventory count finalize rejected", zap.String("session_id", s.ID), zap.Error(err))
			return nil, err
		}
	}
	return uc.complete(ctx, s, movements)
}

// appliedMovements returns the ledger adjustments tagged with the session id,
// oldest first.
func (uc *countUseCase) appliedMovements(ctx context.Context, sessionID string) ([]model.StockMovement, error) {
	found, _, err := uc.ledger.ListMovements(ctx, &dto.MovementFilters{
		ReferenceType: referenceCount,
		ReferenceID:   sessionID,
	})
	if err != nil {
		return nil, err
	}
	out := make([]model.StockMovement, len(found))
	for i, m := range found {
		out[len(found)-1-i] = m
	}
	return out, nil
}

// complete marks the session finalized with movements and announces it.
func (uc *countUseCase) complete(ctx context.Context, s *model.CountSession, movements []model.StockMovement) ([]model.StockMovement, error) {
	now := time.Now().UTC()
	s.State = model.CountFinalized
	s.FinalizedAt = &now
	s.Movements = movements
	if err := uc.repo.Save(ctx, s); err != nil {
		// the adjustments are already in the ledger
		uc.logger.Error("failed to save finalized count session", zap.String("session_id", s.ID), zap.Error(err))
		return nil, err
	}
	uc.locks.Delete(s.ID)

	uc.logger.Info("inventory count finalized",
		zap.String("session_id", s.ID),
		zap.String("store_id", s.StoreID),
		zap.Int("lines", len(s.Lines)),
		zap.Int("adjustments", len(movements)),
	)
	if err := uc.publisher.Publish(ctx, event.New(event.InventoryCountFinalized, s.ID, s)); err != nil {
		uc.logger.Warn("failed to publish count session", zap.String("session_id", s.ID), zap.Error(err))
	}
	return movements, nil
}

func (uc *countUseCase) GetSession(ctx context.Context, sessionID string) (*model.CountSession, error) {
	return uc.load(ctx, sessionID)
}

func signed(d decimal.Decimal) string {
	if d.IsPositive() {
		return "+" + d.String()
	}
	return d.String()
}
