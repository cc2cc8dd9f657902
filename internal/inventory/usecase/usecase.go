package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/omnipos-checkout-service/internal/inventory"
	"github.com/fekuna/omnipos-checkout-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/fekuna/omnipos-checkout-service/internal/product"
	"github.com/fekuna/omnipos-checkout-service/pkg/logger"
	"github.com/fekuna/omnipos-checkout-service/pkg/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const referenceTransfer = "transfer"

type inventoryUseCase struct {
	repo      inventory.Repository
	locker    inventory.Locker
	catalog   product.Catalog
	observers []inventory.MovementObserver
	logger    logger.ZapLogger
	now       func() time.Time
}

// NewInventoryUseCase builds the stock ledger. catalog may be nil, in which
// case product kind checks are skipped.
func NewInventoryUseCase(
	repo inventory.Repository,
	locker inventory.Locker,
	catalog product.Catalog,
	log logger.ZapLogger,
	observers ...inventory.MovementObserver,
) inventory.UseCase {
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &inventoryUseCase{
		repo:      repo,
		locker:    locker,
		catalog:   catalog,
		observers: observers,
		logger:    log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (uc *inventoryUseCase) CurrentQuantity(ctx context.Context, productID, storeID string) (decimal.Decimal, error) {
	return uc.repo.Latest(ctx, model.StockKey{ProductID: productID, StoreID: storeID})
}

func (uc *inventoryUseCase) ApplyMovement(ctx context.Context, input *dto.MovementInput) (*model.StockMovement, error) {
	applied, err := uc.ApplyBatch(ctx, []dto.MovementInput{*input})
	if err != nil {
		return nil, err
	}
	return &applied[0], nil
}

// ApplyBatch validates every input, locks all touched keys, and appends the
// whole batch or nothing. Inputs for the same key chain in order.
func (uc *inventoryUseCase) ApplyBatch(ctx context.Context, inputs []dto.MovementInput) ([]model.StockMovement, error) {
	if len(inputs) == 0 {
		return nil, inventory.ErrEmptyBatch
	}
	start := time.Now()
	defer func() { metrics.LedgerApplyDuration.Observe(time.Since(start).Seconds()) }()

	for i := range inputs {
		if err := uc.validate(ctx, &inputs[i]); err != nil {
			metrics.MovementsRejected.WithLabelValues("validation").Inc()
			return nil, err
		}
	}

	keys := make([]model.StockKey, len(inputs))
	for i, in := range inputs {
		keys[i] = in.Key()
	}

	movements, err := uc.commit(ctx, keys, inputs)
	if err != nil {
		return nil, err
	}

	for _, m := range movements {
		metrics.MovementsApplied.WithLabelValues(string(m.Kind)).Inc()
		uc.logger.Debug("stock movement applied",
			zap.String("movement_id", m.ID),
			zap.String("product_id", m.ProductID),
			zap.String("store_id", m.StoreID),
			zap.String("kind", string(m.Kind)),
			zap.String("delta", m.QuantityDelta.String()),
			zap.String("new_quantity", m.NewQuantity.String()),
		)
	}
	for _, o := range uc.observers {
		o.MovementsApplied(ctx, movements)
	}
	return movements, nil
}

// commit runs under the key locks and returns once they are released.
func (uc *inventoryUseCase) commit(ctx context.Context, keys []model.StockKey, inputs []dto.MovementInput) ([]model.StockMovement, error) {
	release, err := uc.locker.Lock(ctx, keys)
	if err != nil {
		metrics.MovementsRejected.WithLabelValues("lock").Inc()
		uc.logger.Warn("failed to lock stock keys", zap.Error(err))
		return nil, err
	}
	defer release()

	running := make(map[model.StockKey]decimal.Decimal)
	now := uc.now()
	movements := make([]model.StockMovement, 0, len(inputs))
	for _, in := range inputs {
		key := in.Key()
		current, ok := running[key]
		if !ok {
			current, err = uc.repo.Latest(ctx, key)
			if err != nil {
				return nil, err
			}
		}

		next := current.Add(in.QuantityDelta)
		if next.IsNegative() {
			metrics.MovementsRejected.WithLabelValues("negative_stock").Inc()
			return nil, &inventory.NegativeStockError{
				ProductID: in.ProductID,
				StoreID:   in.StoreID,
				Current:   current,
				Delta:     in.QuantityDelta,
			}
		}
		running[key] = next

		movements = append(movements, model.StockMovement{
			ID:               uuid.New().String(),
			ProductID:        in.ProductID,
			StoreID:          in.StoreID,
			Kind:             in.Kind,
			QuantityDelta:    in.QuantityDelta,
			PreviousQuantity: current,
			NewQuantity:      next,
			Reason:           in.Reason,
			ReferenceType:    optional(in.ReferenceType),
			ReferenceID:      optional(in.ReferenceID),
			ActorID:          in.ActorID,
			Timestamp:        now,
		})
	}

	if err := uc.repo.Append(ctx, movements); err != nil {
		if errors.Is(err, inventory.ErrConcurrentUpdate) {
			metrics.MovementsRejected.WithLabelValues("conflict").Inc()
		}
		uc.logger.Error("failed to append stock movements", zap.Int("count", len(movements)), zap.Error(err))
		return nil, err
	}
	return movements, nil
}

func (uc *inventoryUseCase) validate(ctx context.Context, in *dto.MovementInput) error {
	if in.ProductID == "" || in.StoreID == "" || in.ActorID == "" {
		return inventory.ErrMissingIdentity
	}
	if !in.Kind.Valid() {
		return fmt.Errorf("%w: %q", inventory.ErrInvalidMovementKind, in.Kind)
	}
	if in.QuantityDelta.IsZero() {
		return fmt.Errorf("%w: zero change", inventory.ErrInvalidDelta)
	}
	switch in.Kind {
	case model.MovementIn:
		if !in.QuantityDelta.IsPositive() {
			return fmt.Errorf("%w: %s movement must be positive", inventory.ErrInvalidDelta, in.Kind)
		}
	case model.MovementOut:
		if !in.QuantityDelta.IsNegative() {
			return fmt.Errorf("%w: %s movement must be negative", inventory.ErrInvalidDelta, in.Kind)
		}
	case model.MovementAdjustment:
		if strings.TrimSpace(in.Reason) == "" {
			return inventory.ErrMissingReason
		}
	}

	if uc.catalog == nil {
		return nil
	}
	p, err := uc.catalog.GetProduct(ctx, in.ProductID)
	if err != nil {
		return err
	}
	if p.Kind() == model.KindComposite {
		return fmt.Errorf("%w: %s", inventory.ErrCompositeNotStocked, p.ID)
	}
	if !p.IsFractional() && !in.QuantityDelta.Equal(in.QuantityDelta.Truncate(0)) {
		return fmt.Errorf("%w: %s is not a whole number for %s product %s", inventory.ErrInvalidDelta, in.QuantityDelta, p.Kind(), p.ID)
	}
	return nil
}

// Transfer moves stock between stores as an out leg at the source and an in
// leg at the target, committed together.
func (uc *inventoryUseCase) Transfer(ctx context.Context, input *dto.TransferInput) ([]model.StockMovement, error) {
	if input.SourceStoreID == input.TargetStoreID {
		return nil, inventory.ErrSameStore
	}
	if !input.Quantity.IsPositive() {
		return nil, fmt.Errorf("%w: transfer quantity must be positive", inventory.ErrInvalidDelta)
	}

	transferID := uuid.New().String()
	reason := input.Reason
	if reason == "" {
		reason = fmt.Sprintf("transfer %s -> %s", input.SourceStoreID, input.TargetStoreID)
	}

	return uc.ApplyBatch(ctx, []dto.MovementInput{
		{
			ProductID:     input.ProductID,
			StoreID:       input.SourceStoreID,
			Kind:          model.MovementOut,
			QuantityDelta: input.Quantity.Neg(),
			Reason:        reason,
			ActorID:       input.ActorID,
			ReferenceType: referenceTransfer,
			ReferenceID:   transferID,
		},
		{
			ProductID:     input.ProductID,
			StoreID:       input.TargetStoreID,
			Kind:          model.MovementIn,
			QuantityDelta: input.Quantity,
			Reason:        reason,
			ActorID:       input.ActorID,
			ReferenceType: referenceTransfer,
			ReferenceID:   transferID,
		},
	})
}

func (uc *inventoryUseCase) ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.StockMovement, int, error) {
	if filters == nil {
		filters = &dto.MovementFilters{}
	}
	return uc.repo.ListMovements(ctx, filters)
}

func (uc *inventoryUseCase) Snapshot(ctx context.Context) (inventory.Snapshot, error) {
	return uc.repo.Snapshot(ctx)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
