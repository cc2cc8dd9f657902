package inventory

import (
	"context"
	"sort"

	"github.com/fekuna/omnipos-checkout-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/shopspring/decimal"
)

// UseCase is the stock ledger. ApplyBatch is the single mutation path; the
// other mutating calls are shapes of it.
type UseCase interface {
	CurrentQuantity(ctx context.Context, productID, storeID string) (decimal.Decimal, error)
	ApplyMovement(ctx context.Context, input *dto.MovementInput) (*model.StockMovement, error)
	ApplyBatch(ctx context.Context, inputs []dto.MovementInput) ([]model.StockMovement, error)
	Transfer(ctx context.Context, input *dto.TransferInput) ([]model.StockMovement, error)
	ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.StockMovement, int, error)
	Snapshot(ctx context.Context) (Snapshot, error)
}

// MovementObserver is told about every committed batch, after the ledger
// locks are released.
type MovementObserver interface {
	MovementsApplied(ctx context.Context, movements []model.StockMovement)
}

// Snapshot is a point-in-time view of on-hand quantities.
type Snapshot map[model.StockKey]decimal.Decimal

// Quantity returns the on-hand quantity, zero when the pair has no movements.
func (s Snapshot) Quantity(productID, storeID string) decimal.Decimal {
	return s[model.StockKey{ProductID: productID, StoreID: storeID}]
}

// Stores lists the distinct store ids present, sorted.
func (s Snapshot) Stores() []string {
	seen := map[string]bool{}
	var stores []string
	for k := range s {
		if !seen[k.StoreID] {
			seen[k.StoreID] = true
			stores = append(stores, k.StoreID)
		}
	}
	sort.Strings(stores)
	return stores
}

// Locker serializes ledger writers on a set of stock keys. The returned
// release func must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, keys []model.StockKey) (release func(), err error)
}
