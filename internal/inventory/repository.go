package inventory

import (
	"context"

	"github.com/fekuna/omnipos-checkout-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/shopspring/decimal"
)

// Repository is the append-only movement store.
type Repository interface {
	// Latest returns the NewQuantity of the most recent movement for key,
	// or zero when there is none.
	Latest(ctx context.Context, key model.StockKey) (decimal.Decimal, error)

	// Append stores all movements or none. Each movement's PreviousQuantity
	// must match the latest quantity for its key at commit time, counting
	// earlier movements of the same batch; otherwise ErrConcurrentUpdate.
	Append(ctx context.Context, movements []model.StockMovement) error

	ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.StockMovement, int, error)
	Snapshot(ctx context.Context) (Snapshot, error)
}
