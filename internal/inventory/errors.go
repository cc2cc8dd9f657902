package inventory

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNegativeStock       = errors.New("not enough stock")
	ErrMissingReason       = errors.New("reason is required for stock adjustments")
	ErrInvalidMovementKind = errors.New("invalid movement kind")
	ErrInvalidDelta        = errors.New("invalid quantity delta")
	ErrCompositeNotStocked = errors.New("composite products are not stocked directly")
	ErrSameStore           = errors.New("transfer source and target store must differ")
	ErrMissingIdentity     = errors.New("product, store and actor are required")
	ErrEmptyBatch          = errors.New("no movements to apply")
	// ErrConcurrentUpdate means the store saw a different latest quantity
	// than the one the movement was computed from.
	ErrConcurrentUpdate = errors.New("stock changed concurrently")
)

// NegativeStockError is returned when a movement would drive on-hand
// quantity below zero. Nothing is recorded.
type NegativeStockError struct {
	ProductID string
	StoreID   string
	Current   decimal.Decimal
	Delta     decimal.Decimal
}

func (e *NegativeStockError) Error() string {
	return fmt.Sprintf("not enough stock for product %s at store %s: have %s, change %s",
		e.ProductID, e.StoreID, e.Current, e.Delta)
}

func (e *NegativeStockError) Is(target error) bool {
	return target == ErrNegativeStock
}

// ErrLockTimeout is returned when the ledger lock could not be taken in time.
var ErrLockTimeout = errors.New("stock is busy, please try again later")
