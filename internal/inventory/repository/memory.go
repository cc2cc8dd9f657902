package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/fekuna/omnipos-checkout-service/internal/inventory"
	"github.com/fekuna/omnipos-checkout-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/shopspring/decimal"
)

// MemoryRepository keeps the movement log in process. It does not survive a
// restart.
type MemoryRepository struct {
	mu        sync.RWMutex
	log       []model.StockMovement
	latestQty map[model.StockKey]decimal.Decimal
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{latestQty: make(map[model.StockKey]decimal.Decimal)}
}

func (r *MemoryRepository) Latest(_ context.Context, key model.StockKey) (decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latestQty[key], nil
}

func (r *MemoryRepository) Append(_ context.Context, movements []model.StockMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// validate the whole chain before touching state
	pending := make(map[model.StockKey]decimal.Decimal)
	for _, m := range movements {
		key := model.StockKey{ProductID: m.ProductID, StoreID: m.StoreID}
		current, ok := pending[key]
		if !ok {
			current = r.latestQty[key]
		}
		if !current.Equal(m.PreviousQuantity) {
			return fmt.Errorf("%w: %s expected %s, found %s", inventory.ErrConcurrentUpdate, key, m.PreviousQuantity, current)
		}
		pending[key] = m.NewQuantity
	}

	r.log = append(r.log, movements...)
	for key, qty := range pending {
		r.latestQty[key] = qty
	}
	return nil
}

// ListMovements returns newest first.
func (r *MemoryRepository) ListMovements(_ context.Context, f *dto.MovementFilters) ([]model.StockMovement, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []model.StockMovement
	for i := len(r.log) - 1; i >= 0; i-- {
		if f == nil || f.Matches(r.log[i]) {
			matched = append(matched, r.log[i])
		}
	}
	count := len(matched)

	if f != nil && f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		start := (page - 1) * f.PageSize
		if start >= len(matched) {
			return []model.StockMovement{}, count, nil
		}
		end := start + f.PageSize
		if end > len(matched) {
			end = len(matched)
		}
		matched = matched[start:end]
	}
	if matched == nil {
		matched = []model.StockMovement{}
	}
	return matched, count, nil
}

func (r *MemoryRepository) Snapshot(_ context.Context) (inventory.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap := make(inventory.Snapshot, len(r.latestQty))
	for k, v := range r.latestQty {
		snap[k] = v
	}
	return snap, nil
}
