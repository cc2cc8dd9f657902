package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/fekuna/omnipos-checkout-service/internal/model"
)

// MemoryRepository holds the catalog in process. Used for the default
// in-memory deployment and in tests.
type MemoryRepository struct {
	mu       sync.RWMutex
	products map[string]model.Product
}

func NewMemoryRepository(products ...model.Product) *MemoryRepository {
	r := &MemoryRepository{products: make(map[string]model.Product, len(products))}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

// Put adds or replaces a product.
func (r *MemoryRepository) Put(p model.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[p.ID] = p
}

func (r *MemoryRepository) FindByID(_ context.Context, id string) (*model.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *MemoryRepository) FindAll(_ context.Context) ([]model.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// LoadSeed adds every product in a JSON array, as produced by
// model.Product's MarshalJSON.
func (r *MemoryRepository) LoadSeed(data []byte) (int, error) {
	var products []model.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return 0, fmt.Errorf("decode catalog seed: %w", err)
	}
	for _, p := range products {
		r.Put(p)
	}
	return len(products), nil
}
