package availability

import (
	"context"
	"errors"
	"fmt"

	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/fekuna/omnipos-checkout-service/internal/product"
	"github.com/shopspring/decimal"
)

// ErrCompositeCycle means a kit contains itself through its components.
var ErrCompositeCycle = errors.New("composite product contains itself")

// StockReader is the slice of the ledger availability needs.
type StockReader interface {
	CurrentQuantity(ctx context.Context, productID, storeID string) (decimal.Decimal, error)
}

// Resolver answers how many units of a product can be sold at a store.
type Resolver struct {
	catalog product.Catalog
	stock   StockReader
}

func NewResolver(catalog product.Catalog, stock StockReader) *Resolver {
	return &Resolver{catalog: catalog, stock: stock}
}

// Available returns the sellable quantity and whether it is limited at all.
// Untracked products are unlimited. A composite is limited by its scarcest
// tracked component: min over components of floor(on hand / required).
func (r *Resolver) Available(ctx context.Context, p model.Product, storeID string) (decimal.Decimal, bool, error) {
	if p.Kind() == model.KindComposite {
		return r.composite(ctx, p, storeID)
	}
	if !p.TracksStock {
		return decimal.Zero, false, nil
	}
	q, err := r.stock.CurrentQuantity(ctx, p.ID, storeID)
	if err != nil {
		return decimal.Zero, false, err
	}
	return q, true, nil
}

func (r *Resolver) composite(ctx context.Context, p model.Product, storeID string) (decimal.Decimal, bool, error) {
	perKit, err := r.Requirements(ctx, p, decimal.NewFromInt(1))
	if err != nil {
		return decimal.Zero, false, err
	}

	var (
		kits    decimal.Decimal
		limited bool
	)
	for _, req := range perKit {
		onHand, err := r.stock.CurrentQuantity(ctx, req.ProductID, storeID)
		if err != nil {
			return decimal.Zero, false, err
		}
		n := onHand.Div(req.Quantity).Floor()
		if !limited || n.LessThan(kits) {
			kits = n
			limited = true
		}
	}
	return kits, limited, nil
}

// OnHand is the ledger quantity of a single product at a store.
func (r *Resolver) OnHand(ctx context.Context, productID, storeID string) (decimal.Decimal, error) {
	return r.stock.CurrentQuantity(ctx, productID, storeID)
}

// Requirement is the stock one sold line draws from one tracked product.
type Requirement struct {
	ProductID string
	Quantity  decimal.Decimal
}

// Requirements expands qty units of p into the tracked products whose ledger
// it draws from. Composites expand into their components, recursively for
// kits made of kits, with quantities multiplied along the way and summed per
// product in first-seen order. Untracked products draw nothing.
func (r *Resolver) Requirements(ctx context.Context, p model.Product, qty decimal.Decimal) ([]Requirement, error) {
	var reqs []Requirement
	index := map[string]int{}
	add := func(productID string, q decimal.Decimal) {
		if i, ok := index[productID]; ok {
			reqs[i].Quantity = reqs[i].Quantity.Add(q)
			return
		}
		index[productID] = len(reqs)
		reqs = append(reqs, Requirement{ProductID: productID, Quantity: q})
	}
	if err := r.expand(ctx, p, qty, map[string]bool{}, add); err != nil {
		return nil, err
	}
	return reqs, nil
}

func (r *Resolver) expand(ctx context.Context, p model.Product, qty decimal.Decimal, path map[string]bool, add func(string, decimal.Decimal)) error {
	if p.Kind() != model.KindComposite {
		if p.TracksStock {
			add(p.ID, qty)
		}
		return nil
	}
	if path[p.ID] {
		return fmt.Errorf("%w: %s", ErrCompositeCycle, p.ID)
	}
	path[p.ID] = true
	defer delete(path, p.ID)

	for _, c := range p.Components() {
		comp, err := r.catalog.GetProduct(ctx, c.ProductID)
		if err != nil {
			return err
		}
		if err := r.expand(ctx, *comp, c.Quantity.Mul(qty), path, add); err != nil {
			return err
		}
	}
	return nil
}
