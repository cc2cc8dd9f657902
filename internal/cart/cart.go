package cart

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/fekuna/omnipos-checkout-service/internal/availability"
	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/fekuna/omnipos-checkout-service/internal/pricing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientStock = errors.New("not enough stock")
	ErrItemNotFound      = errors.New("cart item not found")
)

// InsufficientStockError is returned when a cart change would ask for more
// than the store holds. The cart is left unchanged.
type InsufficientStockError struct {
	ProductID string
	StoreID   string
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock for product %s at store %s: requested %s, available %s",
		e.ProductID, e.StoreID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// StockChecker is what the cart needs from the availability layer.
type StockChecker interface {
	Requirements(ctx context.Context, p model.Product, qty decimal.Decimal) ([]availability.Requirement, error)
	OnHand(ctx context.Context, productID, storeID string) (decimal.Decimal, error)
}

type CartItem struct {
	ID                 string                  `json:"id"`
	Product            model.Product           `json:"product"`
	SelectedVariations []model.VariationOption `json:"selected_variations,omitempty"`
	Quantity           decimal.Decimal         `json:"quantity"`
	UnitPrice          decimal.Decimal         `json:"unit_price"`
	Total              decimal.Decimal         `json:"line_total"`
	Notes              string                  `json:"notes,omitempty"`
}

func (i CartItem) LineTotal() decimal.Decimal { return i.Total }

// selectionKey identifies a line: same product, same option ids.
func (i CartItem) selectionKey() string {
	return lineKey(i.Product.ID, i.SelectedVariations)
}

func lineKey(productID string, options []model.VariationOption) string {
	ids := make([]string, len(options))
	for n, o := range options {
		ids[n] = o.ID
	}
	sort.Strings(ids)
	return productID + "|" + strings.Join(ids, ",")
}

// Cart belongs to one checkout session at one store. It reads stock but never
// writes it, and is not safe for concurrent use.
type Cart struct {
	storeID string
	engine  *pricing.Engine
	stock   StockChecker
	items   []*CartItem
}

func New(storeID string, engine *pricing.Engine, stock StockChecker) *Cart {
	return &Cart{storeID: storeID, engine: engine, stock: stock}
}

func (c *Cart) StoreID() string { return c.storeID }

// AddItem prices the line and checks stock before accepting it. Adding a
// product with the same variation selection as an existing line increments
// that line; a different selection opens a new line.
func (c *Cart) AddItem(ctx context.Context, p model.Product, selected []model.VariationOption, quantity decimal.Decimal) (CartItem, error) {
	price, err := c.engine.PriceLineItem(p, selected, quantity)
	if err != nil {
		return CartItem{}, err
	}
	resolved, err := pricing.ResolveSelection(p, selected)
	if err != nil {
		return CartItem{}, err
	}

	key := lineKey(p.ID, resolved)
	for _, it := range c.items {
		if it.selectionKey() != key {
			continue
		}
		next := it.Quantity.Add(quantity)
		if err := c.checkStock(ctx, it.ID, p, next); err != nil {
			return CartItem{}, err
		}
		it.Quantity = next
		it.Total = it.UnitPrice.Mul(next)
		return *it, nil
	}

	if err := c.checkStock(ctx, "", p, quantity); err != nil {
		return CartItem{}, err
	}
	item := &CartItem{
		ID:                 uuid.New().String(),
		Product:            p,
		SelectedVariations: resolved,
		Quantity:           quantity,
		UnitPrice:          price.UnitPrice,
		Total:              price.LineTotal,
	}
	c.items = append(c.items, item)
	return *item, nil
}

// UpdateQuantity changes a line by delta. A result of zero or less removes
// the line.
func (c *Cart) UpdateQuantity(ctx context.Context, itemID string, delta decimal.Decimal) error {
	it := c.find(itemID)
	if it == nil {
		return fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}

	next := it.Quantity.Add(delta)
	if !next.IsPositive() {
		c.RemoveItem(itemID)
		return nil
	}
	if err := pricing.ValidateQuantity(it.Product, next); err != nil {
		return err
	}
	if err := c.checkStock(ctx, it.ID, it.Product, next); err != nil {
		return err
	}
	it.Quantity = next
	it.Total = it.UnitPrice.Mul(next)
	return nil
}

func (c *Cart) SetNotes(itemID, notes string) error {
	it := c.find(itemID)
	if it == nil {
		return fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}
	it.Notes = notes
	return nil
}

func (c *Cart) RemoveItem(itemID string) {
	for n, it := range c.items {
		if it.ID == itemID {
			c.items = append(c.items[:n], c.items[n+1:]...)
			return
		}
	}
}

func (c *Cart) Clear() {
	c.items = nil
}

// Items returns a copy of the lines in add order.
func (c *Cart) Items() []CartItem {
	out := make([]CartItem, len(c.items))
	for n, it := range c.items {
		out[n] = *it
	}
	return out
}

func (c *Cart) IsEmpty() bool { return len(c.items) == 0 }

func (c *Cart) Totals(discount decimal.Decimal) (pricing.Totals, error) {
	priced := make([]pricing.Priced, len(c.items))
	for n, it := range c.items {
		priced[n] = *it
	}
	return c.engine.PriceCart(priced, discount)
}

func (c *Cart) find(itemID string) *CartItem {
	for _, it := range c.items {
		if it.ID == itemID {
			return it
		}
	}
	return nil
}

// checkStock verifies that, with line itemID at qty (or a new line when
// itemID is empty), every tracked product the line draws on is covered by
// on-hand stock across all lines of the cart.
func (c *Cart) checkStock(ctx context.Context, itemID string, p model.Product, qty decimal.Decimal) error {
	reqs, err := c.stock.Requirements(ctx, p, qty)
	if err != nil {
		return err
	}
	if len(reqs) == 0 {
		return nil
	}

	demand := make(map[string]decimal.Decimal)
	for _, r := range reqs {
		demand[r.ProductID] = demand[r.ProductID].Add(r.Quantity)
	}
	for _, it := range c.items {
		if it.ID == itemID {
			continue
		}
		other, err := c.stock.Requirements(ctx, it.Product, it.Quantity)
		if err != nil {
			return err
		}
		for _, r := range other {
			if d, ok := demand[r.ProductID]; ok {
				demand[r.ProductID] = d.Add(r.Quantity)
			}
		}
	}

	for _, r := range reqs {
		need := demand[r.ProductID]
		onHand, err := c.stock.OnHand(ctx, r.ProductID, c.storeID)
		if err != nil {
			return err
		}
		if need.GreaterThan(onHand) {
			return &InsufficientStockError{
				ProductID: r.ProductID,
				StoreID:   c.storeID,
				Requested: need,
				Available: onHand,
			}
		}
	}
	return nil
}
