package pricing

import (
	"errors"
	"fmt"

	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidVariationSelection = errors.New("invalid variation selection")
	ErrInvalidQuantity           = errors.New("invalid quantity")
	ErrInvalidDiscount           = errors.New("discount cannot be negative")
	ErrInvalidTaxRate            = errors.New("tax rate cannot be negative")
)

// DefaultTaxRate is the flat rate used when configuration supplies none.
var DefaultTaxRate = decimal.RequireFromString("0.05")

type LinePrice struct {
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type Totals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	GrandTotal     decimal.Decimal `json:"grand_total"`
}

// Priced is anything carrying a line total, typically a cart item.
type Priced interface {
	LineTotal() decimal.Decimal
}

type Engine struct {
	taxRate decimal.Decimal
}

func NewEngine(taxRate decimal.Decimal) (*Engine, error) {
	if taxRate.IsNegative() {
		return nil, ErrInvalidTaxRate
	}
	return &Engine{taxRate: taxRate}, nil
}

func (e *Engine) TaxRate() decimal.Decimal { return e.taxRate }

// PriceLineItem resolves the unit price from the base price plus the
// adjustments of the selected options, and multiplies by quantity.
func (e *Engine) PriceLineItem(p model.Product, selected []model.VariationOption, quantity decimal.Decimal) (LinePrice, error) {
	if err := ValidateQuantity(p, quantity); err != nil {
		return LinePrice{}, err
	}
	resolved, err := ResolveSelection(p, selected)
	if err != nil {
		return LinePrice{}, err
	}

	unit := p.BasePrice
	for _, o := range resolved {
		unit = unit.Add(o.PriceAdjustment)
	}
	return LinePrice{UnitPrice: unit, LineTotal: unit.Mul(quantity)}, nil
}

// PriceCart sums line totals, applies the flat tax and subtracts the
// externally supplied discount. The grand total never goes below zero.
func (e *Engine) PriceCart(items []Priced, discount decimal.Decimal) (Totals, error) {
	if discount.IsNegative() {
		return Totals{}, ErrInvalidDiscount
	}

	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.LineTotal())
	}
	tax := subtotal.Mul(e.taxRate)

	grand := subtotal.Add(tax).Sub(discount)
	if grand.IsNegative() {
		grand = decimal.Zero
	}

	return Totals{
		Subtotal:       subtotal,
		TaxAmount:      tax,
		DiscountAmount: discount,
		GrandTotal:     grand,
	}, nil
}

// ValidateQuantity requires a positive quantity, integral unless the product
// is sold by weight or volume.
func ValidateQuantity(p model.Product, quantity decimal.Decimal) error {
	if !quantity.IsPositive() {
		return fmt.Errorf("%w: %s must be greater than zero", ErrInvalidQuantity, quantity)
	}
	if !p.IsFractional() && !quantity.IsInteger() {
		return fmt.Errorf("%w: %s is not a whole number for %s product %s", ErrInvalidQuantity, quantity, p.Kind(), p.ID)
	}
	return nil
}

// ResolveSelection checks that a variable product has exactly one selected
// option per declared group and returns the catalog's own option records, so
// a caller cannot smuggle in a different price adjustment. Non-variable
// products accept no selection.
func ResolveSelection(p model.Product, selected []model.VariationOption) ([]model.VariationOption, error) {
	if p.Kind() != model.KindVariable {
		if len(selected) > 0 {
			return nil, fmt.Errorf("%w: %s product %s has no variations", ErrInvalidVariationSelection, p.Kind(), p.ID)
		}
		return nil, nil
	}

	byID := make(map[string]model.VariationOption)
	for _, o := range p.VariationOptions() {
		byID[o.ID] = o
	}

	picked := make(map[string]bool)
	resolved := make([]model.VariationOption, 0, len(selected))
	for _, s := range selected {
		o, ok := byID[s.ID]
		if !ok {
			return nil, fmt.Errorf("%w: option %q does not belong to product %s", ErrInvalidVariationSelection, s.ID, p.ID)
		}
		if picked[o.GroupName] {
			return nil, fmt.Errorf("%w: group %q selected more than once", ErrInvalidVariationSelection, o.GroupName)
		}
		picked[o.GroupName] = true
		resolved = append(resolved, o)
	}

	for _, g := range p.VariationGroups() {
		if !picked[g] {
			return nil, fmt.Errorf("%w: group %q has no selection", ErrInvalidVariationSelection, g)
		}
	}
	return resolved, nil
}
