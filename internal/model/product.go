package model

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

type ProductKind string

const (
	KindSimple     ProductKind = "simple"
	KindVariable   ProductKind = "variable"
	KindComposite  ProductKind = "composite"
	KindFractional ProductKind = "fractional"
)

// Product is a catalog entry. Its kind-specific shape lives in Details, which
// is one of SimpleDetails, VariableDetails, CompositeDetails or
// FractionalDetails. Build products through the New*Product constructors.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	BasePrice   decimal.Decimal `json:"base_price"`
	TracksStock bool            `json:"tracks_stock"`
	MinStock    int             `json:"min_stock"`
	Details     Details         `json:"-"`
}

// Details is sealed: only the types in this package implement it.
type Details interface {
	Kind() ProductKind
	sealed()
}

type SimpleDetails struct{}

type VariableDetails struct {
	Options []VariationOption
}

type CompositeDetails struct {
	Components []Component
}

type FractionalDetails struct {
	Unit string
}

func (SimpleDetails) Kind() ProductKind     { return KindSimple }
func (VariableDetails) Kind() ProductKind   { return KindVariable }
func (CompositeDetails) Kind() ProductKind  { return KindComposite }
func (FractionalDetails) Kind() ProductKind { return KindFractional }

func (SimpleDetails) sealed()     {}
func (VariableDetails) sealed()   {}
func (CompositeDetails) sealed()  {}
func (FractionalDetails) sealed() {}

type VariationOption struct {
	ID              string          `json:"id"`
	GroupName       string          `json:"group_name"`
	Value           string          `json:"value"`
	PriceAdjustment decimal.Decimal `json:"price_adjustment"`
	// Stock is informational; the ledger keeps quantities per product.
	Stock int `json:"stock"`
}

// Component is one line of a kit's bill of materials.
type Component struct {
	ProductID string          `json:"component_product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

var (
	ErrNoVariationOptions = errors.New("variable product requires at least one variation option")
	ErrNoComponents       = errors.New("composite product requires at least one component")
	ErrMissingUnit        = errors.New("fractional product requires a unit")
	ErrBadComponent       = errors.New("component quantity must be positive")
)

func NewSimpleProduct(id, name string, basePrice decimal.Decimal, tracksStock bool, minStock int) Product {
	return Product{ID: id, Name: name, BasePrice: basePrice, TracksStock: tracksStock, MinStock: minStock, Details: SimpleDetails{}}
}

func NewVariableProduct(id, name string, basePrice decimal.Decimal, tracksStock bool, minStock int, options []VariationOption) (Product, error) {
	if len(options) == 0 {
		return Product{}, ErrNoVariationOptions
	}
	return Product{
		ID: id, Name: name, BasePrice: basePrice, TracksStock: tracksStock, MinStock: minStock,
		Details: VariableDetails{Options: options},
	}, nil
}

// NewCompositeProduct never tracks stock on the kit itself; availability is
// derived from its components.
func NewCompositeProduct(id, name string, basePrice decimal.Decimal, components []Component) (Product, error) {
	if len(components) == 0 {
		return Product{}, ErrNoComponents
	}
	for _, c := range components {
		if c.ProductID == "" || !c.Quantity.IsPositive() {
			return Product{}, fmt.Errorf("%w: %q", ErrBadComponent, c.ProductID)
		}
	}
	return Product{
		ID: id, Name: name, BasePrice: basePrice, TracksStock: false,
		Details: CompositeDetails{Components: components},
	}, nil
}

func NewFractionalProduct(id, name string, basePrice decimal.Decimal, tracksStock bool, minStock int, unit string) (Product, error) {
	if unit == "" {
		return Product{}, ErrMissingUnit
	}
	return Product{
		ID: id, Name: name, BasePrice: basePrice, TracksStock: tracksStock, MinStock: minStock,
		Details: FractionalDetails{Unit: unit},
	}, nil
}

// Kind reports the product kind. A product built without details is simple.
func (p Product) Kind() ProductKind {
	if p.Details == nil {
		return KindSimple
	}
	return p.Details.Kind()
}

func (p Product) IsFractional() bool { return p.Kind() == KindFractional }

func (p Product) VariationOptions() []VariationOption {
	if d, ok := p.Details.(VariableDetails); ok {
		return d.Options
	}
	return nil
}

func (p Product) Components() []Component {
	if d, ok := p.Details.(CompositeDetails); ok {
		return d.Components
	}
	return nil
}

func (p Product) Unit() string {
	if d, ok := p.Details.(FractionalDetails); ok {
		return d.Unit
	}
	return "un"
}

// VariationGroups returns the distinct group names in declaration order.
func (p Product) VariationGroups() []string {
	var groups []string
	seen := map[string]bool{}
	for _, o := range p.VariationOptions() {
		if !seen[o.GroupName] {
			seen[o.GroupName] = true
			groups = append(groups, o.GroupName)
		}
	}
	return groups
}
