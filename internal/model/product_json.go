package model

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// productJSON is the flat wire shape of a Product.
type productJSON struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Kind             ProductKind       `json:"kind"`
	BasePrice        decimal.Decimal   `json:"base_price"`
	TracksStock      bool              `json:"tracks_stock"`
	MinStock         int               `json:"min_stock"`
	Unit             string            `json:"unit,omitempty"`
	VariationOptions []VariationOption `json:"variation_options,omitempty"`
	Composition      []Component       `json:"composition,omitempty"`
}

func (p Product) MarshalJSON() ([]byte, error) {
	out := productJSON{
		ID:          p.ID,
		Name:        p.Name,
		Kind:        p.Kind(),
		BasePrice:   p.BasePrice,
		TracksStock: p.TracksStock,
		MinStock:    p.MinStock,
	}
	switch d := p.Details.(type) {
	case VariableDetails:
		out.VariationOptions = d.Options
	case CompositeDetails:
		out.Composition = d.Components
	case FractionalDetails:
		out.Unit = d.Unit
	}
	return json.Marshal(out)
}

func (p *Product) UnmarshalJSON(data []byte) error {
	var in productJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	var (
		built Product
		err   error
	)
	switch in.Kind {
	case KindSimple, "":
		built = NewSimpleProduct(in.ID, in.Name, in.BasePrice, in.TracksStock, in.MinStock)
	case KindVariable:
		built, err = NewVariableProduct(in.ID, in.Name, in.BasePrice, in.TracksStock, in.MinStock, in.VariationOptions)
	case KindComposite:
		built, err = NewCompositeProduct(in.ID, in.Name, in.BasePrice, in.Composition)
	case KindFractional:
		built, err = NewFractionalProduct(in.ID, in.Name, in.BasePrice, in.TracksStock, in.MinStock, in.Unit)
	default:
		return fmt.Errorf("unknown product kind %q", in.Kind)
	}
	if err != nil {
		return err
	}

	*p = built
	return nil
}
