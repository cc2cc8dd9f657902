package pricing

import (
	"math/rand"
	"testing"

	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func shirt(t *testing.T) model.Product {
	t.Helper()
	p, err := model.NewVariableProduct("shirt", "Shirt", d("20.00"), true, 1, []model.VariationOption{
		{ID: "blue", GroupName: "Color", Value: "Blue", PriceAdjustment: d("0")},
		{ID: "red", GroupName: "Color", Value: "Red", PriceAdjustment: d("2.00")},
		{ID: "m", GroupName: "Size", Value: "M", PriceAdjustment: d("0")},
		{ID: "g", GroupName: "Size", Value: "G", PriceAdjustment: d("3.00")},
	})
	require.NoError(t, err)
	return p
}

func newEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultTaxRate)
	require.NoError(t, err)
	return e
}

type line decimal.Decimal

func (l line) LineTotal() decimal.Decimal { return decimal.Decimal(l) }

func TestPriceLineItem_MissingGroupRejected(t *testing.T) {
	e := newEngine(t)
	p := shirt(t)

	_, err := e.PriceLineItem(p, []model.VariationOption{{ID: "blue"}}, d("1"))
	assert.ErrorIs(t, err, ErrInvalidVariationSelection)
}

func TestPriceLineItem_FullSelection(t *testing.T) {
	e := newEngine(t)
	p := shirt(t)

	price, err := e.PriceLineItem(p, []model.VariationOption{{ID: "blue"}, {ID: "g"}}, d("2"))
	require.NoError(t, err)
	assert.True(t, price.UnitPrice.Equal(d("23.00")), "unit price %s", price.UnitPrice)
	assert.True(t, price.LineTotal.Equal(d("46.00")))
}

func TestPriceLineItem_UsesCatalogAdjustment(t *testing.T) {
	e := newEngine(t)
	p := shirt(t)

	// the caller-supplied adjustment is ignored in favour of the catalog's
	price, err := e.PriceLineItem(p, []model.VariationOption{
		{ID: "red", PriceAdjustment: d("-100")},
		{ID: "m"},
	}, d("1"))
	require.NoError(t, err)
	assert.True(t, price.UnitPrice.Equal(d("22.00")))
}

func TestPriceLineItem_SelectionErrors(t *testing.T) {
	e := newEngine(t)
	p := shirt(t)

	cases := map[string][]model.VariationOption{
		"duplicate group": {{ID: "blue"}, {ID: "red"}, {ID: "m"}},
		"unknown option":  {{ID: "blue"}, {ID: "xl"}},
		"nothing":         nil,
	}
	for name, sel := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := e.PriceLineItem(p, sel, d("1"))
			assert.ErrorIs(t, err, ErrInvalidVariationSelection)
		})
	}

	simple := model.NewSimpleProduct("a", "A", d("10"), true, 5)
	_, err := e.PriceLineItem(simple, []model.VariationOption{{ID: "blue"}}, d("1"))
	assert.ErrorIs(t, err, ErrInvalidVariationSelection)
}

func TestPriceLineItem_Quantity(t *testing.T) {
	e := newEngine(t)
	simple := model.NewSimpleProduct("a", "A", d("10.00"), true, 5)
	rice, err := model.NewFractionalProduct("rice", "Rice", d("7.90"), true, 2, "kg")
	require.NoError(t, err)

	_, err = e.PriceLineItem(simple, nil, d("0"))
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = e.PriceLineItem(simple, nil, d("-1"))
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = e.PriceLineItem(simple, nil, d("1.5"))
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	price, err := e.PriceLineItem(rice, nil, d("0.250"))
	require.NoError(t, err)
	assert.True(t, price.LineTotal.Equal(d("1.975")))

	_, err = e.PriceLineItem(rice, nil, d("0"))
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestPriceLineItem_LinearInQuantity(t *testing.T) {
	e := newEngine(t)
	p := shirt(t)
	sel := []model.VariationOption{{ID: "red"}, {ID: "g"}}

	one, err := e.PriceLineItem(p, sel, d("1"))
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		q := decimal.NewFromInt(int64(rng.Intn(1000) + 1))
		got, err := e.PriceLineItem(p, sel, q)
		require.NoError(t, err)
		assert.True(t, got.LineTotal.Equal(one.LineTotal.Mul(q)), "q=%s", q)
	}
}

func TestPriceCart_SubtotalHasNoDrift(t *testing.T) {
	e := newEngine(t)

	items := make([]Priced, 0, 1000)
	for i := 0; i < 1000; i++ {
		items = append(items, line(d("0.10")))
	}

	totals, err := e.PriceCart(items, decimal.Zero)
	require.NoError(t, err)
	assert.True(t, totals.Subtotal.Equal(d("100")), "subtotal %s", totals.Subtotal)
	assert.True(t, totals.TaxAmount.Equal(d("5")))
	assert.True(t, totals.GrandTotal.Equal(d("105")))
}

func TestPriceCart_DiscountFloorsAtZero(t *testing.T) {
	e := newEngine(t)

	totals, err := e.PriceCart([]Priced{line(d("10.00"))}, d("50"))
	require.NoError(t, err)
	assert.True(t, totals.GrandTotal.IsZero())
	assert.True(t, totals.DiscountAmount.Equal(d("50")))

	totals, err = e.PriceCart([]Priced{line(d("10.00")), line(d("20.00"))}, d("1.50"))
	require.NoError(t, err)
	assert.True(t, totals.GrandTotal.Equal(d("30.00")), "grand %s", totals.GrandTotal)

	_, err = e.PriceCart(nil, d("-1"))
	assert.ErrorIs(t, err, ErrInvalidDiscount)
}

func TestPriceCart_Empty(t *testing.T) {
	totals, err := newEngine(t).PriceCart(nil, decimal.Zero)
	require.NoError(t, err)
	assert.True(t, totals.GrandTotal.IsZero())
}

func TestNewEngineRejectsNegativeRate(t *testing.T) {
	_, err := NewEngine(d("-0.01"))
	assert.ErrorIs(t, err, ErrInvalidTaxRate)
}
