package usecase

import (
	"context"
	"testing"

	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/fekuna/omnipos-checkout-service/internal/product"
	"github.com/fekuna/omnipos-checkout-service/internal/product/repository"
	"github.com/fekuna/omnipos-checkout-service/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalog(t *testing.T) product.Catalog {
	t.Helper()
	shirt, err := model.NewVariableProduct("shirt", "Shirt", decimal.NewFromInt(20), true, 2, []model.VariationOption{
		{ID: "blue", GroupName: "Color", Value: "Blue"},
		{ID: "g", GroupName: "Size", Value: "G", PriceAdjustment: decimal.NewFromInt(3)},
	})
	require.NoError(t, err)

	repo := repository.NewMemoryRepository(
		model.NewSimpleProduct("a", "Product A", decimal.NewFromInt(10), true, 5),
		shirt,
	)
	return NewCatalogUseCase(repo, nil, logger.NewNop())
}

func TestGetProduct(t *testing.T) {
	catalog := newCatalog(t)

	p, err := catalog.GetProduct(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "Product A", p.Name)

	_, err = catalog.GetProduct(context.Background(), "missing")
	assert.ErrorIs(t, err, product.ErrProductNotFound)
}

func TestListVariationOptions(t *testing.T) {
	catalog := newCatalog(t)

	opts, err := catalog.ListVariationOptions(context.Background(), "shirt")
	require.NoError(t, err)
	assert.Len(t, opts, 2)

	opts, err = catalog.ListVariationOptions(context.Background(), "a")
	require.NoError(t, err)
	assert.Empty(t, opts)
}

func TestListProducts(t *testing.T) {
	products, err := newCatalog(t).ListProducts(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 2)
}
