package handler

import (
	"context"
	"testing"

	"github.com/fekuna/omnipos-checkout-service/internal/availability"
	"github.com/fekuna/omnipos-checkout-service/internal/checkout"
	"github.com/fekuna/omnipos-checkout-service/internal/event"
	"github.com/fekuna/omnipos-checkout-service/internal/inventory"
	"github.com/fekuna/omnipos-checkout-service/internal/inventory/dto"
	invrepo "github.com/fekuna/omnipos-checkout-service/internal/inventory/repository"
	invuc "github.com/fekuna/omnipos-checkout-service/internal/inventory/usecase"
	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/fekuna/omnipos-checkout-service/internal/pricing"
	productrepo "github.com/fekuna/omnipos-checkout-service/internal/product/repository"
	productuc "github.com/fekuna/omnipos-checkout-service/internal/product/usecase"
	"github.com/fekuna/omnipos-checkout-service/pkg/logger"
	"github.com/fekuna/omnipos-checkout-service/pkg/middleware"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func newHandler(t *testing.T) (*CheckoutHandler, inventory.UseCase) {
	t.Helper()
	shirt, err := model.NewVariableProduct("shirt", "Shirt", decimal.NewFromInt(20), true, 0, []model.VariationOption{
		{ID: "blue", GroupName: "Color", Value: "Blue"},
		{ID: "g", GroupName: "Size", Value: "G", PriceAdjustment: decimal.NewFromInt(3)},
	})
	require.NoError(t, err)
	catalog := productuc.NewCatalogUseCase(productrepo.NewMemoryRepository(
		model.NewSimpleProduct("A", "Product A", decimal.NewFromInt(10), true, 5),
		shirt,
	), nil, logger.NewNop())

	ledger := invuc.NewInventoryUseCase(invrepo.NewMemoryRepository(), invuc.NewLocalLocker(), catalog, logger.NewNop())
	for _, id := range []string{"A", "shirt"} {
		_, err := ledger.ApplyMovement(context.Background(), &dto.MovementInput{
			ProductID: id, StoreID: "s1", Kind: model.MovementIn, QuantityDelta: decimal.NewFromInt(3), ActorID: "x",
		})
		require.NoError(t, err)
	}

	resolver := availability.NewResolver(catalog, ledger)
	engine, err := pricing.NewEngine(pricing.DefaultTaxRate)
	require.NoError(t, err)
	svc := checkout.NewService(ledger, resolver, &event.Recorder{}, logger.NewNop())
	return NewCheckoutHandler(svc, catalog, engine, resolver, logger.NewNop()), ledger
}

func TestFinalizeSaleHandler(t *testing.T) {
	h, ledger := newHandler(t)
	ctx := context.WithValue(context.Background(), middleware.ActorIDKey, "cashier-9")

	receipt, err := h.FinalizeSale(ctx, &FinalizeSaleRequest{
		StoreID: "s1",
		Lines: []SaleLine{
			{ProductID: "A", Quantity: decimal.NewFromInt(2), Notes: "bag"},
			{ProductID: "shirt", OptionIDs: []string{"blue", "g"}, Quantity: decimal.NewFromInt(1)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "cashier-9", receipt.ActorID)
	assert.True(t, receipt.Totals.Subtotal.Equal(decimal.NewFromInt(43)))
	assert.Equal(t, "bag", receipt.Lines[0].Notes)

	q, err := ledger.CurrentQuantity(ctx, "A", "s1")
	require.NoError(t, err)
	assert.True(t, q.Equal(decimal.NewFromInt(1)))
}

func TestFinalizeSaleHandlerErrors(t *testing.T) {
	h, _ := newHandler(t)
	ctx := context.Background()

	_, err := h.FinalizeSale(ctx, &FinalizeSaleRequest{
		StoreID: "s1", ActorID: "x",
		Lines: []SaleLine{{ProductID: "A", Quantity: decimal.NewFromInt(4)}},
	})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	_, err = h.FinalizeSale(ctx, &FinalizeSaleRequest{
		StoreID: "s1", ActorID: "x",
		Lines: []SaleLine{{ProductID: "shirt", OptionIDs: []string{"blue"}, Quantity: decimal.NewFromInt(1)}},
	})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = h.FinalizeSale(ctx, &FinalizeSaleRequest{StoreID: "s1", ActorID: "x"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = h.FinalizeSale(ctx, &FinalizeSaleRequest{
		StoreID: "s1", ActorID: "x",
		Lines: []SaleLine{{ProductID: "nope", Quantity: decimal.NewFromInt(1)}},
	})
	assert.Equal(t, codes.NotFound, status.Code(err))
}
