package checkout

import (
	"context"
	"testing"

	"github.com/fekuna/omnipos-checkout-service/internal/availability"
	"github.com/fekuna/omnipos-checkout-service/internal/cart"
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
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	ledger   inventory.UseCase
	resolver *availability.Resolver
	engine   *pricing.Engine
	events   *event.Recorder
	svc      *Service
	a, b     model.Product
	kit, fee model.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	a := model.NewSimpleProduct("A", "Product A", decimal.NewFromInt(10), true, 5)
	b := model.NewSimpleProduct("B", "Product B", decimal.NewFromInt(4), true, 0)
	fee := model.NewSimpleProduct("fee", "Service fee", decimal.NewFromInt(2), false, 0)
	kit, err := model.NewCompositeProduct("kit", "Kit", decimal.NewFromInt(25), []model.Component{
		{ProductID: "A", Quantity: decimal.NewFromInt(2)},
		{ProductID: "B", Quantity: decimal.NewFromInt(1)},
	})
	require.NoError(t, err)

	catalog := productuc.NewCatalogUseCase(productrepo.NewMemoryRepository(a, b, fee, kit), nil, logger.NewNop())
	ledger := invuc.NewInventoryUseCase(invrepo.NewMemoryRepository(), invuc.NewLocalLocker(), catalog, logger.NewNop())
	resolver := availability.NewResolver(catalog, ledger)
	engine, err := pricing.NewEngine(pricing.DefaultTaxRate)
	require.NoError(t, err)
	rec := &event.Recorder{}

	return &fixture{
		ledger: ledger, resolver: resolver, engine: engine, events: rec,
		svc: NewService(ledger, resolver, rec, logger.NewNop()),
		a:   a, b: b, kit: kit, fee: fee,
	}
}

func (f *fixture) stock(t *testing.T, productID string, qty int64) {
	t.Helper()
	_, err := f.ledger.ApplyMovement(context.Background(), &dto.MovementInput{
		ProductID: productID, StoreID: "s1", Kind: model.MovementIn,
		QuantityDelta: decimal.NewFromInt(qty), ActorID: "receiving",
	})
	require.NoError(t, err)
}

func (f *fixture) onHand(t *testing.T, productID string) decimal.Decimal {
	t.Helper()
	q, err := f.ledger.CurrentQuantity(context.Background(), productID, "s1")
	require.NoError(t, err)
	return q
}

func TestFinalizeSale(t *testing.T) {
	f := newFixture(t)
	f.stock(t, "A", 10)
	f.stock(t, "B", 5)
	ctx := context.Background()

	c := cart.New("s1", f.engine, f.resolver)
	_, err := c.AddItem(ctx, f.a, nil, decimal.NewFromInt(2))
	require.NoError(t, err)
	_, err = c.AddItem(ctx, f.kit, nil, decimal.NewFromInt(1))
	require.NoError(t, err)
	_, err = c.AddItem(ctx, f.fee, nil, decimal.NewFromInt(1))
	require.NoError(t, err)

	receipt, err := f.svc.FinalizeSale(ctx, c, "s1", "cashier-1", decimal.Zero)
	require.NoError(t, err)

	assert.Len(t, receipt.Lines, 3)
	assert.True(t, receipt.Totals.Subtotal.Equal(decimal.NewFromInt(47)))
	require.Len(t, receipt.Movements, 3)
	for _, m := range receipt.Movements {
		assert.Equal(t, model.MovementOut, m.Kind)
		assert.Equal(t, "cashier-1", m.ActorID)
		require.NotNil(t, m.ReferenceID)
		assert.Equal(t, receipt.ID, *m.ReferenceID)
	}

	assert.True(t, f.onHand(t, "A").Equal(decimal.NewFromInt(6)))
	assert.True(t, f.onHand(t, "B").Equal(decimal.NewFromInt(4)))
	assert.True(t, c.IsEmpty())
	assert.Len(t, f.events.OfType(event.SaleFinalized), 1)
}

func TestFinalizeSaleIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	f.stock(t, "A", 3)
	f.stock(t, "B", 3)
	ctx := context.Background()

	c := cart.New("s1", f.engine, f.resolver)
	_, err := c.AddItem(ctx, f.b, nil, decimal.NewFromInt(2))
	require.NoError(t, err)
	_, err = c.AddItem(ctx, f.a, nil, decimal.NewFromInt(3))
	require.NoError(t, err)

	// another register sells A after the cart checked stock
	_, err = f.ledger.ApplyMovement(ctx, &dto.MovementInput{
		ProductID: "A", StoreID: "s1", Kind: model.MovementOut,
		QuantityDelta: decimal.NewFromInt(-1), ActorID: "cashier-2",
	})
	require.NoError(t, err)

	_, err = f.svc.FinalizeSale(ctx, c, "s1", "cashier-1", decimal.Zero)
	assert.ErrorIs(t, err, inventory.ErrNegativeStock)

	assert.True(t, f.onHand(t, "B").Equal(decimal.NewFromInt(3)))
	assert.True(t, f.onHand(t, "A").Equal(decimal.NewFromInt(2)))
	assert.Len(t, c.Items(), 2)
	assert.Empty(t, f.events.OfType(event.SaleFinalized))
}

func TestFinalizeSaleGuards(t *testing.T) {
	f := newFixture(t)
	f.stock(t, "A", 3)
	ctx := context.Background()

	c := cart.New("s1", f.engine, f.resolver)
	_, err := f.svc.FinalizeSale(ctx, c, "s1", "cashier", decimal.Zero)
	assert.ErrorIs(t, err, ErrEmptyCart)

	_, err = c.AddItem(ctx, f.a, nil, decimal.NewFromInt(1))
	require.NoError(t, err)

	_, err = f.svc.FinalizeSale(ctx, c, "s2", "cashier", decimal.Zero)
	assert.ErrorIs(t, err, ErrStoreMismatch)
	_, err = f.svc.FinalizeSale(ctx, c, "s1", "", decimal.Zero)
	assert.ErrorIs(t, err, ErrMissingActor)
	_, err = f.svc.FinalizeSale(ctx, c, "s1", "cashier", decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, pricing.ErrInvalidDiscount)

	assert.True(t, f.onHand(t, "A").Equal(decimal.NewFromInt(3)))
}

func TestFinalizeSaleUntrackedOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c := cart.New("s1", f.engine, f.resolver)
	_, err := c.AddItem(ctx, f.fee, nil, decimal.NewFromInt(2))
	require.NoError(t, err)

	receipt, err := f.svc.FinalizeSale(ctx, c, "s1", "cashier", decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.Empty(t, receipt.Movements)
	assert.True(t, receipt.Totals.GrandTotal.IsZero())
}
