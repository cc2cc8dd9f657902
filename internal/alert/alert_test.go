package alert

import (
	"context"
	"testing"

	"github.com/fekuna/omnipos-checkout-service/internal/event"
	"github.com/fekuna/omnipos-checkout-service/internal/inventory"
	"github.com/fekuna/omnipos-checkout-service/internal/model"
	productrepo "github.com/fekuna/omnipos-checkout-service/internal/product/repository"
	productuc "github.com/fekuna/omnipos-checkout-service/internal/product/usecase"
	"github.com/fekuna/omnipos-checkout-service/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func productA() model.Product {
	return model.NewSimpleProduct("A", "Product A", decimal.NewFromInt(10), true, 5)
}

func TestEvaluateLowStock(t *testing.T) {
	snap := inventory.Snapshot{{ProductID: "A", StoreID: "s1"}: decimal.NewFromInt(3)}

	alerts := Evaluate([]model.Product{productA()}, []string{"s1"}, snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, "A", alerts[0].ProductID)
	assert.Equal(t, model.AlertLowStock, alerts[0].Kind)
	assert.True(t, alerts[0].Quantity.Equal(decimal.NewFromInt(3)))
	assert.Equal(t, 5, alerts[0].Threshold)
}

func TestEvaluate(t *testing.T) {
	untracked := model.NewSimpleProduct("U", "Service fee", decimal.NewFromInt(2), false, 5)
	plenty := model.NewSimpleProduct("B", "Product B", decimal.NewFromInt(1), true, 5)
	products := []model.Product{productA(), untracked, plenty}

	snap := inventory.Snapshot{
		{ProductID: "A", StoreID: "s1"}: decimal.Zero,
		{ProductID: "A", StoreID: "s2"}: decimal.NewFromInt(5),
		{ProductID: "B", StoreID: "s1"}: decimal.NewFromInt(6),
		{ProductID: "B", StoreID: "s2"}: decimal.NewFromInt(40),
	}

	alerts := Evaluate(products, nil, snap)
	assert.ElementsMatch(t, []model.StockAlert{
		{ProductID: "A", StoreID: "s1", Kind: model.AlertOutOfStock, Quantity: decimal.Zero, Threshold: 5},
		{ProductID: "A", StoreID: "s2", Kind: model.AlertLowStock, Quantity: decimal.NewFromInt(5), Threshold: 5},
	}, alerts)

	// no state change, same set
	assert.ElementsMatch(t, alerts, Evaluate(products, nil, snap))
}

func TestEvaluateMissingPairIsOutOfStock(t *testing.T) {
	alerts := Evaluate([]model.Product{productA()}, []string{"s9"}, inventory.Snapshot{})
	require.Len(t, alerts, 1)
	assert.Equal(t, model.AlertOutOfStock, alerts[0].Kind)
}

type stubLedger struct{ snap inventory.Snapshot }

func (s stubLedger) Snapshot(context.Context) (inventory.Snapshot, error) { return s.snap, nil }

func TestServiceListAlerts(t *testing.T) {
	catalog := productuc.NewCatalogUseCase(productrepo.NewMemoryRepository(productA()), nil, logger.NewNop())
	svc := NewService(catalog, stubLedger{snap: inventory.Snapshot{
		{ProductID: "A", StoreID: "s1"}: decimal.NewFromInt(3),
	}})

	alerts, err := svc.ListAlerts(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, model.AlertLowStock, alerts[0].Kind)
}

func TestWatcherPublishesFinalStateOnly(t *testing.T) {
	catalog := productuc.NewCatalogUseCase(productrepo.NewMemoryRepository(productA()), nil, logger.NewNop())
	rec := &event.Recorder{}
	w := NewWatcher(catalog, rec, logger.NewNop())

	w.MovementsApplied(context.Background(), []model.StockMovement{
		{ProductID: "A", StoreID: "s1", NewQuantity: decimal.NewFromInt(2)},
		{ProductID: "A", StoreID: "s1", NewQuantity: decimal.NewFromInt(20)},
		{ProductID: "A", StoreID: "s2", NewQuantity: decimal.Zero},
		{ProductID: "ghost", StoreID: "s1", NewQuantity: decimal.Zero},
	})

	events := rec.OfType(event.StockAlertRaised)
	require.Len(t, events, 1)
	assert.Equal(t, "A@s2", events[0].Key)
	a, ok := events[0].Payload.(model.StockAlert)
	require.True(t, ok)
	assert.Equal(t, model.AlertOutOfStock, a.Kind)
}
