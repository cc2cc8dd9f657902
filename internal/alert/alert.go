package alert

import (
	"context"

	"github.com/fekuna/omnipos-checkout-service/internal/inventory"
	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/fekuna/omnipos-checkout-service/internal/product"
	"github.com/shopspring/decimal"
)

// Evaluate derives stock alerts from catalog and ledger state. It has no side
// effects; output order is not meaningful. When stores is empty the stores
// present in the snapshot are used.
func Evaluate(products []model.Product, stores []string, snap inventory.Snapshot) []model.StockAlert {
	if len(stores) == 0 {
		stores = snap.Stores()
	}

	var alerts []model.StockAlert
	for _, p := range products {
		if !p.TracksStock {
			continue
		}
		for _, s := range stores {
			if a, ok := Check(p, s, snap.Quantity(p.ID, s)); ok {
				alerts = append(alerts, a)
			}
		}
	}
	return alerts
}

// Check evaluates one product/store pair.
func Check(p model.Product, storeID string, qty decimal.Decimal) (model.StockAlert, bool) {
	if !p.TracksStock {
		return model.StockAlert{}, false
	}
	a := model.StockAlert{ProductID: p.ID, StoreID: storeID, Quantity: qty, Threshold: p.MinStock}
	switch {
	case qty.IsZero():
		a.Kind = model.AlertOutOfStock
	case qty.LessThanOrEqual(decimal.NewFromInt(int64(p.MinStock))):
		a.Kind = model.AlertLowStock
	default:
		return model.StockAlert{}, false
	}
	return a, true
}

// SnapshotReader is the slice of the ledger the alert service needs.
type SnapshotReader interface {
	Snapshot(ctx context.Context) (inventory.Snapshot, error)
}

// Service evaluates alerts against live catalog and ledger state without
// taking any ledger lock.
type Service struct {
	catalog product.Catalog
	ledger  SnapshotReader
}

func NewService(catalog product.Catalog, ledger SnapshotReader) *Service {
	return &Service{catalog: catalog, ledger: ledger}
}

func (s *Service) ListAlerts(ctx context.Context, storeIDs []string) ([]model.StockAlert, error) {
	products, err := s.catalog.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	snap, err := s.ledger.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return Evaluate(products, storeIDs, snap), nil
}
