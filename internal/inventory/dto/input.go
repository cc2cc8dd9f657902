package dto

import (
	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/shopspring/decimal"
)

type MovementInput struct {
	ProductID     string
	StoreID       string
	Kind          model.MovementKind
	QuantityDelta decimal.Decimal
	Reason        string
	ActorID       string
	ReferenceType string // 'sale', 'transfer', 'inventory_count', 'manual'
	ReferenceID   string
}

func (in MovementInput) Key() model.StockKey {
	return model.StockKey{ProductID: in.ProductID, StoreID: in.StoreID}
}

type TransferInput struct {
	ProductID     string
	SourceStoreID string
	TargetStoreID string
	Quantity      decimal.Decimal
	Reason        string
	ActorID       string
}
