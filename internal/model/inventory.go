package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type MovementKind string

const (
	MovementIn         MovementKind = "in"
	MovementOut        MovementKind = "out"
	MovementAdjustment MovementKind = "adjustment"
	MovementTransfer   MovementKind = "transfer"
)

func (k MovementKind) Valid() bool {
	switch k {
	case MovementIn, MovementOut, MovementAdjustment, MovementTransfer:
		return true
	}
	return false
}

// StockMovement is one immutable ledger entry. NewQuantity always equals
// PreviousQuantity + QuantityDelta.
type StockMovement struct {
	ID               string          `db:"id" json:"id"`
	ProductID        string          `db:"product_id" json:"product_id"`
	StoreID          string          `db:"store_id" json:"store_id"`
	Kind             MovementKind    `db:"kind" json:"kind"`
	QuantityDelta    decimal.Decimal `db:"quantity_delta" json:"quantity_delta"`
	PreviousQuantity decimal.Decimal `db:"previous_quantity" json:"previous_quantity"`
	NewQuantity      decimal.Decimal `db:"new_quantity" json:"new_quantity"`
	Reason           string          `db:"reason" json:"reason"`
	ReferenceType    *string         `db:"reference_type" json:"reference_type,omitempty"`
	ReferenceID      *string         `db:"reference_id" json:"reference_id,omitempty"`
	ActorID          string          `db:"actor_id" json:"actor_id"`
	Timestamp        time.Time       `db:"created_at" json:"timestamp"`
}

// StockKey identifies one ledger stream.
type StockKey struct {
	ProductID string `json:"product_id"`
	StoreID   string `json:"store_id"`
}

func (k StockKey) String() string {
	return k.ProductID + "@" + k.StoreID
}

type AlertKind string

const (
	AlertOutOfStock AlertKind = "out_of_stock"
	AlertLowStock   AlertKind = "low_stock"
)

// StockAlert is derived from catalog and ledger state; it is never stored.
type StockAlert struct {
	ProductID string          `json:"product_id"`
	StoreID   string          `json:"store_id"`
	Kind      AlertKind       `json:"kind"`
	Quantity  decimal.Decimal `json:"quantity"`
	Threshold int             `json:"threshold"`
}
