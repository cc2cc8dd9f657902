package dto

import "github.com/fekuna/omnipos-checkout-service/internal/model"

type MovementFilters struct {
	ProductID string
	StoreID   string
	Kind      model.MovementKind
	// ReferenceType and ReferenceID select the movements written by one
	// sale, transfer or count session.
	ReferenceType string
	ReferenceID   string
	Page          int
	PageSize      int
}

// Matches reports whether m passes the filters. Used by the in-memory store.
func (f *MovementFilters) Matches(m model.StockMovement) bool {
	if f.ProductID != "" && m.ProductID != f.ProductID {
		return false
	}
	if f.StoreID != "" && m.StoreID != f.StoreID {
		return false
	}
	if f.Kind != "" && m.Kind != f.Kind {
		return false
	}
	if f.ReferenceType != "" && (m.ReferenceType == nil || *m.ReferenceType != f.ReferenceType) {
		return false
	}
	if f.ReferenceID != "" && (m.ReferenceID == nil || *m.ReferenceID != f.ReferenceID) {
		return false
	}
	return true
}
