package model

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type CountState string

const (
	CountNotStarted CountState = "not_started"
	CountInProgress CountState = "in_progress"
	CountFinalized  CountState = "finalized"
)

// CountLine is one product in a count session. SystemQuantity is captured
// the first time the product is counted and never re-read.
type CountLine struct {
	ProductID       string          `db:"product_id" json:"product_id"`
	SystemQuantity  decimal.Decimal `db:"system_quantity" json:"system_quantity"`
	CountedQuantity decimal.Decimal `db:"counted_quantity" json:"counted_quantity"`
}

func (l CountLine) Delta() decimal.Decimal {
	return l.CountedQuantity.Sub(l.SystemQuantity)
}

type CountSession struct {
	ID          string               `db:"id" json:"id"`
	StoreID     string               `db:"store_id" json:"store_id"`
	ActorID     string               `db:"actor_id" json:"actor_id"`
	State       CountState           `db:"state" json:"state"`
	Lines       map[string]CountLine `db:"-" json:"lines"`
	Movements   []StockMovement      `db:"-" json:"movements,omitempty"`
	StartedAt   time.Time            `db:"started_at" json:"started_at"`
	FinalizedAt *time.Time           `db:"finalized_at" json:"finalized_at,omitempty"`
}

// SortedLines returns the lines ordered by product id.
func (s *CountSession) SortedLines() []CountLine {
	lines := make([]CountLine, 0, len(s.Lines))
	for _, l := range s.Lines {
		lines = append(lines, l)
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })
	return lines
}

// Clone copies the session deep enough that callers cannot mutate a stored
// value.
func (s *CountSession) Clone() *CountSession {
	c := *s
	c.Lines = make(map[string]CountLine, len(s.Lines))
	for k, v := range s.Lines {
		c.Lines[k] = v
	}
	c.Movements = append([]StockMovement(nil), s.Movements...)
	if s.FinalizedAt != nil {
		t := *s.FinalizedAt
		c.FinalizedAt = &t
	}
	return &c
}
