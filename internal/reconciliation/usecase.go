package reconciliation

import (
	"context"
	"errors"

	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/shopspring/decimal"
)

var (
	ErrSessionNotFound   = errors.New("count session not found")
	ErrSessionClosed     = errors.New("count session is already finalized")
	ErrInvalidCount      = errors.New("invalid counted quantity")
	ErrProductNotTracked = errors.New("product does not track stock")
	ErrMissingIdentity   = errors.New("store and actor are required")
)

// UseCase runs inventory count sessions against the stock ledger.
type UseCase interface {
	StartSession(ctx context.Context, storeID, actorID string) (*model.CountSession, error)
	RecordCount(ctx context.Context, sessionID, productID string, counted decimal.Decimal) (*model.CountLine, error)
	// FinalizeSession writes one adjustment per differing line. Calling it
	// again on a finalized session returns the original movements.
	FinalizeSession(ctx context.Context, sessionID string) ([]model.StockMovement, error)
	GetSession(ctx context.Context, sessionID string) (*model.CountSession, error)
}

// Repository persists count sessions across requests.
type Repository interface {
	// FindByID returns nil, nil when the session does not exist.
	FindByID(ctx context.Context, id string) (*model.CountSession, error)
	Save(ctx context.Context, s *model.CountSession) error
}
