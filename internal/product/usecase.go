package product

import (
	"context"
	"errors"

	"github.com/fekuna/omnipos-checkout-service/internal/model"
)

var ErrProductNotFound = errors.New("product not found")

// Catalog is the read-only product view the core consumes.
type Catalog interface {
	GetProduct(ctx context.Context, productID string) (*model.Product, error)
	ListVariationOptions(ctx context.Context, productID string) ([]model.VariationOption, error)
	ListProducts(ctx context.Context) ([]model.Product, error)
}
