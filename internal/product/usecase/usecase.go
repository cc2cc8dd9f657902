package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/fekuna/omnipos-checkout-service/internal/product"
	"github.com/fekuna/omnipos-checkout-service/pkg/cache"
	"github.com/fekuna/omnipos-checkout-service/pkg/logger"
	"go.uber.org/zap"
)

const productCacheTTL = 5 * time.Minute

type catalogUseCase struct {
	repo   product.Repository
	cache  *cache.RedisClient
	logger logger.ZapLogger
}

// NewCatalogUseCase returns a read-through catalog. A nil cache disables
// caching; cache failures fall back to the repository.
func NewCatalogUseCase(repo product.Repository, cache *cache.RedisClient, log logger.ZapLogger) product.Catalog {
	return &catalogUseCase{
		repo:   repo,
		cache:  cache,
		logger: log,
	}
}

func (uc *catalogUseCase) GetProduct(ctx context.Context, productID string) (*model.Product, error) {
	key := productCacheKey(productID)
	if uc.cache != nil {
		val, err := uc.cache.Client.Get(ctx, key).Bytes()
		if err == nil {
			var p model.Product
			if err := json.Unmarshal(val, &p); err == nil {
				return &p, nil
			}
		}
	}

	p, err := uc.repo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: %s", product.ErrProductNotFound, productID)
	}

	if uc.cache != nil {
		if data, err := json.Marshal(p); err == nil {
			if err := uc.cache.Client.Set(ctx, key, data, productCacheTTL).Err(); err != nil {
				uc.logger.Warn("failed to cache product", zap.String("product_id", productID), zap.Error(err))
			}
		}
	}
	return p, nil
}

func (uc *catalogUseCase) ListVariationOptions(ctx context.Context, productID string) ([]model.VariationOption, error) {
	p, err := uc.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	return p.VariationOptions(), nil
}

func (uc *catalogUseCase) ListProducts(ctx context.Context) ([]model.Product, error) {
	return uc.repo.FindAll(ctx)
}

func productCacheKey(productID string) string {
	return fmt.Sprintf("catalog:product:%s", productID)
}
