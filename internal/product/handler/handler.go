package handler

import (
	"context"

	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/fekuna/omnipos-checkout-service/internal/product"
	"github.com/fekuna/omnipos-checkout-service/internal/rpc"
	"github.com/fekuna/omnipos-checkout-service/pkg/logger"
	"google.golang.org/grpc"
)

const ServiceName = rpc.Package + ".CatalogService"

type GetProductRequest struct {
	ProductID string `json:"product_id"`
}

type ListProductsRequest struct{}

type ListProductsResponse struct {
	Products []model.Product `json:"products"`
}

type ListVariationOptionsResponse struct {
	Options []model.VariationOption `json:"options"`
}

type CatalogServiceServer interface {
	GetProduct(context.Context, *GetProductRequest) (*model.Product, error)
	ListProducts(context.Context, *ListProductsRequest) (*ListProductsResponse, error)
	ListVariationOptions(context.Context, *GetProductRequest) (*ListVariationOptionsResponse, error)
}

var CatalogServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CatalogServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		rpc.Unary(ServiceName, "GetProduct", CatalogServiceServer.GetProduct),
		rpc.Unary(ServiceName, "ListProducts", CatalogServiceServer.ListProducts),
		rpc.Unary(ServiceName, "ListVariationOptions", CatalogServiceServer.ListVariationOptions),
	},
	Metadata: "omnipos/checkout/v1/catalog.proto",
}

func RegisterCatalogServiceServer(s grpc.ServiceRegistrar, srv CatalogServiceServer) {
	s.RegisterService(&CatalogServiceDesc, srv)
}

// ProductHandler exposes the read-only catalog the registers price against.
type ProductHandler struct {
	catalog product.Catalog
	logger  logger.ZapLogger
}

func NewProductHandler(catalog product.Catalog, log logger.ZapLogger) *ProductHandler {
	return &ProductHandler{catalog: catalog, logger: log}
}

func (h *ProductHandler) GetProduct(ctx context.Context, req *GetProductRequest) (*model.Product, error) {
	p, err := h.catalog.GetProduct(ctx, req.ProductID)
	if err != nil {
		return nil, rpc.Status(err)
	}
	return p, nil
}

func (h *ProductHandler) ListProducts(ctx context.Context, _ *ListProductsRequest) (*ListProductsResponse, error) {
	products, err := h.catalog.ListProducts(ctx)
	if err != nil {
		return nil, rpc.Status(err)
	}
	return &ListProductsResponse{Products: products}, nil
}

func (h *ProductHandler) ListVariationOptions(ctx context.Context, req *GetProductRequest) (*ListVariationOptionsResponse, error) {
	opts, err := h.catalog.ListVariationOptions(ctx, req.ProductID)
	if err != nil {
		return nil, rpc.Status(err)
	}
	return &ListVariationOptionsResponse{Options: opts}, nil
}
