package handler

import (
	"context"

	"github.com/fekuna/omnipos-checkout-service/internal/auth"
	"github.com/fekuna/omnipos-checkout-service/internal/inventory"
	"github.com/fekuna/omnipos-checkout-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/fekuna/omnipos-checkout-service/internal/product"
	"github.com/fekuna/omnipos-checkout-service/internal/rpc"
	"github.com/fekuna/omnipos-checkout-service/pkg/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

const ServiceName = rpc.Package + ".StockService"

type GetStockRequest struct {
	ProductID string `json:"product_id"`
	StoreID   string `json:"store_id"`
}

// StockResponse carries the sellable quantity. For a kit that is the number
// of kits its scarcest component allows; Limited is false for products that
// do not track stock.
type StockResponse struct {
	ProductID string          `json:"product_id"`
	StoreID   string          `json:"store_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	Limited   bool            `json:"limited"`
}

type ApplyMovementRequest struct {
	ProductID     string             `json:"product_id"`
	StoreID       string             `json:"store_id"`
	Kind          model.MovementKind `json:"kind"`
	QuantityDelta decimal.Decimal    `json:"quantity_delta"`
	Reason        string             `json:"reason"`
	ActorID       string             `json:"actor_id"`
	ReferenceType string             `json:"reference_type"`
	ReferenceID   string             `json:"reference_id"`
}

type TransferStockRequest struct {
	ProductID     string          `json:"product_id"`
	SourceStoreID string          `json:"source_store_id"`
	TargetStoreID string          `json:"target_store_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	Reason        string          `json:"reason"`
	ActorID       string          `json:"actor_id"`
}

type ListMovementsRequest struct {
	ProductID     string             `json:"product_id"`
	StoreID       string             `json:"store_id"`
	Kind          model.MovementKind `json:"kind"`
	ReferenceType string             `json:"reference_type"`
	ReferenceID   string             `json:"reference_id"`
	Page          int                `json:"page"`
	PageSize      int                `json:"page_size"`
}

type MovementsResponse struct {
	Movements []model.StockMovement `json:"movements"`
	Total     int                   `json:"total"`
}

type ListAlertsRequest struct {
	StoreIDs []string `json:"store_ids"`
}

type ListAlertsResponse struct {
	Alerts []model.StockAlert `json:"alerts"`
}

// StockResolver is satisfied by availability.Resolver.
type StockResolver interface {
	Available(ctx context.Context, p model.Product, storeID string) (decimal.Decimal, bool, error)
}

// AlertLister is satisfied by alert.Service.
type AlertLister interface {
	ListAlerts(ctx context.Context, storeIDs []string) ([]model.StockAlert, error)
}

type StockServiceServer interface {
	GetStock(context.Context, *GetStockRequest) (*StockResponse, error)
	ApplyMovement(context.Context, *ApplyMovementRequest) (*model.StockMovement, error)
	TransferStock(context.Context, *TransferStockRequest) (*MovementsResponse, error)
	ListMovements(context.Context, *ListMovementsRequest) (*MovementsResponse, error)
	ListAlerts(context.Context, *ListAlertsRequest) (*ListAlertsResponse, error)
}

var StockServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*StockServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		rpc.Unary(ServiceName, "GetStock", StockServiceServer.GetStock),
		rpc.Unary(ServiceName, "ApplyMovement", StockServiceServer.ApplyMovement),
		rpc.Unary(ServiceName, "TransferStock", StockServiceServer.TransferStock),
		rpc.Unary(ServiceName, "ListMovements", StockServiceServer.ListMovements),
		rpc.Unary(ServiceName, "ListAlerts", StockServiceServer.ListAlerts),
	},
	Metadata: "omnipos/checkout/v1/stock.proto",
}

func RegisterStockServiceServer(s grpc.ServiceRegistrar, srv StockServiceServer) {
	s.RegisterService(&StockServiceDesc, srv)
}

type InventoryHandler struct {
	uc      inventory.UseCase
	catalog product.Catalog
	stock   StockResolver
	alerts  AlertLister
	logger  logger.ZapLogger
}

func NewInventoryHandler(uc inventory.UseCase, catalog product.Catalog, stock StockResolver, alerts AlertLister, log logger.ZapLogger) *InventoryHandler {
	return &InventoryHandler{
		uc:      uc,
		catalog: catalog,
		stock:   stock,
		alerts:  alerts,
		logger:  log,
	}
}

func (h *InventoryHandler) GetStock(ctx context.Context, req *GetStockRequest) (*StockResponse, error) {
	p, err := h.catalog.GetProduct(ctx, req.ProductID)
	if err != nil {
		return nil, rpc.Status(err)
	}
	qty, limited, err := h.stock.Available(ctx, *p, req.StoreID)
	if err != nil {
		return nil, rpc.Status(err)
	}
	return &StockResponse{ProductID: p.ID, StoreID: req.StoreID, Quantity: qty, Limited: limited}, nil
}

func (h *InventoryHandler) ApplyMovement(ctx context.Context, req *ApplyMovementRequest) (*model.StockMovement, error) {
	input := &dto.MovementInput{
		ProductID:     req.ProductID,
		StoreID:       req.StoreID,
		Kind:          req.Kind,
		QuantityDelta: req.QuantityDelta,
		Reason:        req.Reason,
		ActorID:       auth.ActorOr(ctx, req.ActorID),
		ReferenceType: req.ReferenceType,
		ReferenceID:   req.ReferenceID,
	}
	if input.ReferenceType == "" {
		input.ReferenceType = "manual"
	}

	m, err := h.uc.ApplyMovement(ctx, input)
	if err != nil {
		h.logger.Warn("stock movement rejected",
			zap.String("product_id", req.ProductID),
			zap.String("store_id", req.StoreID),
			zap.Error(err),
		)
		return nil, rpc.Status(err)
	}
	return m, nil
}

func (h *InventoryHandler) TransferStock(ctx context.Context, req *TransferStockRequest) (*MovementsResponse, error) {
	legs, err := h.uc.Transfer(ctx, &dto.TransferInput{
		ProductID:     req.ProductID,
		SourceStoreID: req.SourceStoreID,
		TargetStoreID: req.TargetStoreID,
		Quantity:      req.Quantity,
		Reason:        req.Reason,
		ActorID:       auth.ActorOr(ctx, req.ActorID),
	})
	if err != nil {
		return nil, rpc.Status(err)
	}
	return &MovementsResponse{Movements: legs, Total: len(legs)}, nil
}

func (h *InventoryHandler) ListMovements(ctx context.Context, req *ListMovementsRequest) (*MovementsResponse, error) {
	mvs, count, err := h.uc.ListMovements(ctx, &dto.MovementFilters{
		ProductID:     req.ProductID,
		StoreID:       req.StoreID,
		Kind:          req.Kind,
		ReferenceType: req.ReferenceType,
		ReferenceID:   req.ReferenceID,
		Page:          req.Page,
		PageSize:      req.PageSize,
	})
	if err != nil {
		return nil, rpc.Status(err)
	}
	return &MovementsResponse{Movements: mvs, Total: count}, nil
}

func (h *InventoryHandler) ListAlerts(ctx context.Context, req *ListAlertsRequest) (*ListAlertsResponse, error) {
	alerts, err := h.alerts.ListAlerts(ctx, req.StoreIDs)
	if err != nil {
		return nil, rpc.Status(err)
	}
	if alerts == nil {
		alerts = []model.StockAlert{}
	}
	return &ListAlertsResponse{Alerts: alerts}, nil
}
