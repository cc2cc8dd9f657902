package handler

import (
	"context"

	"github.com/fekuna/omnipos-checkout-service/internal/auth"
	"github.com/fekuna/omnipos-checkout-service/internal/cart"
	"github.com/fekuna/omnipos-checkout-service/internal/checkout"
	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/fekuna/omnipos-checkout-service/internal/pricing"
	"github.com/fekuna/omnipos-checkout-service/internal/product"
	"github.com/fekuna/omnipos-checkout-service/internal/rpc"
	"github.com/fekuna/omnipos-checkout-service/pkg/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

const ServiceName = rpc.Package + ".CheckoutService"

type SaleLine struct {
	ProductID string          `json:"product_id"`
	OptionIDs []string        `json:"option_ids"`
	Quantity  decimal.Decimal `json:"quantity"`
	Notes     string          `json:"notes"`
}

type FinalizeSaleRequest struct {
	StoreID  string          `json:"store_id"`
	ActorID  string          `json:"actor_id"`
	Discount decimal.Decimal `json:"discount"`
	Lines    []SaleLine      `json:"lines"`
}

type CheckoutServiceServer interface {
	FinalizeSale(context.Context, *FinalizeSaleRequest) (*checkout.Receipt, error)
}

var CheckoutServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CheckoutServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		rpc.Unary(ServiceName, "FinalizeSale", CheckoutServiceServer.FinalizeSale),
	},
	Metadata: "omnipos/checkout/v1/checkout.proto",
}

func RegisterCheckoutServiceServer(s grpc.ServiceRegistrar, srv CheckoutServiceServer) {
	s.RegisterService(&CheckoutServiceDesc, srv)
}

type CheckoutHandler struct {
	svc     *checkout.Service
	catalog product.Catalog
	engine  *pricing.Engine
	stock   cart.StockChecker
	logger  logger.ZapLogger
}

func NewCheckoutHandler(svc *checkout.Service, catalog product.Catalog, engine *pricing.Engine, stock cart.StockChecker, log logger.ZapLogger) *CheckoutHandler {
	return &CheckoutHandler{
		svc:     svc,
		catalog: catalog,
		engine:  engine,
		stock:   stock,
		logger:  log,
	}
}

// FinalizeSale rebuilds the register's cart server side, so every line goes
// through the same pricing and stock checks, then finalizes it.
func (h *CheckoutHandler) FinalizeSale(ctx context.Context, req *FinalizeSaleRequest) (*checkout.Receipt, error) {
	c := cart.New(req.StoreID, h.engine, h.stock)
	for _, line := range req.Lines {
		p, err := h.catalog.GetProduct(ctx, line.ProductID)
		if err != nil {
			return nil, rpc.Status(err)
		}
		selected := make([]model.VariationOption, len(line.OptionIDs))
		for i, id := range line.OptionIDs {
			selected[i] = model.VariationOption{ID: id}
		}

		item, err := c.AddItem(ctx, *p, selected, line.Quantity)
		if err != nil {
			h.logger.Warn("sale line rejected", zap.String("product_id", line.ProductID), zap.Error(err))
			return nil, rpc.Status(err)
		}
		if line.Notes != "" {
			if err := c.SetNotes(item.ID, line.Notes); err != nil {
				return nil, rpc.Status(err)
			}
		}
	}

	receipt, err := h.svc.FinalizeSale(ctx, c, req.StoreID, auth.ActorOr(ctx, req.ActorID), req.Discount)
	if err != nil {
		return nil, rpc.Status(err)
	}
	return receipt, nil
}
