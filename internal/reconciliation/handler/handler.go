package handler

import (
	"context"

	"github.com/fekuna/omnipos-checkout-service/internal/auth"
	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/fekuna/omnipos-checkout-service/internal/reconciliation"
	"github.com/fekuna/omnipos-checkout-service/internal/rpc"
	"github.com/fekuna/omnipos-checkout-service/pkg/logger"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
)

const ServiceName = rpc.Package + ".CountService"

type StartCountRequest struct {
	StoreID string `json:"store_id"`
	ActorID string `json:"actor_id"`
}

type RecordCountRequest struct {
	SessionID       string          `json:"session_id"`
	ProductID       string          `json:"product_id"`
	CountedQuantity decimal.Decimal `json:"counted_quantity"`
}

type SessionRequest struct {
	SessionID string `json:"session_id"`
}

type FinalizeCountResponse struct {
	Movements []model.StockMovement `json:"movements"`
}

type CountServiceServer interface {
	StartCount(context.Context, *StartCountRequest) (*model.CountSession, error)
	RecordCount(context.Context, *RecordCountRequest) (*model.CountLine, error)
	FinalizeCount(context.Context, *SessionRequest) (*FinalizeCountResponse, error)
	GetCount(context.Context, *SessionRequest) (*model.CountSession, error)
}

var CountServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CountServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		rpc.Unary(ServiceName, "StartCount", CountServiceServer.StartCount),
		rpc.Unary(ServiceName, "RecordCount", CountServiceServer.RecordCount),
		rpc.Unary(ServiceName, "FinalizeCount", CountServiceServer.FinalizeCount),
		rpc.Unary(ServiceName, "GetCount", CountServiceServer.GetCount),
	},
	Metadata: "omnipos/checkout/v1/count.proto",
}

func RegisterCountServiceServer(s grpc.ServiceRegistrar, srv CountServiceServer) {
	s.RegisterService(&CountServiceDesc, srv)
}

type CountHandler struct {
	uc     reconciliation.UseCase
	logger logger.ZapLogger
}

func NewCountHandler(uc reconciliation.UseCase, log logger.ZapLogger) *CountHandler {
	return &CountHandler{uc: uc, logger: log}
}

func (h *CountHandler) StartCount(ctx context.Context, req *StartCountRequest) (*model.CountSession, error) {
	s, err := h.uc.StartSession(ctx, req.StoreID, auth.ActorOr(ctx, req.ActorID))
	if err != nil {
		return nil, rpc.Status(err)
	}
	return s, nil
}

func (h *CountHandler) RecordCount(ctx context.Context, req *RecordCountRequest) (*model.CountLine, error) {
	line, err := h.uc.RecordCount(ctx, req.SessionID, req.ProductID, req.CountedQuantity)
	if err != nil {
		return nil, rpc.Status(err)
	}
	return line, nil
}

func (h *CountHandler) FinalizeCount(ctx context.Context, req *SessionRequest) (*FinalizeCountResponse, error) {
	movements, err := h.uc.FinalizeSession(ctx, req.SessionID)
	if err != nil {
		return nil, rpc.Status(err)
	}
	if movements == nil {
		movements = []model.StockMovement{}
	}
	return &FinalizeCountResponse{Movements: movements}, nil
}

func (h *CountHandler) GetCount(ctx context.Context, req *SessionRequest) (*model.CountSession, error) {
	s, err := h.uc.GetSession(ctx, req.SessionID)
	if err != nil {
		return nil, rpc.Status(err)
	}
	return s, nil
}
