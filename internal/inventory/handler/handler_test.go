package handler

import (
	"context"
	"net"
	"testing"

	"github.com/fekuna/omnipos-checkout-service/internal/alert"
	"github.com/fekuna/omnipos-checkout-service/internal/availability"
	"github.com/fekuna/omnipos-checkout-service/internal/inventory/repository"
	"github.com/fekuna/omnipos-checkout-service/internal/inventory/usecase"
	"github.com/fekuna/omnipos-checkout-service/internal/model"
	productrepo "github.com/fekuna/omnipos-checkout-service/internal/product/repository"
	productuc "github.com/fekuna/omnipos-checkout-service/internal/product/usecase"
	"github.com/fekuna/omnipos-checkout-service/pkg/codec"
	"github.com/fekuna/omnipos-checkout-service/pkg/logger"
	"github.com/fekuna/omnipos-checkout-service/pkg/middleware"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func dial(t *testing.T) *grpc.ClientConn {
	t.Helper()
	kit, err := model.NewCompositeProduct("kit", "Kit", decimal.NewFromInt(25), []model.Component{
		{ProductID: "A", Quantity: decimal.NewFromInt(2)},
		{ProductID: "fee", Quantity: decimal.NewFromInt(1)},
	})
	require.NoError(t, err)
	catalog := productuc.NewCatalogUseCase(productrepo.NewMemoryRepository(
		model.NewSimpleProduct("A", "Product A", decimal.NewFromInt(10), true, 5),
		model.NewSimpleProduct("fee", "Service fee", decimal.NewFromInt(2), false, 0),
		kit,
	), nil, logger.NewNop())
	uc := usecase.NewInventoryUseCase(repository.NewMemoryRepository(), usecase.NewLocalLocker(), catalog, logger.NewNop())

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnaryInterceptor(middleware.ContextInterceptor()))
	RegisterStockServiceServer(srv, NewInventoryHandler(uc, catalog, availability.NewResolver(catalog, uc), alert.NewService(catalog, uc), logger.NewNop()))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codec.Name)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func method(name string) string { return "/" + ServiceName + "/" + name }

func TestStockServiceOverGRPC(t *testing.T) {
	conn := dial(t)
	ctx := metadata.AppendToOutgoingContext(context.Background(), "x-actor-id", "clerk-7")

	var m model.StockMovement
	err := conn.Invoke(ctx, method("ApplyMovement"), &ApplyMovementRequest{
		ProductID: "A", StoreID: "s1", Kind: model.MovementIn, QuantityDelta: decimal.NewFromInt(3),
	}, &m)
	require.NoError(t, err)
	assert.Equal(t, "clerk-7", m.ActorID)
	assert.Equal(t, "manual", *m.ReferenceType)

	var stock StockResponse
	require.NoError(t, conn.Invoke(ctx, method("GetStock"), &GetStockRequest{ProductID: "A", StoreID: "s1"}, &stock))
	assert.True(t, stock.Quantity.Equal(decimal.NewFromInt(3)))
	assert.True(t, stock.Limited)

	var alerts ListAlertsResponse
	require.NoError(t, conn.Invoke(ctx, method("ListAlerts"), &ListAlertsRequest{}, &alerts))
	require.Len(t, alerts.Alerts, 1)
	assert.Equal(t, model.AlertLowStock, alerts.Alerts[0].Kind)

	var legs MovementsResponse
	require.NoError(t, conn.Invoke(ctx, method("TransferStock"), &TransferStockRequest{
		ProductID: "A", SourceStoreID: "s1", TargetStoreID: "s2", Quantity: decimal.NewFromInt(1),
	}, &legs))
	assert.Len(t, legs.Movements, 2)

	var list MovementsResponse
	require.NoError(t, conn.Invoke(ctx, method("ListMovements"), &ListMovementsRequest{StoreID: "s1"}, &list))
	assert.Equal(t, 2, list.Total)
}

func TestStockServiceErrorCodes(t *testing.T) {
	conn := dial(t)
	ctx := context.Background()

	var m model.StockMovement
	err := conn.Invoke(ctx, method("ApplyMovement"), &ApplyMovementRequest{
		ProductID: "A", StoreID: "s1", Kind: model.MovementOut, QuantityDelta: decimal.NewFromInt(-5), ActorID: "x",
	}, &m)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	err = conn.Invoke(ctx, method("ApplyMovement"), &ApplyMovementRequest{
		ProductID: "A", StoreID: "s1", Kind: model.MovementAdjustment, QuantityDelta: decimal.NewFromInt(1), ActorID: "x",
	}, &m)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	err = conn.Invoke(ctx, method("ApplyMovement"), &ApplyMovementRequest{
		ProductID: "ghost", StoreID: "s1", Kind: model.MovementIn, QuantityDelta: decimal.NewFromInt(1), ActorID: "x",
	}, &m)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestGetStockDerivesKitAvailability(t *testing.T) {
	conn := dial(t)
	ctx := context.Background()

	var m model.StockMovement
	require.NoError(t, conn.Invoke(ctx, method("ApplyMovement"), &ApplyMovementRequest{
		ProductID: "A", StoreID: "s1", Kind: model.MovementIn, QuantityDelta: decimal.NewFromInt(7), ActorID: "x",
	}, &m))

	var stock StockResponse
	require.NoError(t, conn.Invoke(ctx, method("GetStock"), &GetStockRequest{ProductID: "kit", StoreID: "s1"}, &stock))
	assert.True(t, stock.Limited)
	assert.True(t, stock.Quantity.Equal(decimal.NewFromInt(3)), "7 A / 2 per kit floors to 3, got %s", stock.Quantity)

	require.NoError(t, conn.Invoke(ctx, method("GetStock"), &GetStockRequest{ProductID: "fee", StoreID: "s1"}, &stock))
	assert.False(t, stock.Limited)

	err := conn.Invoke(ctx, method("GetStock"), &GetStockRequest{ProductID: "ghost", StoreID: "s1"}, &stock)
	assert.Equal(t, codes.NotFound, status.Code(err))
}
