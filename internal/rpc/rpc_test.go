package rpc

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/fekuna/omnipos-checkout-service/internal/cart"
	"github.com/fekuna/omnipos-checkout-service/internal/inventory"
	"github.com/fekuna/omnipos-checkout-service/internal/pricing"
	"github.com/fekuna/omnipos-checkout-service/internal/product"
	"github.com/fekuna/omnipos-checkout-service/internal/reconciliation"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestCode(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{fmt.Errorf("%w: x", product.ErrProductNotFound), codes.NotFound},
		{reconciliation.ErrSessionNotFound, codes.NotFound},
		{pricing.ErrInvalidVariationSelection, codes.InvalidArgument},
		{inventory.ErrMissingReason, codes.InvalidArgument},
		{&inventory.NegativeStockError{Current: decimal.Zero, Delta: decimal.NewFromInt(-1)}, codes.FailedPrecondition},
		{&cart.InsufficientStockError{}, codes.FailedPrecondition},
		{reconciliation.ErrSessionClosed, codes.FailedPrecondition},
		{inventory.ErrConcurrentUpdate, codes.Aborted},
		{inventory.ErrLockTimeout, codes.Unavailable},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{errors.New("boom"), codes.Internal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Code(tt.err), tt.err.Error())
	}
}

func TestStatusKeepsExistingStatus(t *testing.T) {
	orig := status.Error(codes.PermissionDenied, "nope")
	assert.Equal(t, orig, Status(orig))
	assert.NoError(t, Status(nil))
	assert.Equal(t, codes.InvalidArgument, status.Code(Status(inventory.ErrSameStore)))
}

type echoRequest struct{ Msg string }
type echoResponse struct{ Msg string }
type echoServer interface {
	Echo(context.Context, *echoRequest) (*echoResponse, error)
}
type echoImpl struct{}

func (echoImpl) Echo(_ context.Context, req *echoRequest) (*echoResponse, error) {
	return &echoResponse{Msg: req.Msg}, nil
}

func TestUnaryRunsInterceptor(t *testing.T) {
	desc := Unary("test.Echo", "Echo", echoServer.Echo)
	assert.Equal(t, "Echo", desc.MethodName)

	dec := func(v interface{}) error {
		v.(*echoRequest).Msg = "hi"
		return nil
	}
	var seen string
	interceptor := func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		seen = info.FullMethod
		return handler(ctx, req)
	}

	out, err := desc.Handler(echoImpl{}, context.Background(), dec, interceptor)
	assert.NoError(t, err)
	assert.Equal(t, "hi", out.(*echoResponse).Msg)
	assert.Equal(t, "/test.Echo/Echo", seen)

	out, err = desc.Handler(echoImpl{}, context.Background(), dec, nil)
	assert.NoError(t, err)
	assert.Equal(t, "hi", out.(*echoResponse).Msg)
}
