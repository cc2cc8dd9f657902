// Package rpc holds the pieces shared by the gRPC handlers: unary method
// descriptors for hand-declared services and the domain error to status
// mapping.
package rpc

import (
	"context"
	"errors"

	"github.com/fekuna/omnipos-checkout-service/internal/availability"
	"github.com/fekuna/omnipos-checkout-service/internal/cart"
	"github.com/fekuna/omnipos-checkout-service/internal/checkout"
	"github.com/fekuna/omnipos-checkout-service/internal/inventory"
	"github.com/fekuna/omnipos-checkout-service/internal/pricing"
	"github.com/fekuna/omnipos-checkout-service/internal/product"
	"github.com/fekuna/omnipos-checkout-service/internal/reconciliation"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const Package = "omnipos.checkout.v1"

// Unary builds a method descriptor that decodes Req, runs the interceptor
// chain and calls fn on the registered server.
func Unary[S any, Req any, Resp any](service, method string, fn func(srv S, ctx context.Context, req *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + service + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return fn(srv.(S), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return fn(srv.(S), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// Status maps a domain error to a gRPC status error.
func Status(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(Code(err), err.Error())
}

func Code(err error) codes.Code {
	switch {
	case errors.Is(err, product.ErrProductNotFound),
		errors.Is(err, cart.ErrItemNotFound),
		errors.Is(err, reconciliation.ErrSessionNotFound):
		return codes.NotFound

	case errors.Is(err, pricing.ErrInvalidVariationSelection),
		errors.Is(err, pricing.ErrInvalidQuantity),
		errors.Is(err, pricing.ErrInvalidDiscount),
		errors.Is(err, inventory.ErrMissingReason),
		errors.Is(err, inventory.ErrInvalidMovementKind),
		errors.Is(err, inventory.ErrInvalidDelta),
		errors.Is(err, inventory.ErrSameStore),
		errors.Is(err, inventory.ErrMissingIdentity),
		errors.Is(err, inventory.ErrEmptyBatch),
		errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrStoreMismatch),
		errors.Is(err, checkout.ErrMissingActor),
		errors.Is(err, reconciliation.ErrInvalidCount),
		errors.Is(err, reconciliation.ErrMissingIdentity):
		return codes.InvalidArgument

	case errors.Is(err, inventory.ErrNegativeStock),
		errors.Is(err, cart.ErrInsufficientStock),
		errors.Is(err, inventory.ErrCompositeNotStocked),
		errors.Is(err, availability.ErrCompositeCycle),
		errors.Is(err, reconciliation.ErrSessionClosed),
		errors.Is(err, reconciliation.ErrProductNotTracked):
		return codes.FailedPrecondition

	case errors.Is(err, inventory.ErrConcurrentUpdate):
		return codes.Aborted
	case errors.Is(err, inventory.ErrLockTimeout):
		return codes.Unavailable
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	}
	return codes.Internal
}
