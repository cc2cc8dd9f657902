package middleware

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

type contextKey string

const (
	ActorIDKey   contextKey = "actor_id"
	RequestIDKey contextKey = "request_id"
)

// ContextInterceptor copies the caller identity headers set by the gateway
// into the request context.
func ContextInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if val := md.Get("x-actor-id"); len(val) > 0 {
				ctx = context.WithValue(ctx, ActorIDKey, val[0])
			}
			if val := md.Get("x-request-id"); len(val) > 0 {
				ctx = context.WithValue(ctx, RequestIDKey, val[0])
			}
		}
		return handler(ctx, req)
	}
}
