package auth

import (
	"context"

	"github.com/fekuna/omnipos-checkout-service/pkg/middleware"
	"google.golang.org/grpc/metadata"
)

// GetActorID returns the caller identity set by ContextInterceptor, falling
// back to the raw x-actor-id header. Permission checks happen upstream.
func GetActorID(ctx context.Context) string {
	if val, ok := ctx.Value(middleware.ActorIDKey).(string); ok {
		return val
	}

	md, ok := metadata.FromIncomingContext(ctx)
	if ok {
		if val := md.Get("x-actor-id"); len(val) > 0 {
			return val[0]
		}
	}
	return ""
}

// ActorOr prefers an explicit actor from the request body.
func ActorOr(ctx context.Context, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return GetActorID(ctx)
}
