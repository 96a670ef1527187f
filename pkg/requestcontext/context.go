// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets the values, services and the Directory client read them:
//
//	ctx = requestcontext.WithRequestID(ctx, requestID)
//	requestID := requestcontext.RequestID(ctx)
package requestcontext

import (
	"context"

	id "vetdesk/pkg/domain"
)

type (
	requestIDKey struct{}
	ownerIDKey   struct{}
)

// RequestID returns the correlation id, or "" when none is set.
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// OwnerID returns the owner the operator is acting for, or the nil id.
func OwnerID(ctx context.Context) id.OwnerID {
	if v, ok := ctx.Value(ownerIDKey{}).(id.OwnerID); ok {
		return v
	}
	return id.OwnerID{}
}

func WithOwnerID(ctx context.Context, ownerID id.OwnerID) context.Context {
	return context.WithValue(ctx, ownerIDKey{}, ownerID)
}
