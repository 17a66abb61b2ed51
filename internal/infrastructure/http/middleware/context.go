package middleware

import (
	"context"

	"github.com/tienquocbui/pineapple/internal/domain"
)

type contextKey string

const identityContextKey contextKey = "identity_id"

// WithAuth injects the authenticated identity into the context.
func WithAuth(ctx context.Context, id domain.IdentityID) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// AuthFromContext returns the authenticated identity, if any.
func AuthFromContext(ctx context.Context) (domain.IdentityID, bool) {
	id, ok := ctx.Value(identityContextKey).(domain.IdentityID)
	return id, ok
}
