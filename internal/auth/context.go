package auth

import (
	"context"
	"errors"

	"github.com/kerdahl/authentication-samples/internal/biz"
)

type contextKey int

const identityKey contextKey = iota

var (
	// ErrNoIdentityInContext is returned when no identity is found in context
	ErrNoIdentityInContext = errors.New("no authenticated identity in context")
)

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *biz.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext extracts the authenticated identity from request context
func IdentityFromContext(ctx context.Context) (*biz.Identity, error) {
	id, ok := ctx.Value(identityKey).(*biz.Identity)
	if !ok || id == nil {
		return nil, ErrNoIdentityInContext
	}
	return id, nil
}
