package auth

import (
	"context"
	"strings"
)

// Identity captures the authenticated shopper details extracted from a session token.
type Identity struct {
	Email string
	Name  string
	Phone string
}

// Normalized returns a copy with whitespace trimmed from every field.
func (i Identity) Normalized() Identity {
	return Identity{
		Email: strings.TrimSpace(i.Email),
		Name:  strings.TrimSpace(i.Name),
		Phone: strings.TrimSpace(i.Phone),
	}
}

type identityContextKey struct{}

// WithIdentity stores the identity on the context for downstream consumers.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// IdentityFromContext retrieves the identity from context when present.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	if ctx == nil {
		return nil, false
	}
	identity, ok := ctx.Value(identityContextKey{}).(*Identity)
	if !ok || identity == nil {
		return nil, false
	}
	return identity, true
}
