package repositories

import (
	"context"

	domain "github.com/waduh12345/hrbalife-sub001/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Carts() CartRepository
	GuestContacts() GuestContactRepository
	Health() HealthRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// CartRepository persists the per-session cart snapshot. Implementations should return a
// RepositoryError with IsNotFound when no cart exists for the session key.
type CartRepository interface {
	Get(ctx context.Context, sessionKey string) (domain.Cart, error)
	Save(ctx context.Context, cart domain.Cart) error
	Delete(ctx context.Context, sessionKey string) error
}

// GuestContactRepository stores the last successful guest checkout contact so later
// visits can prefill the guest form.
type GuestContactRepository interface {
	Get(ctx context.Context, sessionKey string) (domain.GuestContact, error)
	Save(ctx context.Context, sessionKey string, contact domain.GuestContact) error
}

// HealthRepository verifies that the backing store is reachable.
type HealthRepository interface {
	Check(ctx context.Context) error
}
