package redisrepo

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/waduh12345/hrbalife-sub001/internal/repositories"
)

// Options tunes persistence behaviour for the Redis backed registry.
type Options struct {
	CartTTL         time.Duration
	GuestContactTTL time.Duration
}

// Registry implements repositories.Registry on top of a shared Redis client.
type Registry struct {
	client *redis.Client

	carts         *CartRepository
	guestContacts *GuestContactRepository
	health        *HealthRepository
}

// NewRegistry wires the typed repositories around the provided client.
func NewRegistry(client *redis.Client, opts Options) (*Registry, error) {
	if client == nil {
		return nil, errors.New("redisrepo: client is required")
	}
	return &Registry{
		client:        client,
		carts:         NewCartRepository(client, opts.CartTTL),
		guestContacts: NewGuestContactRepository(client, opts.GuestContactTTL),
		health:        NewHealthRepository(client),
	}, nil
}

// Close releases the underlying client connection pool.
func (r *Registry) Close(ctx context.Context) error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}

// Carts returns the cart snapshot repository.
func (r *Registry) Carts() repositories.CartRepository { return r.carts }

// GuestContacts returns the guest contact prefill repository.
func (r *Registry) GuestContacts() repositories.GuestContactRepository { return r.guestContacts }

// Health returns the connectivity checker.
func (r *Registry) Health() repositories.HealthRepository { return r.health }
