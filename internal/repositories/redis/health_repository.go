package redisrepo

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/waduh12345/hrbalife-sub001/internal/platform/redisstore"
)

// HealthRepository reports whether the Redis backend answers pings.
type HealthRepository struct {
	client *redis.Client
}

// NewHealthRepository constructs a HealthRepository.
func NewHealthRepository(client *redis.Client) *HealthRepository {
	return &HealthRepository{client: client}
}

// Check pings the backend once.
func (r *HealthRepository) Check(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return redisstore.WrapError("health.check", err)
	}
	return nil
}
