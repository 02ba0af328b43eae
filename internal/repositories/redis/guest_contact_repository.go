package redisrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	domain "github.com/waduh12345/hrbalife-sub001/internal/domain"
	"github.com/waduh12345/hrbalife-sub001/internal/platform/redisstore"
)

const guestContactKeyPrefix = "guest_contact:"

const defaultGuestContactTTL = 30 * 24 * time.Hour

// GuestContactRepository stores the last guest checkout contact per session.
type GuestContactRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewGuestContactRepository constructs a GuestContactRepository with the given TTL.
func NewGuestContactRepository(client *redis.Client, ttl time.Duration) *GuestContactRepository {
	if ttl <= 0 {
		ttl = defaultGuestContactTTL
	}
	return &GuestContactRepository{client: client, ttl: ttl}
}

type guestContactRecord struct {
	FullName string    `json:"fullName"`
	Email    string    `json:"email"`
	Phone    string    `json:"phone"`
	SavedAt  time.Time `json:"savedAt"`
}

func guestContactKey(sessionKey string) string {
	return guestContactKeyPrefix + sessionKey
}

// Get loads the stored guest contact for the session key.
func (r *GuestContactRepository) Get(ctx context.Context, sessionKey string) (domain.GuestContact, error) {
	sessionKey = strings.TrimSpace(sessionKey)
	if sessionKey == "" {
		return domain.GuestContact{}, redisstore.ConflictError("guest_contact.get", errors.New("session key is required"))
	}

	raw, err := r.client.Get(ctx, guestContactKey(sessionKey)).Bytes()
	if err != nil {
		return domain.GuestContact{}, redisstore.WrapError("guest_contact.get", err)
	}

	var record guestContactRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return domain.GuestContact{}, redisstore.WrapError("guest_contact.get", fmt.Errorf("decoding record: %w", err))
	}

	return domain.GuestContact{
		FullName: record.FullName,
		Email:    record.Email,
		Phone:    record.Phone,
		SavedAt:  record.SavedAt,
	}, nil
}

// Save stores the guest contact and refreshes its TTL.
func (r *GuestContactRepository) Save(ctx context.Context, sessionKey string, contact domain.GuestContact) error {
	sessionKey = strings.TrimSpace(sessionKey)
	if sessionKey == "" {
		return redisstore.ConflictError("guest_contact.save", errors.New("session key is required"))
	}

	raw, err := json.Marshal(guestContactRecord{
		FullName: contact.FullName,
		Email:    contact.Email,
		Phone:    contact.Phone,
		SavedAt:  contact.SavedAt,
	})
	if err != nil {
		return redisstore.WrapError("guest_contact.save", fmt.Errorf("encoding record: %w", err))
	}

	if err := r.client.Set(ctx, guestContactKey(sessionKey), raw, r.ttl).Err(); err != nil {
		return redisstore.WrapError("guest_contact.save", err)
	}
	return nil
}
