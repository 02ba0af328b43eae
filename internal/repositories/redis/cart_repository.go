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

const cartKeyPrefix = "cart:"

const defaultCartTTL = 14 * 24 * time.Hour

// CartRepository persists cart snapshots as JSON documents keyed by session.
type CartRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCartRepository constructs a CartRepository with the given snapshot TTL.
func NewCartRepository(client *redis.Client, ttl time.Duration) *CartRepository {
	if ttl <= 0 {
		ttl = defaultCartTTL
	}
	return &CartRepository{client: client, ttl: ttl}
}

// cartSnapshot is the stored wire shape. The nested state object mirrors what the
// storefront clients persisted historically, so existing sessions keep their carts.
type cartSnapshot struct {
	State     cartState `json:"state"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type cartState struct {
	CartItems []cartItemRecord `json:"cartItems"`
}

type cartItemRecord struct {
	ID          string     `json:"id"`
	ProductID   int64      `json:"productId"`
	VariantID   int64      `json:"productVariantId"`
	SizeID      int64      `json:"sizeId"`
	Price       int64      `json:"price"`
	Qty         int        `json:"qty"`
	Stock       int        `json:"stock"`
	Image       string     `json:"image"`
	Name        string     `json:"name"`
	VariantName string     `json:"variantName,omitempty"`
	SizeName    string     `json:"sizeName,omitempty"`
	AddedAt     time.Time  `json:"addedAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

func cartKey(sessionKey string) string {
	return cartKeyPrefix + sessionKey
}

// Get loads the cart snapshot for the session key.
func (r *CartRepository) Get(ctx context.Context, sessionKey string) (domain.Cart, error) {
	sessionKey = strings.TrimSpace(sessionKey)
	if sessionKey == "" {
		return domain.Cart{}, redisstore.ConflictError("cart.get", errors.New("session key is required"))
	}

	raw, err := r.client.Get(ctx, cartKey(sessionKey)).Bytes()
	if err != nil {
		return domain.Cart{}, redisstore.WrapError("cart.get", err)
	}

	var snapshot cartSnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return domain.Cart{}, redisstore.CorruptError("cart.get", fmt.Errorf("decoding snapshot: %w", err))
	}

	return snapshotToCart(sessionKey, snapshot), nil
}

// Save stores the cart snapshot and refreshes its TTL.
func (r *CartRepository) Save(ctx context.Context, cart domain.Cart) error {
	sessionKey := strings.TrimSpace(cart.SessionKey)
	if sessionKey == "" {
		return redisstore.ConflictError("cart.save", errors.New("session key is required"))
	}

	raw, err := json.Marshal(cartToSnapshot(cart))
	if err != nil {
		return redisstore.WrapError("cart.save", fmt.Errorf("encoding snapshot: %w", err))
	}

	if err := r.client.Set(ctx, cartKey(sessionKey), raw, r.ttl).Err(); err != nil {
		return redisstore.WrapError("cart.save", err)
	}
	return nil
}

// Delete removes the cart snapshot for the session key. Missing keys are not an error.
func (r *CartRepository) Delete(ctx context.Context, sessionKey string) error {
	sessionKey = strings.TrimSpace(sessionKey)
	if sessionKey == "" {
		return redisstore.ConflictError("cart.delete", errors.New("session key is required"))
	}
	if err := r.client.Del(ctx, cartKey(sessionKey)).Err(); err != nil {
		return redisstore.WrapError("cart.delete", err)
	}
	return nil
}

func cartToSnapshot(cart domain.Cart) cartSnapshot {
	items := make([]cartItemRecord, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, cartItemRecord{
			ID:          item.ID,
			ProductID:   item.ProductID,
			VariantID:   item.VariantID,
			SizeID:      item.SizeID,
			Price:       item.UnitPrice,
			Qty:         item.Quantity,
			Stock:       item.Stock,
			Image:       item.DisplayImage,
			Name:        item.DisplayName,
			VariantName: item.VariantLabel,
			SizeName:    item.SizeLabel,
			AddedAt:     item.AddedAt,
			UpdatedAt:   item.UpdatedAt,
		})
	}
	return cartSnapshot{
		State:     cartState{CartItems: items},
		CreatedAt: cart.CreatedAt,
		UpdatedAt: cart.UpdatedAt,
	}
}

func snapshotToCart(sessionKey string, snapshot cartSnapshot) domain.Cart {
	items := make([]domain.CartLineItem, 0, len(snapshot.State.CartItems))
	for _, record := range snapshot.State.CartItems {
		items = append(items, domain.CartLineItem{
			ID:           record.ID,
			ProductID:    record.ProductID,
			VariantID:    record.VariantID,
			SizeID:       record.SizeID,
			UnitPrice:    record.Price,
			Quantity:     record.Qty,
			Stock:        record.Stock,
			DisplayImage: record.Image,
			DisplayName:  record.Name,
			VariantLabel: record.VariantName,
			SizeLabel:    record.SizeName,
			AddedAt:      record.AddedAt,
			UpdatedAt:    record.UpdatedAt,
		})
	}
	return domain.Cart{
		SessionKey: sessionKey,
		Items:      items,
		CreatedAt:  snapshot.CreatedAt,
		UpdatedAt:  snapshot.UpdatedAt,
	}
}
