package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/waduh12345/hrbalife-sub001/internal/domain"
	"github.com/waduh12345/hrbalife-sub001/internal/repositories"
)

var (
	errCartRepositoryRequired = errors.New("cart service: repository is required")
	errCartClockRequired      = errors.New("cart service: clock is required")
)

// ErrCartInvalidInput indicates the caller supplied invalid input.
var ErrCartInvalidInput = errors.New("cart service: invalid input")

// ErrCartUnavailable indicates the cart service cannot fulfil the request due to backend issues.
var ErrCartUnavailable = errors.New("cart service: unavailable")

// ErrCartLineNotFound indicates the addressed line does not exist in the cart.
var ErrCartLineNotFound = errors.New("cart service: line not found")

// ErrCartOutOfStock indicates the resolved unit had no stock at add time. A
// sold-out unit never enters the cart; quantity may not exceed resolved stock.
var ErrCartOutOfStock = errors.New("cart service: unit out of stock")

// CartServiceDeps wires the repository and ambient dependencies for cart operations.
type CartServiceDeps struct {
	Repository  repositories.CartRepository
	Notifier    CartNotifier
	Clock       Clock
	Logger      func(context.Context, string, map[string]any)
	IDGenerator func() string
}

type cartService struct {
	repo     repositories.CartRepository
	notifier CartNotifier
	newID    func() string
	now      func() time.Time
	logger   func(context.Context, string, map[string]any)
}

// NewCartService constructs a CartService enforcing dependency validation.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Repository == nil {
		return nil, errCartRepositoryRequired
	}
	if deps.Clock == nil {
		return nil, errCartClockRequired
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}

	return &cartService{
		repo:     deps.Repository,
		notifier: deps.Notifier,
		newID:    idGen,
		now:      func() time.Time { return deps.Clock().UTC() },
		logger:   logger,
	}, nil
}

// GetCart loads the cart for the session; a missing or malformed snapshot loads
// as an empty cart, never a hard error.
func (s *cartService) GetCart(ctx context.Context, sessionKey string) (domain.Cart, error) {
	sessionKey = strings.TrimSpace(sessionKey)
	if sessionKey == "" {
		return domain.Cart{}, ErrCartInvalidInput
	}

	cart, err := s.repo.Get(ctx, sessionKey)
	if err != nil {
		if translated := s.translateRepoError(err); errors.Is(translated, ErrCartUnavailable) {
			return domain.Cart{}, translated
		}
		// Not found, conflict, or a corrupt snapshot all fail open to empty.
		now := s.now()
		return domain.Cart{SessionKey: sessionKey, CreatedAt: now, UpdatedAt: now}, nil
	}
	return cart, nil
}

// AddItem merges one resolved unit into the cart: an existing identity triple
// increments (held at resolved stock, with the cap surfaced), a new triple
// appends a line with quantity 1.
func (s *cartService) AddItem(ctx context.Context, cmd AddItemCommand) (CartMutation, error) {
	sessionKey := strings.TrimSpace(cmd.SessionKey)
	if sessionKey == "" {
		return CartMutation{}, ErrCartInvalidInput
	}
	unit := cmd.Unit
	if unit.ProductID <= 0 {
		return CartMutation{}, ErrCartInvalidInput
	}
	if unit.UnitPrice < 0 || unit.Stock < 0 {
		return CartMutation{}, ErrCartInvalidInput
	}
	if unit.Stock == 0 {
		return CartMutation{}, ErrCartOutOfStock
	}

	cart, err := s.GetCart(ctx, sessionKey)
	if err != nil {
		return CartMutation{}, err
	}

	now := s.now()
	identity := domain.LineIdentity{ProductID: unit.ProductID, VariantID: unit.VariantID, SizeID: unit.SizeID}
	capped := false

	idx := findLine(cart.Items, identity)
	if idx >= 0 {
		line := &cart.Items[idx]
		if line.Quantity >= unit.Stock {
			capped = true
		} else {
			line.Quantity++
			updated := now
			line.UpdatedAt = &updated
		}
		// Refresh the display fields and stock figure seen at the latest add.
		line.UnitPrice = unit.UnitPrice
		line.Stock = unit.Stock
	} else {
		cart.Items = append(cart.Items, domain.CartLineItem{
			ID:           s.newID(),
			ProductID:    unit.ProductID,
			VariantID:    unit.VariantID,
			SizeID:       unit.SizeID,
			UnitPrice:    unit.UnitPrice,
			Quantity:     1,
			Stock:        unit.Stock,
			DisplayImage: unit.DisplayImage,
			DisplayName:  unit.DisplayName,
			VariantLabel: unit.VariantLabel,
			SizeLabel:    unit.SizeLabel,
			AddedAt:      now,
		})
	}

	cart.UpdatedAt = now
	if err := s.repo.Save(ctx, cart); err != nil {
		return CartMutation{}, s.translateRepoError(err)
	}

	if s.notifier != nil && !capped {
		target := findLine(cart.Items, identity)
		if target >= 0 {
			s.notifier.Notify(cart.Items[target])
		}
	}

	s.logger(ctx, "cart.item_added", map[string]any{
		"session_key": sessionKey,
		"product_id":  unit.ProductID,
		"variant_id":  unit.VariantID,
		"size_id":     unit.SizeID,
		"capped":      capped,
	})
	return CartMutation{Cart: cart, Capped: capped}, nil
}

// IncreaseQuantity increments the addressed line, held at its recorded stock.
func (s *cartService) IncreaseQuantity(ctx context.Context, sessionKey string, identity domain.LineIdentity) (CartMutation, error) {
	return s.mutateLine(ctx, sessionKey, identity, func(cart *domain.Cart, idx int, now time.Time) bool {
		line := &cart.Items[idx]
		// A stored line may record stock 0 (older snapshots); the cap still
		// binds, so such a line can only be decreased or removed.
		if line.Quantity >= line.Stock {
			return true
		}
		line.Quantity++
		updated := now
		line.UpdatedAt = &updated
		return false
	})
}

// DecreaseQuantity decrements the addressed line; a decrement that reaches zero
// removes the line instead of leaving a zero-quantity row.
func (s *cartService) DecreaseQuantity(ctx context.Context, sessionKey string, identity domain.LineIdentity) (CartMutation, error) {
	return s.mutateLine(ctx, sessionKey, identity, func(cart *domain.Cart, idx int, now time.Time) bool {
		line := &cart.Items[idx]
		if line.Quantity <= 1 {
			cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
			return false
		}
		line.Quantity--
		updated := now
		line.UpdatedAt = &updated
		return false
	})
}

// RemoveItem deletes the addressed line unconditionally.
func (s *cartService) RemoveItem(ctx context.Context, sessionKey string, identity domain.LineIdentity) (CartMutation, error) {
	return s.mutateLine(ctx, sessionKey, identity, func(cart *domain.Cart, idx int, now time.Time) bool {
		cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
		return false
	})
}

// Clear empties the cart and removes the persisted snapshot so a later load
// cannot resurrect stale items.
func (s *cartService) Clear(ctx context.Context, sessionKey string) error {
	sessionKey = strings.TrimSpace(sessionKey)
	if sessionKey == "" {
		return ErrCartInvalidInput
	}
	if err := s.repo.Delete(ctx, sessionKey); err != nil {
		return s.translateRepoError(err)
	}
	s.logger(ctx, "cart.cleared", map[string]any{"session_key": sessionKey})
	return nil
}

func (s *cartService) mutateLine(ctx context.Context, sessionKey string, identity domain.LineIdentity, apply func(cart *domain.Cart, idx int, now time.Time) (capped bool)) (CartMutation, error) {
	sessionKey = strings.TrimSpace(sessionKey)
	if sessionKey == "" || identity.ProductID <= 0 {
		return CartMutation{}, ErrCartInvalidInput
	}

	cart, err := s.GetCart(ctx, sessionKey)
	if err != nil {
		return CartMutation{}, err
	}

	idx := findLine(cart.Items, identity)
	if idx < 0 {
		return CartMutation{}, ErrCartLineNotFound
	}

	now := s.now()
	capped := apply(&cart, idx, now)
	cart.UpdatedAt = now

	if err := s.repo.Save(ctx, cart); err != nil {
		return CartMutation{}, s.translateRepoError(err)
	}
	return CartMutation{Cart: cart, Capped: capped}, nil
}

func findLine(items []domain.CartLineItem, identity domain.LineIdentity) int {
	for i, item := range items {
		if item.Identity() == identity {
			return i
		}
	}
	return -1
}

func (s *cartService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrCartLineNotFound
		case repoErr.IsConflict():
			return ErrCartInvalidInput
		}
		return ErrCartUnavailable
	}
	return ErrCartUnavailable
}
