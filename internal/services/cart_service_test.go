package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/waduh12345/hrbalife-sub001/internal/domain"
)

type stubRepoError struct {
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e *stubRepoError) Error() string       { return "stub repository error" }
func (e *stubRepoError) IsNotFound() bool    { return e.notFound }
func (e *stubRepoError) IsConflict() bool    { return e.conflict }
func (e *stubRepoError) IsUnavailable() bool { return e.unavailable }

type stubCartRepository struct {
	carts     map[string]domain.Cart
	saveCalls int
	getErr    error
	saveErr   error
	deleteErr error
}

func newStubCartRepository() *stubCartRepository {
	return &stubCartRepository{carts: make(map[string]domain.Cart)}
}

func (r *stubCartRepository) Get(ctx context.Context, sessionKey string) (domain.Cart, error) {
	if r.getErr != nil {
		return domain.Cart{}, r.getErr
	}
	cart, ok := r.carts[sessionKey]
	if !ok {
		return domain.Cart{}, &stubRepoError{notFound: true}
	}
	return cart, nil
}

func (r *stubCartRepository) Save(ctx context.Context, cart domain.Cart) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saveCalls++
	r.carts[cart.SessionKey] = cart
	return nil
}

func (r *stubCartRepository) Delete(ctx context.Context, sessionKey string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	delete(r.carts, sessionKey)
	return nil
}

func fixedClock() Clock {
	instant := time.Date(2025, time.May, 6, 8, 0, 0, 0, time.UTC)
	return func() time.Time { return instant }
}

func newTestCartService(t *testing.T, repo *stubCartRepository) CartService {
	t.Helper()
	counter := 0
	service, err := NewCartService(CartServiceDeps{
		Repository: repo,
		Clock:      fixedClock(),
		IDGenerator: func() string {
			counter++
			return string(rune('A' + counter - 1))
		},
	})
	if err != nil {
		t.Fatalf("NewCartService returned error: %v", err)
	}
	return service
}

func shakeUnit() domain.ResolvedUnit {
	return domain.ResolvedUnit{
		ProductID:   101,
		VariantID:   7,
		SizeID:      3,
		UnitPrice:   250000,
		Stock:       3,
		DisplayName: "Herbal Shake Mix",
	}
}

func TestNewCartServiceRequiresDependencies(t *testing.T) {
	if _, err := NewCartService(CartServiceDeps{Clock: fixedClock()}); err == nil {
		t.Error("expected error without repository")
	}
	if _, err := NewCartService(CartServiceDeps{Repository: newStubCartRepository()}); err == nil {
		t.Error("expected error without clock")
	}
}

func TestAddItemMergesSameIdentityTriple(t *testing.T) {
	repo := newStubCartRepository()
	service := newTestCartService(t, repo)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		mutation, err := service.AddItem(ctx, AddItemCommand{SessionKey: "sess", Unit: shakeUnit()})
		if err != nil {
			t.Fatalf("AddItem returned error: %v", err)
		}
		if mutation.Capped {
			t.Errorf("add %d should not be capped", i+1)
		}
	}

	cart := repo.carts["sess"]
	if len(cart.Items) != 1 {
		t.Fatalf("expected one line, got %d", len(cart.Items))
	}
	if cart.Items[0].Quantity != 3 {
		t.Errorf("expected quantity 3, got %d", cart.Items[0].Quantity)
	}
	if repo.saveCalls != 3 {
		t.Errorf("every mutation must persist; got %d saves", repo.saveCalls)
	}
}

func TestAddItemCapsAtResolvedStock(t *testing.T) {
	repo := newStubCartRepository()
	service := newTestCartService(t, repo)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := service.AddItem(ctx, AddItemCommand{SessionKey: "sess", Unit: shakeUnit()}); err != nil {
			t.Fatalf("AddItem returned error: %v", err)
		}
	}

	mutation, err := service.AddItem(ctx, AddItemCommand{SessionKey: "sess", Unit: shakeUnit()})
	if err != nil {
		t.Fatalf("AddItem returned error: %v", err)
	}
	if !mutation.Capped {
		t.Error("expected the fourth add to surface the cap")
	}
	if got := mutation.Cart.Items[0].Quantity; got != 3 {
		t.Errorf("expected quantity held at 3, got %d", got)
	}
}

func TestAddItemRejectsSoldOutUnit(t *testing.T) {
	repo := newStubCartRepository()
	service := newTestCartService(t, repo)
	ctx := context.Background()

	unit := shakeUnit()
	unit.Stock = 0
	for i := 0; i < 3; i++ {
		if _, err := service.AddItem(ctx, AddItemCommand{SessionKey: "sess", Unit: unit}); !errors.Is(err, ErrCartOutOfStock) {
			t.Fatalf("add %d: expected ErrCartOutOfStock, got %v", i+1, err)
		}
	}

	if _, ok := repo.carts["sess"]; ok {
		t.Error("sold-out unit must never enter the cart")
	}
	if repo.saveCalls != 0 {
		t.Errorf("expected no saves, got %d", repo.saveCalls)
	}
}

func TestIncreaseQuantityCappedOnZeroStockLine(t *testing.T) {
	repo := newStubCartRepository()
	repo.carts["sess"] = domain.Cart{
		SessionKey: "sess",
		Items: []domain.CartLineItem{
			{ID: "A", ProductID: 101, VariantID: 7, SizeID: 3, Quantity: 1, Stock: 0},
		},
	}
	service := newTestCartService(t, repo)

	identity := domain.LineIdentity{ProductID: 101, VariantID: 7, SizeID: 3}
	mutation, err := service.IncreaseQuantity(context.Background(), "sess", identity)
	if err != nil {
		t.Fatalf("IncreaseQuantity returned error: %v", err)
	}
	if !mutation.Capped {
		t.Error("expected increase on a zero-stock line to surface the cap")
	}
	if mutation.Cart.Items[0].Quantity != 1 {
		t.Errorf("expected quantity held at 1, got %d", mutation.Cart.Items[0].Quantity)
	}
}

func TestAddItemDistinctTriplesAppendLines(t *testing.T) {
	repo := newStubCartRepository()
	service := newTestCartService(t, repo)
	ctx := context.Background()

	first := shakeUnit()
	second := shakeUnit()
	second.SizeID = 4

	if _, err := service.AddItem(ctx, AddItemCommand{SessionKey: "sess", Unit: first}); err != nil {
		t.Fatalf("AddItem returned error: %v", err)
	}
	mutation, err := service.AddItem(ctx, AddItemCommand{SessionKey: "sess", Unit: second})
	if err != nil {
		t.Fatalf("AddItem returned error: %v", err)
	}

	if len(mutation.Cart.Items) != 2 {
		t.Fatalf("expected two lines, got %d", len(mutation.Cart.Items))
	}
	if mutation.Cart.ItemCount() != 2 {
		t.Errorf("unexpected item count: %d", mutation.Cart.ItemCount())
	}
	if mutation.Cart.TotalPrice() != 500000 {
		t.Errorf("unexpected total price: %d", mutation.Cart.TotalPrice())
	}
}

func TestDecreaseQuantityAtOneRemovesLine(t *testing.T) {
	repo := newStubCartRepository()
	service := newTestCartService(t, repo)
	ctx := context.Background()

	if _, err := service.AddItem(ctx, AddItemCommand{SessionKey: "sess", Unit: shakeUnit()}); err != nil {
		t.Fatalf("AddItem returned error: %v", err)
	}

	identity := domain.LineIdentity{ProductID: 101, VariantID: 7, SizeID: 3}
	mutation, err := service.DecreaseQuantity(ctx, "sess", identity)
	if err != nil {
		t.Fatalf("DecreaseQuantity returned error: %v", err)
	}
	if len(mutation.Cart.Items) != 0 {
		t.Errorf("expected line removal, got %d lines", len(mutation.Cart.Items))
	}
}

func TestIncreaseQuantityHeldAtStock(t *testing.T) {
	repo := newStubCartRepository()
	service := newTestCartService(t, repo)
	ctx := context.Background()

	unit := shakeUnit()
	unit.Stock = 1
	if _, err := service.AddItem(ctx, AddItemCommand{SessionKey: "sess", Unit: unit}); err != nil {
		t.Fatalf("AddItem returned error: %v", err)
	}

	identity := domain.LineIdentity{ProductID: 101, VariantID: 7, SizeID: 3}
	mutation, err := service.IncreaseQuantity(ctx, "sess", identity)
	if err != nil {
		t.Fatalf("IncreaseQuantity returned error: %v", err)
	}
	if !mutation.Capped {
		t.Error("expected increase to surface the cap")
	}
	if mutation.Cart.Items[0].Quantity != 1 {
		t.Errorf("expected quantity held at 1, got %d", mutation.Cart.Items[0].Quantity)
	}
}

func TestRemoveItemUnknownLine(t *testing.T) {
	repo := newStubCartRepository()
	service := newTestCartService(t, repo)

	_, err := service.RemoveItem(context.Background(), "sess", domain.LineIdentity{ProductID: 999})
	if !errors.Is(err, ErrCartLineNotFound) {
		t.Fatalf("expected ErrCartLineNotFound, got %v", err)
	}
}

func TestClearDeletesSnapshot(t *testing.T) {
	repo := newStubCartRepository()
	service := newTestCartService(t, repo)
	ctx := context.Background()

	if _, err := service.AddItem(ctx, AddItemCommand{SessionKey: "sess", Unit: shakeUnit()}); err != nil {
		t.Fatalf("AddItem returned error: %v", err)
	}
	if err := service.Clear(ctx, "sess"); err != nil {
		t.Fatalf("Clear returned error: %v", err)
	}

	if _, ok := repo.carts["sess"]; ok {
		t.Error("expected the persisted snapshot to be removed")
	}

	cart, err := service.GetCart(ctx, "sess")
	if err != nil {
		t.Fatalf("GetCart returned error: %v", err)
	}
	if len(cart.Items) != 0 {
		t.Error("cleared cart must reload empty")
	}
}

func TestGetCartFailsOpenOnMissingSnapshot(t *testing.T) {
	repo := newStubCartRepository()
	service := newTestCartService(t, repo)

	cart, err := service.GetCart(context.Background(), "fresh")
	if err != nil {
		t.Fatalf("GetCart returned error: %v", err)
	}
	if len(cart.Items) != 0 || cart.SessionKey != "fresh" {
		t.Errorf("unexpected cart: %+v", cart)
	}
}

func TestGetCartSurfacesOutage(t *testing.T) {
	repo := newStubCartRepository()
	repo.getErr = &stubRepoError{unavailable: true}
	service := newTestCartService(t, repo)

	if _, err := service.GetCart(context.Background(), "sess"); !errors.Is(err, ErrCartUnavailable) {
		t.Fatalf("expected ErrCartUnavailable, got %v", err)
	}
}

func TestAddItemValidatesInput(t *testing.T) {
	repo := newStubCartRepository()
	service := newTestCartService(t, repo)
	ctx := context.Background()

	if _, err := service.AddItem(ctx, AddItemCommand{SessionKey: " ", Unit: shakeUnit()}); !errors.Is(err, ErrCartInvalidInput) {
		t.Errorf("expected ErrCartInvalidInput for blank session, got %v", err)
	}
	unit := shakeUnit()
	unit.ProductID = 0
	if _, err := service.AddItem(ctx, AddItemCommand{SessionKey: "sess", Unit: unit}); !errors.Is(err, ErrCartInvalidInput) {
		t.Errorf("expected ErrCartInvalidInput for missing product, got %v", err)
	}
}
