package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	domain "github.com/waduh12345/hrbalife-sub001/internal/domain"
	"github.com/waduh12345/hrbalife-sub001/internal/gateways"
)

type stubCheckoutCarts struct {
	cart       domain.Cart
	getErr     error
	clearErr   error
	clearCalls int
	getCalls   int
	started    chan struct{}
	proceed    chan struct{}
}

func (c *stubCheckoutCarts) GetCart(ctx context.Context, sessionKey string) (domain.Cart, error) {
	c.getCalls++
	if c.started != nil {
		close(c.started)
		c.started = nil
		<-c.proceed
	}
	if c.getErr != nil {
		return domain.Cart{}, c.getErr
	}
	return c.cart, nil
}

func (c *stubCheckoutCarts) AddItem(ctx context.Context, cmd AddItemCommand) (CartMutation, error) {
	return CartMutation{}, errors.New("not implemented")
}

func (c *stubCheckoutCarts) IncreaseQuantity(ctx context.Context, sessionKey string, identity domain.LineIdentity) (CartMutation, error) {
	return CartMutation{}, errors.New("not implemented")
}

func (c *stubCheckoutCarts) DecreaseQuantity(ctx context.Context, sessionKey string, identity domain.LineIdentity) (CartMutation, error) {
	return CartMutation{}, errors.New("not implemented")
}

func (c *stubCheckoutCarts) RemoveItem(ctx context.Context, sessionKey string, identity domain.LineIdentity) (CartMutation, error) {
	return CartMutation{}, errors.New("not implemented")
}

func (c *stubCheckoutCarts) Clear(ctx context.Context, sessionKey string) error {
	c.clearCalls++
	if c.clearErr != nil {
		return c.clearErr
	}
	c.cart.Items = nil
	return nil
}

type stubTransactions struct {
	ack           gateways.Acknowledgment
	err           error
	customer      *gateways.CustomerSubmission
	guest         *gateways.GuestSubmission
	customerCalls int
	guestCalls    int
}

func (t *stubTransactions) SubmitCustomer(ctx context.Context, submission gateways.CustomerSubmission) (gateways.Acknowledgment, error) {
	t.customerCalls++
	t.customer = &submission
	if t.err != nil {
		return gateways.Acknowledgment{}, t.err
	}
	return t.ack, nil
}

func (t *stubTransactions) SubmitGuest(ctx context.Context, submission gateways.GuestSubmission) (gateways.Acknowledgment, error) {
	t.guestCalls++
	t.guest = &submission
	if t.err != nil {
		return gateways.Acknowledgment{}, t.err
	}
	return t.ack, nil
}

type stubGuestContacts struct {
	saved   map[string]domain.GuestContact
	saveErr error
}

func (s *stubGuestContacts) Get(ctx context.Context, sessionKey string) (domain.GuestContact, error) {
	contact, ok := s.saved[sessionKey]
	if !ok {
		return domain.GuestContact{}, &stubRepoError{notFound: true}
	}
	return contact, nil
}

func (s *stubGuestContacts) Save(ctx context.Context, sessionKey string, contact domain.GuestContact) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	if s.saved == nil {
		s.saved = make(map[string]domain.GuestContact)
	}
	s.saved[sessionKey] = contact
	return nil
}

func newTestCheckoutService(t *testing.T, carts *stubCheckoutCarts, transactions *stubTransactions, contacts *stubGuestContacts) CheckoutService {
	t.Helper()
	service, err := NewCheckoutService(CheckoutServiceDeps{
		Carts:         carts,
		Transactions:  transactions,
		GuestContacts: contacts,
		Clock:         fixedClock(),
	})
	if err != nil {
		t.Fatalf("NewCheckoutService returned error: %v", err)
	}
	return service
}

func readyCustomer() domain.CustomerInfo {
	return domain.CustomerInfo{
		FullName:     "Siti Rahma",
		Phone:        "+628123456789",
		AddressLine1: "Jl. Melati 5",
		PostalCode:   "40115",
		ProvinceID:   11,
		CityID:       155,
		DistrictID:   1951,
	}
}

func readyShipping() *domain.ShippingSelection {
	return &domain.ShippingSelection{
		CourierCode: "jne",
		Cost:        10000,
		Raw:         json.RawMessage(`{"code":"jne","service":"REG","cost":10000}`),
	}
}

func singleLineCart() domain.Cart {
	return domain.Cart{
		SessionKey: "sess-1",
		Items: []domain.CartLineItem{
			{ID: "a", ProductID: 5, Quantity: 2, UnitPrice: 50000, Stock: 9},
		},
	}
}

func TestCheckoutCustomerVariantFallback(t *testing.T) {
	carts := &stubCheckoutCarts{cart: singleLineCart()}
	transactions := &stubTransactions{ack: gateways.Acknowledgment{Outcome: domain.OutcomeReference, Reference: "INV-100"}}
	service := newTestCheckoutService(t, carts, transactions, nil)

	result, err := service.Submit(context.Background(), CheckoutCommand{
		SessionKey: "sess-1",
		Identity:   domain.AuthenticatedIdentity{Email: "siti@example.com"},
		Customer:   readyCustomer(),
		Shipping:   readyShipping(),
		ShopID:     2,
		Payment:    PaymentChoice{Type: "manual", Method: "bank_transfer"},
	})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	if transactions.customer == nil {
		t.Fatal("customer submission was never dispatched")
	}
	details := transactions.customer.Details
	if len(details) != 1 {
		t.Fatalf("got %d details, want 1", len(details))
	}
	if details[0].ProductID != 5 || details[0].VariantID != 5 || details[0].Quantity != 2 {
		t.Errorf("unexpected detail: %+v", details[0])
	}
	if transactions.customer.Shipment.Cost != 10000 {
		t.Errorf("shipment cost %d, want 10000", transactions.customer.Shipment.Cost)
	}
	if transactions.customer.Shipment.Shipping != `{"code":"jne","service":"REG","cost":10000}` {
		t.Errorf("shipment copy altered: %s", transactions.customer.Shipment.Shipping)
	}
	if carts.clearCalls != 1 {
		t.Errorf("cart cleared %d times, want 1", carts.clearCalls)
	}
	if result.Reference != "INV-100" || result.RedirectPath != "/account/orders" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestCheckoutCustomerKeepsResolvedVariant(t *testing.T) {
	cart := singleLineCart()
	cart.Items[0].VariantID = 7
	carts := &stubCheckoutCarts{cart: cart}
	transactions := &stubTransactions{ack: gateways.Acknowledgment{Outcome: domain.OutcomeGeneric}}
	service := newTestCheckoutService(t, carts, transactions, nil)

	if _, err := service.Submit(context.Background(), CheckoutCommand{
		SessionKey: "sess-1",
		Identity:   domain.AuthenticatedIdentity{},
		Customer:   readyCustomer(),
		Shipping:   readyShipping(),
	}); err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if transactions.customer.Details[0].VariantID != 7 {
		t.Errorf("variant id %d, want 7", transactions.customer.Details[0].VariantID)
	}
}

func TestCheckoutGuestOmitsVariantUnlessPositive(t *testing.T) {
	cart := singleLineCart()
	cart.Items = append(cart.Items, domain.CartLineItem{ID: "b", ProductID: 6, VariantID: 9, Quantity: 1, UnitPrice: 80000})
	carts := &stubCheckoutCarts{cart: cart}
	transactions := &stubTransactions{ack: gateways.Acknowledgment{Outcome: domain.OutcomeGeneric}}
	contacts := &stubGuestContacts{}
	service := newTestCheckoutService(t, carts, transactions, contacts)

	_, err := service.Submit(context.Background(), CheckoutCommand{
		SessionKey: "sess-1",
		Identity:   domain.GuestIdentity{FullName: "Budi", Email: "budi@example.com", Phone: "0812"},
		Customer:   readyCustomer(),
		Shipping:   readyShipping(),
	})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	if transactions.guest == nil {
		t.Fatal("guest submission was never dispatched")
	}
	details := transactions.guest.Details
	if details[0].VariantID != nil {
		t.Errorf("variant-less line carried variant id %v", *details[0].VariantID)
	}
	if details[1].VariantID == nil || *details[1].VariantID != 9 {
		t.Errorf("resolved variant id missing from guest detail: %+v", details[1])
	}

	encoded, err := json.Marshal(details[0])
	if err != nil {
		t.Fatalf("marshal guest detail: %v", err)
	}
	if strings.Contains(string(encoded), "product_variant_id") {
		t.Errorf("variant key must be absent from the wire form: %s", encoded)
	}

	contact, ok := contacts.saved["sess-1"]
	if !ok {
		t.Fatal("guest contact was not persisted after acceptance")
	}
	if contact.Email != "budi@example.com" || contact.FullName != "Budi" {
		t.Errorf("unexpected persisted contact: %+v", contact)
	}
}

func TestCheckoutBlockedListsAllMissing(t *testing.T) {
	carts := &stubCheckoutCarts{cart: singleLineCart()}
	transactions := &stubTransactions{}
	service := newTestCheckoutService(t, carts, transactions, nil)

	_, err := service.Submit(context.Background(), CheckoutCommand{
		SessionKey: "sess-1",
		Identity:   domain.GuestIdentity{FullName: "Budi"},
	})
	if !errors.Is(err, ErrCheckoutNotReady) {
		t.Fatalf("expected ErrCheckoutNotReady, got %v", err)
	}

	var blocked *BlockedError
	if !errors.As(err, &blocked) {
		t.Fatalf("expected BlockedError, got %T", err)
	}
	want := []string{"shipping", "full_name", "address", "postal_code", "email"}
	if len(blocked.Missing) != len(want) {
		t.Fatalf("missing = %v, want %v", blocked.Missing, want)
	}
	for i, field := range want {
		if blocked.Missing[i] != field {
			t.Errorf("missing[%d] = %q, want %q", i, blocked.Missing[i], field)
		}
	}
	if transactions.customerCalls != 0 || transactions.guestCalls != 0 {
		t.Error("blocked attempt must not dispatch a submission")
	}
	if carts.getCalls != 0 {
		t.Error("blocked attempt must not load the cart")
	}
}

func TestCheckoutGuestEmailRequired(t *testing.T) {
	carts := &stubCheckoutCarts{cart: singleLineCart()}
	service := newTestCheckoutService(t, carts, &stubTransactions{}, nil)

	_, err := service.Submit(context.Background(), CheckoutCommand{
		SessionKey: "sess-1",
		Identity:   domain.GuestIdentity{FullName: "Budi", Phone: "0812"},
		Customer:   readyCustomer(),
		Shipping:   readyShipping(),
	})
	var blocked *BlockedError
	if !errors.As(err, &blocked) {
		t.Fatalf("expected BlockedError, got %v", err)
	}
	if len(blocked.Missing) != 1 || blocked.Missing[0] != "email" {
		t.Errorf("missing = %v, want [email]", blocked.Missing)
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	carts := &stubCheckoutCarts{cart: domain.Cart{SessionKey: "sess-1"}}
	transactions := &stubTransactions{}
	service := newTestCheckoutService(t, carts, transactions, nil)

	_, err := service.Submit(context.Background(), CheckoutCommand{
		SessionKey: "sess-1",
		Identity:   domain.AuthenticatedIdentity{},
		Customer:   readyCustomer(),
		Shipping:   readyShipping(),
	})
	if !errors.Is(err, ErrCheckoutEmptyCart) {
		t.Fatalf("expected ErrCheckoutEmptyCart, got %v", err)
	}
	if transactions.customerCalls != 0 {
		t.Error("empty cart must not dispatch a submission")
	}
}

func TestCheckoutRejectionLeavesCart(t *testing.T) {
	carts := &stubCheckoutCarts{cart: singleLineCart()}
	transactions := &stubTransactions{err: errors.New("insufficient stock")}
	contacts := &stubGuestContacts{}
	service := newTestCheckoutService(t, carts, transactions, contacts)

	_, err := service.Submit(context.Background(), CheckoutCommand{
		SessionKey: "sess-1",
		Identity:   domain.GuestIdentity{FullName: "Budi", Email: "budi@example.com"},
		Customer:   readyCustomer(),
		Shipping:   readyShipping(),
	})
	if !errors.Is(err, ErrCheckoutRejected) {
		t.Fatalf("expected ErrCheckoutRejected, got %v", err)
	}
	if carts.clearCalls != 0 {
		t.Error("rejected submission must leave the cart untouched")
	}
	if len(contacts.saved) != 0 {
		t.Error("rejected submission must not persist the guest contact")
	}
}

func TestCheckoutClearFailureStillAccepts(t *testing.T) {
	carts := &stubCheckoutCarts{cart: singleLineCart(), clearErr: errors.New("redis down")}
	transactions := &stubTransactions{ack: gateways.Acknowledgment{Outcome: domain.OutcomeReference, Reference: "INV-7"}}
	service := newTestCheckoutService(t, carts, transactions, nil)

	result, err := service.Submit(context.Background(), CheckoutCommand{
		SessionKey: "sess-1",
		Identity:   domain.AuthenticatedIdentity{},
		Customer:   readyCustomer(),
		Shipping:   readyShipping(),
	})
	if err != nil {
		t.Fatalf("Submit returned error despite accepted order: %v", err)
	}
	if result.Reference != "INV-7" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestCheckoutSecondAttemptWhilePending(t *testing.T) {
	carts := &stubCheckoutCarts{
		cart:    singleLineCart(),
		started: make(chan struct{}),
		proceed: make(chan struct{}),
	}
	started := carts.started
	transactions := &stubTransactions{ack: gateways.Acknowledgment{Outcome: domain.OutcomeGeneric}}
	service := newTestCheckoutService(t, carts, transactions, nil)

	cmd := CheckoutCommand{
		SessionKey: "sess-1",
		Identity:   domain.AuthenticatedIdentity{},
		Customer:   readyCustomer(),
		Shipping:   readyShipping(),
	}

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		_, firstErr = service.Submit(context.Background(), cmd)
	}()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("first attempt never reached the cart load")
	}

	if _, err := service.Submit(context.Background(), cmd); !errors.Is(err, ErrCheckoutInFlight) {
		t.Fatalf("expected ErrCheckoutInFlight, got %v", err)
	}

	close(carts.proceed)
	wg.Wait()
	if firstErr != nil {
		t.Fatalf("first attempt returned error: %v", firstErr)
	}

	// The lock is released once the first attempt finishes.
	if _, err := service.Submit(context.Background(), cmd); !errors.Is(err, ErrCheckoutEmptyCart) {
		t.Fatalf("expected ErrCheckoutEmptyCart after clear, got %v", err)
	}
}

func TestCheckoutVoucherApplied(t *testing.T) {
	carts := &stubCheckoutCarts{cart: singleLineCart()}
	transactions := &stubTransactions{ack: gateways.Acknowledgment{Outcome: domain.OutcomeGeneric}}
	service := newTestCheckoutService(t, carts, transactions, nil)

	if _, err := service.Submit(context.Background(), CheckoutCommand{
		SessionKey: "sess-1",
		Identity:   domain.AuthenticatedIdentity{},
		Customer:   readyCustomer(),
		Shipping:   readyShipping(),
		Voucher:    &domain.VoucherSelection{ID: 42, Code: "HEMAT10"},
	}); err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if transactions.customer.VoucherID == nil || *transactions.customer.VoucherID != 42 {
		t.Errorf("voucher id missing: %+v", transactions.customer.VoucherID)
	}
	if transactions.customer.VoucherCode != "HEMAT10" {
		t.Errorf("voucher code %q, want HEMAT10", transactions.customer.VoucherCode)
	}
}

func TestCheckoutShipmentLookupParam(t *testing.T) {
	carts := &stubCheckoutCarts{cart: singleLineCart()}
	transactions := &stubTransactions{ack: gateways.Acknowledgment{Outcome: domain.OutcomeGeneric}}
	service := newTestCheckoutService(t, carts, transactions, nil)

	if _, err := service.Submit(context.Background(), CheckoutCommand{
		SessionKey:         "sess-1",
		Identity:           domain.AuthenticatedIdentity{},
		Customer:           readyCustomer(),
		Shipping:           readyShipping(),
		PackageLengthCm:    20,
		PackageWidthCm:     15,
		PackageHeightCm:    10,
		PackageWeightGrams: 900,
	}); err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	var param struct {
		DistrictID int64  `json:"destination_district_id"`
		Weight     int    `json:"weight"`
		Courier    string `json:"courier"`
	}
	if err := json.Unmarshal([]byte(transactions.customer.Shipment.Param), &param); err != nil {
		t.Fatalf("lookup param is not valid JSON: %v", err)
	}
	if param.DistrictID != 1951 || param.Weight != 900 || param.Courier != "jne" {
		t.Errorf("unexpected lookup param: %+v", param)
	}
}
