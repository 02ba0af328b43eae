package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	domain "github.com/waduh12345/hrbalife-sub001/internal/domain"
	"github.com/waduh12345/hrbalife-sub001/internal/gateways"
	"github.com/waduh12345/hrbalife-sub001/internal/repositories"
)

var (
	errCheckoutCartsRequired       = errors.New("checkout service: cart service is required")
	errCheckoutTransactionRequired = errors.New("checkout service: transaction gateway is required")
	errCheckoutClockRequired       = errors.New("checkout service: clock is required")
)

// ErrCheckoutInvalidInput indicates the caller supplied invalid input.
var ErrCheckoutInvalidInput = errors.New("checkout service: invalid input")

// ErrCheckoutNotReady indicates a failed precondition; no submission was attempted.
var ErrCheckoutNotReady = errors.New("checkout service: not ready")

// ErrCheckoutEmptyCart indicates there is nothing to submit.
var ErrCheckoutEmptyCart = errors.New("checkout service: cart is empty")

// ErrCheckoutInFlight indicates a submission for this session is already pending.
var ErrCheckoutInFlight = errors.New("checkout service: submission already in flight")

// ErrCheckoutRejected indicates the upstream rejected the submission; the cart,
// voucher, and shipping selections are left untouched for retry.
var ErrCheckoutRejected = errors.New("checkout service: submission rejected")

// ErrCheckoutUnavailable indicates a backend dependency failed before submission.
var ErrCheckoutUnavailable = errors.New("checkout service: unavailable")

// orderHistoryPath is the post-acceptance redirect target.
const orderHistoryPath = "/account/orders"

// BlockedError lists the missing preconditions of a blocked checkout attempt.
type BlockedError struct {
	Missing []string
}

// Error implements the error interface.
func (e *BlockedError) Error() string {
	return fmt.Sprintf("checkout service: not ready: missing [%s]", strings.Join(e.Missing, ", "))
}

// Is reports ErrCheckoutNotReady identity for errors.Is chains.
func (e *BlockedError) Is(target error) bool { return target == ErrCheckoutNotReady }

// TransactionSubmitter is the gateway surface the orchestrator dispatches through.
type TransactionSubmitter interface {
	SubmitCustomer(ctx context.Context, submission gateways.CustomerSubmission) (gateways.Acknowledgment, error)
	SubmitGuest(ctx context.Context, submission gateways.GuestSubmission) (gateways.Acknowledgment, error)
}

// CheckoutServiceDeps wires the orchestrator's collaborators.
type CheckoutServiceDeps struct {
	Carts         CartService
	Transactions  TransactionSubmitter
	GuestContacts repositories.GuestContactRepository
	Clock         Clock
	Logger        func(context.Context, string, map[string]any)
}

type checkoutService struct {
	carts         CartService
	transactions  TransactionSubmitter
	guestContacts repositories.GuestContactRepository
	now           func() time.Time
	logger        func(context.Context, string, map[string]any)

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewCheckoutService constructs a CheckoutService enforcing dependency validation.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.Carts == nil {
		return nil, errCheckoutCartsRequired
	}
	if deps.Transactions == nil {
		return nil, errCheckoutTransactionRequired
	}
	if deps.Clock == nil {
		return nil, errCheckoutClockRequired
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &checkoutService{
		carts:         deps.Carts,
		transactions:  deps.Transactions,
		guestContacts: deps.GuestContacts,
		now:           func() time.Time { return deps.Clock().UTC() },
		logger:        logger,
		inFlight:      make(map[string]struct{}),
	}, nil
}

// Submit runs one checkout attempt end to end: validate readiness, build the
// identity-specific payload, dispatch it, and only on acceptance persist the
// guest contact and clear the cart. A second attempt for the same session while
// one is pending is rejected.
func (s *checkoutService) Submit(ctx context.Context, cmd CheckoutCommand) (domain.CheckoutResult, error) {
	sessionKey := strings.TrimSpace(cmd.SessionKey)
	if sessionKey == "" || cmd.Identity == nil {
		return domain.CheckoutResult{}, ErrCheckoutInvalidInput
	}

	if !s.acquire(sessionKey) {
		return domain.CheckoutResult{}, ErrCheckoutInFlight
	}
	defer s.release(sessionKey)

	if err := validateReadiness(cmd); err != nil {
		return domain.CheckoutResult{}, err
	}

	cart, err := s.carts.GetCart(ctx, sessionKey)
	if err != nil {
		return domain.CheckoutResult{}, ErrCheckoutUnavailable
	}
	if len(cart.Items) == 0 {
		return domain.CheckoutResult{}, ErrCheckoutEmptyCart
	}

	shipment, err := buildShipment(cmd)
	if err != nil {
		return domain.CheckoutResult{}, err
	}

	var ack gateways.Acknowledgment
	switch identity := cmd.Identity.(type) {
	case domain.AuthenticatedIdentity:
		submission := buildCustomerSubmission(cmd, cart, shipment)
		ack, err = s.transactions.SubmitCustomer(ctx, submission)
	case domain.GuestIdentity:
		submission := buildGuestSubmission(cmd, identity, cart, shipment)
		ack, err = s.transactions.SubmitGuest(ctx, submission)
	default:
		return domain.CheckoutResult{}, ErrCheckoutInvalidInput
	}
	if err != nil {
		s.logger(ctx, "checkout.rejected", map[string]any{
			"session_key": sessionKey,
			"error":       err.Error(),
		})
		return domain.CheckoutResult{}, fmt.Errorf("%w: %v", ErrCheckoutRejected, err)
	}

	// Acceptance side effects, in order: guest contact first, then cart clear.
	if guest, ok := cmd.Identity.(domain.GuestIdentity); ok && s.guestContacts != nil {
		contact := domain.GuestContact{
			FullName: strings.TrimSpace(guest.FullName),
			Email:    strings.TrimSpace(guest.Email),
			Phone:    strings.TrimSpace(guest.Phone),
			SavedAt:  s.now(),
		}
		if err := s.guestContacts.Save(ctx, sessionKey, contact); err != nil {
			s.logger(ctx, "checkout.guest_contact_save_failed", map[string]any{
				"session_key": sessionKey,
				"error":       err.Error(),
			})
		}
	}

	if err := s.carts.Clear(ctx, sessionKey); err != nil {
		// The order exists upstream; a failed clear must not fail the attempt.
		s.logger(ctx, "checkout.cart_clear_failed", map[string]any{
			"session_key": sessionKey,
			"error":       err.Error(),
		})
	}

	s.logger(ctx, "checkout.accepted", map[string]any{
		"session_key": sessionKey,
		"outcome":     string(ack.Outcome),
		"reference":   ack.Reference,
	})

	return domain.CheckoutResult{
		Outcome:      ack.Outcome,
		Reference:    ack.Reference,
		PaymentLink:  ack.PaymentLink,
		RedirectPath: orderHistoryPath,
	}, nil
}

func (s *checkoutService) acquire(sessionKey string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, pending := s.inFlight[sessionKey]; pending {
		return false
	}
	s.inFlight[sessionKey] = struct{}{}
	return true
}

func (s *checkoutService) release(sessionKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, sessionKey)
}

// validateReadiness enforces the hard preconditions. Failures block the attempt
// before any submission is built.
func validateReadiness(cmd CheckoutCommand) error {
	var missing []string

	if cmd.Shipping == nil || strings.TrimSpace(cmd.Shipping.CourierCode) == "" {
		missing = append(missing, "shipping")
	}
	if strings.TrimSpace(cmd.Customer.FullName) == "" {
		missing = append(missing, "full_name")
	}
	if strings.TrimSpace(cmd.Customer.AddressLine1) == "" {
		missing = append(missing, "address")
	}
	if strings.TrimSpace(cmd.Customer.PostalCode) == "" {
		missing = append(missing, "postal_code")
	}
	if guest, ok := cmd.Identity.(domain.GuestIdentity); ok {
		if strings.TrimSpace(guest.Email) == "" {
			missing = append(missing, "email")
		}
	}

	if len(missing) > 0 {
		return &BlockedError{Missing: missing}
	}
	return nil
}

// shipmentLookupParam is the JSON-encoded rate-lookup parameter embedded in the
// shipment descriptor.
type shipmentLookupParam struct {
	DistrictID int64  `json:"destination_district_id"`
	LengthCm   int    `json:"length"`
	WidthCm    int    `json:"width"`
	HeightCm   int    `json:"height"`
	Weight     int    `json:"weight"`
	Courier    string `json:"courier"`
}

// buildShipment serialises the shared shipment descriptor: the lookup parameter,
// the verbatim copy of the chosen selection, the courier code, and the cost.
func buildShipment(cmd CheckoutCommand) (gateways.ShipmentPayload, error) {
	selection := cmd.Shipping

	param, err := json.Marshal(shipmentLookupParam{
		DistrictID: cmd.Customer.DistrictID,
		LengthCm:   cmd.PackageLengthCm,
		WidthCm:    cmd.PackageWidthCm,
		HeightCm:   cmd.PackageHeightCm,
		Weight:     cmd.PackageWeightGrams,
		Courier:    selection.CourierCode,
	})
	if err != nil {
		return gateways.ShipmentPayload{}, ErrCheckoutInvalidInput
	}

	shipping := selection.Raw
	if len(shipping) == 0 {
		encoded, err := json.Marshal(map[string]any{
			"courier": selection.CourierCode,
			"cost":    selection.Cost,
		})
		if err != nil {
			return gateways.ShipmentPayload{}, ErrCheckoutInvalidInput
		}
		shipping = encoded
	}

	return gateways.ShipmentPayload{
		Param:    string(param),
		Shipping: string(shipping),
		Courier:  selection.CourierCode,
		Cost:     selection.Cost,
	}, nil
}

// buildCustomerSubmission maps cart lines to the authenticated payload: every
// line carries a mandatory variant id, falling back to the line's own product
// id when no variant was resolved.
func buildCustomerSubmission(cmd CheckoutCommand, cart domain.Cart, shipment gateways.ShipmentPayload) gateways.CustomerSubmission {
	details := make([]gateways.TransactionLine, 0, len(cart.Items))
	for _, item := range cart.Items {
		variantID := item.VariantID
		if variantID <= 0 {
			variantID = item.ProductID
		}
		details = append(details, gateways.TransactionLine{
			ProductID: item.ProductID,
			VariantID: variantID,
			Quantity:  item.Quantity,
		})
	}

	submission := gateways.CustomerSubmission{
		ShopID:         cmd.ShopID,
		Details:        details,
		CustomerInfo:   customerInfoPayload(cmd.Customer),
		PaymentType:    cmd.Payment.Type,
		PaymentMethod:  cmd.Payment.Method,
		PaymentChannel: cmd.Payment.Channel,
		Shipment:       shipment,
	}
	applyVoucher(&submission.VoucherID, &submission.VoucherCode, cmd.Voucher)
	return submission
}

// buildGuestSubmission maps cart lines to the guest payload: the variant id is
// included only when strictly positive, omitted otherwise.
func buildGuestSubmission(cmd CheckoutCommand, guest domain.GuestIdentity, cart domain.Cart, shipment gateways.ShipmentPayload) gateways.GuestSubmission {
	details := make([]gateways.GuestTransactionLine, 0, len(cart.Items))
	for _, item := range cart.Items {
		line := gateways.GuestTransactionLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		}
		if item.VariantID > 0 {
			variantID := item.VariantID
			line.VariantID = &variantID
		}
		details = append(details, line)
	}

	submission := gateways.GuestSubmission{
		ShopID:         cmd.ShopID,
		Details:        details,
		FullName:       strings.TrimSpace(guest.FullName),
		Email:          strings.TrimSpace(guest.Email),
		Phone:          strings.TrimSpace(guest.Phone),
		CustomerInfo:   customerInfoPayload(cmd.Customer),
		PaymentType:    cmd.Payment.Type,
		PaymentMethod:  cmd.Payment.Method,
		PaymentChannel: cmd.Payment.Channel,
		Shipment:       shipment,
	}
	applyVoucher(&submission.VoucherID, &submission.VoucherCode, cmd.Voucher)
	return submission
}

func customerInfoPayload(info domain.CustomerInfo) gateways.CustomerInfoPayload {
	return gateways.CustomerInfoPayload{
		FullName:      strings.TrimSpace(info.FullName),
		Phone:         strings.TrimSpace(info.Phone),
		Address:       strings.TrimSpace(info.AddressLine1),
		AddressDetail: strings.TrimSpace(info.AddressLine2),
		PostalCode:    strings.TrimSpace(info.PostalCode),
		ProvinceID:    info.ProvinceID,
		CityID:        info.CityID,
		DistrictID:    info.DistrictID,
	}
}

func applyVoucher(id **int64, code *string, selection *domain.VoucherSelection) {
	if selection == nil {
		return
	}
	voucherID := selection.ID
	*id = &voucherID
	*code = selection.Code
}
