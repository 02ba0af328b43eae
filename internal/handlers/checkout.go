package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/waduh12345/hrbalife-sub001/internal/domain"
	"github.com/waduh12345/hrbalife-sub001/internal/platform/auth"
	"github.com/waduh12345/hrbalife-sub001/internal/platform/httpx"
	"github.com/waduh12345/hrbalife-sub001/internal/services"
)

const maxCheckoutBodySize = 64 * 1024

// CheckoutHandlers exposes the authenticated and guest submission endpoints.
// Both share one request shape; the guest route additionally requires an
// explicit contact block.
type CheckoutHandlers struct {
	checkout services.CheckoutService
	limiter  RateLimiter
}

// CheckoutHandlersOption customises the checkout handlers.
type CheckoutHandlersOption func(*CheckoutHandlers)

// NewCheckoutHandlers constructs handlers over the checkout orchestrator.
func NewCheckoutHandlers(checkout services.CheckoutService, opts ...CheckoutHandlersOption) *CheckoutHandlers {
	h := &CheckoutHandlers{checkout: checkout}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// WithCheckoutRateLimiter gates both submission routes per session key.
func WithCheckoutRateLimiter(limiter RateLimiter) CheckoutHandlersOption {
	return func(h *CheckoutHandlers) {
		h.limiter = limiter
	}
}

// Routes wires the /checkout endpoints onto the provided router. The
// authenticated route must sit behind the session middleware.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.With(auth.RequireSession()).Post("/", h.submitCustomer)
	r.Post("/guest", h.submitGuest)
}

func (h *CheckoutHandlers) submitCustomer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}
	h.submit(w, r, domain.AuthenticatedIdentity{Email: identity.Normalized().Email}, false)
}

func (h *CheckoutHandlers) submitGuest(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, nil, true)
}

func (h *CheckoutHandlers) submit(w http.ResponseWriter, r *http.Request, identity domain.CheckoutIdentity, guest bool) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout is unavailable", http.StatusServiceUnavailable))
		return
	}

	sessionKey, ok := requireSessionKey(ctx, w)
	if !ok {
		return
	}

	if h.limiter != nil && !h.limiter.Allow(sessionKey) {
		httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many checkout attempts; slow down", http.StatusTooManyRequests))
		return
	}

	body, err := readLimitedBody(r, maxCheckoutBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	req, err := parseCheckoutRequest(body, guest)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	if guest {
		identity = domain.GuestIdentity{
			FullName: req.Contact.FullName,
			Email:    req.Contact.Email,
			Phone:    req.Contact.Phone,
		}
	}

	result, err := h.checkout.Submit(ctx, buildCheckoutCommand(sessionKey, identity, req))
	if err != nil {
		h.writeCheckoutError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, checkoutResponse{
		Outcome:      string(result.Outcome),
		Reference:    result.Reference,
		PaymentLink:  result.PaymentLink,
		RedirectPath: result.RedirectPath,
	})
}

func (h *CheckoutHandlers) writeCheckoutError(ctx context.Context, w http.ResponseWriter, err error) {
	var blocked *services.BlockedError
	switch {
	case errors.As(err, &blocked):
		httpx.WriteError(ctx, w, httpx.NewError("checkout_not_ready", "checkout preconditions not met", http.StatusUnprocessableEntity).
			WithDetails(map[string]any{"missing": blocked.Missing}))
	case errors.Is(err, services.ErrCheckoutNotReady):
		httpx.WriteError(ctx, w, httpx.NewError("checkout_not_ready", "checkout preconditions not met", http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrCheckoutEmptyCart):
		httpx.WriteError(ctx, w, httpx.NewError("cart_empty", "cart has no items to submit", http.StatusBadRequest))
	case errors.Is(err, services.ErrCheckoutInFlight):
		httpx.WriteError(ctx, w, httpx.NewError("checkout_in_flight", "a submission for this session is already pending", http.StatusConflict))
	case errors.Is(err, services.ErrCheckoutRejected):
		httpx.WriteError(ctx, w, httpx.NewError("checkout_rejected", "the order was rejected; review the cart and retry", http.StatusBadGateway))
	case errors.Is(err, services.ErrCheckoutInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCheckoutUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("checkout_error", "checkout failed", http.StatusInternalServerError))
	}
}

type checkoutRequest struct {
	ShopID   int64                `json:"shop_id"`
	Customer checkoutCustomer     `json:"customer_info"`
	Shipping *checkoutShipping    `json:"shipping"`
	Payment  checkoutPayment      `json:"payment"`
	Voucher  *checkoutVoucher     `json:"voucher"`
	Package  checkoutPackage      `json:"package"`
	Contact  checkoutGuestContact `json:"contact"`
}

type checkoutCustomer struct {
	FullName      string `json:"full_name"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	AddressDetail string `json:"address_detail"`
	PostalCode    string `json:"postal_code"`
	ProvinceID    int64  `json:"province_id"`
	CityID        int64  `json:"city_id"`
	DistrictID    int64  `json:"district_id"`
}

type checkoutShipping struct {
	Courier   string          `json:"courier"`
	Cost      int64           `json:"cost"`
	Selection json.RawMessage `json:"selection"`
}

type checkoutPayment struct {
	Type    string `json:"type"`
	Method  string `json:"method"`
	Channel string `json:"channel"`
}

type checkoutVoucher struct {
	ID               int64  `json:"id"`
	Code             string `json:"code"`
	Type             string `json:"type"`
	FixedAmount      int64  `json:"fixed_amount"`
	PercentageAmount int64  `json:"percentage_amount"`
}

type checkoutPackage struct {
	LengthCm    int `json:"length"`
	WidthCm     int `json:"width"`
	HeightCm    int `json:"height"`
	WeightGrams int `json:"weight"`
}

type checkoutGuestContact struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

type checkoutResponse struct {
	Outcome      string `json:"outcome"`
	Reference    string `json:"reference,omitempty"`
	PaymentLink  string `json:"payment_link,omitempty"`
	RedirectPath string `json:"redirect_path"`
}

func parseCheckoutRequest(body []byte, guest bool) (checkoutRequest, error) {
	var req checkoutRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return req, errors.New("invalid JSON payload")
	}

	req.Customer.FullName = strings.TrimSpace(req.Customer.FullName)
	req.Customer.Phone = strings.TrimSpace(req.Customer.Phone)
	req.Customer.Address = strings.TrimSpace(req.Customer.Address)
	req.Customer.PostalCode = strings.TrimSpace(req.Customer.PostalCode)
	req.Payment.Type = strings.TrimSpace(req.Payment.Type)

	if req.Payment.Type == "" {
		return req, errors.New("payment.type is required")
	}
	if guest {
		req.Contact.FullName = strings.TrimSpace(req.Contact.FullName)
		req.Contact.Email = strings.TrimSpace(req.Contact.Email)
		req.Contact.Phone = strings.TrimSpace(req.Contact.Phone)
		if req.Contact.FullName == "" {
			return req, errors.New("contact.full_name is required")
		}
	}
	return req, nil
}

func buildCheckoutCommand(sessionKey string, identity domain.CheckoutIdentity, req checkoutRequest) services.CheckoutCommand {
	cmd := services.CheckoutCommand{
		SessionKey: sessionKey,
		Identity:   identity,
		ShopID:     req.ShopID,
		Customer: domain.CustomerInfo{
			FullName:     req.Customer.FullName,
			Phone:        req.Customer.Phone,
			AddressLine1: req.Customer.Address,
			AddressLine2: req.Customer.AddressDetail,
			PostalCode:   req.Customer.PostalCode,
			ProvinceID:   req.Customer.ProvinceID,
			CityID:       req.Customer.CityID,
			DistrictID:   req.Customer.DistrictID,
		},
		Payment: services.PaymentChoice{
			Type:    req.Payment.Type,
			Method:  strings.TrimSpace(req.Payment.Method),
			Channel: strings.TrimSpace(req.Payment.Channel),
		},
		PackageLengthCm:    req.Package.LengthCm,
		PackageWidthCm:     req.Package.WidthCm,
		PackageHeightCm:    req.Package.HeightCm,
		PackageWeightGrams: req.Package.WeightGrams,
	}

	if req.Shipping != nil {
		cmd.Shipping = &domain.ShippingSelection{
			CourierCode: strings.ToLower(strings.TrimSpace(req.Shipping.Courier)),
			Cost:        req.Shipping.Cost,
			Raw:         req.Shipping.Selection,
		}
	}
	if req.Voucher != nil && req.Voucher.ID > 0 {
		cmd.Voucher = &domain.VoucherSelection{
			ID:               req.Voucher.ID,
			Code:             strings.TrimSpace(req.Voucher.Code),
			Type:             domain.VoucherType(req.Voucher.Type),
			FixedAmount:      req.Voucher.FixedAmount,
			PercentageAmount: req.Voucher.PercentageAmount,
		}
	}
	return cmd
}
