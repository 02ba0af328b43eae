package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/waduh12345/hrbalife-sub001/internal/domain"
	"github.com/waduh12345/hrbalife-sub001/internal/platform/httpx"
	"github.com/waduh12345/hrbalife-sub001/internal/services"
)

const maxCartBodySize = 16 * 1024

// CartHandlers exposes the session-scoped cart endpoints. Every add goes
// through unit resolution first; the cart never trusts client-supplied prices.
type CartHandlers struct {
	carts    services.CartService
	resolver services.ResolverService
	alerts   services.CartNotifier
}

// CartHandlersOption customises cart handler construction.
type CartHandlersOption func(*CartHandlers)

// WithCartAlerts wires the add-to-cart alert notifier so the storefront can
// poll the currently visible notification.
func WithCartAlerts(notifier services.CartNotifier) CartHandlersOption {
	return func(h *CartHandlers) {
		h.alerts = notifier
	}
}

// NewCartHandlers constructs handlers over the cart and resolver services.
func NewCartHandlers(carts services.CartService, resolver services.ResolverService, opts ...CartHandlersOption) *CartHandlers {
	h := &CartHandlers{
		carts:    carts,
		resolver: resolver,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes wires the /cart endpoints onto the provided router.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.getCart)
	r.Delete("/", h.clearCart)
	r.Get("/alert", h.currentAlert)
	r.Post("/items", h.addItem)
	r.Post("/items/increase", h.increaseItem)
	r.Post("/items/decrease", h.decreaseItem)
	r.Post("/items/remove", h.removeItem)
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
		return
	}

	sessionKey, ok := requireSessionKey(ctx, w)
	if !ok {
		return
	}

	cart, err := h.carts.GetCart(ctx, sessionKey)
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, cartResponse{Cart: buildCartPayload(cart)})
}

func (h *CartHandlers) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
		return
	}

	sessionKey, ok := requireSessionKey(ctx, w)
	if !ok {
		return
	}

	if err := h.carts.Clear(ctx, sessionKey); err != nil {
		h.writeCartError(ctx, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// currentAlert returns the unexpired "item added" notification, or 204 when
// none is visible.
func (h *CartHandlers) currentAlert(w http.ResponseWriter, r *http.Request) {
	if h.alerts == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	item, ok := h.alerts.Current()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSONResponse(w, http.StatusOK, cartAlertResponse{Item: buildCartItemPayload(item)})
}

func (h *CartHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil || h.resolver == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
		return
	}

	sessionKey, ok := requireSessionKey(ctx, w)
	if !ok {
		return
	}

	selection, err := parseLineSelection(r)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	unit, err := h.resolver.ResolveUnit(ctx, services.ResolveUnitCommand{
		ProductID: selection.ProductID,
		VariantID: selection.VariantID,
		SizeID:    selection.SizeID,
	})
	if err != nil {
		h.writeResolverError(ctx, w, err)
		return
	}

	mutation, err := h.carts.AddItem(ctx, services.AddItemCommand{SessionKey: sessionKey, Unit: unit})
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, buildMutationResponse(mutation))
}

func (h *CartHandlers) increaseItem(w http.ResponseWriter, r *http.Request) {
	h.mutateLine(w, r, func(ctx context.Context, sessionKey string, identity domain.LineIdentity) (services.CartMutation, error) {
		return h.carts.IncreaseQuantity(ctx, sessionKey, identity)
	})
}

func (h *CartHandlers) decreaseItem(w http.ResponseWriter, r *http.Request) {
	h.mutateLine(w, r, func(ctx context.Context, sessionKey string, identity domain.LineIdentity) (services.CartMutation, error) {
		return h.carts.DecreaseQuantity(ctx, sessionKey, identity)
	})
}

func (h *CartHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	h.mutateLine(w, r, func(ctx context.Context, sessionKey string, identity domain.LineIdentity) (services.CartMutation, error) {
		return h.carts.RemoveItem(ctx, sessionKey, identity)
	})
}

func (h *CartHandlers) mutateLine(w http.ResponseWriter, r *http.Request, mutate func(context.Context, string, domain.LineIdentity) (services.CartMutation, error)) {
	ctx := r.Context()
	if h.carts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
		return
	}

	sessionKey, ok := requireSessionKey(ctx, w)
	if !ok {
		return
	}

	selection, err := parseLineSelection(r)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	mutation, err := mutate(ctx, sessionKey, domain.LineIdentity{
		ProductID: selection.ProductID,
		VariantID: selection.VariantID,
		SizeID:    selection.SizeID,
	})
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, buildMutationResponse(mutation))
}

func (h *CartHandlers) writeCartError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrCartInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCartOutOfStock):
		httpx.WriteError(ctx, w, httpx.NewError("product_out_of_stock", "product is out of stock", http.StatusConflict))
	case errors.Is(err, services.ErrCartLineNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("cart_line_not_found", "cart line not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCartUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("cart_error", "cart operation failed", http.StatusInternalServerError))
	}
}

func (h *CartHandlers) writeResolverError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrResolverInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "a purchasable variant and size must be selected", http.StatusBadRequest))
	case errors.Is(err, services.ErrResolverNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product, variant, or size not found", http.StatusNotFound))
	case errors.Is(err, services.ErrResolutionUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("resolution_unavailable", "product details could not be fetched; try again", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("cart_error", "cart operation failed", http.StatusInternalServerError))
	}
}

type lineSelectionRequest struct {
	ProductID int64 `json:"product_id"`
	VariantID int64 `json:"product_variant_id"`
	SizeID    int64 `json:"size_id"`
}

func parseLineSelection(r *http.Request) (lineSelectionRequest, error) {
	var req lineSelectionRequest
	body, err := readLimitedBody(r, maxCartBodySize)
	if err != nil {
		return req, err
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return req, errors.New("invalid JSON payload")
	}
	if req.ProductID <= 0 {
		return req, errors.New("product_id is required")
	}
	return req, nil
}

type cartResponse struct {
	Cart cartPayload `json:"cart"`
}

type cartAlertResponse struct {
	Item cartItemPayload `json:"item"`
}

type cartMutationResponse struct {
	Cart   cartPayload `json:"cart"`
	Capped bool        `json:"capped"`
}

type cartPayload struct {
	SessionKey string            `json:"session_key"`
	Items      []cartItemPayload `json:"items"`
	ItemsCount int               `json:"items_count"`
	TotalPrice int64             `json:"total_price"`
	UpdatedAt  string            `json:"updated_at,omitempty"`
}

type cartItemPayload struct {
	ID           string `json:"id"`
	ProductID    int64  `json:"product_id"`
	VariantID    int64  `json:"product_variant_id,omitempty"`
	SizeID       int64  `json:"size_id,omitempty"`
	Quantity     int    `json:"quantity"`
	UnitPrice    int64  `json:"unit_price"`
	Subtotal     int64  `json:"subtotal"`
	Stock        int    `json:"stock"`
	Name         string `json:"name,omitempty"`
	Image        string `json:"image,omitempty"`
	VariantLabel string `json:"variant_name,omitempty"`
	SizeLabel    string `json:"size_name,omitempty"`
	AddedAt      string `json:"added_at,omitempty"`
	UpdatedAt    string `json:"updated_at,omitempty"`
}

func buildMutationResponse(mutation services.CartMutation) cartMutationResponse {
	return cartMutationResponse{
		Cart:   buildCartPayload(mutation.Cart),
		Capped: mutation.Capped,
	}
}

func buildCartPayload(cart domain.Cart) cartPayload {
	payload := cartPayload{
		SessionKey: strings.TrimSpace(cart.SessionKey),
		Items:      buildCartItems(cart.Items),
		ItemsCount: cart.ItemCount(),
		TotalPrice: cart.TotalPrice(),
	}
	if !cart.UpdatedAt.IsZero() {
		payload.UpdatedAt = formatTime(cart.UpdatedAt)
	}
	return payload
}

func buildCartItems(items []domain.CartLineItem) []cartItemPayload {
	if len(items) == 0 {
		return []cartItemPayload{}
	}

	payload := make([]cartItemPayload, 0, len(items))
	for _, item := range items {
		payload = append(payload, buildCartItemPayload(item))
	}
	return payload
}

func buildCartItemPayload(item domain.CartLineItem) cartItemPayload {
	entry := cartItemPayload{
		ID:           strings.TrimSpace(item.ID),
		ProductID:    item.ProductID,
		VariantID:    item.VariantID,
		SizeID:       item.SizeID,
		Quantity:     item.Quantity,
		UnitPrice:    item.UnitPrice,
		Subtotal:     item.UnitPrice * int64(item.Quantity),
		Stock:        item.Stock,
		Name:         strings.TrimSpace(item.DisplayName),
		Image:        strings.TrimSpace(item.DisplayImage),
		VariantLabel: strings.TrimSpace(item.VariantLabel),
		SizeLabel:    strings.TrimSpace(item.SizeLabel),
	}
	if !item.AddedAt.IsZero() {
		entry.AddedAt = formatTime(item.AddedAt)
	}
	if item.UpdatedAt != nil && !item.UpdatedAt.IsZero() {
		entry.UpdatedAt = formatTime(*item.UpdatedAt)
	}
	return entry
}
