package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/waduh12345/hrbalife-sub001/internal/domain"
	"github.com/waduh12345/hrbalife-sub001/internal/platform/httpx"
	"github.com/waduh12345/hrbalife-sub001/internal/services"
)

// VoucherHandlers exposes the incremental voucher search endpoint.
type VoucherHandlers struct {
	vouchers services.VoucherService
	limiter  RateLimiter
}

// VoucherHandlersOption customises the voucher handlers.
type VoucherHandlersOption func(*VoucherHandlers)

// NewVoucherHandlers constructs handlers over the voucher service.
func NewVoucherHandlers(vouchers services.VoucherService, opts ...VoucherHandlersOption) *VoucherHandlers {
	h := &VoucherHandlers{vouchers: vouchers}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// WithVoucherRateLimiter gates the search route per session key.
func WithVoucherRateLimiter(limiter RateLimiter) VoucherHandlersOption {
	return func(h *VoucherHandlers) {
		h.limiter = limiter
	}
}

// Routes wires the /vouchers endpoints onto the provided router.
func (h *VoucherHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/search", h.search)
}

func (h *VoucherHandlers) search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.vouchers == nil {
		httpx.WriteError(ctx, w, httpx.NewError("voucher_service_unavailable", "voucher service is unavailable", http.StatusServiceUnavailable))
		return
	}

	sessionKey, ok := requireSessionKey(ctx, w)
	if !ok {
		return
	}

	if h.limiter != nil && !h.limiter.Allow(sessionKey) {
		httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many voucher searches; slow down", http.StatusTooManyRequests))
		return
	}

	query := r.URL.Query()
	page := domain.Pagination{}
	if raw := strings.TrimSpace(query.Get("page")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "page must be a positive integer", http.StatusBadRequest))
			return
		}
		page.Page = parsed
	}

	vouchers, err := h.vouchers.Search(ctx, services.VoucherSearchCommand{
		SessionKey: sessionKey,
		Query:      query.Get("q"),
		Page:       page,
	})
	if err != nil {
		h.writeSearchError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, voucherSearchResponse{Vouchers: buildVoucherPayloads(vouchers)})
}

func (h *VoucherHandlers) writeSearchError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrVoucherInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrVoucherThrottled):
		httpx.WriteError(ctx, w, httpx.NewError("voucher_search_throttled", "searching too fast; wait a moment", http.StatusTooManyRequests))
	case errors.Is(err, services.ErrVoucherUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("voucher_service_unavailable", "voucher service is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("voucher_error", "voucher search failed", http.StatusInternalServerError))
	}
}

type voucherSearchResponse struct {
	Vouchers []voucherPayload `json:"vouchers"`
}

type voucherPayload struct {
	ID               int64  `json:"id"`
	Code             string `json:"code"`
	Name             string `json:"name,omitempty"`
	Description      string `json:"description,omitempty"`
	Type             string `json:"type"`
	FixedAmount      int64  `json:"fixed_amount,omitempty"`
	PercentageAmount int64  `json:"percentage_amount,omitempty"`
	StartDate        string `json:"start_date"`
	EndDate          string `json:"end_date"`
}

func buildVoucherPayloads(vouchers []domain.Voucher) []voucherPayload {
	if len(vouchers) == 0 {
		return []voucherPayload{}
	}
	payload := make([]voucherPayload, 0, len(vouchers))
	for _, voucher := range vouchers {
		payload = append(payload, voucherPayload{
			ID:               voucher.ID,
			Code:             voucher.Code,
			Name:             voucher.Name,
			Description:      voucher.Description,
			Type:             string(voucher.Type),
			FixedAmount:      voucher.FixedAmount,
			PercentageAmount: voucher.PercentageAmount,
			StartDate:        formatTime(voucher.StartDate),
			EndDate:          formatTime(voucher.EndDate),
		})
	}
	return payload
}
