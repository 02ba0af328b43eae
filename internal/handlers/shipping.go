package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/waduh12345/hrbalife-sub001/internal/domain"
	"github.com/waduh12345/hrbalife-sub001/internal/platform/httpx"
	"github.com/waduh12345/hrbalife-sub001/internal/services"
)

// ShippingHandlers exposes the per-shop shipping rate lookup.
type ShippingHandlers struct {
	shipping services.ShippingService
}

// NewShippingHandlers constructs handlers over the shipping service.
func NewShippingHandlers(shipping services.ShippingService) *ShippingHandlers {
	return &ShippingHandlers{shipping: shipping}
}

// Routes wires the /shipping endpoints onto the provided router.
func (h *ShippingHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/rates", h.rates)
}

func (h *ShippingHandlers) rates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.shipping == nil {
		httpx.WriteError(ctx, w, httpx.NewError("shipping_service_unavailable", "shipping service is unavailable", http.StatusServiceUnavailable))
		return
	}

	cmd, err := parseRatesQuery(r.URL.Query())
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	rates, err := h.shipping.Rates(ctx, cmd)
	if err != nil {
		h.writeRatesError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, shippingRatesResponse{Rates: buildRatePayloads(rates)})
}

func (h *ShippingHandlers) writeRatesError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrShippingInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrShippingUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("shipping_service_unavailable", "shipping rates could not be fetched", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("shipping_error", "shipping rate lookup failed", http.StatusInternalServerError))
	}
}

func parseRatesQuery(query url.Values) (services.ShippingRatesCommand, error) {
	cmd := services.ShippingRatesCommand{
		CourierCode: strings.TrimSpace(query.Get("courier")),
	}

	parse := func(name string) (int64, error) {
		raw := strings.TrimSpace(query.Get(name))
		if raw == "" {
			return 0, nil
		}
		value, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || value < 0 {
			return 0, errors.New(name + " must be a positive integer")
		}
		return value, nil
	}

	var err error
	if cmd.OriginShopID, err = parse("shop_id"); err != nil {
		return cmd, err
	}
	if cmd.DestinationProvinceID, err = parse("province_id"); err != nil {
		return cmd, err
	}
	if cmd.DestinationCityID, err = parse("city_id"); err != nil {
		return cmd, err
	}
	if cmd.DestinationDistrictID, err = parse("district_id"); err != nil {
		return cmd, err
	}

	weight, err := parse("weight")
	if err != nil {
		return cmd, err
	}
	cmd.WeightGrams = int(weight)

	return cmd, nil
}

type shippingRatesResponse struct {
	Rates []shippingRatePayload `json:"rates"`
}

type shippingRatePayload struct {
	Name        string `json:"name"`
	Code        string `json:"code"`
	Service     string `json:"service"`
	Description string `json:"description,omitempty"`
	Cost        int64  `json:"cost"`
	ETD         string `json:"etd,omitempty"`
}

func buildRatePayloads(rates []domain.ShippingRate) []shippingRatePayload {
	if len(rates) == 0 {
		return []shippingRatePayload{}
	}
	payload := make([]shippingRatePayload, 0, len(rates))
	for _, rate := range rates {
		payload = append(payload, shippingRatePayload{
			Name:        rate.Name,
			Code:        rate.Code,
			Service:     rate.Service,
			Description: rate.Description,
			Cost:        rate.Cost,
			ETD:         rate.ETD,
		})
	}
	return payload
}
