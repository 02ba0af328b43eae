package services

import (
	"context"
	"errors"
	"strings"

	domain "github.com/waduh12345/hrbalife-sub001/internal/domain"
	"github.com/waduh12345/hrbalife-sub001/internal/gateways"
)

var errShippingGatewayRequired = errors.New("shipping service: gateway is required")

// ErrShippingInvalidInput indicates the caller supplied invalid input.
var ErrShippingInvalidInput = errors.New("shipping service: invalid input")

// ErrShippingUnavailable indicates the shipping-rate API could not be consulted.
var ErrShippingUnavailable = errors.New("shipping service: unavailable")

// RatesFetcher is the gateway surface the shipping service consumes.
type RatesFetcher interface {
	Rates(ctx context.Context, query gateways.RateQuery) ([]domain.ShippingRate, error)
}

// ShippingServiceDeps wires the shipping gateway.
type ShippingServiceDeps struct {
	Gateway RatesFetcher
	Logger  func(context.Context, string, map[string]any)
}

type shippingService struct {
	gateway RatesFetcher
	logger  func(context.Context, string, map[string]any)
}

// NewShippingService constructs a ShippingService enforcing dependency validation.
func NewShippingService(deps ShippingServiceDeps) (ShippingService, error) {
	if deps.Gateway == nil {
		return nil, errShippingGatewayRequired
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &shippingService{gateway: deps.Gateway, logger: logger}, nil
}

// Rates prices one shipment for a shop against the chosen courier.
func (s *shippingService) Rates(ctx context.Context, cmd ShippingRatesCommand) ([]domain.ShippingRate, error) {
	courier := strings.ToLower(strings.TrimSpace(cmd.CourierCode))
	if courier == "" || cmd.DestinationDistrictID <= 0 || cmd.WeightGrams <= 0 {
		return nil, ErrShippingInvalidInput
	}

	rates, err := s.gateway.Rates(ctx, gateways.RateQuery{
		OriginShopID:          cmd.OriginShopID,
		DestinationProvinceID: cmd.DestinationProvinceID,
		DestinationCityID:     cmd.DestinationCityID,
		DestinationDistrictID: cmd.DestinationDistrictID,
		WeightGrams:           cmd.WeightGrams,
		CourierCode:           courier,
	})
	if err != nil {
		return nil, ErrShippingUnavailable
	}

	s.logger(ctx, "shipping.rates_fetched", map[string]any{
		"courier": courier,
		"count":   len(rates),
	})
	return rates, nil
}
