package services

import (
	"context"
	"errors"
	"testing"

	domain "github.com/waduh12345/hrbalife-sub001/internal/domain"
	"github.com/waduh12345/hrbalife-sub001/internal/gateways"
)

type stubRatesGateway struct {
	rates []domain.ShippingRate
	err   error
	query gateways.RateQuery
	calls int
}

func (g *stubRatesGateway) Rates(ctx context.Context, query gateways.RateQuery) ([]domain.ShippingRate, error) {
	g.calls++
	g.query = query
	if g.err != nil {
		return nil, g.err
	}
	return g.rates, nil
}

func newTestShippingService(t *testing.T, gateway *stubRatesGateway) ShippingService {
	t.Helper()
	service, err := NewShippingService(ShippingServiceDeps{Gateway: gateway})
	if err != nil {
		t.Fatalf("NewShippingService returned error: %v", err)
	}
	return service
}

func TestShippingRatesNormalizesCourier(t *testing.T) {
	gateway := &stubRatesGateway{rates: []domain.ShippingRate{
		{Name: "JNE", Code: "jne", Service: "REG", Cost: 18000, ETD: "2-3"},
	}}
	service := newTestShippingService(t, gateway)

	rates, err := service.Rates(context.Background(), ShippingRatesCommand{
		OriginShopID:          2,
		DestinationProvinceID: 11,
		DestinationCityID:     155,
		DestinationDistrictID: 1951,
		WeightGrams:           900,
		CourierCode:           "  JNE  ",
	})
	if err != nil {
		t.Fatalf("Rates returned error: %v", err)
	}
	if len(rates) != 1 || rates[0].Cost != 18000 {
		t.Fatalf("unexpected rates: %+v", rates)
	}
	if gateway.query.CourierCode != "jne" {
		t.Errorf("courier forwarded as %q, want %q", gateway.query.CourierCode, "jne")
	}
	if gateway.query.DestinationDistrictID != 1951 || gateway.query.WeightGrams != 900 {
		t.Errorf("unexpected forwarded query: %+v", gateway.query)
	}
}

func TestShippingRatesValidation(t *testing.T) {
	gateway := &stubRatesGateway{}
	service := newTestShippingService(t, gateway)

	cases := []ShippingRatesCommand{
		{DestinationDistrictID: 1951, WeightGrams: 900},
		{CourierCode: "jne", WeightGrams: 900},
		{CourierCode: "jne", DestinationDistrictID: 1951},
		{CourierCode: "jne", DestinationDistrictID: 1951, WeightGrams: -5},
	}
	for i, cmd := range cases {
		if _, err := service.Rates(context.Background(), cmd); !errors.Is(err, ErrShippingInvalidInput) {
			t.Errorf("case %d: expected ErrShippingInvalidInput, got %v", i, err)
		}
	}
	if gateway.calls != 0 {
		t.Errorf("gateway called %d times for invalid input, want 0", gateway.calls)
	}
}

func TestShippingRatesUnavailable(t *testing.T) {
	gateway := &stubRatesGateway{err: errors.New("boom")}
	service := newTestShippingService(t, gateway)

	if _, err := service.Rates(context.Background(), ShippingRatesCommand{CourierCode: "jne", DestinationDistrictID: 1951, WeightGrams: 900}); !errors.Is(err, ErrShippingUnavailable) {
		t.Fatalf("expected ErrShippingUnavailable, got %v", err)
	}
}
