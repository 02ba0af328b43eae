package gateways

import (
	"context"

	domain "github.com/waduh12345/hrbalife-sub001/internal/domain"
)

// ShippingGateway looks up courier rates for a shipment.
type ShippingGateway struct {
	client *Client
}

// NewShippingGateway constructs a ShippingGateway on the shared transport.
func NewShippingGateway(client *Client) *ShippingGateway {
	return &ShippingGateway{client: client}
}

// RateQuery describes one shipment to be priced.
type RateQuery struct {
	OriginShopID          int64
	DestinationProvinceID int64
	DestinationCityID     int64
	DestinationDistrictID int64
	WeightGrams           int
	CourierCode           string
}

type rateRequestDTO struct {
	OriginShopID int64  `json:"origin_shop_id"`
	ProvinceID   int64  `json:"destination_province_id"`
	CityID       int64  `json:"destination_city_id"`
	DistrictID   int64  `json:"destination_district_id"`
	Weight       int    `json:"weight"`
	Courier      string `json:"courier"`
}

type rateDTO struct {
	Name        string `json:"name"`
	Code        string `json:"code"`
	Service     string `json:"service"`
	Description string `json:"description"`
	Cost        int64  `json:"cost"`
	ETD         string `json:"etd"`
}

// Rates prices the shipment against the selected courier.
func (g *ShippingGateway) Rates(ctx context.Context, query RateQuery) ([]domain.ShippingRate, error) {
	request := rateRequestDTO{
		OriginShopID: query.OriginShopID,
		ProvinceID:   query.DestinationProvinceID,
		CityID:       query.DestinationCityID,
		DistrictID:   query.DestinationDistrictID,
		Weight:       query.WeightGrams,
		Courier:      query.CourierCode,
	}

	var dtos []rateDTO
	if err := g.client.postJSON(ctx, "/rates", request, &dtos); err != nil {
		return nil, err
	}

	rates := make([]domain.ShippingRate, 0, len(dtos))
	for _, dto := range dtos {
		rates = append(rates, domain.ShippingRate{
			Name:        dto.Name,
			Code:        dto.Code,
			Service:     dto.Service,
			Description: dto.Description,
			Cost:        dto.Cost,
			ETD:         dto.ETD,
		})
	}
	return rates, nil
}
