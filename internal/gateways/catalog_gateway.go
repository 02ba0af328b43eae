package gateways

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	domain "github.com/waduh12345/hrbalife-sub001/internal/domain"
)

// CatalogGateway reads product, variant, and size records from the catalog API.
type CatalogGateway struct {
	client *Client
}

// NewCatalogGateway constructs a CatalogGateway on the shared transport.
func NewCatalogGateway(client *Client) *CatalogGateway {
	return &CatalogGateway{client: client}
}

type productDTO struct {
	ID     int64  `json:"id"`
	ShopID int64  `json:"shop_id"`
	Name   string `json:"name"`
	Image  string `json:"image"`
	Price  int64  `json:"price"`
	Stock  int    `json:"stock"`
	Weight int    `json:"weight"`
}

type variantDTO struct {
	ID              int64  `json:"id"`
	ProductID       int64  `json:"product_id"`
	Name            string `json:"name"`
	SKU             string `json:"sku"`
	Image           string `json:"image"`
	AdditionalPrice int64  `json:"additional_price"`
	Stock           int    `json:"stock"`
}

type sizeDTO struct {
	ID              int64  `json:"id"`
	VariantID       int64  `json:"product_variant_id"`
	Name            string `json:"name"`
	AdditionalPrice int64  `json:"additional_price"`
	Stock           int    `json:"stock"`
}

func paginationQuery(page domain.Pagination) url.Values {
	query := url.Values{}
	if page.Page > 0 {
		query.Set("page", strconv.Itoa(page.Page))
	}
	if page.PerPage > 0 {
		query.Set("per_page", strconv.Itoa(page.PerPage))
	}
	return query
}

// Product fetches a single product record.
func (g *CatalogGateway) Product(ctx context.Context, productID int64) (domain.Product, error) {
	var dto productDTO
	path := fmt.Sprintf("/products/%d", productID)
	if _, err := g.client.getJSON(ctx, path, nil, &dto); err != nil {
		return domain.Product{}, err
	}
	return domain.Product{
		ID:     dto.ID,
		ShopID: dto.ShopID,
		Name:   dto.Name,
		Image:  dto.Image,
		Price:  dto.Price,
		Stock:  dto.Stock,
		Weight: dto.Weight,
	}, nil
}

// Variants lists the variants of a product with pagination metadata.
func (g *CatalogGateway) Variants(ctx context.Context, productID int64, page domain.Pagination) ([]domain.ProductVariant, domain.PageMeta, error) {
	var dtos []variantDTO
	path := fmt.Sprintf("/products/%d/variants", productID)
	meta, err := g.client.getJSON(ctx, path, paginationQuery(page), &dtos)
	if err != nil {
		return nil, domain.PageMeta{}, err
	}

	variants := make([]domain.ProductVariant, 0, len(dtos))
	for _, dto := range dtos {
		variants = append(variants, domain.ProductVariant{
			ID:              dto.ID,
			ProductID:       dto.ProductID,
			Name:            dto.Name,
			SKU:             dto.SKU,
			Image:           dto.Image,
			AdditionalPrice: dto.AdditionalPrice,
			Stock:           dto.Stock,
		})
	}
	return variants, meta, nil
}

// Sizes lists the sizes of a variant with pagination metadata.
func (g *CatalogGateway) Sizes(ctx context.Context, variantID int64, page domain.Pagination) ([]domain.VariantSize, domain.PageMeta, error) {
	var dtos []sizeDTO
	path := fmt.Sprintf("/variants/%d/sizes", variantID)
	meta, err := g.client.getJSON(ctx, path, paginationQuery(page), &dtos)
	if err != nil {
		return nil, domain.PageMeta{}, err
	}

	sizes := make([]domain.VariantSize, 0, len(dtos))
	for _, dto := range dtos {
		sizes = append(sizes, domain.VariantSize{
			ID:              dto.ID,
			VariantID:       dto.VariantID,
			Name:            dto.Name,
			AdditionalPrice: dto.AdditionalPrice,
			Stock:           dto.Stock,
		})
	}
	return sizes, meta, nil
}
