package services

import (
	"context"
	"errors"

	domain "github.com/waduh12345/hrbalife-sub001/internal/domain"
	"github.com/waduh12345/hrbalife-sub001/internal/gateways"
)

var (
	errResolverCatalogRequired = errors.New("resolver service: catalog gateway is required")
)

// ErrResolverInvalidInput indicates the caller supplied invalid input.
var ErrResolverInvalidInput = errors.New("resolver service: invalid input")

// ErrResolutionUnavailable indicates the remote catalog could not be consulted;
// add-to-cart must not proceed without a resolved unit.
var ErrResolutionUnavailable = errors.New("resolver service: resolution unavailable")

// ErrResolverNotFound indicates the product, variant, or size does not exist.
var ErrResolverNotFound = errors.New("resolver service: not found")

const resolverPageSize = 100

// CatalogReader is the catalog gateway surface the resolver consumes.
type CatalogReader interface {
	Product(ctx context.Context, productID int64) (domain.Product, error)
	Variants(ctx context.Context, productID int64, page domain.Pagination) ([]domain.ProductVariant, domain.PageMeta, error)
	Sizes(ctx context.Context, variantID int64, page domain.Pagination) ([]domain.VariantSize, domain.PageMeta, error)
}

// ResolverServiceDeps wires the catalog gateway for unit resolution.
type ResolverServiceDeps struct {
	Catalog CatalogReader
	Logger  func(context.Context, string, map[string]any)
}

type resolverService struct {
	catalog CatalogReader
	logger  func(context.Context, string, map[string]any)
}

// NewResolverService constructs a ResolverService enforcing dependency validation.
func NewResolverService(deps ResolverServiceDeps) (ResolverService, error) {
	if deps.Catalog == nil {
		return nil, errResolverCatalogRequired
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &resolverService{catalog: deps.Catalog, logger: logger}, nil
}

// ResolveProduct fetches the product's selectable tree. A product with zero
// variants short-circuits: the product itself is the unit and the resolution
// carries it ready to add.
func (s *resolverService) ResolveProduct(ctx context.Context, productID int64) (ProductResolution, error) {
	if productID <= 0 {
		return ProductResolution{}, ErrResolverInvalidInput
	}

	product, err := s.catalog.Product(ctx, productID)
	if err != nil {
		return ProductResolution{}, translateCatalogError(err)
	}

	variants, _, err := s.catalog.Variants(ctx, productID, domain.Pagination{Page: 1, PerPage: resolverPageSize})
	if err != nil {
		return ProductResolution{}, translateCatalogError(err)
	}

	resolution := ProductResolution{Product: product}
	if len(variants) == 0 {
		unit := unitFromProduct(product)
		resolution.Unit = &unit
		s.logger(ctx, "resolver.short_circuit", map[string]any{"product_id": productID})
		return resolution, nil
	}

	resolution.Variants = make([]VariantResolution, 0, len(variants))
	for _, variant := range variants {
		sizes, _, err := s.catalog.Sizes(ctx, variant.ID, domain.Pagination{Page: 1, PerPage: resolverPageSize})
		if err != nil {
			return ProductResolution{}, translateCatalogError(err)
		}
		resolution.Variants = append(resolution.Variants, VariantResolution{Variant: variant, Sizes: sizes})
	}
	return resolution, nil
}

// ResolveUnit computes the effective unit for a concrete selection. Effective
// price is base plus variant and size deltas; effective stock is the most
// specific available figure.
func (s *resolverService) ResolveUnit(ctx context.Context, cmd ResolveUnitCommand) (domain.ResolvedUnit, error) {
	if cmd.ProductID <= 0 {
		return domain.ResolvedUnit{}, ErrResolverInvalidInput
	}
	if cmd.SizeID > 0 && cmd.VariantID <= 0 {
		return domain.ResolvedUnit{}, ErrResolverInvalidInput
	}

	resolution, err := s.ResolveProduct(ctx, cmd.ProductID)
	if err != nil {
		return domain.ResolvedUnit{}, err
	}

	if resolution.Unit != nil {
		if cmd.VariantID > 0 {
			return domain.ResolvedUnit{}, ErrResolverNotFound
		}
		return *resolution.Unit, nil
	}

	if cmd.VariantID <= 0 {
		return domain.ResolvedUnit{}, ErrResolverInvalidInput
	}

	var chosen *VariantResolution
	for i := range resolution.Variants {
		if resolution.Variants[i].Variant.ID == cmd.VariantID {
			chosen = &resolution.Variants[i]
			break
		}
	}
	if chosen == nil {
		return domain.ResolvedUnit{}, ErrResolverNotFound
	}

	unit := unitFromProduct(resolution.Product)
	unit.Immediate = false
	unit.VariantID = chosen.Variant.ID
	unit.SKU = chosen.Variant.SKU
	unit.UnitPrice += chosen.Variant.AdditionalPrice
	unit.VariantLabel = chosen.Variant.Name
	if chosen.Variant.Image != "" {
		unit.DisplayImage = chosen.Variant.Image
	}
	if chosen.Variant.Stock > 0 {
		unit.Stock = chosen.Variant.Stock
	}

	if cmd.SizeID > 0 {
		var size *domain.VariantSize
		for i := range chosen.Sizes {
			if chosen.Sizes[i].ID == cmd.SizeID {
				size = &chosen.Sizes[i]
				break
			}
		}
		if size == nil {
			return domain.ResolvedUnit{}, ErrResolverNotFound
		}
		unit.SizeID = size.ID
		unit.UnitPrice += size.AdditionalPrice
		unit.SizeLabel = size.Name
		if size.Stock > 0 {
			unit.Stock = size.Stock
		}
	} else if len(chosen.Sizes) > 0 {
		// A variant that carries sizes is not purchasable without one.
		return domain.ResolvedUnit{}, ErrResolverInvalidInput
	}

	return unit, nil
}

func unitFromProduct(product domain.Product) domain.ResolvedUnit {
	return domain.ResolvedUnit{
		ProductID:    product.ID,
		ShopID:       product.ShopID,
		UnitPrice:    product.Price,
		Stock:        product.Stock,
		WeightGrams:  product.Weight,
		DisplayName:  product.Name,
		DisplayImage: product.Image,
		Immediate:    true,
	}
}

func translateCatalogError(err error) error {
	if err == nil {
		return nil
	}
	var upstreamErr *gateways.UpstreamError
	if errors.As(err, &upstreamErr) && upstreamErr.IsNotFound() {
		return ErrResolverNotFound
	}
	return ErrResolutionUnavailable
}
