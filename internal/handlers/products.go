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

// ProductHandlers exposes the variant and size resolution endpoint backing the
// add-to-cart selection sheet.
type ProductHandlers struct {
	resolver services.ResolverService
}

// NewProductHandlers constructs handlers over the resolver service.
func NewProductHandlers(resolver services.ResolverService) *ProductHandlers {
	return &ProductHandlers{resolver: resolver}
}

// Routes wires the /products endpoints onto the provided router.
func (h *ProductHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/{productID}/resolve", h.resolve)
}

func (h *ProductHandlers) resolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.resolver == nil {
		httpx.WriteError(ctx, w, httpx.NewError("resolution_unavailable", "product resolution is unavailable", http.StatusServiceUnavailable))
		return
	}

	productID, err := strconv.ParseInt(strings.TrimSpace(chi.URLParam(r, "productID")), 10, 64)
	if err != nil || productID <= 0 {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "productID must be a positive integer", http.StatusBadRequest))
		return
	}

	resolution, err := h.resolver.ResolveProduct(ctx, productID)
	if err != nil {
		h.writeResolveError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, buildResolutionPayload(resolution))
}

func (h *ProductHandlers) writeResolveError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrResolverInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrResolverNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
	case errors.Is(err, services.ErrResolutionUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("resolution_unavailable", "product details could not be fetched; try again", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("resolution_error", "product resolution failed", http.StatusInternalServerError))
	}
}

type resolutionResponse struct {
	Product  productPayload         `json:"product"`
	Variants []variantOptionPayload `json:"variants"`
	Unit     *resolvedUnitPayload   `json:"unit,omitempty"`
}

type productPayload struct {
	ID     int64  `json:"id"`
	ShopID int64  `json:"shop_id"`
	Name   string `json:"name"`
	Image  string `json:"image,omitempty"`
	Price  int64  `json:"price"`
	Stock  int    `json:"stock"`
	Weight int    `json:"weight"`
}

type variantOptionPayload struct {
	ID              int64               `json:"id"`
	Name            string              `json:"name"`
	SKU             string              `json:"sku,omitempty"`
	Image           string              `json:"image,omitempty"`
	AdditionalPrice int64               `json:"additional_price"`
	Stock           int                 `json:"stock"`
	Sizes           []sizeOptionPayload `json:"sizes"`
}

type sizeOptionPayload struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	AdditionalPrice int64  `json:"additional_price"`
	Stock           int    `json:"stock"`
}

type resolvedUnitPayload struct {
	ProductID int64  `json:"product_id"`
	VariantID int64  `json:"product_variant_id,omitempty"`
	SizeID    int64  `json:"size_id,omitempty"`
	UnitPrice int64  `json:"unit_price"`
	Stock     int    `json:"stock"`
	Name      string `json:"name,omitempty"`
	Immediate bool   `json:"immediate"`
}

func buildResolutionPayload(resolution services.ProductResolution) resolutionResponse {
	response := resolutionResponse{
		Product: productPayload{
			ID:     resolution.Product.ID,
			ShopID: resolution.Product.ShopID,
			Name:   resolution.Product.Name,
			Image:  resolution.Product.Image,
			Price:  resolution.Product.Price,
			Stock:  resolution.Product.Stock,
			Weight: resolution.Product.Weight,
		},
		Variants: make([]variantOptionPayload, 0, len(resolution.Variants)),
	}

	for _, variant := range resolution.Variants {
		option := variantOptionPayload{
			ID:              variant.Variant.ID,
			Name:            variant.Variant.Name,
			SKU:             variant.Variant.SKU,
			Image:           variant.Variant.Image,
			AdditionalPrice: variant.Variant.AdditionalPrice,
			Stock:           variant.Variant.Stock,
			Sizes:           make([]sizeOptionPayload, 0, len(variant.Sizes)),
		}
		for _, size := range variant.Sizes {
			option.Sizes = append(option.Sizes, sizeOptionPayload{
				ID:              size.ID,
				Name:            size.Name,
				AdditionalPrice: size.AdditionalPrice,
				Stock:           size.Stock,
			})
		}
		response.Variants = append(response.Variants, option)
	}

	if resolution.Unit != nil {
		response.Unit = buildUnitPayload(*resolution.Unit)
	}
	return response
}

func buildUnitPayload(unit domain.ResolvedUnit) *resolvedUnitPayload {
	return &resolvedUnitPayload{
		ProductID: unit.ProductID,
		VariantID: unit.VariantID,
		SizeID:    unit.SizeID,
		UnitPrice: unit.UnitPrice,
		Stock:     unit.Stock,
		Name:      unit.DisplayName,
		Immediate: unit.Immediate,
	}
}
